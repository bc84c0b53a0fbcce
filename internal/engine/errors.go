package engine

import (
	"errors"
	"fmt"
)

// SyncError represents a failure that aborted a sync run.
type SyncError struct {
	// Code identifies the error category.
	Code SyncErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the failed run.
	RunID string

	// Cursor is the pagination cursor in effect, empty for the newest page.
	Cursor string

	// Err is the underlying cause.
	Err error
}

// SyncErrorCode categorizes sync failures.
type SyncErrorCode string

const (
	// ErrCodeSourceUnavailable indicates a transport failure talking to the source.
	ErrCodeSourceUnavailable SyncErrorCode = "SOURCE_UNAVAILABLE"

	// ErrCodeMalformedPage indicates the newest page lacked a data field.
	ErrCodeMalformedPage SyncErrorCode = "MALFORMED_PAGE"

	// ErrCodeEmptySource indicates a backfill found no samples at all.
	ErrCodeEmptySource SyncErrorCode = "EMPTY_SOURCE"

	// ErrCodeDecodeError indicates a sample payload could not be decoded.
	ErrCodeDecodeError SyncErrorCode = "DECODE_ERROR"

	// ErrCodeStoreFailure indicates the store could not be read or written.
	ErrCodeStoreFailure SyncErrorCode = "STORE_FAILURE"
)

// Error implements the error interface.
func (e *SyncError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Cursor != "" {
		msg += fmt.Sprintf(" (cursor=%s)", e.Cursor)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code SyncErrorCode) bool {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsSourceUnavailable returns true if the run failed to reach the source.
func IsSourceUnavailable(err error) bool { return hasCode(err, ErrCodeSourceUnavailable) }

// IsMalformedPage returns true if the run failed on a malformed newest page.
func IsMalformedPage(err error) bool { return hasCode(err, ErrCodeMalformedPage) }

// IsEmptySource returns true if a backfill found nothing to replicate.
func IsEmptySource(err error) bool { return hasCode(err, ErrCodeEmptySource) }

// IsDecodeError returns true if a sample payload could not be decoded.
func IsDecodeError(err error) bool { return hasCode(err, ErrCodeDecodeError) }

// IsStoreFailure returns true if the store failed during the run.
func IsStoreFailure(err error) bool { return hasCode(err, ErrCodeStoreFailure) }

// Code returns the SyncErrorCode carried by err, or "" if none.
func Code(err error) SyncErrorCode {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
