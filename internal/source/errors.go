package source

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes source failures.
type ErrorCode string

const (
	// ErrCodeSourceUnavailable indicates a transport failure or a non-JSON body.
	ErrCodeSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"

	// ErrCodeMalformedPage indicates a JSON body lacking the data field.
	ErrCodeMalformedPage ErrorCode = "MALFORMED_PAGE"
)

// Error is returned by Client.FetchPage.
type Error struct {
	Code ErrorCode

	// Before is the cursor of the failed request, empty for the newest page.
	Before string

	// Status is the HTTP status code, zero when no response was received.
	Status int

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	cursor := e.Before
	if cursor == "" {
		cursor = "newest"
	}
	msg := fmt.Sprintf("%s: fetch page (before=%s)", e.Code, cursor)
	if e.Status != 0 {
		msg += fmt.Sprintf(" status=%d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsUnavailable returns true if err is a SOURCE_UNAVAILABLE error.
// Uses errors.As to handle wrapped errors.
func IsUnavailable(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == ErrCodeSourceUnavailable
	}
	return false
}

// IsMalformed returns true if err is a MALFORMED_PAGE error.
// Uses errors.As to handle wrapped errors.
func IsMalformed(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == ErrCodeMalformedPage
	}
	return false
}
