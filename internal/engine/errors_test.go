package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSyncError_Message(t *testing.T) {
	cause := errors.New("connection refused")

	err := &SyncError{Code: ErrCodeSourceUnavailable, Message: "source unavailable", Cursor: "2025-10-03T00:00:00Z", Err: cause}
	assert.Equal(t, "SOURCE_UNAVAILABLE: source unavailable (cursor=2025-10-03T00:00:00Z): connection refused", err.Error())

	err = &SyncError{Code: ErrCodeEmptySource, Message: "newest page has no samples"}
	assert.Equal(t, "EMPTY_SOURCE: newest page has no samples", err.Error())
}

func TestSyncError_Helpers(t *testing.T) {
	tests := []struct {
		code  SyncErrorCode
		check func(error) bool
	}{
		{ErrCodeSourceUnavailable, IsSourceUnavailable},
		{ErrCodeMalformedPage, IsMalformedPage},
		{ErrCodeEmptySource, IsEmptySource},
		{ErrCodeDecodeError, IsDecodeError},
		{ErrCodeStoreFailure, IsStoreFailure},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &SyncError{Code: tt.code})
			assert.True(t, tt.check(err))
			assert.Equal(t, tt.code, Code(err))
			for _, other := range tests {
				if other.code != tt.code {
					assert.False(t, other.check(err), "%s matched %s", tt.code, other.code)
				}
			}
		})
	}

	assert.Equal(t, SyncErrorCode(""), Code(errors.New("plain")))
	assert.False(t, IsStoreFailure(nil))
}

func TestSyncError_Unwrap(t *testing.T) {
	cause := errors.New("cause")
	err := &SyncError{Code: ErrCodeStoreFailure, Err: cause}
	assert.ErrorIs(t, err, cause)
}
