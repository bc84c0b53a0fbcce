package config

import (
	"errors"
	"fmt"
)

// ErrCodeConfiguration is the code carried by every configuration failure.
const ErrCodeConfiguration = "CONFIGURATION_ERROR"

// Error reports an unusable configuration.
type Error struct {
	// Field is the dotted setting path, empty when the failure is not tied
	// to one setting.
	Field string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := ErrCodeConfiguration + ": "
	if e.Field != "" {
		msg += e.Field + ": "
	}
	msg += e.Message
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsConfigurationError returns true if err is a configuration failure.
func IsConfigurationError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}
