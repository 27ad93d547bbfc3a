// Package apperr holds the error kind shared by every layer that checks
// user input before anything touches the network.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError is a local input problem: missing fields, a wrong file
// type, or nothing captured yet. Message is shown to the user as is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validation returns a ValidationError with msg.
func Validation(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// Validationf returns a ValidationError with a formatted message.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
