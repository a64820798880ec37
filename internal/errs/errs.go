// Package errs holds the error types shared by the audit and density packages.
package errs

import (
	"errors"
	"fmt"
)

// Error type is used to create constant errors.
type Error string

func (e Error) Error() string { return string(e) }

// Errorf creates error from formatted string with params.
func Errorf(format string, v ...any) Error {
	return Error(fmt.Sprintf(format, v...))
}

// ValidationError reports malformed input to a public entry point. Data
// quality problems are never reported this way; they are counted.
type ValidationError struct {
	Op  string
	Err error
}

func (e *ValidationError) Error() string {
	if e.Op == "" {
		return "validation: " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid wraps err as a ValidationError raised by op.
func Invalid(op string, err error) error {
	return &ValidationError{Op: op, Err: err}
}

// IsValidation reports whether err (or anything it wraps) is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
