// Package domainerrors carries a stable error code alongside every error that
// crosses a service boundary. Callers branch on the code, never on the message.
//
// Usage:
//
//	return dErrors.New(dErrors.CodeValidation, "email is required")
//	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to register client")
//	if dErrors.HasCode(err, dErrors.CodeConflict) { ... }
package domainerrors

import (
	"errors"
)

// Code is a stable, machine-readable error category.
type Code string

const (
	// CodeValidation marks missing or malformed input, detected before storage access.
	CodeValidation Code = "validation_error"
	// CodeConflict marks a uniqueness violation (duplicate email or phone).
	CodeConflict Code = "conflict"
	// CodeInternal marks any other persistence or infrastructure failure.
	CodeInternal Code = "internal_error"
	// CodeCapacityExceeded marks exhaustion of the identifier space for an entity class.
	CodeCapacityExceeded Code = "capacity_exceeded"

	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeTimeout      Code = "timeout"
)

// Error is a coded domain error. The message is for humans; the code is the contract.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without an underlying cause.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying cause.
// A nil cause yields a plain coded error.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the outermost coded error in the chain,
// or CodeInternal when the chain carries none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the outermost coded error in the chain has the given code.
func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	var de *Error
	if !errors.As(err, &de) {
		return false
	}
	return de.Code == code
}
