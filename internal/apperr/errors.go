package apperr

import (
	"errors"
	"fmt"
)

// Code classifies a failure crossing a repository boundary.
type Code string

const (
	CodeUnknown         Code = "UNKNOWN"
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	// CodeValidation marks missing or malformed input.
	CodeValidation Code = "VALIDATION_FAILURE"
	CodeNotFound   Code = "NOT_FOUND"
	CodeConflict   Code = "CONFLICT"
	// CodeRemote marks a rejected database or object storage call.
	CodeRemote Code = "REMOTE_FAILURE"
	// CodePartial marks a two-step operation where only one step took effect.
	CodePartial Code = "PARTIAL_FAILURE"
)

// Sentinels for errors.Is matching by code.
var (
	ErrUnauthenticated = New(CodeUnauthenticated, "not authenticated")
	ErrValidation      = New(CodeValidation, "validation failed")
	ErrNotFound        = New(CodeNotFound, "not found")
	ErrConflict        = New(CodeConflict, "conflict")
	ErrRemote          = New(CodeRemote, "remote call failed")
	ErrPartial         = New(CodePartial, "partial failure")
)

// Error is the structured error returned by the core packages.
type Error struct {
	Code    Code
	Message string
	Raw     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Raw != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Raw)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	case e.Raw != nil:
		return fmt.Sprintf("%s: %v", e.Code, e.Raw)
	default:
		return string(e.Code)
	}
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Raw
}

// Is matches another *Error with the same code.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e == t || (e.Code != "" && e.Code == t.Code)
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, raw error) *Error {
	return &Error{Code: code, Message: message, Raw: raw}
}

// Validation, NotFound, Conflict and Remote are shorthands for the common codes.
func Validation(format string, args ...any) *Error {
	return New(CodeValidation, fmt.Sprintf(format, args...))
}

func NotFound(what string) *Error {
	return New(CodeNotFound, what+" not found")
}

func Conflict(format string, args ...any) *Error {
	return New(CodeConflict, fmt.Sprintf(format, args...))
}

// Remote wraps a collaborator failure unless it already carries a code.
func Remote(message string, raw error) error {
	var e *Error
	if errors.As(raw, &e) {
		return raw
	}
	return Wrap(CodeRemote, message, raw)
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
