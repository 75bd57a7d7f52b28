package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Error represents a gateway-level error with a public code and a
// per-occurrence retryability flag. It implements the standard error
// interface and supports error chaining.
//
// The Code field contains the public error code (UPPER_SNAKE_CASE) that is
// exposed in failure envelopes for consistent client error handling.
type Error struct {
	// Code is the public error code in UPPER_SNAKE_CASE format.
	Code string

	// Message is the human-readable error message returned to clients.
	Message string

	// Retryable tells the client whether retrying the same request may
	// succeed. Defaults per code registry; override with AsRetryable /
	// AsPermanent.
	Retryable bool

	// cause is the underlying error for error chaining.
	cause error
}

// New creates an Error with the given registered code and message.
// Retryability is taken from the code's registered default.
// Panics if code is not registered; codes are a closed set and an
// unregistered code is a programming error.
func New(code, message string) *Error {
	if !IsValidCode(code) {
		panic(fmt.Sprintf("errors: unregistered error code %q", code))
	}
	return &Error{
		Code:      code,
		Message:   message,
		Retryable: DefaultRetryable(code),
	}
}

// Newf creates an Error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates an Error that records cause for error chaining while
// exposing only message to clients.
func Wrap(code, message string, cause error) *Error {
	e := New(code, message)
	e.cause = cause
	return e
}

// AsRetryable returns a copy of e marked retryable.
func (e *Error) AsRetryable() *Error {
	c := *e
	c.Retryable = true
	return &c
}

// AsPermanent returns a copy of e marked non-retryable.
func (e *Error) AsPermanent() *Error {
	c := *e
	c.Retryable = false
	return &c
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is / errors.As traversal.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same code.
// This lets callers write errors.Is(err, errors.New(CodeNotFound, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// FromError converts an arbitrary error into a gateway *Error.
//
// Taxonomy errors pass through unchanged. Anything else maps to
// QUOTA_EXCEEDED when its message mentions a quota (upstream adapters
// surface quota exhaustion as plain errors), otherwise SERVICE_ERROR.
// The op argument ("service.action") prefixes wrapped messages.
func FromError(op string, err error) *Error {
	if err == nil {
		return nil
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	if strings.Contains(strings.ToLower(err.Error()), "quota") {
		return Wrap(CodeQuotaExceeded, fmt.Sprintf("%s failed: %v", op, err), err)
	}
	return Wrap(CodeServiceError, fmt.Sprintf("%s failed: %v", op, err), err)
}

// CodeOf returns the public code for err, or SERVICE_ERROR when err carries
// no taxonomy code. Returns "" for nil.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return CodeServiceError
}
