package errs

import (
	"errors"
	"fmt"
)

// Code classifies a helper error.
type Code string

const (
	InvalidArgument    Code = "invalid_argument"
	NotFound           Code = "not_found"
	FailedPrecondition Code = "failed_precondition"
	AssertionFailed    Code = "assertion_failed"
	Unavailable        Code = "unavailable"
	Internal           Code = "internal"
)

// Error is a coded helper error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		if e.Err != nil {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a coded error with message.
func New(code Code, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a coded error with message and cause.
func Wrap(code Code, message string, cause error) error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// Assertf creates an AssertionFailed error with a formatted message.
func Assertf(format string, args ...any) error {
	return &Error{
		Code:    AssertionFailed,
		Message: fmt.Sprintf(format, args...),
	}
}

// CodeOf returns the error code, defaulting to internal.
func CodeOf(err error) Code {
	if err == nil {
		return Internal
	}
	var coded *Error
	if errors.As(err, &coded) {
		if coded.Code == "" {
			return Internal
		}
		return coded.Code
	}
	return Internal
}

// MessageOf returns the coded message without the wrapped cause.
// Untyped errors yield "internal error".
func MessageOf(err error) string {
	if err == nil {
		return string(Internal)
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// IsAssertion reports whether err is a failed expectation about the site
// rather than a broken browser, database or CLI.
func IsAssertion(err error) bool {
	return err != nil && CodeOf(err) == AssertionFailed
}

// ExitCode maps error code to a process exit status for the CLI.
func ExitCode(code Code) int {
	switch code {
	case AssertionFailed:
		return 1
	case InvalidArgument:
		return 2
	case NotFound, FailedPrecondition:
		return 3
	case Unavailable:
		return 69
	default:
		return 70
	}
}
