// Package guard defines sentinel errors and coded error helpers.
package guard

import "errors"

// ErrInvalidInput indicates validation failures.
var ErrInvalidInput = errors.New("invalid input")

// ErrNotFound indicates missing resources.
var ErrNotFound = errors.New("not found")

// ErrorCode classifies errors for transport mapping.
type ErrorCode string

// Error codes used across the package.
const (
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeInternal     ErrorCode = "INTERNAL"
)

type codedError struct {
	code ErrorCode
	msg  string
	err  error
}

func (e *codedError) Error() string {
	if e == nil {
		return ""
	}
	return e.msg
}

func (e *codedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Wrap attaches an error code to an error.
func Wrap(code ErrorCode, msg string, err error) error {
	return &codedError{code: code, msg: msg, err: err}
}

// CodeOf extracts the error code from an error chain.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var coded *codedError
	if errors.As(err, &coded) {
		return coded.code
	}
	if errors.Is(err, ErrInvalidInput) {
		return CodeInvalidInput
	}
	if errors.Is(err, ErrNotFound) {
		return CodeNotFound
	}
	return CodeInternal
}
