package value

import (
	"errors"
	"fmt"
)

// Code identifies the error family of a failed operation.
type Code int

// Stable error codes - do not change values.
const (
	// CodeInvalidArgument marks a malformed caller request.
	CodeInvalidArgument Code = 1001 // E1001
	// CodeSizeMismatch marks diverging layouts or arities.
	CodeSizeMismatch Code = 1002 // E1002
	// CodeTypeMismatch marks incompatible base types or pointer levels.
	CodeTypeMismatch Code = 1003 // E1003
	// CodeIllegalState marks a violated internal invariant.
	CodeIllegalState Code = 1004 // E1004
	// CodeNotImplemented marks a deliberately unsupported path.
	CodeNotImplemented Code = 1005 // E1005
)

// String returns the code as "E1001" format.
func (c Code) String() string {
	return fmt.Sprintf("E%d", c)
}

// Error is a non-recoverable operation failure. Every error surfaces
// immediately to the caller of the triggering operation; there is no retry.
type Error struct {
	Code    Code
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Errf builds an Error with a formatted message.
func Errf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
