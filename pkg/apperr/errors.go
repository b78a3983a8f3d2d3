// Package apperr defines the operation-level error taxonomy shared by all
// API operations. Every failure surfaced to a caller is one of these kinds;
// internal details (driver errors, stack traces) never cross this boundary.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an operation-level failure.
type Kind string

const (
	// KindInvalidArgument indicates malformed request arguments
	// (e.g. mutually exclusive pagination parameters).
	KindInvalidArgument Kind = "INVALID_ARGUMENT"

	// KindInvalidCursor indicates an undecodable pagination cursor.
	KindInvalidCursor Kind = "INVALID_CURSOR"

	// KindAuthenticationRequired indicates no valid identity was resolved
	// for a protected operation.
	KindAuthenticationRequired Kind = "AUTHENTICATION_REQUIRED"

	// KindPasswordChangeRequired indicates the identity must complete a
	// mandatory password change before performing other operations.
	KindPasswordChangeRequired Kind = "PASSWORD_CHANGE_REQUIRED"

	// KindInsufficientPermissions indicates the identity lacks the required
	// role in the required scope.
	KindInsufficientPermissions Kind = "INSUFFICIENT_PERMISSIONS"

	// KindNotFound indicates the requested entity does not exist.
	KindNotFound Kind = "NOT_FOUND"

	// KindInternal indicates an unclassified failure. The message exposed to
	// callers is generic; the underlying error stays server-side.
	KindInternal Kind = "INTERNAL"
)

// Error is a classified operation failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying cause, never exposed to callers
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a caller-facing message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error. The message is caller-facing; err is
// preserved for server-side logging only.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// Internal wraps an unexpected error with a generic caller-facing message.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
