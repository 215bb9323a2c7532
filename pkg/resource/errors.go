package resource

import "errors"

// ErrorCode is the failure kind surfaced across the filesystem boundary.
type ErrorCode int

const (
	// ErrNotFound covers parse failures, failed existence or membership
	// checks, and any failed query to the image. Callers cannot tell an
	// absent class from an unreachable image, and are not meant to.
	ErrNotFound ErrorCode = iota

	// ErrPermissionDenied is returned by Open for any access mode other
	// than read-only.
	ErrPermissionDenied
)

// Error is the only error type returned by Resource operations.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is makes errors.Is(err, ErrNotExist) and errors.Is(err, ErrPermission)
// match on the code alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	// ErrNotExist matches any not-found Error with errors.Is.
	ErrNotExist = &Error{Code: ErrNotFound, Message: "no such file or directory"}

	// ErrPermission matches any permission Error with errors.Is.
	ErrPermission = &Error{Code: ErrPermissionDenied, Message: "permission denied"}
)

// IsNotFound reports whether err is a not-found Error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// IsPermissionDenied reports whether err is a permission Error.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermission)
}

func notFound(message string) *Error {
	return &Error{Code: ErrNotFound, Message: message}
}
