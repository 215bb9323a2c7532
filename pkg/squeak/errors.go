package squeak

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a failed query.
type ErrorCode int

const (
	// ErrRemote means the image answered with an "Error:" payload. The
	// connection is still usable.
	ErrRemote ErrorCode = iota

	// ErrTransport means the image could not be reached, even after the
	// configured reconnect attempts.
	ErrTransport

	// ErrProtocol means the image answered with something that does not
	// follow the framing rules.
	ErrProtocol

	// ErrInvalidArgument means a query argument cannot be put on the wire
	// (it contains a TAB or newline, or is not representable in the image
	// encoding).
	ErrInvalidArgument

	// ErrClosed means the client was closed.
	ErrClosed
)

func (c ErrorCode) String() string {
	switch c {
	case ErrRemote:
		return "remote"
	case ErrTransport:
		return "transport"
	case ErrProtocol:
		return "protocol"
	case ErrInvalidArgument:
		return "invalid argument"
	case ErrClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Error is returned by every Source implementation for failed queries.
type Error struct {
	Code     ErrorCode
	Selector string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("squeak %s error", e.Code)
	if e.Selector != "" {
		msg += " in " + e.Selector
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// RemoteError builds the error an image returns for a rejected query.
func RemoteError(selector, message string) *Error {
	return &Error{Code: ErrRemote, Selector: selector, Message: message}
}

// CodeOf extracts the ErrorCode of err. ok is false when err is not a *Error.
func CodeOf(err error) (code ErrorCode, ok bool) {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Code, true
	}
	return 0, false
}

// IsRemote reports whether err is an answer from the image rather than a
// failure to reach it.
func IsRemote(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrRemote
}

// IsTransport reports whether err means the image could not be reached.
func IsTransport(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrTransport
}
