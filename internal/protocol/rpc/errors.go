package rpc

import "errors"

var (
	// ErrProcUnavail is returned by a program's dispatcher for procedure
	// numbers it does not implement.
	ErrProcUnavail = errors.New("procedure unavailable")

	// ErrGarbageArgs is returned by a program's dispatcher when the
	// procedure arguments cannot be decoded.
	ErrGarbageArgs = errors.New("garbage arguments")
)
