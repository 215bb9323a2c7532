package adapter

import (
	"context"

	"github.com/marmos91/squeakfs/pkg/vfs"
)

// Adapter represents a protocol-specific front end that SqueakServer
// manages.
//
// Each adapter exposes the same filesystem through one protocol (NFS,
// FUSE) and provides a uniform lifecycle.
//
// Lifecycle:
//  1. Creation: Adapter is created with protocol-specific configuration
//  2. Filesystem injection: SetFilesystem() provides the shared filesystem
//  3. Startup: Serve() starts the protocol server and blocks until shutdown
//  4. Shutdown: Stop() initiates graceful shutdown with timeout
//
// Thread safety:
// Implementations must be safe for concurrent use. SetFilesystem() is
// called once before Serve(), but Stop() may be called concurrently with
// Serve().
type Adapter interface {
	// Serve starts the protocol server and blocks until the context is
	// cancelled or an unrecoverable error occurs. If Serve returns before
	// the context is cancelled, SqueakServer treats it as fatal and stops
	// every other adapter.
	Serve(ctx context.Context) error

	// SetFilesystem injects the filesystem to serve. Called exactly once,
	// before Serve.
	SetFilesystem(fs *vfs.FS)

	// Stop initiates graceful shutdown. It must be idempotent, safe to
	// call concurrently with Serve, and respect the context deadline.
	Stop(ctx context.Context) error

	// Protocol returns the protocol name for logging and metrics.
	Protocol() string

	// Port returns the port the adapter listens on, or 0 when it does not
	// listen on one.
	Port() int
}
