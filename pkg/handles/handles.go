// Package handles maps filesystem paths to the opaque file handles NFS
// clients hold on to, and back.
//
// Handle Format:
// Every handle is Size bytes: the 64-bit xxhash of the path followed by the
// 64-bit epoch of the store that issued it, both big-endian. The hash makes
// handles deterministic for a path; the epoch lets a store reject handles
// issued by a store it does not remember, which NFS reports as stale.
//
// Only path strings are stored. Nothing read from the image is kept.
package handles

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Size is the length in bytes of every handle.
const Size = 16

var (
	// ErrStale is returned for well-formed handles the store does not know.
	ErrStale = errors.New("stale file handle")

	// ErrBadHandle is returned for handles of the wrong length.
	ErrBadHandle = errors.New("malformed file handle")

	// ErrCollision is returned when two paths hash to the same handle.
	ErrCollision = errors.New("file handle collision")
)

// Store is a two-way table between paths and handles.
//
// Thread Safety:
// Implementations must be safe for concurrent use.
type Store interface {
	// Handle returns the handle for path, recording the mapping.
	Handle(ctx context.Context, path string) ([]byte, error)

	// Path returns the path a handle was issued for. Unknown handles
	// yield ErrStale.
	Path(ctx context.Context, handle []byte) (string, error)

	// Close releases the store.
	Close() error
}

// FileID returns the numeric file id (inode number) of a path. It is the
// hash part of the path's handle.
func FileID(path string) uint64 {
	return xxhash.Sum64String(path)
}

// NewEpoch returns a random epoch for a new store.
func NewEpoch() uint64 {
	id := uuid.New()
	return binary.BigEndian.Uint64(id[:8])
}

// Encode builds the handle of a path hash within an epoch.
func Encode(hash, epoch uint64) []byte {
	h := make([]byte, Size)
	binary.BigEndian.PutUint64(h[:8], hash)
	binary.BigEndian.PutUint64(h[8:], epoch)
	return h
}

// Decode splits a handle into its path hash and epoch.
func Decode(handle []byte) (hash, epoch uint64, err error) {
	if len(handle) != Size {
		return 0, 0, fmt.Errorf("%w: %d bytes", ErrBadHandle, len(handle))
	}
	return binary.BigEndian.Uint64(handle[:8]), binary.BigEndian.Uint64(handle[8:]), nil
}
