package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/squeakfs/pkg/handles"
)

// Store keeps the handle table in a map. Handles do not survive a
// restart: a new Store has a new epoch, so clients see stale handles and
// look their paths up again.
type Store struct {
	mu     sync.RWMutex
	epoch  uint64
	paths  map[uint64]string
	closed bool
}

var _ handles.Store = (*Store)(nil)

// New creates an empty store with a fresh epoch.
func New() *Store {
	return &Store{
		epoch: handles.NewEpoch(),
		paths: make(map[uint64]string),
	}
}

func (s *Store) Handle(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash := handles.FileID(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("handle store closed")
	}
	if known, ok := s.paths[hash]; ok && known != path {
		return nil, fmt.Errorf("%w: %q and %q", handles.ErrCollision, known, path)
	}
	s.paths[hash] = path
	return handles.Encode(hash, s.epoch), nil
}

func (s *Store) Path(ctx context.Context, handle []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	hash, epoch, err := handles.Decode(handle)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if epoch != s.epoch {
		return "", handles.ErrStale
	}
	path, ok := s.paths[hash]
	if !ok {
		return "", handles.ErrStale
	}
	return path, nil
}

// Len returns the number of paths handed out.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.paths)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.paths = make(map[uint64]string)
	return nil
}
