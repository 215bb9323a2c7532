package badger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/pkg/handles"
)

// Key schema:
//
//	"epoch"          -> 8-byte big-endian epoch, written once
//	"h:" + hash(8)   -> path
var (
	keyEpoch     = []byte("epoch")
	prefixHandle = []byte("h:")
)

func handleKey(hash uint64) []byte {
	key := make([]byte, len(prefixHandle)+8)
	copy(key, prefixHandle)
	binary.BigEndian.PutUint64(key[len(prefixHandle):], hash)
	return key
}

// Config configures a badger-backed handle store.
type Config struct {
	// DBPath is the directory BadgerDB keeps its files in.
	DBPath string

	// InMemory runs BadgerDB without touching the disk. DBPath is ignored.
	InMemory bool

	// BlockCacheSizeMB is BadgerDB's block cache size (default: 16).
	BlockCacheSizeMB int64

	// IndexCacheSizeMB is BadgerDB's index cache size (default: 8).
	IndexCacheSizeMB int64
}

// Store persists the handle table in BadgerDB. The epoch is stored with the
// table, so handles issued before a restart stay valid after it.
//
// Thread Safety:
// BadgerDB transactions serialize conflicting writes; mu only guards Close
// against in-flight operations.
type Store struct {
	mu    sync.RWMutex
	db    *badger.DB
	epoch uint64
}

var _ handles.Store = (*Store)(nil)

// New opens (or creates) the store described by config.
func New(ctx context.Context, config Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(config.DBPath)
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 16
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 8
	}
	opts = opts.
		WithLoggingLevel(badger.WARNING).
		WithCompression(options.None).
		WithBlockCacheSize(blockCacheMB << 20).
		WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	store := &Store{db: db}
	if err := store.loadEpoch(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize handle epoch: %w", err)
	}

	logger.Debug("Handle store opened at %s (epoch %016x)", config.DBPath, store.epoch)
	return store, nil
}

// loadEpoch reads the stored epoch, creating one on first use.
func (s *Store) loadEpoch() error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyEpoch)
		if errors.Is(err, badger.ErrKeyNotFound) {
			s.epoch = handles.NewEpoch()
			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, s.epoch)
			return txn.Set(keyEpoch, buf)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt epoch record (%d bytes)", len(val))
			}
			s.epoch = binary.BigEndian.Uint64(val)
			return nil
		})
	})
}

// Epoch returns the epoch stamped into every handle of this store.
func (s *Store) Epoch() uint64 {
	return s.epoch
}

func (s *Store) Handle(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hash := handles.FileID(path)
	key := handleKey(hash)

	known, err := s.lookup(key)
	switch {
	case err == nil && known == path:
		return handles.Encode(hash, s.epoch), nil
	case err == nil:
		return nil, fmt.Errorf("%w: %q and %q", handles.ErrCollision, known, path)
	case !errors.Is(err, badger.ErrKeyNotFound):
		return nil, fmt.Errorf("failed to read handle of %s: %w", path, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, []byte(path))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store handle of %s: %w", path, err)
	}
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
	if epoch != s.epoch {
		return "", handles.ErrStale
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	path, err := s.lookup(handleKey(hash))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", handles.ErrStale
	}
	if err != nil {
		return "", fmt.Errorf("failed to read handle: %w", err)
	}
	return path, nil
}

func (s *Store) lookup(key []byte) (string, error) {
	var path string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			path = string(val)
			return nil
		})
	})
	return path, err
}

// Healthcheck verifies the database still accepts transactions.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.db.View(func(*badger.Txn) error { return nil }); err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}
