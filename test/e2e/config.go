package e2e

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/marmos91/squeakfs/pkg/handles"
	handlesbadger "github.com/marmos91/squeakfs/pkg/handles/badger"
	handlesmemory "github.com/marmos91/squeakfs/pkg/handles/memory"
)

// HandleStoreType represents the type of handle store
type HandleStoreType string

const (
	HandlesMemory HandleStoreType = "memory"
	HandlesBadger HandleStoreType = "badger"
)

// TestContextProvider is an interface for providing test context dependencies
type TestContextProvider interface {
	CreateTempDir(prefix string) string
	GetConfig() *TestConfig
	GetPort() int
}

// TestConfig holds the configuration for a test run
type TestConfig struct {
	Name        string
	HandleStore HandleStoreType
}

func (tc *TestConfig) String() string {
	return fmt.Sprintf("handles=%s", tc.HandleStore)
}

// CreateHandleStore creates a handle store based on the configuration
func (tc *TestConfig) CreateHandleStore(ctx context.Context, testCtx TestContextProvider) (handles.Store, error) {
	switch tc.HandleStore {
	case HandlesMemory:
		return handlesmemory.New(), nil
	case HandlesBadger:
		dir := testCtx.CreateTempDir("squeakfs-handles-*")
		return handlesbadger.New(ctx, handlesbadger.Config{DBPath: filepath.Join(dir, "handles")})
	default:
		return nil, fmt.Errorf("unknown handle store type: %s", tc.HandleStore)
	}
}

// AllConfigurations returns every configuration the suite runs against.
func AllConfigurations() []*TestConfig {
	return []*TestConfig{
		{Name: "memory", HandleStore: HandlesMemory},
		{Name: "badger", HandleStore: HandlesBadger},
	}
}
