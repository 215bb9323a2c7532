// Package testing holds the contract tests every handles.Store must pass.
package testing

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/squeakfs/pkg/handles"
)

// StoreTestSuite runs the handles.Store contract against one implementation.
type StoreTestSuite struct {
	// NewStore returns a fresh, empty store for each test.
	NewStore func(t *testing.T) handles.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(test *testing.T) {
	test.Run("RoundTrip", suite.TestRoundTrip)
	test.Run("Deterministic", suite.TestDeterministic)
	test.Run("UnknownHandle", suite.TestUnknownHandle)
	test.Run("ForeignEpoch", suite.TestForeignEpoch)
	test.Run("MalformedHandle", suite.TestMalformedHandle)
	test.Run("Concurrent", suite.TestConcurrent)
	test.Run("CancelledContext", suite.TestCancelledContext)
}

// TestRoundTrip verifies a handle resolves back to its path.
func (suite *StoreTestSuite) TestRoundTrip(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	for _, path := range []string{
		"/",
		"/flat/Object",
		"/category/Kernel-Objects/Boolean/instance/logical operations/&",
	} {
		h, err := store.Handle(ctx, path)
		require.NoError(test, err)
		assert.Len(test, h, handles.Size)

		got, err := store.Path(ctx, h)
		require.NoError(test, err)
		assert.Equal(test, path, got)
	}
}

// TestDeterministic verifies the same path always gets the same handle and
// different paths get different ones.
func (suite *StoreTestSuite) TestDeterministic(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	a1, err := store.Handle(ctx, "/flat/Object")
	require.NoError(test, err)
	a2, err := store.Handle(ctx, "/flat/Object")
	require.NoError(test, err)
	b, err := store.Handle(ctx, "/flat/Object/comment")
	require.NoError(test, err)

	assert.Equal(test, a1, a2)
	assert.NotEqual(test, a1, b)

	hash, _, err := handles.Decode(a1)
	require.NoError(test, err)
	assert.Equal(test, handles.FileID("/flat/Object"), hash)
}

// TestUnknownHandle verifies never-issued handles are stale.
func (suite *StoreTestSuite) TestUnknownHandle(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	h, err := store.Handle(ctx, "/flat")
	require.NoError(test, err)
	_, epoch, err := handles.Decode(h)
	require.NoError(test, err)

	_, err = store.Path(ctx, handles.Encode(handles.FileID("/never/issued"), epoch))
	assert.ErrorIs(test, err, handles.ErrStale)
}

// TestForeignEpoch verifies handles from another store are stale.
func (suite *StoreTestSuite) TestForeignEpoch(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	h, err := store.Handle(ctx, "/flat")
	require.NoError(test, err)
	hash, epoch, err := handles.Decode(h)
	require.NoError(test, err)

	_, err = store.Path(ctx, handles.Encode(hash, epoch+1))
	assert.ErrorIs(test, err, handles.ErrStale)
}

// TestMalformedHandle verifies short and long handles are rejected.
func (suite *StoreTestSuite) TestMalformedHandle(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	for _, h := range [][]byte{nil, {1, 2, 3}, make([]byte, handles.Size+1)} {
		_, err := store.Path(ctx, h)
		assert.ErrorIs(test, err, handles.ErrBadHandle)
	}
}

// TestConcurrent verifies handles can be issued and resolved from many
// goroutines at once.
func (suite *StoreTestSuite) TestConcurrent(test *testing.T) {
	store := suite.NewStore(test)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := range 64 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := fmt.Sprintf("/flat/Class%d", i%8)
			h, err := store.Handle(ctx, path)
			if err != nil {
				errs <- err
				return
			}
			got, err := store.Path(ctx, h)
			if err != nil {
				errs <- err
				return
			}
			if got != path {
				errs <- fmt.Errorf("got %q, want %q", got, path)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(test, err)
	}
}

// TestCancelledContext verifies a cancelled context is honoured.
func (suite *StoreTestSuite) TestCancelledContext(test *testing.T) {
	store := suite.NewStore(test)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.Handle(ctx, "/flat")
	assert.ErrorIs(test, err, context.Canceled)
	_, err = store.Path(ctx, make([]byte, handles.Size))
	assert.ErrorIs(test, err, context.Canceled)
}
