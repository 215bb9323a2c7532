//go:build integration

package squeak_test

import (
	"context"
	"net"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/squeakfs/pkg/squeak"
	"github.com/marmos91/squeakfs/pkg/vfs"
)

// TestLiveImage_Integration queries a running image.
//
// Prerequisites:
//   - A Squeak image serving the query protocol
//   - SQUEAKFS_TEST_IMAGE=host:port (port defaults to 40000)
//   - Run with: go test -tags=integration ./test/integration/squeak/...
func TestLiveImage_Integration(t *testing.T) {
	host, port := imageAddr(t)

	client, err := squeak.NewClient(squeak.ClientConfig{
		Host:       host,
		Port:       port,
		MaxRetries: 2,
	}, nil)
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Run("Ping", func(t *testing.T) {
		require.NoError(t, client.Ping(ctx))
	})

	t.Run("KernelClasses", func(t *testing.T) {
		ok, err := client.IsClassAvailable(ctx, "Object")
		require.NoError(t, err)
		assert.True(t, ok)

		super, err := client.SuperClass(ctx, "Object")
		require.NoError(t, err)
		assert.Equal(t, "ProtoObject", super)

		n, err := client.NumberOfClasses(ctx)
		require.NoError(t, err)
		assert.Greater(t, n, 100)
	})

	t.Run("Methods", func(t *testing.T) {
		protocols, err := client.InstanceProtocols(ctx, "Object")
		require.NoError(t, err)
		assert.NotEmpty(t, protocols)

		source, err := client.InstanceMethod(ctx, "Object", "yourself")
		require.NoError(t, err)
		assert.Contains(t, source, "yourself")
	})

	t.Run("Filesystem", func(t *testing.T) {
		fs := vfs.New(client, vfs.Options{})

		names, err := fs.ListDirectory(ctx, "/hierarchy/ProtoObject/subclasses", 0)
		require.NoError(t, err)
		assert.Contains(t, names, "Object")

		attr, err := fs.Attributes(ctx, "/flat/Object/comment")
		require.NoError(t, err)
		assert.Positive(t, attr.Size)
	})
}

func imageAddr(t *testing.T) (string, int) {
	t.Helper()
	addr := os.Getenv("SQUEAKFS_TEST_IMAGE")
	if addr == "" {
		t.Skip("SQUEAKFS_TEST_IMAGE not set")
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 40000
	}
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}
