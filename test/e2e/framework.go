package e2e

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/pkg/adapter/nfs"
	"github.com/marmos91/squeakfs/pkg/handles"
	"github.com/marmos91/squeakfs/pkg/server"
	"github.com/marmos91/squeakfs/pkg/squeak/memory"
	"github.com/marmos91/squeakfs/pkg/vfs"
)

// TestContext provides a complete testing environment with:
// - Running SqueakFS server over the demo image
// - Mounted NFS export
// - Cleanup mechanisms
type TestContext struct {
	T           *testing.T
	Config      *TestConfig
	Server      *server.SqueakServer
	HandleStore handles.Store
	MountPath   string
	Port        int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	tempDirs    []string
	mounted     bool
}

// NewTestContext starts a server with the given configuration and mounts
// its export.
func NewTestContext(t *testing.T, config *TestConfig) *TestContext {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())

	tc := &TestContext{
		T:      t,
		Config: config,
		ctx:    ctx,
		cancel: cancel,
		Port:   findFreePort(t),
	}

	var err error
	tc.HandleStore, err = config.CreateHandleStore(ctx, tc)
	if err != nil {
		t.Fatalf("Failed to create handle store: %v", err)
	}

	tc.startServer()
	tc.mountNFS()

	return tc
}

func (tc *TestContext) startServer() {
	tc.T.Helper()

	logger.SetLevel("ERROR")

	fs := vfs.New(memory.Demo(), vfs.Options{})

	nfsAdapter := nfs.New(nfs.NFSConfig{
		Enabled:         true,
		Port:            tc.Port,
		ReadTimeout:     5 * time.Minute,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     5 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
	}, tc.HandleStore, nil)

	tc.Server = server.New(fs, server.Options{ShutdownTimeout: 30 * time.Second})
	if err := tc.Server.AddAdapter(nfsAdapter); err != nil {
		tc.T.Fatalf("Failed to add NFS adapter: %v", err)
	}

	tc.wg.Add(1)
	go func() {
		defer tc.wg.Done()
		if err := tc.Server.Serve(tc.ctx); err != nil && err != context.Canceled {
			tc.T.Logf("Server error: %v", err)
		}
	}()

	select {
	case <-nfsAdapter.Listening():
	case <-time.After(10 * time.Second):
		tc.T.Fatal("Timeout waiting for server to start")
	}
}

// mountNFS mounts the export at a temporary directory
func (tc *TestContext) mountNFS() {
	tc.T.Helper()

	mountPath := tc.CreateTempDir("squeakfs-e2e-mount-*")
	tc.MountPath = mountPath

	// NFS and MOUNT share one port.
	mountOptions := fmt.Sprintf("nfsvers=3,tcp,ro,port=%d,mountport=%d", tc.Port, tc.Port)
	switch runtime.GOOS {
	case "darwin":
		mountOptions += ",resvport"
	case "linux":
		mountOptions += ",nolock"
	default:
		tc.T.Skipf("Unsupported platform: %s", runtime.GOOS)
	}
	mountArgs := []string{"-t", "nfs", "-o", mountOptions, "localhost:/", mountPath}

	var output []byte
	var lastErr error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		output, lastErr = exec.Command("mount", mountArgs...).CombinedOutput()
		if lastErr == nil {
			break
		}
		if i < maxRetries-1 {
			tc.T.Logf("Mount attempt %d failed (error: %v), retrying in 1 second...", i+1, lastErr)
			time.Sleep(time.Second)
		}
	}

	if lastErr != nil {
		tc.T.Fatalf("Failed to mount NFS export after %d attempts: %v\nOutput: %s\nMount command: mount %v",
			maxRetries, lastErr, string(output), mountArgs)
	}

	tc.mounted = true
}

// Cleanup unmounts the export, stops the server and removes temporary files
func (tc *TestContext) Cleanup() {
	tc.T.Helper()

	if tc.mounted {
		tc.unmountNFS()
	}

	if tc.cancel != nil {
		tc.cancel()
	}
	tc.wg.Wait()

	if tc.HandleStore != nil {
		_ = tc.HandleStore.Close()
		tc.HandleStore = nil
	}

	for _, dir := range tc.tempDirs {
		_ = os.RemoveAll(dir)
	}
	tc.tempDirs = nil
}

func (tc *TestContext) unmountNFS() {
	tc.T.Helper()

	output, err := exec.Command("umount", tc.MountPath).CombinedOutput()
	if err != nil {
		tc.T.Logf("Failed to unmount NFS export: %v\nOutput: %s", err, string(output))
		_ = exec.Command("umount", "-f", tc.MountPath).Run()
	}

	tc.mounted = false
}

// Path returns the absolute path for a relative path within the mount
func (tc *TestContext) Path(relativePath string) string {
	return filepath.Join(tc.MountPath, relativePath)
}

// CreateTempDir creates a temporary directory and registers it for cleanup
func (tc *TestContext) CreateTempDir(prefix string) string {
	tc.T.Helper()

	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		tc.T.Fatalf("Failed to create temp directory: %v", err)
	}
	tc.tempDirs = append(tc.tempDirs, dir)
	return dir
}

func (tc *TestContext) GetConfig() *TestConfig {
	return tc.Config
}

func (tc *TestContext) GetPort() int {
	return tc.Port
}

// findFreePort finds an available TCP port
func findFreePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	defer func() { _ = listener.Close() }()

	return listener.Addr().(*net.TCPAddr).Port
}
