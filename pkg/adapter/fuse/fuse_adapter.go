// Package fuse mounts the filesystem into the local directory tree through
// the kernel FUSE driver.
package fuse

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	gofs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/pkg/vfs"
)

// FUSEConfig holds the mount parameters.
//
// Default Values:
//   - EntryTimeout: 1 second
//   - AttrTimeout: 1 second
//
// Timeouts are kept short because every answer comes from the live image.
type FUSEConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// MountPoint is an existing, empty directory.
	MountPoint string `mapstructure:"mount_point" validate:"required_if=Enabled true"`

	// AllowOther lets users other than the one running the server access
	// the mount. Requires user_allow_other in /etc/fuse.conf.
	AllowOther bool `mapstructure:"allow_other"`

	// Debug logs every FUSE request.
	Debug bool `mapstructure:"debug"`

	// UID and GID are reported as the owner of every file.
	UID uint32 `mapstructure:"uid"`
	GID uint32 `mapstructure:"gid"`

	EntryTimeout time.Duration `mapstructure:"entry_timeout" validate:"min=0"`
	AttrTimeout  time.Duration `mapstructure:"attr_timeout" validate:"min=0"`
}

func (c *FUSEConfig) applyDefaults() {
	if c.EntryTimeout == 0 {
		c.EntryTimeout = time.Second
	}
	if c.AttrTimeout == 0 {
		c.AttrTimeout = time.Second
	}
}

// FUSEAdapter implements adapter.Adapter by mounting the filesystem at
// MountPoint for as long as Serve runs.
type FUSEAdapter struct {
	config  FUSEConfig
	fs      *vfs.FS
	started time.Time

	mu       sync.Mutex
	server   *fuse.Server
	stopOnce sync.Once
	stopped  chan struct{}
	mounted  chan struct{}
}

// New creates a FUSE adapter. Nothing is mounted until Serve.
func New(config FUSEConfig) *FUSEAdapter {
	config.applyDefaults()
	return &FUSEAdapter{
		config:  config,
		stopped: make(chan struct{}),
		mounted: make(chan struct{}),
	}
}

// SetFilesystem injects the filesystem to mount.
func (a *FUSEAdapter) SetFilesystem(fs *vfs.FS) {
	a.fs = fs
}

// Serve mounts the filesystem and blocks until ctx is cancelled, Stop is
// called or the mount goes away.
func (a *FUSEAdapter) Serve(ctx context.Context) error {
	if a.fs == nil {
		return fmt.Errorf("FUSE adapter has no filesystem")
	}
	if a.config.MountPoint == "" {
		return fmt.Errorf("FUSE adapter has no mount point")
	}

	a.started = time.Now()
	entryTimeout := a.config.EntryTimeout
	attrTimeout := a.config.AttrTimeout

	server, err := gofs.Mount(a.config.MountPoint, a.root(), &gofs.Options{
		MountOptions: fuse.MountOptions{
			AllowOther: a.config.AllowOther,
			Debug:      a.config.Debug,
			FsName:     "squeakfs",
			Name:       "squeakfs",
			Options:    []string{"ro"},
		},
		EntryTimeout:    &entryTimeout,
		AttrTimeout:     &attrTimeout,
		NegativeTimeout: &entryTimeout,
		UID:             a.config.UID,
		GID:             a.config.GID,
	})
	if err != nil {
		return fmt.Errorf("failed to mount %s: %w", a.config.MountPoint, err)
	}

	a.mu.Lock()
	a.server = server
	a.mu.Unlock()
	close(a.mounted)

	logger.Info("FUSE filesystem mounted at %s", a.config.MountPoint)

	unmounted := make(chan struct{})
	go func() {
		server.Wait()
		close(unmounted)
	}()

	select {
	case <-ctx.Done():
		logger.Info("FUSE shutdown signal received: %v", ctx.Err())
		return a.unmount(unmounted)
	case <-a.stopped:
		return a.unmount(unmounted)
	case <-unmounted:
		return errors.New("FUSE filesystem unmounted externally")
	}
}

func (a *FUSEAdapter) unmount(unmounted <-chan struct{}) error {
	a.mu.Lock()
	server := a.server
	a.mu.Unlock()

	if err := server.Unmount(); err != nil {
		return fmt.Errorf("failed to unmount %s: %w", a.config.MountPoint, err)
	}
	<-unmounted
	logger.Info("FUSE filesystem unmounted from %s", a.config.MountPoint)
	return nil
}

// Stop unmounts the filesystem. It returns once Serve has unmounted or ctx
// is done.
func (a *FUSEAdapter) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() { close(a.stopped) })

	a.mu.Lock()
	server := a.server
	a.mu.Unlock()
	if server == nil {
		return nil
	}

	done := make(chan struct{})
	go func() {
		server.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Mounted is closed once the filesystem is mounted.
func (a *FUSEAdapter) Mounted() <-chan struct{} {
	return a.mounted
}

// Protocol returns "FUSE".
func (a *FUSEAdapter) Protocol() string {
	return "FUSE"
}

// Port returns 0; a FUSE mount does not listen on a port.
func (a *FUSEAdapter) Port() int {
	return 0
}
