// Package server runs the protocol adapters that expose one filesystem.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/pkg/adapter"
	"github.com/marmos91/squeakfs/pkg/vfs"
)

// DefaultShutdownTimeout bounds the Stop calls issued on shutdown.
const DefaultShutdownTimeout = 30 * time.Second

// SqueakServer manages the lifecycle of the protocol adapters that serve
// one filesystem.
//
// Lifecycle:
//  1. Creation: New() with the filesystem
//  2. Registration: AddAdapter() for each protocol
//  3. Startup: Serve() starts all adapters concurrently
//  4. Shutdown: context cancellation or the first adapter failure stops
//     every adapter in reverse registration order
//
// Thread safety:
// SqueakServer is safe for concurrent use. AddAdapter() must not be called
// after Serve(), and Serve() may only be called once.
//
// Example usage:
//
//	srv := server.New(fs, server.Options{ShutdownTimeout: 30 * time.Second})
//	if err := srv.AddAdapter(nfs.New(nfsConfig, handleStore, nfsMetrics)); err != nil {
//	    return err
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer cancel()
//
//	if err := srv.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
//	    return err
//	}
type SqueakServer struct {
	fs              *vfs.FS
	shutdownTimeout time.Duration

	mu       sync.RWMutex
	adapters []adapter.Adapter
	served   bool
}

// Options configures a SqueakServer.
type Options struct {
	// ShutdownTimeout bounds the Stop calls on shutdown. Zero selects
	// DefaultShutdownTimeout.
	ShutdownTimeout time.Duration
}

// New creates a server for fs. It panics if fs is nil.
func New(fs *vfs.FS, opts Options) *SqueakServer {
	if fs == nil {
		panic("filesystem cannot be nil")
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &SqueakServer{
		fs:              fs,
		shutdownTimeout: opts.ShutdownTimeout,
		adapters:        make([]adapter.Adapter, 0, 2),
	}
}

// AddAdapter injects the filesystem into a and registers it. Two adapters
// may not share a protocol, nor a port unless the port is 0.
//
// Panics if a is nil or Serve() has already been called.
func (s *SqueakServer) AddAdapter(a adapter.Adapter) error {
	if a == nil {
		panic("adapter cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		panic("cannot add adapter after Serve() has been called")
	}

	protocol := a.Protocol()
	port := a.Port()

	for _, existing := range s.adapters {
		if existing.Protocol() == protocol {
			return fmt.Errorf("adapter for protocol %s already registered", protocol)
		}
		if port != 0 && existing.Port() == port {
			return fmt.Errorf("port %d already in use by %s adapter", port, existing.Protocol())
		}
	}

	a.SetFilesystem(s.fs)
	s.adapters = append(s.adapters, a)

	logger.Info("Registered %s adapter on port %d", protocol, port)
	return nil
}

// Serve starts all registered adapters and blocks until ctx is cancelled
// or an adapter fails. It returns ctx.Err() after a signalled shutdown and
// the adapter's error after a failure.
//
// Panics if called more than once.
func (s *SqueakServer) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		panic("Serve() has already been called on this server instance")
	}
	s.served = true
	if len(s.adapters) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("no adapters registered; call AddAdapter() before Serve()")
	}
	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	s.mu.Unlock()

	logger.Info("Starting SqueakServer with %d adapter(s)", len(adapters))

	// Buffered so failing adapters never block.
	errChan := make(chan adapterError, len(adapters))
	var wg sync.WaitGroup

	for _, adp := range adapters {
		wg.Add(1)
		go func(a adapter.Adapter) {
			defer wg.Done()

			protocol := a.Protocol()
			logger.Info("Starting %s adapter on port %d", protocol, a.Port())

			err := a.Serve(ctx)
			switch {
			case err == nil && ctx.Err() == nil:
				// Returning early counts as a failure even without an error.
				errChan <- adapterError{protocol: protocol, err: errors.New("adapter stopped unexpectedly")}
			case err == nil:
				logger.Info("%s adapter stopped", protocol)
			case errors.Is(err, context.Canceled) || ctx.Err() != nil:
				logger.Debug("%s adapter stopped: %v", protocol, err)
			default:
				logger.Error("%s adapter failed: %v", protocol, err)
				errChan <- adapterError{protocol: protocol, err: err}
			}
		}(adp)
	}

	var shutdownErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
		s.stopAllAdapters(adapters)
		shutdownErr = ctx.Err()

	case adapterErr := <-errChan:
		logger.Error("Adapter %s failed: %v - initiating shutdown of all adapters",
			adapterErr.protocol, adapterErr.err)
		s.stopAllAdapters(adapters)
		shutdownErr = fmt.Errorf("%s adapter error: %w", adapterErr.protocol, adapterErr.err)
	}

	logger.Debug("Waiting for all adapters to complete shutdown")
	wg.Wait()

	logger.Info("SqueakServer stopped")
	return shutdownErr
}

type adapterError struct {
	protocol string
	err      error
}

// stopAllAdapters calls Stop on every adapter in reverse registration
// order, sharing one ShutdownTimeout between them.
func (s *SqueakServer) stopAllAdapters(adapters []adapter.Adapter) {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	logger.Info("Initiating graceful shutdown of %d adapter(s)", len(adapters))

	for i := len(adapters) - 1; i >= 0; i-- {
		adp := adapters[i]
		protocol := adp.Protocol()

		logger.Debug("Stopping %s adapter (port %d)", protocol, adp.Port())

		if err := adp.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s adapter: %v", protocol, err)
		} else {
			logger.Debug("%s adapter stopped", protocol)
		}
	}
}

// Adapters returns a copy of the registered adapters.
func (s *SqueakServer) Adapters() []adapter.Adapter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	adapters := make([]adapter.Adapter, len(s.adapters))
	copy(adapters, s.adapters)
	return adapters
}
