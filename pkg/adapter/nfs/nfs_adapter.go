// Package nfs serves the filesystem to NFSv3 clients over TCP. The MOUNT
// program is served on the same port, so clients mount with
// "-o port=N,mountport=N,nolock,tcp".
package nfs

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/internal/protocol/mount"
	"github.com/marmos91/squeakfs/internal/protocol/nfs"
	"github.com/marmos91/squeakfs/internal/protocol/xdr"
	"github.com/marmos91/squeakfs/pkg/handles"
	"github.com/marmos91/squeakfs/pkg/metrics"
	"github.com/marmos91/squeakfs/pkg/vfs"
)

// NFSAdapter implements the adapter.Adapter interface for NFSv3.
//
// Architecture:
// NFSAdapter manages the TCP listener and connection lifecycle. Each
// accepted connection gets its own goroutine that reads RPC records,
// dispatches them to the NFS or MOUNT handler and writes the replies.
// Handles issued to clients come from the handles.Store given to New.
//
// Graceful Shutdown:
//  1. Context cancellation or Stop() closes the listener
//  2. The request context is cancelled so in-flight calls stop querying
//  3. Active connections are given ShutdownTimeout to finish
//  4. Connections still open afterwards are force-closed
//
// Thread safety:
// All methods are safe for concurrent use. The shutdown mechanism uses
// sync.Once to ensure idempotent behavior even if Stop() is called
// multiple times or concurrently with context cancellation.
type NFSAdapter struct {
	config NFSConfig

	listener  net.Listener
	listening chan struct{}

	handles      handles.Store
	nfsHandler   *nfs.Handler
	mountHandler *mount.Handler

	metrics metrics.NFSMetrics

	// activeConns tracks all currently active connections for graceful
	// shutdown.
	activeConns sync.WaitGroup

	shutdownOnce sync.Once
	shutdown     chan struct{}

	connCount atomic.Int32

	// connSemaphore limits concurrent connections; nil means unlimited.
	connSemaphore chan struct{}

	// shutdownCtx is cancelled during shutdown to abort in-flight requests.
	shutdownCtx    context.Context
	cancelRequests context.CancelFunc

	// activeConnections maps remote address to net.Conn for forced closure.
	activeConnections sync.Map

	boundPort atomic.Int32
}

// NFSConfig holds configuration parameters for the NFS server.
//
// These values control server behavior including connection limits,
// timeouts and resource management.
//
// Default Values:
// If not specified (zero values), the following defaults are applied:
//   - ReadTimeout: 5 minutes
//   - WriteTimeout: 30 seconds
//   - IdleTimeout: 5 minutes
//   - ShutdownTimeout: 30 seconds
//   - MetricsLogInterval: 5 minutes
//   - MaxReadSize: 64 KiB
//
// A Port of 0 lets the operating system choose; the configuration layer
// defaults it to 2049.
type NFSConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// Address is the interface to bind. Empty binds all interfaces.
	Address string `mapstructure:"address"`

	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// MaxConnections limits concurrent client connections. 0 is unlimited.
	MaxConnections int `mapstructure:"max_connections" validate:"min=0"`

	// MaxReadSize caps the bytes returned by one READ.
	MaxReadSize uint32 `mapstructure:"max_read_size" validate:"max=1048576"`

	// UID and GID are reported as the owner of every file.
	UID uint32 `mapstructure:"uid"`
	GID uint32 `mapstructure:"gid"`

	ReadTimeout        time.Duration `mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout       time.Duration `mapstructure:"write_timeout" validate:"min=0"`
	IdleTimeout        time.Duration `mapstructure:"idle_timeout" validate:"min=0"`
	ShutdownTimeout    time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" validate:"min=0"`
}

func (c *NFSConfig) applyDefaults() {
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 5 * time.Minute
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 5 * time.Minute
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.MetricsLogInterval == 0 {
		c.MetricsLogInterval = 5 * time.Minute
	}
	if c.MaxReadSize == 0 {
		c.MaxReadSize = nfs.DefaultMaxReadSize
	}
}

func (c *NFSConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d: must be 0-65535", c.Port)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("invalid MaxConnections %d: must be >= 0", c.MaxConnections)
	}
	if c.MaxReadSize > 1<<20 {
		return fmt.Errorf("invalid MaxReadSize %d: must be <= 1MiB", c.MaxReadSize)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		return fmt.Errorf("invalid timeouts: read=%v write=%v idle=%v: must be >= 0",
			c.ReadTimeout, c.WriteTimeout, c.IdleTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid ShutdownTimeout %v: must be > 0", c.ShutdownTimeout)
	}
	return nil
}

// New creates an NFS adapter issuing handles from store. nfsMetrics may
// be nil. It panics if the configuration is invalid after defaults are
// applied.
func New(config NFSConfig, store handles.Store, nfsMetrics metrics.NFSMetrics) *NFSAdapter {
	config.applyDefaults()
	if err := config.validate(); err != nil {
		panic(fmt.Sprintf("invalid NFS config: %v", err))
	}

	var connSemaphore chan struct{}
	if config.MaxConnections > 0 {
		connSemaphore = make(chan struct{}, config.MaxConnections)
		logger.Debug("NFS connection limit: %d", config.MaxConnections)
	} else {
		logger.Debug("NFS connection limit: unlimited")
	}

	shutdownCtx, cancelRequests := context.WithCancel(context.Background())

	if nfsMetrics == nil {
		nfsMetrics = metrics.NewNoopNFSMetrics()
	}

	return &NFSAdapter{
		config:         config,
		listening:      make(chan struct{}),
		handles:        store,
		mountHandler:   mount.NewHandler(store),
		metrics:        nfsMetrics,
		shutdown:       make(chan struct{}),
		connSemaphore:  connSemaphore,
		shutdownCtx:    shutdownCtx,
		cancelRequests: cancelRequests,
	}
}

// SetFilesystem injects the filesystem the NFS procedures serve.
func (s *NFSAdapter) SetFilesystem(fs *vfs.FS) {
	s.nfsHandler = nfs.NewHandler(fs, s.handles, nfs.Options{
		Owner:       xdr.Owner{UID: s.config.UID, GID: s.config.GID},
		MaxReadSize: s.config.MaxReadSize,
	})
	logger.Debug("NFS filesystem configured")
}

// Serve starts the NFS server and blocks until the context is cancelled or
// an error occurs.
func (s *NFSAdapter) Serve(ctx context.Context) error {
	if s.nfsHandler == nil {
		return fmt.Errorf("NFS adapter has no filesystem")
	}

	listener, err := net.Listen("tcp", net.JoinHostPort(s.config.Address, fmt.Sprint(s.config.Port)))
	if err != nil {
		return fmt.Errorf("failed to create NFS listener on port %d: %w", s.config.Port, err)
	}

	s.listener = listener
	if addr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.boundPort.Store(int32(addr.Port))
	}
	close(s.listening)

	logger.Info("NFS server listening on %s", listener.Addr())
	logger.Debug("NFS config: max_connections=%d read_timeout=%v write_timeout=%v idle_timeout=%v",
		s.config.MaxConnections, s.config.ReadTimeout, s.config.WriteTimeout, s.config.IdleTimeout)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("NFS shutdown signal received: %v", ctx.Err())
			s.initiateShutdown()
		case <-s.shutdown:
		}
	}()

	if s.config.MetricsLogInterval > 0 {
		go s.logMetrics(ctx)
	}

	for {
		// Acquire a connection slot before accepting so excess clients
		// wait in the kernel backlog.
		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			case <-s.shutdown:
				return s.gracefulShutdown()
			}
		}

		tcpConn, err := s.listener.Accept()
		if err != nil {
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}

			select {
			case <-s.shutdown:
				return s.gracefulShutdown()
			default:
				logger.Debug("Error accepting NFS connection: %v", err)
				continue
			}
		}

		s.activeConns.Add(1)
		s.connCount.Add(1)

		connAddr := tcpConn.RemoteAddr().String()
		s.activeConnections.Store(connAddr, tcpConn)

		s.metrics.RecordConnectionAccepted()
		currentConns := s.connCount.Load()
		s.metrics.SetActiveConnections(currentConns)

		logger.Debug("NFS connection accepted from %s (active: %d)", connAddr, currentConns)

		conn := newConnection(s, tcpConn)
		go func(addr string) {
			defer func() {
				s.activeConnections.Delete(addr)
				s.activeConns.Done()
				s.connCount.Add(-1)
				if s.connSemaphore != nil {
					<-s.connSemaphore
				}

				s.metrics.RecordConnectionClosed()
				currentConns := s.connCount.Load()
				s.metrics.SetActiveConnections(currentConns)

				logger.Debug("NFS connection closed from %s (active: %d)", addr, currentConns)
			}()

			conn.Serve(s.shutdownCtx)
		}(connAddr)
	}
}

// initiateShutdown closes the listener and cancels in-flight requests.
// Safe to call multiple times.
func (s *NFSAdapter) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("NFS shutdown initiated")

		close(s.shutdown)

		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("Error closing NFS listener: %v", err)
			}
		}

		s.cancelRequests()
	})
}

// gracefulShutdown waits for active connections up to ShutdownTimeout and
// force-closes the rest.
func (s *NFSAdapter) gracefulShutdown() error {
	activeCount := s.connCount.Load()
	logger.Info("NFS graceful shutdown: waiting for %d active connection(s) (timeout: %v)",
		activeCount, s.config.ShutdownTimeout)

	select {
	case <-s.drained():
		logger.Info("NFS graceful shutdown complete: all connections closed")
		return nil

	case <-time.After(s.config.ShutdownTimeout):
		remaining := s.connCount.Load()
		logger.Warn("NFS shutdown timeout exceeded: %d connection(s) still active after %v - forcing closure",
			remaining, s.config.ShutdownTimeout)

		s.forceCloseConnections()
		return fmt.Errorf("NFS shutdown timeout: %d connections force-closed", remaining)
	}
}

func (s *NFSAdapter) drained() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()
	return done
}

func (s *NFSAdapter) forceCloseConnections() {
	closedCount := 0

	s.activeConnections.Range(func(key, value any) bool {
		addr := key.(string)
		conn := value.(net.Conn)

		if err := conn.Close(); err != nil {
			logger.Debug("Error force-closing connection to %s: %v", addr, err)
		} else {
			closedCount++
			s.metrics.RecordConnectionForceClosed()
		}
		return true
	})

	if closedCount > 0 {
		logger.Info("Force-closed %d connection(s)", closedCount)
	}
}

// Stop initiates graceful shutdown and waits for active connections until
// ctx is done.
func (s *NFSAdapter) Stop(ctx context.Context) error {
	s.initiateShutdown()

	select {
	case <-s.drained():
		logger.Info("NFS graceful shutdown complete: all connections closed")
		return nil
	case <-ctx.Done():
		remaining := s.connCount.Load()
		logger.Warn("NFS shutdown context cancelled: %d connection(s) still active: %v",
			remaining, ctx.Err())
		s.forceCloseConnections()
		return ctx.Err()
	}
}

// logMetrics periodically logs the active connection count.
func (s *NFSAdapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(s.config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-ticker.C:
			logger.Info("NFS metrics: active_connections=%d", s.connCount.Load())
		}
	}
}

// GetActiveConnections returns the current number of active connections.
func (s *NFSAdapter) GetActiveConnections() int32 {
	return s.connCount.Load()
}

// Listening is closed once the listener is bound.
func (s *NFSAdapter) Listening() <-chan struct{} {
	return s.listening
}

// Port returns the bound port once listening, the configured one before.
func (s *NFSAdapter) Port() int {
	if p := s.boundPort.Load(); p != 0 {
		return int(p)
	}
	return s.config.Port
}

func (s *NFSAdapter) Protocol() string {
	return "NFS"
}
