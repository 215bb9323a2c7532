package squeak

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/internal/ratelimiter"
	"github.com/marmos91/squeakfs/pkg/metrics"
	"golang.org/x/text/encoding"
)

// ClientConfig configures the connection to the image's SqueakFS service.
type ClientConfig struct {
	// Host of the image. Default: localhost.
	Host string `mapstructure:"host" validate:"required"`

	// Port the image listens on. Default: 40000.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// DialTimeout bounds connection establishment. Default: 2s.
	DialTimeout time.Duration `mapstructure:"dial_timeout"`

	// IOTimeout bounds one request/response exchange. Default: 5s.
	IOTimeout time.Duration `mapstructure:"io_timeout"`

	// MaxRetries is how many times a query is re-sent on a fresh connection
	// after a transport failure. Default: 5. Negative disables retries.
	MaxRetries int `mapstructure:"max_retries" validate:"min=-1,max=100"`

	// RetryBackoff is the pause before each retry. Default: 200ms.
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`

	// Encoding of strings inside the image: latin1, macroman or utf8.
	// Default: latin1.
	Encoding string `mapstructure:"encoding" validate:"omitempty,oneof=latin1 macroman utf8"`

	// QueriesPerSecond limits the query rate. 0 disables limiting.
	QueriesPerSecond float64 `mapstructure:"queries_per_second" validate:"min=0"`

	// Burst is the number of queries allowed at once when limiting.
	Burst int `mapstructure:"burst" validate:"min=0"`
}

func (c *ClientConfig) applyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 40000
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 2 * time.Second
	}
	if c.IOTimeout <= 0 {
		c.IOTimeout = 5 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 5
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 200 * time.Millisecond
	}
	if c.Encoding == "" {
		c.Encoding = "latin1"
	}
}

// Client is a Source backed by a TCP connection to a running image.
//
// The image serves one request at a time per connection, so the client
// serializes round trips. The connection is dialed on first use. When an
// exchange fails at the transport level the connection is discarded and the
// query is re-sent on a new one, at most MaxRetries times. Answers of the
// form "Error: ..." are final and never retried.
type Client struct {
	config   ClientConfig
	addr     string
	encoding encoding.Encoding
	limiter  *ratelimiter.Limiter
	metrics  metrics.SourceMetrics

	// sem guards conn and reader; a channel rather than a mutex so waiting
	// respects ctx.
	sem    chan struct{}
	conn   net.Conn
	reader *bufio.Reader
	closed bool
}

// NewClient creates a client. No connection is made until the first query.
func NewClient(config ClientConfig, m metrics.SourceMetrics) (*Client, error) {
	config.applyDefaults()

	enc, err := LookupEncoding(config.Encoding)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = metrics.NewNoopSourceMetrics()
	}

	return &Client{
		config:   config,
		addr:     net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
		encoding: enc,
		limiter:  ratelimiter.New(config.QueriesPerSecond, config.Burst),
		metrics:  m,
		sem:      make(chan struct{}, 1),
	}, nil
}

// Addr returns the image address.
func (c *Client) Addr() string {
	return c.addr
}

// Close drops the connection. Later queries fail with ErrClosed.
func (c *Client) Close() error {
	c.sem <- struct{}{}
	defer func() { <-c.sem }()

	c.closed = true
	return c.dropLocked()
}

// call performs one query and returns its decoded payload.
func (c *Client) call(ctx context.Context, selector string, args ...string) (string, error) {
	start := time.Now()
	payload, err := c.roundTrip(ctx, selector, args)
	c.metrics.RecordQuery(selector, time.Since(start), outcome(err))

	if err != nil {
		logger.Debug("squeak: %s %q failed: %v", selector, args, err)
		return "", err
	}
	return payload, nil
}

func (c *Client) roundTrip(ctx context.Context, selector string, args []string) (string, error) {
	request, err := encodeRequest(c.encoding, selector, args)
	if err != nil {
		return "", err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", &Error{Code: ErrTransport, Selector: selector, Err: err}
	}

	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return "", &Error{Code: ErrTransport, Selector: selector, Err: ctx.Err()}
	}
	defer func() { <-c.sem }()

	if c.closed {
		return "", &Error{Code: ErrClosed, Selector: selector}
	}

	retries := max(c.config.MaxRetries, 0)

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			c.metrics.RecordReconnect()
			logger.Warn("squeak: reconnecting to %s (attempt %d/%d): %v", c.addr, attempt, retries, lastErr)
			if err := sleepCtx(ctx, c.config.RetryBackoff); err != nil {
				return "", &Error{Code: ErrTransport, Selector: selector, Err: err}
			}
		}

		if c.conn == nil {
			if err := c.connectLocked(ctx); err != nil {
				lastErr = err
				continue
			}
		}

		raw, err := c.exchangeLocked(request)
		if err != nil {
			_ = c.dropLocked()
			var serr *Error
			if errors.As(err, &serr) && serr.Code == ErrProtocol {
				serr.Selector = selector
				return "", serr
			}
			lastErr = err
			continue
		}

		payload, err := decodePayload(c.encoding, raw)
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(payload, errorPrefix) {
			return "", RemoteError(selector, strings.TrimSpace(payload))
		}
		return payload, nil
	}

	return "", &Error{
		Code:     ErrTransport,
		Selector: selector,
		Message:  fmt.Sprintf("image at %s unreachable after %d attempts", c.addr, retries+1),
		Err:      lastErr,
	}
}

func (c *Client) connectLocked(ctx context.Context) error {
	dialer := net.Dialer{Timeout: c.config.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.addr, err)
	}

	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.metrics.SetConnected(true)
	logger.Debug("squeak: connected to %s", c.addr)
	return nil
}

func (c *Client) exchangeLocked(request []byte) ([]byte, error) {
	if err := c.conn.SetDeadline(time.Now().Add(c.config.IOTimeout)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}
	if _, err := c.conn.Write(request); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}
	return readFrame(c.reader)
}

func (c *Client) dropLocked() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	c.metrics.SetConnected(false)
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if code, ok := CodeOf(err); ok {
		return strings.ReplaceAll(code.String(), " ", "_")
	}
	return "error"
}
