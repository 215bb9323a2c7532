package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T, cfg ServerConfig) *Server {
	t.Helper()
	cfg.Port = -1
	srv := NewServer(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	select {
	case <-srv.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("metrics server did not start")
	}
	return srv
}

func get(t *testing.T, srv *Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d%s", srv.Port(), path))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHealthz(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		srv := startServer(t, ServerConfig{Health: func(context.Context) error { return nil }})
		code, body := get(t, srv, "/healthz")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok\n", body)
	})

	t.Run("Unreachable", func(t *testing.T) {
		srv := startServer(t, ServerConfig{Health: func(context.Context) error { return errors.New("connection refused") }})
		code, body := get(t, srv, "/healthz")
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Contains(t, body, "connection refused")
	})
}

func TestIndexAndUnknownPaths(t *testing.T) {
	srv := startServer(t, ServerConfig{})

	code, body := get(t, srv, "/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "/metrics")

	code, _ = get(t, srv, "/nope")
	assert.Equal(t, http.StatusNotFound, code)
}
