package nfs

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/squeakfs/internal/protocol/mount"
	"github.com/marmos91/squeakfs/internal/protocol/nfs"
	"github.com/marmos91/squeakfs/internal/protocol/rpc"
	"github.com/marmos91/squeakfs/internal/protocol/xdr"
	hmemory "github.com/marmos91/squeakfs/pkg/handles/memory"
	"github.com/marmos91/squeakfs/pkg/squeak/memory"
	"github.com/marmos91/squeakfs/pkg/vfs"
)

// ============================================================================
// Test Helpers
// ============================================================================

type running struct {
	adapter *NFSAdapter
	cancel  context.CancelFunc
	done    chan error
}

func startAdapter(t *testing.T, config NFSConfig) *running {
	t.Helper()

	config.Address = "127.0.0.1"
	store := hmemory.New()
	t.Cleanup(func() { _ = store.Close() })

	adapter := New(config, store, nil)
	adapter.SetFilesystem(vfs.New(memory.Demo(), vfs.Options{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- adapter.Serve(ctx) }()

	select {
	case <-adapter.Listening():
	case err := <-done:
		cancel()
		t.Fatalf("adapter failed to start: %v", err)
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatal("adapter did not start listening")
	}

	r := &running{adapter: adapter, cancel: cancel, done: done}
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
		}
	})
	return r
}

func (r *running) dial(t *testing.T) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", fmt.Sprint(r.adapter.Port())))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}

// call sends one RPC call with AUTH_NULL credentials and returns the
// reply body after the reply header, together with the accept status.
func call(t *testing.T, conn net.Conn, xid, program, version, procedure uint32, args []byte) (*xdr.Reader, uint32) {
	t.Helper()

	w := xdr.NewWriter()
	w.Uint32(xid)
	w.Uint32(rpc.RPCCall)
	w.Uint32(rpc.RPCVersion)
	w.Uint32(program)
	w.Uint32(version)
	w.Uint32(procedure)
	w.Uint32(rpc.AuthNull)
	w.Opaque(nil)
	w.Uint32(rpc.AuthNull)
	w.Opaque(nil)
	body := append(w.Bytes(), args...)

	record := make([]byte, 4, 4+len(body))
	binary.BigEndian.PutUint32(record, rpc.LastFragment|uint32(len(body)))
	record = append(record, body...)

	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	_, err := conn.Write(record)
	require.NoError(t, err)

	reply, err := rpc.ReadRecord(conn)
	require.NoError(t, err)

	r := xdr.NewReader(reply)
	gotXID, err := r.Uint32()
	require.NoError(t, err)
	assert.Equal(t, xid, gotXID)

	msgType, err := r.Uint32()
	require.NoError(t, err)
	assert.EqualValues(t, rpc.RPCReply, msgType)

	state, err := r.Uint32()
	require.NoError(t, err)
	require.EqualValues(t, rpc.RPCMsgAccepted, state)

	_, err = r.Uint32() // verifier flavor
	require.NoError(t, err)
	_, err = r.Opaque(400)
	require.NoError(t, err)

	stat, err := r.Uint32()
	require.NoError(t, err)
	return r, stat
}

// ============================================================================
// Lifecycle
// ============================================================================

func TestServeWithoutFilesystem(t *testing.T) {
	adapter := New(NFSConfig{Address: "127.0.0.1"}, hmemory.New(), nil)
	err := adapter.Serve(context.Background())
	require.Error(t, err)
}

func TestInvalidConfigPanics(t *testing.T) {
	assert.Panics(t, func() { New(NFSConfig{Port: 70000}, hmemory.New(), nil) })
	assert.Panics(t, func() { New(NFSConfig{MaxReadSize: 2 << 20}, hmemory.New(), nil) })
}

func TestProtocolAndPort(t *testing.T) {
	r := startAdapter(t, NFSConfig{ShutdownTimeout: time.Second})
	assert.Equal(t, "NFS", r.adapter.Protocol())
	assert.NotZero(t, r.adapter.Port())
}

// TestGracefulShutdown verifies that the adapter returns cleanly once idle
// clients are gone.
func TestGracefulShutdown(t *testing.T) {
	r := startAdapter(t, NFSConfig{ShutdownTimeout: 2 * time.Second})

	conn := r.dial(t)
	waitFor(t, func() bool { return r.adapter.GetActiveConnections() == 1 })

	require.NoError(t, conn.Close())
	waitFor(t, func() bool { return r.adapter.GetActiveConnections() == 0 })

	r.cancel()
	select {
	case err := <-r.done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("shutdown took too long")
	}
}

// TestForcedConnectionClosure verifies that connections still open when the
// shutdown timeout expires are closed by the server.
func TestForcedConnectionClosure(t *testing.T) {
	r := startAdapter(t, NFSConfig{ShutdownTimeout: 300 * time.Millisecond})

	conn := r.dial(t)
	waitFor(t, func() bool { return r.adapter.GetActiveConnections() == 1 })

	closed := make(chan struct{})
	go func() {
		buf := make([]byte, 1)
		_, _ = conn.Read(buf)
		close(closed)
	}()

	shutdownStart := time.Now()
	r.cancel()

	select {
	case <-closed:
	case <-time.After(3 * time.Second):
		t.Fatal("connection was not closed")
	}

	select {
	case <-r.done:
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return")
	}
	assert.Less(t, time.Since(shutdownStart), 3*time.Second)
}

func TestStopIsIdempotent(t *testing.T) {
	r := startAdapter(t, NFSConfig{ShutdownTimeout: time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, r.adapter.Stop(ctx))
	require.NoError(t, r.adapter.Stop(ctx))

	select {
	case <-r.done:
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after Stop")
	}
}

// TestConnectionLimiting verifies that MaxConnections is enforced.
func TestConnectionLimiting(t *testing.T) {
	r := startAdapter(t, NFSConfig{MaxConnections: 2, ShutdownTimeout: time.Second})

	first := r.dial(t)
	r.dial(t)
	waitFor(t, func() bool { return r.adapter.GetActiveConnections() == 2 })

	// The third client completes the TCP handshake through the backlog but
	// is not accepted until a slot frees up.
	r.dial(t)
	time.Sleep(200 * time.Millisecond)
	assert.EqualValues(t, 2, r.adapter.GetActiveConnections())

	require.NoError(t, first.Close())
	waitFor(t, func() bool { return r.adapter.GetActiveConnections() == 2 })
}

// ============================================================================
// End to end
// ============================================================================

func TestMountAndGetattr(t *testing.T) {
	r := startAdapter(t, NFSConfig{ShutdownTimeout: time.Second, UID: 1000, GID: 100})
	conn := r.dial(t)

	args := xdr.NewWriter()
	args.String(mount.ExportPath)
	res, stat := call(t, conn, 1, rpc.ProgramMount, rpc.MountVersion3, mount.MountProcMnt, args.Bytes())
	require.EqualValues(t, rpc.RPCSuccess, stat)

	status, err := res.Uint32()
	require.NoError(t, err)
	require.EqualValues(t, mount.MountOK, status)

	root, err := res.Opaque(nfs.MaxHandleSize)
	require.NoError(t, err)
	require.NotEmpty(t, root)

	args = xdr.NewWriter()
	args.Opaque(root)
	res, stat = call(t, conn, 2, rpc.ProgramNFS, rpc.NFSVersion3, nfs.NFSProcGetAttr, args.Bytes())
	require.EqualValues(t, rpc.RPCSuccess, stat)

	status, err = res.Uint32()
	require.NoError(t, err)
	require.EqualValues(t, nfs.NFS3OK, status)

	ftype, err := res.Uint32()
	require.NoError(t, err)
	assert.EqualValues(t, xdr.FileTypeDirectory, ftype)

	mode, err := res.Uint32()
	require.NoError(t, err)
	assert.EqualValues(t, 0o755, mode)

	_, err = res.Uint32() // nlink
	require.NoError(t, err)
	uid, err := res.Uint32()
	require.NoError(t, err)
	assert.EqualValues(t, 1000, uid)

	// Several calls share one connection.
	args = xdr.NewWriter()
	args.Opaque(root)
	args.String("flat")
	res, stat = call(t, conn, 3, rpc.ProgramNFS, rpc.NFSVersion3, nfs.NFSProcLookup, args.Bytes())
	require.EqualValues(t, rpc.RPCSuccess, stat)
	status, err = res.Uint32()
	require.NoError(t, err)
	assert.EqualValues(t, nfs.NFS3OK, status)
}

func TestRPCErrors(t *testing.T) {
	r := startAdapter(t, NFSConfig{ShutdownTimeout: time.Second})
	conn := r.dial(t)

	t.Run("ProgramMismatch", func(t *testing.T) {
		res, stat := call(t, conn, 10, rpc.ProgramNFS, 2, nfs.NFSProcNull, nil)
		require.EqualValues(t, rpc.RPCProgMismatch, stat)

		low, err := res.Uint32()
		require.NoError(t, err)
		high, err := res.Uint32()
		require.NoError(t, err)
		assert.EqualValues(t, 3, low)
		assert.EqualValues(t, 3, high)
	})

	t.Run("UnknownProgram", func(t *testing.T) {
		_, stat := call(t, conn, 11, 100021, 4, 0, nil)
		assert.EqualValues(t, rpc.RPCProgUnavail, stat)
	})

	t.Run("UnknownProcedure", func(t *testing.T) {
		_, stat := call(t, conn, 12, rpc.ProgramNFS, rpc.NFSVersion3, 99, nil)
		assert.EqualValues(t, rpc.RPCProcUnavail, stat)
	})

	t.Run("GarbageArgs", func(t *testing.T) {
		_, stat := call(t, conn, 13, rpc.ProgramNFS, rpc.NFSVersion3, nfs.NFSProcGetAttr, []byte{0, 0})
		assert.EqualValues(t, rpc.RPCGarbageArgs, stat)
	})

	t.Run("ReadOnly", func(t *testing.T) {
		res, stat := call(t, conn, 14, rpc.ProgramNFS, rpc.NFSVersion3, nfs.NFSProcWrite, nil)
		require.EqualValues(t, rpc.RPCSuccess, stat)
		status, err := res.Uint32()
		require.NoError(t, err)
		assert.EqualValues(t, nfs.NFS3ErrRofs, status)
	})
}
