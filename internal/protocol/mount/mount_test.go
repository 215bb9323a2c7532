package mount

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/squeakfs/internal/protocol/rpc"
	"github.com/marmos91/squeakfs/internal/protocol/xdr"
	"github.com/marmos91/squeakfs/pkg/handles"
	hmemory "github.com/marmos91/squeakfs/pkg/handles/memory"
)

func newHandler(t *testing.T) (*Handler, *hmemory.Store) {
	t.Helper()
	store := hmemory.New()
	t.Cleanup(func() { _ = store.Close() })
	return NewHandler(store), store
}

func callContext(addr string) *Context {
	return &Context{Context: context.Background(), ClientAddr: addr, AuthFlavor: rpc.AuthNull}
}

func pathArgs(path string) []byte {
	w := xdr.NewWriter()
	w.String(path)
	return w.Bytes()
}

func TestMount(t *testing.T) {
	t.Run("ExportReturnsRootHandle", func(t *testing.T) {
		h, store := newHandler(t)

		res, err := h.Dispatch(callContext("10.0.0.1:700"), MountProcMnt, pathArgs("/"))
		require.NoError(t, err)
		assert.Equal(t, uint32(MountOK), res.Status)

		r := xdr.NewReader(res.Data)
		status, err := r.Uint32()
		require.NoError(t, err)
		assert.Equal(t, uint32(MountOK), status)

		fh, err := r.Opaque(64)
		require.NoError(t, err)
		assert.Len(t, fh, handles.Size)
		path, err := store.Path(context.Background(), fh)
		require.NoError(t, err)
		assert.Equal(t, "/", path)

		n, err := r.Uint32()
		require.NoError(t, err)
		require.Equal(t, uint32(2), n)
		flavor, err := r.Uint32()
		require.NoError(t, err)
		assert.Equal(t, uint32(rpc.AuthNull), flavor)
		flavor, err = r.Uint32()
		require.NoError(t, err)
		assert.Equal(t, uint32(rpc.AuthUnix), flavor)
	})

	t.Run("UnknownPath", func(t *testing.T) {
		h, _ := newHandler(t)
		res, err := h.Dispatch(callContext("10.0.0.1:700"), MountProcMnt, pathArgs("/flat"))
		require.NoError(t, err)
		assert.Equal(t, uint32(MountErrNoEnt), res.Status)
		assert.Len(t, res.Data, 4)
		assert.Empty(t, h.Mounts())
	})

	t.Run("GarbageArgs", func(t *testing.T) {
		h, _ := newHandler(t)
		_, err := h.Dispatch(callContext("10.0.0.1:700"), MountProcMnt, []byte{0, 0})
		assert.ErrorIs(t, err, rpc.ErrGarbageArgs)
	})
}

func TestMountTable(t *testing.T) {
	h, _ := newHandler(t)
	a := callContext("10.0.0.2:800")
	b := callContext("10.0.0.1:801")

	for _, ctx := range []*Context{a, b} {
		_, err := h.Dispatch(ctx, MountProcMnt, pathArgs("/"))
		require.NoError(t, err)
	}

	mounts := h.Mounts()
	require.Len(t, mounts, 2)
	assert.Equal(t, "10.0.0.1", mounts[0].Client)
	assert.Equal(t, "10.0.0.2", mounts[1].Client)

	t.Run("Dump", func(t *testing.T) {
		res, err := h.Dispatch(a, MountProcDump, nil)
		require.NoError(t, err)

		r := xdr.NewReader(res.Data)
		var clients []string
		for {
			more, err := r.Bool()
			require.NoError(t, err)
			if !more {
				break
			}
			client, err := r.String(MaxPathLen)
			require.NoError(t, err)
			dir, err := r.String(MaxPathLen)
			require.NoError(t, err)
			assert.Equal(t, "/", dir)
			clients = append(clients, client)
		}
		assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, clients)
	})

	t.Run("Umnt", func(t *testing.T) {
		_, err := h.Dispatch(a, MountProcUmnt, pathArgs("/"))
		require.NoError(t, err)
		require.Len(t, h.Mounts(), 1)
		assert.Equal(t, "10.0.0.1", h.Mounts()[0].Client)
	})

	t.Run("UmntAll", func(t *testing.T) {
		_, err := h.Dispatch(b, MountProcUmntAll, nil)
		require.NoError(t, err)
		assert.Empty(t, h.Mounts())
	})
}

func TestExport(t *testing.T) {
	h, _ := newHandler(t)
	res, err := h.Dispatch(callContext("10.0.0.1:700"), MountProcExport, nil)
	require.NoError(t, err)

	r := xdr.NewReader(res.Data)
	more, err := r.Bool()
	require.NoError(t, err)
	require.True(t, more)
	dir, err := r.String(MaxPathLen)
	require.NoError(t, err)
	assert.Equal(t, ExportPath, dir)
	groups, err := r.Bool()
	require.NoError(t, err)
	assert.False(t, groups)
	more, err = r.Bool()
	require.NoError(t, err)
	assert.False(t, more)
}

func TestUnknownProcedure(t *testing.T) {
	h, _ := newHandler(t)
	_, err := h.Dispatch(callContext("10.0.0.1:700"), 42, nil)
	assert.ErrorIs(t, err, rpc.ErrProcUnavail)
	assert.Equal(t, "MNT", ProcedureName(MountProcMnt))
}
