package nfs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/squeakfs/internal/protocol/rpc"
	"github.com/marmos91/squeakfs/internal/protocol/xdr"
	"github.com/marmos91/squeakfs/pkg/handles"
	hmemory "github.com/marmos91/squeakfs/pkg/handles/memory"
	"github.com/marmos91/squeakfs/pkg/squeak/memory"
	"github.com/marmos91/squeakfs/pkg/vfs"
)

// ============================================================================
// Test Helpers
// ============================================================================

type fixture struct {
	h    *Handler
	ctx  *Context
	img  *memory.Image
	root []byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	img := memory.Demo()
	store := hmemory.New()
	t.Cleanup(func() { _ = store.Close() })

	h := NewHandler(vfs.New(img, vfs.Options{}), store, Options{Owner: xdr.Owner{UID: 1000, GID: 100}})
	ctx := &Context{Context: context.Background(), ClientAddr: "127.0.0.1:1023", AuthFlavor: rpc.AuthUnix}

	root, err := store.Handle(context.Background(), "/")
	require.NoError(t, err)

	return &fixture{h: h, ctx: ctx, img: img, root: root}
}

func (f *fixture) call(t *testing.T, proc uint32, args *xdr.Writer) (*xdr.Reader, uint32) {
	t.Helper()
	res, err := f.h.Dispatch(f.ctx, proc, args.Bytes())
	require.NoError(t, err)

	r := xdr.NewReader(res.Data)
	status, err := r.Uint32()
	require.NoError(t, err)
	require.Equal(t, res.Status, status)
	return r, status
}

func handleArgs(fh []byte) *xdr.Writer {
	w := xdr.NewWriter()
	w.Opaque(fh)
	return w
}

func lookupArgs(dir []byte, name string) *xdr.Writer {
	w := handleArgs(dir)
	w.String(name)
	return w
}

func readArgs(fh []byte, offset uint64, count uint32) *xdr.Writer {
	w := handleArgs(fh)
	w.Uint64(offset)
	w.Uint32(count)
	return w
}

func readDirArgs(fh []byte, cookie, verf uint64, count uint32) *xdr.Writer {
	w := handleArgs(fh)
	w.Uint64(cookie)
	w.Uint64(verf)
	w.Uint32(count)
	return w
}

// skipAttr skips a post_op_attr and returns the file type it carried, or
// zero when absent.
func skipAttr(t *testing.T, r *xdr.Reader) uint32 {
	t.Helper()
	present, err := r.Bool()
	require.NoError(t, err)
	if !present {
		return 0
	}
	ftype, err := r.Uint32()
	require.NoError(t, err)
	for range 80 / 4 {
		_, err := r.Uint32()
		require.NoError(t, err)
	}
	return ftype
}

// lookup walks path components from the root and returns the final handle.
func (f *fixture) lookup(t *testing.T, names ...string) []byte {
	t.Helper()
	fh := f.root
	for _, name := range names {
		r, status := f.call(t, NFSProcLookup, lookupArgs(fh, name))
		require.Equal(t, uint32(NFS3OK), status, "lookup %s: %s", name, StatusString(status))
		var err error
		fh, err = r.Opaque(MaxHandleSize)
		require.NoError(t, err)
	}
	return fh
}

func (f *fixture) readDir(t *testing.T, fh []byte, cookie, verf uint64, count uint32) (names []string, cookies []uint64, nextVerf uint64, eof bool) {
	t.Helper()
	r, status := f.call(t, NFSProcReadDir, readDirArgs(fh, cookie, verf, count))
	require.Equal(t, uint32(NFS3OK), status, StatusString(status))
	skipAttr(t, r)

	nextVerf, err := r.Uint64()
	require.NoError(t, err)
	for {
		more, err := r.Bool()
		require.NoError(t, err)
		if !more {
			break
		}
		_, err = r.Uint64()
		require.NoError(t, err)
		name, err := r.String(MaxNameLen)
		require.NoError(t, err)
		c, err := r.Uint64()
		require.NoError(t, err)
		names = append(names, name)
		cookies = append(cookies, c)
	}
	eof, err = r.Bool()
	require.NoError(t, err)
	return names, cookies, nextVerf, eof
}

// ============================================================================
// Tests
// ============================================================================

func TestNull(t *testing.T) {
	f := newFixture(t)
	res, err := f.h.Dispatch(f.ctx, NFSProcNull, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Data)
}

func TestGetAttr(t *testing.T) {
	f := newFixture(t)

	t.Run("Root", func(t *testing.T) {
		r, status := f.call(t, NFSProcGetAttr, handleArgs(f.root))
		require.Equal(t, uint32(NFS3OK), status)

		ftype, err := r.Uint32()
		require.NoError(t, err)
		assert.Equal(t, uint32(xdr.FileTypeDirectory), ftype)
		mode, err := r.Uint32()
		require.NoError(t, err)
		assert.Equal(t, uint32(0755), mode)
		nlink, err := r.Uint32()
		require.NoError(t, err)
		assert.Equal(t, uint32(5), nlink)
		uid, err := r.Uint32()
		require.NoError(t, err)
		assert.Equal(t, uint32(1000), uid)
	})

	t.Run("StaleHandle", func(t *testing.T) {
		_, status := f.call(t, NFSProcGetAttr, handleArgs(handles.Encode(1, 2)))
		assert.Equal(t, uint32(NFS3ErrStale), status)
	})

	t.Run("MalformedHandle", func(t *testing.T) {
		_, status := f.call(t, NFSProcGetAttr, handleArgs([]byte{1, 2, 3}))
		assert.Equal(t, uint32(NFS3ErrBadHandle), status)
	})

	t.Run("VanishedClass", func(t *testing.T) {
		fh := f.lookup(t, "flat", "Boolean")
		f.img.RemoveClass("Boolean")

		_, status := f.call(t, NFSProcGetAttr, handleArgs(fh))
		assert.Equal(t, uint32(NFS3ErrNoEnt), status)
	})
}

func TestLookup(t *testing.T) {
	f := newFixture(t)

	t.Run("WalksViews", func(t *testing.T) {
		fh := f.lookup(t, "flat", "Number", "superclass")
		r, status := f.call(t, NFSProcRead, readArgs(fh, 0, 1024))
		require.Equal(t, uint32(NFS3OK), status)
		skipAttr(t, r)

		count, err := r.Uint32()
		require.NoError(t, err)
		eof, err := r.Bool()
		require.NoError(t, err)
		data, err := r.Opaque(1024)
		require.NoError(t, err)
		assert.Equal(t, "Magnitude\n", string(data))
		assert.Equal(t, uint32(len(data)), count)
		assert.True(t, eof)
	})

	t.Run("HandlesAreStable", func(t *testing.T) {
		assert.Equal(t, f.lookup(t, "hierarchy"), f.lookup(t, "hierarchy"))
	})

	t.Run("DotDot", func(t *testing.T) {
		assert.Equal(t, f.root, f.lookup(t, "flat", ".."))
		assert.Equal(t, f.root, f.lookup(t, ".."))
		assert.Equal(t, f.lookup(t, "flat"), f.lookup(t, "flat", "."))
	})

	t.Run("MissingEntry", func(t *testing.T) {
		r, status := f.call(t, NFSProcLookup, lookupArgs(f.root, "nothing"))
		assert.Equal(t, uint32(NFS3ErrNoEnt), status)
		assert.Equal(t, uint32(xdr.FileTypeDirectory), skipAttr(t, r))
	})

	t.Run("NotADirectory", func(t *testing.T) {
		file := f.lookup(t, "flat", "Number", "comment")
		_, status := f.call(t, NFSProcLookup, lookupArgs(file, "x"))
		assert.Equal(t, uint32(NFS3ErrNotDir), status)
	})

	t.Run("NameWithSlash", func(t *testing.T) {
		_, status := f.call(t, NFSProcLookup, lookupArgs(f.root, "flat/Number"))
		assert.Equal(t, uint32(NFS3ErrNoEnt), status)
	})

	t.Run("NameTooLong", func(t *testing.T) {
		long := make([]byte, MaxNameLen+1)
		for i := range long {
			long[i] = 'a'
		}
		_, status := f.call(t, NFSProcLookup, lookupArgs(f.root, string(long)))
		assert.Equal(t, uint32(NFS3ErrNameTooLong), status)
	})
}

func TestAccess(t *testing.T) {
	f := newFixture(t)
	all := uint32(AccessRead | AccessLookup | AccessModify | AccessExtend | AccessDelete | AccessExecute)

	tests := []struct {
		name  string
		path  []string
		grant uint32
	}{
		{"Directory", []string{"flat"}, AccessRead | AccessLookup | AccessExecute},
		{"File", []string{"flat", "Object", "comment"}, AccessRead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := handleArgs(f.lookup(t, tt.path...))
			args.Uint32(all)

			r, status := f.call(t, NFSProcAccess, args)
			require.Equal(t, uint32(NFS3OK), status)
			skipAttr(t, r)
			granted, err := r.Uint32()
			require.NoError(t, err)
			assert.Equal(t, tt.grant, granted)
		})
	}
}

func TestReadLink(t *testing.T) {
	f := newFixture(t)
	r, status := f.call(t, NFSProcReadLink, handleArgs(f.root))
	assert.Equal(t, uint32(NFS3ErrInval), status)
	assert.Equal(t, uint32(xdr.FileTypeDirectory), skipAttr(t, r))
}

func TestRead(t *testing.T) {
	f := newFixture(t)
	fh := f.lookup(t, "flat", "OrderedCollection", "instance_members")

	read := func(t *testing.T, offset uint64, count uint32) (string, bool) {
		r, status := f.call(t, NFSProcRead, readArgs(fh, offset, count))
		require.Equal(t, uint32(NFS3OK), status)
		skipAttr(t, r)
		_, err := r.Uint32()
		require.NoError(t, err)
		eof, err := r.Bool()
		require.NoError(t, err)
		data, err := r.Opaque(1 << 20)
		require.NoError(t, err)
		return string(data), eof
	}

	t.Run("Range", func(t *testing.T) {
		data, eof := read(t, 6, 10)
		assert.Equal(t, "firstIndex", data)
		assert.False(t, eof)
	})

	t.Run("Tail", func(t *testing.T) {
		data, eof := read(t, 17, 100)
		assert.Equal(t, "lastIndex\n", data)
		assert.True(t, eof)
	})

	t.Run("PastEnd", func(t *testing.T) {
		data, eof := read(t, 1000, 10)
		assert.Empty(t, data)
		assert.True(t, eof)
	})

	t.Run("Directory", func(t *testing.T) {
		_, status := f.call(t, NFSProcRead, readArgs(f.root, 0, 10))
		assert.Equal(t, uint32(NFS3ErrIsDir), status)
	})

	t.Run("GarbageArgs", func(t *testing.T) {
		_, err := f.h.Dispatch(f.ctx, NFSProcRead, handleArgs(fh).Bytes())
		assert.ErrorIs(t, err, rpc.ErrGarbageArgs)
	})
}

func TestReadDir(t *testing.T) {
	f := newFixture(t)

	t.Run("Root", func(t *testing.T) {
		names, cookies, _, eof := f.readDir(t, f.root, 0, 0, 4096)
		assert.Equal(t, []string{".", "..", "flat", "hierarchy", "category"}, names)
		assert.Equal(t, []uint64{1, 2, 3, 4, 5}, cookies)
		assert.True(t, eof)
	})

	t.Run("ResumesAtCookie", func(t *testing.T) {
		// room for the overhead and three short entries
		count := uint32(readDirOverhead + 3*32)
		first, cookies, verf, eof := f.readDir(t, f.root, 0, 0, count)
		require.False(t, eof)
		require.NotEmpty(t, first)

		rest, _, _, eof := f.readDir(t, f.root, cookies[len(cookies)-1], verf, 4096)
		assert.True(t, eof)
		assert.Equal(t, []string{".", "..", "flat", "hierarchy", "category"}, append(first, rest...))
	})

	t.Run("BadCookieVerifier", func(t *testing.T) {
		_, status := f.call(t, NFSProcReadDir, readDirArgs(f.root, 2, 12345, 4096))
		assert.Equal(t, uint32(NFS3ErrBadCookie), status)
	})

	t.Run("TooSmall", func(t *testing.T) {
		_, status := f.call(t, NFSProcReadDir, readDirArgs(f.root, 0, 0, 16))
		assert.Equal(t, uint32(NFS3ErrTooSmall), status)
	})

	t.Run("NotADirectory", func(t *testing.T) {
		file := f.lookup(t, "flat", "Object", "superclass")
		_, status := f.call(t, NFSProcReadDir, readDirArgs(file, 0, 0, 4096))
		assert.Equal(t, uint32(NFS3ErrNotDir), status)
	})

	t.Run("LiveListing", func(t *testing.T) {
		fh := f.lookup(t, "flat")
		before, _, _, _ := f.readDir(t, fh, 0, 0, 1<<16)
		f.img.RemoveClass("Integer")
		after, _, _, _ := f.readDir(t, fh, 0, 0, 1<<16)

		assert.Contains(t, before, "Integer")
		assert.NotContains(t, after, "Integer")
	})
}

func TestReadDirPlus(t *testing.T) {
	f := newFixture(t)

	args := readDirArgs(f.lookup(t, "flat", "Object"), 0, 0, 4096)
	args.Uint32(1 << 16)

	r, status := f.call(t, NFSProcReadDirPlus, args)
	require.Equal(t, uint32(NFS3OK), status)
	skipAttr(t, r)
	_, err := r.Uint64()
	require.NoError(t, err)

	types := map[string]uint32{}
	for {
		more, err := r.Bool()
		require.NoError(t, err)
		if !more {
			break
		}
		_, err = r.Uint64()
		require.NoError(t, err)
		name, err := r.String(MaxNameLen)
		require.NoError(t, err)
		_, err = r.Uint64()
		require.NoError(t, err)
		types[name] = skipAttr(t, r)

		hasHandle, err := r.Bool()
		require.NoError(t, err)
		require.True(t, hasHandle, name)
		fh, err := r.Opaque(MaxHandleSize)
		require.NoError(t, err)
		assert.Len(t, fh, handles.Size)
	}

	assert.Equal(t, uint32(xdr.FileTypeDirectory), types["instance"])
	assert.Equal(t, uint32(xdr.FileTypeRegular), types["comment"])
	assert.Equal(t, uint32(xdr.FileTypeDirectory), types[".."])
}

func TestFsProcedures(t *testing.T) {
	f := newFixture(t)

	for _, proc := range []uint32{NFSProcFsStat, NFSProcFsInfo, NFSProcPathConf} {
		t.Run(ProcedureName(proc), func(t *testing.T) {
			r, status := f.call(t, proc, handleArgs(f.root))
			require.Equal(t, uint32(NFS3OK), status)
			assert.Equal(t, uint32(xdr.FileTypeDirectory), skipAttr(t, r))
			assert.Positive(t, r.Remaining())
		})
	}

	t.Run("FsInfoReadSize", func(t *testing.T) {
		r, _ := f.call(t, NFSProcFsInfo, handleArgs(f.root))
		skipAttr(t, r)
		rtmax, err := r.Uint32()
		require.NoError(t, err)
		assert.Equal(t, uint32(DefaultMaxReadSize), rtmax)
	})
}

func TestReadOnlyProcedures(t *testing.T) {
	f := newFixture(t)

	for _, proc := range []uint32{
		NFSProcSetAttr, NFSProcWrite, NFSProcCreate, NFSProcMkdir, NFSProcSymlink,
		NFSProcMknod, NFSProcRemove, NFSProcRmdir, NFSProcRename, NFSProcLink, NFSProcCommit,
	} {
		t.Run(ProcedureName(proc), func(t *testing.T) {
			_, status := f.call(t, proc, lookupArgs(f.root, "flat"))
			assert.Equal(t, uint32(NFS3ErrRofs), status)
		})
	}
}

func TestUnknownProcedure(t *testing.T) {
	f := newFixture(t)
	_, err := f.h.Dispatch(f.ctx, 99, nil)
	assert.ErrorIs(t, err, rpc.ErrProcUnavail)
	assert.Equal(t, "UNKNOWN_99", ProcedureName(99))
}
