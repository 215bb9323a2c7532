package vfs

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/squeakfs/pkg/resource"
	"github.com/marmos91/squeakfs/pkg/squeak/memory"
)

func newDemoFS(t *testing.T) (*FS, *memory.Image) {
	t.Helper()
	img := memory.Demo()
	return New(img, Options{}), img
}

func readFile(t *testing.T, fs *FS, path string) string {
	t.Helper()
	data, err := fs.ReadRange(context.Background(), path, 1<<20, 0)
	require.NoError(t, err, path)
	return string(data)
}

func TestRoot(t *testing.T) {
	fs, _ := newDemoFS(t)
	ctx := context.Background()

	for _, path := range []string{"", "/"} {
		names, err := fs.ListDirectory(ctx, path, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"flat", "hierarchy", "category"}, names)

		attr, err := fs.Attributes(ctx, path)
		require.NoError(t, err)
		assert.True(t, attr.IsDir())
		assert.Equal(t, uint32(5), attr.Nlink)
	}

	_, err := fs.Attributes(ctx, "/unknown")
	assert.ErrorIs(t, err, resource.ErrNotExist)
	_, err = fs.Attributes(ctx, "/traits/TPrintable")
	assert.ErrorIs(t, err, resource.ErrNotExist)
}

func TestFlatView(t *testing.T) {
	fs, _ := newDemoFS(t)
	ctx := context.Background()

	t.Run("ClassList", func(t *testing.T) {
		names, err := fs.ListDirectory(ctx, "/flat", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"Boolean", "Collection", "Integer", "Magnitude", "Number",
			"Object", "OrderedCollection", "ProtoObject",
		}, names)

		attr, err := fs.Attributes(ctx, "/flat/")
		require.NoError(t, err)
		assert.Equal(t, uint32(10), attr.Nlink)
	})

	t.Run("ClassDirectory", func(t *testing.T) {
		names, err := fs.ListDirectory(ctx, "/flat/Object", 0)
		require.NoError(t, err)
		assert.Equal(t, resource.ClassEntries, names)

		_, err = fs.Attributes(ctx, "/flat/Nothing")
		assert.ErrorIs(t, err, resource.ErrNotExist)
	})

	t.Run("Files", func(t *testing.T) {
		assert.Equal(t, "Magnitude\n", readFile(t, fs, "/flat/Number/superclass"))
		assert.Equal(t, "DependentsFields\n", readFile(t, fs, "/flat/Object/classmembers"))
		assert.Equal(t, "yourself\n\t\"Answer self.\"\n\t^ self\n", readFile(t, fs, "/flat/Object/instance/yourself"))
		assert.Equal(t, "new\n\t^ self basicNew initialize\n", readFile(t, fs, "/flat/Object/class/new"))
	})

	t.Run("EscapedSelectors", func(t *testing.T) {
		names, err := fs.ListDirectory(ctx, "/flat/Number/instance", 0)
		require.NoError(t, err)
		assert.Contains(t, names, "__SLASH__")
		assert.Contains(t, names, "__BACKSLASH____BACKSLASH__")

		assert.Equal(t, "/ aNumber\n\tself subclassResponsibility\n", readFile(t, fs, "/flat/Number/instance/__SLASH__"))
	})

	t.Run("MissingMethod", func(t *testing.T) {
		_, err := fs.Attributes(ctx, "/flat/Object/instance/nonexistent")
		assert.ErrorIs(t, err, resource.ErrNotExist)
		_, err = fs.Attributes(ctx, "/flat/Object/class/yourself")
		assert.ErrorIs(t, err, resource.ErrNotExist)
	})
}

func TestAllProtocolsSentinel(t *testing.T) {
	fs, _ := newDemoFS(t)
	ctx := context.Background()
	want := []string{"yourself", "=", "hash"}

	for _, path := range []string{
		"/flat/Object/instance/--all--/",
		"/hierarchy/ProtoObject/subclasses/Object/instance/--all--",
		"/category/Kernel-Objects/Object/instance/--all--",
	} {
		t.Run(path, func(t *testing.T) {
			names, err := fs.ListDirectory(ctx, path, 0)
			require.NoError(t, err)
			assert.ElementsMatch(t, want, names)

			attr, err := fs.Attributes(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, uint32(len(want)+2), attr.Nlink)

			assert.Equal(t, "hash\n\t^ self identityHash\n", readFile(t, fs, strings.TrimSuffix(path, "/")+"/hash"))
		})
	}
}

func TestHierarchyView(t *testing.T) {
	fs, _ := newDemoFS(t)
	ctx := context.Background()

	t.Run("Root", func(t *testing.T) {
		names, err := fs.ListDirectory(ctx, "/hierarchy", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"ProtoObject"}, names)

		names, err = fs.ListDirectory(ctx, "/hierarchy/ProtoObject", 0)
		require.NoError(t, err)
		assert.Equal(t, resource.HierarchyClassEntries, names)
	})

	t.Run("ValidChain", func(t *testing.T) {
		names, err := fs.ListDirectory(ctx, "/hierarchy/ProtoObject/subclasses", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"Object"}, names)

		names, err = fs.ListDirectory(ctx, "/hierarchy/ProtoObject/subclasses/Object/subclasses", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"Boolean", "Collection", "Magnitude"}, names)

		const number = "/hierarchy/ProtoObject/subclasses/Object/subclasses/Magnitude/subclasses/Number"
		names, err = fs.ListDirectory(ctx, number+"/subclasses", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"Integer"}, names)
		assert.Equal(t, "isZero\n\t^ self = 0\n", readFile(t, fs, number+"/instance/isZero"))
	})

	t.Run("BrokenChain", func(t *testing.T) {
		for _, path := range []string{
			"/hierarchy/Object",
			"/hierarchy/Object/subclasses/Boolean",
			"/hierarchy/ProtoObject/subclasses/Magnitude",
			"/hierarchy/ProtoObject/subclasses/Magnitude/subclasses/Number",
			"/hierarchy/ProtoObject/subclasses/Object/subclasses/Integer/comment",
			"/hierarchy/ProtoObject/subclasses/Nothing",
		} {
			_, err := fs.Attributes(ctx, path)
			assert.ErrorIs(t, err, resource.ErrNotExist, path)
			_, err = fs.ListDirectory(ctx, path, 0)
			assert.ErrorIs(t, err, resource.ErrNotExist, path)
		}
	})

	t.Run("ChainFollowsImage", func(t *testing.T) {
		fs, img := newDemoFS(t)
		const path = "/hierarchy/ProtoObject/subclasses/Object/subclasses/Boolean"
		_, err := fs.Attributes(ctx, path)
		require.NoError(t, err)

		img.RemoveClass("Boolean")
		_, err = fs.Attributes(ctx, path)
		assert.ErrorIs(t, err, resource.ErrNotExist)
	})

	t.Run("RootClassOption", func(t *testing.T) {
		fs := New(memory.Demo(), Options{RootClass: "Object"})
		names, err := fs.ListDirectory(ctx, "/hierarchy", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"Object"}, names)

		_, err = fs.Attributes(ctx, "/hierarchy/Object/subclasses/Boolean")
		assert.NoError(t, err)
		_, err = fs.Attributes(ctx, "/hierarchy/ProtoObject")
		assert.ErrorIs(t, err, resource.ErrNotExist)
	})
}

func TestCategoryView(t *testing.T) {
	fs, _ := newDemoFS(t)
	ctx := context.Background()

	t.Run("Listings", func(t *testing.T) {
		names, err := fs.ListDirectory(ctx, "/category", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"Collections-Abstract", "Collections-Sequenceable",
			"Kernel-Numbers", "Kernel-Objects", "Traits-Kernel",
		}, names)

		names, err = fs.ListDirectory(ctx, "/category/Kernel-Numbers", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"Integer", "Magnitude", "Number"}, names)

		names, err = fs.ListDirectory(ctx, "/category/Kernel-Objects/Object/class", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"instance creation", "--all--"}, names)

		attr, err := fs.Attributes(ctx, "/category/Kernel-Objects/Object/class")
		require.NoError(t, err)
		assert.Equal(t, uint32(4), attr.Nlink)
	})

	t.Run("ProtocolsWithWhitespace", func(t *testing.T) {
		names, err := fs.ListDirectory(ctx, "/category/Kernel-Objects/Boolean/instance/logical operations", 0)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"&", "|"}, names)
		assert.Equal(t, "& aBoolean\n\tself subclassResponsibility\n",
			readFile(t, fs, "/category/Kernel-Objects/Boolean/instance/logical operations/&"))
	})

	t.Run("UnknownCategory", func(t *testing.T) {
		_, err := fs.Attributes(ctx, "/category/No-Such-Category")
		assert.ErrorIs(t, err, resource.ErrNotExist)
	})

	t.Run("MethodOutsideProtocol", func(t *testing.T) {
		_, err := fs.Attributes(ctx, "/category/Kernel-Numbers/Number/instance/arithmetic/isZero")
		assert.ErrorIs(t, err, resource.ErrNotExist)
		_, err = fs.Attributes(ctx, "/category/Kernel-Numbers/Number/instance/testing/isZero")
		assert.NoError(t, err)
		_, err = fs.Attributes(ctx, "/category/Kernel-Numbers/Number/instance/nothing")
		assert.ErrorIs(t, err, resource.ErrNotExist)
	})

	t.Run("Gating", func(t *testing.T) {
		suffixes := []string{
			"", "/comment", "/superclass", "/instancemembers", "/classmembers",
			"/instance", "/class", "/traits",
			"/instance/testing", "/instance/testing/isPrime",
			"/instance/--all--", "/instance/--all--/isPrime",
		}
		for _, suffix := range suffixes {
			_, err := fs.Attributes(ctx, "/category/Kernel-Numbers/Integer"+suffix)
			assert.NoError(t, err, suffix)

			_, err = fs.Attributes(ctx, "/category/Kernel-Objects/Integer"+suffix)
			assert.ErrorIs(t, err, resource.ErrNotExist, suffix)
		}
	})

	t.Run("MembershipIsLive", func(t *testing.T) {
		fs, img := newDemoFS(t)
		const path = "/category/Kernel-Objects/Integer/comment"
		_, err := fs.Attributes(ctx, path)
		require.ErrorIs(t, err, resource.ErrNotExist)

		require.NoError(t, img.Recategorize("Integer", "Kernel-Objects"))
		_, err = fs.Attributes(ctx, path)
		assert.NoError(t, err)
	})
}

func TestMemberFileFraming(t *testing.T) {
	fs, _ := newDemoFS(t)
	ctx := context.Background()
	const path = "/flat/OrderedCollection/instancemembers"
	want := "array\nfirstIndex\nlastIndex\n"

	assert.Equal(t, want, readFile(t, fs, path))
	attr, err := fs.Attributes(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, uint64(len(want)), attr.Size)
	assert.False(t, attr.IsDir())

	data, err := fs.ReadRange(ctx, path, 5, 6)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))

	data, err = fs.ReadRange(ctx, path, 10, int64(len(want)))
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestTraitRedirection(t *testing.T) {
	fs, _ := newDemoFS(t)
	ctx := context.Background()

	t.Run("SameAsFlat", func(t *testing.T) {
		for _, pair := range [][2]string{
			{"/flat/Collection/traits/TPrintable/comment", "/flat/TPrintable/comment"},
			{"/category/Collections-Abstract/Collection/traits/TPrintable/instance/printString", "/flat/TPrintable/instance/printString"},
			{"/hierarchy/ProtoObject/subclasses/Object/subclasses/Collection/traits/TPrintable/comment", "/flat/TPrintable/comment"},
		} {
			redirected, direct := pair[0], pair[1]
			assert.Equal(t, fs.Resolve(ctx, direct).String(), fs.Resolve(ctx, redirected).String())

			want, err := fs.Attributes(ctx, direct)
			require.NoError(t, err)
			got, err := fs.Attributes(ctx, redirected)
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Equal(t, readFile(t, fs, direct), readFile(t, fs, redirected))
		}
		assert.Equal(t, "I provide printing behaviour to my users.\n", readFile(t, fs, "/flat/Collection/traits/TPrintable/comment"))
	})

	t.Run("TraitsDirectory", func(t *testing.T) {
		names, err := fs.ListDirectory(ctx, "/flat/Collection/traits", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"TPrintable"}, names)

		names, err = fs.ListDirectory(ctx, "/category/Collections-Abstract/Collection/traits", 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"TPrintable"}, names)

		_, err = fs.ListDirectory(ctx, "/category/Kernel-Objects/Collection/traits", 0)
		assert.ErrorIs(t, err, resource.ErrNotExist)
	})

	t.Run("NestedUnderSide", func(t *testing.T) {
		_, err := fs.Attributes(ctx, "/flat/Collection/instance/traits/TPrintable")
		assert.ErrorIs(t, err, resource.ErrNotExist)
		_, err = fs.Attributes(ctx, "/flat/Collection/class/traits/TPrintable")
		assert.ErrorIs(t, err, resource.ErrNotExist)
	})

	t.Run("Innermost", func(t *testing.T) {
		_, err := fs.Attributes(ctx, "/flat/Nothing/traits/Missing/traits/TPrintable")
		assert.NoError(t, err)
	})
}

func TestIllegalPaths(t *testing.T) {
	fs, _ := newDemoFS(t)
	ctx := context.Background()

	for _, path := range []string{
		"relative",
		"//",
		"/flat//Object",
		"/flat/Object/nothing",
		"/flat/Object/comment/extra",
		"/flat/Ob ject",
		"/hierarchy/ProtoObject/subclasses/Object/subclasses/x/y",
		"/category/Kernel.Objects",
		"/category/Kernel-Objects/Object/subclasses",
		"/nowhere/Object",
	} {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, resource.KindIllegal, fs.Resolve(ctx, path).Kind())

			_, err := fs.Attributes(ctx, path)
			assert.ErrorIs(t, err, resource.ErrNotExist)

			names, err := fs.ListDirectory(ctx, path, 0)
			assert.ErrorIs(t, err, resource.ErrNotExist)
			assert.Nil(t, names)

			assert.ErrorIs(t, fs.OpenForRead(ctx, path, os.O_RDONLY), resource.ErrNotExist)

			data, err := fs.ReadRange(ctx, path, 10, 0)
			assert.ErrorIs(t, err, resource.ErrNotExist)
			assert.Nil(t, data)
		})
	}
}

func TestParseIsRepeatable(t *testing.T) {
	fs, _ := newDemoFS(t)
	ctx := context.Background()

	for _, path := range []string{
		"/flat/Object/instance/yourself",
		"/hierarchy/ProtoObject/subclasses/Object/subclasses",
		"/category/Kernel-Numbers/Number/instance/testing",
		"/flat/Object/nothing",
	} {
		first := fs.Resolve(ctx, path)
		second := fs.Resolve(ctx, path)
		assert.Equal(t, first.String(), second.String(), path)

		a1, err1 := first.Attributes(ctx)
		a2, err2 := second.Attributes(ctx)
		assert.Equal(t, a1, a2, path)
		assert.Equal(t, err1, err2, path)
	}
}

func TestReadOnly(t *testing.T) {
	fs, _ := newDemoFS(t)
	ctx := context.Background()

	for _, path := range []string{
		"/flat/Object/comment",
		"/flat/Object/superclass",
		"/flat/Object/instancemembers",
		"/flat/Object/classmembers",
		"/flat/Object/instance/yourself",
		"/category/Kernel-Objects/Object/instance/accessing/yourself",
		"/hierarchy/ProtoObject/subclasses/Object/class/new",
	} {
		assert.NoError(t, fs.OpenForRead(ctx, path, os.O_RDONLY), path)
		assert.ErrorIs(t, fs.OpenForRead(ctx, path, os.O_WRONLY), resource.ErrPermission, path)
		assert.ErrorIs(t, fs.OpenForRead(ctx, path, os.O_RDWR), resource.ErrPermission, path)
		assert.ErrorIs(t, fs.OpenForRead(ctx, path, os.O_WRONLY|os.O_TRUNC), resource.ErrPermission, path)
	}

	t.Run("DirectoriesAreNotFiles", func(t *testing.T) {
		for _, path := range []string{
			"/",
			"/flat",
			"/flat/Object",
			"/flat/Object/instance",
			"/flat/Object/class/--all--",
			"/category/Kernel-Objects/Object/instance",
			"/hierarchy/ProtoObject/subclasses/Object",
		} {
			assert.ErrorIs(t, fs.OpenForRead(ctx, path, os.O_RDONLY), resource.ErrNotExist, path)
			assert.ErrorIs(t, fs.OpenForRead(ctx, path, os.O_WRONLY), resource.ErrNotExist, path)
		}
	})
}

func TestUnreachableImage(t *testing.T) {
	fs, img := newDemoFS(t)
	ctx := context.Background()
	img.SetUnreachable(errors.New("connection refused"))

	for _, path := range []string{"/flat", "/flat/Object", "/flat/Object/comment", "/category", "/hierarchy/ProtoObject/subclasses/Object"} {
		_, err := fs.Attributes(ctx, path)
		assert.ErrorIs(t, err, resource.ErrNotExist, path)
	}

	// The root and the hierarchy root need no query.
	_, err := fs.Attributes(ctx, "/")
	assert.NoError(t, err)
	_, err = fs.Attributes(ctx, "/hierarchy")
	assert.NoError(t, err)
}

// unprintable returns selectors no client could address.
type unprintable struct {
	*memory.Image
}

func (u unprintable) InstanceMethodsInClass(context.Context, string) ([]string, error) {
	return []string{"ok", "a/b", "c*", `d\e`}, nil
}

func TestListDirectorySkipsUnaddressableNames(t *testing.T) {
	fs := New(unprintable{memory.Demo()}, Options{})
	names, err := fs.ListDirectory(context.Background(), "/flat/Object/instance", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, names)
}

type operation struct {
	op, view, kind, outcome string
}

type recordingMetrics struct {
	mu    sync.Mutex
	ops   []operation
	bytes int
}

func (m *recordingMetrics) RecordOperation(op, view, kind string, _ time.Duration, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, operation{op, view, kind, outcome})
}

func (m *recordingMetrics) RecordBytesRead(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bytes += n
}

func TestMetrics(t *testing.T) {
	m := &recordingMetrics{}
	fs := New(memory.Demo(), Options{Metrics: m})
	ctx := context.Background()

	_, _ = fs.Attributes(ctx, "/")
	_, _ = fs.ListDirectory(ctx, "/flat/Object", 0)
	_, _ = fs.ReadRange(ctx, "/flat/Object/superclass", 100, 0)
	_, _ = fs.ReadRange(ctx, "/category/Kernel-Objects/Integer/comment", 100, 0)
	_ = fs.OpenForRead(ctx, "/flat/Object/comment", os.O_RDWR)
	_, _ = fs.Attributes(ctx, "/elsewhere")

	assert.Equal(t, []operation{
		{"attributes", "root", "static", "ok"},
		{"list", "flat", "class", "ok"},
		{"read", "flat", "superclass", "ok"},
		{"read", "category", "comment", "not_found"},
		{"open", "flat", "comment", "permission_denied"},
		{"attributes", "other", "illegal", "not_found"},
	}, m.ops)
	assert.Equal(t, len("ProtoObject\n"), m.bytes)
}
