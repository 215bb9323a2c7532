package vfs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/pkg/metrics"
	"github.com/marmos91/squeakfs/pkg/resource"
	"github.com/marmos91/squeakfs/pkg/squeak"
)

// Options configures a FS.
type Options struct {
	// RootClass is the top of the hierarchy view. Empty selects
	// DefaultRootClass.
	RootClass string

	// Metrics observes every call. Nil disables metrics.
	Metrics metrics.FSMetrics
}

// FS is the read-only filesystem the adapters serve. Each call resolves its
// path again and asks the image; no answer outlives the call that fetched
// it.
//
// Errors returned by FS are *resource.Error values and match
// resource.ErrNotExist or resource.ErrPermission with errors.Is.
//
// Thread Safety:
// FS is safe for concurrent use as long as its Source is.
type FS struct {
	router  *Router
	metrics metrics.FSMetrics
}

// New creates a filesystem over src.
func New(src squeak.Source, opts Options) *FS {
	m := opts.Metrics
	if m == nil {
		m = metrics.NewNoopFSMetrics()
	}
	return &FS{
		router:  NewRouter(src, opts.RootClass),
		metrics: m,
	}
}

// Resolve returns the resource a path names without touching the image.
func (fs *FS) Resolve(ctx context.Context, path string) *resource.Resource {
	return fs.router.Resolve(ctx, path)
}

// Attributes returns the attributes of the entry at path.
func (fs *FS) Attributes(ctx context.Context, path string) (resource.Attr, error) {
	logger.Debug("getattr %s", path)
	start := time.Now()

	r := fs.router.Resolve(ctx, path)
	attr, err := r.Attributes(ctx)
	fs.record("attributes", path, r, start, err)
	return attr, err
}

// ListDirectory returns the names of the entries of the directory at path.
// Names containing '/', '*' or '\' are left out since no client could
// address them. offset is ignored; the full listing is always returned.
func (fs *FS) ListDirectory(ctx context.Context, path string, offset int64) ([]string, error) {
	logger.Debug("readdir %s, %d", path, offset)
	start := time.Now()

	r := fs.router.Resolve(ctx, path)
	names, err := r.List(ctx)
	fs.record("list", path, r, start, err)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		if strings.ContainsAny(name, `/*\`) {
			logger.Debug("readdir %s: skipping %q", path, name)
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

// OpenForRead checks that the file at path may be opened with the given
// open(2) flags. Any write access is refused.
func (fs *FS) OpenForRead(ctx context.Context, path string, flags int) error {
	logger.Debug("open %s, %#x", path, flags)
	start := time.Now()

	r := fs.router.Resolve(ctx, path)
	err := r.Open(flags)
	fs.record("open", path, r, start, err)
	return err
}

// ReadRange returns up to size bytes of the file at path starting at
// offset. Reading at or past the end returns an empty slice.
func (fs *FS) ReadRange(ctx context.Context, path string, size, offset int64) ([]byte, error) {
	logger.Debug("read %s, %d %d", path, size, offset)
	start := time.Now()

	r := fs.router.Resolve(ctx, path)
	data, err := r.Read(ctx, size, offset)
	fs.record("read", path, r, start, err)
	if err != nil {
		return nil, err
	}
	fs.metrics.RecordBytesRead(len(data))
	return data, nil
}

func (fs *FS) record(op, path string, r *resource.Resource, start time.Time, err error) {
	fs.metrics.RecordOperation(op, viewOf(path), r.Kind().String(), time.Since(start), outcome(err))
}

// viewOf labels a path by its first segment.
func viewOf(path string) string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return "root"
	}
	name, _, _ := strings.Cut(path, "/")
	for _, v := range Views {
		if name == v {
			return v
		}
	}
	return "other"
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, resource.ErrPermission):
		return "permission_denied"
	default:
		return "not_found"
	}
}
