package vfs

import (
	"context"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/pkg/resource"
	"github.com/marmos91/squeakfs/pkg/squeak"
)

// Names of the three views, in the order the root lists them.
const (
	ViewFlat      = "flat"
	ViewHierarchy = "hierarchy"
	ViewCategory  = "category"
)

// Views lists the children of the filesystem root.
var Views = []string{ViewFlat, ViewHierarchy, ViewCategory}

type view interface {
	resolve(ctx context.Context, segs []string) *resource.Resource
}

// Router maps absolute paths to resources by their first segment.
type Router struct {
	flat  flatView
	views map[string]view
}

// NewRouter creates a router over src. rootClass is the class the hierarchy
// view starts from; empty selects DefaultRootClass.
func NewRouter(src squeak.Source, rootClass string) *Router {
	if rootClass == "" {
		rootClass = DefaultRootClass
	}
	flat := flatView{src: src}
	return &Router{
		flat: flat,
		views: map[string]view{
			ViewFlat:      flat,
			ViewHierarchy: hierarchyView{src: src, root: rootClass},
			ViewCategory:  categoryView{src: src},
		},
	}
}

// Resolve returns the resource a path names. It never fails: anything that
// does not name a resource resolves to resource.Illegal(), and existence is
// only checked when the resource is used.
func (r *Router) Resolve(ctx context.Context, path string) *resource.Resource {
	if path == "" {
		path = "/"
	}
	segs, ok := splitPath(path)
	if !ok {
		return resource.Illegal()
	}
	if len(segs) == 0 {
		return resource.Static(Views...)
	}

	v, ok := r.views[segs[0]]
	if !ok {
		return resource.Illegal()
	}
	if target, ok := traitTarget(segs); ok {
		logger.Debug("vfs: %s resolves as trait path %s", path, joinPath(target))
		return r.flat.resolve(ctx, target)
	}
	return v.resolve(ctx, segs[1:])
}
