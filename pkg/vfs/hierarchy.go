package vfs

import (
	"context"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/pkg/resource"
	"github.com/marmos91/squeakfs/pkg/squeak"
)

// DefaultRootClass is the root of the class tree in a stock image.
const DefaultRootClass = "ProtoObject"

// ParseHierarchy parses a path of the hierarchy view:
//
//	/ | ( /<class>/subclasses )* /<class> [ /<file> | /<dir>[/<method>] ]
//
// <dir> additionally accepts subclasses. The repeated prefix is returned
// in Fields.Chain. Parsing is purely syntactic; the chain is checked
// against the image when the path is resolved.
func ParseHierarchy(path string) (Fields, bool) {
	segs, ok := splitPath(path)
	if !ok {
		return Fields{}, false
	}
	return parseHierarchy(segs)
}

func parseHierarchy(segs []string) (Fields, bool) {
	if len(segs) == 0 {
		return Fields{}, true
	}
	return parseChain(segs, nil)
}

// parseChain reads one more "<class>/subclasses" hop when it can and falls
// back to reading segs as the class suffix. Longer chains win, so
// /A/subclasses/B/subclasses/C names C below B rather than B's subclass
// directory entry C.
func parseChain(segs, chain []string) (Fields, bool) {
	if len(segs) >= 3 && isClassName(segs[0]) && segs[1] == resource.EntrySubclasses {
		next := append(chain[:len(chain):len(chain)], segs[0])
		if f, ok := parseChain(segs[2:], next); ok {
			return f, true
		}
	}

	var f Fields
	c := newCursor(segs)
	var ok bool
	if f.Class, ok = c.accept(isClassName); !ok {
		return Fields{}, false
	}
	if !c.classTail(&f, isHierarchyDir) {
		return Fields{}, false
	}
	f.Chain = chain
	return f, true
}

func isHierarchyDir(s string) bool {
	return isFlatDir(s) || s == resource.EntrySubclasses
}

type hierarchyView struct {
	src  squeak.Source
	root string
}

func (v hierarchyView) resolve(ctx context.Context, segs []string) *resource.Resource {
	f, ok := parseHierarchy(segs)
	if !ok {
		return resource.Illegal()
	}
	if f.Class == "" {
		return resource.Static(v.root)
	}
	if !v.validChain(ctx, f) {
		return resource.Illegal()
	}
	return classResource(v.src, f, resource.HierarchyClassEntries)
}

// validChain checks that the chain starts at the root class, that every
// element is a direct subclass of the one before it, and that the named
// class is a direct subclass of the last element. Without a chain only the
// root class itself is reachable.
func (v hierarchyView) validChain(ctx context.Context, f Fields) bool {
	if len(f.Chain) == 0 {
		return f.Class == v.root
	}
	if f.Chain[0] != v.root {
		return false
	}
	for i := 1; i < len(f.Chain); i++ {
		if !v.isSubclassOf(ctx, f.Chain[i], f.Chain[i-1]) {
			return false
		}
	}
	if f.Class == v.root {
		return true
	}
	return v.isSubclassOf(ctx, f.Class, f.Chain[len(f.Chain)-1])
}

func (v hierarchyView) isSubclassOf(ctx context.Context, class, parent string) bool {
	super, err := v.src.SuperClass(ctx, class)
	if err != nil {
		if squeak.IsRemote(err) {
			logger.Debug("hierarchy: superclass of %s: %v", class, err)
		} else {
			logger.Warn("hierarchy: superclass of %s: %v", class, err)
		}
		return false
	}
	return super == parent
}
