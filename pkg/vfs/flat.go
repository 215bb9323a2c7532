package vfs

import (
	"context"

	"github.com/marmos91/squeakfs/pkg/resource"
	"github.com/marmos91/squeakfs/pkg/squeak"
)

// ParseFlat parses a path of the flat view:
//
//	/ | /<class> | /<class>/<file> | /<class>/<dir>[/<method>]
//
// where <file> is superclass, comment, classmembers or instancemembers and
// <dir> is instance, class or traits.
func ParseFlat(path string) (Fields, bool) {
	segs, ok := splitPath(path)
	if !ok {
		return Fields{}, false
	}
	return parseFlat(segs)
}

func parseFlat(segs []string) (Fields, bool) {
	var f Fields
	c := newCursor(segs)
	if c.done() {
		return f, true
	}

	var ok bool
	if f.Class, ok = c.accept(isClassName); !ok {
		return Fields{}, false
	}
	if !c.classTail(&f, isFlatDir) {
		return Fields{}, false
	}
	return f, true
}

func isFlatDir(s string) bool {
	return isSideDir(s) || s == resource.EntryTraits
}

type flatView struct {
	src squeak.Source
}

func (v flatView) resolve(_ context.Context, segs []string) *resource.Resource {
	f, ok := parseFlat(segs)
	if !ok {
		return resource.Illegal()
	}
	if f.Class == "" {
		return resource.ClassList(v.src)
	}
	return classResource(v.src, f, resource.ClassEntries)
}

// classResource builds the resource named by a flat-style class path. The
// hierarchy view shares it with its own class entries.
func classResource(src squeak.Source, f Fields, entries []string) *resource.Resource {
	switch {
	case f.File != "":
		return fileResource(src, f.File, f.Class)
	case f.Dir == "":
		return resource.Class(src, f.Class, entries)
	case f.Dir == resource.EntryTraits:
		return resource.Traits(src, f.Class)
	case f.Dir == resource.EntrySubclasses:
		return resource.Subclasses(src, f.Class)
	}

	side := sideOf(f.Dir)
	switch {
	case f.Method != "":
		m := resource.Method(src, side, f.Class, f.Method)
		if f.Protocol != "" {
			m = m.InProtocol(f.Protocol)
		}
		return m
	case f.Protocol != "":
		return resource.Protocol(src, side, f.Class, f.Protocol)
	default:
		return resource.Methods(src, side, f.Class)
	}
}

func fileResource(src squeak.Source, file, class string) *resource.Resource {
	switch file {
	case resource.EntrySuperclass:
		return resource.Superclass(src, class)
	case resource.EntryComment:
		return resource.Comment(src, class)
	case resource.EntryInstanceMembers:
		return resource.InstanceMembers(src, class)
	case resource.EntryClassMembers:
		return resource.ClassMembers(src, class)
	}
	return resource.Illegal()
}

func sideOf(dir string) squeak.Side {
	if dir == resource.EntryClass {
		return squeak.ClassSide
	}
	return squeak.InstanceSide
}
