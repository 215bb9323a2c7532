package vfs

import (
	"context"

	"github.com/marmos91/squeakfs/pkg/resource"
	"github.com/marmos91/squeakfs/pkg/squeak"
)

// ParseCategory parses a path of the category view:
//
//	/ | /<category> [ /<class> [ /<file> | /<dir> [ /<protocol> [ /<method> ] ] ] ]
//
// Category and protocol names may contain whitespace. A protocol of
// "--all--" stands for every method of the side.
func ParseCategory(path string) (Fields, bool) {
	segs, ok := splitPath(path)
	if !ok {
		return Fields{}, false
	}
	return parseCategory(segs)
}

func parseCategory(segs []string) (Fields, bool) {
	var f Fields
	if !categoryPath(newCursor(segs), &f) {
		return Fields{}, false
	}
	return f, true
}

func categoryPath(c *cursor, f *Fields) bool {
	var ok bool
	if c.done() {
		return true
	}
	if f.Category, ok = c.accept(isCategoryName); !ok {
		return false
	}
	if c.done() {
		return true
	}
	if f.Class, ok = c.accept(isClassName); !ok {
		return false
	}
	if c.done() {
		return true
	}
	if f.File, ok = c.accept(isClassFile); ok {
		return c.done()
	}
	if f.Dir, ok = c.accept(isFlatDir); !ok {
		return false
	}
	if c.done() {
		return true
	}
	if !isSideDir(f.Dir) {
		return false
	}
	if f.Protocol, ok = c.accept(isProtocolName); !ok {
		return false
	}
	if c.done() {
		return true
	}
	if f.Method, ok = c.accept(isSelector); !ok {
		return false
	}
	return c.done()
}

type categoryView struct {
	src squeak.Source
}

func (v categoryView) resolve(_ context.Context, segs []string) *resource.Resource {
	f, ok := parseCategory(segs)
	if !ok {
		return resource.Illegal()
	}
	switch {
	case f.Category == "":
		return resource.CategoryList(v.src)
	case f.Class == "":
		return resource.Category(v.src, f.Category)
	}
	return v.classResource(f).InCategory(f.Category)
}

// classResource builds the unscoped resource below a class; the caller
// adds the category membership guard.
func (v categoryView) classResource(f Fields) *resource.Resource {
	switch {
	case f.File != "":
		return fileResource(v.src, f.File, f.Class)
	case f.Dir == "":
		return resource.Class(v.src, f.Class, resource.ClassEntries)
	case f.Dir == resource.EntryTraits:
		return resource.Traits(v.src, f.Class)
	}

	side := sideOf(f.Dir)
	switch {
	case f.Method != "":
		return resource.Method(v.src, side, f.Class, f.Method).InProtocol(f.Protocol)
	case f.Protocol != "":
		return resource.Protocol(v.src, side, f.Class, f.Protocol)
	default:
		return resource.Protocols(v.src, side, f.Class)
	}
}
