package vfs

import (
	"strings"

	"github.com/marmos91/squeakfs/pkg/resource"
)

// Fields is the parsed form of a view-relative path. An empty string marks
// a group that did not appear in the path.
type Fields struct {
	// Chain holds the classes of a hierarchy prefix, root first.
	Chain []string

	Category string
	Class    string
	File     string
	Dir      string
	Protocol string
	Method   string
}

// ============================================================================
// Token classes
// ============================================================================

// methodSpecials are the non-word characters allowed in method selectors
// and protocol names.
const methodSpecials = `-+~<=>@&|!,'().:`

func isWordChar(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

func isMethodChar(r rune) bool {
	return isWordChar(r) || strings.ContainsRune(methodSpecials, r)
}

func isCategoryChar(r rune) bool {
	return isWordChar(r) || isSpace(r) || r == '-'
}

func isProtocolChar(r rune) bool {
	return isMethodChar(r) || isSpace(r)
}

func all(s string, ok func(rune) bool) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !ok(r) {
			return false
		}
	}
	return true
}

func isClassName(s string) bool    { return all(s, isWordChar) }
func isSelector(s string) bool     { return all(s, isMethodChar) }
func isCategoryName(s string) bool { return all(s, isCategoryChar) }
func isProtocolName(s string) bool { return all(s, isProtocolChar) }

func isClassFile(s string) bool {
	switch s {
	case resource.EntrySuperclass, resource.EntryComment,
		resource.EntryClassMembers, resource.EntryInstanceMembers:
		return true
	}
	return false
}

func isSideDir(s string) bool {
	return s == resource.EntryInstance || s == resource.EntryClass
}

// ============================================================================
// Segment cursor
// ============================================================================

// splitPath breaks an absolute path into its segments. A single trailing
// slash is ignored; empty segments anywhere else reject the path.
func splitPath(path string) ([]string, bool) {
	if !strings.HasPrefix(path, "/") {
		return nil, false
	}
	rest := path[1:]
	if rest == "" {
		return nil, true
	}
	segs := strings.Split(strings.TrimSuffix(rest, "/"), "/")
	for _, s := range segs {
		if s == "" {
			return nil, false
		}
	}
	return segs, true
}

func joinPath(segs []string) string {
	return "/" + strings.Join(segs, "/")
}

// cursor walks the segments of a path for the recursive-descent parsers.
type cursor struct {
	segs []string
	pos  int
}

func newCursor(segs []string) *cursor {
	return &cursor{segs: segs}
}

func (c *cursor) done() bool {
	return c.pos >= len(c.segs)
}

// accept consumes the next segment if ok approves of it.
func (c *cursor) accept(ok func(string) bool) (string, bool) {
	if c.done() || !ok(c.segs[c.pos]) {
		return "", false
	}
	s := c.segs[c.pos]
	c.pos++
	return s, true
}

// classTail parses what may follow a class name in the flat and hierarchy
// views:
//
//	<file> | <dir> [ <method> ]
//
// isDir accepts the directory names of the calling view. Below a side
// directory "--all--" may stand in front of the method.
func (c *cursor) classTail(f *Fields, isDir func(string) bool) bool {
	if c.done() {
		return true
	}
	if file, ok := c.accept(isClassFile); ok {
		f.File = file
		return c.done()
	}
	dir, ok := c.accept(isDir)
	if !ok {
		return false
	}
	f.Dir = dir
	if c.done() {
		return true
	}
	if !isSideDir(dir) {
		return false
	}
	method, ok := c.accept(isSelector)
	if !ok {
		return false
	}
	if method != resource.AllProtocols {
		f.Method = method
		return c.done()
	}
	f.Protocol = resource.AllProtocols
	if c.done() {
		return true
	}
	if f.Method, ok = c.accept(isSelector); !ok {
		return false
	}
	return c.done()
}
