package vfs

import "github.com/marmos91/squeakfs/pkg/resource"

// traitTarget finds a trait access in the segments of a full path and
// returns the flat-view segments it redirects to: everything after the last
// "traits" segment. A traits segment directly below instance, class or
// subclasses is a method or class name rather than a trait access, and
// disables redirection for the whole path.
func traitTarget(segs []string) ([]string, bool) {
	at := -1
	for i := 0; i+1 < len(segs); i++ {
		if segs[i] != resource.EntryTraits {
			continue
		}
		if i > 0 && nestsTraits(segs[i-1]) {
			return nil, false
		}
		at = i
	}
	if at < 0 {
		return nil, false
	}
	return segs[at+1:], true
}

func nestsTraits(parent string) bool {
	return isSideDir(parent) || parent == resource.EntrySubclasses
}
