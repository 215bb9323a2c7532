package resource

import (
	"slices"

	"github.com/marmos91/squeakfs/pkg/squeak"
)

// Names of the fixed entries of a class directory.
const (
	EntrySuperclass      = "superclass"
	EntryInstanceMembers = "instancemembers"
	EntryClassMembers    = "classmembers"
	EntryComment         = "comment"
	EntryInstance        = "instance"
	EntryClass           = "class"
	EntryTraits          = "traits"
	EntrySubclasses      = "subclasses"
)

// ClassEntries are the children of a class directory in the flat and
// category views.
var ClassEntries = []string{
	EntrySuperclass, EntryInstanceMembers, EntryClassMembers, EntryComment,
	EntryInstance, EntryClass, EntryTraits,
}

// HierarchyClassEntries add the subclasses directory.
var HierarchyClassEntries = []string{
	EntrySuperclass, EntryInstanceMembers, EntryClassMembers, EntryComment,
	EntryInstance, EntryClass, EntrySubclasses, EntryTraits,
}

var illegal = &Resource{kind: KindIllegal}

// Illegal returns the resource for paths that do not parse. Every
// operation on it reports not found.
func Illegal() *Resource {
	return illegal
}

// Static returns a directory with a fixed list of children.
func Static(entries ...string) *Resource {
	return &Resource{kind: KindStatic, entries: slices.Clone(entries)}
}

// ClassList lists every class in the image.
func ClassList(src squeak.Source) *Resource {
	return &Resource{kind: KindClassList, src: src}
}

// CategoryList lists every class category.
func CategoryList(src squeak.Source) *Resource {
	return &Resource{kind: KindCategoryList, src: src}
}

// Category lists the classes of a category.
func Category(src squeak.Source, category string) *Resource {
	return &Resource{
		kind:   KindCategory,
		coords: Coords{Category: category},
		guards: []Guard{CategoryExists(category)},
		src:    src,
	}
}

// Class is a class directory with the given fixed entries.
func Class(src squeak.Source, class string, entries []string) *Resource {
	return &Resource{
		kind:    KindClass,
		coords:  Coords{Class: class},
		entries: slices.Clone(entries),
		guards:  []Guard{ClassExists(class)},
		src:     src,
	}
}

func classScoped(src squeak.Source, kind Kind, class string) *Resource {
	return &Resource{
		kind:   kind,
		coords: Coords{Class: class},
		guards: []Guard{ClassExists(class)},
		src:    src,
	}
}

// Subclasses lists the direct subclasses of class.
func Subclasses(src squeak.Source, class string) *Resource {
	return classScoped(src, KindSubclasses, class)
}

// Traits lists the traits used by class.
func Traits(src squeak.Source, class string) *Resource {
	return classScoped(src, KindTraits, class)
}

// Methods lists every method selector on one side of class.
func Methods(src squeak.Source, side squeak.Side, class string) *Resource {
	r := classScoped(src, KindMethods, class)
	r.coords.Side = side
	return r
}

// Protocols lists the protocols on one side of class plus --all--.
func Protocols(src squeak.Source, side squeak.Side, class string) *Resource {
	r := classScoped(src, KindProtocols, class)
	r.coords.Side = side
	return r
}

// Protocol lists the methods filed under protocol. Passing AllProtocols
// yields the equivalent Methods resource.
func Protocol(src squeak.Source, side squeak.Side, class, protocol string) *Resource {
	if protocol == AllProtocols {
		r := Methods(src, side, class)
		r.coords.Protocol = AllProtocols
		return r
	}
	return &Resource{
		kind:   KindProtocol,
		coords: Coords{Class: class, Protocol: protocol, Side: side},
		guards: []Guard{ProtocolExists(side, class, protocol)},
		src:    src,
	}
}

// Superclass is the file holding the superclass name.
func Superclass(src squeak.Source, class string) *Resource {
	return &Resource{kind: KindSuperclass, coords: Coords{Class: class}, src: src}
}

// Comment is the file holding the class comment.
func Comment(src squeak.Source, class string) *Resource {
	return &Resource{kind: KindComment, coords: Coords{Class: class}, src: src}
}

// InstanceMembers is the file listing instance variable names.
func InstanceMembers(src squeak.Source, class string) *Resource {
	return &Resource{kind: KindInstanceMembers, coords: Coords{Class: class}, src: src}
}

// ClassMembers is the file listing class variable names.
func ClassMembers(src squeak.Source, class string) *Resource {
	return &Resource{kind: KindClassMembers, coords: Coords{Class: class}, src: src}
}

// Method is the file holding the source of one method.
func Method(src squeak.Source, side squeak.Side, class, selector string) *Resource {
	return &Resource{
		kind:   KindMethod,
		coords: Coords{Class: class, Method: selector, Side: side},
		src:    src,
	}
}

// ============================================================================
// Scoping
// ============================================================================

// InProtocol returns a copy of a method resource that additionally requires
// the method to be filed under protocol. AllProtocols adds no requirement.
func (r *Resource) InProtocol(protocol string) *Resource {
	if r.kind != KindMethod {
		return r
	}
	out := r.clone()
	out.coords.Protocol = protocol
	if protocol != AllProtocols {
		out.guards = append(out.guards, MethodInProtocol(r.coords.Side, r.coords.Class, protocol, r.coords.Method))
	}
	return out
}

// InCategory returns a copy that first requires the class to be a member of
// category. The membership check precedes every other guard, so a class
// outside the category is rejected before protocol queries are made.
func (r *Resource) InCategory(category string) *Resource {
	if r.kind == KindIllegal || r.coords.Class == "" {
		return r
	}
	out := r.clone()
	out.coords.Category = category
	out.guards = append([]Guard{ClassInCategory(category, r.coords.Class)}, r.guards...)
	return out
}

func (r *Resource) clone() *Resource {
	out := *r
	out.entries = slices.Clone(r.entries)
	out.guards = slices.Clone(r.guards)
	return &out
}
