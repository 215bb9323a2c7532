package resource

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/marmos91/squeakfs/internal/logger"
	"github.com/marmos91/squeakfs/pkg/squeak"
)

// AllProtocols is the synthetic protocol holding every method of a side.
// The image never reports it as a real protocol.
const AllProtocols = "--all--"

// Coords are the identifying parameters of a resource. Which fields are
// meaningful depends on the kind.
type Coords struct {
	Category string
	Class    string
	Protocol string
	Method   string
	Side     squeak.Side
}

// Resource is a parsed filesystem entry bound to the image it describes.
//
// Resources are immutable and hold no state besides their coordinates, so
// they are built per request and may be shared between goroutines. Every
// operation re-queries the image; nothing is cached.
//
// All four operations are total: they return either a value or an *Error.
type Resource struct {
	kind    Kind
	coords  Coords
	entries []string
	guards  []Guard
	src     squeak.Source
}

// Kind returns the resource variant.
func (r *Resource) Kind() Kind {
	return r.kind
}

// Coords returns the identifying parameters.
func (r *Resource) Coords() Coords {
	return r.coords
}

// Guards returns the names of the preconditions, in evaluation order.
func (r *Resource) Guards() []string {
	names := make([]string, len(r.guards))
	for i, g := range r.guards {
		names[i] = g.Name
	}
	return names
}

func (r *Resource) String() string {
	var parts []string
	if r.coords.Category != "" {
		parts = append(parts, "category="+r.coords.Category)
	}
	if r.coords.Class != "" {
		parts = append(parts, "class="+r.coords.Class)
	}
	if r.coords.Protocol != "" {
		parts = append(parts, "protocol="+r.coords.Protocol)
	}
	if r.coords.Method != "" {
		parts = append(parts, "method="+r.coords.Method)
	}
	switch r.kind {
	case KindMethods, KindProtocols, KindProtocol, KindMethod:
		parts = append(parts, "side="+r.coords.Side.String())
	}
	return fmt.Sprintf("%s{%s}", r.kind, strings.Join(parts, " "))
}

// ============================================================================
// Operations
// ============================================================================

// Attributes confirms the resource exists and returns its attributes.
func (r *Resource) Attributes(ctx context.Context) (Attr, error) {
	if err := r.check(ctx); err != nil {
		return Attr{}, err
	}

	switch r.kind {
	case KindStatic, KindClass:
		return DirAttr(len(r.entries) + 2), nil

	case KindClassList:
		n, err := r.src.NumberOfClasses(ctx)
		if err != nil {
			return Attr{}, r.fail("count classes", err)
		}
		return DirAttr(n + 2), nil

	case KindProtocols:
		protocols, err := squeak.Protocols(ctx, r.src, r.coords.Side, r.coords.Class)
		if err != nil {
			return Attr{}, r.fail("list protocols", err)
		}
		// One extra link for the synthetic --all-- entry.
		return DirAttr(len(protocols) + 3), nil
	}

	if r.kind.IsDir() {
		children, err := r.children(ctx)
		if err != nil {
			return Attr{}, err
		}
		return DirAttr(len(children) + 2), nil
	}

	content, err := r.content(ctx)
	if err != nil {
		return Attr{}, err
	}
	return FileAttr(len(content)), nil
}

// List returns the names of the children of a directory resource.
func (r *Resource) List(ctx context.Context) ([]string, error) {
	if !r.kind.IsDir() {
		return nil, notFound(r.String() + " is not a directory")
	}
	if err := r.check(ctx); err != nil {
		return nil, err
	}
	return r.children(ctx)
}

// accessModeMask selects the access mode bits of open(2) flags.
const accessModeMask = os.O_RDONLY | os.O_WRONLY | os.O_RDWR

// Open checks that the file resource may be opened with flags. Only
// read-only access is allowed; directories are not found. No query is made.
func (r *Resource) Open(flags int) error {
	if r.kind == KindIllegal {
		return notFound("illegal path")
	}
	if !r.kind.IsFile() {
		return notFound(r.String() + " is not a file")
	}
	if flags&accessModeMask != os.O_RDONLY {
		return &Error{Code: ErrPermissionDenied, Message: "read-only filesystem: " + r.String()}
	}
	return nil
}

// Read returns up to size bytes of the file content starting at offset. The
// content is fetched from the image on every call.
func (r *Resource) Read(ctx context.Context, size, offset int64) ([]byte, error) {
	if !r.kind.IsFile() {
		return nil, notFound(r.String() + " is not a file")
	}
	if err := r.check(ctx); err != nil {
		return nil, err
	}

	content, err := r.content(ctx)
	if err != nil {
		return nil, err
	}
	return Extract([]byte(content), size, offset), nil
}

// ============================================================================
// Dispatch helpers
// ============================================================================

// check evaluates the guards in order.
func (r *Resource) check(ctx context.Context) error {
	if r.kind == KindIllegal {
		return notFound("illegal path")
	}
	for _, g := range r.guards {
		ok, err := g.Check(ctx, r.src)
		if err != nil {
			return r.fail("check "+g.Name, err)
		}
		if !ok {
			logger.Debug("%s: precondition failed: %s", r, g.Name)
			return notFound(r.String() + ": " + g.Name + " does not hold")
		}
	}
	return nil
}

func (r *Resource) children(ctx context.Context) ([]string, error) {
	var (
		names []string
		err   error
	)

	c := r.coords
	switch r.kind {
	case KindStatic, KindClass:
		return slices.Clone(r.entries), nil
	case KindClassList:
		names, err = r.src.AllClasses(ctx)
	case KindCategoryList:
		names, err = r.src.Categories(ctx)
	case KindCategory:
		names, err = r.src.ClassesInCategory(ctx, c.Category)
	case KindSubclasses:
		names, err = r.src.DirectSubClasses(ctx, c.Class)
	case KindTraits:
		names, err = r.src.Traits(ctx, c.Class)
	case KindMethods:
		names, err = squeak.MethodsIn(ctx, r.src, c.Side, c.Class)
	case KindProtocols:
		names, err = squeak.Protocols(ctx, r.src, c.Side, c.Class)
		if err == nil {
			names = append(names, AllProtocols)
		}
	case KindProtocol:
		names, err = squeak.MethodsInProtocol(ctx, r.src, c.Side, c.Class, c.Protocol)
	default:
		return nil, notFound(r.String() + " is not a directory")
	}

	if err != nil {
		return nil, r.fail("list", err)
	}
	return names, nil
}

func (r *Resource) content(ctx context.Context) (string, error) {
	var (
		text string
		err  error
	)

	c := r.coords
	switch r.kind {
	case KindSuperclass:
		text, err = r.src.SuperClass(ctx, c.Class)
		text += "\n"
	case KindComment:
		text, err = r.src.ClassComment(ctx, c.Class)
	case KindInstanceMembers:
		var members []string
		members, err = r.src.InstanceMembers(ctx, c.Class)
		text = joinLines(members)
	case KindClassMembers:
		var members []string
		members, err = r.src.ClassMembers(ctx, c.Class)
		text = joinLines(members)
	case KindMethod:
		text, err = squeak.Method(ctx, r.src, c.Side, c.Class, c.Method)
	default:
		return "", notFound(r.String() + " is not a file")
	}

	if err != nil {
		return "", r.fail("fetch", err)
	}
	return text, nil
}

// joinLines renders a member list one name per line with a final newline.
func joinLines(names []string) string {
	return strings.Join(names, "\n") + "\n"
}

// fail logs a failed query and converts it to a not-found error. Refusals
// from the image are routine; transport problems are worth a warning.
func (r *Resource) fail(op string, err error) *Error {
	if squeak.IsRemote(err) {
		logger.Debug("%s: %s: %v", r, op, err)
	} else {
		logger.Warn("%s: %s: %v", r, op, err)
	}
	return notFound(fmt.Sprintf("%s: %s failed", r, op))
}
