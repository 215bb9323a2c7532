package squeak

import (
	"context"
)

// ============================================================================
// Source Interface
// ============================================================================

// Source is the query surface of a live Smalltalk image.
//
// Every call is a fresh question to the image; implementations must not
// cache answers, because classes, categories and methods change while the
// image runs.
//
// Argument order follows Go conventions (class before protocol before
// selector, category before class). Implementations that talk to a remote
// image translate to the wire order themselves.
//
// Error model:
//   - Lookup queries return a *Error with code ErrRemote when the image
//     rejects the request (unknown class, unknown method...).
//   - Predicate queries (Is*) return false, nil when the image says no, and
//     only return an error for transport failures.
//   - Any query may return a *Error with code ErrTransport or ErrProtocol.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type Source interface {
	// ========================================================================
	// Class Hierarchy
	// ========================================================================

	// SuperClass returns the name of the immediate superclass of class.
	SuperClass(ctx context.Context, class string) (string, error)

	// DirectSubClasses returns the immediate subclasses of class.
	DirectSubClasses(ctx context.Context, class string) ([]string, error)

	// SubClasses returns every transitive subclass of class.
	SubClasses(ctx context.Context, class string) ([]string, error)

	// AllClasses returns the name of every class in the image.
	AllClasses(ctx context.Context) ([]string, error)

	// NumberOfClasses returns how many classes AllClasses would list.
	NumberOfClasses(ctx context.Context) (int, error)

	// IsClassAvailable reports whether class exists.
	IsClassAvailable(ctx context.Context, class string) (bool, error)

	// ========================================================================
	// Class Content
	// ========================================================================

	// ClassComment returns the class comment with newlines normalized and a
	// trailing newline appended.
	ClassComment(ctx context.Context, class string) (string, error)

	// InstanceMembers returns the instance variable names of class.
	InstanceMembers(ctx context.Context, class string) ([]string, error)

	// ClassMembers returns the class variable names of class.
	ClassMembers(ctx context.Context, class string) ([]string, error)

	// ========================================================================
	// Methods and Protocols
	// ========================================================================

	// InstanceMethod returns the source of an instance method, normalized
	// like ClassComment.
	InstanceMethod(ctx context.Context, class, selector string) (string, error)

	// ClassMethod returns the source of a class-side method.
	ClassMethod(ctx context.Context, class, selector string) (string, error)

	InstanceMethodsInClass(ctx context.Context, class string) ([]string, error)
	ClassMethodsInClass(ctx context.Context, class string) ([]string, error)

	IsInstanceMethodAvailable(ctx context.Context, class, selector string) (bool, error)
	IsClassMethodAvailable(ctx context.Context, class, selector string) (bool, error)

	// InstanceProtocols lists the instance-side protocols of class. The
	// synthetic "--all--" protocol is never part of the answer.
	InstanceProtocols(ctx context.Context, class string) ([]string, error)
	ClassProtocols(ctx context.Context, class string) ([]string, error)

	IsInstanceProtocolAvailable(ctx context.Context, class, protocol string) (bool, error)
	IsClassProtocolAvailable(ctx context.Context, class, protocol string) (bool, error)

	MethodsInInstanceProtocol(ctx context.Context, class, protocol string) ([]string, error)
	MethodsInClassProtocol(ctx context.Context, class, protocol string) ([]string, error)

	IsInstanceMethodInProtocol(ctx context.Context, class, protocol, selector string) (bool, error)
	IsClassMethodInProtocol(ctx context.Context, class, protocol, selector string) (bool, error)

	// ========================================================================
	// Categories
	// ========================================================================

	Categories(ctx context.Context) ([]string, error)
	ClassesInCategory(ctx context.Context, category string) ([]string, error)
	IsCategoryAvailable(ctx context.Context, category string) (bool, error)

	// IsClassInCategory reports whether class is currently filed under category.
	IsClassInCategory(ctx context.Context, category, class string) (bool, error)

	// ========================================================================
	// Traits
	// ========================================================================

	// Traits returns the traits used by class.
	Traits(ctx context.Context, class string) ([]string, error)
	AllTraits(ctx context.Context) ([]string, error)

	// TraitUsers returns the classes and traits that use trait.
	TraitUsers(ctx context.Context, trait string) ([]string, error)
	IsTrait(ctx context.Context, name string) (bool, error)

	// Ping checks that the image answers at all.
	Ping(ctx context.Context) error
}

// Side selects between the instance side and the class side of a class.
type Side int

const (
	InstanceSide Side = iota
	ClassSide
)

func (s Side) String() string {
	if s == ClassSide {
		return "class"
	}
	return "instance"
}

// Method fetches the source of selector on the given side.
func Method(ctx context.Context, src Source, side Side, class, selector string) (string, error) {
	if side == ClassSide {
		return src.ClassMethod(ctx, class, selector)
	}
	return src.InstanceMethod(ctx, class, selector)
}

// MethodsIn lists every method selector on the given side.
func MethodsIn(ctx context.Context, src Source, side Side, class string) ([]string, error) {
	if side == ClassSide {
		return src.ClassMethodsInClass(ctx, class)
	}
	return src.InstanceMethodsInClass(ctx, class)
}

// Protocols lists the protocols on the given side.
func Protocols(ctx context.Context, src Source, side Side, class string) ([]string, error) {
	if side == ClassSide {
		return src.ClassProtocols(ctx, class)
	}
	return src.InstanceProtocols(ctx, class)
}

// MethodsInProtocol lists the selectors filed under protocol on the given side.
func MethodsInProtocol(ctx context.Context, src Source, side Side, class, protocol string) ([]string, error) {
	if side == ClassSide {
		return src.MethodsInClassProtocol(ctx, class, protocol)
	}
	return src.MethodsInInstanceProtocol(ctx, class, protocol)
}

// IsProtocolAvailable reports whether protocol exists on the given side.
func IsProtocolAvailable(ctx context.Context, src Source, side Side, class, protocol string) (bool, error) {
	if side == ClassSide {
		return src.IsClassProtocolAvailable(ctx, class, protocol)
	}
	return src.IsInstanceProtocolAvailable(ctx, class, protocol)
}

// IsMethodInProtocol reports whether selector is filed under protocol.
func IsMethodInProtocol(ctx context.Context, src Source, side Side, class, protocol, selector string) (bool, error) {
	if side == ClassSide {
		return src.IsClassMethodInProtocol(ctx, class, protocol, selector)
	}
	return src.IsInstanceMethodInProtocol(ctx, class, protocol, selector)
}
