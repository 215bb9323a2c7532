package resource

import (
	"context"
	"fmt"

	"github.com/marmos91/squeakfs/pkg/squeak"
)

// Guard is one existence or membership precondition of a resource.
// Guards run in order before any content query; the first one that fails
// (or errors) makes the resource not found.
type Guard struct {
	Name  string
	Check func(ctx context.Context, src squeak.Source) (bool, error)
}

// CategoryExists requires category to be defined in the image.
func CategoryExists(category string) Guard {
	return Guard{
		Name: fmt.Sprintf("category %q exists", category),
		Check: func(ctx context.Context, src squeak.Source) (bool, error) {
			return src.IsCategoryAvailable(ctx, category)
		},
	}
}

// ClassExists requires class to be defined in the image.
func ClassExists(class string) Guard {
	return Guard{
		Name: fmt.Sprintf("class %q exists", class),
		Check: func(ctx context.Context, src squeak.Source) (bool, error) {
			return src.IsClassAvailable(ctx, class)
		},
	}
}

// ClassInCategory requires class to currently be filed under category.
func ClassInCategory(category, class string) Guard {
	return Guard{
		Name: fmt.Sprintf("class %q in category %q", class, category),
		Check: func(ctx context.Context, src squeak.Source) (bool, error) {
			return src.IsClassInCategory(ctx, category, class)
		},
	}
}

// ProtocolExists requires protocol to exist on the given side of class.
func ProtocolExists(side squeak.Side, class, protocol string) Guard {
	return Guard{
		Name: fmt.Sprintf("%s protocol %q of %q exists", side, protocol, class),
		Check: func(ctx context.Context, src squeak.Source) (bool, error) {
			return squeak.IsProtocolAvailable(ctx, src, side, class, protocol)
		},
	}
}

// MethodInProtocol requires selector to be filed under protocol.
func MethodInProtocol(side squeak.Side, class, protocol, selector string) Guard {
	return Guard{
		Name: fmt.Sprintf("%s method %q in protocol %q of %q", side, selector, protocol, class),
		Check: func(ctx context.Context, src squeak.Source) (bool, error) {
			return squeak.IsMethodInProtocol(ctx, src, side, class, protocol, selector)
		},
	}
}
