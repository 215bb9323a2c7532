package squeak

import (
	"context"
)

// Wire selectors understood by the SqueakFS service inside the image.
const (
	selSuperClass                  = "getSuperClass:"
	selSubClasses                  = "getSubClasses:"
	selDirectSubClasses            = "getDirectSubClasses:"
	selAllClasses                  = "getAllClasses"
	selNumberOfClasses             = "getNumberOfClasses"
	selInstanceMethod              = "getInstanceMethod:InClass:"
	selClassMethod                 = "getClassMethod:InClass:"
	selCategories                  = "getCategories"
	selClassMembers                = "getClassMembers:"
	selInstanceMembers             = "getInstanceMembers:"
	selInstanceProtocols           = "getInstanceProtocols:"
	selClassProtocols              = "getClassProtocols:"
	selMethodsInInstanceProtocol   = "getMethodsInInstanceProtocol:InClass:"
	selMethodsInClassProtocol      = "getMethodsInClassProtocol:InClass:"
	selClassComment                = "getClassComment:"
	selClassesInCategory           = "getClassesInCategory:"
	selInstanceMethodsInClass      = "getInstanceMethodsInClass:"
	selClassMethodsInClass         = "getClassMethodsInClass:"
	selTraits                      = "getTraits:"
	selAllTraits                   = "getAllTraits"
	selTraitUsers                  = "getTraitUsers:"
	selIsTrait                     = "isTrait:"
	selIsClassAvailable            = "isClassAvailable:"
	selIsInstanceMethodAvailable   = "isInstanceMethodAvailable:inClass:"
	selIsInstanceProtocolAvailable = "isInstanceProtocolAvailable:inClass:"
	selIsClassProtocolAvailable    = "isClassProtocolAvailable:inClass:"
	selIsCategoryAvailable         = "isCategoryAvailable:"
	selIsInstanceMethodInProtocol  = "isInstanceMethod:InProtocol:inClass:"
	selIsClassMethodInProtocol     = "isClassMethod:InProtocol:inClass:"
	selIsClassInCategory           = "isClass:InCategory:"
)

var _ Source = (*Client)(nil)

func (c *Client) text(ctx context.Context, selector string, args ...string) (string, error) {
	payload, err := c.call(ctx, selector, args...)
	if err != nil {
		return "", err
	}
	return NormalizeText(payload), nil
}

func (c *Client) list(ctx context.Context, selector string, args ...string) ([]string, error) {
	payload, err := c.call(ctx, selector, args...)
	if err != nil {
		return nil, err
	}
	return parseList(payload), nil
}

// predicate treats any answer as yes and a remote error as no.
func (c *Client) predicate(ctx context.Context, selector string, args ...string) (bool, error) {
	_, err := c.call(ctx, selector, args...)
	if err == nil {
		return true, nil
	}
	if IsRemote(err) {
		return false, nil
	}
	if code, ok := CodeOf(err); ok && code == ErrInvalidArgument {
		return false, nil
	}
	return false, err
}

func (c *Client) SuperClass(ctx context.Context, class string) (string, error) {
	return c.call(ctx, selSuperClass, class)
}

func (c *Client) DirectSubClasses(ctx context.Context, class string) ([]string, error) {
	return c.list(ctx, selDirectSubClasses, class)
}

func (c *Client) SubClasses(ctx context.Context, class string) ([]string, error) {
	return c.list(ctx, selSubClasses, class)
}

func (c *Client) AllClasses(ctx context.Context) ([]string, error) {
	return c.list(ctx, selAllClasses)
}

func (c *Client) NumberOfClasses(ctx context.Context) (int, error) {
	payload, err := c.call(ctx, selNumberOfClasses)
	if err != nil {
		return 0, err
	}
	return parseInt(selNumberOfClasses, payload)
}

func (c *Client) IsClassAvailable(ctx context.Context, class string) (bool, error) {
	return c.predicate(ctx, selIsClassAvailable, class)
}

func (c *Client) ClassComment(ctx context.Context, class string) (string, error) {
	return c.text(ctx, selClassComment, class)
}

func (c *Client) InstanceMembers(ctx context.Context, class string) ([]string, error) {
	return c.list(ctx, selInstanceMembers, class)
}

func (c *Client) ClassMembers(ctx context.Context, class string) ([]string, error) {
	return c.list(ctx, selClassMembers, class)
}

func (c *Client) InstanceMethod(ctx context.Context, class, selector string) (string, error) {
	return c.text(ctx, selInstanceMethod, selector, class)
}

func (c *Client) ClassMethod(ctx context.Context, class, selector string) (string, error) {
	return c.text(ctx, selClassMethod, selector, class)
}

func (c *Client) InstanceMethodsInClass(ctx context.Context, class string) ([]string, error) {
	return c.list(ctx, selInstanceMethodsInClass, class)
}

func (c *Client) ClassMethodsInClass(ctx context.Context, class string) ([]string, error) {
	return c.list(ctx, selClassMethodsInClass, class)
}

func (c *Client) IsInstanceMethodAvailable(ctx context.Context, class, selector string) (bool, error) {
	return c.predicate(ctx, selIsInstanceMethodAvailable, selector, class)
}

// IsClassMethodAvailable has no dedicated selector in the image service; a
// class method exists when its source can be fetched.
func (c *Client) IsClassMethodAvailable(ctx context.Context, class, selector string) (bool, error) {
	return c.predicate(ctx, selClassMethod, selector, class)
}

func (c *Client) InstanceProtocols(ctx context.Context, class string) ([]string, error) {
	return c.list(ctx, selInstanceProtocols, class)
}

func (c *Client) ClassProtocols(ctx context.Context, class string) ([]string, error) {
	return c.list(ctx, selClassProtocols, class)
}

func (c *Client) IsInstanceProtocolAvailable(ctx context.Context, class, protocol string) (bool, error) {
	return c.predicate(ctx, selIsInstanceProtocolAvailable, protocol, class)
}

func (c *Client) IsClassProtocolAvailable(ctx context.Context, class, protocol string) (bool, error) {
	return c.predicate(ctx, selIsClassProtocolAvailable, protocol, class)
}

func (c *Client) MethodsInInstanceProtocol(ctx context.Context, class, protocol string) ([]string, error) {
	return c.list(ctx, selMethodsInInstanceProtocol, protocol, class)
}

func (c *Client) MethodsInClassProtocol(ctx context.Context, class, protocol string) ([]string, error) {
	return c.list(ctx, selMethodsInClassProtocol, protocol, class)
}

func (c *Client) IsInstanceMethodInProtocol(ctx context.Context, class, protocol, selector string) (bool, error) {
	return c.predicate(ctx, selIsInstanceMethodInProtocol, selector, protocol, class)
}

func (c *Client) IsClassMethodInProtocol(ctx context.Context, class, protocol, selector string) (bool, error) {
	return c.predicate(ctx, selIsClassMethodInProtocol, selector, protocol, class)
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	return c.list(ctx, selCategories)
}

func (c *Client) ClassesInCategory(ctx context.Context, category string) ([]string, error) {
	return c.list(ctx, selClassesInCategory, category)
}

func (c *Client) IsCategoryAvailable(ctx context.Context, category string) (bool, error) {
	return c.predicate(ctx, selIsCategoryAvailable, category)
}

func (c *Client) IsClassInCategory(ctx context.Context, category, class string) (bool, error) {
	return c.predicate(ctx, selIsClassInCategory, class, category)
}

func (c *Client) Traits(ctx context.Context, class string) ([]string, error) {
	return c.list(ctx, selTraits, class)
}

func (c *Client) AllTraits(ctx context.Context) ([]string, error) {
	return c.list(ctx, selAllTraits)
}

func (c *Client) TraitUsers(ctx context.Context, trait string) ([]string, error) {
	return c.list(ctx, selTraitUsers, trait)
}

func (c *Client) IsTrait(ctx context.Context, name string) (bool, error) {
	return c.predicate(ctx, selIsTrait, name)
}

// Ping asks the image for its class count, the cheapest query it serves.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.NumberOfClasses(ctx)
	return err
}
