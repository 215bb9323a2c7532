package memory

import (
	"context"

	"github.com/marmos91/squeakfs/pkg/squeak"
)

func (i *Image) methodSource(query, selector string, side squeak.Side, class, method string) (string, error) {
	release, err := i.begin(query)
	if err != nil {
		return "", err
	}
	defer release()

	c, err := i.class(selector, class)
	if err != nil {
		return "", err
	}
	source, ok := c.method(side, squeak.UnescapeName(method))
	if !ok {
		return "", squeak.RemoteError(selector, "Error: "+c.Name+" does not understand #"+method)
	}
	return squeak.NormalizeText(source), nil
}

func (i *Image) InstanceMethod(_ context.Context, class, selector string) (string, error) {
	return i.methodSource("InstanceMethod", "getInstanceMethod:InClass:", squeak.InstanceSide, class, selector)
}

func (i *Image) ClassMethod(_ context.Context, class, selector string) (string, error) {
	return i.methodSource("ClassMethod", "getClassMethod:InClass:", squeak.ClassSide, class, selector)
}

func (i *Image) selectors(query, selector string, side squeak.Side, class string) ([]string, error) {
	release, err := i.begin(query)
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := i.class(selector, class)
	if err != nil {
		return nil, err
	}
	var all []string
	for _, methods := range c.protocols(side) {
		for sel := range methods {
			all = append(all, sel)
		}
	}
	return escapedSorted(all), nil
}

func (i *Image) InstanceMethodsInClass(_ context.Context, class string) ([]string, error) {
	return i.selectors("InstanceMethodsInClass", "getInstanceMethodsInClass:", squeak.InstanceSide, class)
}

func (i *Image) ClassMethodsInClass(_ context.Context, class string) ([]string, error) {
	return i.selectors("ClassMethodsInClass", "getClassMethodsInClass:", squeak.ClassSide, class)
}

func (i *Image) hasMethod(query string, side squeak.Side, class, selector string) (bool, error) {
	release, err := i.begin(query)
	if err != nil {
		return false, err
	}
	defer release()

	c, ok := i.classes[squeak.UnescapeName(class)]
	if !ok {
		return false, nil
	}
	_, ok = c.method(side, squeak.UnescapeName(selector))
	return ok, nil
}

func (i *Image) IsInstanceMethodAvailable(_ context.Context, class, selector string) (bool, error) {
	return i.hasMethod("IsInstanceMethodAvailable", squeak.InstanceSide, class, selector)
}

func (i *Image) IsClassMethodAvailable(_ context.Context, class, selector string) (bool, error) {
	return i.hasMethod("IsClassMethodAvailable", squeak.ClassSide, class, selector)
}

func (i *Image) protocolNames(query, selector string, side squeak.Side, class string) ([]string, error) {
	release, err := i.begin(query)
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := i.class(selector, class)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(c.protocols(side)))
	for name := range c.protocols(side) {
		names = append(names, name)
	}
	return escapedSorted(names), nil
}

func (i *Image) InstanceProtocols(_ context.Context, class string) ([]string, error) {
	return i.protocolNames("InstanceProtocols", "getInstanceProtocols:", squeak.InstanceSide, class)
}

func (i *Image) ClassProtocols(_ context.Context, class string) ([]string, error) {
	return i.protocolNames("ClassProtocols", "getClassProtocols:", squeak.ClassSide, class)
}

func (i *Image) hasProtocol(query string, side squeak.Side, class, protocol string) (bool, error) {
	release, err := i.begin(query)
	if err != nil {
		return false, err
	}
	defer release()

	c, ok := i.classes[squeak.UnescapeName(class)]
	if !ok {
		return false, nil
	}
	_, ok = c.protocols(side)[squeak.UnescapeName(protocol)]
	return ok, nil
}

func (i *Image) IsInstanceProtocolAvailable(_ context.Context, class, protocol string) (bool, error) {
	return i.hasProtocol("IsInstanceProtocolAvailable", squeak.InstanceSide, class, protocol)
}

func (i *Image) IsClassProtocolAvailable(_ context.Context, class, protocol string) (bool, error) {
	return i.hasProtocol("IsClassProtocolAvailable", squeak.ClassSide, class, protocol)
}

func (i *Image) protocolMethods(query, selector string, side squeak.Side, class, protocol string) ([]string, error) {
	release, err := i.begin(query)
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := i.class(selector, class)
	if err != nil {
		return nil, err
	}
	methods, ok := c.protocols(side)[squeak.UnescapeName(protocol)]
	if !ok {
		return nil, squeak.RemoteError(selector, "Error: no protocol "+protocol+" in "+c.Name)
	}
	names := make([]string, 0, len(methods))
	for sel := range methods {
		names = append(names, sel)
	}
	return escapedSorted(names), nil
}

func (i *Image) MethodsInInstanceProtocol(_ context.Context, class, protocol string) ([]string, error) {
	return i.protocolMethods("MethodsInInstanceProtocol", "getMethodsInInstanceProtocol:InClass:", squeak.InstanceSide, class, protocol)
}

func (i *Image) MethodsInClassProtocol(_ context.Context, class, protocol string) ([]string, error) {
	return i.protocolMethods("MethodsInClassProtocol", "getMethodsInClassProtocol:InClass:", squeak.ClassSide, class, protocol)
}

func (i *Image) methodInProtocol(query string, side squeak.Side, class, protocol, selector string) (bool, error) {
	release, err := i.begin(query)
	if err != nil {
		return false, err
	}
	defer release()

	c, ok := i.classes[squeak.UnescapeName(class)]
	if !ok {
		return false, nil
	}
	_, ok = c.protocols(side)[squeak.UnescapeName(protocol)][squeak.UnescapeName(selector)]
	return ok, nil
}

func (i *Image) IsInstanceMethodInProtocol(_ context.Context, class, protocol, selector string) (bool, error) {
	return i.methodInProtocol("IsInstanceMethodInProtocol", squeak.InstanceSide, class, protocol, selector)
}

func (i *Image) IsClassMethodInProtocol(_ context.Context, class, protocol, selector string) (bool, error) {
	return i.methodInProtocol("IsClassMethodInProtocol", squeak.ClassSide, class, protocol, selector)
}

// ============================================================================
// Categories and traits
// ============================================================================

func (i *Image) Categories(_ context.Context) ([]string, error) {
	release, err := i.begin("Categories")
	if err != nil {
		return nil, err
	}
	defer release()

	seen := make(map[string]bool)
	var names []string
	for _, c := range i.classes {
		if c.Category != "" && !seen[c.Category] {
			seen[c.Category] = true
			names = append(names, c.Category)
		}
	}
	return escapedSorted(names), nil
}

func (i *Image) ClassesInCategory(_ context.Context, category string) ([]string, error) {
	release, err := i.begin("ClassesInCategory")
	if err != nil {
		return nil, err
	}
	defer release()

	category = squeak.UnescapeName(category)
	var names []string
	for _, c := range i.classes {
		if c.Category == category {
			names = append(names, c.Name)
		}
	}
	return escapedSorted(names), nil
}

func (i *Image) IsCategoryAvailable(_ context.Context, category string) (bool, error) {
	release, err := i.begin("IsCategoryAvailable")
	if err != nil {
		return false, err
	}
	defer release()

	category = squeak.UnescapeName(category)
	for _, c := range i.classes {
		if c.Category == category {
			return true, nil
		}
	}
	return false, nil
}

func (i *Image) IsClassInCategory(_ context.Context, category, class string) (bool, error) {
	release, err := i.begin("IsClassInCategory")
	if err != nil {
		return false, err
	}
	defer release()

	c, ok := i.classes[squeak.UnescapeName(class)]
	return ok && c.Category == squeak.UnescapeName(category), nil
}

func (i *Image) Traits(_ context.Context, class string) ([]string, error) {
	release, err := i.begin("Traits")
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := i.class("getTraits:", class)
	if err != nil {
		return nil, err
	}
	return escapedSorted(c.Traits), nil
}

func (i *Image) AllTraits(_ context.Context) ([]string, error) {
	release, err := i.begin("AllTraits")
	if err != nil {
		return nil, err
	}
	defer release()

	var names []string
	for _, c := range i.classes {
		if c.Trait {
			names = append(names, c.Name)
		}
	}
	return escapedSorted(names), nil
}

func (i *Image) TraitUsers(_ context.Context, trait string) ([]string, error) {
	release, err := i.begin("TraitUsers")
	if err != nil {
		return nil, err
	}
	defer release()

	t, err := i.class("getTraitUsers:", trait)
	if err != nil {
		return nil, err
	}
	if !t.Trait {
		return nil, squeak.RemoteError("getTraitUsers:", "Error: "+t.Name+" is not a trait")
	}
	var users []string
	for _, c := range i.classes {
		for _, used := range c.Traits {
			if used == t.Name {
				users = append(users, c.Name)
				break
			}
		}
	}
	return escapedSorted(users), nil
}

func (i *Image) IsTrait(_ context.Context, name string) (bool, error) {
	release, err := i.begin("IsTrait")
	if err != nil {
		return false, err
	}
	defer release()

	c, ok := i.classes[squeak.UnescapeName(name)]
	return ok && c.Trait, nil
}

func (i *Image) Ping(_ context.Context) error {
	release, err := i.begin("Ping")
	if err != nil {
		return err
	}
	release()
	return nil
}
