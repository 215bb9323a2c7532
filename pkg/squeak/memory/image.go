// Package memory provides an in-process Smalltalk image that answers the
// same queries as a live image behind squeak.Client.
//
// It is used for demos (source type "memory") and as the test double for the
// path-resolution core. Names are escaped and unescaped exactly as the TCP
// client does, so paths that work against Image work against a live image.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/marmos91/squeakfs/pkg/squeak"
)

// RootClass is the class every hierarchy starts from.
const RootClass = "ProtoObject"

// Class describes one class or trait in the image.
type Class struct {
	Name              string   `yaml:"name"`
	Superclass        string   `yaml:"superclass,omitempty"`
	Category          string   `yaml:"category,omitempty"`
	Comment           string   `yaml:"comment,omitempty"`
	Trait             bool     `yaml:"trait,omitempty"`
	InstanceVariables []string `yaml:"instance_variables,omitempty"`
	ClassVariables    []string `yaml:"class_variables,omitempty"`
	Traits            []string `yaml:"traits,omitempty"`

	// Protocols map a protocol name to its methods (selector -> source).
	InstanceProtocols map[string]map[string]string `yaml:"instance_protocols,omitempty"`
	ClassProtocols    map[string]map[string]string `yaml:"class_protocols,omitempty"`
}

func (c *Class) protocols(side squeak.Side) map[string]map[string]string {
	if side == squeak.ClassSide {
		return c.ClassProtocols
	}
	return c.InstanceProtocols
}

func (c *Class) method(side squeak.Side, selector string) (string, bool) {
	for _, methods := range c.protocols(side) {
		if source, ok := methods[selector]; ok {
			return source, true
		}
	}
	return "", false
}

func (c *Class) clone() *Class {
	out := *c
	out.InstanceVariables = slices.Clone(c.InstanceVariables)
	out.ClassVariables = slices.Clone(c.ClassVariables)
	out.Traits = slices.Clone(c.Traits)
	out.InstanceProtocols = cloneProtocols(c.InstanceProtocols)
	out.ClassProtocols = cloneProtocols(c.ClassProtocols)
	return &out
}

func cloneProtocols(in map[string]map[string]string) map[string]map[string]string {
	out := make(map[string]map[string]string, len(in))
	for protocol, methods := range in {
		m := make(map[string]string, len(methods))
		for selector, source := range methods {
			m[selector] = source
		}
		out[protocol] = m
	}
	return out
}

// Image is an in-memory squeak.Source. The zero value is not usable; call New.
//
// Thread Safety:
// All methods are safe for concurrent use. Mutators may run while queries
// are being served, mirroring a live image being edited.
type Image struct {
	mu      sync.RWMutex
	classes map[string]*Class
	down    error
	trace   []string
	tracing bool
}

var _ squeak.Source = (*Image)(nil)

// New returns an image containing only the root class.
func New() *Image {
	img := &Image{classes: make(map[string]*Class)}
	img.classes[RootClass] = &Class{
		Name:     RootClass,
		Category: "Kernel-Objects",
		Comment:  "I am the root of the class hierarchy.",
	}
	return img
}

// AddClass adds or replaces a class. Its superclass and traits must already
// exist; a class without superclass is only allowed for traits.
func (i *Image) AddClass(c Class) error {
	if c.Name == "" {
		return fmt.Errorf("class without a name")
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if c.Superclass != "" {
		if _, ok := i.classes[c.Superclass]; !ok {
			return fmt.Errorf("class %s: unknown superclass %s", c.Name, c.Superclass)
		}
	} else if !c.Trait && c.Name != RootClass {
		return fmt.Errorf("class %s: missing superclass", c.Name)
	}
	for _, trait := range c.Traits {
		t, ok := i.classes[trait]
		if !ok || !t.Trait {
			return fmt.Errorf("class %s: unknown trait %s", c.Name, trait)
		}
	}

	i.classes[c.Name] = c.clone()
	return nil
}

// MustAddClass is AddClass for fixtures built in code; it panics on error.
func (i *Image) MustAddClass(c Class) *Image {
	if err := i.AddClass(c); err != nil {
		panic(err)
	}
	return i
}

// AddMethod files a method under protocol on the given side of class.
func (i *Image) AddMethod(class string, side squeak.Side, protocol, selector, source string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	c, ok := i.classes[class]
	if !ok {
		return fmt.Errorf("unknown class %s", class)
	}

	protocols := &c.InstanceProtocols
	if side == squeak.ClassSide {
		protocols = &c.ClassProtocols
	}
	if *protocols == nil {
		*protocols = make(map[string]map[string]string)
	}
	for _, methods := range *protocols {
		delete(methods, selector)
	}
	if (*protocols)[protocol] == nil {
		(*protocols)[protocol] = make(map[string]string)
	}
	(*protocols)[protocol][selector] = source
	return nil
}

// Recategorize moves class to another category.
func (i *Image) Recategorize(class, category string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	c, ok := i.classes[class]
	if !ok {
		return fmt.Errorf("unknown class %s", class)
	}
	c.Category = category
	return nil
}

// RemoveClass deletes class. Subclasses are left dangling, as in a broken image.
func (i *Image) RemoveClass(class string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.classes, class)
}

// SetUnreachable makes every query fail with a transport error until it is
// called again with nil.
func (i *Image) SetUnreachable(cause error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.down = cause
}

// StartTrace records the name of every query from now on.
func (i *Image) StartTrace() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.tracing = true
	i.trace = nil
}

// Trace returns the queries recorded since StartTrace.
func (i *Image) Trace() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return slices.Clone(i.trace)
}

// begin takes the read lock for a query and records it. The returned
// function releases the lock.
func (i *Image) begin(query string) (func(), error) {
	i.mu.Lock()
	if i.tracing {
		i.trace = append(i.trace, query)
	}
	down := i.down
	i.mu.Unlock()

	if down != nil {
		return nil, &squeak.Error{Code: squeak.ErrTransport, Selector: query, Err: down}
	}

	i.mu.RLock()
	return i.mu.RUnlock, nil
}

func (i *Image) class(selector, name string) (*Class, error) {
	c, ok := i.classes[squeak.UnescapeName(name)]
	if !ok {
		return nil, squeak.RemoteError(selector, "Error: no class named "+name)
	}
	return c, nil
}

func escapedSorted(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, squeak.EscapeName(n))
	}
	sort.Strings(out)
	return out
}

func (i *Image) SuperClass(_ context.Context, class string) (string, error) {
	release, err := i.begin("SuperClass")
	if err != nil {
		return "", err
	}
	defer release()

	c, err := i.class("getSuperClass:", class)
	if err != nil {
		return "", err
	}
	if c.Superclass == "" {
		return "", squeak.RemoteError("getSuperClass:", "Error: "+c.Name+" has no superclass")
	}
	return c.Superclass, nil
}

func (i *Image) DirectSubClasses(_ context.Context, class string) ([]string, error) {
	release, err := i.begin("DirectSubClasses")
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := i.class("getDirectSubClasses:", class)
	if err != nil {
		return nil, err
	}
	return escapedSorted(i.directSubclassesLocked(c.Name)), nil
}

func (i *Image) directSubclassesLocked(name string) []string {
	var subs []string
	for _, c := range i.classes {
		if c.Superclass == name && !c.Trait {
			subs = append(subs, c.Name)
		}
	}
	return subs
}

func (i *Image) SubClasses(_ context.Context, class string) ([]string, error) {
	release, err := i.begin("SubClasses")
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := i.class("getSubClasses:", class)
	if err != nil {
		return nil, err
	}

	var all []string
	queue := i.directSubclassesLocked(c.Name)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		all = append(all, next)
		queue = append(queue, i.directSubclassesLocked(next)...)
	}
	return escapedSorted(all), nil
}

func (i *Image) AllClasses(_ context.Context) ([]string, error) {
	release, err := i.begin("AllClasses")
	if err != nil {
		return nil, err
	}
	defer release()
	return escapedSorted(i.allClassesLocked()), nil
}

func (i *Image) allClassesLocked() []string {
	names := make([]string, 0, len(i.classes))
	for _, c := range i.classes {
		if !c.Trait {
			names = append(names, c.Name)
		}
	}
	return names
}

func (i *Image) NumberOfClasses(_ context.Context) (int, error) {
	release, err := i.begin("NumberOfClasses")
	if err != nil {
		return 0, err
	}
	defer release()
	return len(i.allClassesLocked()), nil
}

func (i *Image) IsClassAvailable(_ context.Context, class string) (bool, error) {
	release, err := i.begin("IsClassAvailable")
	if err != nil {
		return false, err
	}
	defer release()

	_, ok := i.classes[squeak.UnescapeName(class)]
	return ok, nil
}

func (i *Image) ClassComment(_ context.Context, class string) (string, error) {
	release, err := i.begin("ClassComment")
	if err != nil {
		return "", err
	}
	defer release()

	c, err := i.class("getClassComment:", class)
	if err != nil {
		return "", err
	}
	return squeak.NormalizeText(c.Comment), nil
}

func (i *Image) InstanceMembers(_ context.Context, class string) ([]string, error) {
	release, err := i.begin("InstanceMembers")
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := i.class("getInstanceMembers:", class)
	if err != nil {
		return nil, err
	}
	return escapedInOrder(c.InstanceVariables), nil
}

func (i *Image) ClassMembers(_ context.Context, class string) ([]string, error) {
	release, err := i.begin("ClassMembers")
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := i.class("getClassMembers:", class)
	if err != nil {
		return nil, err
	}
	return escapedInOrder(c.ClassVariables), nil
}

// escapedInOrder keeps declaration order, which matters for variables.
func escapedInOrder(names []string) []string {
	out := make([]string, len(names))
	for idx, n := range names {
		out[idx] = squeak.EscapeName(n)
	}
	return out
}
