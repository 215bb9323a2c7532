package memory

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Fixture is the YAML layout of an image snapshot.
//
//	classes:
//	  - name: Object
//	    superclass: ProtoObject
//	    category: Kernel-Objects
//	    comment: I am the root of most classes.
//	    instance_protocols:
//	      accessing:
//	        yourself: "yourself\r\t^ self"
//
// Classes may be listed in any order; superclasses and traits are resolved
// after the whole document is read.
type Fixture struct {
	Classes []Class `yaml:"classes"`
}

// Load reads a YAML fixture into a new image.
func Load(r io.Reader) (*Image, error) {
	var fixture Fixture
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fixture); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode image fixture: %w", err)
	}
	return FromFixture(fixture)
}

// LoadFile reads a YAML fixture from path.
func LoadFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image fixture: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Load(f)
}

// FromFixture builds an image, adding classes once their superclass and
// traits are known.
func FromFixture(fixture Fixture) (*Image, error) {
	img := New()
	pending := fixture.Classes

	for len(pending) > 0 {
		var next []Class
		for _, c := range pending {
			if !img.resolvable(c) {
				next = append(next, c)
				continue
			}
			if err := img.AddClass(c); err != nil {
				return nil, err
			}
		}
		if len(next) == len(pending) {
			return nil, fmt.Errorf("image fixture: cannot resolve superclass or traits of %s", next[0].Name)
		}
		pending = next
	}
	return img, nil
}

func (i *Image) resolvable(c Class) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if c.Superclass != "" {
		if _, ok := i.classes[c.Superclass]; !ok {
			return false
		}
	}
	for _, t := range c.Traits {
		if _, ok := i.classes[t]; !ok {
			return false
		}
	}
	return true
}

// Snapshot exports the image as a fixture, sorted by class name.
func (i *Image) Snapshot() Fixture {
	i.mu.RLock()
	defer i.mu.RUnlock()

	names := make([]string, 0, len(i.classes))
	for name := range i.classes {
		names = append(names, name)
	}
	sort.Strings(names)

	var fixture Fixture
	for _, name := range names {
		if name == RootClass {
			continue
		}
		fixture.Classes = append(fixture.Classes, *i.classes[name].clone())
	}
	return fixture
}
