package vfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFlat(t *testing.T) {
	tests := []struct {
		path string
		want Fields
		ok   bool
	}{
		{path: "/", want: Fields{}, ok: true},
		{path: "/Object", want: Fields{Class: "Object"}, ok: true},
		{path: "/Object/", want: Fields{Class: "Object"}, ok: true},
		{path: "/Object/comment", want: Fields{Class: "Object", File: "comment"}, ok: true},
		{path: "/Object/instance", want: Fields{Class: "Object", Dir: "instance"}, ok: true},
		{path: "/Object/traits", want: Fields{Class: "Object", Dir: "traits"}, ok: true},
		{path: "/Object/instance/yourself", want: Fields{Class: "Object", Dir: "instance", Method: "yourself"}, ok: true},
		{path: "/Object/class/new:", want: Fields{Class: "Object", Dir: "class", Method: "new:"}, ok: true},
		{path: "/Object/instance/=", want: Fields{Class: "Object", Dir: "instance", Method: "="}, ok: true},
		{path: "/Object/instance/--all--", want: Fields{Class: "Object", Dir: "instance", Protocol: "--all--"}, ok: true},
		{path: "/Object/instance/--all--/", want: Fields{Class: "Object", Dir: "instance", Protocol: "--all--"}, ok: true},
		{path: "/Object/instance/--all--/hash", want: Fields{Class: "Object", Dir: "instance", Protocol: "--all--", Method: "hash"}, ok: true},

		{path: "", ok: false},
		{path: "Object", ok: false},
		{path: "//Object", ok: false},
		{path: "/Object//comment", ok: false},
		{path: "/Object/comment/more", ok: false},
		{path: "/Object/subclasses", ok: false},
		{path: "/Object/traits/TPrintable", ok: false},
		{path: "/Object/instance/a/b", ok: false},
		{path: "/Object/instance/--all--/a/b", ok: false},
		{path: "/Ob ject", ok: false},
		{path: "/Ob-ject", ok: false},
		{path: "/Object/instance/with space", ok: false},
		{path: "/Object/unknown", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := ParseFlat(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseHierarchy(t *testing.T) {
	tests := []struct {
		path string
		want Fields
		ok   bool
	}{
		{path: "/", want: Fields{}, ok: true},
		{path: "/ProtoObject", want: Fields{Class: "ProtoObject"}, ok: true},
		{path: "/ProtoObject/subclasses", want: Fields{Class: "ProtoObject", Dir: "subclasses"}, ok: true},
		{path: "/ProtoObject/subclasses/", want: Fields{Class: "ProtoObject", Dir: "subclasses"}, ok: true},
		{
			path: "/ProtoObject/subclasses/Object",
			want: Fields{Chain: []string{"ProtoObject"}, Class: "Object"},
			ok:   true,
		},
		{
			path: "/ProtoObject/subclasses/Object/subclasses/Magnitude/superclass",
			want: Fields{Chain: []string{"ProtoObject", "Object"}, Class: "Magnitude", File: "superclass"},
			ok:   true,
		},
		{
			path: "/ProtoObject/subclasses/Object/subclasses",
			want: Fields{Chain: []string{"ProtoObject"}, Class: "Object", Dir: "subclasses"},
			ok:   true,
		},
		{
			path: "/ProtoObject/subclasses/Object/instance/yourself",
			want: Fields{Chain: []string{"ProtoObject"}, Class: "Object", Dir: "instance", Method: "yourself"},
			ok:   true,
		},
		{
			path: "/ProtoObject/subclasses/Object/instance/--all--/yourself",
			want: Fields{Chain: []string{"ProtoObject"}, Class: "Object", Dir: "instance", Protocol: "--all--", Method: "yourself"},
			ok:   true,
		},
		{
			path: "/ProtoObject/subclasses/Object/subclasses/Boolean/instance/subclasses",
			want: Fields{Chain: []string{"ProtoObject", "Object"}, Class: "Boolean", Dir: "instance", Method: "subclasses"},
			ok:   true,
		},

		{path: "/ProtoObject/subclasses/Object/subclasses/Magnitude/subclasses/x/y", ok: false},
		{path: "/ProtoObject/subclasses/Object/subclasses/Magnitude/traits/x", ok: false},
		{path: "/ProtoObject/subclasses/Obj ect", ok: false},
		{path: "/ProtoObject/instance/a/b", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := ParseHierarchy(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		path string
		want Fields
		ok   bool
	}{
		{path: "/", want: Fields{}, ok: true},
		{path: "/Kernel-Objects", want: Fields{Category: "Kernel-Objects"}, ok: true},
		{path: "/Kernel Objects", want: Fields{Category: "Kernel Objects"}, ok: true},
		{path: "/Kernel-Objects/Object", want: Fields{Category: "Kernel-Objects", Class: "Object"}, ok: true},
		{
			path: "/Kernel-Objects/Object/comment",
			want: Fields{Category: "Kernel-Objects", Class: "Object", File: "comment"},
			ok:   true,
		},
		{
			path: "/Kernel-Objects/Object/instance",
			want: Fields{Category: "Kernel-Objects", Class: "Object", Dir: "instance"},
			ok:   true,
		},
		{
			path: "/Kernel-Objects/Object/class/instance creation",
			want: Fields{Category: "Kernel-Objects", Class: "Object", Dir: "class", Protocol: "instance creation"},
			ok:   true,
		},
		{
			path: "/Kernel-Objects/Object/class/instance creation/new",
			want: Fields{Category: "Kernel-Objects", Class: "Object", Dir: "class", Protocol: "instance creation", Method: "new"},
			ok:   true,
		},
		{
			path: "/Kernel-Objects/Boolean/instance/logical operations/&",
			want: Fields{Category: "Kernel-Objects", Class: "Boolean", Dir: "instance", Protocol: "logical operations", Method: "&"},
			ok:   true,
		},
		{
			path: "/Kernel-Objects/Object/instance/--all--/hash",
			want: Fields{Category: "Kernel-Objects", Class: "Object", Dir: "instance", Protocol: "--all--", Method: "hash"},
			ok:   true,
		},

		{path: "/Kernel.Objects", ok: false},
		{path: "/Kernel-Objects/Ob ject", ok: false},
		{path: "/Kernel-Objects/Object/subclasses", ok: false},
		{path: "/Kernel-Objects/Object/traits/TPrintable", ok: false},
		{path: "/Kernel-Objects/Object/comment/x", ok: false},
		{path: "/Kernel-Objects/Object/instance/accessing/your self", ok: false},
		{path: "/Kernel-Objects/Object/instance/accessing/yourself/x", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := ParseCategory(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenClasses(t *testing.T) {
	assert.True(t, isClassName("Object_2"))
	assert.False(t, isClassName(""))
	assert.False(t, isClassName("Obj-ect"))
	assert.False(t, isClassName("Объект"))

	for _, sel := range []string{"at:put:", "+", "->", "~=", "<=", ">=", "@", "|", "&", "!", ",", "'", "(", ")", "."} {
		assert.True(t, isSelector(sel), sel)
	}
	assert.False(t, isSelector("at: put:"))
	assert.False(t, isSelector("*"))
	assert.False(t, isSelector(`\\`))

	assert.True(t, isCategoryName("Kernel-Objects"))
	assert.True(t, isCategoryName("Morphic Basic\tExtras"))
	assert.False(t, isCategoryName("Kernel.Objects"))

	assert.True(t, isProtocolName("instance creation"))
	assert.True(t, isProtocolName("--all--"))
	assert.True(t, isProtocolName("private (helpers)"))
	assert.False(t, isProtocolName("a*b"))
}

func TestTraitTarget(t *testing.T) {
	tests := []struct {
		path   string
		target []string
		ok     bool
	}{
		{path: "/flat/Collection/traits/TPrintable/comment", target: []string{"TPrintable", "comment"}, ok: true},
		{path: "/category/Collections-Abstract/Collection/traits/TPrintable", target: []string{"TPrintable"}, ok: true},
		{path: "/flat/A/traits/B/traits/C/superclass", target: []string{"C", "superclass"}, ok: true},
		{path: "/flat/Collection/traits", ok: false},
		{path: "/flat/Collection/instance/traits/TPrintable", ok: false},
		{path: "/flat/Collection/class/traits/x", ok: false},
		{path: "/hierarchy/ProtoObject/subclasses/traits/x", ok: false},
		{path: "/flat/A/traits/B/instance/traits/C", ok: false},
		{path: "/flat/Collection/instance/traits", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			segs, ok := splitPath(tt.path)
			assert.True(t, ok)
			target, ok := traitTarget(segs)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.target, target)
		})
	}
}
