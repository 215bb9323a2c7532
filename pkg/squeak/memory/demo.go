package memory

import (
	"bytes"
	_ "embed"
)

//go:embed demo.yaml
var demoFixture []byte

// Demo returns a small image with a few kernel and collection classes, one
// trait, and methods in several protocols on both sides.
func Demo() *Image {
	img, err := Load(bytes.NewReader(demoFixture))
	if err != nil {
		panic("memory: embedded demo image is invalid: " + err.Error())
	}
	return img
}
