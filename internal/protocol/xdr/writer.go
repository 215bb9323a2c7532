package xdr

import (
	"bytes"
	"encoding/binary"
	"fmt"

	xdr2 "github.com/rasky/go-xdr/xdr2"
)

// Writer encodes XDR items into a reply body.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the encoded body.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *Writer) Uint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) Uint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *Writer) Bool(v bool) {
	if v {
		w.Uint32(1)
		return
	}
	w.Uint32(0)
}

// Opaque writes variable-length opaque data followed by its padding.
func (w *Writer) Opaque(data []byte) {
	n := uint32(len(data))
	w.Uint32(n)
	w.buf.Write(data)
	for range Padding(n) {
		w.buf.WriteByte(0)
	}
}

func (w *Writer) String(s string) {
	w.Opaque([]byte(s))
}

// Fixed writes opaque data of a length both sides agree on.
func (w *Writer) Fixed(data []byte) {
	w.buf.Write(data)
	for range Padding(uint32(len(data))) {
		w.buf.WriteByte(0)
	}
}

// Struct marshals a fixed-layout struct made of unsigned integers and
// nested structs of the same.
func (w *Writer) Struct(v any) error {
	if _, err := xdr2.Marshal(&w.buf, v); err != nil {
		return fmt.Errorf("marshal %T: %w", v, err)
	}
	return nil
}
