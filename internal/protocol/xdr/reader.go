// Package xdr holds the XDR (RFC 4506) primitives and NFSv3 wire types
// shared by the NFS and MOUNT handlers.
package xdr

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrTooLong is returned when a variable-length item exceeds the bound the
// caller allows for it.
var ErrTooLong = errors.New("xdr: item too long")

// Reader decodes XDR items from a request body.
type Reader struct {
	r *bytes.Reader
}

// NewReader returns a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{r: bytes.NewReader(data)}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return r.r.Len()
}

// Uint32 reads an unsigned int.
func (r *Reader) Uint32() (uint32, error) {
	var v uint32
	if err := binary.Read(r.r, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("read uint32: %w", err)
	}
	return v, nil
}

// Uint64 reads an unsigned hyper.
func (r *Reader) Uint64() (uint64, error) {
	var v uint64
	if err := binary.Read(r.r, binary.BigEndian, &v); err != nil {
		return 0, fmt.Errorf("read uint64: %w", err)
	}
	return v, nil
}

// Bool reads a boolean.
func (r *Reader) Bool() (bool, error) {
	v, err := r.Uint32()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("invalid bool %d", v)
}

// Opaque reads variable-length opaque data of at most max bytes and skips
// its padding.
func (r *Reader) Opaque(max uint32) ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}
	if n > max {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooLong, n, max)
	}
	if int(n) > r.r.Len() {
		return nil, fmt.Errorf("read data: %w", io.ErrUnexpectedEOF)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r.r, data); err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	if pad := Padding(n); pad > 0 {
		if _, err := r.r.Seek(int64(pad), io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("skip padding: %w", err)
		}
	}
	return data, nil
}

// String reads a string of at most max bytes.
func (r *Reader) String(max uint32) (string, error) {
	data, err := r.Opaque(max)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Padding returns the number of zero bytes that follow length bytes of
// opaque data.
func Padding(length uint32) uint32 {
	return (4 - (length % 4)) % 4
}
