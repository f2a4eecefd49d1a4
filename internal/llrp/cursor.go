//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrShortBuffer is returned when a read would run past the end of a Cursor.
var ErrShortBuffer = errors.New("not enough data")

// Cursor is a bounds-checked big-endian reader and writer over a byte slice.
//
// Reads start at the current offset and advance it.
// Writes always append to the end of the underlying slice,
// and the Put*At methods overwrite bytes already written,
// which is how length fields are filled in after a payload is known.
type Cursor struct {
	buf []byte
	off int
}

// NewCursor returns a Cursor positioned at the start of b.
func NewCursor(b []byte) *Cursor {
	return &Cursor{buf: b}
}

// Bytes returns the full underlying slice.
func (c *Cursor) Bytes() []byte { return c.buf }

// Len returns the total number of bytes in the underlying slice.
func (c *Cursor) Len() int { return len(c.buf) }

// Offset returns the current read offset.
func (c *Cursor) Offset() int { return c.off }

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int { return len(c.buf) - c.off }

func (c *Cursor) need(n int) error {
	if n < 0 || c.Remaining() < n {
		return errors.Wrapf(ErrShortBuffer, "need %d byte(s) at offset %d, but only %d remain",
			n, c.off, c.Remaining())
	}
	return nil
}

// Peek returns the next n bytes without advancing.
// The result aliases the Cursor's buffer.
func (c *Cursor) Peek(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	return c.buf[c.off : c.off+n], nil
}

// Skip advances the read offset by n bytes.
func (c *Cursor) Skip(n int) error {
	if err := c.need(n); err != nil {
		return err
	}
	c.off += n
	return nil
}

// Sub returns a new Cursor over the next n bytes and advances past them.
func (c *Cursor) Sub(n int) (*Cursor, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	sub := &Cursor{buf: c.buf[c.off : c.off+n]}
	c.off += n
	return sub, nil
}

// ReadBytes returns a copy of the next n bytes.
func (c *Cursor) ReadBytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, c.buf[c.off:])
	c.off += n
	return b, nil
}

func (c *Cursor) ReadUint8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.buf[c.off]
	c.off++
	return v, nil
}

func (c *Cursor) ReadUint16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(c.buf[c.off:])
	c.off += 2
	return v, nil
}

func (c *Cursor) ReadUint32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(c.buf[c.off:])
	c.off += 4
	return v, nil
}

func (c *Cursor) ReadUint64() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(c.buf[c.off:])
	c.off += 8
	return v, nil
}

// readUint reads an nBytes-wide unsigned integer, most significant byte first.
func (c *Cursor) readUint(nBytes int) (uint64, error) {
	if nBytes > 8 {
		return 0, errors.Errorf("unsupported integer size: %d bytes", nBytes)
	}
	if err := c.need(nBytes); err != nil {
		return 0, err
	}

	var v uint64
	for _, b := range c.buf[c.off : c.off+nBytes] {
		v = v<<8 | uint64(b)
	}
	c.off += nBytes
	return v, nil
}

func (c *Cursor) WriteBytes(b []byte) { c.buf = append(c.buf, b...) }
func (c *Cursor) WriteUint8(v uint8)  { c.buf = append(c.buf, v) }

func (c *Cursor) WriteUint16(v uint16) {
	c.buf = append(c.buf, byte(v>>8), byte(v))
}

func (c *Cursor) WriteUint32(v uint32) {
	c.buf = append(c.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func (c *Cursor) WriteUint64(v uint64) {
	c.WriteUint32(uint32(v >> 32))
	c.WriteUint32(uint32(v))
}

// writeUint writes the low nBytes of v, most significant byte first.
func (c *Cursor) writeUint(nBytes int, v uint64) {
	for i := nBytes - 1; i >= 0; i-- {
		c.buf = append(c.buf, byte(v>>(8*uint(i))))
	}
}

// PutUint16At overwrites two already-written bytes at off.
func (c *Cursor) PutUint16At(off int, v uint16) error {
	if off < 0 || off+2 > len(c.buf) {
		return errors.Wrapf(ErrShortBuffer, "cannot put uint16 at offset %d of %d", off, len(c.buf))
	}
	binary.BigEndian.PutUint16(c.buf[off:], v)
	return nil
}

// PutUint32At overwrites four already-written bytes at off.
func (c *Cursor) PutUint32At(off int, v uint32) error {
	if off < 0 || off+4 > len(c.buf) {
		return errors.Wrapf(ErrShortBuffer, "cannot put uint32 at offset %d of %d", off, len(c.buf))
	}
	binary.BigEndian.PutUint32(c.buf[off:], v)
	return nil
}
