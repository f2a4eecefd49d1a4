//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestCursor_ReadWrite(t *testing.T) {
	c := NewCursor(nil)
	c.WriteUint8(0x01)
	c.WriteUint16(0x0203)
	c.WriteUint32(0x04050607)
	c.WriteUint64(0x08090a0b0c0d0e0f)
	c.WriteBytes([]byte{0x10, 0x11})
	require.Equal(t, 17, c.Len())
	require.Equal(t, 0, c.Offset())

	u8, err := c.ReadUint8()
	require.NoError(t, err)
	require.Equal(t, uint8(0x01), u8)

	u16, err := c.ReadUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x0203), u16)

	u32, err := c.ReadUint32()
	require.NoError(t, err)
	require.Equal(t, uint32(0x04050607), u32)

	u64, err := c.ReadUint64()
	require.NoError(t, err)
	require.Equal(t, uint64(0x08090a0b0c0d0e0f), u64)

	require.Equal(t, 2, c.Remaining())
	b, err := c.ReadBytes(2)
	require.NoError(t, err)
	require.Equal(t, []byte{0x10, 0x11}, b)
	require.Equal(t, 0, c.Remaining())

	_, err = c.ReadUint8()
	require.True(t, errors.Is(err, ErrShortBuffer))
}

func TestCursor_ShortReads(t *testing.T) {
	tests := []struct {
		name string
		read func(c *Cursor) error
	}{
		{"uint16", func(c *Cursor) error { _, err := c.ReadUint16(); return err }},
		{"uint32", func(c *Cursor) error { _, err := c.ReadUint32(); return err }},
		{"uint64", func(c *Cursor) error { _, err := c.ReadUint64(); return err }},
		{"bytes", func(c *Cursor) error { _, err := c.ReadBytes(2); return err }},
		{"negative bytes", func(c *Cursor) error { _, err := c.ReadBytes(-1); return err }},
		{"peek", func(c *Cursor) error { _, err := c.Peek(2); return err }},
		{"skip", func(c *Cursor) error { return c.Skip(2) }},
		{"sub", func(c *Cursor) error { _, err := c.Sub(2); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCursor([]byte{0xff})
			err := tt.read(c)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrShortBuffer))
			require.Equal(t, 0, c.Offset(), "failed reads must not advance")
		})
	}
}

func TestCursor_PeekAndSub(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3, 4, 5})

	p, err := c.Peek(2)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, p)
	require.Equal(t, 0, c.Offset())

	require.NoError(t, c.Skip(1))
	sub, err := c.Sub(3)
	require.NoError(t, err)
	require.Equal(t, 4, c.Offset())
	require.Equal(t, 3, sub.Len())

	v, err := sub.ReadUint16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x0203), v)

	// the sub-cursor can't read past its end, even though its parent has more
	_, err = sub.ReadUint16()
	require.True(t, errors.Is(err, ErrShortBuffer))
}

func TestCursor_ReadBytesCopies(t *testing.T) {
	src := []byte{1, 2, 3}
	c := NewCursor(src)
	b, err := c.ReadBytes(3)
	require.NoError(t, err)
	src[0] = 9
	require.Equal(t, []byte{1, 2, 3}, b)
}

func TestCursor_PutAt(t *testing.T) {
	c := NewCursor(nil)
	c.WriteUint16(0)
	c.WriteUint32(0)

	require.NoError(t, c.PutUint16At(0, 0xabcd))
	require.NoError(t, c.PutUint32At(2, 0x01020304))
	require.Equal(t, []byte{0xab, 0xcd, 1, 2, 3, 4}, c.Bytes())

	require.True(t, errors.Is(c.PutUint16At(5, 1), ErrShortBuffer))
	require.True(t, errors.Is(c.PutUint32At(3, 1), ErrShortBuffer))
	require.True(t, errors.Is(c.PutUint16At(-1, 1), ErrShortBuffer))
}

func TestCursor_ReadUintWidths(t *testing.T) {
	tests := []struct {
		name   string
		nBytes int
		want   uint64
	}{
		{"one", 1, 0x01},
		{"two", 2, 0x0102},
		{"three", 3, 0x010203},
		{"eight", 8, 0x0102030405060708},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCursor([]byte{1, 2, 3, 4, 5, 6, 7, 8})
			v, err := c.readUint(tt.nBytes)
			require.NoError(t, err)
			require.Equal(t, tt.want, v)
			require.Equal(t, tt.nBytes, c.Offset())

			w := NewCursor(nil)
			w.writeUint(tt.nBytes, tt.want)
			require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}[:tt.nBytes], w.Bytes())
		})
	}

	_, err := NewCursor(make([]byte, 9)).readUint(9)
	require.Error(t, err)
}
