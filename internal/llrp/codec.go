//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const (
	tlvTypeMask   = 0x03FF
	tvFlag        = 0x80
	tvTypeMask    = 0x7F
	tlvHeaderSize = 4
	// customHeaderSize is a TLV header plus a vendor PEN and a 4-byte subtype.
	customHeaderSize = 12
)

// EncodeMessage serializes m, including its header.
// The header's length field is computed from the encoded payload.
func (r *Registry) EncodeMessage(m *Message) ([]byte, error) {
	if m == nil {
		return nil, encErr("message", "nil message")
	}

	d, ok := r.Message(m.Name)
	if !ok {
		return nil, encErr(m.Name, "unknown message")
	}

	if m.Version == 0 || m.Version > 7 {
		return nil, encErr(m.Name, "version %d doesn't fit in [1, 7]", m.Version)
	}

	c := NewCursor(make([]byte, 0, 64))
	c.WriteUint16(uint16(m.Version)<<10 | d.Type)
	c.WriteUint32(0) // length, filled in below
	c.WriteUint32(m.ID)
	if d.IsCustom() {
		c.WriteUint32(uint32(d.Vendor))
		c.WriteUint8(uint8(d.Subtype))
	}

	if err := r.encodeFields(c, d, m.Fields, m.Name); err != nil {
		return nil, err
	}

	if uint64(c.Len()) > math.MaxUint32 {
		return nil, encErr(m.Name, "message length %d exceeds the maximum", c.Len())
	}
	if err := c.PutUint32At(2, uint32(c.Len())); err != nil {
		return nil, err
	}
	return c.Bytes(), nil
}

// EncodeParameter serializes p, including its header.
func (r *Registry) EncodeParameter(p *Parameter) ([]byte, error) {
	c := NewCursor(make([]byte, 0, 32))
	name := "parameter"
	if p != nil {
		name = p.Name
	}
	if err := r.encodeParam(c, p, name); err != nil {
		return nil, err
	}
	return c.Bytes(), nil
}

func (r *Registry) encodeParam(c *Cursor, p *Parameter, path string) error {
	if p == nil {
		return encErr(path, "nil parameter")
	}

	d, ok := r.Param(p.Name)
	if !ok {
		return encErr(path, "unknown parameter %q", p.Name)
	}

	if d.Encoding == TV {
		c.WriteUint8(tvFlag | uint8(d.Type))
		return r.encodeFields(c, d, p.Fields, path)
	}

	start := c.Len()
	c.WriteUint16(d.Type)
	c.WriteUint16(0) // length, filled in below
	if d.IsCustom() {
		c.WriteUint32(uint32(d.Vendor))
		c.WriteUint32(d.Subtype)
	}

	if err := r.encodeFields(c, d, p.Fields, path); err != nil {
		return err
	}

	n := c.Len() - start
	if n > math.MaxUint16 {
		return encErr(path, "encoded length %d exceeds %d", n, math.MaxUint16)
	}
	return c.PutUint16At(start+2, uint16(n))
}

func (r *Registry) encodeFields(c *Cursor, d *Descriptor, fields Fields, path string) error {
	known := make(map[string]bool, len(d.Fields))
	for i := range d.Fields {
		fs := &d.Fields[i]
		if fs.Kind == KindReserved {
			c.WriteBytes(make([]byte, fs.Width/8))
			continue
		}

		known[fs.Name] = true
		v, _ := fields.Get(fs.Name)
		if err := r.encodeField(c, fs, v, path+"."+fs.Name); err != nil {
			return err
		}
	}

	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if !known[f.Name] {
			return encErr(path, "%s has no field %q", d.Name, f.Name)
		}
		if seen[f.Name] {
			return encErr(path, "duplicate field %q", f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

func (r *Registry) encodeField(c *Cursor, fs *FieldSpec, v Value, path string) error {
	if v == nil {
		switch {
		case fs.Kind == KindBits:
			// Unset flags are zero.
			v = Bits(nil)
		case fs.Kind == KindParam && fs.Optional,
			fs.Kind == KindParams && fs.Optional:
			return nil
		case fs.Kind == KindParam, fs.Kind == KindParams:
			return encErr(path, "missing required parameter")
		default:
			return encErr(path, "missing required field")
		}
	}

	wrongType := func() error {
		return encErr(path, "unexpected value type %T", v)
	}

	switch fs.Kind {
	case KindUint:
		u, ok := v.(Uint)
		if !ok {
			return wrongType()
		}
		if fs.Width < 64 && uint64(u) >= 1<<uint(fs.Width) {
			return encErr(path, "%d overflows %d bits", u, fs.Width)
		}
		c.writeUint(fs.Width/8, uint64(u))

	case KindInt:
		i, ok := v.(Int)
		if !ok {
			return wrongType()
		}
		if fs.Width < 64 {
			limit := int64(1) << uint(fs.Width-1)
			if int64(i) < -limit || int64(i) >= limit {
				return encErr(path, "%d overflows %d signed bits", i, fs.Width)
			}
		}
		c.writeUint(fs.Width/8, uint64(i))

	case KindBits:
		b, ok := v.(Bits)
		if !ok {
			return wrongType()
		}
		word, err := packBits(fs, b, path)
		if err != nil {
			return err
		}
		c.writeUint(fs.Width/8, word)

	case KindFixedBytes:
		b, ok := v.(Bytes)
		if !ok {
			return wrongType()
		}
		if len(b) != fs.Width/8 {
			return encErr(path, "need exactly %d bytes, not %d", fs.Width/8, len(b))
		}
		c.WriteBytes(b)

	case KindBytes, KindString, KindBitVector:
		var data []byte
		switch val := v.(type) {
		case Bytes:
			if fs.Kind == KindString {
				return wrongType()
			}
			data = val
		case String:
			if fs.Kind != KindString {
				return wrongType()
			}
			if !utf8.ValidString(string(val)) {
				return encErr(path, "invalid UTF-8")
			}
			data = []byte(val)
		default:
			return wrongType()
		}

		count := len(data)
		if fs.Kind == KindBitVector {
			count *= 8
		}
		if count > math.MaxUint16 {
			return encErr(path, "length %d exceeds %d", count, math.MaxUint16)
		}
		c.WriteUint16(uint16(count))
		c.WriteBytes(data)

	case KindUint16s:
		u, ok := v.(Uint16s)
		if !ok {
			return wrongType()
		}
		if len(u) > math.MaxUint16 {
			return encErr(path, "%d items exceed %d", len(u), math.MaxUint16)
		}
		c.WriteUint16(uint16(len(u)))
		for _, x := range u {
			c.WriteUint16(x)
		}

	case KindUint32s:
		u, ok := v.(Uint32s)
		if !ok {
			return wrongType()
		}
		if len(u) > math.MaxUint16 {
			return encErr(path, "%d items exceed %d", len(u), math.MaxUint16)
		}
		c.WriteUint16(uint16(len(u)))
		for _, x := range u {
			c.WriteUint32(x)
		}

	case KindRemaining:
		b, ok := v.(Bytes)
		if !ok {
			return wrongType()
		}
		c.WriteBytes(b)

	case KindParam:
		p, ok := v.(*Parameter)
		if !ok {
			return wrongType()
		}
		if err := r.checkAllowed(fs, p, path); err != nil {
			return err
		}
		return r.encodeParam(c, p, path)

	case KindParams:
		ps, ok := v.(Parameters)
		if !ok {
			return wrongType()
		}
		if len(ps) == 0 && !fs.Optional {
			return encErr(path, "requires at least one parameter")
		}
		for i, p := range ps {
			ppath := fmt.Sprintf("%s[%d]", path, i)
			if err := r.checkAllowed(fs, p, ppath); err != nil {
				return err
			}
			if err := r.encodeParam(c, p, ppath); err != nil {
				return err
			}
		}

	default:
		return encErr(path, "unsupported field kind %d", fs.Kind)
	}

	return nil
}

func (r *Registry) checkAllowed(fs *FieldSpec, p *Parameter, path string) error {
	if p == nil {
		return encErr(path, "nil parameter")
	}
	d, ok := r.Param(p.Name)
	if !ok {
		return encErr(path, "unknown parameter %q", p.Name)
	}
	if !fs.allows(d) {
		return encErr(path, "%s is not allowed here", p.Name)
	}
	return nil
}

func packBits(fs *FieldSpec, b Bits, path string) (uint64, error) {
	for name := range b {
		found := false
		for _, bs := range fs.Bits {
			if bs.Name == name {
				found = true
				break
			}
		}
		if !found {
			return 0, encErr(path, "no subfield %q", name)
		}
	}

	var word uint64
	shift := fs.Width
	for _, bs := range fs.Bits {
		shift -= bs.Width
		x := b[bs.Name]
		if x >= 1<<uint(bs.Width) {
			return 0, encErr(path+"."+bs.Name, "%d overflows %d bits", x, bs.Width)
		}
		word |= x << uint(shift)
	}
	return word, nil
}

func unpackBits(fs *FieldSpec, word uint64) Bits {
	b := make(Bits, len(fs.Bits))
	shift := fs.Width
	for _, bs := range fs.Bits {
		shift -= bs.Width
		b[bs.Name] = (word >> uint(shift)) & (1<<uint(bs.Width) - 1)
	}
	return b
}

// Decoder turns bytes into value trees using a Registry.
type Decoder struct {
	Registry *Registry

	// OnSkip, if set, is called for every unknown parameter
	// skipped while decoding an enclosing parameter or message.
	OnSkip func(err *UnknownTypeError)
}

// NewDecoder returns a Decoder for the Registry.
func NewDecoder(r *Registry) *Decoder {
	return &Decoder{Registry: r}
}

// DecodeMessage decodes a single, complete message.
// b must hold exactly the number of bytes given in the header.
func (d *Decoder) DecodeMessage(b []byte) (*Message, error) {
	if len(b) < HeaderSize {
		return nil, decErr("message", 0, "%d bytes is shorter than the header", len(b))
	}

	c := NewCursor(b)
	h, _ := c.ReadUint16()
	length, _ := c.ReadUint32()
	id, _ := c.ReadUint32()

	if uint64(length) != uint64(len(b)) {
		return nil, decErr("message", 2, "header length %d doesn't match the %d bytes given",
			length, len(b))
	}

	typ := h & tlvTypeMask
	var desc *Descriptor
	if typ == CustomType {
		vendor, err := c.ReadUint32()
		if err != nil {
			return nil, decErr("message", c.Offset(), "custom message has no vendor: %v", err)
		}
		subtype, err := c.ReadUint8()
		if err != nil {
			return nil, decErr("message", c.Offset(), "custom message has no subtype: %v", err)
		}

		var ok bool
		if desc, ok = d.Registry.CustomMessage(VendorPEN(vendor), subtype); !ok {
			return nil, &UnknownTypeError{Message: true, Encoding: Custom, Type: typ,
				Vendor: VendorPEN(vendor), Subtype: uint32(subtype), Length: len(b)}
		}
	} else {
		var ok bool
		if desc, ok = d.Registry.MessageType(typ); !ok {
			return nil, &UnknownTypeError{Message: true, Encoding: TLV, Type: typ, Length: len(b)}
		}
	}

	fields, err := d.decodeFields(c, desc, desc.Name)
	if err != nil {
		return nil, err
	}

	return &Message{
		Version: uint8(h>>10) & 0x7,
		ID:      id,
		Name:    desc.Name,
		Fields:  fields,
	}, nil
}

// DecodeParameter decodes the parameter starting at b[offset].
//
// It returns the parameter and the number of bytes it occupies.
// If the parameter's type is unknown but its length is,
// the returned error is an *UnknownTypeError and n is still that length,
// so the caller can skip it.
func (d *Decoder) DecodeParameter(b []byte, offset int) (p *Parameter, n int, err error) {
	if offset < 0 || offset > len(b) {
		return nil, 0, decErr("parameter", offset, "offset out of range [0, %d]", len(b))
	}

	c := NewCursor(b[offset:])
	h, err := d.peekParam(c, "parameter")
	if err != nil {
		var unk *UnknownTypeError
		if errors.As(err, &unk) {
			return nil, unk.Length, err
		}
		return nil, 0, err
	}

	p, err = d.decodeParam(c, h, h.desc.Name)
	if err != nil {
		return nil, h.length, err
	}
	return p, h.length, nil
}

type paramHeader struct {
	desc   *Descriptor
	length int // total, including the header
	hdrLen int
}

// peekParam identifies the parameter at the cursor's offset without consuming it.
func (d *Decoder) peekParam(c *Cursor, path string) (paramHeader, error) {
	off := c.Offset()
	first, err := c.Peek(1)
	if err != nil {
		return paramHeader{}, decErr(path, off, "expected a parameter: %v", err)
	}

	if first[0]&tvFlag != 0 {
		typ := uint16(first[0] & tvTypeMask)
		desc, ok := d.Registry.ParamType(typ)
		if !ok || desc.Encoding != TV {
			return paramHeader{}, &UnknownTypeError{Encoding: TV, Type: typ}
		}

		n := 1 + desc.tvSize
		if c.Remaining() < n {
			return paramHeader{}, decErr(path, off, "TV parameter %s needs %d bytes, but only %d remain",
				desc.Name, n, c.Remaining())
		}
		return paramHeader{desc: desc, length: n, hdrLen: 1}, nil
	}

	hdr, err := c.Peek(tlvHeaderSize)
	if err != nil {
		return paramHeader{}, decErr(path, off, "truncated parameter header: %v", err)
	}

	typ := binary.BigEndian.Uint16(hdr) & tlvTypeMask
	length := int(binary.BigEndian.Uint16(hdr[2:]))
	if length < tlvHeaderSize {
		return paramHeader{}, decErr(path, off, "parameter type %d has length %d, shorter than its header",
			typ, length)
	}
	if length > c.Remaining() {
		return paramHeader{}, decErr(path, off,
			"parameter type %d has length %d, larger than the %d bytes left in its container",
			typ, length, c.Remaining())
	}

	if typ == CustomType {
		if length < customHeaderSize {
			return paramHeader{}, decErr(path, off, "custom parameter length %d is too short", length)
		}
		hdr, _ = c.Peek(customHeaderSize)
		vendor := VendorPEN(binary.BigEndian.Uint32(hdr[4:]))
		subtype := binary.BigEndian.Uint32(hdr[8:])

		desc, ok := d.Registry.CustomParam(vendor, subtype)
		if !ok {
			return paramHeader{}, &UnknownTypeError{Encoding: Custom, Type: typ,
				Vendor: vendor, Subtype: subtype, Length: length}
		}
		return paramHeader{desc: desc, length: length, hdrLen: customHeaderSize}, nil
	}

	desc, ok := d.Registry.ParamType(typ)
	if !ok || desc.Encoding != TLV {
		return paramHeader{}, &UnknownTypeError{Encoding: TLV, Type: typ, Length: length}
	}
	return paramHeader{desc: desc, length: length, hdrLen: tlvHeaderSize}, nil
}

func (d *Decoder) decodeParam(c *Cursor, h paramHeader, path string) (*Parameter, error) {
	sub, err := c.Sub(h.length)
	if err != nil {
		return nil, decErr(path, c.Offset(), "%v", err)
	}
	_ = sub.Skip(h.hdrLen)

	fields, err := d.decodeFields(sub, h.desc, path)
	if err != nil {
		return nil, err
	}
	return &Parameter{Name: h.desc.Name, Fields: fields}, nil
}

// skipUnknown skips an unknown parameter if err says that's possible.
func (d *Decoder) skipUnknown(c *Cursor, err error) bool {
	var unk *UnknownTypeError
	if !errors.As(err, &unk) || !unk.Skippable() {
		return false
	}
	if c.Skip(unk.Length) != nil {
		return false
	}
	if d.OnSkip != nil {
		d.OnSkip(unk)
	}
	return true
}

func (d *Decoder) decodeFields(c *Cursor, desc *Descriptor, path string) (Fields, error) {
	fields := make(Fields, 0, len(desc.Fields))
	for i := range desc.Fields {
		fs := &desc.Fields[i]
		fpath := path + "." + fs.Name

		switch fs.Kind {
		case KindReserved:
			if err := c.Skip(fs.Width / 8); err != nil {
				return nil, decErr(path, c.Offset(), "%v", err)
			}

		case KindParam, KindParams:
			ps, err := d.decodeParams(c, fs, fpath)
			if err != nil {
				return nil, err
			}

			if len(ps) == 0 {
				if !fs.Optional {
					return nil, decErr(fpath, c.Offset(), "missing required parameter")
				}
				continue
			}

			if fs.Kind == KindParam {
				fields = append(fields, Field{Name: fs.Name, Value: ps[0]})
			} else {
				fields = append(fields, Field{Name: fs.Name, Value: Parameters(ps)})
			}

		default:
			v, err := decodeScalar(c, fs, fpath)
			if err != nil {
				return nil, err
			}
			fields = append(fields, Field{Name: fs.Name, Value: v})
		}
	}

	for c.Remaining() > 0 {
		h, err := d.peekParam(c, path)
		if err != nil {
			if d.skipUnknown(c, err) {
				continue
			}
			return nil, err
		}
		return nil, decErr(path, c.Offset(), "unexpected parameter %s", h.desc.Name)
	}

	return fields, nil
}

// decodeParams greedily consumes parameters the field allows,
// skipping unknown ones, and stops at the first known parameter it doesn't allow.
func (d *Decoder) decodeParams(c *Cursor, fs *FieldSpec, path string) ([]*Parameter, error) {
	var ps []*Parameter
	for c.Remaining() > 0 {
		h, err := d.peekParam(c, path)
		if err != nil {
			if d.skipUnknown(c, err) {
				continue
			}
			return nil, err
		}

		if !fs.allows(h.desc) {
			break
		}

		ppath := path
		if fs.Kind == KindParams {
			ppath = fmt.Sprintf("%s[%d]", path, len(ps))
		}
		p, err := d.decodeParam(c, h, ppath)
		if err != nil {
			return nil, err
		}
		ps = append(ps, p)

		if fs.Kind == KindParam {
			break
		}
	}
	return ps, nil
}

func decodeScalar(c *Cursor, fs *FieldSpec, path string) (Value, error) {
	off := c.Offset()
	fail := func(err error) (Value, error) {
		return nil, decErr(path, off, "%v", err)
	}

	switch fs.Kind {
	case KindUint:
		v, err := c.readUint(fs.Width / 8)
		if err != nil {
			return fail(err)
		}
		return Uint(v), nil

	case KindInt:
		v, err := c.readUint(fs.Width / 8)
		if err != nil {
			return fail(err)
		}
		shift := uint(64 - fs.Width)
		return Int(int64(v<<shift) >> shift), nil

	case KindBits:
		v, err := c.readUint(fs.Width / 8)
		if err != nil {
			return fail(err)
		}
		return unpackBits(fs, v), nil

	case KindFixedBytes:
		b, err := c.ReadBytes(fs.Width / 8)
		if err != nil {
			return fail(err)
		}
		return Bytes(b), nil

	case KindBytes, KindString, KindBitVector:
		n, err := c.ReadUint16()
		if err != nil {
			return fail(err)
		}
		count := int(n)
		if fs.Kind == KindBitVector {
			count = (count + 7) / 8
		}
		b, err := c.ReadBytes(count)
		if err != nil {
			return fail(err)
		}
		if fs.Kind == KindString {
			return String(b), nil
		}
		return Bytes(b), nil

	case KindUint16s:
		n, err := c.ReadUint16()
		if err != nil {
			return fail(err)
		}
		u := make(Uint16s, n)
		for i := range u {
			if u[i], err = c.ReadUint16(); err != nil {
				return fail(err)
			}
		}
		return u, nil

	case KindUint32s:
		n, err := c.ReadUint16()
		if err != nil {
			return fail(err)
		}
		u := make(Uint32s, n)
		for i := range u {
			if u[i], err = c.ReadUint32(); err != nil {
				return fail(err)
			}
		}
		return u, nil

	case KindRemaining:
		b, err := c.ReadBytes(c.Remaining())
		if err != nil {
			return fail(err)
		}
		return Bytes(b), nil
	}

	return nil, decErr(path, off, "unsupported field kind %d", fs.Kind)
}

// DecodeMessage decodes b using the Default registry.
func DecodeMessage(b []byte) (*Message, error) {
	return NewDecoder(Default).DecodeMessage(b)
}

// EncodeMessage encodes m using the Default registry.
func EncodeMessage(m *Message) ([]byte, error) {
	return Default.EncodeMessage(m)
}
