//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

// Value is a node in an LLRP value tree.
//
// It is one of Uint, Int, Bytes, String, Uint16s, Uint32s, Bits,
// *Parameter, or Parameters; the set is closed.
type Value interface {
	isValue()
}

type (
	// Uint holds any fixed-width unsigned field.
	Uint uint64
	// Int holds any fixed-width signed field.
	Int int64
	// Bytes holds length-prefixed, fixed-size, trailing, or bit-vector data.
	Bytes []byte
	// String holds a UTF-8 string field.
	String string
	// Uint16s holds a u16v field.
	Uint16s []uint16
	// Uint32s holds a u32v field.
	Uint32s []uint32
	// Bits holds the named subfields of a bit-packed field.
	// One-bit subfields are flags: 0 or 1.
	Bits map[string]uint64
	// Parameters holds a repeated sub-parameter field, in wire order.
	Parameters []*Parameter
)

func (Uint) isValue()       {}
func (Int) isValue()        {}
func (Bytes) isValue()      {}
func (String) isValue()     {}
func (Uint16s) isValue()    {}
func (Uint32s) isValue()    {}
func (Bits) isValue()       {}
func (Parameters) isValue() {}
func (*Parameter) isValue() {}

// Field is a named Value.
type Field struct {
	Name  string
	Value Value
}

// F is shorthand for a Field literal.
func F(name string, v Value) Field {
	return Field{Name: name, Value: v}
}

// Flag is shorthand for a one-bit Bits value.
func Flag(on bool) uint64 {
	if on {
		return 1
	}
	return 0
}

// Fields is an ordered list of named values.
// Names are unique within a list.
type Fields []Field

// Get returns the Value with the given name, if present.
func (fs Fields) Get(name string) (Value, bool) {
	for _, f := range fs {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Set replaces the named Value or appends it if it isn't present.
func (fs *Fields) Set(name string, v Value) {
	for i := range *fs {
		if (*fs)[i].Name == name {
			(*fs)[i].Value = v
			return
		}
	}
	*fs = append(*fs, Field{Name: name, Value: v})
}

// Delete removes the named Value, if present.
func (fs *Fields) Delete(name string) {
	for i := range *fs {
		if (*fs)[i].Name == name {
			*fs = append((*fs)[:i], (*fs)[i+1:]...)
			return
		}
	}
}

func (fs Fields) Uint(name string) (uint64, bool) {
	v, _ := fs.Get(name)
	u, ok := v.(Uint)
	return uint64(u), ok
}

func (fs Fields) Int(name string) (int64, bool) {
	v, _ := fs.Get(name)
	i, ok := v.(Int)
	return int64(i), ok
}

func (fs Fields) Bytes(name string) ([]byte, bool) {
	v, _ := fs.Get(name)
	b, ok := v.(Bytes)
	return b, ok
}

// Text returns a String field.
func (fs Fields) Text(name string) (string, bool) {
	v, _ := fs.Get(name)
	s, ok := v.(String)
	return string(s), ok
}

func (fs Fields) Uint16s(name string) ([]uint16, bool) {
	v, _ := fs.Get(name)
	u, ok := v.(Uint16s)
	return u, ok
}

func (fs Fields) Uint32s(name string) ([]uint32, bool) {
	v, _ := fs.Get(name)
	u, ok := v.(Uint32s)
	return u, ok
}

// Flag reports whether the named bit of a Bits field is set.
func (fs Fields) Flag(field, bit string) bool {
	v, _ := fs.Get(field)
	b, ok := v.(Bits)
	return ok && b[bit] != 0
}

// Param returns a single sub-parameter field.
func (fs Fields) Param(name string) (*Parameter, bool) {
	v, _ := fs.Get(name)
	p, ok := v.(*Parameter)
	return p, ok && p != nil
}

// Params returns a repeated sub-parameter field, or nil.
func (fs Fields) Params(name string) Parameters {
	v, _ := fs.Get(name)
	ps, _ := v.(Parameters)
	return ps
}

// Parameter is a decoded or to-be-encoded LLRP parameter.
//
// Its Name selects the Descriptor that defines its wire layout;
// type codes, vendor IDs, and lengths come from the Descriptor and the encoder.
type Parameter struct {
	Name string
	Fields
}

// NewParameter returns a Parameter with the given fields.
func NewParameter(name string, fields ...Field) *Parameter {
	return &Parameter{Name: name, Fields: fields}
}

// Message is a decoded or to-be-encoded LLRP message.
type Message struct {
	Version uint8
	ID      uint32
	Name    string
	Fields
}

// NewMessage returns a Message using the default protocol version.
// Its ID is assigned by whoever sends it.
func NewMessage(name string, fields ...Field) *Message {
	return &Message{Version: Version1_0_1, Name: name, Fields: fields}
}

// Status returns the StatusCode and ErrorDescription
// of the Message's LLRPStatus parameter, if it has one.
func (m *Message) Status() (code StatusCode, description string, ok bool) {
	st, ok := m.Param(ParamLLRPStatus)
	if !ok {
		return 0, "", false
	}
	c, _ := st.Uint("StatusCode")
	description, _ = st.Text("ErrorDescription")
	return StatusCode(c), description, true
}
