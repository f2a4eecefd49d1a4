//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

import (
	"sort"

	"github.com/pkg/errors"
)

// Encoding is the wire form of a parameter or message header.
type Encoding uint8

const (
	// TLV parameters have a 4-byte header: 10-bit type and 16-bit length.
	TLV = Encoding(iota)
	// TV parameters have a 1-byte header, 0x80|type, and a fixed length.
	TV
	// Custom parameters and messages use type 1023
	// followed by a vendor PEN and a vendor-defined subtype.
	Custom
)

// CustomType is the type code shared by every Custom parameter and message.
const CustomType = uint16(1023)

// AnyCustom in a FieldSpec's Allowed list matches every Custom parameter
// that has a Descriptor in the Registry.
const AnyCustom = "*Custom"

// FieldKind determines how a FieldSpec is serialized.
type FieldKind uint8

const (
	KindUint       = FieldKind(iota) // Width bits, unsigned
	KindInt                          // Width bits, two's complement
	KindBits                         // Width bits holding named subfields, MSB first
	KindReserved                     // Width bits of zero; holds no Value
	KindFixedBytes                   // Width bits of raw data
	KindBytes                        // u16 byte count, then bytes
	KindString                       // u16 byte count, then UTF-8
	KindBitVector                    // u16 bit count, then ceil(count/8) bytes
	KindUint16s                      // u16 count, then u16s
	KindUint32s                      // u16 count, then u32s
	KindRemaining                    // all bytes left in the parameter
	KindParam                        // a single sub-parameter
	KindParams                       // zero or more sub-parameters
)

// BitSpec names a subfield of a KindBits field.
type BitSpec struct {
	Name  string
	Width int
}

// FieldSpec describes one field of a Descriptor.
type FieldSpec struct {
	Name  string
	Kind  FieldKind
	Width int

	// Bits lists the subfields of a KindBits field, most significant first.
	Bits []BitSpec

	// Allowed lists the parameter names a KindParam or KindParams field accepts.
	Allowed []string

	// Optional allows a KindParam to be absent or a KindParams to be empty.
	Optional bool
}

func (fs *FieldSpec) isParam() bool {
	return fs.Kind == KindParam || fs.Kind == KindParams
}

func (fs *FieldSpec) allows(d *Descriptor) bool {
	for _, name := range fs.Allowed {
		if name == d.Name || (name == AnyCustom && d.Encoding == Custom) {
			return true
		}
	}
	return false
}

// fixedSize returns the number of bytes the field always occupies,
// or -1 if its size depends on its content.
func (fs *FieldSpec) fixedSize() int {
	switch fs.Kind {
	case KindUint, KindInt, KindBits, KindReserved, KindFixedBytes:
		return fs.Width / 8
	}
	return -1
}

// Descriptor defines the wire layout of one parameter or message type.
type Descriptor struct {
	Name     string
	Type     uint16
	Encoding Encoding
	Vendor   VendorPEN
	Subtype  uint32
	Fields   []FieldSpec

	// tvSize is the payload size of a TV parameter, excluding its 1-byte header.
	tvSize int
}

// IsCustom reports whether the Descriptor defines a vendor extension.
func (d *Descriptor) IsCustom() bool { return d.Encoding == Custom }

type customKey struct {
	vendor  VendorPEN
	subtype uint32
}

// Registry maps between names, type codes, and Descriptors.
// It is immutable once created, so it's safe to share among goroutines.
type Registry struct {
	params       map[string]*Descriptor
	paramTypes   map[uint16]*Descriptor
	customParams map[customKey]*Descriptor

	messages       map[string]*Descriptor
	messageTypes   map[uint16]*Descriptor
	customMessages map[customKey]*Descriptor
}

// Default is the Registry of every parameter and message this package knows.
var Default = mustRegistry(builtinParams(), builtinMessages())

func mustRegistry(params, messages []Descriptor) *Registry {
	r, err := NewRegistry(params, messages)
	if err != nil {
		panic(err)
	}
	return r
}

// NewRegistry validates and indexes parameter and message Descriptors.
func NewRegistry(params, messages []Descriptor) (*Registry, error) {
	r := &Registry{
		params:         make(map[string]*Descriptor, len(params)),
		paramTypes:     make(map[uint16]*Descriptor, len(params)),
		customParams:   map[customKey]*Descriptor{},
		messages:       make(map[string]*Descriptor, len(messages)),
		messageTypes:   make(map[uint16]*Descriptor, len(messages)),
		customMessages: map[customKey]*Descriptor{},
	}

	for i := range params {
		d := params[i]
		if err := r.addParam(&d); err != nil {
			return nil, err
		}
	}

	for i := range messages {
		d := messages[i]
		if err := r.addMessage(&d); err != nil {
			return nil, err
		}
	}

	// Sub-parameter references can only be checked once everything is indexed.
	check := func(d *Descriptor) error {
		for _, fs := range d.Fields {
			for _, name := range fs.Allowed {
				if _, ok := r.params[name]; !ok && name != AnyCustom {
					return errors.Errorf("%s.%s allows unknown parameter %q", d.Name, fs.Name, name)
				}
			}
		}
		return nil
	}
	for _, d := range r.params {
		if err := check(d); err != nil {
			return nil, err
		}
	}
	for _, d := range r.messages {
		if err := check(d); err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Registry) addParam(d *Descriptor) error {
	if d.Name == "" {
		return errors.Errorf("parameter type %d has no name", d.Type)
	}
	if _, exists := r.params[d.Name]; exists {
		return errors.Errorf("duplicate parameter name %q", d.Name)
	}
	if err := validateFields(d); err != nil {
		return err
	}

	switch d.Encoding {
	case TV:
		if d.Type < 1 || d.Type > 127 {
			return errors.Errorf("TV parameter %s has type %d outside [1, 127]", d.Name, d.Type)
		}
		for _, fs := range d.Fields {
			n := fs.fixedSize()
			if n < 0 {
				return errors.Errorf("TV parameter %s has variable-size field %s", d.Name, fs.Name)
			}
			d.tvSize += n
		}
	case TLV:
		if d.Type < 128 || d.Type >= CustomType {
			return errors.Errorf("TLV parameter %s has type %d outside [128, 1022]", d.Name, d.Type)
		}
	case Custom:
		if d.Vendor == 0 {
			return errors.Errorf("custom parameter %s has no vendor", d.Name)
		}
		d.Type = CustomType
		key := customKey{d.Vendor, d.Subtype}
		if prev, exists := r.customParams[key]; exists {
			return errors.Errorf("custom parameters %s and %s share vendor %d subtype %d",
				prev.Name, d.Name, d.Vendor, d.Subtype)
		}
		r.customParams[key] = d
		r.params[d.Name] = d
		return nil
	default:
		return errors.Errorf("parameter %s has unknown encoding %d", d.Name, d.Encoding)
	}

	if prev, exists := r.paramTypes[d.Type]; exists {
		return errors.Errorf("parameters %s and %s share type %d", prev.Name, d.Name, d.Type)
	}
	r.paramTypes[d.Type] = d
	r.params[d.Name] = d
	return nil
}

func (r *Registry) addMessage(d *Descriptor) error {
	if d.Name == "" {
		return errors.Errorf("message type %d has no name", d.Type)
	}
	if _, exists := r.messages[d.Name]; exists {
		return errors.Errorf("duplicate message name %q", d.Name)
	}
	if err := validateFields(d); err != nil {
		return err
	}

	switch d.Encoding {
	case TLV:
		if d.Type >= CustomType {
			return errors.Errorf("message %s has type %d outside [0, 1022]", d.Name, d.Type)
		}
		if prev, exists := r.messageTypes[d.Type]; exists {
			return errors.Errorf("messages %s and %s share type %d", prev.Name, d.Name, d.Type)
		}
		r.messageTypes[d.Type] = d
	case Custom:
		if d.Vendor == 0 || d.Subtype > 0xFF {
			return errors.Errorf("custom message %s needs a vendor and a 1-byte subtype", d.Name)
		}
		d.Type = CustomType
		key := customKey{d.Vendor, d.Subtype}
		if prev, exists := r.customMessages[key]; exists {
			return errors.Errorf("custom messages %s and %s share vendor %d subtype %d",
				prev.Name, d.Name, d.Vendor, d.Subtype)
		}
		r.customMessages[key] = d
	default:
		return errors.Errorf("message %s has unsupported encoding %d", d.Name, d.Encoding)
	}

	r.messages[d.Name] = d
	return nil
}

func validateFields(d *Descriptor) error {
	seen := map[string]bool{}
	for i, fs := range d.Fields {
		if fs.Kind != KindReserved {
			if fs.Name == "" {
				return errors.Errorf("%s field %d has no name", d.Name, i)
			}
			if seen[fs.Name] {
				return errors.Errorf("%s has duplicate field %s", d.Name, fs.Name)
			}
			seen[fs.Name] = true
		}

		switch fs.Kind {
		case KindUint, KindInt:
			switch fs.Width {
			case 8, 16, 32, 64:
			default:
				return errors.Errorf("%s.%s has invalid integer width %d", d.Name, fs.Name, fs.Width)
			}
		case KindBits:
			total := 0
			for _, b := range fs.Bits {
				if b.Width < 1 || b.Name == "" {
					return errors.Errorf("%s.%s has an invalid subfield", d.Name, fs.Name)
				}
				total += b.Width
			}
			if fs.Width%8 != 0 || fs.Width > 64 || total > fs.Width {
				return errors.Errorf("%s.%s subfields need %d bits but the field has %d",
					d.Name, fs.Name, total, fs.Width)
			}
		case KindReserved, KindFixedBytes:
			if fs.Width <= 0 || fs.Width%8 != 0 {
				return errors.Errorf("%s.%s width must be a positive multiple of 8", d.Name, fs.Name)
			}
		case KindRemaining:
			if i != len(d.Fields)-1 {
				return errors.Errorf("%s.%s must be the last field", d.Name, fs.Name)
			}
		case KindParam, KindParams:
			if len(fs.Allowed) == 0 {
				return errors.Errorf("%s.%s allows no parameters", d.Name, fs.Name)
			}
		case KindBytes, KindString, KindBitVector, KindUint16s, KindUint32s:
		default:
			return errors.Errorf("%s.%s has unknown kind %d", d.Name, fs.Name, fs.Kind)
		}
	}
	return nil
}

// Param returns the Descriptor of the named parameter.
func (r *Registry) Param(name string) (*Descriptor, bool) {
	d, ok := r.params[name]
	return d, ok
}

// ParamType returns the Descriptor of a standard TV or TLV parameter type.
func (r *Registry) ParamType(t uint16) (*Descriptor, bool) {
	d, ok := r.paramTypes[t]
	return d, ok
}

// CustomParam returns the Descriptor of a vendor parameter.
func (r *Registry) CustomParam(vendor VendorPEN, subtype uint32) (*Descriptor, bool) {
	d, ok := r.customParams[customKey{vendor, subtype}]
	return d, ok
}

// Message returns the Descriptor of the named message.
func (r *Registry) Message(name string) (*Descriptor, bool) {
	d, ok := r.messages[name]
	return d, ok
}

// MessageType returns the Descriptor of a standard message type.
func (r *Registry) MessageType(t uint16) (*Descriptor, bool) {
	d, ok := r.messageTypes[t]
	return d, ok
}

// CustomMessage returns the Descriptor of a vendor message.
func (r *Registry) CustomMessage(vendor VendorPEN, subtype uint8) (*Descriptor, bool) {
	d, ok := r.customMessages[customKey{vendor, uint32(subtype)}]
	return d, ok
}

// Params returns every parameter Descriptor, sorted by name.
func (r *Registry) Params() []*Descriptor {
	return sortedDescriptors(r.params)
}

// Messages returns every message Descriptor, sorted by name.
func (r *Registry) Messages() []*Descriptor {
	return sortedDescriptors(r.messages)
}

func sortedDescriptors(m map[string]*Descriptor) []*Descriptor {
	ds := make([]*Descriptor, 0, len(m))
	for _, d := range m {
		ds = append(ds, d)
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].Name < ds[j].Name })
	return ds
}
