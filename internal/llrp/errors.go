//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

import (
	"fmt"
)

// FramingError means the byte stream can no longer be split into messages.
// It's fatal to the connection that produced it.
type FramingError struct {
	Length uint32
	Reason string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("invalid LLRP frame (declared length %d): %s", e.Length, e.Reason)
}

// UnknownTypeError is returned when a type has no Descriptor in the Registry.
//
// When Length is positive, the caller can skip exactly that many bytes
// (header included) and continue with whatever follows.
// TV parameters have no length on the wire,
// so an unknown TV type leaves Length at 0 and cannot be skipped.
type UnknownTypeError struct {
	Message  bool
	Encoding Encoding
	Type     uint16
	Vendor   VendorPEN
	Subtype  uint32
	Length   int
}

// Skippable reports whether the unknown bytes can be skipped.
func (e *UnknownTypeError) Skippable() bool { return e.Length > 0 }

func (e *UnknownTypeError) Error() string {
	kind := "parameter"
	if e.Message {
		kind = "message"
	}

	switch e.Encoding {
	case Custom:
		return fmt.Sprintf("unknown custom %s: vendor %d subtype %d (%d bytes)",
			kind, e.Vendor, e.Subtype, e.Length)
	case TV:
		return fmt.Sprintf("unknown TV %s type %d", kind, e.Type)
	}
	return fmt.Sprintf("unknown %s type %d (%d bytes)", kind, e.Type, e.Length)
}

// EncodingError is returned when a value tree cannot be serialized.
// Nothing is transmitted when encoding fails.
type EncodingError struct {
	Path   string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("can't encode %s: %s", e.Path, e.Reason)
}

// DecodeError is returned when bytes don't match their Descriptor.
type DecodeError struct {
	Path   string
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("can't decode %s at offset %d: %s", e.Path, e.Offset, e.Reason)
}

func encErr(path, format string, args ...interface{}) error {
	return &EncodingError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

func decErr(path string, offset int, format string, args ...interface{}) error {
	return &DecodeError{Path: path, Offset: offset, Reason: fmt.Sprintf(format, args...)}
}
