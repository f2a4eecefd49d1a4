//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

import (
	"encoding/binary"
)

// DefaultMaxFrameSize bounds the size of a single message.
// LLRP allows messages up to 4GiB, but a Reader never sends anything close.
const DefaultMaxFrameSize = 8 << 20

// FrameAssembler splits a byte stream into LLRP messages.
//
// The stream is only framed by the length field in each message header,
// so a read from a socket may hold part of a message or several messages.
// Write appends whatever arrived; Next returns messages as they become complete.
//
// A FrameAssembler is not safe for concurrent use.
type FrameAssembler struct {
	dec     *Decoder
	maxSize uint32
	buf     []byte
	err     error
}

// NewFrameAssembler returns a FrameAssembler that decodes with dec
// and rejects frames larger than maxSize bytes.
// If maxSize is 0, it uses DefaultMaxFrameSize.
func NewFrameAssembler(dec *Decoder, maxSize uint32) *FrameAssembler {
	if maxSize == 0 {
		maxSize = DefaultMaxFrameSize
	}
	return &FrameAssembler{dec: dec, maxSize: maxSize}
}

// Write buffers p. It only fails after a FramingError,
// at which point the stream can't be resynchronized.
func (fa *FrameAssembler) Write(p []byte) (int, error) {
	if fa.err != nil {
		return 0, fa.err
	}
	fa.buf = append(fa.buf, p...)
	return len(p), nil
}

// Buffered returns the number of bytes waiting for the rest of their frame.
func (fa *FrameAssembler) Buffered() int { return len(fa.buf) }

// Next returns the next complete message, or nil, nil if more data is needed.
//
// If the next frame's header is invalid, it returns a *FramingError,
// and it returns that same error on every later call.
// If a frame is well-formed but its content can't be decoded,
// that frame is consumed and the decoding error is returned;
// the next call continues with the following frame.
func (fa *FrameAssembler) Next() (*Message, error) {
	if fa.err != nil {
		return nil, fa.err
	}

	if len(fa.buf) < HeaderSize {
		return nil, nil
	}

	length := binary.BigEndian.Uint32(fa.buf[2:6])
	switch {
	case length < HeaderSize:
		fa.err = &FramingError{Length: length, Reason: "shorter than the message header"}
		return nil, fa.err
	case length > fa.maxSize:
		fa.err = &FramingError{Length: length, Reason: "exceeds the maximum frame size"}
		return nil, fa.err
	}

	if uint64(len(fa.buf)) < uint64(length) {
		return nil, nil
	}

	frame := fa.buf[:length]
	msg, err := fa.dec.DecodeMessage(frame)

	// The decoder copies what it keeps,
	// so the remainder can move to the front of the buffer.
	n := copy(fa.buf, fa.buf[length:])
	fa.buf = fa.buf[:n]

	return msg, err
}
