//
// Copyright (C) 2020 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package inventory

// CircularBuffer holds the most recent values added to it, up to its window size,
// and keeps their running total so the moving average is cheap to read.
// Once full, each new value replaces the oldest one in place.
//
// It isn't safe for concurrent use; the Collector guards its buffers.
type CircularBuffer struct {
	values []float64
	next   int
	total  float64
}

// NewCircularBuffer returns an empty CircularBuffer holding up to windowSize values.
// It panics if windowSize isn't positive.
func NewCircularBuffer(windowSize int) *CircularBuffer {
	if windowSize <= 0 {
		panic("illegal window size")
	}
	return &CircularBuffer{values: make([]float64, 0, windowSize)}
}

// Len returns the number of values in the buffer.
func (cb *CircularBuffer) Len() int {
	return len(cb.values)
}

// Mean returns the average of the values in the buffer.
// It returns false if the buffer is empty.
func (cb *CircularBuffer) Mean() (float64, bool) {
	if len(cb.values) == 0 {
		return 0, false
	}
	return cb.total / float64(len(cb.values)), true
}

// Add puts v in the buffer, evicting the oldest value if it's full.
func (cb *CircularBuffer) Add(v float64) {
	if len(cb.values) < cap(cb.values) {
		cb.values = append(cb.values, v)
		cb.total += v
		return
	}

	cb.total += v - cb.values[cb.next]
	cb.values[cb.next] = v
	cb.next = (cb.next + 1) % len(cb.values)
}
