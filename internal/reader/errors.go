//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"edgexfoundry/llrp-reader-client/internal/llrp"
)

var (
	// ErrCancelled is returned to a request waiting on a response
	// when the connection is closed on purpose.
	ErrCancelled = errors.New("request cancelled")

	// ErrRequestInFlight is returned when a request is made
	// while another is still waiting on its response.
	ErrRequestInFlight = errors.New("another request is awaiting its response")
)

// ProtocolStatusError is a response with a non-success LLRPStatus.
type ProtocolStatusError struct {
	Request     string
	Code        llrp.StatusCode
	Description string
}

func (e *ProtocolStatusError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%s failed with status %v", e.Request, e.Code)
	}
	return fmt.Sprintf("%s failed with status %v: %s", e.Request, e.Code, e.Description)
}

// ResponseTimeoutError means a Reader didn't answer a request in time.
// The request can be retried.
type ResponseTimeoutError struct {
	Request string
	ID      uint32
	Timeout time.Duration
}

func (e *ResponseTimeoutError) Error() string {
	return fmt.Sprintf("no response to %s (message %d) within %v", e.Request, e.ID, e.Timeout)
}

// ConnectionLostError means the session ended without Disconnect:
// a socket error, an unrecoverable framing error, or the Reader closing it.
type ConnectionLostError struct {
	Err error
}

func (e *ConnectionLostError) Error() string {
	return "connection lost: " + e.Err.Error()
}

func (e *ConnectionLostError) Unwrap() error { return e.Err }

// InvalidStateError is an operation attempted in a State that doesn't permit it.
type InvalidStateError struct {
	Op    string
	State State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("can't %s while %v", e.Op, e.State)
}

// ConfigSequenceError reports which step of configuration failed
// and which steps were already applied to the Reader.
type ConfigSequenceError struct {
	Step    string
	Applied []string
	Err     error
}

func (e *ConfigSequenceError) Error() string {
	applied := "none"
	if len(e.Applied) > 0 {
		applied = strings.Join(e.Applied, ", ")
	}
	return fmt.Sprintf("configuration step %q failed (applied: %s): %v", e.Step, applied, e.Err)
}

func (e *ConfigSequenceError) Unwrap() error { return e.Err }

// MultiErr tracks a list of errors collected
// when an operation is applied to multiple things.
type MultiErr []error

// Error returns every collected error, separated by "; ".
func (me MultiErr) Error() string {
	strs := make([]string, len(me))
	for i, s := range me {
		strs[i] = s.Error()
	}

	return strings.Join(strs, "; ")
}
