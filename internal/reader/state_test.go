//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"edgexfoundry/llrp-reader-client/internal/llrp"
)

func TestState(t *testing.T) {
	tests := []struct {
		state        State
		name         string
		configurable bool
		connected    bool
	}{
		{StateDisconnected, "DISCONNECTED", false, false},
		{StateConnecting, "CONNECTING", false, false},
		{StateConnected, "CONNECTED", true, true},
		{StateInventorying, "INVENTORYING", false, true},
		{StateDisabled, "DISABLED", true, true},
		{StateError, "ERROR", false, false},
		{State(42), "State(42)", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.name, tt.state.String())
			require.Equal(t, tt.configurable, tt.state.configurable())
			require.Equal(t, tt.connected, tt.state.connected())
		})
	}

	b, err := json.Marshal(map[string]State{"reader": StateInventorying})
	require.NoError(t, err)
	require.JSONEq(t, `{"reader":"INVENTORYING"}`, string(b))
}

func TestErrors(t *testing.T) {
	pse := &ProtocolStatusError{Request: llrp.MsgAddROSpec, Code: llrp.StatusFieldInvalid}
	require.Contains(t, pse.Error(), llrp.MsgAddROSpec)
	pse.Description = "bad ROSpecID"
	require.Contains(t, pse.Error(), "bad ROSpecID")

	rte := &ResponseTimeoutError{Request: llrp.MsgEnableROSpec, ID: 3, Timeout: time.Second}
	require.Equal(t, "no response to ENABLE_ROSPEC (message 3) within 1s", rte.Error())

	ise := &InvalidStateError{Op: "start inventory", State: StateDisconnected}
	require.Equal(t, "can't start inventory while DISCONNECTED", ise.Error())

	lost := &ConnectionLostError{Err: errors.New("EOF")}
	cse := &ConfigSequenceError{Step: StepROSpec, Err: errors.WithMessage(lost, "add")}
	require.Contains(t, cse.Error(), "applied: none")
	var got *ConnectionLostError
	require.True(t, errors.As(cse, &got))
	require.Same(t, lost, got)

	cse.Applied = []string{StepCapabilities, StepTransmitPower}
	require.Contains(t, cse.Error(), "applied: capabilities, transmit-power")

	cancelled := &ConfigSequenceError{Step: StepCapabilities, Err: ErrCancelled}
	require.True(t, errors.Is(cancelled, ErrCancelled))

	me := MultiErr{errors.New("a"), errors.New("b")}
	require.Equal(t, "a; b", me.Error())
}
