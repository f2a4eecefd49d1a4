//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package reader

import "strconv"

// State is where a Client is in its connection lifecycle.
type State int32

const (
	StateDisconnected = State(iota)
	StateConnecting
	StateConnected
	StateInventorying
	StateDisabled
	StateError
)

var stateNames = [...]string{
	StateDisconnected: "DISCONNECTED",
	StateConnecting:   "CONNECTING",
	StateConnected:    "CONNECTED",
	StateInventorying: "INVENTORYING",
	StateDisabled:     "DISABLED",
	StateError:        "ERROR",
}

func (s State) String() string {
	if 0 <= int(s) && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// MarshalText lets States print by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// configurable reports whether a Client in this state
// may (re)install its configuration or start inventory.
func (s State) configurable() bool {
	return s == StateConnected || s == StateDisabled
}

// connected reports whether the state has a live, handshaken session.
func (s State) connected() bool {
	return s == StateConnected || s == StateDisabled || s == StateInventorying
}
