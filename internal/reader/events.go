//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"time"

	"github.com/pkg/errors"

	"edgexfoundry/llrp-reader-client/internal/llrp"
)

// Event is a single event from a READER_EVENT_NOTIFICATION.
//
// Name is the event parameter's name, such as "GPIEvent" or "AntennaEvent";
// vendor events are named "Custom".
// Readers with a UTC clock set Timestamp; others only report their Uptime.
type Event struct {
	Name      string
	Timestamp time.Time
	Uptime    time.Duration
	Payload   *llrp.Parameter
}

// EventCallback receives Reader events in the order they arrive.
type EventCallback func(e Event)

// Action is what a GPIPolicy wants done about a GPI event.
type Action int

const (
	ActionNone = Action(iota)
	ActionStart
	ActionStop
)

func (a Action) String() string {
	switch a {
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	}
	return "none"
}

// GPIPolicy maps a GPI port's new state to an inventory Action.
// Which level means "go" depends on the wiring, so it's up to the caller.
type GPIPolicy func(port uint16, high bool) Action

// GPIPortPolicy starts inventory when the port goes to the given level
// and stops it when the port leaves it. Other ports are ignored.
func GPIPortPolicy(port uint16, startOnHigh bool) GPIPolicy {
	return func(p uint16, high bool) Action {
		switch {
		case p != port:
			return ActionNone
		case high == startOnHigh:
			return ActionStart
		default:
			return ActionStop
		}
	}
}

// splitEvents returns the events in a READER_EVENT_NOTIFICATION
// in the order the Reader sent them.
func splitEvents(m *llrp.Message) ([]Event, error) {
	data, ok := m.Param(llrp.ParamReaderEventNotificationData)
	if !ok {
		return nil, errors.Errorf("%s has no %s", m.Name, llrp.ParamReaderEventNotificationData)
	}

	var ts time.Time
	var uptime time.Duration
	if t, ok := data.Param("Timestamp"); ok {
		us, _ := t.Uint("Microseconds")
		if t.Name == llrp.ParamUTCTimestamp {
			ts = time.UnixMicro(int64(us)).UTC()
		} else {
			uptime = time.Duration(us) * time.Microsecond
		}
	}

	var events []Event
	add := func(name string, p *llrp.Parameter) {
		events = append(events, Event{Name: name, Timestamp: ts, Uptime: uptime, Payload: p})
	}

	for _, f := range data.Fields {
		switch v := f.Value.(type) {
		case *llrp.Parameter:
			if f.Name != "Timestamp" {
				add(f.Name, v)
			}
		case llrp.Parameters:
			for _, p := range v {
				add(f.Name, p)
			}
		}
	}

	return events, nil
}

// gpiState returns the port and level of a GPIEvent.
func gpiState(e Event) (port uint16, high bool) {
	p, _ := e.Payload.Uint("GPIPortNumber")
	return uint16(p), e.Payload.Flag("Flags", "GPIEvent")
}
