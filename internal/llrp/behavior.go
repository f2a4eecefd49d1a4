//
// Copyright (C) 2020 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

import (
	"bytes"

	"github.com/pkg/errors"
)

// Millisecs32 is a duration in milliseconds, as LLRP sends them.
type Millisecs32 uint32

// MillibelMilliwatt is a power level in dBm x100.
type MillibelMilliwatt int16

// DBm converts a float dBm value to MillibelMilliwatt.
func DBm(v float64) MillibelMilliwatt {
	if v < 0 {
		return MillibelMilliwatt(v*100 - 0.5)
	}
	return MillibelMilliwatt(v*100 + 0.5)
}

// Kilohertz is a frequency in kHz.
type Kilohertz uint32

// Behavior is a high-level description of desired Reader operation.
//
// LLRP Readers vary wildly in their capabilities;
// some Behavior characteristics cannot be well-mapped to all Readers.
type Behavior struct {
	GPITrigger    *GPITrigger    `json:",omitempty"`
	ImpinjOptions *ImpinjOptions `json:",omitempty"`

	ScanType ScanType
	Duration Millisecs32 // 0 = repeat forever
	Power    PowerTarget

	// AntennaPower overrides Power for specific antennas.
	AntennaPower map[uint16]PowerTarget `json:",omitempty"`
	// Antennas limits inventory to these antennas; empty means all of them.
	Antennas    []uint16    `json:",omitempty"`
	Frequencies []Kilohertz `json:",omitempty"` // ignored in Hopping regions

	// ReportTimeout, if set, restarts the ROSpec on this period
	// so the Reader sends a report at least that often.
	// It takes precedence over Duration.
	ReportTimeout Millisecs32 `json:",omitempty"`
}

type GPITrigger struct {
	Port    uint16
	Event   bool
	Timeout Millisecs32 `json:",omitempty"`
}

// ImpinjOptions control behaviors that will only apply to Impinj Readers,
// usually because they make use of some custom behavior only implemented there.
type ImpinjOptions struct {
	// SuppressMonza enables Impinj's "TagFocus" feature.
	//
	// When enabled, when a Behavior uses S1,
	// the Reader refreshes Monza tags' S1 flag B state.
	// Note that this only works on Impinj Monza tags;
	// other tags revert their S1 flag normally,
	// and thus will get re-inventoried every so often.
	SuppressMonza bool

	// SearchMode, if set, replaces the mode chosen from the ScanType.
	SearchMode *ImpinjSearchMode `json:",omitempty"`
}

// PowerTarget specifies a target power for the Reader to push through the antenna.
//
// It does not account for losses or gains,
// nor does it make any guarantees about max radiated power
// or compliance with local regulatory requirements.
// The zero value asks for the Reader's maximum power.
type PowerTarget struct {
	Max MillibelMilliwatt
}

// IsMax reports whether the target is the Reader's maximum.
func (p PowerTarget) IsMax() bool { return p.Max == 0 }

type ScanType int

const (
	ScanFast = ScanType(iota)
	ScanNormal
	ScanDeep
)

// ROSpecStartTrigger types.
const (
	ROStartTriggerNone      = uint8(0)
	ROStartTriggerImmediate = uint8(1)
	ROStartTriggerPeriodic  = uint8(2)
	ROStartTriggerGPI       = uint8(3)
)

// ROSpecStopTrigger types.
const (
	ROStopTriggerNone     = uint8(0)
	ROStopTriggerDuration = uint8(1)
	ROStopTriggerGPI      = uint8(2)
)

// AISpecStopTrigger and TagObservationTrigger types.
const (
	AIStopTriggerNone           = uint8(0)
	AIStopTriggerDuration       = uint8(1)
	AIStopTriggerGPI            = uint8(2)
	AIStopTriggerTagObservation = uint8(3)

	TagObsTriggerNoNewAfterT = uint8(1)
)

// Boundary returns an ROBoundarySpec for the Behavior.
func (b Behavior) Boundary() *Parameter {
	return NewParameter("ROBoundarySpec",
		F("ROSpecStartTrigger", b.StartTrigger()),
		F("ROSpecStopTrigger", b.stopTrigger()))
}

// StartTrigger returns an ROSpecStartTrigger for the Behavior.
//
// If the Behavior includes a GPITrigger, the returned StartTrigger
// only starts the ROSpec if the GPITrigger conditions match.
// With a ReportTimeout, the ROSpec starts periodically.
// Otherwise, the StartTrigger starts the ROSpec immediately once Enabled,
// unless it has a Duration, in which case it waits for START_ROSPEC.
func (b Behavior) StartTrigger() *Parameter {
	t := NewParameter("ROSpecStartTrigger")

	switch {
	case b.GPITrigger != nil:
		t.Set("ROSpecStartTriggerType", Uint(ROStartTriggerGPI))
		t.Set("GPITriggerValue", b.GPITrigger.parameter())
	case b.ReportTimeout > 0:
		t.Set("ROSpecStartTriggerType", Uint(ROStartTriggerPeriodic))
		t.Set("PeriodicTriggerValue", NewParameter("PeriodicTriggerValue",
			F("Offset", Uint(0)),
			F("Period", Uint(b.ReportTimeout))))
	case b.Duration == 0:
		t.Set("ROSpecStartTriggerType", Uint(ROStartTriggerImmediate))
	default:
		t.Set("ROSpecStartTriggerType", Uint(ROStartTriggerNone))
	}

	return t
}

// ManualStart reports whether an enabled ROSpec for this Behavior
// also needs a START_ROSPEC before it runs.
func (b Behavior) ManualStart() bool {
	return b.GPITrigger == nil && b.ReportTimeout == 0 && b.Duration != 0
}

// stopTrigger returns an ROSpecStopTrigger for the Behavior.
//
// Without a Duration or ReportTimeout, the ROSpec runs
// until the Reader explicitly receives a StopROSpec command.
func (b Behavior) stopTrigger() *Parameter {
	d := b.Duration
	if b.ReportTimeout > 0 {
		d = b.ReportTimeout
	}

	typ := ROStopTriggerNone
	if d > 0 {
		typ = ROStopTriggerDuration
	}

	return NewParameter("ROSpecStopTrigger",
		F("ROSpecStopTriggerType", Uint(typ)),
		F("DurationTriggerValue", Uint(d)))
}

func (g GPITrigger) parameter() *Parameter {
	return NewParameter("GPITriggerValue",
		F("GPIPortNum", Uint(g.Port)),
		F("Flags", Bits{"GPIEvent": Flag(g.Event)}),
		F("Timeout", Uint(g.Timeout)))
}

type TagMobility uint16

const (
	tagMobilityUnknown = TagMobility(0)
	TagsAreStatic      = TagMobility(500)
	TagsMayMove        = TagMobility(5000)
	TagsAreInMotion    = TagMobility(10000)
)

// Environment describes the expected operating environment.
// For unknown values, set the field to its zero value.
type Environment struct {
	NumNearbyReaders uint
	PopulationSize   uint16
	Mobility         TagMobility
}

var (
	scanStrs = [...][]byte{
		ScanFast:   []byte("Fast"),
		ScanNormal: []byte("Normal"),
		ScanDeep:   []byte("Deep"),
	}
)

func (s ScanType) MarshalText() ([]byte, error) {
	if !(0 <= int(s) && int(s) < len(scanStrs)) {
		return nil, errors.Errorf("unknown ScanType: %v", int(s))
	}
	return scanStrs[s], nil
}

func (s *ScanType) UnmarshalText(text []byte) error {
	for i := range scanStrs {
		if bytes.Equal(scanStrs[i], text) {
			*s = ScanType(i)
			return nil
		}
	}

	return errors.Errorf("unknown ScanType: %q", string(text))
}

func (s ScanType) String() string {
	b, err := s.MarshalText()
	if err != nil {
		return "ScanType(?)"
	}
	return string(b)
}
