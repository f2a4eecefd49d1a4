//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ROReportTrigger values.
const (
	ReportTriggerNone = uint8(0)
	NTagsOrAIEnd      = uint8(1)
	NTagsOrROEnd      = uint8(2)
)

// ContentSelector chooses which optional fields Readers put in tag reports.
//
// The first ten fields map to TagReportContentSelector;
// CRC and PC bits are requested with a C1G2EPCMemorySelector;
// the Impinj fields only have an effect on Impinj Readers.
type ContentSelector struct {
	EnableROSpecID                 bool
	EnableSpecIndex                bool
	EnableInventoryParameterSpecID bool
	EnableAntennaID                bool
	EnableChannelIndex             bool
	EnablePeakRSSI                 bool
	EnableFirstSeenTimestamp       bool
	EnableLastSeenTimestamp        bool
	EnableTagSeenCount             bool
	EnableAccessSpecID             bool

	EnableCRC    bool
	EnablePCBits bool

	EnableImpinjPeakRSSI     bool
	EnableRFPhaseAngle       bool
	EnableRFDopplerFrequency bool
}

// DefaultContentSelector reports the antenna, RSSI, and last-seen time.
func DefaultContentSelector() ContentSelector {
	return ContentSelector{
		EnableAntennaID:         true,
		EnablePeakRSSI:          true,
		EnableLastSeenTimestamp: true,
	}
}

func (cs *ContentSelector) flags() []struct {
	name string
	ptr  *bool
} {
	return []struct {
		name string
		ptr  *bool
	}{
		{"EnableROSpecID", &cs.EnableROSpecID},
		{"EnableSpecIndex", &cs.EnableSpecIndex},
		{"EnableInventoryParameterSpecID", &cs.EnableInventoryParameterSpecID},
		{"EnableAntennaID", &cs.EnableAntennaID},
		{"EnableChannelIndex", &cs.EnableChannelIndex},
		{"EnablePeakRSSI", &cs.EnablePeakRSSI},
		{"EnableFirstSeenTimestamp", &cs.EnableFirstSeenTimestamp},
		{"EnableLastSeenTimestamp", &cs.EnableLastSeenTimestamp},
		{"EnableTagSeenCount", &cs.EnableTagSeenCount},
		{"EnableAccessSpecID", &cs.EnableAccessSpecID},
		{"EnableCRC", &cs.EnableCRC},
		{"EnablePCBits", &cs.EnablePCBits},
		{"EnableImpinjPeakRSSI", &cs.EnableImpinjPeakRSSI},
		{"EnableRFPhaseAngle", &cs.EnableRFPhaseAngle},
		{"EnableRFDopplerFrequency", &cs.EnableRFDopplerFrequency},
	}
}

// SetFlag sets the named flag, using the same names as the struct fields.
// Names are case-insensitive.
func (cs *ContentSelector) SetFlag(name string, on bool) error {
	for _, f := range cs.flags() {
		if strings.EqualFold(f.name, name) {
			*f.ptr = on
			return nil
		}
	}
	return errors.Errorf("unknown tag content selector flag %q", name)
}

// ImpinjEnabled reports whether any Impinj-only field is enabled.
func (cs ContentSelector) ImpinjEnabled() bool {
	return cs.EnableImpinjPeakRSSI || cs.EnableRFPhaseAngle || cs.EnableRFDopplerFrequency
}

// Parameter returns the TagReportContentSelector for the standard fields.
func (cs ContentSelector) Parameter() *Parameter {
	p := NewParameter(ParamTagReportContentSelector,
		F("Flags", Bits{
			"EnableROSpecID":                 Flag(cs.EnableROSpecID),
			"EnableSpecIndex":                Flag(cs.EnableSpecIndex),
			"EnableInventoryParameterSpecID": Flag(cs.EnableInventoryParameterSpecID),
			"EnableAntennaID":                Flag(cs.EnableAntennaID),
			"EnableChannelIndex":             Flag(cs.EnableChannelIndex),
			"EnablePeakRSSI":                 Flag(cs.EnablePeakRSSI),
			"EnableFirstSeenTimestamp":       Flag(cs.EnableFirstSeenTimestamp),
			"EnableLastSeenTimestamp":        Flag(cs.EnableLastSeenTimestamp),
			"EnableTagSeenCount":             Flag(cs.EnableTagSeenCount),
			"EnableAccessSpecID":             Flag(cs.EnableAccessSpecID),
		}))

	if cs.EnableCRC || cs.EnablePCBits {
		p.Set("AirProtocolEPCMemorySelector", Parameters{
			NewParameter("C1G2EPCMemorySelector", F("Flags", Bits{
				"EnableCRC":     Flag(cs.EnableCRC),
				"EnablePCBits":  Flag(cs.EnablePCBits),
				"EnableXPCBits": 0,
			})),
		})
	}
	return p
}

// ImpinjParameter returns the ImpinjTagReportContentSelector
// for the Impinj-only fields, or nil if none are enabled.
func (cs ContentSelector) ImpinjParameter() *Parameter {
	if !cs.ImpinjEnabled() {
		return nil
	}

	p := NewParameter(ParamImpinjTagReportContentSelector)
	enable := func(name, field string, on bool) {
		if on {
			p.Set(name, NewParameter(name, F(field, Uint(1))))
		}
	}
	enable(ParamImpinjEnableRFPhaseAngle, "RFPhaseAngleMode", cs.EnableRFPhaseAngle)
	enable(ParamImpinjEnablePeakRSSI, "PeakRSSIMode", cs.EnableImpinjPeakRSSI)
	enable(ParamImpinjEnableRFDopplerFrequency, "RFDopplerFrequencyMode", cs.EnableRFDopplerFrequency)
	return p
}

// ReportSpec is when and what a Reader reports.
type ReportSpec struct {
	Trigger uint8
	N       uint16 // 0 = unlimited
	Content ContentSelector
}

// NewReportSpec returns an ROReportSpec for the standard content fields.
func (d *BasicDevice) NewReportSpec(r ReportSpec) *Parameter {
	return NewParameter(ParamROReportSpec,
		F("ROReportTrigger", Uint(r.Trigger)),
		F("N", Uint(r.N)),
		F(ParamTagReportContentSelector, r.Content.Parameter()))
}

// NewReportSpec returns an ROReportSpec that also requests
// the Impinj-specific content fields.
func (d *ImpinjDevice) NewReportSpec(r ReportSpec) *Parameter {
	p := d.BasicDevice.NewReportSpec(r)
	if ext := r.Content.ImpinjParameter(); ext != nil {
		p.Set("Custom", Parameters{ext})
	}
	return p
}

// Reader event types, used by EventNotificationState.
const (
	EventHopping                 = uint16(0)
	EventGPI                     = uint16(1)
	EventROSpec                  = uint16(2)
	EventReportBufferFillWarning = uint16(3)
	EventReaderException         = uint16(4)
	EventRFSurvey                = uint16(5)
	EventAISpec                  = uint16(6)
	EventAISpecWithSingulation   = uint16(7)
	EventAntenna                 = uint16(8)
	EventSpecLoop                = uint16(9)

	maxEventType     = EventSpecLoop
	lastLLRP101Event = EventAntenna
)

var eventTypes = map[string]uint16{
	"HoppingEvent":               EventHopping,
	"GPIEvent":                   EventGPI,
	"ROSpecEvent":                EventROSpec,
	"ReportBufferFillWarning":    EventReportBufferFillWarning,
	"ReaderExceptionEvent":       EventReaderException,
	"RFSurveyEvent":              EventRFSurvey,
	"AISpecEvent":                EventAISpec,
	"AISpecEventWithSingulation": EventAISpecWithSingulation,
	"AntennaEvent":               EventAntenna,
	"SpecLoopEvent":              EventSpecLoop,
}

func eventType(name string) (uint16, bool) {
	if t, ok := eventTypes[name]; ok {
		return t, true
	}
	for n, t := range eventTypes {
		if strings.EqualFold(n, name) {
			return t, true
		}
	}
	return 0, false
}

// EventSelector enables Reader event notifications by name.
// Names are case-insensitive; unlisted events are disabled.
type EventSelector map[string]bool

// Validate checks every name is a known event.
func (es EventSelector) Validate() error {
	for name := range es {
		if _, ok := eventType(name); !ok {
			return errors.Errorf("unknown event type %q", name)
		}
	}
	return nil
}

// Enabled reports whether the named event is enabled.
func (es EventSelector) Enabled(name string) bool {
	want, ok := eventType(name)
	if !ok {
		return false
	}
	for n, on := range es {
		if t, _ := eventType(n); t == want && on {
			return true
		}
	}
	return false
}

// Parameter returns a ReaderEventNotificationSpec
// with a state for every LLRP 1.0.1 event type.
// SpecLoopEvent is only included when enabled, since older Readers reject it.
func (es EventSelector) Parameter() (*Parameter, error) {
	if err := es.Validate(); err != nil {
		return nil, err
	}

	enabled := map[uint16]bool{}
	for name, on := range es {
		t, _ := eventType(name)
		enabled[t] = enabled[t] || on
	}

	var states Parameters
	for t := uint16(0); t <= maxEventType; t++ {
		if t > lastLLRP101Event && !enabled[t] {
			continue
		}
		states = append(states, NewParameter("EventNotificationState",
			F("EventType", Uint(t)),
			F("Flags", Bits{"NotificationState": Flag(enabled[t])})))
	}

	return NewParameter("ReaderEventNotificationSpec",
		F("EventNotificationState", states)), nil
}

// EventNames returns the names EventSelector accepts, sorted.
func EventNames() []string {
	names := make([]string, 0, len(eventTypes))
	for name := range eventTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KeepaliveSpec returns a KeepaliveSpec asking the Reader
// to send KEEPALIVE on the interval, or to stop if it's 0.
func KeepaliveSpec(interval Millisecs32) *Parameter {
	typ := uint8(0)
	if interval > 0 {
		typ = 1
	}
	return NewParameter("KeepaliveSpec",
		F("KeepaliveTriggerType", Uint(typ)),
		F("PeriodicTriggerValue", Uint(interval)))
}
