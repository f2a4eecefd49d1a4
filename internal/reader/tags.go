//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"encoding/hex"
	"time"

	"edgexfoundry/llrp-reader-client/internal/llrp"
)

// TagReport is a single tag observation.
//
// Optional values are nil unless their field is enabled
// in the Client's ContentSelector and the Reader reported them.
// Timestamps are microseconds, either since the Unix epoch (UTC)
// or since the Reader booted (Uptime).
type TagReport struct {
	EPC []byte

	AntennaID    *uint16  `json:",omitempty"`
	ChannelIndex *uint16  `json:",omitempty"`
	PeakRSSI     *float64 `json:",omitempty"` // dBm
	SeenCount    *uint16  `json:",omitempty"`

	FirstSeenUTC    *uint64 `json:",omitempty"`
	FirstSeenUptime *uint64 `json:",omitempty"`
	LastSeenUTC     *uint64 `json:",omitempty"`
	LastSeenUptime  *uint64 `json:",omitempty"`

	ROSpecID                 *uint32 `json:",omitempty"`
	SpecIndex                *uint16 `json:",omitempty"`
	InventoryParameterSpecID *uint16 `json:",omitempty"`
	AccessSpecID             *uint32 `json:",omitempty"`

	PC  *uint16 `json:",omitempty"`
	CRC *uint16 `json:",omitempty"`

	// Impinj extensions.
	PhaseAngle       *uint16 `json:",omitempty"`
	DopplerFrequency *int16  `json:",omitempty"`

	// ReadData is the hex result of a successful C1G2 Read, if there was one.
	ReadData string `json:",omitempty"`
}

// TagReportCallback receives the tags of each RO_ACCESS_REPORT, in order.
// The slice is shared by every callback and must not be modified.
type TagReportCallback func(reports []TagReport)

// EPCHex returns the EPC as a lowercase hex string.
func (r TagReport) EPCHex() string {
	return hex.EncodeToString(r.EPC)
}

// LastSeen returns the UTC last-seen time, if the Reader reported it.
func (r TagReport) LastSeen() (time.Time, bool) {
	if r.LastSeenUTC == nil {
		return time.Time{}, false
	}
	return time.UnixMicro(int64(*r.LastSeenUTC)).UTC(), true
}

// tagPipeline turns TagReportData into TagReports
// according to the fields enabled in a ContentSelector.
type tagPipeline struct {
	content llrp.ContentSelector

	// fill enables filling in enabled fields the Reader left out
	// with the last value it reported for them.
	fill bool
	last TagReport
}

// reset switches to a new ContentSelector and forgets previous values,
// since they no longer describe what the Reader will omit.
func (tp *tagPipeline) reset(content llrp.ContentSelector, fill bool) {
	tp.content = content
	tp.fill = fill
	tp.last = TagReport{}
}

func (tp *tagPipeline) process(m *llrp.Message) []TagReport {
	data := m.Params(llrp.ParamTagReportData)
	reports := make([]TagReport, 0, len(data))
	for _, d := range data {
		r := tp.extract(d)
		if tp.fill {
			tp.fillAmbiguousNil(&r)
		}
		reports = append(reports, r)
	}
	return reports
}

func tvUint(tag *llrp.Parameter, name, field string) (uint64, bool) {
	p, ok := tag.Param(name)
	if !ok {
		return 0, false
	}
	return p.Uint(field)
}

func opt16(tag *llrp.Parameter, enabled bool, name, field string) *uint16 {
	if !enabled {
		return nil
	}
	if v, ok := tvUint(tag, name, field); ok {
		x := uint16(v)
		return &x
	}
	return nil
}

func opt32(tag *llrp.Parameter, enabled bool, name, field string) *uint32 {
	if !enabled {
		return nil
	}
	if v, ok := tvUint(tag, name, field); ok {
		x := uint32(v)
		return &x
	}
	return nil
}

func opt64(tag *llrp.Parameter, enabled bool, name, field string) *uint64 {
	if !enabled {
		return nil
	}
	if v, ok := tvUint(tag, name, field); ok {
		return &v
	}
	return nil
}

func (tp *tagPipeline) extract(tag *llrp.Parameter) TagReport {
	cs := tp.content
	r := TagReport{
		AntennaID:    opt16(tag, cs.EnableAntennaID, llrp.ParamAntennaID, "AntennaID"),
		ChannelIndex: opt16(tag, cs.EnableChannelIndex, llrp.ParamChannelIndex, "ChannelIndex"),
		SeenCount:    opt16(tag, cs.EnableTagSeenCount, llrp.ParamTagSeenCount, "TagCount"),

		FirstSeenUTC:    opt64(tag, cs.EnableFirstSeenTimestamp, llrp.ParamFirstSeenTimestampUTC, "Microseconds"),
		FirstSeenUptime: opt64(tag, cs.EnableFirstSeenTimestamp, llrp.ParamFirstSeenTimestampUptime, "Microseconds"),
		LastSeenUTC:     opt64(tag, cs.EnableLastSeenTimestamp, llrp.ParamLastSeenTimestampUTC, "Microseconds"),
		LastSeenUptime:  opt64(tag, cs.EnableLastSeenTimestamp, llrp.ParamLastSeenTimestampUptime, "Microseconds"),

		ROSpecID:                 opt32(tag, cs.EnableROSpecID, llrp.ParamROSpecID, "ROSpecID"),
		SpecIndex:                opt16(tag, cs.EnableSpecIndex, llrp.ParamSpecIndex, "SpecIndex"),
		InventoryParameterSpecID: opt16(tag, cs.EnableInventoryParameterSpecID, llrp.ParamInventoryParameterSpecID, "InventoryParameterSpecID"),
		AccessSpecID:             opt32(tag, cs.EnableAccessSpecID, llrp.ParamAccessSpecID, "AccessSpecID"),
	}

	if epc, ok := tag.Param("EPCParameter"); ok {
		r.EPC, _ = epc.Bytes("EPC")
	}

	for _, ap := range tag.Params("AirProtocolTagData") {
		switch {
		case ap.Name == llrp.ParamC1G2PC && cs.EnablePCBits:
			v, _ := ap.Uint("PC_Bits")
			x := uint16(v)
			r.PC = &x
		case ap.Name == llrp.ParamC1G2CRC && cs.EnableCRC:
			v, _ := ap.Uint("CRC")
			x := uint16(v)
			r.CRC = &x
		}
	}

	// Impinj's high-resolution RSSI wins over the standard one.
	if c, ok := llrp.Default.FindCustom(tag, llrp.PENImpinj, llrp.ImpinjPeakRSSISubtype); ok && cs.EnableImpinjPeakRSSI {
		v, _ := c.Int("RSSI")
		x := float64(v) / 100.0
		r.PeakRSSI = &x
	} else if cs.EnablePeakRSSI {
		if p, ok := tag.Param(llrp.ParamPeakRSSI); ok {
			if v, ok := p.Int("PeakRSSI"); ok {
				x := float64(v)
				r.PeakRSSI = &x
			}
		}
	}

	if c, ok := llrp.Default.FindCustom(tag, llrp.PENImpinj, llrp.ImpinjRFPhaseAngleSubtype); ok && cs.EnableRFPhaseAngle {
		v, _ := c.Uint("PhaseAngle")
		x := uint16(v)
		r.PhaseAngle = &x
	}
	if c, ok := llrp.Default.FindCustom(tag, llrp.PENImpinj, llrp.ImpinjRFDopplerFrequencySubtype); ok && cs.EnableRFDopplerFrequency {
		v, _ := c.Int("DopplerFrequency")
		x := int16(v)
		r.DopplerFrequency = &x
	}

	r.ReadData, _ = llrp.ReadDataAsHex(tag)
	return r
}

func fill16(v, last **uint16) {
	if *v == nil {
		if *last != nil {
			x := **last
			*v = &x
		}
		return
	}
	x := **v
	*last = &x
}

func fill32(v, last **uint32) {
	if *v == nil {
		if *last != nil {
			x := **last
			*v = &x
		}
		return
	}
	x := **v
	*last = &x
}

func fill64(v, last **uint64) {
	if *v == nil {
		if *last != nil {
			x := **last
			*v = &x
		}
		return
	}
	x := **v
	*last = &x
}

func fillFloat(v, last **float64) {
	if *v == nil {
		if *last != nil {
			x := **last
			*v = &x
		}
		return
	}
	x := **v
	*last = &x
}

// fillAmbiguousNil handles the worst feature of LLRP: ambiguous nil parameters.
//
// A Reader may leave an enabled parameter out of a TagReportData
// when its value matches the last one it sent of the same type,
// so a missing value can mean "disabled" or "unchanged".
// The pipeline knows which fields are enabled, so it fills the latter
// with the most recent value reported, if there's been one.
// Uptimes and AccessSpecIDs aren't filled.
// This only works if reports are processed in full, in order.
func (tp *tagPipeline) fillAmbiguousNil(r *TagReport) {
	cs, last := tp.content, &tp.last

	if cs.EnableROSpecID {
		fill32(&r.ROSpecID, &last.ROSpecID)
	}
	if cs.EnableSpecIndex {
		fill16(&r.SpecIndex, &last.SpecIndex)
	}
	if cs.EnableInventoryParameterSpecID {
		fill16(&r.InventoryParameterSpecID, &last.InventoryParameterSpecID)
	}
	if cs.EnableAntennaID {
		fill16(&r.AntennaID, &last.AntennaID)
	}
	if cs.EnablePeakRSSI || cs.EnableImpinjPeakRSSI {
		fillFloat(&r.PeakRSSI, &last.PeakRSSI)
	}
	if cs.EnableChannelIndex {
		fill16(&r.ChannelIndex, &last.ChannelIndex)
	}
	if cs.EnableFirstSeenTimestamp {
		fill64(&r.FirstSeenUTC, &last.FirstSeenUTC)
	}
	if cs.EnableLastSeenTimestamp {
		fill64(&r.LastSeenUTC, &last.LastSeenUTC)
	}
	if cs.EnableTagSeenCount {
		fill16(&r.SeenCount, &last.SeenCount)
	}
}
