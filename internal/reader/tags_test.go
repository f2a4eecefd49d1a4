//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgexfoundry/llrp-reader-client/internal/llrp"
	"edgexfoundry/llrp-reader-client/internal/llrp/llrptest"
)

var testEPC = llrptest.Unhex("300833b2ddd906c000000000")

func u16p(v uint16) *uint16 { return &v }
func u32p(v uint32) *uint32 { return &v }
func u64p(v uint64) *uint64 { return &v }
func f64p(v float64) *float64 { return &v }
func s16p(v int16) *int16 { return &v }

func TestTagPipeline_Extract(t *testing.T) {
	all := llrp.ContentSelector{
		EnableROSpecID:                 true,
		EnableSpecIndex:                true,
		EnableInventoryParameterSpecID: true,
		EnableAntennaID:                true,
		EnableChannelIndex:             true,
		EnablePeakRSSI:                 true,
		EnableFirstSeenTimestamp:       true,
		EnableLastSeenTimestamp:        true,
		EnableTagSeenCount:             true,
		EnableAccessSpecID:             true,
		EnablePCBits:                   true,
		EnableCRC:                      true,
	}

	tag := llrptest.Tag(testEPC,
		llrptest.TV(llrp.ParamROSpecID, "ROSpecID", llrp.Uint(9)),
		llrptest.TV(llrp.ParamSpecIndex, "SpecIndex", llrp.Uint(1)),
		llrptest.TV(llrp.ParamInventoryParameterSpecID, "InventoryParameterSpecID", llrp.Uint(2)),
		llrptest.Antenna(3),
		llrptest.PeakRSSI(-61),
		llrptest.TV(llrp.ParamChannelIndex, "ChannelIndex", llrp.Uint(17)),
		llrptest.TV(llrp.ParamFirstSeenTimestampUTC, "Microseconds", llrp.Uint(1000)),
		llrptest.TV(llrp.ParamLastSeenTimestampUptime, "Microseconds", llrp.Uint(2000)),
		llrptest.TV(llrp.ParamTagSeenCount, "TagCount", llrp.Uint(4)),
		llrptest.TV(llrp.ParamAccessSpecID, "AccessSpecID", llrp.Uint(5)),
		llrp.F("AirProtocolTagData", llrp.Parameters{
			llrp.NewParameter(llrp.ParamC1G2PC, llrp.F("PC_Bits", llrp.Uint(0x3000))),
			llrp.NewParameter(llrp.ParamC1G2CRC, llrp.F("CRC", llrp.Uint(0xBEEF))),
		}))

	var tp tagPipeline
	tp.reset(all, false)
	got := tp.process(llrptest.TagReport(tag))
	require.Len(t, got, 1)

	require.Equal(t, TagReport{
		EPC:                      testEPC,
		AntennaID:                u16p(3),
		ChannelIndex:             u16p(17),
		PeakRSSI:                 f64p(-61),
		SeenCount:                u16p(4),
		FirstSeenUTC:             u64p(1000),
		LastSeenUptime:           u64p(2000),
		ROSpecID:                 u32p(9),
		SpecIndex:                u16p(1),
		InventoryParameterSpecID: u16p(2),
		AccessSpecID:             u32p(5),
		PC:                       u16p(0x3000),
		CRC:                      u16p(0xBEEF),
	}, got[0])
	require.Equal(t, "300833b2ddd906c000000000", got[0].EPCHex())

	// the same tag with nothing enabled
	tp.reset(llrp.ContentSelector{}, false)
	got = tp.process(llrptest.TagReport(tag))
	require.Equal(t, []TagReport{{EPC: testEPC}}, got)
}

func TestTagPipeline_ImpinjFields(t *testing.T) {
	tag := llrptest.Tag(testEPC,
		llrptest.PeakRSSI(-52),
		llrp.F("Custom", llrp.Parameters{
			llrp.NewParameter(llrp.ParamImpinjPeakRSSI, llrp.F("RSSI", llrp.Int(-5234))),
			llrp.NewParameter(llrp.ParamImpinjRFPhaseAngle, llrp.F("PhaseAngle", llrp.Uint(2048))),
			llrp.NewParameter(llrp.ParamImpinjRFDopplerFrequency, llrp.F("DopplerFrequency", llrp.Int(-120))),
		}))

	tests := []struct {
		name string
		cs   llrp.ContentSelector
		want TagReport
	}{
		{
			name: "standard rssi only",
			cs:   llrp.ContentSelector{EnablePeakRSSI: true},
			want: TagReport{EPC: testEPC, PeakRSSI: f64p(-52)},
		},
		{
			name: "impinj rssi wins",
			cs:   llrp.ContentSelector{EnablePeakRSSI: true, EnableImpinjPeakRSSI: true},
			want: TagReport{EPC: testEPC, PeakRSSI: f64p(-52.34)},
		},
		{
			name: "phase and doppler",
			cs:   llrp.ContentSelector{EnableRFPhaseAngle: true, EnableRFDopplerFrequency: true},
			want: TagReport{EPC: testEPC, PhaseAngle: u16p(2048), DopplerFrequency: s16p(-120)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tp tagPipeline
			tp.reset(tt.cs, false)
			got := tp.process(llrptest.TagReport(tag))
			require.Equal(t, []TagReport{tt.want}, got)
		})
	}
}

func TestTagPipeline_FillAmbiguousNil(t *testing.T) {
	cs := llrp.ContentSelector{
		EnableAntennaID:         true,
		EnablePeakRSSI:          true,
		EnableLastSeenTimestamp: true,
		EnableAccessSpecID:      true,
	}

	first := llrptest.Tag(testEPC,
		llrptest.Antenna(2),
		llrptest.PeakRSSI(-40),
		llrptest.TV(llrp.ParamLastSeenTimestampUTC, "Microseconds", llrp.Uint(10)),
		llrptest.TV(llrp.ParamAccessSpecID, "AccessSpecID", llrp.Uint(7)))
	// same antenna and RSSI, so the Reader leaves them out
	second := llrptest.Tag(testEPC,
		llrptest.TV(llrp.ParamLastSeenTimestampUTC, "Microseconds", llrp.Uint(20)))
	third := llrptest.Tag(testEPC, llrptest.Antenna(4))

	t.Run("filled", func(t *testing.T) {
		var tp tagPipeline
		tp.reset(cs, true)
		got := tp.process(llrptest.TagReport(first, second, third))
		require.Len(t, got, 3)

		assert.Equal(t, u16p(2), got[1].AntennaID)
		assert.Equal(t, f64p(-40), got[1].PeakRSSI)
		assert.Equal(t, u64p(20), got[1].LastSeenUTC)
		assert.Nil(t, got[1].AccessSpecID)

		assert.Equal(t, u16p(4), got[2].AntennaID)
		assert.Equal(t, f64p(-40), got[2].PeakRSSI)
		assert.Equal(t, u64p(20), got[2].LastSeenUTC)

		// the values are copies
		*got[0].AntennaID = 99
		assert.Equal(t, u16p(2), got[1].AntennaID)
	})

	t.Run("not filled", func(t *testing.T) {
		var tp tagPipeline
		tp.reset(cs, false)
		got := tp.process(llrptest.TagReport(first, second))
		assert.Nil(t, got[1].AntennaID)
		assert.Nil(t, got[1].PeakRSSI)
	})

	t.Run("reset forgets", func(t *testing.T) {
		var tp tagPipeline
		tp.reset(cs, true)
		tp.process(llrptest.TagReport(first))
		tp.reset(cs, true)
		got := tp.process(llrptest.TagReport(second))
		assert.Nil(t, got[0].AntennaID)
	})

	t.Run("disabled fields stay nil", func(t *testing.T) {
		var tp tagPipeline
		tp.reset(llrp.ContentSelector{EnablePeakRSSI: true}, true)
		got := tp.process(llrptest.TagReport(first, second))
		assert.Nil(t, got[1].AntennaID)
		assert.Equal(t, f64p(-40), got[1].PeakRSSI)
	})
}

func TestTagPipeline_ReadData(t *testing.T) {
	tag := llrptest.Tag(testEPC, llrp.F("OpSpecResult", llrp.Parameters{
		llrp.NewParameter(llrp.ParamC1G2ReadOpSpecResult,
			llrp.F("Result", llrp.Uint(0)),
			llrp.F("OpSpecID", llrp.Uint(1)),
			llrp.F("ReadData", llrp.Uint16s{0xE280, 0x1160})),
	}))

	var tp tagPipeline
	tp.reset(llrp.ContentSelector{}, false)
	got := tp.process(llrptest.TagReport(tag))
	require.Equal(t, "e2801160", got[0].ReadData)
}

func TestTagReport_JSON(t *testing.T) {
	r := TagReport{
		EPC:         testEPC,
		AntennaID:   u16p(1),
		LastSeenUTC: u64p(1612137600000000),
	}
	b, err := json.Marshal(r)
	require.NoError(t, err)
	require.JSONEq(t, `{"EPC":"MAgzst3ZBsAAAAAA","AntennaID":1,"LastSeenUTC":1612137600000000}`, string(b))

	ts, ok := r.LastSeen()
	require.True(t, ok)
	require.Equal(t, time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC), ts)

	_, ok = TagReport{}.LastSeen()
	require.False(t, ok)
}
