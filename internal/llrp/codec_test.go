//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"edgexfoundry/llrp-reader-client/internal/llrp"
	"edgexfoundry/llrp-reader-client/internal/llrp/llrptest"
)

func TestEncode_ConnectionAttempt(t *testing.T) {
	want := llrptest.Unhex("043f000000200000000000f600160080000c0000000000000000010000060000")
	got, err := llrp.EncodeMessage(llrptest.ConnectionAttempt(llrp.ConnSuccess))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestDecode_ConnectionAttempt(t *testing.T) {
	b := llrptest.Unhex("043f000000200ab288c900f600160080000c0004f8535baadaff010000060000")
	m, err := llrp.DecodeMessage(b)
	require.NoError(t, err)

	require.Equal(t, llrp.MsgReaderEventNotification, m.Name)
	require.Equal(t, llrp.Version1_0_1, m.Version)
	require.Equal(t, uint32(0x0ab288c9), m.ID)

	data, ok := m.Param(llrp.ParamReaderEventNotificationData)
	require.True(t, ok)

	ts, ok := data.Param("Timestamp")
	require.True(t, ok)
	require.Equal(t, llrp.ParamUTCTimestamp, ts.Name)
	us, ok := ts.Uint("Microseconds")
	require.True(t, ok)
	require.Equal(t, uint64(0x0004f8535baadaff), us)

	ev, ok := data.Param(llrp.ParamConnectionAttemptEvent)
	require.True(t, ok)
	status, _ := ev.Uint("Status")
	require.Equal(t, uint64(llrp.ConnSuccess), status)

	again, err := llrp.EncodeMessage(m)
	require.NoError(t, err)
	require.Equal(t, b, again)
}

func TestEncode_TagReportContentSelector(t *testing.T) {
	cs := llrp.ContentSelector{
		EnableAntennaID:          true,
		EnablePeakRSSI:           true,
		EnableFirstSeenTimestamp: true,
		EnableLastSeenTimestamp:  true,
		EnableTagSeenCount:       true,
	}

	got, err := llrp.Default.EncodeParameter(cs.Parameter())
	require.NoError(t, err)
	require.Equal(t, llrptest.Unhex("00ee 0006 1780"), got)

	cs.EnableCRC = true
	got, err = llrp.Default.EncodeParameter(cs.Parameter())
	require.NoError(t, err)
	require.Equal(t, llrptest.Unhex("00ee 000b 1780 015c 0005 80"), got)
}

func TestEncode_GetReaderConfig(t *testing.T) {
	m := llrp.NewMessage(llrp.MsgGetReaderConfig,
		llrp.F("AntennaID", llrp.Uint(0)),
		llrp.F("RequestedData", llrp.Uint(0)),
		llrp.F("GPIPortNum", llrp.Uint(0)),
		llrp.F("GPOPortNum", llrp.Uint(0)))
	m.ID = 1

	got, err := llrp.EncodeMessage(m)
	require.NoError(t, err)
	require.Equal(t, llrptest.Unhex("0402 00000011 00000001 0000 00 0000 0000"), got)

	m.Set("Custom", llrp.Parameters{
		llrp.NewParameter(llrp.ParamImpinjRequestedData,
			llrp.F("RequestedData", llrp.Uint(2000))),
	})
	got, err = llrp.EncodeMessage(m)
	require.NoError(t, err)
	require.Equal(t, llrptest.Unhex(`0402 00000021 00000001 0000 00 0000 0000
		03ff 0010 0000651a 00000015 000007d0`), got)
}

func TestDecode_GetReaderConfigResponse(t *testing.T) {
	b := llrptest.Unhex(llrptest.GetReaderConfigResponse)
	require.Len(t, b, 843)

	var skipped []*llrp.UnknownTypeError
	dec := llrp.NewDecoder(llrp.Default)
	dec.OnSkip = func(err *llrp.UnknownTypeError) { skipped = append(skipped, err) }

	m, err := dec.DecodeMessage(b)
	require.NoError(t, err)
	require.Equal(t, llrp.MsgGetReaderConfigResponse, m.Name)
	require.Equal(t, uint32(3), m.ID)

	code, _, ok := m.Status()
	require.True(t, ok)
	require.Equal(t, llrp.StatusSuccess, code)

	ident, ok := m.Param("Identification")
	require.True(t, ok)
	readerID, _ := ident.Bytes("ReaderID")
	require.Equal(t, llrptest.Unhex("001625ffff10ba47"), readerID)

	require.Len(t, m.Params("AntennaProperties"), 2)
	antennas := m.Params(llrp.ParamAntennaConfiguration)
	require.Len(t, antennas, 2)
	for i, ac := range antennas {
		id, _ := ac.Uint("AntennaID")
		require.Equal(t, uint64(i+1), id)

		tx, ok := ac.Param(llrp.ParamRFTransmitter)
		require.True(t, ok)
		power, _ := tx.Uint("TransmitPower")
		require.Equal(t, uint64(81), power)
		hop, _ := tx.Uint("HopTableID")
		require.Equal(t, uint64(1), hop)

		cmds := ac.Params("AirProtocolInventoryCommandSettings")
		require.Len(t, cmds, 1)
		rf, ok := cmds[0].Param("C1G2RFControl")
		require.True(t, ok)
		mode, _ := rf.Uint("ModeIndex")
		require.Equal(t, uint64(1000), mode)

		sc, ok := cmds[0].Param("C1G2SingulationControl")
		require.True(t, ok)
		flags, _ := sc.Get("Flags")
		require.Equal(t, llrp.Bits{"Session": 1}, flags)
		pop, _ := sc.Uint("TagPopulation")
		require.Equal(t, uint64(32), pop)

		search, ok := llrp.Default.FindCustom(cmds[0], llrp.PENImpinj, llrp.ImpinjSearchModeSubtype)
		require.True(t, ok)
		sm, _ := search.Uint("InventorySearchMode")
		require.Equal(t, uint64(llrp.ImpinjSearchReaderSelected), sm)
	}

	events, ok := m.Param("ReaderEventNotificationSpec")
	require.True(t, ok)
	states := events.Params("EventNotificationState")
	require.Len(t, states, 9)
	for i, s := range states {
		typ, _ := s.Uint("EventType")
		require.Equal(t, uint64(i), typ)
		on := s.Flag("Flags", "NotificationState")
		require.Equal(t, typ == uint64(llrp.EventReaderException) || typ == uint64(llrp.EventAntenna), on)
	}

	rs, ok := m.Param(llrp.ParamROReportSpec)
	require.True(t, ok)
	trigger, _ := rs.Uint("ROReportTrigger")
	require.Equal(t, uint64(llrp.NTagsOrROEnd), trigger)
	n, _ := rs.Uint("N")
	require.Equal(t, uint64(1), n)

	trcs, ok := rs.Param(llrp.ParamTagReportContentSelector)
	require.True(t, ok)
	require.True(t, trcs.Flag("Flags", "EnableAntennaID"))
	require.True(t, trcs.Flag("Flags", "EnablePeakRSSI"))
	require.True(t, trcs.Flag("Flags", "EnableFirstSeenTimestamp"))
	require.False(t, trcs.Flag("Flags", "EnableLastSeenTimestamp"))
	require.Len(t, trcs.Params("AirProtocolEPCMemorySelector"), 1)

	impinjCS, ok := llrp.Default.FindCustom(rs, llrp.PENImpinj, llrp.ImpinjTagReportContentSelectorSubtype)
	require.True(t, ok)
	for _, name := range []string{
		"ImpinjEnableSerializedTID",
		llrp.ParamImpinjEnableRFPhaseAngle,
		llrp.ParamImpinjEnablePeakRSSI,
		"ImpinjEnableGPSCoordinates",
		"ImpinjEnableOptimizedRead",
		llrp.ParamImpinjEnableRFDopplerFrequency,
	} {
		_, ok := impinjCS.Param(name)
		require.True(t, ok, name)
	}

	csv, ok := m.Param("LLRPConfigurationStateValue")
	require.True(t, ok)
	v, _ := csv.Uint("LLRPConfigurationStateValue")
	require.Equal(t, uint64(0x78579937), v)

	_, ok = m.Param("AccessReportSpec")
	require.True(t, ok)
	_, ok = m.Param("KeepaliveSpec")
	require.True(t, ok)
	require.Len(t, m.Params("GPIPortCurrentState"), 4)
	require.Len(t, m.Params("GPOWriteData"), 4)
	_, ok = m.Param("EventsAndReports")
	require.True(t, ok)

	require.Len(t, skipped, 21)
	var subtypes []uint32
	for _, s := range skipped {
		require.Equal(t, llrp.Custom, s.Encoding)
		require.Equal(t, llrp.PENImpinj, s.Vendor)
		require.True(t, s.Skippable())
		subtypes = append(subtypes, s.Subtype)
	}
	require.Equal(t, []uint32{
		26, 27, 28, 26, 27, 28, 24,
		22, 36, 36, 36, 36, 37, 38, 39, 40, 60, 64, 64, 64, 64,
	}, subtypes)
}

func TestEncode_Errors(t *testing.T) {
	rospec := func(fields ...llrp.Field) *llrp.Message {
		return llrp.NewMessage(llrp.MsgAddROSpec,
			llrp.F(llrp.ParamROSpec, llrp.NewParameter(llrp.ParamROSpec, fields...)))
	}

	badVersion := llrp.NewMessage(llrp.MsgKeepAlive)
	badVersion.Version = 8

	tests := []struct {
		name string
		msg  *llrp.Message
	}{
		{"nil message", nil},
		{"unknown message", llrp.NewMessage("NOT_A_MESSAGE")},
		{"bad version", badVersion},
		{"unsigned overflow", llrp.NewMessage(llrp.MsgGetReaderConfig,
			llrp.F("AntennaID", llrp.Uint(0)),
			llrp.F("RequestedData", llrp.Uint(256)),
			llrp.F("GPIPortNum", llrp.Uint(0)),
			llrp.F("GPOPortNum", llrp.Uint(0)))},
		{"wrong value type", llrp.NewMessage(llrp.MsgDeleteROSpec,
			llrp.F("ROSpecID", llrp.String("1")))},
		{"missing field", llrp.NewMessage(llrp.MsgDeleteROSpec)},
		{"unknown field", llrp.NewMessage(llrp.MsgDeleteROSpec,
			llrp.F("ROSpecID", llrp.Uint(1)),
			llrp.F("Priority", llrp.Uint(1)))},
		{"missing required parameter", llrp.NewMessage(llrp.MsgAddROSpec)},
		{"disallowed parameter", llrp.NewMessage(llrp.MsgAddROSpec,
			llrp.F(llrp.ParamROSpec, llrp.NewParameter(llrp.ParamPeakRSSI,
				llrp.F("PeakRSSI", llrp.Int(-50)))))},
		{"empty required list", rospec(
			llrp.F("ROSpecID", llrp.Uint(1)),
			llrp.F("Priority", llrp.Uint(0)),
			llrp.F("CurrentState", llrp.Uint(0)),
			llrp.F("ROBoundarySpec", llrp.Behavior{}.Boundary()),
			llrp.F("SpecParameter", llrp.Parameters{}))},
		{"signed overflow", llrptest.TagReport(llrptest.Tag(make([]byte, 12),
			llrptest.TV(llrp.ParamPeakRSSI, "PeakRSSI", llrp.Int(128))))},
		{"fixed size mismatch", llrptest.TagReport(llrptest.Tag(make([]byte, 11)))},
		{"unknown subfield", llrp.NewMessage(llrp.MsgSetReaderConfig,
			llrp.F("Flags", llrp.Bits{"Restart": 1}))},
		{"subfield overflow", llrp.NewMessage(llrp.MsgSetReaderConfig,
			llrp.F("Flags", llrp.Bits{"ResetToFactoryDefaults": 2}))},
		{"invalid UTF-8", llrp.NewMessage(llrp.MsgErrorMessage,
			llrp.F(llrp.ParamLLRPStatus, llrptest.Status(llrp.StatusDeviceError, "\xff")))},
		{"unknown parameter", llrp.NewMessage(llrp.MsgGetReaderConfigResponse,
			llrp.F(llrp.ParamLLRPStatus, llrp.NewParameter("NotAParameter")))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := llrp.EncodeMessage(tt.msg)
			require.Error(t, err)
			require.Nil(t, b)

			var encErr *llrp.EncodingError
			require.True(t, errors.As(err, &encErr), "%T: %v", err, err)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name    string
		hex     string
		unknown bool
	}{
		{name: "shorter than header", hex: "043e000000"},
		{name: "length mismatch", hex: "043e0000000b00000000"},
		{name: "unknown message", hex: "07d00000000a00000001", unknown: true},
		{name: "unknown custom message", hex: "07ff0000000f00000001 00000001 05", unknown: true},
		{name: "truncated custom header", hex: "07ff0000000c00000001 0000"},
		{name: "missing required parameter", hex: "043f0000000a00000000"},
		{name: "unexpected parameter", hex: "043e0000001600000000 0080000c0000000000000000"},
		{name: "unknown TV parameter", hex: "043e0000000b00000000 ff", unknown: true},
		{name: "parameter overruns container", hex: "043e0000000e00000000 00800010"},
		{name: "parameter shorter than header", hex: "043e0000000e00000000 00800002"},
		{name: "truncated field", hex: "04150000000c00000000 0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := llrp.DecodeMessage(llrptest.Unhex(tt.hex))
			require.Error(t, err)
			require.Nil(t, m)

			var unk *llrp.UnknownTypeError
			var decErr *llrp.DecodeError
			if tt.unknown {
				require.True(t, errors.As(err, &unk), "%T: %v", err, err)
			} else {
				require.True(t, errors.As(err, &decErr), "%T: %v", err, err)
			}
		})
	}
}

func TestDecode_SkipsUnknownParameters(t *testing.T) {
	// KEEPALIVE followed by a TLV parameter with an unassigned type
	b := llrptest.Unhex("043e0000001300000007 03e7 0009 0102030405")

	var skipped []*llrp.UnknownTypeError
	dec := llrp.NewDecoder(llrp.Default)
	dec.OnSkip = func(err *llrp.UnknownTypeError) { skipped = append(skipped, err) }

	m, err := dec.DecodeMessage(b)
	require.NoError(t, err)
	require.Equal(t, llrp.MsgKeepAlive, m.Name)
	require.Equal(t, uint32(7), m.ID)

	require.Len(t, skipped, 1)
	require.Equal(t, llrp.TLV, skipped[0].Encoding)
	require.Equal(t, uint16(999), skipped[0].Type)
	require.Equal(t, 9, skipped[0].Length)
}

func TestDecodeParameter(t *testing.T) {
	dec := llrp.NewDecoder(llrp.Default)
	b := llrptest.Unhex("81 0003 86 ce 03e7 0006 0000")

	p, n, err := dec.DecodeParameter(b, 0)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, llrp.ParamAntennaID, p.Name)
	id, _ := p.Uint("AntennaID")
	require.Equal(t, uint64(3), id)

	p, n, err = dec.DecodeParameter(b, 3)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	rssi, _ := p.Int("PeakRSSI")
	require.Equal(t, int64(-50), rssi)

	p, n, err = dec.DecodeParameter(b, 5)
	require.Nil(t, p)
	require.Equal(t, 6, n)
	var unk *llrp.UnknownTypeError
	require.True(t, errors.As(err, &unk))
	require.True(t, unk.Skippable())

	_, _, err = dec.DecodeParameter(b, len(b)+1)
	require.Error(t, err)
}

func TestMessageStatus(t *testing.T) {
	req := llrp.NewMessage(llrp.MsgStartROSpec, llrp.F("ROSpecID", llrp.Uint(1)))
	req.ID = 42

	resp := llrptest.Response(req, llrp.StatusFieldInvalid, 0)
	decoded, err := llrp.DecodeMessage(llrptest.MustEncode(resp))
	require.NoError(t, err)
	require.Equal(t, llrp.MsgStartROSpecResponse, decoded.Name)
	require.Equal(t, uint32(42), decoded.ID)

	code, desc, ok := decoded.Status()
	require.True(t, ok)
	require.Equal(t, llrp.StatusFieldInvalid, code)
	require.Equal(t, "rejected by test reader", desc)
	require.Equal(t, "FieldInvalid", code.String())

	_, _, ok = llrp.NewMessage(llrp.MsgKeepAlive).Status()
	require.False(t, ok)

	require.Equal(t, "StatusCode(999)", llrp.StatusCode(999).String())
}
