//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package llrptest provides captured LLRP traffic and message builders
// for tests of code that talks to Readers.
package llrptest

import (
	"encoding/hex"
	"strings"

	"edgexfoundry/llrp-reader-client/internal/llrp"
)

// ROAccessReportCapture is 45 RO_ACCESS_REPORT messages captured from a Reader,
// each with a single TagReportData, back to back as they arrived on the socket.
// Tags use TV EPC-96, AntennaID, PeakRSSI, FirstSeenTimestampUTC, and TagSeenCount,
// except one that uses a 144-bit EPCData.
const ROAccessReportCapture = `
043d0000002c4095892f00f000228d3005fb63ac1f3841ec88046781000186ce820004ec2ea8
354c09880001043d0000002c4095893000f000228d300833b2ddd906c00000000081000186c6
820004ec2ea8355af2880001043d0000002c4095893100f000228d3005fb63ac1f3841ec8804
6781000186cf820004ec2ea8359791880001043d0000002c4095893200f000228d300833b2dd
d906c00000000081000186c6820004ec2ea835a71c880001043d0000002c4095893300f00022
8d3005fb63ac1f3841ec88046781000186ce820004ec2ea835e0ff880001043d0000002c4095
893400f000228d300833b2ddd906c00000000081000186c6820004ec2ea835f3e0880001043d
0000002c4095893500f000228d3005fb63ac1f3841ec88046781000186ce820004ec2ea83630
49880001043d0000002c4095893600f000228d300833b2ddd906c00000000081000186c68200
04ec2ea836400f880001043d0000002c4095893700f000228d3005fb63ac1f3841ec88046781
000186ce820004ec2ea83679c8880001043d0000002c4095893800f000228d300833b2ddd906
c00000000081000186c6820004ec2ea8368c76880001043d0000002c4095893900f000228d30
0833b2ddd906c00000000081000186c6820004ec2ea836c617880001043d0000002c4095893a
00f000228d3005fb63ac1f3841ec88046781000186ce820004ec2ea836d516880001043d0000
002c4095893b00f000228d3005fb63ac1f3841ec88046781000186ce820004ec2ea8370ebf88
0001043d0000002c4095893c00f000228d300833b2ddd906c00000000081000186c6820004ec
2ea8372189880001043d0000002c4095893d00f000228d3005fb63ac1f3841ec880467810001
86cf820004ec2ea8375b09880001043d0000002c4095893e00f000228d300833b2ddd906c000
00000081000186c6820004ec2ea8376a40880001043d0000002c4095893f00f000228d3005fb
63ac1f3841ec88046781000186cf820004ec2ea837a430880001043d0000002c4095894000f0
00228d300833b2ddd906c00000000081000186c6820004ec2ea837b699880001043d00000037
4095894100f0002d00f1001800901fb41f712ac9c37ab79d618173188324001a81000186ef82
0004ec2ea8381f57880001043d0000002c4095894200f000228d3005fb63ac1f3841ec880467
81000186cf820004ec2ea8383238880001043d0000002c4095894300f000228d300833b2ddd9
06c00000000081000186c4820004ec2ea8384211880001043d0000002c4095894400f000228d
300833b2ddd906c00000000081000186c4820004ec2ea8387c55880001043d0000002c409589
4500f000228d3005fb63ac1f3841ec88046781000186cf820004ec2ea83892cf880001043d00
00002c4095894600f000228d300833b2ddd906c00000000081000186c3820004ec2ea838cc76
880001043d0000002c4095894700f000228d3005fb63ac1f3841ec88046781000186cf820004
ec2ea838dbb3880001043d0000002c4095894800f000228d3005fb63ac1f3841ec8804678100
0186cf820004ec2ea8395e67880001043d0000002c4095894900f000228d300833b2ddd906c0
0000000081000186c3820004ec2ea8396d13880001043d0000002c4095894a00f000228d3005
fb63ac1f3841ec88046781000186cf820004ec2ea83a3119880001043d0000002c4095894b00
f000228d300833b2ddd906c00000000081000186c3820004ec2ea83a4389880001043d000000
2c4095894c00f000228d300833b2ddd906c00000000081000186c3820004ec2ea83a7d2b8800
01043d0000002c4095894d00f000228d3005fb63ac1f3841ec88046781000186cf820004ec2e
a83a8c28880001043d0000002c4095894e00f000228d300833b2ddd906c00000000081000186
c3820004ec2ea83ac551880001043d0000002c4095894f00f000228d3005fb63ac1f3841ec88
046781000186cf820004ec2ea83ad450880001043d0000002c4095895000f000228d300833b2
ddd906c00000000081000186c7820004ec2ea83b26ad880001043d0000002c4095895100f000
228d3005fb63ac1f3841ec88046781000186cf820004ec2ea83b35eb880001043d0000002c40
95895200f000228d3005fb63ac1f3841ec88046781000186cf820004ec2ea83b701d88000104
3d0000002c4095895300f000228d300833b2ddd906c00000000081000186c7820004ec2ea83b
7f2c880001043d0000002c4095895400f000228d3005fb63ac1f3841ec88046781000186cf82
0004ec2ea83bb8d8880001043d0000002c4095895500f000228d300833b2ddd906c000000000
81000186c7820004ec2ea83bcbc5880001043d0000002c4095895600f000228d300833b2ddd9
06c00000000081000186c7820004ec2ea83c0566880001043d0000002c4095895700f000228d
3005fb63ac1f3841ec88046781000186cf820004ec2ea83c1479880001043d0000002c409589
5800f000228d3005fb63ac1f3841ec88046781000186cf820004ec2ea83c4e47880001043d00
00002c4095895900f000228d300833b2ddd906c00000000081000186c7820004ec2ea83c5d92
880001043d0000002c4095895a00f000228d3005fb63ac1f3841ec88046781000186cf820004
ec2ea83c9699880001043d0000002c4095895b00f000228d300833b2ddd906c0000000008100
0186c7820004ec2ea83ca950880001`

// ROAccessReportFrames is the number of messages in ROAccessReportCapture.
const ROAccessReportFrames = 45

// GetReaderConfigResponse is an Impinj Reader's 843-byte reply
// to GET_READER_CONFIG with RequestedData 0 (all).
// It holds many Impinj Custom parameters this package doesn't describe.
const GetReaderConfigResponse = `
040c0000034b00000003011f00080000000000da000f000008001625ffff10ba4700dd000980
0001000000dd0009000002000000de0072000100df0006000100e0000a000100000051014a00
5c00014f000803e800000150000b4000200000000003ff000e0000651a00000017000003ff00
120000651a0000001a00000000000003ff00120000651a0000001b00000000000003ff001200
00651a0000001c00000000000000de0072000200df0006000100e0000a000100000051014a00
5c00014f000803e800000150000b4000200000000003ff000e0000651a00000017000003ff00
120000651a0000001a00000000000003ff00120000651a0000001b00000000000003ff001200
00651a0000001c00000000000000f4004300f5000700000000f5000700010000f50007000200
00f5000700030000f5000700048000f5000700050000f5000700060000f5000700070000f500
0700088000ed008602000100ee000b1600015c00050003ff00140000651a0000001800000002
0000000003ff00600000651a0000003203ff000e0000651a00000033000003ff000e0000651a
00000034000003ff000e0000651a00000035000003ff000e0000651a00000036000003ff000e
0000651a00000041000003ff000e0000651a00000043000000ef00050100d900087857993700
dc0009000000000000e100080001000000e100080002000000e100080003000000e100080004
000000db000700010000db000700020000db000700030000db000700040000e200050003ff00
0e0000651a00000016000003ff00120000651a0000002400010000001403ff00120000651a00
00002400020000001403ff00120000651a0000002400030000001403ff00120000651a000000
2400040000001403ff000e0000651a00000025001b03ff00100000651a000000260000000003
ff000e0000651a00000027000003ff00360000651a0000002803ff000e0000651a0000002900
0103ff000e0000651a0000003f000003ff000e0000651a00000042000003ff000c0000651a00
00003c03ff00140000651a00000040000100000000000003ff00140000651a00000040000200
000000000003ff00140000651a00000040000300000000000003ff00140000651a0000004000
04000000000000`

// Unhex decodes a hex string, ignoring whitespace. It panics on bad input.
func Unhex(s string) []byte {
	b, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	if err != nil {
		panic(err)
	}
	return b
}

// MustEncode encodes m with the Default registry. It panics on failure.
func MustEncode(m *llrp.Message) []byte {
	b, err := llrp.EncodeMessage(m)
	if err != nil {
		panic(err)
	}
	return b
}

// Status returns an LLRPStatus parameter.
func Status(code llrp.StatusCode, desc string) *llrp.Parameter {
	return llrp.NewParameter(llrp.ParamLLRPStatus,
		llrp.F("StatusCode", llrp.Uint(code)),
		llrp.F("ErrorDescription", llrp.String(desc)))
}

// Response returns the reply to req with the given status,
// or nil if req doesn't get one.
// A successful reply to GET_READER_CAPABILITIES includes Capabilities(vendor).
func Response(req *llrp.Message, code llrp.StatusCode, vendor llrp.VendorPEN) *llrp.Message {
	name, ok := llrp.Default.ResponseName(req.Name)
	if !ok {
		return nil
	}

	var resp *llrp.Message
	switch {
	case name == llrp.MsgGetReaderCapabilitiesResponse && code == llrp.StatusSuccess:
		resp = Capabilities(vendor)
	case name == llrp.MsgGetSupportedVersionResponse:
		resp = llrp.NewMessage(name,
			llrp.F("CurrentVersion", llrp.Uint(1)),
			llrp.F("SupportedVersion", llrp.Uint(2)))
	default:
		resp = llrp.NewMessage(name)
	}

	resp.Version = req.Version
	resp.ID = req.ID
	desc := ""
	if code != llrp.StatusSuccess {
		desc = "rejected by test reader"
	}
	resp.Set(llrp.ParamLLRPStatus, Status(code, desc))
	return resp
}

// ConnectionAttempt returns the READER_EVENT_NOTIFICATION
// a Reader sends when a client connects.
func ConnectionAttempt(status llrp.ConnectionAttemptStatus) *llrp.Message {
	return Notification(llrp.F(llrp.ParamConnectionAttemptEvent,
		llrp.NewParameter(llrp.ParamConnectionAttemptEvent,
			llrp.F("Status", llrp.Uint(status)))))
}

// GPIEvent returns a READER_EVENT_NOTIFICATION for a GPI port change.
func GPIEvent(port uint16, high bool) *llrp.Message {
	return Notification(llrp.F(llrp.ParamGPIEvent,
		llrp.NewParameter(llrp.ParamGPIEvent,
			llrp.F("GPIPortNumber", llrp.Uint(port)),
			llrp.F("Flags", llrp.Bits{"GPIEvent": llrp.Flag(high)}))))
}

// ConnectionClose returns the READER_EVENT_NOTIFICATION
// a Reader sends before it closes the connection.
func ConnectionClose() *llrp.Message {
	return Notification(llrp.F(llrp.ParamConnectionCloseEvent,
		llrp.NewParameter(llrp.ParamConnectionCloseEvent)))
}

// Notification returns a READER_EVENT_NOTIFICATION holding the events,
// timestamped at the Unix epoch.
func Notification(events ...llrp.Field) *llrp.Message {
	data := llrp.NewParameter(llrp.ParamReaderEventNotificationData,
		llrp.F("Timestamp", llrp.NewParameter(llrp.ParamUTCTimestamp,
			llrp.F("Microseconds", llrp.Uint(0)))))
	data.Fields = append(data.Fields, events...)
	return llrp.NewMessage(llrp.MsgReaderEventNotification,
		llrp.F(llrp.ParamReaderEventNotificationData, data))
}

// Tag returns a TagReportData with a 96-bit EPC and the optional fields given.
func Tag(epc []byte, fields ...llrp.Field) *llrp.Parameter {
	t := llrp.NewParameter(llrp.ParamTagReportData,
		llrp.F("EPCParameter", llrp.NewParameter(llrp.ParamEPC96,
			llrp.F("EPC", llrp.Bytes(epc)))))
	t.Fields = append(t.Fields, fields...)
	return t
}

// TV returns a tag report field holding a single-value TV parameter.
func TV(name, field string, v llrp.Value) llrp.Field {
	return llrp.F(name, llrp.NewParameter(name, llrp.F(field, v)))
}

// Antenna returns an AntennaID tag report field.
func Antenna(id uint16) llrp.Field {
	return TV(llrp.ParamAntennaID, "AntennaID", llrp.Uint(id))
}

// PeakRSSI returns a PeakRSSI tag report field.
func PeakRSSI(dBm int8) llrp.Field {
	return TV(llrp.ParamPeakRSSI, "PeakRSSI", llrp.Int(dBm))
}

// TagReport returns an RO_ACCESS_REPORT holding the tags.
func TagReport(tags ...*llrp.Parameter) *llrp.Message {
	return llrp.NewMessage(llrp.MsgROAccessReport,
		llrp.F(llrp.ParamTagReportData, llrp.Parameters(tags)))
}

// Capabilities returns a GET_READER_CAPABILITIES_RESPONSE
// for a 4-antenna, 4-GPI Reader from the given vendor.
//
// It has 81 power levels from 10 to 30 dBm, a 50-channel hop table,
// and four RF modes plus an Impinj-style Autoset mode 1000.
func Capabilities(vendor llrp.VendorPEN) *llrp.Message {
	var powers llrp.Parameters
	for i := 0; i <= 80; i++ {
		powers = append(powers, llrp.NewParameter("TransmitPowerLevelTableEntry",
			llrp.F("Index", llrp.Uint(i+1)),
			llrp.F("TransmitPowerValue", llrp.Int(1000+25*i))))
	}

	freqs := make(llrp.Uint32s, 50)
	for i := range freqs {
		freqs[i] = uint32(902750 + 500*i)
	}

	mode := func(id, m, mask, bdr, pie, tari uint64) *llrp.Parameter {
		return llrp.NewParameter("UHFC1G2RFModeTableEntry",
			llrp.F("ModeIdentifier", llrp.Uint(id)),
			llrp.F("Flags", llrp.Bits{"DRValue": 1, "EPCHAGTCConformance": 0}),
			llrp.F("MValue", llrp.Uint(m)),
			llrp.F("ForwardLinkModulation", llrp.Uint(2)),
			llrp.F("SpectralMaskIndicator", llrp.Uint(mask)),
			llrp.F("BDRValue", llrp.Uint(bdr)),
			llrp.F("PIEValue", llrp.Uint(pie)),
			llrp.F("MinTariValue", llrp.Uint(tari)),
			llrp.F("MaxTariValue", llrp.Uint(tari)),
			llrp.F("StepTariValue", llrp.Uint(0)))
	}

	return llrp.NewMessage(llrp.MsgGetReaderCapabilitiesResponse,
		llrp.F(llrp.ParamLLRPStatus, Status(llrp.StatusSuccess, "")),
		llrp.F("GeneralDeviceCapabilities", llrp.NewParameter("GeneralDeviceCapabilities",
			llrp.F("MaxNumberOfAntennaSupported", llrp.Uint(4)),
			llrp.F("Flags", llrp.Bits{"CanSetAntennaProperties": 0, "HasUTCClockCapability": 1}),
			llrp.F("DeviceManufacturerName", llrp.Uint(vendor)),
			llrp.F("ModelName", llrp.Uint(llrp.SpeedwayR420)),
			llrp.F("ReaderFirmwareVersion", llrp.String("5.14.0.240")),
			llrp.F("GPIOCapabilities", llrp.NewParameter("GPIOCapabilities",
				llrp.F("NumGPIs", llrp.Uint(4)),
				llrp.F("NumGPOs", llrp.Uint(4)))))),
		llrp.F("LLRPCapabilities", llrp.NewParameter("LLRPCapabilities",
			llrp.F("Flags", llrp.Bits{
				"CanDoRFSurvey":                          0,
				"CanReportBufferFillWarning":             1,
				"SupportsClientRequestOpSpec":            0,
				"CanDoTagInventoryStateAwareSingulation": llrp.Flag(vendor != llrp.PENImpinj),
				"SupportsEventAndReportHolding":          1,
			}),
			llrp.F("MaxNumPriorityLevelsSupported", llrp.Uint(1)),
			llrp.F("ClientRequestOpSpecTimeout", llrp.Uint(0)),
			llrp.F("MaxNumROSpecs", llrp.Uint(1)),
			llrp.F("MaxNumSpecsPerROSpec", llrp.Uint(32)),
			llrp.F("MaxNumInventoryParameterSpecsPerAISpec", llrp.Uint(1)),
			llrp.F("MaxNumAccessSpecs", llrp.Uint(1508)),
			llrp.F("MaxNumOpSpecsPerAccessSpec", llrp.Uint(8)))),
		llrp.F("RegulatoryCapabilities", llrp.NewParameter("RegulatoryCapabilities",
			llrp.F("CountryCode", llrp.Uint(840)),
			llrp.F("CommunicationsStandard", llrp.Uint(1)),
			llrp.F("UHFBandCapabilities", llrp.NewParameter("UHFBandCapabilities",
				llrp.F("TransmitPowerLevelTableEntry", powers),
				llrp.F("FrequencyInformation", llrp.NewParameter("FrequencyInformation",
					llrp.F("Flags", llrp.Bits{"Hopping": 1}),
					llrp.F("FrequencyHopTable", llrp.Parameters{
						llrp.NewParameter("FrequencyHopTable",
							llrp.F("HopTableID", llrp.Uint(1)),
							llrp.F("Frequencies", freqs)),
					}))),
				llrp.F("UHFC1G2RFModeTable", llrp.Parameters{
					llrp.NewParameter("UHFC1G2RFModeTable",
						llrp.F("UHFC1G2RFModeTableEntry", llrp.Parameters{
							mode(0, 0, 2, 640000, 1500, 6250),
							mode(1, 1, 2, 640000, 1500, 6250),
							mode(2, 2, 3, 274000, 2000, 20000),
							mode(3, 3, 3, 170600, 2000, 20000),
							mode(1000, 0, 3, 40000, 2000, 25000),
						})),
				}))))),
		llrp.F("AirProtocolLLRPCapabilities", llrp.NewParameter("C1G2LLRPCapabilities",
			llrp.F("Flags", llrp.Bits{"CanSupportBlockWrite": 1}),
			llrp.F("MaxNumSelectFiltersPerQuery", llrp.Uint(2)))),
	)
}
