//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

// Names of parameters used outside the descriptor tables.
const (
	ParamAntennaID                   = "AntennaID"
	ParamFirstSeenTimestampUTC       = "FirstSeenTimestampUTC"
	ParamFirstSeenTimestampUptime    = "FirstSeenTimestampUptime"
	ParamLastSeenTimestampUTC        = "LastSeenTimestampUTC"
	ParamLastSeenTimestampUptime     = "LastSeenTimestampUptime"
	ParamPeakRSSI                    = "PeakRSSI"
	ParamChannelIndex                = "ChannelIndex"
	ParamTagSeenCount                = "TagSeenCount"
	ParamROSpecID                    = "ROSpecID"
	ParamInventoryParameterSpecID    = "InventoryParameterSpecID"
	ParamC1G2CRC                     = "C1G2CRC"
	ParamC1G2PC                      = "C1G2PC"
	ParamEPC96                       = "EPC-96"
	ParamSpecIndex                   = "SpecIndex"
	ParamAccessSpecID                = "AccessSpecID"
	ParamUTCTimestamp                = "UTCTimestamp"
	ParamUptime                      = "Uptime"
	ParamLLRPStatus                  = "LLRPStatus"
	ParamTagReportData               = "TagReportData"
	ParamEPCData                     = "EPCData"
	ParamC1G2ReadOpSpecResult        = "C1G2ReadOpSpecResult"
	ParamReaderEventNotificationData = "ReaderEventNotificationData"
	ParamConnectionAttemptEvent      = "ConnectionAttemptEvent"
	ParamConnectionCloseEvent        = "ConnectionCloseEvent"
	ParamGPIEvent                    = "GPIEvent"
	ParamROSpecEvent                 = "ROSpecEvent"
	ParamAntennaEvent                = "AntennaEvent"
	ParamReaderExceptionEvent        = "ReaderExceptionEvent"
	ParamROSpec                      = "ROSpec"
	ParamROReportSpec                = "ROReportSpec"
	ParamTagReportContentSelector    = "TagReportContentSelector"
	ParamAntennaConfiguration        = "AntennaConfiguration"
	ParamRFTransmitter               = "RFTransmitter"

	ParamImpinjRequestedData            = "ImpinjRequestedData"
	ParamImpinjInventorySearchMode      = "ImpinjInventorySearchMode"
	ParamImpinjTagReportContentSelector = "ImpinjTagReportContentSelector"
	ParamImpinjEnablePeakRSSI           = "ImpinjEnablePeakRSSI"
	ParamImpinjEnableRFPhaseAngle       = "ImpinjEnableRFPhaseAngle"
	ParamImpinjEnableRFDopplerFrequency = "ImpinjEnableRFDopplerFrequency"
	ParamImpinjPeakRSSI                 = "ImpinjPeakRSSI"
	ParamImpinjRFPhaseAngle             = "ImpinjRFPhaseAngle"
	ParamImpinjRFDopplerFrequency       = "ImpinjRFDopplerFrequency"
)

// The helpers below keep the descriptor tables readable.

func u8(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindUint, Width: 8} }
func u16(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindUint, Width: 16} }
func u32(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindUint, Width: 32} }
func u64(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindUint, Width: 64} }
func s8(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindInt, Width: 8} }
func s16(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindInt, Width: 16} }

func u8v(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindBytes} }
func utf8v(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindString} }
func u1v(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindBitVector} }
func u16v(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindUint16s} }
func u32v(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindUint32s} }
func u96(name string) FieldSpec { return FieldSpec{Name: name, Kind: KindFixedBytes, Width: 96} }

func reserved(bits int) FieldSpec { return FieldSpec{Kind: KindReserved, Width: bits} }

// flags packs subfields into the fewest whole bytes, in a field named "Flags".
func flags(bits ...BitSpec) FieldSpec {
	total := 0
	for _, b := range bits {
		total += b.Width
	}
	return FieldSpec{Name: "Flags", Kind: KindBits, Width: (total + 7) / 8 * 8, Bits: bits}
}

// flagsN is flags with an explicit width, for fields with trailing reserved bits.
func flagsN(width int, bits ...BitSpec) FieldSpec {
	fs := flags(bits...)
	fs.Width = width
	return fs
}

func bit(name string) BitSpec { return BitSpec{Name: name, Width: 1} }
func bitN(name string, width int) BitSpec { return BitSpec{Name: name, Width: width} }
func one(name string, allowed ...string) FieldSpec {
	return FieldSpec{Name: name, Kind: KindParam, Allowed: defaultAllowed(name, allowed)}
}

func opt(name string, allowed ...string) FieldSpec {
	fs := one(name, allowed...)
	fs.Optional = true
	return fs
}

func some(name string, allowed ...string) FieldSpec {
	return FieldSpec{Name: name, Kind: KindParams, Allowed: defaultAllowed(name, allowed)}
}

func many(name string, allowed ...string) FieldSpec {
	fs := some(name, allowed...)
	fs.Optional = true
	return fs
}

// custom is the trailing extension point most parameters allow.
func custom() FieldSpec { return many("Custom", AnyCustom) }

func defaultAllowed(name string, allowed []string) []string {
	if len(allowed) == 0 {
		return []string{name}
	}
	return allowed
}

func tv(t uint16, name string, fields ...FieldSpec) Descriptor {
	return Descriptor{Name: name, Type: t, Encoding: TV, Fields: fields}
}

func tlv(t uint16, name string, fields ...FieldSpec) Descriptor {
	return Descriptor{Name: name, Type: t, Encoding: TLV, Fields: fields}
}

func impinj(subtype ImpinjParamSubtype, name string, fields ...FieldSpec) Descriptor {
	return Descriptor{Name: name, Encoding: Custom, Vendor: PENImpinj, Subtype: subtype, Fields: fields}
}

func builtinParams() []Descriptor {
	return []Descriptor{
		// TV parameters, mostly found in tag reports.
		tv(1, ParamAntennaID, u16("AntennaID")),
		tv(2, ParamFirstSeenTimestampUTC, u64("Microseconds")),
		tv(3, ParamFirstSeenTimestampUptime, u64("Microseconds")),
		tv(4, ParamLastSeenTimestampUTC, u64("Microseconds")),
		tv(5, ParamLastSeenTimestampUptime, u64("Microseconds")),
		tv(6, ParamPeakRSSI, s8("PeakRSSI")),
		tv(7, ParamChannelIndex, u16("ChannelIndex")),
		tv(8, ParamTagSeenCount, u16("TagCount")),
		tv(9, ParamROSpecID, u32("ROSpecID")),
		tv(10, ParamInventoryParameterSpecID, u16("InventoryParameterSpecID")),
		tv(11, ParamC1G2CRC, u16("CRC")),
		tv(12, ParamC1G2PC, u16("PC_Bits")),
		tv(13, ParamEPC96, u96("EPC")),
		tv(14, ParamSpecIndex, u16("SpecIndex")),
		tv(15, "ClientRequestOpSpecResult", u16("OpSpecID")),
		tv(16, ParamAccessSpecID, u32("AccessSpecID")),
		tv(17, "OpSpecID", u16("OpSpecID")),
		tv(18, "C1G2SingulationDetails", u16("NumCollisionSlots"), u16("NumEmptySlots")),
		tv(19, "C1G2XPCW1", u16("Word")),
		tv(20, "C1G2XPCW2", u16("Word")),

		tlv(128, ParamUTCTimestamp, u64("Microseconds")),
		tlv(129, ParamUptime, u64("Microseconds")),

		// Capabilities
		tlv(137, "GeneralDeviceCapabilities",
			u16("MaxNumberOfAntennaSupported"),
			flagsN(16, bit("CanSetAntennaProperties"), bit("HasUTCClockCapability")),
			u32("DeviceManufacturerName"),
			u32("ModelName"),
			utf8v("ReaderFirmwareVersion"),
			many("ReceiveSensitivityTableEntry"),
			many("PerAntennaReceiveSensitivityRange"),
			one("GPIOCapabilities"),
			many("PerAntennaAirProtocol")),
		tlv(139, "ReceiveSensitivityTableEntry", u16("Index"), s16("ReceiveSensitivityValue")),
		tlv(140, "PerAntennaAirProtocol", u16("AntennaID"), u8v("ProtocolIDs")),
		tlv(141, "GPIOCapabilities", u16("NumGPIs"), u16("NumGPOs")),
		tlv(142, "LLRPCapabilities",
			flags(bit("CanDoRFSurvey"), bit("CanReportBufferFillWarning"),
				bit("SupportsClientRequestOpSpec"), bit("CanDoTagInventoryStateAwareSingulation"),
				bit("SupportsEventAndReportHolding")),
			u8("MaxNumPriorityLevelsSupported"),
			u16("ClientRequestOpSpecTimeout"),
			u32("MaxNumROSpecs"),
			u32("MaxNumSpecsPerROSpec"),
			u32("MaxNumInventoryParameterSpecsPerAISpec"),
			u32("MaxNumAccessSpecs"),
			u32("MaxNumOpSpecsPerAccessSpec")),
		tlv(143, "RegulatoryCapabilities",
			u16("CountryCode"),
			u16("CommunicationsStandard"),
			opt("UHFBandCapabilities"),
			custom()),
		tlv(144, "UHFBandCapabilities",
			some("TransmitPowerLevelTableEntry"),
			one("FrequencyInformation"),
			some("UHFC1G2RFModeTable")),
		tlv(145, "TransmitPowerLevelTableEntry", u16("Index"), s16("TransmitPowerValue")),
		tlv(146, "FrequencyInformation",
			flags(bit("Hopping")),
			many("FrequencyHopTable"),
			opt("FixedFrequencyTable")),
		tlv(147, "FrequencyHopTable", u8("HopTableID"), reserved(8), u32v("Frequencies")),
		tlv(148, "FixedFrequencyTable", u32v("Frequencies")),
		tlv(149, "PerAntennaReceiveSensitivityRange",
			u16("AntennaID"), u16("ReceiveSensitivityIndexMin"), u16("ReceiveSensitivityIndexMax")),
		tlv(327, "C1G2LLRPCapabilities",
			flags(bit("CanSupportBlockErase"), bit("CanSupportBlockWrite"),
				bit("CanSupportBlockPermalock"), bit("CanSupportTagRecommissioning"),
				bit("CanSupportUMIMethod2"), bit("CanSupportXPC")),
			u16("MaxNumSelectFiltersPerQuery")),
		tlv(328, "UHFC1G2RFModeTable", some("UHFC1G2RFModeTableEntry")),
		tlv(329, "UHFC1G2RFModeTableEntry",
			u32("ModeIdentifier"),
			flags(bit("DRValue"), bit("EPCHAGTCConformance")),
			u8("MValue"),
			u8("ForwardLinkModulation"),
			u8("SpectralMaskIndicator"),
			u32("BDRValue"),
			u32("PIEValue"),
			u32("MinTariValue"),
			u32("MaxTariValue"),
			u32("StepTariValue")),

		// Reader operations
		tlv(177, ParamROSpec,
			u32("ROSpecID"),
			u8("Priority"),
			u8("CurrentState"),
			one("ROBoundarySpec"),
			some("SpecParameter", "AISpec", AnyCustom),
			opt(ParamROReportSpec)),
		tlv(178, "ROBoundarySpec", one("ROSpecStartTrigger"), one("ROSpecStopTrigger")),
		tlv(179, "ROSpecStartTrigger",
			u8("ROSpecStartTriggerType"),
			opt("PeriodicTriggerValue"),
			opt("GPITriggerValue")),
		tlv(180, "PeriodicTriggerValue", u32("Offset"), u32("Period"), opt(ParamUTCTimestamp)),
		tlv(181, "GPITriggerValue", u16("GPIPortNum"), flags(bit("GPIEvent")), u32("Timeout")),
		tlv(182, "ROSpecStopTrigger",
			u8("ROSpecStopTriggerType"),
			u32("DurationTriggerValue"),
			opt("GPITriggerValue")),
		tlv(183, "AISpec",
			u16v("AntennaIDs"),
			one("AISpecStopTrigger"),
			some("InventoryParameterSpec"),
			custom()),
		tlv(184, "AISpecStopTrigger",
			u8("AISpecStopTriggerType"),
			u32("DurationTrigger"),
			opt("GPITriggerValue"),
			opt("TagObservationTrigger")),
		tlv(185, "TagObservationTrigger",
			u8("TriggerType"),
			reserved(8),
			u16("NumberOfTags"),
			u16("NumberOfAttempts"),
			u16("T"),
			u32("Timeout")),
		tlv(186, "InventoryParameterSpec",
			u16("InventoryParameterSpecID"),
			u8("ProtocolID"),
			many(ParamAntennaConfiguration),
			custom()),

		// Configuration
		tlv(217, "LLRPConfigurationStateValue", u32("LLRPConfigurationStateValue")),
		tlv(218, "Identification", u8("IDType"), u8v("ReaderID")),
		tlv(219, "GPOWriteData", u16("GPOPortNumber"), flags(bit("GPOData"))),
		tlv(220, "KeepaliveSpec", u8("KeepaliveTriggerType"), u32("PeriodicTriggerValue")),
		tlv(221, "AntennaProperties",
			flags(bit("AntennaConnected")), u16("AntennaID"), s16("AntennaGain")),
		tlv(222, ParamAntennaConfiguration,
			u16("AntennaID"),
			opt("RFReceiver"),
			opt(ParamRFTransmitter),
			many("AirProtocolInventoryCommandSettings", "C1G2InventoryCommand"),
			custom()),
		tlv(223, "RFReceiver", u16("ReceiverSensitivity")),
		tlv(224, ParamRFTransmitter, u16("HopTableID"), u16("ChannelIndex"), u16("TransmitPower")),
		tlv(225, "GPIPortCurrentState", u16("GPIPortNum"), flags(bit("Config")), u8("State")),
		tlv(226, "EventsAndReports", flags(bit("HoldEventsAndReportsUponReconnect"))),

		// Reporting
		tlv(237, ParamROReportSpec,
			u8("ROReportTrigger"),
			u16("N"),
			one(ParamTagReportContentSelector),
			custom()),
		tlv(238, ParamTagReportContentSelector,
			flags(bit("EnableROSpecID"), bit("EnableSpecIndex"),
				bit("EnableInventoryParameterSpecID"), bit("EnableAntennaID"),
				bit("EnableChannelIndex"), bit("EnablePeakRSSI"),
				bit("EnableFirstSeenTimestamp"), bit("EnableLastSeenTimestamp"),
				bit("EnableTagSeenCount"), bit("EnableAccessSpecID")),
			many("AirProtocolEPCMemorySelector", "C1G2EPCMemorySelector")),
		tlv(239, "AccessReportSpec", u8("AccessReportTrigger")),
		tlv(240, ParamTagReportData,
			one("EPCParameter", ParamEPCData, ParamEPC96),
			opt(ParamROSpecID),
			opt(ParamSpecIndex),
			opt(ParamInventoryParameterSpecID),
			opt(ParamAntennaID),
			opt(ParamPeakRSSI),
			opt(ParamChannelIndex),
			opt(ParamFirstSeenTimestampUTC),
			opt(ParamFirstSeenTimestampUptime),
			opt(ParamLastSeenTimestampUTC),
			opt(ParamLastSeenTimestampUptime),
			opt(ParamTagSeenCount),
			many("AirProtocolTagData", ParamC1G2PC, "C1G2XPCW1", "C1G2XPCW2", ParamC1G2CRC),
			opt(ParamAccessSpecID),
			many("OpSpecResult", ParamC1G2ReadOpSpecResult, "ClientRequestOpSpecResult"),
			custom()),
		tlv(241, ParamEPCData, u1v("EPC")),
		tlv(348, "C1G2EPCMemorySelector",
			flags(bit("EnableCRC"), bit("EnablePCBits"), bit("EnableXPCBits"))),
		tlv(349, ParamC1G2ReadOpSpecResult, u8("Result"), u16("OpSpecID"), u16v("ReadData")),

		// Events
		tlv(244, "ReaderEventNotificationSpec", some("EventNotificationState")),
		tlv(245, "EventNotificationState", u16("EventType"), flags(bit("NotificationState"))),
		tlv(246, ParamReaderEventNotificationData,
			one("Timestamp", ParamUTCTimestamp, ParamUptime),
			opt("HoppingEvent"),
			opt(ParamGPIEvent),
			opt(ParamROSpecEvent),
			opt("ReportBufferLevelWarningEvent"),
			opt("ReportBufferOverflowErrorEvent"),
			opt(ParamReaderExceptionEvent),
			opt("RFSurveyEvent"),
			opt("AISpecEvent"),
			opt(ParamAntennaEvent),
			opt(ParamConnectionAttemptEvent),
			opt(ParamConnectionCloseEvent),
			opt("SpecLoopEvent"),
			custom()),
		tlv(247, "HoppingEvent", u16("HopTableID"), u16("NextChannelIndex")),
		tlv(248, ParamGPIEvent, u16("GPIPortNumber"), flags(bit("GPIEvent"))),
		tlv(249, ParamROSpecEvent, u8("EventType"), u32("ROSpecID"), u32("PreemptingROSpecID")),
		tlv(250, "ReportBufferLevelWarningEvent", u8("ReportBufferPercentageFull")),
		tlv(251, "ReportBufferOverflowErrorEvent"),
		tlv(252, ParamReaderExceptionEvent,
			utf8v("Message"),
			opt(ParamROSpecID),
			opt(ParamSpecIndex),
			opt(ParamInventoryParameterSpecID),
			opt(ParamAntennaID),
			opt(ParamAccessSpecID),
			opt("OpSpecID"),
			custom()),
		tlv(253, "RFSurveyEvent", u8("EventType"), u32("ROSpecID"), u16("SpecIndex")),
		tlv(254, "AISpecEvent",
			u8("EventType"), u32("ROSpecID"), u16("SpecIndex"),
			opt("AirProtocolSingulationDetails", "C1G2SingulationDetails")),
		tlv(255, ParamAntennaEvent, u8("EventType"), u16("AntennaID")),
		tlv(256, ParamConnectionAttemptEvent, u16("Status")),
		tlv(257, ParamConnectionCloseEvent),
		tlv(365, "SpecLoopEvent", u32("ROSpecID"), u32("LoopCount")),

		// Status
		tlv(287, ParamLLRPStatus,
			u16("StatusCode"),
			utf8v("ErrorDescription"),
			opt("FieldError"),
			opt("ParameterError")),
		tlv(288, "FieldError", u16("FieldNum"), u16("ErrorCode")),
		tlv(289, "ParameterError",
			u16("ParameterType"), u16("ErrorCode"),
			opt("FieldError"), opt("ParameterError")),

		// C1G2 air protocol
		tlv(330, "C1G2InventoryCommand",
			flags(bit("TagInventoryStateAware")),
			many("C1G2Filter"),
			opt("C1G2RFControl"),
			opt("C1G2SingulationControl"),
			custom()),
		tlv(331, "C1G2Filter",
			flags(bitN("T", 2)),
			one("C1G2TagInventoryMask"),
			opt("C1G2TagInventoryStateAwareFilterAction"),
			opt("C1G2TagInventoryStateUnawareFilterAction")),
		tlv(332, "C1G2TagInventoryMask", flags(bitN("MB", 2)), u16("Pointer"), u1v("TagMask")),
		tlv(333, "C1G2TagInventoryStateAwareFilterAction", u8("Target"), u8("Action")),
		tlv(334, "C1G2TagInventoryStateUnawareFilterAction", u8("Action")),
		tlv(335, "C1G2RFControl", u16("ModeIndex"), u16("Tari")),
		tlv(336, "C1G2SingulationControl",
			flags(bitN("Session", 2)),
			u16("TagPopulation"),
			u32("TagTransitTime"),
			opt("C1G2TagInventoryStateAwareSingulationAction")),
		tlv(337, "C1G2TagInventoryStateAwareSingulationAction", flags(bit("I"), bit("S"), bit("A"))),

		// Impinj extensions
		impinj(ImpinjRequestedDataSubtype, ParamImpinjRequestedData, u32("RequestedData"), custom()),
		impinj(ImpinjSearchModeSubtype, ParamImpinjInventorySearchMode,
			u16("InventorySearchMode"), custom()),
		impinj(ImpinjTagReportContentSelectorSubtype, ParamImpinjTagReportContentSelector,
			opt("ImpinjEnableSerializedTID"),
			opt(ParamImpinjEnableRFPhaseAngle),
			opt(ParamImpinjEnablePeakRSSI),
			opt("ImpinjEnableGPSCoordinates"),
			opt("ImpinjEnableOptimizedRead"),
			opt(ParamImpinjEnableRFDopplerFrequency),
			custom()),
		impinj(ImpinjEnableSerializedTIDSubtype, "ImpinjEnableSerializedTID",
			u16("SerializedTIDMode"), custom()),
		impinj(ImpinjEnableRFPhaseAngleSubtype, ParamImpinjEnableRFPhaseAngle,
			u16("RFPhaseAngleMode"), custom()),
		impinj(ImpinjEnablePeakRSSISubtype, ParamImpinjEnablePeakRSSI,
			u16("PeakRSSIMode"), custom()),
		impinj(ImpinjEnableGPSCoordinatesSubtype, "ImpinjEnableGPSCoordinates",
			u16("GPSCoordinatesMode"), custom()),
		impinj(ImpinjRFPhaseAngleSubtype, ParamImpinjRFPhaseAngle, u16("PhaseAngle"), custom()),
		impinj(ImpinjPeakRSSISubtype, ParamImpinjPeakRSSI, s16("RSSI"), custom()),
		impinj(ImpinjEnableOptimizedReadSubtype, "ImpinjEnableOptimizedRead",
			u16("OptimizedReadMode"), custom()),
		impinj(ImpinjEnableRFDopplerFrequencySubtype, ParamImpinjEnableRFDopplerFrequency,
			u16("RFDopplerFrequencyMode"), custom()),
		impinj(ImpinjRFDopplerFrequencySubtype, ParamImpinjRFDopplerFrequency,
			s16("DopplerFrequency"), custom()),
	}
}
