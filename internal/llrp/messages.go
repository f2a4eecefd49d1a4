//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

import "strconv"

const (
	// DefaultPort is the IANA-assigned LLRP port.
	DefaultPort = 5084

	// HeaderSize is the size of a standard message header.
	HeaderSize = 10

	// Version1_0_1 is the LLRP version this package speaks by default.
	Version1_0_1 = uint8(1)
	// Version1_1 is the newer version some Readers also support.
	Version1_1 = uint8(2)
)

// Message names.
const (
	MsgGetReaderCapabilities         = "GET_READER_CAPABILITIES"
	MsgGetReaderCapabilitiesResponse = "GET_READER_CAPABILITIES_RESPONSE"
	MsgGetReaderConfig               = "GET_READER_CONFIG"
	MsgGetReaderConfigResponse       = "GET_READER_CONFIG_RESPONSE"
	MsgSetReaderConfig               = "SET_READER_CONFIG"
	MsgSetReaderConfigResponse       = "SET_READER_CONFIG_RESPONSE"
	MsgCloseConnection               = "CLOSE_CONNECTION"
	MsgCloseConnectionResponse       = "CLOSE_CONNECTION_RESPONSE"
	MsgAddROSpec                     = "ADD_ROSPEC"
	MsgAddROSpecResponse             = "ADD_ROSPEC_RESPONSE"
	MsgDeleteROSpec                  = "DELETE_ROSPEC"
	MsgDeleteROSpecResponse          = "DELETE_ROSPEC_RESPONSE"
	MsgStartROSpec                   = "START_ROSPEC"
	MsgStartROSpecResponse           = "START_ROSPEC_RESPONSE"
	MsgStopROSpec                    = "STOP_ROSPEC"
	MsgStopROSpecResponse            = "STOP_ROSPEC_RESPONSE"
	MsgEnableROSpec                  = "ENABLE_ROSPEC"
	MsgEnableROSpecResponse          = "ENABLE_ROSPEC_RESPONSE"
	MsgDisableROSpec                 = "DISABLE_ROSPEC"
	MsgDisableROSpecResponse         = "DISABLE_ROSPEC_RESPONSE"
	MsgGetROSpecs                    = "GET_ROSPECS"
	MsgGetROSpecsResponse            = "GET_ROSPECS_RESPONSE"
	MsgDeleteAccessSpec              = "DELETE_ACCESSSPEC"
	MsgDeleteAccessSpecResponse      = "DELETE_ACCESSSPEC_RESPONSE"
	MsgGetSupportedVersion           = "GET_SUPPORTED_VERSION"
	MsgGetSupportedVersionResponse   = "GET_SUPPORTED_VERSION_RESPONSE"
	MsgGetReport                     = "GET_REPORT"
	MsgROAccessReport                = "RO_ACCESS_REPORT"
	MsgKeepAlive                     = "KEEPALIVE"
	MsgKeepAliveAck                  = "KEEPALIVE_ACK"
	MsgReaderEventNotification       = "READER_EVENT_NOTIFICATION"
	MsgEnableEventsAndReports        = "ENABLE_EVENTS_AND_REPORTS"
	MsgErrorMessage                  = "ERROR_MESSAGE"

	MsgImpinjEnableExtensions         = "IMPINJ_ENABLE_EXTENSIONS"
	MsgImpinjEnableExtensionsResponse = "IMPINJ_ENABLE_EXTENSIONS_RESPONSE"
)

// StatusCode is the result code carried by LLRPStatus.
type StatusCode uint16

const (
	StatusSuccess               = StatusCode(0)
	StatusMsgParameterError     = StatusCode(100)
	StatusMsgFieldError         = StatusCode(101)
	StatusMsgUnexpectedParam    = StatusCode(102)
	StatusMsgMissingParam       = StatusCode(103)
	StatusMsgDuplicateParam     = StatusCode(104)
	StatusMsgOverflowParam      = StatusCode(105)
	StatusMsgOverflowField      = StatusCode(106)
	StatusMsgUnknownParam       = StatusCode(107)
	StatusMsgUnknownField       = StatusCode(108)
	StatusMsgUnsupportedMessage = StatusCode(109)
	StatusMsgUnsupportedVersion = StatusCode(110)
	StatusMsgUnsupportedParam   = StatusCode(111)
	StatusFieldInvalid          = StatusCode(300)
	StatusFieldOutOfRange       = StatusCode(301)
	StatusDeviceError           = StatusCode(401)
)

var statusNames = map[StatusCode]string{
	StatusSuccess:               "Success",
	StatusMsgParameterError:     "ParameterError",
	StatusMsgFieldError:         "FieldError",
	StatusMsgUnexpectedParam:    "UnexpectedParameter",
	StatusMsgMissingParam:       "MissingParameter",
	StatusMsgDuplicateParam:     "DuplicateParameter",
	StatusMsgOverflowParam:      "OverflowParameter",
	StatusMsgOverflowField:      "OverflowField",
	StatusMsgUnknownParam:       "UnknownParameter",
	StatusMsgUnknownField:       "UnknownField",
	StatusMsgUnsupportedMessage: "UnsupportedMessage",
	StatusMsgUnsupportedVersion: "UnsupportedVersion",
	StatusMsgUnsupportedParam:   "UnsupportedParameter",
	StatusFieldInvalid:          "FieldInvalid",
	StatusFieldOutOfRange:       "FieldOutOfRange",
	StatusDeviceError:           "DeviceError",
}

func (s StatusCode) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "StatusCode(" + strconv.Itoa(int(s)) + ")"
}

// ConnectionAttemptStatus is the Status of a ConnectionAttemptEvent.
type ConnectionAttemptStatus uint16

const (
	ConnSuccess                    = ConnectionAttemptStatus(0)
	ConnExistsReaderInitiated      = ConnectionAttemptStatus(1)
	ConnExistsClientInitiated      = ConnectionAttemptStatus(2)
	ConnFailedReasonUnknown        = ConnectionAttemptStatus(3)
	ConnAnotherConnectionAttempted = ConnectionAttemptStatus(4)
)

func (s ConnectionAttemptStatus) String() string {
	switch s {
	case ConnSuccess:
		return "Success"
	case ConnExistsReaderInitiated:
		return "FailedReaderInitiatedConnectionExists"
	case ConnExistsClientInitiated:
		return "FailedClientInitiatedConnectionExists"
	case ConnFailedReasonUnknown:
		return "FailedReasonOtherThanConnectionExists"
	case ConnAnotherConnectionAttempted:
		return "AnotherConnectionAttempted"
	}
	return "ConnectionAttemptStatus(" + strconv.Itoa(int(s)) + ")"
}

func msg(t uint16, name string, fields ...FieldSpec) Descriptor {
	return Descriptor{Name: name, Type: t, Encoding: TLV, Fields: fields}
}

func impinjMsg(subtype uint32, name string, fields ...FieldSpec) Descriptor {
	return Descriptor{Name: name, Encoding: Custom, Vendor: PENImpinj, Subtype: subtype, Fields: fields}
}

func status() FieldSpec { return one(ParamLLRPStatus) }

func builtinMessages() []Descriptor {
	return []Descriptor{
		msg(1, MsgGetReaderCapabilities, u8("RequestedData"), custom()),
		msg(11, MsgGetReaderCapabilitiesResponse,
			status(),
			opt("GeneralDeviceCapabilities"),
			opt("LLRPCapabilities"),
			opt("RegulatoryCapabilities"),
			opt("AirProtocolLLRPCapabilities", "C1G2LLRPCapabilities"),
			custom()),

		msg(2, MsgGetReaderConfig,
			u16("AntennaID"), u8("RequestedData"), u16("GPIPortNum"), u16("GPOPortNum"),
			custom()),
		msg(12, MsgGetReaderConfigResponse,
			status(),
			opt("Identification"),
			many("AntennaProperties"),
			many(ParamAntennaConfiguration),
			opt("ReaderEventNotificationSpec"),
			opt(ParamROReportSpec),
			opt("AccessReportSpec"),
			opt("LLRPConfigurationStateValue"),
			opt("KeepaliveSpec"),
			many("GPIPortCurrentState"),
			many("GPOWriteData"),
			opt("EventsAndReports"),
			custom()),

		msg(3, MsgSetReaderConfig,
			flags(bit("ResetToFactoryDefaults")),
			opt("ReaderEventNotificationSpec"),
			many("AntennaProperties"),
			many(ParamAntennaConfiguration),
			opt(ParamROReportSpec),
			opt("AccessReportSpec"),
			opt("KeepaliveSpec"),
			many("GPOWriteData"),
			many("GPIPortCurrentState"),
			opt("EventsAndReports"),
			custom()),
		msg(13, MsgSetReaderConfigResponse, status()),

		msg(14, MsgCloseConnection),
		msg(4, MsgCloseConnectionResponse, status()),

		msg(20, MsgAddROSpec, one(ParamROSpec)),
		msg(30, MsgAddROSpecResponse, status()),
		msg(21, MsgDeleteROSpec, u32("ROSpecID")),
		msg(31, MsgDeleteROSpecResponse, status()),
		msg(22, MsgStartROSpec, u32("ROSpecID")),
		msg(32, MsgStartROSpecResponse, status()),
		msg(23, MsgStopROSpec, u32("ROSpecID")),
		msg(33, MsgStopROSpecResponse, status()),
		msg(24, MsgEnableROSpec, u32("ROSpecID")),
		msg(34, MsgEnableROSpecResponse, status()),
		msg(25, MsgDisableROSpec, u32("ROSpecID")),
		msg(35, MsgDisableROSpecResponse, status()),
		msg(26, MsgGetROSpecs),
		msg(36, MsgGetROSpecsResponse, status(), many(ParamROSpec)),

		msg(41, MsgDeleteAccessSpec, u32("AccessSpecID")),
		msg(51, MsgDeleteAccessSpecResponse, status()),

		msg(46, MsgGetSupportedVersion),
		msg(56, MsgGetSupportedVersionResponse,
			u8("CurrentVersion"), u8("SupportedVersion"), status()),

		msg(60, MsgGetReport),
		msg(61, MsgROAccessReport, many(ParamTagReportData), custom()),
		msg(62, MsgKeepAlive),
		msg(72, MsgKeepAliveAck),
		msg(63, MsgReaderEventNotification, one(ParamReaderEventNotificationData)),
		msg(64, MsgEnableEventsAndReports),
		msg(100, MsgErrorMessage, status()),

		impinjMsg(ImpinjEnableExtensionsSubtype, MsgImpinjEnableExtensions, reserved(32), custom()),
		impinjMsg(ImpinjEnableExtensionsResponseSubtype, MsgImpinjEnableExtensionsResponse,
			status(), custom()),
	}
}

// ResponseName returns the name of the message a Reader sends
// in reply to the named request, if the request has one.
func (r *Registry) ResponseName(request string) (string, bool) {
	if _, ok := r.messages[request]; !ok {
		return "", false
	}
	resp := request + "_RESPONSE"
	if _, ok := r.messages[resp]; !ok {
		return "", false
	}
	return resp, true
}
