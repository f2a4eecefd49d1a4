//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

const hexChars = "0123456789abcdef"

// WordsToHex converts an array of 16-bit words to a hex string.
//
// This is essentially the same method as hex.EncodeToString,
// but operates on []uint16 instead of []byte.
func WordsToHex(src []uint16) string {
	dst := make([]byte, len(src)*4)

	i := 0
	for _, word := range src {
		dst[i+0] = hexChars[(word>>0xC)&0xF]
		dst[i+1] = hexChars[(word>>0x8)&0xF]
		dst[i+2] = hexChars[(word>>0x4)&0xF]
		dst[i+3] = hexChars[(word>>0x0)&0xF]
		i += 4
	}

	return string(dst)
}

// ExtractRSSI returns the RSSI value from a TagReportData parameter, if present.
//
// If the report includes a Custom Impinj RSSI parameter, it returns that.
// Because those values are dBm x100, it converts it to dBm (by dividing by 100),
// and hence the returned value is a floats instead of an int.
func ExtractRSSI(tagData *Parameter) (float64, bool) {
	if tagData == nil {
		return 0, false
	}

	if c, ok := Default.FindCustom(tagData, PENImpinj, ImpinjPeakRSSISubtype); ok {
		if v, ok := c.Int("RSSI"); ok {
			return float64(v) / 100.0, true // dBm x100
		}
	}

	if p, ok := tagData.Param(ParamPeakRSSI); ok {
		if v, ok := p.Int("PeakRSSI"); ok {
			return float64(v), true
		}
	}
	return 0, false
}

// ReadDataAsHex returns a hex string representation of a C1G2ReadOpSpecResult
// if the TagReportData has one and its result type indicates success.
func ReadDataAsHex(tagData *Parameter) (data string, ok bool) {
	if tagData == nil {
		return
	}

	for _, res := range tagData.Params("OpSpecResult") {
		if res.Name != ParamC1G2ReadOpSpecResult {
			continue
		}

		if result, _ := res.Uint("Result"); result == 0 {
			words, _ := res.Uint16s("ReadData")
			return WordsToHex(words), true
		}
	}

	return
}
