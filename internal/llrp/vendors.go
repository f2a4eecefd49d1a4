//
// Copyright (C) 2020 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

import "strconv"

// VendorPEN is an IANA Private Enterprise Number identifying a vendor.
type VendorPEN uint32

const (
	PENImpinj = VendorPEN(25882)
	PENAlien  = VendorPEN(17996)
	PENZebra  = VendorPEN(10642)
)

func (v VendorPEN) String() string {
	switch v {
	case PENImpinj:
		return "Impinj"
	case PENAlien:
		return "Alien"
	case PENZebra:
		return "Zebra"
	}
	return "VendorPEN(" + strconv.FormatUint(uint64(v), 10) + ")"
}

type ImpinjModel uint32

const (
	SpeedwayR220 = ImpinjModel(2001001)
	SpeedwayR420 = ImpinjModel(2001002)
	XPortal      = ImpinjModel(2001003)
	XArrayWM     = ImpinjModel(2001004)
	XArrayEAP    = ImpinjModel(2001006)
	XArray       = ImpinjModel(2001007)
	XSpan        = ImpinjModel(2001008)
	SpeedwayR120 = ImpinjModel(2001009)
	R700         = ImpinjModel(2001052)
)

// ImpinjParamSubtype is the subtype of an Impinj Custom parameter.
type ImpinjParamSubtype = uint32

const (
	ImpinjRequestedDataSubtype            = ImpinjParamSubtype(21)
	ImpinjSearchModeSubtype               = ImpinjParamSubtype(23)
	ImpinjTagReportContentSelectorSubtype = ImpinjParamSubtype(50)
	ImpinjEnableSerializedTIDSubtype      = ImpinjParamSubtype(51)
	ImpinjEnableRFPhaseAngleSubtype       = ImpinjParamSubtype(52)
	ImpinjEnablePeakRSSISubtype           = ImpinjParamSubtype(53)
	ImpinjEnableGPSCoordinatesSubtype     = ImpinjParamSubtype(54)
	ImpinjRFPhaseAngleSubtype             = ImpinjParamSubtype(56)
	ImpinjPeakRSSISubtype                 = ImpinjParamSubtype(57)
	ImpinjEnableOptimizedReadSubtype      = ImpinjParamSubtype(65)
	ImpinjEnableRFDopplerFrequencySubtype = ImpinjParamSubtype(67)
	ImpinjRFDopplerFrequencySubtype       = ImpinjParamSubtype(68)
)

// Impinj Custom message subtypes.
const (
	ImpinjEnableExtensionsSubtype         = uint32(21)
	ImpinjEnableExtensionsResponseSubtype = uint32(22)
)

// ImpinjSearchMode is like a really limited version of standard state-aware filtering
// with added ambiguity about what C1G2 commands the Reader might send.
type ImpinjSearchMode uint16

const (
	// ImpinjSearchReaderSelected is the "default" search mode.
	// There's no way to know exactly what it will do.
	ImpinjSearchReaderSelected = ImpinjSearchMode(0)

	// ImpinjSearchSingleTarget sets the Target field in Queries to A,
	// but there's no indication what it uses for the SL flag.
	//
	// It has the effect of setting singulated tags' Session flag to B.
	// In S2 and S3, tags remain quiet once singulated as long as they're powered.
	// In S1, they'll fall back after the persistence timeout (500ms-5s),
	// so as long as the population small enough to read before that timeout,
	// this has the effect of "spreading" their observations through the read window.
	ImpinjSearchSingleTarget = ImpinjSearchMode(1)

	// ImpinjSearchDualTarget inventories tags in state A, transitioning them to B,
	// then inventories tags in state B, transitioning them back to A.
	// It makes the most sense in S2 or S3,
	// particularly when attempting to read a large, mostly static population.
	ImpinjSearchDualTarget = ImpinjSearchMode(2)

	// ImpinjSearchTagFocus is what Impinj calls
	// "Single Target Inventory with Suppression (aka TagFocus)".
	// It's SingleTarget, but it sends a command to Impinj Monza tags
	// to refresh their S1 flag persistence.
	//
	// It only makes sense with Session 1 and mostly Impinj Monza tags.
	// Otherwise it's just the same as SingleTarget, but probably slower.
	ImpinjSearchTagFocus = ImpinjSearchMode(3)

	// ImpinjSearchSingleTargetReset is a Query with the Target set to B instead of A.
	ImpinjSearchSingleTargetReset = ImpinjSearchMode(5)

	// ImpinjSearchDualTargetWithReset sends Queries with Target A until it's quiet,
	// then sends a Select command to flip the session B->A.
	// Impinj says it's good for "High tag count, high-throughput [with] repeated observation".
	ImpinjSearchDualTargetWithReset = ImpinjSearchMode(6)
)

// IsCustom reports whether p is the Custom parameter with the given vendor and subtype.
func (r *Registry) IsCustom(p *Parameter, vendor VendorPEN, subtype uint32) bool {
	if p == nil {
		return false
	}
	d, ok := r.Param(p.Name)
	return ok && d.IsCustom() && d.Vendor == vendor && d.Subtype == subtype
}

// FindCustom returns the first Custom sub-parameter of p
// with the given vendor and subtype.
func (r *Registry) FindCustom(p *Parameter, vendor VendorPEN, subtype uint32) (*Parameter, bool) {
	if p == nil {
		return nil, false
	}
	for _, c := range p.Params("Custom") {
		if r.IsCustom(c, vendor, subtype) {
			return c, true
		}
	}
	return nil, false
}
