//
// Copyright (C) 2020 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package llrp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrMissingCapInfo = fmt.Errorf("missing capability information")
	ErrUnsatisfiable  = fmt.Errorf("behavior cannot be satisfied")
)

func errMissingCapInfo(name string, path ...string) error {
	if len(path) != 0 {
		return errors.Wrapf(ErrMissingCapInfo, "missing LLRP %s from %s",
			name, strings.Join(path, "."))
	}
	return errors.Wrapf(ErrMissingCapInfo, "missing LLRP %s", name)
}

// ROGenerator generates a new ROSpec from a Behavior and Environment,
// or returns an error if it cannot produce an ROSpec to satisfy the constraints.
type ROGenerator interface {
	NewROSpec(b Behavior, e Environment) (*Parameter, error)
}

// Device is what a Client knows about a connected Reader.
// It's built from the Reader's capabilities
// and turns Behaviors into the parameters that Reader accepts.
type Device interface {
	ROGenerator

	Info() DeviceInfo

	// NewReportSpec returns the ROReportSpec to send in SET_READER_CONFIG.
	NewReportSpec(r ReportSpec) *Parameter

	// AntennaConfigurations returns the per-antenna transmit settings
	// for the Behavior's power targets.
	AntennaConfigurations(b Behavior) (Parameters, error)

	// OmitsUnchanged reports whether the Reader may leave enabled
	// tag report fields out when they match the last value it sent.
	OmitsUnchanged() bool
}

// DeviceInfo summarizes a Reader's capabilities.
type DeviceInfo struct {
	Manufacturer VendorPEN
	Model        uint32
	Firmware     string
	MaxAntennas  uint16
	NumGPIs      uint16
	NumGPOs      uint16
	MinPower     MillibelMilliwatt
	MaxPower     MillibelMilliwatt
	Hopping      bool
	StateAware   bool
}

// SpectralMask is a UHF RF mode's spectral mask indicator.
// Higher values tolerate denser Reader environments.
type SpectralMask uint8

const (
	SpectralMaskUnknown = SpectralMask(iota)
	SpectralMaskSingleInterrogator
	SpectralMaskMultiInterrogator
	SpectralMaskDenseInterrogator
)

type rfMode struct {
	ID           uint32
	Modulation   uint8 // M: 0=FM0, 1=Miller2, 2=Miller4, 3=Miller8
	SpectralMask SpectralMask
	BDR          uint32 // bps
	PIE          uint32 // x1000
	MinTari      uint32 // ns
}

type powerLevel struct {
	Index uint16
	Value MillibelMilliwatt
}

type hopTable struct {
	ID          uint8
	Frequencies []uint32
}

// BasicDevice holds details of an LLRP device
// and uses those details to determine how best to satisfy desired behaviors.
//
// In particular, it maintains lists of LLRP capabilities,
// such as UHF RF Modes and device power levels.
// Much of the information it tracks mirrors the device's capabilities,
// but it preprocesses some of it to simplify later device command generation.
type BasicDevice struct {
	info        DeviceInfo
	modes       []rfMode
	pwrMinToMax []powerLevel
	hopTables   []hopTable
	fixedFreqs  []uint32

	nFreqs      uint16
	nSpecsPerRO uint32
}

// ImpinjDevice embeds BasicDevice to provide some Impinj-specific Behavior implementations.
//
// Impinj isn't compliant with the following elements of the LLRP standard:
//   - UHF Modes incorrectly report BLF (in Hz) instead of BDR (in bps).
//   - UHF Modes include "Autoset" modes with IDs > 1000,
//     for which the parameter values are made up;
//     the Reader interprets the given ModeID as a hint
//     for it to choose which of the real modes it thinks is best.
//   - Truncate actions during Select (i.e., C1G2Filter.T) are not supported.
//   - They don't support State Aware Filtering directly.
//     There is a custom parameter for "Search Mode" which essentially does it.
//
// On the other hand, they say they send every enabled parameter in every report.
type ImpinjDevice struct {
	BasicDevice
}

// NewDevice returns a Device built from a GET_READER_CAPABILITIES_RESPONSE.
// Impinj Readers get an ImpinjDevice.
func NewDevice(caps *Message) (Device, error) {
	bd, err := NewBasicDevice(caps)
	if err != nil {
		return nil, err
	}

	if bd.info.Manufacturer == PENImpinj {
		return newImpinjDevice(bd), nil
	}
	return bd, nil
}

// NewBasicDevice parses a GET_READER_CAPABILITIES_RESPONSE.
func NewBasicDevice(caps *Message) (*BasicDevice, error) {
	if caps == nil || caps.Name != MsgGetReaderCapabilitiesResponse {
		return nil, errMissingCapInfo("capabilities")
	}

	genCap, ok := caps.Param("GeneralDeviceCapabilities")
	if !ok {
		return nil, errMissingCapInfo("device capabilities", "GeneralDeviceCapabilities")
	}

	llrpCap, ok := caps.Param("LLRPCapabilities")
	if !ok {
		return nil, errMissingCapInfo("LLRP capabilities", "LLRPCapabilities")
	}

	regCap, ok := caps.Param("RegulatoryCapabilities")
	if !ok {
		return nil, errMissingCapInfo("regulatory capabilities", "RegulatoryCapabilities")
	}

	uhf, ok := regCap.Param("UHFBandCapabilities")
	if !ok {
		return nil, errMissingCapInfo("UHF band capabilities",
			"RegulatoryCapabilities", "UHFBandCapabilities")
	}

	tpl := uhf.Params("TransmitPowerLevelTableEntry")
	if len(tpl) == 0 {
		return nil, errMissingCapInfo("power levels",
			"RegulatoryCapabilities", "UHFBandCapabilities", "TransmitPowerLevelTableEntry")
	}

	var modes []rfMode
	for _, table := range uhf.Params("UHFC1G2RFModeTable") {
		for _, m := range table.Params("UHFC1G2RFModeTableEntry") {
			modes = append(modes, parseMode(m))
		}
	}
	if len(modes) == 0 {
		return nil, errMissingCapInfo("RF modes",
			"RegulatoryCapabilities", "UHFBandCapabilities",
			"UHFC1G2RFModeTable", "UHFC1G2RFModeTableEntry")
	}

	bd := &BasicDevice{modes: modes}

	freqInfo, ok := uhf.Param("FrequencyInformation")
	if !ok {
		return nil, errMissingCapInfo("frequency information",
			"RegulatoryCapabilities", "UHFBandCapabilities", "FrequencyInformation")
	}

	bd.info.Hopping = freqInfo.Flag("Flags", "Hopping")
	if bd.info.Hopping {
		for _, ht := range freqInfo.Params("FrequencyHopTable") {
			id, _ := ht.Uint("HopTableID")
			freqs, _ := ht.Uint32s("Frequencies")
			bd.hopTables = append(bd.hopTables, hopTable{ID: uint8(id), Frequencies: freqs})
		}
		if len(bd.hopTables) == 0 || len(bd.hopTables[0].Frequencies) == 0 {
			return nil, errMissingCapInfo("frequency table",
				"RegulatoryCapabilities", "UHFBandCapabilities",
				"FrequencyInformation", "FrequencyHopTable")
		}
		bd.nFreqs = uint16(len(bd.hopTables[0].Frequencies))
	} else {
		fixed, ok := freqInfo.Param("FixedFrequencyTable")
		if ok {
			bd.fixedFreqs, _ = fixed.Uint32s("Frequencies")
		}
		if len(bd.fixedFreqs) == 0 {
			return nil, errMissingCapInfo("frequency table",
				"RegulatoryCapabilities", "UHFBandCapabilities",
				"FrequencyInformation", "FixedFrequencyTable", "Frequencies")
		}
		bd.nFreqs = uint16(len(bd.fixedFreqs))
	}

	// Copy & sort the power level entries by power level, min to max.
	bd.pwrMinToMax = make([]powerLevel, len(tpl))
	for i, entry := range tpl {
		idx, _ := entry.Uint("Index")
		val, _ := entry.Int("TransmitPowerValue")
		bd.pwrMinToMax[i] = powerLevel{Index: uint16(idx), Value: MillibelMilliwatt(val)}
	}
	sort.SliceStable(bd.pwrMinToMax, func(i, j int) bool {
		return bd.pwrMinToMax[i].Value < bd.pwrMinToMax[j].Value
	})

	mfr, _ := genCap.Uint("DeviceManufacturerName")
	model, _ := genCap.Uint("ModelName")
	fw, _ := genCap.Text("ReaderFirmwareVersion")
	maxAnt, _ := genCap.Uint("MaxNumberOfAntennaSupported")
	bd.info.Manufacturer = VendorPEN(mfr)
	bd.info.Model = uint32(model)
	bd.info.Firmware = fw
	bd.info.MaxAntennas = uint16(maxAnt)
	if gpio, ok := genCap.Param("GPIOCapabilities"); ok {
		nGPIs, _ := gpio.Uint("NumGPIs")
		nGPOs, _ := gpio.Uint("NumGPOs")
		bd.info.NumGPIs = uint16(nGPIs)
		bd.info.NumGPOs = uint16(nGPOs)
	}

	bd.info.MinPower = bd.pwrMinToMax[0].Value
	bd.info.MaxPower = bd.pwrMinToMax[len(bd.pwrMinToMax)-1].Value
	bd.info.StateAware = llrpCap.Flag("Flags", "CanDoTagInventoryStateAwareSingulation")
	nSpecs, _ := llrpCap.Uint("MaxNumSpecsPerROSpec")
	bd.nSpecsPerRO = uint32(nSpecs)

	return bd, nil
}

func parseMode(m *Parameter) rfMode {
	id, _ := m.Uint("ModeIdentifier")
	mod, _ := m.Uint("MValue")
	mask, _ := m.Uint("SpectralMaskIndicator")
	bdr, _ := m.Uint("BDRValue")
	pie, _ := m.Uint("PIEValue")
	tari, _ := m.Uint("MinTariValue")
	return rfMode{
		ID:           uint32(id),
		Modulation:   uint8(mod),
		SpectralMask: SpectralMask(mask),
		BDR:          uint32(bdr),
		PIE:          uint32(pie),
		MinTari:      uint32(tari),
	}
}

func newImpinjDevice(bd *BasicDevice) *ImpinjDevice {
	// Correct Impinj's buggy mode table
	fixed := make([]rfMode, 0, len(bd.modes))
	for _, m := range bd.modes {
		if m.ID >= 1000 { // the values for these modes are meaningless
			continue
		}

		// They're reporting BLF (in Hz) instead of BDR (in bps).
		m.BDR >>= m.Modulation
		fixed = append(fixed, m)
	}

	// Only Autoset modes; keep them rather than having none.
	if len(fixed) != 0 {
		bd.modes = fixed
	}

	return &ImpinjDevice{BasicDevice: *bd}
}

func (d *BasicDevice) Info() DeviceInfo { return d.info }

func (d *BasicDevice) OmitsUnchanged() bool { return true }

func (d *ImpinjDevice) OmitsUnchanged() bool { return false }

// Transmit returns a legal RFTransmitter for the power target.
func (d *BasicDevice) Transmit(b Behavior, target PowerTarget) (*Parameter, error) {
	if target.IsMax() {
		target.Max = d.info.MaxPower
	}

	// First, find the highest power at or below the Target.
	pwrIdx, pwr := d.findPower(target.Max)
	if pwr > target.Max {
		return nil, errors.Wrapf(ErrUnsatisfiable,
			"target power (%.2f dBm) is lower than the lowest supported (%.2f dBm)",
			float32(target.Max)/100.0, float32(pwr)/100.0)
	}

	// In hopping regulatory regions, we assume the power is legal for all frequencies.
	// This also assumes the first HopTableID is acceptable/worth using.
	if d.info.Hopping {
		return rfTransmitter(uint16(d.hopTables[0].ID), 0, pwrIdx), nil
	}

	// Without a frequency list, assume the power is legal on the first channel.
	if len(b.Frequencies) == 0 {
		return rfTransmitter(0, 1, pwrIdx), nil
	}

	// Otherwise find a frequency that permits this power level.
	for _, permitted := range b.Frequencies {
		for i, f := range d.fixedFreqs {
			if uint32(permitted) == f {
				// +1 because channel indices are 1-based in LLRP
				return rfTransmitter(0, uint16(i+1), pwrIdx), nil
			}
		}
	}

	return nil, errors.Wrapf(ErrUnsatisfiable,
		"no frequency permits the desired power level (%.2f dBm)",
		float32(target.Max)/100.0)
}

func rfTransmitter(hopTable, channel, powerIdx uint16) *Parameter {
	return NewParameter(ParamRFTransmitter,
		F("HopTableID", Uint(hopTable)),
		F("ChannelIndex", Uint(channel)),
		F("TransmitPower", Uint(powerIdx)))
}

// PowerIndex returns the power table index and level the Reader would use
// for the target power, following the same rules as Transmit.
func (d *BasicDevice) PowerIndex(target PowerTarget) (uint16, MillibelMilliwatt) {
	if target.IsMax() {
		target.Max = d.info.MaxPower
	}
	return d.findPower(target.Max)
}

// findPower returns the device's best match to a given power level,
// suitable for use as the RFTransmitter index in AntennaConfigurations.
//
// The returned power level and its respective index
// is the highest supported power level less than or equal to the target;
// if the target is less than even the lowest supported power level,
// then this returns the lowest power level and its respective index,
// so you should check the value upon return if a higher level is never suitable.
func (d *BasicDevice) findPower(target MillibelMilliwatt) (tableIdx uint16, value MillibelMilliwatt) {
	// sort.Search requires the list is sorted (in our case, in ascending order).
	pwrIdx := sort.Search(len(d.pwrMinToMax), func(i int) bool {
		return d.pwrMinToMax[i].Value >= target
	})

	var t powerLevel
	if pwrIdx == 0 {
		t = d.pwrMinToMax[0]
	} else if pwrIdx < len(d.pwrMinToMax) && d.pwrMinToMax[pwrIdx].Value == target {
		// The power exactly matches one of the Reader's available power settings.
		t = d.pwrMinToMax[pwrIdx]
	} else {
		// The index represents a power value greater than our target,
		// so instead return one less than the target.
		// If the target is above every setting, pwrIdx = len(list).
		t = d.pwrMinToMax[pwrIdx-1]
	}

	return t.Index, t.Value
}

// findBestMode returns the best RF Mode for the given environment density.
//
// If the number of nearby Readers is unknown, use 0.
func (d *BasicDevice) findBestMode(nReaders uint) rfMode {
	const dense = 0.5 // EPC spec implies >50% is about where "multi" becomes "dense"
	var maskTarget SpectralMask
	switch nReaders {
	case 0:
		maskTarget = SpectralMaskUnknown
	case 1:
		maskTarget = SpectralMaskSingleInterrogator
	default:
		density := float64(nReaders) / float64(d.nFreqs)
		if nReaders >= uint(d.nFreqs) || density > dense {
			maskTarget = SpectralMaskDenseInterrogator
		} else {
			maskTarget = SpectralMaskMultiInterrogator
		}
	}

	// Start by only considering modes at least as high as our density,
	// as a higher data rate is pretty useless if interference skyrockets.
	// If there's no mode at or above the mask density, drop it down and try again.
	for {
		if idx, ok := d.fastestAt(maskTarget); ok {
			return d.modes[idx]
		}
		maskTarget--
	}
}

// fastestAt returns the index of the RF Mode with the highest likely throughput
// at or above the given density.
// If there are no modes at or above the given density mask,
// the returned "ok" value is false, and bestIdx is undefined.
// At SpectralMaskUnknown, "ok" is always true.
//
// During singulation, tags only backscatter about 150 bits.
// At low BDRs, the backscatter time dominates singulation,
// but at higher BDRs, the forward link can make up to a 3x difference.
// RTcal approximates the forward link and BDR the backward link;
// the score is a weighted average of each relative to its best possible value.
func (d *BasicDevice) fastestAt(mask SpectralMask) (bestIdx int, ok bool) {
	const fwdLinkBias = 0.5 // must be in [0, 1]
	const bestRTcal, bestBDR = 15625000, 640000
	var bestScore float64 // lower is better

	for i, m := range d.modes {
		if m.SpectralMask < mask { // skip modes with too much interference
			continue
		}

		fwdLink := bestRTcal / (float64(m.MinTari) * float64(1000+m.PIE))
		bwdLink := float64(bestBDR)
		if m.BDR != 0 {
			bwdLink = bestBDR / float64(m.BDR)
		}
		score := (fwdLinkBias * fwdLink) + ((1 - fwdLinkBias) * bwdLink)
		if !ok || score < bestScore {
			bestScore = score
			bestIdx = i
		}

		ok = true
	}

	return bestIdx, ok || mask == SpectralMaskUnknown
}

func (d *BasicDevice) checkBehavior(b Behavior) error {
	if b.GPITrigger != nil && (b.GPITrigger.Port == 0 ||
		d.info.NumGPIs == 0 || b.GPITrigger.Port > d.info.NumGPIs) {
		return errors.Wrapf(ErrUnsatisfiable,
			"behavior uses a GPI Trigger with invalid Port "+
				"(%d not in [1, %d])", b.GPITrigger.Port, d.info.NumGPIs)
	}

	for _, ant := range b.Antennas {
		if ant == 0 || (d.info.MaxAntennas != 0 && ant > d.info.MaxAntennas) {
			return errors.Wrapf(ErrUnsatisfiable,
				"antenna %d not in [1, %d]", ant, d.info.MaxAntennas)
		}
	}
	for ant := range b.AntennaPower {
		if ant == 0 || (d.info.MaxAntennas != 0 && ant > d.info.MaxAntennas) {
			return errors.Wrapf(ErrUnsatisfiable,
				"antenna power for %d not in [1, %d]", ant, d.info.MaxAntennas)
		}
	}
	return nil
}

// antennaIDs returns the Behavior's antennas; 0 means all of them.
func antennaIDs(b Behavior) Uint16s {
	if len(b.Antennas) == 0 {
		return Uint16s{0}
	}
	ids := make(Uint16s, len(b.Antennas))
	copy(ids, b.Antennas)
	return ids
}

// AntennaConfigurations returns an AntennaConfiguration
// with an RFTransmitter for each antenna with its own power target,
// plus one for antenna 0 (all antennas) using the default target.
// Antenna IDs outside [1, MaxAntennas] are ErrUnsatisfiable.
func (d *BasicDevice) AntennaConfigurations(b Behavior) (Parameters, error) {
	for ant := range b.AntennaPower {
		if ant == 0 || (d.info.MaxAntennas != 0 && ant > d.info.MaxAntennas) {
			return nil, errors.Wrapf(ErrUnsatisfiable,
				"antenna power for %d not in [1, %d]", ant, d.info.MaxAntennas)
		}
	}

	def, err := d.Transmit(b, b.Power)
	if err != nil {
		return nil, err
	}

	configs := Parameters{NewParameter(ParamAntennaConfiguration,
		F("AntennaID", Uint(0)),
		F(ParamRFTransmitter, def))}

	ants := make([]int, 0, len(b.AntennaPower))
	for ant := range b.AntennaPower {
		ants = append(ants, int(ant))
	}
	sort.Ints(ants)

	for _, ant := range ants {
		tx, err := d.Transmit(b, b.AntennaPower[uint16(ant)])
		if err != nil {
			return nil, errors.WithMessagef(err, "antenna %d", ant)
		}
		configs = append(configs, NewParameter(ParamAntennaConfiguration,
			F("AntennaID", Uint(ant)),
			F(ParamRFTransmitter, tx)))
	}

	return configs, nil
}

// Session flag states used by C1G2TagInventoryStateAwareSingulationAction.
const (
	SessionStateA = uint64(0)
	SessionStateB = uint64(1)

	SLStateAsserted   = uint64(0)
	SLStateDeasserted = uint64(1)
)

// C1G2 Filter truncate and state-unaware action values.
const (
	FilterActionUnspecified   = uint64(0)
	FilterActionDoNotTruncate = uint64(1)

	// UnawareUnselectMatchSelectOthers unselects matching tags
	// and selects the rest.
	UnawareUnselectMatchSelectOthers = uint64(4)
)

// AirProtoEPCGlobalClass1Gen2 is the only air protocol LLRP defines.
const AirProtoEPCGlobalClass1Gen2 = uint64(1)

type singulation struct {
	session    uint64
	population uint16
	transit    Millisecs32
	state      uint64 // SessionStateA or B, for state aware readers
}

func (s singulation) parameter(stateAware bool) *Parameter {
	p := NewParameter("C1G2SingulationControl",
		F("Flags", Bits{"Session": s.session}),
		F("TagPopulation", Uint(s.population)),
		F("TagTransitTime", Uint(s.transit)))
	if stateAware {
		p.Set("C1G2TagInventoryStateAwareSingulationAction",
			NewParameter("C1G2TagInventoryStateAwareSingulationAction",
				F("Flags", Bits{"I": s.state, "S": SLStateDeasserted})))
	}
	return p
}

func (s *singulation) applyEnvironment(e Environment) {
	if e.PopulationSize != 0 {
		s.population = e.PopulationSize
	}
	if e.Mobility != tagMobilityUnknown {
		s.transit = Millisecs32(e.Mobility)
	}
}

func aiSpec(b Behavior, stop *Parameter, invSpecs ...*Parameter) *Parameter {
	return NewParameter("AISpec",
		F("AntennaIDs", antennaIDs(b)),
		F("AISpecStopTrigger", stop),
		F("InventoryParameterSpec", Parameters(invSpecs)))
}

func aiStopNone() *Parameter {
	return NewParameter("AISpecStopTrigger",
		F("AISpecStopTriggerType", Uint(AIStopTriggerNone)),
		F("DurationTrigger", Uint(0)))
}

func aiStopQuiet(t uint16) *Parameter {
	return NewParameter("AISpecStopTrigger",
		F("AISpecStopTriggerType", Uint(AIStopTriggerTagObservation)),
		F("DurationTrigger", Uint(0)),
		F("TagObservationTrigger", NewParameter("TagObservationTrigger",
			F("TriggerType", Uint(TagObsTriggerNoNewAfterT)),
			F("NumberOfTags", Uint(0)),
			F("NumberOfAttempts", Uint(0)),
			F("T", Uint(t)),
			F("Timeout", Uint(0)))))
}

// inventorySpec wraps the inventory command in an InventoryParameterSpec,
// with one AntennaConfiguration per transmit setting.
func inventorySpec(id uint16, antConfigs Parameters, invCmd *Parameter) *Parameter {
	configs := make(Parameters, len(antConfigs))
	for i, ac := range antConfigs {
		c := &Parameter{Name: ac.Name, Fields: append(Fields(nil), ac.Fields...)}
		c.Set("AirProtocolInventoryCommandSettings", Parameters{invCmd})
		configs[i] = c
	}

	return NewParameter("InventoryParameterSpec",
		F("InventoryParameterSpecID", Uint(id)),
		F("ProtocolID", Uint(AirProtoEPCGlobalClass1Gen2)),
		F(ParamAntennaConfiguration, configs))
}

func newROSpec(b Behavior, aiSpecs ...*Parameter) *Parameter {
	return NewParameter(ParamROSpec,
		F("ROSpecID", Uint(1)), // May be overridden, but better to ensure it's not 0.
		F("Priority", Uint(0)),
		F("CurrentState", Uint(0)),
		F("ROBoundarySpec", b.Boundary()),
		F("SpecParameter", Parameters(aiSpecs)))
}

// NewROSpec returns a new ROSpec to achieve the Behavior within the Environment.
func (d *BasicDevice) NewROSpec(b Behavior, e Environment) (*Parameter, error) {
	if err := d.checkBehavior(b); err != nil {
		return nil, err
	}

	antConfigs, err := d.AntennaConfigurations(b)
	if err != nil {
		return nil, err
	}

	best := d.findBestMode(e.NumNearbyReaders)
	stateAware := d.info.StateAware
	canDualTarget := stateAware && d.nSpecsPerRO >= 2

	rfControl := NewParameter("C1G2RFControl",
		F("ModeIndex", Uint(best.ID)),
		F("Tari", Uint(best.MinTari)))

	var query singulation
	var filters Parameters

	switch b.ScanType {
	case ScanFast:
		// For a Fast scan, search for tags with S0 in State A.
		// S0 reverts on its own when not powered.
		query = singulation{session: 0, population: 500, transit: 500, state: SessionStateA}

	case ScanNormal:
		// For a Normal scan, search for tags with S1 in State A.
		// Inventorying S1 allows a lower Q value without collisions,
		// as over time tags spread out in the persistence time window.
		query = singulation{session: 1, population: 1000, transit: 5000, state: SessionStateA}

	case ScanDeep:
		// With two AISpecs and state aware singulation,
		// first inventory S2 A->B until it's quiet for 500ms or more,
		// then inventory S2 B->A until it's quiet for 500ms or more.
		if canDualTarget {
			specs := make([]*Parameter, 2)
			for i := range specs {
				state := SessionStateB
				if i&1 == 0 {
					state = SessionStateA
				}
				q := singulation{session: 2, population: 500, transit: 500, state: state}
				q.applyEnvironment(e)

				invCmd := NewParameter("C1G2InventoryCommand",
					F("Flags", Bits{"TagInventoryStateAware": 1}),
					F("C1G2RFControl", rfControl),
					F("C1G2SingulationControl", q.parameter(true)))
				specs[i] = aiSpec(b, aiStopQuiet(500),
					inventorySpec(uint16(i+1), antConfigs, invCmd))
			}
			return newROSpec(b, specs...), nil
		}

		// Otherwise, use a Filter with a mask that matches no tags
		// with an action that "Selects" non-matches and "Unselects" matches,
		// then set the SingulationControl to target S2.
		// The only reasonable way for a Reader to implement that
		// is with a Select for S2 B->A and a Query for target S2 in state A.
		filters = Parameters{NewParameter("C1G2Filter",
			F("Flags", Bits{"T": FilterActionDoNotTruncate}),
			F("C1G2TagInventoryMask", NewParameter("C1G2TagInventoryMask",
				F("Flags", Bits{"MB": 1}),
				F("Pointer", Uint(0)),
				F("TagMask", Bytes{}))),
			F("C1G2TagInventoryStateUnawareFilterAction",
				NewParameter("C1G2TagInventoryStateUnawareFilterAction",
					F("Action", Uint(UnawareUnselectMatchSelectOthers)))))}
		query = singulation{session: 2, population: 3000, transit: 10000, state: SessionStateB}

	default:
		return nil, errors.Wrapf(ErrUnsatisfiable, "unknown ScanType %d", int(b.ScanType))
	}

	query.applyEnvironment(e)

	invCmd := NewParameter("C1G2InventoryCommand",
		F("Flags", Bits{"TagInventoryStateAware": Flag(stateAware)}),
		F("C1G2RFControl", rfControl),
		F("C1G2SingulationControl", query.parameter(stateAware)))
	if len(filters) != 0 {
		invCmd.Set("C1G2Filter", filters)
	}

	return newROSpec(b, aiSpec(b, aiStopNone(), inventorySpec(1, antConfigs, invCmd))), nil
}

// NewROSpec returns a new ROSpec to achieve the Behavior within the Environment
// with some aid of Impinj-specific LLRP vendor extensions.
func (d *ImpinjDevice) NewROSpec(b Behavior, e Environment) (*Parameter, error) {
	if err := d.checkBehavior(b); err != nil {
		return nil, err
	}

	antConfigs, err := d.AntennaConfigurations(b)
	if err != nil {
		return nil, err
	}

	best := d.findBestMode(e.NumNearbyReaders)
	suppress := b.ImpinjOptions != nil && b.ImpinjOptions.SuppressMonza

	// Impinj doesn't support state aware filtering via standard LLRP messages,
	// but does support the concept via a custom parameter they call "Search modes".
	var query singulation
	searchMode := ImpinjSearchDualTarget

	switch b.ScanType {
	case ScanFast:
		query = singulation{session: 0, population: 500, transit: 500}
		if suppress {
			query.session = 1 // TagFocus only makes sense with S1
			searchMode = ImpinjSearchTagFocus
		}
	case ScanNormal:
		query = singulation{session: 1, population: 1000, transit: 5000}
		if suppress {
			searchMode = ImpinjSearchTagFocus
		}
	case ScanDeep:
		query = singulation{session: 2, population: 3000, transit: 10000}
		searchMode = ImpinjSearchDualTargetWithReset
	default:
		return nil, errors.Wrapf(ErrUnsatisfiable, "unknown ScanType %d", int(b.ScanType))
	}

	if b.ImpinjOptions != nil && b.ImpinjOptions.SearchMode != nil {
		searchMode = *b.ImpinjOptions.SearchMode
	}

	query.applyEnvironment(e)

	invCmd := NewParameter("C1G2InventoryCommand",
		F("Flags", Bits{"TagInventoryStateAware": 0}),
		F("C1G2RFControl", NewParameter("C1G2RFControl",
			F("ModeIndex", Uint(best.ID)),
			F("Tari", Uint(0)))),
		F("C1G2SingulationControl", query.parameter(false)),
		F("Custom", Parameters{NewParameter(ParamImpinjInventorySearchMode,
			F("InventorySearchMode", Uint(searchMode)))}))

	return newROSpec(b, aiSpec(b, aiStopNone(), inventorySpec(1, antConfigs, invCmd))), nil
}
