//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"math"
	"time"

	"github.com/pkg/errors"

	"edgexfoundry/llrp-reader-client/internal/llrp"
)

// Config controls how a Client sets up and runs a Reader.
type Config struct {
	// ResetOnConnect restores the Reader's factory defaults before configuring it.
	ResetOnConnect bool
	// StartInventory starts inventory as soon as Connect finishes configuring.
	StartInventory bool

	// ReportEveryNTags asks for a report after this many tags,
	// or at the end of each AISpec if that's sooner. 0 means only at the end.
	ReportEveryNTags uint16
	// ReportTimeout restarts inventory on this period,
	// so reports arrive at least that often. It overrides Duration.
	ReportTimeout time.Duration
	// Duration stops inventory after this long; 0 runs until stopped.
	Duration time.Duration

	// Antennas limits inventory to these antenna IDs; empty uses all of them.
	Antennas []uint16
	// TxPower is the transmit power in dBm for every antenna; 0 means the maximum.
	TxPower float64
	// AntennaTxPower overrides TxPower for specific antennas.
	AntennaTxPower map[uint16]float64
	// Frequencies restricts non-hopping Readers to these channels.
	Frequencies []llrp.Kilohertz

	ContentSelector llrp.ContentSelector
	Events          llrp.EventSelector

	ScanType    llrp.ScanType
	GPITrigger  *llrp.GPITrigger
	Environment llrp.Environment

	ImpinjSearchMode    *llrp.ImpinjSearchMode
	ImpinjSuppressMonza bool

	ROSpecID          uint32
	ResponseTimeout   time.Duration
	ConnectTimeout    time.Duration
	KeepaliveInterval time.Duration
	MaxFrameSize      uint32

	// GPIPolicy, if set, maps GPI events to inventory starts and stops.
	GPIPolicy GPIPolicy
}

// DefaultConfig returns a Config that inventories all antennas
// at full power with a Normal scan, reporting every tag as it's seen.
func DefaultConfig() Config {
	return Config{
		StartInventory:   true,
		ReportEveryNTags: 1,
		ContentSelector:  llrp.DefaultContentSelector(),
		ScanType:         llrp.ScanNormal,
		ROSpecID:         1,
		ResponseTimeout:  10 * time.Second,
		ConnectTimeout:   10 * time.Second,
	}
}

// Validate returns an error if the Config can't be used as-is.
// It doesn't know the Reader, so it can't check power levels or antenna counts.
func (cfg Config) Validate() error {
	if cfg.ROSpecID == 0 {
		return errors.New("ROSpecID must not be 0")
	}
	if cfg.ResponseTimeout <= 0 {
		return errors.Errorf("ResponseTimeout must be positive, not %v", cfg.ResponseTimeout)
	}
	if cfg.ConnectTimeout <= 0 {
		return errors.Errorf("ConnectTimeout must be positive, not %v", cfg.ConnectTimeout)
	}

	for name, d := range map[string]time.Duration{
		"Duration":          cfg.Duration,
		"ReportTimeout":     cfg.ReportTimeout,
		"KeepaliveInterval": cfg.KeepaliveInterval,
	} {
		if _, err := millisecs(d); err != nil {
			return errors.WithMessage(err, name)
		}
	}

	for _, id := range cfg.Antennas {
		if id == 0 {
			return errors.New("antenna IDs start at 1")
		}
	}
	for id := range cfg.AntennaTxPower {
		if id == 0 {
			return errors.New("antenna IDs start at 1")
		}
	}

	if _, err := cfg.ScanType.MarshalText(); err != nil {
		return err
	}
	if cfg.GPITrigger != nil && cfg.GPITrigger.Port == 0 {
		return errors.New("GPI ports start at 1")
	}

	return errors.WithMessage(cfg.Events.Validate(), "Events")
}

func millisecs(d time.Duration) (llrp.Millisecs32, error) {
	ms := d.Milliseconds()
	if ms < 0 || ms > math.MaxUint32 {
		return 0, errors.Errorf("%v is out of range", d)
	}
	return llrp.Millisecs32(ms), nil
}

func powerTarget(dBm float64) llrp.PowerTarget {
	if dBm == 0 {
		return llrp.PowerTarget{}
	}
	return llrp.PowerTarget{Max: llrp.DBm(dBm)}
}

// Behavior returns the llrp.Behavior the Config describes.
// Call Validate first; out-of-range durations are clamped to 0.
func (cfg Config) Behavior() llrp.Behavior {
	dur, _ := millisecs(cfg.Duration)
	timeout, _ := millisecs(cfg.ReportTimeout)

	b := llrp.Behavior{
		ScanType:      cfg.ScanType,
		Duration:      dur,
		ReportTimeout: timeout,
		Power:         powerTarget(cfg.TxPower),
		Antennas:      cfg.Antennas,
		Frequencies:   cfg.Frequencies,
		GPITrigger:    cfg.GPITrigger,
	}

	if len(cfg.AntennaTxPower) > 0 {
		b.AntennaPower = make(map[uint16]llrp.PowerTarget, len(cfg.AntennaTxPower))
		for id, p := range cfg.AntennaTxPower {
			b.AntennaPower[id] = powerTarget(p)
		}
	}

	if cfg.ImpinjSearchMode != nil || cfg.ImpinjSuppressMonza {
		b.ImpinjOptions = &llrp.ImpinjOptions{
			SuppressMonza: cfg.ImpinjSuppressMonza,
			SearchMode:    cfg.ImpinjSearchMode,
		}
	}

	return b
}

// ReportSpec returns when and what the Reader should report.
func (cfg Config) ReportSpec() llrp.ReportSpec {
	return llrp.ReportSpec{
		Trigger: llrp.NTagsOrAIEnd,
		N:       cfg.ReportEveryNTags,
		Content: cfg.ContentSelector,
	}
}

// usesImpinjExtensions reports whether anything in the Config
// needs IMPINJ_ENABLE_EXTENSIONS on an Impinj Reader.
func (cfg Config) usesImpinjExtensions() bool {
	return cfg.ImpinjSearchMode != nil || cfg.ImpinjSuppressMonza ||
		cfg.ContentSelector.ImpinjEnabled()
}
