//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

// Package config loads the client's settings with viper
// and turns them into the types the reader package uses.
package config

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"edgexfoundry/llrp-reader-client/internal/inventory"
	"edgexfoundry/llrp-reader-client/internal/llrp"
	"edgexfoundry/llrp-reader-client/internal/reader"
)

// ApplicationSettings are the reader.Config options, in a form
// that's easy to write in a configuration file or on the command line.
type ApplicationSettings struct {
	ResetOnConnect    bool
	StartInventory    bool
	ReportEveryNTags  uint16
	ReportTimeout     time.Duration
	InventoryDuration time.Duration

	Antennas          []uint16
	TxPowerDBm        float64
	AntennaTxPowerDBm map[string]float64
	Frequencies       []uint32

	// ContentFields lists the ContentSelector flags to enable.
	// When empty, the default selection is used.
	ContentFields []string
	Events        []string

	ScanType            string
	ImpinjSearchMode    string
	ImpinjSuppressMonza bool

	GPITriggerPort    uint16
	GPITriggerEvent   bool
	GPITriggerTimeout time.Duration

	// GPIPolicyPort, if not 0, starts and stops inventory on that port's events.
	GPIPolicyPort  uint16
	GPIStartOnHigh bool

	NumNearbyReaders uint
	PopulationSize   uint16
	TagMobilityMs    uint16

	ROSpecID          uint32
	ResponseTimeout   time.Duration
	ConnectTimeout    time.Duration
	KeepaliveInterval time.Duration
	MaxFrameSize      uint32
}

type ExportSettings struct {
	Filename   string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool
}

type StatsSettings struct {
	WindowSize int
	Print      bool
}

// Settings is everything the client reads from its configuration.
type Settings struct {
	LogLevel string
	// Readers maps reader names to host[:port] addresses.
	// Viper folds keys to lower case, so names from a file are lower case.
	Readers             map[string]string
	ApplicationSettings ApplicationSettings
	Export              ExportSettings
	Stats               StatsSettings
}

// Default returns Settings that match reader.DefaultConfig.
func Default() Settings {
	cfg := reader.DefaultConfig()
	return Settings{
		LogLevel: "INFO",
		Readers:  map[string]string{},
		ApplicationSettings: ApplicationSettings{
			StartInventory:   cfg.StartInventory,
			ReportEveryNTags: cfg.ReportEveryNTags,
			ScanType:         cfg.ScanType.String(),
			ROSpecID:         cfg.ROSpecID,
			ResponseTimeout:  cfg.ResponseTimeout,
			ConnectTimeout:   cfg.ConnectTimeout,
		},
		Stats: StatsSettings{WindowSize: inventory.DefaultWindowSize, Print: true},
	}
}

// Load returns the Default Settings overlaid with whatever v holds.
func Load(v *viper.Viper) (Settings, error) {
	s := Default()
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, errors.Wrap(err, "failed to decode settings")
	}
	return s, nil
}

// ExportConfig returns the rotation settings for a tag export.
func (s Settings) ExportConfig() inventory.ExportConfig {
	return inventory.ExportConfig{
		Filename:   s.Export.Filename,
		MaxSizeMB:  s.Export.MaxSizeMB,
		MaxAgeDays: s.Export.MaxAgeDays,
		MaxBackups: s.Export.MaxBackups,
		Compress:   s.Export.Compress,
	}
}

var searchModes = map[string]llrp.ImpinjSearchMode{
	"readerselected":      llrp.ImpinjSearchReaderSelected,
	"singletarget":        llrp.ImpinjSearchSingleTarget,
	"dualtarget":          llrp.ImpinjSearchDualTarget,
	"tagfocus":            llrp.ImpinjSearchTagFocus,
	"singletargetreset":   llrp.ImpinjSearchSingleTargetReset,
	"dualtargetwithreset": llrp.ImpinjSearchDualTargetWithReset,
}

func parseSearchMode(name string) (*llrp.ImpinjSearchMode, error) {
	if name == "" {
		return nil, nil
	}
	mode, ok := searchModes[strings.ToLower(name)]
	if !ok {
		return nil, errors.Errorf("unknown Impinj search mode %q", name)
	}
	return &mode, nil
}

func parseAntennaPower(power map[string]float64) (map[uint16]float64, error) {
	if len(power) == 0 {
		return nil, nil
	}
	parsed := make(map[uint16]float64, len(power))
	for key, dBm := range power {
		id, err := strconv.ParseUint(key, 10, 16)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid antenna ID %q", key)
		}
		parsed[uint16(id)] = dBm
	}
	return parsed, nil
}

// ReaderConfig converts the ApplicationSettings to a validated reader.Config.
func (s Settings) ReaderConfig() (reader.Config, error) {
	as := s.ApplicationSettings
	cfg := reader.DefaultConfig()

	cfg.ResetOnConnect = as.ResetOnConnect
	cfg.StartInventory = as.StartInventory
	cfg.ReportEveryNTags = as.ReportEveryNTags
	cfg.ReportTimeout = as.ReportTimeout
	cfg.Duration = as.InventoryDuration
	cfg.Antennas = as.Antennas
	cfg.TxPower = as.TxPowerDBm
	cfg.ImpinjSuppressMonza = as.ImpinjSuppressMonza
	cfg.ROSpecID = as.ROSpecID
	cfg.ResponseTimeout = as.ResponseTimeout
	cfg.ConnectTimeout = as.ConnectTimeout
	cfg.KeepaliveInterval = as.KeepaliveInterval
	cfg.MaxFrameSize = as.MaxFrameSize
	cfg.Environment = llrp.Environment{
		NumNearbyReaders: as.NumNearbyReaders,
		PopulationSize:   as.PopulationSize,
		Mobility:         llrp.TagMobility(as.TagMobilityMs),
	}

	var err error
	if cfg.AntennaTxPower, err = parseAntennaPower(as.AntennaTxPowerDBm); err != nil {
		return reader.Config{}, err
	}
	if cfg.ImpinjSearchMode, err = parseSearchMode(as.ImpinjSearchMode); err != nil {
		return reader.Config{}, err
	}
	if as.ScanType != "" {
		if err := cfg.ScanType.UnmarshalText([]byte(as.ScanType)); err != nil {
			return reader.Config{}, err
		}
	}

	for _, f := range as.Frequencies {
		cfg.Frequencies = append(cfg.Frequencies, llrp.Kilohertz(f))
	}

	if len(as.ContentFields) > 0 {
		cfg.ContentSelector = llrp.ContentSelector{}
		for _, name := range as.ContentFields {
			if err := cfg.ContentSelector.SetFlag(name, true); err != nil {
				return reader.Config{}, err
			}
		}
	}

	if len(as.Events) > 0 {
		cfg.Events = make(llrp.EventSelector, len(as.Events))
		for _, name := range as.Events {
			cfg.Events[name] = true
		}
	}

	if as.GPITriggerPort != 0 {
		ms := as.GPITriggerTimeout.Milliseconds()
		if ms < 0 || ms > math.MaxUint32 {
			return reader.Config{}, errors.Errorf("GPITriggerTimeout %v is out of range", as.GPITriggerTimeout)
		}
		cfg.GPITrigger = &llrp.GPITrigger{
			Port:    as.GPITriggerPort,
			Event:   as.GPITriggerEvent,
			Timeout: llrp.Millisecs32(ms),
		}
	}
	if as.GPIPolicyPort != 0 {
		cfg.GPIPolicy = reader.GPIPortPolicy(as.GPIPolicyPort, as.GPIStartOnHigh)
	}

	if err := cfg.Validate(); err != nil {
		return reader.Config{}, errors.WithMessage(err, "invalid reader settings")
	}
	return cfg, nil
}
