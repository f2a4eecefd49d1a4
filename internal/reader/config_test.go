//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package reader

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"edgexfoundry/llrp-reader-client/internal/llrp"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(cfg *Config)
		wantErr bool
	}{
		{"defaults", func(cfg *Config) {}, false},
		{"zero ROSpecID", func(cfg *Config) { cfg.ROSpecID = 0 }, true},
		{"zero response timeout", func(cfg *Config) { cfg.ResponseTimeout = 0 }, true},
		{"negative connect timeout", func(cfg *Config) { cfg.ConnectTimeout = -time.Second }, true},
		{"negative duration", func(cfg *Config) { cfg.Duration = -time.Second }, true},
		{"huge report timeout", func(cfg *Config) {
			cfg.ReportTimeout = time.Duration(math.MaxUint32+1) * time.Millisecond
		}, true},
		{"antenna 0", func(cfg *Config) { cfg.Antennas = []uint16{1, 0} }, true},
		{"antenna power for 0", func(cfg *Config) { cfg.AntennaTxPower = map[uint16]float64{0: 20} }, true},
		{"unknown scan type", func(cfg *Config) { cfg.ScanType = llrp.ScanType(7) }, true},
		{"GPI port 0", func(cfg *Config) { cfg.GPITrigger = &llrp.GPITrigger{} }, true},
		{"unknown event", func(cfg *Config) { cfg.Events = llrp.EventSelector{"NotAnEvent": true} }, true},
		{"everything", func(cfg *Config) {
			cfg.Antennas = []uint16{1, 2}
			cfg.AntennaTxPower = map[uint16]float64{2: 25.5}
			cfg.Duration = time.Minute
			cfg.KeepaliveInterval = 10 * time.Second
			cfg.GPITrigger = &llrp.GPITrigger{Port: 1, Event: true}
			cfg.Events = llrp.EventSelector{"GPIEvent": true}
			cfg.ScanType = llrp.ScanDeep
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				_, err = NewClient(cfg, nil)
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestConfig_Behavior(t *testing.T) {
	mode := llrp.ImpinjSearchSingleTarget
	cfg := DefaultConfig()
	cfg.Duration = 1500 * time.Millisecond
	cfg.ReportTimeout = 2 * time.Second
	cfg.TxPower = 27.25
	cfg.AntennaTxPower = map[uint16]float64{2: 0, 3: 20}
	cfg.Antennas = []uint16{2, 3}
	cfg.ImpinjSearchMode = &mode

	require.Equal(t, llrp.Behavior{
		ScanType:      llrp.ScanNormal,
		Duration:      1500,
		ReportTimeout: 2000,
		Power:         llrp.PowerTarget{Max: 2725},
		AntennaPower: map[uint16]llrp.PowerTarget{
			2: {},
			3: {Max: 2000},
		},
		Antennas:      []uint16{2, 3},
		ImpinjOptions: &llrp.ImpinjOptions{SearchMode: &mode},
	}, cfg.Behavior())
	require.True(t, cfg.usesImpinjExtensions())

	b := DefaultConfig().Behavior()
	require.True(t, b.Power.IsMax())
	require.Nil(t, b.ImpinjOptions)
	require.Nil(t, b.AntennaPower)
	require.False(t, DefaultConfig().usesImpinjExtensions())
}

func TestConfig_ReportSpec(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReportEveryNTags = 25
	cfg.ContentSelector.EnableRFPhaseAngle = true

	rs := cfg.ReportSpec()
	require.Equal(t, llrp.NTagsOrAIEnd, rs.Trigger)
	require.Equal(t, uint16(25), rs.N)
	require.True(t, rs.Content.EnableRFPhaseAngle)
	require.True(t, cfg.usesImpinjExtensions())
}
