//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgexfoundry/llrp-reader-client/internal/llrp"
	"edgexfoundry/llrp-reader-client/internal/reader"
)

const testTOML = `
LogLevel = "DEBUG"

[Readers]
Dock-Door = "10.0.0.5"
back-room = "10.0.0.6:5085"

[ApplicationSettings]
ResetOnConnect = true
StartInventory = false
ReportEveryNTags = 0
ReportTimeout = "2s"
InventoryDuration = "500ms"
Antennas = [1, 2]
TxPowerDBm = 27.25
Frequencies = [902750, 903250]
ContentFields = ["EnableAntennaID", "enablepeakrssi", "EnableImpinjPeakRSSI"]
Events = ["GPIEvent", "AntennaEvent"]
ScanType = "Deep"
ImpinjSearchMode = "DualTarget"
GPITriggerPort = 2
GPITriggerEvent = true
GPITriggerTimeout = "1s"
GPIPolicyPort = 3
GPIStartOnHigh = true
PopulationSize = 200
TagMobilityMs = 500
KeepaliveInterval = "30s"

[ApplicationSettings.AntennaTxPowerDBm]
2 = 20
3 = 18.5

[Export]
Filename = "/tmp/tags.jsonl"
MaxSizeMB = 10
Compress = true

[Stats]
WindowSize = 5
Print = false
`

func loadTOML(t *testing.T, content string) Settings {
	t.Helper()
	fn := filepath.Join(t.TempDir(), "configuration.toml")
	require.NoError(t, os.WriteFile(fn, []byte(content), 0o644))

	v := viper.New()
	v.SetConfigFile(fn)
	require.NoError(t, v.ReadInConfig())

	s, err := Load(v)
	require.NoError(t, err)
	return s
}

func TestLoad_Defaults(t *testing.T) {
	s, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, Default(), s)

	cfg, err := s.ReaderConfig()
	require.NoError(t, err)

	def := reader.DefaultConfig()
	assert.Equal(t, def.StartInventory, cfg.StartInventory)
	assert.Equal(t, def.ReportEveryNTags, cfg.ReportEveryNTags)
	assert.Equal(t, def.ContentSelector, cfg.ContentSelector)
	assert.Equal(t, def.ScanType, cfg.ScanType)
	assert.Equal(t, def.ROSpecID, cfg.ROSpecID)
	assert.Equal(t, def.ResponseTimeout, cfg.ResponseTimeout)
	assert.Nil(t, cfg.GPITrigger)
	assert.Nil(t, cfg.GPIPolicy)
	assert.Nil(t, cfg.ImpinjSearchMode)
}

func TestLoad_File(t *testing.T) {
	s := loadTOML(t, testTOML)

	assert.Equal(t, "DEBUG", s.LogLevel)
	assert.Equal(t, map[string]string{
		"dock-door": "10.0.0.5",
		"back-room": "10.0.0.6:5085",
	}, s.Readers)
	assert.Equal(t, 5, s.Stats.WindowSize)
	assert.False(t, s.Stats.Print)

	ec := s.ExportConfig()
	assert.Equal(t, "/tmp/tags.jsonl", ec.Filename)
	assert.Equal(t, 10, ec.MaxSizeMB)
	assert.True(t, ec.Compress)

	// Values the file doesn't set keep their defaults.
	assert.Equal(t, uint32(1), s.ApplicationSettings.ROSpecID)
	assert.Equal(t, 10*time.Second, s.ApplicationSettings.ConnectTimeout)

	cfg, err := s.ReaderConfig()
	require.NoError(t, err)

	assert.True(t, cfg.ResetOnConnect)
	assert.False(t, cfg.StartInventory)
	assert.Equal(t, uint16(0), cfg.ReportEveryNTags)
	assert.Equal(t, 2*time.Second, cfg.ReportTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Duration)
	assert.Equal(t, []uint16{1, 2}, cfg.Antennas)
	assert.Equal(t, 27.25, cfg.TxPower)
	assert.Equal(t, map[uint16]float64{2: 20, 3: 18.5}, cfg.AntennaTxPower)
	assert.Equal(t, []llrp.Kilohertz{902750, 903250}, cfg.Frequencies)
	assert.Equal(t, llrp.ContentSelector{
		EnableAntennaID:      true,
		EnablePeakRSSI:       true,
		EnableImpinjPeakRSSI: true,
	}, cfg.ContentSelector)
	assert.True(t, cfg.Events.Enabled("GPIEvent"))
	assert.True(t, cfg.Events.Enabled("AntennaEvent"))
	assert.False(t, cfg.Events.Enabled("ReaderExceptionEvent"))
	assert.Equal(t, llrp.ScanDeep, cfg.ScanType)
	require.NotNil(t, cfg.ImpinjSearchMode)
	assert.Equal(t, llrp.ImpinjSearchDualTarget, *cfg.ImpinjSearchMode)
	assert.Equal(t, &llrp.GPITrigger{Port: 2, Event: true, Timeout: 1000}, cfg.GPITrigger)
	require.NotNil(t, cfg.GPIPolicy)
	assert.Equal(t, reader.ActionStart, cfg.GPIPolicy(3, true))
	assert.Equal(t, reader.ActionStop, cfg.GPIPolicy(3, false))
	assert.Equal(t, reader.ActionNone, cfg.GPIPolicy(2, true))
	assert.Equal(t, llrp.Environment{PopulationSize: 200, Mobility: llrp.TagsAreStatic}, cfg.Environment)
	assert.Equal(t, 30*time.Second, cfg.KeepaliveInterval)
}

func TestLoad_FlagsOverrideFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "configuration.toml")
	require.NoError(t, os.WriteFile(fn, []byte(testTOML), 0o644))

	v := viper.New()
	v.SetConfigFile(fn)
	require.NoError(t, v.ReadInConfig())
	v.Set("LogLevel", "WARN")
	v.Set("ApplicationSettings.ScanType", "Fast")

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "WARN", s.LogLevel)
	assert.Equal(t, "Fast", s.ApplicationSettings.ScanType)
	assert.True(t, s.ApplicationSettings.ResetOnConnect)
}

func TestSettings_ReaderConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(as *ApplicationSettings)
	}{
		{"unknown scan type", func(as *ApplicationSettings) { as.ScanType = "Thorough" }},
		{"unknown search mode", func(as *ApplicationSettings) { as.ImpinjSearchMode = "Hybrid" }},
		{"unknown content field", func(as *ApplicationSettings) { as.ContentFields = []string{"EnableEverything"} }},
		{"unknown event", func(as *ApplicationSettings) { as.Events = []string{"TagEvent"} }},
		{"bad antenna key", func(as *ApplicationSettings) { as.AntennaTxPowerDBm = map[string]float64{"one": 20} }},
		{"antenna zero", func(as *ApplicationSettings) { as.Antennas = []uint16{0} }},
		{"zero ROSpecID", func(as *ApplicationSettings) { as.ROSpecID = 0 }},
		{"negative GPI timeout", func(as *ApplicationSettings) {
			as.GPITriggerPort = 1
			as.GPITriggerTimeout = -time.Second
		}},
		{"no response timeout", func(as *ApplicationSettings) { as.ResponseTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.modify(&s.ApplicationSettings)
			_, err := s.ReaderConfig()
			require.Error(t, err)
		})
	}
}

func TestParseSearchMode(t *testing.T) {
	mode, err := parseSearchMode("")
	require.NoError(t, err)
	assert.Nil(t, mode)

	mode, err = parseSearchMode("TagFocus")
	require.NoError(t, err)
	require.NotNil(t, mode)
	assert.Equal(t, llrp.ImpinjSearchTagFocus, *mode)
}
