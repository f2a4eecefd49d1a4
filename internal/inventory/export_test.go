//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgexfoundry/llrp-reader-client/internal/reader"
)

func TestExporter_Write(t *testing.T) {
	buf := &bytes.Buffer{}
	e := NewExporter(buf)
	received := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	e.now = func() time.Time { return received }

	reports := []reader.TagReport{
		{EPC: []byte{0x30, 0x08}, AntennaID: u16p(1)},
		{EPC: []byte{0xe2, 0x80}, PeakRSSI: f64p(-61.5)},
	}
	require.NoError(t, e.Write("dock-door", reports))
	require.NoError(t, e.Write("back-room", nil))
	require.NoError(t, e.Close())

	var records []Record
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var r Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		records = append(records, r)
	}
	require.NoError(t, sc.Err())
	require.Len(t, records, 2)

	for i, r := range records {
		assert.Equal(t, "dock-door", r.Reader)
		assert.True(t, received.Equal(r.Received))
		assert.Equal(t, reports[i].EPC, r.Tag.EPC)
	}
	require.NotNil(t, records[0].Tag.AntennaID)
	assert.Equal(t, uint16(1), *records[0].Tag.AntennaID)
	require.NotNil(t, records[1].Tag.PeakRSSI)
	assert.Equal(t, -61.5, *records[1].Tag.PeakRSSI)
}

// closeRecorder is a writer that remembers whether it was closed.
type closeRecorder struct {
	bytes.Buffer
	closed bool
}

func (cr *closeRecorder) Close() error {
	cr.closed = true
	return nil
}

func TestExporter_LeavesWriterOpen(t *testing.T) {
	w := &closeRecorder{}
	e := NewExporter(w)
	require.NoError(t, e.Write("dock-door", []reader.TagReport{{EPC: []byte{1}}}))
	require.NoError(t, e.Close())
	assert.False(t, w.closed)
	assert.NotEmpty(t, w.String())
}

func TestNewFileExporter(t *testing.T) {
	_, err := NewFileExporter(ExportConfig{})
	require.Error(t, err)

	fn := filepath.Join(t.TempDir(), "exports", "tags.jsonl")
	e, err := NewFileExporter(ExportConfig{Filename: fn, MaxSizeMB: 1, MaxBackups: 2})
	require.NoError(t, err)
	require.NoError(t, e.Write("dock-door", []reader.TagReport{{EPC: []byte{1, 2, 3}}}))
	require.NoError(t, e.Close())

	data, err := os.ReadFile(fn)
	require.NoError(t, err)
	var r Record
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &r))
	assert.Equal(t, "dock-door", r.Reader)
	assert.Equal(t, "010203", r.Tag.EPCHex())
}
