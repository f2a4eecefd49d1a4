//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"

	"edgexfoundry/llrp-reader-client/internal/reader"
)

// ExportConfig controls the rotation of an export file.
// Zero values use lumberjack's defaults.
type ExportConfig struct {
	Filename   string
	MaxSizeMB  int
	MaxAgeDays int
	MaxBackups int
	Compress   bool
}

// Record is one line of an export: a tag report and where it came from.
type Record struct {
	Reader   string
	Received time.Time
	Tag      reader.TagReport
}

// Exporter writes tag reports as JSON lines, one Record per tag.
// It's safe for concurrent use.
type Exporter struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
	now    func() time.Time
}

// NewExporter returns an Exporter that writes to w.
// The caller owns w; Close leaves it open.
func NewExporter(w io.Writer) *Exporter {
	return &Exporter{enc: json.NewEncoder(w), now: time.Now}
}

// NewFileExporter returns an Exporter that appends to a rotating file.
func NewFileExporter(cfg ExportConfig) (*Exporter, error) {
	if cfg.Filename == "" {
		return nil, errors.New("export filename is empty")
	}
	if dir := filepath.Dir(cfg.Filename); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create export directory")
		}
	}

	lj := &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSizeMB,
		MaxAge:     cfg.MaxAgeDays,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
	e := NewExporter(lj)
	e.closer = lj
	return e, nil
}

// Write adds a Record for each report, all stamped with the same time.
func (e *Exporter) Write(readerName string, reports []reader.TagReport) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now().UTC()
	for i := range reports {
		if err := e.enc.Encode(Record{Reader: readerName, Received: now, Tag: reports[i]}); err != nil {
			return errors.Wrapf(err, "failed to export tag report from %q", readerName)
		}
	}
	return nil
}

// Close closes the file of an Exporter from NewFileExporter.
// It does nothing for other Exporters.
func (e *Exporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closer == nil {
		return nil
	}
	return errors.Wrap(e.closer.Close(), "failed to close export")
}
