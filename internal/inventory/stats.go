//
// Copyright (C) 2020 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"edgexfoundry/llrp-reader-client/internal/reader"
)

// DefaultWindowSize is the number of recent RSSI and read interval values
// averaged for each antenna.
const DefaultWindowSize = 20

// antennaKey identifies a single antenna on a named reader.
// Reports without an AntennaID count against antenna 0.
type antennaKey struct {
	reader  string
	antenna uint16
}

// antennaStats accumulates the reads seen on one antenna.
type antennaStats struct {
	reads    uint64
	tags     map[string]struct{}
	rssi     *CircularBuffer
	interval *CircularBuffer
	lastSeen time.Time
}

// AntennaSummary describes the reads a Collector has seen on one antenna.
// The means are nil when no report carried the values needed to compute them.
type AntennaSummary struct {
	Reader         string
	Antenna        uint16
	Reads          uint64
	UniqueTags     int
	MeanRSSI       *float64 `json:",omitempty"`
	MeanIntervalMs *float64 `json:",omitempty"`
}

// Collector keeps per-antenna statistics for the tag reports of many readers.
// It's safe for concurrent use, so a single Collector can be shared
// by the TagReportCallbacks of every Client in a ReaderGroup.
type Collector struct {
	windowSize int

	mu    sync.Mutex
	stats map[antennaKey]*antennaStats
}

// NewCollector returns a Collector that averages RSSI and read intervals
// over the most recent windowSize values for each antenna.
// A windowSize less than 1 uses DefaultWindowSize.
func NewCollector(windowSize int) *Collector {
	if windowSize < 1 {
		windowSize = DefaultWindowSize
	}
	return &Collector{
		windowSize: windowSize,
		stats:      map[antennaKey]*antennaStats{},
	}
}

// Observe adds the reports from the named reader to the statistics.
func (c *Collector) Observe(readerName string, reports []reader.TagReport) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range reports {
		r := &reports[i]
		key := antennaKey{reader: readerName}
		if r.AntennaID != nil {
			key.antenna = *r.AntennaID
		}

		s, ok := c.stats[key]
		if !ok {
			s = &antennaStats{
				tags:     map[string]struct{}{},
				rssi:     NewCircularBuffer(c.windowSize),
				interval: NewCircularBuffer(c.windowSize),
			}
			c.stats[key] = s
		}

		if r.SeenCount != nil && *r.SeenCount > 0 {
			s.reads += uint64(*r.SeenCount)
		} else {
			s.reads++
		}
		s.tags[r.EPCHex()] = struct{}{}

		if r.PeakRSSI != nil {
			s.rssi.Add(*r.PeakRSSI)
		}

		if seen, ok := r.LastSeen(); ok {
			if !s.lastSeen.IsZero() && seen.After(s.lastSeen) {
				s.interval.Add(float64(seen.Sub(s.lastSeen)) / float64(time.Millisecond))
			}
			if seen.After(s.lastSeen) {
				s.lastSeen = seen
			}
		}
	}
}

// Reset forgets everything the Collector has seen.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.stats = map[antennaKey]*antennaStats{}
	c.mu.Unlock()
}

// Summary returns the statistics for each antenna,
// sorted by reader name, then antenna ID.
func (c *Collector) Summary() []AntennaSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	summaries := make([]AntennaSummary, 0, len(c.stats))
	for key, s := range c.stats {
		as := AntennaSummary{
			Reader:     key.reader,
			Antenna:    key.antenna,
			Reads:      s.reads,
			UniqueTags: len(s.tags),
		}
		if mean, ok := s.rssi.Mean(); ok {
			as.MeanRSSI = &mean
		}
		if mean, ok := s.interval.Mean(); ok {
			as.MeanIntervalMs = &mean
		}
		summaries = append(summaries, as)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Reader != summaries[j].Reader {
			return summaries[i].Reader < summaries[j].Reader
		}
		return summaries[i].Antenna < summaries[j].Antenna
	})
	return summaries
}

// WriteTable writes the Summary to w as aligned text columns.
func (c *Collector) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "READER\tANTENNA\tREADS\tTAGS\tMEAN RSSI\tMEAN INTERVAL")
	for _, s := range c.Summary() {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\n",
			s.Reader, s.Antenna, s.Reads, s.UniqueTags,
			optFloat(s.MeanRSSI, "%.2f dBm"), optFloat(s.MeanIntervalMs, "%.0f ms"))
	}
	return tw.Flush()
}

func optFloat(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
