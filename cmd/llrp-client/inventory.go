//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"edgexfoundry/llrp-reader-client/internal/config"
	"edgexfoundry/llrp-reader-client/internal/inventory"
	"edgexfoundry/llrp-reader-client/internal/logutil"
	"edgexfoundry/llrp-reader-client/internal/reader"
)

func runInventoryCmd(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if runDuration > 0 {
		ctx, cancel = context.WithTimeout(ctx, runDuration)
		defer cancel()
	}

	go func() {
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(signals)

		select {
		case sig := <-signals:
			lw.Info(fmt.Sprintf("Received '%s' signal from OS.", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	var out io.Writer
	if printTags {
		out = cmd.OutOrStdout()
	}
	return runInventory(ctx, s, lw, out, cmd.OutOrStdout())
}

// runInventory connects every configured reader and collects tag reports
// until ctx is done, then stops the readers and disconnects them.
// If tagsOut isn't nil, reports are written to it as JSON lines.
// Statistics go to statsOut if the Settings ask for them.
func runInventory(ctx context.Context, s config.Settings, lw logutil.LogWrap, tagsOut, statsOut io.Writer) error {
	cfg, err := s.ReaderConfig()
	if err != nil {
		return err
	}

	var exporters []*inventory.Exporter
	if s.Export.Filename != "" {
		e, err := inventory.NewFileExporter(s.ExportConfig())
		if err != nil {
			return err
		}
		exporters = append(exporters, e)
	}
	if tagsOut != nil {
		exporters = append(exporters, inventory.NewExporter(tagsOut))
	}
	defer func() {
		for _, e := range exporters {
			lw.WarnIf(e.Close(), "Failed to close tag export.")
		}
	}()

	collector := inventory.NewCollector(s.Stats.WindowSize)
	group := reader.NewReaderGroup(cfg.Behavior(), lw)
	for _, name := range sortedReaders(s.Readers) {
		c, err := group.AddReader(name, s.Readers[name], cfg)
		if err != nil {
			return err
		}

		name := name
		c.AddTagReportCallback(func(reports []reader.TagReport) {
			collector.Observe(name, reports)
			for _, e := range exporters {
				lw.WarnIf(e.Write(name, reports), "Failed to export tag reports.",
					logutil.KeyValue{Key: "reader", Val: name})
			}
		})
		c.AddEventCallback(func(e reader.Event) {
			lw.Info("Reader event.", "reader", name, "event", e.Name)
		})
	}

	if err := group.ConnectAll(ctx); err != nil {
		lw.Error("Failed to connect to some readers.", "error", err.Error())
		if !anyAlive(group) {
			return errors.WithMessage(err, "no readers connected")
		}
	}
	lw.Info("Collecting tag reports.", "readers", len(group.Names()))

	<-ctx.Done()
	lw.Info("Stopping readers.")

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ResponseTimeout+time.Second)
	defer cancel()
	lw.WarnIf(group.StopAll(stopCtx), "Failed to stop some readers.")
	lw.WarnIf(group.DisconnectAll(), "Failed to disconnect some readers.")

	if s.Stats.Print && statsOut != nil {
		if err := collector.WriteTable(statsOut); err != nil {
			return errors.Wrap(err, "failed to write statistics")
		}
	}
	return nil
}

func anyAlive(group *reader.ReaderGroup) bool {
	for _, name := range group.Names() {
		if c, ok := group.Reader(name); ok && c.IsAlive() {
			return true
		}
	}
	return false
}
