//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"edgexfoundry/llrp-reader-client/internal/llrp"
	"edgexfoundry/llrp-reader-client/internal/reader"
)

var infoCmd = &cobra.Command{
	Use:   "info [name=]host[:port]...",
	Short: "Connect to readers and print their capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(args)
		if err != nil {
			return err
		}
		cfg, err := s.ReaderConfig()
		if err != nil {
			return err
		}
		cfg.StartInventory = false

		group := reader.NewReaderGroup(cfg.Behavior(), lw)
		for _, name := range sortedReaders(s.Readers) {
			if _, err := group.AddReader(name, s.Readers[name], cfg); err != nil {
				return err
			}
		}
		defer func() {
			lw.WarnIf(group.DisconnectAll(), "Failed to disconnect some readers.")
		}()

		connErr := group.ConnectAll(cmd.Context())

		infos := map[string]llrp.DeviceInfo{}
		for _, name := range group.Names() {
			c, _ := group.Reader(name)
			if dev := c.Device(); dev != nil {
				infos[name] = dev.Info()
			}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(infos); err != nil {
			return err
		}
		return connErr
	},
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List the reader event names usable in the Events setting",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range llrp.EventNames() {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
				return err
			}
		}
		return nil
	},
}
