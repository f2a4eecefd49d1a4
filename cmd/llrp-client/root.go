//
// Copyright (C) 2021 Intel Corporation
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"edgexfoundry/llrp-reader-client/internal/config"
	"edgexfoundry/llrp-reader-client/internal/logutil"
)

const defaultConfigFile = "res/configuration.toml"

var (
	cfgFile     string
	logLevel    string
	runDuration time.Duration
	printTags   bool

	lw logutil.LogWrap

	// configErr is why the config file couldn't be read, if it couldn't.
	// It's reported once the logger exists.
	configErr error
)

var rootCmd = &cobra.Command{
	Use:   "llrp-client [name=]host[:port]...",
	Short: "Inventory RFID tags with LLRP readers",
	Long: `llrp-client connects to one or more LLRP RFID readers,
configures them, and reports the tags they see until it's interrupted.

Readers come from the [Readers] table of the configuration file
and from the command line. A reader without a name is named by its address.

Examples:
  # Inventory a single reader for 30 seconds
  llrp-client --duration 30s 10.0.0.5

  # Export tag reports from two readers to a rotating file
  llrp-client --export tags.jsonl dock-door=10.0.0.5 back-room=10.0.0.6:5084

  # Show what a reader can do
  llrp-client info 10.0.0.5`,
	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if lw, err = logutil.New(viper.GetString("LogLevel")); err != nil {
			return err
		}
		lw.ExitIfErr(configErr, "Failed to read config file.",
			logutil.KeyValue{Key: "file", Val: viper.ConfigFileUsed()})
		return nil
	},
	RunE: runInventoryCmd,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default is "+defaultConfigFile+" if present)")
	pf.StringVarP(&logLevel, "log-level", "l", "INFO", "log level (TRACE, DEBUG, INFO, WARN, ERROR)")
	pf.Bool("reset", false, "restore readers' factory defaults before configuring them")
	pf.Duration("connect-timeout", 10*time.Second, "how long to wait for a reader to accept a connection")
	pf.Duration("response-timeout", 10*time.Second, "how long to wait for each reader response")

	f := rootCmd.Flags()
	f.DurationVarP(&runDuration, "duration", "d", 0, "stop after this long (0 runs until interrupted)")
	f.BoolVar(&printTags, "print", false, "print tag reports to stdout as JSON lines")
	f.String("export", "", "append tag reports as JSON lines to this rotating file")
	f.String("scan-type", "Normal", "scan type (Fast, Normal, Deep)")
	f.Float64("power", 0, "transmit power in dBm (0 uses each reader's maximum)")
	f.IntSlice("antennas", nil, "antenna IDs to use (default all)")
	f.Duration("report-timeout", 0, "restart inventory on this period so reports arrive at least that often")
	f.Duration("inventory-duration", 0, "stop each inventory round after this long")
	f.Bool("stats", true, "print per-antenna statistics on exit")

	bind := func(key string, flag string) {
		fl := pf.Lookup(flag)
		if fl == nil {
			fl = f.Lookup(flag)
		}
		if err := viper.BindPFlag(key, fl); err != nil {
			panic(err)
		}
	}
	bind("LogLevel", "log-level")
	bind("ApplicationSettings.ResetOnConnect", "reset")
	bind("ApplicationSettings.ConnectTimeout", "connect-timeout")
	bind("ApplicationSettings.ResponseTimeout", "response-timeout")
	bind("Export.Filename", "export")
	bind("ApplicationSettings.ScanType", "scan-type")
	bind("ApplicationSettings.TxPowerDBm", "power")
	bind("ApplicationSettings.Antennas", "antennas")
	bind("ApplicationSettings.ReportTimeout", "report-timeout")
	bind("ApplicationSettings.InventoryDuration", "inventory-duration")
	bind("Stats.Print", "stats")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(eventsCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if _, err := os.Stat(defaultConfigFile); err == nil {
		viper.SetConfigFile(defaultConfigFile)
	}

	viper.SetEnvPrefix("LLRP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if viper.ConfigFileUsed() == "" {
		return
	}
	configErr = viper.ReadInConfig()
}

// loadSettings returns the Settings from viper,
// with readers named on the command line added to the configured ones.
func loadSettings(args []string) (config.Settings, error) {
	s, err := config.Load(viper.GetViper())
	if err != nil {
		return config.Settings{}, err
	}

	named, err := parseReaderArgs(args)
	if err != nil {
		return config.Settings{}, err
	}
	if s.Readers == nil {
		s.Readers = map[string]string{}
	}
	for name, addr := range named {
		s.Readers[name] = addr
	}

	if len(s.Readers) == 0 {
		return config.Settings{}, errors.New("no readers given; name them on the command line or in the [Readers] table")
	}
	return s, nil
}

// parseReaderArgs parses arguments of the form [name=]host[:port].
func parseReaderArgs(args []string) (map[string]string, error) {
	readers := make(map[string]string, len(args))
	for _, arg := range args {
		name, addr := arg, arg
		if i := strings.IndexByte(arg, '='); i >= 0 {
			name, addr = arg[:i], arg[i+1:]
		}
		if name == "" || addr == "" {
			return nil, errors.Errorf("invalid reader %q; use [name=]host[:port]", arg)
		}
		if prev, ok := readers[name]; ok && prev != addr {
			return nil, errors.Errorf("reader %q given twice", name)
		}
		readers[name] = addr
	}
	return readers, nil
}

func sortedReaders(readers map[string]string) []string {
	names := make([]string, 0, len(readers))
	for name := range readers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
