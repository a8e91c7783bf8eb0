// SPDX-License-Identifier: MIT

// Command stax manages a shared asset catalog: one SQLite file on a network
// share, guarded by an advisory sidecar lock so many workstations can use it
// without corrupting it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrelfx/stax/internal/catalog"
	appcfg "github.com/kestrelfx/stax/internal/config"
	xlog "github.com/kestrelfx/stax/internal/log"
	"github.com/kestrelfx/stax/internal/version"
)

var (
	flagConfig   string
	flagDB       string
	flagLogLevel string
)

var rootCmd = &cobra.Command{
	Use:           "stax",
	Short:         "Shared asset catalog on a locked SQLite file",
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		xlog.Configure(xlog.Config{Level: flagLogLevel})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "path to config file (JSON)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (trace|debug|info|warn|error)")
}

// loadConfig builds the effective configuration: file (when given),
// environment, then command-line flags, strongest last.
func loadConfig() (appcfg.Config, error) {
	cfg, err := appcfg.Load(flagConfig)
	if err != nil {
		return appcfg.Config{}, err
	}
	if flagDB != "" {
		cfg.DatabasePath = flagDB
	}
	return cfg, nil
}

// openStore is the common entry for data commands.
func openStore() (*catalog.Store, appcfg.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, appcfg.Config{}, err
	}
	return catalog.Open(cfg), cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
