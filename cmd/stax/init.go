// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	appcfg "github.com/kestrelfx/stax/internal/config"
	"github.com/kestrelfx/stax/internal/persistence/sqlite"
)

var initWriteConfig string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the catalog database and supporting directories",
	Long: `Creates the database file at the configured path, applies the full
schema, seeds the bootstrap admin account and prepares the preview
directory next to the database. Safe to run against an existing catalog:
an up-to-date database is left untouched.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initWriteConfig, "write-config", "", "also write a default config file to this path (kept if present)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if initWriteConfig != "" {
		if err := appcfg.WriteDefault(initWriteConfig); err != nil {
			return err
		}
	}

	store, _, err := openStore()
	if err != nil {
		return err
	}

	// Connecting creates the file and brings the schema current.
	return store.WithConn(cmd.Context(), func(conn *sqlite.Conn) error {
		version, err := sqlite.SchemaVersion(cmd.Context(), conn.DB())
		if err != nil {
			return err
		}
		sqlite.EnsureAuxDir(filepath.Join(filepath.Dir(conn.Path()), "previews"))
		fmt.Printf("Catalog ready: %s (schema v%d)\n", conn.Path(), version)
		return nil
	})
}
