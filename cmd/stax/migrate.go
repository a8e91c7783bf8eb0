// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelfx/stax/internal/persistence/sqlite"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Bring the catalog schema up to date",
	Long: `Applies any pending schema migrations. Connecting always migrates,
so this command exists to do it deliberately (for example before rolling
out a new client version) and to report the resulting schema version.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	return store.WithConn(cmd.Context(), func(conn *sqlite.Conn) error {
		version, err := sqlite.SchemaVersion(cmd.Context(), conn.DB())
		if err != nil {
			return err
		}
		fmt.Printf("Schema up to date: %s (v%d)\n", conn.Path(), version)
		return nil
	})
}
