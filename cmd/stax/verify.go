// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelfx/stax/internal/persistence/sqlite"
	"github.com/kestrelfx/stax/internal/platform/paths"
)

var verifyFull bool

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check catalog database integrity",
	Long: `Runs SQLite's integrity check against the catalog file in read-only
mode. Exits non-zero when the database reports corruption.`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyFull, "full", false, "run the thorough integrity_check instead of quick_check")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path, err := paths.ResolveDatabasePath(cfg.DataRoot, cfg.DatabasePath)
	if err != nil {
		return err
	}

	problems, err := sqlite.VerifyIntegrity(cmd.Context(), path, verifyFull)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		for _, p := range problems {
			fmt.Println(p)
		}
		return fmt.Errorf("integrity check failed: %d problem(s) in %s", len(problems), path)
	}
	fmt.Printf("OK: %s\n", path)
	return nil
}
