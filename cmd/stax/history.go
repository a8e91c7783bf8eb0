// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect ingestion history",
}

var historyShowLimit int

var historyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print recent ingestion records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		entries, err := store.History(cmd.Context(), historyShowLimit)
		if err != nil {
			return err
		}
		for _, h := range entries {
			fmt.Printf("%s\t%s\t%s\t%s\t%s\n",
				h.IngestedAt.Format("2006-01-02 15:04:05"), h.Action, h.Status, h.TargetList, h.SourcePath)
		}
		return nil
	},
}

var (
	historyExportOut   string
	historyExportLimit int
)

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export ingestion history to CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		n, err := store.ExportHistoryCSV(cmd.Context(), historyExportOut, historyExportLimit)
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d record(s) to %s\n", n, historyExportOut)
		return nil
	},
}

func init() {
	historyShowCmd.Flags().IntVar(&historyShowLimit, "limit", 50, "number of records")
	historyExportCmd.Flags().StringVar(&historyExportOut, "out", "ingestion_history.csv", "output CSV path")
	historyExportCmd.Flags().IntVar(&historyExportLimit, "limit", 0, "number of records (0 = all)")

	historyCmd.AddCommand(historyShowCmd, historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}
