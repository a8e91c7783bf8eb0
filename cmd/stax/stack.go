// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var stackCmd = &cobra.Command{
	Use:   "stack",
	Short: "Manage stacks (top-level categories)",
}

var stackAddCmd = &cobra.Command{
	Use:   "add <name> <repository-path>",
	Short: "Add a stack rooted at a repository path",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		id, err := store.CreateStack(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Created stack %d: %s -> %s\n", id, args[0], args[1])
		return nil
	},
}

var stackListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stacks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		stacks, err := store.Stacks(cmd.Context())
		if err != nil {
			return err
		}
		for _, st := range stacks {
			fmt.Printf("%d\t%s\t%s\n", st.ID, st.Name, st.Path)
		}
		return nil
	},
}

var stackRemoveCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a stack and everything under it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid stack id %q", args[0])
		}
		store, _, err := openStore()
		if err != nil {
			return err
		}
		ok, err := store.DeleteStack(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("stack %d not found", id)
		}
		fmt.Printf("Removed stack %d\n", id)
		return nil
	},
}

func init() {
	stackCmd.AddCommand(stackAddCmd, stackListCmd, stackRemoveCmd)
	rootCmd.AddCommand(stackCmd)
}
