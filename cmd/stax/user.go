// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kestrelfx/stax/internal/catalog"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage catalog accounts",
}

var (
	userAddRole  string
	userAddEmail string
)

var userAddCmd = &cobra.Command{
	Use:   "add <username> <password>",
	Short: "Create an account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		id, err := store.CreateUser(cmd.Context(), args[0], args[1],
			catalog.Role(userAddRole), userAddEmail)
		if err != nil {
			return err
		}
		fmt.Printf("Created %s user %d: %s\n", userAddRole, id, args[0])
		return nil
	},
}

var userListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		users, err := store.Users(cmd.Context())
		if err != nil {
			return err
		}
		for _, u := range users {
			state := "active"
			if !u.IsActive {
				state = "disabled"
			}
			fmt.Printf("%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Role, state)
		}
		return nil
	},
}

func init() {
	userAddCmd.Flags().StringVar(&userAddRole, "role", "user", "account role (admin|user)")
	userAddCmd.Flags().StringVar(&userAddEmail, "email", "", "contact email")

	userCmd.AddCommand(userAddCmd, userListCmd)
	rootCmd.AddCommand(userCmd)
}
