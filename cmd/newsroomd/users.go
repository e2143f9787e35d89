package main

import (
	"errors"
	"fmt"

	"github.com/pevans/newsroom/store"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage readers",
}

var usersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")
		pending, _ := cmd.Flags().GetBool("pending")
		if token == "" {
			return errors.New("--token is required")
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		user, err := st.AddUser(cmd.Context(), token, !pending)
		if errors.Is(err, store.ErrDuplicate) {
			return errors.New("token already registered")
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Added user %s\n", user.UserID)
		return nil
	},
}

var usersApproveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Approve a pending reader",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")
		if token == "" {
			return errors.New("--token is required")
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.ApproveUser(cmd.Context(), token); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Approved.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersAddCmd, usersApproveCmd)

	usersAddCmd.Flags().String("token", "", "bearer token the reader will present")
	usersAddCmd.Flags().Bool("pending", false, "register without approval")
	usersApproveCmd.Flags().String("token", "", "bearer token of the reader")
}
