package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the bearer token for the server",
	Long: `Store a bearer token issued by the server in ~/.newsroom/profile.yaml.

Example:
  newsroom login --token T --host https://news.example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")
		host, _ := cmd.Flags().GetString("host")
		if token == "" {
			return errors.New("--token is required")
		}
		if host == "" {
			host = cfg.API.Host
		}

		if err := profile.SignIn(host, token); err != nil {
			return err
		}
		logger.Debug("signed in", "host", host)
		fmt.Fprintf(cmd.OutOrStdout(), "Signed in to %s\n", host)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := profile.SignOut(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the sign-in status",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "Host:   %s\nStatus: %s\n", apiHost(), profile.Status())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, statusCmd)

	loginCmd.Flags().String("token", "", "bearer token")
	loginCmd.Flags().String("host", "", "server URL (default is api.host from the config)")
}
