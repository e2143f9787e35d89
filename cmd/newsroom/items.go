package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var markReadCmd = &cobra.Command{
	Use:   "mark-read <news-item-id>...",
	Short: "Mark news items as read",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().MarkAsRead(cmd.Context(), args); err != nil {
			return fmt.Errorf("failed to mark items as read: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Marked %d item(s) as read.\n", len(args))
		return nil
	},
}

var saveCmd = &cobra.Command{
	Use:   "save <news-item-id>",
	Short: "Save a news item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		savedID, err := newClient().SaveNewsItem(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to save news item: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved as %s\n", savedID)
		return nil
	},
}

var unsaveCmd = &cobra.Command{
	Use:   "unsave <saved-news-item-id>",
	Short: "Remove a saved news item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().DeleteSavedNewsItem(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to unsave news item: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Removed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(markReadCmd, saveCmd, unsaveCmd)
}
