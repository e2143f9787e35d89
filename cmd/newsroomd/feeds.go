package main

import (
	"errors"
	"fmt"

	"github.com/pevans/newsroom/store"
	"github.com/spf13/cobra"
)

var feedsCmd = &cobra.Command{
	Use:   "feeds",
	Short: "Manage feed subscriptions",
}

var feedsAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Subscribe to a feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		feed, err := st.AddFeed(cmd.Context(), args[0], title)
		if errors.Is(err, store.ErrDuplicate) {
			return fmt.Errorf("already subscribed to %s", args[0])
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Added feed %s\n", feed.FeedID)
		return nil
	},
}

var feedsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List feed subscriptions",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		feeds, err := st.ListFeeds(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(feeds) == 0 {
			fmt.Fprintln(out, "No feeds configured.")
			return nil
		}

		fmt.Fprintf(out, "%-36s %-30s %-8s %s\n", "ID", "TITLE", "ERRORS", "URL")
		for _, feed := range feeds {
			title := feed.Title
			if len(title) > 30 {
				title = title[:27] + "..."
			}
			fmt.Fprintf(out, "%-36s %-30s %-8d %s\n", feed.FeedID, title, feed.FetchErrorCount, feed.URL)
		}
		return nil
	},
}

var feedsRemoveCmd = &cobra.Command{
	Use:   "remove <feed-id>",
	Short: "Unsubscribe from a feed and drop its items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.RemoveFeed(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Removed.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(feedsCmd)
	feedsCmd.AddCommand(feedsAddCmd, feedsListCmd, feedsRemoveCmd)

	feedsAddCmd.Flags().String("title", "", "title to show until the first refresh")
}
