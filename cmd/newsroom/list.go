package main

import (
	"fmt"

	"github.com/pevans/newsroom"
	"github.com/pevans/newsroom/feed"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Print news items",
	Long: `Print pages of news items without marking anything read.

Examples:
  newsroom list                      # First page of unread news
  newsroom list --view read --pages 3
  newsroom list --format json`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().String("view", "unread", "view to list: unread, read, saved")
	listCmd.Flags().Int("pages", 1, "number of pages to fetch")
	listCmd.Flags().String("format", "table", "output format: table, json")
}

func runList(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("view")
	pages, _ := cmd.Flags().GetInt("pages")
	format, _ := cmd.Flags().GetString("format")

	view, ok := feed.ParseView(name)
	if !ok {
		return fmt.Errorf("unknown view %q", name)
	}
	if pages < 1 {
		return fmt.Errorf("invalid --pages %d", pages)
	}
	if format != "table" && format != "json" {
		return fmt.Errorf("unknown format %q", format)
	}

	pager := feed.NewPager(feed.NewSource(view, newClient(), cfg.Reader.PageSize))
	for i := 0; i < pages && !pager.NoMore(); i++ {
		if err := pager.FetchNextPage(cmd.Context()); err != nil {
			return fmt.Errorf("failed to fetch news items: %w", err)
		}
		logger.Debug("fetched page", "page", i+1, "items", pager.Len())
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		return printListJSON(out, view, pager)
	}
	printListTable(out, view, pager.Items(), pager.Unread(), pager.NoMore())
	return nil
}

func savedMarker(item newsroom.NewsItem) string {
	if item.IsSaved {
		return "★"
	}
	return " "
}
