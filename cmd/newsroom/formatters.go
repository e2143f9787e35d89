package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/pevans/newsroom"
	"github.com/pevans/newsroom/feed"
)

// printListTable prints items in human-readable format.
func printListTable(w io.Writer, view feed.View, items []newsroom.NewsItem, unread int, done bool) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items to display.")
		return
	}

	if view == feed.ViewUnread {
		fmt.Fprintf(w, "%d unread\n\n", unread)
	}

	for _, item := range items {
		title := item.Title
		if len(title) > 70 {
			title = title[:67] + "..."
		}

		summary := item.PlainDescription()
		if len(summary) > 150 {
			summary = summary[:147] + "..."
		}

		published := item.Published
		if t, err := time.Parse(time.RFC3339, item.Published); err == nil {
			published = t.Local().Format("2006-01-02 15:04")
		}

		fmt.Fprintf(w, "%s %s\n", savedMarker(item), title)
		fmt.Fprintf(w, "   %s | Published: %s\n", item.FeedTitle, published)
		if summary != "" {
			fmt.Fprintf(w, "   %s\n", summary)
		}
		for _, alt := range item.Alternates() {
			fmt.Fprintf(w, "   Also: %s %s\n", alt.Title, alt.Link)
		}
		fmt.Fprintf(w, "   URL: %s\n", item.Link)
		fmt.Fprintf(w, "   ID: %s\n", item.ID)
		if item.SavedNewsItemID != nil {
			fmt.Fprintf(w, "   Saved ID: %s\n", *item.SavedNewsItemID)
		}
		fmt.Fprintln(w)
	}

	if !done {
		fmt.Fprintln(w, "More items available; use --pages to fetch more.")
	}
}

// printListJSON prints items in JSON format.
func printListJSON(w io.Writer, view feed.View, pager *feed.Pager) error {
	output := map[string]any{
		"view":     view,
		"items":    pager.Items(),
		"has_more": !pager.NoMore(),
	}
	if view == feed.ViewUnread {
		output["number_of_unread_items"] = pager.Unread()
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(output); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}
