package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

// crossPostWindow is how far apart two postings of the same story may be
// published and still be collapsed into one item.
const crossPostWindow = 48 * time.Hour

// updatedPrefix marks a title that gained an alternate link.
const updatedPrefix = "[Updated] "

// feedItemRow is an item read from a feed, with its feed's title and
// favicon.
type feedItemRow struct {
	FeedItemID  string `db:"feed_item_id"`
	FeedID      string `db:"feed_id"`
	Link        string `db:"link"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Published   int64  `db:"published"`
	FeedTitle   string `db:"feed_title"`
	Favicon     string `db:"favicon"`
}

// Ingest stores the items of a parsed feed that are not known yet and
// delivers them to every user. An item whose story another feed already
// delivered within the cross-post window is added to that item as an
// alternate link instead. It returns the number of new feed items.
func (s *Store) Ingest(ctx context.Context, feedID string, parsed *gofeed.Feed) (int, error) {
	feed, err := s.GetFeed(ctx, feedID)
	if err != nil {
		return 0, err
	}

	feedTitle := parsed.Title
	if feedTitle == "" {
		feedTitle = feed.Title
	}
	favicon := feedFavicon(parsed)
	if favicon == "" {
		favicon = feed.Favicon
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	users, err := userIDs(ctx, tx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	added := 0
	for _, entry := range parsed.Items {
		if entry.Link == "" {
			continue
		}

		var existing string
		err := tx.GetContext(ctx, &existing,
			`SELECT feed_item_id FROM feed_items WHERE feed_id = ? AND link = ?`, feedID, entry.Link)
		if err == nil {
			if _, err := tx.ExecContext(ctx,
				`UPDATE feed_items SET last_seen_at = ? WHERE feed_item_id = ?`, formatTime(&now), existing); err != nil {
				return 0, fmt.Errorf("failed to update feed item: %w", err)
			}
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("failed to query feed item: %w", err)
		}

		item := feedItemFromEntry(entry, feedID, now)
		item.FeedTitle = feedTitle
		item.Favicon = favicon

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO feed_items (feed_item_id, feed_id, link, title, description, published, last_seen_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.FeedItemID, item.FeedID, item.Link, item.Title, item.Description, item.Published, formatTime(&now),
		); err != nil {
			return 0, fmt.Errorf("failed to insert feed item: %w", err)
		}
		added++

		for _, userID := range users {
			collapsed, err := collapse(ctx, tx, userID, item)
			if err != nil {
				return 0, err
			}
			if collapsed {
				continue
			}
			if err := deliver(ctx, tx, userID, item); err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit feed items: %w", err)
	}
	if err := s.recordFetch(ctx, feedID, feedTitle, favicon, nil); err != nil {
		return added, err
	}
	return added, nil
}

// feedItemFromEntry converts a gofeed item. Missing titles and dates are
// filled in.
func feedItemFromEntry(entry *gofeed.Item, feedID string, now time.Time) feedItemRow {
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		title = "(No title)"
	}

	description := entry.Description
	if description == "" {
		description = entry.Content
	}

	var published time.Time
	switch {
	case entry.PublishedParsed != nil:
		published = *entry.PublishedParsed
	case entry.UpdatedParsed != nil:
		published = *entry.UpdatedParsed
	default:
		published = now
	}

	return feedItemRow{
		FeedItemID:  uuid.New().String(),
		FeedID:      feedID,
		Link:        entry.Link,
		Title:       title,
		Description: description,
		Published:   published.UnixNano(),
	}
}

// feedFavicon picks the feed image, or the favicon of the site the feed
// links to.
func feedFavicon(parsed *gofeed.Feed) string {
	if parsed.Image != nil && parsed.Image.URL != "" {
		return parsed.Image.URL
	}

	u, err := url.Parse(parsed.Link)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host + "/favicon.ico"
}

// deliver creates the user's news item for a feed item. Items the user
// already has are left alone.
func deliver(ctx context.Context, tx *sqlx.Tx, userID string, item feedItemRow) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO news_items (
			news_item_id, user_id, feed_id, feed_item_id, feed_title, title, description, link,
			favicon, published
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), userID, item.FeedID, item.FeedItemID, item.FeedTitle, item.Title,
		item.Description, item.Link, item.Favicon, item.Published,
	)
	if err != nil {
		return fmt.Errorf("failed to insert news item: %w", err)
	}
	return nil
}

// collapse adds item as an alternate of an unread news item from another
// feed that carries the same story. It reports whether such an item was
// found.
func collapse(ctx context.Context, tx *sqlx.Tx, userID string, item feedItemRow) (bool, error) {
	var row newsItemRow
	err := tx.GetContext(ctx, &row,
		`SELECT `+newsItemColumns+` FROM news_items
		 WHERE user_id = ? AND feed_id <> ? AND is_read = 0
		   AND (link = ? OR title = ? OR title = ?)
		   AND published BETWEEN ? AND ?
		 ORDER BY seq LIMIT 1`,
		userID, item.FeedID,
		item.Link, item.Title, updatedPrefix+item.Title,
		item.Published-int64(crossPostWindow), item.Published+int64(crossPostWindow),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query cross-posts: %w", err)
	}

	if row.Link == item.Link || slices.Contains(row.AlternateLinks, item.Link) {
		return true, nil
	}

	title := row.Title
	if !strings.HasPrefix(title, updatedPrefix) {
		title = updatedPrefix + title
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE news_items SET title = ?, alternate_links = ?, alternate_title_links = ?, alternate_favicons = ?
		 WHERE seq = ?`,
		title,
		append(row.AlternateLinks, item.Link),
		append(row.AlternateTitleLinks, item.FeedTitle),
		append(row.AlternateFavicons, item.Favicon),
		row.Seq,
	)
	if err != nil {
		return false, fmt.Errorf("failed to add alternate link: %w", err)
	}
	return true, nil
}

// Parser fetches and parses a feed. *gofeed.Parser implements it.
type Parser interface {
	ParseURLWithContext(feedURL string, ctx context.Context) (*gofeed.Feed, error)
}

// RefreshResult is the outcome of refreshing one feed.
type RefreshResult struct {
	FeedID   string
	URL      string
	NewItems int
	Err      error
}

// Refresher fetches feeds and ingests their items.
type Refresher struct {
	store       *Store
	parser      Parser
	icons       *IconFinder
	logger      *log.Logger
	concurrency int
}

// NewRefresher creates a refresher. A nil parser means gofeed's default
// parser; a nil logger discards.
func NewRefresher(store *Store, parser Parser, logger *log.Logger) *Refresher {
	if parser == nil {
		parser = gofeed.NewParser()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Refresher{store: store, parser: parser, logger: logger, concurrency: 4}
}

// SetConcurrency bounds how many feeds are fetched at once.
func (r *Refresher) SetConcurrency(n int) {
	r.concurrency = max(n, 1)
}

// SetIconFinder makes the refresher look up the site icon of feeds that
// carry no image and have no favicon yet.
func (r *Refresher) SetIconFinder(icons *IconFinder) {
	r.icons = icons
}

// RefreshFeed fetches one feed and ingests it. Fetch failures are recorded on
// the feed.
func (r *Refresher) RefreshFeed(ctx context.Context, feed Feed) (int, error) {
	parsed, err := r.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		if recordErr := r.store.recordFetch(ctx, feed.FeedID, "", "", err); recordErr != nil {
			r.logger.Error("failed to record fetch error", "feed", feed.URL, "err", recordErr)
		}
		return 0, fmt.Errorf("failed to parse feed %s: %w", feed.URL, err)
	}

	if r.icons != nil && feed.Favicon == "" && (parsed.Image == nil || parsed.Image.URL == "") && parsed.Link != "" {
		icon, err := r.icons.FindIcon(ctx, parsed.Link)
		if err != nil {
			r.logger.Debug("failed to find site icon", "feed", feed.URL, "err", err)
		} else if icon != "" {
			parsed.Image = &gofeed.Image{URL: icon}
		}
	}

	added, err := r.store.Ingest(ctx, feed.FeedID, parsed)
	if err != nil {
		return 0, fmt.Errorf("failed to ingest feed %s: %w", feed.URL, err)
	}

	r.logger.Info("refreshed feed", "feed", feed.URL, "new", added)
	return added, nil
}

// RefreshAll refreshes every feed. Feeds are fetched concurrently; a failing
// feed does not stop the others and is reported in its result.
func (r *Refresher) RefreshAll(ctx context.Context) ([]RefreshResult, error) {
	feeds, err := r.store.ListFeeds(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]RefreshResult, len(feeds))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, feed := range feeds {
		g.Go(func() error {
			added, err := r.RefreshFeed(gctx, feed)
			results[i] = RefreshResult{FeedID: feed.FeedID, URL: feed.URL, NewItems: added, Err: err}
			if err != nil {
				r.logger.Warn("failed to refresh feed", "feed", feed.URL, "err", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}
