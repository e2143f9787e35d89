package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Feed is a subscribed RSS or Atom feed. Every user reads every feed.
type Feed struct {
	FeedID          string     `json:"feed_id"`
	URL             string     `json:"url"`
	Title           string     `json:"title"`
	Favicon         string     `json:"favicon"`
	CreatedAt       time.Time  `json:"created_at"`
	LastFetchedAt   *time.Time `json:"last_fetched_at,omitempty"`
	FetchErrorCount int        `json:"fetch_error_count"`
	LastError       *string    `json:"last_error,omitempty"`
}

// feedRow is the stored form of a Feed.
type feedRow struct {
	FeedID          string         `db:"feed_id"`
	URL             string         `db:"url"`
	Title           string         `db:"title"`
	Favicon         string         `db:"favicon"`
	CreatedAt       string         `db:"created_at"`
	LastFetchedAt   sql.NullString `db:"last_fetched_at"`
	FetchErrorCount int            `db:"fetch_error_count"`
	LastError       sql.NullString `db:"last_error"`
}

func (r feedRow) feed() Feed {
	feed := Feed{
		FeedID:          r.FeedID,
		URL:             r.URL,
		Title:           r.Title,
		Favicon:         r.Favicon,
		CreatedAt:       parseTime(r.CreatedAt),
		FetchErrorCount: r.FetchErrorCount,
	}
	if r.LastFetchedAt.Valid {
		t := parseTime(r.LastFetchedAt.String)
		feed.LastFetchedAt = &t
	}
	if r.LastError.Valid {
		feed.LastError = &r.LastError.String
	}
	return feed
}

const feedColumns = `feed_id, url, title, favicon, created_at, last_fetched_at, fetch_error_count, last_error`

// AddFeed subscribes to url. The title is filled in by the first refresh
// when empty.
func (s *Store) AddFeed(ctx context.Context, url, title string) (*Feed, error) {
	now := s.now()
	feed := &Feed{
		FeedID:    uuid.New().String(),
		URL:       url,
		Title:     title,
		CreatedAt: now.Truncate(0).UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feeds (feed_id, url, title, created_at) VALUES (?, ?, ?, ?)`,
		feed.FeedID, feed.URL, feed.Title, formatTime(&now),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("feed %s: %w", url, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to insert feed: %w", err)
	}

	return feed, nil
}

// GetFeed retrieves a feed by ID.
func (s *Store) GetFeed(ctx context.Context, feedID string) (*Feed, error) {
	var row feedRow
	err := s.db.GetContext(ctx, &row, `SELECT `+feedColumns+` FROM feeds WHERE feed_id = ?`, feedID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("feed %s: %w", feedID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query feed: %w", err)
	}

	feed := row.feed()
	return &feed, nil
}

// ListFeeds returns all feeds, oldest first.
func (s *Store) ListFeeds(ctx context.Context) ([]Feed, error) {
	var rows []feedRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+feedColumns+` FROM feeds ORDER BY created_at, feed_id`); err != nil {
		return nil, fmt.Errorf("failed to query feeds: %w", err)
	}

	feeds := make([]Feed, 0, len(rows))
	for _, row := range rows {
		feeds = append(feeds, row.feed())
	}
	return feeds, nil
}

// RemoveFeed deletes a feed together with its items.
func (s *Store) RemoveFeed(ctx context.Context, feedID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM feeds WHERE feed_id = ?`, feedID)
	if err != nil {
		return fmt.Errorf("failed to delete feed: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("feed %s: %w", feedID, ErrNotFound)
	}

	for _, query := range []string{
		`DELETE FROM feed_items WHERE feed_id = ?`,
		`DELETE FROM news_items WHERE feed_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, query, feedID); err != nil {
			return fmt.Errorf("failed to delete feed items: %w", err)
		}
	}

	return tx.Commit()
}

// recordFetch stores the outcome of a refresh. A nil fetchErr resets the
// error count.
func (s *Store) recordFetch(ctx context.Context, feedID, title, favicon string, fetchErr error) error {
	now := s.now()

	var err error
	if fetchErr != nil {
		_, err = s.db.ExecContext(ctx,
			`UPDATE feeds SET last_fetched_at = ?, fetch_error_count = fetch_error_count + 1, last_error = ?
			 WHERE feed_id = ?`,
			formatTime(&now), fetchErr.Error(), feedID,
		)
	} else {
		_, err = s.db.ExecContext(ctx,
			`UPDATE feeds SET last_fetched_at = ?, fetch_error_count = 0, last_error = NULL,
			 title = CASE WHEN ? <> '' THEN ? ELSE title END,
			 favicon = CASE WHEN ? <> '' THEN ? ELSE favicon END
			 WHERE feed_id = ?`,
			formatTime(&now), title, title, favicon, favicon, feedID,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to update feed: %w", err)
	}
	return nil
}
