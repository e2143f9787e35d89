package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pevans/newsroom"
)

// Cursor is a keyset position: the sort key and sequence number of the last
// item served.
type Cursor struct {
	Key int64
	Seq int64
}

// String encodes the cursor for a page token.
func (c Cursor) String() string {
	return fmt.Sprintf("%d:%d", c.Key, c.Seq)
}

// ParseCursor decodes a cursor produced by Cursor.String.
func ParseCursor(s string) (Cursor, error) {
	key, seq, ok := strings.Cut(s, ":")
	if !ok {
		return Cursor{}, fmt.Errorf("invalid cursor %q", s)
	}

	var c Cursor
	var err error
	if c.Key, err = strconv.ParseInt(key, 10, 64); err != nil {
		return Cursor{}, fmt.Errorf("invalid cursor %q: %w", s, err)
	}
	if c.Seq, err = strconv.ParseInt(seq, 10, 64); err != nil {
		return Cursor{}, fmt.Errorf("invalid cursor %q: %w", s, err)
	}
	return c, nil
}

// Page is one page of a user's news items.
type Page struct {
	Items []newsroom.NewsItem

	// Next is nil on the final page.
	Next *Cursor
}

// newsItemRow is the stored form of a newsroom.NewsItem.
type newsItemRow struct {
	Seq                 int64          `db:"seq"`
	NewsItemID          string         `db:"news_item_id"`
	FeedID              string         `db:"feed_id"`
	FeedItemID          string         `db:"feed_item_id"`
	FeedTitle           string         `db:"feed_title"`
	Title               string         `db:"title"`
	Description         string         `db:"description"`
	Link                string         `db:"link"`
	Favicon             string         `db:"favicon"`
	Published           int64          `db:"published"`
	AlternateLinks      stringList     `db:"alternate_links"`
	AlternateTitleLinks stringList     `db:"alternate_title_links"`
	AlternateFavicons   stringList     `db:"alternate_favicons"`
	IsRead              bool           `db:"is_read"`
	ReadAt              sql.NullInt64  `db:"read_at"`
	SavedNewsItemID     sql.NullString `db:"saved_news_item_id"`
}

const newsItemColumns = `seq, news_item_id, feed_id, feed_item_id, feed_title, title, description, link,
	favicon, published, alternate_links, alternate_title_links, alternate_favicons, is_read, read_at,
	saved_news_item_id`

func (r newsItemRow) newsItem() newsroom.NewsItem {
	item := newsroom.NewsItem{
		ID:                  r.NewsItemID,
		FeedID:              r.FeedID,
		FeedItemID:          r.FeedItemID,
		Published:           time.Unix(0, r.Published).UTC().Format(time.RFC3339),
		Title:               r.Title,
		Description:         r.Description,
		Link:                r.Link,
		FeedTitle:           r.FeedTitle,
		Favicon:             r.Favicon,
		AlternateLinks:      []string(r.AlternateLinks),
		AlternateTitleLinks: []string(r.AlternateTitleLinks),
		AlternateFavicons:   []string(r.AlternateFavicons),
		IsRead:              r.IsRead,
	}
	if r.SavedNewsItemID.Valid {
		savedID := r.SavedNewsItemID.String
		item.IsSaved = true
		item.SavedNewsItemID = &savedID
	}
	return item
}

// UnreadItems returns a page of unread items, newest first, starting after
// the given cursor. Items marked read between pages simply drop out.
func (s *Store) UnreadItems(ctx context.Context, userID string, after *Cursor, limit int) (*Page, error) {
	query := `SELECT ` + newsItemColumns + ` FROM news_items WHERE user_id = ? AND is_read = 0`
	args := []any{userID}
	if after != nil {
		query += ` AND (published < ? OR (published = ? AND seq < ?))`
		args = append(args, after.Key, after.Key, after.Seq)
	}
	query += ` ORDER BY published DESC, seq DESC LIMIT ?`
	args = append(args, limit+1)

	return s.page(ctx, query, args, limit, func(r newsItemRow) int64 { return r.Published })
}

// ReadItems returns a page of read items, most recently read first.
func (s *Store) ReadItems(ctx context.Context, userID string, after *Cursor, limit int) (*Page, error) {
	query := `SELECT ` + newsItemColumns + ` FROM news_items WHERE user_id = ? AND is_read = 1`
	args := []any{userID}
	if after != nil {
		query += ` AND (read_at < ? OR (read_at = ? AND seq < ?))`
		args = append(args, after.Key, after.Key, after.Seq)
	}
	query += ` ORDER BY read_at DESC, seq DESC LIMIT ?`
	args = append(args, limit+1)

	return s.page(ctx, query, args, limit, func(r newsItemRow) int64 { return r.ReadAt.Int64 })
}

// page runs a keyset query that asked for one row more than limit.
func (s *Store) page(ctx context.Context, query string, args []any, limit int, key func(newsItemRow) int64) (*Page, error) {
	var rows []newsItemRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query news items: %w", err)
	}

	page := &Page{Items: make([]newsroom.NewsItem, 0, min(len(rows), limit))}
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		page.Next = &Cursor{Key: key(last), Seq: last.Seq}
	}
	for _, row := range rows {
		page.Items = append(page.Items, row.newsItem())
	}
	return page, nil
}

// UnreadCount returns how many unread items the user has.
func (s *Store) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM news_items WHERE user_id = ? AND is_read = 0`, userID); err != nil {
		return 0, fmt.Errorf("failed to count unread items: %w", err)
	}
	return n, nil
}

// MarkAsRead marks the user's items read. Unknown and already read IDs are
// ignored. It returns how many items changed.
func (s *Store) MarkAsRead(ctx context.Context, userID string, newsItemIDs []string) (int, error) {
	if len(newsItemIDs) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(
		`UPDATE news_items SET is_read = 1, read_at = ?
		 WHERE user_id = ? AND is_read = 0 AND news_item_id IN (?)`,
		s.now().UnixNano(), userID, newsItemIDs,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark items as read: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

// NewsItem returns one of the user's items.
func (s *Store) NewsItem(ctx context.Context, userID, newsItemID string) (*newsroom.NewsItem, error) {
	var row newsItemRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+newsItemColumns+` FROM news_items WHERE user_id = ? AND news_item_id = ?`,
		userID, newsItemID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("news item %s: %w", newsItemID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query news item: %w", err)
	}

	item := row.newsItem()
	return &item, nil
}
