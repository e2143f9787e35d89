// Package store keeps the development server's feeds, users and per-user news
// items in SQLite.
package store

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a row addressed by ID does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a unique value is already taken.
	ErrDuplicate = errors.New("already exists")
)

// Store is the SQLite-backed news store.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open opens or creates the database at dsn and makes sure the schema
// exists. ":memory:" gives a private in-memory database.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps an in-memory
	// database alive and shared.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, now: time.Now}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the database tables if they don't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS feeds (
		feed_id TEXT PRIMARY KEY,
		url TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		favicon TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		last_fetched_at TEXT,
		fetch_error_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	);

	CREATE TABLE IF NOT EXISTS feed_items (
		feed_item_id TEXT PRIMARY KEY,
		feed_id TEXT NOT NULL,
		link TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		published INTEGER NOT NULL,
		last_seen_at TEXT NOT NULL,
		UNIQUE (feed_id, link)
	);

	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		token TEXT NOT NULL UNIQUE,
		approved INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS news_items (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		news_item_id TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		feed_id TEXT NOT NULL,
		feed_item_id TEXT NOT NULL,
		feed_title TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		link TEXT NOT NULL,
		favicon TEXT NOT NULL DEFAULT '',
		published INTEGER NOT NULL,
		alternate_links TEXT NOT NULL DEFAULT '[]',
		alternate_title_links TEXT NOT NULL DEFAULT '[]',
		alternate_favicons TEXT NOT NULL DEFAULT '[]',
		is_read INTEGER NOT NULL DEFAULT 0,
		read_at INTEGER,
		saved_news_item_id TEXT,
		UNIQUE (user_id, feed_item_id)
	);

	CREATE INDEX IF NOT EXISTS idx_news_items_unread
		ON news_items (user_id, is_read, published DESC, seq DESC);
	CREATE INDEX IF NOT EXISTS idx_news_items_read
		ON news_items (user_id, is_read, read_at DESC, seq DESC);

	CREATE TABLE IF NOT EXISTS saved_items (
		saved_news_item_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		news_item_id TEXT NOT NULL,
		item TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// stringList is a []string kept as a JSON array in a TEXT column.
type stringList []string

// Scan implements sql.Scanner.
func (l *stringList) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = stringList{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan type %T into stringList", src)
	}

	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

// Value implements driver.Valuer.
func (l stringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	// Strip monotonic clock for consistent storage and comparisons
	return t.Truncate(0).UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	// Try RFC3339Nano first, fall back to RFC3339 for compatibility
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}
