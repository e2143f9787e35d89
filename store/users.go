package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// User is someone holding a bearer token. Unapproved users are refused with
// 403 until approved.
type User struct {
	UserID   string `db:"user_id"`
	Token    string `db:"token"`
	Approved bool   `db:"approved"`
}

// AddUser registers a bearer token and hands the new user every item
// already known, unread.
func (s *Store) AddUser(ctx context.Context, token string, approved bool) (*User, error) {
	if token == "" {
		return nil, errors.New("token must not be empty")
	}

	now := s.now()
	user := &User{UserID: uuid.New().String(), Token: token, Approved: approved}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (user_id, token, approved, created_at) VALUES (?, ?, ?, ?)`,
		user.UserID, user.Token, user.Approved, formatTime(&now),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("token: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	var items []feedItemRow
	err = tx.SelectContext(ctx, &items,
		`SELECT fi.feed_item_id, fi.feed_id, fi.link, fi.title, fi.description, fi.published,
		        f.title AS feed_title, f.favicon
		 FROM feed_items fi JOIN feeds f ON f.feed_id = fi.feed_id
		 ORDER BY fi.published`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed items: %w", err)
	}
	for _, item := range items {
		if err := deliver(ctx, tx, user.UserID, item); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit user: %w", err)
	}
	return user, nil
}

// UserByToken looks up the owner of a bearer token.
func (s *Store) UserByToken(ctx context.Context, token string) (*User, error) {
	var user User
	err := s.db.GetContext(ctx, &user, `SELECT user_id, token, approved FROM users WHERE token = ?`, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// ApproveUser approves the user holding token.
func (s *Store) ApproveUser(ctx context.Context, token string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET approved = 1 WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("failed to approve user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("user: %w", ErrNotFound)
	}
	return nil
}

// userIDs returns the IDs of all users.
func userIDs(ctx context.Context, q sqlx.QueryerContext) ([]string, error) {
	var ids []string
	if err := sqlx.SelectContext(ctx, q, &ids, `SELECT user_id FROM users ORDER BY created_at`); err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	return ids, nil
}
