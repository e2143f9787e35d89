package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/pevans/newsroom"
)

// savedRow is the stored form of a newsroom.SavedNewsItem. The item is a
// snapshot taken when it was saved.
type savedRow struct {
	SavedNewsItemID string `db:"saved_news_item_id"`
	NewsItemID      string `db:"news_item_id"`
	Item            string `db:"item"`
}

// SaveItem stars one of the user's items and returns the saved ID. Saving
// an item twice returns the existing ID.
func (s *Store) SaveItem(ctx context.Context, userID, newsItemID string) (string, error) {
	item, err := s.NewsItem(ctx, userID, newsItemID)
	if err != nil {
		return "", err
	}
	if item.SavedNewsItemID != nil {
		return *item.SavedNewsItemID, nil
	}

	savedID := uuid.New().String()
	item.IsSaved = true
	item.SavedNewsItemID = &savedID

	snapshot, err := json.Marshal(item)
	if err != nil {
		return "", fmt.Errorf("failed to marshal news item: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO saved_items (saved_news_item_id, user_id, news_item_id, item, created_at) VALUES (?, ?, ?, ?, ?)`,
		savedID, userID, newsItemID, string(snapshot), s.now().UnixNano(),
	); err != nil {
		return "", fmt.Errorf("failed to insert saved item: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE news_items SET saved_news_item_id = ? WHERE user_id = ? AND news_item_id = ?`,
		savedID, userID, newsItemID,
	); err != nil {
		return "", fmt.Errorf("failed to update news item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit saved item: %w", err)
	}
	return savedID, nil
}

// DeleteSaved removes a saved item of the user.
func (s *Store) DeleteSaved(ctx context.Context, userID, savedID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM saved_items WHERE saved_news_item_id = ? AND user_id = ?`, savedID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete saved item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("saved item %s: %w", savedID, ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE news_items SET saved_news_item_id = NULL WHERE user_id = ? AND saved_news_item_id = ?`,
		userID, savedID,
	); err != nil {
		return fmt.Errorf("failed to update news item: %w", err)
	}

	return tx.Commit()
}

// SavedItems returns the user's saved items, most recently saved first.
func (s *Store) SavedItems(ctx context.Context, userID string, offset, limit int) ([]newsroom.SavedNewsItem, error) {
	var rows []savedRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT saved_news_item_id, news_item_id, item FROM saved_items
		 WHERE user_id = ? ORDER BY created_at DESC, saved_news_item_id LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query saved items: %w", err)
	}

	items := make([]newsroom.SavedNewsItem, 0, len(rows))
	for _, row := range rows {
		var item newsroom.NewsItem
		if err := json.Unmarshal([]byte(row.Item), &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal saved item %s: %w", row.SavedNewsItemID, err)
		}
		items = append(items, newsroom.SavedNewsItem{
			NewsItem:   item,
			SavedID:    row.SavedNewsItemID,
			NewsItemID: row.NewsItemID,
		})
	}
	return items, nil
}
