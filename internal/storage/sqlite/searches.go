package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vc-scout/backend/internal/storage/models"
	"github.com/vc-scout/backend/pkg/logger"
)

const savedSearchColumns = `id, user_id, name, query, stages, industries, is_ai, created_at`

func (c *Client) CreateSavedSearch(ctx context.Context, search *models.SavedSearch) error {
	stages, err := encodeMembers(search.Filters.Stages)
	if err != nil {
		return err
	}
	industries, err := encodeMembers(search.Filters.Industries)
	if err != nil {
		return err
	}

	now := nowMillis()
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO saved_searches (`+savedSearchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		search.ID, search.UserID, search.Name, search.Query, stages, industries, search.IsAI, now,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("saved search %s: %w", search.ID, models.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create saved search: %w", err)
	}

	search.CreatedAt = fromMillis(now)

	logger.Debug("Saved search created", zap.String("search_id", search.ID), zap.String("user_id", search.UserID))
	return nil
}

func (c *Client) GetSavedSearch(ctx context.Context, userID, id string) (*models.SavedSearch, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT `+savedSearchColumns+` FROM saved_searches WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	search, err := scanSavedSearch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return search, err
}

// ListSavedSearches returns the user's saved searches, oldest first.
func (c *Client) ListSavedSearches(ctx context.Context, userID string) ([]models.SavedSearch, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+savedSearchColumns+` FROM saved_searches WHERE user_id = ? ORDER BY created_at, rowid`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved searches: %w", err)
	}
	defer rows.Close()

	searches := make([]models.SavedSearch, 0)
	for rows.Next() {
		search, err := scanSavedSearch(rows)
		if err != nil {
			return nil, err
		}
		searches = append(searches, *search)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate saved searches: %w", err)
	}
	return searches, nil
}

func (c *Client) DeleteSavedSearch(ctx context.Context, userID, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM saved_searches WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete saved search: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}

	logger.Debug("Saved search deleted", zap.String("search_id", id), zap.String("user_id", userID))
	return nil
}

func scanSavedSearch(s scanner) (*models.SavedSearch, error) {
	var search models.SavedSearch
	var stages, industries string
	var createdAt int64

	err := s.Scan(&search.ID, &search.UserID, &search.Name, &search.Query, &stages, &industries, &search.IsAI, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan saved search: %w", err)
	}

	if err := json.Unmarshal([]byte(stages), &search.Filters.Stages); err != nil {
		return nil, fmt.Errorf("saved search %s: bad stages: %w", search.ID, err)
	}
	if err := json.Unmarshal([]byte(industries), &search.Filters.Industries); err != nil {
		return nil, fmt.Errorf("saved search %s: bad industries: %w", search.ID, err)
	}
	search.CreatedAt = fromMillis(createdAt)
	return &search, nil
}
