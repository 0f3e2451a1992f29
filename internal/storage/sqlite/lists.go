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

func (c *Client) CreateList(ctx context.Context, list *models.List) error {
	members, err := encodeMembers(list.Companies)
	if err != nil {
		return err
	}

	now := nowMillis()
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO lists (id, user_id, name, companies, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		list.ID, list.UserID, list.Name, members, now, now,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("list %s: %w", list.ID, models.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create list: %w", err)
	}

	list.CreatedAt = fromMillis(now)
	list.UpdatedAt = list.CreatedAt

	logger.Debug("List created", zap.String("list_id", list.ID), zap.String("user_id", list.UserID))
	return nil
}

func (c *Client) GetList(ctx context.Context, userID, id string) (*models.List, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, companies, created_at, updated_at FROM lists WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	list, err := scanList(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return list, err
}

// ListLists returns the user's lists, most recently updated first.
func (c *Client) ListLists(ctx context.Context, userID string) ([]models.List, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, user_id, name, companies, created_at, updated_at FROM lists WHERE user_id = ? ORDER BY updated_at DESC, rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list lists: %w", err)
	}
	defer rows.Close()

	lists := make([]models.List, 0)
	for rows.Next() {
		list, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		lists = append(lists, *list)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lists: %w", err)
	}
	return lists, nil
}

// UpdateList writes name and membership of a list owned by list.UserID.
func (c *Client) UpdateList(ctx context.Context, list *models.List) error {
	members, err := encodeMembers(list.Companies)
	if err != nil {
		return err
	}

	now := nowMillis()
	res, err := c.db.ExecContext(ctx,
		`UPDATE lists SET name = ?, companies = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		list.Name, members, now, list.ID, list.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update list: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}

	list.UpdatedAt = fromMillis(now)
	return nil
}

func (c *Client) DeleteList(ctx context.Context, userID, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM lists WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}

	logger.Debug("List deleted", zap.String("list_id", id), zap.String("user_id", userID))
	return nil
}

func encodeMembers(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("failed to encode list members: %w", err)
	}
	return string(data), nil
}

func scanList(s scanner) (*models.List, error) {
	var list models.List
	var members string
	var createdAt, updatedAt int64

	err := s.Scan(&list.ID, &list.UserID, &list.Name, &members, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan list: %w", err)
	}

	if err := json.Unmarshal([]byte(members), &list.Companies); err != nil {
		return nil, fmt.Errorf("list %s: bad members: %w", list.ID, err)
	}
	if list.Companies == nil {
		list.Companies = []string{}
	}
	list.CreatedAt = fromMillis(createdAt)
	list.UpdatedAt = fromMillis(updatedAt)
	return &list, nil
}
