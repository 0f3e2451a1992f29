package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vc-scout/backend/internal/storage/models"
	"github.com/vc-scout/backend/pkg/logger"
)

// CreateUser returns models.ErrAlreadyExists when the email is taken.
func (c *Client) CreateUser(ctx context.Context, user *models.User) error {
	now := nowMillis()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, now, now,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %q: %w", user.Email, models.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	user.CreatedAt = fromMillis(now)
	user.UpdatedAt = user.CreatedAt

	logger.Debug("User created", zap.String("user_id", user.ID))
	return nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	return c.getUser(ctx, `WHERE id = ?`, id)
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return c.getUser(ctx, `WHERE email = ?`, email)
}

func (c *Client) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	var user models.User
	var thesis sql.NullString
	var createdAt, updatedAt int64

	err := c.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, investment_thesis, created_at, updated_at FROM users `+where, arg,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &thesis, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.InvestmentThesis = thesis.String
	user.CreatedAt = fromMillis(createdAt)
	user.UpdatedAt = fromMillis(updatedAt)
	return &user, nil
}

// GetThesis returns "" when the user never saved one.
func (c *Client) GetThesis(ctx context.Context, userID string) (string, error) {
	var thesis sql.NullString
	err := c.db.QueryRowContext(ctx, `SELECT investment_thesis FROM users WHERE id = ?`, userID).Scan(&thesis)
	if errors.Is(err, sql.ErrNoRows) {
		return "", models.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get thesis: %w", err)
	}
	return thesis.String, nil
}

// SetThesis overwrites the user's single thesis.
func (c *Client) SetThesis(ctx context.Context, userID, thesis string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE users SET investment_thesis = ?, updated_at = ? WHERE id = ?`,
		thesis, nowMillis(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set thesis: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}

	logger.Debug("Thesis updated", zap.String("user_id", userID))
	return nil
}
