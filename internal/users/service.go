// Package users handles registration, credential checks and the per-user
// investment thesis.
package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/vc-scout/backend/internal/metrics"
	"github.com/vc-scout/backend/internal/storage/models"
	"github.com/vc-scout/backend/pkg/logger"
)

const bcryptCost = 10

var (
	ErrInvalidEmail       = errors.New("a valid email is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type Repository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetThesis(ctx context.Context, userID string) (string, error)
	SetThesis(ctx context.Context, userID, thesis string) error
}

type Service struct {
	repo Repository
	cost int
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, cost: bcryptCost}
}

// Register creates a user. A taken email yields models.ErrAlreadyExists.
func (s *Service) Register(ctx context.Context, email, password string) (*models.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	metrics.UsersRegistered.Inc()
	logger.Info("User registered", zap.String("user_id", user.ID))
	return user, nil
}

// Authenticate returns the user whose credentials match. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email, err := normalizeEmail(email)
	if err != nil || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logger.Debug("Password mismatch", zap.String("user_id", user.ID))
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.User, error) {
	return s.repo.GetUser(ctx, id)
}

// Thesis returns the user's thesis, empty if never set.
func (s *Service) Thesis(ctx context.Context, userID string) (string, error) {
	return s.repo.GetThesis(ctx, userID)
}

// SaveThesis overwrites the thesis. An empty thesis clears it.
func (s *Service) SaveThesis(ctx context.Context, userID, thesis string) (string, error) {
	thesis = strings.TrimSpace(thesis)
	if err := s.repo.SetThesis(ctx, userID, thesis); err != nil {
		return "", err
	}
	logger.Info("Investment thesis saved", zap.String("user_id", userID), zap.Int("length", len(thesis)))
	return thesis, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
