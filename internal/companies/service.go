// Package companies serves the base company collection and per-company notes.
package companies

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/vc-scout/backend/internal/storage/models"
	"github.com/vc-scout/backend/pkg/logger"
	"github.com/vc-scout/backend/pkg/retry"
)

type Repository interface {
	ListCompanies(ctx context.Context) ([]models.Company, error)
	GetCompany(ctx context.Context, id string) (*models.Company, error)
	GetNotes(ctx context.Context, companyID string) (string, error)
	SetNotes(ctx context.Context, companyID, notes string) error
}

type Service struct {
	repo  Repository
	retry retry.Config
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, retry: retry.PersistenceConfig(logger.GetLogger())}
}

// ListCompanies loads the base collection, retrying transient read failures.
func (s *Service) ListCompanies(ctx context.Context) ([]models.Company, error) {
	return retry.DoWithResult(ctx, s.retry, func(ctx context.Context) ([]models.Company, error) {
		return s.repo.ListCompanies(ctx)
	})
}

// GetCompany retries transient failures; a missing company is returned at once.
func (s *Service) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	return retry.DoWithResult(ctx, s.retry, func(ctx context.Context) (*models.Company, error) {
		c, err := s.repo.GetCompany(ctx, id)
		if errors.Is(err, models.ErrNotFound) {
			return nil, retry.Permanent(err)
		}
		return c, err
	})
}

func (s *Service) Notes(ctx context.Context, id string) (string, error) {
	return s.repo.GetNotes(ctx, id)
}

// SetNotes replaces the company's notes; last write wins.
func (s *Service) SetNotes(ctx context.Context, id, notes string) error {
	if err := s.repo.SetNotes(ctx, id, notes); err != nil {
		return err
	}
	logger.Info("Company notes saved", zap.String("company_id", id), zap.Int("length", len(notes)))
	return nil
}
