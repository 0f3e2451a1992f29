// Package searches stores named directory queries and turns them back into
// directory.Query values on demand.
package searches

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vc-scout/backend/internal/directory"
	"github.com/vc-scout/backend/internal/storage/models"
	"github.com/vc-scout/backend/pkg/logger"
)

var ErrInvalidName = errors.New("saved search name must not be empty")

type Repository interface {
	CreateSavedSearch(ctx context.Context, search *models.SavedSearch) error
	GetSavedSearch(ctx context.Context, userID, id string) (*models.SavedSearch, error)
	ListSavedSearches(ctx context.Context, userID string) ([]models.SavedSearch, error)
	DeleteSavedSearch(ctx context.Context, userID, id string) error
}

// Draft is the user-supplied part of a saved search.
type Draft struct {
	Name       string
	Query      string
	Stages     []string
	Industries []string
	IsAI       bool
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, owner string, d Draft) (*models.SavedSearch, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	search := &models.SavedSearch{
		ID:     uuid.NewString(),
		UserID: owner,
		Name:   name,
		Query:  d.Query,
		Filters: models.SearchFilters{
			Stages:     normalize(d.Stages),
			Industries: normalize(d.Industries),
		},
		IsAI: d.IsAI,
	}
	if err := s.repo.CreateSavedSearch(ctx, search); err != nil {
		return nil, fmt.Errorf("failed to save search: %w", err)
	}

	logger.Info("Search saved",
		zap.String("search_id", search.ID),
		zap.String("user_id", owner),
		zap.String("name", name),
	)
	return search, nil
}

// All returns the owner's saved searches in the order they were saved.
func (s *Service) All(ctx context.Context, owner string) ([]models.SavedSearch, error) {
	return s.repo.ListSavedSearches(ctx, owner)
}

func (s *Service) Get(ctx context.Context, owner, id string) (*models.SavedSearch, error) {
	return s.repo.GetSavedSearch(ctx, owner, id)
}

func (s *Service) Delete(ctx context.Context, owner, id string) error {
	if err := s.repo.DeleteSavedSearch(ctx, owner, id); err != nil {
		return err
	}
	logger.Info("Saved search deleted", zap.String("search_id", id), zap.String("user_id", owner))
	return nil
}

// Query rebuilds the directory query a saved search stands for. Sorting
// falls back to the directory default.
func Query(search *models.SavedSearch, page, pageSize int) directory.Query {
	q := directory.DefaultQuery()
	q.Search = search.Query
	if search.IsAI {
		q.Mode = directory.SearchSemantic
	}
	q.Stages = append([]string(nil), search.Filters.Stages...)
	q.Industries = append([]string(nil), search.Filters.Industries...)
	if page > 0 {
		q.Page = page
	}
	if pageSize > 0 {
		q.PageSize = pageSize
	}
	return q
}

// normalize trims values and drops blanks and repeats, keeping first-seen
// order.
func normalize(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
