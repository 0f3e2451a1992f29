// Package lists manages user-owned named collections of company ids.
package lists

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vc-scout/backend/internal/export"
	"github.com/vc-scout/backend/internal/metrics"
	"github.com/vc-scout/backend/internal/storage/models"
	"github.com/vc-scout/backend/pkg/logger"
)

var (
	ErrInvalidName       = errors.New("list name must not be empty")
	ErrInvalidCompany    = errors.New("company id must not be empty")
	ErrUnsupportedFormat = export.ErrUnsupportedFormat
)

type Repository interface {
	CreateList(ctx context.Context, list *models.List) error
	GetList(ctx context.Context, userID, id string) (*models.List, error)
	ListLists(ctx context.Context, userID string) ([]models.List, error)
	UpdateList(ctx context.Context, list *models.List) error
	DeleteList(ctx context.Context, userID, id string) error
}

// CompanySource supplies the base company collection for exports.
type CompanySource interface {
	ListCompanies(ctx context.Context) ([]models.Company, error)
}

type Service struct {
	repo      Repository
	companies CompanySource

	// mu serialises read-modify-write cycles on list membership.
	mu sync.Mutex
}

func NewService(repo Repository, companies CompanySource) *Service {
	return &Service{repo: repo, companies: companies}
}

func (s *Service) Create(ctx context.Context, owner, name string) (*models.List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	list := &models.List{
		ID:        uuid.NewString(),
		UserID:    owner,
		Name:      name,
		Companies: []string{},
	}
	if err := s.repo.CreateList(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to create list: %w", err)
	}

	metrics.ListMutations.WithLabelValues("create").Inc()
	logger.Info("List created",
		zap.String("list_id", list.ID),
		zap.String("user_id", owner),
		zap.String("name", name),
	)
	return list, nil
}

func (s *Service) Get(ctx context.Context, owner, id string) (*models.List, error) {
	return s.repo.GetList(ctx, owner, id)
}

// All returns the owner's lists, most recently updated first.
func (s *Service) All(ctx context.Context, owner string) ([]models.List, error) {
	return s.repo.ListLists(ctx, owner)
}

func (s *Service) Rename(ctx context.Context, owner, id, name string) (*models.List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	return s.mutate(ctx, "rename", owner, id, func(list *models.List) {
		list.Name = name
	})
}

// ToggleMembership adds companyID to the list if absent and removes it if
// present. added reports the membership after the call.
func (s *Service) ToggleMembership(ctx context.Context, owner, id, companyID string) (list *models.List, added bool, err error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return nil, false, ErrInvalidCompany
	}

	list, err = s.mutate(ctx, "toggle", owner, id, func(list *models.List) {
		if list.Contains(companyID) {
			list.Companies = remove(list.Companies, companyID)
			return
		}
		list.Companies = append(list.Companies, companyID)
		added = true
	})
	if err != nil {
		return nil, false, err
	}
	return list, added, nil
}

// SetCompanies replaces the list's membership. Duplicates and blank ids are
// dropped; first occurrence order is kept.
func (s *Service) SetCompanies(ctx context.Context, owner, id string, companyIDs []string) (*models.List, error) {
	members := dedupe(companyIDs)
	return s.mutate(ctx, "set_companies", owner, id, func(list *models.List) {
		list.Companies = members
	})
}

func (s *Service) Delete(ctx context.Context, owner, id string) error {
	if err := s.repo.DeleteList(ctx, owner, id); err != nil {
		return err
	}

	metrics.ListMutations.WithLabelValues("delete").Inc()
	logger.Info("List deleted", zap.String("list_id", id), zap.String("user_id", owner))
	return nil
}

// Export writes the companies that belong to the list. Ids that no longer
// resolve to a company are skipped. enrichments may be nil.
func (s *Service) Export(ctx context.Context, owner, id string, format export.Format, enrichments map[string]*models.EnrichmentResult, w io.Writer) error {
	list, err := s.repo.GetList(ctx, owner, id)
	if err != nil {
		return err
	}

	companies, err := s.companies.ListCompanies(ctx)
	if err != nil {
		return fmt.Errorf("failed to load companies: %w", err)
	}

	records := make([]export.Record, 0, len(list.Companies))
	for _, c := range companies {
		if !list.Contains(c.ID) {
			continue
		}
		records = append(records, export.Record{Company: c, Enrichment: enrichments[c.ID]})
	}

	if err := export.Write(w, format, records); err != nil {
		return err
	}

	metrics.ListExports.WithLabelValues(string(format)).Inc()
	logger.Info("List exported",
		zap.String("list_id", id),
		zap.String("format", string(format)),
		zap.Int("companies", len(records)),
	)
	return nil
}

func (s *Service) mutate(ctx context.Context, op, owner, id string, apply func(*models.List)) (*models.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.repo.GetList(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	apply(list)
	if err := s.repo.UpdateList(ctx, list); err != nil {
		return nil, fmt.Errorf("failed to %s list: %w", op, err)
	}

	metrics.ListMutations.WithLabelValues(op).Inc()
	logger.Debug("List updated",
		zap.String("op", op),
		zap.String("list_id", id),
		zap.Int("companies", len(list.Companies)),
	)
	return list, nil
}

func remove(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
