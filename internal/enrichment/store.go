package enrichment

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/vc-scout/backend/internal/storage/models"
	"github.com/vc-scout/backend/pkg/logger"
)

// Update is published whenever a user's cached enrichment is replaced.
type Update struct {
	UserID string                   `json:"user_id"`
	Result *models.EnrichmentResult `json:"result"`
}

// Store caches enrichment results per user, keyed by company id.
type Store interface {
	// Get returns models.ErrNotFound when nothing is cached.
	Get(ctx context.Context, owner, companyID string) (*models.EnrichmentResult, error)
	// Set replaces any cached result for result.CompanyID and notifies
	// subscribers.
	Set(ctx context.Context, owner string, result *models.EnrichmentResult) error
	All(ctx context.Context, owner string) (map[string]*models.EnrichmentResult, error)
	// Subscribe streams the owner's updates until ctx is done, then closes
	// the channel.
	Subscribe(ctx context.Context, owner string) (<-chan Update, error)
}

const subscriberBuffer = 16

// MemoryStore is the single-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[string]map[string]*models.EnrichmentResult
	subs    map[string]map[chan Update]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		results: make(map[string]map[string]*models.EnrichmentResult),
		subs:    make(map[string]map[chan Update]struct{}),
	}
}

func (m *MemoryStore) Get(_ context.Context, owner, companyID string) (*models.EnrichmentResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.results[owner][companyID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneResult(r), nil
}

func (m *MemoryStore) Set(_ context.Context, owner string, result *models.EnrichmentResult) error {
	stored := cloneResult(result)

	m.mu.Lock()
	defer m.mu.Unlock()

	byCompany, ok := m.results[owner]
	if !ok {
		byCompany = make(map[string]*models.EnrichmentResult)
		m.results[owner] = byCompany
	}
	byCompany[stored.CompanyID] = stored

	for ch := range m.subs[owner] {
		select {
		case ch <- Update{UserID: owner, Result: cloneResult(stored)}:
		default:
			logger.Warn("Dropping enrichment update for slow subscriber",
				zap.String("user_id", owner),
				zap.String("company_id", stored.CompanyID),
			)
		}
	}
	return nil
}

func (m *MemoryStore) All(_ context.Context, owner string) (map[string]*models.EnrichmentResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]*models.EnrichmentResult, len(m.results[owner]))
	for id, r := range m.results[owner] {
		out[id] = cloneResult(r)
	}
	return out, nil
}

func (m *MemoryStore) Subscribe(ctx context.Context, owner string) (<-chan Update, error) {
	ch := make(chan Update, subscriberBuffer)

	m.mu.Lock()
	if m.subs[owner] == nil {
		m.subs[owner] = make(map[chan Update]struct{})
	}
	m.subs[owner][ch] = struct{}{}
	m.mu.Unlock()

	go func() {
		<-ctx.Done()

		m.mu.Lock()
		delete(m.subs[owner], ch)
		if len(m.subs[owner]) == 0 {
			delete(m.subs, owner)
		}
		m.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

func cloneResult(r *models.EnrichmentResult) *models.EnrichmentResult {
	out := *r
	out.WhatTheyDo = slices.Clone(r.WhatTheyDo)
	out.Keywords = slices.Clone(r.Keywords)
	out.Signals = slices.Clone(r.Signals)
	out.Sources = slices.Clone(r.Sources)
	return &out
}
