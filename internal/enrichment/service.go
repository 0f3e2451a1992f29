// Package enrichment produces thesis-scored company reports on demand and
// caches the latest report per user and company.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vc-scout/backend/internal/llm"
	"github.com/vc-scout/backend/internal/metrics"
	"github.com/vc-scout/backend/internal/storage/models"
	"github.com/vc-scout/backend/pkg/logger"
	"github.com/vc-scout/backend/pkg/utils"
)

var (
	ErrThesisRequired   = errors.New("an investment thesis is required before enrichment")
	ErrWebsiteRequired  = errors.New("website url is required")
	ErrSuperseded       = errors.New("enrichment superseded by a newer request")
	ErrEnrichmentFailed = errors.New("enrichment failed")
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type Analyzer interface {
	AnalyzeCompany(ctx context.Context, req llm.AnalysisRequest) (*llm.Analysis, error)
}

type ThesisSource interface {
	GetThesis(ctx context.Context, userID string) (string, error)
}

type CompanyLookup interface {
	GetCompany(ctx context.Context, id string) (*models.Company, error)
}

type Config struct {
	Timeout     time.Duration
	MinKeywords int
}

type Service struct {
	store     Store
	fetcher   Fetcher
	analyzer  Analyzer
	theses    ThesisSource
	companies CompanyLookup

	timeout     time.Duration
	minKeywords int
	now         func() time.Time

	mu       sync.Mutex
	seq      uint64
	inflight map[inflightKey]*call
}

type inflightKey struct {
	owner     string
	companyID string
}

type call struct {
	id     uint64
	cancel context.CancelCauseFunc
}

func NewService(store Store, fetcher Fetcher, analyzer Analyzer, theses ThesisSource, companies CompanyLookup, cfg Config) *Service {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &Service{
		store:       store,
		fetcher:     fetcher,
		analyzer:    analyzer,
		theses:      theses,
		companies:   companies,
		timeout:     cfg.Timeout,
		minKeywords: cfg.MinKeywords,
		now:         time.Now,
		inflight:    make(map[inflightKey]*call),
	}
}

// Enrich fetches the company website, asks the analyzer for a report scored
// against the owner's thesis and caches it, replacing any earlier result.
//
// A second call for the same owner and company cancels the first, which then
// returns ErrSuperseded. On any failure the cache is left untouched.
func (s *Service) Enrich(ctx context.Context, owner, companyID, website string) (*models.EnrichmentResult, error) {
	start := time.Now()

	company, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		return nil, s.reject("unknown_company", err)
	}

	website = strings.TrimSpace(website)
	if website == "" {
		website = company.Website
	}
	if website == "" {
		return nil, s.reject("invalid", ErrWebsiteRequired)
	}

	thesis, err := s.theses.GetThesis(ctx, owner)
	if err != nil {
		return nil, s.reject("invalid", err)
	}
	if strings.TrimSpace(thesis) == "" {
		return nil, s.reject("invalid", ErrThesisRequired)
	}

	key := inflightKey{owner: owner, companyID: companyID}
	ctx, c := s.begin(ctx, key)
	defer s.end(key, c)

	metrics.EnrichmentInFlight.Inc()
	defer metrics.EnrichmentInFlight.Dec()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pageText, err := s.fetcher.Fetch(ctx, website)
	if err != nil {
		if ctx.Err() != nil {
			return nil, s.fail(ctx, owner, companyID, err)
		}
		logger.Warn("Website fetch failed, falling back to model knowledge",
			zap.String("company_id", companyID),
			zap.String("website", website),
			zap.Error(err),
		)
		pageText = ""
	}

	analysis, err := s.analyzer.AnalyzeCompany(ctx, llm.AnalysisRequest{
		CompanyName: company.Name,
		Website:     website,
		PageText:    pageText,
		Thesis:      thesis,
	})
	if err != nil {
		return nil, s.fail(ctx, owner, companyID, err)
	}

	now := s.now().UTC()
	result := &models.EnrichmentResult{
		CompanyID:        companyID,
		Summary:          analysis.Summary,
		WhatTheyDo:       nonNil(analysis.WhatTheyDo),
		Keywords:         nonNil(analysis.Keywords),
		Signals:          nonNil(analysis.Signals),
		MatchScore:       clamp(analysis.MatchScore),
		MatchExplanation: analysis.MatchExplanation,
		Sources:          []models.Source{{URL: website, Timestamp: now}},
		GeneratedAt:      now,
	}
	if len(result.Keywords) < s.minKeywords {
		corpus := strings.Join(append([]string{pageText, analysis.Summary}, analysis.WhatTheyDo...), " ")
		result.Keywords = topUpKeywords(result.Keywords, s.minKeywords, corpus)
	}

	if err := s.commit(ctx, key, c, owner, result); err != nil {
		return nil, s.fail(ctx, owner, companyID, err)
	}

	metrics.EnrichmentTotal.WithLabelValues("ok").Inc()
	metrics.EnrichmentDuration.Observe(time.Since(start).Seconds())
	logger.Info("Company enriched",
		zap.String("user_id", owner),
		zap.String("company_id", companyID),
		zap.Int("match_score", result.MatchScore),
		zap.String("content_fingerprint", utils.Fingerprint(pageText)),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// Cached returns the owner's last result for companyID or models.ErrNotFound.
func (s *Service) Cached(ctx context.Context, owner, companyID string) (*models.EnrichmentResult, error) {
	r, err := s.store.Get(ctx, owner, companyID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		metrics.CacheMisses.WithLabelValues("enrichment").Inc()
	case err == nil:
		metrics.CacheHits.WithLabelValues("enrichment").Inc()
	}
	return r, err
}

func (s *Service) All(ctx context.Context, owner string) (map[string]*models.EnrichmentResult, error) {
	return s.store.All(ctx, owner)
}

// Scores returns the owner's match scores keyed by company id, the enrichment
// map consumed by the directory view.
func (s *Service) Scores(ctx context.Context, owner string) (map[string]int, error) {
	all, err := s.store.All(ctx, owner)
	if err != nil {
		return nil, err
	}
	scores := make(map[string]int, len(all))
	for id, r := range all {
		scores[id] = r.MatchScore
	}
	return scores, nil
}

func (s *Service) Subscribe(ctx context.Context, owner string) (<-chan Update, error) {
	return s.store.Subscribe(ctx, owner)
}

// begin registers a new call for key, cancelling any outstanding one.
func (s *Service) begin(ctx context.Context, key inflightKey) (context.Context, *call) {
	ctx, cancel := context.WithCancelCause(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	c := &call{id: s.seq, cancel: cancel}
	if prev, ok := s.inflight[key]; ok {
		prev.cancel(ErrSuperseded)
		logger.Debug("Superseding enrichment",
			zap.String("user_id", key.owner),
			zap.String("company_id", key.companyID),
		)
	}
	s.inflight[key] = c
	return ctx, c
}

func (s *Service) end(key inflightKey, c *call) {
	s.mu.Lock()
	if cur, ok := s.inflight[key]; ok && cur.id == c.id {
		delete(s.inflight, key)
	}
	s.mu.Unlock()
	c.cancel(nil)
}

// commit stores result only while c is still the current call for key. The
// check and the write share s.mu so a superseded call can never overwrite a
// newer result. A finished analysis is kept even if the caller went away.
func (s *Service) commit(ctx context.Context, key inflightKey, c *call, owner string, result *models.EnrichmentResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.inflight[key]; !ok || cur.id != c.id {
		return ErrSuperseded
	}
	if err := s.store.Set(context.WithoutCancel(ctx), owner, result); err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}
	return nil
}

func (s *Service) fail(ctx context.Context, owner, companyID string, err error) error {
	if errors.Is(err, ErrSuperseded) || errors.Is(context.Cause(ctx), ErrSuperseded) {
		metrics.EnrichmentTotal.WithLabelValues("superseded").Inc()
		logger.Info("Enrichment superseded", zap.String("user_id", owner), zap.String("company_id", companyID))
		return ErrSuperseded
	}

	metrics.EnrichmentTotal.WithLabelValues("failed").Inc()
	logger.Warn("Enrichment failed",
		zap.String("user_id", owner),
		zap.String("company_id", companyID),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %w", ErrEnrichmentFailed, err)
}

func (s *Service) reject(status string, err error) error {
	metrics.EnrichmentTotal.WithLabelValues(status).Inc()
	return err
}

func clamp(score int) int {
	return max(0, min(100, score))
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
