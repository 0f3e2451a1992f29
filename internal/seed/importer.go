// Package seed loads the company catalogue from a JSON file.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/vc-scout/backend/internal/storage/models"
	"github.com/vc-scout/backend/pkg/logger"
)

type Repository interface {
	UpsertCompany(ctx context.Context, company *models.Company) error
}

type Stats struct {
	Upserted int
	Skipped  int
}

type Importer struct {
	repo Repository
}

func NewImporter(repo Repository) *Importer {
	return &Importer{repo: repo}
}

// ImportFile reads a JSON array of companies from path and upserts them.
func (i *Importer) ImportFile(ctx context.Context, path string) (Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	return i.Import(ctx, f)
}

// Import upserts every company in r by id. Records without an id or name are
// skipped; notes already stored are never touched.
func (i *Importer) Import(ctx context.Context, r io.Reader) (Stats, error) {
	var companies []models.Company
	if err := json.NewDecoder(r).Decode(&companies); err != nil {
		return Stats{}, fmt.Errorf("failed to decode seed data: %w", err)
	}

	logger.Info("Seeding companies", zap.Int("count", len(companies)))

	var stats Stats
	for idx := range companies {
		c := &companies[idx]
		c.ID = strings.TrimSpace(c.ID)
		c.Name = strings.TrimSpace(c.Name)
		if c.ID == "" || c.Name == "" {
			logger.Warn("Skipping company without id or name", zap.Int("index", idx))
			stats.Skipped++
			continue
		}

		c.Notes = nil
		c.Normalize()

		if err := i.repo.UpsertCompany(ctx, c); err != nil {
			return stats, fmt.Errorf("failed to seed company %s: %w", c.ID, err)
		}
		stats.Upserted++
	}

	logger.Info("Seeding complete", zap.Int("upserted", stats.Upserted), zap.Int("skipped", stats.Skipped))
	return stats, nil
}
