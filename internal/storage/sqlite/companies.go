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

const companyColumns = `id, name, website, description, industry, stage, location, logo_url, funding, founded,
	signal_score, founders, investors, tags, funding_rounds, headcount, headcount_growth, social_links, signals, user_notes`

// UpsertCompany inserts a company or refreshes every field of an existing one
// except its notes.
func (c *Client) UpsertCompany(ctx context.Context, company *models.Company) error {
	company.Normalize()

	founders, err := encodeJSON(company.Founders)
	if err != nil {
		return fmt.Errorf("failed to encode founders: %w", err)
	}
	investors, err := encodeJSON(company.Investors)
	if err != nil {
		return fmt.Errorf("failed to encode investors: %w", err)
	}
	tags, err := encodeJSON(company.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}
	rounds, err := encodeJSON(company.FundingRounds)
	if err != nil {
		return fmt.Errorf("failed to encode funding rounds: %w", err)
	}
	signals, err := encodeJSON(company.Signals)
	if err != nil {
		return fmt.Errorf("failed to encode signals: %w", err)
	}

	var social sql.NullString
	if company.SocialLinks != nil {
		data, err := json.Marshal(company.SocialLinks)
		if err != nil {
			return fmt.Errorf("failed to encode social links: %w", err)
		}
		social = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO companies (id, name, website, description, industry, stage, location, logo_url, funding, founded,
			signal_score, founders, investors, tags, funding_rounds, headcount, headcount_growth, social_links, signals,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			website = excluded.website,
			description = excluded.description,
			industry = excluded.industry,
			stage = excluded.stage,
			location = excluded.location,
			logo_url = excluded.logo_url,
			funding = excluded.funding,
			founded = excluded.founded,
			signal_score = excluded.signal_score,
			founders = excluded.founders,
			investors = excluded.investors,
			tags = excluded.tags,
			funding_rounds = excluded.funding_rounds,
			headcount = excluded.headcount,
			headcount_growth = excluded.headcount_growth,
			social_links = excluded.social_links,
			signals = excluded.signals,
			updated_at = excluded.updated_at
	`

	now := nowMillis()
	_, err = c.db.ExecContext(ctx, query,
		company.ID,
		company.Name,
		company.Website,
		company.Description,
		company.Industry,
		company.Stage,
		company.Location,
		company.LogoURL,
		company.Funding,
		company.Founded,
		company.SignalScore,
		founders,
		investors,
		tags,
		rounds,
		nullInt(company.Headcount),
		nullInt(company.HeadcountGrowth),
		social,
		signals,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert company: %w", err)
	}

	logger.Debug("Company upserted", zap.String("company_id", company.ID), zap.String("name", company.Name))
	return nil
}

// ListCompanies returns the base collection in insertion order.
func (c *Client) ListCompanies(ctx context.Context) ([]models.Company, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	companies := make([]models.Company, 0)
	for rows.Next() {
		company, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, *company)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate companies: %w", err)
	}

	return companies, nil
}

func (c *Client) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = ?`, id)
	company, err := scanCompany(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return company, err
}

func (c *Client) GetNotes(ctx context.Context, companyID string) (string, error) {
	var notes sql.NullString
	err := c.db.QueryRowContext(ctx, `SELECT user_notes FROM companies WHERE id = ?`, companyID).Scan(&notes)
	if errors.Is(err, sql.ErrNoRows) {
		return "", models.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get notes: %w", err)
	}
	return notes.String, nil
}

// SetNotes overwrites the company's notes; last write wins.
func (c *Client) SetNotes(ctx context.Context, companyID, notes string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE companies SET user_notes = ?, updated_at = ? WHERE id = ?`,
		sql.NullString{String: notes, Valid: notes != ""}, nowMillis(), companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to set notes: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}

	logger.Debug("Company notes updated", zap.String("company_id", companyID), zap.Int("length", len(notes)))
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCompany(s scanner) (*models.Company, error) {
	var company models.Company
	var founders, investors, tags, rounds, social, signals, notes sql.NullString
	var headcount, growth sql.NullInt64

	err := s.Scan(
		&company.ID,
		&company.Name,
		&company.Website,
		&company.Description,
		&company.Industry,
		&company.Stage,
		&company.Location,
		&company.LogoURL,
		&company.Funding,
		&company.Founded,
		&company.SignalScore,
		&founders,
		&investors,
		&tags,
		&rounds,
		&headcount,
		&growth,
		&social,
		&signals,
		&notes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan company: %w", err)
	}

	if err := decodeJSON(founders, &company.Founders); err != nil {
		return nil, fmt.Errorf("company %s: bad founders: %w", company.ID, err)
	}
	if err := decodeJSON(investors, &company.Investors); err != nil {
		return nil, fmt.Errorf("company %s: bad investors: %w", company.ID, err)
	}
	if err := decodeJSON(tags, &company.Tags); err != nil {
		return nil, fmt.Errorf("company %s: bad tags: %w", company.ID, err)
	}
	if err := decodeJSON(rounds, &company.FundingRounds); err != nil {
		return nil, fmt.Errorf("company %s: bad funding rounds: %w", company.ID, err)
	}
	if err := decodeJSON(signals, &company.Signals); err != nil {
		return nil, fmt.Errorf("company %s: bad signals: %w", company.ID, err)
	}
	if social.Valid {
		company.SocialLinks = &models.SocialLinks{}
		if err := decodeJSON(social, company.SocialLinks); err != nil {
			return nil, fmt.Errorf("company %s: bad social links: %w", company.ID, err)
		}
	}
	if headcount.Valid {
		v := int(headcount.Int64)
		company.Headcount = &v
	}
	if growth.Valid {
		v := int(growth.Int64)
		company.HeadcountGrowth = &v
	}
	if notes.Valid {
		company.Notes = &notes.String
	}

	company.Normalize()
	return &company, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
