package models

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

type Founder struct {
	Name     string `json:"name" yaml:"name"`
	LinkedIn string `json:"linkedin,omitempty" yaml:"linkedin,omitempty"`
	Bio      string `json:"bio,omitempty" yaml:"bio,omitempty"`
}

type Investor struct {
	Name string `json:"name" yaml:"name"`
	Logo string `json:"logo,omitempty" yaml:"logo,omitempty"`
}

type FundingRound struct {
	Stage        string `json:"stage" yaml:"stage"`
	Amount       string `json:"amount" yaml:"amount"`
	Date         string `json:"date" yaml:"date"`
	LeadInvestor string `json:"lead_investor,omitempty" yaml:"lead_investor,omitempty"`
}

type SocialLinks struct {
	LinkedIn   string `json:"linkedin,omitempty" yaml:"linkedin,omitempty"`
	Twitter    string `json:"twitter,omitempty" yaml:"twitter,omitempty"`
	Crunchbase string `json:"crunchbase,omitempty" yaml:"crunchbase,omitempty"`
}

type Signal struct {
	Type       string `json:"type" yaml:"type"`
	Value      string `json:"value" yaml:"value"`
	Importance string `json:"importance" yaml:"importance"`
}

// Company is a directory entry. Optional attributes are nil or empty when
// unknown; Normalize is the single place that decides what "unknown" means.
type Company struct {
	ID              string         `json:"id" yaml:"id"`
	Name            string         `json:"name" yaml:"name"`
	Website         string         `json:"website" yaml:"website"`
	Description     string         `json:"description" yaml:"description"`
	Industry        string         `json:"industry" yaml:"industry"`
	Stage           string         `json:"stage" yaml:"stage"`
	Location        string         `json:"location" yaml:"location"`
	LogoURL         string         `json:"logo_url" yaml:"logo_url"`
	Funding         string         `json:"funding" yaml:"funding"`
	Founded         int            `json:"founded" yaml:"founded"`
	SignalScore     int            `json:"signal_score" yaml:"signal_score"`
	Founders        []Founder      `json:"founders,omitempty" yaml:"founders,omitempty"`
	Investors       []Investor     `json:"investors,omitempty" yaml:"investors,omitempty"`
	Tags            []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	FundingRounds   []FundingRound `json:"funding_rounds,omitempty" yaml:"funding_rounds,omitempty"`
	Headcount       *int           `json:"headcount,omitempty" yaml:"headcount,omitempty"`
	HeadcountGrowth *int           `json:"headcount_growth,omitempty" yaml:"headcount_growth,omitempty"`
	SocialLinks     *SocialLinks   `json:"social_links,omitempty" yaml:"social_links,omitempty"`
	Signals         []Signal       `json:"signals,omitempty" yaml:"signals,omitempty"`
	Notes           *string        `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// HeadcountOrZero is the headcount used for thresholds and sorting.
func (c *Company) HeadcountOrZero() int {
	if c.Headcount == nil {
		return 0
	}
	return *c.Headcount
}

// Normalize clamps the signal score into 0..100 and turns empty collections
// and blank notes into "absent".
func (c *Company) Normalize() {
	switch {
	case c.SignalScore < 0:
		c.SignalScore = 0
	case c.SignalScore > 100:
		c.SignalScore = 100
	}
	if len(c.Founders) == 0 {
		c.Founders = nil
	}
	if len(c.Investors) == 0 {
		c.Investors = nil
	}
	if len(c.Tags) == 0 {
		c.Tags = nil
	}
	if len(c.FundingRounds) == 0 {
		c.FundingRounds = nil
	}
	if len(c.Signals) == 0 {
		c.Signals = nil
	}
	if c.SocialLinks != nil && *c.SocialLinks == (SocialLinks{}) {
		c.SocialLinks = nil
	}
	if c.Notes != nil && *c.Notes == "" {
		c.Notes = nil
	}
}

type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	InvestmentThesis string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// List is a named set of company ids owned by one user.
type List struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Companies []string  `json:"companies"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (l *List) Contains(companyID string) bool {
	for _, id := range l.Companies {
		if id == companyID {
			return true
		}
	}
	return false
}

type Source struct {
	URL       string    `json:"url" yaml:"url"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

type EnrichmentResult struct {
	CompanyID        string    `json:"company_id" yaml:"company_id"`
	Summary          string    `json:"summary" yaml:"summary"`
	WhatTheyDo       []string  `json:"what_they_do" yaml:"what_they_do"`
	Keywords         []string  `json:"keywords" yaml:"keywords"`
	Signals          []string  `json:"signals" yaml:"signals"`
	MatchScore       int       `json:"match_score" yaml:"match_score"`
	MatchExplanation string    `json:"match_explanation" yaml:"match_explanation"`
	Sources          []Source  `json:"sources" yaml:"sources"`
	GeneratedAt      time.Time `json:"generated_at" yaml:"generated_at"`
}

// SearchFilters are the facet selections stored with a saved search.
type SearchFilters struct {
	Stages     []string `json:"stages"`
	Industries []string `json:"industries"`
}

// SavedSearch is a named directory query a user can re-run.
type SavedSearch struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Name      string        `json:"name"`
	Query     string        `json:"query"`
	Filters   SearchFilters `json:"filters"`
	IsAI      bool          `json:"is_ai"`
	CreatedAt time.Time     `json:"created_at"`
}
