package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/vc-scout/backend/internal/companies"
	"github.com/vc-scout/backend/internal/directory"
	"github.com/vc-scout/backend/internal/enrichment"
	"github.com/vc-scout/backend/internal/metrics"
	"github.com/vc-scout/backend/internal/middleware/identity"
	"github.com/vc-scout/backend/internal/storage/models"
)

type CompanyHandler struct {
	companies   *companies.Service
	enrichments *enrichment.Service
	pageSize    int
}

func NewCompanyHandler(companies *companies.Service, enrichments *enrichment.Service, pageSize int) *CompanyHandler {
	return &CompanyHandler{
		companies:   companies,
		enrichments: enrichments,
		pageSize:    pageSize,
	}
}

func (h *CompanyHandler) ListCompanies(c *fiber.Ctx) error {
	all, err := h.companies.ListCompanies(c.UserContext())
	if err != nil {
		return respondError(c, err, "Failed to fetch companies")
	}
	return c.JSON(all)
}

type companyDetail struct {
	models.Company
	MatchScore *int                     `json:"match_score"`
	Enrichment *models.EnrichmentResult `json:"enrichment"`
}

// GetCompany returns one company merged with the caller's cached enrichment.
func (h *CompanyHandler) GetCompany(c *fiber.Ctx) error {
	ctx := c.UserContext()

	company, err := h.companies.GetCompany(ctx, c.Params("id"))
	if err != nil {
		return respondError(c, err, "Failed to fetch company")
	}

	detail := companyDetail{Company: *company}
	cached, err := h.enrichments.Cached(ctx, identity.UserID(c), company.ID)
	switch {
	case err == nil:
		detail.Enrichment = cached
		detail.MatchScore = &cached.MatchScore
	case !isNotFound(err):
		return respondError(c, err, "Failed to fetch enrichment")
	}

	return c.JSON(detail)
}

// Directory serves the filtered, ranked and paginated discovery view.
func (h *CompanyHandler) Directory(c *fiber.Ctx) error {
	start := time.Now()
	ctx := c.UserContext()

	q := h.parseQuery(c)

	all, err := h.companies.ListCompanies(ctx)
	if err != nil {
		return respondError(c, err, "Failed to fetch companies")
	}
	scores, err := h.enrichments.Scores(ctx, identity.UserID(c))
	if err != nil {
		return respondError(c, err, "Failed to fetch match scores")
	}

	view := directory.Compute(all, scores, q)

	mode := string(q.Mode)
	if mode == "" {
		mode = string(directory.SearchLiteral)
	}
	metrics.DirectoryQueryDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	metrics.DirectoryResultsCount.Observe(float64(view.Total))

	return c.JSON(view)
}

func (h *CompanyHandler) parseQuery(c *fiber.Ctx) directory.Query {
	q := directory.DefaultQuery()
	q.PageSize = h.pageSize

	q.Search = c.Query("q")
	if mode := c.Query("mode"); mode != "" {
		q.Mode = directory.SearchMode(mode)
	}
	if c.QueryBool("ai") {
		q.Mode = directory.SearchSemantic
	}
	q.Stages = splitList(c.Query("stages"))
	q.Industries = splitList(c.Query("industries"))
	q.MinSignal = c.QueryInt("min_signal", 0)
	q.MinHeadcount = c.QueryInt("min_headcount", 0)
	if c.Context().QueryArgs().Has("sort") {
		q.SortKey = directory.SortKey(c.Query("sort"))
		q.Direction = ""
	}
	if dir := c.Query("dir"); dir != "" {
		q.Direction = directory.Direction(dir)
	}
	q.Page = c.QueryInt("page", 1)
	return q
}

func (h *CompanyHandler) GetNotes(c *fiber.Ctx) error {
	notes, err := h.companies.Notes(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Failed to fetch notes")
	}
	return c.JSON(fiber.Map{
		"notes": notes,
	})
}

func (h *CompanyHandler) SaveNotes(c *fiber.Ctx) error {
	var req struct {
		Notes string `json:"notes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	if err := h.companies.SetNotes(c.UserContext(), c.Params("id"), req.Notes); err != nil {
		return respondError(c, err, "Failed to save notes")
	}
	return c.JSON(fiber.Map{
		"success": true,
	})
}

// splitList parses a comma separated filter value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
