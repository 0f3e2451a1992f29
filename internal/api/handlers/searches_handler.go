package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vc-scout/backend/internal/companies"
	"github.com/vc-scout/backend/internal/directory"
	"github.com/vc-scout/backend/internal/enrichment"
	"github.com/vc-scout/backend/internal/middleware/identity"
	"github.com/vc-scout/backend/internal/searches"
)

type SearchHandler struct {
	searches    *searches.Service
	companies   *companies.Service
	enrichments *enrichment.Service
	pageSize    int
}

func NewSearchHandler(searches *searches.Service, companies *companies.Service, enrichments *enrichment.Service, pageSize int) *SearchHandler {
	return &SearchHandler{
		searches:    searches,
		companies:   companies,
		enrichments: enrichments,
		pageSize:    pageSize,
	}
}

func (h *SearchHandler) GetSearches(c *fiber.Ctx) error {
	all, err := h.searches.All(c.UserContext(), identity.UserID(c))
	if err != nil {
		return respondError(c, err, "Failed to fetch saved searches")
	}
	return c.JSON(all)
}

func (h *SearchHandler) SaveSearch(c *fiber.Ctx) error {
	var req struct {
		Name       string   `json:"name"`
		Query      string   `json:"query"`
		Stages     []string `json:"stages"`
		Industries []string `json:"industries"`
		IsAI       bool     `json:"isAi"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	saved, err := h.searches.Create(c.UserContext(), identity.UserID(c), searches.Draft{
		Name:       req.Name,
		Query:      req.Query,
		Stages:     req.Stages,
		Industries: req.Industries,
		IsAI:       req.IsAI,
	})
	if err != nil {
		return respondError(c, err, "Failed to save search")
	}
	return c.Status(fiber.StatusCreated).JSON(saved)
}

func (h *SearchHandler) DeleteSearch(c *fiber.Ctx) error {
	if err := h.searches.Delete(c.UserContext(), identity.UserID(c), c.Params("id")); err != nil {
		return respondError(c, err, "Failed to delete saved search")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RunSearch answers a saved search with the same view /directory would give
// for its query.
func (h *SearchHandler) RunSearch(c *fiber.Ctx) error {
	ctx := c.UserContext()
	owner := identity.UserID(c)

	saved, err := h.searches.Get(ctx, owner, c.Params("id"))
	if err != nil {
		return respondError(c, err, "Failed to fetch saved search")
	}

	all, err := h.companies.ListCompanies(ctx)
	if err != nil {
		return respondError(c, err, "Failed to fetch companies")
	}
	scores, err := h.enrichments.Scores(ctx, owner)
	if err != nil {
		return respondError(c, err, "Failed to fetch match scores")
	}

	q := searches.Query(saved, c.QueryInt("page", 1), h.pageSize)
	return c.JSON(directory.Compute(all, scores, q))
}
