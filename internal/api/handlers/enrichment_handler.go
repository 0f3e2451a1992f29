package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vc-scout/backend/internal/enrichment"
	"github.com/vc-scout/backend/internal/middleware/identity"
)

type EnrichmentHandler struct {
	enrichments *enrichment.Service
}

func NewEnrichmentHandler(enrichments *enrichment.Service) *EnrichmentHandler {
	return &EnrichmentHandler{
		enrichments: enrichments,
	}
}

// Enrich runs a live enrichment and returns the stored result. A request
// overtaken by a newer one for the same company answers 409.
func (h *EnrichmentHandler) Enrich(c *fiber.Ctx) error {
	var req struct {
		CompanyID string `json:"companyId"`
		Website   string `json:"website"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	result, err := h.enrichments.Enrich(c.UserContext(), identity.UserID(c), req.CompanyID, req.Website)
	if err != nil {
		return respondError(c, err, "Failed to enrich company")
	}
	return c.JSON(result)
}

func (h *EnrichmentHandler) GetCached(c *fiber.Ctx) error {
	result, err := h.enrichments.Cached(c.UserContext(), identity.UserID(c), c.Params("companyId"))
	if err != nil {
		return respondError(c, err, "Failed to fetch enrichment")
	}
	return c.JSON(result)
}

func (h *EnrichmentHandler) ListCached(c *fiber.Ctx) error {
	all, err := h.enrichments.All(c.UserContext(), identity.UserID(c))
	if err != nil {
		return respondError(c, err, "Failed to fetch enrichments")
	}
	return c.JSON(all)
}
