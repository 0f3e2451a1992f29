package handlers

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vc-scout/backend/internal/enrichment"
	"github.com/vc-scout/backend/internal/export"
	"github.com/vc-scout/backend/internal/lists"
	"github.com/vc-scout/backend/internal/middleware/identity"
	"github.com/vc-scout/backend/internal/storage/models"
)

type ListHandler struct {
	lists       *lists.Service
	enrichments *enrichment.Service
}

func NewListHandler(lists *lists.Service, enrichments *enrichment.Service) *ListHandler {
	return &ListHandler{
		lists:       lists,
		enrichments: enrichments,
	}
}

func (h *ListHandler) GetLists(c *fiber.Ctx) error {
	all, err := h.lists.All(c.UserContext(), identity.UserID(c))
	if err != nil {
		return respondError(c, err, "Failed to fetch lists")
	}
	return c.JSON(all)
}

func (h *ListHandler) CreateList(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	list, err := h.lists.Create(c.UserContext(), identity.UserID(c), req.Name)
	if err != nil {
		return respondError(c, err, "Failed to create list")
	}
	return c.Status(fiber.StatusCreated).JSON(list)
}

func (h *ListHandler) GetList(c *fiber.Ctx) error {
	list, err := h.lists.Get(c.UserContext(), identity.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Failed to fetch list")
	}
	return c.JSON(list)
}

// UpdateList renames the list and/or replaces its members. Absent fields are
// left unchanged.
func (h *ListHandler) UpdateList(c *fiber.Ctx) error {
	var req struct {
		Name      *string   `json:"name"`
		Companies *[]string `json:"companies"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	ctx := c.UserContext()
	owner := identity.UserID(c)
	id := c.Params("id")

	var (
		list *models.List
		err  error
	)
	if req.Name != nil {
		if list, err = h.lists.Rename(ctx, owner, id, *req.Name); err != nil {
			return respondError(c, err, "Failed to update list")
		}
	}
	if req.Companies != nil {
		if list, err = h.lists.SetCompanies(ctx, owner, id, *req.Companies); err != nil {
			return respondError(c, err, "Failed to update list")
		}
	}
	if list == nil {
		if list, err = h.lists.Get(ctx, owner, id); err != nil {
			return respondError(c, err, "Failed to fetch list")
		}
	}
	return c.JSON(list)
}

func (h *ListHandler) DeleteList(c *fiber.Ctx) error {
	if err := h.lists.Delete(c.UserContext(), identity.UserID(c), c.Params("id")); err != nil {
		return respondError(c, err, "Failed to delete list")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ListHandler) ToggleCompany(c *fiber.Ctx) error {
	var req struct {
		CompanyID string `json:"companyId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	list, added, err := h.lists.ToggleMembership(c.UserContext(), identity.UserID(c), c.Params("id"), req.CompanyID)
	if err != nil {
		return respondError(c, err, "Failed to update list")
	}
	return c.JSON(fiber.Map{
		"list":  list,
		"added": added,
	})
}

// ExportList streams the list's companies, with the caller's cached
// enrichment, as a file download.
func (h *ListHandler) ExportList(c *fiber.Ctx) error {
	ctx := c.UserContext()
	owner := identity.UserID(c)

	format, err := export.ParseFormat(c.Query("format", string(export.FormatCSV)))
	if err != nil {
		return respondError(c, err, "Failed to export list")
	}

	list, err := h.lists.Get(ctx, owner, c.Params("id"))
	if err != nil {
		return respondError(c, err, "Failed to fetch list")
	}
	enrichments, err := h.enrichments.All(ctx, owner)
	if err != nil {
		return respondError(c, err, "Failed to fetch enrichments")
	}

	var buf bytes.Buffer
	if err := h.lists.Export(ctx, owner, list.ID, format, enrichments, &buf); err != nil {
		return respondError(c, err, "Failed to export list")
	}

	c.Set(fiber.HeaderContentType, format.ContentType())
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.%s"`, exportName(list.Name), format.Extension()))
	return c.Send(buf.Bytes())
}

// exportName lowercases the list name and replaces characters that are
// awkward in a filename with underscores.
func exportName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '"', '/', '\\':
			return '_'
		}
		return r
	}, strings.ToLower(strings.TrimSpace(name)))
	if name == "" {
		return "list"
	}
	return name
}
