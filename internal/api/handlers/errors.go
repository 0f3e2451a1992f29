package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/vc-scout/backend/internal/enrichment"
	"github.com/vc-scout/backend/internal/export"
	"github.com/vc-scout/backend/internal/lists"
	"github.com/vc-scout/backend/internal/searches"
	"github.com/vc-scout/backend/internal/storage/models"
	"github.com/vc-scout/backend/internal/users"
	"github.com/vc-scout/backend/pkg/circuitbreaker"
	"github.com/vc-scout/backend/pkg/logger"
)

// statusFor maps service errors onto HTTP statuses. Anything unrecognised is
// an internal error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, lists.ErrInvalidName),
		errors.Is(err, lists.ErrInvalidCompany),
		errors.Is(err, searches.ErrInvalidName),
		errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, enrichment.ErrThesisRequired),
		errors.Is(err, enrichment.ErrWebsiteRequired),
		errors.Is(err, users.ErrInvalidEmail),
		errors.Is(err, users.ErrPasswordRequired):
		return fiber.StatusBadRequest
	case errors.Is(err, users.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrAlreadyExists),
		errors.Is(err, enrichment.ErrSuperseded):
		return fiber.StatusConflict
	case errors.Is(err, enrichment.ErrEnrichmentFailed),
		errors.Is(err, circuitbreaker.ErrCircuitOpen),
		errors.Is(err, circuitbreaker.ErrTooManyRequests):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes err as a JSON error body. Client errors carry the
// error text; server errors are logged and answered with fallback.
func respondError(c *fiber.Ctx, err error, fallback string) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		logger.Error(fallback,
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		msg := fallback
		if status == fiber.StatusBadGateway {
			msg = err.Error()
		}
		return c.Status(status).JSON(fiber.Map{
			"error": msg,
		})
	}

	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func badBody(c *fiber.Ctx, err error) error {
	logger.Error("Failed to parse request body", zap.Error(err))
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Invalid request body",
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}
