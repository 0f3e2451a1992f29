// Package identity resolves the calling user for owner-scoped routes.
//
// Sessions are handled by the front end; the API trusts the user id it is
// given as long as it names a registered user.
package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/vc-scout/backend/internal/storage/models"
)

const (
	HeaderUserID = "X-User-ID"
	// QueryUserID is accepted where headers cannot be set, e.g. browser
	// websocket handshakes.
	QueryUserID = "user_id"

	localsKey = "identity.user"
)

type UserLookup interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

type Config struct {
	Users  UserLookup
	Logger *zap.Logger
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(HeaderUserID))
		if id == "" {
			id = strings.TrimSpace(c.Query(QueryUserID))
		}
		if id == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		user, err := cfg.Users.Get(c.UserContext(), id)
		if errors.Is(err, models.ErrNotFound) {
			cfg.Logger.Debug("Unknown user id", zap.String("user_id", id), zap.String("ip", c.IP()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		if err != nil {
			cfg.Logger.Error("Failed to resolve user", zap.String("user_id", id), zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Internal server error",
			})
		}

		c.Locals(localsKey, user)
		return c.Next()
	}
}

// User returns the user resolved by Middleware, or nil.
func User(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localsKey).(*models.User)
	return user
}

// UserID returns the resolved user's id, or "".
func UserID(c *fiber.Ctx) string {
	if user := User(c); user != nil {
		return user.ID
	}
	return ""
}
