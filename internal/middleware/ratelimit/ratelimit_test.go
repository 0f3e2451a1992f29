package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(rl *RateLimiter) *fiber.App {
	app := fiber.New()
	app.Use(rl.Middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func do(t *testing.T, app *fiber.App, user string) int {
	t.Helper()
	req := httptest.NewRequest("GET", "/", nil)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestLimitsPerUser(t *testing.T) {
	rl := New(Config{MaxRequestsPerMinute: 2})
	defer rl.Stop()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	app := newApp(rl)

	assert.Equal(t, fiber.StatusOK, do(t, app, "u1"))
	assert.Equal(t, fiber.StatusOK, do(t, app, "u1"))
	assert.Equal(t, fiber.StatusTooManyRequests, do(t, app, "u1"))
	assert.Equal(t, fiber.StatusOK, do(t, app, "u2"), "buckets are per user")

	now = now.Add(30 * time.Second)
	assert.Equal(t, fiber.StatusOK, do(t, app, "u1"), "one token refills every 30s")
	assert.Equal(t, fiber.StatusTooManyRequests, do(t, app, "u1"))
}

func TestKeyFuncSeparatesCallersBehindOneIP(t *testing.T) {
	rl := New(Config{
		MaxRequestsPerMinute: 1,
		KeyFunc: func(c *fiber.Ctx) string {
			user, _ := c.Locals("user").(string)
			return user
		},
	})
	defer rl.Stop()

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", c.Query("user_id"))
		return c.Next()
	})
	app.Use(rl.Middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	get := func(query string) int {
		resp, err := app.Test(httptest.NewRequest("GET", "/"+query, nil))
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, get("?user_id=u1"))
	assert.Equal(t, fiber.StatusOK, get("?user_id=u2"), "resolved user, not the shared IP, owns the bucket")
	assert.Equal(t, fiber.StatusTooManyRequests, get("?user_id=u1"))
	assert.Equal(t, fiber.StatusOK, get(""), "anonymous callers share the IP bucket")
	assert.Equal(t, fiber.StatusTooManyRequests, get(""))
}

func TestStopIsIdempotent(t *testing.T) {
	rl := New(Config{})
	rl.Stop()
	rl.Stop()
}
