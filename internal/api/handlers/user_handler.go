package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vc-scout/backend/internal/middleware/identity"
	"github.com/vc-scout/backend/internal/users"
)

type UserHandler struct {
	users *users.Service
}

func NewUserHandler(users *users.Service) *UserHandler {
	return &UserHandler{
		users: users,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) Register(c *fiber.Ctx) error {
	var req credentials
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	user, err := h.users.Register(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err, "Failed to register user")
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *UserHandler) Login(c *fiber.Ctx) error {
	var req credentials
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	user, err := h.users.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err, "Failed to log in")
	}
	return c.JSON(user)
}

func (h *UserHandler) GetThesis(c *fiber.Ctx) error {
	thesis, err := h.users.Thesis(c.UserContext(), identity.UserID(c))
	if err != nil {
		return respondError(c, err, "Failed to fetch thesis")
	}
	return c.JSON(fiber.Map{
		"thesis": thesis,
	})
}

func (h *UserHandler) SaveThesis(c *fiber.Ctx) error {
	var req struct {
		Thesis string `json:"thesis"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}

	thesis, err := h.users.SaveThesis(c.UserContext(), identity.UserID(c), req.Thesis)
	if err != nil {
		return respondError(c, err, "Failed to save thesis")
	}
	return c.JSON(fiber.Map{
		"success": true,
		"thesis":  thesis,
	})
}
