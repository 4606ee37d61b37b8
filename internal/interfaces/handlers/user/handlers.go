package user

import (
	usersvc "findonlu-backend/internal/application/user"
	"findonlu-backend/internal/middleware"
	"findonlu-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers serves the signed-in user's own views.
type Handlers struct {
	Service *usersvc.Service
}

// MyPosts GET /api/v1/me/posts
func (h *Handlers) MyPosts(c *fiber.Ctx) error {
	out, err := h.Service.MyPosts(c.UserContext(), middleware.CurrentSession(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Your posts fetched successfully", out, nil)
}

// Dashboard GET /api/v1/dashboard
func (h *Handlers) Dashboard(c *fiber.Ctx) error {
	d, err := h.Service.Dashboard(c.UserContext(), middleware.CurrentSession(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Dashboard fetched successfully", d, nil)
}
