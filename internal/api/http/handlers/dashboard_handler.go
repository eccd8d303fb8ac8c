package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/order-tagger/internal/api/dto"
	"github.com/spec-kit/order-tagger/internal/auth"
	apperrors "github.com/spec-kit/order-tagger/pkg/util"
)

// DashboardHandler serves the protected landing route.
type DashboardHandler struct{}

// NewDashboardHandler constructs handler.
func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

// Show handles GET /dashboard.
func (h *DashboardHandler) Show(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}
	noStore(c)
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"session":   dto.NewSessionResponse(sess),
			"autologin": c.Query("autologin") == "success",
		},
	})
}
