package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/order-tagger/internal/config"
	"github.com/spec-kit/order-tagger/internal/service"
)

// AutoLoginHandler exposes the cross-application login endpoint.
type AutoLoginHandler struct {
	autoLogin *service.AutoLoginService
	cookies   CookieSettings
	routes    config.RoutesConfig
}

// NewAutoLoginHandler constructs handler.
func NewAutoLoginHandler(autoLogin *service.AutoLoginService, cookies CookieSettings, routes config.RoutesConfig) *AutoLoginHandler {
	return &AutoLoginHandler{autoLogin: autoLogin, cookies: cookies, routes: routes}
}

// AutoLogin handles GET /auto-login?token=...
func (h *AutoLoginHandler) AutoLogin(c *fiber.Ctx) error {
	noStore(c)

	result := h.autoLogin.Establish(c.UserContext(), service.AutoLoginRequest{
		Token:            c.Query("token"),
		CurrentSessionID: c.Cookies(h.cookies.Name),
	})

	switch result.State {
	case service.StateComplete:
		h.cookies.set(c, result.Session)
		return c.Redirect(h.routes.LandingPath+"?autologin=success", fiber.StatusFound)
	case service.StateAlreadyAuthenticated:
		return c.Redirect(h.routes.LandingPath, fiber.StatusFound)
	default:
		return c.Redirect(h.routes.LoginPath+"?error="+url.QueryEscape(string(result.Code)), fiber.StatusFound)
	}
}
