package handlers

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/order-tagger/internal/api/dto"
	"github.com/spec-kit/order-tagger/internal/config"
	"github.com/spec-kit/order-tagger/internal/service"
	apperrors "github.com/spec-kit/order-tagger/pkg/util"
)

// SessionHandler exposes password login and logout.
type SessionHandler struct {
	auth    *service.AuthService
	cookies CookieSettings
	routes  config.RoutesConfig
}

// NewSessionHandler constructs handler.
func NewSessionHandler(authService *service.AuthService, cookies CookieSettings, routes config.RoutesConfig) *SessionHandler {
	return &SessionHandler{auth: authService, cookies: cookies, routes: routes}
}

// LoginPage handles GET /login. Unknown error codes are ignored.
func (h *SessionHandler) LoginPage(c *fiber.Ctx) error {
	resp := dto.LoginPageResponse{Methods: []string{"password", "auto-login"}}
	if code, ok := apperrors.ParseLoginErrorCode(c.Query("error")); ok {
		resp.Error = &dto.LoginError{Code: string(code), Message: code.Message()}
	}
	return c.JSON(fiber.Map{"data": resp})
}

// Login handles POST /login.
func (h *SessionHandler) Login(c *fiber.Ctx) error {
	noStore(c)

	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return apperrors.NewValidationError("username and password required", nil)
	}

	sess, err := h.auth.Login(c.UserContext(), req.Username, req.Password, c.Cookies(h.cookies.Name))
	switch {
	case err == nil:
		h.cookies.set(c, sess)
		return c.Redirect(h.routes.LandingPath, fiber.StatusFound)
	case errors.Is(err, service.ErrInvalidCredentials):
		return h.loginError(c, apperrors.LoginErrInvalidCredentials)
	case errors.Is(err, service.ErrSessionUnavailable):
		return h.loginError(c, apperrors.LoginErrSessionError)
	default:
		return h.loginError(c, apperrors.LoginErrSystemError)
	}
}

// Logout handles POST /logout.
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.UserContext(), c.Cookies(h.cookies.Name)); err != nil {
		return apperrors.NewInternalError(err)
	}
	h.cookies.clear(c)
	return c.Redirect(h.routes.LoginPath, fiber.StatusFound)
}

func (h *SessionHandler) loginError(c *fiber.Ctx, code apperrors.LoginErrorCode) error {
	return c.Redirect(h.routes.LoginPath+"?error="+url.QueryEscape(string(code)), fiber.StatusFound)
}
