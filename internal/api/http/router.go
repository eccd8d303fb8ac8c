package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/order-tagger/internal/api/http/handlers"
	"github.com/spec-kit/order-tagger/internal/auth"
	"github.com/spec-kit/order-tagger/internal/config"
	"github.com/spec-kit/order-tagger/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	AutoLogin *handlers.AutoLoginHandler
	Sessions  *handlers.SessionHandler
	Dashboard *handlers.DashboardHandler
	Session   *auth.SessionMiddleware
	Metrics   *observability.Metrics
	Routes    config.RoutesConfig
	RateLimit config.RateLimitConfig
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	limit := RateLimit(cfg.RateLimit)

	app.Get("/auto-login", limit, cfg.AutoLogin.AutoLogin)
	app.Get(cfg.Routes.LoginPath, cfg.Sessions.LoginPage)
	app.Post(cfg.Routes.LoginPath, limit, cfg.Sessions.Login)
	app.Post("/logout", cfg.Sessions.Logout)

	app.Get(cfg.Routes.LandingPath, cfg.Session.Load, cfg.Session.RequireSession, cfg.Dashboard.Show)
}
