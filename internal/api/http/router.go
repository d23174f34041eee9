package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lazytech/jjc-console/internal/api/http/handlers"
	"github.com/lazytech/jjc-console/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Session        *handlers.SessionHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")
	api.Post("/auth/login", cfg.Session.Login)
	api.Post("/auth/employee/login", cfg.Session.EmployeeLogin)
	api.Post("/auth/logout", cfg.Session.Logout)

	api.Get("/session", cfg.Session.State)
	api.Post("/session/notice/dismiss", cfg.Session.DismissNotice)
	api.Post("/preferences/dark-mode", cfg.Session.ToggleDarkMode)

	protected := api.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/me", cfg.Session.Me)
}
