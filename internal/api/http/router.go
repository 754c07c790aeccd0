package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/preston-56/lms-backend/internal/api/http/handlers"
	"github.com/preston-56/lms-backend/internal/auth"
	"github.com/preston-56/lms-backend/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Scheduler      *handlers.SchedulerHandler
	Diagnostics    *handlers.DiagnosticsHandler
	Reports        *handlers.ReportsHandler
	Notifications  *handlers.NotificationsHandler
	Email          *handlers.EmailHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	v1 := app.Group("/v1")
	v1.Post("/auth/login", cfg.Auth.Login)

	protected := v1.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/auth/me", cfg.Auth.Me)
	protected.Get("/notifications", cfg.Notifications.Mine)
	protected.Post("/email", auth.RequireRole(domain.RoleAdmin, domain.RoleInstructor), cfg.Email.Send)

	admin := protected.Group("/admin", auth.RequireAdmin())
	admin.Post("/scheduler/run-notifications", cfg.Scheduler.Trigger)
	admin.Get("/scheduler/status", cfg.Scheduler.Status)
	admin.Post("/scheduler/control", cfg.Scheduler.Control)
	admin.Post("/diagnostics", cfg.Diagnostics.Run)
	admin.Get("/reports", cfg.Reports.List)
	admin.Get("/reports/latest", cfg.Reports.Latest)
	admin.Get("/reports/:name", cfg.Reports.Get)
	admin.Get("/notifications", cfg.Notifications.List)
	admin.Post("/notifications", cfg.Notifications.Create)
}
