package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/studyflow-api/internal/config"
	"github.com/noah-isme/studyflow-api/internal/handler"
	"github.com/noah-isme/studyflow-api/internal/middleware"
	"github.com/noah-isme/studyflow-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssignmentHandler *handler.AssignmentHandler
	DashboardHandler  *handler.DashboardHandler
	LiveHandler       *handler.LiveHandler
	ConnectionHandler *handler.ConnectionHandler
	SyncHandler       *handler.SyncHandler
	HealthProbes      map[string]handler.HealthProbe
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	// Use provided JWT middleware, or a no-op if nil
	protect := deps.JWTMiddleware
	if protect == nil {
		protect = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(api.Group("/assignments", protect))
	}
	if deps.DashboardHandler != nil {
		deps.DashboardHandler.Register(api.Group("/dashboard", protect))
	}
	if deps.LiveHandler != nil {
		deps.LiveHandler.Register(api.Group("/live", protect))
	}
	if deps.ConnectionHandler != nil {
		deps.ConnectionHandler.Register(api.Group("/connections", protect))
	}
	if deps.SyncHandler != nil {
		deps.SyncHandler.Register(api.Group("/sync", protect, middleware.RateLimit("sync", cfg.SyncRateLimit, time.Minute)))
	}
}
