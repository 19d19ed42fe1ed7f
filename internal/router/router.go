package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/incident-api/internal/config"
	"github.com/noah-isme/incident-api/internal/handler"
	"github.com/noah-isme/incident-api/internal/observability"
	"github.com/noah-isme/incident-api/internal/utils"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler        *handler.AuthHandler
	ReportHandler      *handler.ReportHandler
	AdminReportHandler *handler.AdminReportHandler
	JWTMiddleware      fiber.Handler
	HealthChecks       map[string]handler.Pinger
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks))

	// Gated routes fail closed when no verifier is configured.
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusUnauthorized, "authentication unavailable")
		}
	}

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api)
	}

	if deps.ReportHandler != nil {
		deps.ReportHandler.Register(api)
	}

	if deps.AdminReportHandler != nil {
		deps.AdminReportHandler.Register(api, jwtMiddleware)
	}
}
