package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/incident-api/internal/config"
	"github.com/noah-isme/incident-api/internal/utils"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger func(ctx context.Context) error

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Service      string            `json:"service"`
	Environment  string            `json:"environment"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// HealthCheck returns a handler that reports application health information.
// Any failing dependency turns the response into a 503.
func HealthCheck(cfg config.Config, deps map[string]Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}

		if len(deps) > 0 {
			payload.Dependencies = make(map[string]string, len(deps))
			for name, ping := range deps {
				ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
				err := ping(ctx)
				cancel()
				if err != nil {
					payload.Status = "degraded"
					payload.Dependencies[name] = "down"
					continue
				}
				payload.Dependencies[name] = "up"
			}
		}

		if payload.Status != "ok" {
			return utils.Fail(c, fiber.StatusServiceUnavailable, "service degraded", payload)
		}

		return utils.SendSuccess(c, "service healthy", fiber.Map{
			"status":       payload.Status,
			"timestamp":    payload.Timestamp,
			"service":      payload.Service,
			"environment":  payload.Environment,
			"dependencies": payload.Dependencies,
		})
	}
}
