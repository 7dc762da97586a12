package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger is anything the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	database Pinger
	redis    Pinger
	version  string
}

// NewHealthHandler builds the handler; redis may be nil when the rate
// limiter runs in memory.
func NewHealthHandler(database, redis Pinger, version string) *HealthHandler {
	return &HealthHandler{database: database, redis: redis, version: version}
}

// HealthCheck reports 503 when the database is unreachable. Redis being down
// only degrades the status since the limiter fails open.
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := "ok"
	code := fiber.StatusOK
	services := fiber.Map{"database": "connected"}

	if err := h.database.Ping(ctx); err != nil {
		services["database"] = "unavailable"
		status = "unavailable"
		code = fiber.StatusServiceUnavailable
	}
	if h.redis != nil {
		services["redis"] = "connected"
		if err := h.redis.Ping(ctx); err != nil {
			services["redis"] = "unavailable"
			if code == fiber.StatusOK {
				status = "degraded"
			}
		}
	}

	return c.Status(code).JSON(fiber.Map{
		"status":   status,
		"version":  h.version,
		"services": services,
	})
}
