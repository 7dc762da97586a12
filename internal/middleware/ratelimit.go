package middleware

import (
	"paywave/internal/errors"
	"paywave/internal/services/ratelimit"
	"paywave/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

// RateLimit consumes one unit of policy for the client before anything else
// runs. Requests over budget get a 429 and never reach validation.
func RateLimit(registry *ratelimit.Registry, policy string, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx) error {
		// Header values alias fasthttp's request buffer, which is reused
		// once the handler returns; the identity outlives it as a map key.
		identity := ratelimit.ClientIdentity(fiberutils.CopyString(c.Get(fiber.HeaderXForwardedFor)), fiberutils.CopyString(c.IP()))

		allowed, err := registry.CheckRateLimit(c.UserContext(), identity, policy)
		if err != nil {
			// Misconfiguration, not client behaviour.
			logger.Error("rate limit check failed", zap.String("policy", policy), zap.Error(err))
			return c.Next()
		}
		if !allowed {
			logger.Info("rate limited",
				zap.String("policy", policy),
				zap.String("identity", identity),
				zap.String("path", c.Path()),
			)
			return response.DomainError(c, errors.ErrRateLimited)
		}
		return c.Next()
	}
}
