package handlers

import (
	stderrors "errors"

	"paywave/internal/errors"
	"paywave/internal/services/ratelimit"
	"paywave/internal/utils/response"
	"paywave/internal/utils/validation"

	"github.com/gofiber/fiber/v2"
)

// RateLimitHandler lets collaborators such as the auth service consult a
// named policy, e.g. "auth" before checking a password.
type RateLimitHandler struct {
	registry  *ratelimit.Registry
	validator *validation.Validator
}

func NewRateLimitHandler(registry *ratelimit.Registry, v *validation.Validator) *RateLimitHandler {
	return &RateLimitHandler{registry: registry, validator: v}
}

// Check handles POST /api/ratelimit/check.
func (h *RateLimitHandler) Check(c *fiber.Ctx) error {
	var req RateLimitCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return response.DomainError(c, errors.ErrInvalidRequest.WithMessage("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return response.DomainError(c, err)
	}

	allowed, err := h.registry.CheckRateLimit(c.UserContext(), req.Identity, req.Policy)
	if err != nil {
		if stderrors.Is(err, ratelimit.ErrUnknownPolicy) {
			return response.DomainError(c, errors.ErrInvalidRequest.WithMessage("unknown policy %q", req.Policy))
		}
		return response.DomainError(c, errors.ErrEngineUnavailable.WithCause(err))
	}

	return response.Success(c, fiber.Map{"allowed": allowed})
}
