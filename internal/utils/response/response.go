package response

import (
	stderrors "errors"

	apperrors "paywave/internal/errors"
	"paywave/internal/utils/validation"

	"github.com/gofiber/fiber/v2"
)

func Success(c *fiber.Ctx, data interface{}) error {
	return c.JSON(data)
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func Unauthorized(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusUnauthorized, message)
}

func ServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}

// ValidationError reports every failed field with a 400.
func ValidationError(c *fiber.Ctx, errs validation.Errors) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":  "validation failed",
		"code":   apperrors.ErrInvalidRequest.Code,
		"fields": errs,
	})
}

// StatusFor maps a DomainError to its HTTP status.
func StatusFor(de *apperrors.DomainError) int {
	switch de.Category {
	case apperrors.CategoryInput:
		return fiber.StatusBadRequest
	case apperrors.CategoryBusiness:
		if de.Is(apperrors.ErrReceiverNotFound) || de.Is(apperrors.ErrSenderAccountMissing) || de.Is(apperrors.ErrAccountNotFound) {
			return fiber.StatusNotFound
		}
		return fiber.StatusUnprocessableEntity
	case apperrors.CategoryInfrastructure:
		return fiber.StatusServiceUnavailable
	case apperrors.CategoryAbuse:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

// DomainError writes err as {error, code, retryable}. Errors outside the
// taxonomy become a bare 500.
func DomainError(c *fiber.Ctx, err error) error {
	var verrs validation.Errors
	if stderrors.As(err, &verrs) {
		return ValidationError(c, verrs)
	}

	de, ok := apperrors.As(err)
	if !ok {
		return ServerError(c, "internal server error")
	}
	if de.Retryable() {
		c.Set(fiber.HeaderRetryAfter, "1")
	}
	// Causes stay in the logs.
	return c.Status(StatusFor(de)).JSON(fiber.Map{
		"error":     de.Message,
		"code":      de.Code,
		"retryable": de.Retryable(),
	})
}
