package handlers

import (
	"paywave/internal/errors"
	"paywave/internal/services/transfer"
	"paywave/internal/utils"
	"paywave/internal/utils/response"
	"paywave/internal/utils/validation"

	"github.com/gofiber/fiber/v2"
)

// TransferHandler exposes P2P transfer and merchant payment endpoints.
type TransferHandler struct {
	service   transfer.Service
	validator *validation.Validator
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(s transfer.Service, v *validation.Validator) *TransferHandler {
	return &TransferHandler{service: s, validator: v}
}

// Transfer handles POST /api/wallet/transfer requests.
func (h *TransferHandler) Transfer(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}

	var req TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return response.DomainError(c, errors.ErrInvalidRequest.WithMessage("invalid request body"))
	}
	if err := h.validator.Struct(req); err != nil {
		return response.DomainError(c, err)
	}

	tx, err := h.service.Transfer(c.UserContext(), transfer.Request{
		SenderID:    claims.UserID,
		Receiver:    req.receiverIdentifier(),
		Amount:      req.Amount,
		Kind:        req.Type,
		Description: req.Description,
	})
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, fiber.Map{
		"message":     "Transfer completed successfully",
		"transaction": newTransactionResponse(tx),
	})
}
