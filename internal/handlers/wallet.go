package handlers

import (
	"paywave/internal/models"
	"paywave/internal/services/wallet"
	"paywave/internal/utils"
	"paywave/internal/utils/pagination"
	"paywave/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type WalletHandler struct {
	walletService wallet.Service
}

func NewWalletHandler(walletService wallet.Service) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// GetBalance handles GET /api/wallet/balance.
func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}

	bal, err := h.walletService.GetBalance(c.UserContext(), claims.UserID)
	if err != nil {
		return response.DomainError(c, err)
	}

	return response.Success(c, BalanceResponse{
		Balance:   models.FormatAmount(bal.Amount),
		UpdatedAt: bal.UpdatedAt,
	})
}

// ListTransactions handles GET /api/transactions?page&limit.
func (h *WalletHandler) ListTransactions(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return response.Unauthorized(c, "invalid claims")
	}

	p := pagination.ParseFromRequest(c)
	page, err := h.walletService.ListTransactions(c.UserContext(), claims.UserID, p.Page, p.Limit)
	if err != nil {
		return response.DomainError(c, err)
	}

	items := make([]TransactionResponse, 0, len(page.Entries))
	for i := range page.Entries {
		items = append(items, newLedgerItem(&page.Entries[i], claims.UserID))
	}

	return response.Success(c, fiber.Map{
		"transactions": items,
		"pagination": pagination.Meta{
			Page:  page.Page,
			Limit: page.Limit,
			Total: page.Total,
			Pages: page.Pages,
		},
	})
}
