package handlers

import (
	"time"

	"paywave/internal/models"

	"github.com/shopspring/decimal"
)

// TransferRequest is the body of POST /api/wallet/transfer. Amount accepts a
// JSON number or a string; receiverEmail wins over receiver when both are set.
type TransferRequest struct {
	ReceiverEmail string          `json:"receiverEmail" validate:"omitempty,email"`
	Receiver      string          `json:"receiver"`
	Amount        decimal.Decimal `json:"amount"`
	Type          string          `json:"type"`
	Description   string          `json:"description" validate:"max=255"`
}

func (r TransferRequest) receiverIdentifier() string {
	if r.ReceiverEmail != "" {
		return r.ReceiverEmail
	}
	return r.Receiver
}

type TransactionResponse struct {
	ID          string              `json:"id"`
	Amount      string              `json:"amount"`
	Type        string              `json:"type"`
	Status      string              `json:"status"`
	Description string              `json:"description"`
	Sender      *models.UserSummary `json:"sender"`
	Receiver    *models.UserSummary `json:"receiver"`
	CreatedAt   time.Time           `json:"createdAt"`
	IsIncoming  *bool               `json:"isIncoming,omitempty"`
}

func newTransactionResponse(tx *models.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          tx.ID,
		Amount:      models.FormatAmount(tx.Amount),
		Type:        tx.Type,
		Status:      tx.Status,
		Description: tx.Description,
		Sender:      tx.Sender.Summary(),
		Receiver:    tx.Receiver.Summary(),
		CreatedAt:   tx.CreatedAt,
	}
}

// newLedgerItem is newTransactionResponse seen from viewerID's side.
func newLedgerItem(tx *models.Transaction, viewerID uint) TransactionResponse {
	resp := newTransactionResponse(tx)
	incoming := tx.IsIncomingFor(viewerID)
	resp.IsIncoming = &incoming
	return resp
}

type BalanceResponse struct {
	Balance   string    `json:"balance"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type RateLimitCheckRequest struct {
	Identity string `json:"identity" validate:"required"`
	Policy   string `json:"policy" validate:"required"`
}
