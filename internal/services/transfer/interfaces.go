package transfer

import (
	"context"
	"paywave/internal/models"
)

// NotificationService is told about completed transfers.
type NotificationService interface {
	SendTransferNotification(ctx context.Context, userID uint, tx *models.Transaction) error
}

// Service handles P2P money transfers and merchant payments.
type Service interface {
	Transfer(ctx context.Context, req Request) (*models.Transaction, error)
}
