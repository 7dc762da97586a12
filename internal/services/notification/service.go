package notification

import (
	"context"

	"paywave/internal/models"

	"go.uber.org/zap"
)

// Service is a minimal notification service implementation. It writes one
// structured log line per recipient; a mail or push sender can replace it.
type Service struct {
	logger *zap.Logger
}

// NewService creates a new notification service.
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger.Named("notification")}
}

// SendTransferNotification logs a transfer notification.
func (s *Service) SendTransferNotification(ctx context.Context, userID uint, tx *models.Transaction) error {
	direction := "sent"
	if tx.IsIncomingFor(userID) {
		direction = "received"
	}
	s.logger.Info("notify user of transfer",
		zap.Uint("user_id", userID),
		zap.String("transaction_id", tx.ID),
		zap.String("direction", direction),
		zap.String("amount", models.FormatAmount(tx.Amount)),
	)
	return nil
}
