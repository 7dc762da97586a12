package wallet

import (
	"context"
	"errors"
	"time"

	apperrors "paywave/internal/errors"
	"paywave/internal/repositories"
	"paywave/internal/utils/pagination"

	"go.uber.org/zap"
)

const (
	operationGetBalance       = "get_balance"
	operationListTransactions = "list_transactions"
)

type service struct {
	store   repositories.Store
	logger  *zap.Logger
	metrics MetricsCollector
}

// NewService creates a new wallet service
func NewService(store repositories.Store, logger *zap.Logger, metrics MetricsCollector) Service {
	if store == nil {
		panic("store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	// Metrics is optional, create no-op collector if nil
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}

	return &service{
		store:   store,
		logger:  logger.Named("wallet"),
		metrics: metrics,
	}
}

func (s *service) GetBalance(ctx context.Context, userID uint) (*Balance, error) {
	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration(operationGetBalance, time.Since(start)) }()

	account, err := s.store.Accounts().GetByUserID(ctx, userID)
	if err != nil {
		return nil, s.fail(operationGetBalance, userID, err)
	}

	s.metrics.RecordOperationResult(operationGetBalance, "success")
	return &Balance{Amount: account.Balance, UpdatedAt: account.UpdatedAt}, nil
}

func (s *service) ListTransactions(ctx context.Context, userID uint, page, limit int) (*TransactionPage, error) {
	start := time.Now()
	defer func() { s.metrics.RecordOperationDuration(operationListTransactions, time.Since(start)) }()

	p := pagination.New(page, limit)
	entries, total, err := s.store.Ledger().ListForUser(ctx, userID, p.Page, p.Limit)
	if err != nil {
		return nil, s.fail(operationListTransactions, userID, err)
	}

	s.metrics.RecordOperationResult(operationListTransactions, "success")
	return &TransactionPage{
		Entries: entries,
		Page:    p.Page,
		Limit:   p.Limit,
		Total:   total,
		Pages:   pagination.TotalPages(total, p.Limit),
	}, nil
}

func (s *service) fail(operation string, userID uint, err error) error {
	if errors.Is(err, repositories.ErrAccountNotFound) {
		s.metrics.RecordOperationResult(operation, apperrors.ErrAccountNotFound.Code)
		return apperrors.ErrAccountNotFound
	}

	s.metrics.RecordOperationResult(operation, apperrors.ErrEngineUnavailable.Code)
	s.logger.Error("wallet read failed",
		zap.String("operation", operation),
		zap.Uint("user_id", userID),
		zap.Error(err),
	)
	return apperrors.ErrEngineUnavailable.WithCause(err)
}
