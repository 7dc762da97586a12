package transfer

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "paywave/internal/errors"
	"paywave/internal/models"
	"paywave/internal/repositories"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const operationTransfer = "transfer"

// service implements the transfer Service interface.
type service struct {
	store    repositories.Store
	config   Config
	logger   *zap.Logger
	metrics  MetricsCollector
	notifier NotificationService
}

// NewService creates a new transfer service instance. logger, metrics and
// notifier may be nil.
func NewService(store repositories.Store, config Config, logger *zap.Logger, metrics MetricsCollector, notifier NotificationService) Service {
	if store == nil {
		panic("store is required")
	}

	defaults := DefaultConfig()
	if !config.MaxAmount.IsPositive() {
		config.MaxAmount = defaults.MaxAmount
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}

	return &service{
		store:    store,
		config:   config,
		logger:   logger.Named("transfer"),
		metrics:  metrics,
		notifier: notifier,
	}
}

// Transfer moves req.Amount from the sender's account to the receiver's and
// records one ledger entry. Either all three effects happen or none do.
func (s *service) Transfer(ctx context.Context, req Request) (*models.Transaction, error) {
	start := time.Now()
	if req.Kind == "" {
		req.Kind = models.TransactionTypeP2PTransfer
	}

	tx, err := s.transfer(ctx, req)

	s.metrics.RecordOperationDuration(operationTransfer, time.Since(start))
	if err != nil {
		de, ok := apperrors.As(err)
		if !ok {
			de = apperrors.ErrEngineUnavailable.WithCause(err)
		}
		s.metrics.RecordOperationResult(operationTransfer, de.Code)
		s.logFailure(req, de)
		return nil, de
	}

	s.metrics.RecordOperationResult(operationTransfer, "success")
	s.metrics.RecordTransactionVolume(tx.Type, tx.Amount)
	s.logger.Info("transfer completed",
		zap.String("transaction_id", tx.ID),
		zap.Uint("sender_id", tx.SenderID),
		zap.Uint("receiver_id", tx.ReceiverID),
		zap.String("amount", models.FormatAmount(tx.Amount)),
		zap.String("type", tx.Type),
	)

	s.notify(ctx, tx)
	return tx, nil
}

func (s *service) transfer(ctx context.Context, req Request) (*models.Transaction, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	receiver, err := s.resolveReceiver(ctx, req.Receiver)
	if err != nil {
		return nil, err
	}
	if receiver.ID == req.SenderID {
		return nil, apperrors.ErrSelfTransferNotAllowed
	}
	if req.Kind == models.TransactionTypeMerchantPayment && !receiver.IsMerchant() {
		return nil, apperrors.ErrInvalidReceiverRole
	}

	sender, err := s.loadSender(ctx, req.SenderID)
	if err != nil {
		return nil, err
	}
	senderAccount, err := s.store.Accounts().GetByUserID(ctx, req.SenderID)
	if err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return nil, apperrors.ErrSenderAccountMissing
		}
		return nil, unavailable(err)
	}
	if senderAccount.Balance.LessThan(req.Amount) {
		return nil, apperrors.ErrInsufficientFunds
	}

	entry := &models.Transaction{
		SenderID:    req.SenderID,
		ReceiverID:  receiver.ID,
		Amount:      req.Amount,
		Type:        req.Kind,
		Status:      models.TransactionStatusCompleted,
		Description: strings.TrimSpace(req.Description),
	}

	err = s.store.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		return s.apply(ctx, tx, entry)
	})
	if err != nil {
		return nil, mapStoreError(err)
	}

	entry.Sender = sender
	entry.Receiver = receiver
	return entry, nil
}

// apply runs inside the atomic unit. The balance seen before the lock may be
// stale, so funds are checked again once both rows are held.
func (s *service) apply(ctx context.Context, tx repositories.Store, entry *models.Transaction) error {
	locked, err := tx.Accounts().LockForUpdate(ctx, entry.SenderID, entry.ReceiverID)
	if err != nil {
		return err
	}
	from, ok := locked[entry.SenderID]
	if !ok {
		return apperrors.ErrSenderAccountMissing
	}
	if _, ok := locked[entry.ReceiverID]; !ok {
		return apperrors.ErrReceiverNotFound
	}
	if from.Balance.LessThan(entry.Amount) {
		return apperrors.ErrInsufficientFunds
	}

	if _, err := tx.Accounts().ApplyDelta(ctx, entry.SenderID, entry.Amount.Neg(), decimal.Zero); err != nil {
		return err
	}
	if _, err := tx.Accounts().ApplyDelta(ctx, entry.ReceiverID, entry.Amount, decimal.Zero); err != nil {
		return err
	}
	_, err = tx.Ledger().Append(ctx, entry)
	return err
}

func (s *service) validateRequest(req Request) error {
	if !req.Amount.IsPositive() {
		return apperrors.ErrInvalidAmount.WithMessage("amount must be greater than zero")
	}
	// Checked before any comparison; comparing rescales to the wider exponent.
	if !models.InAmountRange(req.Amount) {
		return apperrors.ErrInvalidAmount.WithMessage("amount is out of range")
	}
	if req.Amount.GreaterThan(s.config.MaxAmount) {
		return apperrors.ErrInvalidAmount.WithMessage("amount must not exceed %s", models.FormatAmount(s.config.MaxAmount))
	}
	if !models.HasMoneyScale(req.Amount) {
		return apperrors.ErrInvalidAmount.WithMessage("amount must have at most %d decimal places", models.AmountScale)
	}
	if strings.TrimSpace(req.Receiver) == "" {
		return apperrors.ErrInvalidReceiver
	}
	if !models.IsValidTransactionType(req.Kind) {
		return apperrors.ErrInvalidTransferKind.WithMessage("unsupported transfer type %q", req.Kind)
	}
	if utf8.RuneCountInString(req.Description) > MaxDescriptionLength {
		return apperrors.ErrInvalidRequest.WithMessage("description must be at most %d characters", MaxDescriptionLength)
	}
	return nil
}

// resolveReceiver accepts an email address (case-insensitive) or a numeric
// user id. A user without an account cannot receive money.
func (s *service) resolveReceiver(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)

	var (
		user *models.User
		err  error
	)
	if strings.Contains(identifier, "@") {
		user, err = s.store.Users().FindByEmail(ctx, identifier)
	} else {
		id, perr := strconv.ParseUint(identifier, 10, 0)
		if perr != nil || id == 0 {
			return nil, apperrors.ErrInvalidReceiver
		}
		user, err = s.store.Users().FindByID(ctx, uint(id))
	}
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrReceiverNotFound
		}
		return nil, unavailable(err)
	}

	if _, err := s.store.Accounts().GetByUserID(ctx, user.ID); err != nil {
		if errors.Is(err, repositories.ErrAccountNotFound) {
			return nil, apperrors.ErrReceiverNotFound
		}
		return nil, unavailable(err)
	}
	return user, nil
}

func (s *service) loadSender(ctx context.Context, senderID uint) (*models.User, error) {
	user, err := s.store.Users().FindByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrSenderAccountMissing
		}
		return nil, unavailable(err)
	}
	return user, nil
}

func (s *service) notify(ctx context.Context, tx *models.Transaction) {
	if s.notifier == nil {
		return
	}
	for _, userID := range []uint{tx.SenderID, tx.ReceiverID} {
		if err := s.notifier.SendTransferNotification(ctx, userID, tx); err != nil {
			s.logger.Warn("transfer notification failed",
				zap.String("transaction_id", tx.ID),
				zap.Uint("user_id", userID),
				zap.Error(err),
			)
		}
	}
}

func (s *service) logFailure(req Request, de *apperrors.DomainError) {
	fields := []zap.Field{
		zap.Uint("sender_id", req.SenderID),
		zap.String("receiver", req.Receiver),
		zap.String("amount", req.Amount.String()),
		zap.String("type", req.Kind),
		zap.String("code", de.Code),
	}
	if de.Retryable() {
		s.logger.Error("transfer failed", append(fields, zap.Error(de.Cause))...)
		return
	}
	s.logger.Info("transfer rejected", fields...)
}

// mapStoreError turns whatever escaped the atomic unit into a DomainError.
func mapStoreError(err error) error {
	if de, ok := apperrors.As(err); ok {
		return de
	}
	if errors.Is(err, repositories.ErrInsufficientFunds) {
		return apperrors.ErrInsufficientFunds
	}
	return unavailable(err)
}

func unavailable(err error) error {
	return apperrors.ErrEngineUnavailable.WithCause(err)
}
