package repositories

import (
	"context"
	"errors"
	"fmt"
	"paywave/internal/models"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type accountRepository struct {
	db   *gorm.DB
	inTx bool
}

// NewAccountRepository creates a gorm-backed AccountRepository outside any transaction.
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) GetByUserID(ctx context.Context, userID uint) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", classify(err))
	}
	return &account, nil
}

func (r *accountRepository) ApplyDelta(ctx context.Context, userID uint, delta, minBalance decimal.Decimal) (*models.Account, error) {
	// The guard lives in the WHERE clause so the check and the write are one statement.
	result := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("user_id = ? AND balance + ? >= ?", userID, delta, minBalance).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update balance: %w", classify(result.Error))
	}

	if result.RowsAffected == 0 {
		if _, err := r.GetByUserID(ctx, userID); err != nil {
			return nil, err
		}
		return nil, ErrInsufficientFunds
	}

	return r.GetByUserID(ctx, userID)
}

func (r *accountRepository) LockForUpdate(ctx context.Context, userIDs ...uint) (map[uint]*models.Account, error) {
	if !r.inTx {
		return nil, ErrNotInTransaction
	}

	locked := make(map[uint]*models.Account, len(userIDs))
	// One statement per row, in ascending order, so lock acquisition order is
	// fixed regardless of the plan postgres picks.
	for _, id := range sortedUnique(userIDs) {
		var account models.Account
		err := r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", id).
			First(&account).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "55P03" {
				return nil, fmt.Errorf("%w: account %d", ErrLockTimeout, id)
			}
			return nil, fmt.Errorf("failed to lock account: %w", classify(err))
		}
		locked[id] = &account
	}
	return locked, nil
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateAccount
		}
		return fmt.Errorf("failed to create account: %w", classify(err))
	}
	return nil
}
