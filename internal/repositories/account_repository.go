package repositories

import (
	"context"
	"errors"
	"paywave/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrDuplicateAccount  = errors.New("account already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotInTransaction  = errors.New("operation requires an open transaction")
	ErrAccountNotLocked  = errors.New("account must be locked before it is mutated")
	ErrLockTimeout       = errors.New("timed out waiting for account lock")
	ErrUnavailable       = errors.New("storage unavailable")
)

// AccountRepository is the account store. Balances change only through
// ApplyDelta, and inside a transaction only after LockForUpdate.
type AccountRepository interface {
	// GetByUserID returns a detached copy of the user's account.
	GetByUserID(ctx context.Context, userID uint) (*models.Account, error)

	// ApplyDelta adds delta to the balance unless the result would fall below
	// minBalance, in which case it returns ErrInsufficientFunds and changes nothing.
	ApplyDelta(ctx context.Context, userID uint, delta, minBalance decimal.Decimal) (*models.Account, error)

	// LockForUpdate locks the accounts of userIDs in ascending id order for the
	// rest of the enclosing transaction. Missing accounts are absent from the map.
	LockForUpdate(ctx context.Context, userIDs ...uint) (map[uint]*models.Account, error)

	// Create is used by registration and seeding, never by the transfer engine.
	Create(ctx context.Context, account *models.Account) error
}

// LedgerRepository is the append-only transfer record.
type LedgerRepository interface {
	// Append stores entry, assigning ID and CreatedAt when unset. No dedup.
	Append(ctx context.Context, entry *models.Transaction) (string, error)

	// ListForUser returns one page of entries the user sent or received,
	// newest first, and the total number of such entries.
	ListForUser(ctx context.Context, userID uint, page, pageSize int) ([]models.Transaction, int64, error)
}

// Store groups the repositories that must change together. ExecuteInTransaction
// is the atomic unit: every effect made through the tx Store becomes visible
// at once when fn returns nil, and none do otherwise.
type Store interface {
	Accounts() AccountRepository
	Ledger() LedgerRepository
	Users() UserRepository
	ExecuteInTransaction(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
