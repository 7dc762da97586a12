package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the single wallet balance a user holds. Balance never goes
// negative; the accounts table carries a CHECK constraint as a backstop.
type Account struct {
	ID        uint            `gorm:"primarykey"`
	UserID    uint            `gorm:"uniqueIndex;not null"`
	Balance   decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0;check:balance_non_negative,balance >= 0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a detached copy so callers cannot mutate shared state.
func (a *Account) Clone() *Account {
	cp := *a
	return &cp
}
