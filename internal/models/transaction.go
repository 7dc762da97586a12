package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction types
const (
	TransactionTypeP2PTransfer     = "P2P_TRANSFER"
	TransactionTypeMerchantPayment = "MERCHANT_PAYMENT"
)

// Transaction statuses. Only COMPLETED rows are written today; the others are
// reserved for an attempt-logging ledger.
const (
	TransactionStatusCompleted = "COMPLETED"
	TransactionStatusFailed    = "FAILED"
	TransactionStatusPending   = "PENDING"
)

var ErrImmutableTransaction = errors.New("ledger entries are immutable")

// Transaction is one immutable ledger entry. It references both accounts by
// user id and owns neither.
type Transaction struct {
	ID          string          `gorm:"type:uuid;primaryKey"`
	SenderID    uint            `gorm:"index;not null"`
	ReceiverID  uint            `gorm:"index;not null"`
	Sender      *User           `gorm:"foreignKey:SenderID"`
	Receiver    *User           `gorm:"foreignKey:ReceiverID"`
	Amount      decimal.Decimal `gorm:"type:numeric(18,2);not null"`
	Type        string          `gorm:"not null"`
	Status      string          `gorm:"not null;default:'COMPLETED'"`
	Description string
	CreatedAt   time.Time `gorm:"index"`
}

// IsValidTransactionType reports whether t is a supported transfer kind.
func IsValidTransactionType(t string) bool {
	return t == TransactionTypeP2PTransfer || t == TransactionTypeMerchantPayment
}

// IsIncomingFor reports whether userID received the money in this entry.
func (t *Transaction) IsIncomingFor(userID uint) bool {
	return t.ReceiverID == userID
}

func (t *Transaction) BeforeUpdate(tx *gorm.DB) error {
	return ErrImmutableTransaction
}

func (t *Transaction) BeforeDelete(tx *gorm.DB) error {
	return ErrImmutableTransaction
}
