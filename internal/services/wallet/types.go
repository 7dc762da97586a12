package wallet

import (
	"time"

	"paywave/internal/models"

	"github.com/shopspring/decimal"
)

// Balance is an account balance with its last-modified time.
type Balance struct {
	Amount    decimal.Decimal
	UpdatedAt time.Time
}

// TransactionPage is one page of a user's ledger, newest first.
type TransactionPage struct {
	Entries []models.Transaction
	Page    int
	Limit   int
	Total   int64
	Pages   int
}

// MetricsCollector defines the interface for collecting wallet metrics
type MetricsCollector interface {
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation, result string)
}
