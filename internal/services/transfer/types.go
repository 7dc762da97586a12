package transfer

import (
	"time"

	"github.com/shopspring/decimal"
)

// Default configuration values
const (
	DefaultTimeout        = 5 * time.Second
	MaxDescriptionLength  = 255
	defaultMaxAmountUnits = 10000
)

// Request is one transfer attempt. Receiver is an email address or a
// numeric user id. An empty Kind means P2P_TRANSFER.
type Request struct {
	SenderID    uint
	Receiver    string
	Amount      decimal.Decimal
	Kind        string
	Description string
}

type Config struct {
	MaxAmount decimal.Decimal
	Timeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAmount: decimal.NewFromInt(defaultMaxAmountUnits),
		Timeout:   DefaultTimeout,
	}
}

// MetricsCollector defines the interface for collecting transfer metrics
type MetricsCollector interface {
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation, result string)
	RecordTransactionVolume(txType string, amount decimal.Decimal)
}
