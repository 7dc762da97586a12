package wallet

import "context"

// Service defines the wallet read operations
type Service interface {
	GetBalance(ctx context.Context, userID uint) (*Balance, error)
	ListTransactions(ctx context.Context, userID uint, page, limit int) (*TransactionPage, error)
}
