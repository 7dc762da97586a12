package wallet

import (
	"context"
	"fmt"
	"testing"
	"time"

	apperrors "paywave/internal/errors"
	"paywave/internal/models"
	"paywave/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Append(ctx context.Context, entry *models.Transaction) (string, error) {
	args := m.Called(ctx, entry)
	return args.String(0), args.Error(1)
}

func (m *MockLedger) ListForUser(ctx context.Context, userID uint, page, pageSize int) ([]models.Transaction, int64, error) {
	args := m.Called(ctx, userID, page, pageSize)
	entries, _ := args.Get(0).([]models.Transaction)
	return entries, args.Get(1).(int64), args.Error(2)
}

// storeWithLedger swaps the ledger of an otherwise real store.
type storeWithLedger struct {
	repositories.Store
	ledger repositories.LedgerRepository
}

func (s *storeWithLedger) Ledger() repositories.LedgerRepository { return s.ledger }

func seeded(t *testing.T, entries int) *repositories.MemoryStore {
	t.Helper()
	clock := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	store := repositories.NewMemoryStore(repositories.WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	for i, email := range []string{"john@example.com", "jane@example.com"} {
		u := &models.User{Name: email, Email: email}
		require.NoError(t, store.Users().Create(ctx, u))
		require.NoError(t, store.Accounts().Create(ctx, &models.Account{UserID: u.ID, Balance: decimal.NewFromInt(int64(1000 * (i + 1)))}))
	}
	for i := 0; i < entries; i++ {
		clock = clock.Add(time.Minute)
		from, to := uint(1), uint(2)
		if i%3 == 0 {
			from, to = 2, 1
		}
		_, err := store.Ledger().Append(ctx, &models.Transaction{
			SenderID: from, ReceiverID: to, Amount: decimal.NewFromInt(1),
			Type: models.TransactionTypeP2PTransfer, Description: fmt.Sprintf("entry-%d", i),
		})
		require.NoError(t, err)
	}
	return store
}

func TestWalletService_GetBalance(t *testing.T) {
	svc := NewService(seeded(t, 0), nil, nil)

	t.Run("successful balance fetch", func(t *testing.T) {
		bal, err := svc.GetBalance(context.Background(), 2)
		require.NoError(t, err)
		assert.Equal(t, "2000.00", models.FormatAmount(bal.Amount))
		assert.False(t, bal.UpdatedAt.IsZero())
	})

	t.Run("missing account", func(t *testing.T) {
		_, err := svc.GetBalance(context.Background(), 77)
		assert.ErrorIs(t, err, apperrors.ErrAccountNotFound)
		assert.False(t, apperrors.IsRetryable(err))
	})
}

func TestWalletService_ListTransactions(t *testing.T) {
	svc := NewService(seeded(t, 23), nil, nil)
	ctx := context.Background()

	tests := []struct {
		name        string
		page, limit int
		wantPage    int
		wantLimit   int
		wantLen     int
		wantPages   int
	}{
		{"defaults", 0, 0, 1, 10, 10, 3},
		{"last partial page", 3, 10, 3, 10, 3, 3},
		{"limit capped", 1, 200, 1, 50, 23, 1},
		{"beyond the end", 9, 10, 9, 10, 0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.ListTransactions(ctx, 1, tt.page, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, page.Page)
			assert.Equal(t, tt.wantLimit, page.Limit)
			assert.Equal(t, int64(23), page.Total)
			assert.Equal(t, tt.wantPages, page.Pages)
			assert.Len(t, page.Entries, tt.wantLen)
		})
	}

	t.Run("newest first", func(t *testing.T) {
		page, err := svc.ListTransactions(ctx, 1, 1, 2)
		require.NoError(t, err)
		require.Len(t, page.Entries, 2)
		assert.Equal(t, "entry-22", page.Entries[0].Description)
		assert.True(t, page.Entries[0].CreatedAt.After(page.Entries[1].CreatedAt))
	})
}

func TestWalletService_ReadsAreIdempotent(t *testing.T) {
	store := seeded(t, 5)
	svc := NewService(store, nil, nil)
	ctx := context.Background()

	first, err := svc.ListTransactions(ctx, 2, 1, 10)
	require.NoError(t, err)
	firstBal, err := svc.GetBalance(ctx, 2)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		again, err := svc.ListTransactions(ctx, 2, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, first, again)

		bal, err := svc.GetBalance(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, firstBal, bal)
	}
}

func TestWalletService_LedgerUnavailable(t *testing.T) {
	ledger := new(MockLedger)
	ledger.On("ListForUser", mock.Anything, uint(1), 1, 10).
		Return(nil, int64(0), fmt.Errorf("failed to count ledger entries: %w", repositories.ErrUnavailable))

	svc := NewService(&storeWithLedger{Store: seeded(t, 0), ledger: ledger}, nil, nil)
	_, err := svc.ListTransactions(context.Background(), 1, 1, 10)

	assert.ErrorIs(t, err, apperrors.ErrEngineUnavailable)
	assert.True(t, apperrors.IsRetryable(err))
	ledger.AssertExpectations(t)
}
