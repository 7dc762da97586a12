package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"paywave/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, s *MemoryStore, email, role, balance string) *models.User {
	t.Helper()
	ctx := context.Background()
	u := &models.User{Name: email, Email: email, Role: role}
	require.NoError(t, s.Users().Create(ctx, u))
	require.NoError(t, s.Accounts().Create(ctx, &models.Account{
		UserID:  u.ID,
		Balance: decimal.RequireFromString(balance),
	}))
	return u
}

func balanceOf(t *testing.T, s Store, userID uint) string {
	t.Helper()
	a, err := s.Accounts().GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	return a.Balance.StringFixed(2)
}

func TestMemoryStore_CommitIsAtomic(t *testing.T) {
	s := NewMemoryStore()
	alice := seedUser(t, s, "alice@example.com", models.RoleClient, "100")
	bob := seedUser(t, s, "bob@example.com", models.RoleClient, "0")
	ctx := context.Background()

	err := s.ExecuteInTransaction(ctx, func(tx Store) error {
		_, err := tx.Accounts().LockForUpdate(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		_, err = tx.Accounts().ApplyDelta(ctx, alice.ID, decimal.NewFromInt(-40), decimal.Zero)
		require.NoError(t, err)
		_, err = tx.Accounts().ApplyDelta(ctx, bob.ID, decimal.NewFromInt(40), decimal.Zero)
		require.NoError(t, err)

		// Staged writes are visible inside the unit only.
		assert.Equal(t, "60.00", balanceOf(t, tx, alice.ID))
		assert.Equal(t, "100.00", balanceOf(t, s, alice.ID))

		_, err = tx.Ledger().Append(ctx, &models.Transaction{
			SenderID: alice.ID, ReceiverID: bob.ID,
			Amount: decimal.NewFromInt(40), Type: models.TransactionTypeP2PTransfer,
		})
		return err
	})
	require.NoError(t, err)

	assert.Equal(t, "60.00", balanceOf(t, s, alice.ID))
	assert.Equal(t, "40.00", balanceOf(t, s, bob.ID))

	entries, total, err := s.Ledger().ListForUser(ctx, bob.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.Equal(t, "alice@example.com", entries[0].Sender.Email)
	assert.Equal(t, models.TransactionStatusCompleted, entries[0].Status)
}

func TestMemoryStore_RollbackOnError(t *testing.T) {
	s := NewMemoryStore()
	alice := seedUser(t, s, "alice@example.com", models.RoleClient, "100")
	bob := seedUser(t, s, "bob@example.com", models.RoleClient, "0")
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.ExecuteInTransaction(ctx, func(tx Store) error {
		_, _ = tx.Accounts().LockForUpdate(ctx, alice.ID, bob.ID)
		_, _ = tx.Accounts().ApplyDelta(ctx, alice.ID, decimal.NewFromInt(-40), decimal.Zero)
		_, _ = tx.Accounts().ApplyDelta(ctx, bob.ID, decimal.NewFromInt(40), decimal.Zero)
		_, _ = tx.Ledger().Append(ctx, &models.Transaction{SenderID: alice.ID, ReceiverID: bob.ID, Amount: decimal.NewFromInt(40)})
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, "100.00", balanceOf(t, s, alice.ID))
	assert.Equal(t, "0.00", balanceOf(t, s, bob.ID))
	_, total, err := s.Ledger().ListForUser(ctx, alice.ID, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestMemoryStore_CancelledContextDiscardsEffects(t *testing.T) {
	s := NewMemoryStore()
	alice := seedUser(t, s, "alice@example.com", models.RoleClient, "100")
	ctx, cancel := context.WithCancel(context.Background())

	err := s.ExecuteInTransaction(ctx, func(tx Store) error {
		_, err := tx.Accounts().LockForUpdate(ctx, alice.ID)
		require.NoError(t, err)
		_, err = tx.Accounts().ApplyDelta(ctx, alice.ID, decimal.NewFromInt(-10), decimal.Zero)
		require.NoError(t, err)
		cancel()
		return nil
	})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, "100.00", balanceOf(t, s, alice.ID))
}

func TestMemoryStore_ApplyDeltaGuards(t *testing.T) {
	s := NewMemoryStore()
	alice := seedUser(t, s, "alice@example.com", models.RoleClient, "10")
	ctx := context.Background()

	t.Run("requires lock inside a transaction", func(t *testing.T) {
		err := s.ExecuteInTransaction(ctx, func(tx Store) error {
			_, err := tx.Accounts().ApplyDelta(ctx, alice.ID, decimal.NewFromInt(1), decimal.Zero)
			return err
		})
		assert.ErrorIs(t, err, ErrAccountNotLocked)
	})

	t.Run("lock outside a transaction is rejected", func(t *testing.T) {
		_, err := s.Accounts().LockForUpdate(ctx, alice.ID)
		assert.ErrorIs(t, err, ErrNotInTransaction)
	})

	t.Run("refuses to go below the floor", func(t *testing.T) {
		_, err := s.Accounts().ApplyDelta(ctx, alice.ID, decimal.RequireFromString("-10.01"), decimal.Zero)
		assert.ErrorIs(t, err, ErrInsufficientFunds)
		assert.Equal(t, "10.00", balanceOf(t, s, alice.ID))
	})

	t.Run("standalone delta commits", func(t *testing.T) {
		a, err := s.Accounts().ApplyDelta(ctx, alice.ID, decimal.RequireFromString("-10"), decimal.Zero)
		require.NoError(t, err)
		assert.True(t, a.Balance.IsZero())
	})

	t.Run("unknown account", func(t *testing.T) {
		_, err := s.Accounts().ApplyDelta(ctx, 999, decimal.NewFromInt(1), decimal.Zero)
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestMemoryStore_LockForUpdateSkipsMissingAccounts(t *testing.T) {
	s := NewMemoryStore()
	alice := seedUser(t, s, "alice@example.com", models.RoleClient, "10")
	ctx := context.Background()

	err := s.ExecuteInTransaction(ctx, func(tx Store) error {
		locked, err := tx.Accounts().LockForUpdate(ctx, 42, alice.ID, alice.ID)
		require.NoError(t, err)
		assert.Len(t, locked, 1)
		assert.Contains(t, locked, alice.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_LockWaitHonoursDeadline(t *testing.T) {
	s := NewMemoryStore()
	alice := seedUser(t, s, "alice@example.com", models.RoleClient, "10")

	holding := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.ExecuteInTransaction(context.Background(), func(tx Store) error {
			_, err := tx.Accounts().LockForUpdate(context.Background(), alice.ID)
			close(holding)
			<-done
			return err
		})
	}()
	<-holding
	defer close(done)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.ExecuteInTransaction(ctx, func(tx Store) error {
		_, err := tx.Accounts().LockForUpdate(ctx, alice.ID)
		return err
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.True(t, IsTransient(err))
}

func TestMemoryStore_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	s := NewMemoryStore()
	alice := seedUser(t, s, "alice@example.com", models.RoleClient, "90")
	ctx := context.Background()

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Accounts().ApplyDelta(ctx, alice.ID, decimal.NewFromInt(-10), decimal.Zero)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 9, succeeded)
	assert.Equal(t, "0.00", balanceOf(t, s, alice.ID))
}

func TestMemoryStore_ListForUserOrderingAndPaging(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	s := NewMemoryStore(WithClock(func() time.Time { return clock }))
	alice := seedUser(t, s, "alice@example.com", models.RoleClient, "100")
	bob := seedUser(t, s, "bob@example.com", models.RoleClient, "100")
	carol := seedUser(t, s, "carol@example.com", models.RoleClient, "100")
	ctx := context.Background()

	appendAt := func(at time.Time, from, to uint, desc string) {
		clock = at
		_, err := s.Ledger().Append(ctx, &models.Transaction{
			SenderID: from, ReceiverID: to, Amount: decimal.NewFromInt(1),
			Type: models.TransactionTypeP2PTransfer, Description: desc,
		})
		require.NoError(t, err)
	}
	appendAt(base, alice.ID, bob.ID, "first")
	appendAt(base.Add(time.Minute), bob.ID, alice.ID, "second")
	appendAt(base.Add(time.Minute), alice.ID, bob.ID, "tie-later")
	appendAt(base.Add(2*time.Minute), bob.ID, carol.ID, "not-alice")
	appendAt(base.Add(3*time.Minute), carol.ID, alice.ID, "newest")

	entries, total, err := s.Ledger().ListForUser(ctx, alice.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	var got []string
	for _, e := range entries {
		got = append(got, e.Description)
	}
	assert.Equal(t, []string{"newest", "tie-later", "second", "first"}, got)

	page2, total, err := s.Ledger().ListForUser(ctx, alice.ID, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, page2, 1)
	assert.Equal(t, "first", page2[0].Description)

	beyond, _, err := s.Ledger().ListForUser(ctx, alice.ID, 5, 3)
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestMemoryStore_Users(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	u := &models.User{Name: "Store", Email: "  Store@Example.com ", Role: models.RoleMerchant}
	require.NoError(t, s.Users().Create(ctx, u))
	assert.Equal(t, "store@example.com", u.Email)

	found, err := s.Users().FindByEmail(ctx, "STORE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.True(t, found.IsMerchant())

	err = s.Users().Create(ctx, &models.User{Name: "dup", Email: "store@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = s.Users().FindByID(ctx, 404)
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = s.Accounts().Create(ctx, &models.Account{UserID: u.ID})
	require.NoError(t, err)
	err = s.Accounts().Create(ctx, &models.Account{UserID: u.ID})
	assert.ErrorIs(t, err, ErrDuplicateAccount)
}
