package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"paywave/internal/models"

	"github.com/shopspring/decimal"
)

// MemoryStore is a process-local Store with the same locking and atomicity
// contract as the postgres store. It backs the memory driver and the tests.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[uint]*models.User
	emails     map[string]uint
	accounts   map[uint]*models.Account // keyed by user id
	ledger     []models.Transaction
	nextUserID uint
	nextAcctID uint

	locksMu sync.Mutex
	locks   map[uint]chan struct{}

	now func() time.Time
}

type MemoryOption func(*MemoryStore)

// WithClock overrides the time source used for CreatedAt and UpdatedAt.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		users:    make(map[uint]*models.User),
		emails:   make(map[string]uint),
		accounts: make(map[uint]*models.Account),
		locks:    make(map[uint]chan struct{}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Accounts() AccountRepository { return &memoryAccounts{s: s} }
func (s *MemoryStore) Ledger() LedgerRepository    { return &memoryLedger{s: s} }
func (s *MemoryStore) Users() UserRepository       { return &memoryUsers{s: s} }

func (s *MemoryStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *MemoryStore) ExecuteInTransaction(ctx context.Context, fn func(tx Store) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	tx := &memoryTx{
		s:      s,
		held:   make(map[uint]chan struct{}),
		staged: make(map[uint]*models.Account),
	}
	defer tx.release()

	if err := fn(tx); err != nil {
		return err
	}
	// A caller that gave up must not see its effects land afterwards.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	tx.commit()
	return nil
}

func (s *MemoryStore) lockChan(userID uint) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	ch, ok := s.locks[userID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[userID] = ch
	}
	return ch
}

func (s *MemoryStore) account(userID uint) (*models.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[userID]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

// memoryTx stages account writes and ledger entries until commit. Locks it
// holds are released when the transaction ends either way.
type memoryTx struct {
	s       *MemoryStore
	held    map[uint]chan struct{}
	staged  map[uint]*models.Account
	entries []models.Transaction
}

func (tx *memoryTx) Accounts() AccountRepository { return &memoryAccounts{s: tx.s, tx: tx} }
func (tx *memoryTx) Ledger() LedgerRepository    { return &memoryLedger{s: tx.s, tx: tx} }
func (tx *memoryTx) Users() UserRepository       { return &memoryUsers{s: tx.s} }

func (tx *memoryTx) ExecuteInTransaction(ctx context.Context, fn func(tx Store) error) error {
	return fn(tx)
}

func (tx *memoryTx) Ping(ctx context.Context) error {
	return tx.s.Ping(ctx)
}

func (tx *memoryTx) acquire(ctx context.Context, userID uint) error {
	if _, ok := tx.held[userID]; ok {
		return nil
	}
	ch := tx.s.lockChan(userID)
	select {
	case ch <- struct{}{}:
		tx.held[userID] = ch
		return nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w: account %d", ErrLockTimeout, userID)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
}

func (tx *memoryTx) current(userID uint) (*models.Account, bool) {
	if a, ok := tx.staged[userID]; ok {
		return a.Clone(), true
	}
	return tx.s.account(userID)
}

func (tx *memoryTx) commit() {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	for userID, a := range tx.staged {
		tx.s.accounts[userID] = a
	}
	tx.s.ledger = append(tx.s.ledger, tx.entries...)
}

func (tx *memoryTx) release() {
	for id, ch := range tx.held {
		<-ch
		delete(tx.held, id)
	}
}

type memoryAccounts struct {
	s  *MemoryStore
	tx *memoryTx
}

func (r *memoryAccounts) GetByUserID(ctx context.Context, userID uint) (*models.Account, error) {
	var (
		a  *models.Account
		ok bool
	)
	if r.tx != nil {
		a, ok = r.tx.current(userID)
	} else {
		a, ok = r.s.account(userID)
	}
	if !ok {
		return nil, ErrAccountNotFound
	}
	return a, nil
}

func (r *memoryAccounts) ApplyDelta(ctx context.Context, userID uint, delta, minBalance decimal.Decimal) (*models.Account, error) {
	if r.tx == nil {
		var out *models.Account
		err := r.s.ExecuteInTransaction(ctx, func(tx Store) error {
			if _, err := tx.Accounts().LockForUpdate(ctx, userID); err != nil {
				return err
			}
			var err error
			out, err = tx.Accounts().ApplyDelta(ctx, userID, delta, minBalance)
			return err
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	a, ok := r.tx.current(userID)
	if !ok {
		return nil, ErrAccountNotFound
	}
	if _, locked := r.tx.held[userID]; !locked {
		return nil, ErrAccountNotLocked
	}

	next := a.Balance.Add(delta)
	if next.LessThan(minBalance) {
		return nil, ErrInsufficientFunds
	}
	a.Balance = next
	a.UpdatedAt = r.s.now().UTC()
	r.tx.staged[userID] = a
	return a.Clone(), nil
}

func (r *memoryAccounts) LockForUpdate(ctx context.Context, userIDs ...uint) (map[uint]*models.Account, error) {
	if r.tx == nil {
		return nil, ErrNotInTransaction
	}

	locked := make(map[uint]*models.Account, len(userIDs))
	for _, id := range sortedUnique(userIDs) {
		if _, ok := r.s.account(id); !ok {
			continue
		}
		if err := r.tx.acquire(ctx, id); err != nil {
			return nil, err
		}
		// Re-read under the lock; the pre-lock copy may be stale.
		a, _ := r.tx.current(id)
		locked[id] = a
	}
	return locked, nil
}

func (r *memoryAccounts) Create(ctx context.Context, account *models.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.accounts[account.UserID]; exists {
		return ErrDuplicateAccount
	}
	r.s.nextAcctID++
	account.ID = r.s.nextAcctID
	now := r.s.now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	r.s.accounts[account.UserID] = account.Clone()
	return nil
}

type memoryLedger struct {
	s  *MemoryStore
	tx *memoryTx
}

func (r *memoryLedger) Append(ctx context.Context, entry *models.Transaction) (string, error) {
	if r.tx == nil {
		var id string
		err := r.s.ExecuteInTransaction(ctx, func(tx Store) error {
			var err error
			id, err = tx.Ledger().Append(ctx, entry)
			return err
		})
		return id, err
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.s.now().UTC()
	}
	prepareEntry(entry)

	stored := *entry
	stored.Sender, stored.Receiver = nil, nil
	r.tx.entries = append(r.tx.entries, stored)
	return entry.ID, nil
}

func (r *memoryLedger) ListForUser(ctx context.Context, userID uint, page, pageSize int) ([]models.Transaction, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	// Walk newest insertion first so the stable sort breaks CreatedAt ties
	// in favour of the later write.
	var matched []models.Transaction
	for i := len(r.s.ledger) - 1; i >= 0; i-- {
		e := r.s.ledger[i]
		if e.SenderID == userID || e.ReceiverID == userID {
			matched = append(matched, e)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start < 0 || start >= len(matched) || pageSize <= 0 {
		return []models.Transaction{}, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	out := make([]models.Transaction, 0, end-start)
	for _, e := range matched[start:end] {
		e.Sender = r.s.userCopy(e.SenderID)
		e.Receiver = r.s.userCopy(e.ReceiverID)
		out = append(out, e)
	}
	return out, total, nil
}

// userCopy expects s.mu to be held.
func (s *MemoryStore) userCopy(id uint) *models.User {
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

type memoryUsers struct {
	s *MemoryStore
}

func (r *memoryUsers) FindByID(ctx context.Context, id uint) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if u := r.s.userCopy(id); u != nil {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func (r *memoryUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.emails[models.NormalizeEmail(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	return r.s.userCopy(id), nil
}

func (r *memoryUsers) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user.Email = models.NormalizeEmail(user.Email)
	if _, taken := r.s.emails[user.Email]; taken {
		return ErrEmailTaken
	}
	if user.ID == 0 {
		r.s.nextUserID++
		user.ID = r.s.nextUserID
	} else if _, exists := r.s.users[user.ID]; exists {
		return fmt.Errorf("user %d already exists", user.ID)
	} else if user.ID > r.s.nextUserID {
		r.s.nextUserID = user.ID
	}
	if user.Role == "" {
		user.Role = models.RoleClient
	}
	now := r.s.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	cp := *user
	r.s.users[user.ID] = &cp
	r.s.emails[user.Email] = user.ID
	return nil
}
