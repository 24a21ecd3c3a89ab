// Package memory is a non-durable wallet store for tests and local runs.
// It keeps the locking contract of the PostgreSQL store: a locked read
// holds the wallet exclusively until the owning transaction ends, and
// writes become visible only on commit.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrLockNotHeld is returned when a write is attempted without the wallet lock.
var ErrLockNotHeld = errors.New("wallet lock not held by transaction")

// errForeignTx is returned when a pgx.Tx from another backend is passed in.
var errForeignTx = errors.New("transaction was not started by the memory store")

// Store implements ports.WalletRepository, ports.DBTransactor and
// ports.HealthChecker in process memory.
type Store struct {
	mu      sync.Mutex
	wallets map[uuid.UUID]domain.Wallet
	locks   map[uuid.UUID]chan struct{}

	lockTimeout time.Duration
	now         func() time.Time
}

// NewStore creates an empty store. A zero lockTimeout waits until the
// caller's context ends.
func NewStore(lockTimeout time.Duration) *Store {
	return &Store{
		wallets:     make(map[uuid.UUID]domain.Wallet),
		locks:       make(map[uuid.UUID]chan struct{}),
		lockTimeout: lockTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{
		store:  s,
		held:   make(map[uuid.UUID]bool),
		staged: make(map[uuid.UUID]domain.Wallet),
	}, nil
}

// Create stages a new wallet; it becomes visible to others on commit.
func (s *Store) Create(ctx context.Context, tx pgx.Tx, balance int64) (*domain.Wallet, error) {
	t, err := s.ownTx(tx)
	if err != nil {
		return nil, err
	}
	if balance < domain.MinBalance {
		return nil, fmt.Errorf("insert wallet: %w", domain.ErrInsufficientBalance)
	}

	now := s.now()
	w := domain.Wallet{
		ID:        uuid.New(),
		Balance:   balance,
		CreatedAt: now,
		UpdatedAt: now,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, pgx.ErrTxClosed
	}
	t.staged[w.ID] = w
	return &w, nil
}

// GetByID returns the last committed state of a wallet without locking.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[id]
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	return &w, nil
}

// GetByIDForUpdate acquires the wallet's exclusive lock for tx and returns
// its current state. It blocks while another transaction holds the lock.
func (s *Store) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	t, err := s.ownTx(tx)
	if err != nil {
		return nil, err
	}

	if w, ok := t.lookup(id); ok {
		return &w, nil
	}

	lock, ok := s.lockFor(id)
	if !ok {
		return nil, domain.ErrWalletNotFound
	}
	if err := s.acquire(ctx, lock); err != nil {
		return nil, fmt.Errorf("get wallet for update by id: %w", err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		<-lock
		return nil, pgx.ErrTxClosed
	}
	t.held[id] = true
	t.mu.Unlock()

	s.mu.Lock()
	w := s.wallets[id]
	s.mu.Unlock()
	return &w, nil
}

// UpdateBalance stages a new balance. tx must hold the wallet lock.
func (s *Store) UpdateBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance int64) (*domain.Wallet, error) {
	t, err := s.ownTx(tx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if balance < domain.MinBalance {
		return nil, fmt.Errorf("update wallet balance: %w", domain.ErrInsufficientBalance)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, pgx.ErrTxClosed
	}

	w, staged := t.staged[id]
	if !staged {
		if !t.held[id] {
			return nil, fmt.Errorf("update wallet balance %s: %w", id, ErrLockNotHeld)
		}
		s.mu.Lock()
		w = s.wallets[id]
		s.mu.Unlock()
	}
	w.Balance = balance
	w.UpdatedAt = s.now()
	t.staged[id] = w
	return &w, nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Name returns the dependency name.
func (s *Store) Name() string {
	return "memory"
}

func (s *Store) ownTx(tx pgx.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t.store != s {
		return nil, errForeignTx
	}
	return t, nil
}

// lockFor returns the lock of a committed wallet.
func (s *Store) lockFor(id uuid.UUID) (chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[id]; !ok {
		return nil, false
	}
	lock, ok := s.locks[id]
	if !ok {
		lock = make(chan struct{}, 1)
		s.locks[id] = lock
	}
	return lock, true
}

func (s *Store) acquire(ctx context.Context, lock chan struct{}) error {
	var timeout <-chan time.Time
	if s.lockTimeout > 0 {
		timer := time.NewTimer(s.lockTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case lock <- struct{}{}:
		return nil
	case <-timeout:
		return domain.ErrLockTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// apply publishes staged wallets. Called with no store lock held.
func (s *Store) apply(staged map[uuid.UUID]domain.Wallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, w := range staged {
		s.wallets[id] = w
	}
}

// release frees wallet locks held by a finished transaction.
func (s *Store) release(held map[uuid.UUID]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range held {
		<-s.locks[id]
	}
}
