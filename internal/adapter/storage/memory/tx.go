package memory

import (
	"context"
	"sync"

	"wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Tx is a memory store transaction. Only Commit and Rollback are
// supported; the remaining pgx.Tx methods panic.
type Tx struct {
	pgx.Tx

	store *Store

	mu     sync.Mutex
	held   map[uuid.UUID]bool
	staged map[uuid.UUID]domain.Wallet
	closed bool
}

// Commit publishes staged writes and releases all wallet locks.
func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true

	if err := ctx.Err(); err != nil {
		t.store.release(t.held)
		return err
	}
	t.store.apply(t.staged)
	t.store.release(t.held)
	return nil
}

// Rollback discards staged writes and releases all wallet locks.
func (t *Tx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.store.release(t.held)
	return nil
}

// lookup returns a wallet this transaction already owns: created in it,
// staged by it, or locked by it.
func (t *Tx) lookup(id uuid.UUID) (domain.Wallet, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if w, ok := t.staged[id]; ok {
		return w, true
	}
	if t.held[id] {
		t.store.mu.Lock()
		defer t.store.mu.Unlock()
		return t.store.wallets[id], true
	}
	return domain.Wallet{}, false
}
