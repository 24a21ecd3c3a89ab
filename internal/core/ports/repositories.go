package ports

import (
	"context"
	"time"

	"wallet-service/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx run inside the caller's unit of work; the row
// lock taken by GetByIDForUpdate is held until that transaction ends.
type WalletRepository interface {
	// Create inserts a wallet with a fresh id and the given balance.
	Create(ctx context.Context, tx pgx.Tx, balance int64) (*domain.Wallet, error)
	// GetByID is a plain read without locking. Returns domain.ErrWalletNotFound when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	// GetByIDForUpdate blocks until the wallet's exclusive lock is granted.
	// Returns domain.ErrWalletNotFound when absent and domain.ErrLockTimeout
	// when the lock wait exceeds the transaction's lock timeout.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	// UpdateBalance persists balance. Only valid while holding the wallet lock.
	UpdateBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance int64) (*domain.Wallet, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Retrier re-runs operation on transient storage conflicts (deadlocks,
// serialization failures). Any other error is returned as is.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}

// RateLimitStore counts requests per key in fixed windows.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}
