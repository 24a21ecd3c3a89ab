package ports

import (
	"context"

	"wallet-service/internal/core/domain"

	"github.com/google/uuid"
)

// WalletService defines the balance operation engine.
// Errors are *apperror.AppError values.
type WalletService interface {
	// Create opens a wallet. A nil initialBalance selects the configured default.
	Create(ctx context.Context, initialBalance *int64) (*domain.Wallet, error)
	// GetBalance returns the last committed state of a wallet.
	GetBalance(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	// ApplyOperation applies op atomically under the wallet's exclusive lock.
	ApplyOperation(ctx context.Context, id uuid.UUID, op domain.Operation) (*domain.Wallet, error)
}
