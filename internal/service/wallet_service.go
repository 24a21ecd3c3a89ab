package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wallet-service/internal/core/domain"
	"wallet-service/internal/core/ports"
	"wallet-service/pkg/apperror"
	"wallet-service/pkg/metrics"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo     ports.WalletRepository
	transactor     ports.DBTransactor
	retrier        ports.Retrier
	defaultBalance int64
	metrics        *metrics.Metrics
	log            zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
// retrier and m may be nil: without a retrier every operation gets exactly one attempt.
func NewWalletService(
	walletRepo ports.WalletRepository,
	transactor ports.DBTransactor,
	retrier ports.Retrier,
	defaultBalance int64,
	m *metrics.Metrics,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo:     walletRepo,
		transactor:     transactor,
		retrier:        retrier,
		defaultBalance: defaultBalance,
		metrics:        m,
		log:            log,
	}
}

// Create opens a wallet with initialBalance, or the default balance when nil.
func (s *WalletServiceImpl) Create(ctx context.Context, initialBalance *int64) (*domain.Wallet, error) {
	balance := s.defaultBalance
	if initialBalance != nil {
		balance = *initialBalance
	}
	if err := domain.ValidateInitialBalance(balance); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	var wallet *domain.Wallet
	err := runInTx(ctx, s.transactor, func(tx pgx.Tx) error {
		w, err := s.walletRepo.Create(ctx, tx, balance)
		if err != nil {
			return err
		}
		wallet = w
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Int64("balance", balance).Msg("wallet creation failed")
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	s.metrics.IncWalletsCreated()
	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Int64("balance", wallet.Balance).
		Msg("wallet created")

	return wallet, nil
}

// GetBalance returns the last committed state of a wallet. It takes no lock,
// so a concurrent in-flight operation is not reflected until it commits.
func (s *WalletServiceImpl) GetBalance(ctx context.Context, id uuid.UUID) (*domain.Wallet, error) {
	w, err := s.walletRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrWalletNotFound) {
			return nil, apperror.ErrWalletNotFound()
		}
		s.log.Error().Err(err).Str("wallet_id", id.String()).Msg("wallet read failed")
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	return w, nil
}

// ApplyOperation applies op to the wallet under its exclusive lock:
// lock, compute, validate, persist, commit. Any rejection or failure rolls
// the unit of work back and leaves the balance untouched. Deadlocks and
// serialization failures are retried as a fresh unit of work.
func (s *WalletServiceImpl) ApplyOperation(ctx context.Context, id uuid.UUID, op domain.Operation) (*domain.Wallet, error) {
	if err := op.Validate(); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	start := time.Now()
	var wallet *domain.Wallet

	err := s.retry(ctx, func() error {
		return runInTx(ctx, s.transactor, func(tx pgx.Tx) error {
			locked, err := s.walletRepo.GetByIDForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}

			newBalance, err := op.Apply(locked.Balance)
			if err != nil {
				return err
			}

			updated, err := s.walletRepo.UpdateBalance(ctx, tx, id, newBalance)
			if err != nil {
				return err
			}
			wallet = updated
			return nil
		})
	})

	outcome, appErr := classifyOperationError(err)
	s.metrics.ObserveOperation(op.Type.String(), outcome, time.Since(start))

	if appErr != nil {
		event := s.log.Debug()
		switch outcome {
		case metrics.OutcomeLockTimeout:
			event = s.log.Warn()
		case metrics.OutcomeError:
			event = s.log.Error().Err(err)
		}
		event.
			Str("wallet_id", id.String()).
			Str("operation", op.Type.String()).
			Int64("amount", op.Amount).
			Str("outcome", outcome).
			Msg("wallet operation rejected")
		return nil, appErr
	}

	s.log.Info().
		Str("wallet_id", id.String()).
		Str("operation", op.Type.String()).
		Int64("amount", op.Amount).
		Int64("balance", wallet.Balance).
		Msg("wallet operation committed")

	return wallet, nil
}

func (s *WalletServiceImpl) retry(ctx context.Context, fn func() error) error {
	if s.retrier == nil {
		return fn()
	}
	return s.retrier.Retry(ctx, fn)
}

// classifyOperationError maps an operation error to its metrics outcome and client error.
func classifyOperationError(err error) (string, *apperror.AppError) {
	switch {
	case err == nil:
		return metrics.OutcomeCommitted, nil
	case errors.Is(err, domain.ErrWalletNotFound):
		return metrics.OutcomeNotFound, apperror.ErrWalletNotFound()
	case errors.Is(err, domain.ErrInsufficientBalance):
		return metrics.OutcomeInsufficientBalance, apperror.ErrInsufficientBalance()
	case errors.Is(err, domain.ErrBalanceOverflow):
		return metrics.OutcomeOverflow, apperror.ErrBalanceOverflow()
	case errors.Is(err, domain.ErrLockTimeout):
		return metrics.OutcomeLockTimeout, apperror.ErrLockTimeout(err)
	default:
		return metrics.OutcomeError, apperror.InternalError(fmt.Errorf("apply operation: %w", err))
	}
}
