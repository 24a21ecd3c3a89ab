package postgres

import (
	"errors"
	"fmt"

	"wallet-service/internal/core/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes handled by this package.
const (
	pgErrLockNotAvailable     = "55P03"
	pgErrCheckViolation       = "23514"
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
)

// mapPgError translates driver errors into domain errors. The driver
// error stays in the chain so callers can still inspect the PgError.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgErrLockNotAvailable:
		return fmt.Errorf("%w: %w", domain.ErrLockTimeout, err)
	case pgErrCheckViolation:
		return fmt.Errorf("%w: %w", domain.ErrInsufficientBalance, err)
	}
	return err
}

// isRetryableError checks if a PostgreSQL error should trigger a retry.
func isRetryableError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrDeadlock, pgErrSerializationFailure:
			return true
		}
	}
	return false
}
