package service

import (
	"context"
	"fmt"

	"wallet-service/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// runInTx runs fn inside one transaction and commits it. Every other exit,
// including a panic in fn, rolls back. Rollback runs on a context detached
// from cancellation so an abandoned request still releases its locks.
func runInTx(ctx context.Context, transactor ports.DBTransactor, fn func(tx pgx.Tx) error) error {
	tx, err := transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}
