package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dErrors "bothub/pkg/domain-errors"
	txcontext "bothub/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// PostgresTx is the unit of work for registry mutations. Every transaction is
// read-committed, bounded by a deadline, and either committed or rolled back
// before RunInTx returns.
type PostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresTx uses defaultTxTimeout when timeout is zero.
func NewPostgresTx(db *sql.DB, timeout time.Duration) *PostgresTx {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	return &PostgresTx{db: db, timeout: timeout}
}

// RunInTx runs fn with the transaction bound to txCtx. A call made while a
// transaction is already bound joins it and leaves commit to the outer call.
func (t *PostgresTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, joined := txcontext.From(ctx); joined {
		return fn(ctx)
	}

	ctx, cancel := t.bound(ctx)
	defer cancel()

	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	// Rollback after Commit is a no-op returning sql.ErrTxDone.
	defer func() { _ = tx.Rollback() }()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// bound applies the configured timeout unless the caller already set a deadline.
func (t *PostgresTx) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.timeout)
}
