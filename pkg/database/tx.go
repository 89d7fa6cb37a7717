package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

const defaultTxTimeout = 10 * time.Second

type txKey struct{}

type txState struct {
	tx    *sqlx.Tx
	mu    sync.Mutex
	hooks []func(context.Context)
}

// WithTx stores a transaction in context for downstream repositories.
func WithTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey{}, &txState{tx: tx})
}

// TxFrom extracts the transaction carried by ctx, if any.
func TxFrom(ctx context.Context) (*sqlx.Tx, bool) {
	state, ok := ctx.Value(txKey{}).(*txState)
	if !ok || state == nil {
		return nil, false
	}
	return state.tx, true
}

// Conn returns the transaction carried by ctx or falls back to db.
func Conn(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := TxFrom(ctx); ok {
		return tx
	}
	return db
}

// AfterCommit registers fn to run once the surrounding transaction commits.
// Without a transaction in ctx, fn runs immediately.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	state, ok := ctx.Value(txKey{}).(*txState)
	if !ok || state == nil {
		fn(ctx)
		return
	}
	state.mu.Lock()
	state.hooks = append(state.hooks, fn)
	state.mu.Unlock()
}

// Transactor runs units of work inside a single database transaction.
type Transactor struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewTransactor builds a Transactor bound to db.
func NewTransactor(db *sqlx.DB) *Transactor {
	return &Transactor{db: db, timeout: defaultTxTimeout}
}

// WithinTx runs fn inside a transaction. Nested calls join the outer transaction.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := TxFrom(ctx); ok {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	state := &txState{tx: tx}
	txCtx := context.WithValue(ctx, txKey{}, state)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(txCtx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	// hooks outlive the request-scoped deadline
	hookCtx := context.WithoutCancel(ctx)
	for _, hook := range state.hooks {
		hook(hookCtx)
	}
	return nil
}
