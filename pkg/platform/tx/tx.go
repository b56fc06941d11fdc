// Package tx carries a SQL transaction through context so stores can join a
// caller's transaction without threading *sql.Tx through every signature.
// The receipt-allocation invariant depends on this: the sequence increment
// and the payment insert must observe the same transaction.
package tx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"rtscore/pkg/platform/sentinel"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Runner executes functions inside a database transaction. Implementations
// back onto *sql.DB in production and a no-op in memory wiring.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SQLRunner runs callbacks inside a *sql.DB transaction, exposing the
// transaction to stores via context.
type SQLRunner struct {
	DB *sql.DB
}

func NewSQLRunner(db *sql.DB) *SQLRunner {
	return &SQLRunner{DB: db}
}

// RunInTx begins a transaction, runs fn with the transaction in context, and
// commits on success. If fn returns an error the transaction is rolled back
// and the error returned unchanged. Nested calls join the outer transaction.
func (r *SQLRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}

	dbTx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(WithTx(ctx, dbTx)); err != nil {
		_ = dbTx.Rollback()
		return err
	}

	if err := dbTx.Commit(); err != nil {
		if IsSerializationFailure(err) {
			return fmt.Errorf("commit tx: %w", sentinel.ErrSerialization)
		}
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// NopRunner satisfies Runner for in-memory wiring, where stores guard their
// own maps and there is no transaction to share.
type NopRunner struct{}

func (NopRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// IsSerializationFailure recognizes Postgres serialization and deadlock
// errors (40001, 40P01), which are safe to retry as a whole unit.
func IsSerializationFailure(err error) bool {
	if errors.Is(err, sentinel.ErrSerialization) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}

// IsUniqueViolation recognizes Postgres unique constraint errors (23505).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
