package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// beginTx starts a transaction whose row-lock waits are bounded by lockTimeout.
// A wait that exceeds it fails with SQLSTATE 55P03, which classifyDBError maps to ErrBusy.
func beginTx(ctx context.Context, pool *pgxpool.Pool, lockTimeout time.Duration) (pgx.Tx, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, classifyDBError("failed to begin transaction", err, ErrInternal)
	}
	if lockTimeout > 0 {
		ms := max(lockTimeout.Milliseconds(), 1)
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", ms)); err != nil {
			_ = tx.Rollback(ctx)
			return nil, classifyDBError("failed to set lock timeout", err, ErrInternal)
		}
	}
	return tx, nil
}

// clampLimit applies the default page size of 100 and caps requests at 500.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 500:
		return 500
	}
	return limit
}
