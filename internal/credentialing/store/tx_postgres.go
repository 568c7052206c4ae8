package store

import (
	"context"
	"database/sql"
	"hash/fnv"
	"time"

	"vetting/internal/credentialing/service"
	id "vetting/pkg/domain"
	dErrors "vetting/pkg/domain-errors"
	txcontext "vetting/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// PostgresTx serializes writers per provider across instances with a
// transaction-scoped advisory lock. Everything written through the context
// passed to fn (profile facts and outbox rows) commits or rolls back
// together.
type PostgresTx struct {
	db      *sql.DB
	store   *Postgres
	timeout time.Duration
}

func NewPostgresTx(db *sql.DB, store *Postgres) *PostgresTx {
	return &PostgresTx{db: db, store: store, timeout: defaultTxTimeout}
}

func (t *PostgresTx) RunInTx(ctx context.Context, providerID id.ProviderID, fn func(ctx context.Context, store service.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, lockKey(providerID)); err != nil {
		if ctx.Err() != nil {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "timed out waiting for provider lock")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to acquire provider lock")
	}

	if err := fn(txcontext.WithTx(ctx, tx), t.store); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit transaction")
	}
	return nil
}

func lockKey(providerID id.ProviderID) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("credentialing:"))
	_, _ = h.Write([]byte(providerID.String()))
	return int64(h.Sum64())
}
