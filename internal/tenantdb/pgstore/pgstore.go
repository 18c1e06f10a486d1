// Package pgstore is the PostgreSQL tenantdb.Engine. Every operation runs in
// a transaction that first pins the ambient scope into transaction-local
// session settings (app.tenant_id, app.superadmin), so the row security
// policies installed by internal/db/migrations enforce tenant isolation
// independently of the gateway sitting above this package.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/crestline/tenantcore/internal/telemetry"
	"github.com/crestline/tenantcore/internal/tenancy"
	"github.com/crestline/tenantcore/internal/tenantdb"
)

const defaultMaxAttempts = 3

// Store executes tenantdb operations against a pgx pool.
type Store struct {
	pool        *pgxpool.Pool
	maxAttempts int
}

// Option configures a Store.
type Option func(*Store)

// WithMaxAttempts bounds how often Transact re-runs its closure after a
// serialization conflict.
func WithMaxAttempts(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// New returns a Store over pool.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{pool: pool, maxAttempts: defaultMaxAttempts}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// querier is the subset of pgx.Tx the statement executors need.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Store) Select(ctx context.Context, q tenantdb.Query) ([]tenantdb.Row, error) {
	var rows []tenantdb.Row
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		rows, err = execSelect(ctx, tx, q)
		return err
	})
	return rows, err
}

func (s *Store) Insert(ctx context.Context, table string, row tenantdb.Row) (tenantdb.Row, error) {
	var out tenantdb.Row
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		out, err = execInsert(ctx, tx, table, row)
		return err
	})
	return out, err
}

func (s *Store) Update(ctx context.Context, table string, set tenantdb.Row, where []tenantdb.Cond) (int64, error) {
	var n int64
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		n, err = execUpdate(ctx, tx, table, set, where)
		return err
	})
	return n, err
}

func (s *Store) Delete(ctx context.Context, table string, where []tenantdb.Cond) (int64, error) {
	var n int64
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		var err error
		n, err = execDelete(ctx, tx, table, where)
		return err
	})
	return n, err
}

// Transact pins the scope once and runs fn inside a single transaction,
// retrying the whole closure on serialization conflicts. fn must therefore
// tolerate re-execution.
func (s *Store) Transact(ctx context.Context, fn func(tx tenantdb.Engine) error) error {
	scope, err := tenancy.Current(ctx)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = s.runTx(ctx, scope, fn)
		if lastErr == nil || !retryable(lastErr) {
			return lastErr
		}
		telemetry.GetMetrics().TxRetriesTotal.Add(ctx, 1)
		zerolog.Ctx(ctx).Debug().
			Int("attempt", attempt).
			Err(lastErr).
			Msg("retrying transaction after serialization conflict")
	}
	return lastErr
}

func (s *Store) runTx(ctx context.Context, scope tenancy.Scope, fn func(tx tenantdb.Engine) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgstore: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := applyScope(ctx, tx, scope); err != nil {
		return err
	}
	if err := fn(&txEngine{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgstore: commit: %w", err)
	}
	return nil
}

// withTx wraps a single statement in its own scope-pinned transaction.
func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	scope, err := tenancy.Current(ctx)
	if err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgstore: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := applyScope(ctx, tx, scope); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgstore: commit: %w", err)
	}
	return nil
}

// applyScope pins the scope into transaction-local session settings. The
// third set_config argument makes the setting vanish at transaction end, so
// pooled connections never leak a tenant to the next unit of work.
func applyScope(ctx context.Context, tx pgx.Tx, scope tenancy.Scope) error {
	_, err := tx.Exec(ctx,
		`SELECT set_config('app.tenant_id', $1, true), set_config('app.superadmin', $2, true)`,
		scope.TenantID, strconv.FormatBool(scope.SuperAdmin()),
	)
	if err != nil {
		return fmt.Errorf("pgstore: pinning scope: %w", err)
	}
	return nil
}

// txEngine runs statements on an already scope-pinned transaction.
type txEngine struct {
	tx pgx.Tx
}

func (t *txEngine) Select(ctx context.Context, q tenantdb.Query) ([]tenantdb.Row, error) {
	return execSelect(ctx, t.tx, q)
}

func (t *txEngine) Insert(ctx context.Context, table string, row tenantdb.Row) (tenantdb.Row, error) {
	return execInsert(ctx, t.tx, table, row)
}

func (t *txEngine) Update(ctx context.Context, table string, set tenantdb.Row, where []tenantdb.Cond) (int64, error) {
	return execUpdate(ctx, t.tx, table, set, where)
}

func (t *txEngine) Delete(ctx context.Context, table string, where []tenantdb.Cond) (int64, error) {
	return execDelete(ctx, t.tx, table, where)
}

// Transact on an inner engine opens a savepoint, keeping the outer
// transaction's session settings.
func (t *txEngine) Transact(ctx context.Context, fn func(tx tenantdb.Engine) error) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgstore: savepoint: %w", err)
	}
	defer sp.Rollback(ctx)

	if err := fn(&txEngine{tx: sp}); err != nil {
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("pgstore: release savepoint: %w", err)
	}
	return nil
}

func execSelect(ctx context.Context, q querier, query tenantdb.Query) ([]tenantdb.Row, error) {
	sql, args, err := buildSelect(query)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("pgstore: select %s: %w", query.Table, err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("pgstore: select %s: %w", query.Table, err)
	}
	return out, nil
}

func execInsert(ctx context.Context, q querier, table string, row tenantdb.Row) (tenantdb.Row, error) {
	sql, args, err := buildInsert(table, row)
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("pgstore: insert %s: %w", table, err)
	}
	out, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("pgstore: insert %s: %w", table, err)
	}
	return out, nil
}

func execUpdate(ctx context.Context, q querier, table string, set tenantdb.Row, where []tenantdb.Cond) (int64, error) {
	sql, args, err := buildUpdate(table, set, where)
	if err != nil {
		return 0, err
	}
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("pgstore: update %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

func execDelete(ctx context.Context, q querier, table string, where []tenantdb.Cond) (int64, error) {
	sql, args, err := buildDelete(table, where)
	if err != nil {
		return 0, err
	}
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("pgstore: delete %s: %w", table, err)
	}
	return tag.RowsAffected(), nil
}

// retryable reports whether err is a transaction conflict worth re-running.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
}
