// Package memstore is an in-memory tenantdb.Engine for unit tests and local
// tooling. It mirrors the two-layer isolation story of the real store: the
// gateway injects tenant predicates above it, and a RowPolicy filters rows
// inside it the way row security does in Postgres. Either layer alone must
// hold, so tests can disable one and attack the other.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/crestline/tenantcore/internal/tenancy"
	"github.com/crestline/tenantcore/internal/tenantdb"
)

// ErrRowPolicyViolation is returned when a write produces a row the row
// policy refuses, matching the error Postgres raises for a WITH CHECK
// violation.
var ErrRowPolicyViolation = errors.New("memstore: row violates row policy")

// RowPolicy is the stand-in for storage-level row security. It is consulted
// per row on reads and writes, independently of the caller's predicate.
type RowPolicy func(scope tenancy.Scope, table string, row tenantdb.Row) bool

// TenantRowPolicy matches the Postgres policies installed by
// internal/db/migrations: superadmin scopes see everything, everyone else
// only rows of their own tenant. A missing scope reads as the zero scope and
// matches nothing.
func TenantRowPolicy(scope tenancy.Scope, _ string, row tenantdb.Row) bool {
	if scope.SuperAdmin() {
		return true
	}
	if scope.TenantID == "" {
		return false
	}
	v, ok := row[tenantdb.TenantColumn]
	return ok && v != nil && fmt.Sprint(v) == scope.TenantID
}

// Store is the in-memory engine. The zero value is not usable; construct
// with New.
type Store struct {
	mu     sync.RWMutex
	tables map[string][]tenantdb.Row
	policy RowPolicy
}

// Option configures a Store.
type Option func(*Store)

// WithRowPolicy replaces the default TenantRowPolicy. A nil policy disables
// the storage-level layer entirely, leaving only the gateway's.
func WithRowPolicy(p RowPolicy) Option {
	return func(s *Store) { s.policy = p }
}

// New returns an empty store guarded by TenantRowPolicy unless an option
// says otherwise.
func New(opts ...Option) *Store {
	s := &Store{
		tables: make(map[string][]tenantdb.Row),
		policy: TenantRowPolicy,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed loads fixture rows directly, bypassing both isolation layers the way
// a migration or fixture load would.
func (s *Store) Seed(table string, rows ...tenantdb.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.tables[table] = append(s.tables[table], maps.Clone(r))
	}
}

func (s *Store) Select(ctx context.Context, q tenantdb.Query) ([]tenantdb.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectRows(ctx, q)
}

func (s *Store) Insert(ctx context.Context, table string, row tenantdb.Row) (tenantdb.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertRow(ctx, table, row)
}

func (s *Store) Update(ctx context.Context, table string, set tenantdb.Row, where []tenantdb.Cond) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateRows(ctx, table, set, where)
}

func (s *Store) Delete(ctx context.Context, table string, where []tenantdb.Cond) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteRows(ctx, table, where)
}

// Transact runs fn on a snapshot-backed view: an error from fn restores the
// pre-transaction state in full. The store lock is held for the duration, so
// fn must issue its statements through the engine it is handed, never
// through the outer store.
func (s *Store) Transact(ctx context.Context, fn func(tx tenantdb.Engine) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := cloneTables(s.tables)
	if err := fn(&txStore{s: s}); err != nil {
		s.tables = snapshot
		return err
	}
	return nil
}

// txStore issues statements against a Store whose lock is already held.
type txStore struct {
	s *Store
}

func (t *txStore) Select(ctx context.Context, q tenantdb.Query) ([]tenantdb.Row, error) {
	return t.s.selectRows(ctx, q)
}

func (t *txStore) Insert(ctx context.Context, table string, row tenantdb.Row) (tenantdb.Row, error) {
	return t.s.insertRow(ctx, table, row)
}

func (t *txStore) Update(ctx context.Context, table string, set tenantdb.Row, where []tenantdb.Cond) (int64, error) {
	return t.s.updateRows(ctx, table, set, where)
}

func (t *txStore) Delete(ctx context.Context, table string, where []tenantdb.Cond) (int64, error) {
	return t.s.deleteRows(ctx, table, where)
}

func (t *txStore) Transact(_ context.Context, fn func(tx tenantdb.Engine) error) error {
	snapshot := cloneTables(t.s.tables)
	if err := fn(t); err != nil {
		t.s.tables = snapshot
		return err
	}
	return nil
}

func (s *Store) scopeFor(ctx context.Context) tenancy.Scope {
	scope, err := tenancy.Current(ctx)
	if err != nil {
		return tenancy.Scope{}
	}
	return scope
}

func (s *Store) visible(scope tenancy.Scope, table string, row tenantdb.Row) bool {
	return s.policy == nil || s.policy(scope, table, row)
}

func (s *Store) selectRows(ctx context.Context, q tenantdb.Query) ([]tenantdb.Row, error) {
	scope := s.scopeFor(ctx)

	var out []tenantdb.Row
	for _, row := range s.tables[q.Table] {
		if !s.visible(scope, q.Table, row) {
			continue
		}
		if !matchAll(row, q.Where) {
			continue
		}
		out = append(out, maps.Clone(row))
	}

	if len(q.OrderBy) > 0 {
		slices.SortStableFunc(out, func(a, b tenantdb.Row) int {
			for _, o := range q.OrderBy {
				c, ok := compareValues(a[o.Col], b[o.Col])
				if !ok || c == 0 {
					continue
				}
				if o.Desc {
					return -c
				}
				return c
			}
			return 0
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	if len(q.Columns) > 0 {
		for i, row := range out {
			projected := make(tenantdb.Row, len(q.Columns))
			for _, col := range q.Columns {
				if v, ok := row[col]; ok {
					projected[col] = v
				}
			}
			out[i] = projected
		}
	}
	return out, nil
}

func (s *Store) insertRow(ctx context.Context, table string, row tenantdb.Row) (tenantdb.Row, error) {
	scope := s.scopeFor(ctx)
	stored := maps.Clone(row)
	if !s.visible(scope, table, stored) {
		return nil, fmt.Errorf("%w: insert into %s", ErrRowPolicyViolation, table)
	}
	s.tables[table] = append(s.tables[table], stored)
	return maps.Clone(stored), nil
}

func (s *Store) updateRows(ctx context.Context, table string, set tenantdb.Row, where []tenantdb.Cond) (int64, error) {
	scope := s.scopeFor(ctx)

	// Validate every updated row before applying any, so a policy violation
	// aborts the whole statement like it would in Postgres.
	rows := s.tables[table]
	updated := make(map[int]tenantdb.Row)
	for i, row := range rows {
		if !s.visible(scope, table, row) || !matchAll(row, where) {
			continue
		}
		next := maps.Clone(row)
		maps.Copy(next, set)
		if !s.visible(scope, table, next) {
			return 0, fmt.Errorf("%w: update of %s", ErrRowPolicyViolation, table)
		}
		updated[i] = next
	}
	for i, next := range updated {
		rows[i] = next
	}
	return int64(len(updated)), nil
}

func (s *Store) deleteRows(ctx context.Context, table string, where []tenantdb.Cond) (int64, error) {
	scope := s.scopeFor(ctx)

	var n int64
	kept := s.tables[table][:0]
	for _, row := range s.tables[table] {
		if s.visible(scope, table, row) && matchAll(row, where) {
			n++
			continue
		}
		kept = append(kept, row)
	}
	s.tables[table] = kept
	return n, nil
}

func matchAll(row tenantdb.Row, conds []tenantdb.Cond) bool {
	for _, c := range conds {
		if !matchCond(row, c) {
			return false
		}
	}
	return true
}

func matchCond(row tenantdb.Row, c tenantdb.Cond) bool {
	got, present := row[c.Col]

	switch c.Op {
	case tenantdb.OpIsNull:
		return !present || got == nil
	case tenantdb.OpNotNull:
		return present && got != nil
	case tenantdb.OpEq:
		return present && valueEq(got, c.Val)
	case tenantdb.OpNeq:
		return present && got != nil && !valueEq(got, c.Val)
	case tenantdb.OpIn:
		vals, ok := c.Val.([]any)
		if !ok || !present {
			return false
		}
		return lo.SomeBy(vals, func(v any) bool { return valueEq(got, v) })
	case tenantdb.OpGt, tenantdb.OpGte, tenantdb.OpLt, tenantdb.OpLte:
		cmp, ok := compareValues(got, c.Val)
		if !ok {
			return false
		}
		switch c.Op {
		case tenantdb.OpGt:
			return cmp > 0
		case tenantdb.OpGte:
			return cmp >= 0
		case tenantdb.OpLt:
			return cmp < 0
		default:
			return cmp <= 0
		}
	default:
		return false
	}
}

func valueEq(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if c, ok := compareValues(a, b); ok {
		return c == 0
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// compareValues orders two values when both sides are comparable kinds:
// numbers, strings, or times. Mixed or unsupported kinds report ok=false.
func compareValues(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return at.Compare(bt), true
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func cloneTables(tables map[string][]tenantdb.Row) map[string][]tenantdb.Row {
	out := make(map[string][]tenantdb.Row, len(tables))
	for name, rows := range tables {
		cp := make([]tenantdb.Row, len(rows))
		for i, r := range rows {
			cp[i] = maps.Clone(r)
		}
		out[name] = cp
	}
	return out
}
