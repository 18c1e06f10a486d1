package tenantdb

import (
	"context"
	"fmt"
	"maps"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/crestline/tenantcore/internal/telemetry"
	"github.com/crestline/tenantcore/internal/tenancy"
)

var tracer = otel.Tracer("github.com/crestline/tenantcore/internal/tenantdb")

// Gateway scopes an Engine to the ambient tenant. Reads get the tenant
// conjunct prepended to whatever predicate the caller supplied, writes are
// pinned to the scope's tenant, and superadmin scopes pass through
// unfiltered. A Gateway holds no per-request state; one instance serves all
// units of work.
type Gateway struct {
	engine Engine
}

// New wraps engine in a Gateway.
func New(engine Engine) *Gateway {
	return &Gateway{engine: engine}
}

// SelectWhere returns the rows matching q within the active tenant. The
// tenant conjunct is ANDed in front of q.Where, so a caller predicate naming
// a foreign tenant matches nothing instead of escaping the scope.
func (g *Gateway) SelectWhere(ctx context.Context, q Query) ([]Row, error) {
	scope, err := tenancy.Current(ctx)
	if err != nil {
		return nil, err
	}
	ctx, span := startSpan(ctx, "select", q.Table, scope)
	defer span.End()

	if !scope.SuperAdmin() {
		q.Where = append([]Cond{Eq(TenantColumn, scope.TenantID)}, q.Where...)
	}
	rows, err := g.engine.Select(ctx, q)
	finishSpan(ctx, span, "select", q.Table, scope, err)
	return rows, err
}

// SelectOne returns the first row matching q, or nil when nothing matches.
// An absent row is not an error: a foreign tenant's row must look exactly
// like a row that does not exist.
func (g *Gateway) SelectOne(ctx context.Context, q Query) (Row, error) {
	q.Limit = 1
	rows, err := g.SelectWhere(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Insert writes row pinned to the active tenant. A row naming a foreign
// tenant is rejected with *CrossTenantWriteError; a row without a tenant id
// gets the scope's. Superadmin inserts must name a tenant explicitly.
func (g *Gateway) Insert(ctx context.Context, table string, row Row) (Row, error) {
	scope, err := tenancy.Current(ctx)
	if err != nil {
		return nil, err
	}
	ctx, span := startSpan(ctx, "insert", table, scope)
	defer span.End()

	pinned := maps.Clone(row)
	if pinned == nil {
		pinned = Row{}
	}
	if scope.SuperAdmin() {
		if v, ok := pinned[TenantColumn]; !ok || v == nil || v == "" {
			err := fmt.Errorf("%w: table %s", ErrTenantRequired, table)
			finishSpan(ctx, span, "insert", table, scope, err)
			return nil, err
		}
	} else {
		if v, ok := pinned[TenantColumn]; ok {
			if foreign := fmt.Sprint(v); foreign != scope.TenantID {
				err := &CrossTenantWriteError{Table: table, Scope: scope.TenantID, Foreign: foreign}
				rejectWrite(ctx, span, "insert", table, scope, err)
				return nil, err
			}
		}
		pinned[TenantColumn] = scope.TenantID
	}

	out, err := g.engine.Insert(ctx, table, pinned)
	finishSpan(ctx, span, "insert", table, scope, err)
	return out, err
}

// Update applies set to the rows matching where within the active tenant.
// Moving a row to a foreign tenant is rejected with *CrossTenantWriteError.
// It returns the number of rows updated; foreign rows count as absent.
func (g *Gateway) Update(ctx context.Context, table string, set Row, where ...Cond) (int64, error) {
	scope, err := tenancy.Current(ctx)
	if err != nil {
		return 0, err
	}
	ctx, span := startSpan(ctx, "update", table, scope)
	defer span.End()

	if !scope.SuperAdmin() {
		if v, ok := set[TenantColumn]; ok {
			if foreign := fmt.Sprint(v); foreign != scope.TenantID {
				err := &CrossTenantWriteError{Table: table, Scope: scope.TenantID, Foreign: foreign}
				rejectWrite(ctx, span, "update", table, scope, err)
				return 0, err
			}
		}
		where = append([]Cond{Eq(TenantColumn, scope.TenantID)}, where...)
	}

	n, err := g.engine.Update(ctx, table, set, where)
	finishSpan(ctx, span, "update", table, scope, err)
	return n, err
}

// Delete removes the rows matching where within the active tenant and
// returns how many went away; foreign rows count as absent.
func (g *Gateway) Delete(ctx context.Context, table string, where ...Cond) (int64, error) {
	scope, err := tenancy.Current(ctx)
	if err != nil {
		return 0, err
	}
	ctx, span := startSpan(ctx, "delete", table, scope)
	defer span.End()

	if !scope.SuperAdmin() {
		where = append([]Cond{Eq(TenantColumn, scope.TenantID)}, where...)
	}

	n, err := g.engine.Delete(ctx, table, where)
	finishSpan(ctx, span, "delete", table, scope, err)
	return n, err
}

// Transactional runs fn atomically under the caller's scope. Every statement
// fn issues through tx is scoped exactly like a standalone call; an error
// from fn rolls back all of them. The engine may re-run fn after a
// serialization conflict, so fn must tolerate being called more than once.
func (g *Gateway) Transactional(ctx context.Context, fn func(tx *Gateway) error) error {
	scope, err := tenancy.Current(ctx)
	if err != nil {
		return err
	}
	ctx, span := startSpan(ctx, "transaction", "", scope)
	defer span.End()

	err = g.engine.Transact(ctx, func(tx Engine) error {
		return fn(&Gateway{engine: tx})
	})
	finishSpan(ctx, span, "transaction", "", scope, err)
	return err
}

func startSpan(ctx context.Context, op, table string, scope tenancy.Scope) (context.Context, trace.Span) {
	return tracer.Start(ctx, "tenantdb."+op, trace.WithAttributes(
		attribute.String("db.table", table),
		attribute.Bool("tenant.superadmin", scope.SuperAdmin()),
	))
}

func finishSpan(ctx context.Context, span trace.Span, op, table string, scope tenancy.Scope, err error) {
	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("table", table),
	)
	m := telemetry.GetMetrics()
	m.GatewayOpsTotal.Add(ctx, 1, attrs)
	if scope.SuperAdmin() {
		m.SuperadminOpsTotal.Add(ctx, 1, attrs)
	}
	if err != nil {
		span.RecordError(err)
	}
}

func rejectWrite(ctx context.Context, span trace.Span, op, table string, scope tenancy.Scope, err error) {
	telemetry.GetMetrics().CrossTenantWritesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("table", table),
	))
	finishSpan(ctx, span, op, table, scope, err)
}
