// Package tenantdb is the access-scoped data gateway. Every read is
// conjoined with the active scope's tenant predicate and every write is
// pinned to the active scope's tenant before it reaches storage; superadmin
// scopes skip the predicate entirely.
//
// The gateway is one of two independent isolation layers. The second lives
// in the storage engine itself: pgstore runs each operation in a transaction
// that carries the scope as session settings, and the schema's row security
// policies enforce the same tenant match without trusting this package (see
// internal/db/migrations). memstore mirrors that second layer with a row
// policy hook so both layers stay testable in isolation.
package tenantdb

import "context"

// TenantColumn is the isolation column every tenant-scoped table carries.
const TenantColumn = "tenant_id"

// Row is one stored record keyed by column name.
type Row = map[string]any

// Engine is the storage primitive set the gateway scopes. Engines execute
// exactly what they are given: predicate injection and write pinning happen
// above them, row security below them.
type Engine interface {
	Select(ctx context.Context, q Query) ([]Row, error)
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Update(ctx context.Context, table string, set Row, where []Cond) (int64, error)
	Delete(ctx context.Context, table string, where []Cond) (int64, error)

	// Transact runs fn atomically. Engines may call fn more than once when
	// the storage layer reports a serialization conflict.
	Transact(ctx context.Context, fn func(tx Engine) error) error
}
