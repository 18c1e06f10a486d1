package tenantdb

import (
	"errors"
	"fmt"

	"github.com/crestline/tenantcore/internal/tenancy"
)

// ErrMissingContext is tenancy.ErrMissingContext, re-exported so gateway
// callers can match it without importing tenancy.
var ErrMissingContext = tenancy.ErrMissingContext

// ErrTenantRequired is returned for superadmin inserts that do not name a
// tenant: with isolation disabled there is no scope tenant to pin the row to.
var ErrTenantRequired = errors.New("tenantdb: superadmin insert requires an explicit tenant id")

// CrossTenantWriteError reports a write naming a tenant other than the
// scope's. Such writes are rejected rather than silently re-pinned; a
// foreign tenant id in a write is a caller bug that re-pinning would mask.
type CrossTenantWriteError struct {
	Table   string
	Scope   string // tenant id of the active scope
	Foreign string // tenant id the caller supplied
}

func (e *CrossTenantWriteError) Error() string {
	return fmt.Sprintf("tenantdb: cross-tenant write to %s: scope tenant %q, supplied tenant %q",
		e.Table, e.Scope, e.Foreign)
}
