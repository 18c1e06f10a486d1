// Package tenancy carries the ambient tenant scope for one unit of work: an
// incoming request, a background job, or a test case. The scope travels on
// the context.Context of the unit, so concurrent units never observe each
// other's scope and nested bindings shadow the outer one for exactly the
// duration of the nested call.
//
// Access fails closed: code that reaches storage without a bound scope gets
// ErrMissingContext, never a default tenant.
package tenancy

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingContext is returned when a data operation runs without a tenant
// scope bound to its context.
var ErrMissingContext = errors.New("tenancy: no tenant scope bound to context")

// Source records how a scope was established.
type Source string

const (
	SourceRequest Source = "request"
	SourceSystem  Source = "system"
	SourceTest    Source = "test"
)

// Scope is the ambient tenant context. It is immutable once bound; rebind a
// new value for a nested unit of work instead of mutating it.
//
// The superadmin flag is unexported so that no Scope literal can carry it.
// The only way to obtain an elevated scope is Elevated or RunElevated, both
// of which record the bypass through a Recorder first.
type Scope struct {
	TenantID string
	UserID   string
	OrgID    string
	Source   Source

	superAdmin bool
}

// SuperAdmin reports whether tenant isolation is disabled for this scope.
func (s Scope) SuperAdmin() bool { return s.superAdmin }

func (s Scope) validate() error {
	switch s.Source {
	case SourceRequest, SourceSystem, SourceTest:
	default:
		return fmt.Errorf("tenancy: unknown scope source %q", s.Source)
	}
	if !s.superAdmin && s.TenantID == "" {
		return errors.New("tenancy: scope requires a tenant id")
	}
	if s.Source == SourceRequest && s.UserID == "" {
		return errors.New("tenancy: request scopes require an acting user id")
	}
	return nil
}

type scopeKey struct{}

// With returns a context with scope bound. The parent context is untouched,
// so the binding is undone by simply returning to the caller.
func With(ctx context.Context, scope Scope) (context.Context, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	return context.WithValue(ctx, scopeKey{}, scope), nil
}

// Current returns the scope bound to ctx. It fails closed with
// ErrMissingContext when none is bound.
func Current(ctx context.Context) (Scope, error) {
	s, ok := ctx.Value(scopeKey{}).(Scope)
	if !ok {
		return Scope{}, ErrMissingContext
	}
	return s, nil
}

// RunWith executes fn with scope bound to its context. Nested calls shadow
// the outer scope for the duration of fn only; the caller's context keeps
// its own binding whether fn succeeds or fails.
func RunWith(ctx context.Context, scope Scope, fn func(context.Context) error) error {
	scoped, err := With(ctx, scope)
	if err != nil {
		return err
	}
	return fn(scoped)
}
