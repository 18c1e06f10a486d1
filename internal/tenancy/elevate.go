package tenancy

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// BypassRecord describes one use of the superadmin escape path.
type BypassRecord struct {
	ActorID string
	Reason  string
	Source  Source
	At      time.Time
}

// Recorder is the audit obligation attached to elevation. The audit package
// implements it; it is declared here so that an elevated scope cannot be
// constructed without one.
type Recorder interface {
	RecordBypass(ctx context.Context, rec BypassRecord) error
}

// Elevation names who is bypassing tenant isolation and why. ActorID must
// identify a system-level principal (an operator id, a job name), never an
// end user, and Reason must be a stable identifier usable in audit queries.
type Elevation struct {
	ActorID string
	Reason  string
	Source  Source // SourceSystem or SourceTest
}

// Elevated returns ctx with a superadmin scope bound. The bypass is recorded
// through rec before the scope is handed out; a recording failure aborts the
// elevation.
func Elevated(ctx context.Context, e Elevation, rec Recorder) (context.Context, error) {
	if rec == nil {
		return nil, errors.New("tenancy: elevation requires a bypass recorder")
	}
	if e.ActorID == "" || e.Reason == "" {
		return nil, errors.New("tenancy: elevation requires an actor id and a reason")
	}
	if e.Source != SourceSystem && e.Source != SourceTest {
		return nil, fmt.Errorf("tenancy: elevation source must be system or test, got %q", e.Source)
	}
	record := BypassRecord{
		ActorID: e.ActorID,
		Reason:  e.Reason,
		Source:  e.Source,
		At:      time.Now().UTC(),
	}
	if err := rec.RecordBypass(ctx, record); err != nil {
		return nil, fmt.Errorf("tenancy: recording bypass: %w", err)
	}
	scope := Scope{UserID: e.ActorID, Source: e.Source, superAdmin: true}
	return context.WithValue(ctx, scopeKey{}, scope), nil
}

// RunElevated executes fn under a superadmin scope. Using a closure keeps
// the elevation from spreading along the call chain: the caller's context
// stays non-elevated.
func RunElevated[T any](ctx context.Context, e Elevation, rec Recorder, fn func(context.Context) (T, error)) (T, error) {
	elevated, err := Elevated(ctx, e, rec)
	if err != nil {
		var zero T
		return zero, err
	}
	return fn(elevated)
}
