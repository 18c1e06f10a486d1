package tenancy

import (
	"context"
	"errors"
	"testing"
)

// fakeRecorder implements Recorder for tests.
type fakeRecorder struct {
	records []BypassRecord
	err     error
}

func (f *fakeRecorder) RecordBypass(_ context.Context, rec BypassRecord) error {
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

func TestElevated_Success_RecordsBeforeHandingOutScope(t *testing.T) {
	rec := &fakeRecorder{}

	ctx, err := Elevated(context.Background(), Elevation{
		ActorID: "job:seed",
		Reason:  "dev-seed",
		Source:  SourceSystem,
	}, rec)
	if err != nil {
		t.Fatalf("Elevated: %v", err)
	}

	scope, err := Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if !scope.SuperAdmin() {
		t.Error("scope is not superadmin")
	}
	if scope.TenantID != "" {
		t.Errorf("tenant id = %q, want empty for elevated scope", scope.TenantID)
	}

	if len(rec.records) != 1 {
		t.Fatalf("recorded %d bypasses, want 1", len(rec.records))
	}
	got := rec.records[0]
	if got.ActorID != "job:seed" {
		t.Errorf("actor = %q, want %q", got.ActorID, "job:seed")
	}
	if got.Reason != "dev-seed" {
		t.Errorf("reason = %q, want %q", got.Reason, "dev-seed")
	}
	if got.At.IsZero() {
		t.Error("bypass record has zero timestamp")
	}
}

func TestElevated_Failure_NilRecorder(t *testing.T) {
	_, err := Elevated(context.Background(), Elevation{
		ActorID: "job:seed",
		Reason:  "dev-seed",
		Source:  SourceSystem,
	}, nil)
	if err == nil {
		t.Fatal("expected error for nil recorder")
	}
}

func TestElevated_Failure_RecorderError(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("audit store down")}

	_, err := Elevated(context.Background(), Elevation{
		ActorID: "job:seed",
		Reason:  "dev-seed",
		Source:  SourceSystem,
	}, rec)
	if err == nil {
		t.Fatal("expected elevation to abort when the bypass cannot be recorded")
	}
}

func TestElevated_Failure_RequestSource(t *testing.T) {
	rec := &fakeRecorder{}

	_, err := Elevated(context.Background(), Elevation{
		ActorID: "user-1",
		Reason:  "support-ticket",
		Source:  SourceRequest,
	}, rec)
	if err == nil {
		t.Fatal("expected error for request-sourced elevation")
	}
	if len(rec.records) != 0 {
		t.Errorf("recorded %d bypasses, want 0", len(rec.records))
	}
}

func TestElevated_Failure_MissingActorOrReason(t *testing.T) {
	rec := &fakeRecorder{}

	if _, err := Elevated(context.Background(), Elevation{Reason: "r", Source: SourceSystem}, rec); err == nil {
		t.Error("expected error for missing actor id")
	}
	if _, err := Elevated(context.Background(), Elevation{ActorID: "a", Source: SourceSystem}, rec); err == nil {
		t.Error("expected error for missing reason")
	}
}

func TestRunElevated_ScopeDoesNotLeakToCaller(t *testing.T) {
	rec := &fakeRecorder{}
	base, err := With(context.Background(), Scope{TenantID: "t1", UserID: "u1", Source: SourceTest})
	if err != nil {
		t.Fatalf("With: %v", err)
	}

	n, err := RunElevated(base, Elevation{
		ActorID: "test:isolation",
		Reason:  "cross-tenant-assertion",
		Source:  SourceTest,
	}, rec, func(ctx context.Context) (int, error) {
		scope, err := Current(ctx)
		if err != nil {
			return 0, err
		}
		if !scope.SuperAdmin() {
			t.Error("closure scope is not superadmin")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("RunElevated: %v", err)
	}
	if n != 42 {
		t.Errorf("result = %d, want 42", n)
	}

	after, err := Current(base)
	if err != nil {
		t.Fatalf("Current after RunElevated: %v", err)
	}
	if after.SuperAdmin() {
		t.Error("elevation leaked into the caller's context")
	}
	if after.TenantID != "t1" {
		t.Errorf("caller tenant id = %q, want %q", after.TenantID, "t1")
	}
}
