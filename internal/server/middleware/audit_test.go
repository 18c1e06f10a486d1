package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/crestline/tenantcore/internal/tenancy"
)

type loggedEvent struct {
	orgID    string
	userID   string
	action   string
	resource string
	metadata string
}

type captureAuditLogger struct {
	mu     sync.Mutex
	events []loggedEvent
}

func (c *captureAuditLogger) LogEvent(_ context.Context, orgID, userID, action, resource, metadata string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, loggedEvent{orgID, userID, action, resource, metadata})
}

func (c *captureAuditLogger) all() []loggedEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]loggedEvent(nil), c.events...)
}

// serveRoute runs req through a real ServeMux so r.Pattern is populated the
// way it is in production, with the audit middleware wrapped per route.
func serveRoute(logger *captureAuditLogger, pattern string, status int, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.Handle(pattern, Audit(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func elevatedCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, err := tenancy.Elevated(context.Background(), tenancy.Elevation{
		ActorID: "ops-1",
		Reason:  "incident-7",
		Source:  tenancy.SourceSystem,
	}, noopRecorder{})
	if err != nil {
		t.Fatalf("elevate: %v", err)
	}
	return ctx
}

func TestAudit_SuperadminRequestLogged(t *testing.T) {
	logger := &captureAuditLogger{}
	req := httptest.NewRequest("GET", "/v1/audit/events", nil).WithContext(elevatedCtx(t))

	serveRoute(logger, "GET /v1/audit/events", http.StatusOK, req)

	events := logger.all()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	e := events[0]
	if e.action != "list" || e.resource != "event" {
		t.Errorf("action/resource = %q/%q, want list/event", e.action, e.resource)
	}
	if e.userID != "ops-1" {
		t.Errorf("userID = %q, want ops-1", e.userID)
	}
	if want := fmt.Sprintf("superadmin=true status=%d", http.StatusOK); e.metadata != want {
		t.Errorf("metadata = %q, want %q", e.metadata, want)
	}
}

func TestAudit_RouteOverrides(t *testing.T) {
	logger := &captureAuditLogger{}
	req := httptest.NewRequest("DELETE", "/v1/orgs/org-1/members/u2", nil).WithContext(elevatedCtx(t))

	serveRoute(logger, "DELETE /v1/orgs/{orgID}/members/{userID}", http.StatusNoContent, req)

	events := logger.all()
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	e := events[0]
	if e.action != "user_removed" || e.resource != "membership" {
		t.Errorf("action/resource = %q/%q, want user_removed/membership", e.action, e.resource)
	}
	if want := "superadmin=true status=204"; e.metadata != want {
		t.Errorf("metadata = %q, want %q", e.metadata, want)
	}
}

func TestAudit_TenantRequestNotLogged(t *testing.T) {
	logger := &captureAuditLogger{}
	ctx, err := tenancy.With(context.Background(), tenancy.Scope{
		TenantID: "t1",
		UserID:   "u1",
		OrgID:    "org-1",
		Source:   tenancy.SourceRequest,
	})
	if err != nil {
		t.Fatalf("bind scope: %v", err)
	}
	req := httptest.NewRequest("GET", "/v1/orgs", nil).WithContext(ctx)

	serveRoute(logger, "GET /v1/orgs", http.StatusOK, req)

	if n := len(logger.all()); n != 0 {
		t.Errorf("events = %d, want 0: tenant traffic is audited by the services, not here", n)
	}
}

func TestAudit_UnauthenticatedRequestNotLogged(t *testing.T) {
	logger := &captureAuditLogger{}
	req := httptest.NewRequest("GET", "/v1/orgs", nil)

	serveRoute(logger, "GET /v1/orgs", http.StatusOK, req)

	if n := len(logger.all()); n != 0 {
		t.Errorf("events = %d, want 0", n)
	}
}

func TestAudit_NilLogger(t *testing.T) {
	mux := http.NewServeMux()
	mux.Handle("GET /v1/orgs", Audit(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest("GET", "/v1/orgs", nil).WithContext(elevatedCtx(t))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
