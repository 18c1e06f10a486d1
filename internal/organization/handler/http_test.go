package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/crestline/tenantcore/internal/membership/repository"
	"github.com/crestline/tenantcore/internal/membership/service"
	"github.com/crestline/tenantcore/internal/organization/handler"
	orgrepo "github.com/crestline/tenantcore/internal/organization/repository"
	"github.com/crestline/tenantcore/internal/platform/rbac"
	"github.com/crestline/tenantcore/internal/tenancy"
	"github.com/crestline/tenantcore/internal/tenantdb"
	"github.com/crestline/tenantcore/internal/tenantdb/memstore"
)

func newHandler(t *testing.T) (*handler.Handler, *service.MembershipService) {
	t.Helper()
	gw := tenantdb.New(memstore.New())
	guard := rbac.NewGuard(repository.NewGatewayRepository(gw))
	svc := service.NewMembershipService(gw, guard, nil, 0)
	return handler.NewHandler(svc, orgrepo.NewGatewayRepository(gw), guard), svc
}

func scoped(t *testing.T, tenantID, userID string) context.Context {
	t.Helper()
	ctx, err := tenancy.With(context.Background(), tenancy.Scope{
		TenantID: tenantID,
		UserID:   userID,
		Source:   tenancy.SourceRequest,
	})
	if err != nil {
		t.Fatalf("binding scope: %v", err)
	}
	return ctx
}

func TestCreate_Success(t *testing.T) {
	h, _ := newHandler(t)
	req := httptest.NewRequest("POST", "/v1/orgs", strings.NewReader(`{"name":"Acme Rockets"}`))
	req = req.WithContext(scoped(t, "t1", "founder"))
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", w.Code, w.Body.String())
	}
	var resp struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.ID == "" || resp.Slug != "acme-rockets" {
		t.Errorf("response = %+v, want generated id and derived slug", resp)
	}
}

func TestCreate_Failure_MissingName(t *testing.T) {
	h, _ := newHandler(t)
	req := httptest.NewRequest("POST", "/v1/orgs", strings.NewReader(`{}`))
	req = req.WithContext(scoped(t, "t1", "founder"))
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCreate_Failure_DuplicateSlug(t *testing.T) {
	h, svc := newHandler(t)
	ctx := scoped(t, "t1", "founder")
	if _, err := svc.CreateOrganization(ctx, "Acme", "acme"); err != nil {
		t.Fatalf("seeding org: %v", err)
	}

	req := httptest.NewRequest("POST", "/v1/orgs", strings.NewReader(`{"name":"Other","slug":"acme"}`))
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()
	h.Create(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestCreate_Failure_NoScope(t *testing.T) {
	h, _ := newHandler(t)
	w := httptest.NewRecorder()
	h.Create(w, httptest.NewRequest("POST", "/v1/orgs", strings.NewReader(`{"name":"Acme"}`)))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestList_BoundedToTenant(t *testing.T) {
	h, svc := newHandler(t)
	if _, err := svc.CreateOrganization(scoped(t, "t1", "u1"), "Mine", ""); err != nil {
		t.Fatalf("seeding t1 org: %v", err)
	}
	if _, err := svc.CreateOrganization(scoped(t, "t2", "u2"), "Theirs", ""); err != nil {
		t.Fatalf("seeding t2 org: %v", err)
	}

	req := httptest.NewRequest("GET", "/v1/orgs", nil)
	req = req.WithContext(scoped(t, "t1", "u1"))
	w := httptest.NewRecorder()
	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var out []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(out) != 1 || out[0]["name"] != "Mine" {
		t.Errorf("listed %v, want only t1's org", out)
	}
}

func TestGet_Failure_NotAMember(t *testing.T) {
	h, svc := newHandler(t)
	org, err := svc.CreateOrganization(scoped(t, "t1", "founder"), "Acme", "")
	if err != nil {
		t.Fatalf("seeding org: %v", err)
	}

	req := httptest.NewRequest("GET", "/v1/orgs/"+org.ID, nil)
	req.SetPathValue("orgID", org.ID)
	req = req.WithContext(scoped(t, "t1", "outsider"))
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestGet_ForeignTenantOrgReadsAsNotFound(t *testing.T) {
	h, svc := newHandler(t)
	org, err := svc.CreateOrganization(scoped(t, "t2", "owner2"), "Theirs", "")
	if err != nil {
		t.Fatalf("seeding org: %v", err)
	}

	// Same org id queried from t1: membership check fails because the
	// membership row is invisible, which reads as forbidden, not as proof
	// the org exists elsewhere.
	req := httptest.NewRequest("GET", "/v1/orgs/"+org.ID, nil)
	req.SetPathValue("orgID", org.ID)
	req = req.WithContext(scoped(t, "t1", "owner2"))
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestGet_Success_ActiveMember(t *testing.T) {
	h, svc := newHandler(t)
	ctx := scoped(t, "t1", "founder")
	org, err := svc.CreateOrganization(ctx, "Acme", "")
	if err != nil {
		t.Fatalf("seeding org: %v", err)
	}

	req := httptest.NewRequest("GET", "/v1/orgs/"+org.ID, nil)
	req.SetPathValue("orgID", org.ID)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()
	h.Get(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), org.ID) {
		t.Errorf("body = %s, want org %s", w.Body.String(), org.ID)
	}
}
