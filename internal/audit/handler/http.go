// Package handler serves the audit trail API. The trail spans tenants, so
// every route here is superadmin-only; the route itself is trailed by the
// audit middleware like any other elevated request.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/crestline/tenantcore/internal/audit"
	"github.com/crestline/tenantcore/internal/audit/domain"
	"github.com/crestline/tenantcore/internal/audit/repository"
	"github.com/crestline/tenantcore/internal/server/httpx"
	"github.com/crestline/tenantcore/internal/tenancy"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Handler serves GET /v1/audit/events.
type Handler struct {
	repo repository.Repository
}

// NewHandler returns an audit handler over repo.
func NewHandler(repo repository.Repository) *Handler {
	return &Handler{repo: repo}
}

type eventResponse struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	OrgID     string    `json:"org_id"`
	ActorID   string    `json:"actor_id"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	Severity  string    `json:"severity"`
	IP        string    `json:"ip"`
	Metadata  string    `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

func toResponse(e *domain.Event) eventResponse {
	return eventResponse{
		ID:        e.ID,
		TenantID:  e.TenantID,
		OrgID:     e.OrgID,
		ActorID:   e.ActorID,
		Action:    e.Action,
		Resource:  e.Resource,
		Severity:  string(e.Severity),
		IP:        e.IP,
		Metadata:  e.Metadata,
		CreatedAt: e.CreatedAt,
	}
}

// List handles GET /v1/audit/events?org_id=...&action=...&limit=...&offset=...
// Exactly one of org_id or action selects the index to walk.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	scope, err := tenancy.Current(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "no tenant context")
		return
	}
	if !scope.SuperAdmin() {
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "audit trail requires an elevated scope")
		return
	}

	q := r.URL.Query()
	limit := queryInt(q.Get("limit"), defaultLimit)
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := queryInt(q.Get("offset"), 0)

	orgID := q.Get("org_id")
	action := q.Get("action")

	var events []*domain.Event
	switch {
	case orgID != "" && action != "":
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "org_id and action are mutually exclusive")
		return
	case action != "":
		events, err = h.repo.ListByAction(r.Context(), action, limit, offset)
	default:
		// An empty org_id lists platform events recorded under the sentinel.
		if orgID == "" {
			orgID = audit.SentinelOrgID
		}
		events, err = h.repo.ListByOrg(r.Context(), orgID, limit, offset)
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toResponse(e))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func queryInt(s string, fallback int32) int32 {
	if s == "" {
		return fallback
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil || n < 0 {
		return fallback
	}
	return int32(n)
}
