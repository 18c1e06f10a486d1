// Package handler serves the organization HTTP API. Tenant isolation is
// already guaranteed underneath by the gateway; this layer adds guard checks
// and request/response mapping only.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/crestline/tenantcore/internal/membership/service"
	"github.com/crestline/tenantcore/internal/organization/domain"
	"github.com/crestline/tenantcore/internal/organization/repository"
	"github.com/crestline/tenantcore/internal/platform/rbac"
	"github.com/crestline/tenantcore/internal/server/httpx"
	"github.com/crestline/tenantcore/internal/tenancy"
)

// Handler serves /v1/orgs.
type Handler struct {
	svc   *service.MembershipService
	orgs  repository.Repository
	guard *rbac.Guard
}

// NewHandler returns an organization handler.
func NewHandler(svc *service.MembershipService, orgs repository.Repository, guard *rbac.Guard) *Handler {
	return &Handler{svc: svc, orgs: orgs, guard: guard}
}

type createRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type orgResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toResponse(o *domain.Org) orgResponse {
	return orgResponse{
		ID:        o.ID,
		Name:      o.Name,
		Slug:      o.Slug,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

// Create handles POST /v1/orgs. The acting user becomes the owner.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	org, err := h.svc.CreateOrganization(r.Context(), req.Name, req.Slug)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toResponse(org))
}

// List handles GET /v1/orgs. The gateway bounds the result to the caller's
// tenant; no per-org role is needed to see the tenant's organizations.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgs.ListOrganizations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]orgResponse, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, toResponse(o))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// Get handles GET /v1/orgs/{orgID}. Requires an active membership in the
// organization.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orgID := r.PathValue("orgID")
	scope, err := tenancy.Current(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if !scope.SuperAdmin() {
		if err := h.guard.RequireActiveMember(r.Context(), scope.UserID, orgID); err != nil {
			writeError(w, err)
			return
		}
	}
	org, err := h.orgs.GetOrganizationByID(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	if org == nil {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "organization not found")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toResponse(org))
}

func writeError(w http.ResponseWriter, err error) {
	var forbidden *rbac.ForbiddenError
	switch {
	case errors.Is(err, tenancy.ErrMissingContext):
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "no tenant context")
	case errors.As(err, &forbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", forbidden.Error())
	case errors.Is(err, service.ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, service.ErrSlugTaken):
		httpx.WriteError(w, http.StatusConflict, "slug_taken", err.Error())
	case errors.Is(err, service.ErrActingUserRequired):
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
