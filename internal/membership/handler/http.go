// Package handler serves the membership HTTP API: org rosters, invitations,
// role changes, and removals. Authorization lives in the service's guard
// checks; this layer maps requests and errors.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/crestline/tenantcore/internal/membership/domain"
	"github.com/crestline/tenantcore/internal/membership/service"
	"github.com/crestline/tenantcore/internal/platform/rbac"
	"github.com/crestline/tenantcore/internal/server/httpx"
	"github.com/crestline/tenantcore/internal/tenancy"
)

// Handler serves membership routes under /v1/orgs/{orgID} and
// /v1/invitations.
type Handler struct {
	svc *service.MembershipService
}

// NewHandler returns a membership handler over svc.
func NewHandler(svc *service.MembershipService) *Handler {
	return &Handler{svc: svc}
}

type memberResponse struct {
	UserID    string     `json:"user_id"`
	OrgID     string     `json:"org_id"`
	Role      string     `json:"role"`
	Status    string     `json:"status"`
	Flags     flagsBody  `json:"permissions"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

type flagsBody struct {
	Invite             bool `json:"invite"`
	ManageProjects     bool `json:"manage_projects"`
	ManageMembers      bool `json:"manage_members"`
	ManageBilling      bool `json:"manage_billing"`
	ManageSettings     bool `json:"manage_settings"`
	DeleteOrganization bool `json:"delete_organization"`
}

func (b flagsBody) toDomain() domain.PermissionFlags {
	return domain.PermissionFlags{
		Invite:             b.Invite,
		ManageProjects:     b.ManageProjects,
		ManageMembers:      b.ManageMembers,
		ManageBilling:      b.ManageBilling,
		ManageSettings:     b.ManageSettings,
		DeleteOrganization: b.DeleteOrganization,
	}
}

func fromFlags(f domain.PermissionFlags) flagsBody {
	return flagsBody{
		Invite:             f.Invite,
		ManageProjects:     f.ManageProjects,
		ManageMembers:      f.ManageMembers,
		ManageBilling:      f.ManageBilling,
		ManageSettings:     f.ManageSettings,
		DeleteOrganization: f.DeleteOrganization,
	}
}

func toMemberResponse(m *domain.Membership) memberResponse {
	return memberResponse{
		UserID:    m.UserID,
		OrgID:     m.OrgID,
		Role:      string(m.Role),
		Status:    string(m.Status),
		Flags:     fromFlags(m.Flags),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		DeletedAt: m.DeletedAt,
	}
}

// ListMembers handles GET /v1/orgs/{orgID}/members.
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.svc.ListMembers(r.Context(), r.PathValue("orgID"))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toMemberResponse(m))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

type inviteRequest struct {
	Email string     `json:"email"`
	Role  string     `json:"role"`
	Flags *flagsBody `json:"permissions,omitempty"`
}

type inviteResponse struct {
	InvitationID string    `json:"invitation_id"`
	Token        string    `json:"token"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Invite handles POST /v1/orgs/{orgID}/invitations. The raw token is
// returned once for delivery; only its digest is stored.
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_role", err.Error())
		return
	}
	var flags *domain.PermissionFlags
	if req.Flags != nil {
		f := req.Flags.toDomain()
		flags = &f
	}
	token, inv, err := h.svc.InviteMember(r.Context(), r.PathValue("orgID"), req.Email, role, flags)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, inviteResponse{
		InvitationID: inv.ID,
		Token:        token,
		Email:        inv.Email,
		Role:         string(inv.Role),
		ExpiresAt:    inv.ExpiresAt,
	})
}

type acceptRequest struct {
	Token string `json:"token"`
}

// Accept handles POST /v1/invitations/accept for the acting user.
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	m, err := h.svc.AcceptInvitation(r.Context(), req.Token)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toMemberResponse(m))
}

type changeRoleRequest struct {
	Role  string     `json:"role"`
	Flags *flagsBody `json:"permissions,omitempty"`
}

// ChangeRole handles PUT /v1/orgs/{orgID}/members/{userID}/role.
func (h *Handler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	var req changeRoleRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_role", err.Error())
		return
	}
	var flags *domain.PermissionFlags
	if req.Flags != nil {
		f := req.Flags.toDomain()
		flags = &f
	}
	m, err := h.svc.ChangeRole(r.Context(), r.PathValue("orgID"), r.PathValue("userID"), role, flags)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toMemberResponse(m))
}

// Remove handles DELETE /v1/orgs/{orgID}/members/{userID}.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveMember(r.Context(), r.PathValue("orgID"), r.PathValue("userID")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	var forbidden *rbac.ForbiddenError
	switch {
	case errors.Is(err, tenancy.ErrMissingContext), errors.Is(err, service.ErrActingUserRequired):
		httpx.WriteError(w, http.StatusUnauthorized, "unauthenticated", "no tenant context")
	case errors.As(err, &forbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", forbidden.Error())
	case errors.Is(err, service.ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, service.ErrInvalidInvitation):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_invitation", err.Error())
	case errors.Is(err, service.ErrInvitationExpired):
		httpx.WriteError(w, http.StatusGone, "invitation_expired", err.Error())
	case errors.Is(err, service.ErrAlreadyMember):
		httpx.WriteError(w, http.StatusConflict, "already_member", err.Error())
	case errors.Is(err, service.ErrMemberNotFound):
		httpx.WriteError(w, http.StatusNotFound, "member_not_found", err.Error())
	case errors.Is(err, service.ErrLastOwner), errors.Is(err, service.ErrCannotRemoveOwner):
		httpx.WriteError(w, http.StatusConflict, "owner_constraint", err.Error())
	default:
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
