package repository

import (
	"context"
	"time"

	"github.com/crestline/tenantcore/internal/membership/domain"
	"github.com/crestline/tenantcore/internal/tenantdb"
)

// CreateInvitation persists the invitation. The tenant id is pinned by the
// gateway when left empty.
func (r *GatewayRepository) CreateInvitation(ctx context.Context, inv *domain.Invitation) error {
	_, err := r.gw.Insert(ctx, invitationsTable, invitationToRow(inv))
	return err
}

// GetInvitationByTokenHash returns the invitation whose token digest matches,
// or nil if not found. Callers check Pending separately so that an expired
// token reads differently from an unknown one.
func (r *GatewayRepository) GetInvitationByTokenHash(ctx context.Context, tokenHash string) (*domain.Invitation, error) {
	row, err := r.gw.SelectOne(ctx, tenantdb.Query{
		Table: invitationsTable,
		Where: []tenantdb.Cond{tenantdb.Eq("token_hash", tokenHash)},
	})
	if err != nil {
		return nil, err
	}
	return rowToInvitation(row), nil
}

// MarkInvitationAccepted stamps the invitation accepted at the given time.
// It returns how many rows changed: zero means the invitation was already
// accepted (or never existed), so a concurrent double-accept loses cleanly.
func (r *GatewayRepository) MarkInvitationAccepted(ctx context.Context, id string, at time.Time) (int64, error) {
	return r.gw.Update(ctx, invitationsTable, tenantdb.Row{
		"accepted_at": at,
	},
		tenantdb.Eq("id", id),
		tenantdb.IsNull("accepted_at"),
	)
}

// DeleteExpiredInvitations removes unaccepted invitations that expired before
// cutoff and returns how many were deleted.
func (r *GatewayRepository) DeleteExpiredInvitations(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.gw.Delete(ctx, invitationsTable,
		tenantdb.Lt("expires_at", cutoff),
		tenantdb.IsNull("accepted_at"),
	)
}

func invitationToRow(inv *domain.Invitation) tenantdb.Row {
	row := tenantdb.Row{
		"id":                       inv.ID,
		"org_id":                   inv.OrgID,
		"email":                    inv.Email,
		"role":                     string(inv.Role),
		"perm_invite":              inv.Flags.Invite,
		"perm_manage_projects":     inv.Flags.ManageProjects,
		"perm_manage_members":      inv.Flags.ManageMembers,
		"perm_manage_billing":      inv.Flags.ManageBilling,
		"perm_manage_settings":     inv.Flags.ManageSettings,
		"perm_delete_organization": inv.Flags.DeleteOrganization,
		"token_hash":               inv.TokenHash,
		"invited_by":               inv.InvitedBy,
		"expires_at":               inv.ExpiresAt,
		"created_at":               inv.CreatedAt,
	}
	if inv.TenantID != "" {
		row["tenant_id"] = inv.TenantID
	}
	if inv.AcceptedAt != nil {
		row["accepted_at"] = *inv.AcceptedAt
	}
	return row
}

func rowToInvitation(row tenantdb.Row) *domain.Invitation {
	if row == nil {
		return nil
	}
	return &domain.Invitation{
		ID:       tenantdb.RowString(row, "id"),
		TenantID: tenantdb.RowString(row, "tenant_id"),
		OrgID:    tenantdb.RowString(row, "org_id"),
		Email:    tenantdb.RowString(row, "email"),
		Role:     domain.Role(tenantdb.RowString(row, "role")),
		Flags: domain.PermissionFlags{
			Invite:             tenantdb.RowBool(row, "perm_invite"),
			ManageProjects:     tenantdb.RowBool(row, "perm_manage_projects"),
			ManageMembers:      tenantdb.RowBool(row, "perm_manage_members"),
			ManageBilling:      tenantdb.RowBool(row, "perm_manage_billing"),
			ManageSettings:     tenantdb.RowBool(row, "perm_manage_settings"),
			DeleteOrganization: tenantdb.RowBool(row, "perm_delete_organization"),
		},
		TokenHash:  tenantdb.RowString(row, "token_hash"),
		InvitedBy:  tenantdb.RowString(row, "invited_by"),
		ExpiresAt:  tenantdb.RowTime(row, "expires_at"),
		AcceptedAt: tenantdb.RowTimePtr(row, "accepted_at"),
		CreatedAt:  tenantdb.RowTime(row, "created_at"),
	}
}
