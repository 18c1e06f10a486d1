package repository

import (
	"context"
	"time"

	"github.com/crestline/tenantcore/internal/membership/domain"
	"github.com/crestline/tenantcore/internal/tenantdb"
)

const (
	membershipsTable = "memberships"
	invitationsTable = "invitations"
)

// GatewayRepository persists memberships and invitations through the
// access-scoped gateway.
type GatewayRepository struct {
	gw *tenantdb.Gateway
}

// NewGatewayRepository returns a membership repository over gw.
func NewGatewayRepository(gw *tenantdb.Gateway) *GatewayRepository {
	return &GatewayRepository{gw: gw}
}

// GetMembershipByID returns the membership for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *GatewayRepository) GetMembershipByID(ctx context.Context, id string) (*domain.Membership, error) {
	row, err := r.gw.SelectOne(ctx, tenantdb.Query{
		Table: membershipsTable,
		Where: []tenantdb.Cond{
			tenantdb.Eq("id", id),
			tenantdb.IsNull("deleted_at"),
		},
	})
	if err != nil {
		return nil, err
	}
	return rowToMembership(row), nil
}

// GetMembershipByUserAndOrg returns the membership for the given user and
// org, or nil if not found. Soft-deleted rows read as missing.
func (r *GatewayRepository) GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	row, err := r.gw.SelectOne(ctx, tenantdb.Query{
		Table: membershipsTable,
		Where: []tenantdb.Cond{
			tenantdb.Eq("user_id", userID),
			tenantdb.Eq("org_id", orgID),
			tenantdb.IsNull("deleted_at"),
		},
	})
	if err != nil {
		return nil, err
	}
	return rowToMembership(row), nil
}

// ListMembershipsByOrg returns all live memberships for the given org,
// oldest first.
func (r *GatewayRepository) ListMembershipsByOrg(ctx context.Context, orgID string) ([]*domain.Membership, error) {
	rows, err := r.gw.SelectWhere(ctx, tenantdb.Query{
		Table: membershipsTable,
		Where: []tenantdb.Cond{
			tenantdb.Eq("org_id", orgID),
			tenantdb.IsNull("deleted_at"),
		},
		OrderBy: []tenantdb.Order{{Col: "created_at"}},
	})
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Membership, len(rows))
	for i, row := range rows {
		out[i] = rowToMembership(row)
	}
	return out, nil
}

// CreateMembership persists the membership. The membership must have ID set;
// the tenant id is pinned by the gateway when left empty.
func (r *GatewayRepository) CreateMembership(ctx context.Context, m *domain.Membership) error {
	_, err := r.gw.Insert(ctx, membershipsTable, membershipToRow(m))
	return err
}

// UpdateRole sets the role and permission flags for the given user and org
// and returns the updated membership, or nil if no live row matched.
func (r *GatewayRepository) UpdateRole(ctx context.Context, userID, orgID string, role domain.Role, flags domain.PermissionFlags) (*domain.Membership, error) {
	set := tenantdb.Row{
		"role":                     string(role),
		"perm_invite":              flags.Invite,
		"perm_manage_projects":     flags.ManageProjects,
		"perm_manage_members":      flags.ManageMembers,
		"perm_manage_billing":      flags.ManageBilling,
		"perm_manage_settings":     flags.ManageSettings,
		"perm_delete_organization": flags.DeleteOrganization,
		"updated_at":               time.Now().UTC(),
	}
	n, err := r.gw.Update(ctx, membershipsTable, set,
		tenantdb.Eq("user_id", userID),
		tenantdb.Eq("org_id", orgID),
		tenantdb.IsNull("deleted_at"),
	)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	return r.GetMembershipByUserAndOrg(ctx, userID, orgID)
}

// UpdateStatus sets the status for the given user and org.
func (r *GatewayRepository) UpdateStatus(ctx context.Context, userID, orgID string, status domain.Status) error {
	_, err := r.gw.Update(ctx, membershipsTable, tenantdb.Row{
		"status":     string(status),
		"updated_at": time.Now().UTC(),
	},
		tenantdb.Eq("user_id", userID),
		tenantdb.Eq("org_id", orgID),
		tenantdb.IsNull("deleted_at"),
	)
	return err
}

// SoftDeleteByUserAndOrg marks the membership deleted. The row stays behind
// for audit trails; every read in this package filters it out.
func (r *GatewayRepository) SoftDeleteByUserAndOrg(ctx context.Context, userID, orgID string) error {
	now := time.Now().UTC()
	_, err := r.gw.Update(ctx, membershipsTable, tenantdb.Row{
		"deleted_at": now,
		"updated_at": now,
	},
		tenantdb.Eq("user_id", userID),
		tenantdb.Eq("org_id", orgID),
		tenantdb.IsNull("deleted_at"),
	)
	return err
}

// CountOwnersByOrg returns how many live, active owners the org has.
func (r *GatewayRepository) CountOwnersByOrg(ctx context.Context, orgID string) (int64, error) {
	rows, err := r.gw.SelectWhere(ctx, tenantdb.Query{
		Table:   membershipsTable,
		Columns: []string{"id"},
		Where: []tenantdb.Cond{
			tenantdb.Eq("org_id", orgID),
			tenantdb.Eq("role", string(domain.RoleOwner)),
			tenantdb.Eq("status", string(domain.StatusActive)),
			tenantdb.IsNull("deleted_at"),
		},
	})
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func membershipToRow(m *domain.Membership) tenantdb.Row {
	row := tenantdb.Row{
		"id":                       m.ID,
		"user_id":                  m.UserID,
		"org_id":                   m.OrgID,
		"role":                     string(m.Role),
		"status":                   string(m.Status),
		"perm_invite":              m.Flags.Invite,
		"perm_manage_projects":     m.Flags.ManageProjects,
		"perm_manage_members":      m.Flags.ManageMembers,
		"perm_manage_billing":      m.Flags.ManageBilling,
		"perm_manage_settings":     m.Flags.ManageSettings,
		"perm_delete_organization": m.Flags.DeleteOrganization,
		"created_at":               m.CreatedAt,
		"updated_at":               m.UpdatedAt,
	}
	if m.TenantID != "" {
		row["tenant_id"] = m.TenantID
	}
	return row
}

func rowToMembership(row tenantdb.Row) *domain.Membership {
	if row == nil {
		return nil
	}
	return &domain.Membership{
		ID:       tenantdb.RowString(row, "id"),
		TenantID: tenantdb.RowString(row, "tenant_id"),
		UserID:   tenantdb.RowString(row, "user_id"),
		OrgID:    tenantdb.RowString(row, "org_id"),
		Role:     domain.Role(tenantdb.RowString(row, "role")),
		Status:   domain.Status(tenantdb.RowString(row, "status")),
		Flags: domain.PermissionFlags{
			Invite:             tenantdb.RowBool(row, "perm_invite"),
			ManageProjects:     tenantdb.RowBool(row, "perm_manage_projects"),
			ManageMembers:      tenantdb.RowBool(row, "perm_manage_members"),
			ManageBilling:      tenantdb.RowBool(row, "perm_manage_billing"),
			ManageSettings:     tenantdb.RowBool(row, "perm_manage_settings"),
			DeleteOrganization: tenantdb.RowBool(row, "perm_delete_organization"),
		},
		CreatedAt: tenantdb.RowTime(row, "created_at"),
		UpdatedAt: tenantdb.RowTime(row, "updated_at"),
		DeletedAt: tenantdb.RowTimePtr(row, "deleted_at"),
	}
}
