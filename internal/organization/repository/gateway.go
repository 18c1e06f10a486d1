package repository

import (
	"context"
	"time"

	"github.com/crestline/tenantcore/internal/organization/domain"
	"github.com/crestline/tenantcore/internal/tenantdb"
)

const organizationsTable = "organizations"

// GatewayRepository persists organizations through the access-scoped gateway.
type GatewayRepository struct {
	gw *tenantdb.Gateway
}

// NewGatewayRepository returns an organization repository over gw.
func NewGatewayRepository(gw *tenantdb.Gateway) *GatewayRepository {
	return &GatewayRepository{gw: gw}
}

// GetOrganizationByID returns the organization for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *GatewayRepository) GetOrganizationByID(ctx context.Context, id string) (*domain.Org, error) {
	row, err := r.gw.SelectOne(ctx, tenantdb.Query{
		Table: organizationsTable,
		Where: []tenantdb.Cond{tenantdb.Eq("id", id)},
	})
	if err != nil {
		return nil, err
	}
	return rowToOrg(row), nil
}

// GetOrganizationBySlug returns the organization for slug, or nil if not found.
func (r *GatewayRepository) GetOrganizationBySlug(ctx context.Context, slug string) (*domain.Org, error) {
	row, err := r.gw.SelectOne(ctx, tenantdb.Query{
		Table: organizationsTable,
		Where: []tenantdb.Cond{tenantdb.Eq("slug", slug)},
	})
	if err != nil {
		return nil, err
	}
	return rowToOrg(row), nil
}

// ListOrganizations returns the tenant's organizations, oldest first.
func (r *GatewayRepository) ListOrganizations(ctx context.Context) ([]*domain.Org, error) {
	rows, err := r.gw.SelectWhere(ctx, tenantdb.Query{
		Table:   organizationsTable,
		OrderBy: []tenantdb.Order{{Col: "created_at"}},
	})
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Org, len(rows))
	for i, row := range rows {
		out[i] = rowToOrg(row)
	}
	return out, nil
}

// CreateOrganization persists the organization. The organization must have
// ID set; the tenant id is pinned by the gateway when left empty.
func (r *GatewayRepository) CreateOrganization(ctx context.Context, o *domain.Org) error {
	_, err := r.gw.Insert(ctx, organizationsTable, orgToRow(o))
	return err
}

// UpdateOrganization updates the stored name, slug, and status for the
// organization.
func (r *GatewayRepository) UpdateOrganization(ctx context.Context, o *domain.Org) error {
	_, err := r.gw.Update(ctx, organizationsTable, tenantdb.Row{
		"name":       o.Name,
		"slug":       o.Slug,
		"status":     string(o.Status),
		"updated_at": time.Now().UTC(),
	}, tenantdb.Eq("id", o.ID))
	return err
}

func orgToRow(o *domain.Org) tenantdb.Row {
	row := tenantdb.Row{
		"id":         o.ID,
		"name":       o.Name,
		"slug":       o.Slug,
		"status":     string(o.Status),
		"created_at": o.CreatedAt,
		"updated_at": o.UpdatedAt,
	}
	if o.TenantID != "" {
		row["tenant_id"] = o.TenantID
	}
	return row
}

func rowToOrg(row tenantdb.Row) *domain.Org {
	if row == nil {
		return nil
	}
	return &domain.Org{
		ID:        tenantdb.RowString(row, "id"),
		TenantID:  tenantdb.RowString(row, "tenant_id"),
		Name:      tenantdb.RowString(row, "name"),
		Slug:      tenantdb.RowString(row, "slug"),
		Status:    domain.OrgStatus(tenantdb.RowString(row, "status")),
		CreatedAt: tenantdb.RowTime(row, "created_at"),
		UpdatedAt: tenantdb.RowTime(row, "updated_at"),
	}
}
