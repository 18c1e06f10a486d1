package repository

import (
	"context"
	"time"

	"github.com/crestline/tenantcore/internal/tenantdb"
	"github.com/crestline/tenantcore/internal/user/domain"
)

const usersTable = "users"

// GatewayRepository persists users through the access-scoped gateway.
type GatewayRepository struct {
	gw *tenantdb.Gateway
}

// NewGatewayRepository returns a user repository over gw.
func NewGatewayRepository(gw *tenantdb.Gateway) *GatewayRepository {
	return &GatewayRepository{gw: gw}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *GatewayRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row, err := r.gw.SelectOne(ctx, tenantdb.Query{
		Table: usersTable,
		Where: []tenantdb.Cond{tenantdb.Eq("id", id)},
	})
	if err != nil {
		return nil, err
	}
	return rowToUser(row), nil
}

// GetByEmail returns the user for email, or nil if not found. Emails are
// unique per tenant, not globally.
func (r *GatewayRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row, err := r.gw.SelectOne(ctx, tenantdb.Query{
		Table: usersTable,
		Where: []tenantdb.Cond{tenantdb.Eq("email", email)},
	})
	if err != nil {
		return nil, err
	}
	return rowToUser(row), nil
}

// List returns the tenant's users ordered by email.
func (r *GatewayRepository) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.gw.SelectWhere(ctx, tenantdb.Query{
		Table:   usersTable,
		OrderBy: []tenantdb.Order{{Col: "email"}},
	})
	if err != nil {
		return nil, err
	}
	out := make([]*domain.User, len(rows))
	for i, row := range rows {
		out[i] = rowToUser(row)
	}
	return out, nil
}

// Create persists the user. The user must have ID set; the tenant id is
// pinned by the gateway when left empty.
func (r *GatewayRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.gw.Insert(ctx, usersTable, userToRow(u))
	return err
}

// Update updates the stored email, display name, and status for the user.
func (r *GatewayRepository) Update(ctx context.Context, u *domain.User) error {
	_, err := r.gw.Update(ctx, usersTable, tenantdb.Row{
		"email":        u.Email,
		"display_name": u.DisplayName,
		"status":       string(u.Status),
		"updated_at":   time.Now().UTC(),
	}, tenantdb.Eq("id", u.ID))
	return err
}

func userToRow(u *domain.User) tenantdb.Row {
	row := tenantdb.Row{
		"id":           u.ID,
		"email":        u.Email,
		"display_name": u.DisplayName,
		"status":       string(u.Status),
		"created_at":   u.CreatedAt,
		"updated_at":   u.UpdatedAt,
	}
	if u.TenantID != "" {
		row["tenant_id"] = u.TenantID
	}
	return row
}

func rowToUser(row tenantdb.Row) *domain.User {
	if row == nil {
		return nil
	}
	return &domain.User{
		ID:          tenantdb.RowString(row, "id"),
		TenantID:    tenantdb.RowString(row, "tenant_id"),
		Email:       tenantdb.RowString(row, "email"),
		DisplayName: tenantdb.RowString(row, "display_name"),
		Status:      domain.UserStatus(tenantdb.RowString(row, "status")),
		CreatedAt:   tenantdb.RowTime(row, "created_at"),
		UpdatedAt:   tenantdb.RowTime(row, "updated_at"),
	}
}
