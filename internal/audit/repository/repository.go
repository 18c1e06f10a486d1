package repository

import (
	"context"

	"github.com/crestline/tenantcore/internal/audit/domain"
)

// Repository defines persistence for audit events. It sits outside the
// tenant gateway and outside row security: recording a superadmin bypass
// must never itself require a bypass.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	ListByOrg(ctx context.Context, orgID string, limit, offset int32) ([]*domain.Event, error)
	ListByAction(ctx context.Context, action string, limit, offset int32) ([]*domain.Event, error)
	Create(ctx context.Context, e *domain.Event) error
}
