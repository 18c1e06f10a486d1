package repository

import (
	"context"
	"time"

	"github.com/crestline/tenantcore/internal/membership/domain"
)

// Repository defines persistence for memberships. Implementations read and
// write through the access-scoped gateway, so results are always bounded to
// the ambient tenant.
type Repository interface {
	GetMembershipByID(ctx context.Context, id string) (*domain.Membership, error)
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error)
	ListMembershipsByOrg(ctx context.Context, orgID string) ([]*domain.Membership, error)
	CreateMembership(ctx context.Context, m *domain.Membership) error
	UpdateRole(ctx context.Context, userID, orgID string, role domain.Role, flags domain.PermissionFlags) (*domain.Membership, error)
	UpdateStatus(ctx context.Context, userID, orgID string, status domain.Status) error
	SoftDeleteByUserAndOrg(ctx context.Context, userID, orgID string) error
	CountOwnersByOrg(ctx context.Context, orgID string) (int64, error)
}

// Invitations defines persistence for membership invitations.
type Invitations interface {
	CreateInvitation(ctx context.Context, inv *domain.Invitation) error
	GetInvitationByTokenHash(ctx context.Context, tokenHash string) (*domain.Invitation, error)
	MarkInvitationAccepted(ctx context.Context, id string, at time.Time) (int64, error)
	DeleteExpiredInvitations(ctx context.Context, cutoff time.Time) (int64, error)
}
