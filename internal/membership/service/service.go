// Package service composes guard checks with membership mutations. Every
// read and write flows through the tenant-scoped gateway, so the operations
// here add authorization and lifecycle rules on top of isolation that is
// already guaranteed underneath them.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crestline/tenantcore/internal/membership/domain"
	"github.com/crestline/tenantcore/internal/membership/repository"
	orgdomain "github.com/crestline/tenantcore/internal/organization/domain"
	orgrepo "github.com/crestline/tenantcore/internal/organization/repository"
	"github.com/crestline/tenantcore/internal/platform/rbac"
	"github.com/crestline/tenantcore/internal/security"
	"github.com/crestline/tenantcore/internal/tenancy"
	"github.com/crestline/tenantcore/internal/tenantdb"
)

// Sentinel errors for the membership service; boundaries map them to
// response codes.
var (
	// ErrInvalidInput wraps request validation failures so boundaries can map
	// them to a 400 without matching message text.
	ErrInvalidInput = errors.New("invalid input")

	ErrActingUserRequired = errors.New("acting user missing from context")
	ErrSlugTaken          = errors.New("organization slug already in use")
	ErrInvalidInvitation  = errors.New("invitation is invalid or already used")
	ErrInvitationExpired  = errors.New("invitation has expired")
	ErrAlreadyMember      = errors.New("user is already a member of the organization")
	ErrMemberNotFound     = errors.New("membership not found")
	ErrLastOwner          = errors.New("organization must retain at least one owner")
	ErrCannotRemoveOwner  = errors.New("owners cannot be removed; change their role first")
)

const defaultInvitationTTL = 72 * time.Hour

// AuditLogger records membership lifecycle events. Implementations are
// best-effort and must not fail the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string)
}

// MembershipService implements organization creation, invitations, role
// changes, and member removal.
type MembershipService struct {
	gw            *tenantdb.Gateway
	members       *repository.GatewayRepository
	orgs          *orgrepo.GatewayRepository
	guard         *rbac.Guard
	audit         AuditLogger
	invitationTTL time.Duration
}

// NewMembershipService returns a MembershipService over gw. audit may be
// nil in tests; invitationTTL of zero selects the 72h default.
func NewMembershipService(gw *tenantdb.Gateway, guard *rbac.Guard, audit AuditLogger, invitationTTL time.Duration) *MembershipService {
	if invitationTTL <= 0 {
		invitationTTL = defaultInvitationTTL
	}
	return &MembershipService{
		gw:            gw,
		members:       repository.NewGatewayRepository(gw),
		orgs:          orgrepo.NewGatewayRepository(gw),
		guard:         guard,
		audit:         audit,
		invitationTTL: invitationTTL,
	}
}

// CreateOrganization creates an organization and its owner membership in one
// transaction. The acting user from the ambient context becomes the owner
// with every permission flag set.
func (s *MembershipService) CreateOrganization(ctx context.Context, name, slug string) (*orgdomain.Org, error) {
	scope, err := tenancy.Current(ctx)
	if err != nil {
		return nil, err
	}
	if scope.UserID == "" {
		return nil, ErrActingUserRequired
	}

	now := time.Now().UTC()
	org := &orgdomain.Org{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		Slug:      strings.TrimSpace(slug),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := org.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	err = s.gw.Transactional(ctx, func(tx *tenantdb.Gateway) error {
		orgs := orgrepo.NewGatewayRepository(tx)
		members := repository.NewGatewayRepository(tx)

		existing, err := orgs.GetOrganizationBySlug(ctx, org.Slug)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrSlugTaken
		}
		if err := orgs.CreateOrganization(ctx, org); err != nil {
			return err
		}
		return members.CreateMembership(ctx, &domain.Membership{
			ID:        uuid.New().String(),
			UserID:    scope.UserID,
			OrgID:     org.ID,
			Role:      domain.RoleOwner,
			Status:    domain.StatusActive,
			Flags:     domain.AllPermissions(),
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, org.ID, scope.UserID, "create", "organization", "slug="+org.Slug)
	return org, nil
}

// InviteMember creates an invitation to join org with the given role and
// returns the raw token for delivery to the invitee; only its digest is
// stored. The inviter needs the invite permission and must hold at least the
// role being granted, so nobody invites above their own tier. Nil flags
// select the role's defaults.
func (s *MembershipService) InviteMember(ctx context.Context, orgID, email string, role domain.Role, flags *domain.PermissionFlags) (string, *domain.Invitation, error) {
	scope, err := tenancy.Current(ctx)
	if err != nil {
		return "", nil, err
	}
	if err := s.guard.RequirePermission(ctx, scope.UserID, orgID, domain.PermissionInvite); err != nil {
		return "", nil, err
	}
	if err := s.guard.RequireMinimumRole(ctx, scope.UserID, orgID, role); err != nil {
		return "", nil, err
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validateEmail(email); err != nil {
		return "", nil, fmt.Errorf("%w: %s", ErrInvalidInput, err)
	}

	token, err := security.NewInvitationToken()
	if err != nil {
		return "", nil, fmt.Errorf("mint invitation token: %w", err)
	}
	granted := domain.DefaultPermissions(role)
	if flags != nil {
		granted = *flags
	}
	now := time.Now().UTC()
	inv := &domain.Invitation{
		ID:        uuid.New().String(),
		OrgID:     orgID,
		Email:     email,
		Role:      role,
		Flags:     granted,
		TokenHash: security.HashInvitationToken(token),
		InvitedBy: scope.UserID,
		ExpiresAt: now.Add(s.invitationTTL),
		CreatedAt: now,
	}
	if err := s.members.CreateInvitation(ctx, inv); err != nil {
		return "", nil, err
	}

	s.logEvent(ctx, orgID, scope.UserID, "invite", "membership", "email="+email+" role="+string(role))
	return token, inv, nil
}

// AcceptInvitation redeems token for the acting user, creating an active
// membership with the invitation's role and flags. Acceptance is
// transactional: marking the invitation used and inserting the membership
// happen atomically, and a concurrent double-accept loses.
func (s *MembershipService) AcceptInvitation(ctx context.Context, token string) (*domain.Membership, error) {
	scope, err := tenancy.Current(ctx)
	if err != nil {
		return nil, err
	}
	if scope.UserID == "" {
		return nil, ErrActingUserRequired
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidInvitation
	}

	inv, err := s.members.GetInvitationByTokenHash(ctx, security.HashInvitationToken(token))
	if err != nil {
		return nil, err
	}
	if inv == nil || inv.AcceptedAt != nil {
		return nil, ErrInvalidInvitation
	}
	now := time.Now().UTC()
	if !inv.Pending(now) {
		return nil, ErrInvitationExpired
	}
	existing, err := s.members.GetMembershipByUserAndOrg(ctx, scope.UserID, inv.OrgID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyMember
	}

	m := &domain.Membership{
		ID:        uuid.New().String(),
		UserID:    scope.UserID,
		OrgID:     inv.OrgID,
		Role:      inv.Role,
		Status:    domain.StatusActive,
		Flags:     inv.Flags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.gw.Transactional(ctx, func(tx *tenantdb.Gateway) error {
		members := repository.NewGatewayRepository(tx)
		n, err := members.MarkInvitationAccepted(ctx, inv.ID, now)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrInvalidInvitation
		}
		return members.CreateMembership(ctx, m)
	})
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, inv.OrgID, scope.UserID, "invitation_accepted", "membership", "role="+string(inv.Role))
	return m, nil
}

// ChangeRole sets the target user's role and flags in org. The actor needs
// the manage-members permission and at least the role being granted; only
// owners may touch another owner's membership. Demoting the last owner is
// refused so an org is never left ownerless. Nil flags select the new
// role's defaults.
func (s *MembershipService) ChangeRole(ctx context.Context, orgID, targetUserID string, role domain.Role, flags *domain.PermissionFlags) (*domain.Membership, error) {
	scope, err := tenancy.Current(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequirePermission(ctx, scope.UserID, orgID, domain.PermissionManageMembers); err != nil {
		return nil, err
	}
	if err := s.guard.RequireMinimumRole(ctx, scope.UserID, orgID, role); err != nil {
		return nil, err
	}

	target, err := s.members.GetMembershipByUserAndOrg(ctx, targetUserID, orgID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, ErrMemberNotFound
	}
	if target.Role == domain.RoleOwner {
		if err := s.guard.RequireOwner(ctx, scope.UserID, orgID); err != nil {
			return nil, err
		}
	}

	granted := domain.DefaultPermissions(role)
	if flags != nil {
		granted = *flags
	}

	var updated *domain.Membership
	err = s.gw.Transactional(ctx, func(tx *tenantdb.Gateway) error {
		members := repository.NewGatewayRepository(tx)
		if target.Role == domain.RoleOwner && role != domain.RoleOwner {
			owners, err := members.CountOwnersByOrg(ctx, orgID)
			if err != nil {
				return err
			}
			if owners <= 1 {
				return ErrLastOwner
			}
		}
		m, err := members.UpdateRole(ctx, targetUserID, orgID, role, granted)
		if err != nil {
			return err
		}
		if m == nil {
			return ErrMemberNotFound
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logEvent(ctx, orgID, scope.UserID, "role_changed", "membership", "user="+targetUserID+" role="+string(role))
	return updated, nil
}

// RemoveMember soft-deletes the target user's membership in org. The actor
// needs the manage-members permission. Owners cannot be removed: their role
// must be changed first, which walks through the last-owner check.
func (s *MembershipService) RemoveMember(ctx context.Context, orgID, targetUserID string) error {
	scope, err := tenancy.Current(ctx)
	if err != nil {
		return err
	}
	if err := s.guard.RequirePermission(ctx, scope.UserID, orgID, domain.PermissionManageMembers); err != nil {
		return err
	}

	target, err := s.members.GetMembershipByUserAndOrg(ctx, targetUserID, orgID)
	if err != nil {
		return err
	}
	if target == nil {
		return ErrMemberNotFound
	}
	if target.Role == domain.RoleOwner {
		return ErrCannotRemoveOwner
	}
	if err := s.members.SoftDeleteByUserAndOrg(ctx, targetUserID, orgID); err != nil {
		return err
	}

	s.logEvent(ctx, orgID, scope.UserID, "user_removed", "membership", "user="+targetUserID)
	return nil
}

// ListMembers returns the org's live memberships. Any active member may see
// the roster.
func (s *MembershipService) ListMembers(ctx context.Context, orgID string) ([]*domain.Membership, error) {
	scope, err := tenancy.Current(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireActiveMember(ctx, scope.UserID, orgID); err != nil {
		return nil, err
	}
	return s.members.ListMembershipsByOrg(ctx, orgID)
}

func (s *MembershipService) logEvent(ctx context.Context, orgID, userID, action, resource, metadata string) {
	if s.audit == nil {
		return
	}
	s.audit.LogEvent(ctx, orgID, userID, action, resource, metadata)
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return errors.New("invalid email format")
	}
	return nil
}
