// Package rbac evaluates role and permission checks over org memberships.
// Every check resolves membership rows through the tenant-scoped gateway, so
// a caller can only ever learn about roles inside its own tenant; the guard
// inherits that isolation rather than re-implementing it.
package rbac

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/crestline/tenantcore/internal/membership/domain"
	"github.com/crestline/tenantcore/internal/telemetry"
)

// MembershipGetter returns a user's membership in an org. Used by Guard to
// resolve caller role; the production implementation is the gateway-backed
// membership repository.
type MembershipGetter interface {
	GetMembershipByUserAndOrg(ctx context.Context, userID, orgID string) (*domain.Membership, error)
}

// Guard answers yes/no role questions and enforces them at the top of
// privileged operations. It is stateless and safe for concurrent use.
type Guard struct {
	memberships MembershipGetter
}

// NewGuard returns a Guard resolving memberships through getter.
func NewGuard(getter MembershipGetter) *Guard {
	return &Guard{memberships: getter}
}

// resolve loads the membership behind every check. A missing membership
// resolves to nil, which every caller treats as "no".
func (g *Guard) resolve(ctx context.Context, userID, orgID string) (*domain.Membership, error) {
	if userID == "" || orgID == "" {
		return nil, ErrMissingSubject
	}
	m, err := g.memberships.GetMembershipByUserAndOrg(ctx, userID, orgID)
	if err != nil {
		return nil, fmt.Errorf("rbac: resolve membership: %w", err)
	}
	return m, nil
}

// IsOwner reports whether the user holds an active owner membership in the
// org. A suspended or soft-deleted owner does not count.
func (g *Guard) IsOwner(ctx context.Context, userID, orgID string) (bool, error) {
	m, err := g.resolve(ctx, userID, orgID)
	if err != nil {
		return false, err
	}
	return m.Active() && m.Role == domain.RoleOwner, nil
}

// IsActiveMember reports whether the user has a membership in the org whose
// status is active and which has not been soft-deleted.
func (g *Guard) IsActiveMember(ctx context.Context, userID, orgID string) (bool, error) {
	m, err := g.resolve(ctx, userID, orgID)
	if err != nil {
		return false, err
	}
	return m.Active(), nil
}

// HasMinimumRole reports whether the user's active membership carries min or
// a higher role in the order owner > admin > manager > member > viewer. An
// unknown min is an error, never a silent false.
func (g *Guard) HasMinimumRole(ctx context.Context, userID, orgID string, min domain.Role) (bool, error) {
	if !min.Valid() {
		return false, fmt.Errorf("rbac: unknown role %q", min)
	}
	m, err := g.resolve(ctx, userID, orgID)
	if err != nil {
		return false, err
	}
	return m.Active() && m.Role.AtLeast(min), nil
}

// HasPermission reports whether the user's active membership grants flag
// after role-based flag resolution. An unknown flag is an error.
func (g *Guard) HasPermission(ctx context.Context, userID, orgID string, flag domain.Permission) (bool, error) {
	if !flag.Valid() {
		return false, fmt.Errorf("rbac: unknown permission %q", flag)
	}
	m, err := g.resolve(ctx, userID, orgID)
	if err != nil {
		return false, err
	}
	if !m.Active() {
		return false, nil
	}
	return EffectivePermissions(m).Has(flag), nil
}

// RequireOwner ensures the user holds an active owner membership in the org,
// returning a *ForbiddenError otherwise.
func (g *Guard) RequireOwner(ctx context.Context, userID, orgID string) error {
	ok, err := g.IsOwner(ctx, userID, orgID)
	if err != nil {
		return err
	}
	if !ok {
		return g.deny(ctx, &ForbiddenError{
			UserID: userID, OrgID: orgID,
			Check: "owner", Required: string(domain.RoleOwner),
		})
	}
	return nil
}

// RequireActiveMember ensures the user is an active member of the org,
// returning a *ForbiddenError otherwise.
func (g *Guard) RequireActiveMember(ctx context.Context, userID, orgID string) error {
	ok, err := g.IsActiveMember(ctx, userID, orgID)
	if err != nil {
		return err
	}
	if !ok {
		return g.deny(ctx, &ForbiddenError{
			UserID: userID, OrgID: orgID,
			Check: "active member", Required: "active membership",
		})
	}
	return nil
}

// RequireMinimumRole ensures the user's active membership carries min or a
// higher role, returning a *ForbiddenError otherwise.
func (g *Guard) RequireMinimumRole(ctx context.Context, userID, orgID string, min domain.Role) error {
	ok, err := g.HasMinimumRole(ctx, userID, orgID, min)
	if err != nil {
		return err
	}
	if !ok {
		return g.deny(ctx, &ForbiddenError{
			UserID: userID, OrgID: orgID,
			Check: "minimum role", Required: string(min),
		})
	}
	return nil
}

// RequirePermission ensures the user's active membership grants flag,
// returning a *ForbiddenError otherwise.
func (g *Guard) RequirePermission(ctx context.Context, userID, orgID string, flag domain.Permission) error {
	ok, err := g.HasPermission(ctx, userID, orgID, flag)
	if err != nil {
		return err
	}
	if !ok {
		return g.deny(ctx, &ForbiddenError{
			UserID: userID, OrgID: orgID,
			Check: "permission", Required: string(flag),
		})
	}
	return nil
}

func (g *Guard) deny(ctx context.Context, e *ForbiddenError) error {
	telemetry.GetMetrics().GuardDenialsTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("check", e.Check)))
	return e
}
