package rbac

import "github.com/crestline/tenantcore/internal/membership/domain"

// EffectivePermissions resolves the flags a membership actually grants.
// Owners hold every permission no matter what the row stores. Admin and
// manager rows grant exactly their stored flags, so an explicitly narrowed
// or widened grant sticks. Member and viewer rows grant the fixed role
// defaults; their stored flags are not consulted. Status is the caller's
// concern: this resolves role and flags only.
func EffectivePermissions(m *domain.Membership) domain.PermissionFlags {
	if m == nil {
		return domain.PermissionFlags{}
	}
	switch m.Role {
	case domain.RoleOwner:
		return domain.AllPermissions()
	case domain.RoleAdmin, domain.RoleManager:
		return m.Flags
	default:
		return domain.DefaultPermissions(m.Role)
	}
}
