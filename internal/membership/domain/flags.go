package domain

// Permission names one boolean in PermissionFlags.
type Permission string

const (
	PermissionInvite             Permission = "invite"
	PermissionManageProjects     Permission = "manage_projects"
	PermissionManageMembers      Permission = "manage_members"
	PermissionManageBilling      Permission = "manage_billing"
	PermissionManageSettings     Permission = "manage_settings"
	PermissionDeleteOrganization Permission = "delete_organization"
)

// Valid reports whether p names a known permission.
func (p Permission) Valid() bool {
	switch p {
	case PermissionInvite, PermissionManageProjects, PermissionManageMembers,
		PermissionManageBilling, PermissionManageSettings, PermissionDeleteOrganization:
		return true
	}
	return false
}

// PermissionFlags is the fixed shape of per-membership grants. It is a
// struct, not an open map: a permission that is not a field here cannot be
// stored, granted, or checked.
type PermissionFlags struct {
	Invite             bool
	ManageProjects     bool
	ManageMembers      bool
	ManageBilling      bool
	ManageSettings     bool
	DeleteOrganization bool
}

// Has reports whether p is granted. Unknown permissions are never granted.
func (f PermissionFlags) Has(p Permission) bool {
	switch p {
	case PermissionInvite:
		return f.Invite
	case PermissionManageProjects:
		return f.ManageProjects
	case PermissionManageMembers:
		return f.ManageMembers
	case PermissionManageBilling:
		return f.ManageBilling
	case PermissionManageSettings:
		return f.ManageSettings
	case PermissionDeleteOrganization:
		return f.DeleteOrganization
	}
	return false
}

// AllPermissions returns every flag set. This is what owners hold.
func AllPermissions() PermissionFlags {
	return PermissionFlags{
		Invite:             true,
		ManageProjects:     true,
		ManageMembers:      true,
		ManageBilling:      true,
		ManageSettings:     true,
		DeleteOrganization: true,
	}
}

// DefaultPermissions returns the grants a role starts with. Admins get
// everything short of deleting the organization, managers can invite and run
// projects, members and viewers manage nothing.
func DefaultPermissions(r Role) PermissionFlags {
	switch r {
	case RoleOwner:
		return AllPermissions()
	case RoleAdmin:
		return PermissionFlags{
			Invite:         true,
			ManageProjects: true,
			ManageMembers:  true,
			ManageBilling:  true,
			ManageSettings: true,
		}
	case RoleManager:
		return PermissionFlags{
			Invite:         true,
			ManageProjects: true,
		}
	default:
		return PermissionFlags{}
	}
}
