package domain

import (
	"time"
)

// Membership links a user to an organization with a role and the permission
// flags that apply to the user inside that organization. Memberships are
// tenant-scoped rows: they are created on invitation acceptance or on
// organization creation (the owner), mutated on role change, and
// soft-deleted on removal.
type Membership struct {
	ID        string
	TenantID  string
	UserID    string
	OrgID     string
	Role      Role
	Status    Status
	Flags     PermissionFlags
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Active reports whether m grants anything at all: the row exists, its
// status is active, and it has not been soft-deleted.
func (m *Membership) Active() bool {
	return m != nil && m.Status == StatusActive && m.DeletedAt == nil
}

type Status string

const (
	StatusActive    Status = "active"
	StatusInvited   Status = "invited"
	StatusSuspended Status = "suspended"
)
