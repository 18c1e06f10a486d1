package domain

import "time"

// Invitation is a pending offer of membership in an organization. The
// acceptance secret is never stored; only its hash is, and acceptance is
// matched against that hash.
type Invitation struct {
	ID         string
	TenantID   string
	OrgID      string
	Email      string
	Role       Role
	Flags      PermissionFlags
	TokenHash  string
	InvitedBy  string
	ExpiresAt  time.Time
	AcceptedAt *time.Time
	CreatedAt  time.Time
}

// Pending reports whether the invitation can still be accepted at now.
func (i *Invitation) Pending(now time.Time) bool {
	return i != nil && i.AcceptedAt == nil && now.Before(i.ExpiresAt)
}
