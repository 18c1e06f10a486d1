package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

// Org represents an organization inside a tenant.
type Org struct {
	ID        string
	TenantID  string
	Name      string
	Slug      string
	Status    OrgStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type OrgStatus string

const (
	OrgStatusActive    OrgStatus = "active"
	OrgStatusSuspended OrgStatus = "suspended"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Validate validates the organization for persistence. Returns an error describing the first validation failure.
func (o *Org) Validate() error {
	if o.Name == "" {
		return errors.New("name is required")
	}
	if o.Slug == "" {
		o.Slug = Slugify(o.Name)
	}
	if !slugPattern.MatchString(o.Slug) {
		return errors.New("slug must be lowercase letters, digits, and single hyphens")
	}
	if o.Status == "" {
		o.Status = OrgStatusActive
	}
	return nil
}

// Slugify derives a URL-safe slug from a display name.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
