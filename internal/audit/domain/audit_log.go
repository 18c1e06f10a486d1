package domain

import "time"

// Severity grades an audit event. Routine lifecycle events are info;
// isolation bypasses are always critical.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is one audit trail entry.
type Event struct {
	ID        string
	TenantID  string
	OrgID     string
	ActorID   string
	Action    string
	Resource  string
	Severity  Severity
	IP        string
	Metadata  string
	CreatedAt time.Time
}
