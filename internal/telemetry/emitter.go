package telemetry

import (
	"context"

	"github.com/crestline/tenantcore/internal/audit/domain"
)

// EventEmitter forwards audit events to an external sink (e.g. OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.Event) error
}
