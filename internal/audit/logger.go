package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/crestline/tenantcore/internal/audit/domain"
	auditrepo "github.com/crestline/tenantcore/internal/audit/repository"
	"github.com/crestline/tenantcore/internal/telemetry"
	"github.com/crestline/tenantcore/internal/tenancy"
)

// SentinelOrgID is the org_id used for audit events that have no org
// (platform actions, isolation bypasses).
const SentinelOrgID = "_system"

// SentinelTenantID is the tenant_id used for audit events recorded outside
// any tenant scope.
const SentinelTenantID = "_platform"

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional
// IP extractor. It also implements tenancy.Recorder, so constructing an
// elevated scope goes through it.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	emitter     telemetry.EventEmitter
}

// NewLogger returns a Logger that persists to repo and uses ipExtractor for
// client IP. ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor) *Logger {
	return &Logger{repo: repo, ipExtractor: ipExtractor}
}

// WithEmitter returns a copy of l that additionally forwards every stored
// event to em (e.g. OTel Logs). Emission is fire-and-forget and never gates
// the database write.
func (l *Logger) WithEmitter(em telemetry.EventEmitter) *Logger {
	l2 := *l
	l2.emitter = em
	return &l2
}

// LogEvent writes one audit event. Best-effort: errors are logged and not
// returned.
func (l *Logger) LogEvent(ctx context.Context, orgID, userID, action, resource, metadata string) {
	if l.repo == nil {
		return
	}
	e := l.newEvent(ctx, orgID, userID, action, resource, metadata, domain.SeverityInfo)
	if err := l.repo.Create(ctx, e); err != nil {
		log.Error().Err(err).
			Str("action", action).
			Str("resource", resource).
			Msg("audit: failed to log event")
	}
	telemetry.EmitAsync(l.emitter, ctx, e)
}

// RecordBypass persists the grant of a superadmin scope. It implements
// tenancy.Recorder, and unlike LogEvent it returns the write error: an
// elevation whose record cannot be stored must not happen.
func (l *Logger) RecordBypass(ctx context.Context, rec tenancy.BypassRecord) error {
	if l.repo == nil {
		return errors.New("audit: no repository configured for bypass records")
	}
	meta := fmt.Sprintf("reason=%s source=%s", rec.Reason, rec.Source)
	e := l.newEvent(ctx, SentinelOrgID, rec.ActorID, "elevation_granted", "tenant_isolation", meta, domain.SeverityCritical)
	if !rec.At.IsZero() {
		e.CreatedAt = rec.At
	}
	if err := l.repo.Create(ctx, e); err != nil {
		return fmt.Errorf("audit: recording bypass: %w", err)
	}
	telemetry.GetMetrics().BypassGrantsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", rec.Reason),
	))
	telemetry.EmitAsync(l.emitter, ctx, e)
	return nil
}

func (l *Logger) newEvent(ctx context.Context, orgID, actorID, action, resource, metadata string, sev domain.Severity) *domain.Event {
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if orgID == "" {
		orgID = SentinelOrgID
	}
	tenantID := SentinelTenantID
	if scope, err := tenancy.Current(ctx); err == nil && scope.TenantID != "" {
		tenantID = scope.TenantID
	}
	return &domain.Event{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		OrgID:     orgID,
		ActorID:   actorID,
		Action:    action,
		Resource:  resource,
		Severity:  sev,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
}
