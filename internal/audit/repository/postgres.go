package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crestline/tenantcore/internal/audit/domain"
)

// PostgresRepository persists audit events with plain SQL over a shared pgx
// pool. It writes directly, not through the tenant gateway, and the
// audit_events table carries no row security policy.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository returns an audit event repository over pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const eventColumns = `id, tenant_id, org_id, actor_id, action, resource, severity, ip, metadata, created_at`

// Create persists the audit event. The event must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO audit_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		e.ID, e.TenantID, e.OrgID, e.ActorID, e.Action, e.Resource,
		string(e.Severity), e.IP, e.Metadata, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create audit event: %w", err)
	}
	return nil
}

// GetByID returns the audit event for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM audit_events WHERE id = $1`

	e, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get audit event: %w", err)
	}
	return e, nil
}

// ListByOrg returns audit events for the given org, newest first, paginated
// by limit and offset.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID string, limit, offset int32) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM audit_events
		WHERE org_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, orgID, limit, offset)
}

// ListByAction returns audit events with the given action, newest first.
// Reviewing isolation bypasses is a query for action "elevation_granted".
func (r *PostgresRepository) ListByAction(ctx context.Context, action string, limit, offset int32) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM audit_events
		WHERE action = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, action, limit, offset)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Event, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var out []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var e domain.Event
	var severity string
	err := row.Scan(
		&e.ID, &e.TenantID, &e.OrgID, &e.ActorID, &e.Action, &e.Resource,
		&severity, &e.IP, &e.Metadata, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.Severity = domain.Severity(severity)
	return &e, nil
}
