package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/crestline/tenantcore/internal/audit/domain"
)

// MemoryRepository keeps audit events in memory. Tests and local tooling use
// it in place of Postgres.
type MemoryRepository struct {
	mu     sync.Mutex
	events []*domain.Event
}

// NewMemoryRepository returns an empty in-memory audit event repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Create stores a copy of e.
func (r *MemoryRepository) Create(_ context.Context, e *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *e
	r.events = append(r.events, &clone)
	return nil
}

// GetByID returns the audit event for id, or nil if not found.
func (r *MemoryRepository) GetByID(_ context.Context, id string) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.ID == id {
			clone := *e
			return &clone, nil
		}
	}
	return nil, nil
}

// ListByOrg returns audit events for the given org, newest first.
func (r *MemoryRepository) ListByOrg(_ context.Context, orgID string, limit, offset int32) ([]*domain.Event, error) {
	return r.filter(func(e *domain.Event) bool { return e.OrgID == orgID }, limit, offset), nil
}

// ListByAction returns audit events with the given action, newest first.
func (r *MemoryRepository) ListByAction(_ context.Context, action string, limit, offset int32) ([]*domain.Event, error) {
	return r.filter(func(e *domain.Event) bool { return e.Action == action }, limit, offset), nil
}

// All returns every stored event in insertion order.
func (r *MemoryRepository) All() []*domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Event, len(r.events))
	for i, e := range r.events {
		clone := *e
		out[i] = &clone
	}
	return out
}

func (r *MemoryRepository) filter(keep func(*domain.Event) bool, limit, offset int32) []*domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*domain.Event
	for _, e := range r.events {
		if keep(e) {
			clone := *e
			matched = append(matched, &clone)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset >= int32(len(matched)) {
		return nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < int32(len(matched)) {
		matched = matched[:limit]
	}
	return matched
}
