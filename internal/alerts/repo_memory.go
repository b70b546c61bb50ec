package alerts

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory alert repository for tests and early
// development. It enforces tenancy isolation on reads.

type MemoryRepo struct {
	mu     sync.Mutex
	alerts []Alert
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Insert(ctx context.Context, a Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, a Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.alerts {
		if r.alerts[i].ID == a.ID && r.alerts[i].ClubID == a.ClubID {
			r.alerts[i] = a
			return nil
		}
	}
	return ErrNotFound
}

func (r *MemoryRepo) GetByID(ctx context.Context, clubID, id string) (Alert, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.ID == id && a.ClubID == clubID {
			return a, true, nil
		}
	}
	return Alert{}, false, nil
}

func (r *MemoryRepo) FindActive(ctx context.Context, clubID, entityType, entityID string, t Type) (Alert, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.alerts {
		if a.ClubID == clubID && a.EntityType == entityType && a.EntityID == entityID && a.Type == t && a.Status.Active() {
			return a, true, nil
		}
	}
	return Alert{}, false, nil
}

func (r *MemoryRepo) List(ctx context.Context, clubID string, f Filter) ([]Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Alert, 0)
	skipped := 0
	for _, a := range r.alerts {
		if a.ClubID != clubID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.Severity != "" && a.Severity != f.Severity {
			continue
		}
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		if !f.From.IsZero() && a.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !a.CreatedAt.Before(f.To) {
			continue
		}
		if a.OwnerOnly && !f.IncludeOwnerOnly {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, a)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}
