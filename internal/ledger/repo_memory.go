package ledger

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory append-only chain repository for tests and
// early development. It enforces the same CAS contract as the Postgres
// implementation.

type MemoryRepo struct {
	mu      sync.Mutex
	entries map[string][]AuditLogEntry // club_id -> chronological entries
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{entries: make(map[string][]AuditLogEntry)}
}

func (r *MemoryRepo) Latest(ctx context.Context, clubID string) (AuditLogEntry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chain := r.entries[clubID]
	if len(chain) == 0 {
		return AuditLogEntry{}, false, nil
	}
	return chain[len(chain)-1], true, nil
}

func (r *MemoryRepo) AppendCAS(ctx context.Context, e AuditLogEntry, expectedPrev *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chain := r.entries[e.ClubID]

	var head *string
	if len(chain) > 0 {
		h := chain[len(chain)-1].CurrentHash
		head = &h
	}
	if !hashPtrEqual(head, expectedPrev) {
		return ErrChainConflict
	}
	r.entries[e.ClubID] = append(chain, e)
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, clubID string, from, to time.Time, limit, offset int) ([]AuditLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]AuditLogEntry, 0)
	skipped := 0
	for _, e := range r.entries[clubID] {
		if !from.IsZero() && e.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !e.CreatedAt.Before(to) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Tamper mutates a stored entry in place. Test hook only; the real
// repositories provide no such operation.
func (r *MemoryRepo) Tamper(clubID string, index int, mutate func(*AuditLogEntry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chain := r.entries[clubID]
	if index >= 0 && index < len(chain) {
		mutate(&chain[index])
	}
}

func hashPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
