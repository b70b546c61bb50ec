package reports

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory report repository for tests and early
// development. It enforces tenancy isolation on reads and the
// (club, date, analysis type) upsert key on writes.

type MemoryRepo struct {
	mu      sync.Mutex
	reports []AnomalyReport
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Upsert(ctx context.Context, in AnomalyReport) (AnomalyReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.reports {
		prior := r.reports[i]
		if prior.ClubID != in.ClubID || prior.ReportDate != in.ReportDate || prior.Analysis != in.Analysis {
			continue
		}
		in.ID = prior.ID
		in.CreatedAt = prior.CreatedAt
		in.ViewedByOwner = prior.ViewedByOwner
		in.ViewedAt = prior.ViewedAt
		r.reports[i] = in
		return in, nil
	}
	r.reports = append(r.reports, in)
	return in, nil
}

func (r *MemoryRepo) Get(ctx context.Context, clubID, id string) (AnomalyReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rep := range r.reports {
		if rep.ClubID == clubID && rep.ID == id {
			return rep, nil
		}
	}
	return AnomalyReport{}, ErrNotFound
}

func (r *MemoryRepo) List(ctx context.Context, clubID string, f Filter) ([]AnomalyReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]AnomalyReport, 0)
	skipped := 0
	for i := len(r.reports) - 1; i >= 0; i-- { // newest first
		rep := r.reports[i]
		if rep.ClubID != clubID {
			continue
		}
		if f.Analysis != "" && rep.Analysis != f.Analysis {
			continue
		}
		if f.From != "" && rep.ReportDate < f.From {
			continue
		}
		if f.To != "" && rep.ReportDate > f.To {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		out = append(out, rep)
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryRepo) MarkViewed(ctx context.Context, clubID, id string, at time.Time) (AnomalyReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.reports {
		if r.reports[i].ClubID != clubID || r.reports[i].ID != id {
			continue
		}
		if !r.reports[i].ViewedByOwner {
			r.reports[i].ViewedByOwner = true
			r.reports[i].ViewedAt = &at
		}
		return r.reports[i], nil
	}
	return AnomalyReport{}, ErrNotFound
}
