package detect

import (
	"context"
	"errors"
	"sync"
	"time"

	"venueops-platform/internal/venue"
)

// Repository abstracts the read-only collaborator stores the analyzers
// query. Implementations must enforce club filtering and honor the
// limit so one sweep never reads an unbounded row set.
type Repository interface {
	ListSessions(ctx context.Context, clubID string, from, to time.Time, limit int) ([]venue.Session, error)
	ListCheckIns(ctx context.Context, clubID string, from, to time.Time, limit int) ([]venue.CheckIn, error)
	ListTransactions(ctx context.Context, clubID string, from, to time.Time, limit int) ([]venue.Transaction, error)
	ListCashDrawers(ctx context.Context, clubID string, from, to time.Time, limit int) ([]venue.CashDrawer, error)
	ListStaff(ctx context.Context, clubID string) ([]venue.StaffMember, error)
}

// MemoryRepo is an in-memory collaborator snapshot for tests and early
// development.
type MemoryRepo struct {
	mu sync.Mutex

	Sessions     []venue.Session
	CheckIns     []venue.CheckIn
	Transactions []venue.Transaction
	CashDrawers  []venue.CashDrawer
	Staff        []venue.StaffMember

	// Fail simulates a collaborator read failure for the named lists
	// ("sessions", "checkins", "transactions", "drawers", "staff").
	Fail map[string]error
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{Fail: map[string]error{}} }

var errClubRequired = errors.New("club_id required")

func (r *MemoryRepo) ListSessions(ctx context.Context, clubID string, from, to time.Time, limit int) ([]venue.Session, error) {
	if clubID == "" {
		return nil, errClubRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.Fail["sessions"]; err != nil {
		return nil, err
	}
	out := make([]venue.Session, 0)
	for _, s := range r.Sessions {
		if s.ClubID != clubID || !inWindow(s.StartTime, from, to) {
			continue
		}
		out = append(out, s)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListCheckIns(ctx context.Context, clubID string, from, to time.Time, limit int) ([]venue.CheckIn, error) {
	if clubID == "" {
		return nil, errClubRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.Fail["checkins"]; err != nil {
		return nil, err
	}
	out := make([]venue.CheckIn, 0)
	for _, c := range r.CheckIns {
		if c.ClubID != clubID || !inWindow(c.CheckInTime, from, to) {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListTransactions(ctx context.Context, clubID string, from, to time.Time, limit int) ([]venue.Transaction, error) {
	if clubID == "" {
		return nil, errClubRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.Fail["transactions"]; err != nil {
		return nil, err
	}
	out := make([]venue.Transaction, 0)
	for _, t := range r.Transactions {
		if t.ClubID != clubID || !inWindow(t.CreatedAt, from, to) {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListCashDrawers(ctx context.Context, clubID string, from, to time.Time, limit int) ([]venue.CashDrawer, error) {
	if clubID == "" {
		return nil, errClubRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.Fail["drawers"]; err != nil {
		return nil, err
	}
	out := make([]venue.CashDrawer, 0)
	for _, d := range r.CashDrawers {
		if d.ClubID != clubID {
			continue
		}
		if d.ClosedAt != nil && !inWindow(*d.ClosedAt, from, to) {
			continue
		}
		out = append(out, d)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListStaff(ctx context.Context, clubID string) ([]venue.StaffMember, error) {
	if clubID == "" {
		return nil, errClubRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.Fail["staff"]; err != nil {
		return nil, err
	}
	out := make([]venue.StaffMember, 0)
	for _, m := range r.Staff {
		if m.ClubID == clubID {
			out = append(out, m)
		}
	}
	return out, nil
}

func inWindow(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}
