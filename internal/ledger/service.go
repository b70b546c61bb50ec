package ledger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for the audit chain.
//
// It MUST be append-only. No Update/Delete methods are provided by design.
//
// AppendCAS must fail with ErrChainConflict when the club's latest
// CurrentHash no longer matches expectedPrev at insert time, so that a
// concurrent writer cannot fork the chain.

type Repository interface {
	Latest(ctx context.Context, clubID string) (AuditLogEntry, bool, error)
	AppendCAS(ctx context.Context, e AuditLogEntry, expectedPrev *string) error
	List(ctx context.Context, clubID string, from, to time.Time, limit, offset int) ([]AuditLogEntry, error)
}

var (
	ErrInvalidEntry  = errors.New("ledger: invalid entry")
	ErrChainConflict = errors.New("ledger: chain head moved")
)

// appendRetryBudget bounds CAS retries before the race is surfaced as
// fatal; integrity cannot be guaranteed past this point.
const appendRetryBudget = 3

// Service appends tamper-evident entries and verifies chains.
//
// Write serialization: appends for the same club are linearized through
// a per-club mutex (single-process deployments), and the repository's
// conditional append re-checks the chain head so multi-process
// deployments degrade to optimistic concurrency with retries instead of
// forking the chain.
type Service struct {
	repo  Repository
	clock func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now, locks: make(map[string]*sync.Mutex)}
}

func (s *Service) clubLock(clubID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[clubID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[clubID] = l
	}
	return l
}

// Append completes and persists an entry: it reads the club's latest
// CurrentHash as PreviousHash, computes CurrentHash over the canonical
// serialization, and appends. Returns the completed entry.
func (s *Service) Append(ctx context.Context, e AuditLogEntry) (AuditLogEntry, error) {
	if s.repo == nil {
		return AuditLogEntry{}, errors.New("ledger: repository not configured")
	}
	if e.ClubID == "" || !e.Action.Valid() || e.EntityType == "" || e.EntityID == "" {
		return AuditLogEntry{}, ErrInvalidEntry
	}

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}

	lock := s.clubLock(e.ClubID)
	lock.Lock()
	defer lock.Unlock()

	var lastErr error
	for attempt := 0; attempt < appendRetryBudget; attempt++ {
		latest, ok, err := s.repo.Latest(ctx, e.ClubID)
		if err != nil {
			return AuditLogEntry{}, err
		}
		if ok {
			prev := latest.CurrentHash
			e.PreviousHash = &prev
		} else {
			e.PreviousHash = nil
		}
		e.CurrentHash = ComputeHash(e)

		err = s.repo.AppendCAS(ctx, e, e.PreviousHash)
		if err == nil {
			return e, nil
		}
		if !errors.Is(err, ErrChainConflict) {
			return AuditLogEntry{}, err
		}
		lastErr = err
	}
	return AuditLogEntry{}, lastErr
}

// VerifyChain scans a club's entries in chronological order and asserts
// every adjacent link. Scanning continues past the first mismatch so
// all issues are reported. Read-only.
func (s *Service) VerifyChain(ctx context.Context, clubID string, from, to time.Time) (ChainVerification, error) {
	if s.repo == nil {
		return ChainVerification{}, errors.New("ledger: repository not configured")
	}
	if clubID == "" {
		return ChainVerification{}, ErrInvalidEntry
	}

	out := ChainVerification{IsValid: true, Issues: []ChainIssue{}}

	const pageSize = 1000
	var prev *AuditLogEntry
	for offset := 0; ; offset += pageSize {
		page, err := s.repo.List(ctx, clubID, from, to, pageSize, offset)
		if err != nil {
			return ChainVerification{}, err
		}
		for i := range page {
			e := page[i]
			out.TotalChecked++
			if prev != nil {
				found := ""
				if e.PreviousHash != nil {
					found = *e.PreviousHash
				}
				if found != prev.CurrentHash {
					out.IsValid = false
					out.Issues = append(out.Issues, ChainIssue{
						EntryID:   e.ID,
						Timestamp: e.CreatedAt,
						Expected:  prev.CurrentHash,
						Found:     found,
					})
				}
			}
			prev = &page[i]
		}
		if len(page) < pageSize {
			break
		}
	}
	return out, nil
}

// List exposes paginated reads for the audit viewer.
func (s *Service) List(ctx context.Context, clubID string, from, to time.Time, limit, offset int) ([]AuditLogEntry, error) {
	if clubID == "" {
		return nil, ErrInvalidEntry
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, clubID, from, to, limit, offset)
}
