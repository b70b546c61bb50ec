package alerts

import (
	"context"
	"errors"
	"strings"
	"time"

	"venueops-platform/internal/stats"

	"github.com/google/uuid"
)

// Repository is the persistence contract for alerts.
type Repository interface {
	Insert(ctx context.Context, a Alert) error
	Update(ctx context.Context, a Alert) error
	GetByID(ctx context.Context, clubID, id string) (Alert, bool, error)
	// FindActive returns an OPEN or ACKNOWLEDGED alert for the same
	// (entity_type, entity_id, type) key, if one exists.
	FindActive(ctx context.Context, clubID, entityType, entityID string, t Type) (Alert, bool, error)
	List(ctx context.Context, clubID string, f Filter) ([]Alert, error)
}

var (
	ErrInvalidArgument    = errors.New("alerts: invalid argument")
	ErrNotFound           = errors.New("alerts: not found")
	ErrInvalidTransition  = errors.New("alerts: invalid status transition")
	ErrResolutionRequired = errors.New("alerts: resolution text required")
)

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// Create stores a new OPEN alert unless an active alert already exists
// for the same (entity, type) key. On a dedup hit the existing alert is
// returned and its severity is escalated (never lowered) to the new
// finding's severity; repeated sweeps over overlapping windows must not
// produce alert storms.
func (s *Service) Create(ctx context.Context, a Alert) (Alert, bool, error) {
	if a.ClubID == "" || !a.Type.Valid() || a.EntityType == "" || a.EntityID == "" {
		return Alert{}, false, ErrInvalidArgument
	}
	if a.Severity == "" {
		a.Severity = stats.SeverityLow
	}

	existing, ok, err := s.repo.FindActive(ctx, a.ClubID, a.EntityType, a.EntityID, a.Type)
	if err != nil {
		return Alert{}, false, err
	}
	if ok {
		if a.Severity.Rank() > existing.Severity.Rank() {
			existing.Severity = a.Severity
			existing.Description = a.Description
			existing.ActualValue = a.ActualValue
			existing.ExpectedValue = a.ExpectedValue
			if err := s.repo.Update(ctx, existing); err != nil {
				return Alert{}, false, err
			}
		}
		return existing, false, nil
	}

	a.ID = uuid.NewString()
	a.Status = StatusOpen
	a.CreatedAt = s.clock().UTC()
	a.AcknowledgedAt = nil
	a.ResolvedAt = nil
	a.DismissedAt = nil
	if err := s.repo.Insert(ctx, a); err != nil {
		return Alert{}, false, err
	}
	return a, true, nil
}

// Acknowledge marks an OPEN alert as seen.
func (s *Service) Acknowledge(ctx context.Context, clubID, id string) (Alert, error) {
	return s.transition(ctx, clubID, id, func(a *Alert, now time.Time) error {
		if a.Status != StatusOpen {
			return ErrInvalidTransition
		}
		a.Status = StatusAcknowledged
		a.AcknowledgedAt = &now
		return nil
	})
}

// Resolve closes an alert with an explanation. Resolution text is
// required; that is what distinguishes resolve from dismiss.
func (s *Service) Resolve(ctx context.Context, clubID, id, resolvedBy, resolution string) (Alert, error) {
	if strings.TrimSpace(resolution) == "" {
		return Alert{}, ErrResolutionRequired
	}
	return s.transition(ctx, clubID, id, func(a *Alert, now time.Time) error {
		if !a.Status.Active() {
			return ErrInvalidTransition
		}
		a.Status = StatusResolved
		a.Resolution = resolution
		a.ResolvedBy = resolvedBy
		a.ResolvedAt = &now
		return nil
	})
}

// Dismiss closes an alert as noise. A reason is optional.
func (s *Service) Dismiss(ctx context.Context, clubID, id, dismissedBy, reason string) (Alert, error) {
	return s.transition(ctx, clubID, id, func(a *Alert, now time.Time) error {
		if !a.Status.Active() {
			return ErrInvalidTransition
		}
		a.Status = StatusDismissed
		a.Resolution = reason
		a.ResolvedBy = dismissedBy
		a.DismissedAt = &now
		return nil
	})
}

func (s *Service) transition(ctx context.Context, clubID, id string, apply func(*Alert, time.Time) error) (Alert, error) {
	if clubID == "" || id == "" {
		return Alert{}, ErrInvalidArgument
	}
	a, ok, err := s.repo.GetByID(ctx, clubID, id)
	if err != nil {
		return Alert{}, err
	}
	if !ok {
		return Alert{}, ErrNotFound
	}
	if err := apply(&a, s.clock().UTC()); err != nil {
		return Alert{}, err
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return Alert{}, err
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, clubID, id string) (Alert, error) {
	a, ok, err := s.repo.GetByID(ctx, clubID, id)
	if err != nil {
		return Alert{}, err
	}
	if !ok {
		return Alert{}, ErrNotFound
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, clubID string, f Filter) ([]Alert, error) {
	if clubID == "" {
		return nil, ErrInvalidArgument
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	return s.repo.List(ctx, clubID, f)
}
