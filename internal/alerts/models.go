package alerts

import (
	"time"

	"venueops-platform/internal/stats"
)

// Alert is one open question needing human review. Unlike audit
// entries, alerts are mutable, but only through the forward-only
// lifecycle transitions in Service.

type Alert struct {
	ID     string `json:"id" db:"id"`
	ClubID string `json:"club_id" db:"club_id"`

	Type     Type           `json:"type" db:"type"`
	Severity stats.Severity `json:"severity" db:"severity"`
	Status   Status         `json:"status" db:"status"`

	EntityType string `json:"entity_type" db:"entity_type"`
	EntityID   string `json:"entity_id" db:"entity_id"`

	UserIDs   []string `json:"user_ids,omitempty" db:"user_ids"`
	DancerIDs []string `json:"dancer_ids,omitempty" db:"dancer_ids"`

	ExpectedValue string `json:"expected_value,omitempty" db:"expected_value"`
	ActualValue   string `json:"actual_value,omitempty" db:"actual_value"`
	Description   string `json:"description" db:"description"`

	// OwnerOnly hides the alert from general staff readers.
	OwnerOnly bool `json:"owner_only" db:"owner_only"`

	Resolution string `json:"resolution,omitempty" db:"resolution"`
	ResolvedBy string `json:"resolved_by,omitempty" db:"resolved_by"`

	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
	DismissedAt    *time.Time `json:"dismissed_at,omitempty" db:"dismissed_at"`
}

type Type string

const (
	TypeSongMismatch        Type = "song_mismatch"
	TypeLicenseExpiring     Type = "license_expiring"
	TypeLicenseExpired      Type = "license_expired"
	TypeCashVariance        Type = "cash_variance"
	TypePatternDetected     Type = "pattern_detected"
	TypeRevenueAnomaly      Type = "revenue_anomaly"
	TypeTimeAnomaly         Type = "time_anomaly"
	TypeQueueWithoutCheckin Type = "queue_without_checkin"
)

func (t Type) Valid() bool {
	switch t {
	case TypeSongMismatch, TypeLicenseExpiring, TypeLicenseExpired,
		TypeCashVariance, TypePatternDetected, TypeRevenueAnomaly,
		TypeTimeAnomaly, TypeQueueWithoutCheckin:
		return true
	}
	return false
}

// Status transitions are monotonic forward:
// OPEN -> ACKNOWLEDGED -> RESOLVED | DISMISSED. Nothing re-opens.
type Status string

const (
	StatusOpen         Status = "OPEN"
	StatusAcknowledged Status = "ACKNOWLEDGED"
	StatusResolved     Status = "RESOLVED"
	StatusDismissed    Status = "DISMISSED"
)

// Active reports whether the alert still counts for deduplication.
func (s Status) Active() bool { return s == StatusOpen || s == StatusAcknowledged }

// Filter narrows List reads. Zero values mean "no constraint".
type Filter struct {
	Status   Status
	Severity stats.Severity
	Type     Type
	From     time.Time
	To       time.Time

	// IncludeOwnerOnly must be set for owner readers; general staff
	// readers get owner-only alerts filtered out.
	IncludeOwnerOnly bool

	Limit  int
	Offset int
}
