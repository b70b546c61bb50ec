package detect

import (
	"venueops-platform/internal/alerts"
	"venueops-platform/internal/stats"
)

// Finding is one typed discrepancy produced by an analyzer.
//
// Details is a closed set: exactly one concrete detail struct per
// finding type. Consumers (alerts, reports, dashboard) switch on the
// concrete type instead of digging through a loose map.
type Finding struct {
	Type     FindingType    `json:"type"`
	Severity stats.Severity `json:"severity"`

	Title   string `json:"title"`
	Message string `json:"message"`

	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`

	UserIDs   []string `json:"user_ids,omitempty"`
	DancerIDs []string `json:"dancer_ids,omitempty"`

	Details Details `json:"details,omitempty"`

	// Confidence is in [0,1].
	Confidence float64 `json:"confidence"`

	RecommendedAction string `json:"recommended_action,omitempty"`
}

type FindingType string

const (
	FindingSongCountMismatch FindingType = "song_count_mismatch"
	FindingEmployeeBehavior  FindingType = "employee_behavior"
	FindingRevenueAnomaly    FindingType = "revenue_anomaly"
	FindingCashVariance      FindingType = "cash_variance"
	FindingPattern           FindingType = "pattern_detected"
	FindingTimeAnomaly       FindingType = "time_anomaly"
)

// AlertType maps a finding type onto the alert taxonomy.
func (t FindingType) AlertType() alerts.Type {
	switch t {
	case FindingSongCountMismatch:
		return alerts.TypeSongMismatch
	case FindingRevenueAnomaly:
		return alerts.TypeRevenueAnomaly
	case FindingCashVariance:
		return alerts.TypeCashVariance
	case FindingTimeAnomaly:
		return alerts.TypeTimeAnomaly
	default:
		// Employee-behavior and pattern findings both surface as
		// pattern alerts.
		return alerts.TypePatternDetected
	}
}

// Details is the closed variant interface for per-type finding data.
type Details interface{ isFindingDetails() }

type SongCountDetails struct {
	ManualCount      int     `json:"manual_count"`
	DJSyncCount      *int    `json:"dj_sync_count,omitempty"`
	TimeDerivedCount float64 `json:"time_derived_count"`
	FinalCount       int     `json:"final_count"`
	Variance         float64 `json:"variance"`
	ZScore           float64 `json:"z_score"`
	Percentile       float64 `json:"percentile"`
	ManualOverride   bool    `json:"manual_override"`
	OverrideReason   string  `json:"override_reason,omitempty"`
}

type EmployeeBehaviorDetails struct {
	StaffID         string               `json:"staff_id"`
	DisplayName     string               `json:"display_name,omitempty"`
	SessionCount    int                  `json:"session_count"`
	AvgVariance     float64              `json:"avg_variance"`
	Trend           stats.TrendDirection `json:"trend"`
	CheckInCount    int                  `json:"check_in_count"`
	CollectionRate  float64              `json:"collection_rate"`
	FlaggedSessions int                  `json:"flagged_sessions"`
}

type RevenueDetails struct {
	Day        string  `json:"day"`
	TotalCents int64   `json:"total_cents"`
	MeanCents  float64 `json:"mean_cents"`
	ZScore     float64 `json:"z_score"`
}

type CashVarianceDetails struct {
	DrawerID      string `json:"drawer_id"`
	StaffID       string `json:"staff_id"`
	ExpectedCents int64  `json:"expected_cents"`
	ActualCents   int64  `json:"actual_cents"`
	VarianceCents int64  `json:"variance_cents"`
	Direction     string `json:"direction"` // "shortage" or "overage"
}

type PatternDetails struct {
	StaffID      string  `json:"staff_id"`
	Pattern      string  `json:"pattern"` // "systematic_over_reporting" or "rounding"
	SessionCount int     `json:"session_count"`
	MatchCount   int     `json:"match_count"`
	MatchRate    float64 `json:"match_rate"`
}

type TimeAnomalyDetails struct {
	SessionID       string  `json:"session_id"`
	DurationMinutes float64 `json:"duration_minutes"`
	ZScore          float64 `json:"z_score,omitempty"`
	FinalCount      int     `json:"final_count"`
}

func (SongCountDetails) isFindingDetails()        {}
func (EmployeeBehaviorDetails) isFindingDetails() {}
func (RevenueDetails) isFindingDetails()          {}
func (CashVarianceDetails) isFindingDetails()     {}
func (PatternDetails) isFindingDetails()          {}
func (TimeAnomalyDetails) isFindingDetails()      {}

// Summary aggregates one sweep's findings.
type Summary struct {
	TotalFindings  int                    `json:"total_findings"`
	BySeverity     map[stats.Severity]int `json:"by_severity"`
	ByType         map[FindingType]int    `json:"by_type"`
	MeanConfidence float64                `json:"mean_confidence"`

	// FailedAnalyzers distinguishes a clean zero-findings sweep from a
	// sweep where collaborator reads failed.
	FailedAnalyzers int `json:"failed_analyzers"`
}

// Result is the consolidated output of one detection sweep.
type Result struct {
	ClubID   string    `json:"club_id"`
	Findings []Finding `json:"findings"`
	Summary  Summary   `json:"summary"`
}

func summarize(findings []Finding, failed int) Summary {
	s := Summary{
		TotalFindings:   len(findings),
		BySeverity:      make(map[stats.Severity]int),
		ByType:          make(map[FindingType]int),
		FailedAnalyzers: failed,
	}
	var confSum float64
	for _, f := range findings {
		s.BySeverity[f.Severity]++
		s.ByType[f.Type]++
		confSum += f.Confidence
	}
	if len(findings) > 0 {
		s.MeanConfidence = confSum / float64(len(findings))
	}
	return s
}
