package reports

import "time"

// AnalysisType names the analyzer family a report aggregates. Reports
// are keyed by (club, report date, analysis type), so one club can
// carry one report per family per day.
type AnalysisType string

const (
	AnalysisSongCount AnalysisType = "song_count"
)

func (t AnalysisType) Valid() bool {
	return t == AnalysisSongCount
}

// RiskLevel is the report's overall rating for the day.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// DataPoints carries the structured numbers behind the summary text.
type DataPoints struct {
	SessionsAnalyzed int     `json:"sessions_analyzed"`
	AnomaliesFound   int     `json:"anomalies_found"`
	AvgVariance      float64 `json:"avg_variance"`
	MaxVariance      float64 `json:"max_variance"`

	// VarianceHistogram buckets session variances ("0-2", "2-5",
	// "5-8", "8+") for the dashboard chart.
	VarianceHistogram map[string]int `json:"variance_histogram"`
}

// AnomalyReport is one dated, idempotent sweep summary. Re-running the
// sweep for the same (club, date, type) replaces the prior findings;
// reports are never deleted.
type AnomalyReport struct {
	ID         string       `json:"id" db:"id"`
	ClubID     string       `json:"club_id" db:"club_id"`
	ReportDate string       `json:"report_date" db:"report_date"` // YYYY-MM-DD
	Analysis   AnalysisType `json:"analysis_type" db:"analysis_type"`

	PeriodStart time.Time `json:"period_start" db:"period_start"`
	PeriodEnd   time.Time `json:"period_end" db:"period_end"`

	Summary    string     `json:"summary" db:"summary"`
	DataPoints DataPoints `json:"data_points" db:"data_points"`

	AnomalyCount     int      `json:"anomaly_count" db:"anomaly_count"`
	FlaggedUserIDs   []string `json:"flagged_user_ids,omitempty" db:"flagged_user_ids"`
	FlaggedDancerIDs []string `json:"flagged_dancer_ids,omitempty" db:"flagged_dancer_ids"`

	OverallRisk RiskLevel `json:"overall_risk" db:"overall_risk"`

	ViewedByOwner bool       `json:"viewed_by_owner" db:"viewed_by_owner"`
	ViewedAt      *time.Time `json:"viewed_at,omitempty" db:"viewed_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Filter narrows List.
type Filter struct {
	Analysis AnalysisType
	From     string // inclusive YYYY-MM-DD
	To       string // inclusive YYYY-MM-DD
	Limit    int
	Offset   int
}
