package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"venueops-platform/internal/detect"
	"venueops-platform/internal/stats"
	"venueops-platform/pkg/logger"
)

var (
	ErrInvalidRequest = errors.New("reports: invalid request")
	ErrNotFound       = errors.New("reports: report not found")
)

// Repository persists reports. Upsert replaces the row matching the
// report's (club, date, analysis type) key, keeping the original ID and
// CreatedAt; reports are never deleted.
type Repository interface {
	Upsert(ctx context.Context, r AnomalyReport) (AnomalyReport, error)
	Get(ctx context.Context, clubID, id string) (AnomalyReport, error)
	List(ctx context.Context, clubID string, f Filter) ([]AnomalyReport, error)
	MarkViewed(ctx context.Context, clubID, id string, at time.Time) (AnomalyReport, error)
}

// avgVarianceFlag is the per-employee average variance above which the
// employee lands on the report's flagged list.
const avgVarianceFlag = 3.0

// Generator builds dated anomaly reports from the detection analyzers.
type Generator struct {
	repo     Repository
	sessions detect.Repository
	th       detect.Thresholds
	clock    func() time.Time
}

func NewGenerator(repo Repository, sessions detect.Repository, th detect.Thresholds) *Generator {
	return &Generator{repo: repo, sessions: sessions, th: th, clock: time.Now}
}

// Generate runs the song-count analyzer over one calendar day (UTC) and
// upserts the resulting report. Re-running for the same day replaces
// the prior findings rather than appending a second report.
func (g *Generator) Generate(ctx context.Context, clubID string, day time.Time) (AnomalyReport, error) {
	if clubID == "" || day.IsZero() {
		return AnomalyReport{}, ErrInvalidRequest
	}
	start := day.UTC().Truncate(24 * time.Hour)
	end := start.AddDate(0, 0, 1)

	sessions, err := g.sessions.ListSessions(ctx, clubID, start, end, g.th.MaxRows)
	if err != nil {
		return AnomalyReport{}, fmt.Errorf("reports: reading sessions for %s: %w", start.Format(time.DateOnly), err)
	}
	scores := detect.ScoreSongCounts(sessions, g.th)

	type perStaff struct {
		total    float64
		count    int
		critical int
	}
	byStaff := make(map[string]*perStaff)
	dancers := make(map[string]bool)

	points := DataPoints{
		SessionsAnalyzed:  len(scores),
		VarianceHistogram: map[string]int{"0-2": 0, "2-5": 0, "5-8": 0, "8+": 0},
	}
	var varianceSum float64
	anomalies := 0
	criticals := 0
	for _, sc := range scores {
		varianceSum += sc.Variance
		if sc.Variance > points.MaxVariance {
			points.MaxVariance = sc.Variance
		}
		points.VarianceHistogram[varianceBucket(sc.Variance)]++

		staffID := sc.Session.InitiatedBy
		if staffID != "" {
			ps := byStaff[staffID]
			if ps == nil {
				ps = &perStaff{}
				byStaff[staffID] = ps
			}
			ps.total += sc.Variance
			ps.count++
			if sc.Severity == stats.SeverityCritical {
				ps.critical++
			}
		}

		if sc.Severity == "" {
			continue
		}
		anomalies++
		if sc.Severity == stats.SeverityCritical {
			criticals++
		}
		if sc.Session.DancerID != "" {
			dancers[sc.Session.DancerID] = true
		}
	}
	if len(scores) > 0 {
		points.AvgVariance = varianceSum / float64(len(scores))
	}
	points.AnomaliesFound = anomalies

	flaggedUsers := make([]string, 0)
	for staffID, ps := range byStaff {
		if ps.critical > 0 || ps.total/float64(ps.count) > avgVarianceFlag {
			flaggedUsers = append(flaggedUsers, staffID)
		}
	}
	sort.Strings(flaggedUsers)

	flaggedDancers := make([]string, 0, len(dancers))
	for id := range dancers {
		flaggedDancers = append(flaggedDancers, id)
	}
	sort.Strings(flaggedDancers)

	risk := RiskLow
	switch {
	case criticals > 0 || len(flaggedUsers) > 2:
		risk = RiskHigh
	case anomalies > 3 || len(flaggedUsers) > 0:
		risk = RiskMedium
	}

	now := g.clock().UTC()
	report := AnomalyReport{
		ID:               uuid.NewString(),
		ClubID:           clubID,
		ReportDate:       start.Format(time.DateOnly),
		Analysis:         AnalysisSongCount,
		PeriodStart:      start,
		PeriodEnd:        end,
		Summary:          summaryText(len(scores), anomalies, criticals, len(flaggedUsers)),
		DataPoints:       points,
		AnomalyCount:     anomalies,
		FlaggedUserIDs:   flaggedUsers,
		FlaggedDancerIDs: flaggedDancers,
		OverallRisk:      risk,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	stored, err := g.repo.Upsert(ctx, report)
	if err != nil {
		return AnomalyReport{}, fmt.Errorf("reports: upserting report for %s: %w", report.ReportDate, err)
	}
	logger.From(ctx).Info("anomaly report generated",
		"club_id", clubID,
		"report_date", stored.ReportDate,
		"risk", stored.OverallRisk,
		"anomalies", stored.AnomalyCount,
		"flagged_users", len(stored.FlaggedUserIDs),
	)
	return stored, nil
}

func (g *Generator) Get(ctx context.Context, clubID, id string) (AnomalyReport, error) {
	if clubID == "" || id == "" {
		return AnomalyReport{}, ErrInvalidRequest
	}
	return g.repo.Get(ctx, clubID, id)
}

func (g *Generator) List(ctx context.Context, clubID string, f Filter) ([]AnomalyReport, error) {
	if clubID == "" {
		return nil, ErrInvalidRequest
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	return g.repo.List(ctx, clubID, f)
}

// MarkViewed records the owner opening a report. Marking an already
// viewed report keeps the original timestamp.
func (g *Generator) MarkViewed(ctx context.Context, clubID, id string) (AnomalyReport, error) {
	if clubID == "" || id == "" {
		return AnomalyReport{}, ErrInvalidRequest
	}
	return g.repo.MarkViewed(ctx, clubID, id, g.clock().UTC())
}

func varianceBucket(v float64) string {
	switch {
	case v <= 2:
		return "0-2"
	case v <= 5:
		return "2-5"
	case v <= 8:
		return "5-8"
	default:
		return "8+"
	}
}

func summaryText(analyzed, anomalies, criticals, flagged int) string {
	if analyzed == 0 {
		return "No sessions recorded for this period."
	}
	if anomalies == 0 {
		return fmt.Sprintf("Analyzed %d sessions; no discrepancies found.", analyzed)
	}
	return fmt.Sprintf("Analyzed %d sessions; %d discrepancies (%d critical), %d employees flagged.",
		analyzed, anomalies, criticals, flagged)
}
