package reports

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"venueops-platform/internal/detect"
	"venueops-platform/internal/venue"
)

func testGenerator(sessions *detect.MemoryRepo) *Generator {
	g := NewGenerator(NewMemoryRepo(), sessions, detect.DefaultThresholds())
	g.clock = func() time.Time { return time.Date(2026, 8, 28, 7, 0, 0, 0, time.UTC) }
	return g
}

func daySession(id, staffID, dancerID string, hour, variance int) venue.Session {
	final := 10 + variance
	return venue.Session{
		ID:                 id,
		ClubID:             "club-1",
		InitiatedBy:        staffID,
		DancerID:           dancerID,
		StartTime:          time.Date(2026, 8, 27, hour, 0, 0, 0, time.UTC),
		ManualCount:        final,
		TimeDerivedCount:   10,
		FinalCount:         final,
		VerificationStatus: venue.VerificationPending,
	}
}

func TestGenerate_CleanDayIsLowRisk(t *testing.T) {
	repo := detect.NewMemoryRepo()
	for i := 0; i < 5; i++ {
		repo.Sessions = append(repo.Sessions, daySession(fmt.Sprintf("s-%d", i), "staff-1", "d-1", 20+i%4, 0))
	}
	g := testGenerator(repo)

	rep, err := g.Generate(context.Background(), "club-1", time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if rep.OverallRisk != RiskLow {
		t.Fatalf("clean day must be LOW, got %s", rep.OverallRisk)
	}
	if rep.AnomalyCount != 0 || len(rep.FlaggedUserIDs) != 0 {
		t.Fatalf("unexpected anomalies: %+v", rep)
	}
	if rep.DataPoints.SessionsAnalyzed != 5 {
		t.Fatalf("expected 5 analyzed sessions, got %d", rep.DataPoints.SessionsAnalyzed)
	}
	if rep.ReportDate != "2026-08-27" {
		t.Fatalf("report date %q", rep.ReportDate)
	}
}

func TestGenerate_CriticalSessionIsHighRisk(t *testing.T) {
	repo := detect.NewMemoryRepo()
	repo.Sessions = append(repo.Sessions,
		daySession("s-1", "staff-1", "d-1", 20, 0),
		daySession("s-2", "staff-1", "d-1", 21, 0),
		daySession("s-hot", "staff-2", "d-9", 22, 10), // variance 10: CRITICAL
	)
	g := testGenerator(repo)

	rep, err := g.Generate(context.Background(), "club-1", time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if rep.OverallRisk != RiskHigh {
		t.Fatalf("a critical discrepancy must rate HIGH, got %s", rep.OverallRisk)
	}
	if len(rep.FlaggedUserIDs) != 1 || rep.FlaggedUserIDs[0] != "staff-2" {
		t.Fatalf("flagged users %v", rep.FlaggedUserIDs)
	}
	if len(rep.FlaggedDancerIDs) != 1 || rep.FlaggedDancerIDs[0] != "d-9" {
		t.Fatalf("flagged dancers %v", rep.FlaggedDancerIDs)
	}
	if rep.DataPoints.VarianceHistogram["8+"] != 1 {
		t.Fatalf("histogram %v", rep.DataPoints.VarianceHistogram)
	}
}

func TestGenerate_ElevatedAverageWithoutAnomaliesIsMediumRisk(t *testing.T) {
	repo := detect.NewMemoryRepo()
	// Two variance-4 sessions never cross a classification rule on
	// their own, but the 4.0 average still flags the employee.
	repo.Sessions = append(repo.Sessions,
		daySession("s-1", "staff-1", "", 20, 4),
		daySession("s-2", "staff-1", "", 21, 4),
	)
	g := testGenerator(repo)

	rep, err := g.Generate(context.Background(), "club-1", time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if rep.AnomalyCount != 0 {
		t.Fatalf("expected no classified sessions, got %d", rep.AnomalyCount)
	}
	if len(rep.FlaggedUserIDs) != 1 || rep.FlaggedUserIDs[0] != "staff-1" {
		t.Fatalf("flagged users %v", rep.FlaggedUserIDs)
	}
	if rep.OverallRisk != RiskMedium {
		t.Fatalf("a flagged employee must rate at least MEDIUM, got %s", rep.OverallRisk)
	}
}

func TestGenerate_RerunReplacesInsteadOfAppending(t *testing.T) {
	repo := detect.NewMemoryRepo()
	repo.Sessions = append(repo.Sessions, daySession("s-1", "staff-1", "", 20, 0))
	g := testGenerator(repo)
	day := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)

	first, err := g.Generate(context.Background(), "club-1", day)
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}

	// The evening sweep sees a new critical session.
	repo.Sessions = append(repo.Sessions, daySession("s-hot", "staff-2", "", 23, 10))
	second, err := g.Generate(context.Background(), "club-1", day)
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("re-run must keep the report's identity: %s vs %s", second.ID, first.ID)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("re-run must keep CreatedAt")
	}
	if second.OverallRisk != RiskHigh || second.AnomalyCount != 1 {
		t.Fatalf("re-run must carry the new findings: %+v", second)
	}

	all, err := g.List(context.Background(), "club-1", Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("same (club, date, type) must yield one report, got %d", len(all))
	}
}

func TestMarkViewed_IsSticky(t *testing.T) {
	repo := detect.NewMemoryRepo()
	repo.Sessions = append(repo.Sessions, daySession("s-1", "staff-1", "", 20, 0))
	g := testGenerator(repo)
	day := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)

	rep, err := g.Generate(context.Background(), "club-1", day)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	viewed, err := g.MarkViewed(context.Background(), "club-1", rep.ID)
	if err != nil {
		t.Fatalf("mark viewed: %v", err)
	}
	if !viewed.ViewedByOwner || viewed.ViewedAt == nil {
		t.Fatalf("viewed state not set: %+v", viewed)
	}
	firstSeen := *viewed.ViewedAt

	// A later sweep for the same day must not reset the viewed state,
	// and marking again keeps the original timestamp.
	if _, err := g.Generate(context.Background(), "club-1", day); err != nil {
		t.Fatalf("re-generate: %v", err)
	}
	again, err := g.MarkViewed(context.Background(), "club-1", rep.ID)
	if err != nil {
		t.Fatalf("second mark viewed: %v", err)
	}
	if !again.ViewedByOwner || !again.ViewedAt.Equal(firstSeen) {
		t.Fatalf("viewed state must be sticky: %+v", again)
	}

	if _, err := g.MarkViewed(context.Background(), "club-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGenerate_ValidatesInput(t *testing.T) {
	g := testGenerator(detect.NewMemoryRepo())
	if _, err := g.Generate(context.Background(), "", time.Now()); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for empty club, got %v", err)
	}
	if _, err := g.Generate(context.Background(), "club-1", time.Time{}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for zero date, got %v", err)
	}
}

func TestGenerate_ScopesToTheRequestedDay(t *testing.T) {
	repo := detect.NewMemoryRepo()
	repo.Sessions = append(repo.Sessions, daySession("in-window", "staff-1", "", 20, 0))
	outside := daySession("outside", "staff-1", "", 20, 10)
	outside.StartTime = time.Date(2026, 8, 26, 23, 0, 0, 0, time.UTC)
	repo.Sessions = append(repo.Sessions, outside)
	g := testGenerator(repo)

	rep, err := g.Generate(context.Background(), "club-1", time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if rep.DataPoints.SessionsAnalyzed != 1 || rep.AnomalyCount != 0 {
		t.Fatalf("previous day's sessions leaked into the window: %+v", rep.DataPoints)
	}
}
