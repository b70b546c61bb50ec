package detect

import (
	"fmt"
	"testing"
	"time"

	"venueops-platform/internal/stats"
	"venueops-platform/internal/venue"
)

func staffSession(id, staffID string, start time.Time, variance float64) venue.Session {
	final := 10
	return venue.Session{
		ID:                 id,
		ClubID:             "club-1",
		InitiatedBy:        staffID,
		StartTime:          start,
		ManualCount:        final,
		TimeDerivedCount:   float64(final) - variance,
		FinalCount:         final,
		VerificationStatus: venue.VerificationPending,
	}
}

func TestEmployeeBehavior_FlaggedSessionsEscalateToCritical(t *testing.T) {
	// 10 sessions, 6 with variance above the HIGH threshold (5):
	// flaggedCount = 6 >= 5 -> CRITICAL.
	base := time.Date(2026, 8, 1, 22, 0, 0, 0, time.UTC)
	sessions := make([]venue.Session, 0, 10)
	for i := 0; i < 10; i++ {
		v := 1.0
		if i < 6 {
			v = 6.0
		}
		sessions = append(sessions, staffSession(fmt.Sprintf("s-%d", i), "staff-1", base.AddDate(0, 0, i), v))
	}

	findings := AnalyzeEmployeeBehavior(nil, sessions, nil, DefaultThresholds())
	var flagged *Finding
	for i := range findings {
		if d, ok := findings[i].Details.(EmployeeBehaviorDetails); ok && d.FlaggedSessions == 6 {
			flagged = &findings[i]
		}
	}
	if flagged == nil {
		t.Fatalf("expected a repeated-high-variance finding, got %+v", findings)
	}
	if flagged.Severity != stats.SeverityCritical {
		t.Fatalf("6 flagged sessions must be CRITICAL, got %s", flagged.Severity)
	}
}

func TestEmployeeBehavior_LowCollectionRate(t *testing.T) {
	base := time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)
	checkIns := make([]venue.CheckIn, 0, 20)
	for i := 0; i < 20; i++ {
		status := venue.BarFeePaid
		if i < 3 { // 17/20 = 85% collected
			status = venue.BarFeeUnpaid
		}
		checkIns = append(checkIns, venue.CheckIn{
			ID: fmt.Sprintf("c-%d", i), ClubID: "club-1", DancerID: "d-1", StaffID: "staff-1",
			CheckInTime: base.AddDate(0, 0, i), BarFeeCents: 2000, BarFeeStatus: status,
		})
	}

	findings := AnalyzeEmployeeBehavior(nil, nil, checkIns, DefaultThresholds())
	if len(findings) != 1 {
		t.Fatalf("expected one finding, got %d", len(findings))
	}
	if findings[0].Severity != stats.SeverityHigh {
		t.Fatalf("85%% collection must be HIGH, got %s", findings[0].Severity)
	}
}

func TestEmployeeBehavior_WorseningTrendNeedsTenSessions(t *testing.T) {
	base := time.Date(2026, 8, 1, 22, 0, 0, 0, time.UTC)
	build := func(staffID string, n int) []venue.Session {
		out := make([]venue.Session, 0, n)
		for i := 0; i < n; i++ {
			v := 1.0
			if i >= n/2 {
				v = 2.0 // second half doubles: worsening
			}
			out = append(out, staffSession(fmt.Sprintf("%s-%d", staffID, i), staffID, base.AddDate(0, 0, i), v))
		}
		return out
	}

	with10 := AnalyzeEmployeeBehavior(nil, build("staff-1", 10), nil, DefaultThresholds())
	if len(with10) != 1 || with10[0].Details.(EmployeeBehaviorDetails).Trend != stats.TrendWorsening {
		t.Fatalf("expected one worsening-trend finding, got %+v", with10)
	}

	with8 := AnalyzeEmployeeBehavior(nil, build("staff-2", 8), nil, DefaultThresholds())
	if len(with8) != 0 {
		t.Fatalf("trend finding requires 10 sessions, got %+v", with8)
	}
}

func TestRevenue_RequiresSevenDaysAndFlagsOutliers(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	tx := func(day int, cents int64) venue.Transaction {
		return venue.Transaction{
			ID: fmt.Sprintf("t-%d-%d", day, cents), ClubID: "club-1",
			AmountCents: cents, Status: venue.TransactionPaid,
			CreatedAt: base.AddDate(0, 0, day),
		}
	}

	short := []venue.Transaction{tx(0, 100000), tx(1, 100000), tx(2, 100000)}
	if got := AnalyzeRevenue(short, DefaultThresholds()); len(got) != 0 {
		t.Fatalf("fewer than 7 days must yield nothing, got %+v", got)
	}

	// Thirteen $1000 days and one day at $100: the short day is far
	// below half the mean with a z-score under -3.
	txs := make([]venue.Transaction, 0)
	for i := 0; i < 13; i++ {
		txs = append(txs, tx(i, 100000))
	}
	txs = append(txs, tx(13, 10000))

	findings := AnalyzeRevenue(txs, DefaultThresholds())
	if len(findings) != 1 {
		t.Fatalf("expected one under-reporting finding, got %+v", findings)
	}
	f := findings[0]
	if f.Severity != stats.SeverityCritical {
		t.Fatalf("z below -3 must be CRITICAL, got %s", f.Severity)
	}
	if f.EntityID != "2026-08-14" {
		t.Fatalf("finding should name the day, got %q", f.EntityID)
	}
}

func TestRevenue_IgnoresUnpaidTransactions(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	txs := make([]venue.Transaction, 0)
	for i := 0; i < 10; i++ {
		txs = append(txs, venue.Transaction{
			ID: fmt.Sprintf("t-%d", i), ClubID: "club-1", AmountCents: 100000,
			Status: venue.TransactionPending, CreatedAt: base.AddDate(0, 0, i),
		})
	}
	if got := AnalyzeRevenue(txs, DefaultThresholds()); len(got) != 0 {
		t.Fatalf("pending transactions must not count, got %+v", got)
	}
}

func TestCashDrawer_Classification(t *testing.T) {
	closed := time.Date(2026, 8, 27, 4, 0, 0, 0, time.UTC)
	drawer := func(id string, expected, actual int64) venue.CashDrawer {
		return venue.CashDrawer{
			ID: id, ClubID: "club-1", StaffID: "staff-9",
			OpeningCents: 20000, ExpectedCents: expected, ActualCents: actual, ClosedAt: &closed,
		}
	}

	cases := []struct {
		name    string
		d       venue.CashDrawer
		wantSev stats.Severity // empty = no finding
		wantDir string
	}{
		{"shortage over warning", drawer("d1", 45000, 43500), stats.SeverityHigh, "shortage"},
		{"exactly warning threshold", drawer("d2", 45000, 44000), "", ""},
		{"exactly critical threshold", drawer("d3", 45000, 40000), stats.SeverityHigh, "shortage"},
		{"over critical", drawer("d4", 45000, 39999), stats.SeverityCritical, "shortage"},
		{"overage", drawer("d5", 45000, 47000), stats.SeverityHigh, "overage"},
		{"still open", venue.CashDrawer{ID: "d6", ClubID: "club-1", ExpectedCents: 1, ActualCents: 99999}, "", ""},
	}
	for _, tc := range cases {
		findings := AnalyzeCashDrawers([]venue.CashDrawer{tc.d}, DefaultThresholds())
		if tc.wantSev == "" {
			if len(findings) != 0 {
				t.Fatalf("%s: expected no finding, got %+v", tc.name, findings)
			}
			continue
		}
		if len(findings) != 1 {
			t.Fatalf("%s: expected one finding, got %d", tc.name, len(findings))
		}
		f := findings[0]
		if f.Severity != tc.wantSev {
			t.Fatalf("%s: severity %s, want %s", tc.name, f.Severity, tc.wantSev)
		}
		d := f.Details.(CashVarianceDetails)
		if d.Direction != tc.wantDir {
			t.Fatalf("%s: direction %q, want %q", tc.name, d.Direction, tc.wantDir)
		}
		if len(f.UserIDs) != 1 || f.UserIDs[0] != "staff-9" {
			t.Fatalf("%s: closing employee must be implicated, got %v", tc.name, f.UserIDs)
		}
	}
}

func TestPattern_SystematicOverReporting(t *testing.T) {
	base := time.Date(2026, 8, 1, 22, 0, 0, 0, time.UTC)
	sessions := make([]venue.Session, 0, 5)
	// 4 of 5 sessions report 3 songs over the time-derived count (80% > 70%).
	for i := 0; i < 5; i++ {
		s := staffSession(fmt.Sprintf("s-%d", i), "staff-1", base.AddDate(0, 0, i), 0)
		if i < 4 {
			s.TimeDerivedCount = float64(s.FinalCount) - 3
		}
		sessions = append(sessions, s)
	}

	findings := AnalyzePatterns(sessions, DefaultThresholds())
	if len(findings) != 1 {
		t.Fatalf("expected one finding, got %+v", findings)
	}
	f := findings[0]
	if f.Severity != stats.SeverityCritical || f.Details.(PatternDetails).Pattern != "systematic_over_reporting" {
		t.Fatalf("expected critical systematic over-reporting, got %+v", f)
	}
}

func TestPattern_RoundingDetection(t *testing.T) {
	base := time.Date(2026, 8, 1, 22, 0, 0, 0, time.UTC)
	sessions := make([]venue.Session, 0, 6)
	// All six sessions bill exactly the rounded-up fractional count.
	for i := 0; i < 6; i++ {
		sessions = append(sessions, venue.Session{
			ID: fmt.Sprintf("s-%d", i), ClubID: "club-1", InitiatedBy: "staff-1",
			StartTime: base.AddDate(0, 0, i), ManualCount: 8,
			TimeDerivedCount: 7.4, FinalCount: 8,
			VerificationStatus: venue.VerificationPending,
		})
	}

	findings := AnalyzePatterns(sessions, DefaultThresholds())
	if len(findings) != 1 {
		t.Fatalf("expected one rounding finding, got %+v", findings)
	}
	if findings[0].Severity != stats.SeverityMedium || findings[0].Details.(PatternDetails).Pattern != "rounding" {
		t.Fatalf("rounding should be MEDIUM, got %+v", findings[0])
	}
}

func TestPattern_SmallGroupsSkipped(t *testing.T) {
	base := time.Date(2026, 8, 1, 22, 0, 0, 0, time.UTC)
	sessions := []venue.Session{
		staffSession("s-1", "staff-1", base, 5),
		staffSession("s-2", "staff-1", base.AddDate(0, 0, 1), 5),
	}
	if got := AnalyzePatterns(sessions, DefaultThresholds()); len(got) != 0 {
		t.Fatalf("groups under 3 sessions must not be evaluated, got %+v", got)
	}
}

func TestTimeBased_ShortSessionHighCountFlagsRegardlessOfBaseline(t *testing.T) {
	start := time.Date(2026, 8, 20, 23, 0, 0, 0, time.UTC)
	end := start.Add(8 * time.Minute)
	s := venue.Session{
		ID: "quick", ClubID: "club-1", InitiatedBy: "staff-1",
		StartTime: start, EndTime: &end, FinalCount: 6,
		TimeDerivedCount: 2, ManualCount: 6,
		VerificationStatus: venue.VerificationPending,
	}

	// Only one session with a duration: the statistical part is gated
	// out but the mismatch rule still applies.
	findings := AnalyzeTimePatterns([]venue.Session{s}, DefaultThresholds())
	if len(findings) != 1 {
		t.Fatalf("expected one mismatch finding, got %+v", findings)
	}
	if findings[0].Severity != stats.SeverityHigh {
		t.Fatalf("duration/count mismatch must be HIGH, got %s", findings[0].Severity)
	}
}

func TestTimeBased_LongSessionOutlier(t *testing.T) {
	base := time.Date(2026, 8, 1, 22, 0, 0, 0, time.UTC)
	sessions := make([]venue.Session, 0, 13)
	mk := func(id string, day int, minutes float64) venue.Session {
		start := base.AddDate(0, 0, day)
		end := start.Add(time.Duration(minutes * float64(time.Minute)))
		return venue.Session{
			ID: id, ClubID: "club-1", InitiatedBy: "staff-1",
			StartTime: start, EndTime: &end,
			ManualCount: 3, TimeDerivedCount: 3, FinalCount: 3,
			VerificationStatus: venue.VerificationPending,
		}
	}
	durations := []float64{18, 20, 22, 19, 21, 20, 18, 22, 20, 21, 19, 20}
	for i, m := range durations {
		sessions = append(sessions, mk(fmt.Sprintf("s-%d", i), i, m))
	}
	sessions = append(sessions, mk("marathon", 12, 60))

	findings := AnalyzeTimePatterns(sessions, DefaultThresholds())
	if len(findings) != 1 {
		t.Fatalf("expected one long-session finding, got %+v", findings)
	}
	f := findings[0]
	if f.EntityID != "marathon" || f.Severity != stats.SeverityMedium {
		t.Fatalf("unexpected finding %+v", f)
	}
}
