package detect

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"testing"
	"time"

	"venueops-platform/internal/stats"
	"venueops-platform/internal/venue"
)

func sessionWithCounts(id string, manual int, dj *int, timeDerived float64, final int, override bool) venue.Session {
	return venue.Session{
		ID:                 id,
		ClubID:             "club-1",
		InitiatedBy:        "staff-1",
		StartTime:          time.Date(2026, 8, 20, 22, 0, 0, 0, time.UTC),
		ManualCount:        manual,
		DJSyncCount:        dj,
		TimeDerivedCount:   timeDerived,
		FinalCount:         final,
		VerificationStatus: venue.VerificationPending,
		IsManualOverride:   override,
	}
}

func intPtr(v int) *int { return &v }

func closeTo(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func findScore(t *testing.T, scores []SessionScore, id string) SessionScore {
	t.Helper()
	for _, sc := range scores {
		if sc.Session.ID == id {
			return sc
		}
	}
	t.Fatalf("no score for session %s", id)
	return SessionScore{}
}

// fillerSessions builds a low-variance baseline population.
func fillerSessions(n int, variance float64) []venue.Session {
	out := make([]venue.Session, 0, n)
	for i := 0; i < n; i++ {
		final := 10
		out = append(out, sessionWithCounts(fmt.Sprintf("filler-%d-%v", i, variance), final, nil, float64(final)-variance, final, false))
	}
	return out
}

func TestSongCount_ExtremeVarianceIsCritical(t *testing.T) {
	// manual=18, dj=15, time-derived=8, final=18, no override:
	// variance |18-8| = 10 exceeds the absolute critical bound.
	target := sessionWithCounts("target", 18, intPtr(15), 8, 18, false)
	sessions := append(fillerSessions(10, 1), target)

	sc := findScore(t, ScoreSongCounts(sessions, DefaultThresholds()), "target")
	if sc.Severity != stats.SeverityCritical {
		t.Fatalf("expected CRITICAL, got %q", sc.Severity)
	}
	if sc.Confidence != 0.95 {
		t.Fatalf("expected confidence 0.95, got %v", sc.Confidence)
	}
}

func TestSongCount_EscalationsRequireLiteralThresholds(t *testing.T) {
	// manual=18, dj=15, time-derived=16, final=15, override=true.
	// Base variance 1 is below every rule; the DJ-vs-manual gap of 3
	// does not exceed 5 and the override rule needs variance > 2, so
	// neither escalation applies and the session is not anomalous.
	target := sessionWithCounts("edge", 18, intPtr(15), 16, 15, true)
	sessions := append(fillerSessions(10, 1), target)

	sc := findScore(t, ScoreSongCounts(sessions, DefaultThresholds()), "edge")
	if sc.Severity != "" {
		t.Fatalf("escalation rules must not fire below their literal thresholds, got %q", sc.Severity)
	}
}

// mediumBaselinePopulation yields a population where a variance-3
// session lands in the MEDIUM rule: percentile > 0.95 but z <= 2.5.
func mediumBaselinePopulation(target venue.Session) []venue.Session {
	sessions := append(fillerSessions(10, 0), fillerSessions(10, 2)...)
	return append(sessions, target)
}

func TestSongCount_MediumBase(t *testing.T) {
	target := sessionWithCounts("t", 13, nil, 10, 13, false) // variance 3
	sc := findScore(t, ScoreSongCounts(mediumBaselinePopulation(target), DefaultThresholds()), "t")
	if sc.Severity != stats.SeverityMedium || sc.Confidence != 0.70 {
		t.Fatalf("expected MEDIUM/0.70, got %q/%v (z=%v pct=%v)", sc.Severity, sc.Confidence, sc.ZScore, sc.Percentile)
	}
}

func TestSongCount_DJGapEscalatesOneLevel(t *testing.T) {
	// Same MEDIUM base, but the manual count disagrees with the DJ
	// sync by 6 (> 5): exactly one escalation step.
	target := sessionWithCounts("t", 13, intPtr(7), 10, 13, false)
	sc := findScore(t, ScoreSongCounts(mediumBaselinePopulation(target), DefaultThresholds()), "t")
	if sc.Severity != stats.SeverityHigh {
		t.Fatalf("expected HIGH after DJ-gap escalation, got %q", sc.Severity)
	}
	if !closeTo(sc.Confidence, 0.80) {
		t.Fatalf("expected confidence 0.80, got %v", sc.Confidence)
	}
}

func TestSongCount_OverrideEscalatesOneLevel(t *testing.T) {
	target := sessionWithCounts("t", 13, nil, 10, 13, true)
	sc := findScore(t, ScoreSongCounts(mediumBaselinePopulation(target), DefaultThresholds()), "t")
	if sc.Severity != stats.SeverityHigh {
		t.Fatalf("expected HIGH after override escalation, got %q", sc.Severity)
	}
	if !closeTo(sc.Confidence, 0.75) {
		t.Fatalf("expected confidence 0.75, got %v", sc.Confidence)
	}
}

func TestSongCount_BothEscalationsCapAtCritical(t *testing.T) {
	// HIGH base (variance 6) plus both escalations: one step to
	// CRITICAL, the second clamps there; confidence clamps at 1.0.
	target := sessionWithCounts("t", 16, intPtr(9), 10, 16, true)
	sessions := append(fillerSessions(20, 1), target)
	sc := findScore(t, ScoreSongCounts(sessions, DefaultThresholds()), "t")
	if sc.Severity != stats.SeverityCritical {
		t.Fatalf("expected CRITICAL, got %q", sc.Severity)
	}
	if sc.Confidence != 1.0 {
		t.Fatalf("confidence must cap at 1.0, got %v", sc.Confidence)
	}
}

func TestSongCount_VerifiedSessionsExcluded(t *testing.T) {
	verified := sessionWithCounts("v", 20, nil, 5, 20, false)
	verified.VerificationStatus = venue.VerificationVerified
	scores := ScoreSongCounts([]venue.Session{verified}, DefaultThresholds())
	if len(scores) != 0 {
		t.Fatalf("verified sessions must not be scored")
	}
}

func TestSongCount_SeverityMonotonicInVariance(t *testing.T) {
	sessions := make([]venue.Session, 0)
	for v := 0; v <= 12; v++ {
		sessions = append(sessions, sessionWithCounts(fmt.Sprintf("s-%d", v), 10+v, nil, 10, 10+v, false))
	}
	scores := ScoreSongCounts(sessions, DefaultThresholds())
	sort.Slice(scores, func(i, j int) bool { return scores[i].Variance < scores[j].Variance })

	prev := -1
	for _, sc := range scores {
		rank := -1
		if sc.Severity != "" {
			rank = sc.Severity.Rank()
		}
		if rank < prev {
			t.Fatalf("severity decreased as variance increased: variance %.0f rank %d after %d", sc.Variance, rank, prev)
		}
		prev = rank
	}
}

func TestSongCount_ZeroStdDevBaselineFallsBackToAbsoluteRules(t *testing.T) {
	// A single candidate has no usable baseline: stddev is 0, the
	// z-score is treated as 0, and only the absolute bounds apply.
	only := sessionWithCounts("solo", 19, nil, 10, 19, false) // variance 9 > 8
	sc := findScore(t, ScoreSongCounts([]venue.Session{only}, DefaultThresholds()), "solo")
	if sc.ZScore != 0 {
		t.Fatalf("zero-stddev baseline must yield z=0, got %v", sc.ZScore)
	}
	if sc.Severity != stats.SeverityCritical {
		t.Fatalf("absolute rule should still classify, got %q", sc.Severity)
	}
}

func TestSongCount_FindingMessageStatesAllCounts(t *testing.T) {
	target := sessionWithCounts("t", 18, intPtr(15), 8, 18, true)
	findings := AnalyzeSongCounts([]venue.Session{target}, DefaultThresholds())
	if len(findings) != 1 {
		t.Fatalf("expected one finding, got %d", len(findings))
	}
	msg := findings[0].Message
	for _, want := range []string{"manual=18", "dj-sync=15", "time-derived=8.0", "final=18", "override"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("message missing %q: %s", want, msg)
		}
	}
}
