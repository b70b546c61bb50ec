package detect

import (
	"fmt"

	"venueops-platform/internal/stats"
	"venueops-platform/internal/venue"
)

// AnalyzeTimePatterns checks session durations. The statistical
// outlier check needs at least TimeMinSessions sessions with a recorded
// duration; the short-session/high-count mismatch applies regardless of
// any baseline.
func AnalyzeTimePatterns(sessions []venue.Session, th Thresholds) []Finding {
	closed := make([]venue.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.EndTime != nil {
			closed = append(closed, s)
		}
	}

	findings := make([]Finding, 0)
	for _, s := range closed {
		if s.DurationMinutes() < th.TimeShortMinutes && s.FinalCount > th.TimeShortMaxSongs {
			findings = append(findings, Finding{
				Type:       FindingTimeAnomaly,
				Severity:   stats.SeverityHigh,
				Title:      "Duration/count mismatch",
				Message:    fmt.Sprintf("session lasted %.1f minutes but billed %d songs", s.DurationMinutes(), s.FinalCount),
				EntityType: "vip_session",
				EntityID:   s.ID,
				UserIDs:    nonEmpty(s.InitiatedBy),
				DancerIDs:  nonEmpty(s.DancerID),
				Details: TimeAnomalyDetails{
					SessionID:       s.ID,
					DurationMinutes: s.DurationMinutes(),
					FinalCount:      s.FinalCount,
				},
				Confidence:        0.85,
				RecommendedAction: "Verify the session's start and end timestamps",
			})
		}
	}

	if len(closed) < th.TimeMinSessions {
		return findings
	}

	durations := make([]float64, len(closed))
	for i, s := range closed {
		durations[i] = s.DurationMinutes()
	}
	mean := stats.Mean(durations)
	std := stats.StdDev(durations)

	for i, s := range closed {
		z := stats.ZScore(durations[i], mean, std)
		if z <= th.TimeLongZ {
			continue
		}
		findings = append(findings, Finding{
			Type:       FindingTimeAnomaly,
			Severity:   stats.SeverityMedium,
			Title:      "Unusually long session",
			Message:    fmt.Sprintf("session lasted %.1f minutes against a %.1f minute average (z=%.2f)", durations[i], mean, z),
			EntityType: "vip_session",
			EntityID:   s.ID,
			UserIDs:    nonEmpty(s.InitiatedBy),
			DancerIDs:  nonEmpty(s.DancerID),
			Details: TimeAnomalyDetails{
				SessionID:       s.ID,
				DurationMinutes: durations[i],
				ZScore:          z,
				FinalCount:      s.FinalCount,
			},
			Confidence:        0.6,
			RecommendedAction: "Confirm the session was closed on time",
		})
	}
	return findings
}
