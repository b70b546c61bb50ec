package detect

import (
	"fmt"

	"venueops-platform/internal/stats"
	"venueops-platform/internal/venue"
)

// SessionScore is the per-session song-count reconciliation result. The
// report generator reuses these scores, so they are exported alongside
// the finding conversion.
type SessionScore struct {
	Session    venue.Session
	Variance   float64
	ZScore     float64
	Percentile float64

	// Severity is empty when the session is not anomalous.
	Severity   stats.Severity
	Confidence float64
}

// ScoreSongCounts reconciles the measurement triple for every
// non-verified session against a baseline built from all candidates.
//
// Classification, first matching rule wins:
//   variance > 8  OR z > 3.5             -> CRITICAL, confidence 0.95
//   variance > 5  OR z > 2.5             -> HIGH,     confidence 0.85
//   variance > 2  AND percentile > 0.95  -> MEDIUM,   confidence 0.70
//
// Escalations (each exactly one level, capped at CRITICAL) apply only
// to sessions already classified:
//   - final count was a manual override AND variance > 2
//   - a DJ-synced count exists and differs from the manual count by
//     more than 5 (a gap of exactly 5 does not escalate)
func ScoreSongCounts(sessions []venue.Session, th Thresholds) []SessionScore {
	candidates := make([]venue.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.VerificationStatus == venue.VerificationVerified {
			continue
		}
		candidates = append(candidates, s)
	}

	variances := make([]float64, len(candidates))
	for i, s := range candidates {
		variances[i] = s.CountVariance()
	}
	mean := stats.Mean(variances)
	std := stats.StdDev(variances)

	scores := make([]SessionScore, 0, len(candidates))
	for i, s := range candidates {
		v := variances[i]
		sc := SessionScore{
			Session:    s,
			Variance:   v,
			ZScore:     stats.ZScore(v, mean, std),
			Percentile: stats.PercentileRank(variances, v),
		}

		switch {
		case v > th.SongVarianceCritical || sc.ZScore > th.SongZScoreHigh+th.SongZScoreCritBoost:
			sc.Severity, sc.Confidence = stats.SeverityCritical, 0.95
		case v > th.SongVarianceHigh || sc.ZScore > th.SongZScoreHigh:
			sc.Severity, sc.Confidence = stats.SeverityHigh, 0.85
		case v > th.SongVarianceMedium && sc.Percentile > th.SongPercentileMedium:
			sc.Severity, sc.Confidence = stats.SeverityMedium, 0.70
		}

		if sc.Severity != "" {
			if s.IsManualOverride && v > th.SongVarianceMedium {
				sc.Severity = stats.Escalate(sc.Severity)
				sc.Confidence = capConfidence(sc.Confidence + th.OverrideConfBump)
			}
			if s.DJSyncCount != nil && absInt(*s.DJSyncCount-s.ManualCount) > th.DJManualGap {
				sc.Severity = stats.Escalate(sc.Severity)
				sc.Confidence = capConfidence(sc.Confidence + th.DJGapConfBump)
			}
		}
		scores = append(scores, sc)
	}
	return scores
}

// AnalyzeSongCounts converts anomalous session scores into findings.
func AnalyzeSongCounts(sessions []venue.Session, th Thresholds) []Finding {
	findings := make([]Finding, 0)
	for _, sc := range ScoreSongCounts(sessions, th) {
		if sc.Severity == "" {
			continue
		}
		s := sc.Session
		findings = append(findings, Finding{
			Type:       FindingSongCountMismatch,
			Severity:   sc.Severity,
			Title:      "Song count mismatch",
			Message:    songCountMessage(s, sc.Variance),
			EntityType: "vip_session",
			EntityID:   s.ID,
			UserIDs:    nonEmpty(s.InitiatedBy),
			DancerIDs:  nonEmpty(s.DancerID),
			Details: SongCountDetails{
				ManualCount:      s.ManualCount,
				DJSyncCount:      s.DJSyncCount,
				TimeDerivedCount: s.TimeDerivedCount,
				FinalCount:       s.FinalCount,
				Variance:         sc.Variance,
				ZScore:           sc.ZScore,
				Percentile:       sc.Percentile,
				ManualOverride:   s.IsManualOverride,
				OverrideReason:   s.OverrideReason,
			},
			Confidence:        sc.Confidence,
			RecommendedAction: "Review the session's count sources and confirm the billed count",
		})
	}
	return findings
}

// songCountMessage states every available count and whether an override
// occurred, so a reviewer sees the whole measurement triple at once.
func songCountMessage(s venue.Session, variance float64) string {
	msg := fmt.Sprintf("manual=%d", s.ManualCount)
	if s.DJSyncCount != nil {
		msg += fmt.Sprintf(", dj-sync=%d", *s.DJSyncCount)
	}
	msg += fmt.Sprintf(", time-derived=%.1f, final=%d (variance %.1f)", s.TimeDerivedCount, s.FinalCount, variance)
	if s.IsManualOverride {
		msg += "; final count was a manual override"
		if s.OverrideReason != "" {
			msg += fmt.Sprintf(" (%s)", s.OverrideReason)
		}
	}
	return msg
}

func capConfidence(c float64) float64 {
	if c > 1 {
		return 1
	}
	return c
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func nonEmpty(ids ...string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
