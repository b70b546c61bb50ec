package detect

import (
	"fmt"
	"math"
	"sort"

	"venueops-platform/internal/stats"
	"venueops-platform/internal/venue"
)

// AnalyzePatterns groups sessions by initiating staff member and looks
// for per-employee reporting patterns that single sessions would never
// reveal. Groups with fewer than PatternMinSessions sessions are not
// evaluated.
func AnalyzePatterns(sessions []venue.Session, th Thresholds) []Finding {
	byStaff := make(map[string][]venue.Session)
	for _, s := range sessions {
		if s.InitiatedBy != "" {
			byStaff[s.InitiatedBy] = append(byStaff[s.InitiatedBy], s)
		}
	}
	staffIDs := make([]string, 0, len(byStaff))
	for id := range byStaff {
		staffIDs = append(staffIDs, id)
	}
	sort.Strings(staffIDs)

	findings := make([]Finding, 0)
	for _, staffID := range staffIDs {
		own := byStaff[staffID]
		if len(own) < th.PatternMinSessions {
			continue
		}

		overReported := 0
		roundedUp := 0
		for _, s := range own {
			if float64(s.FinalCount)-s.TimeDerivedCount > th.PatternBiasMargin {
				overReported++
			}
			// An integral time-derived count rounds up to itself; an
			// exact match there is accurate reporting, not rounding.
			ceil := math.Ceil(s.TimeDerivedCount)
			if ceil != s.TimeDerivedCount && s.FinalCount == int(ceil) {
				roundedUp++
			}
		}

		if overRate := float64(overReported) / float64(len(own)); overRate > th.PatternBiasFraction {
			findings = append(findings, Finding{
				Type:       FindingPattern,
				Severity:   stats.SeverityCritical,
				Title:      "Systematic over-reporting",
				Message:    fmt.Sprintf("%d of %d sessions report more songs than the time-derived count allows", overReported, len(own)),
				EntityType: "staff",
				EntityID:   staffID,
				UserIDs:    []string{staffID},
				Details: PatternDetails{
					StaffID:      staffID,
					Pattern:      "systematic_over_reporting",
					SessionCount: len(own),
					MatchCount:   overReported,
					MatchRate:    overRate,
				},
				Confidence:        0.9,
				RecommendedAction: "Suspend manual count entry for this employee pending review",
			})
		}

		if roundRate := float64(roundedUp) / float64(len(own)); roundedUp >= th.RoundingMinMatches && roundRate > th.RoundingFraction {
			findings = append(findings, Finding{
				Type:       FindingPattern,
				Severity:   stats.SeverityMedium,
				Title:      "Consistent round-up pattern",
				Message:    fmt.Sprintf("%d of %d sessions bill exactly the rounded-up time-derived count; likely a training issue", roundedUp, len(own)),
				EntityType: "staff",
				EntityID:   staffID,
				UserIDs:    []string{staffID},
				Details: PatternDetails{
					StaffID:      staffID,
					Pattern:      "rounding",
					SessionCount: len(own),
					MatchCount:   roundedUp,
					MatchRate:    roundRate,
				},
				Confidence:        0.6,
				RecommendedAction: "Clarify partial-song billing policy with this employee",
			})
		}
	}
	return findings
}
