package detect

import (
	"fmt"
	"sort"

	"venueops-platform/internal/stats"
	"venueops-platform/internal/venue"
)

// AnalyzeEmployeeBehavior scores each staff member across their
// sessions and check-ins within the window.
func AnalyzeEmployeeBehavior(staff []venue.StaffMember, sessions []venue.Session, checkIns []venue.CheckIn, th Thresholds) []Finding {
	names := make(map[string]string, len(staff))
	for _, m := range staff {
		names[m.ID] = m.DisplayName
	}

	sessionsByStaff := make(map[string][]venue.Session)
	for _, s := range sessions {
		if s.InitiatedBy != "" {
			sessionsByStaff[s.InitiatedBy] = append(sessionsByStaff[s.InitiatedBy], s)
		}
	}
	checkInsByStaff := make(map[string][]venue.CheckIn)
	for _, c := range checkIns {
		if c.StaffID != "" {
			checkInsByStaff[c.StaffID] = append(checkInsByStaff[c.StaffID], c)
		}
	}

	staffIDs := make([]string, 0, len(sessionsByStaff))
	for id := range sessionsByStaff {
		staffIDs = append(staffIDs, id)
	}
	for id := range checkInsByStaff {
		if _, seen := sessionsByStaff[id]; !seen {
			staffIDs = append(staffIDs, id)
		}
	}
	sort.Strings(staffIDs)

	findings := make([]Finding, 0)
	for _, staffID := range staffIDs {
		own := sessionsByStaff[staffID]
		sort.Slice(own, func(i, j int) bool { return own[i].StartTime.Before(own[j].StartTime) })

		variances := make([]float64, len(own))
		flagged := 0
		for i, s := range own {
			variances[i] = s.CountVariance()
			if variances[i] > th.SongVarianceHigh {
				flagged++
			}
		}
		avgVariance := stats.Mean(variances)
		trend := stats.Trend(variances)

		ins := checkInsByStaff[staffID]
		paid := 0
		for _, c := range ins {
			if c.BarFeeStatus == venue.BarFeePaid {
				paid++
			}
		}
		collectionRate := 1.0
		if len(ins) > 0 {
			collectionRate = float64(paid) / float64(len(ins))
		}

		details := EmployeeBehaviorDetails{
			StaffID:         staffID,
			DisplayName:     names[staffID],
			SessionCount:    len(own),
			AvgVariance:     avgVariance,
			Trend:           trend,
			CheckInCount:    len(ins),
			CollectionRate:  collectionRate,
			FlaggedSessions: flagged,
		}
		emit := func(sev stats.Severity, conf float64, title, msg, action string) {
			findings = append(findings, Finding{
				Type:              FindingEmployeeBehavior,
				Severity:          sev,
				Title:             title,
				Message:           msg,
				EntityType:        "staff",
				EntityID:          staffID,
				UserIDs:           []string{staffID},
				Details:           details,
				Confidence:        conf,
				RecommendedAction: action,
			})
		}

		if len(own) >= th.EmployeeMinSessions && avgVariance > th.EmployeeAvgVarMedium {
			sev := stats.SeverityMedium
			if avgVariance > th.EmployeeAvgVarHigh {
				sev = stats.SeverityHigh
			}
			emit(sev, 0.8, "Elevated average count variance",
				fmt.Sprintf("average variance %.1f across %d sessions", avgVariance, len(own)),
				"Audit this employee's recent VIP sessions")
		}

		if len(own) >= th.TrendMinSessions && trend == stats.TrendWorsening {
			emit(stats.SeverityMedium, 0.7, "Worsening variance trend",
				fmt.Sprintf("count variance is trending up across %d sessions", len(own)),
				"Compare early vs recent sessions for this employee")
		}

		if len(ins) >= th.CollectionMinCheckIns && collectionRate < th.CollectionRateMedium {
			sev := stats.SeverityMedium
			if collectionRate < th.CollectionRateHigh {
				sev = stats.SeverityHigh
			}
			emit(sev, 0.85, "Low bar-fee collection rate",
				fmt.Sprintf("collected %d of %d bar fees (%.0f%%)", paid, len(ins), collectionRate*100),
				"Reconcile uncollected bar fees against the check-in log")
		}

		if flagged >= th.FlaggedHigh {
			sev := stats.SeverityHigh
			if flagged >= th.FlaggedCritical {
				sev = stats.SeverityCritical
			}
			emit(sev, 0.9, "Repeated high-variance sessions",
				fmt.Sprintf("%d of %d sessions exceed the high variance threshold", flagged, len(own)),
				"Escalate to the owner for review")
		}
	}
	return findings
}
