package detect

import (
	"fmt"
	"sort"
	"time"

	"venueops-platform/internal/stats"
	"venueops-platform/internal/venue"
)

// AnalyzeRevenue groups paid transactions into calendar-day totals and
// flags days that deviate from the window's baseline. Requires at least
// RevenueMinDays days of data, otherwise contributes nothing.
func AnalyzeRevenue(transactions []venue.Transaction, th Thresholds) []Finding {
	totals := make(map[string]int64)
	for _, t := range transactions {
		if t.Status != venue.TransactionPaid {
			continue
		}
		day := t.CreatedAt.UTC().Format(time.DateOnly)
		totals[day] += t.AmountCents
	}
	if len(totals) < th.RevenueMinDays {
		return nil
	}

	days := make([]string, 0, len(totals))
	for d := range totals {
		days = append(days, d)
	}
	sort.Strings(days)

	daily := make([]float64, len(days))
	for i, d := range days {
		daily[i] = float64(totals[d])
	}
	mean := stats.Mean(daily)
	std := stats.StdDev(daily)

	findings := make([]Finding, 0)
	for i, d := range days {
		z := stats.ZScore(daily[i], mean, std)
		details := RevenueDetails{Day: d, TotalCents: totals[d], MeanCents: mean, ZScore: z}

		if z < th.RevenueUnderZ && daily[i] < mean*th.RevenueUnderFraction {
			sev := stats.SeverityHigh
			if z < th.RevenueUnderCritZ {
				sev = stats.SeverityCritical
			}
			findings = append(findings, Finding{
				Type:       FindingRevenueAnomaly,
				Severity:   sev,
				Title:      "Possible revenue under-reporting",
				Message:    fmt.Sprintf("daily total $%.2f on %s is far below the window mean $%.2f (z=%.2f)", daily[i]/100, d, mean/100, z),
				EntityType: "revenue_day",
				EntityID:   d,
				Details:    details,
				Confidence: 0.8,
				RecommendedAction: "Cross-check register totals and payment provider records for this day",
			})
			continue
		}
		if z > th.RevenueOverZ {
			findings = append(findings, Finding{
				Type:       FindingRevenueAnomaly,
				Severity:   stats.SeverityMedium,
				Title:      "Revenue spike",
				Message:    fmt.Sprintf("daily total $%.2f on %s is far above the window mean $%.2f (z=%.2f); possible duplicate charges", daily[i]/100, d, mean/100, z),
				EntityType: "revenue_day",
				EntityID:   d,
				Details:    details,
				Confidence: 0.6,
				RecommendedAction: "Check the day's transactions for duplicates",
			})
		}
	}
	return findings
}
