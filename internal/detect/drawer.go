package detect

import (
	"fmt"

	"venueops-platform/internal/stats"
	"venueops-platform/internal/venue"
)

// AnalyzeCashDrawers flags closed drawers whose counted balance
// diverges from the expected balance. Thresholds are strict: a variance
// of exactly the warning or critical amount does not cross it.
func AnalyzeCashDrawers(drawers []venue.CashDrawer, th Thresholds) []Finding {
	findings := make([]Finding, 0)
	for _, d := range drawers {
		if d.ClosedAt == nil {
			continue
		}
		variance := d.VarianceCents()
		if variance <= th.DrawerWarnCents {
			continue
		}
		sev := stats.SeverityHigh
		if variance > th.DrawerCritCents {
			sev = stats.SeverityCritical
		}
		direction := "overage"
		if d.IsShortage() {
			direction = "shortage"
		}
		findings = append(findings, Finding{
			Type:     FindingCashVariance,
			Severity: sev,
			Title:    "Cash drawer variance",
			Message: fmt.Sprintf("drawer closed with a $%.2f %s (expected $%.2f, counted $%.2f)",
				float64(variance)/100, direction, float64(d.ExpectedCents)/100, float64(d.ActualCents)/100),
			EntityType: "cash_drawer",
			EntityID:   d.ID,
			UserIDs:    nonEmpty(d.StaffID),
			Details: CashVarianceDetails{
				DrawerID:      d.ID,
				StaffID:       d.StaffID,
				ExpectedCents: d.ExpectedCents,
				ActualCents:   d.ActualCents,
				VarianceCents: variance,
				Direction:     direction,
			},
			Confidence:        0.9,
			RecommendedAction: "Recount the drawer against the shift's transaction log",
		})
	}
	return findings
}
