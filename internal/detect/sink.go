package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"venueops-platform/internal/alerts"
	"venueops-platform/internal/ledger"
	"venueops-platform/internal/stats"
	"venueops-platform/pkg/logger"
)

// Sink persists qualifying findings after a sweep: findings at MEDIUM
// or above become verification alerts (deduplicated by the alert
// store), and findings stemming from an explicit manual override are
// cross-referenced in the audit chain as DISCREPANCY_DETECTED entries.
type Sink struct {
	Alerts *alerts.Service
	Ledger *ledger.Service
}

// SinkOutcome reports what one persistence pass actually wrote.
type SinkOutcome struct {
	AlertsCreated    int `json:"alerts_created"`
	AlertsSuppressed int `json:"alerts_suppressed"`
	LedgerEntries    int `json:"ledger_entries"`
}

func (s Sink) Persist(ctx context.Context, result Result) (SinkOutcome, error) {
	log := logger.From(ctx)
	var out SinkOutcome

	for _, f := range result.Findings {
		if !f.Severity.AtLeast(stats.SeverityMedium) {
			continue
		}

		_, created, err := s.Alerts.Create(ctx, alerts.Alert{
			ClubID:      result.ClubID,
			Type:        f.Type.AlertType(),
			Severity:    f.Severity,
			EntityType:  f.EntityType,
			EntityID:    f.EntityID,
			UserIDs:     f.UserIDs,
			DancerIDs:   f.DancerIDs,
			Description: fmt.Sprintf("%s: %s", f.Title, f.Message),
			ActualValue: f.Message,
			OwnerOnly:   f.Severity == stats.SeverityCritical,
		})
		if err != nil {
			return out, fmt.Errorf("detect: persisting alert for %s/%s: %w", f.EntityType, f.EntityID, err)
		}
		if created {
			out.AlertsCreated++
		} else {
			out.AlertsSuppressed++
		}

		if d, ok := f.Details.(SongCountDetails); ok && d.ManualOverride {
			payload, _ := json.Marshal(f)
			_, err := s.Ledger.Append(ctx, ledger.AuditLogEntry{
				ClubID:        result.ClubID,
				Action:        ledger.ActionDiscrepancyDetected,
				EntityType:    f.EntityType,
				EntityID:      f.EntityID,
				After:         payload,
				Summary:       f.Title,
				HighRisk:      f.Severity == stats.SeverityCritical,
				FlaggedReason: "override produced a count discrepancy",
			})
			if err != nil {
				return out, fmt.Errorf("detect: recording discrepancy in audit chain: %w", err)
			}
			out.LedgerEntries++
		}
	}

	log.Info("sweep persisted",
		"club_id", result.ClubID,
		"alerts_created", out.AlertsCreated,
		"alerts_suppressed", out.AlertsSuppressed,
		"ledger_entries", out.LedgerEntries,
	)
	return out, nil
}

// Cache keeps the last sweep summary per club in redis for a short TTL
// so dashboard polls between sweeps do not re-run the analyzers.
// Findings themselves are not cached; typed details do not round-trip
// through JSON and persisted alerts already carry them.
type Cache struct {
	Client CacheClient
	TTL    time.Duration
}

// CacheClient is the minimal redis surface the cache needs.
type CacheClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// CachedSweep is the cached view of one completed sweep.
type CachedSweep struct {
	ClubID      string    `json:"club_id"`
	Summary     Summary   `json:"summary"`
	CompletedAt time.Time `json:"completed_at"`
}

func sweepCacheKey(clubID string) string { return "detect:sweep:" + clubID }

func (c Cache) Load(ctx context.Context, clubID string) (CachedSweep, bool) {
	if c.Client == nil {
		return CachedSweep{}, false
	}
	raw, err := c.Client.Get(ctx, sweepCacheKey(clubID))
	if err != nil || raw == "" {
		return CachedSweep{}, false
	}
	var s CachedSweep
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return CachedSweep{}, false
	}
	return s, true
}

func (c Cache) Store(ctx context.Context, r Result, completedAt time.Time) {
	if c.Client == nil {
		return
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	raw, err := json.Marshal(CachedSweep{ClubID: r.ClubID, Summary: r.Summary, CompletedAt: completedAt})
	if err != nil {
		return
	}
	// Cache writes are best-effort; a miss just re-runs the sweep.
	_ = c.Client.Set(ctx, sweepCacheKey(r.ClubID), string(raw), ttl)
}
