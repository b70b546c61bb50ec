package detect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"venueops-platform/internal/venue"
	"venueops-platform/pkg/logger"
)

// Engine orchestrates the six analyzers over a rolling window.
//
// The engine holds only immutable configuration; collaborator access is
// injected so tests can substitute fakes. Analyzers are read-only and
// independent, so one sweep runs them concurrently; a failure (error or
// panic) in one analyzer is isolated, logged, and counted, and the
// sweep still returns the surviving findings.
type Engine struct {
	repo       Repository
	thresholds Thresholds
	clock      func() time.Time
}

var ErrInvalidSweep = errors.New("detect: invalid sweep request")

func NewEngine(repo Repository, th Thresholds) *Engine {
	return &Engine{repo: repo, thresholds: th, clock: time.Now}
}

// Thresholds returns the engine's immutable classification config.
func (e *Engine) Thresholds() Thresholds { return e.thresholds }

// SweepOptions narrows one detection run.
type SweepOptions struct {
	WindowDays int    `json:"window_days"`
	EmployeeID string `json:"employee_id,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
}

// DetectAnomalies runs all six analyzers for one club and consolidates
// their findings.
func (e *Engine) DetectAnomalies(ctx context.Context, clubID string, opts SweepOptions) (Result, error) {
	if clubID == "" {
		return Result{}, ErrInvalidSweep
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = 30
	}
	now := e.clock().UTC()
	from := now.AddDate(0, 0, -opts.WindowDays)

	log := logger.From(ctx)

	type analyzer struct {
		name string
		run  func(ctx context.Context) ([]Finding, error)
	}
	analyzers := []analyzer{
		{"song_count", func(ctx context.Context) ([]Finding, error) {
			sessions, err := e.sessions(ctx, clubID, from, now, opts)
			if err != nil {
				return nil, err
			}
			return AnalyzeSongCounts(sessions, e.thresholds), nil
		}},
		{"employee_behavior", func(ctx context.Context) ([]Finding, error) {
			sessions, err := e.sessions(ctx, clubID, from, now, opts)
			if err != nil {
				return nil, err
			}
			checkIns, err := e.repo.ListCheckIns(ctx, clubID, from, now, e.thresholds.MaxRows)
			if err != nil {
				return nil, err
			}
			staff, err := e.repo.ListStaff(ctx, clubID)
			if err != nil {
				return nil, err
			}
			return AnalyzeEmployeeBehavior(staff, sessions, checkIns, e.thresholds), nil
		}},
		{"revenue", func(ctx context.Context) ([]Finding, error) {
			txs, err := e.repo.ListTransactions(ctx, clubID, from, now, e.thresholds.MaxRows)
			if err != nil {
				return nil, err
			}
			return AnalyzeRevenue(txs, e.thresholds), nil
		}},
		{"cash_drawer", func(ctx context.Context) ([]Finding, error) {
			drawers, err := e.repo.ListCashDrawers(ctx, clubID, from, now, e.thresholds.MaxRows)
			if err != nil {
				return nil, err
			}
			return AnalyzeCashDrawers(drawers, e.thresholds), nil
		}},
		{"pattern", func(ctx context.Context) ([]Finding, error) {
			sessions, err := e.sessions(ctx, clubID, from, now, opts)
			if err != nil {
				return nil, err
			}
			return AnalyzePatterns(sessions, e.thresholds), nil
		}},
		{"time_based", func(ctx context.Context) ([]Finding, error) {
			sessions, err := e.sessions(ctx, clubID, from, now, opts)
			if err != nil {
				return nil, err
			}
			return AnalyzeTimePatterns(sessions, e.thresholds), nil
		}},
	}

	var (
		mu       sync.Mutex
		findings []Finding
		failed   int
		wg       sync.WaitGroup
	)
	for _, a := range analyzers {
		wg.Add(1)
		go func(a analyzer) {
			defer wg.Done()
			out, err := runIsolated(ctx, a.run)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				log.Error("analyzer failed", "analyzer", a.name, "club_id", clubID, "err", err)
				return
			}
			findings = append(findings, out...)
		}(a)
	}
	wg.Wait()

	return Result{
		ClubID:   clubID,
		Findings: findings,
		Summary:  summarize(findings, failed),
	}, nil
}

// runIsolated converts an analyzer panic into an error so a bad row in
// one collaborator store cannot abort its siblings.
func runIsolated(ctx context.Context, run func(ctx context.Context) ([]Finding, error)) (out []Finding, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("analyzer panic: %v", p)
		}
	}()
	return run(ctx)
}

// sessions reads the window's sessions once per analyzer call and
// applies the optional employee/session narrowing.
func (e *Engine) sessions(ctx context.Context, clubID string, from, to time.Time, opts SweepOptions) ([]venue.Session, error) {
	all, err := e.repo.ListSessions(ctx, clubID, from, to, e.thresholds.MaxRows)
	if err != nil {
		return nil, err
	}
	if opts.EmployeeID == "" && opts.SessionID == "" {
		return all, nil
	}
	out := make([]venue.Session, 0, len(all))
	for _, s := range all {
		if opts.EmployeeID != "" && s.InitiatedBy != opts.EmployeeID {
			continue
		}
		if opts.SessionID != "" && s.ID != opts.SessionID {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
