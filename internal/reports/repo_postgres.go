package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PostgresRepo persists reports.
//
// Assumed schema:
//   anomaly_reports (
//     id, club_id, report_date, analysis_type,
//     period_start, period_end, summary, data_points,
//     anomaly_count, flagged_user_ids, flagged_dancer_ids,
//     overall_risk, viewed_by_owner, viewed_at,
//     created_at, updated_at,
//     UNIQUE (club_id, report_date, analysis_type)
//   )
// data_points is jsonb; the flagged id lists are stored comma-joined,
// they are display lists, never join keys.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const reportColumns = `
id, club_id, report_date, analysis_type,
period_start, period_end, summary, data_points,
anomaly_count, flagged_user_ids, flagged_dancer_ids,
overall_risk, viewed_by_owner, viewed_at,
created_at, updated_at`

func (r *PostgresRepo) Upsert(ctx context.Context, in AnomalyReport) (AnomalyReport, error) {
	points, err := json.Marshal(in.DataPoints)
	if err != nil {
		return AnomalyReport{}, err
	}
	// On conflict the row keeps its identity and viewed state; only the
	// sweep's findings are replaced.
	const q = `
INSERT INTO anomaly_reports (` + reportColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
ON CONFLICT (club_id, report_date, analysis_type) DO UPDATE SET
    period_start = EXCLUDED.period_start,
    period_end = EXCLUDED.period_end,
    summary = EXCLUDED.summary,
    data_points = EXCLUDED.data_points,
    anomaly_count = EXCLUDED.anomaly_count,
    flagged_user_ids = EXCLUDED.flagged_user_ids,
    flagged_dancer_ids = EXCLUDED.flagged_dancer_ids,
    overall_risk = EXCLUDED.overall_risk,
    updated_at = EXCLUDED.updated_at
RETURNING ` + reportColumns + `
`
	row := r.db.QueryRowContext(ctx, q,
		in.ID, in.ClubID, in.ReportDate, in.Analysis,
		in.PeriodStart, in.PeriodEnd, in.Summary, points,
		in.AnomalyCount, strings.Join(in.FlaggedUserIDs, ","), strings.Join(in.FlaggedDancerIDs, ","),
		in.OverallRisk, in.ViewedByOwner, in.ViewedAt,
		in.CreatedAt, in.UpdatedAt,
	)
	return scanReport(row)
}

func (r *PostgresRepo) Get(ctx context.Context, clubID, id string) (AnomalyReport, error) {
	const q = `SELECT ` + reportColumns + ` FROM anomaly_reports WHERE club_id = $1 AND id = $2`
	rep, err := scanReport(r.db.QueryRowContext(ctx, q, clubID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return AnomalyReport{}, ErrNotFound
	}
	return rep, err
}

func (r *PostgresRepo) List(ctx context.Context, clubID string, f Filter) ([]AnomalyReport, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + reportColumns + ` FROM anomaly_reports WHERE club_id = $1`)
	args := []any{clubID}

	add := func(cond string, v any) {
		args = append(args, v)
		sb.WriteString(fmt.Sprintf(" AND %s $%d", cond, len(args)))
	}
	if f.Analysis != "" {
		add("analysis_type =", f.Analysis)
	}
	if f.From != "" {
		add("report_date >=", f.From)
	}
	if f.To != "" {
		add("report_date <=", f.To)
	}
	args = append(args, f.Limit, f.Offset)
	sb.WriteString(fmt.Sprintf(" ORDER BY report_date DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)))

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]AnomalyReport, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) MarkViewed(ctx context.Context, clubID, id string, at time.Time) (AnomalyReport, error) {
	const q = `
UPDATE anomaly_reports
SET viewed_by_owner = TRUE,
    viewed_at = COALESCE(viewed_at, $3)
WHERE club_id = $1 AND id = $2
RETURNING ` + reportColumns + `
`
	rep, err := scanReport(r.db.QueryRowContext(ctx, q, clubID, id, at))
	if errors.Is(err, sql.ErrNoRows) {
		return AnomalyReport{}, ErrNotFound
	}
	return rep, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (AnomalyReport, error) {
	var rep AnomalyReport
	var points []byte
	var users, dancers string
	var viewedAt sql.NullTime
	err := row.Scan(
		&rep.ID, &rep.ClubID, &rep.ReportDate, &rep.Analysis,
		&rep.PeriodStart, &rep.PeriodEnd, &rep.Summary, &points,
		&rep.AnomalyCount, &users, &dancers,
		&rep.OverallRisk, &rep.ViewedByOwner, &viewedAt,
		&rep.CreatedAt, &rep.UpdatedAt,
	)
	if err != nil {
		return AnomalyReport{}, err
	}
	if len(points) > 0 {
		if err := json.Unmarshal(points, &rep.DataPoints); err != nil {
			return AnomalyReport{}, err
		}
	}
	rep.FlaggedUserIDs = splitIDs(users)
	rep.FlaggedDancerIDs = splitIDs(dancers)
	if viewedAt.Valid {
		t := viewedAt.Time
		rep.ViewedAt = &t
	}
	return rep, nil
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
