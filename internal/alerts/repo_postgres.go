package alerts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PostgresRepo persists alerts.
//
// Assumed schema:
//   verification_alerts (
//     id, club_id, type, severity, status, entity_type, entity_id,
//     user_ids, dancer_ids, expected_value, actual_value, description,
//     owner_only, resolution, resolved_by,
//     created_at, acknowledged_at, resolved_at, dismissed_at
//   )
// user_ids/dancer_ids are stored comma-joined; they are display lists,
// never join keys.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const alertColumns = `
id, club_id, type, severity, status, entity_type, entity_id,
user_ids, dancer_ids, expected_value, actual_value, description,
owner_only, resolution, resolved_by,
created_at, acknowledged_at, resolved_at, dismissed_at`

func (r *PostgresRepo) Insert(ctx context.Context, a Alert) error {
	const q = `
INSERT INTO verification_alerts (` + alertColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
`
	_, err := r.db.ExecContext(ctx, q,
		a.ID, a.ClubID, a.Type, a.Severity, a.Status, a.EntityType, a.EntityID,
		strings.Join(a.UserIDs, ","), strings.Join(a.DancerIDs, ","),
		a.ExpectedValue, a.ActualValue, a.Description,
		a.OwnerOnly, a.Resolution, a.ResolvedBy,
		a.CreatedAt, a.AcknowledgedAt, a.ResolvedAt, a.DismissedAt,
	)
	return err
}

func (r *PostgresRepo) Update(ctx context.Context, a Alert) error {
	const q = `
UPDATE verification_alerts
SET severity = $3, status = $4,
    expected_value = $5, actual_value = $6, description = $7,
    resolution = $8, resolved_by = $9,
    acknowledged_at = $10, resolved_at = $11, dismissed_at = $12
WHERE club_id = $1 AND id = $2
`
	res, err := r.db.ExecContext(ctx, q,
		a.ClubID, a.ID,
		a.Severity, a.Status,
		a.ExpectedValue, a.ActualValue, a.Description,
		a.Resolution, a.ResolvedBy,
		a.AcknowledgedAt, a.ResolvedAt, a.DismissedAt,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, clubID, id string) (Alert, bool, error) {
	const q = `SELECT ` + alertColumns + ` FROM verification_alerts WHERE club_id = $1 AND id = $2`
	a, err := scanAlert(r.db.QueryRowContext(ctx, q, clubID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Alert{}, false, nil
	}
	if err != nil {
		return Alert{}, false, err
	}
	return a, true, nil
}

func (r *PostgresRepo) FindActive(ctx context.Context, clubID, entityType, entityID string, t Type) (Alert, bool, error) {
	const q = `
SELECT ` + alertColumns + `
FROM verification_alerts
WHERE club_id = $1 AND entity_type = $2 AND entity_id = $3 AND type = $4
  AND status IN ('OPEN','ACKNOWLEDGED')
ORDER BY created_at ASC
LIMIT 1
`
	a, err := scanAlert(r.db.QueryRowContext(ctx, q, clubID, entityType, entityID, t))
	if errors.Is(err, sql.ErrNoRows) {
		return Alert{}, false, nil
	}
	if err != nil {
		return Alert{}, false, err
	}
	return a, true, nil
}

func (r *PostgresRepo) List(ctx context.Context, clubID string, f Filter) ([]Alert, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + alertColumns + ` FROM verification_alerts WHERE club_id = $1`)
	args := []any{clubID}

	add := func(cond string, v any) {
		args = append(args, v)
		sb.WriteString(fmt.Sprintf(" AND %s $%d", cond, len(args)))
	}
	if f.Status != "" {
		add("status =", f.Status)
	}
	if f.Severity != "" {
		add("severity =", f.Severity)
	}
	if f.Type != "" {
		add("type =", f.Type)
	}
	if !f.From.IsZero() {
		add("created_at >=", f.From)
	}
	if !f.To.IsZero() {
		add("created_at <", f.To)
	}
	if !f.IncludeOwnerOnly {
		sb.WriteString(" AND owner_only = FALSE")
	}
	args = append(args, f.Limit, f.Offset)
	sb.WriteString(fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)))

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (Alert, error) {
	var a Alert
	var userIDs, dancerIDs string
	var expected, actual, resolution, resolvedBy sql.NullString
	var ackAt, resAt, disAt sql.NullTime
	err := row.Scan(
		&a.ID, &a.ClubID, &a.Type, &a.Severity, &a.Status, &a.EntityType, &a.EntityID,
		&userIDs, &dancerIDs, &expected, &actual, &a.Description,
		&a.OwnerOnly, &resolution, &resolvedBy,
		&a.CreatedAt, &ackAt, &resAt, &disAt,
	)
	if err != nil {
		return Alert{}, err
	}
	a.UserIDs = splitIDs(userIDs)
	a.DancerIDs = splitIDs(dancerIDs)
	a.ExpectedValue = expected.String
	a.ActualValue = actual.String
	a.Resolution = resolution.String
	a.ResolvedBy = resolvedBy.String
	a.AcknowledgedAt = nullableTimePtr(ackAt)
	a.ResolvedAt = nullableTimePtr(resAt)
	a.DismissedAt = nullableTimePtr(disAt)
	return a, nil
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func nullableTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
