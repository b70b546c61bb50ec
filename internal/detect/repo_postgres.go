package detect

import (
	"context"
	"database/sql"
	"time"

	"venueops-platform/internal/venue"
)

// PostgresRepo reads collaborator tables. All queries are club-scoped,
// window-bounded, and LIMITed; this package never writes to them.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) ListSessions(ctx context.Context, clubID string, from, to time.Time, limit int) ([]venue.Session, error) {
	const q = `
SELECT id, club_id, booth_id, dancer_id, initiated_by, closed_by,
       start_time, end_time,
       manual_count, dj_sync_count, time_derived_count, final_count,
       verification_status, is_manual_override, override_reason, created_at
FROM vip_sessions
WHERE club_id = $1 AND start_time >= $2 AND start_time < $3
ORDER BY start_time ASC
LIMIT $4
`
	rows, err := r.db.QueryContext(ctx, q, clubID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]venue.Session, 0)
	for rows.Next() {
		var s venue.Session
		var booth, dancer, closedBy, overrideReason sql.NullString
		var endTime sql.NullTime
		var djCount sql.NullInt64
		if err := rows.Scan(
			&s.ID, &s.ClubID, &booth, &dancer, &s.InitiatedBy, &closedBy,
			&s.StartTime, &endTime,
			&s.ManualCount, &djCount, &s.TimeDerivedCount, &s.FinalCount,
			&s.VerificationStatus, &s.IsManualOverride, &overrideReason, &s.CreatedAt,
		); err != nil {
			return nil, err
		}
		s.BoothID = booth.String
		s.DancerID = dancer.String
		s.ClosedBy = closedBy.String
		s.OverrideReason = overrideReason.String
		if endTime.Valid {
			t := endTime.Time
			s.EndTime = &t
		}
		if djCount.Valid {
			n := int(djCount.Int64)
			s.DJSyncCount = &n
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListCheckIns(ctx context.Context, clubID string, from, to time.Time, limit int) ([]venue.CheckIn, error) {
	const q = `
SELECT id, club_id, dancer_id, staff_id, check_in_time, check_out_time,
       bar_fee_cents, bar_fee_status, bar_fee_method
FROM check_ins
WHERE club_id = $1 AND check_in_time >= $2 AND check_in_time < $3
ORDER BY check_in_time ASC
LIMIT $4
`
	rows, err := r.db.QueryContext(ctx, q, clubID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]venue.CheckIn, 0)
	for rows.Next() {
		var c venue.CheckIn
		var outTime sql.NullTime
		var method sql.NullString
		if err := rows.Scan(
			&c.ID, &c.ClubID, &c.DancerID, &c.StaffID, &c.CheckInTime, &outTime,
			&c.BarFeeCents, &c.BarFeeStatus, &method,
		); err != nil {
			return nil, err
		}
		if outTime.Valid {
			t := outTime.Time
			c.CheckOutTime = &t
		}
		c.BarFeeMethod = method.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListTransactions(ctx context.Context, clubID string, from, to time.Time, limit int) ([]venue.Transaction, error) {
	const q = `
SELECT id, club_id, amount_cents, payment_method, type, status, created_at
FROM transactions
WHERE club_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at ASC
LIMIT $4
`
	rows, err := r.db.QueryContext(ctx, q, clubID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]venue.Transaction, 0)
	for rows.Next() {
		var t venue.Transaction
		if err := rows.Scan(&t.ID, &t.ClubID, &t.AmountCents, &t.PaymentMethod, &t.Type, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListCashDrawers(ctx context.Context, clubID string, from, to time.Time, limit int) ([]venue.CashDrawer, error) {
	const q = `
SELECT id, club_id, shift_id, staff_id, opening_cents, expected_cents, actual_cents, closed_at
FROM cash_drawers
WHERE club_id = $1 AND closed_at IS NOT NULL AND closed_at >= $2 AND closed_at < $3
ORDER BY closed_at ASC
LIMIT $4
`
	rows, err := r.db.QueryContext(ctx, q, clubID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]venue.CashDrawer, 0)
	for rows.Next() {
		var d venue.CashDrawer
		var shift sql.NullString
		var closedAt sql.NullTime
		if err := rows.Scan(&d.ID, &d.ClubID, &shift, &d.StaffID, &d.OpeningCents, &d.ExpectedCents, &d.ActualCents, &closedAt); err != nil {
			return nil, err
		}
		d.ShiftID = shift.String
		if closedAt.Valid {
			t := closedAt.Time
			d.ClosedAt = &t
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) ListStaff(ctx context.Context, clubID string) ([]venue.StaffMember, error) {
	const q = `
SELECT id, club_id, display_name, role
FROM staff_members
WHERE club_id = $1
ORDER BY display_name ASC
`
	rows, err := r.db.QueryContext(ctx, q, clubID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]venue.StaffMember, 0)
	for rows.Next() {
		var m venue.StaffMember
		if err := rows.Scan(&m.ID, &m.ClubID, &m.DisplayName, &m.Role); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
