package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"venueops-platform/pkg/utils"
)

// PostgresRepo persists the chain in an INSERT-only table.
//
// Assumed schema:
//   audit_log_entries (
//     id, club_id, actor_id, action, entity_type, entity_id,
//     before_payload, after_payload, summary,
//     previous_hash, current_hash, high_risk, flagged_reason, created_at
//   )
// with an INSERT-only policy (trigger preventing UPDATE/DELETE).
//
// AppendCAS locks the chain head row FOR UPDATE inside a transaction so
// two writers cannot both observe the same head.

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const latestQuery = `
SELECT id, club_id, actor_id, action, entity_type, entity_id,
       before_payload, after_payload, summary,
       previous_hash, current_hash, high_risk, flagged_reason, created_at
FROM audit_log_entries
WHERE club_id = $1
ORDER BY created_at DESC, id DESC
LIMIT 1
`

func (r *PostgresRepo) Latest(ctx context.Context, clubID string) (AuditLogEntry, bool, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, latestQuery, clubID))
	if errors.Is(err, sql.ErrNoRows) {
		return AuditLogEntry{}, false, nil
	}
	if err != nil {
		return AuditLogEntry{}, false, err
	}
	return e, true, nil
}

func (r *PostgresRepo) AppendCAS(ctx context.Context, e AuditLogEntry, expectedPrev *string) error {
	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		const headQ = `
SELECT current_hash
FROM audit_log_entries
WHERE club_id = $1
ORDER BY created_at DESC, id DESC
LIMIT 1
FOR UPDATE
`
		var head sql.NullString
		err := tx.QueryRowContext(ctx, headQ, e.ClubID).Scan(&head)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		switch {
		case head.Valid && (expectedPrev == nil || *expectedPrev != head.String):
			return ErrChainConflict
		case !head.Valid && expectedPrev != nil:
			return ErrChainConflict
		}

		const insQ = `
INSERT INTO audit_log_entries (
  id, club_id, actor_id, action, entity_type, entity_id,
  before_payload, after_payload, summary,
  previous_hash, current_hash, high_risk, flagged_reason, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
`
		_, err = tx.ExecContext(ctx, insQ,
			e.ID,
			e.ClubID,
			e.ActorID,
			e.Action,
			e.EntityType,
			e.EntityID,
			nullableJSON(e.Before),
			nullableJSON(e.After),
			e.Summary,
			e.PreviousHash,
			e.CurrentHash,
			e.HighRisk,
			e.FlaggedReason,
			e.CreatedAt,
		)
		return err
	})
}

func (r *PostgresRepo) List(ctx context.Context, clubID string, from, to time.Time, limit, offset int) ([]AuditLogEntry, error) {
	const q = `
SELECT id, club_id, actor_id, action, entity_type, entity_id,
       before_payload, after_payload, summary,
       previous_hash, current_hash, high_risk, flagged_reason, created_at
FROM audit_log_entries
WHERE club_id = $1
  AND ($2::timestamptz IS NULL OR created_at >= $2)
  AND ($3::timestamptz IS NULL OR created_at < $3)
ORDER BY created_at ASC, id ASC
LIMIT $4 OFFSET $5
`
	rows, err := r.db.QueryContext(ctx, q, clubID, nullableTime(from), nullableTime(to), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]AuditLogEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (AuditLogEntry, error) {
	var e AuditLogEntry
	var actor, prev, summary, reason sql.NullString
	var before, after []byte
	err := row.Scan(
		&e.ID,
		&e.ClubID,
		&actor,
		&e.Action,
		&e.EntityType,
		&e.EntityID,
		&before,
		&after,
		&summary,
		&prev,
		&e.CurrentHash,
		&e.HighRisk,
		&reason,
		&e.CreatedAt,
	)
	if err != nil {
		return AuditLogEntry{}, err
	}
	if actor.Valid {
		e.ActorID = &actor.String
	}
	if prev.Valid {
		e.PreviousHash = &prev.String
	}
	e.Summary = summary.String
	e.FlaggedReason = reason.String
	e.Before = before
	e.After = after
	return e, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return []byte(b)
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
