package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// AuditLogEntry is an immutable, hash-chained audit record.
//
// Invariants:
// - Entries are never updated or deleted.
// - club_id is required for tenancy isolation.
// - For chronologically adjacent entries of one club,
//   entry[n].PreviousHash == entry[n-1].CurrentHash. A break in that
//   chain indicates tampering or deletion.

type AuditLogEntry struct {
	ID     string `json:"id" db:"id"`
	ClubID string `json:"club_id" db:"club_id"`

	// ActorID is nil for system-generated entries (e.g. detection sweeps).
	ActorID *string `json:"actor_id,omitempty" db:"actor_id"`

	Action Action `json:"action" db:"action"`

	EntityType string `json:"entity_type" db:"entity_type"`
	EntityID   string `json:"entity_id" db:"entity_id"`

	// Before/After are JSON payload snapshots of the entity.
	Before json.RawMessage `json:"before,omitempty" db:"before_payload"`
	After  json.RawMessage `json:"after,omitempty" db:"after_payload"`

	// Summary is a short human-readable description of the change.
	Summary string `json:"summary,omitempty" db:"summary"`

	// PreviousHash is the prior entry's CurrentHash for this club, nil
	// for the first entry of a chain.
	PreviousHash *string `json:"previous_hash" db:"previous_hash"`
	CurrentHash  string  `json:"current_hash" db:"current_hash"`

	HighRisk      bool   `json:"high_risk" db:"high_risk"`
	FlaggedReason string `json:"flagged_reason,omitempty" db:"flagged_reason"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Action string

const (
	ActionCreate              Action = "CREATE"
	ActionUpdate              Action = "UPDATE"
	ActionDelete              Action = "DELETE"
	ActionOverride            Action = "OVERRIDE"
	ActionDiscrepancyDetected Action = "DISCREPANCY_DETECTED"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionOverride, ActionDiscrepancyDetected:
		return true
	}
	return false
}

// hashPayload is the canonical serialization the chain digest covers.
// All fields are concrete types (no maps) so json.Marshal emits them in
// declaration order, making the digest reproducible.
type hashPayload struct {
	PreviousHash *string         `json:"previous_hash"`
	ClubID       string          `json:"club_id"`
	ActorID      *string         `json:"actor_id"`
	Action       Action          `json:"action"`
	EntityType   string          `json:"entity_type"`
	EntityID     string          `json:"entity_id"`
	Timestamp    string          `json:"ts"`
	After        json.RawMessage `json:"after"`
}

// ComputeHash digests the canonical serialization of the entry content
// plus its PreviousHash. Timestamps are normalized to UTC RFC3339Nano
// so the digest is stable across time zones.
func ComputeHash(e AuditLogEntry) string {
	p := hashPayload{
		PreviousHash: e.PreviousHash,
		ClubID:       e.ClubID,
		ActorID:      e.ActorID,
		Action:       e.Action,
		EntityType:   e.EntityType,
		EntityID:     e.EntityID,
		Timestamp:    e.CreatedAt.UTC().Format(time.RFC3339Nano),
		After:        e.After,
	}
	// Marshal of this struct cannot fail: all fields are marshalable.
	b, _ := json.Marshal(p)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// ChainIssue describes one broken link found by VerifyChain.
type ChainIssue struct {
	EntryID   string    `json:"entry_id"`
	Timestamp time.Time `json:"timestamp"`
	Expected  string    `json:"expected_hash"`
	Found     string    `json:"found_hash"`
}

// ChainVerification is the read-only result of a chain scan.
type ChainVerification struct {
	IsValid      bool         `json:"is_valid"`
	TotalChecked int          `json:"total_checked"`
	Issues       []ChainIssue `json:"issues"`
}
