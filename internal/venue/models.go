package venue

import "time"

// Read-only snapshots of collaborator entities. These are domain models
// only; the stores that own them (sessions, check-ins, billing, shifts)
// live outside this core and are consumed through filtered queries.
//
// Multi-tenant invariant: ClubID is required on every row.

// Session is a VIP room session with up to four independently-derived
// song counts. Reconciling those counts is the detection core's job.
type Session struct {
	ID     string `json:"id" db:"id"`
	ClubID string `json:"club_id" db:"club_id"`

	BoothID  string `json:"booth_id,omitempty" db:"booth_id"`
	DancerID string `json:"dancer_id,omitempty" db:"dancer_id"`

	InitiatedBy string `json:"initiated_by" db:"initiated_by"`
	ClosedBy    string `json:"closed_by,omitempty" db:"closed_by"`

	StartTime time.Time  `json:"start_time" db:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty" db:"end_time"`

	// The measurement triple (plus the billed count).
	// ManualCount is human-entered, DJSyncCount comes from the DJ
	// system when present, TimeDerivedCount is duration divided by the
	// average song length, FinalCount is what billing used.
	ManualCount      int     `json:"manual_count" db:"manual_count"`
	DJSyncCount      *int    `json:"dj_sync_count,omitempty" db:"dj_sync_count"`
	TimeDerivedCount float64 `json:"time_derived_count" db:"time_derived_count"`
	FinalCount       int     `json:"final_count" db:"final_count"`

	VerificationStatus VerificationStatus `json:"verification_status" db:"verification_status"`

	IsManualOverride bool   `json:"is_manual_override" db:"is_manual_override"`
	OverrideReason   string `json:"override_reason,omitempty" db:"override_reason"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DurationMinutes returns the session length in minutes, or 0 when the
// session is still open.
func (s Session) DurationMinutes() float64 {
	if s.EndTime == nil || s.EndTime.Before(s.StartTime) {
		return 0
	}
	return s.EndTime.Sub(s.StartTime).Minutes()
}

// CountVariance is |final - timeDerived|, the core discrepancy signal.
func (s Session) CountVariance() float64 {
	v := float64(s.FinalCount) - s.TimeDerivedCount
	if v < 0 {
		return -v
	}
	return v
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationDisputed VerificationStatus = "disputed"
)

// CheckIn is a dancer check-in with its bar-fee state.
type CheckIn struct {
	ID     string `json:"id" db:"id"`
	ClubID string `json:"club_id" db:"club_id"`

	DancerID string `json:"dancer_id" db:"dancer_id"`
	StaffID  string `json:"staff_id" db:"staff_id"`

	CheckInTime  time.Time  `json:"check_in_time" db:"check_in_time"`
	CheckOutTime *time.Time `json:"check_out_time,omitempty" db:"check_out_time"`

	BarFeeCents  int64        `json:"bar_fee_cents" db:"bar_fee_cents"`
	BarFeeStatus BarFeeStatus `json:"bar_fee_status" db:"bar_fee_status"`
	BarFeeMethod string       `json:"bar_fee_method,omitempty" db:"bar_fee_method"`
}

type BarFeeStatus string

const (
	BarFeePaid   BarFeeStatus = "paid"
	BarFeeUnpaid BarFeeStatus = "unpaid"
	BarFeeWaived BarFeeStatus = "waived"
)

// Transaction is a billing record. Amounts are in cents.
type Transaction struct {
	ID     string `json:"id" db:"id"`
	ClubID string `json:"club_id" db:"club_id"`

	AmountCents   int64             `json:"amount_cents" db:"amount_cents"`
	PaymentMethod string            `json:"payment_method" db:"payment_method"`
	Type          string            `json:"type" db:"type"`
	Status        TransactionStatus `json:"status" db:"status"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type TransactionStatus string

const (
	TransactionPaid     TransactionStatus = "paid"
	TransactionPending  TransactionStatus = "pending"
	TransactionRefunded TransactionStatus = "refunded"
)

// CashDrawer is a till for one shift. Balances are in cents.
type CashDrawer struct {
	ID      string `json:"id" db:"id"`
	ClubID  string `json:"club_id" db:"club_id"`
	ShiftID string `json:"shift_id,omitempty" db:"shift_id"`

	StaffID string `json:"staff_id" db:"staff_id"`

	OpeningCents  int64 `json:"opening_cents" db:"opening_cents"`
	ExpectedCents int64 `json:"expected_cents" db:"expected_cents"`
	ActualCents   int64 `json:"actual_cents" db:"actual_cents"`

	ClosedAt *time.Time `json:"closed_at,omitempty" db:"closed_at"`
}

// VarianceCents is |actual - expected| for a closed drawer.
func (d CashDrawer) VarianceCents() int64 {
	v := d.ActualCents - d.ExpectedCents
	if v < 0 {
		return -v
	}
	return v
}

// IsShortage reports whether the drawer closed under the expected balance.
func (d CashDrawer) IsShortage() bool { return d.ActualCents < d.ExpectedCents }

type StaffMember struct {
	ID          string `json:"id" db:"id"`
	ClubID      string `json:"club_id" db:"club_id"`
	DisplayName string `json:"display_name" db:"display_name"`
	Role        string `json:"role" db:"role"`
}
