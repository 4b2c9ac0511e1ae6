package models

// Payment obligation status values. PENDING → MARKED_PAID → CONFIRMED;
// DISPUTED is reachable only through a moderation path outside this server.
const (
	ObligationPending    = "PENDING"
	ObligationMarkedPaid = "MARKED_PAID"
	ObligationConfirmed  = "CONFIRMED"
	ObligationDisputed   = "DISPUTED"
)

// Cause loss status values.
const (
	CauseLossPledged = "PLEDGED"
	CauseLossDonated = "DONATED"
	CauseLossSkipped = "SKIPPED"
)

// PaymentObligation is a directed claim: FromUserID owes ToUserID Amount
// paise, produced when the creator of RuleID voted YES on ToUserID during a
// review cycle. Unique per (group, rule, from, to); re-running finalize for
// the same session overwrites Amount rather than summing it.
type PaymentObligation struct {
	// ID is the unique identifier for the obligation (UUID format).
	ID string

	GroupID    string
	RuleID     string
	FromUserID string
	ToUserID   string

	// Amount owed, in paise.
	Amount int64

	// Status is one of the Obligation* constants.
	Status string

	// CallSessionID is the last session whose finalize wrote this row.
	CallSessionID string

	// SettledAt is the Unix timestamp of confirmation, zero until
	// CONFIRMED.
	SettledAt int64

	CreatedAt int64
}

// CauseLoss records a rule creator voting NO against themselves: stake
// money forfeited with no receiving member, nudged toward an external
// donation. Unique per (user, group, rule, cycle).
type CauseLoss struct {
	// ID is the unique identifier for the cause loss (UUID format).
	ID string

	UserID  string
	GroupID string
	RuleID  string

	// CycleID is the call session the self-failure was recorded in.
	CycleID string

	// Amount forfeited, in paise.
	Amount int64

	// Status is one of the CauseLoss* constants.
	Status string

	CreatedAt int64
}
