package models

// Call session status values. SCHEDULED → ONGOING → COMPLETED, no way back.
const (
	SessionScheduled = "SCHEDULED"
	SessionOngoing   = "ONGOING"
	SessionCompleted = "COMPLETED"
)

// Vote values.
const (
	VoteYes = "YES"
	VoteNo  = "NO"
)

// CallSession is one review cycle for a group: a window during which rule
// creators vote on each member's compliance. The "active" session for a
// group is the most recently created one; a new session cannot be opened
// while the latest one is still SCHEDULED or ONGOING.
type CallSession struct {
	// ID is the unique identifier for the session (UUID format).
	ID string

	// GroupID is the group this review cycle belongs to.
	GroupID string

	// Status is one of SessionScheduled, SessionOngoing, SessionCompleted.
	Status string

	// MeetingURL is an optional video-call link, settable any number of
	// times while the session is SCHEDULED.
	MeetingURL string

	// CreatedAt is the Unix timestamp when the session was scheduled.
	CreatedAt int64

	// FinalizedAt is the Unix timestamp of the first successful finalize,
	// zero while the session is open.
	FinalizedAt int64
}

// RuleVote asserts that VoterID judged TargetUserID to have complied (YES)
// or not (NO) with RuleID during one session. Unique per (session, rule,
// voter, target); resubmission before finalize overwrites the value.
//
// Only votes cast by the rule's creator carry weight. A creator voting NO
// on themselves is the self-failure path: it produces a CauseLoss instead
// of a PaymentObligation.
type RuleVote struct {
	CallSessionID string
	RuleID        string
	VoterID       string
	TargetUserID  string
	Value         string
	CreatedAt     int64
}
