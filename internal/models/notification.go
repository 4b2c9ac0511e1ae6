package models

// Notification types emitted by this server.
const (
	NotifyRuleApproved      = "RULE_APPROVED"
	NotifyGroupActivated    = "GROUP_ACTIVATED"
	NotifyCauseLoss         = "CAUSE_LOSS"
	NotifyObligationPaid    = "OBLIGATION_PAID"
	NotifyObligationDone    = "OBLIGATION_CONFIRMED"
	NotifyDeletionRequested = "DELETION_REQUESTED"
	NotifyDeletionResolved  = "DELETION_RESOLVED"
)

// Notification is a persisted in-app notification row. Delivery transport
// (push, email) lives outside this server; rows are written fire-and-forget
// and a write failure never rolls back the state transition that caused it.
type Notification struct {
	// ID is the unique identifier for the notification (UUID format).
	ID string

	UserID  string
	Type    string
	Title   string
	Message string

	// Data is an optional JSON payload for the client (ids to deep-link
	// to, amounts, etc).
	Data string

	Read      bool
	CreatedAt int64
}
