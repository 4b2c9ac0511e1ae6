package models

// Deletion request status values. A group with no open request is simply
// missing a PENDING row; CANCELLED, DECLINED and EXPIRED rows are kept as
// history and any member may re-request from those states. DELETED never
// persists: the cascade that produces it removes the group and every row
// hanging off it, this request included.
const (
	DeletionPending   = "PENDING"
	DeletionDeclined  = "DECLINED"
	DeletionExpired   = "EXPIRED"
	DeletionCancelled = "CANCELLED"
	DeletionDeleted   = "DELETED"
)

// Deletion vote decisions.
const (
	DeletionApprove = "APPROVE"
	DeletionDecline = "DECLINE"
)

// DeletionRequest asks the whole group to destroy itself. The requester's
// approval is implicit; every other member must vote APPROVE before the
// deadline, and a single DECLINE kills the request without destroying
// anything.
type DeletionRequest struct {
	// ID is the unique identifier for the request (UUID format).
	ID string

	GroupID     string
	RequestedBy string

	// Status is one of the Deletion* status constants.
	Status string

	// RequestedAt is the Unix timestamp the request was opened.
	RequestedAt int64

	// ExpiresAt is the Unix deadline; a PENDING request past it reads as
	// EXPIRED. Expiry is checked lazily on read, there is no sweeper.
	ExpiresAt int64
}

// DeletionVote is one member's verdict on an open request. Unique per
// (request, voter).
type DeletionVote struct {
	RequestID string
	VoterID   string
	Decision  string
	CreatedAt int64
}
