package models

import "errors"

// Caller-facing domain errors. All are recoverable: the HTTP layer surfaces
// them verbatim as the failure reason and nothing retries them. Services
// wrap them with context via fmt.Errorf("...: %w", err), so callers match
// with errors.Is.
var (
	// ErrNotFound means the referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotAMember means the acting user has no membership in the group.
	ErrNotAMember = errors.New("not a member of this group")

	// ErrForbidden means the acting user is the wrong actor for the action
	// (e.g. confirming an obligation they are not the payee of).
	ErrForbidden = errors.New("forbidden")

	// ErrSelfApproval means a rule creator tried to approve their own rule.
	ErrSelfApproval = errors.New("cannot approve your own rule")

	// ErrInvalidState means a state-machine transition was attempted from
	// the wrong state.
	ErrInvalidState = errors.New("invalid state for this action")

	// ErrAlreadyPending means a deletion request is already open for the
	// group.
	ErrAlreadyPending = errors.New("a deletion request is already pending")

	// ErrAlreadyVoted means the voter already cast a vote on this request.
	ErrAlreadyVoted = errors.New("already voted")

	// ErrRequesterVote means the deletion requester tried to vote on their
	// own request; their approval is implicit.
	ErrRequesterVote = errors.New("requester cannot vote on their own request")

	// ErrVotesIncomplete means finalize was attempted before every rule
	// creator voted on every non-self member.
	ErrVotesIncomplete = errors.New("compliance votes incomplete")
)
