// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/stakepact/server/internal/models"
)

// DeletionOutcome is the result of casting a deletion vote: the request is
// still pending, got declined, or this vote was the decisive approval and
// the group is gone.
type DeletionOutcome string

const (
	DeletionStillPending DeletionOutcome = "PENDING"
	DeletionGotDeclined  DeletionOutcome = "DECLINED"
	DeletionGroupDeleted DeletionOutcome = "DELETED"
)

// Store defines the interface for all persistence operations. The methods
// that back a state-machine invariant are conditional at the statement
// level (update-where-status or insert-on-conflict); callers never get a
// read-then-write window.
//
// This abstraction allows swapping storage backends without changing the
// service layer.
type Store interface {
	// Users.

	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	// SetUserVPA stores the user's UPI virtual payment address.
	SetUserVPA(ctx context.Context, userID, vpa string) error

	// Groups and memberships.

	// CreateGroup persists the group and the creator's membership in one
	// transaction. ID, invite code and CreatedAt are assigned by the store
	// when unset.
	CreateGroup(ctx context.Context, group *models.Group) error
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)
	GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error)
	ListGroupsByUser(ctx context.Context, userID string) ([]*models.Group, error)
	AddMembership(ctx context.Context, m *models.Membership) error
	ListMembers(ctx context.Context, groupID string) ([]*models.Membership, error)
	// SetGroupStatus transitions the group's status only when it currently
	// equals from; returns models.ErrInvalidState otherwise.
	SetGroupStatus(ctx context.Context, groupID, from, to string) error

	// Rules and approvals.

	CreateRule(ctx context.Context, rule *models.Rule) error
	GetRule(ctx context.Context, ruleID string) (*models.Rule, error)
	ListRulesByGroup(ctx context.Context, groupID string) ([]*models.Rule, error)
	// UpsertRuleApproval records an approval idempotently: re-approving is
	// a no-op, not an error. Returns the approval count after the write.
	UpsertRuleApproval(ctx context.Context, ruleID, approverID string) (int, error)
	// CountApprovals returns approval counts for every rule in the group.
	CountApprovals(ctx context.Context, groupID string) (map[string]int, error)
	// MarkRuleApproved flips the rule's stored approved flag.
	MarkRuleApproved(ctx context.Context, ruleID string) error
	// DeleteRule removes the rule and all of its approvals atomically.
	DeleteRule(ctx context.Context, ruleID string) error

	// Call sessions and votes.

	CreateCallSession(ctx context.Context, session *models.CallSession) error
	GetCallSession(ctx context.Context, sessionID string) (*models.CallSession, error)
	// LatestCallSession returns the most recently created session for the
	// group, or models.ErrNotFound when the group has none yet.
	LatestCallSession(ctx context.Context, groupID string) (*models.CallSession, error)
	// SetMeetingURL updates the link only while the session is SCHEDULED.
	SetMeetingURL(ctx context.Context, sessionID, url string) error
	// StartCallSession transitions SCHEDULED → ONGOING via a conditional
	// update; models.ErrInvalidState when the session already moved on.
	StartCallSession(ctx context.Context, sessionID string) error
	// UpsertVotes bulk-writes votes, overwriting any prior value for the
	// same (session, rule, voter, target) tuple.
	UpsertVotes(ctx context.Context, votes []*models.RuleVote) error
	ListVotes(ctx context.Context, sessionID string) ([]*models.RuleVote, error)

	// ApplyPayout commits a finalize in one transaction: upserts every
	// obligation on its (group, rule, from, to) key, upserts every cause
	// loss on its (user, group, rule, cycle) key, and moves the session to
	// COMPLETED. Obligation amounts are overwritten, never summed, so
	// re-running is idempotent. Returns the cause losses that did not
	// exist before this call, letting the caller notify exactly once.
	ApplyPayout(ctx context.Context, sessionID string, obligations []*models.PaymentObligation, losses []*models.CauseLoss) ([]*models.CauseLoss, error)

	// Obligations.

	GetObligation(ctx context.Context, obligationID string) (*models.PaymentObligation, error)
	// ListObligationsByGroup filters by status when status is non-empty.
	ListObligationsByGroup(ctx context.Context, groupID, status string) ([]*models.PaymentObligation, error)
	// ListObligationsByUser returns every obligation the user pays or
	// receives, optionally restricted to one group.
	ListObligationsByUser(ctx context.Context, userID, groupID string) ([]*models.PaymentObligation, error)
	// MarkObligationPaid transitions PENDING → MARKED_PAID conditionally.
	MarkObligationPaid(ctx context.Context, obligationID string) error
	// ConfirmObligation transitions MARKED_PAID → CONFIRMED, stamps
	// settledAt, and bumps the payer's lifetime-paid and the payee's
	// lifetime-earned totals, all in one transaction.
	ConfirmObligation(ctx context.Context, obligationID string, settledAt int64) error

	// Cause losses.

	GetCauseLoss(ctx context.Context, lossID string) (*models.CauseLoss, error)
	ListCauseLossesByUser(ctx context.Context, userID string) ([]*models.CauseLoss, error)
	// SetCauseLossStatus transitions PLEDGED → DONATED|SKIPPED conditionally.
	SetCauseLossStatus(ctx context.Context, lossID, status string) error

	// Deletion consensus.

	// OpenDeletionRequest returns the group's PENDING request, lazily
	// flipping it to EXPIRED first when past its deadline (in which case
	// models.ErrNotFound is returned, same as when no request is open).
	OpenDeletionRequest(ctx context.Context, groupID string, now int64) (*models.DeletionRequest, error)
	// LatestDeletionRequest returns the newest request row regardless of
	// status, for history display.
	LatestDeletionRequest(ctx context.Context, groupID string) (*models.DeletionRequest, error)
	CreateDeletionRequest(ctx context.Context, req *models.DeletionRequest) error
	// CancelDeletionRequest moves PENDING → CANCELLED.
	CancelDeletionRequest(ctx context.Context, requestID string) error
	// CastDeletionVote records the vote and resolves the request in one
	// transaction. A DECLINE moves it to DECLINED. An APPROVE that brings
	// the approval count to approvalsNeeded performs the full cascade:
	// the group and every dependent row are purged. Exactly one caller
	// can observe DeletionGroupDeleted for a given request.
	CastDeletionVote(ctx context.Context, requestID, voterID, decision string, approvalsNeeded int) (DeletionOutcome, error)
	ListDeletionVotes(ctx context.Context, requestID string) ([]*models.DeletionVote, error)

	// Notifications.

	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotificationsByUser(ctx context.Context, userID string, unreadOnly bool) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID, userID string) error

	// Close releases any resources held by the store.
	Close() error
}
