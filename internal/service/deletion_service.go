package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stakepact/server/internal/metrics"
	"github.com/stakepact/server/internal/models"
	"github.com/stakepact/server/internal/notify"
	"github.com/stakepact/server/internal/storage"
)

// DeletionService is the deletion consensus gate. Destroying a pact takes
// unanimous approval: the requester's consent is implicit, every other
// member must vote APPROVE before the window closes, and one DECLINE kills
// the request. The decisive approval and the cascading purge commit as one
// unit inside the store.
type DeletionService struct {
	store  storage.Store
	sink   notify.Sink
	window time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewDeletionService creates the gate with the given voting window.
func NewDeletionService(store storage.Store, sink notify.Sink, window time.Duration) *DeletionService {
	return &DeletionService{store: store, sink: sink, window: window, now: time.Now}
}

// Request opens a deletion request. Fails with ErrAlreadyPending while an
// unexpired request is open; DECLINED, EXPIRED and CANCELLED requests do
// not block a new one.
func (s *DeletionService) Request(ctx context.Context, groupID, requesterID string) (*models.DeletionRequest, error) {
	members, err := requireMember(ctx, s.store, groupID, requesterID)
	if err != nil {
		return nil, err
	}

	now := s.now().Unix()
	if _, err := s.store.OpenDeletionRequest(ctx, groupID, now); err == nil {
		return nil, models.ErrAlreadyPending
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	req := &models.DeletionRequest{
		GroupID:     groupID,
		RequestedBy: requesterID,
		RequestedAt: now,
		ExpiresAt:   now + int64(s.window.Seconds()),
	}
	if err := s.store.CreateDeletionRequest(ctx, req); err != nil {
		slog.Error("Deletion request failed", "group_id", groupID, "error", err)
		return nil, err
	}

	for _, m := range members {
		if m.UserID == requesterID {
			continue
		}
		s.sink.Emit(ctx, m.UserID, models.NotifyDeletionRequested,
			"Delete this pact?",
			"A member asked to delete the group. Everyone must approve.",
			map[string]string{"group_id": groupID, "request_id": req.ID})
	}

	slog.Info("Deletion requested", "group_id", groupID, "request_id", req.ID,
		"expires_at", req.ExpiresAt)
	return req, nil
}

// Vote casts APPROVE or DECLINE on the open request. The requester cannot
// vote; their approval is implicit. When the vote is decisive the group is
// already gone by the time this returns DeletionGroupDeleted.
func (s *DeletionService) Vote(ctx context.Context, groupID, voterID, decision string) (storage.DeletionOutcome, error) {
	members, err := requireMember(ctx, s.store, groupID, voterID)
	if err != nil {
		return "", err
	}

	req, err := s.store.OpenDeletionRequest(ctx, groupID, s.now().Unix())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", fmt.Errorf("no pending deletion request: %w", models.ErrInvalidState)
		}
		return "", err
	}
	if req.RequestedBy == voterID {
		return "", models.ErrRequesterVote
	}

	// Everyone but the requester votes.
	approvalsNeeded := len(members) - 1

	outcome, err := s.store.CastDeletionVote(ctx, req.ID, voterID, decision, approvalsNeeded)
	if err != nil {
		return "", err
	}
	metrics.DeletionOutcomes.WithLabelValues(string(outcome)).Inc()

	switch outcome {
	case storage.DeletionGotDeclined:
		s.sink.Emit(ctx, req.RequestedBy, models.NotifyDeletionResolved,
			"Deletion declined",
			"A member declined; the group stays.",
			map[string]string{"group_id": groupID})
	case storage.DeletionGroupDeleted:
		// The group's rows are gone; notify by remembered member list.
		for _, m := range members {
			s.sink.Emit(ctx, m.UserID, models.NotifyDeletionResolved,
				"Group deleted",
				"Everyone approved. The group and its data are gone.",
				nil)
		}
	}

	slog.Info("Deletion vote cast", "group_id", groupID, "voter_id", voterID,
		"decision", decision, "outcome", outcome)
	return outcome, nil
}

// Cancel withdraws a PENDING request without counting as a decline. Only
// the requester may cancel.
func (s *DeletionService) Cancel(ctx context.Context, groupID, userID string) error {
	req, err := s.store.OpenDeletionRequest(ctx, groupID, s.now().Unix())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("no pending deletion request: %w", models.ErrInvalidState)
		}
		return err
	}
	if req.RequestedBy != userID {
		return models.ErrForbidden
	}

	if err := s.store.CancelDeletionRequest(ctx, req.ID); err != nil {
		return err
	}
	slog.Info("Deletion request cancelled", "group_id", groupID, "request_id", req.ID)
	return nil
}

// DeletionStatus is the latest request with its votes, for display.
type DeletionStatus struct {
	Request *models.DeletionRequest
	Votes   []*models.DeletionVote
}

// Status returns the group's latest deletion request, applying lazy expiry
// first, or ErrNotFound if the group never had one.
func (s *DeletionService) Status(ctx context.Context, groupID, userID string) (*DeletionStatus, error) {
	if _, err := requireMember(ctx, s.store, groupID, userID); err != nil {
		return nil, err
	}

	// Expire a stale PENDING row before reporting.
	if _, err := s.store.OpenDeletionRequest(ctx, groupID, s.now().Unix()); err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	req, err := s.store.LatestDeletionRequest(ctx, groupID)
	if err != nil {
		return nil, err
	}
	votes, err := s.store.ListDeletionVotes(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &DeletionStatus{Request: req, Votes: votes}, nil
}
