package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stakepact/server/internal/metrics"
	"github.com/stakepact/server/internal/models"
	"github.com/stakepact/server/internal/notify"
	"github.com/stakepact/server/internal/payout"
	"github.com/stakepact/server/internal/storage"
)

// SessionService runs review cycles: it schedules call sessions, collects
// compliance votes into the ledger, and finalizes a session through the
// payout compiler.
type SessionService struct {
	store storage.Store
	sink  notify.Sink
}

// NewSessionService creates a new SessionService.
func NewSessionService(store storage.Store, sink notify.Sink) *SessionService {
	return &SessionService{store: store, sink: sink}
}

// Schedule opens a new review cycle for an ACTIVE group. Only one open
// session may exist at a time, enforced by checking the latest session
// rather than a schema constraint.
func (s *SessionService) Schedule(ctx context.Context, groupID, userID string) (*models.CallSession, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Status != models.GroupActive {
		return nil, models.ErrInvalidState
	}
	if _, err := requireMember(ctx, s.store, groupID, userID); err != nil {
		return nil, err
	}

	latest, err := s.store.LatestCallSession(ctx, groupID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if latest != nil && latest.Status != models.SessionCompleted {
		return nil, fmt.Errorf("a session is already open: %w", models.ErrInvalidState)
	}

	session := &models.CallSession{GroupID: groupID}
	if err := s.store.CreateCallSession(ctx, session); err != nil {
		slog.Error("Schedule failed", "group_id", groupID, "error", err)
		return nil, err
	}

	slog.Info("Call session scheduled", "session_id", session.ID, "group_id", groupID)
	return session, nil
}

// Latest returns the group's most recent session.
func (s *SessionService) Latest(ctx context.Context, groupID, userID string) (*models.CallSession, error) {
	if _, err := requireMember(ctx, s.store, groupID, userID); err != nil {
		return nil, err
	}
	return s.store.LatestCallSession(ctx, groupID)
}

// SetMeetingURL updates the call link, any number of times, while the
// session is still SCHEDULED.
func (s *SessionService) SetMeetingURL(ctx context.Context, sessionID, userID, url string) error {
	session, err := s.store.GetCallSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if _, err := requireMember(ctx, s.store, session.GroupID, userID); err != nil {
		return err
	}
	return s.store.SetMeetingURL(ctx, sessionID, url)
}

// Start opens the voting window (SCHEDULED → ONGOING). Any member may
// start the session, not just the group's creator.
func (s *SessionService) Start(ctx context.Context, sessionID, userID string) (*models.CallSession, error) {
	session, err := s.store.GetCallSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := requireMember(ctx, s.store, session.GroupID, userID); err != nil {
		return nil, err
	}
	if err := s.store.StartCallSession(ctx, sessionID); err != nil {
		return nil, err
	}

	slog.Info("Call session started", "session_id", sessionID, "by", userID)
	return s.store.GetCallSession(ctx, sessionID)
}

// VoteEntry is one compliance vote in a submission.
type VoteEntry struct {
	RuleID       string
	TargetUserID string
	Value        string
}

// SubmitVotes bulk-upserts the acting user's compliance votes for an
// ONGOING session. Every entry must reference a rule the voter created —
// only the rule's creator may judge compliance with it. Self-targeting is
// allowed: a NO on yourself is the self-failure path. Resubmitting before
// finalize overwrites earlier values.
func (s *SessionService) SubmitVotes(ctx context.Context, sessionID, voterID string, entries []VoteEntry) error {
	session, err := s.store.GetCallSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != models.SessionOngoing {
		return models.ErrInvalidState
	}
	members, err := requireMember(ctx, s.store, session.GroupID, voterID)
	if err != nil {
		return err
	}

	rules, err := s.store.ListRulesByGroup(ctx, session.GroupID)
	if err != nil {
		return err
	}
	rulesByID := make(map[string]*models.Rule, len(rules))
	for _, r := range rules {
		rulesByID[r.ID] = r
	}

	votes := make([]*models.RuleVote, 0, len(entries))
	for _, e := range entries {
		rule, ok := rulesByID[e.RuleID]
		if !ok {
			return fmt.Errorf("rule %s: %w", e.RuleID, models.ErrNotFound)
		}
		if rule.CreatorID != voterID {
			return fmt.Errorf("only the rule's creator may vote on it: %w", models.ErrForbidden)
		}
		if !hasMember(members, e.TargetUserID) {
			return fmt.Errorf("target %s: %w", e.TargetUserID, models.ErrNotAMember)
		}
		if e.Value != models.VoteYes && e.Value != models.VoteNo {
			return fmt.Errorf("vote value must be YES or NO: %w", models.ErrInvalidState)
		}
		votes = append(votes, &models.RuleVote{
			CallSessionID: sessionID,
			RuleID:        e.RuleID,
			VoterID:       voterID,
			TargetUserID:  e.TargetUserID,
			Value:         e.Value,
		})
	}

	if err := s.store.UpsertVotes(ctx, votes); err != nil {
		slog.Error("SubmitVotes failed", "session_id", sessionID, "error", err)
		return err
	}

	slog.Info("Votes submitted", "session_id", sessionID, "voter_id", voterID, "count", len(votes))
	return nil
}

// FinalizeResult summarizes what a finalize wrote.
type FinalizeResult struct {
	Session     *models.CallSession
	Obligations []*models.PaymentObligation
	CauseLosses []*models.CauseLoss
}

// Finalize closes the voting window and commits the cycle's money effects:
// it compiles the vote ledger into obligations and cause losses, upserts
// them, and completes the session, all atomically. Finalize is idempotent;
// re-running it with the same ledger rewrites the same rows and triggers no
// second round of side effects.
//
// Finalize refuses to run while any rule creator still owes votes
// (ErrVotesIncomplete). Malformed votes that slipped into the ledger are
// discarded by the compiler rather than failing the run.
func (s *SessionService) Finalize(ctx context.Context, sessionID, userID string) (*FinalizeResult, error) {
	session, err := s.store.GetCallSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	members, err := requireMember(ctx, s.store, session.GroupID, userID)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionScheduled {
		metrics.FinalizeRuns.WithLabelValues("invalid_state").Inc()
		return nil, models.ErrInvalidState
	}

	rules, err := s.store.ListRulesByGroup(ctx, session.GroupID)
	if err != nil {
		return nil, err
	}
	ledger, err := s.store.ListVotes(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	compilerRules := make([]payout.Rule, len(rules))
	for i, r := range rules {
		compilerRules[i] = payout.Rule{ID: r.ID, CreatorID: r.CreatorID, StakeAmount: r.StakeAmount}
	}
	compilerVotes := make([]payout.Vote, len(ledger))
	for i, v := range ledger {
		compilerVotes[i] = payout.Vote{
			RuleID:       v.RuleID,
			VoterID:      v.VoterID,
			TargetUserID: v.TargetUserID,
			Value:        v.Value,
		}
	}

	if missing := payout.MissingVotes(compilerRules, compilerVotes, memberIDs(members)); len(missing) > 0 {
		metrics.FinalizeRuns.WithLabelValues("incomplete").Inc()
		return nil, fmt.Errorf("%d votes missing: %w", len(missing), models.ErrVotesIncomplete)
	}

	compiled, failures := payout.Compile(compilerRules, compilerVotes)

	obligations := make([]*models.PaymentObligation, len(compiled))
	for i, o := range compiled {
		obligations[i] = &models.PaymentObligation{
			GroupID:       session.GroupID,
			RuleID:        o.RuleID,
			FromUserID:    o.FromUserID,
			ToUserID:      o.ToUserID,
			Amount:        o.Amount,
			CallSessionID: sessionID,
		}
	}
	losses := make([]*models.CauseLoss, len(failures))
	for i, f := range failures {
		losses[i] = &models.CauseLoss{
			UserID:  f.UserID,
			GroupID: session.GroupID,
			RuleID:  f.RuleID,
			CycleID: sessionID,
			Amount:  f.Amount,
		}
	}

	newLosses, err := s.store.ApplyPayout(ctx, sessionID, obligations, losses)
	if err != nil {
		metrics.FinalizeRuns.WithLabelValues("error").Inc()
		slog.Error("Finalize failed", "session_id", sessionID, "error", err)
		return nil, err
	}
	metrics.FinalizeRuns.WithLabelValues("ok").Inc()
	metrics.ObligationsUpserted.Add(float64(len(obligations)))
	metrics.CauseLossesRecorded.Add(float64(len(newLosses)))

	// Side effects only for cause losses created by this run, so a
	// re-finalize never nags twice.
	for _, loss := range newLosses {
		s.sink.Emit(ctx, loss.UserID, models.NotifyCauseLoss,
			"You called yourself out",
			"You voted no on your own rule. Consider donating your stake to a cause.",
			map[string]string{"cause_loss_id": loss.ID, "group_id": loss.GroupID})
	}

	session, err = s.store.GetCallSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	slog.Info("Call session finalized", "session_id", sessionID,
		"obligations", len(obligations), "cause_losses", len(losses),
		"new_cause_losses", len(newLosses))
	return &FinalizeResult{
		Session:     session,
		Obligations: obligations,
		CauseLosses: losses,
	}, nil
}
