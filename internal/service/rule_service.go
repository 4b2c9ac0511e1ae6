package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stakepact/server/internal/models"
	"github.com/stakepact/server/internal/notify"
	"github.com/stakepact/server/internal/storage"
)

// RuleService is the rule approval gate: members propose one rule each,
// every other member must approve it, and a single rejection deletes the
// rule outright. The gate also owns the group's PLANNING → ACTIVE
// transition, because a pact only starts once every rule is binding.
type RuleService struct {
	store storage.Store
	sink  notify.Sink
}

// NewRuleService creates a new RuleService.
func NewRuleService(store storage.Store, sink notify.Sink) *RuleService {
	return &RuleService{store: store, sink: sink}
}

// ProposeRule creates the acting user's rule for a group. One rule per
// member, stake strictly positive, PLANNING groups only.
func (s *RuleService) ProposeRule(ctx context.Context, groupID, creatorID, title string, stakeAmount int64) (*models.Rule, error) {
	if stakeAmount <= 0 {
		return nil, fmt.Errorf("stake amount must be positive: %w", models.ErrInvalidState)
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.Status != models.GroupPlanning {
		return nil, models.ErrInvalidState
	}
	if _, err := requireMember(ctx, s.store, groupID, creatorID); err != nil {
		return nil, err
	}

	rules, err := s.store.ListRulesByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	for _, r := range rules {
		if r.CreatorID == creatorID {
			return nil, fmt.Errorf("one rule per member: %w", models.ErrInvalidState)
		}
	}

	rule := &models.Rule{
		GroupID:     groupID,
		CreatorID:   creatorID,
		Title:       title,
		StakeAmount: stakeAmount,
	}
	if err := s.store.CreateRule(ctx, rule); err != nil {
		slog.Error("ProposeRule failed", "group_id", groupID, "error", err)
		return nil, err
	}

	slog.Info("Rule proposed", "rule_id", rule.ID, "group_id", groupID, "stake", stakeAmount)
	return rule, nil
}

// RuleStatus is a rule with its approval progress.
type RuleStatus struct {
	Rule          *models.Rule
	ApprovalCount int
	Binding       bool
}

// ListRules returns a group's rules with approval counts and binding state.
func (s *RuleService) ListRules(ctx context.Context, groupID, userID string) ([]*RuleStatus, error) {
	members, err := requireMember(ctx, s.store, groupID, userID)
	if err != nil {
		return nil, err
	}
	rules, err := s.store.ListRulesByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.CountApprovals(ctx, groupID)
	if err != nil {
		return nil, err
	}

	statuses := make([]*RuleStatus, len(rules))
	for i, r := range rules {
		statuses[i] = &RuleStatus{
			Rule:          r,
			ApprovalCount: counts[r.ID],
			Binding:       models.RuleBinding(r, counts[r.ID], len(members)),
		}
	}
	return statuses, nil
}

// Approve records the acting user's approval of a rule. Idempotent:
// re-approving is a no-op, not an error. When the approval completes the
// threshold the rule's stored approved flag is set and the creator is
// notified.
func (s *RuleService) Approve(ctx context.Context, ruleID, approverID string) (*RuleStatus, error) {
	rule, err := s.store.GetRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if rule.CreatorID == approverID {
		return nil, models.ErrSelfApproval
	}
	members, err := requireMember(ctx, s.store, rule.GroupID, approverID)
	if err != nil {
		return nil, fmt.Errorf("approve rule %s: %w", ruleID, err)
	}

	count, err := s.store.UpsertRuleApproval(ctx, ruleID, approverID)
	if err != nil {
		slog.Error("Approve failed", "rule_id", ruleID, "error", err)
		return nil, err
	}

	binding := models.RuleBinding(rule, count, len(members))
	if binding && !rule.Approved {
		if err := s.store.MarkRuleApproved(ctx, ruleID); err != nil {
			return nil, err
		}
		rule.Approved = true
		s.sink.Emit(ctx, rule.CreatorID, models.NotifyRuleApproved,
			"Rule approved",
			fmt.Sprintf("Your rule %q is now binding.", rule.Title),
			map[string]string{"rule_id": rule.ID, "group_id": rule.GroupID})
	}

	slog.Info("Rule approved", "rule_id", ruleID, "approver_id", approverID,
		"approvals", count, "binding", binding)
	return &RuleStatus{Rule: rule, ApprovalCount: count, Binding: binding}, nil
}

// Reject vetoes a proposed rule. Rejection is destructive and
// unconditional: the rule and all of its approvals are removed no matter
// how many approvals it already collected.
func (s *RuleService) Reject(ctx context.Context, ruleID, rejecterID string) error {
	rule, err := s.store.GetRule(ctx, ruleID)
	if err != nil {
		return err
	}
	if _, err := requireMember(ctx, s.store, rule.GroupID, rejecterID); err != nil {
		return fmt.Errorf("reject rule %s: %w", ruleID, err)
	}

	if err := s.store.DeleteRule(ctx, ruleID); err != nil {
		slog.Error("Reject failed", "rule_id", ruleID, "error", err)
		return err
	}

	slog.Info("Rule rejected and deleted", "rule_id", ruleID, "rejecter_id", rejecterID)
	return nil
}

// ActivationCheck reports whether a group may start its challenge and, if
// not, why.
type ActivationCheck struct {
	Ready   bool
	Reasons []string
}

// CanActivate evaluates the start predicate: at least two members, one
// binding rule authored by every member.
func (s *RuleService) CanActivate(ctx context.Context, groupID string) (*ActivationCheck, error) {
	members, err := s.store.ListMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	rules, err := s.store.ListRulesByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.CountApprovals(ctx, groupID)
	if err != nil {
		return nil, err
	}

	check := &ActivationCheck{}
	if len(members) < 2 {
		check.Reasons = append(check.Reasons, "need at least 2 members")
	}

	byCreator := make(map[string]*models.Rule, len(rules))
	for _, r := range rules {
		byCreator[r.CreatorID] = r
	}
	for _, m := range members {
		rule, ok := byCreator[m.UserID]
		if !ok {
			check.Reasons = append(check.Reasons, fmt.Sprintf("member %s has no rule yet", m.UserID))
			continue
		}
		if !models.RuleBinding(rule, counts[rule.ID], len(members)) {
			check.Reasons = append(check.Reasons, fmt.Sprintf("rule %q is not approved yet", rule.Title))
		}
	}

	check.Ready = len(check.Reasons) == 0
	return check, nil
}

// ActivateGroup transitions PLANNING → ACTIVE once the gate reports every
// rule binding. Any member may pull the trigger. Every member is notified.
func (s *RuleService) ActivateGroup(ctx context.Context, groupID, userID string) (*models.Group, error) {
	members, err := requireMember(ctx, s.store, groupID, userID)
	if err != nil {
		return nil, err
	}

	check, err := s.CanActivate(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !check.Ready {
		return nil, fmt.Errorf("group not ready: %v: %w", check.Reasons, models.ErrInvalidState)
	}

	if err := s.store.SetGroupStatus(ctx, groupID, models.GroupPlanning, models.GroupActive); err != nil {
		return nil, err
	}

	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	for _, m := range members {
		s.sink.Emit(ctx, m.UserID, models.NotifyGroupActivated,
			"Challenge started",
			fmt.Sprintf("%s is now active. Stakes are live.", group.Name),
			map[string]string{"group_id": groupID})
	}

	slog.Info("Group activated", "group_id", groupID, "members", len(members))
	return group, nil
}
