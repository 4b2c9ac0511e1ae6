package models

// Rule is a commitment authored by exactly one member of a group. The
// creator is the only person bound by the rule and the only person who may
// vote on compliance with it. Other members gate the rule into force by
// approving it.
type Rule struct {
	// ID is the unique identifier for the rule (UUID format).
	ID string

	// GroupID is the group the rule belongs to.
	GroupID string

	// CreatorID is the single user bound to enforce this rule.
	CreatorID string

	// Title is the human-readable statement of the rule.
	Title string

	// StakeAmount is the money at stake per cycle, in paise. Always > 0.
	StakeAmount int64

	// Approved marks the rule as binding regardless of approval count.
	// Set once the peer-approval threshold is reached, or pre-set for
	// seeded rules.
	Approved bool

	// CreatedAt is the Unix timestamp when the rule was proposed.
	CreatedAt int64
}

// RuleApproval records one member's approval of a rule. Unique per
// (rule, approver). There is no "approved=false" row: a rejection deletes
// the rule outright instead of voting it down.
type RuleApproval struct {
	RuleID     string
	ApproverID string
	CreatedAt  int64
}

// RuleBinding reports whether a rule is in force: either its stored
// Approved flag is set, or every member other than the creator has
// approved it.
func RuleBinding(rule *Rule, approvalCount, memberCount int) bool {
	if rule.Approved {
		return true
	}
	return approvalCount >= memberCount-1
}
