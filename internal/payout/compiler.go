// Package payout turns a finalized review cycle's compliance votes into
// payment obligations and cause losses. It is pure computation over plain
// inputs; persistence and notifications stay in the service layer.
package payout

import "sort"

// Vote values, mirrored here so the package stands alone.
const (
	VoteYes = "YES"
	VoteNo  = "NO"
)

// Rule carries the minimal rule information the compiler needs.
type Rule struct {
	ID          string
	CreatorID   string
	StakeAmount int64
}

// Vote is one compliance vote from the ledger.
type Vote struct {
	RuleID       string
	VoterID      string
	TargetUserID string
	Value        string
}

// Obligation is a compiled debt: FromUserID owes ToUserID Amount paise for
// one rule. The storage layer upserts it on (group, rule, from, to).
type Obligation struct {
	RuleID     string
	FromUserID string
	ToUserID   string
	Amount     int64
}

// SelfFailure is a rule creator's NO vote against themselves: forfeited
// stake with no receiving member.
type SelfFailure struct {
	UserID string
	RuleID string
	Amount int64
}

// Compile maps a session's votes onto obligations and self-failures.
//
// Votes are discarded silently when they reference an unknown rule, carry a
// value other than YES/NO, or were cast by anyone but the rule's creator.
// The vote ledger refuses such writes up front, so dropped votes here mean
// data arrived through some other path; compilation still completes rather
// than failing the whole finalize.
//
// A creator's YES on another member produces an obligation for the rule's
// stake. A creator's YES on themselves has no monetary effect. A creator's
// NO on themselves produces a SelfFailure; NO on another member produces
// nothing.
//
// Output ordering is deterministic (sorted by rule, then from, then to) so
// repeated runs over the same ledger compile byte-identical results.
func Compile(rules []Rule, votes []Vote) ([]Obligation, []SelfFailure) {
	byID := make(map[string]Rule, len(rules))
	for _, r := range rules {
		byID[r.ID] = r
	}

	var obligations []Obligation
	var failures []SelfFailure
	for _, v := range votes {
		rule, ok := byID[v.RuleID]
		if !ok || v.VoterID != rule.CreatorID {
			continue
		}
		switch v.Value {
		case VoteYes:
			if v.VoterID == v.TargetUserID {
				continue
			}
			obligations = append(obligations, Obligation{
				RuleID:     rule.ID,
				FromUserID: v.VoterID,
				ToUserID:   v.TargetUserID,
				Amount:     rule.StakeAmount,
			})
		case VoteNo:
			if v.VoterID == v.TargetUserID {
				failures = append(failures, SelfFailure{
					UserID: v.VoterID,
					RuleID: rule.ID,
					Amount: rule.StakeAmount,
				})
			}
		}
	}

	sort.Slice(obligations, func(i, j int) bool {
		a, b := obligations[i], obligations[j]
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		if a.FromUserID != b.FromUserID {
			return a.FromUserID < b.FromUserID
		}
		return a.ToUserID < b.ToUserID
	})
	sort.Slice(failures, func(i, j int) bool {
		if failures[i].RuleID != failures[j].RuleID {
			return failures[i].RuleID < failures[j].RuleID
		}
		return failures[i].UserID < failures[j].UserID
	})

	return obligations, failures
}

// MissingVote identifies one vote a rule creator still has to cast.
type MissingVote struct {
	RuleID       string
	TargetUserID string
}

// MissingVotes reports every (rule, member) pair the rule's creator has not
// voted on yet. Self votes are optional; a creator who skips themselves
// simply records no cause loss. Finalize blocks while this is non-empty.
func MissingVotes(rules []Rule, votes []Vote, memberIDs []string) []MissingVote {
	cast := make(map[[3]string]bool, len(votes))
	for _, v := range votes {
		cast[[3]string{v.RuleID, v.VoterID, v.TargetUserID}] = true
	}

	var missing []MissingVote
	for _, r := range rules {
		for _, member := range memberIDs {
			if member == r.CreatorID {
				continue
			}
			if !cast[[3]string{r.ID, r.CreatorID, member}] {
				missing = append(missing, MissingVote{RuleID: r.ID, TargetUserID: member})
			}
		}
	}
	return missing
}
