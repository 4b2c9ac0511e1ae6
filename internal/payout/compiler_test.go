package payout

import (
	"reflect"
	"testing"
)

func TestCompile(t *testing.T) {
	// Three members, one rule each, all staked at 10000 paise (₹100).
	rules := []Rule{
		{ID: "rule-a", CreatorID: "alice", StakeAmount: 10000},
		{ID: "rule-b", CreatorID: "bob", StakeAmount: 10000},
		{ID: "rule-c", CreatorID: "carol", StakeAmount: 10000},
	}

	tests := []struct {
		name         string
		votes        []Vote
		wantOblig    []Obligation
		wantFailures []SelfFailure
	}{
		{
			name: "full cycle with one self failure",
			votes: []Vote{
				// Alice judges everyone compliant with her rule.
				{RuleID: "rule-a", VoterID: "alice", TargetUserID: "bob", Value: "YES"},
				{RuleID: "rule-a", VoterID: "alice", TargetUserID: "carol", Value: "YES"},
				{RuleID: "rule-a", VoterID: "alice", TargetUserID: "alice", Value: "YES"},
				// Bob failed his own rule but pays out to the others.
				{RuleID: "rule-b", VoterID: "bob", TargetUserID: "bob", Value: "NO"},
				{RuleID: "rule-b", VoterID: "bob", TargetUserID: "alice", Value: "YES"},
				{RuleID: "rule-b", VoterID: "bob", TargetUserID: "carol", Value: "YES"},
				// Carol judges the others compliant, skips herself.
				{RuleID: "rule-c", VoterID: "carol", TargetUserID: "alice", Value: "YES"},
				{RuleID: "rule-c", VoterID: "carol", TargetUserID: "bob", Value: "YES"},
			},
			wantOblig: []Obligation{
				{RuleID: "rule-a", FromUserID: "alice", ToUserID: "bob", Amount: 10000},
				{RuleID: "rule-a", FromUserID: "alice", ToUserID: "carol", Amount: 10000},
				{RuleID: "rule-b", FromUserID: "bob", ToUserID: "alice", Amount: 10000},
				{RuleID: "rule-b", FromUserID: "bob", ToUserID: "carol", Amount: 10000},
				{RuleID: "rule-c", FromUserID: "carol", ToUserID: "alice", Amount: 10000},
				{RuleID: "rule-c", FromUserID: "carol", ToUserID: "bob", Amount: 10000},
			},
			wantFailures: []SelfFailure{
				{UserID: "bob", RuleID: "rule-b", Amount: 10000},
			},
		},
		{
			name: "yes on self has no monetary effect",
			votes: []Vote{
				{RuleID: "rule-a", VoterID: "alice", TargetUserID: "alice", Value: "YES"},
			},
		},
		{
			name: "no on another member produces nothing",
			votes: []Vote{
				{RuleID: "rule-a", VoterID: "alice", TargetUserID: "bob", Value: "NO"},
			},
		},
		{
			name: "vote by non-creator is discarded",
			votes: []Vote{
				{RuleID: "rule-a", VoterID: "bob", TargetUserID: "carol", Value: "YES"},
			},
		},
		{
			name: "vote on unknown rule is discarded",
			votes: []Vote{
				{RuleID: "rule-zzz", VoterID: "alice", TargetUserID: "bob", Value: "YES"},
			},
		},
		{
			name: "vote with invalid value is discarded",
			votes: []Vote{
				{RuleID: "rule-a", VoterID: "alice", TargetUserID: "bob", Value: "MAYBE"},
			},
		},
		{
			name: "malformed votes discarded without poisoning valid ones",
			votes: []Vote{
				{RuleID: "rule-zzz", VoterID: "alice", TargetUserID: "bob", Value: "YES"},
				{RuleID: "rule-a", VoterID: "alice", TargetUserID: "bob", Value: "YES"},
				{RuleID: "rule-b", VoterID: "carol", TargetUserID: "alice", Value: "YES"},
			},
			wantOblig: []Obligation{
				{RuleID: "rule-a", FromUserID: "alice", ToUserID: "bob", Amount: 10000},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obligations, failures := Compile(rules, tt.votes)
			if !reflect.DeepEqual(obligations, tt.wantOblig) {
				t.Errorf("obligations = %+v, want %+v", obligations, tt.wantOblig)
			}
			if !reflect.DeepEqual(failures, tt.wantFailures) {
				t.Errorf("failures = %+v, want %+v", failures, tt.wantFailures)
			}
		})
	}
}

func TestCompileDeterministicOrder(t *testing.T) {
	rules := []Rule{
		{ID: "rule-a", CreatorID: "alice", StakeAmount: 5000},
		{ID: "rule-b", CreatorID: "bob", StakeAmount: 3000},
	}
	votes := []Vote{
		{RuleID: "rule-b", VoterID: "bob", TargetUserID: "alice", Value: "YES"},
		{RuleID: "rule-a", VoterID: "alice", TargetUserID: "carol", Value: "YES"},
		{RuleID: "rule-a", VoterID: "alice", TargetUserID: "bob", Value: "YES"},
	}

	first, _ := Compile(rules, votes)

	// Same ledger, shuffled arrival order.
	shuffled := []Vote{votes[2], votes[0], votes[1]}
	second, _ := Compile(rules, shuffled)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("compile order is not deterministic: %+v vs %+v", first, second)
	}
	if first[0].RuleID != "rule-a" || first[0].ToUserID != "bob" {
		t.Errorf("expected sorted output, got %+v", first)
	}
}

func TestMissingVotes(t *testing.T) {
	rules := []Rule{
		{ID: "rule-a", CreatorID: "alice", StakeAmount: 1000},
		{ID: "rule-b", CreatorID: "bob", StakeAmount: 1000},
	}
	members := []string{"alice", "bob", "carol"}

	tests := []struct {
		name  string
		votes []Vote
		want  []MissingVote
	}{
		{
			name: "nothing cast yet",
			want: []MissingVote{
				{RuleID: "rule-a", TargetUserID: "bob"},
				{RuleID: "rule-a", TargetUserID: "carol"},
				{RuleID: "rule-b", TargetUserID: "alice"},
				{RuleID: "rule-b", TargetUserID: "carol"},
			},
		},
		{
			name: "self votes are optional",
			votes: []Vote{
				{RuleID: "rule-a", VoterID: "alice", TargetUserID: "bob", Value: "YES"},
				{RuleID: "rule-a", VoterID: "alice", TargetUserID: "carol", Value: "YES"},
				{RuleID: "rule-b", VoterID: "bob", TargetUserID: "alice", Value: "NO"},
				{RuleID: "rule-b", VoterID: "bob", TargetUserID: "carol", Value: "YES"},
			},
			want: nil,
		},
		{
			name: "non-creator votes do not count toward completeness",
			votes: []Vote{
				{RuleID: "rule-a", VoterID: "alice", TargetUserID: "bob", Value: "YES"},
				{RuleID: "rule-a", VoterID: "alice", TargetUserID: "carol", Value: "YES"},
				{RuleID: "rule-b", VoterID: "carol", TargetUserID: "alice", Value: "YES"},
				{RuleID: "rule-b", VoterID: "carol", TargetUserID: "carol", Value: "YES"},
			},
			want: []MissingVote{
				{RuleID: "rule-b", TargetUserID: "alice"},
				{RuleID: "rule-b", TargetUserID: "carol"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MissingVotes(rules, tt.votes, members)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MissingVotes = %+v, want %+v", got, tt.want)
			}
		})
	}
}
