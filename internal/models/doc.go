// Package models defines the core domain models for the stakepact server.
//
// The domain is a group accountability pact: members of a group each author
// one rule they commit to, stake an amount of money on it, and review each
// other at the end of every cycle. The models fall into four clusters:
//
//   - Group / Membership / User: who is in a pact and what state it is in
//   - Rule / RuleApproval: member-authored rules gated by peer approval
//   - CallSession / RuleVote: one review cycle and the compliance votes
//     cast during it
//   - PaymentObligation / CauseLoss: the money ledger produced when a
//     cycle is finalized
//
// All monetary amounts are integer minor currency units (paise); no float
// ever touches an amount. Timestamps are Unix seconds. IDs are UUID strings.
package models
