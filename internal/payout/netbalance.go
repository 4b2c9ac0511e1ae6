package payout

import "sort"

// PendingObligation is the slice of an obligation row the reducer needs.
type PendingObligation struct {
	FromUserID string
	ToUserID   string
	Amount     int64
}

// NetBalance is the collapsed view of every pending obligation between two
// users: a single directed amount, always positive. Pairs that cancel out
// exactly are omitted.
type NetBalance struct {
	FromUserID string
	ToUserID   string
	Amount     int64
}

// NetBalances folds all pending obligations of a group into at most one net
// entry per user pair, regardless of which rules produced them. It reads
// the ledger, never mutates it.
func NetBalances(obligations []PendingObligation) []NetBalance {
	type pair struct{ low, high string }

	// net[p] > 0 means p.low owes p.high.
	net := make(map[pair]int64)
	for _, o := range obligations {
		if o.FromUserID == o.ToUserID {
			continue
		}
		p := pair{low: o.FromUserID, high: o.ToUserID}
		sign := int64(1)
		if p.low > p.high {
			p.low, p.high = p.high, p.low
			sign = -1
		}
		net[p] += sign * o.Amount
	}

	var balances []NetBalance
	for p, amount := range net {
		switch {
		case amount > 0:
			balances = append(balances, NetBalance{FromUserID: p.low, ToUserID: p.high, Amount: amount})
		case amount < 0:
			balances = append(balances, NetBalance{FromUserID: p.high, ToUserID: p.low, Amount: -amount})
		}
	}

	sort.Slice(balances, func(i, j int) bool {
		if balances[i].FromUserID != balances[j].FromUserID {
			return balances[i].FromUserID < balances[j].FromUserID
		}
		return balances[i].ToUserID < balances[j].ToUserID
	})
	return balances
}
