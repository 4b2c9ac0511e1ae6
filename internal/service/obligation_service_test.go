package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stakepact/server/internal/models"
)

func TestObligationLifecycle(t *testing.T) {
	store, sink := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice@example.com", "Alice")
	bob := createUser(t, store, "bob@example.com", "Bob")
	group, rules := activePact(t, store, sink, 10000, alice, bob)

	sessions := NewSessionService(store, sink)
	session := ongoingSession(t, store, sink, group.ID, alice.ID)
	for _, pair := range []struct{ voter, target *models.User }{{alice, bob}, {bob, alice}} {
		err := sessions.SubmitVotes(ctx, session.ID, pair.voter.ID, []VoteEntry{
			{RuleID: rules[pair.voter.ID].ID, TargetUserID: pair.target.ID, Value: models.VoteYes},
		})
		if err != nil {
			t.Fatalf("SubmitVotes failed: %v", err)
		}
	}
	if _, err := sessions.Finalize(ctx, session.ID, alice.ID); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	obligations := NewObligationService(store, sink)

	// The row where alice owes bob.
	rows, err := store.ListObligationsByGroup(ctx, group.ID, "")
	if err != nil {
		t.Fatalf("ListObligationsByGroup failed: %v", err)
	}
	var aliceOwes *models.PaymentObligation
	for _, o := range rows {
		if o.FromUserID == alice.ID {
			aliceOwes = o
		}
	}
	if aliceOwes == nil {
		t.Fatal("expected an obligation from alice to bob")
	}

	t.Run("only the payer may mark paid", func(t *testing.T) {
		_, err := obligations.MarkPaid(ctx, aliceOwes.ID, bob.ID)
		if !errors.Is(err, models.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("payer marks paid, payee is notified", func(t *testing.T) {
		got, err := obligations.MarkPaid(ctx, aliceOwes.ID, alice.ID)
		if err != nil {
			t.Fatalf("MarkPaid failed: %v", err)
		}
		if got.Status != models.ObligationMarkedPaid {
			t.Errorf("status = %s, want MARKED_PAID", got.Status)
		}
		if n := countNotifications(t, store, bob.ID, models.NotifyObligationPaid); n != 1 {
			t.Errorf("payee got %d notifications, want 1", n)
		}
	})

	t.Run("only the payee may confirm", func(t *testing.T) {
		_, err := obligations.ConfirmReceived(ctx, aliceOwes.ID, alice.ID)
		if !errors.Is(err, models.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("confirmation settles the row and bumps lifetime totals", func(t *testing.T) {
		got, err := obligations.ConfirmReceived(ctx, aliceOwes.ID, bob.ID)
		if err != nil {
			t.Fatalf("ConfirmReceived failed: %v", err)
		}
		if got.Status != models.ObligationConfirmed || got.SettledAt == 0 {
			t.Errorf("obligation = %+v, want CONFIRMED with settledAt", got)
		}

		payer, _ := store.GetUserByID(ctx, alice.ID)
		payee, _ := store.GetUserByID(ctx, bob.ID)
		if payer.TotalPaid != 10000 || payee.TotalEarned != 10000 {
			t.Errorf("totals paid=%d earned=%d, want 10000 each", payer.TotalPaid, payee.TotalEarned)
		}
		if n := countNotifications(t, store, alice.ID, models.NotifyObligationDone); n != 1 {
			t.Errorf("payer got %d confirmation notifications, want 1", n)
		}
	})

	t.Run("confirming twice is ErrInvalidState", func(t *testing.T) {
		_, err := obligations.ConfirmReceived(ctx, aliceOwes.ID, bob.ID)
		if !errors.Is(err, models.ErrInvalidState) {
			t.Errorf("err = %v, want ErrInvalidState", err)
		}
	})

	t.Run("MyObligations deep-links the payer's pending rows only", func(t *testing.T) {
		if err := store.SetUserVPA(ctx, alice.ID, "alice@upi"); err != nil {
			t.Fatalf("SetUserVPA failed: %v", err)
		}

		owed, receiving, err := obligations.MyObligations(ctx, bob.ID, group.ID)
		if err != nil {
			t.Fatalf("MyObligations failed: %v", err)
		}
		if len(owed) != 1 || len(receiving) != 1 {
			t.Fatalf("got %d owed, %d receiving, want 1 and 1", len(owed), len(receiving))
		}
		if owed[0].UpiLink == "" || !strings.Contains(owed[0].UpiLink, "pa=alice%40upi") {
			t.Errorf("owed UpiLink = %q, want a upi://pay link to alice", owed[0].UpiLink)
		}
		if receiving[0].UpiLink != "" {
			t.Errorf("receiving UpiLink = %q, want empty", receiving[0].UpiLink)
		}
	})

	t.Run("NetBalances covers only PENDING rows", func(t *testing.T) {
		// Alice's debt is CONFIRMED, so only bob's 10000 remains.
		balances, err := obligations.NetBalances(ctx, group.ID, alice.ID)
		if err != nil {
			t.Fatalf("NetBalances failed: %v", err)
		}
		if len(balances) != 1 {
			t.Fatalf("got %d balances, want 1", len(balances))
		}
		b := balances[0]
		if b.FromUserID != bob.ID || b.ToUserID != alice.ID || b.Amount != 10000 {
			t.Errorf("balance = %+v, want bob owes alice 10000", b)
		}
	})
}

func TestResolveCauseLoss(t *testing.T) {
	store, sink := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice@example.com", "Alice")
	bob := createUser(t, store, "bob@example.com", "Bob")
	group, rules := activePact(t, store, sink, 10000, alice, bob)

	sessions := NewSessionService(store, sink)
	session := ongoingSession(t, store, sink, group.ID, alice.ID)

	// Alice fails her own rule; both judge the other compliant.
	entries := map[string][]VoteEntry{
		alice.ID: {
			{RuleID: rules[alice.ID].ID, TargetUserID: bob.ID, Value: models.VoteYes},
			{RuleID: rules[alice.ID].ID, TargetUserID: alice.ID, Value: models.VoteNo},
		},
		bob.ID: {
			{RuleID: rules[bob.ID].ID, TargetUserID: alice.ID, Value: models.VoteYes},
		},
	}
	for voterID, e := range entries {
		if err := sessions.SubmitVotes(ctx, session.ID, voterID, e); err != nil {
			t.Fatalf("SubmitVotes failed: %v", err)
		}
	}
	if _, err := sessions.Finalize(ctx, session.ID, bob.ID); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	obligations := NewObligationService(store, sink)
	losses, err := obligations.MyCauseLosses(ctx, alice.ID)
	if err != nil {
		t.Fatalf("MyCauseLosses failed: %v", err)
	}
	if len(losses) != 1 || losses[0].Status != models.CauseLossPledged {
		t.Fatalf("losses = %+v, want one PLEDGED", losses)
	}
	loss := losses[0]

	t.Run("only the owner may resolve", func(t *testing.T) {
		_, err := obligations.ResolveCauseLoss(ctx, loss.ID, bob.ID, models.CauseLossDonated)
		if !errors.Is(err, models.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("status must be DONATED or SKIPPED", func(t *testing.T) {
		_, err := obligations.ResolveCauseLoss(ctx, loss.ID, alice.ID, models.CauseLossPledged)
		if !errors.Is(err, models.ErrInvalidState) {
			t.Errorf("err = %v, want ErrInvalidState", err)
		}
	})

	t.Run("owner resolves to DONATED", func(t *testing.T) {
		got, err := obligations.ResolveCauseLoss(ctx, loss.ID, alice.ID, models.CauseLossDonated)
		if err != nil {
			t.Fatalf("ResolveCauseLoss failed: %v", err)
		}
		if got.Status != models.CauseLossDonated {
			t.Errorf("status = %s, want DONATED", got.Status)
		}
	})
}

func TestUpiLink(t *testing.T) {
	tests := []struct {
		name   string
		vpa    string
		who    string
		paise  int64
		want   string
	}{
		{
			name: "whole rupees", vpa: "bob@upi", who: "Bob", paise: 10000,
			want: "am=100.00",
		},
		{
			name: "paise remainder keeps two digits", vpa: "bob@upi", who: "Bob", paise: 15005,
			want: "am=150.05",
		},
		{
			name: "sub-rupee amount", vpa: "bob@upi", who: "Bob", paise: 7,
			want: "am=0.07",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link := upiLink(tt.vpa, tt.who, tt.paise)
			if !strings.HasPrefix(link, "upi://pay?") {
				t.Errorf("link = %q, want upi://pay prefix", link)
			}
			if !strings.Contains(link, tt.want) {
				t.Errorf("link = %q, want it to contain %q", link, tt.want)
			}
			if !strings.Contains(link, "cu=INR") {
				t.Errorf("link = %q, want INR currency", link)
			}
		})
	}

	t.Run("no VPA means no link", func(t *testing.T) {
		if link := upiLink("", "Bob", 100); link != "" {
			t.Errorf("link = %q, want empty", link)
		}
	})
}
