package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stakepact/server/internal/models"
	"github.com/stakepact/server/internal/storage"
)

func TestDeletionRequest(t *testing.T) {
	store, sink := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice@example.com", "Alice")
	bob := createUser(t, store, "bob@example.com", "Bob")
	carol := createUser(t, store, "carol@example.com", "Carol")
	group := planningPact(t, store, alice, bob, carol)

	deletions := NewDeletionService(store, sink, 72*time.Hour)

	t.Run("request opens and notifies everyone but the requester", func(t *testing.T) {
		req, err := deletions.Request(ctx, group.ID, alice.ID)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		if req.Status != models.DeletionPending {
			t.Errorf("status = %s, want PENDING", req.Status)
		}
		if req.ExpiresAt <= req.RequestedAt {
			t.Errorf("expiry %d not after request time %d", req.ExpiresAt, req.RequestedAt)
		}

		if n := countNotifications(t, store, alice.ID, models.NotifyDeletionRequested); n != 0 {
			t.Errorf("requester got %d notifications, want 0", n)
		}
		for _, u := range []*models.User{bob, carol} {
			if n := countNotifications(t, store, u.ID, models.NotifyDeletionRequested); n != 1 {
				t.Errorf("%s got %d notifications, want 1", u.Email, n)
			}
		}
	})

	t.Run("second request while one is pending is refused", func(t *testing.T) {
		_, err := deletions.Request(ctx, group.ID, bob.ID)
		if !errors.Is(err, models.ErrAlreadyPending) {
			t.Errorf("err = %v, want ErrAlreadyPending", err)
		}
	})

	t.Run("only the requester may cancel", func(t *testing.T) {
		if err := deletions.Cancel(ctx, group.ID, bob.ID); !errors.Is(err, models.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
		if err := deletions.Cancel(ctx, group.ID, alice.ID); err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}
	})

	t.Run("a cancelled request does not block a new one", func(t *testing.T) {
		if _, err := deletions.Request(ctx, group.ID, bob.ID); err != nil {
			t.Fatalf("re-request after cancel failed: %v", err)
		}
	})
}

func TestDeletionVote(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (storage.Store, *DeletionService, *models.Group, []*models.User) {
		store, sink := newTestStore(t)
		alice := createUser(t, store, "alice@example.com", "Alice")
		bob := createUser(t, store, "bob@example.com", "Bob")
		carol := createUser(t, store, "carol@example.com", "Carol")
		group := planningPact(t, store, alice, bob, carol)

		deletions := NewDeletionService(store, sink, 72*time.Hour)
		if _, err := deletions.Request(ctx, group.ID, alice.ID); err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		return store, deletions, group, []*models.User{alice, bob, carol}
	}

	t.Run("the requester cannot vote", func(t *testing.T) {
		_, deletions, group, users := setup(t)
		_, err := deletions.Vote(ctx, group.ID, users[0].ID, models.DeletionApprove)
		if !errors.Is(err, models.ErrRequesterVote) {
			t.Errorf("err = %v, want ErrRequesterVote", err)
		}
	})

	t.Run("unanimous approval deletes the group", func(t *testing.T) {
		store, deletions, group, users := setup(t)

		outcome, err := deletions.Vote(ctx, group.ID, users[1].ID, models.DeletionApprove)
		if err != nil {
			t.Fatalf("first vote failed: %v", err)
		}
		if outcome != storage.DeletionStillPending {
			t.Errorf("outcome = %s, want PENDING", outcome)
		}

		outcome, err = deletions.Vote(ctx, group.ID, users[2].ID, models.DeletionApprove)
		if err != nil {
			t.Fatalf("decisive vote failed: %v", err)
		}
		if outcome != storage.DeletionGroupDeleted {
			t.Errorf("outcome = %s, want DELETED", outcome)
		}

		if _, err := store.GetGroup(ctx, group.ID); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("GetGroup err = %v, want ErrNotFound", err)
		}
		for _, u := range users {
			if n := countNotifications(t, store, u.ID, models.NotifyDeletionResolved); n != 1 {
				t.Errorf("%s got %d resolution notifications, want 1", u.Email, n)
			}
		}
	})

	t.Run("a single decline kills the request and notifies the requester", func(t *testing.T) {
		store, deletions, group, users := setup(t)

		if _, err := deletions.Vote(ctx, group.ID, users[1].ID, models.DeletionApprove); err != nil {
			t.Fatalf("approve failed: %v", err)
		}
		outcome, err := deletions.Vote(ctx, group.ID, users[2].ID, models.DeletionDecline)
		if err != nil {
			t.Fatalf("decline failed: %v", err)
		}
		if outcome != storage.DeletionGotDeclined {
			t.Errorf("outcome = %s, want DECLINED", outcome)
		}

		if _, err := store.GetGroup(ctx, group.ID); err != nil {
			t.Errorf("group should survive a decline: %v", err)
		}
		if n := countNotifications(t, store, users[0].ID, models.NotifyDeletionResolved); n != 1 {
			t.Errorf("requester got %d resolution notifications, want 1", n)
		}

		// The declined request is spent; a fresh one can open.
		if _, err := deletions.Request(ctx, group.ID, users[1].ID); err != nil {
			t.Fatalf("re-request after decline failed: %v", err)
		}
	})

	t.Run("voting twice is ErrAlreadyVoted", func(t *testing.T) {
		_, deletions, group, users := setup(t)

		if _, err := deletions.Vote(ctx, group.ID, users[1].ID, models.DeletionApprove); err != nil {
			t.Fatalf("first vote failed: %v", err)
		}
		_, err := deletions.Vote(ctx, group.ID, users[1].ID, models.DeletionDecline)
		if !errors.Is(err, models.ErrAlreadyVoted) {
			t.Errorf("err = %v, want ErrAlreadyVoted", err)
		}
	})
}

func TestDeletionExpiry(t *testing.T) {
	store, sink := newTestStore(t)
	ctx := context.Background()

	alice := createUser(t, store, "alice@example.com", "Alice")
	bob := createUser(t, store, "bob@example.com", "Bob")
	group := planningPact(t, store, alice, bob)

	deletions := NewDeletionService(store, sink, 72*time.Hour)

	current := time.Now()
	deletions.now = func() time.Time { return current }

	if _, err := deletions.Request(ctx, group.ID, alice.ID); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	// The window passes with no quorum.
	current = current.Add(73 * time.Hour)

	t.Run("voting on an expired request is refused", func(t *testing.T) {
		_, err := deletions.Vote(ctx, group.ID, bob.ID, models.DeletionApprove)
		if !errors.Is(err, models.ErrInvalidState) {
			t.Errorf("err = %v, want ErrInvalidState", err)
		}
	})

	t.Run("status reports the request as expired", func(t *testing.T) {
		status, err := deletions.Status(ctx, group.ID, alice.ID)
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if status.Request.Status != models.DeletionExpired {
			t.Errorf("status = %s, want EXPIRED", status.Request.Status)
		}
	})

	t.Run("an expired request does not block a new one", func(t *testing.T) {
		if _, err := deletions.Request(ctx, group.ID, bob.ID); err != nil {
			t.Fatalf("re-request after expiry failed: %v", err)
		}
	})
}
