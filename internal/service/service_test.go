package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stakepact/server/internal/models"
	"github.com/stakepact/server/internal/notify"
	"github.com/stakepact/server/internal/storage"
	"github.com/stakepact/server/internal/storage/sqlite"
)

// newTestStore opens a throwaway sqlite store plus a sink that persists
// notifications into it, so tests can assert on what members would see.
func newTestStore(t *testing.T) (storage.Store, notify.Sink) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, notify.NewStoreSink(store)
}

func createUser(t *testing.T, store storage.Store, email, name string) *models.User {
	t.Helper()

	user := &models.User{Email: email, DisplayName: name, PasswordHash: "x"}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", email, err)
	}
	return user
}

// planningPact creates a PLANNING group through the group service with the
// given users as members, first user as creator.
func planningPact(t *testing.T, store storage.Store, users ...*models.User) *models.Group {
	t.Helper()

	ctx := context.Background()
	groups := NewGroupService(store)
	group, err := groups.CreateGroup(ctx, users[0].ID, "Morning Gym")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	for _, u := range users[1:] {
		if _, err := groups.JoinGroup(ctx, u.ID, group.InviteCode); err != nil {
			t.Fatalf("JoinGroup(%s) failed: %v", u.Email, err)
		}
	}
	return group
}

// activePact builds an ACTIVE group the way users would: everyone proposes
// a rule at the given stake, everyone approves everyone else's, then the
// group is activated. Returns the rules keyed by creator ID.
func activePact(t *testing.T, store storage.Store, sink notify.Sink, stake int64, users ...*models.User) (*models.Group, map[string]*models.Rule) {
	t.Helper()

	ctx := context.Background()
	group := planningPact(t, store, users...)
	rules := NewRuleService(store, sink)

	byCreator := make(map[string]*models.Rule, len(users))
	for _, u := range users {
		rule, err := rules.ProposeRule(ctx, group.ID, u.ID, "Rule of "+u.DisplayName, stake)
		if err != nil {
			t.Fatalf("ProposeRule(%s) failed: %v", u.Email, err)
		}
		byCreator[u.ID] = rule
	}
	for _, u := range users {
		for _, rule := range byCreator {
			if rule.CreatorID == u.ID {
				continue
			}
			if _, err := rules.Approve(ctx, rule.ID, u.ID); err != nil {
				t.Fatalf("Approve by %s failed: %v", u.Email, err)
			}
		}
	}

	group, err := rules.ActivateGroup(ctx, group.ID, users[0].ID)
	if err != nil {
		t.Fatalf("ActivateGroup failed: %v", err)
	}
	return group, byCreator
}

// ongoingSession schedules and starts a review cycle.
func ongoingSession(t *testing.T, store storage.Store, sink notify.Sink, groupID, userID string) *models.CallSession {
	t.Helper()

	ctx := context.Background()
	sessions := NewSessionService(store, sink)
	session, err := sessions.Schedule(ctx, groupID, userID)
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}
	session, err = sessions.Start(ctx, session.ID, userID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return session
}

func countNotifications(t *testing.T, store storage.Store, userID, notifType string) int {
	t.Helper()

	notifications, err := store.ListNotificationsByUser(context.Background(), userID, false)
	if err != nil {
		t.Fatalf("ListNotificationsByUser failed: %v", err)
	}
	n := 0
	for _, notification := range notifications {
		if notification.Type == notifType {
			n++
		}
	}
	return n
}
