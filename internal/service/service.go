// Package service implements the domain operations: group bootstrap, the
// rule approval gate, the deletion consensus gate, call sessions with their
// vote ledger and finalize, and the obligation lifecycle. Services
// orchestrate the store and the notification sink; all state-machine
// guards live in conditional store operations, not in read-then-write
// checks here.
package service

import (
	"context"
	"fmt"

	"github.com/stakepact/server/internal/models"
	"github.com/stakepact/server/internal/storage"
)

// requireMember loads a group's members and checks the acting user is one
// of them. Returns the membership list so callers can reuse it for quorum
// arithmetic.
func requireMember(ctx context.Context, store storage.Store, groupID, userID string) ([]*models.Membership, error) {
	members, err := store.ListMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	if !hasMember(members, userID) {
		return nil, models.ErrNotAMember
	}
	return members, nil
}

func hasMember(members []*models.Membership, userID string) bool {
	for _, m := range members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

func memberIDs(members []*models.Membership) []string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.UserID
	}
	return ids
}
