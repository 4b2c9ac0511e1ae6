package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stakepact/server/internal/models"
	"github.com/stakepact/server/internal/storage"
)

// GroupService handles group bootstrap: creation, joining, listing.
// Activation (PLANNING → ACTIVE) lives on RuleService because the rule
// approval gate decides it.
type GroupService struct {
	store storage.Store
}

// NewGroupService creates a new GroupService with the given storage backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store}
}

// CreateGroup creates a group with the acting user as creator and first
// member.
func (s *GroupService) CreateGroup(ctx context.Context, creatorID, name string) (*models.Group, error) {
	group := &models.Group{
		Name:      name,
		CreatorID: creatorID,
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, err
	}

	slog.Info("Group created", "group_id", group.ID, "creator_id", creatorID)
	return group, nil
}

// JoinGroup adds the acting user to the group behind an invite code.
// Joining is only possible while the group is still PLANNING; an active
// pact's quorum denominators must not shift under it.
func (s *GroupService) JoinGroup(ctx context.Context, userID, inviteCode string) (*models.Group, error) {
	group, err := s.store.GetGroupByInviteCode(ctx, inviteCode)
	if err != nil {
		return nil, err
	}
	if group.Status != models.GroupPlanning {
		return nil, models.ErrInvalidState
	}

	m := &models.Membership{GroupID: group.ID, UserID: userID, Role: models.RoleMember}
	if err := s.store.AddMembership(ctx, m); err != nil {
		slog.Error("JoinGroup failed", "group_id", group.ID, "error", err)
		return nil, err
	}

	slog.Info("Member joined group", "group_id", group.ID, "user_id", userID)
	return group, nil
}

// ListMyGroups returns every group the user belongs to.
func (s *GroupService) ListMyGroups(ctx context.Context, userID string) ([]*models.Group, error) {
	return s.store.ListGroupsByUser(ctx, userID)
}

// GroupDetail is a group with its membership resolved.
type GroupDetail struct {
	Group   *models.Group
	Members []*models.Membership
}

// GetGroup returns a group with members, visible to members only.
func (s *GroupService) GetGroup(ctx context.Context, groupID, userID string) (*GroupDetail, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	members, err := requireMember(ctx, s.store, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("get group %s: %w", groupID, err)
	}
	return &GroupDetail{Group: group, Members: members}, nil
}
