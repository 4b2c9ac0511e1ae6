package models

// Group status values. A group starts in PLANNING while members author and
// approve rules, moves to ACTIVE once every rule is binding, and ends in
// COMPLETED when the pact runs its course.
const (
	GroupPlanning  = "PLANNING"
	GroupActive    = "ACTIVE"
	GroupCompleted = "COMPLETED"
)

// Membership roles.
const (
	RoleCreator = "creator"
	RoleMember  = "member"
)

// Group represents one accountability pact.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group.
	Name string

	// InviteCode is a short shareable code other users join with.
	InviteCode string

	// CreatorID is the user who created the group.
	CreatorID string

	// Status is one of GroupPlanning, GroupActive, GroupCompleted.
	Status string

	// CreatedAt is the Unix timestamp when the group was created.
	CreatedAt int64
}

// Membership ties a user to a group. Unique per (group, user).
type Membership struct {
	GroupID  string
	UserID   string
	Role     string
	JoinedAt int64
}
