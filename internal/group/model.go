package group

import "time"

// Membership statuses. One row per (group, user) carries both the membership
// and its pending action: an invited or requested row IS the invitation or
// join request, so a member can never also hold a pending action.
const (
	StatusInvited   = "invited"
	StatusRequested = "requested"
	StatusMember    = "member"
	StatusDeclined  = "declined"
)

// Membership roles
const (
	RoleCreator = "creator"
	RoleMember  = "member"
)

// Group represents a user-created group
type Group struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    *string   `json:"image_url,omitempty"`
	CreatorID   int64     `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Membership represents one user's relationship to one group
type Membership struct {
	ID        int64     `json:"id"`
	GroupID   int64     `json:"group_id"`
	UserID    int64     `json:"user_id"`
	Status    string    `json:"status"`
	Role      string    `json:"role"`
	InvitedBy *int64    `json:"invited_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
