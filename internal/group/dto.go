package group

// CreateGroupRequest represents the request body for creating a group
type CreateGroupRequest struct {
	Title       string  `json:"title" validate:"required,min=1,max=100"`
	Description string  `json:"description"`
	ImageURL    *string `json:"image_url,omitempty"`
}

// InviteRequest represents the request body for inviting a user to a group
type InviteRequest struct {
	GroupID int64 `json:"group_id" validate:"required"`
	UserID  int64 `json:"target_user_id" validate:"required"`
}

// JoinRequestBody represents the request body for asking to join a group
type JoinRequestBody struct {
	GroupID int64 `json:"group_id" validate:"required"`
}

// RespondRequest represents the request body for resolving an invitation or
// join request. Action must be accept or decline.
type RespondRequest struct {
	ID     int64  `json:"id" validate:"required"`
	Action string `json:"action" validate:"required,oneof=accept decline"`
}

// GroupResponse represents the response for a single group
type GroupResponse struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ImageURL    *string `json:"image_url,omitempty"`
	CreatorID   int64   `json:"creator_id"`
	CreatedAt   string  `json:"created_at"`
}

// MembershipResponse represents the state of a membership row after a
// transition
type MembershipResponse struct {
	ID      int64  `json:"id"`
	GroupID int64  `json:"group_id"`
	UserID  int64  `json:"user_id"`
	Status  string `json:"status"`
	Role    string `json:"role,omitempty"`
}

// MemberSummary is one entry of a group's member roster
type MemberSummary struct {
	UserID    int64   `json:"user_id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Role      string  `json:"role"`
	JoinedAt  string  `json:"joined_at"`
}

// InvitationResponse is one pending invitation as seen by its invitee
type InvitationResponse struct {
	ID          int64  `json:"id"`
	GroupID     int64  `json:"group_id"`
	GroupTitle  string `json:"group_title"`
	InviterID   int64  `json:"inviter_id"`
	InviterName string `json:"inviter_name"`
	CreatedAt   string `json:"created_at"`
}

// JoinRequestResponse is one pending join request as seen by a group creator
type JoinRequestResponse struct {
	ID        int64  `json:"id"`
	GroupID   int64  `json:"group_id"`
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	CreatedAt string `json:"created_at"`
}

// InvitableUser is one search hit for users a group member may invite
type InvitableUser struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// DiscoverItem is the public listing view of a group: title and description
// only, plus the caller's own membership status if any
type DiscoverItem struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	MemberCount  int     `json:"member_count"`
	MyMembership *string `json:"my_membership,omitempty"`
}

// ToResponse converts a Group model to a GroupResponse DTO
func (g *Group) ToResponse() *GroupResponse {
	return &GroupResponse{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		ImageURL:    g.ImageURL,
		CreatorID:   g.CreatorID,
		CreatedAt:   g.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ToResponse converts a Membership model to a MembershipResponse DTO
func (m *Membership) ToResponse() *MembershipResponse {
	return &MembershipResponse{
		ID:      m.ID,
		GroupID: m.GroupID,
		UserID:  m.UserID,
		Status:  m.Status,
		Role:    m.Role,
	}
}
