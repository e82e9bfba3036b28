package follow

// FollowRequest represents the request body for follow transitions
type FollowRequest struct {
	UserID int64 `json:"user_id" validate:"required"`
}

// EdgeResponse represents the state of a follow edge after a transition
type EdgeResponse struct {
	FollowerID int64  `json:"follower_id"`
	FolloweeID int64  `json:"followee_id"`
	Status     string `json:"status"`
}

// UserSummary is the compact user representation used in follower listings
type UserSummary struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// CountsResponse represents follower and following totals for a user
type CountsResponse struct {
	Followers int `json:"followers"`
	Following int `json:"following"`
}

// ToResponse converts an Edge model to an EdgeResponse DTO
func (e *Edge) ToResponse() *EdgeResponse {
	return &EdgeResponse{
		FollowerID: e.FollowerID,
		FolloweeID: e.FolloweeID,
		Status:     e.Status,
	}
}
