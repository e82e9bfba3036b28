package user

// RegisterRequest represents the request body for registering a user
type RegisterRequest struct {
	Email     string  `json:"email" validate:"required,email"`
	Username  string  `json:"username" validate:"required,min=3,max=50"`
	Password  string  `json:"password" validate:"required,min=8"`
	AboutMe   *string `json:"about_me,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Private   bool    `json:"is_private"`
}

// UpdateProfileRequest represents the request body for updating a profile
type UpdateProfileRequest struct {
	Username  *string `json:"username,omitempty" validate:"omitempty,min=3,max=50"`
	AboutMe   *string `json:"about_me,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// SetPrivacyRequest represents the request body for the privacy toggle
type SetPrivacyRequest struct {
	Private bool `json:"is_private"`
}

// UserResponse represents the response for a single user
type UserResponse struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	Username  string  `json:"username"`
	AboutMe   *string `json:"about_me,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Private   bool    `json:"is_private"`
	CreatedAt string  `json:"created_at"`
}

// ProfileResponse is the visibility-gated view of a user returned to other
// users. For private subjects without an accepted follow edge only the
// summary fields are populated and CanViewFull is false.
type ProfileResponse struct {
	ID             int64   `json:"id"`
	Username       string  `json:"username"`
	AvatarURL      *string `json:"avatar_url,omitempty"`
	Private        bool    `json:"is_private"`
	CanViewFull    bool    `json:"can_view_full"`
	FollowersCount int     `json:"followers_count"`
	FollowingCount int     `json:"following_count"`

	// Only present when CanViewFull is true.
	Email     string  `json:"email,omitempty"`
	AboutMe   *string `json:"about_me,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`

	// Relationship of the viewer to this user.
	IsFollowing       bool `json:"is_following"`
	HasPendingRequest bool `json:"has_pending_request"`
}

// ToResponse converts a User model to a UserResponse DTO
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		AboutMe:   u.AboutMe,
		AvatarURL: u.AvatarURL,
		Private:   u.Private,
		CreatedAt: u.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
