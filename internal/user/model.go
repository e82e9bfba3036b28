package user

import "time"

// User represents a user in the system. The privacy flag controls how much
// of the profile other users can see and whether follow requests need
// explicit acceptance.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	AboutMe   *string   `json:"about_me,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	Private   bool      `json:"is_private"`
	CreatedAt time.Time `json:"created_at"`
}

// Credentials carries the stored password hash for login checks. It never
// leaves the user package.
type Credentials struct {
	UserID       int64
	PasswordHash string
}
