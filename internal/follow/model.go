package follow

import "time"

// Edge states. Absence of a row is the implicit "none" state.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
)

// Edge is a directed follow relationship from follower to followee.
type Edge struct {
	FollowerID int64     `json:"follower_id"`
	FolloweeID int64     `json:"followee_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}
