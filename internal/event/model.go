package event

import "time"

// RSVP values
const (
	ResponseGoing    = "going"
	ResponseNotGoing = "not_going"
)

// Event represents a scheduled group event
type Event struct {
	ID          int64     `json:"id"`
	GroupID     int64     `json:"group_id"`
	CreatorID   int64     `json:"creator_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EventTime   time.Time `json:"event_time"`
	MinAge      *int      `json:"min_age,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
