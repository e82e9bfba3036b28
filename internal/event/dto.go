package event

// CreateEventRequest represents the request body for creating an event
type CreateEventRequest struct {
	GroupID     int64  `json:"group_id" validate:"required"`
	Title       string `json:"title" validate:"required,min=1,max=100"`
	Description string `json:"description"`
	EventTime   string `json:"event_time" validate:"required"` // RFC 3339
	MinAge      *int   `json:"min_age,omitempty"`
}

// RespondRequest represents the request body for an RSVP
type RespondRequest struct {
	EventID  int64  `json:"event_id" validate:"required"`
	Response string `json:"response" validate:"required,oneof=going not_going"`
}

// EventResponse represents an event annotated with RSVP state for the caller
type EventResponse struct {
	ID            int64   `json:"id"`
	GroupID       int64   `json:"group_id"`
	CreatorID     int64   `json:"creator_id"`
	Title         string  `json:"title"`
	Description   string  `json:"description"`
	EventTime     string  `json:"event_time"`
	MinAge        *int    `json:"min_age,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UserResponse  *string `json:"user_response,omitempty"`
	GoingCount    int     `json:"going_count"`
	NotGoingCount int     `json:"not_going_count"`
}

// ToResponse converts an Event model to an EventResponse DTO
func (e *Event) ToResponse() *EventResponse {
	return &EventResponse{
		ID:          e.ID,
		GroupID:     e.GroupID,
		CreatorID:   e.CreatorID,
		Title:       e.Title,
		Description: e.Description,
		EventTime:   e.EventTime.Format("2006-01-02T15:04:05Z"),
		MinAge:      e.MinAge,
		CreatedAt:   e.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
