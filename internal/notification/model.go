package notification

import (
	"encoding/json"
	"time"
)

// Event types carried in the type column and on the websocket wire.
const (
	TypeInvitationCreated  = "invitation_created"
	TypeMembershipChanged  = "membership_changed"
	TypeEventCreated       = "event_created"
	TypeRSVPChanged        = "rsvp_changed"
	TypeFollowStateChanged = "follow_state_changed"
)

// Notification is a persisted delivery to a single recipient.
type Notification struct {
	ID          int64           `json:"id"`
	RecipientID int64           `json:"recipient_id"`
	Type        string          `json:"type"`
	Message     string          `json:"message"`
	Payload     json.RawMessage `json:"payload"`
	IsRead      bool            `json:"is_read"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Event is one domain occurrence to be fanned out to recipients. Payload is
// stored verbatim and pushed over the websocket unchanged.
type Event struct {
	Type       string
	Message    string
	Payload    any
	Recipients []int64
}

// Envelope is the websocket frame format.
type Envelope struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Payload any    `json:"payload,omitempty"`
}
