package notification

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"time"
)

// Common errors
var ErrNotificationNotFound = errors.New("notification not found")

// Dispatcher is what the domain services see: fire-and-forget event fan-out.
// Dispatch must never fail the calling operation.
type Dispatcher interface {
	Dispatch(ctx context.Context, event *Event)
}

// Service persists notifications and pushes them to live connections
type Service struct {
	repo *Repository
	hub  *Hub
}

// NewService creates a new notification service with its dependencies injected
func NewService(repo *Repository, hub *Hub) *Service {
	return &Service{repo: repo, hub: hub}
}

// Dispatch writes one notification row per recipient, then pushes the
// envelope to whoever is connected. Failures are logged and swallowed: the
// state change that produced the event has already committed and must not be
// rolled back over a notification.
func (s *Service) Dispatch(ctx context.Context, event *Event) {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		log.Printf("failed to marshal %s payload: %v", event.Type, err)
		payload = []byte("{}")
	}

	now := time.Now().UTC()
	delivered := make([]int64, 0, len(event.Recipients))
	for _, recipientID := range event.Recipients {
		n := &Notification{
			RecipientID: recipientID,
			Type:        event.Type,
			Message:     event.Message,
			Payload:     payload,
			CreatedAt:   now,
		}
		if err := s.repo.Create(ctx, n); err != nil {
			log.Printf("failed to persist %s notification for user %d: %v", event.Type, recipientID, err)
			continue
		}
		delivered = append(delivered, recipientID)
	}

	if s.hub != nil && len(delivered) > 0 {
		s.hub.Push(delivered, &Envelope{
			Type:    event.Type,
			Message: event.Message,
			Payload: event.Payload,
		})
	}
}

// List retrieves a recipient's notifications, newest first
func (s *Service) List(ctx context.Context, recipientID int64, limit int) ([]*Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListByRecipient(ctx, recipientID, limit)
}

// UnreadCount returns the number of unread notifications for a recipient
func (s *Service) UnreadCount(ctx context.Context, recipientID int64) (int, error) {
	return s.repo.UnreadCount(ctx, recipientID)
}

// MarkAsRead marks one notification read for its recipient
func (s *Service) MarkAsRead(ctx context.Context, id, recipientID int64) error {
	err := s.repo.MarkAsRead(ctx, id, recipientID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotificationNotFound
	}
	return err
}

// MarkAllAsRead marks every notification of a recipient read
func (s *Service) MarkAllAsRead(ctx context.Context, recipientID int64) error {
	return s.repo.MarkAllAsRead(ctx, recipientID)
}
