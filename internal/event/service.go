package event

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nsaleh/socialnet/internal/notification"
)

// Common errors
var (
	ErrGroupNotFound   = errors.New("group not found")
	ErrEventNotFound   = errors.New("event not found")
	ErrNotMember       = errors.New("user is not a member of this group")
	ErrMissingTitle    = errors.New("event title is required")
	ErrInvalidTime     = errors.New("event time must be a valid RFC 3339 timestamp")
	ErrInvalidResponse = errors.New("response must be going or not_going")
)

// Service handles event business logic. RSVPs are last-write-wins upserts,
// so no per-key locking is needed here; the row-level upsert is atomic.
type Service struct {
	repo       *Repository
	dispatcher notification.Dispatcher
}

// NewService creates a new event service with its dependencies injected
func NewService(repo *Repository, dispatcher notification.Dispatcher) *Service {
	return &Service{repo: repo, dispatcher: dispatcher}
}

// Create schedules an event in a group. Member-only. The creator is
// RSVPed going atomically with the event.
func (s *Service) Create(ctx context.Context, creatorID int64, req *CreateEventRequest) (*Event, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, ErrMissingTitle
	}
	eventTime, err := time.Parse(time.RFC3339, req.EventTime)
	if err != nil {
		return nil, ErrInvalidTime
	}

	if err := s.requireMember(ctx, req.GroupID, creatorID); err != nil {
		return nil, err
	}

	e := &Event{
		GroupID:     req.GroupID,
		CreatorID:   creatorID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		EventTime:   eventTime.UTC(),
		MinAge:      req.MinAge,
	}
	if err := s.repo.CreateWithCreatorRSVP(ctx, e, time.Now().UTC()); err != nil {
		return nil, err
	}

	s.notifyMembers(ctx, e)
	return e, nil
}

// List returns all events of a group annotated with the caller's RSVP.
// Member-only.
func (s *Service) List(ctx context.Context, userID, groupID int64) ([]*EventResponse, error) {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListByGroup(ctx, groupID, userID)
}

// ListGoing returns the group's events the caller RSVPed going to.
// Member-only.
func (s *Service) ListGoing(ctx context.Context, userID, groupID int64) ([]*EventResponse, error) {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListGoing(ctx, groupID, userID)
}

// ListUnresponded returns the group's events the caller has not responded
// to yet. Member-only.
func (s *Service) ListUnresponded(ctx context.Context, userID, groupID int64) ([]*EventResponse, error) {
	if err := s.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListUnresponded(ctx, groupID, userID)
}

// Respond records the caller's RSVP. The caller must still be a member of
// the event's group; a repeated response overwrites the previous one.
func (s *Service) Respond(ctx context.Context, userID int64, req *RespondRequest) error {
	if req.Response != ResponseGoing && req.Response != ResponseNotGoing {
		return ErrInvalidResponse
	}

	e, err := s.repo.GetEvent(ctx, req.EventID)
	if err != nil {
		return err
	}
	if e == nil {
		return ErrEventNotFound
	}

	status, err := s.repo.MembershipStatus(ctx, e.GroupID, userID)
	if err != nil {
		return err
	}
	if status != "member" {
		// Membership gone: the event is unreachable for this caller.
		return ErrEventNotFound
	}

	if err := s.repo.UpsertResponse(ctx, req.EventID, userID, req.Response, time.Now().UTC()); err != nil {
		return err
	}

	if s.dispatcher != nil && userID != e.CreatorID {
		s.dispatcher.Dispatch(ctx, &notification.Event{
			Type:    notification.TypeRSVPChanged,
			Message: fmt.Sprintf("An RSVP changed on %s", e.Title),
			Payload: map[string]any{
				"event_id": e.ID,
				"group_id": e.GroupID,
				"user_id":  userID,
				"response": req.Response,
			},
			Recipients: []int64{e.CreatorID},
		})
	}
	return nil
}

func (s *Service) requireMember(ctx context.Context, groupID, userID int64) error {
	exists, err := s.repo.GroupExists(ctx, groupID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrGroupNotFound
	}

	status, err := s.repo.MembershipStatus(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if status != "member" {
		return ErrNotMember
	}
	return nil
}

func (s *Service) notifyMembers(ctx context.Context, e *Event) {
	if s.dispatcher == nil {
		return
	}

	memberIDs, err := s.repo.MemberIDs(ctx, e.GroupID)
	if err != nil {
		return
	}
	recipients := make([]int64, 0, len(memberIDs))
	for _, id := range memberIDs {
		if id != e.CreatorID {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) == 0 {
		return
	}

	s.dispatcher.Dispatch(ctx, &notification.Event{
		Type:    notification.TypeEventCreated,
		Message: fmt.Sprintf("New event: %s", e.Title),
		Payload: map[string]any{
			"event_id":   e.ID,
			"group_id":   e.GroupID,
			"title":      e.Title,
			"event_time": e.EventTime.Format(time.RFC3339),
		},
		Recipients: recipients,
	})
}
