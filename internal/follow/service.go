package follow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nsaleh/socialnet/internal/database"
	"github.com/nsaleh/socialnet/internal/notification"
	"github.com/nsaleh/socialnet/internal/visibility"
	"github.com/nsaleh/socialnet/pkg/keylock"
)

// Common errors
var (
	ErrSelfFollow        = errors.New("cannot follow yourself")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidTransition = errors.New("follow edge is not in a state that allows this transition")
	ErrNotAllowed        = errors.New("not allowed to view this user's connections")
)

// Gate decides how much of a subject's profile a viewer may see.
type Gate interface {
	CanViewProfile(ctx context.Context, viewerID, subjectID int64) (visibility.Level, error)
}

// Service handles follow lifecycle business logic. All writes on an edge are
// serialized under a per-pair key so concurrent transitions collapse to one
// winner; repeating an already-applied transition is a no-op that returns the
// current state.
type Service struct {
	repo             *Repository
	locks            *keylock.KeyedMutex
	dispatcher       notification.Dispatcher
	gate             Gate
	autoAcceptPublic bool
}

// NewService creates a new follow service with its dependencies injected
func NewService(repo *Repository, locks *keylock.KeyedMutex, dispatcher notification.Dispatcher, gate Gate, autoAcceptPublic bool) *Service {
	return &Service{
		repo:             repo,
		locks:            locks,
		dispatcher:       dispatcher,
		gate:             gate,
		autoAcceptPublic: autoAcceptPublic,
	}
}

func lockKey(followerID, followeeID int64) string {
	return fmt.Sprintf("follow:%d:%d", followerID, followeeID)
}

// Request creates a follow edge from follower to followee. Public followees
// accept immediately when auto-accept is on; private ones get a pending
// request. If an edge already exists it is returned unchanged.
func (s *Service) Request(ctx context.Context, followerID, followeeID int64) (*Edge, error) {
	if followerID == followeeID {
		return nil, ErrSelfFollow
	}

	key := lockKey(followerID, followeeID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	if edge, err := s.repo.Get(ctx, followerID, followeeID); err != nil {
		return nil, err
	} else if edge != nil {
		return edge, nil
	}

	private, found, err := s.repo.UserPrivacy(ctx, followeeID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrUserNotFound
	}

	status := StatusPending
	if !private && s.autoAcceptPublic {
		status = StatusAccepted
	}

	edge, created, err := s.insertEdge(ctx, followerID, followeeID, status)
	if err != nil {
		return nil, err
	}
	if created {
		s.notifyFollowee(ctx, edge)
	}
	return edge, nil
}

// insertEdge creates the edge. The keyed lock only serializes writers in this
// process; a writer elsewhere can commit between the existence check and the
// insert, so a primary-key violation is resolved back to the committed edge.
func (s *Service) insertEdge(ctx context.Context, followerID, followeeID int64, status string) (*Edge, bool, error) {
	edge := &Edge{
		FollowerID: followerID,
		FolloweeID: followeeID,
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	}
	err := s.repo.Insert(ctx, followerID, followeeID, status, edge.CreatedAt)
	if err == nil {
		return edge, true, nil
	}
	if database.IsUniqueViolation(err) {
		existing, getErr := s.repo.Get(ctx, followerID, followeeID)
		if getErr != nil {
			return nil, false, getErr
		}
		if existing != nil {
			return existing, false, nil
		}
	}
	return nil, false, err
}

// Accept moves a pending edge to accepted. The actor must be the followee.
// Accepting an already-accepted edge is a no-op.
func (s *Service) Accept(ctx context.Context, followeeID, followerID int64) (*Edge, error) {
	key := lockKey(followerID, followeeID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	ok, err := s.repo.UpdateStatus(ctx, followerID, followeeID, StatusPending, StatusAccepted)
	if err != nil {
		return nil, err
	}
	if !ok {
		edge, err := s.repo.Get(ctx, followerID, followeeID)
		if err != nil {
			return nil, err
		}
		if edge != nil && edge.Status == StatusAccepted {
			return edge, nil
		}
		return nil, ErrInvalidTransition
	}

	edge := &Edge{FollowerID: followerID, FolloweeID: followeeID, Status: StatusAccepted}
	s.notifyFollower(ctx, followeeID, followerID, "accepted your follow request", StatusAccepted)
	return edge, nil
}

// Decline rejects a pending follow request, removing the edge. The actor must
// be the followee. Declining when no edge exists is a no-op.
func (s *Service) Decline(ctx context.Context, followeeID, followerID int64) error {
	key := lockKey(followerID, followeeID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	ok, err := s.repo.DeleteWithStatus(ctx, followerID, followeeID, StatusPending)
	if err != nil {
		return err
	}
	if !ok {
		return s.requireAbsent(ctx, followerID, followeeID)
	}

	s.notifyFollower(ctx, followeeID, followerID, "declined your follow request", "none")
	return nil
}

// Cancel withdraws the actor's own pending request. Cancelling when no edge
// exists is a no-op.
func (s *Service) Cancel(ctx context.Context, followerID, followeeID int64) error {
	key := lockKey(followerID, followeeID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	ok, err := s.repo.DeleteWithStatus(ctx, followerID, followeeID, StatusPending)
	if err != nil {
		return err
	}
	if !ok {
		return s.requireAbsent(ctx, followerID, followeeID)
	}
	return nil
}

// Unfollow removes an accepted edge. Unfollowing when no edge exists is a
// no-op; a pending edge must be cancelled, not unfollowed.
func (s *Service) Unfollow(ctx context.Context, followerID, followeeID int64) error {
	key := lockKey(followerID, followeeID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	ok, err := s.repo.DeleteWithStatus(ctx, followerID, followeeID, StatusAccepted)
	if err != nil {
		return err
	}
	if !ok {
		return s.requireAbsent(ctx, followerID, followeeID)
	}
	return nil
}

// PendingRequests lists users waiting on the actor to accept or decline
func (s *Service) PendingRequests(ctx context.Context, followeeID int64) ([]*UserSummary, error) {
	return s.repo.ListPending(ctx, followeeID)
}

// Followers lists the accepted followers of subject, gated by the subject's
// visibility toward the viewer.
func (s *Service) Followers(ctx context.Context, viewerID, subjectID int64) ([]*UserSummary, error) {
	if err := s.requireFullVisibility(ctx, viewerID, subjectID); err != nil {
		return nil, err
	}
	return s.repo.ListFollowers(ctx, subjectID)
}

// Following lists who subject follows, gated by the subject's visibility
// toward the viewer.
func (s *Service) Following(ctx context.Context, viewerID, subjectID int64) ([]*UserSummary, error) {
	if err := s.requireFullVisibility(ctx, viewerID, subjectID); err != nil {
		return nil, err
	}
	return s.repo.ListFollowing(ctx, subjectID)
}

// Edge returns the current edge from follower to followee, or nil
func (s *Service) Edge(ctx context.Context, followerID, followeeID int64) (*Edge, error) {
	return s.repo.Get(ctx, followerID, followeeID)
}

// Counts returns follower and following totals. Counts are part of the
// partial profile, so no gate applies.
func (s *Service) Counts(ctx context.Context, userID int64) (*CountsResponse, error) {
	followers, following, err := s.repo.Counts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &CountsResponse{Followers: followers, Following: following}, nil
}

// requireAbsent distinguishes an idempotent repeat of a delete transition
// (edge already gone) from a transition attempted out of its source state.
func (s *Service) requireAbsent(ctx context.Context, followerID, followeeID int64) error {
	edge, err := s.repo.Get(ctx, followerID, followeeID)
	if err != nil {
		return err
	}
	if edge == nil {
		return nil
	}
	return ErrInvalidTransition
}

func (s *Service) requireFullVisibility(ctx context.Context, viewerID, subjectID int64) error {
	level, err := s.gate.CanViewProfile(ctx, viewerID, subjectID)
	if err != nil {
		if errors.Is(err, visibility.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if level < visibility.LevelFull {
		return ErrNotAllowed
	}
	return nil
}

func (s *Service) notifyFollowee(ctx context.Context, edge *Edge) {
	if s.dispatcher == nil {
		return
	}

	follower, err := s.repo.UserSummary(ctx, edge.FollowerID)
	if err != nil || follower == nil {
		follower = &UserSummary{ID: edge.FollowerID}
	}
	message := fmt.Sprintf("%s started following you", follower.Username)
	if edge.Status == StatusPending {
		message = fmt.Sprintf("%s requested to follow you", follower.Username)
	}

	s.dispatcher.Dispatch(ctx, &notification.Event{
		Type:    notification.TypeFollowStateChanged,
		Message: message,
		Payload: map[string]any{
			"follower_id": edge.FollowerID,
			"followee_id": edge.FolloweeID,
			"status":      edge.Status,
		},
		Recipients: []int64{edge.FolloweeID},
	})
}

func (s *Service) notifyFollower(ctx context.Context, followeeID, followerID int64, verb, status string) {
	if s.dispatcher == nil {
		return
	}

	followee, err := s.repo.UserSummary(ctx, followeeID)
	if err != nil || followee == nil {
		followee = &UserSummary{ID: followeeID}
	}

	s.dispatcher.Dispatch(ctx, &notification.Event{
		Type:    notification.TypeFollowStateChanged,
		Message: fmt.Sprintf("%s %s", followee.Username, verb),
		Payload: map[string]any{
			"follower_id": followerID,
			"followee_id": followeeID,
			"status":      status,
		},
		Recipients: []int64{followerID},
	})
}
