package group

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nsaleh/socialnet/internal/database"
	"github.com/nsaleh/socialnet/internal/notification"
	"github.com/nsaleh/socialnet/pkg/keylock"
)

// Common errors
var (
	ErrGroupNotFound        = errors.New("group not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrMissingTitle         = errors.New("group title is required")
	ErrNotMember            = errors.New("user is not a member of this group")
	ErrMembershipExists     = errors.New("user already has a live membership for this group")
	ErrNoPendingInvitation  = errors.New("no pending invitation")
	ErrNoPendingJoinRequest = errors.New("no pending join request")
	ErrNotInvitee           = errors.New("only the invited user may respond to an invitation")
	ErrNotCreator           = errors.New("only the group creator may respond to join requests")
	ErrInvalidRespondAction = errors.New("action must be accept or decline")
)

// Service handles group and membership business logic. Writes on a
// (group, user) membership pair are serialized under a per-pair key; the
// UNIQUE constraint on the pair backstops inserts racing across processes.
type Service struct {
	repo       *Repository
	locks      *keylock.KeyedMutex
	dispatcher notification.Dispatcher
}

// NewService creates a new group service with its dependencies injected
func NewService(repo *Repository, locks *keylock.KeyedMutex, dispatcher notification.Dispatcher) *Service {
	return &Service{repo: repo, locks: locks, dispatcher: dispatcher}
}

func membershipKey(groupID, userID int64) string {
	return fmt.Sprintf("group:%d:%d", groupID, userID)
}

// Create makes a new group; the creator becomes its first member atomically
func (s *Service) Create(ctx context.Context, creatorID int64, req *CreateGroupRequest) (*Group, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, ErrMissingTitle
	}

	g := &Group{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		ImageURL:    req.ImageURL,
		CreatorID:   creatorID,
	}
	if err := s.repo.CreateWithCreator(ctx, g, time.Now().UTC()); err != nil {
		return nil, err
	}
	return g, nil
}

// Invite creates an invited membership for the target user. Any member may
// invite. A declined row is revived as a fresh invitation; any other existing
// row is a conflict. Exactly one of two concurrent invites for the same pair
// wins.
func (s *Service) Invite(ctx context.Context, inviterID int64, req *InviteRequest) (*Membership, error) {
	if err := s.requireMember(ctx, req.GroupID, inviterID); err != nil {
		return nil, err
	}

	exists, err := s.repo.UserExists(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	key := membershipKey(req.GroupID, req.UserID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	m, err := s.createPending(ctx, req.GroupID, req.UserID, StatusInvited, &inviterID)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notification.TypeInvitationCreated,
		"You have been invited to join a group",
		map[string]any{
			"invitation_id": m.ID,
			"group_id":      m.GroupID,
			"inviter_id":    inviterID,
		},
		[]int64{req.UserID})
	return m, nil
}

// RequestJoin creates a requested membership for the caller. A declined row
// is revived as a fresh request; any other existing row is a conflict.
func (s *Service) RequestJoin(ctx context.Context, userID, groupID int64) (*Membership, error) {
	g, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGroupNotFound
	}

	key := membershipKey(groupID, userID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	m, err := s.createPending(ctx, groupID, userID, StatusRequested, nil)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, notification.TypeMembershipChanged,
		"A user requested to join your group",
		map[string]any{
			"request_id": m.ID,
			"group_id":   groupID,
			"user_id":    userID,
			"status":     StatusRequested,
		},
		[]int64{g.CreatorID})
	return m, nil
}

// RespondInvitation resolves a pending invitation. Only the invitee may
// respond; accept promotes the row to member, decline parks it as declined.
// The losing side of a double resolution gets ErrNoPendingInvitation.
func (s *Service) RespondInvitation(ctx context.Context, actorID, membershipID int64, action string) (*Membership, error) {
	accept, err := parseAction(action)
	if err != nil {
		return nil, err
	}

	m, err := s.repo.GetMembershipByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if m == nil || m.Status != StatusInvited {
		return nil, ErrNoPendingInvitation
	}
	if m.UserID != actorID {
		return nil, ErrNotInvitee
	}

	key := membershipKey(m.GroupID, m.UserID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	resolved, err := s.resolve(ctx, m, StatusInvited, accept)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return nil, ErrNoPendingInvitation
	}

	if m.InvitedBy != nil {
		verb := "declined"
		if accept {
			verb = "accepted"
		}
		s.notify(ctx, notification.TypeMembershipChanged,
			fmt.Sprintf("Your group invitation was %s", verb),
			map[string]any{
				"group_id": m.GroupID,
				"user_id":  m.UserID,
				"status":   resolved.Status,
			},
			[]int64{*m.InvitedBy})
	}
	return resolved, nil
}

// RespondJoinRequest resolves a pending join request. Only the group creator
// may respond. The losing side of a double resolution gets
// ErrNoPendingJoinRequest.
func (s *Service) RespondJoinRequest(ctx context.Context, actorID, membershipID int64, action string) (*Membership, error) {
	accept, err := parseAction(action)
	if err != nil {
		return nil, err
	}

	m, err := s.repo.GetMembershipByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if m == nil || m.Status != StatusRequested {
		return nil, ErrNoPendingJoinRequest
	}

	g, err := s.repo.GetGroup(ctx, m.GroupID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGroupNotFound
	}
	if g.CreatorID != actorID {
		return nil, ErrNotCreator
	}

	key := membershipKey(m.GroupID, m.UserID)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	resolved, err := s.resolve(ctx, m, StatusRequested, accept)
	if err != nil {
		return nil, err
	}
	if resolved == nil {
		return nil, ErrNoPendingJoinRequest
	}

	verb := "declined"
	if accept {
		verb = "accepted"
	}
	s.notify(ctx, notification.TypeMembershipChanged,
		fmt.Sprintf("Your request to join %s was %s", g.Title, verb),
		map[string]any{
			"group_id": m.GroupID,
			"user_id":  m.UserID,
			"status":   resolved.Status,
		},
		[]int64{m.UserID})
	return resolved, nil
}

// Members returns the roster of a group. Member-only.
func (s *Service) Members(ctx context.Context, viewerID, groupID int64) ([]*MemberSummary, error) {
	if err := s.requireMember(ctx, groupID, viewerID); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, groupID)
}

// Invitations lists the caller's pending invitations
func (s *Service) Invitations(ctx context.Context, userID int64) ([]*InvitationResponse, error) {
	return s.repo.ListInvitations(ctx, userID)
}

// JoinRequests lists pending join requests across the caller's own groups
func (s *Service) JoinRequests(ctx context.Context, creatorID int64) ([]*JoinRequestResponse, error) {
	return s.repo.ListJoinRequests(ctx, creatorID)
}

// SearchInvitable finds users a member may invite: anyone matching the query
// without a live membership. Member-only.
func (s *Service) SearchInvitable(ctx context.Context, actorID, groupID int64, query string) ([]*InvitableUser, error) {
	if err := s.requireMember(ctx, groupID, actorID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return []*InvitableUser{}, nil
	}
	return s.repo.SearchInvitable(ctx, groupID, strings.TrimSpace(query), 20)
}

// Discover lists every group as its public summary
func (s *Service) Discover(ctx context.Context, userID int64) ([]*DiscoverItem, error) {
	return s.repo.Discover(ctx, userID)
}

// Mine lists the groups the caller belongs to
func (s *Service) Mine(ctx context.Context, userID int64) ([]*Group, error) {
	return s.repo.Mine(ctx, userID)
}

// Membership returns the caller's membership row for a group, or nil
func (s *Service) Membership(ctx context.Context, groupID, userID int64) (*Membership, error) {
	return s.repo.GetMembership(ctx, groupID, userID)
}

// createPending runs under the pair lock: revive a declined row, or insert a
// fresh one, and treat everything else as a conflict.
func (s *Service) createPending(ctx context.Context, groupID, userID int64, status string, invitedBy *int64) (*Membership, error) {
	existing, err := s.repo.GetMembership(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if existing != nil {
		if existing.Status != StatusDeclined {
			return nil, ErrMembershipExists
		}
		revived, err := s.repo.ReviveDeclined(ctx, groupID, userID, status, invitedBy, now)
		if err != nil {
			return nil, err
		}
		if revived == nil {
			// Raced with another revival of the same row.
			return nil, ErrMembershipExists
		}
		return revived, nil
	}

	m := &Membership{
		GroupID:   groupID,
		UserID:    userID,
		Status:    status,
		Role:      RoleMember,
		InvitedBy: invitedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertMembership(ctx, m); err != nil {
		if database.IsUniqueViolation(err) {
			return nil, ErrMembershipExists
		}
		return nil, err
	}
	return m, nil
}

func (s *Service) resolve(ctx context.Context, m *Membership, fromStatus string, accept bool) (*Membership, error) {
	toStatus, toRole := StatusDeclined, m.Role
	if accept {
		toStatus, toRole = StatusMember, RoleMember
	}

	ok, err := s.repo.Resolve(ctx, m.ID, fromStatus, toStatus, toRole, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	resolved := *m
	resolved.Status = toStatus
	resolved.Role = toRole
	return &resolved, nil
}

func (s *Service) requireMember(ctx context.Context, groupID, userID int64) error {
	g, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if g == nil {
		return ErrGroupNotFound
	}

	m, err := s.repo.GetMembership(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if m == nil || m.Status != StatusMember {
		return ErrNotMember
	}
	return nil
}

func (s *Service) notify(ctx context.Context, eventType, message string, payload map[string]any, recipients []int64) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Dispatch(ctx, &notification.Event{
		Type:       eventType,
		Message:    message,
		Payload:    payload,
		Recipients: recipients,
	})
}

func parseAction(action string) (bool, error) {
	switch action {
	case "accept":
		return true, nil
	case "decline":
		return false, nil
	default:
		return false, ErrInvalidRespondAction
	}
}
