package visibility

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Common errors
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrGroupNotFound = errors.New("group not found")
)

// Service decides how much of a subject's content a viewer may see. Every
// decision is evaluated at request time against current state; nothing is
// cached.
type Service struct {
	repo *Repository
}

// NewService creates a new visibility service with repository dependency injected
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// CanViewProfile returns the visibility level viewer has on subject.
// Owners and followers of private subjects see everything; strangers of a
// private subject see the partial summary only.
func (s *Service) CanViewProfile(ctx context.Context, viewerID, subjectID int64) (Level, error) {
	if viewerID == subjectID {
		return LevelFull, nil
	}

	private, err := s.repo.UserPrivacy(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LevelNone, ErrUserNotFound
		}
		return LevelNone, err
	}
	if !private {
		return LevelFull, nil
	}

	follows, err := s.repo.HasAcceptedFollow(ctx, viewerID, subjectID)
	if err != nil {
		return LevelNone, err
	}
	if follows {
		return LevelFull, nil
	}
	return LevelPartial, nil
}

// CanViewGroup reports whether viewer may see a group's internal content
// (posts, events, member activity). Group summaries are visible to everyone;
// internals require a member membership.
func (s *Service) CanViewGroup(ctx context.Context, viewerID, groupID int64) (bool, error) {
	exists, err := s.repo.GroupExists(ctx, groupID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, ErrGroupNotFound
	}

	member, err := s.repo.IsGroupMember(ctx, viewerID, groupID)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate group visibility: %w", err)
	}
	return member, nil
}
