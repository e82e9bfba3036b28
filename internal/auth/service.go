package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Service handles session business logic
type Service struct {
	repo *Repository
	ttl  time.Duration
}

// NewService creates a new session service
func NewService(repo *Repository, ttl time.Duration) *Service {
	return &Service{repo: repo, ttl: ttl}
}

// Create opens a new session for the given user
func (s *Service) Create(ctx context.Context, userID int64) (*Session, error) {
	now := time.Now().UTC()
	session := &Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}

	if err := s.repo.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Validate resolves a token to the user ID it belongs to. Expired sessions
// are removed as a side effect.
func (s *Service) Validate(ctx context.Context, token string) (int64, error) {
	session, err := s.repo.Get(ctx, token)
	if err != nil {
		return 0, err
	}
	if session == nil {
		return 0, ErrSessionNotFound
	}
	if time.Now().After(session.ExpiresAt) {
		_ = s.repo.Delete(ctx, token)
		return 0, ErrSessionExpired
	}
	return session.UserID, nil
}

// Destroy ends the session for the given token
func (s *Service) Destroy(ctx context.Context, token string) error {
	return s.repo.Delete(ctx, token)
}
