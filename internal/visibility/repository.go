package visibility

import (
	"context"
	"database/sql"
	"fmt"
)

// Repository answers the relationship predicates the gate is built from.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new visibility repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// UserPrivacy returns the privacy flag of a user, or sql.ErrNoRows wrapped
// when the user does not exist.
func (r *Repository) UserPrivacy(ctx context.Context, userID int64) (bool, error) {
	var private bool
	err := r.db.QueryRowContext(ctx, `SELECT is_private FROM users WHERE id = $1`, userID).Scan(&private)
	if err != nil {
		return false, fmt.Errorf("failed to get user privacy: %w", err)
	}
	return private, nil
}

// HasAcceptedFollow reports whether follower has an accepted edge to followee.
func (r *Repository) HasAcceptedFollow(ctx context.Context, followerID, followeeID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM follows
			WHERE follower_id = $1 AND followee_id = $2 AND status = 'accepted'
		)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, followerID, followeeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check follow edge: %w", err)
	}
	return exists, nil
}

// IsGroupMember reports whether user holds a member membership in group.
func (r *Repository) IsGroupMember(ctx context.Context, userID, groupID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM group_members
			WHERE user_id = $1 AND group_id = $2 AND status = 'member'
		)
	`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, userID, groupID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check group membership: %w", err)
	}
	return exists, nil
}

// GroupExists reports whether a group exists.
func (r *Repository) GroupExists(ctx context.Context, groupID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM groups WHERE id = $1)`, groupID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check group: %w", err)
	}
	return exists, nil
}
