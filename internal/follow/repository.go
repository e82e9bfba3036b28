package follow

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository handles follow edge persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new follow repository with database dependency injected
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Get retrieves the edge from follower to followee, or nil when none exists
func (r *Repository) Get(ctx context.Context, followerID, followeeID int64) (*Edge, error) {
	query := `
		SELECT follower_id, followee_id, status, created_at
		FROM follows
		WHERE follower_id = $1 AND followee_id = $2
	`

	edge := &Edge{}
	err := r.db.QueryRowContext(ctx, query, followerID, followeeID).Scan(
		&edge.FollowerID, &edge.FolloweeID, &edge.Status, &edge.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get follow edge: %w", err)
	}
	return edge, nil
}

// Insert creates a new edge. The primary key on (follower_id, followee_id)
// rejects a duplicate; callers translate the unique violation.
func (r *Repository) Insert(ctx context.Context, followerID, followeeID int64, status string, now time.Time) error {
	query := `
		INSERT INTO follows (follower_id, followee_id, status, created_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.db.ExecContext(ctx, query, followerID, followeeID, status, now); err != nil {
		return fmt.Errorf("failed to insert follow edge: %w", err)
	}
	return nil
}

// UpdateStatus transitions the edge from one status to another. Returns false
// when the edge was not in the expected status, leaving state untouched.
func (r *Repository) UpdateStatus(ctx context.Context, followerID, followeeID int64, from, to string) (bool, error) {
	query := `
		UPDATE follows SET status = $1
		WHERE follower_id = $2 AND followee_id = $3 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query, to, followerID, followeeID, from)
	if err != nil {
		return false, fmt.Errorf("failed to update follow edge: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// DeleteWithStatus removes the edge only if it is in the given status.
// Returns false when no matching edge existed.
func (r *Repository) DeleteWithStatus(ctx context.Context, followerID, followeeID int64, status string) (bool, error) {
	query := `
		DELETE FROM follows
		WHERE follower_id = $1 AND followee_id = $2 AND status = $3
	`

	result, err := r.db.ExecContext(ctx, query, followerID, followeeID, status)
	if err != nil {
		return false, fmt.Errorf("failed to delete follow edge: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// ListPending retrieves the users with a pending follow request to followee
func (r *Repository) ListPending(ctx context.Context, followeeID int64) ([]*UserSummary, error) {
	query := `
		SELECT u.id, u.username, u.avatar_url
		FROM follows f
		JOIN users u ON u.id = f.follower_id
		WHERE f.followee_id = $1 AND f.status = 'pending'
		ORDER BY f.created_at DESC
	`

	return r.listUsers(ctx, query, followeeID)
}

// ListFollowers retrieves the accepted followers of a user
func (r *Repository) ListFollowers(ctx context.Context, userID int64) ([]*UserSummary, error) {
	query := `
		SELECT u.id, u.username, u.avatar_url
		FROM follows f
		JOIN users u ON u.id = f.follower_id
		WHERE f.followee_id = $1 AND f.status = 'accepted'
		ORDER BY u.username
	`

	return r.listUsers(ctx, query, userID)
}

// ListFollowing retrieves the users a user follows with an accepted edge
func (r *Repository) ListFollowing(ctx context.Context, userID int64) ([]*UserSummary, error) {
	query := `
		SELECT u.id, u.username, u.avatar_url
		FROM follows f
		JOIN users u ON u.id = f.followee_id
		WHERE f.follower_id = $1 AND f.status = 'accepted'
		ORDER BY u.username
	`

	return r.listUsers(ctx, query, userID)
}

// Counts returns the accepted follower and following totals for a user
func (r *Repository) Counts(ctx context.Context, userID int64) (followers, following int, err error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM follows WHERE followee_id = $1 AND status = 'accepted'),
			(SELECT COUNT(*) FROM follows WHERE follower_id = $2 AND status = 'accepted')
	`

	err = r.db.QueryRowContext(ctx, query, userID, userID).Scan(&followers, &following)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count follows: %w", err)
	}
	return followers, following, nil
}

// UserSummary retrieves the compact representation of a user, or nil when
// the user does not exist
func (r *Repository) UserSummary(ctx context.Context, userID int64) (*UserSummary, error) {
	query := `SELECT id, username, avatar_url FROM users WHERE id = $1`

	u := &UserSummary{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&u.ID, &u.Username, &u.AvatarURL)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// UserPrivacy returns the privacy flag of a user. The bool result is only
// meaningful when found is true.
func (r *Repository) UserPrivacy(ctx context.Context, userID int64) (private, found bool, err error) {
	err = r.db.QueryRowContext(ctx, `SELECT is_private FROM users WHERE id = $1`, userID).Scan(&private)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, false, nil
		}
		return false, false, fmt.Errorf("failed to get user privacy: %w", err)
	}
	return private, true, nil
}

func (r *Repository) listUsers(ctx context.Context, query string, args ...interface{}) ([]*UserSummary, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*UserSummary{}
	for rows.Next() {
		u := &UserSummary{}
		if err := rows.Scan(&u.ID, &u.Username, &u.AvatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
