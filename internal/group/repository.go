package group

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository handles group and membership persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new group repository with database dependency injected
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateWithCreator inserts a group and its creator's member row in one
// transaction, so a group is never observable without its creator membership.
func (r *Repository) CreateWithCreator(ctx context.Context, g *Group, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO groups (title, description, image_url, creator_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, g.Title, g.Description, g.ImageURL, g.CreatorID, now).Scan(&g.ID)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO group_members (group_id, user_id, status, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, g.ID, g.CreatorID, StatusMember, RoleCreator, now, now)
	if err != nil {
		return fmt.Errorf("failed to create creator membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit group creation: %w", err)
	}
	g.CreatedAt = now
	return nil
}

// GetGroup retrieves a group by ID, or nil when it does not exist
func (r *Repository) GetGroup(ctx context.Context, id int64) (*Group, error) {
	query := `
		SELECT id, title, description, image_url, creator_id, created_at
		FROM groups
		WHERE id = $1
	`

	g := &Group{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&g.ID, &g.Title, &g.Description, &g.ImageURL, &g.CreatorID, &g.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return g, nil
}

// GetMembership retrieves the membership row for (group, user), or nil
func (r *Repository) GetMembership(ctx context.Context, groupID, userID int64) (*Membership, error) {
	query := `
		SELECT id, group_id, user_id, status, role, invited_by, created_at, updated_at
		FROM group_members
		WHERE group_id = $1 AND user_id = $2
	`

	return r.scanMembership(r.db.QueryRowContext(ctx, query, groupID, userID))
}

// GetMembershipByID retrieves a membership row by its ID, or nil
func (r *Repository) GetMembershipByID(ctx context.Context, id int64) (*Membership, error) {
	query := `
		SELECT id, group_id, user_id, status, role, invited_by, created_at, updated_at
		FROM group_members
		WHERE id = $1
	`

	return r.scanMembership(r.db.QueryRowContext(ctx, query, id))
}

// InsertMembership creates a fresh membership row. UNIQUE(group_id, user_id)
// rejects a concurrent duplicate; callers translate the unique violation.
func (r *Repository) InsertMembership(ctx context.Context, m *Membership) error {
	query := `
		INSERT INTO group_members (group_id, user_id, status, role, invited_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		m.GroupID, m.UserID, m.Status, m.Role, m.InvitedBy, m.CreatedAt, m.UpdatedAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to insert membership: %w", err)
	}
	return nil
}

// ReviveDeclined rewrites a declined membership row as a fresh invitation or
// join request. Returns nil when the row is not declined (or gone), leaving
// it untouched.
func (r *Repository) ReviveDeclined(ctx context.Context, groupID, userID int64, status string, invitedBy *int64, now time.Time) (*Membership, error) {
	query := `
		UPDATE group_members
		SET status = $1, invited_by = $2, updated_at = $3
		WHERE group_id = $4 AND user_id = $5 AND status = $6
		RETURNING id, group_id, user_id, status, role, invited_by, created_at, updated_at
	`

	return r.scanMembership(r.db.QueryRowContext(ctx, query,
		status, invitedBy, now, groupID, userID, StatusDeclined))
}

// Resolve transitions a pending membership row to member or declined, guarded
// by its current status. Returns false when the row was already resolved.
func (r *Repository) Resolve(ctx context.Context, membershipID int64, fromStatus, toStatus, toRole string, now time.Time) (bool, error) {
	query := `
		UPDATE group_members
		SET status = $1, role = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`

	result, err := r.db.ExecContext(ctx, query, toStatus, toRole, now, membershipID, fromStatus)
	if err != nil {
		return false, fmt.Errorf("failed to resolve membership: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// ListMembers retrieves the member roster of a group
func (r *Repository) ListMembers(ctx context.Context, groupID int64) ([]*MemberSummary, error) {
	query := `
		SELECT u.id, u.username, u.avatar_url, gm.role, gm.updated_at
		FROM group_members gm
		JOIN users u ON u.id = gm.user_id
		WHERE gm.group_id = $1 AND gm.status = 'member'
		ORDER BY gm.updated_at
	`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []*MemberSummary{}
	for rows.Next() {
		m := &MemberSummary{}
		var joined time.Time
		if err := rows.Scan(&m.UserID, &m.Username, &m.AvatarURL, &m.Role, &joined); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		m.JoinedAt = joined.UTC().Format(time.RFC3339)
		members = append(members, m)
	}
	return members, rows.Err()
}

// MemberIDs retrieves the user IDs of a group's members
func (r *Repository) MemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	query := `SELECT user_id FROM group_members WHERE group_id = $1 AND status = 'member'`

	rows, err := r.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list member IDs: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member ID: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListInvitations retrieves a user's pending invitations, newest first
func (r *Repository) ListInvitations(ctx context.Context, userID int64) ([]*InvitationResponse, error) {
	query := `
		SELECT gm.id, g.id, g.title, u.id, u.username, gm.updated_at
		FROM group_members gm
		JOIN groups g ON g.id = gm.group_id
		JOIN users u ON u.id = gm.invited_by
		WHERE gm.user_id = $1 AND gm.status = 'invited'
		ORDER BY gm.updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	invitations := []*InvitationResponse{}
	for rows.Next() {
		inv := &InvitationResponse{}
		var created time.Time
		err := rows.Scan(&inv.ID, &inv.GroupID, &inv.GroupTitle, &inv.InviterID, &inv.InviterName, &created)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		inv.CreatedAt = created.UTC().Format(time.RFC3339)
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// ListJoinRequests retrieves the pending join requests across every group the
// given user created, newest first
func (r *Repository) ListJoinRequests(ctx context.Context, creatorID int64) ([]*JoinRequestResponse, error) {
	query := `
		SELECT gm.id, g.id, u.id, u.username, gm.updated_at
		FROM group_members gm
		JOIN groups g ON g.id = gm.group_id
		JOIN users u ON u.id = gm.user_id
		WHERE g.creator_id = $1 AND gm.status = 'requested'
		ORDER BY gm.updated_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list join requests: %w", err)
	}
	defer rows.Close()

	requests := []*JoinRequestResponse{}
	for rows.Next() {
		req := &JoinRequestResponse{}
		var created time.Time
		if err := rows.Scan(&req.ID, &req.GroupID, &req.UserID, &req.Username, &created); err != nil {
			return nil, fmt.Errorf("failed to scan join request: %w", err)
		}
		req.CreatedAt = created.UTC().Format(time.RFC3339)
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// SearchInvitable finds users matching the query who hold no live membership
// for the group. Private profiles match on username only; public ones also
// match on email.
func (r *Repository) SearchInvitable(ctx context.Context, groupID int64, query string, limit int) ([]*InvitableUser, error) {
	pattern := "%" + query + "%"
	sqlQuery := `
		SELECT u.id, u.username, u.avatar_url
		FROM users u
		WHERE (u.username LIKE $1 OR (u.is_private = $2 AND u.email LIKE $3))
		  AND NOT EXISTS (
			SELECT 1 FROM group_members gm
			WHERE gm.group_id = $4 AND gm.user_id = u.id AND gm.status != 'declined'
		  )
		ORDER BY u.username
		LIMIT $5
	`

	rows, err := r.db.QueryContext(ctx, sqlQuery, pattern, false, pattern, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	users := []*InvitableUser{}
	for rows.Next() {
		u := &InvitableUser{}
		if err := rows.Scan(&u.ID, &u.Username, &u.AvatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Discover lists every group with its member count and the caller's own
// membership status when one exists
func (r *Repository) Discover(ctx context.Context, userID int64) ([]*DiscoverItem, error) {
	query := `
		SELECT g.id, g.title, g.description,
			(SELECT COUNT(*) FROM group_members m WHERE m.group_id = g.id AND m.status = 'member'),
			(SELECT gm.status FROM group_members gm WHERE gm.group_id = g.id AND gm.user_id = $1)
		FROM groups g
		ORDER BY g.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	items := []*DiscoverItem{}
	for rows.Next() {
		item := &DiscoverItem{}
		if err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.MemberCount, &item.MyMembership); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Mine lists the groups where the user holds a member membership
func (r *Repository) Mine(ctx context.Context, userID int64) ([]*Group, error) {
	query := `
		SELECT g.id, g.title, g.description, g.image_url, g.creator_id, g.created_at
		FROM groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = $1 AND gm.status = 'member'
		ORDER BY g.created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	groups := []*Group{}
	for rows.Next() {
		g := &Group{}
		if err := rows.Scan(&g.ID, &g.Title, &g.Description, &g.ImageURL, &g.CreatorID, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// UserExists reports whether a user exists
func (r *Repository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return exists, nil
}

func (r *Repository) scanMembership(row *sql.Row) (*Membership, error) {
	m := &Membership{}
	err := row.Scan(
		&m.ID, &m.GroupID, &m.UserID, &m.Status, &m.Role, &m.InvitedBy, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan membership: %w", err)
	}
	return m, nil
}
