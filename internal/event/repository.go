package event

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository handles event and RSVP persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new event repository with database dependency injected
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateWithCreatorRSVP inserts an event and the creator's going RSVP in one
// transaction.
func (r *Repository) CreateWithCreatorRSVP(ctx context.Context, e *Event, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO group_events (group_id, creator_id, title, description, event_time, min_age, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, e.GroupID, e.CreatorID, e.Title, e.Description, e.EventTime, e.MinAge, now).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO event_responses (event_id, user_id, response, responded_at)
		VALUES ($1, $2, $3, $4)
	`, e.ID, e.CreatorID, ResponseGoing, now)
	if err != nil {
		return fmt.Errorf("failed to create creator RSVP: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event creation: %w", err)
	}
	e.CreatedAt = now
	return nil
}

// GetEvent retrieves an event by ID, or nil when it does not exist
func (r *Repository) GetEvent(ctx context.Context, id int64) (*Event, error) {
	query := `
		SELECT id, group_id, creator_id, title, description, event_time, min_age, created_at
		FROM group_events
		WHERE id = $1
	`

	e := &Event{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&e.ID, &e.GroupID, &e.CreatorID, &e.Title, &e.Description, &e.EventTime, &e.MinAge, &e.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// ListByGroup retrieves a group's events annotated with RSVP counts and the
// caller's own response, soonest first
func (r *Repository) ListByGroup(ctx context.Context, groupID, userID int64) ([]*EventResponse, error) {
	query := `
		SELECT e.id, e.group_id, e.creator_id, e.title, e.description, e.event_time, e.min_age, e.created_at,
			(SELECT er.response FROM event_responses er WHERE er.event_id = e.id AND er.user_id = $1),
			(SELECT COUNT(*) FROM event_responses g WHERE g.event_id = e.id AND g.response = 'going'),
			(SELECT COUNT(*) FROM event_responses n WHERE n.event_id = e.id AND n.response = 'not_going')
		FROM group_events e
		WHERE e.group_id = $2
		ORDER BY e.event_time
	`

	return r.listAnnotated(ctx, query, userID, groupID)
}

// ListGoing retrieves the group's events the caller RSVPed going to
func (r *Repository) ListGoing(ctx context.Context, groupID, userID int64) ([]*EventResponse, error) {
	query := `
		SELECT e.id, e.group_id, e.creator_id, e.title, e.description, e.event_time, e.min_age, e.created_at,
			(SELECT er.response FROM event_responses er WHERE er.event_id = e.id AND er.user_id = $1),
			(SELECT COUNT(*) FROM event_responses g WHERE g.event_id = e.id AND g.response = 'going'),
			(SELECT COUNT(*) FROM event_responses n WHERE n.event_id = e.id AND n.response = 'not_going')
		FROM group_events e
		WHERE e.group_id = $2
		  AND EXISTS (
			SELECT 1 FROM event_responses mine
			WHERE mine.event_id = e.id AND mine.user_id = $3 AND mine.response = 'going'
		  )
		ORDER BY e.event_time
	`

	return r.listAnnotated(ctx, query, userID, groupID, userID)
}

// ListUnresponded retrieves the group's events the caller has no RSVP row
// for. This is a recomputed projection, never stored.
func (r *Repository) ListUnresponded(ctx context.Context, groupID, userID int64) ([]*EventResponse, error) {
	query := `
		SELECT e.id, e.group_id, e.creator_id, e.title, e.description, e.event_time, e.min_age, e.created_at,
			(SELECT er.response FROM event_responses er WHERE er.event_id = e.id AND er.user_id = $1),
			(SELECT COUNT(*) FROM event_responses g WHERE g.event_id = e.id AND g.response = 'going'),
			(SELECT COUNT(*) FROM event_responses n WHERE n.event_id = e.id AND n.response = 'not_going')
		FROM group_events e
		WHERE e.group_id = $2
		  AND NOT EXISTS (
			SELECT 1 FROM event_responses mine
			WHERE mine.event_id = e.id AND mine.user_id = $3
		  )
		ORDER BY e.event_time
	`

	return r.listAnnotated(ctx, query, userID, groupID, userID)
}

// UpsertResponse records or overwrites the caller's RSVP. Last write wins.
func (r *Repository) UpsertResponse(ctx context.Context, eventID, userID int64, resp string, now time.Time) error {
	query := `
		INSERT INTO event_responses (event_id, user_id, response, responded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id, user_id)
		DO UPDATE SET response = excluded.response, responded_at = excluded.responded_at
	`

	if _, err := r.db.ExecContext(ctx, query, eventID, userID, resp, now); err != nil {
		return fmt.Errorf("failed to upsert RSVP: %w", err)
	}
	return nil
}

// MembershipStatus returns the caller's membership status in a group, or ""
// when no row exists
func (r *Repository) MembershipStatus(ctx context.Context, groupID, userID int64) (string, error) {
	var status string
	err := r.db.QueryRowContext(ctx,
		`SELECT status FROM group_members WHERE group_id = $1 AND user_id = $2`,
		groupID, userID).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to get membership: %w", err)
	}
	return status, nil
}

// GroupExists reports whether a group exists
func (r *Repository) GroupExists(ctx context.Context, groupID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM groups WHERE id = $1)`, groupID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check group: %w", err)
	}
	return exists, nil
}

// MemberIDs retrieves the user IDs of a group's members
func (r *Repository) MemberIDs(ctx context.Context, groupID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM group_members WHERE group_id = $1 AND status = 'member'`, groupID)
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

func (r *Repository) listAnnotated(ctx context.Context, query string, args ...interface{}) ([]*EventResponse, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []*EventResponse{}
	for rows.Next() {
		e := &Event{}
		var userResponse *string
		var going, notGoing int
		err := rows.Scan(
			&e.ID, &e.GroupID, &e.CreatorID, &e.Title, &e.Description, &e.EventTime, &e.MinAge, &e.CreatedAt,
			&userResponse, &going, &notGoing,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		resp := e.ToResponse()
		resp.UserResponse = userResponse
		resp.GoingCount = going
		resp.NotGoingCount = notGoing
		events = append(events, resp)
	}
	return events, rows.Err()
}
