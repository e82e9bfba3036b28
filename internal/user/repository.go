package user

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Repository handles user data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new user repository with database dependency injected
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user into the database
func (r *Repository) Create(ctx context.Context, req *RegisterRequest, passwordHash string, now time.Time) (*User, error) {
	query := `
		INSERT INTO users (email, username, password_hash, about_me, avatar_url, is_private, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	user := &User{
		Email:     req.Email,
		Username:  req.Username,
		AboutMe:   req.AboutMe,
		AvatarURL: req.AvatarURL,
		Private:   req.Private,
		CreatedAt: now,
	}
	err := r.db.QueryRowContext(ctx, query,
		req.Email, req.Username, passwordHash, req.AboutMe, req.AvatarURL, req.Private, now,
	).Scan(&user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetByID retrieves a user by their ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT id, email, username, about_me, avatar_url, is_private, created_at
		FROM users
		WHERE id = $1
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByEmail retrieves a user by their email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, username, about_me, avatar_url, is_private, created_at
		FROM users
		WHERE email = $1
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

// GetCredentials retrieves the stored password hash for an email
func (r *Repository) GetCredentials(ctx context.Context, email string) (*Credentials, error) {
	query := `SELECT id, password_hash FROM users WHERE email = $1`

	creds := &Credentials{}
	err := r.db.QueryRowContext(ctx, query, email).Scan(&creds.UserID, &creds.PasswordHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}
	return creds, nil
}

// UpdateProfile modifies the mutable profile fields of a user
func (r *Repository) UpdateProfile(ctx context.Context, id int64, req *UpdateProfileRequest) (*User, error) {
	query := `
		UPDATE users
		SET username = COALESCE($1, username),
		    about_me = COALESCE($2, about_me),
		    avatar_url = COALESCE($3, avatar_url)
		WHERE id = $4
		RETURNING id, email, username, about_me, avatar_url, is_private, created_at
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, req.Username, req.AboutMe, req.AvatarURL, id))
}

// SetPrivacy flips the privacy flag. Switching a profile public accepts all
// pending follow requests in the same transaction, so followers gained by
// going public are indistinguishable from explicitly accepted ones.
func (r *Repository) SetPrivacy(ctx context.Context, id int64, private bool) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `UPDATE users SET is_private = $1 WHERE id = $2`, private, id)
	if err != nil {
		return fmt.Errorf("failed to update privacy: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if !private {
		_, err = tx.ExecContext(ctx,
			`UPDATE follows SET status = 'accepted' WHERE followee_id = $1 AND status = 'pending'`, id)
		if err != nil {
			return fmt.Errorf("failed to accept pending follow requests: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit privacy change: %w", err)
	}
	return nil
}

func (r *Repository) scanOne(row *sql.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.AboutMe,
		&user.AvatarURL,
		&user.Private,
		&user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}
