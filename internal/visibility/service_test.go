package visibility

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/nsaleh/socialnet/internal/database"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, dialect, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db, dialect); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *sql.DB, email, username string, private bool) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(`
		INSERT INTO users (email, username, password_hash, is_private, created_at)
		VALUES ($1, $2, 'x', $3, CURRENT_TIMESTAMP)
		RETURNING id
	`, email, username, private).Scan(&id)
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return id
}

func TestCanViewProfile(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(NewRepository(db))
	ctx := context.Background()

	public := createUser(t, db, "pub@example.com", "pub", false)
	private := createUser(t, db, "priv@example.com", "priv", true)
	follower := createUser(t, db, "fan@example.com", "fan", false)
	stranger := createUser(t, db, "str@example.com", "str", false)

	if _, err := db.Exec(`
		INSERT INTO follows (follower_id, followee_id, status, created_at)
		VALUES ($1, $2, 'accepted', CURRENT_TIMESTAMP)
	`, follower, private); err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name    string
		viewer  int64
		subject int64
		want    Level
	}{
		{"self", private, private, LevelFull},
		{"public subject", stranger, public, LevelFull},
		{"accepted follower of private subject", follower, private, LevelFull},
		{"stranger of private subject", stranger, private, LevelPartial},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.CanViewProfile(ctx, tc.viewer, tc.subject)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Fatalf("level = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanViewProfilePendingFollowIsNotEnough(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(NewRepository(db))

	private := createUser(t, db, "priv@example.com", "priv", true)
	requester := createUser(t, db, "req@example.com", "req", false)

	if _, err := db.Exec(`
		INSERT INTO follows (follower_id, followee_id, status, created_at)
		VALUES ($1, $2, 'pending', CURRENT_TIMESTAMP)
	`, requester, private); err != nil {
		t.Fatal(err)
	}

	level, err := svc.CanViewProfile(context.Background(), requester, private)
	if err != nil {
		t.Fatal(err)
	}
	if level != LevelPartial {
		t.Fatalf("level = %v, want partial for a pending follower", level)
	}
}

func TestCanViewProfileUnknownSubject(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(NewRepository(db))

	viewer := createUser(t, db, "v@example.com", "v", false)

	if _, err := svc.CanViewProfile(context.Background(), viewer, 9999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestCanViewGroup(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(NewRepository(db))
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", false)
	carol := createUser(t, db, "carol@example.com", "carol", false)

	var groupID int64
	if err := db.QueryRow(`
		INSERT INTO groups (title, description, creator_id, created_at)
		VALUES ('club', '', $1, CURRENT_TIMESTAMP)
		RETURNING id
	`, alice).Scan(&groupID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`
		INSERT INTO group_members (group_id, user_id, status, role, created_at, updated_at)
		VALUES ($1, $2, 'member', 'creator', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, groupID, alice); err != nil {
		t.Fatal(err)
	}
	// An invited user is not yet a member.
	if _, err := db.Exec(`
		INSERT INTO group_members (group_id, user_id, status, role, invited_by, created_at, updated_at)
		VALUES ($1, $2, 'invited', 'member', $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, groupID, bob, alice); err != nil {
		t.Fatal(err)
	}

	if ok, err := svc.CanViewGroup(ctx, alice, groupID); err != nil || !ok {
		t.Fatalf("member: ok=%v err=%v, want true", ok, err)
	}
	if ok, err := svc.CanViewGroup(ctx, bob, groupID); err != nil || ok {
		t.Fatalf("invitee: ok=%v err=%v, want false", ok, err)
	}
	if ok, err := svc.CanViewGroup(ctx, carol, groupID); err != nil || ok {
		t.Fatalf("stranger: ok=%v err=%v, want false", ok, err)
	}
	if _, err := svc.CanViewGroup(ctx, alice, 9999); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("err = %v, want ErrGroupNotFound", err)
	}
}
