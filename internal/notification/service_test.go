package notification

import (
	"context"
	"database/sql"
	"encoding/json"
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

func createUser(t *testing.T, db *sql.DB, email, username string) int64 {
	t.Helper()

	var id int64
	err := db.QueryRow(`
		INSERT INTO users (email, username, password_hash, is_private, created_at)
		VALUES ($1, $2, 'x', $3, CURRENT_TIMESTAMP)
		RETURNING id
	`, email, username, false).Scan(&id)
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return id
}

func TestDispatchPersistsPerRecipient(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(NewRepository(db), nil)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice")
	bob := createUser(t, db, "bob@example.com", "bob")

	svc.Dispatch(ctx, &Event{
		Type:       TypeEventCreated,
		Message:    "New event: hike",
		Payload:    map[string]any{"event_id": int64(7)},
		Recipients: []int64{alice, bob},
	})

	for _, recipient := range []int64{alice, bob} {
		notifications, err := svc.List(ctx, recipient, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(notifications) != 1 {
			t.Fatalf("recipient %d has %d notifications, want 1", recipient, len(notifications))
		}
		n := notifications[0]
		if n.Type != TypeEventCreated || n.IsRead {
			t.Fatalf("notification = %+v, want unread %s", n, TypeEventCreated)
		}

		var payload map[string]any
		if err := json.Unmarshal(n.Payload, &payload); err != nil {
			t.Fatalf("payload is not valid JSON: %v", err)
		}
		if payload["event_id"] != float64(7) {
			t.Fatalf("payload = %v, want event_id 7", payload)
		}
	}
}

func TestUnreadCountAndMarkAsRead(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(NewRepository(db), nil)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice")
	bob := createUser(t, db, "bob@example.com", "bob")

	for i := 0; i < 3; i++ {
		svc.Dispatch(ctx, &Event{
			Type:       TypeFollowStateChanged,
			Message:    "someone followed you",
			Recipients: []int64{alice},
		})
	}

	count, err := svc.UnreadCount(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Fatalf("unread = %d, want 3", count)
	}

	notifications, err := svc.List(ctx, alice, 0)
	if err != nil {
		t.Fatal(err)
	}

	// Marking is scoped to the recipient: Bob cannot touch Alice's rows.
	if err := svc.MarkAsRead(ctx, notifications[0].ID, bob); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("err = %v, want ErrNotificationNotFound", err)
	}

	if err := svc.MarkAsRead(ctx, notifications[0].ID, alice); err != nil {
		t.Fatalf("mark as read: %v", err)
	}
	count, err = svc.UnreadCount(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("unread = %d, want 2", count)
	}

	if err := svc.MarkAllAsRead(ctx, alice); err != nil {
		t.Fatalf("mark all as read: %v", err)
	}
	count, err = svc.UnreadCount(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("unread = %d, want 0", count)
	}
}

func TestListLimit(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(NewRepository(db), nil)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice")
	for i := 0; i < 5; i++ {
		svc.Dispatch(ctx, &Event{
			Type:       TypeMembershipChanged,
			Message:    "membership changed",
			Recipients: []int64{alice},
		})
	}

	notifications, err := svc.List(ctx, alice, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(notifications) != 2 {
		t.Fatalf("listed %d, want 2", len(notifications))
	}
}

func TestDispatchToUnknownRecipientIsSwallowed(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(NewRepository(db), nil)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice")

	// The bad recipient fails its foreign key; the good one still gets a row.
	svc.Dispatch(ctx, &Event{
		Type:       TypeInvitationCreated,
		Message:    "invited",
		Recipients: []int64{9999, alice},
	})

	notifications, err := svc.List(ctx, alice, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(notifications) != 1 {
		t.Fatalf("alice has %d notifications, want 1", len(notifications))
	}
}
