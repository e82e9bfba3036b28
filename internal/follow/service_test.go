package follow

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nsaleh/socialnet/internal/database"
	"github.com/nsaleh/socialnet/internal/visibility"
	"github.com/nsaleh/socialnet/pkg/keylock"
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

func newTestService(t *testing.T, db *sql.DB, autoAccept bool) *Service {
	t.Helper()

	gate := visibility.NewService(visibility.NewRepository(db))
	return NewService(NewRepository(db), keylock.New(), nil, gate, autoAccept)
}

func TestRequestAutoAcceptsPublicFollowee(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", false)

	edge, err := svc.Request(ctx, alice, bob)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if edge.Status != StatusAccepted {
		t.Fatalf("status = %q, want %q", edge.Status, StatusAccepted)
	}
}

func TestRequestPendingForPrivateFollowee(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", true)

	edge, err := svc.Request(ctx, alice, bob)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if edge.Status != StatusPending {
		t.Fatalf("status = %q, want %q", edge.Status, StatusPending)
	}
}

func TestRequestWithAutoAcceptDisabled(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, false)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", false)

	edge, err := svc.Request(ctx, alice, bob)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if edge.Status != StatusPending {
		t.Fatalf("status = %q, want %q: public followees need explicit accept when auto-accept is off", edge.Status, StatusPending)
	}
}

func TestRequestIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", true)

	first, err := svc.Request(ctx, alice, bob)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}
	second, err := svc.Request(ctx, alice, bob)
	if err != nil {
		t.Fatalf("repeated request: %v", err)
	}
	if second.Status != first.Status {
		t.Fatalf("repeat returned status %q, want %q", second.Status, first.Status)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM follows`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("edge rows = %d, want 1", count)
	}
}

func TestRequestSelfFollow(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)

	alice := createUser(t, db, "alice@example.com", "alice", false)

	if _, err := svc.Request(context.Background(), alice, alice); !errors.Is(err, ErrSelfFollow) {
		t.Fatalf("err = %v, want ErrSelfFollow", err)
	}
}

func TestRequestUnknownFollowee(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)

	alice := createUser(t, db, "alice@example.com", "alice", false)

	if _, err := svc.Request(context.Background(), alice, 9999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestAcceptLifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", true)

	if _, err := svc.Request(ctx, alice, bob); err != nil {
		t.Fatalf("request: %v", err)
	}

	edge, err := svc.Accept(ctx, bob, alice)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if edge.Status != StatusAccepted {
		t.Fatalf("status = %q, want %q", edge.Status, StatusAccepted)
	}

	// Accepting an already-accepted edge is a no-op.
	if _, err := svc.Accept(ctx, bob, alice); err != nil {
		t.Fatalf("repeated accept: %v", err)
	}

	// But accepting with no edge at all is an invalid transition.
	carol := createUser(t, db, "carol@example.com", "carol", true)
	if _, err := svc.Accept(ctx, carol, alice); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestDeclineRemovesEdgeAndAllowsReRequest(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", true)

	if _, err := svc.Request(ctx, alice, bob); err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := svc.Decline(ctx, bob, alice); err != nil {
		t.Fatalf("decline: %v", err)
	}

	// Repeated decline is a no-op; the edge is simply gone.
	if err := svc.Decline(ctx, bob, alice); err != nil {
		t.Fatalf("repeated decline: %v", err)
	}

	edge, err := svc.Request(ctx, alice, bob)
	if err != nil {
		t.Fatalf("re-request after decline: %v", err)
	}
	if edge.Status != StatusPending {
		t.Fatalf("status = %q, want %q", edge.Status, StatusPending)
	}
}

func TestDeclineAcceptedEdgeIsInvalid(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", false)

	if _, err := svc.Request(ctx, alice, bob); err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := svc.Decline(ctx, bob, alice); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestCancelPendingRequest(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", true)

	if _, err := svc.Request(ctx, alice, bob); err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := svc.Cancel(ctx, alice, bob); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	edge, err := svc.Edge(ctx, alice, bob)
	if err != nil {
		t.Fatal(err)
	}
	if edge != nil {
		t.Fatalf("edge still present after cancel: %+v", edge)
	}
}

func TestUnfollow(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", false)

	if _, err := svc.Request(ctx, alice, bob); err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := svc.Unfollow(ctx, alice, bob); err != nil {
		t.Fatalf("unfollow: %v", err)
	}
	// Repeat is a no-op.
	if err := svc.Unfollow(ctx, alice, bob); err != nil {
		t.Fatalf("repeated unfollow: %v", err)
	}

	// Edge is gone; a fresh request starts a new cycle.
	edge, err := svc.Request(ctx, alice, bob)
	if err != nil {
		t.Fatalf("re-request: %v", err)
	}
	if edge.Status != StatusAccepted {
		t.Fatalf("status = %q, want %q", edge.Status, StatusAccepted)
	}
}

func TestUnfollowPendingEdgeIsInvalid(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", true)

	if _, err := svc.Request(ctx, alice, bob); err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := svc.Unfollow(ctx, alice, bob); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

func TestConcurrentRequestsProduceOneEdge(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", true)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Request(ctx, alice, bob)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM follows`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("edge rows = %d, want 1", count)
	}
}

func TestConnectionListsAreGated(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", true)
	carol := createUser(t, db, "carol@example.com", "carol", false)

	// Alice gets accepted by private Bob; Carol stays a stranger.
	if _, err := svc.Request(ctx, alice, bob); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Accept(ctx, bob, alice); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Followers(ctx, carol, bob); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("stranger err = %v, want ErrNotAllowed", err)
	}

	followers, err := svc.Followers(ctx, alice, bob)
	if err != nil {
		t.Fatalf("follower view: %v", err)
	}
	if len(followers) != 1 || followers[0].ID != alice {
		t.Fatalf("followers = %+v, want [alice]", followers)
	}
}

func TestPendingRequestsAndCounts(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", true)
	carol := createUser(t, db, "carol@example.com", "carol", false)

	if _, err := svc.Request(ctx, alice, bob); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Request(ctx, carol, bob); err != nil {
		t.Fatal(err)
	}

	pending, err := svc.PendingRequests(ctx, bob)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}

	if _, err := svc.Accept(ctx, bob, alice); err != nil {
		t.Fatal(err)
	}

	counts, err := svc.Counts(ctx, bob)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Followers != 1 || counts.Following != 0 {
		t.Fatalf("counts = %+v, want 1 follower, 0 following", counts)
	}
}

func TestDuplicateEdgeInsertIsUniqueViolation(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", false)
	now := time.Now().UTC()

	if err := repo.Insert(ctx, alice, bob, StatusPending, now); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := repo.Insert(ctx, alice, bob, StatusAccepted, now)
	if err == nil {
		t.Fatal("second insert succeeded, want primary key violation")
	}
	if !database.IsUniqueViolation(err) {
		t.Fatalf("err = %v, not detected as a unique violation", err)
	}
}

func TestRequestRecoversFromConcurrentInsert(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, true)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", true)

	// A writer in another process commits the edge after the existence check
	// has already come back empty.
	if err := svc.repo.Insert(ctx, alice, bob, StatusPending, time.Now().UTC()); err != nil {
		t.Fatalf("seed edge: %v", err)
	}

	edge, created, err := svc.insertEdge(ctx, alice, bob, StatusAccepted)
	if err != nil {
		t.Fatalf("insertEdge: %v", err)
	}
	if created {
		t.Fatal("created = true, want recovery of the committed edge")
	}
	if edge.Status != StatusPending {
		t.Fatalf("status = %q, want the committed pending edge", edge.Status)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM follows`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("edge rows = %d, want 1", count)
	}
}
