package group

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nsaleh/socialnet/internal/database"
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

func newTestService(t *testing.T, db *sql.DB) *Service {
	t.Helper()
	return NewService(NewRepository(db), keylock.New(), nil)
}

func createGroup(t *testing.T, svc *Service, creatorID int64, title string) *Group {
	t.Helper()

	g, err := svc.Create(context.Background(), creatorID, &CreateGroupRequest{Title: title})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	return g
}

func TestCreateGroupMakesCreatorMember(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	g := createGroup(t, svc, alice, "book club")

	m, err := svc.Membership(ctx, g.ID, alice)
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Status != StatusMember || m.Role != RoleCreator {
		t.Fatalf("creator membership = %+v, want member/creator", m)
	}

	members, err := svc.Members(ctx, alice, g.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 1 || members[0].UserID != alice {
		t.Fatalf("members = %+v, want [creator]", members)
	}
}

func TestCreateGroupRequiresTitle(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)

	alice := createUser(t, db, "alice@example.com", "alice", false)
	if _, err := svc.Create(context.Background(), alice, &CreateGroupRequest{Title: "  "}); !errors.Is(err, ErrMissingTitle) {
		t.Fatalf("err = %v, want ErrMissingTitle", err)
	}
}

func TestInviteAcceptLifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", false)
	g := createGroup(t, svc, alice, "book club")

	inv, err := svc.Invite(ctx, alice, &InviteRequest{GroupID: g.ID, UserID: bob})
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if inv.Status != StatusInvited {
		t.Fatalf("status = %q, want %q", inv.Status, StatusInvited)
	}

	// The invitation shows up for Bob.
	invitations, err := svc.Invitations(ctx, bob)
	if err != nil {
		t.Fatal(err)
	}
	if len(invitations) != 1 || invitations[0].ID != inv.ID {
		t.Fatalf("invitations = %+v, want the new one", invitations)
	}
	if _, err := time.Parse(time.RFC3339, invitations[0].CreatedAt); err != nil {
		t.Fatalf("created_at %q is not RFC 3339: %v", invitations[0].CreatedAt, err)
	}

	resolved, err := svc.RespondInvitation(ctx, bob, inv.ID, "accept")
	if err != nil {
		t.Fatalf("accept invitation: %v", err)
	}
	if resolved.Status != StatusMember {
		t.Fatalf("status = %q, want %q", resolved.Status, StatusMember)
	}

	// One row per (group, user): membership replaced the invitation.
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM group_members WHERE group_id = $1 AND user_id = $2`, g.ID, bob).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("membership rows = %d, want 1", count)
	}
}

func TestInviteConflictsWithLiveMembership(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", false)
	g := createGroup(t, svc, alice, "book club")

	if _, err := svc.Invite(ctx, alice, &InviteRequest{GroupID: g.ID, UserID: bob}); err != nil {
		t.Fatal(err)
	}

	// Invited again while the first invitation is pending.
	if _, err := svc.Invite(ctx, alice, &InviteRequest{GroupID: g.ID, UserID: bob}); !errors.Is(err, ErrMembershipExists) {
		t.Fatalf("err = %v, want ErrMembershipExists", err)
	}

	// Inviting the creator, an existing member, also conflicts.
	if _, err := svc.Invite(ctx, alice, &InviteRequest{GroupID: g.ID, UserID: alice}); !errors.Is(err, ErrMembershipExists) {
		t.Fatalf("err = %v, want ErrMembershipExists", err)
	}
}

func TestInviteRequiresMembership(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", false)
	carol := createUser(t, db, "carol@example.com", "carol", false)
	g := createGroup(t, svc, alice, "book club")

	if _, err := svc.Invite(ctx, bob, &InviteRequest{GroupID: g.ID, UserID: carol}); !errors.Is(err, ErrNotMember) {
		t.Fatalf("err = %v, want ErrNotMember", err)
	}
}

func TestReInviteAfterDecline(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", false)
	g := createGroup(t, svc, alice, "book club")

	inv, err := svc.Invite(ctx, alice, &InviteRequest{GroupID: g.ID, UserID: bob})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RespondInvitation(ctx, bob, inv.ID, "decline"); err != nil {
		t.Fatalf("decline: %v", err)
	}

	// A declined row is revived as a fresh invitation cycle.
	revived, err := svc.Invite(ctx, alice, &InviteRequest{GroupID: g.ID, UserID: bob})
	if err != nil {
		t.Fatalf("re-invite: %v", err)
	}
	if revived.Status != StatusInvited {
		t.Fatalf("status = %q, want %q", revived.Status, StatusInvited)
	}
	if revived.ID != inv.ID {
		t.Fatalf("revival created a second row: %d != %d", revived.ID, inv.ID)
	}
}

func TestRequestJoinAfterDeclinedInvite(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", false)
	g := createGroup(t, svc, alice, "book club")

	inv, err := svc.Invite(ctx, alice, &InviteRequest{GroupID: g.ID, UserID: bob})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RespondInvitation(ctx, bob, inv.ID, "decline"); err != nil {
		t.Fatalf("decline: %v", err)
	}

	// Bob changes his mind: the declined row is revived as his own join
	// request, shedding the inviter.
	req, err := svc.RequestJoin(ctx, bob, g.ID)
	if err != nil {
		t.Fatalf("request join: %v", err)
	}
	if req.Status != StatusRequested {
		t.Fatalf("status = %q, want %q", req.Status, StatusRequested)
	}
	if req.ID != inv.ID {
		t.Fatalf("revival created a second row: %d != %d", req.ID, inv.ID)
	}
	if req.InvitedBy != nil {
		t.Fatalf("invited_by = %d, want cleared", *req.InvitedBy)
	}

	if _, err := svc.RespondJoinRequest(ctx, alice, req.ID, "accept"); err != nil {
		t.Fatalf("accept join request: %v", err)
	}
	m, err := svc.Membership(ctx, g.ID, bob)
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Status != StatusMember {
		t.Fatalf("membership = %+v, want member", m)
	}
}

func TestRespondInvitationAuthorization(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", false)
	carol := createUser(t, db, "carol@example.com", "carol", false)
	g := createGroup(t, svc, alice, "book club")

	inv, err := svc.Invite(ctx, alice, &InviteRequest{GroupID: g.ID, UserID: bob})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.RespondInvitation(ctx, carol, inv.ID, "accept"); !errors.Is(err, ErrNotInvitee) {
		t.Fatalf("err = %v, want ErrNotInvitee", err)
	}
	if _, err := svc.RespondInvitation(ctx, bob, inv.ID, "maybe"); !errors.Is(err, ErrInvalidRespondAction) {
		t.Fatalf("err = %v, want ErrInvalidRespondAction", err)
	}
}

func TestRespondInvitationIsOneShot(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", false)
	g := createGroup(t, svc, alice, "book club")

	inv, err := svc.Invite(ctx, alice, &InviteRequest{GroupID: g.ID, UserID: bob})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.RespondInvitation(ctx, bob, inv.ID, "accept"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RespondInvitation(ctx, bob, inv.ID, "accept"); !errors.Is(err, ErrNoPendingInvitation) {
		t.Fatalf("err = %v, want ErrNoPendingInvitation", err)
	}
}

func TestRequestJoinAndRespond(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", false)
	g := createGroup(t, svc, alice, "book club")

	req, err := svc.RequestJoin(ctx, bob, g.ID)
	if err != nil {
		t.Fatalf("request join: %v", err)
	}
	if req.Status != StatusRequested {
		t.Fatalf("status = %q, want %q", req.Status, StatusRequested)
	}

	// Only the creator may resolve it.
	if _, err := svc.RespondJoinRequest(ctx, bob, req.ID, "accept"); !errors.Is(err, ErrNotCreator) {
		t.Fatalf("err = %v, want ErrNotCreator", err)
	}

	requests, err := svc.JoinRequests(ctx, alice)
	if err != nil {
		t.Fatal(err)
	}
	if len(requests) != 1 || requests[0].ID != req.ID {
		t.Fatalf("join requests = %+v, want the new one", requests)
	}

	resolved, err := svc.RespondJoinRequest(ctx, alice, req.ID, "accept")
	if err != nil {
		t.Fatalf("accept join request: %v", err)
	}
	if resolved.Status != StatusMember {
		t.Fatalf("status = %q, want %q", resolved.Status, StatusMember)
	}

	// The losing repeat of the resolution gets a not-found.
	if _, err := svc.RespondJoinRequest(ctx, alice, req.ID, "accept"); !errors.Is(err, ErrNoPendingJoinRequest) {
		t.Fatalf("err = %v, want ErrNoPendingJoinRequest", err)
	}
}

func TestRequestJoinConflictsWithLiveMembership(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", false)
	g := createGroup(t, svc, alice, "book club")

	if _, err := svc.RequestJoin(ctx, bob, g.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RequestJoin(ctx, bob, g.ID); !errors.Is(err, ErrMembershipExists) {
		t.Fatalf("err = %v, want ErrMembershipExists", err)
	}
	// An invited or member user cannot also request to join.
	if _, err := svc.RequestJoin(ctx, alice, g.ID); !errors.Is(err, ErrMembershipExists) {
		t.Fatalf("creator err = %v, want ErrMembershipExists", err)
	}
}

func TestConcurrentInvitesCollapseToOneWinner(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", false)
	carol := createUser(t, db, "carol@example.com", "carol", false)
	g := createGroup(t, svc, alice, "book club")

	// Make Bob a member so both Alice and Bob can race to invite Carol.
	inv, err := svc.Invite(ctx, alice, &InviteRequest{GroupID: g.ID, UserID: bob})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.RespondInvitation(ctx, bob, inv.ID, "accept"); err != nil {
		t.Fatal(err)
	}

	inviters := []int64{alice, bob}
	errs := make([]error, len(inviters))
	var wg sync.WaitGroup
	for i, inviter := range inviters {
		wg.Add(1)
		go func(i int, inviter int64) {
			defer wg.Done()
			_, errs[i] = svc.Invite(ctx, inviter, &InviteRequest{GroupID: g.ID, UserID: carol})
		}(i, inviter)
	}
	wg.Wait()

	winners, losers := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrMembershipExists):
			losers++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 || losers != 1 {
		t.Fatalf("winners = %d, losers = %d, want exactly one of each", winners, losers)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM group_members WHERE group_id = $1 AND user_id = $2`, g.ID, carol).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("membership rows = %d, want 1", count)
	}
}

func TestSearchInvitableExcludesLiveMemberships(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bobby", false)
	carol := createUser(t, db, "carol@example.com", "bobcat", false)
	g := createGroup(t, svc, alice, "book club")

	inv, err := svc.Invite(ctx, alice, &InviteRequest{GroupID: g.ID, UserID: bob})
	if err != nil {
		t.Fatal(err)
	}

	// Bob holds a live invitation, Carol does not.
	hits, err := svc.SearchInvitable(ctx, alice, g.ID, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != carol {
		t.Fatalf("hits = %+v, want [bobcat]", hits)
	}

	// After Bob declines he becomes invitable again.
	if _, err := svc.RespondInvitation(ctx, bob, inv.ID, "decline"); err != nil {
		t.Fatal(err)
	}
	hits, err = svc.SearchInvitable(ctx, alice, g.ID, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2 after decline", len(hits))
	}
}

func TestSearchInvitableEmailMatchRespectsPrivacy(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	createUser(t, db, "zeta@example.com", "publicuser", false)
	createUser(t, db, "zeta2@example.com", "hiddenuser", true)
	g := createGroup(t, svc, alice, "book club")

	hits, err := svc.SearchInvitable(ctx, alice, g.ID, "zeta")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Username != "publicuser" {
		t.Fatalf("hits = %+v, want only the public user via email match", hits)
	}
}

func TestDiscoverShowsSummaries(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	alice := createUser(t, db, "alice@example.com", "alice", false)
	bob := createUser(t, db, "bob@example.com", "bob", false)
	g := createGroup(t, svc, alice, "book club")

	if _, err := svc.RequestJoin(ctx, bob, g.ID); err != nil {
		t.Fatal(err)
	}

	items, err := svc.Discover(ctx, bob)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	item := items[0]
	if item.MemberCount != 1 {
		t.Fatalf("member count = %d, want 1", item.MemberCount)
	}
	if item.MyMembership == nil || *item.MyMembership != StatusRequested {
		t.Fatalf("my membership = %v, want %q", item.MyMembership, StatusRequested)
	}

	// Non-members cannot read the roster.
	if _, err := svc.Members(ctx, bob, g.ID); !errors.Is(err, ErrNotMember) {
		t.Fatalf("err = %v, want ErrNotMember", err)
	}
}
