package sqlite

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
)

// newTestDB returns a fresh in-memory database that is closed when the test ends.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Name:         "User " + username,
		PasswordHash: "$2a$04$notarealhash",
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// =========================================================================
// CREATE
// =========================================================================

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)

	user := &model.User{Username: "alice", Name: "Alice"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	if user.ID == "" {
		t.Error("CreateUser() did not set user.ID")
	}
	if user.CreatedAt.IsZero() || user.UpdatedAt.IsZero() {
		t.Error("CreateUser() did not set timestamps")
	}
	if user.Bio != model.DefaultBio || user.ProfileImg != model.DefaultProfileImg {
		t.Error("CreateUser() did not apply profile defaults")
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "taken")

	err := db.CreateUser(context.Background(), &model.User{Username: "taken", Name: "Other"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateUser() error = %v, want ErrConflict", err)
	}
}

func TestCreateUser_GoogleIDUniqueOnlyWhenSet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Several password accounts share the empty Google id.
	createTestUser(t, db, "pw_one")
	createTestUser(t, db, "pw_two")

	if err := db.CreateUser(ctx, &model.User{Username: "g1", Name: "G", GoogleID: "sub-1"}); err != nil {
		t.Fatalf("CreateUser(g1) error = %v", err)
	}
	err := db.CreateUser(ctx, &model.User{Username: "g2", Name: "G", GoogleID: "sub-1"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreateUser(g2) error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// LOOKUPS
// =========================================================================

func TestGetUser_Lookups(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created := &model.User{Username: "gopher", Name: "Gopher", GoogleID: "google-sub-7", Email: "g@example.com"}
	if err := db.CreateUser(ctx, created); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	byID, err := db.GetUserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	byName, err := db.GetUserByUsername(ctx, "gopher")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	byGoogle, err := db.GetUserByGoogleID(ctx, "google-sub-7")
	if err != nil {
		t.Fatalf("GetUserByGoogleID() error = %v", err)
	}

	for _, u := range []*model.User{byID, byName, byGoogle} {
		if u.ID != created.ID || u.Email != "g@example.com" || u.GoogleID != "google-sub-7" {
			t.Errorf("lookup returned %+v, want user %s", u, created.ID)
		}
		if u.Followers == nil || u.Following == nil {
			t.Error("follow sets should be empty slices, not nil")
		}
	}
}

func TestGetUser_NotFound(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.GetUserByID(ctx, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByID() error = %v, want ErrNotFound", err)
	}
	if _, err := db.GetUserByUsername(ctx, "missing"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByUsername() error = %v, want ErrNotFound", err)
	}
	if _, err := db.GetUserByGoogleID(ctx, ""); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByGoogleID(\"\") error = %v, want ErrNotFound", err)
	}
}

func TestGetUsersByIDs_PreservesOrderAndSkipsUnknown(t *testing.T) {
	db := newTestDB(t)
	a := createTestUser(t, db, "a_user")
	b := createTestUser(t, db, "b_user")
	c := createTestUser(t, db, "c_user")

	users, err := db.GetUsersByIDs(context.Background(), []string{c.ID, "ghost", a.ID, b.ID})
	if err != nil {
		t.Fatalf("GetUsersByIDs() error = %v", err)
	}

	var got []string
	for _, u := range users {
		got = append(got, u.Username)
	}
	want := []string{"c_user", "a_user", "b_user"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetUsersByIDs() usernames = %v, want %v", got, want)
	}

	empty, err := db.GetUsersByIDs(context.Background(), nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("GetUsersByIDs(nil) = %v, %v; want empty, nil", empty, err)
	}
}

// =========================================================================
// UPDATE
// =========================================================================

func TestUpdateUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "editor")

	u.Name = "Renamed"
	u.Bio = "new bio"
	u.ProfileImg = "https://cdn.example.com/p.png"
	u.PasswordHash = "$2a$04$otherhash"
	if err := db.UpdateUser(ctx, u); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}

	got, err := db.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.Name != "Renamed" || got.Bio != "new bio" || got.ProfileImg != u.ProfileImg || got.PasswordHash != u.PasswordHash {
		t.Errorf("UpdateUser() did not persist fields: %+v", got)
	}
	if got.Username != "editor" {
		t.Errorf("Username = %q, want it unchanged", got.Username)
	}

	missing := &model.User{ID: "nope"}
	if err := db.UpdateUser(ctx, missing); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateUser(missing) error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// FOLLOW GRAPH
// =========================================================================

func TestToggleFollow_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	actor := createTestUser(t, db, "actor")
	target := createTestUser(t, db, "target")

	following, err := db.ToggleFollow(ctx, actor.ID, target.ID)
	if err != nil {
		t.Fatalf("ToggleFollow() error = %v", err)
	}
	if !following {
		t.Fatal("first ToggleFollow() should follow")
	}

	a, _ := db.GetUserByID(ctx, actor.ID)
	tg, _ := db.GetUserByID(ctx, target.ID)
	if !reflect.DeepEqual(a.Following, []string{target.ID}) {
		t.Errorf("actor.Following = %v, want [%s]", a.Following, target.ID)
	}
	if !reflect.DeepEqual(tg.Followers, []string{actor.ID}) {
		t.Errorf("target.Followers = %v, want [%s]", tg.Followers, actor.ID)
	}

	following, err = db.ToggleFollow(ctx, actor.ID, target.ID)
	if err != nil {
		t.Fatalf("ToggleFollow() second error = %v", err)
	}
	if following {
		t.Fatal("second ToggleFollow() should unfollow")
	}

	a, _ = db.GetUserByID(ctx, actor.ID)
	tg, _ = db.GetUserByID(ctx, target.ID)
	if len(a.Following) != 0 || len(tg.Followers) != 0 {
		t.Errorf("edge not removed: following=%v followers=%v", a.Following, tg.Followers)
	}
}

func TestToggleFollow_KeepsEdgeOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	star := createTestUser(t, db, "star")
	fans := []*model.User{createTestUser(t, db, "fan_c"), createTestUser(t, db, "fan_a"), createTestUser(t, db, "fan_b")}

	var want []string
	for _, f := range fans {
		if _, err := db.ToggleFollow(ctx, f.ID, star.ID); err != nil {
			t.Fatalf("ToggleFollow() error = %v", err)
		}
		want = append(want, f.ID)
	}

	got, _ := db.GetUserByID(ctx, star.ID)
	if !reflect.DeepEqual(got.Followers, want) {
		t.Errorf("Followers = %v, want creation order %v", got.Followers, want)
	}
}

func TestToggleFollow_UnknownUser(t *testing.T) {
	db := newTestDB(t)
	actor := createTestUser(t, db, "lonely")

	_, err := db.ToggleFollow(context.Background(), actor.ID, "ghost")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("ToggleFollow() error = %v, want ErrNotFound", err)
	}
}
