package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sakif/blog-platform/internal/ai"
	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/events"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository/sqlite"
)

// =========================================================================
// FAKES
// =========================================================================

// fakeBlobStore keeps uploads in memory.
type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (f *fakeBlobStore) Upload(_ context.Context, name, _ string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[name] = data
	return "https://blob.test/" + name, nil
}

func (f *fakeBlobStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// fakePublisher records published events.
type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakePublisher) Publish(_ context.Context, e events.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakePublisher) types() []events.Type {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.Type, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

// fakeGenerator returns canned answers.
type fakeGenerator struct {
	summary string
	post    *ai.GeneratedPost
	image   *ai.Image
	err     error
}

func (f *fakeGenerator) Summarize(context.Context, string) (string, error) {
	return f.summary, f.err
}

func (f *fakeGenerator) GeneratePost(context.Context, string) (*ai.GeneratedPost, error) {
	return f.post, f.err
}

func (f *fakeGenerator) GenerateImage(context.Context, string) (*ai.Image, error) {
	return f.image, f.err
}

// =========================================================================
// TEST ENVIRONMENT
// =========================================================================

type testEnv struct {
	db        *sqlite.DB
	blobs     *fakeBlobStore
	published *fakePublisher
	tokens    *auth.TokenService
	passwords *auth.PasswordService

	auth  *AuthService
	users *UserService
	posts *PostService
	feed  *FeedService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv wires every service over a fresh in-memory database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars", 0)
	require.NoError(t, err)

	env := &testEnv{
		db:        db,
		blobs:     newFakeBlobStore(),
		published: &fakePublisher{},
		tokens:    tokens,
		passwords: auth.NewPasswordServiceForTest(),
	}
	logger := discardLogger()
	env.auth = NewAuthService(db, tokens, env.passwords, logger)
	env.users = NewUserService(db, env.passwords, env.blobs, env.published, logger)
	env.posts = NewPostService(db, db, env.blobs, env.published, logger)
	env.feed = NewFeedService(db, db, logger)
	return env
}

const validPassword = "Str0ng!pass"

// register creates a password account and returns its identity.
func (env *testEnv) register(t *testing.T, username string) model.Identity {
	t.Helper()
	u, err := env.auth.Register(context.Background(), username, "User "+username, validPassword)
	require.NoError(t, err)
	return model.Identity{ID: u.ID, Username: u.Username, Name: u.Name}
}

func (env *testEnv) createPost(t *testing.T, author model.Identity, title, tags string) *model.PostView {
	t.Helper()
	p, err := env.posts.Create(context.Background(), author, PostInput{
		Title:   title,
		Summary: "summary of " + title,
		Content: "content of " + title,
		Tags:    tags,
	})
	require.NoError(t, err)
	return p
}

func pngUpload(size int) *Upload {
	return &Upload{
		Reader:      strings.NewReader(strings.Repeat("x", size)),
		ContentType: "image/png",
		Size:        int64(size),
	}
}

// fieldNames returns the fields of a validation error, in order.
func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr), "expected *apperror.AppError, got %T", err)
	names := make([]string, 0, len(appErr.Fields))
	for _, f := range appErr.Fields {
		names = append(names, f.Field)
	}
	return names
}
