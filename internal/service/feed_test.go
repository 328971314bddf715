package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
)

var feedBase = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// seedPost stores a post directly so createdAt can be controlled.
func seedPost(t *testing.T, env *testEnv, author model.Identity, title string, minutes int, tags ...string) {
	t.Helper()
	if len(tags) == 0 {
		tags = []string{"Other"}
	}
	err := env.db.CreatePost(context.Background(), &model.Post{
		Title:     title,
		Cover:     model.DefaultCover,
		Tags:      tags,
		AuthorID:  author.ID,
		CreatedAt: feedBase.Add(time.Duration(minutes) * time.Minute),
	})
	require.NoError(t, err)
}

func feedTitles(page *model.FeedPage) []string {
	out := make([]string, 0, len(page.Posts))
	for _, p := range page.Posts {
		out = append(out, p.Title)
	}
	return out
}

func TestFeed_PagingAndSort(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	for i, title := range []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7"} {
		seedPost(t, env, alice, title, i)
	}

	tests := []struct {
		name       string
		req        FeedRequest
		wantTotal  int
		wantTitles []string
	}{
		{"defaults: newest first, three per page", FeedRequest{}, 3, []string{"p7", "p6", "p5"}},
		{"second page", FeedRequest{Page: 2}, 3, []string{"p4", "p3", "p2"}},
		{"last partial page", FeedRequest{Page: 3}, 3, []string{"p1"}},
		{"past the end", FeedRequest{Page: 9}, 3, []string{}},
		{"page below one", FeedRequest{Page: -4}, 3, []string{"p7", "p6", "p5"}},
		{"ascending", FeedRequest{PageSize: 2, Ascending: true}, 4, []string{"p1", "p2"}},
		{"page size capped", FeedRequest{PageSize: 1000}, 1, []string{"p7", "p6", "p5", "p4", "p3", "p2", "p1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := env.feed.List(context.Background(), model.Identity{}, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, page.TotalPages)
			assert.Equal(t, tt.wantTitles, feedTitles(page))
		})
	}
}

func TestFeed_SearchAndTags(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	seedPost(t, env, alice, "Intro to MERN", 0, "MERN", "Web")
	seedPost(t, env, alice, "SQL joins", 1, "SQL")
	seedPost(t, env, alice, "Advanced mern tricks", 2, "Code")

	tests := []struct {
		name string
		req  FeedRequest
		want []string
	}{
		{"search is case-insensitive", FeedRequest{Search: "mern"}, []string{"Advanced mern tricks", "Intro to MERN"}},
		{"All expands to every tag", FeedRequest{Tags: "All", PageSize: 10}, []string{"Advanced mern tricks", "SQL joins", "Intro to MERN"}},
		{"any tag in set matches", FeedRequest{Tags: "Web,SQL"}, []string{"SQL joins", "Intro to MERN"}},
		{"search and tags combine", FeedRequest{Search: "mern", Tags: "Code"}, []string{"Advanced mern tricks"}},
		{"no match", FeedRequest{Search: "rust"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := env.feed.List(context.Background(), model.Identity{}, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, feedTitles(page))
		})
	}
}

func TestFeed_Following(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	carol := env.register(t, "carol")
	seedPost(t, env, alice, "by alice", 0)
	seedPost(t, env, bob, "by bob", 1)
	seedPost(t, env, carol, "by carol", 2)

	page, err := env.feed.List(ctx, model.Identity{}, FeedRequest{FollowingOnly: true})
	require.NoError(t, err)
	assert.Equal(t, &model.FeedPage{TotalPages: 0, Posts: []model.PostView{}}, page, "anonymous caller")

	page, err = env.feed.List(ctx, alice, FeedRequest{FollowingOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 0, page.TotalPages, "caller follows nobody")
	assert.Empty(t, page.Posts)

	_, err = env.users.ToggleFollow(ctx, alice, bob.ID)
	require.NoError(t, err)

	page, err = env.feed.List(ctx, alice, FeedRequest{FollowingOnly: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"by bob", "by alice"}, feedTitles(page))
	assert.Equal(t, "bob", page.Posts[0].Author.Username)
}

func TestListByAuthor(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	seedPost(t, env, alice, "old", 0)
	seedPost(t, env, bob, "other", 1)
	seedPost(t, env, alice, "new", 2)

	res, err := env.feed.ListByAuthor(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Author.Username)
	require.Len(t, res.Posts, 2)
	assert.Equal(t, "new", res.Posts[0].Title)
	assert.Equal(t, "old", res.Posts[1].Title)

	_, err = env.feed.ListByAuthor(context.Background(), "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestTagSet(t *testing.T) {
	assert.Equal(t, model.AllTags(), tagSet(""))
	assert.Equal(t, model.AllTags(), tagSet("All"))
	assert.Equal(t, model.AllTags(), tagSet(" , "))
	assert.Equal(t, []string{"Web", "SQL"}, tagSet("Web, SQL"))
}
