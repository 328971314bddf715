// Package repository declares the storage contracts the services depend on.
//
// Two implementations exist: repository/mongo (the production document store)
// and repository/sqlite (an embedded store used for local development and tests).
// Both translate driver errors into apperror kinds, so services never import a
// database driver.
package repository

import (
	"context"

	"github.com/sakif/blog-platform/internal/model"
)

// ListOptions controls paging and ordering of post listings.
type ListOptions struct {
	Limit         int // <= 0 means no limit
	Offset        int
	SortAscending bool // by createdAt, ties broken by id in the same direction
}

// PostFilter restricts a post listing. Zero values match everything.
type PostFilter struct {
	// TitleSearch is a case-insensitive substring of the title.
	TitleSearch string
	// Tags matches posts carrying at least one of the listed tags. Empty means any tag.
	Tags []string
	// AuthorIDs restricts the author. nil means any author; a non-nil empty
	// slice matches nothing.
	AuthorIDs []string
}

// UserRepository stores accounts and the follow graph.
type UserRepository interface {
	// CreateUser assigns ID and timestamps. A taken username or Google id
	// returns apperror.ErrConflict.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	// GetUsersByIDs returns users in the order of ids, skipping ids that do not resolve.
	GetUsersByIDs(ctx context.Context, ids []string) ([]model.User, error)
	// UpdateUser persists name, bio, images and password hash.
	UpdateUser(ctx context.Context, user *model.User) error
	// ToggleFollow adds the edge follower→followee when absent and removes it
	// when present. It reports whether the edge exists afterwards.
	ToggleFollow(ctx context.Context, followerID, followeeID string) (bool, error)
}

// PostRepository stores posts with their embedded comments and like sets.
type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPostByID(ctx context.Context, id string) (*model.Post, error)
	// UpdatePost persists title, summary, content, cover and tags.
	UpdatePost(ctx context.Context, post *model.Post) error
	DeletePost(ctx context.Context, id string) error

	CountPosts(ctx context.Context, filter PostFilter) (int64, error)
	ListPosts(ctx context.Context, filter PostFilter, opts ListOptions) ([]model.Post, error)

	AddComment(ctx context.Context, postID string, comment *model.Comment) error
	UpdateComment(ctx context.Context, postID, commentID, content string) error
	DeleteComment(ctx context.Context, postID, commentID string) error

	// ToggleLike returns the like set after the toggle and whether userID is in it.
	ToggleLike(ctx context.Context, postID, userID string) ([]string, bool, error)
	// IncrementViews adds one to the view counter and returns the new value.
	IncrementViews(ctx context.Context, postID string) (int64, error)
}
