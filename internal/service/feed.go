package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

// Paging defaults of the feed.
const (
	DefaultPageSize = 3
	MaxPageSize     = 100
)

// FeedRequest selects one page of the feed. Zero values take the defaults:
// page 1, DefaultPageSize posts, every tag, newest first.
type FeedRequest struct {
	Page     int
	PageSize int
	Search   string
	// Tags is "All", empty, or a comma-separated subset of the enumeration.
	Tags string
	// Ascending sorts oldest first.
	Ascending bool
	// FollowingOnly restricts authors to the caller and the users they follow.
	FollowingOnly bool
}

func (r *FeedRequest) normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize <= 0 {
		r.PageSize = DefaultPageSize
	}
	if r.PageSize > MaxPageSize {
		r.PageSize = MaxPageSize
	}
}

// tagSet expands the tag filter. "All" and empty mean the whole enumeration.
func tagSet(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == model.TagAll {
		return model.AllTags()
	}
	tags := model.SplitTags(raw)
	if len(tags) == 0 {
		return model.AllTags()
	}
	return tags
}

// FeedService composes the paginated post listing.
type FeedService struct {
	posts  repository.PostRepository
	users  repository.UserRepository
	logger *slog.Logger
}

func NewFeedService(posts repository.PostRepository, users repository.UserRepository, logger *slog.Logger) *FeedService {
	return &FeedService{posts: posts, users: users, logger: logger}
}

func emptyPage() *model.FeedPage {
	return &model.FeedPage{TotalPages: 0, Posts: []model.PostView{}}
}

// List returns one page of posts with authors resolved.
//
// The following feed is empty for an anonymous caller and for a caller who
// follows nobody; otherwise it holds posts by the caller and everyone they
// follow. Pages past the end are empty, not an error.
func (s *FeedService) List(ctx context.Context, caller model.Identity, req FeedRequest) (*model.FeedPage, error) {
	req.normalize()

	filter := repository.PostFilter{
		TitleSearch: strings.TrimSpace(req.Search),
		Tags:        tagSet(req.Tags),
	}

	if req.FollowingOnly {
		if caller.ID == "" {
			return emptyPage(), nil
		}
		me, err := s.users.GetUserByID(ctx, caller.ID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return emptyPage(), nil
			}
			return nil, fmt.Errorf("service/feed: fetching caller %s: %w", caller.ID, err)
		}
		if len(me.Following) == 0 {
			return emptyPage(), nil
		}
		filter.AuthorIDs = append(append([]string{}, me.Following...), me.ID)
	}

	count, err := s.posts.CountPosts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service/feed: counting posts: %w", err)
	}
	totalPages := int((count + int64(req.PageSize) - 1) / int64(req.PageSize))

	if count == 0 || req.Page > totalPages {
		return &model.FeedPage{TotalPages: totalPages, Posts: []model.PostView{}}, nil
	}

	posts, err := s.posts.ListPosts(ctx, filter, repository.ListOptions{
		Limit:         req.PageSize,
		Offset:        (req.Page - 1) * req.PageSize,
		SortAscending: req.Ascending,
	})
	if err != nil {
		return nil, fmt.Errorf("service/feed: listing posts: %w", err)
	}

	views, err := populate(ctx, s.users, posts)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("feed listed",
		slog.Int("page", req.Page),
		slog.Int("pageSize", req.PageSize),
		slog.Int64("matches", count),
		slog.Bool("following", req.FollowingOnly),
	)
	return &model.FeedPage{TotalPages: totalPages, Posts: views}, nil
}

// ListByAuthor returns the author's public profile and all their posts,
// newest first.
func (s *FeedService) ListByAuthor(ctx context.Context, authorID string) (*model.AuthorPosts, error) {
	author, err := s.users.GetUserByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/feed: fetching author %s: %w", authorID, err)
	}

	posts, err := s.posts.ListPosts(ctx,
		repository.PostFilter{AuthorIDs: []string{authorID}},
		repository.ListOptions{},
	)
	if err != nil {
		return nil, fmt.Errorf("service/feed: listing posts of %s: %w", authorID, err)
	}

	views, err := populate(ctx, s.users, posts)
	if err != nil {
		return nil, err
	}
	return &model.AuthorPosts{Author: author.PublicProfile(), Posts: views}, nil
}
