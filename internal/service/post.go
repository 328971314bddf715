package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/blob"
	"github.com/sakif/blog-platform/internal/events"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

// PostService authors posts and handles engagement: comments, likes and views.
type PostService struct {
	posts  repository.PostRepository
	users  repository.UserRepository
	blobs  blob.Store
	events events.Publisher
	logger *slog.Logger
}

func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	blobs blob.Store,
	publisher events.Publisher,
	logger *slog.Logger,
) *PostService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &PostService{
		posts:  posts,
		users:  users,
		blobs:  blobs,
		events: publisher,
		logger: logger,
	}
}

// PostInput is the editable part of a post.
//
// Tags is the raw comma-separated list. Cover takes precedence over File;
// with neither, Create uses the default cover and Update keeps the current one.
type PostInput struct {
	Title   string
	Summary string
	Content string
	Tags    string
	Cover   string
	File    *Upload
}

// LikeResult is the like set after a toggle.
type LikeResult struct {
	Liked bool     `json:"liked"`
	Likes []string `json:"likes"`
}

// normalized is a validated PostInput.
type normalized struct {
	title, summary, content string
	tags                    []string
}

func (in PostInput) validate() (*normalized, error) {
	n := &normalized{
		title:   strings.TrimSpace(in.Title),
		summary: strings.TrimSpace(in.Summary),
		content: in.Content,
	}

	var fields []apperror.FieldError
	switch {
	case n.title == "":
		fields = append(fields, apperror.FieldError{Field: "title", Message: "title is required"})
	case len([]rune(n.title)) > MaxTitleLength:
		fields = append(fields, apperror.FieldError{Field: "title", Message: fmt.Sprintf("title must be at most %d characters", MaxTitleLength)})
	}
	if len([]rune(n.summary)) > MaxSummaryLength {
		fields = append(fields, apperror.FieldError{Field: "summary", Message: fmt.Sprintf("summary must be at most %d characters", MaxSummaryLength)})
	}

	n.tags = model.SplitTags(in.Tags)
	for _, t := range n.tags {
		if !model.IsValidTag(t) {
			fields = append(fields, apperror.FieldError{
				Field:   "postTags",
				Message: fmt.Sprintf("unknown tag %q, expected one of %s", t, strings.Join(model.AllTags(), ", ")),
			})
			break
		}
	}
	if len(n.tags) == 0 {
		n.tags = []string{string(model.TagOther)}
	}

	if strings.TrimSpace(in.Cover) == "" && in.File != nil {
		if fe := in.File.check("file"); fe != nil {
			fields = append(fields, *fe)
		}
	}

	if len(fields) > 0 {
		return nil, apperror.ValidationErrors(fields)
	}
	return n, nil
}

// coverSource resolves the cover URL: a supplied URL wins, then an uploaded
// file, then fallback.
func (s *PostService) coverSource(ctx context.Context, in PostInput, fallback string) (string, error) {
	if cover := strings.TrimSpace(in.Cover); cover != "" {
		return cover, nil
	}
	if in.File != nil {
		return storeUpload(ctx, s.blobs, "posts", in.File)
	}
	return fallback, nil
}

// Create publishes a new post authored by the caller.
func (s *PostService) Create(ctx context.Context, caller model.Identity, in PostInput) (*model.PostView, error) {
	if caller.ID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	n, err := in.validate()
	if err != nil {
		return nil, err
	}

	cover, err := s.coverSource(ctx, in, model.DefaultCover)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		Title:    n.title,
		Summary:  n.summary,
		Content:  n.content,
		Cover:    cover,
		Tags:     n.tags,
		AuthorID: caller.ID,
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("service/post: creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.String("postID", post.ID),
		slog.String("author", caller.ID),
	)
	s.events.Publish(ctx, events.Event{Type: events.PostCreated, Actor: caller.ID, Post: post.ID})

	return populateOne(ctx, s.users, post)
}

// Get returns one post with its author and comment authors resolved.
func (s *PostService) Get(ctx context.Context, id string) (*model.PostView, error) {
	post, err := s.getPost(ctx, id)
	if err != nil {
		return nil, err
	}
	return populateOne(ctx, s.users, post)
}

// Update replaces the editable fields of a post the caller authored.
// Ownership is checked before any validation, upload or write.
func (s *PostService) Update(ctx context.Context, caller model.Identity, id string, in PostInput) (*model.PostView, error) {
	post, err := s.ownedPost(ctx, caller, id, "you can only edit your own posts")
	if err != nil {
		return nil, err
	}

	n, err := in.validate()
	if err != nil {
		return nil, err
	}
	cover, err := s.coverSource(ctx, in, post.Cover)
	if err != nil {
		return nil, err
	}

	post.Title = n.title
	post.Summary = n.summary
	post.Content = n.content
	post.Tags = n.tags
	post.Cover = cover

	if err := s.posts.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("service/post: updating %s: %w", id, err)
	}

	s.logger.Info("post updated", slog.String("postID", id))
	return populateOne(ctx, s.users, post)
}

// Delete removes a post the caller authored.
func (s *PostService) Delete(ctx context.Context, caller model.Identity, id string) error {
	if _, err := s.ownedPost(ctx, caller, id, "you can only delete your own posts"); err != nil {
		return err
	}
	if err := s.posts.DeletePost(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/post: deleting %s: %w", id, err)
	}

	s.logger.Info("post deleted", slog.String("postID", id), slog.String("author", caller.ID))
	return nil
}

// =========================================================================
// ENGAGEMENT
// =========================================================================

// AddComment appends a comment by the caller and returns the updated post.
func (s *PostService) AddComment(ctx context.Context, caller model.Identity, postID, content string) (*model.PostView, error) {
	if caller.ID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	content, err := checkComment(content)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{UserID: caller.ID, Content: content}
	if err := s.posts.AddComment(ctx, postID, comment); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/post: commenting on %s: %w", postID, err)
	}

	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	s.events.Publish(ctx, events.Event{
		Type:   events.PostCommented,
		Actor:  caller.ID,
		Target: post.AuthorID,
		Post:   postID,
	})
	return populateOne(ctx, s.users, post)
}

// EditComment rewrites a comment the caller authored.
func (s *PostService) EditComment(ctx context.Context, caller model.Identity, postID, commentID, content string) (*model.PostView, error) {
	if _, err := s.ownedComment(ctx, caller, postID, commentID); err != nil {
		return nil, err
	}
	content, err := checkComment(content)
	if err != nil {
		return nil, err
	}

	if err := s.posts.UpdateComment(ctx, postID, commentID, content); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/post: editing comment %s: %w", commentID, err)
	}
	return s.Get(ctx, postID)
}

// DeleteComment removes a comment the caller authored.
func (s *PostService) DeleteComment(ctx context.Context, caller model.Identity, postID, commentID string) (*model.PostView, error) {
	if _, err := s.ownedComment(ctx, caller, postID, commentID); err != nil {
		return nil, err
	}
	if err := s.posts.DeleteComment(ctx, postID, commentID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/post: deleting comment %s: %w", commentID, err)
	}
	return s.Get(ctx, postID)
}

// ToggleLike adds the caller to the like set, or removes them if present.
func (s *PostService) ToggleLike(ctx context.Context, caller model.Identity, postID string) (*LikeResult, error) {
	if caller.ID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}

	likes, liked, err := s.posts.ToggleLike(ctx, postID, caller.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/post: toggling like on %s: %w", postID, err)
	}

	if liked {
		e := events.Event{Type: events.PostLiked, Actor: caller.ID, Post: postID}
		if post, err := s.posts.GetPostByID(ctx, postID); err == nil {
			e.Target = post.AuthorID
		}
		s.events.Publish(ctx, e)
	}
	return &LikeResult{Liked: liked, Likes: nonNilStrings(likes)}, nil
}

// RecordView counts one view. Repeated views by the same reader all count.
func (s *PostService) RecordView(ctx context.Context, postID string) (int64, error) {
	views, err := s.posts.IncrementViews(ctx, postID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("service/post: counting view of %s: %w", postID, err)
	}
	return views, nil
}

func checkComment(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", apperror.ValidationFailed("content", "comment cannot be empty")
	}
	if len([]rune(content)) > MaxCommentLength {
		return "", apperror.ValidationFailed("content", fmt.Sprintf("comment must be at most %d characters", MaxCommentLength))
	}
	return content, nil
}

func (s *PostService) getPost(ctx context.Context, id string) (*model.Post, error) {
	post, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/post: fetching %s: %w", id, err)
	}
	return post, nil
}

// ownedPost loads a post and checks that the caller authored it.
func (s *PostService) ownedPost(ctx context.Context, caller model.Identity, id, denied string) (*model.Post, error) {
	if caller.ID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	post, err := s.getPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != caller.ID {
		return nil, apperror.Forbidden(denied)
	}
	return post, nil
}

// ownedComment loads a post and checks that the caller authored the comment.
func (s *PostService) ownedComment(ctx context.Context, caller model.Identity, postID, commentID string) (*model.Comment, error) {
	if caller.ID == "" {
		return nil, apperror.Unauthorized("authentication required")
	}
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	c := post.FindComment(commentID)
	if c == nil {
		return nil, apperror.NotFound("comment", commentID)
	}
	if c.UserID != caller.ID {
		return nil, apperror.Forbidden("you can only change your own comments")
	}
	return c, nil
}
