package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

var _ repository.PostRepository = (*Store)(nil)

// normalizePost turns embedded arrays decoded as null into empty ones.
func normalizePost(p *model.Post) {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.Comments == nil {
		p.Comments = []model.Comment{}
	}
	if p.Likes == nil {
		p.Likes = []string{}
	}
}

// CreatePost inserts the post. A zero CreatedAt is set to now.
func (s *Store) CreatePost(ctx context.Context, post *model.Post) error {
	now := time.Now().UTC()
	post.ID = xid.New().String()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now
	post.Comments = nil
	post.Likes = nil
	// embedded arrays must be stored as [] so $push/$addToSet work on them
	normalizePost(post)

	if _, err := s.posts.InsertOne(ctx, post); err != nil {
		return fmt.Errorf("mongodb: creating post: %w", err)
	}
	return nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	if err := s.posts.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("mongodb: finding post %s: %w", id, err)
	}
	normalizePost(&p)
	return &p, nil
}

func (s *Store) UpdatePost(ctx context.Context, post *model.Post) error {
	post.UpdatedAt = time.Now().UTC()
	if post.Tags == nil {
		post.Tags = []string{}
	}

	res, err := s.posts.UpdateOne(ctx, bson.M{"_id": post.ID}, bson.M{"$set": bson.M{
		"title":     post.Title,
		"summary":   post.Summary,
		"content":   post.Content,
		"cover":     post.Cover,
		"postTags":  post.Tags,
		"updatedAt": post.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("mongodb: updating post %s: %w", post.ID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("post", post.ID)
	}
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("mongodb: deleting post %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return apperror.NotFound("post", id)
	}
	return nil
}

func (s *Store) CountPosts(ctx context.Context, filter repository.PostFilter) (int64, error) {
	n, err := s.posts.CountDocuments(ctx, postFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("mongodb: counting posts: %w", err)
	}
	return n, nil
}

func (s *Store) ListPosts(ctx context.Context, filter repository.PostFilter, opts repository.ListOptions) ([]model.Post, error) {
	findOpts := options.Find().SetSort(postSort(opts.SortAscending))
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	cur, err := s.posts.Find(ctx, postFilter(filter), findOpts)
	if err != nil {
		return nil, fmt.Errorf("mongodb: listing posts: %w", err)
	}
	posts := []model.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("mongodb: decoding posts: %w", err)
	}
	for i := range posts {
		normalizePost(&posts[i])
	}
	return posts, nil
}

// =========================================================================
// EMBEDDED COMMENTS
// =========================================================================

func (s *Store) AddComment(ctx context.Context, postID string, comment *model.Comment) error {
	comment.ID = xid.New().String()
	comment.CreatedAt = time.Now().UTC()

	res, err := s.posts.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$push": bson.M{"comments": comment}},
	)
	if err != nil {
		return fmt.Errorf("mongodb: adding comment to post %s: %w", postID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("post", postID)
	}
	return nil
}

// UpdateComment rewrites one embedded comment through the positional $ operator.
func (s *Store) UpdateComment(ctx context.Context, postID, commentID, content string) error {
	res, err := s.posts.UpdateOne(ctx,
		bson.M{"_id": postID, "comments._id": commentID},
		bson.M{"$set": bson.M{"comments.$.content": content}},
	)
	if err != nil {
		return fmt.Errorf("mongodb: updating comment %s: %w", commentID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("comment", commentID)
	}
	return nil
}

func (s *Store) DeleteComment(ctx context.Context, postID, commentID string) error {
	res, err := s.posts.UpdateOne(ctx,
		bson.M{"_id": postID, "comments._id": commentID},
		bson.M{"$pull": bson.M{"comments": bson.M{"_id": commentID}}},
	)
	if err != nil {
		return fmt.Errorf("mongodb: deleting comment %s: %w", commentID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("comment", commentID)
	}
	return nil
}

// =========================================================================
// LIKES AND VIEWS
// =========================================================================

// ToggleLike adds userID to the like set when absent, otherwise removes it. Each
// branch is one atomic FindOneAndUpdate whose predicate encodes the membership
// test, so concurrent toggles cannot both take the same branch on stale data.
func (s *Store) ToggleLike(ctx context.Context, postID, userID string) ([]string, bool, error) {
	after := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"likes": 1})

	var doc struct {
		Likes []string `bson:"likes"`
	}

	err := s.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": postID, "likes": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"likes": userID}},
		after,
	).Decode(&doc)
	if err == nil {
		return nonNil(doc.Likes), true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, fmt.Errorf("mongodb: adding like: %w", err)
	}

	err = s.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": postID, "likes": userID},
		bson.M{"$pull": bson.M{"likes": userID}},
		after,
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, apperror.NotFound("post", postID)
		}
		return nil, false, fmt.Errorf("mongodb: removing like: %w", err)
	}
	return nonNil(doc.Likes), false, nil
}

func (s *Store) IncrementViews(ctx context.Context, postID string) (int64, error) {
	var doc struct {
		Views int64 `bson:"views"`
	}
	err := s.posts.FindOneAndUpdate(ctx,
		bson.M{"_id": postID},
		bson.M{"$inc": bson.M{"views": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After).SetProjection(bson.M{"views": 1}),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, apperror.NotFound("post", postID)
		}
		return 0, fmt.Errorf("mongodb: incrementing views of post %s: %w", postID, err)
	}
	return doc.Views, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
