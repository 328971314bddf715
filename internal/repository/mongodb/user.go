package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/repository"
)

var _ repository.UserRepository = (*Store)(nil)

// normalizeUser turns follow sets decoded as null into empty sets.
func normalizeUser(u *model.User) {
	if u.Followers == nil {
		u.Followers = []string{}
	}
	if u.Following == nil {
		u.Following = []string{}
	}
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.ApplyDefaults()

	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "googleId") {
				return apperror.Conflict("google account", user.GoogleID)
			}
			return apperror.Conflict("username", user.Username)
		}
		return fmt.Errorf("mongodb: creating user %q: %w", user.Username, err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"_id": id}, "user", id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.findUser(ctx, bson.M{"username": username}, "user", username)
}

func (s *Store) GetUserByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	if googleID == "" {
		return nil, apperror.NotFound("google account", googleID)
	}
	return s.findUser(ctx, bson.M{"googleId": googleID}, "google account", googleID)
}

func (s *Store) findUser(ctx context.Context, filter bson.M, resource, key string) (*model.User, error) {
	var u model.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound(resource, key)
		}
		return nil, fmt.Errorf("mongodb: finding %s %s: %w", resource, key, err)
	}
	normalizeUser(&u)
	return &u, nil
}

// GetUsersByIDs fetches with one $in query, then restores the order of ids.
func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	if len(ids) == 0 {
		return []model.User{}, nil
	}

	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("mongodb: listing users: %w", err)
	}
	var found []model.User
	if err := cur.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("mongodb: decoding users: %w", err)
	}

	byID := make(map[string]model.User, len(found))
	for _, u := range found {
		normalizeUser(&u)
		byID[u.ID] = u
	}
	users := make([]model.User, 0, len(found))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (s *Store) UpdateUser(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	set := bson.M{
		"name":       user.Name,
		"bio":        user.Bio,
		"profileImg": user.ProfileImg,
		"coverImg":   user.CoverImg,
		"updatedAt":  user.UpdatedAt,
	}
	if user.PasswordHash != "" {
		set["password"] = user.PasswordHash
	}

	res, err := s.users.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("mongodb: updating user %s: %w", user.ID, err)
	}
	if res.MatchedCount == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// ToggleFollow flips the follow edge with two single-document writes.
//
// The followee write is guarded by a membership predicate, which makes the
// decision (follow vs unfollow) atomic on that document; the mirror write on the
// follower uses the same set primitive. No transaction spans the two writes, so
// a crash between them leaves a one-sided edge.
func (s *Store) ToggleFollow(ctx context.Context, followerID, followeeID string) (bool, error) {
	n, err := s.users.CountDocuments(ctx, bson.M{"_id": followerID})
	if err != nil {
		return false, fmt.Errorf("mongodb: checking user %s: %w", followerID, err)
	}
	if n == 0 {
		return false, apperror.NotFound("user", followerID)
	}

	added, err := s.users.UpdateOne(ctx,
		bson.M{"_id": followeeID, "followers": bson.M{"$ne": followerID}},
		bson.M{"$addToSet": bson.M{"followers": followerID}},
	)
	if err != nil {
		return false, fmt.Errorf("mongodb: adding follower: %w", err)
	}
	if added.MatchedCount == 1 {
		if _, err := s.users.UpdateOne(ctx,
			bson.M{"_id": followerID},
			bson.M{"$addToSet": bson.M{"following": followeeID}},
		); err != nil {
			return false, fmt.Errorf("mongodb: adding following: %w", err)
		}
		return true, nil
	}

	removed, err := s.users.UpdateOne(ctx,
		bson.M{"_id": followeeID, "followers": followerID},
		bson.M{"$pull": bson.M{"followers": followerID}},
	)
	if err != nil {
		return false, fmt.Errorf("mongodb: removing follower: %w", err)
	}
	if removed.MatchedCount == 0 {
		// neither predicate matched: the followee does not exist
		return false, apperror.NotFound("user", followeeID)
	}
	if _, err := s.users.UpdateOne(ctx,
		bson.M{"_id": followerID},
		bson.M{"$pull": bson.M{"following": followeeID}},
	); err != nil {
		return false, fmt.Errorf("mongodb: removing following: %w", err)
	}
	return false, nil
}
