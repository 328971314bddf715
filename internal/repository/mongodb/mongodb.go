// Package mongodb implements the repository interfaces on MongoDB.
//
// Users and posts are stored as documents shaped exactly like model.User and
// model.Post (see their bson tags): comments and likes are embedded in the post,
// follow edges are embedded in both user documents. Document ids are xid strings
// rather than ObjectIDs so they stay interchangeable with the SQLite store.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectTimeout bounds the initial connect, ping and index creation.
const ConnectTimeout = 10 * time.Second

// Store holds the client and the two collections the API uses.
type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	posts  *mongo.Collection
}

// Connect dials MongoDB, verifies the connection and ensures indexes exist.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connecting: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb: pinging: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client: client,
		users:  db.Collection("users"),
		posts:  db.Collection("posts"),
	}

	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates the indexes the queries rely on. Creating an index that
// already exists with the same options is a no-op.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// sparse: password accounts have no googleId field at all
			Keys:    bson.D{{Key: "googleId", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("mongodb: creating user indexes: %w", err)
	}

	_, err = s.posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "postTags", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongodb: creating post indexes: %w", err)
	}
	return nil
}

// Ping reports whether the primary is reachable. Used by /healthz.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
