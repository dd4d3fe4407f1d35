// Package mongo provides a MongoDB-backed implementation of the storage.Store
// interface. Users, meals and ingredients live in their own collections.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vnprr/SnapDish/internal/storage"
)

// Ensure MongoStore implements storage.Store
var _ storage.Store = (*MongoStore)(nil)

const (
	usersCollection       = "users"
	mealsCollection       = "meals"
	ingredientsCollection = "ingredients"
)

// MongoStore implements storage.Store using MongoDB.
type MongoStore struct {
	client      *mongo.Client
	users       *mongo.Collection
	meals       *mongo.Collection
	ingredients *mongo.Collection
}

// Connect dials uri, selects database and ensures the indexes exist.
func Connect(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:      client,
		users:       db.Collection(usersCollection),
		meals:       db.Collection(mealsCollection),
		ingredients: db.Collection(ingredientsCollection),
	}

	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	_, err = s.meals.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "time", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create meals index: %w", err)
	}

	_, err = s.ingredients.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "mealId", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create ingredients index: %w", err)
	}

	return nil
}

// Ping verifies the server is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Drop removes the store's database. Used by tests.
func (s *MongoStore) Drop(ctx context.Context) error {
	return s.users.Database().Drop(ctx)
}
