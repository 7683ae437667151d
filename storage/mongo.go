// Package storage implements the document store contract on MongoDB. The
// store is the sole system of record: documents are inserted once and never
// mutated or deleted by the API.
package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/pillguide/pillguide-api/interfaces"
)

// Collection names used by the API.
const (
	CollectionPrescriptions = "prescriptions"
	CollectionMedications   = "medications"
)

// findLimit caps how many documents a single Find returns.
const findLimit = 1000

// Compile-time check to ensure MongoStore implements DocumentStore
var _ interfaces.DocumentStore = (*MongoStore)(nil)

// MongoStore is a thin MongoDB-backed document store. It enforces no schema;
// callers are responsible for document shape.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect establishes the MongoDB connection and verifies it with a ping.
func Connect(ctx context.Context, url, dbName string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoStore{
		client: client,
		db:     client.Database(dbName),
	}, nil
}

// Insert writes one document into the collection.
func (s *MongoStore) Insert(ctx context.Context, collection string, document bson.M) error {
	if _, err := s.db.Collection(collection).InsertOne(ctx, document); err != nil {
		return fmt.Errorf("insert into %s failed: %w", collection, err)
	}
	return nil
}

// Find returns documents matching the filter, without their Mongo object ids.
func (s *MongoStore) Find(ctx context.Context, collection string, filter bson.M) ([]bson.M, error) {
	if filter == nil {
		filter = bson.M{}
	}

	opts := options.Find().
		SetProjection(bson.M{"_id": 0}).
		SetLimit(findLimit)

	cursor, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find in %s failed: %w", collection, err)
	}
	defer cursor.Close(ctx)

	results := []bson.M{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("reading %s cursor failed: %w", collection, err)
	}

	return results, nil
}

// Count returns the number of documents in the collection.
func (s *MongoStore) Count(ctx context.Context, collection string) (int64, error) {
	count, err := s.db.Collection(collection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count of %s failed: %w", collection, err)
	}
	return count, nil
}

// Ping verifies the store connection.
func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
