package service

import (
	"context"
	"fmt"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"time"
)

// Record describes one finished compression.
type Record struct {
	Name         string    `bson:"name"`
	Key          string    `bson:"key,omitempty"`
	Mode         string    `bson:"mode"`
	OriginalKB   float64   `bson:"original_kb"`
	CompressedKB float64   `bson:"compressed_kb"`
	BudgetKB     float64   `bson:"budget_kb"`
	Quality      int       `bson:"quality"`
	WithinBudget bool      `bson:"within_budget"`
	Attempts     int       `bson:"attempts"`
	CreatedAt    time.Time `bson:"created_at"`
}

type Recorder interface {
	Record(ctx context.Context, r Record) error
}

type MongoRecorder struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoRecorder(uri, database, collection string) (*MongoRecorder, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	return &MongoRecorder{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func (m *MongoRecorder) Record(ctx context.Context, r Record) error {
	if _, err := m.collection.InsertOne(ctx, r); err != nil {
		return fmt.Errorf("insert record %s: %w", r.Name, err)
	}

	return nil
}

func (m *MongoRecorder) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
