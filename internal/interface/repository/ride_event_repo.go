package repository

import (
	"context"
	"time"

	"taxibot-service/internal/domain/entity"
	"taxibot-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoRideEventRepository implements the RideEventRepository interface
type MongoRideEventRepository struct {
	collection *mongo.Collection
}

// NewMongoRideEventRepository creates a new MongoDB ride event repository
func NewMongoRideEventRepository(db *mongo.Database) repository.RideEventRepository {
	collection := db.Collection("rideEvents")

	ctx := context.Background()
	rideIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "rideId", Value: 1},
			{Key: "createdAt", Value: 1},
		},
	}
	collection.Indexes().CreateOne(ctx, rideIndex)

	return &MongoRideEventRepository{
		collection: collection,
	}
}

// Append inserts one audit entry. Events are never mutated.
func (r *MongoRideEventRepository) Append(ctx context.Context, event *entity.RideEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	if event.ID == "" {
		event.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.collection.InsertOne(ctx, event)
	return err
}
