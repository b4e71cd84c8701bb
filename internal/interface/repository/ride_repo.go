package repository

import (
	"context"
	"time"

	"taxibot-service/internal/domain/entity"
	"taxibot-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRideRepository implements the RideRepository interface
type MongoRideRepository struct {
	collection *mongo.Collection
}

// NewMongoRideRepository creates a new MongoDB ride repository
func NewMongoRideRepository(db *mongo.Database) repository.RideRepository {
	collection := db.Collection("rides")

	ctx := context.Background()

	// providerRideId is the callback lookup key; sparse because failed
	// rides may never get one
	providerIndex := mongo.IndexModel{
		Keys:    bson.M{"providerRideId": 1},
		Options: options.Index().SetUnique(true).SetSparse(true),
	}

	conversationIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "conversationId", Value: 1},
			{Key: "status", Value: 1},
		},
	}

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		providerIndex,
		conversationIndex,
	})

	return &MongoRideRepository{
		collection: collection,
	}
}

// Create inserts a new ride record
func (r *MongoRideRepository) Create(ctx context.Context, ride *entity.Ride) error {
	now := time.Now()
	ride.CreatedAt = now
	ride.UpdatedAt = now
	if ride.ID == "" {
		ride.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.collection.InsertOne(ctx, ride)
	return err
}

// FindByID finds a ride by local id
func (r *MongoRideRepository) FindByID(ctx context.Context, id string) (*entity.Ride, error) {
	var ride entity.Ride
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ride)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &ride, nil
}

// FindByProviderRideID finds a ride by the dispatch provider's id
func (r *MongoRideRepository) FindByProviderRideID(ctx context.Context, providerRideID string) (*entity.Ride, error) {
	var ride entity.Ride
	err := r.collection.FindOne(ctx, bson.M{"providerRideId": providerRideID}).Decode(&ride)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &ride, nil
}

// FindActiveByConversation returns the latest non-terminal ride of a conversation
func (r *MongoRideRepository) FindActiveByConversation(ctx context.Context, conversationID string) (*entity.Ride, error) {
	var ride entity.Ride
	filter := bson.M{
		"conversationId": conversationID,
		"status": bson.M{"$nin": bson.A{
			entity.RideStatusCompleted,
			entity.RideStatusCancelled,
			entity.RideStatusFailed,
		}},
	}
	opts := options.FindOne().SetSort(bson.M{"createdAt": -1})
	err := r.collection.FindOne(ctx, filter, opts).Decode(&ride)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &ride, nil
}

// Update replaces the mutable ride fields
func (r *MongoRideRepository) Update(ctx context.Context, ride *entity.Ride) error {
	ride.UpdatedAt = time.Now()

	updateDoc := bson.M{
		"status":         ride.Status,
		"providerRideId": ride.ProviderRideID,
		"driver":         ride.Driver,
		"acceptedAt":     ride.AcceptedAt,
		"startedAt":      ride.StartedAt,
		"completedAt":    ride.CompletedAt,
		"cancelledAt":    ride.CancelledAt,
		"updatedAt":      ride.UpdatedAt,
	}

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": ride.ID},
		bson.M{"$set": updateDoc},
	)
	return err
}
