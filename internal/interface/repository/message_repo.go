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

// MongoMessageRepository implements the MessageRepository interface
type MongoMessageRepository struct {
	collection *mongo.Collection
}

// NewMongoMessageRepository creates a new MongoDB message repository
func NewMongoMessageRepository(db *mongo.Database) repository.MessageRepository {
	collection := db.Collection("messages")

	ctx := context.Background()
	conversationIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "conversationId", Value: 1},
			{Key: "createdAt", Value: 1},
		},
	}
	collection.Indexes().CreateOne(ctx, conversationIndex)

	return &MongoMessageRepository{
		collection: collection,
	}
}

// Append inserts one chat turn. Messages are never updated or deleted.
func (r *MongoMessageRepository) Append(ctx context.Context, message *entity.Message) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	if message.ID == "" {
		message.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.collection.InsertOne(ctx, message)
	return err
}
