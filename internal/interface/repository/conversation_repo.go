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

// MongoConversationRepository implements the ConversationRepository interface
type MongoConversationRepository struct {
	collection *mongo.Collection
}

// NewMongoConversationRepository creates a new MongoDB conversation repository
func NewMongoConversationRepository(db *mongo.Database) repository.ConversationRepository {
	collection := db.Collection("conversations")

	ctx := context.Background()

	// Compound index for the single-active-conversation lookup
	activeIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "customerId", Value: 1},
			{Key: "isActive", Value: 1},
		},
	}

	// At most one active conversation per customer, enforced at the
	// storage layer as well as by the per-customer lock
	uniqueActiveIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "customerId", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"isActive": true}),
	}

	// Index on lastMessageAt for idle-timeout sweeps
	lastMessageIndex := mongo.IndexModel{
		Keys: bson.M{"lastMessageAt": -1},
	}

	collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		activeIndex,
		uniqueActiveIndex,
		lastMessageIndex,
	})

	return &MongoConversationRepository{
		collection: collection,
	}
}

// FindActiveByCustomer returns the customer's single active conversation
func (r *MongoConversationRepository) FindActiveByCustomer(ctx context.Context, customerID string) (*entity.Conversation, error) {
	var conversation entity.Conversation
	filter := bson.M{"customerId": customerID, "isActive": true}
	opts := options.FindOne().SetSort(bson.M{"lastMessageAt": -1})
	err := r.collection.FindOne(ctx, filter, opts).Decode(&conversation)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &conversation, nil
}

// FindByID finds a conversation by id
func (r *MongoConversationRepository) FindByID(ctx context.Context, id string) (*entity.Conversation, error) {
	var conversation entity.Conversation
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&conversation)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &conversation, nil
}

// Create inserts a new conversation
func (r *MongoConversationRepository) Create(ctx context.Context, conversation *entity.Conversation) error {
	now := time.Now()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now
	if conversation.ID == "" {
		conversation.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.collection.InsertOne(ctx, conversation)
	return err
}

// UpdateState advances the conversation state machine
func (r *MongoConversationRepository) UpdateState(ctx context.Context, id, state string, lastMessageAt time.Time) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"state":         state,
			"lastMessageAt": lastMessageAt,
			"updatedAt":     time.Now(),
		}},
	)
	return err
}

// Deactivate closes the conversation
func (r *MongoConversationRepository) Deactivate(ctx context.Context, id string) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"isActive":  false,
			"updatedAt": time.Now(),
		}},
	)
	return err
}
