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

// MongoCustomerRepository implements the CustomerRepository interface
type MongoCustomerRepository struct {
	collection *mongo.Collection
}

// NewMongoCustomerRepository creates a new MongoDB customer repository
func NewMongoCustomerRepository(db *mongo.Database) repository.CustomerRepository {
	collection := db.Collection("customers")

	// Unique index on phone, the customer identity anchor
	ctx := context.Background()
	phoneIndex := mongo.IndexModel{
		Keys:    bson.M{"phone": 1},
		Options: options.Index().SetUnique(true),
	}
	collection.Indexes().CreateOne(ctx, phoneIndex)

	return &MongoCustomerRepository{
		collection: collection,
	}
}

// FindByPhone finds a customer by phone number
func (r *MongoCustomerRepository) FindByPhone(ctx context.Context, phone string) (*entity.Customer, error) {
	var customer entity.Customer
	err := r.collection.FindOne(ctx, bson.M{"phone": phone}).Decode(&customer)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

// Create inserts a new customer
func (r *MongoCustomerRepository) Create(ctx context.Context, customer *entity.Customer) error {
	now := time.Now()
	customer.CreatedAt = now
	customer.UpdatedAt = now
	if customer.ID == "" {
		customer.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.collection.InsertOne(ctx, customer)
	return err
}

// UpdateName backfills a missing display name
func (r *MongoCustomerRepository) UpdateName(ctx context.Context, id, name string) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"name":      name,
			"updatedAt": time.Now(),
		}},
	)
	return err
}
