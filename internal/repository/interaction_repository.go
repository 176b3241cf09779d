package repository

import (
	"context"
	"fmt"
	"time"

	"threadline/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// InteractionRepository appends to and aggregates over the user-action event
// log. Entries are never mutated or deleted.
type InteractionRepository interface {
	Create(ctx context.Context, interaction *domain.Interaction) error
	PopularProducts(ctx context.Context, since time.Time, limit int64) ([]*domain.Product, error)
}

type interactionRepository struct {
	db *mongo.Database
}

// NewInteractionRepository creates a new instance of InteractionRepository
func NewInteractionRepository(db *mongo.Database) InteractionRepository {
	return &interactionRepository{db: db}
}

func (r *interactionRepository) collection() *mongo.Collection {
	return r.db.Collection("interactions")
}

// Create appends an interaction event
func (r *interactionRepository) Create(ctx context.Context, interaction *domain.Interaction) error {
	interaction.CreatedAt = time.Now()

	result, err := r.collection().InsertOne(ctx, interaction)
	if err != nil {
		return fmt.Errorf("failed to record interaction: %w", err)
	}

	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		interaction.ID = id
	}
	return nil
}

// PopularProducts counts view and purchase events since the cutoff, grouped
// by product, and joins the top-ranked groups back to full product records.
// Products with zero qualifying interactions are never returned.
func (r *interactionRepository) PopularProducts(ctx context.Context, since time.Time, limit int64) ([]*domain.Product, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "type", Value: bson.D{{Key: "$in", Value: bson.A{
				domain.InteractionView, domain.InteractionPurchase,
			}}}},
			{Key: "createdAt", Value: bson.D{{Key: "$gt", Value: since}}},
		}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$product"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "products"},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "product"},
		}}},
		{{Key: "$unwind", Value: "$product"}},
		{{Key: "$replaceRoot", Value: bson.D{{Key: "newRoot", Value: "$product"}}}},
	}

	cursor, err := r.collection().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate popular products: %w", err)
	}

	products := []*domain.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode popular products: %w", err)
	}
	return products, nil
}
