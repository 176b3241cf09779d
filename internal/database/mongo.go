package database

import (
	"context"
	"fmt"
	"time"

	"threadline/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// Service wraps the Mongo client and the application database handle.
type Service struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect establishes a connection to MongoDB and verifies it with a ping.
func Connect(ctx context.Context, cfg config.MongoConfig) (*Service, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.URI)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Service{
		client: client,
		db:     client.Database(cfg.Database),
	}, nil
}

// DB returns the application database handle.
func (s *Service) DB() *mongo.Database {
	return s.db
}

// Health reports connection status for the health endpoint.
func (s *Service) Health(ctx context.Context) map[string]string {
	stats := make(map[string]string)

	start := time.Now()
	if err := s.client.Ping(ctx, nil); err != nil {
		stats["status"] = "down"
		stats["error"] = err.Error()
		return stats
	}

	stats["status"] = "up"
	stats["ping"] = time.Since(start).String()
	return stats
}

// Close disconnects the underlying client.
func (s *Service) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the service depends on. Index creation is
// idempotent, so this runs on every startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	logger.Info("Ensuring database indexes")

	productIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "name", Value: "text"},
				{Key: "description", Value: "text"},
				{Key: "material", Value: "text"},
				{Key: "fit", Value: "text"},
			},
			Options: options.Index().
				SetName("product_text_search").
				SetWeights(bson.D{
					{Key: "name", Value: 5},
					{Key: "description", Value: 1},
					{Key: "material", Value: 2},
					{Key: "fit", Value: 2},
				}),
		},
	}
	if _, err := db.Collection("products").Indexes().CreateMany(ctx, productIndexes); err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}

	categoryIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := db.Collection("categories").Indexes().CreateMany(ctx, categoryIndexes); err != nil {
		return fmt.Errorf("failed to create category indexes: %w", err)
	}

	interactionIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "product", Value: 1}, {Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	if _, err := db.Collection("interactions").Indexes().CreateMany(ctx, interactionIndexes); err != nil {
		return fmt.Errorf("failed to create interaction indexes: %w", err)
	}

	logger.Info("Database indexes ensured")
	return nil
}
