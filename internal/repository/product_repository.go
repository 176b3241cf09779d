package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"threadline/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrProductSlugTaken = errors.New("product with this slug already exists")
)

// ProductFilter narrows a product listing. Search uses the weighted text
// index when set.
type ProductFilter struct {
	CategoryID *primitive.ObjectID
	Search     string
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	FindBySlug(ctx context.Context, slug string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error)
	FindByCategory(ctx context.Context, categoryID, exclude primitive.ObjectID, limit int64) ([]*domain.Product, error)
	FindOutsideCategory(ctx context.Context, categoryID, exclude primitive.ObjectID, limit int64) ([]*domain.Product, error)
	SearchByPattern(ctx context.Context, pattern string, limit int64) ([]*domain.Product, error)
	SuggestByName(ctx context.Context, pattern string, limit int64) ([]*domain.Product, error)
	Trending(ctx context.Context, limit int64) ([]*domain.TrendingProduct, error)
	RecordView(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	AddCartAdditions(ctx context.Context, id primitive.ObjectID, delta int64) (*domain.Product, error)
	AddPurchases(ctx context.Context, ids []primitive.ObjectID, delta int64) (matched, modified int64, err error)
	SetRatings(ctx context.Context, id primitive.ObjectID, ratings *domain.Ratings) error
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type productRepository struct {
	db *mongo.Database
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *mongo.Database) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) collection() *mongo.Collection {
	return r.db.Collection("products")
}

// Create inserts a new product
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	result, err := r.collection().InsertOne(ctx, product)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrProductSlugTaken
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	if id, ok := result.InsertedID.(primitive.ObjectID); ok {
		product.ID = id
	}
	return nil
}

// Update replaces the mutable fields of an existing product
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	product.UpdatedAt = time.Now()

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: product.Name},
		{Key: "slug", Value: product.Slug},
		{Key: "description", Value: product.Description},
		{Key: "price", Value: product.Price},
		{Key: "category", Value: product.CategoryID},
		{Key: "sizes", Value: product.Sizes},
		{Key: "colors", Value: product.Colors},
		{Key: "fit", Value: product.Fit},
		{Key: "material", Value: product.Material},
		{Key: "imageUrl", Value: product.ImageURL},
		{Key: "updatedAt", Value: product.UpdatedAt},
	}}}

	result, err := r.collection().UpdateByID(ctx, product.ID, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrProductSlugTaken
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

// Delete removes a product
func (r *productRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection().DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

// FindByID retrieves a product by ID
func (r *productRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	product := &domain.Product{}
	err := r.collection().FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(product)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return product, nil
}

// FindBySlug retrieves a product by its unique slug
func (r *productRepository) FindBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	product := &domain.Product{}
	err := r.collection().FindOne(ctx, bson.D{{Key: "slug", Value: slug}}).Decode(product)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by slug: %w", err)
	}
	return product, nil
}

// List retrieves products with optional category and text-search filtering
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, error) {
	query := bson.D{}
	if filter.CategoryID != nil {
		query = append(query, bson.E{Key: "category", Value: *filter.CategoryID})
	}
	if filter.Search != "" {
		query = append(query, bson.E{Key: "$text", Value: bson.D{{Key: "$search", Value: filter.Search}}})
	}

	cursor, err := r.collection().Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	products := []*domain.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

// FindByCategory returns products sharing a category, excluding one product.
func (r *productRepository) FindByCategory(ctx context.Context, categoryID, exclude primitive.ObjectID, limit int64) ([]*domain.Product, error) {
	query := bson.D{
		{Key: "_id", Value: bson.D{{Key: "$ne", Value: exclude}}},
		{Key: "category", Value: categoryID},
	}
	return r.find(ctx, query, limit)
}

// FindOutsideCategory returns products from other categories, excluding one
// product. Used to widen the similarity candidate set.
func (r *productRepository) FindOutsideCategory(ctx context.Context, categoryID, exclude primitive.ObjectID, limit int64) ([]*domain.Product, error) {
	query := bson.D{
		{Key: "_id", Value: bson.D{{Key: "$ne", Value: exclude}}},
		{Key: "category", Value: bson.D{{Key: "$ne", Value: categoryID}}},
	}
	return r.find(ctx, query, limit)
}

// SearchByPattern matches a case-insensitive regular expression against name
// and description. Callers are expected to escape user input.
func (r *productRepository) SearchByPattern(ctx context.Context, pattern string, limit int64) ([]*domain.Product, error) {
	regex := primitive.Regex{Pattern: pattern, Options: "i"}
	query := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "name", Value: regex}},
		bson.D{{Key: "description", Value: regex}},
	}}}
	return r.find(ctx, query, limit)
}

// SuggestByName matches a case-insensitive regular expression against name
// only, for typeahead suggestions.
func (r *productRepository) SuggestByName(ctx context.Context, pattern string, limit int64) ([]*domain.Product, error) {
	query := bson.D{{Key: "name", Value: primitive.Regex{Pattern: pattern, Options: "i"}}}
	return r.find(ctx, query, limit)
}

func (r *productRepository) find(ctx context.Context, query bson.D, limit int64) ([]*domain.Product, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := r.collection().Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}

	products := []*domain.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

// Trending ranks products by a weighted engagement score: purchases count
// five times, cart additions three times, views once, plus a flat bonus for
// products viewed within the last seven days.
func (r *productRepository) Trending(ctx context.Context, limit int64) ([]*domain.TrendingProduct, error) {
	recentCutoff := time.Now().AddDate(0, 0, -7)

	pipeline := mongo.Pipeline{
		{{Key: "$addFields", Value: bson.D{
			{Key: "trendingScore", Value: bson.D{{Key: "$add", Value: bson.A{
				bson.D{{Key: "$multiply", Value: bson.A{"$purchases", 5}}},
				bson.D{{Key: "$multiply", Value: bson.A{"$cartAdditions", 3}}},
				"$views",
			}}}},
			{Key: "recentActivity", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$gt", Value: bson.A{"$lastViewed", recentCutoff}}},
				10,
				0,
			}}}},
		}}},
		{{Key: "$addFields", Value: bson.D{
			{Key: "finalScore", Value: bson.D{{Key: "$add", Value: bson.A{"$trendingScore", "$recentActivity"}}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "finalScore", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: "categories"},
			{Key: "localField", Value: "category"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "category"},
		}}},
		{{Key: "$unwind", Value: "$category"}},
		{{Key: "$project", Value: bson.D{
			{Key: "name", Value: 1},
			{Key: "slug", Value: 1},
			{Key: "price", Value: 1},
			{Key: "imageUrl", Value: 1},
			{Key: "views", Value: 1},
			{Key: "purchases", Value: 1},
			{Key: "cartAdditions", Value: 1},
			{Key: "category.name", Value: 1},
			{Key: "finalScore", Value: 1},
		}}},
	}

	cursor, err := r.collection().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate trending products: %w", err)
	}

	trending := []*domain.TrendingProduct{}
	if err := cursor.All(ctx, &trending); err != nil {
		return nil, fmt.Errorf("failed to decode trending products: %w", err)
	}
	return trending, nil
}

// RecordView increments the view counter and stamps lastViewed, returning the
// updated product.
func (r *productRepository) RecordView(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	update := bson.D{
		{Key: "$inc", Value: bson.D{{Key: "views", Value: 1}}},
		{Key: "$set", Value: bson.D{{Key: "lastViewed", Value: time.Now()}}},
	}
	return r.findAndUpdate(ctx, id, update)
}

// AddCartAdditions increments the cart-addition counter by delta.
func (r *productRepository) AddCartAdditions(ctx context.Context, id primitive.ObjectID, delta int64) (*domain.Product, error) {
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "cartAdditions", Value: delta}}}}
	return r.findAndUpdate(ctx, id, update)
}

func (r *productRepository) findAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.D) (*domain.Product, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	product := &domain.Product{}
	err := r.collection().FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, update, opts).Decode(product)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product counters: %w", err)
	}
	return product, nil
}

// AddPurchases increments the purchase counter on every listed product.
func (r *productRepository) AddPurchases(ctx context.Context, ids []primitive.ObjectID, delta int64) (int64, int64, error) {
	filter := bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: "purchases", Value: delta}}}}

	result, err := r.collection().UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to update purchases: %w", err)
	}
	return result.MatchedCount, result.ModifiedCount, nil
}

// SetRatings persists a recomputed rating aggregate.
func (r *productRepository) SetRatings(ctx context.Context, id primitive.ObjectID, ratings *domain.Ratings) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "ratings", Value: ratings},
		{Key: "updatedAt", Value: time.Now()},
	}}}

	result, err := r.collection().UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("failed to set ratings: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

// WithTransaction runs fn inside a single multi-document transaction. Any
// error aborts the transaction and no partial state is committed.
func (r *productRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
