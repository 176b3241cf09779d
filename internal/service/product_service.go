package service

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"threadline/internal/domain"
	"threadline/internal/media"
	"threadline/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateProductInput carries the fields of a multipart product creation. The
// category is referenced by slug and resolved before insert.
type CreateProductInput struct {
	Name         string
	Slug         string
	Description  string
	Price        float64
	CategorySlug string
	Sizes        []string
	Colors       []string
	Fit          string
	Material     string
	Image        io.Reader
}

// UpdateProductInput lists the updatable product fields. Nil pointers leave
// the current value untouched.
type UpdateProductInput struct {
	Name         *string
	Slug         *string
	Description  *string
	Price        *float64
	CategorySlug *string
	Sizes        []string
	Colors       []string
	Fit          *string
	Material     *string
}

// SearchResults groups product and category matches for one query.
type SearchResults struct {
	Products   []*domain.Product
	Categories []*domain.Category
}

// ProductService defines the interface for product business logic
type ProductService interface {
	Create(ctx context.Context, input CreateProductInput) (*domain.Product, *domain.Category, error)
	List(ctx context.Context, categoryID, search string) ([]*domain.Product, error)
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)
	Update(ctx context.Context, id string, input UpdateProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string) (*SearchResults, error)
	Suggestions(ctx context.Context, query string) (*SearchResults, error)
	Trending(ctx context.Context, limit int) ([]*domain.TrendingProduct, error)
	RecordView(ctx context.Context, id string) (*domain.Product, error)
	RecordCartAddition(ctx context.Context, id string, increment int64) (*domain.Product, error)
	RecordPurchases(ctx context.Context, ids []string, increment int64) (matched, modified int64, err error)
}

const (
	searchProductLimit     = 10
	searchCategoryLimit    = 5
	suggestedProductLimit  = 5
	suggestedCategoryLimit = 3
	defaultTrendingLimit   = 10
)

type productService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	uploader   media.Uploader
}

// NewProductService creates a new instance of ProductService. uploader may be
// nil when media uploads are not configured; product creation then fails with
// media.ErrNotConfigured.
func NewProductService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	uploader media.Uploader,
) ProductService {
	return &productService{
		products:   products,
		categories: categories,
		uploader:   uploader,
	}
}

// Create resolves the category, stores the image on the media host, and
// inserts the product.
func (s *productService) Create(ctx context.Context, input CreateProductInput) (*domain.Product, *domain.Category, error) {
	category, err := s.categories.FindBySlug(ctx, input.CategorySlug)
	if err != nil {
		return nil, nil, err
	}

	if s.uploader == nil {
		return nil, nil, media.ErrNotConfigured
	}
	upload, err := s.uploader.Upload(ctx, input.Image)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to store product image: %w", err)
	}

	product := &domain.Product{
		Name:        input.Name,
		Slug:        strings.ToLower(input.Slug),
		Description: input.Description,
		Price:       input.Price,
		CategoryID:  category.ID,
		Sizes:       input.Sizes,
		Colors:      input.Colors,
		Fit:         input.Fit,
		Material:    input.Material,
		ImageURL:    upload.URL,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, nil, err
	}
	return product, category, nil
}

// List retrieves products, optionally narrowed by category id and a
// text-index search term.
func (s *productService) List(ctx context.Context, categoryID, search string) ([]*domain.Product, error) {
	filter := repository.ProductFilter{Search: search}

	if categoryID != "" {
		id, err := primitive.ObjectIDFromHex(categoryID)
		if err != nil {
			return nil, ErrInvalidID
		}
		filter.CategoryID = &id
	}

	return s.products.List(ctx, filter)
}

// GetByID retrieves a product by id
func (s *productService) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	productID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	return s.products.FindByID(ctx, productID)
}

// GetBySlug retrieves a product by slug
func (s *productService) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return s.products.FindBySlug(ctx, slug)
}

// Update applies the non-nil fields of input to an existing product.
func (s *productService) Update(ctx context.Context, id string, input UpdateProductInput) (*domain.Product, error) {
	productID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Slug != nil {
		product.Slug = strings.ToLower(*input.Slug)
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		product.Price = *input.Price
	}
	if input.CategorySlug != nil {
		category, err := s.categories.FindBySlug(ctx, *input.CategorySlug)
		if err != nil {
			return nil, err
		}
		product.CategoryID = category.ID
	}
	if input.Sizes != nil {
		product.Sizes = input.Sizes
	}
	if input.Colors != nil {
		product.Colors = input.Colors
	}
	if input.Fit != nil {
		product.Fit = *input.Fit
	}
	if input.Material != nil {
		product.Material = *input.Material
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes a product by id
func (s *productService) Delete(ctx context.Context, id string) error {
	productID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}
	return s.products.Delete(ctx, productID)
}

// Search runs a case-insensitive regex search over products and categories.
// User input is escaped before it reaches the query.
func (s *productService) Search(ctx context.Context, query string) (*SearchResults, error) {
	pattern := regexp.QuoteMeta(strings.TrimSpace(query))

	products, err := s.products.SearchByPattern(ctx, pattern, searchProductLimit)
	if err != nil {
		return nil, err
	}
	categories, err := s.categories.SearchByName(ctx, pattern, searchCategoryLimit)
	if err != nil {
		return nil, err
	}

	return &SearchResults{Products: products, Categories: categories}, nil
}

// Suggestions returns typeahead matches on names only, with tighter limits
// than Search.
func (s *productService) Suggestions(ctx context.Context, query string) (*SearchResults, error) {
	pattern := regexp.QuoteMeta(strings.TrimSpace(query))

	products, err := s.products.SuggestByName(ctx, pattern, suggestedProductLimit)
	if err != nil {
		return nil, err
	}
	categories, err := s.categories.SearchByName(ctx, pattern, suggestedCategoryLimit)
	if err != nil {
		return nil, err
	}

	return &SearchResults{Products: products, Categories: categories}, nil
}

// Trending ranks products by weighted engagement score.
func (s *productService) Trending(ctx context.Context, limit int) ([]*domain.TrendingProduct, error) {
	if limit <= 0 {
		limit = defaultTrendingLimit
	}
	return s.products.Trending(ctx, int64(limit))
}

// RecordView bumps the view counter and last-viewed timestamp.
func (s *productService) RecordView(ctx context.Context, id string) (*domain.Product, error) {
	productID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	return s.products.RecordView(ctx, productID)
}

// RecordCartAddition bumps the cart-addition counter.
func (s *productService) RecordCartAddition(ctx context.Context, id string, increment int64) (*domain.Product, error) {
	productID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	if increment == 0 {
		increment = 1
	}
	return s.products.AddCartAdditions(ctx, productID, increment)
}

// RecordPurchases bulk-increments purchase counters for the given ids.
func (s *productService) RecordPurchases(ctx context.Context, ids []string, increment int64) (int64, int64, error) {
	if increment == 0 {
		increment = 1
	}

	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objectID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return 0, 0, ErrInvalidID
		}
		objectIDs = append(objectIDs, objectID)
	}

	return s.products.AddPurchases(ctx, objectIDs, increment)
}
