package service

import (
	"context"
	"errors"

	"threadline/internal/domain"
	"threadline/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// DefaultRatingWeight marks an ordinary, unverified rating.
	DefaultRatingWeight = 1.0

	// verifiedBoost gives verified-purchase ratings 20% more weight in the
	// combined average.
	verifiedBoost = 1.2
)

var (
	ErrInvalidProductID = errors.New("invalid product id")
	ErrInvalidRating    = errors.New("rating must be between 1 and 5")
)

// RatingService applies rating submissions to a product's running aggregate.
type RatingService interface {
	Submit(ctx context.Context, productID string, rating int, weight float64) (*domain.Ratings, error)
}

type ratingService struct {
	products repository.ProductRepository
}

// NewRatingService creates a new instance of RatingService
func NewRatingService(products repository.ProductRepository) RatingService {
	return &ratingService{products: products}
}

// Submit validates the submission and updates the product's rating aggregate
// inside a single transaction: the histogram bucket, the running mean, and,
// for non-default weights, the verified-purchase mean and the combined
// weighted average. Any failure aborts the transaction with no partial state.
func (s *ratingService) Submit(ctx context.Context, productID string, rating int, weight float64) (*domain.Ratings, error) {
	id, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, ErrInvalidProductID
	}
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	var updated *domain.Ratings
	err = s.products.WithTransaction(ctx, func(ctx context.Context) error {
		product, err := s.products.FindByID(ctx, id)
		if err != nil {
			return err
		}

		ratings := product.Ratings
		if ratings == nil {
			ratings = domain.NewRatings()
		}

		oldCount := ratings.Count
		oldAverage := ratings.Average
		newCount := oldCount + 1

		ratings.Distribution[rating]++
		ratings.Average = (oldAverage*float64(oldCount) + float64(rating)) / float64(newCount)
		ratings.Count = newCount

		if weight != DefaultRatingWeight {
			verified := &ratings.VerifiedPurchases
			newVerified := verified.Count + 1
			verified.Average = (verified.Average*float64(verified.Count) + float64(rating)) / float64(newVerified)
			verified.Count = newVerified

			unverified := newCount - newVerified
			ratings.WeightedAverage = (verified.Average*float64(newVerified)*verifiedBoost +
				ratings.Average*float64(unverified)) /
				(float64(newVerified)*verifiedBoost + float64(unverified))
		}

		if err := s.products.SetRatings(ctx, id, ratings); err != nil {
			return err
		}
		updated = ratings
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
