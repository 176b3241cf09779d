package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"threadline/internal/config"
	"threadline/internal/domain"
	"threadline/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Weights controls how much each signal contributes to a similarity score.
// The defaults sum to 1.0, which keeps scores in [0, 1].
type Weights struct {
	Category float64
	Material float64
	Price    float64
	Colors   float64
}

// ScoredProduct pairs a candidate with its similarity score against a target.
type ScoredProduct struct {
	Product *domain.Product
	Score   float64
}

// SimilarityService ranks products by content similarity to a target product.
type SimilarityService interface {
	SimilarProducts(ctx context.Context, productID string, overrides *Weights, limit int) ([]ScoredProduct, error)
}

type similarityService struct {
	products repository.ProductRepository
	cfg      config.RecommendConfig
}

// NewSimilarityService creates a new instance of SimilarityService
func NewSimilarityService(products repository.ProductRepository, cfg config.RecommendConfig) SimilarityService {
	return &similarityService{products: products, cfg: cfg}
}

// SimilarProducts returns up to limit products ranked by descending
// similarity to the target. A missing or malformed target id yields an empty
// result rather than an error. Candidates come from the target's category
// first; when fewer than twice the limit are found the set is widened with
// products from other categories.
func (s *similarityService) SimilarProducts(ctx context.Context, productID string, overrides *Weights, limit int) ([]ScoredProduct, error) {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	targetID, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return []ScoredProduct{}, nil
	}

	target, err := s.products.FindByID(ctx, targetID)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return []ScoredProduct{}, nil
		}
		return nil, fmt.Errorf("failed to fetch similarity target: %w", err)
	}

	weights := s.defaultWeights()
	if overrides != nil {
		weights = *overrides
	}

	candidates, err := s.products.FindByCategory(ctx, target.CategoryID, target.ID, s.cfg.CategoryCandidates)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch similarity candidates: %w", err)
	}

	// Widen the search when the category is sparse.
	if len(candidates) < limit*2 {
		additional, err := s.products.FindOutsideCategory(ctx, target.CategoryID, target.ID, s.cfg.FallbackCandidates)
		if err != nil {
			return nil, fmt.Errorf("failed to widen similarity candidates: %w", err)
		}
		candidates = append(candidates, additional...)
	}

	scored := make([]ScoredProduct, 0, len(candidates))
	for _, candidate := range candidates {
		scored = append(scored, ScoredProduct{
			Product: candidate,
			Score:   Score(target, candidate, weights, s.cfg.PriceBand),
		})
	}

	// Stable sort preserves fetch order between tied candidates.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (s *similarityService) defaultWeights() Weights {
	return Weights{
		Category: s.cfg.CategoryWeight,
		Material: s.cfg.MaterialWeight,
		Price:    s.cfg.PriceWeight,
		Colors:   s.cfg.ColorWeight,
	}
}

// Score computes the weighted similarity between two products. Each signal is
// normalized to [0, 1], so with weights summing to 1.0 the result is in
// [0, 1]. priceBand is the price difference at which the price signal bottoms
// out.
func Score(a, b *domain.Product, w Weights, priceBand float64) float64 {
	var score float64

	if a.CategoryID == b.CategoryID {
		score += w.Category
	}

	if a.Material == b.Material {
		score += w.Material
	}

	priceDiff := math.Abs(a.Price - b.Price)
	score += w.Price * (1 - math.Min(priceDiff/priceBand, 1))

	score += w.Colors * colorOverlap(a.Colors, b.Colors)

	return score
}

// colorOverlap is the Jaccard similarity of two color sets: intersection over
// union, or 0 when both sets are empty.
func colorOverlap(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, c := range a {
		setA[c] = struct{}{}
	}

	union := make(map[string]struct{}, len(a)+len(b))
	for c := range setA {
		union[c] = struct{}{}
	}

	intersection := 0
	for _, c := range b {
		if _, seen := union[c]; !seen {
			union[c] = struct{}{}
			continue
		}
		if _, inA := setA[c]; inA {
			intersection++
			// Count each shared color once even if it repeats in b.
			delete(setA, c)
		}
	}

	if len(union) == 0 {
		return 0
	}
	return float64(intersection) / float64(len(union))
}
