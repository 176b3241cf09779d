package service

import (
	"context"
	"sort"

	"threadline/internal/config"
	"threadline/internal/domain"

	"go.uber.org/zap"
)

// RecommendationSource tags where a hybrid candidate came from.
type RecommendationSource string

const (
	SourceSimilarity RecommendationSource = "similarity"
	SourcePopularity RecommendationSource = "popularity"
)

// Recommendations is the outcome of a hybrid computation. Degraded is set
// when the similarity path failed and the result fell back to popularity
// alone; FallbackReason records why.
type Recommendations struct {
	Products       []*domain.Product
	Degraded       bool
	FallbackReason string
}

// RecommendationService blends content similarity and popularity into one
// ranked, deduplicated product list.
type RecommendationService interface {
	Recommend(ctx context.Context, productID string, limit int) (*Recommendations, error)
	ForUser(ctx context.Context, userID string, limit int) (*Recommendations, error)
}

type recommendationService struct {
	similarity   SimilarityService
	interactions InteractionService
	cfg          config.RecommendConfig
	logger       *zap.Logger
}

// NewRecommendationService creates a new instance of RecommendationService
func NewRecommendationService(
	similarity SimilarityService,
	interactions InteractionService,
	cfg config.RecommendConfig,
	logger *zap.Logger,
) RecommendationService {
	return &recommendationService{
		similarity:   similarity,
		interactions: interactions,
		cfg:          cfg,
		logger:       logger,
	}
}

type hybridCandidate struct {
	product *domain.Product
	score   float64
	source  RecommendationSource
}

// Recommend merges similarity candidates (when a product id is given) with
// popularity candidates. Similarity entries are appended first, so a product
// present in both lists keeps its similarity-derived score. A similarity
// failure degrades the result to popularity alone instead of propagating.
func (s *recommendationService) Recommend(ctx context.Context, productID string, limit int) (*Recommendations, error) {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	candidates := []hybridCandidate{}

	if productID != "" {
		similar, err := s.similarity.SimilarProducts(ctx, productID, nil, limit)
		if err != nil {
			s.logger.Warn("Similarity scoring failed, falling back to popularity",
				zap.String("product_id", productID),
				zap.Error(err),
			)
			return s.popularityFallback(ctx, limit, err.Error())
		}
		for _, item := range similar {
			candidates = append(candidates, hybridCandidate{
				product: item.Product,
				score:   item.Score * s.cfg.SimilarityBlend,
				source:  SourceSimilarity,
			})
		}
	}

	popular, err := s.interactions.PopularProducts(ctx, limit)
	if err != nil {
		return nil, err
	}
	for _, product := range popular {
		candidates = append(candidates, hybridCandidate{
			product: product,
			score:   s.cfg.PopularityScore,
			source:  SourcePopularity,
		})
	}

	return &Recommendations{Products: rank(candidates, limit)}, nil
}

// ForUser is the personalized entry point. User interaction history is not
// consulted yet; the id is accepted for wire compatibility and the anonymous
// hybrid computation runs instead.
func (s *recommendationService) ForUser(ctx context.Context, userID string, limit int) (*Recommendations, error) {
	_ = userID
	return s.Recommend(ctx, "", limit)
}

func (s *recommendationService) popularityFallback(ctx context.Context, limit int, reason string) (*Recommendations, error) {
	popular, err := s.interactions.PopularProducts(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(popular) > limit {
		popular = popular[:limit]
	}
	return &Recommendations{
		Products:       popular,
		Degraded:       true,
		FallbackReason: reason,
	}, nil
}

// rank deduplicates by product id keeping the first occurrence, sorts
// descending by score, and truncates to limit.
func rank(candidates []hybridCandidate, limit int) []*domain.Product {
	seen := make(map[string]struct{}, len(candidates))
	deduped := make([]hybridCandidate, 0, len(candidates))
	for _, c := range candidates {
		key := c.product.ID.Hex()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, c)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].score > deduped[j].score
	})

	if len(deduped) > limit {
		deduped = deduped[:limit]
	}

	products := make([]*domain.Product, 0, len(deduped))
	for _, c := range deduped {
		products = append(products, c.product)
	}
	return products
}
