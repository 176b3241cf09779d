package service

import (
	"context"
	"math"
	"testing"

	"threadline/internal/config"
	"threadline/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testRecommendConfig() config.RecommendConfig {
	return config.RecommendConfig{
		DefaultLimit:       6,
		CategoryWeight:     0.4,
		MaterialWeight:     0.3,
		PriceWeight:        0.2,
		ColorWeight:        0.1,
		PriceBand:          200,
		CategoryCandidates: 100,
		FallbackCandidates: 50,
		PopularityDays:     30,
		SimilarityBlend:    0.7,
		PopularityScore:    0.3,
	}
}

func defaultTestWeights() Weights {
	return Weights{Category: 0.4, Material: 0.3, Price: 0.2, Colors: 0.1}
}

func genColors() gopter.Gen {
	return gen.SliceOf(gen.OneConstOf("black", "white", "navy", "olive", "gray", "beige"))
}

func genScoringProduct(categories []primitive.ObjectID) gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, len(categories)-1),
		gen.OneConstOf("cotton", "linen", "wool", "polyester"),
		gen.Float64Range(0, 1000),
		genColors(),
	).Map(func(values []interface{}) *domain.Product {
		return &domain.Product{
			ID:         primitive.NewObjectID(),
			CategoryID: categories[values[0].(int)],
			Material:   values[1].(string),
			Price:      values[2].(float64),
			Colors:     values[3].([]string),
		}
	})
}

func TestScore_WorkedExample(t *testing.T) {
	category := primitive.NewObjectID()
	target := &domain.Product{
		ID:         primitive.NewObjectID(),
		CategoryID: category,
		Material:   "cotton",
		Price:      100,
		Colors:     []string{"black"},
	}
	candidate := &domain.Product{
		ID:         primitive.NewObjectID(),
		CategoryID: category,
		Material:   "cotton",
		Price:      120,
		Colors:     []string{"black", "white"},
	}

	// 0.4 (category) + 0.3 (material) + 0.2*0.9 (price) + 0.1*0.5 (colors)
	got := Score(target, candidate, defaultTestWeights(), 200)
	want := 0.93
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected score %f, got %f", want, got)
	}
}

func TestProperty_ScoreIsBoundedAndSymmetric(t *testing.T) {
	categories := []primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()}

	properties := gopter.NewProperties(nil)

	properties.Property("scores with normalized weights stay in [0, 1]", prop.ForAll(
		func(a, b *domain.Product) bool {
			score := Score(a, b, defaultTestWeights(), 200)
			if score < 0 || score > 1 {
				t.Logf("FAIL: score %f out of range", score)
				return false
			}
			return true
		},
		genScoringProduct(categories),
		genScoringProduct(categories),
	))

	properties.Property("scoring is symmetric in its arguments", prop.ForAll(
		func(a, b *domain.Product) bool {
			forward := Score(a, b, defaultTestWeights(), 200)
			backward := Score(b, a, defaultTestWeights(), 200)
			if math.Abs(forward-backward) > 1e-9 {
				t.Logf("FAIL: asymmetric scores %f vs %f", forward, backward)
				return false
			}
			return true
		},
		genScoringProduct(categories),
		genScoringProduct(categories),
	))

	properties.Property("price differences at or beyond the band contribute nothing", prop.ForAll(
		func(base float64, excess float64) bool {
			category := primitive.NewObjectID()
			a := &domain.Product{CategoryID: category, Material: "cotton", Price: base}
			b := &domain.Product{CategoryID: category, Material: "cotton", Price: base + 200 + excess}

			// Identical except price, which is fully dissimilar.
			score := Score(a, b, defaultTestWeights(), 200)
			if math.Abs(score-0.7) > 1e-9 {
				t.Logf("FAIL: expected 0.7, got %f", score)
				return false
			}
			return true
		},
		gen.Float64Range(0, 500),
		gen.Float64Range(0, 10000),
	))

	properties.TestingRun(t)
}

func TestColorOverlap_Edges(t *testing.T) {
	if got := colorOverlap(nil, nil); got != 0 {
		t.Fatalf("expected 0 for two empty sets, got %f", got)
	}
	if got := colorOverlap([]string{"black"}, nil); got != 0 {
		t.Fatalf("expected 0 for disjoint sets, got %f", got)
	}
	if got := colorOverlap([]string{"black", "black"}, []string{"black", "black"}); got != 1 {
		t.Fatalf("expected duplicates to count once, got %f", got)
	}
	if got := colorOverlap([]string{"black", "white"}, []string{"white", "navy"}); math.Abs(got-1.0/3.0) > 1e-9 {
		t.Fatalf("expected 1/3, got %f", got)
	}
}

func TestSimilarProducts_UnknownTargetYieldsEmptyResult(t *testing.T) {
	repo := newMockProductRepository()
	svc := NewSimilarityService(repo, testRecommendConfig())
	ctx := context.Background()

	results, err := svc.SimilarProducts(ctx, "not-a-hex-id", nil, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result for malformed id, got %d", len(results))
	}

	results, err = svc.SimilarProducts(ctx, primitive.NewObjectID().Hex(), nil, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty result for missing product, got %d", len(results))
	}
}

func TestSimilarProducts_RanksByDescendingScore(t *testing.T) {
	repo := newMockProductRepository()
	category := primitive.NewObjectID()

	target := repo.add(&domain.Product{
		CategoryID: category,
		Material:   "cotton",
		Price:      100,
		Colors:     []string{"black"},
	})

	// An identical twin, a near match, and a distant one.
	repo.add(&domain.Product{CategoryID: category, Material: "cotton", Price: 100, Colors: []string{"black"}})
	repo.add(&domain.Product{CategoryID: category, Material: "wool", Price: 150, Colors: []string{"navy"}})
	repo.add(&domain.Product{CategoryID: primitive.NewObjectID(), Material: "polyester", Price: 900, Colors: []string{"olive"}})

	svc := NewSimilarityService(repo, testRecommendConfig())
	results, err := svc.SimilarProducts(context.Background(), target.ID.Hex(), nil, 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 scored candidates, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].Score < results[i].Score {
			t.Fatalf("results not sorted descending at index %d", i)
		}
	}
	for _, result := range results {
		if result.Product.ID == target.ID {
			t.Fatal("target leaked into its own recommendations")
		}
	}
}

func TestSimilarProducts_WidensSparseCategories(t *testing.T) {
	repo := newMockProductRepository()
	category := primitive.NewObjectID()

	target := repo.add(&domain.Product{CategoryID: category, Material: "cotton", Price: 100})
	repo.add(&domain.Product{CategoryID: category, Material: "cotton", Price: 110})

	other := primitive.NewObjectID()
	for i := 0; i < 4; i++ {
		repo.add(&domain.Product{CategoryID: other, Material: "linen", Price: 100 + float64(i)})
	}

	svc := NewSimilarityService(repo, testRecommendConfig())
	results, err := svc.SimilarProducts(context.Background(), target.ID.Hex(), nil, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// One same-category candidate is below 2x the limit, so cross-category
	// products must have been pulled in.
	if len(results) != 3 {
		t.Fatalf("expected widened result of 3, got %d", len(results))
	}
	if results[0].Product.CategoryID != category {
		t.Fatal("expected the same-category candidate to rank first")
	}
}
