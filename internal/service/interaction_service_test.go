package service

import (
	"context"
	"testing"
	"time"

	"threadline/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRecordInteraction_Validation(t *testing.T) {
	svc := NewInteractionService(newMockInteractionRepository(), testRecommendConfig())
	ctx := context.Background()

	valid := RecordInteractionInput{
		UserID:    primitive.NewObjectID().Hex(),
		ProductID: primitive.NewObjectID().Hex(),
		Type:      "view",
	}

	bad := valid
	bad.UserID = "nope"
	if _, err := svc.Record(ctx, bad); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID for user id, got %v", err)
	}

	bad = valid
	bad.ProductID = "nope"
	if _, err := svc.Record(ctx, bad); err != ErrInvalidID {
		t.Fatalf("expected ErrInvalidID for product id, got %v", err)
	}

	bad = valid
	bad.Type = "hover"
	if _, err := svc.Record(ctx, bad); err != ErrInvalidInteractionType {
		t.Fatalf("expected ErrInvalidInteractionType, got %v", err)
	}

	interaction, err := svc.Record(ctx, valid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interaction.Type != domain.InteractionView {
		t.Fatalf("unexpected type %q", interaction.Type)
	}
	if interaction.Metadata != nil {
		t.Fatal("expected no metadata when none was given")
	}
}

func TestRecordInteraction_CarriesMetadata(t *testing.T) {
	svc := NewInteractionService(newMockInteractionRepository(), testRecommendConfig())

	interaction, err := svc.Record(context.Background(), RecordInteractionInput{
		UserID:         primitive.NewObjectID().Hex(),
		ProductID:      primitive.NewObjectID().Hex(),
		Type:           "purchase",
		ReferralSource: "newsletter",
		DeviceType:     "mobile",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if interaction.Metadata == nil {
		t.Fatal("expected metadata")
	}
	if interaction.Metadata.ReferralSource != "newsletter" || interaction.Metadata.DeviceType != "mobile" {
		t.Fatalf("metadata not carried: %+v", interaction.Metadata)
	}
}

func TestPopularProducts_CountsOnlyViewsAndPurchasesInWindow(t *testing.T) {
	interactions := newMockInteractionRepository()
	svc := NewInteractionService(interactions, testRecommendConfig())

	inWindow := &domain.Product{ID: primitive.NewObjectID(), Slug: "fresh"}
	stale := &domain.Product{ID: primitive.NewObjectID(), Slug: "stale"}
	cartOnly := &domain.Product{ID: primitive.NewObjectID(), Slug: "cart-only"}
	interactions.products[inWindow.ID] = inWindow
	interactions.products[stale.ID] = stale
	interactions.products[cartOnly.ID] = cartOnly

	interactions.interactions = []*domain.Interaction{
		{ProductID: inWindow.ID, Type: domain.InteractionView, CreatedAt: time.Now().Add(-time.Hour)},
		{ProductID: inWindow.ID, Type: domain.InteractionPurchase, CreatedAt: time.Now().Add(-2 * time.Hour)},
		{ProductID: stale.ID, Type: domain.InteractionView, CreatedAt: time.Now().AddDate(0, 0, -45)},
		{ProductID: cartOnly.ID, Type: domain.InteractionCart, CreatedAt: time.Now().Add(-time.Hour)},
	}

	popular, err := svc.PopularProducts(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Cart events and interactions outside the 30-day window do not count,
	// and there is no backfill to pad the list.
	if len(popular) != 1 {
		t.Fatalf("expected 1 popular product, got %d", len(popular))
	}
	if popular[0].ID != inWindow.ID {
		t.Fatal("expected the recently viewed product")
	}
}

func TestPopularProducts_EmptyWindowYieldsEmptyList(t *testing.T) {
	svc := NewInteractionService(newMockInteractionRepository(), testRecommendConfig())

	popular, err := svc.PopularProducts(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(popular) != 0 {
		t.Fatalf("expected empty list, got %d", len(popular))
	}
}
