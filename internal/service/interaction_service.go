package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"threadline/internal/config"
	"threadline/internal/domain"
	"threadline/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrInvalidID              = errors.New("invalid object id")
	ErrInvalidInteractionType = errors.New("unknown interaction type")
)

// RecordInteractionInput describes one user action to append to the event
// log.
type RecordInteractionInput struct {
	UserID         string
	ProductID      string
	Type           string
	ReferralSource string
	DeviceType     string
}

// InteractionService owns the append-only interaction log and the popularity
// ranking derived from it.
type InteractionService interface {
	Record(ctx context.Context, input RecordInteractionInput) (*domain.Interaction, error)
	PopularProducts(ctx context.Context, limit int) ([]*domain.Product, error)
}

type interactionService struct {
	interactions repository.InteractionRepository
	cfg          config.RecommendConfig
}

// NewInteractionService creates a new instance of InteractionService
func NewInteractionService(interactions repository.InteractionRepository, cfg config.RecommendConfig) InteractionService {
	return &interactionService{interactions: interactions, cfg: cfg}
}

// Record validates and appends an interaction event.
func (s *interactionService) Record(ctx context.Context, input RecordInteractionInput) (*domain.Interaction, error) {
	userID, err := primitive.ObjectIDFromHex(input.UserID)
	if err != nil {
		return nil, ErrInvalidID
	}

	productID, err := primitive.ObjectIDFromHex(input.ProductID)
	if err != nil {
		return nil, ErrInvalidID
	}

	interactionType := domain.InteractionType(input.Type)
	if !interactionType.Valid() {
		return nil, ErrInvalidInteractionType
	}

	interaction := &domain.Interaction{
		UserID:    userID,
		ProductID: productID,
		Type:      interactionType,
	}
	if input.ReferralSource != "" || input.DeviceType != "" {
		interaction.Metadata = &domain.InteractionMetadata{
			ReferralSource: input.ReferralSource,
			DeviceType:     input.DeviceType,
		}
	}

	if err := s.interactions.Create(ctx, interaction); err != nil {
		return nil, fmt.Errorf("failed to record interaction: %w", err)
	}
	return interaction, nil
}

// PopularProducts returns up to limit products ranked by view and purchase
// volume inside the configured window. No backfill happens here: fewer
// qualifying products than limit means a shorter list.
func (s *interactionService) PopularProducts(ctx context.Context, limit int) ([]*domain.Product, error) {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	since := time.Now().AddDate(0, 0, -s.cfg.PopularityDays)
	products, err := s.interactions.PopularProducts(ctx, since, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to rank popular products: %w", err)
	}
	return products, nil
}
