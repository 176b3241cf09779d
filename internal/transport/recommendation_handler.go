package transport

import (
	"net/http"
	"strconv"

	"threadline/internal/middleware"
	"threadline/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RecordInteractionRequest represents a recorded user interaction
type RecordInteractionRequest struct {
	UserID         string `json:"user_id" validate:"required"`
	ProductID      string `json:"product_id" validate:"required"`
	Type           string `json:"type" validate:"required,oneof=view cart purchase wishlist"`
	ReferralSource string `json:"referral_source"`
	DeviceType     string `json:"device_type"`
}

// RecommendationHandler handles HTTP requests for recommendations and
// interaction tracking
type RecommendationHandler struct {
	recommendations service.RecommendationService
	interactions    service.InteractionService
	logger          *zap.Logger
}

// NewRecommendationHandler creates a new RecommendationHandler
func NewRecommendationHandler(
	recommendations service.RecommendationService,
	interactions service.InteractionService,
	logger *zap.Logger,
) *RecommendationHandler {
	return &RecommendationHandler{
		recommendations: recommendations,
		interactions:    interactions,
		logger:          logger,
	}
}

// RegisterRoutes registers recommendation and interaction routes
func (h *RecommendationHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/recommendations", func(r chi.Router) {
		r.Get("/", h.ForUser)
		r.Get("/{productId}", h.ForProduct)
	})
	r.Post("/api/interactions", h.RecordInteraction)
}

// ForProduct returns a hybrid ranking anchored on a product
func (h *RecommendationHandler) ForProduct(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.parseLimit(w, r)
	if !ok {
		return
	}

	result, err := h.recommendations.Recommend(r.Context(), chi.URLParam(r, "productId"), limit)
	if err != nil {
		h.logger.Error("Recommendation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to compute recommendations")
		return
	}

	h.respond(w, result)
}

// ForUser returns recommendations for a (possibly anonymous) user
func (h *RecommendationHandler) ForUser(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.parseLimit(w, r)
	if !ok {
		return
	}

	result, err := h.recommendations.ForUser(r.Context(), r.URL.Query().Get("userId"), limit)
	if err != nil {
		h.logger.Error("Recommendation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to compute recommendations")
		return
	}

	h.respond(w, result)
}

// RecordInteraction stores a user interaction event
func (h *RecommendationHandler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	var req RecordInteractionRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	interaction, err := h.interactions.Record(r.Context(), service.RecordInteractionInput{
		UserID:         req.UserID,
		ProductID:      req.ProductID,
		Type:           req.Type,
		ReferralSource: req.ReferralSource,
		DeviceType:     req.DeviceType,
	})
	if err != nil {
		switch err {
		case service.ErrInvalidID, service.ErrInvalidInteractionType:
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("Failed to record interaction", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to record interaction")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, interaction)
}

func (h *RecommendationHandler) respond(w http.ResponseWriter, result *service.Recommendations) {
	if result.Degraded {
		h.logger.Warn("Serving degraded recommendations", zap.String("reason", result.FallbackReason))
		w.Header().Set("X-Recommendations-Degraded", "true")
	}
	middleware.RespondWithJSON(w, http.StatusOK, result.Products)
}

func (h *RecommendationHandler) parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		middleware.RespondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return limit, true
}
