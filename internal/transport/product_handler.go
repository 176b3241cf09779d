package transport

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"threadline/internal/domain"
	"threadline/internal/media"
	"threadline/internal/middleware"
	"threadline/internal/repository"
	"threadline/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// createProductForm represents the multipart product-creation payload
type createProductForm struct {
	Name     string  `validate:"required"`
	Slug     string  `validate:"required"`
	Price    float64 `validate:"gte=0"`
	Category string  `validate:"required"`
	Fit      string  `validate:"required"`
	Material string  `validate:"required"`
}

// UpdateProductRequest represents the product update payload; absent fields
// are left unchanged
type UpdateProductRequest struct {
	Name         *string  `json:"name"`
	Slug         *string  `json:"slug"`
	Description  *string  `json:"description"`
	Price        *float64 `json:"price" validate:"omitempty,gte=0"`
	CategorySlug *string  `json:"category"`
	Sizes        []string `json:"sizes"`
	Colors       []string `json:"colors"`
	Fit          *string  `json:"fit"`
	Material     *string  `json:"material"`
}

// CartAdditionRequest represents the cart-addition counter payload
type CartAdditionRequest struct {
	Increment int64 `json:"increment"`
}

// UpdatePurchasesRequest represents the bulk purchase-counter payload
type UpdatePurchasesRequest struct {
	ProductIDs []string `json:"product_ids" validate:"required,min=1"`
	Increment  int64    `json:"increment"`
}

// UpdatePurchasesResponse reports how many products the bulk update touched
type UpdatePurchasesResponse struct {
	Matched  int64 `json:"matched"`
	Modified int64 `json:"modified"`
}

// UpdateRatingsRequest represents a rating submission
type UpdateRatingsRequest struct {
	ProductID string  `json:"product_id" validate:"required"`
	Rating    int     `json:"rating" validate:"required"`
	Weight    float64 `json:"weight"`
}

// UpdateRatingsResponse returns the recomputed rating aggregate
type UpdateRatingsResponse struct {
	AverageRating   float64 `json:"average_rating"`
	RatingCount     int64   `json:"rating_count"`
	WeightedAverage float64 `json:"weighted_average"`
}

// CategoryRef is the category slice embedded in product responses
type CategoryRef struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// CreatedProductResponse is a product joined with its category
type CreatedProductResponse struct {
	*domain.Product
	Category CategoryRef `json:"category"`
}

// SearchResponse groups search matches with result counts
type SearchResponse struct {
	Products   []*domain.Product  `json:"products"`
	Categories []*domain.Category `json:"categories"`
	Meta       SearchMeta         `json:"meta"`
}

// SearchMeta carries search result counts
type SearchMeta struct {
	ProductCount  int `json:"product_count"`
	CategoryCount int `json:"category_count"`
}

// SuggestionsResponse groups typeahead matches
type SuggestionsResponse struct {
	Products   []*domain.Product  `json:"products"`
	Categories []*domain.Category `json:"categories"`
}

// ProductHandler handles HTTP requests for product operations
type ProductHandler struct {
	productService service.ProductService
	ratingService  service.RatingService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, ratingService service.RatingService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		ratingService:  ratingService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/search", h.Search)
		r.Get("/suggestions", h.Suggestions)
		r.Get("/trending", h.Trending)
		r.Get("/slug/{slug}", h.GetBySlug)
		r.Get("/find/{id}", h.GetByID)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/view", h.RecordView)
		r.Patch("/{id}/cart-addition", h.RecordCartAddition)
		r.Post("/update-purchases", h.UpdatePurchases)
		r.Post("/update-ratings", h.UpdateRatings)
	})
}

// Create handles multipart product creation with an image upload
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(media.MaxImageSize); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	required := []string{"name", "slug", "price", "category", "sizes", "colors", "fit", "material"}
	missing := []string{}
	for _, field := range required {
		if r.FormValue(field) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		middleware.RespondWithErrorCode(w, http.StatusBadRequest, "MISSING_FIELDS", "missing required fields",
			map[string]interface{}{"missing_fields": missing})
		return
	}

	price, err := strconv.ParseFloat(r.FormValue("price"), 64)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "price must be a number")
		return
	}

	form := createProductForm{
		Name:     r.FormValue("name"),
		Slug:     r.FormValue("slug"),
		Price:    price,
		Category: r.FormValue("category"),
		Fit:      r.FormValue("fit"),
		Material: r.FormValue("material"),
	}
	if err := middleware.ValidateRequest(form); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request")
		return
	}

	var sizes, colors []string
	if err := json.Unmarshal([]byte(r.FormValue("sizes")), &sizes); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "sizes must be a JSON array of strings")
		return
	}
	if err := json.Unmarshal([]byte(r.FormValue("colors")), &colors); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "colors must be a JSON array of strings")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	if err := media.ValidateImage(header); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, category, err := h.productService.Create(r.Context(), service.CreateProductInput{
		Name:         form.Name,
		Slug:         form.Slug,
		Description:  r.FormValue("description"),
		Price:        form.Price,
		CategorySlug: form.Category,
		Sizes:        sizes,
		Colors:       colors,
		Fit:          form.Fit,
		Material:     form.Material,
		Image:        file,
	})
	if err != nil {
		h.handleProductError(w, err, "Product creation failed")
		return
	}

	h.logger.Info("Product created",
		zap.String("product_id", product.ID.Hex()),
		zap.String("slug", product.Slug),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, CreatedProductResponse{
		Product:  product,
		Category: CategoryRef{Name: category.Name, Slug: category.Slug},
	})
}

// List handles product listing with optional category and search filters
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.productService.List(r.Context(), r.URL.Query().Get("category"), r.URL.Query().Get("search"))
	if err != nil {
		h.handleProductError(w, err, "Failed to list products")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// GetBySlug handles product lookup by slug
func (h *ProductHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.handleProductError(w, err, "Failed to fetch product by slug")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// GetByID handles product lookup by id
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleProductError(w, err, "Failed to fetch product by id")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Update handles partial product updates
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.productService.Update(r.Context(), chi.URLParam(r, "id"), service.UpdateProductInput{
		Name:         req.Name,
		Slug:         req.Slug,
		Description:  req.Description,
		Price:        req.Price,
		CategorySlug: req.CategorySlug,
		Sizes:        req.Sizes,
		Colors:       req.Colors,
		Fit:          req.Fit,
		Material:     req.Material,
	})
	if err != nil {
		h.handleProductError(w, err, "Failed to update product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// Delete handles product deletion
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.productService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleProductError(w, err, "Failed to delete product")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "product deleted"})
}

// Search handles combined product and category search
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) < 2 {
		middleware.RespondWithError(w, http.StatusBadRequest, "search query must be at least 2 characters long")
		return
	}

	results, err := h.productService.Search(r.Context(), query)
	if err != nil {
		h.handleProductError(w, err, "Search failed")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, SearchResponse{
		Products:   results.Products,
		Categories: results.Categories,
		Meta: SearchMeta{
			ProductCount:  len(results.Products),
			CategoryCount: len(results.Categories),
		},
	})
}

// Suggestions handles typeahead suggestions. Short queries return an empty
// result rather than an error.
func (h *ProductHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) < 2 {
		middleware.RespondWithJSON(w, http.StatusOK, SuggestionsResponse{
			Products:   []*domain.Product{},
			Categories: []*domain.Category{},
		})
		return
	}

	results, err := h.productService.Suggestions(r.Context(), query)
	if err != nil {
		h.handleProductError(w, err, "Suggestions failed")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, SuggestionsResponse{
		Products:   results.Products,
		Categories: results.Categories,
	})
}

// Trending handles the weighted engagement ranking
func (h *ProductHandler) Trending(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			middleware.RespondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	trending, err := h.productService.Trending(r.Context(), limit)
	if err != nil {
		h.handleProductError(w, err, "Failed to rank trending products")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, trending)
}

// RecordView bumps the view counter for a product
func (h *ProductHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	product, err := h.productService.RecordView(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleProductError(w, err, "Failed to record view")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// RecordCartAddition bumps the cart-addition counter for a product
func (h *ProductHandler) RecordCartAddition(w http.ResponseWriter, r *http.Request) {
	var req CartAdditionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req.Increment = 1
	}

	product, err := h.productService.RecordCartAddition(r.Context(), chi.URLParam(r, "id"), req.Increment)
	if err != nil {
		h.handleProductError(w, err, "Failed to record cart addition")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

// UpdatePurchases bulk-increments purchase counters
func (h *ProductHandler) UpdatePurchases(w http.ResponseWriter, r *http.Request) {
	var req UpdatePurchasesRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	matched, modified, err := h.productService.RecordPurchases(r.Context(), req.ProductIDs, req.Increment)
	if err != nil {
		h.handleProductError(w, err, "Failed to update purchases")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, UpdatePurchasesResponse{Matched: matched, Modified: modified})
}

// UpdateRatings applies a rating submission inside a transaction
func (h *ProductHandler) UpdateRatings(w http.ResponseWriter, r *http.Request) {
	var req UpdateRatingsRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	weight := req.Weight
	if weight == 0 {
		weight = service.DefaultRatingWeight
	}

	ratings, err := h.ratingService.Submit(r.Context(), req.ProductID, req.Rating, weight)
	if err != nil {
		switch err {
		case service.ErrInvalidProductID:
			middleware.RespondWithErrorCode(w, http.StatusBadRequest, "INVALID_PRODUCT_ID", err.Error(), nil)
		case service.ErrInvalidRating:
			middleware.RespondWithErrorCode(w, http.StatusBadRequest, "INVALID_RATING", err.Error(), nil)
		case repository.ErrProductNotFound:
			middleware.RespondWithErrorCode(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", err.Error(), nil)
		default:
			h.logger.Error("Rating update failed", zap.Error(err))
			middleware.RespondWithErrorCode(w, http.StatusInternalServerError, "RATING_UPDATE_FAILED", "failed to update product ratings", nil)
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, UpdateRatingsResponse{
		AverageRating:   ratings.Average,
		RatingCount:     ratings.Count,
		WeightedAverage: ratings.WeightedAverage,
	})
}

// handleProductError maps service errors onto HTTP responses
func (h *ProductHandler) handleProductError(w http.ResponseWriter, err error, logMessage string) {
	switch err {
	case service.ErrInvalidID:
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid id format")
	case repository.ErrProductNotFound:
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case repository.ErrCategoryNotFound:
		middleware.RespondWithError(w, http.StatusNotFound, "category not found")
	case repository.ErrProductSlugTaken:
		middleware.RespondWithError(w, http.StatusConflict, "product with this slug already exists")
	case media.ErrNotConfigured:
		middleware.RespondWithError(w, http.StatusServiceUnavailable, "media uploads are not configured")
	default:
		h.logger.Error(logMessage, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
