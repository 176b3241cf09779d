package transport

import (
	"net/http"

	"threadline/internal/domain"
	"threadline/internal/middleware"
	"threadline/internal/repository"
	"threadline/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateCategoryRequest represents the category creation payload. A blank or
// "none" parent creates a root category.
type CreateCategoryRequest struct {
	Name       string          `json:"name" validate:"required"`
	Slug       string          `json:"slug" validate:"required"`
	ParentSlug string          `json:"parent_slug"`
	Filters    []domain.Filter `json:"filters"`
}

// CategoryHandler handles HTTP requests for category operations
type CategoryHandler struct {
	categoryService service.CategoryService
	logger          *zap.Logger
}

// NewCategoryHandler creates a new CategoryHandler
func NewCategoryHandler(categoryService service.CategoryService, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		logger:          logger,
	}
}

// RegisterRoutes registers all category routes
func (h *CategoryHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", h.Tree)
		r.Post("/", h.Create)
		r.Get("/slug/{slug}", h.GetBySlug)
		r.Get("/{slug}/products", h.Products)
	})
}

// Create handles category creation
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category, err := h.categoryService.Create(r.Context(), service.CreateCategoryInput{
		Name:       req.Name,
		Slug:       req.Slug,
		ParentSlug: req.ParentSlug,
		Filters:    req.Filters,
	})
	if err != nil {
		h.handleCategoryError(w, err, "Category creation failed")
		return
	}

	h.logger.Info("Category created",
		zap.String("category_id", category.ID.Hex()),
		zap.String("slug", category.Slug),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, category)
}

// Tree returns all categories as a nested hierarchy
func (h *CategoryHandler) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.categoryService.Tree(r.Context())
	if err != nil {
		h.handleCategoryError(w, err, "Failed to build category tree")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, tree)
}

// GetBySlug handles category lookup by slug
func (h *CategoryHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	category, err := h.categoryService.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.handleCategoryError(w, err, "Failed to fetch category by slug")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, category)
}

// Products lists the products that belong to a category
func (h *CategoryHandler) Products(w http.ResponseWriter, r *http.Request) {
	products, err := h.categoryService.ProductsIn(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.handleCategoryError(w, err, "Failed to list category products")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, products)
}

// handleCategoryError maps service errors onto HTTP responses
func (h *CategoryHandler) handleCategoryError(w http.ResponseWriter, err error, logMessage string) {
	switch err {
	case repository.ErrCategoryNotFound:
		middleware.RespondWithError(w, http.StatusNotFound, "category not found")
	case service.ErrParentCategoryNotFound:
		middleware.RespondWithError(w, http.StatusNotFound, "parent category not found")
	case repository.ErrCategorySlugTaken:
		middleware.RespondWithError(w, http.StatusConflict, "category with this slug already exists")
	default:
		h.logger.Error(logMessage, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
