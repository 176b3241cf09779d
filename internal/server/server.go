package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"threadline/internal/config"
	"threadline/internal/database"
	"threadline/internal/media"
	custommiddleware "threadline/internal/middleware"
	"threadline/internal/repository"
	"threadline/internal/service"
	"threadline/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config      *config.Config
	logger      *zap.Logger
	db          *database.Service
	redisClient *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *database.Service, redisClient *redis.Client, uploader media.Uploader) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.Env == "development"))

	if redisClient != nil && cfg.Redis.RateLimit > 0 {
		router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.Redis.RateLimit,
			Window:            time.Minute,
			KeyPrefix:         "ratelimit",
		}, logger))
	}

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		custommiddleware.RespondWithJSON(w, http.StatusOK, db.Health(ctx))
	})

	// Initialize repositories
	productRepo := repository.NewProductRepository(db.DB())
	categoryRepo := repository.NewCategoryRepository(db.DB())
	interactionRepo := repository.NewInteractionRepository(db.DB())

	// Initialize services
	productService := service.NewProductService(productRepo, categoryRepo, uploader)
	categoryService := service.NewCategoryService(categoryRepo, productRepo)
	ratingService := service.NewRatingService(productRepo)
	similarityService := service.NewSimilarityService(productRepo, cfg.Recommend)
	interactionService := service.NewInteractionService(interactionRepo, cfg.Recommend)
	recommendationService := service.NewRecommendationService(similarityService, interactionService, cfg.Recommend, logger)

	// Initialize handlers
	productHandler := transport.NewProductHandler(productService, ratingService, logger)
	categoryHandler := transport.NewCategoryHandler(categoryService, logger)
	recommendationHandler := transport.NewRecommendationHandler(recommendationService, interactionService, logger)

	// Register routes
	productHandler.RegisterRoutes(router)
	categoryHandler.RegisterRoutes(router)
	recommendationHandler.RegisterRoutes(router)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:      cfg,
		logger:      logger,
		db:          db,
		redisClient: redisClient,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.db != nil {
		if err := s.db.Close(ctx); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
