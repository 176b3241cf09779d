package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Mongo      MongoConfig
	Redis      RedisConfig
	Cloudinary CloudinaryConfig
	Recommend  RecommendConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	Host      string
	Port      string
	Password  string
	DB        int
	RateLimit int // requests per minute, 0 disables rate limiting
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// RecommendConfig holds the recommendation tuning knobs. Defaults match the
// values the scoring was calibrated with.
type RecommendConfig struct {
	DefaultLimit       int
	CategoryWeight     float64
	MaterialWeight     float64
	PriceWeight        float64
	ColorWeight        float64
	PriceBand          float64 // price difference treated as maximally dissimilar
	CategoryCandidates int64   // same-category candidate cap
	FallbackCandidates int64   // cross-category candidates added when too few match
	PopularityDays     int     // interaction window for popularity
	SimilarityBlend    float64 // multiplier applied to similarity scores in the hybrid merge
	PopularityScore    float64 // flat score assigned to popularity candidates
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DATABASE", "threadline")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_RATE_LIMIT", 0)
	viper.SetDefault("CLOUDINARY_FOLDER", "products")
	viper.SetDefault("RECOMMEND_DEFAULT_LIMIT", 6)
	viper.SetDefault("RECOMMEND_CATEGORY_WEIGHT", 0.4)
	viper.SetDefault("RECOMMEND_MATERIAL_WEIGHT", 0.3)
	viper.SetDefault("RECOMMEND_PRICE_WEIGHT", 0.2)
	viper.SetDefault("RECOMMEND_COLOR_WEIGHT", 0.1)
	viper.SetDefault("RECOMMEND_PRICE_BAND", 200.0)
	viper.SetDefault("RECOMMEND_CATEGORY_CANDIDATES", 100)
	viper.SetDefault("RECOMMEND_FALLBACK_CANDIDATES", 50)
	viper.SetDefault("RECOMMEND_POPULARITY_DAYS", 30)
	viper.SetDefault("RECOMMEND_SIMILARITY_BLEND", 0.7)
	viper.SetDefault("RECOMMEND_POPULARITY_SCORE", 0.3)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			AllowedOrigins: strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ","),
		},
		Mongo: MongoConfig{
			URI:      viper.GetString("MONGO_URI"),
			Database: viper.GetString("MONGO_DATABASE"),
		},
		Redis: RedisConfig{
			Host:      viper.GetString("REDIS_HOST"),
			Port:      viper.GetString("REDIS_PORT"),
			Password:  viper.GetString("REDIS_PASSWORD"),
			DB:        viper.GetInt("REDIS_DB"),
			RateLimit: viper.GetInt("REDIS_RATE_LIMIT"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: viper.GetString("CLOUDINARY_CLOUD_NAME"),
			APIKey:    viper.GetString("CLOUDINARY_API_KEY"),
			APISecret: viper.GetString("CLOUDINARY_API_SECRET"),
			Folder:    viper.GetString("CLOUDINARY_FOLDER"),
		},
		Recommend: RecommendConfig{
			DefaultLimit:       viper.GetInt("RECOMMEND_DEFAULT_LIMIT"),
			CategoryWeight:     viper.GetFloat64("RECOMMEND_CATEGORY_WEIGHT"),
			MaterialWeight:     viper.GetFloat64("RECOMMEND_MATERIAL_WEIGHT"),
			PriceWeight:        viper.GetFloat64("RECOMMEND_PRICE_WEIGHT"),
			ColorWeight:        viper.GetFloat64("RECOMMEND_COLOR_WEIGHT"),
			PriceBand:          viper.GetFloat64("RECOMMEND_PRICE_BAND"),
			CategoryCandidates: viper.GetInt64("RECOMMEND_CATEGORY_CANDIDATES"),
			FallbackCandidates: viper.GetInt64("RECOMMEND_FALLBACK_CANDIDATES"),
			PopularityDays:     viper.GetInt("RECOMMEND_POPULARITY_DAYS"),
			SimilarityBlend:    viper.GetFloat64("RECOMMEND_SIMILARITY_BLEND"),
			PopularityScore:    viper.GetFloat64("RECOMMEND_POPULARITY_SCORE"),
		},
	}
}
