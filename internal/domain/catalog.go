package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product represents a product in the catalog, including the engagement
// counters the trending and recommendation queries read.
type Product struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Slug          string             `bson:"slug" json:"slug"`
	Description   string             `bson:"description" json:"description"`
	Price         float64            `bson:"price" json:"price"`
	CategoryID    primitive.ObjectID `bson:"category" json:"category_id"`
	Sizes         []string           `bson:"sizes" json:"sizes"`
	Colors        []string           `bson:"colors" json:"colors"`
	Fit           string             `bson:"fit" json:"fit"`
	Material      string             `bson:"material" json:"material"`
	ImageURL      string             `bson:"imageUrl" json:"image_url"`
	Views         int64              `bson:"views" json:"views"`
	Purchases     int64              `bson:"purchases" json:"purchases"`
	CartAdditions int64              `bson:"cartAdditions" json:"cart_additions"`
	LastViewed    *time.Time         `bson:"lastViewed,omitempty" json:"last_viewed,omitempty"`
	Ratings       *Ratings           `bson:"ratings,omitempty" json:"ratings,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updated_at"`
}

// Ratings is the running rating aggregate kept on a product. Distribution is
// indexed by star value; bucket 0 is unused.
type Ratings struct {
	Average           float64         `bson:"average" json:"average"`
	Count             int64           `bson:"count" json:"count"`
	Distribution      [6]int64        `bson:"distribution" json:"distribution"`
	WeightedAverage   float64         `bson:"weightedAverage" json:"weighted_average"`
	VerifiedPurchases VerifiedRatings `bson:"verifiedPurchases" json:"verified_purchases"`
}

// VerifiedRatings tracks the subset of ratings submitted with a non-default
// weight, i.e. ratings tied to a verified purchase.
type VerifiedRatings struct {
	Average float64 `bson:"average" json:"average"`
	Count   int64   `bson:"count" json:"count"`
}

// NewRatings returns the zero-state aggregate a product starts from.
func NewRatings() *Ratings {
	return &Ratings{}
}

// Category is a node in the self-referential category tree. ParentSlug is
// denormalized from the parent at creation time.
type Category struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name       string              `bson:"name" json:"name"`
	Slug       string              `bson:"slug" json:"slug"`
	ParentID   *primitive.ObjectID `bson:"parent,omitempty" json:"parent_id,omitempty"`
	ParentSlug string              `bson:"parentslug,omitempty" json:"parent_slug,omitempty"`
	Filters    []Filter            `bson:"filters" json:"filters"`
	CreatedAt  time.Time           `bson:"createdAt" json:"created_at"`
}

// Filter is a faceted-navigation definition attached to a category.
type Filter struct {
	Name   string   `bson:"name" json:"name"`
	Values []string `bson:"values" json:"values"`
}

// InteractionType enumerates the user actions the event log records.
type InteractionType string

const (
	InteractionView     InteractionType = "view"
	InteractionCart     InteractionType = "cart"
	InteractionPurchase InteractionType = "purchase"
	InteractionWishlist InteractionType = "wishlist"
)

// Valid reports whether t is one of the known interaction types.
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionView, InteractionCart, InteractionPurchase, InteractionWishlist:
		return true
	}
	return false
}

// Interaction is one append-only entry in the user-action event log. Entries
// are written once and only ever read in bulk by the popularity aggregation.
type Interaction struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID   `bson:"user" json:"user_id"`
	ProductID primitive.ObjectID   `bson:"product" json:"product_id"`
	Type      InteractionType      `bson:"type" json:"type"`
	Metadata  *InteractionMetadata `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt time.Time            `bson:"createdAt" json:"created_at"`
}

// InteractionMetadata carries optional context about where an interaction
// originated.
type InteractionMetadata struct {
	ReferralSource string `bson:"referralSource,omitempty" json:"referral_source,omitempty"`
	DeviceType     string `bson:"deviceType,omitempty" json:"device_type,omitempty"`
}

// TrendingProduct is the projected shape returned by the trending
// aggregation: a slimmed product plus its computed engagement score.
type TrendingProduct struct {
	ID            primitive.ObjectID `bson:"_id" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Slug          string             `bson:"slug" json:"slug"`
	Price         float64            `bson:"price" json:"price"`
	ImageURL      string             `bson:"imageUrl" json:"image_url"`
	Views         int64              `bson:"views" json:"views"`
	Purchases     int64              `bson:"purchases" json:"purchases"`
	CartAdditions int64              `bson:"cartAdditions" json:"cart_additions"`
	Category      TrendingCategory   `bson:"category" json:"category"`
	FinalScore    float64            `bson:"finalScore" json:"final_score"`
}

// TrendingCategory is the category slice projected into trending results.
type TrendingCategory struct {
	Name string `bson:"name" json:"name"`
}
