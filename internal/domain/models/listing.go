package models

import "time"

// ListingFeatures is the structured feature vector extracted from a scraped
// listing page. It is produced by the extraction collaborator and read-only
// inside the scoring engine.
type ListingFeatures struct {
	ListingID   string   `json:"listing_id" db:"listing_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Address     string   `json:"address"`
	Price       string   `json:"price"`
	Surface     string   `json:"meters"`
	Bedrooms    int      `json:"bedrooms"`
	ImageURLs   []string `json:"images"`
}

// Listing wraps a feature vector together with its storage metadata.
type Listing struct {
	ListingID   string          `json:"listing_id" db:"listing_id"`
	CleanedHTML string          `json:"-" db:"cleaned_html"`
	Features    ListingFeatures `json:"features" db:"feature_vector"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
