package models

import "time"

// PriceStatus classifies the declared price against the market model.
type PriceStatus string

const (
	PriceStatusOK         PriceStatus = "OK"
	PriceStatusSuspicious PriceStatus = "SUSPICIOUS"
)

// PriceResult holds the price consistency check for one listing.
type PriceResult struct {
	ListingID string `json:"listing_id" db:"listing_id"`

	ReportedPrice float64 `json:"reported_price" db:"reported_price"`
	SurfaceM2     float64 `json:"surface_m2" db:"surface_m2"`
	PricePerM2    float64 `json:"price_per_m2" db:"price_per_m2"`

	// Oracle estimates for the resolved region
	EstimatedPriceM2    float64 `json:"estimated_price_m2" db:"estimated_price_m2"`
	EstimatedPriceM2Alt float64 `json:"estimated_price_m2_alt" db:"estimated_price_m2_alt"`

	// Market comparable from portal search around the resolved coordinate,
	// zero when unavailable.
	ComparablePriceM2 float64 `json:"comparable_price_m2,omitempty" db:"comparable_price_m2"`

	Status        PriceStatus `json:"status" db:"price_flag"`
	SuspicionProb float64     `json:"score" db:"price_prob"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
