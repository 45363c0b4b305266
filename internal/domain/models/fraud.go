package models

import "time"

// FraudResult is the terminal aggregate for one listing: the combined fraud
// probability, the three component probabilities, and a discrete confidence
// level in [0,5]. One row per listing, overwritten on every re-run.
type FraudResult struct {
	ListingID string `json:"listing_id" db:"listing_id"`

	FraudProb    float64 `json:"fraud_prob" db:"fraud_prob"`
	LocationProb float64 `json:"location_prob" db:"location_prob"`
	ImageProb    float64 `json:"image_prob" db:"image_prob"`
	PriceProb    float64 `json:"price_prob" db:"price_prob"`

	PriceFlag       PriceStatus `json:"price_flag" db:"price_flag"`
	ConfidenceLevel int         `json:"confidence_level" db:"confidence_level"`

	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}
