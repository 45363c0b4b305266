package models

import (
	"encoding/json"
	"time"
)

// POI is a point of interest near a coordinate. Oracle payloads carry the
// name either flat or nested under a tags object; it is resolved once at the
// client boundary and exposed here as a plain field.
type POI struct {
	Name string            `json:"name"`
	Tags map[string]string `json:"tags,omitempty"`
}

// POIMatch is a POI the listing description was found to be consistent with.
type POIMatch struct {
	POI        string  `json:"poi"`
	Similarity float64 `json:"similarity"`
}

// ContextVerdict is the outcome of matching a description against nearby POIs.
type ContextVerdict struct {
	Verified bool       `json:"verified"`
	Matches  []POIMatch `json:"matches"`
}

// PenalizationUnpopulated is recorded when the populated/urban pre-check
// fails; it marks an explicit "could not corroborate" state rather than a
// clean verification.
const PenalizationUnpopulated = "Unpopulated or non-urban area"

// LocationResult holds everything the geographic verification learned about
// one listing. One row per listing, fully replaced on re-classification.
type LocationResult struct {
	ListingID string `json:"listing_id" db:"listing_id"`

	// Claimed by the listing
	ClaimedAddress      string `json:"claimed_address" db:"claimed_address"`
	ClaimedCity         string `json:"claimed_city,omitempty" db:"claimed_city"`
	ClaimedPostalCode   string `json:"claimed_postal_code,omitempty" db:"claimed_postal_code"`
	ClaimedNeighborhood string `json:"claimed_neighborhood,omitempty" db:"claimed_neighborhood"`

	// Forward geocoding
	ParsedAddress string          `json:"parsed_address" db:"parsed_address"`
	Latitude      float64         `json:"latitude" db:"latitude"`
	Longitude     float64         `json:"longitude" db:"longitude"`
	GeocodeSource json.RawMessage `json:"geocode_source,omitempty" db:"geocode_source"`

	// Reverse geocoding (address of record; degrades to empty)
	ReverseGeocodeAddress string `json:"reverse_geocode_address,omitempty" db:"reverse_geocode_address"`

	// Contextual verification against nearby POIs
	Matches []POIMatch `json:"matches,omitempty" db:"matches"`

	// LocationMatchScore is the complement of the internal confidence
	// accumulator: a weakly corroborated address scores HIGH here. Downstream
	// aggregation consumes it as a suspicion signal.
	LocationMatchScore float64 `json:"location_match_score" db:"location_match_score"`
	ConfidenceLevel    int     `json:"confidence_level" db:"confidence_level"`

	// Set only when the populated/urban pre-check fails.
	PenalizationReason string `json:"penalization_reason,omitempty" db:"penalization_reason"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
