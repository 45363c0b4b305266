package models

import (
	"encoding/json"
	"time"
)

// ImageCheck is the outcome of verifying a single listing image.
type ImageCheck struct {
	ImageURL    string          `json:"image_url"`
	Caption     string          `json:"caption,omitempty"`
	SimilarURL  string          `json:"similar_url,omitempty"`
	Similarity  float64         `json:"similarity"`
	AIGenerated bool            `json:"ai_generated"`
	DetectorRaw json.RawMessage `json:"detector_raw,omitempty"`
}

// ImageResult aggregates the per-image checks for one listing.
//
// SimilarityScore is the maximum across images: a single image traced back to
// another portal is enough to flag the listing. AIGenerated is the fraction
// of images the detector flagged.
type ImageResult struct {
	ImageURLs       []string          `json:"image_urls"`
	Captions        []string          `json:"auto_descriptions"`
	SimilarImages   []string          `json:"similar_images"`
	DetectorFlags   []json.RawMessage `json:"detector_flags,omitempty"`
	SimilarityScore float64           `json:"similarity_score"`
	AIGenerated     float64           `json:"ia_generated"`
}

// MediaRecord is the persisted form of an image verification run, with the
// reverse-search bookkeeping derived during the same pass.
type MediaRecord struct {
	ListingID string `json:"listing_id" db:"listing_id"`

	ImageURLs          []string          `json:"image_urls" db:"image_urls"`
	ReverseSearchCount int               `json:"reverse_search_count" db:"reverse_search_count"`
	ReverseSources     []string          `json:"reverse_search_sources" db:"reverse_search_sources"`
	VisualNotes        []string          `json:"visual_notes" db:"visual_notes"`
	DetectorFlags      []json.RawMessage `json:"detector_flags,omitempty" db:"detector_flags"`
	SimilarityScore    float64           `json:"similarity_score" db:"similarity_score"`
	AIGeneratedRatio   float64           `json:"ai_generated_ratio" db:"ai_generated_ratio"`
	ManipulationFlag   bool              `json:"manipulation_detected" db:"manipulation_detected"`
	UpdatedAt          time.Time         `json:"updated_at" db:"updated_at"`
}
