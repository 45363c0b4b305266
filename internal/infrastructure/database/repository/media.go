package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"listingguard/internal/domain/models"
)

// MediaRepository handles image verification rows, one per listing.
type MediaRepository struct {
	pool *pgxpool.Pool
}

// NewMediaRepository creates a new media repository
func NewMediaRepository(pool *pgxpool.Pool) *MediaRepository {
	return &MediaRepository{pool: pool}
}

// Upsert fully replaces the row for the record's listing
func (r *MediaRepository) Upsert(ctx context.Context, record *models.MediaRecord) error {
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now().UTC()
	}

	flags, err := json.Marshal(record.DetectorFlags)
	if err != nil {
		return fmt.Errorf("failed to marshal detector flags: %w", err)
	}

	query := `
		INSERT INTO media_records (
			listing_id, image_urls, reverse_search_count, reverse_search_sources,
			visual_notes, detector_flags, similarity_score, ai_generated_ratio,
			manipulation_detected, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (listing_id) DO UPDATE SET
			image_urls = EXCLUDED.image_urls,
			reverse_search_count = EXCLUDED.reverse_search_count,
			reverse_search_sources = EXCLUDED.reverse_search_sources,
			visual_notes = EXCLUDED.visual_notes,
			detector_flags = EXCLUDED.detector_flags,
			similarity_score = EXCLUDED.similarity_score,
			ai_generated_ratio = EXCLUDED.ai_generated_ratio,
			manipulation_detected = EXCLUDED.manipulation_detected,
			updated_at = EXCLUDED.updated_at`

	_, err = r.pool.Exec(ctx, query,
		record.ListingID, record.ImageURLs, record.ReverseSearchCount, record.ReverseSources,
		record.VisualNotes, flags, record.SimilarityScore, record.AIGeneratedRatio,
		record.ManipulationFlag, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert media record: %w", err)
	}
	return nil
}

// GetByListing loads the row for one listing, or (nil, nil) when absent
func (r *MediaRepository) GetByListing(ctx context.Context, listingID string) (*models.MediaRecord, error) {
	query := `
		SELECT listing_id, image_urls, reverse_search_count, reverse_search_sources,
			   visual_notes, detector_flags, similarity_score, ai_generated_ratio,
			   manipulation_detected, updated_at
		FROM media_records
		WHERE listing_id = $1`

	var record models.MediaRecord
	var flags []byte
	err := r.pool.QueryRow(ctx, query, listingID).Scan(
		&record.ListingID, &record.ImageURLs, &record.ReverseSearchCount, &record.ReverseSources,
		&record.VisualNotes, &flags, &record.SimilarityScore, &record.AIGeneratedRatio,
		&record.ManipulationFlag, &record.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan media record: %w", err)
	}
	if len(flags) > 0 {
		if err := json.Unmarshal(flags, &record.DetectorFlags); err != nil {
			return nil, fmt.Errorf("failed to decode detector flags: %w", err)
		}
	}
	return &record, nil
}
