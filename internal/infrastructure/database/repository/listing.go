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

// ListingRepository handles listing persistence. The feature vector is stored
// as JSONB exactly as the extractor produced it.
type ListingRepository struct {
	pool *pgxpool.Pool
}

// NewListingRepository creates a new listing repository
func NewListingRepository(pool *pgxpool.Pool) *ListingRepository {
	return &ListingRepository{pool: pool}
}

// Save upserts a listing and its feature vector
func (r *ListingRepository) Save(ctx context.Context, l *models.Listing) error {
	features, err := json.Marshal(l.Features)
	if err != nil {
		return fmt.Errorf("failed to marshal feature vector: %w", err)
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO listings (listing_id, cleaned_html, feature_vector, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (listing_id) DO UPDATE SET
			cleaned_html = EXCLUDED.cleaned_html,
			feature_vector = EXCLUDED.feature_vector`

	if _, err := r.pool.Exec(ctx, query, l.ListingID, l.CleanedHTML, features, l.CreatedAt); err != nil {
		return fmt.Errorf("failed to save listing: %w", err)
	}
	return nil
}

// GetFeatures loads the extracted feature vector for a listing. Returns
// (nil, nil) when the listing does not exist.
func (r *ListingRepository) GetFeatures(ctx context.Context, listingID string) (*models.ListingFeatures, error) {
	query := `SELECT feature_vector FROM listings WHERE listing_id = $1`

	var raw []byte
	err := r.pool.QueryRow(ctx, query, listingID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load listing %s: %w", listingID, err)
	}

	var features models.ListingFeatures
	if err := json.Unmarshal(raw, &features); err != nil {
		return nil, fmt.Errorf("failed to decode feature vector for %s: %w", listingID, err)
	}
	features.ListingID = listingID
	return &features, nil
}
