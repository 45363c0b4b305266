package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"listingguard/internal/domain/models"
)

// PriceRepository handles price verification rows, one per listing.
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// Upsert fully replaces the row for the result's listing
func (r *PriceRepository) Upsert(ctx context.Context, result *models.PriceResult) error {
	if result.UpdatedAt.IsZero() {
		result.UpdatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO price_results (
			listing_id, reported_price, surface_m2, price_per_m2,
			estimated_price_m2, estimated_price_m2_alt, comparable_price_m2,
			price_flag, price_prob, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (listing_id) DO UPDATE SET
			reported_price = EXCLUDED.reported_price,
			surface_m2 = EXCLUDED.surface_m2,
			price_per_m2 = EXCLUDED.price_per_m2,
			estimated_price_m2 = EXCLUDED.estimated_price_m2,
			estimated_price_m2_alt = EXCLUDED.estimated_price_m2_alt,
			comparable_price_m2 = EXCLUDED.comparable_price_m2,
			price_flag = EXCLUDED.price_flag,
			price_prob = EXCLUDED.price_prob,
			updated_at = EXCLUDED.updated_at`

	_, err := r.pool.Exec(ctx, query,
		result.ListingID, result.ReportedPrice, result.SurfaceM2, result.PricePerM2,
		result.EstimatedPriceM2, result.EstimatedPriceM2Alt, result.ComparablePriceM2,
		string(result.Status), result.SuspicionProb, result.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert price result: %w", err)
	}
	return nil
}

// GetByListing loads the row for one listing, or (nil, nil) when absent
func (r *PriceRepository) GetByListing(ctx context.Context, listingID string) (*models.PriceResult, error) {
	query := `
		SELECT listing_id, reported_price, surface_m2, price_per_m2,
			   estimated_price_m2, estimated_price_m2_alt, comparable_price_m2,
			   price_flag, price_prob, updated_at
		FROM price_results
		WHERE listing_id = $1`

	var (
		result models.PriceResult
		status string
	)
	err := r.pool.QueryRow(ctx, query, listingID).Scan(
		&result.ListingID, &result.ReportedPrice, &result.SurfaceM2, &result.PricePerM2,
		&result.EstimatedPriceM2, &result.EstimatedPriceM2Alt, &result.ComparablePriceM2,
		&status, &result.SuspicionProb, &result.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan price result: %w", err)
	}
	result.Status = models.PriceStatus(status)
	return &result, nil
}
