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

// FraudRepository handles the terminal aggregate rows, one per listing.
type FraudRepository struct {
	pool *pgxpool.Pool
}

// NewFraudRepository creates a new fraud repository
func NewFraudRepository(pool *pgxpool.Pool) *FraudRepository {
	return &FraudRepository{pool: pool}
}

// Upsert fully replaces the row for the result's listing
func (r *FraudRepository) Upsert(ctx context.Context, result *models.FraudResult) error {
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO fraud_results (
			listing_id, fraud_prob, location_prob, image_prob, price_prob,
			price_flag, confidence_level, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (listing_id) DO UPDATE SET
			fraud_prob = EXCLUDED.fraud_prob,
			location_prob = EXCLUDED.location_prob,
			image_prob = EXCLUDED.image_prob,
			price_prob = EXCLUDED.price_prob,
			price_flag = EXCLUDED.price_flag,
			confidence_level = EXCLUDED.confidence_level,
			timestamp = EXCLUDED.timestamp`

	_, err := r.pool.Exec(ctx, query,
		result.ListingID, result.FraudProb, result.LocationProb, result.ImageProb,
		result.PriceProb, string(result.PriceFlag), result.ConfidenceLevel, result.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert fraud result: %w", err)
	}
	return nil
}

// Get loads the aggregate for one listing, or (nil, nil) when absent
func (r *FraudRepository) Get(ctx context.Context, listingID string) (*models.FraudResult, error) {
	query := `
		SELECT listing_id, fraud_prob, location_prob, image_prob, price_prob,
			   price_flag, confidence_level, timestamp
		FROM fraud_results
		WHERE listing_id = $1`

	return r.scanFraud(r.pool.QueryRow(ctx, query, listingID))
}

// List returns the most recently classified listings
func (r *FraudRepository) List(ctx context.Context, limit, offset int) ([]*models.FraudResult, error) {
	query := `
		SELECT listing_id, fraud_prob, location_prob, image_prob, price_prob,
			   price_flag, confidence_level, timestamp
		FROM fraud_results
		ORDER BY timestamp DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list fraud results: %w", err)
	}
	defer rows.Close()

	var results []*models.FraudResult
	for rows.Next() {
		result, err := r.scanFraud(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

func (r *FraudRepository) scanFraud(row pgx.Row) (*models.FraudResult, error) {
	var (
		result models.FraudResult
		flag   string
	)
	err := row.Scan(
		&result.ListingID, &result.FraudProb, &result.LocationProb, &result.ImageProb,
		&result.PriceProb, &flag, &result.ConfidenceLevel, &result.Timestamp,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan fraud result: %w", err)
	}
	result.PriceFlag = models.PriceStatus(flag)
	return &result, nil
}
