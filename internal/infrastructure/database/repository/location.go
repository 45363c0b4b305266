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

// LocationRepository handles location verification rows, one per listing.
type LocationRepository struct {
	pool *pgxpool.Pool
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(pool *pgxpool.Pool) *LocationRepository {
	return &LocationRepository{pool: pool}
}

// Upsert fully replaces the row for the result's listing
func (r *LocationRepository) Upsert(ctx context.Context, result *models.LocationResult) error {
	matches, err := json.Marshal(result.Matches)
	if err != nil {
		return fmt.Errorf("failed to marshal poi matches: %w", err)
	}
	if result.UpdatedAt.IsZero() {
		result.UpdatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO location_results (
			listing_id, claimed_address, claimed_city, claimed_postal_code,
			claimed_neighborhood, parsed_address, latitude, longitude,
			geocode_source, reverse_geocode_address, matches,
			location_match_score, confidence_level, penalization_reason, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
		ON CONFLICT (listing_id) DO UPDATE SET
			claimed_address = EXCLUDED.claimed_address,
			claimed_city = EXCLUDED.claimed_city,
			claimed_postal_code = EXCLUDED.claimed_postal_code,
			claimed_neighborhood = EXCLUDED.claimed_neighborhood,
			parsed_address = EXCLUDED.parsed_address,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			geocode_source = EXCLUDED.geocode_source,
			reverse_geocode_address = EXCLUDED.reverse_geocode_address,
			matches = EXCLUDED.matches,
			location_match_score = EXCLUDED.location_match_score,
			confidence_level = EXCLUDED.confidence_level,
			penalization_reason = EXCLUDED.penalization_reason,
			updated_at = EXCLUDED.updated_at`

	_, err = r.pool.Exec(ctx, query,
		result.ListingID, result.ClaimedAddress, result.ClaimedCity, result.ClaimedPostalCode,
		result.ClaimedNeighborhood, result.ParsedAddress, result.Latitude, result.Longitude,
		[]byte(result.GeocodeSource), result.ReverseGeocodeAddress, matches,
		result.LocationMatchScore, result.ConfidenceLevel, result.PenalizationReason, result.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert location result: %w", err)
	}
	return nil
}

// GetByListing loads the row for one listing, or (nil, nil) when absent
func (r *LocationRepository) GetByListing(ctx context.Context, listingID string) (*models.LocationResult, error) {
	query := `
		SELECT listing_id, claimed_address, claimed_city, claimed_postal_code,
			   claimed_neighborhood, parsed_address, latitude, longitude,
			   geocode_source, reverse_geocode_address, matches,
			   location_match_score, confidence_level, penalization_reason, updated_at
		FROM location_results
		WHERE listing_id = $1`

	return r.scanLocation(r.pool.QueryRow(ctx, query, listingID))
}

// First returns the oldest stored row. The price check uses it to derive the
// market segment shared by a crawl batch.
func (r *LocationRepository) First(ctx context.Context) (*models.LocationResult, error) {
	query := `
		SELECT listing_id, claimed_address, claimed_city, claimed_postal_code,
			   claimed_neighborhood, parsed_address, latitude, longitude,
			   geocode_source, reverse_geocode_address, matches,
			   location_match_score, confidence_level, penalization_reason, updated_at
		FROM location_results
		ORDER BY updated_at ASC
		LIMIT 1`

	return r.scanLocation(r.pool.QueryRow(ctx, query))
}

func (r *LocationRepository) scanLocation(row pgx.Row) (*models.LocationResult, error) {
	var (
		result  models.LocationResult
		source  []byte
		matches []byte
	)
	err := row.Scan(
		&result.ListingID, &result.ClaimedAddress, &result.ClaimedCity, &result.ClaimedPostalCode,
		&result.ClaimedNeighborhood, &result.ParsedAddress, &result.Latitude, &result.Longitude,
		&source, &result.ReverseGeocodeAddress, &matches,
		&result.LocationMatchScore, &result.ConfidenceLevel, &result.PenalizationReason, &result.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan location result: %w", err)
	}

	result.GeocodeSource = json.RawMessage(source)
	if len(matches) > 0 {
		if err := json.Unmarshal(matches, &result.Matches); err != nil {
			return nil, fmt.Errorf("failed to decode poi matches: %w", err)
		}
	}
	return &result, nil
}
