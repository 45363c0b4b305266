package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"listingguard/internal/domain/models"
	"listingguard/internal/oracle"
	"listingguard/pkg/logger"
)

// PricePredictor estimates a fair price for a listing's segment.
type PricePredictor interface {
	Predict(ctx context.Context, province, region string, bedrooms int, surfaceM2, price float64) (*oracle.PricePrediction, error)
}

// ComparablesProvider fetches market comparables around a coordinate.
type ComparablesProvider interface {
	Comparables(ctx context.Context, lat, lon float64) (*oracle.ComparableStats, error)
}

// LocationReader exposes the stored location rows the price check segments on.
type LocationReader interface {
	First(ctx context.Context) (*models.LocationResult, error)
}

// PriceVerifier checks the asking price against a market model for the
// listing's province and region. The segment comes from the first stored
// location row, not the current run's result.
type PriceVerifier struct {
	predictor   PricePredictor
	comparables ComparablesProvider
	locations   LocationReader
	logger      *logger.Logger
}

// NewPriceVerifier creates a price verifier. comparables may be nil when
// portal enrichment is disabled.
func NewPriceVerifier(predictor PricePredictor, comparables ComparablesProvider, locations LocationReader, log *logger.Logger) *PriceVerifier {
	return &PriceVerifier{
		predictor:   predictor,
		comparables: comparables,
		locations:   locations,
		logger:      log.WithComponent("priceverifier"),
	}
}

// Verify runs the price consistency check. A predictor failure is returned
// as an error; comparables enrichment degrades silently.
func (v *PriceVerifier) Verify(ctx context.Context, features *models.ListingFeatures) (*models.PriceResult, error) {
	price := ParsePrice(features.Price)
	surface := ParseSurface(features.Surface)

	province, region := v.resolveSegment(ctx)

	prediction, err := v.predictor.Predict(ctx, province, region, features.Bedrooms, surface, price)
	if err != nil {
		return nil, fmt.Errorf("price prediction: %w", err)
	}

	result := &models.PriceResult{
		ListingID:           features.ListingID,
		ReportedPrice:       price,
		SurfaceM2:           surface,
		EstimatedPriceM2:    prediction.EstimatedPriceM2,
		EstimatedPriceM2Alt: prediction.MarketPriceM2,
		Status:              models.PriceStatusOK,
		SuspicionProb:       prediction.Penalization,
		UpdatedAt:           time.Now().UTC(),
	}
	if surface > 0 {
		result.PricePerM2 = round(price/surface, 2)
	}
	if prediction.Suspicious {
		result.Status = models.PriceStatusSuspicious
	}

	v.enrichComparables(ctx, result)

	v.logger.Info().
		Str("listing_id", features.ListingID).
		Str("status", string(result.Status)).
		Float64("score", result.SuspicionProb).
		Msg("Price verification completed")

	return result, nil
}

// resolveSegment derives (province, region) from the first stored location
// row's parsed address. Addresses with fewer than five comma-separated parts
// leave both empty and the model falls back to its national baseline.
func (v *PriceVerifier) resolveSegment(ctx context.Context) (string, string) {
	loc, err := v.locations.First(ctx)
	if err != nil || loc == nil {
		if err != nil {
			v.logger.Warn().Err(err).Msg("Could not load location row for price segment")
		}
		return "", ""
	}

	parts := strings.Split(loc.ParsedAddress, ",")
	if len(parts) < 5 {
		return "", ""
	}
	province := strings.TrimSpace(parts[len(parts)-4])
	region := strings.TrimSpace(parts[len(parts)-3])
	return province, region
}

func (v *PriceVerifier) enrichComparables(ctx context.Context, result *models.PriceResult) {
	if v.comparables == nil {
		return
	}

	loc, err := v.locations.First(ctx)
	if err != nil || loc == nil {
		return
	}

	stats, err := v.comparables.Comparables(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		v.logger.Warn().Err(err).Msg("Comparables lookup failed")
		return
	}
	if stats.Count > 0 {
		result.ComparablePriceM2 = round(stats.MedianPriceM2, 2)
	}
}

// ParsePrice normalizes a scraped Euro amount. "1.200,50 €" parses to
// 1200.50: the dot is a thousands separator whenever a comma is present, and
// the comma is the decimal mark. Unparsable input yields 0.
func ParsePrice(raw string) float64 {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0
	}

	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else if strings.Count(s, ".") > 1 {
		s = strings.ReplaceAll(s, ".", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseSurface extracts the numeric part of a scraped surface string such as
// "85 m²". Unparsable input yields 0.
func ParseSurface(raw string) float64 {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(s, "m²")
	s = strings.TrimSuffix(s, "m2")
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[0]
	}
	s = strings.ReplaceAll(s, ",", ".")

	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
