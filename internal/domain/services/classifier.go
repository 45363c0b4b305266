package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"listingguard/internal/domain/models"
	"listingguard/pkg/logger"
)

var (
	// ErrListingNotFound is returned when no feature vector exists for the id.
	ErrListingNotFound = errors.New("listing not found")

	// ErrLocationUnavailable is returned when the claimed address cannot be
	// geocoded at all. Without a coordinate none of the signals can anchor,
	// so the run fails and nothing is persisted.
	ErrLocationUnavailable = errors.New("location could not be resolved")
)

// ListingStore loads extracted feature vectors.
type ListingStore interface {
	GetFeatures(ctx context.Context, listingID string) (*models.ListingFeatures, error)
}

// LocationStore persists location verification rows.
type LocationStore interface {
	Upsert(ctx context.Context, result *models.LocationResult) error
}

// MediaStore persists image verification rows.
type MediaStore interface {
	Upsert(ctx context.Context, record *models.MediaRecord) error
}

// PriceStore persists price verification rows.
type PriceStore interface {
	Upsert(ctx context.Context, result *models.PriceResult) error
}

// FraudStore persists and reads the terminal aggregates.
type FraudStore interface {
	Upsert(ctx context.Context, result *models.FraudResult) error
	Get(ctx context.Context, listingID string) (*models.FraudResult, error)
}

// Classifier runs the three verification signals for a listing and folds
// them into a fraud probability. The verifiers run concurrently; results are
// persisted only after all three succeed, so a failed run leaves earlier
// rows untouched.
type Classifier struct {
	listings  ListingStore
	locations LocationStore
	media     MediaStore
	prices    PriceStore
	frauds    FraudStore

	geo   *GeoVerifier
	image *ImageVerifier
	price *PriceVerifier

	logger *logger.Logger
}

// NewClassifier wires the verifiers and stores into a classifier.
func NewClassifier(
	listings ListingStore,
	locations LocationStore,
	media MediaStore,
	prices PriceStore,
	frauds FraudStore,
	geo *GeoVerifier,
	image *ImageVerifier,
	price *PriceVerifier,
	log *logger.Logger,
) *Classifier {
	return &Classifier{
		listings:  listings,
		locations: locations,
		media:     media,
		prices:    prices,
		frauds:    frauds,
		geo:       geo,
		image:     image,
		price:     price,
		logger:    log.WithComponent("classifier"),
	}
}

// Classify scores one listing end to end and persists every signal row plus
// the aggregate. Repeated runs fully replace the previous rows.
func (c *Classifier) Classify(ctx context.Context, listingID string) (*models.FraudResult, error) {
	runID := uuid.NewString()
	log := c.logger.With().Str("run_id", runID).Str("listing_id", listingID).Logger()
	log.Info().Msg("Starting classification run")

	features, err := c.listings.GetFeatures(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if features == nil {
		return nil, ErrListingNotFound
	}

	var (
		wg sync.WaitGroup

		locResult   *models.LocationResult
		locErr      error
		imageResult *models.ImageResult
		priceResult *models.PriceResult
		priceErr    error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		locResult, locErr = c.geo.Verify(ctx, features)
	}()
	go func() {
		defer wg.Done()
		imageResult = c.image.Verify(ctx, listingID, features.ImageURLs)
	}()
	go func() {
		defer wg.Done()
		priceResult, priceErr = c.price.Verify(ctx, features)
	}()
	wg.Wait()

	if locErr != nil {
		return nil, fmt.Errorf("location verification: %w", locErr)
	}
	if locResult == nil {
		return nil, ErrLocationUnavailable
	}
	if priceErr != nil {
		return nil, fmt.Errorf("price verification: %w", priceErr)
	}

	fraud := aggregate(listingID, locResult, imageResult, priceResult)

	if err := c.locations.Upsert(ctx, locResult); err != nil {
		return nil, fmt.Errorf("persisting location result: %w", err)
	}
	if err := c.media.Upsert(ctx, BuildMediaRecord(listingID, imageResult)); err != nil {
		return nil, fmt.Errorf("persisting media record: %w", err)
	}
	if err := c.prices.Upsert(ctx, priceResult); err != nil {
		return nil, fmt.Errorf("persisting price result: %w", err)
	}
	if err := c.frauds.Upsert(ctx, fraud); err != nil {
		return nil, fmt.Errorf("persisting fraud result: %w", err)
	}

	log.Info().
		Float64("fraud_prob", fraud.FraudProb).
		Int("confidence", fraud.ConfidenceLevel).
		Msg("Listing classified")

	return fraud, nil
}

// Result returns the stored aggregate for a listing, or nil when it has not
// been classified yet.
func (c *Classifier) Result(ctx context.Context, listingID string) (*models.FraudResult, error) {
	return c.frauds.Get(ctx, listingID)
}

func aggregate(listingID string, loc *models.LocationResult, img *models.ImageResult, price *models.PriceResult) *models.FraudResult {
	var imageProb float64
	if img != nil {
		imageProb = img.SimilarityScore
	}

	fraudProb := round((loc.LocationMatchScore+imageProb+price.SuspicionProb)/3, 4)

	return &models.FraudResult{
		ListingID:       listingID,
		FraudProb:       fraudProb,
		LocationProb:    loc.LocationMatchScore,
		ImageProb:       imageProb,
		PriceProb:       price.SuspicionProb,
		PriceFlag:       price.Status,
		ConfidenceLevel: int(math.Floor((1 - fraudProb) * 5)),
		Timestamp:       time.Now().UTC(),
	}
}
