package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingguard/internal/domain/models"
	"listingguard/internal/oracle"
	"listingguard/pkg/logger"
)

type memListings struct {
	features *models.ListingFeatures
	err      error
}

func (m *memListings) GetFeatures(_ context.Context, _ string) (*models.ListingFeatures, error) {
	return m.features, m.err
}

type recordingStores struct {
	location *models.LocationResult
	media    *models.MediaRecord
	price    *models.PriceResult
	fraud    *models.FraudResult
}

type locStoreRec struct{ r *recordingStores }

func (s locStoreRec) Upsert(_ context.Context, result *models.LocationResult) error {
	s.r.location = result
	return nil
}

type mediaStoreRec struct{ r *recordingStores }

func (s mediaStoreRec) Upsert(_ context.Context, record *models.MediaRecord) error {
	s.r.media = record
	return nil
}

type priceStoreRec struct{ r *recordingStores }

func (s priceStoreRec) Upsert(_ context.Context, result *models.PriceResult) error {
	s.r.price = result
	return nil
}

type fraudStoreRec struct{ r *recordingStores }

func (s fraudStoreRec) Upsert(_ context.Context, result *models.FraudResult) error {
	s.r.fraud = result
	return nil
}

func (s fraudStoreRec) Get(_ context.Context, _ string) (*models.FraudResult, error) {
	return s.r.fraud, nil
}

type classifierFixture struct {
	classifier *Classifier
	stores     *recordingStores
	geocoder   *stubGeocoder
	predictor  *stubPredictor
	provider   *stubPOIProvider
}

func newClassifierFixture(features *models.ListingFeatures) *classifierFixture {
	log := logger.NewDefault()
	stores := &recordingStores{}

	geocoder := &stubGeocoder{place: testPlace()}
	provider := &stubPOIProvider{populated: true, urban: true}
	matcher := NewContextMatcher(fullScoring(), &stubLexical{}, nil, log)
	geo := NewGeoVerifier(geocoder, provider, matcher, nil, fullScoring(), log)

	image := newImageVerifier(&stubAnalyzer{}, &stubSearcher{})

	predictor := &stubPredictor{prediction: &oracle.PricePrediction{}}
	price := NewPriceVerifier(predictor, nil, &stubLocations{}, log)

	classifier := NewClassifier(
		&memListings{features: features},
		locStoreRec{stores}, mediaStoreRec{stores}, priceStoreRec{stores}, fraudStoreRec{stores},
		geo, image, price, log,
	)

	return &classifierFixture{
		classifier: classifier,
		stores:     stores,
		geocoder:   geocoder,
		predictor:  predictor,
		provider:   provider,
	}
}

func baseFeatures() *models.ListingFeatures {
	return &models.ListingFeatures{
		ListingID: "l-1",
		Title:     "Piso luminoso",
		Address:   "Calle Mayor, Madrid, España",
		Price:     "900 €",
		Surface:   "80 m²",
		Bedrooms:  2,
	}
}

func TestClassifierEndToEnd(t *testing.T) {
	f := newClassifierFixture(baseFeatures())

	fraud, err := f.classifier.Classify(context.Background(), "l-1")
	require.NoError(t, err)
	require.NotNil(t, fraud)

	// Location accumulates 0.8 without a context match, so its suspicion
	// signal is 0.2; images and price contribute 0.
	assert.InDelta(t, 0.2, fraud.LocationProb, 1e-9)
	assert.Equal(t, 0.0, fraud.ImageProb)
	assert.Equal(t, 0.0, fraud.PriceProb)
	assert.InDelta(t, 0.0667, fraud.FraudProb, 1e-9)
	assert.Equal(t, 4, fraud.ConfidenceLevel)
	assert.Equal(t, models.PriceStatusOK, fraud.PriceFlag)

	require.NotNil(t, f.stores.location)
	require.NotNil(t, f.stores.media)
	require.NotNil(t, f.stores.price)
	require.NotNil(t, f.stores.fraud)
	assert.Equal(t, "l-1", f.stores.location.ListingID)
}

func TestClassifierAggregateMean(t *testing.T) {
	loc := &models.LocationResult{LocationMatchScore: 0.6}
	img := &models.ImageResult{SimilarityScore: 0.3}
	price := &models.PriceResult{SuspicionProb: 0.0, Status: models.PriceStatusOK}

	fraud := aggregate("l-agg", loc, img, price)
	assert.InDelta(t, 0.3, fraud.FraudProb, 1e-9)
	assert.Equal(t, 3, fraud.ConfidenceLevel)
}

func TestClassifierAggregateNilImage(t *testing.T) {
	loc := &models.LocationResult{LocationMatchScore: 0.5}
	price := &models.PriceResult{SuspicionProb: 0.1}

	fraud := aggregate("l-agg", loc, nil, price)
	assert.Equal(t, 0.0, fraud.ImageProb)
	assert.InDelta(t, 0.2, fraud.FraudProb, 1e-9)
}

func TestClassifierListingNotFound(t *testing.T) {
	f := newClassifierFixture(nil)

	fraud, err := f.classifier.Classify(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrListingNotFound)
	assert.Nil(t, fraud)
}

func TestClassifierUnresolvableLocationIsFatal(t *testing.T) {
	f := newClassifierFixture(baseFeatures())
	f.geocoder.place = nil

	fraud, err := f.classifier.Classify(context.Background(), "l-1")
	assert.ErrorIs(t, err, ErrLocationUnavailable)
	assert.Nil(t, fraud)
	assert.Nil(t, f.stores.location, "failed run must not persist anything")
	assert.Nil(t, f.stores.fraud)
}

func TestClassifierPriceFailureIsFatal(t *testing.T) {
	f := newClassifierFixture(baseFeatures())
	f.predictor.err = errors.New("model offline")

	fraud, err := f.classifier.Classify(context.Background(), "l-1")
	require.Error(t, err)
	assert.Nil(t, fraud)
	assert.Nil(t, f.stores.location)
	assert.Nil(t, f.stores.fraud)
}

func TestClassifierReclassifyingOverwrites(t *testing.T) {
	f := newClassifierFixture(baseFeatures())

	first, err := f.classifier.Classify(context.Background(), "l-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.2, first.LocationProb, 1e-9)
	assert.Equal(t, models.PriceStatusOK, f.stores.fraud.PriceFlag)
	assert.Empty(t, f.stores.location.PenalizationReason)

	// Second run with different verifier outcomes must fully replace the
	// stored rows, never merge with the first run's values.
	f.provider.populated = false
	f.predictor.prediction = &oracle.PricePrediction{Penalization: 0.9, Suspicious: true}

	second, err := f.classifier.Classify(context.Background(), "l-1")
	require.NoError(t, err)

	assert.Equal(t, 0.0, second.LocationProb)
	assert.InDelta(t, 0.9, second.PriceProb, 1e-9)
	assert.InDelta(t, 0.3, second.FraudProb, 1e-9)
	assert.Equal(t, models.PriceStatusSuspicious, second.PriceFlag)

	assert.Equal(t, second, f.stores.fraud)
	assert.Equal(t, models.PenalizationUnpopulated, f.stores.location.PenalizationReason)
	assert.Equal(t, 0.0, f.stores.location.LocationMatchScore)
	assert.Equal(t, models.PriceStatusSuspicious, f.stores.price.Status)
	assert.InDelta(t, 0.9, f.stores.price.SuspicionProb, 1e-9)
}

func TestClassifierUnpopulatedAreaStillClassifies(t *testing.T) {
	f := newClassifierFixture(baseFeatures())
	f.provider.populated = false

	fraud, err := f.classifier.Classify(context.Background(), "l-1")
	require.NoError(t, err)
	require.NotNil(t, fraud)

	assert.Equal(t, 0.0, fraud.LocationProb)
	require.NotNil(t, f.stores.location)
	assert.Equal(t, models.PenalizationUnpopulated, f.stores.location.PenalizationReason)
}
