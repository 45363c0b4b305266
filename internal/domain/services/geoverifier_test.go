package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingguard/internal/config"
	"listingguard/internal/domain/models"
	"listingguard/internal/oracle"
	"listingguard/pkg/logger"
)

type stubGeocoder struct {
	place      *oracle.GeocodedPlace
	geocodeErr error
	reverse    string
	reverseErr error
	queries    []string
}

func (s *stubGeocoder) Geocode(_ context.Context, address string) (*oracle.GeocodedPlace, error) {
	s.queries = append(s.queries, address)
	return s.place, s.geocodeErr
}

func (s *stubGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (string, error) {
	return s.reverse, s.reverseErr
}

type stubPOIProvider struct {
	pois      []models.POI
	populated bool
	urban     bool
	err       error
}

func (s *stubPOIProvider) POIs(_ context.Context, _, _ float64) ([]models.POI, error) {
	return s.pois, s.err
}

func (s *stubPOIProvider) PreCheck(_ context.Context, _, _ float64) (bool, bool, error) {
	return s.populated, s.urban, s.err
}

type memoryCache struct {
	entries map[string][]byte
}

func (c *memoryCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (c *memoryCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c.entries == nil {
		c.entries = map[string][]byte{}
	}
	c.entries[key] = data
	return nil
}

func fullScoring() config.ScoringConfig {
	return config.ScoringConfig{
		GeocodeScore:     0.4,
		SimilarityWeight: 0.1,
		PopulatedBonus:   0.15,
		UrbanBonus:       0.15,
		ContextBonus:     0.2,
		ContextThreshold: 0.5,
		ContextStrategy:  "lexical",
		POILimit:         10,
	}
}

func testPlace() *oracle.GeocodedPlace {
	return &oracle.GeocodedPlace{
		DisplayName: "Calle Mayor, Madrid, España",
		Lat:         "40.4168",
		Lon:         "-3.7038",
		Address: oracle.GeocodedAddress{
			City:     "Madrid",
			Postcode: "28013",
		},
	}
}

func newTestVerifier(geo *stubGeocoder, pois *stubPOIProvider, lex *stubLexical, cache GeocodeCache) *GeoVerifier {
	log := logger.NewDefault()
	matcher := NewContextMatcher(fullScoring(), lex, nil, log)
	return NewGeoVerifier(geo, pois, matcher, cache, fullScoring(), log)
}

func TestGeoVerifierUngeocodableAddress(t *testing.T) {
	geo := &stubGeocoder{place: nil}
	v := newTestVerifier(geo, &stubPOIProvider{}, &stubLexical{}, nil)

	result, err := v.Verify(context.Background(), &models.ListingFeatures{
		ListingID: "l-1",
		Address:   "Dirección inexistente 999",
	})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestGeoVerifierGeocodeError(t *testing.T) {
	geo := &stubGeocoder{geocodeErr: errors.New("upstream timeout")}
	v := newTestVerifier(geo, &stubPOIProvider{}, &stubLexical{}, nil)

	// A transport error is the same terminal outcome as no geocode result.
	result, err := v.Verify(context.Background(), &models.ListingFeatures{ListingID: "l-1", Address: "Calle Mayor 5"})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestGeoVerifierPreCheckErrorDegrades(t *testing.T) {
	geo := &stubGeocoder{place: testPlace()}
	pois := &stubPOIProvider{err: errors.New("overpass unavailable")}
	v := newTestVerifier(geo, pois, &stubLexical{}, nil)

	result, err := v.Verify(context.Background(), &models.ListingFeatures{
		ListingID: "l-2",
		Address:   "Calle Mayor 5, Madrid",
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, models.PenalizationUnpopulated, result.PenalizationReason)
	assert.Equal(t, 0.0, result.LocationMatchScore)
	assert.Equal(t, 0, result.ConfidenceLevel)
}

func TestGeoVerifierPreCheckGate(t *testing.T) {
	for name, provider := range map[string]*stubPOIProvider{
		"unpopulated": {populated: false, urban: true},
		"non-urban":   {populated: true, urban: false},
	} {
		t.Run(name, func(t *testing.T) {
			geo := &stubGeocoder{place: testPlace()}
			v := newTestVerifier(geo, provider, &stubLexical{}, nil)

			result, err := v.Verify(context.Background(), &models.ListingFeatures{
				ListingID: "l-2",
				Address:   "Calle Mayor 5, Madrid",
			})
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, models.PenalizationUnpopulated, result.PenalizationReason)
			assert.Equal(t, 0.0, result.LocationMatchScore)
			assert.Equal(t, 0, result.ConfidenceLevel)
			assert.Equal(t, "Calle Mayor 5, Madrid", result.ClaimedAddress)
		})
	}
}

func TestGeoVerifierFullScore(t *testing.T) {
	geo := &stubGeocoder{
		place:   testPlace(),
		reverse: "Calle Mayor, 5, Madrid",
	}
	pois := &stubPOIProvider{
		populated: true,
		urban:     true,
		pois:      []models.POI{{Name: "Mercado de San Miguel"}},
	}
	lex := &stubLexical{verdict: &models.ContextVerdict{
		Verified: true,
		Matches:  []models.POIMatch{{POI: "Mercado de San Miguel", Similarity: 0.88}},
	}}
	v := newTestVerifier(geo, pois, lex, nil)

	result, err := v.Verify(context.Background(), &models.ListingFeatures{
		ListingID:   "l-3",
		Title:       "Piso luminoso con terraza",
		Description: "Al lado del Mercado de San Miguel",
		Address:     "Calle Mayor, Madrid, España",
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	// Identical claimed and parsed address: 0.4 + 1*0.1 + 0.15 + 0.15 + 0.2 = 1.0
	assert.InDelta(t, 0.0, result.LocationMatchScore, 1e-9)
	assert.Equal(t, 5, result.ConfidenceLevel)
	assert.Equal(t, "Madrid", result.ClaimedCity)
	assert.Equal(t, "28013", result.ClaimedPostalCode)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "Calle Mayor, 5, Madrid", result.ReverseGeocodeAddress)
}

func TestGeoVerifierScoresCombinedQuery(t *testing.T) {
	geo := &stubGeocoder{place: testPlace()}
	pois := &stubPOIProvider{populated: true, urban: true}
	v := newTestVerifier(geo, pois, &stubLexical{}, nil)

	features := &models.ListingFeatures{
		ListingID: "l-3b",
		Title:     "Piso en Calle Mayor 5",
		Address:   "Calle Mayor, Madrid, España",
	}

	result, err := v.Verify(context.Background(), features)
	require.NoError(t, err)
	require.NotNil(t, result)

	// The title fragment is prepended to the geocode input, and it is that
	// combined query, not the raw address, that similarity and the persisted
	// claimed address work off.
	query := buildGeocodeQuery(features.Title, features.Address)
	require.NotEqual(t, features.Address, query)
	assert.Equal(t, query, result.ClaimedAddress)

	sim := StringSimilarity(query, testPlace().DisplayName)
	require.Less(t, sim, 1.0)
	want := round(1-round(0.4+sim*0.1+0.15+0.15, 4), 2)
	assert.InDelta(t, want, result.LocationMatchScore, 1e-9)
	assert.Greater(t, result.LocationMatchScore, 0.2, "raw-address similarity would report 0.2")
}

func TestGeoVerifierWithoutContextMatch(t *testing.T) {
	geo := &stubGeocoder{place: testPlace()}
	pois := &stubPOIProvider{populated: true, urban: true}
	v := newTestVerifier(geo, pois, &stubLexical{}, nil)

	result, err := v.Verify(context.Background(), &models.ListingFeatures{
		ListingID: "l-4",
		Address:   "Calle Mayor, Madrid, España",
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	// No context bonus: 0.4 + 1*0.1 + 0.15 + 0.15 = 0.8
	assert.InDelta(t, 0.2, result.LocationMatchScore, 1e-9)
	assert.Equal(t, 4, result.ConfidenceLevel)
	assert.Empty(t, result.Matches)
}

func TestGeoVerifierReverseGeocodeDegrades(t *testing.T) {
	geo := &stubGeocoder{place: testPlace(), reverseErr: errors.New("rate limited")}
	pois := &stubPOIProvider{populated: true, urban: true}
	v := newTestVerifier(geo, pois, &stubLexical{}, nil)

	result, err := v.Verify(context.Background(), &models.ListingFeatures{
		ListingID: "l-5",
		Address:   "Calle Mayor, Madrid, España",
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Empty(t, result.ReverseGeocodeAddress)
	assert.Greater(t, result.ConfidenceLevel, 0)
}

func TestGeoVerifierUsesCache(t *testing.T) {
	geo := &stubGeocoder{place: testPlace()}
	pois := &stubPOIProvider{populated: true, urban: true}
	cache := &memoryCache{}
	v := newTestVerifier(geo, pois, &stubLexical{}, cache)

	features := &models.ListingFeatures{ListingID: "l-6", Address: "Calle Mayor, Madrid, España"}

	_, err := v.Verify(context.Background(), features)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), features)
	require.NoError(t, err)

	assert.Len(t, geo.queries, 1, "second lookup should be served from cache")
}

func TestBuildGeocodeQuery(t *testing.T) {
	t.Run("extracts keyword fragment and strips digits", func(t *testing.T) {
		q := buildGeocodeQuery("Se alquila piso en Calle Mayor 5", "Madrid, España")
		assert.Equal(t, "Calle Mayor, Madrid, España", q)
	})

	t.Run("case insensitive", func(t *testing.T) {
		q := buildGeocodeQuery("ÁTICO EN AVENIDA DIAGONAL", "Barcelona")
		assert.Equal(t, "AVENIDA DIAGONAL, Barcelona", q)
	})

	t.Run("no keyword falls back to address", func(t *testing.T) {
		q := buildGeocodeQuery("Piso luminoso con terraza", "Calle Mayor 5, Madrid")
		assert.Equal(t, "Calle Mayor 5, Madrid", q)
	})
}
