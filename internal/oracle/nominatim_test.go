package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingguard/internal/config"
	"listingguard/pkg/logger"
)

func newNominatim(t *testing.T, handler http.HandlerFunc) *NominatimClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewNominatimClient(config.NominatimConfig{
		BaseURL:   srv.URL,
		UserAgent: "listingguard-test",
		Timeout:   2 * time.Second,
	}, logger.NewDefault())
}

func TestNominatimGeocode(t *testing.T) {
	client := newNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Calle Mayor 5, Madrid", r.URL.Query().Get("q"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "listingguard-test", r.Header.Get("User-Agent"))

		w.Write([]byte(`[{
			"display_name": "Calle Mayor, Madrid, España",
			"lat": "40.4168", "lon": "-3.7038",
			"address": {"city": "Madrid", "postcode": "28013"}
		}]`))
	})

	place, err := client.Geocode(context.Background(), "Calle Mayor 5,Madrid")
	require.NoError(t, err)
	require.NotNil(t, place)
	assert.Equal(t, "Calle Mayor, Madrid, España", place.DisplayName)
	assert.InDelta(t, 40.4168, place.Latitude(), 1e-9)
	assert.InDelta(t, -3.7038, place.Longitude(), 1e-9)
	assert.Equal(t, "Madrid", place.City())
	assert.NotEmpty(t, place.Raw)
}

func TestNominatimGeocodeNoResults(t *testing.T) {
	client := newNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	place, err := client.Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Nil(t, place)
}

func TestNominatimGeocodeUpstreamError(t *testing.T) {
	client := newNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	})

	_, err := client.Geocode(context.Background(), "Calle Mayor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestNominatimReverseGeocode(t *testing.T) {
	client := newNominatim(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "40.4168", r.URL.Query().Get("lat"))
		w.Write([]byte(`{"display_name": "Calle Mayor, 5, Madrid"}`))
	})

	name, err := client.ReverseGeocode(context.Background(), 40.4168, -3.7038)
	require.NoError(t, err)
	assert.Equal(t, "Calle Mayor, 5, Madrid", name)
}

func TestGeocodedPlaceCityFallback(t *testing.T) {
	p := &GeocodedPlace{Address: GeocodedAddress{Town: "Alcalá de Henares"}}
	assert.Equal(t, "Alcalá de Henares", p.City())

	p = &GeocodedPlace{Address: GeocodedAddress{Village: "Patones"}}
	assert.Equal(t, "Patones", p.City())
}
