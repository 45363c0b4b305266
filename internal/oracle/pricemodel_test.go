package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingguard/internal/config"
	"listingguard/pkg/logger"
)

func TestPricePredictorPredict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Madrid", payload["provincia"])
		assert.Equal(t, "Comunidad de Madrid", payload["comunidad"])
		assert.InDelta(t, 3, payload["bedrooms"].(float64), 1e-9)
		assert.InDelta(t, 85, payload["metros"].(float64), 1e-9)
		assert.InDelta(t, 1200.5, payload["precio"].(float64), 1e-9)

		w.Write([]byte(`{
			"precio_estimado_m2": 14.2,
			"precio_real_m2": 15.1,
			"penalizacion": 0.35,
			"sospechoso": true
		}`))
	}))
	defer srv.Close()

	client := NewPricePredictorClient(config.PricePredictorConfig{
		URL:     srv.URL,
		Timeout: 2 * time.Second,
	}, logger.NewDefault())

	prediction, err := client.Predict(context.Background(), "Madrid", "Comunidad de Madrid", 3, 85, 1200.5)
	require.NoError(t, err)
	assert.InDelta(t, 14.2, prediction.EstimatedPriceM2, 1e-9)
	assert.InDelta(t, 15.1, prediction.MarketPriceM2, 1e-9)
	assert.InDelta(t, 0.35, prediction.Penalization, 1e-9)
	assert.True(t, prediction.Suspicious)
}

func TestPricePredictorUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "segment unknown", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewPricePredictorClient(config.PricePredictorConfig{
		URL:     srv.URL,
		Timeout: 2 * time.Second,
	}, logger.NewDefault())

	_, err := client.Predict(context.Background(), "", "", 0, 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
