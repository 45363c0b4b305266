package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"listingguard/internal/config"
	"listingguard/pkg/logger"
)

// PricePrediction is the estimator's verdict for a listing. Field names
// follow the estimator's Spanish wire format.
type PricePrediction struct {
	EstimatedPriceM2 float64 `json:"precio_estimado_m2"`
	MarketPriceM2    float64 `json:"precio_real_m2"`
	Penalization     float64 `json:"penalizacion"`
	Suspicious       bool    `json:"sospechoso"`
}

// PricePredictorClient calls the market price estimation model.
type PricePredictorClient struct {
	url    string
	client *http.Client
	logger *logger.Logger
}

// NewPricePredictorClient creates a new price predictor client.
func NewPricePredictorClient(cfg config.PricePredictorConfig, log *logger.Logger) *PricePredictorClient {
	return &PricePredictorClient{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log.WithComponent("pricepredictor"),
	}
}

// Predict asks the model whether the asking price is plausible for the
// province, region, size and bedroom count.
func (c *PricePredictorClient) Predict(ctx context.Context, province, region string, bedrooms int, surfaceM2, price float64) (*PricePrediction, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"provincia": province,
		"comunidad": region,
		"bedrooms":  bedrooms,
		"metros":    surfaceM2,
		"precio":    price,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("price prediction request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("price predictor returned status %d: %s", resp.StatusCode, string(body))
	}

	var prediction PricePrediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, fmt.Errorf("failed to parse prediction response: %w", err)
	}

	c.logger.Debug().
		Str("province", province).
		Float64("penalization", prediction.Penalization).
		Bool("suspicious", prediction.Suspicious).
		Msg("Price prediction received")

	return &prediction, nil
}
