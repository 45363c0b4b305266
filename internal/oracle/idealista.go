package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"listingguard/internal/config"
	"listingguard/pkg/logger"
)

// ComparableStats summarises rental comparables around a coordinate.
type ComparableStats struct {
	Count         int     `json:"count"`
	MeanPriceM2   float64 `json:"mean_price_m2"`
	MedianPriceM2 float64 `json:"median_price_m2"`
	SearchRadiusM int     `json:"search_radius_m"`
}

// IdealistaClient fetches rental comparables from the Idealista search API.
// Tokens are cached until shortly before expiry.
type IdealistaClient struct {
	baseURL      string
	apiKey       string
	secret       string
	searchRadius int
	client       *http.Client
	logger       *logger.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewIdealistaClient creates a new Idealista comparables client.
func NewIdealistaClient(cfg config.IdealistaConfig, log *logger.Logger) *IdealistaClient {
	return &IdealistaClient{
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		secret:       cfg.Secret,
		searchRadius: cfg.SearchRadius,
		client:       &http.Client{Timeout: cfg.Timeout},
		logger:       log.WithComponent("idealista"),
	}
}

// Comparables searches rental listings around the coordinate and returns
// per-square-meter price statistics over the results.
func (c *IdealistaClient) Comparables(ctx context.Context, lat, lon float64) (*ComparableStats, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("center", fmt.Sprintf("%f,%f", lat, lon))
	form.Set("distance", fmt.Sprintf("%d", c.searchRadius))
	form.Set("propertyType", "homes")
	form.Set("operation", "rent")
	form.Set("maxItems", "5")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/3.5/es/search", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("comparables search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("idealista returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		ElementList []struct {
			Price float64 `json:"price"`
			Size  float64 `json:"size"`
		} `json:"elementList"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	pricesM2 := make([]float64, 0, len(result.ElementList))
	for _, el := range result.ElementList {
		if el.Size == 0 {
			continue
		}
		pricesM2 = append(pricesM2, el.Price/el.Size)
	}

	stats := &ComparableStats{
		Count:         len(pricesM2),
		SearchRadiusM: c.searchRadius,
	}
	if len(pricesM2) == 0 {
		return stats, nil
	}

	sort.Float64s(pricesM2)
	var sum float64
	for _, p := range pricesM2 {
		sum += p
	}
	stats.MeanPriceM2 = sum / float64(len(pricesM2))

	mid := len(pricesM2) / 2
	if len(pricesM2)%2 == 0 {
		stats.MedianPriceM2 = (pricesM2[mid-1] + pricesM2[mid]) / 2
	} else {
		stats.MedianPriceM2 = pricesM2[mid]
	}

	return stats, nil
}

func (c *IdealistaClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", "read")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.apiKey, c.secret)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("idealista token endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to parse token response: %w", err)
	}

	c.token = token.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn-60) * time.Second)

	return c.token, nil
}
