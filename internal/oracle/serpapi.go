package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"listingguard/internal/config"
	"listingguard/pkg/logger"
)

// SerpAPIClient runs reverse image searches through the SerpAPI Yandex Images
// engine.
type SerpAPIClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *logger.Logger
}

// NewSerpAPIClient creates a new SerpAPI client.
func NewSerpAPIClient(cfg config.SerpAPIConfig, log *logger.Logger) *SerpAPIClient {
	return &SerpAPIClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  log.WithComponent("serpapi"),
	}
}

// ReverseImageSearch returns original-image links found for the given image
// URL. An empty slice means the engine found nothing, not an error.
func (c *SerpAPIClient) ReverseImageSearch(ctx context.Context, imageURL string) ([]string, error) {
	q := url.Values{}
	q.Set("engine", "yandex_images")
	q.Set("url", imageURL)
	q.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reverse image search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("serpapi returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		ImageResults []struct {
			OriginalImage struct {
				Link string `json:"link"`
			} `json:"original_image"`
		} `json:"image_results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	links := make([]string, 0, len(result.ImageResults))
	for _, r := range result.ImageResults {
		if r.OriginalImage.Link != "" {
			links = append(links, r.OriginalImage.Link)
		}
	}

	c.logger.Debug().Int("results", len(links)).Msg("Reverse image search completed")
	return links, nil
}
