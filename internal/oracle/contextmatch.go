package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"listingguard/internal/config"
	"listingguard/internal/domain/models"
	"listingguard/pkg/logger"
)

// ContextMatchClient calls the external lexical matcher that checks a listing
// description against nearby point-of-interest names.
type ContextMatchClient struct {
	url    string
	client *http.Client
	logger *logger.Logger
}

// NewContextMatchClient creates a new lexical context-match client.
func NewContextMatchClient(cfg config.ContextMatchConfig, log *logger.Logger) *ContextMatchClient {
	return &ContextMatchClient{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log.WithComponent("contextmatch"),
	}
}

// Match sends the description and POI names to the matcher and returns its
// verdict.
func (c *ContextMatchClient) Match(ctx context.Context, description string, poiNames []string) (*models.ContextVerdict, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"description":        description,
		"points_of_interest": poiNames,
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
		return nil, fmt.Errorf("context match request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("context matcher returned status %d: %s", resp.StatusCode, string(body))
	}

	var verdict models.ContextVerdict
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		return nil, fmt.Errorf("failed to parse context match response: %w", err)
	}
	return &verdict, nil
}
