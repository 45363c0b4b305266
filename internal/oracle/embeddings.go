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

// EmbeddingsClient talks to a sentence-embedding service. The service accepts
// a batch of texts and returns one vector per text, in order.
type EmbeddingsClient struct {
	url    string
	model  string
	client *http.Client
	logger *logger.Logger
}

// NewEmbeddingsClient creates a new embeddings client.
func NewEmbeddingsClient(cfg config.EmbeddingsConfig, log *logger.Logger) *EmbeddingsClient {
	return &EmbeddingsClient{
		url:    cfg.URL,
		model:  cfg.Model,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log.WithComponent("embeddings"),
	}
}

// Encode returns one embedding vector per input text.
func (c *EmbeddingsClient) Encode(ctx context.Context, texts []string) ([][]float64, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"model": c.model,
		"input": texts,
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
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embeddings service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse embeddings response: %w", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embeddings count mismatch: sent %d texts, got %d vectors", len(texts), len(result.Embeddings))
	}
	return result.Embeddings, nil
}
