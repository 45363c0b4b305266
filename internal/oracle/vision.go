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

// AIDetection is the verdict of the AI-image detector, with the raw payload
// preserved for the persisted record.
type AIDetection struct {
	IsAI bool            `json:"is_ai"`
	Raw  json.RawMessage `json:"-"`
}

// VisionClient talks to the image-analysis sidecar: captioning, image/text
// similarity, and AI-generation detection share one base URL.
type VisionClient struct {
	baseURL string
	client  *http.Client
	logger  *logger.Logger
}

// NewVisionClient creates a new vision service client.
func NewVisionClient(cfg config.VisionConfig, log *logger.Logger) *VisionClient {
	return &VisionClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  log.WithComponent("vision"),
	}
}

// DescribeImage generates a caption for the image at the given URL.
func (c *VisionClient) DescribeImage(ctx context.Context, imageURL string) (string, error) {
	q := url.Values{}
	q.Set("img_url", imageURL)

	body, err := c.get(ctx, "/describe_image", q)
	if err != nil {
		return "", err
	}

	var result struct {
		Description string `json:"description"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse caption response: %w", err)
	}
	return result.Description, nil
}

// CompareImageToText scores the semantic similarity between an image and a
// caption.
func (c *VisionClient) CompareImageToText(ctx context.Context, imageURL, text string) (float64, error) {
	q := url.Values{}
	q.Set("image", imageURL)
	q.Set("caption", text)

	body, err := c.get(ctx, "/compare_image_to_text", q)
	if err != nil {
		return 0, err
	}

	var result struct {
		Similarity float64 `json:"similarity"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, fmt.Errorf("failed to parse similarity response: %w", err)
	}
	return result.Similarity, nil
}

// DetectAIGenerated asks the detector whether the image was AI-generated.
func (c *VisionClient) DetectAIGenerated(ctx context.Context, imageURL string) (*AIDetection, error) {
	q := url.Values{}
	q.Set("image", imageURL)

	body, err := c.get(ctx, "/ia_detection", q)
	if err != nil {
		return nil, err
	}

	var detection AIDetection
	if err := json.Unmarshal(body, &detection); err != nil {
		return nil, fmt.Errorf("failed to parse detection response: %w", err)
	}
	detection.Raw = body

	return &detection, nil
}

func (c *VisionClient) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vision service returned status %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
