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

func newVision(t *testing.T, handler http.HandlerFunc) *VisionClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewVisionClient(config.VisionConfig{
		BaseURL: srv.URL,
		Timeout: 2 * time.Second,
	}, logger.NewDefault())
}

func TestVisionDescribeImage(t *testing.T) {
	client := newVision(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/describe_image", r.URL.Path)
		assert.Equal(t, "http://img/a.jpg", r.URL.Query().Get("img_url"))
		w.Write([]byte(`{"description": "salón con sofá gris"}`))
	})

	caption, err := client.DescribeImage(context.Background(), "http://img/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "salón con sofá gris", caption)
}

func TestVisionCompareImageToText(t *testing.T) {
	client := newVision(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/compare_image_to_text", r.URL.Path)
		assert.Equal(t, "salón", r.URL.Query().Get("caption"))
		w.Write([]byte(`{"similarity": 0.83}`))
	})

	sim, err := client.CompareImageToText(context.Background(), "http://img/a.jpg", "salón")
	require.NoError(t, err)
	assert.InDelta(t, 0.83, sim, 1e-9)
}

func TestVisionDetectAIGenerated(t *testing.T) {
	client := newVision(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ia_detection", r.URL.Path)
		w.Write([]byte(`{"is_ai": true, "model": "detector-v2", "score": 0.97}`))
	})

	detection, err := client.DetectAIGenerated(context.Background(), "http://img/a.jpg")
	require.NoError(t, err)
	assert.True(t, detection.IsAI)
	assert.Contains(t, string(detection.Raw), "detector-v2")
}

func TestVisionUpstreamError(t *testing.T) {
	client := newVision(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	})

	_, err := client.DescribeImage(context.Background(), "http://img/a.jpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
