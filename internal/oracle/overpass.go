package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"listingguard/internal/config"
	"listingguard/internal/domain/models"
	"listingguard/pkg/logger"
)

// OverpassClient queries an Overpass API endpoint for nearby points of
// interest and area-density tags.
type OverpassClient struct {
	baseURL        string
	poiRadius      int
	precheckRadius int
	client         *http.Client
	logger         *logger.Logger
}

// NewOverpassClient creates a new Overpass client.
func NewOverpassClient(cfg config.OverpassConfig, log *logger.Logger) *OverpassClient {
	return &OverpassClient{
		baseURL:        cfg.BaseURL,
		poiRadius:      cfg.POIRadius,
		precheckRadius: cfg.PrecheckRadius,
		client:         &http.Client{Timeout: cfg.Timeout},
		logger:         log.WithComponent("overpass"),
	}
}

type overpassElement struct {
	Tags map[string]string `json:"tags"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

// POIs returns the named amenities around a coordinate. Unnamed elements are
// skipped.
func (c *OverpassClient) POIs(ctx context.Context, lat, lon float64) ([]models.POI, error) {
	query := fmt.Sprintf(`
	[out:json];
	node(around:%d, %f, %f)[amenity];
	out;
	`, c.poiRadius, lat, lon)

	resp, err := c.run(ctx, query)
	if err != nil {
		return nil, err
	}

	pois := make([]models.POI, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		name := el.Tags["name"]
		if name == "" {
			continue
		}
		pois = append(pois, models.POI{Name: name, Tags: el.Tags})
	}

	c.logger.Debug().Int("pois", len(pois)).Msg("fetched points of interest")
	return pois, nil
}

// PreCheck reports whether a coordinate lies within a populated place and
// within an urban area. Both predicates are false on transport error.
func (c *OverpassClient) PreCheck(ctx context.Context, lat, lon float64) (populated, urban bool, err error) {
	query := fmt.Sprintf(`
	[out:json];
	(
	node(around:%d,%f,%f)[place~"city|town|village|hamlet"];
	way(around:%d,%f,%f)[landuse=residential];
	way(around:%d,%f,%f)[building];
	way(around:%d,%f,%f)[highway~"residential|primary|secondary|tertiary"];
	);
	out center;
	`, c.precheckRadius, lat, lon, c.precheckRadius, lat, lon,
		c.precheckRadius, lat, lon, c.precheckRadius, lat, lon)

	resp, err := c.run(ctx, query)
	if err != nil {
		return false, false, err
	}

	for _, el := range resp.Elements {
		switch el.Tags["place"] {
		case "city", "town", "village", "hamlet":
			populated = true
		}
		if el.Tags["landuse"] == "residential" || el.Tags["building"] != "" {
			urban = true
		}
		switch el.Tags["highway"] {
		case "residential", "primary", "secondary", "tertiary":
			urban = true
		}
	}

	return populated, urban, nil
}

func (c *OverpassClient) run(ctx context.Context, query string) (*overpassResponse, error) {
	q := url.Values{}
	q.Set("data", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
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
		return nil, fmt.Errorf("overpass returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse overpass response: %w", err)
	}

	return &parsed, nil
}
