package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"listingguard/internal/config"
	"listingguard/pkg/logger"
)

// GeocodedPlace is the best-match place returned by forward geocoding.
type GeocodedPlace struct {
	DisplayName string          `json:"display_name"`
	Lat         string          `json:"lat"`
	Lon         string          `json:"lon"`
	Address     GeocodedAddress `json:"address"`
	Raw         json.RawMessage `json:"-"`
}

// GeocodedAddress carries the address components of a geocoded place.
type GeocodedAddress struct {
	City          string `json:"city"`
	Town          string `json:"town"`
	Village       string `json:"village"`
	Postcode      string `json:"postcode"`
	Neighbourhood string `json:"neighbourhood"`
}

// Latitude parses the latitude, 0 on malformed input.
func (p *GeocodedPlace) Latitude() float64 {
	v, _ := strconv.ParseFloat(p.Lat, 64)
	return v
}

// Longitude parses the longitude, 0 on malformed input.
func (p *GeocodedPlace) Longitude() float64 {
	v, _ := strconv.ParseFloat(p.Lon, 64)
	return v
}

// City returns the settlement name, whichever granularity the geocoder used.
func (p *GeocodedPlace) City() string {
	switch {
	case p.Address.City != "":
		return p.Address.City
	case p.Address.Town != "":
		return p.Address.Town
	default:
		return p.Address.Village
	}
}

var commaSpacing = regexp.MustCompile(`\s*,\s*`)

// NominatimClient talks to a Nominatim-compatible geocoding service.
type NominatimClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
	logger    *logger.Logger
}

// NewNominatimClient creates a new geocoding client.
func NewNominatimClient(cfg config.NominatimConfig, log *logger.Logger) *NominatimClient {
	return &NominatimClient{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    log.WithComponent("nominatim"),
	}
}

// Geocode resolves a free-text address to its best-match place. A nil place
// with nil error means the geocoder found nothing.
func (c *NominatimClient) Geocode(ctx context.Context, address string) (*GeocodedPlace, error) {
	address = commaSpacing.ReplaceAllString(address, ", ")

	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("addressdetails", "1")
	q.Set("limit", "1")

	c.logger.Info().Str("address", address).Msg("forward geocoding")

	body, err := c.get(ctx, c.baseURL+"/search?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var results []json.RawMessage
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to parse geocoder response: %w", err)
	}
	if len(results) == 0 {
		c.logger.Info().Str("address", address).Msg("geocoder returned no results")
		return nil, nil
	}

	var place GeocodedPlace
	if err := json.Unmarshal(results[0], &place); err != nil {
		return nil, fmt.Errorf("failed to parse geocoder result: %w", err)
	}
	place.Raw = results[0]

	return &place, nil
}

// ReverseGeocode resolves a coordinate to its display name.
func (c *NominatimClient) ReverseGeocode(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("format", "json")

	body, err := c.get(ctx, c.baseURL+"/reverse?"+q.Encode())
	if err != nil {
		return "", err
	}

	var result struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse reverse geocode response: %w", err)
	}

	return result.DisplayName, nil
}

func (c *NominatimClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("geocoder returned status %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}
