package services

import (
	"context"
	"math"
	"regexp"
	"strings"
	"time"

	"listingguard/internal/config"
	"listingguard/internal/domain/models"
	"listingguard/internal/oracle"
	"listingguard/pkg/logger"
)

// Geocoder resolves addresses to coordinates and back.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*oracle.GeocodedPlace, error)
	ReverseGeocode(ctx context.Context, lat, lon float64) (string, error)
}

// POIProvider answers area queries around a coordinate.
type POIProvider interface {
	POIs(ctx context.Context, lat, lon float64) ([]models.POI, error)
	PreCheck(ctx context.Context, lat, lon float64) (populated, urban bool, err error)
}

// GeocodeCache caches geocoder responses so repeated classifications of the
// same address don't hammer the upstream.
type GeocodeCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

const geocodeCacheTTL = 24 * time.Hour

// Location keywords that tend to prefix the useful part of a listing title.
var titleLocationKeywords = []string{
	"C.", "Av.", "Pl.", "Pza.",
	"calle", "avenida", "plaza", "barrio", "zona", "sector",
	"parque", "centro", "ciudad", "pueblo", "camino", "carretera",
	"urbanización", "residencial", "localidad", "provincia",
}

var digits = regexp.MustCompile(`\d+`)

// GeoVerifier corroborates the claimed address of a listing: geocode it,
// gate on the populated/urban pre-check, then accumulate evidence from
// address similarity and nearby points of interest.
type GeoVerifier struct {
	geocoder Geocoder
	pois     POIProvider
	matcher  *ContextMatcher
	cache    GeocodeCache
	scoring  config.ScoringConfig
	logger   *logger.Logger
}

// NewGeoVerifier creates a geographic verifier. cache may be nil, in which
// case every lookup goes to the geocoder.
func NewGeoVerifier(geocoder Geocoder, pois POIProvider, matcher *ContextMatcher, cache GeocodeCache, scoring config.ScoringConfig, log *logger.Logger) *GeoVerifier {
	return &GeoVerifier{
		geocoder: geocoder,
		pois:     pois,
		matcher:  matcher,
		cache:    cache,
		scoring:  scoring,
		logger:   log.WithComponent("geoverifier"),
	}
}

// Verify runs the full geographic pipeline for one listing. It returns
// (nil, nil) when the address cannot be geocoded at all; the caller decides
// whether that is fatal.
func (v *GeoVerifier) Verify(ctx context.Context, features *models.ListingFeatures) (*models.LocationResult, error) {
	query := buildGeocodeQuery(features.Title, features.Address)

	place, err := v.geocode(ctx, query)
	if err != nil {
		v.logger.Warn().Err(err).Str("listing_id", features.ListingID).Msg("Geocoding failed")
		place = nil
	}
	if place == nil {
		v.logger.Warn().
			Str("listing_id", features.ListingID).
			Str("query", query).
			Msg("Address could not be geocoded")
		return nil, nil
	}

	lat, lon := place.Latitude(), place.Longitude()

	// The geocode input is the address of record: when the title contributed
	// a fragment, similarity and persistence both work off the combined query.
	result := &models.LocationResult{
		ListingID:           features.ListingID,
		ClaimedAddress:      query,
		ClaimedCity:         place.City(),
		ClaimedPostalCode:   place.Address.Postcode,
		ClaimedNeighborhood: place.Address.Neighbourhood,
		ParsedAddress:       place.DisplayName,
		Latitude:            lat,
		Longitude:           lon,
		GeocodeSource:       place.Raw,
		Matches:             []models.POIMatch{},
		UpdatedAt:           time.Now().UTC(),
	}

	populated, urban, err := v.pois.PreCheck(ctx, lat, lon)
	if err != nil {
		v.logger.Warn().Err(err).Str("listing_id", features.ListingID).Msg("Area pre-check failed")
		populated, urban = false, false
	}
	if !populated || !urban {
		result.PenalizationReason = models.PenalizationUnpopulated
		result.LocationMatchScore = 0
		result.ConfidenceLevel = 0
		return result, nil
	}

	// Reverse geocoding is corroborating evidence, not a hard requirement.
	reverse, err := v.geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		v.logger.Warn().Err(err).Str("listing_id", features.ListingID).Msg("Reverse geocoding failed")
	} else {
		result.ReverseGeocodeAddress = reverse
	}

	pois, err := v.pois.POIs(ctx, lat, lon)
	if err != nil {
		v.logger.Warn().Err(err).Str("listing_id", features.ListingID).Msg("POI lookup failed")
		pois = nil
	}
	if len(pois) > v.scoring.POILimit {
		pois = pois[:v.scoring.POILimit]
	}

	verdict := v.matcher.Verify(ctx, features.Description, pois)
	result.Matches = verdict.Matches

	simScore := StringSimilarity(query, place.DisplayName)

	score := v.scoring.GeocodeScore +
		simScore*v.scoring.SimilarityWeight +
		v.scoring.PopulatedBonus +
		v.scoring.UrbanBonus
	if verdict.Verified {
		score += v.scoring.ContextBonus
	}
	score = round(score, 4)

	result.LocationMatchScore = round(1-score, 2)
	result.ConfidenceLevel = int(score * 5)

	v.logger.Info().
		Str("listing_id", features.ListingID).
		Float64("score", result.LocationMatchScore).
		Int("confidence", result.ConfidenceLevel).
		Int("poi_matches", len(verdict.Matches)).
		Msg("Location verification completed")

	return result, nil
}

func (v *GeoVerifier) geocode(ctx context.Context, query string) (*oracle.GeocodedPlace, error) {
	key := "geocode:" + NormalizeText(query)

	if v.cache != nil {
		var cached oracle.GeocodedPlace
		found, err := v.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			v.logger.Warn().Err(err).Msg("Geocode cache read failed")
		} else if found {
			return &cached, nil
		}
	}

	place, err := v.geocoder.Geocode(ctx, query)
	if err != nil || place == nil {
		return place, err
	}

	if v.cache != nil {
		if err := v.cache.SetJSON(ctx, key, place, geocodeCacheTTL); err != nil {
			v.logger.Warn().Err(err).Msg("Geocode cache write failed")
		}
	}
	return place, nil
}

// buildGeocodeQuery prepends a location fragment extracted from the title to
// the claimed address. Titles often carry a street or neighborhood name the
// structured address omits.
func buildGeocodeQuery(title, address string) string {
	for _, kw := range titleLocationKeywords {
		re, err := regexp.Compile(`(?i)(` + regexp.QuoteMeta(kw) + `.*)`)
		if err != nil {
			continue
		}
		match := re.FindString(title)
		if match == "" {
			continue
		}
		match = digits.ReplaceAllString(match, "")
		match = strings.TrimSpace(match)
		if match == "" {
			continue
		}
		return match + ", " + address
	}
	return address
}

func round(x float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(x*factor) / factor
}
