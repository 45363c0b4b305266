package services

import (
	"context"
	"strings"
	"time"

	"listingguard/internal/config"
	"listingguard/internal/domain/models"
	"listingguard/internal/oracle"
	"listingguard/pkg/logger"
)

// ImageAnalyzer captions images, scores image/text similarity and detects
// AI generation.
type ImageAnalyzer interface {
	DescribeImage(ctx context.Context, imageURL string) (string, error)
	CompareImageToText(ctx context.Context, imageURL, text string) (float64, error)
	DetectAIGenerated(ctx context.Context, imageURL string) (*oracle.AIDetection, error)
}

// ReverseImageSearcher finds where else an image appears on the web.
type ReverseImageSearcher interface {
	ReverseImageSearch(ctx context.Context, imageURL string) ([]string, error)
}

// ImageVerifier checks listing photos for reuse and AI generation. Each image
// goes through AI detection first; an AI-flagged image is maximally suspicious
// on its own and skips the reverse search entirely.
type ImageVerifier struct {
	analyzer       ImageAnalyzer
	searcher       ReverseImageSearcher
	trustedDomains []string
	logger         *logger.Logger
}

// NewImageVerifier creates an image verifier. trustedDomains restricts
// reverse-search hits to the property portals worth comparing against.
func NewImageVerifier(analyzer ImageAnalyzer, searcher ReverseImageSearcher, cfg config.ScoringConfig, log *logger.Logger) *ImageVerifier {
	return &ImageVerifier{
		analyzer:       analyzer,
		searcher:       searcher,
		trustedDomains: cfg.TrustedDomains,
		logger:         log.WithComponent("imageverifier"),
	}
}

// Verify runs every listing image through the pipeline and aggregates. An
// empty image list yields a zeroed result rather than an error.
func (v *ImageVerifier) Verify(ctx context.Context, listingID string, imageURLs []string) *models.ImageResult {
	result := &models.ImageResult{
		ImageURLs:     imageURLs,
		Captions:      []string{},
		SimilarImages: []string{},
	}
	if len(imageURLs) == 0 {
		return result
	}

	var maxSimilarity float64
	var aiCount int

	for _, imageURL := range imageURLs {
		check := v.checkImage(ctx, imageURL)

		if check.AIGenerated {
			aiCount++
			if len(check.DetectorRaw) > 0 {
				result.DetectorFlags = append(result.DetectorFlags, check.DetectorRaw)
			}
		}
		if check.Caption != "" {
			result.Captions = append(result.Captions, check.Caption)
		}
		if check.SimilarURL != "" {
			result.SimilarImages = append(result.SimilarImages, check.SimilarURL)
		}
		if check.Similarity > maxSimilarity {
			maxSimilarity = check.Similarity
		}
	}

	result.SimilarityScore = round(maxSimilarity, 4)
	result.AIGenerated = round(float64(aiCount)/float64(len(imageURLs)), 4)

	v.logger.Info().
		Str("listing_id", listingID).
		Int("images", len(imageURLs)).
		Float64("similarity", result.SimilarityScore).
		Float64("ai_ratio", result.AIGenerated).
		Msg("Image verification completed")

	return result
}

func (v *ImageVerifier) checkImage(ctx context.Context, imageURL string) models.ImageCheck {
	check := models.ImageCheck{ImageURL: imageURL}

	detection, err := v.analyzer.DetectAIGenerated(ctx, imageURL)
	if err != nil {
		v.logger.Warn().Err(err).Str("image", imageURL).Msg("AI detection failed")
	} else if detection.IsAI {
		check.AIGenerated = true
		check.Similarity = 1
		check.DetectorRaw = detection.Raw
		return check
	}

	links, err := v.searcher.ReverseImageSearch(ctx, imageURL)
	if err != nil {
		v.logger.Warn().Err(err).Str("image", imageURL).Msg("Reverse image search failed")
		links = nil
	}

	caption, err := v.analyzer.DescribeImage(ctx, imageURL)
	if err != nil {
		v.logger.Warn().Err(err).Str("image", imageURL).Msg("Captioning failed")
	}
	check.Caption = caption

	candidates := v.filterTrusted(links)
	if len(candidates) == 0 {
		return check
	}

	for _, candidate := range candidates {
		sim, err := v.analyzer.CompareImageToText(ctx, candidate, caption)
		if err != nil {
			v.logger.Warn().Err(err).Str("candidate", candidate).Msg("Image comparison failed")
			sim = 0
		}
		if sim > check.Similarity {
			check.Similarity = sim
			check.SimilarURL = candidate
		}
	}

	return check
}

func (v *ImageVerifier) filterTrusted(links []string) []string {
	trusted := make([]string, 0, len(links))
	for _, link := range links {
		for _, domain := range v.trustedDomains {
			if strings.Contains(link, domain) {
				trusted = append(trusted, link)
				break
			}
		}
	}
	return trusted
}

// BuildMediaRecord derives the persisted form of an image verification run.
func BuildMediaRecord(listingID string, result *models.ImageResult) *models.MediaRecord {
	return &models.MediaRecord{
		ListingID:          listingID,
		ImageURLs:          result.ImageURLs,
		ReverseSearchCount: len(result.SimilarImages),
		ReverseSources:     result.SimilarImages,
		VisualNotes:        result.Captions,
		DetectorFlags:      result.DetectorFlags,
		SimilarityScore:    result.SimilarityScore,
		AIGeneratedRatio:   result.AIGenerated,
		ManipulationFlag:   result.AIGenerated > 0,
		UpdatedAt:          time.Now().UTC(),
	}
}
