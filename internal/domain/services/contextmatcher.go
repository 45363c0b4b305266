package services

import (
	"context"
	"math"

	"listingguard/internal/config"
	"listingguard/internal/domain/models"
	"listingguard/pkg/logger"
)

// LexicalMatcher is the external description/POI matcher.
type LexicalMatcher interface {
	Match(ctx context.Context, description string, poiNames []string) (*models.ContextVerdict, error)
}

// Embedder produces one vector per input text.
type Embedder interface {
	Encode(ctx context.Context, texts []string) ([][]float64, error)
}

// ContextMatcher decides whether a listing description is consistent with the
// points of interest found around its geocoded coordinate. Strategy is picked
// by configuration: "lexical" delegates to an external matcher, "embeddings"
// compares the description vector against each POI name vector.
type ContextMatcher struct {
	lexical   LexicalMatcher
	embedder  Embedder
	strategy  string
	threshold float64
	logger    *logger.Logger
}

// NewContextMatcher creates a context matcher with the configured strategy.
func NewContextMatcher(cfg config.ScoringConfig, lexical LexicalMatcher, embedder Embedder, log *logger.Logger) *ContextMatcher {
	return &ContextMatcher{
		lexical:   lexical,
		embedder:  embedder,
		strategy:  cfg.ContextStrategy,
		threshold: cfg.ContextThreshold,
		logger:    log.WithComponent("contextmatcher"),
	}
}

// Verify matches the description against the named POIs. A missing
// description or an empty POI set short-circuits to an unverified verdict; a
// matcher failure degrades the same way instead of failing the run.
func (m *ContextMatcher) Verify(ctx context.Context, description string, pois []models.POI) models.ContextVerdict {
	names := make([]string, 0, len(pois))
	for _, p := range pois {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}

	if description == "" || len(names) == 0 {
		return models.ContextVerdict{Verified: false, Matches: []models.POIMatch{}}
	}

	if m.strategy == "lexical" {
		verdict, err := m.lexical.Match(ctx, description, names)
		if err != nil {
			m.logger.Warn().Err(err).Msg("Lexical context match failed, treating as unverified")
			return models.ContextVerdict{Verified: false, Matches: []models.POIMatch{}}
		}
		return *verdict
	}

	return m.verifyEmbeddings(ctx, description, names)
}

func (m *ContextMatcher) verifyEmbeddings(ctx context.Context, description string, names []string) models.ContextVerdict {
	vectors, err := m.embedder.Encode(ctx, append([]string{description}, names...))
	if err != nil {
		m.logger.Warn().Err(err).Msg("Embedding encode failed, treating as unverified")
		return models.ContextVerdict{Verified: false, Matches: []models.POIMatch{}}
	}

	descVec := vectors[0]
	matches := make([]models.POIMatch, 0, len(names))
	for i, name := range names {
		sim := cosineSimilarity(descVec, vectors[i+1])
		if sim >= m.threshold {
			matches = append(matches, models.POIMatch{POI: name, Similarity: sim})
		}
	}

	return models.ContextVerdict{
		Verified: len(matches) > 0,
		Matches:  matches,
	}
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
