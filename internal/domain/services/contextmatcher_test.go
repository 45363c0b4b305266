package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"listingguard/internal/config"
	"listingguard/internal/domain/models"
	"listingguard/pkg/logger"
)

type stubLexical struct {
	verdict *models.ContextVerdict
	err     error
	called  bool
}

func (s *stubLexical) Match(_ context.Context, _ string, _ []string) (*models.ContextVerdict, error) {
	s.called = true
	return s.verdict, s.err
}

type stubEmbedder struct {
	vectors [][]float64
	err     error
}

func (s *stubEmbedder) Encode(_ context.Context, _ []string) ([][]float64, error) {
	return s.vectors, s.err
}

func scoringCfg(strategy string) config.ScoringConfig {
	return config.ScoringConfig{
		ContextStrategy:  strategy,
		ContextThreshold: 0.5,
	}
}

func TestContextMatcherShortCircuits(t *testing.T) {
	lex := &stubLexical{}
	m := NewContextMatcher(scoringCfg("lexical"), lex, nil, logger.NewDefault())

	t.Run("empty description", func(t *testing.T) {
		verdict := m.Verify(context.Background(), "", []models.POI{{Name: "Parque del Retiro"}})
		assert.False(t, verdict.Verified)
		assert.Empty(t, verdict.Matches)
		assert.False(t, lex.called)
	})

	t.Run("no named POIs", func(t *testing.T) {
		verdict := m.Verify(context.Background(), "Piso junto al parque", []models.POI{{Name: ""}})
		assert.False(t, verdict.Verified)
		assert.Empty(t, verdict.Matches)
		assert.False(t, lex.called)
	})
}

func TestContextMatcherLexical(t *testing.T) {
	t.Run("delegates to external matcher", func(t *testing.T) {
		lex := &stubLexical{verdict: &models.ContextVerdict{
			Verified: true,
			Matches:  []models.POIMatch{{POI: "Mercado Central", Similarity: 0.91}},
		}}
		m := NewContextMatcher(scoringCfg("lexical"), lex, nil, logger.NewDefault())

		verdict := m.Verify(context.Background(), "A dos calles del Mercado Central", []models.POI{{Name: "Mercado Central"}})
		assert.True(t, verdict.Verified)
		require.Len(t, verdict.Matches, 1)
		assert.Equal(t, "Mercado Central", verdict.Matches[0].POI)
	})

	t.Run("matcher failure degrades to unverified", func(t *testing.T) {
		lex := &stubLexical{err: errors.New("connection refused")}
		m := NewContextMatcher(scoringCfg("lexical"), lex, nil, logger.NewDefault())

		verdict := m.Verify(context.Background(), "Junto a la estación", []models.POI{{Name: "Estación de Atocha"}})
		assert.False(t, verdict.Verified)
		assert.Empty(t, verdict.Matches)
	})
}

func TestContextMatcherEmbeddings(t *testing.T) {
	t.Run("matches above threshold", func(t *testing.T) {
		emb := &stubEmbedder{vectors: [][]float64{
			{1, 0},   // description
			{1, 0},   // identical direction, sim 1
			{0, 1},   // orthogonal, sim 0
			{1, 1},   // sim ~0.707
		}}
		m := NewContextMatcher(scoringCfg("embeddings"), nil, emb, logger.NewDefault())

		pois := []models.POI{{Name: "Plaza Mayor"}, {Name: "Polígono Norte"}, {Name: "Parque Central"}}
		verdict := m.Verify(context.Background(), "Frente a la Plaza Mayor", pois)

		assert.True(t, verdict.Verified)
		require.Len(t, verdict.Matches, 2)
		assert.Equal(t, "Plaza Mayor", verdict.Matches[0].POI)
		assert.Equal(t, "Parque Central", verdict.Matches[1].POI)
	})

	t.Run("nothing above threshold", func(t *testing.T) {
		emb := &stubEmbedder{vectors: [][]float64{{1, 0}, {0, 1}}}
		m := NewContextMatcher(scoringCfg("embeddings"), nil, emb, logger.NewDefault())

		verdict := m.Verify(context.Background(), "Piso céntrico", []models.POI{{Name: "Plaza Mayor"}})
		assert.False(t, verdict.Verified)
		assert.Empty(t, verdict.Matches)
	})

	t.Run("encode failure degrades to unverified", func(t *testing.T) {
		emb := &stubEmbedder{err: errors.New("model unavailable")}
		m := NewContextMatcher(scoringCfg("embeddings"), nil, emb, logger.NewDefault())

		verdict := m.Verify(context.Background(), "Piso céntrico", []models.POI{{Name: "Plaza Mayor"}})
		assert.False(t, verdict.Verified)
		assert.Empty(t, verdict.Matches)
	})
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float64{1}, []float64{1, 2}))
	assert.Equal(t, 0.0, cosineSimilarity([]float64{0, 0}, []float64{1, 1}))
}
