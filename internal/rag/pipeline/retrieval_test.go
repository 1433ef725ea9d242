package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgriPolicy/internal/config"
	"AgriPolicy/internal/rag/index"
	"AgriPolicy/internal/rag/schema"
	"AgriPolicy/pkg/logger"
)

// axisEmbedder gives each registered text a fixed unit vector, so tests
// control similarity scores exactly.
type axisEmbedder struct {
	name    string
	vectors map[string][]float32
}

func (e *axisEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := e.vectors[t]
		if !ok {
			v = []float32{0, 0, 1}
		}
		out[i] = v
	}
	return out, nil
}

func (e *axisEmbedder) Name() string { return e.name }

func budgetChunk(id string, tokens int, vec []float32) *schema.Chunk {
	return &schema.Chunk{
		ID:         id,
		DocumentID: "doc",
		Text:       id,
		TokenCount: tokens,
		EndOffset:  tokens,
		Embedding:  vec,
		Metadata:   map[string]interface{}{},
	}
}

func buildPipeline(t *testing.T, emb *axisEmbedder, chunks []*schema.Chunk, cfg config.RetrievalConfig) *RetrievalPipeline {
	t.Helper()
	store, err := index.NewStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logger.New("retrieval-test", "")
	idx := index.New(store, emb, log)
	_, err = idx.Build(context.Background(), chunks)
	require.NoError(t, err)

	return NewRetrievalPipeline(emb, idx, cfg, log)
}

func TestRunPacksWithinTokenBudget(t *testing.T) {
	// Scores descend a, b, c; b alone would blow the budget and must be
	// skipped while c still fits.
	emb := &axisEmbedder{name: "test/axis-v1", vectors: map[string][]float32{
		"query": {1, 0, 0},
		"a":     {1, 0, 0},
		"b":     {0.9, 0.4359, 0},
		"c":     {0.8, 0.6, 0},
	}}
	chunks := []*schema.Chunk{
		budgetChunk("a", 100, emb.vectors["a"]),
		budgetChunk("b", 900, emb.vectors["b"]),
		budgetChunk("c", 150, emb.vectors["c"]),
	}
	p := buildPipeline(t, emb, chunks, config.RetrievalConfig{
		TopK: 3, OverfetchFactor: 4, ScoreThreshold: 0.25, MaxContextTokens: 300,
	})

	results, err := p.Run(context.Background(), "query")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Chunk.ID)
	assert.Equal(t, "c", results[1].Chunk.ID)

	total := 0
	for _, r := range results {
		total += r.Chunk.TokenCount
	}
	assert.LessOrEqual(t, total, 300)
}

func TestRunDropsBelowThreshold(t *testing.T) {
	emb := &axisEmbedder{name: "test/axis-v1", vectors: map[string][]float32{
		"query":    {1, 0, 0},
		"relevant": {1, 0, 0},
		"noise":    {0, 1, 0},
	}}
	chunks := []*schema.Chunk{
		budgetChunk("relevant", 50, emb.vectors["relevant"]),
		budgetChunk("noise", 50, emb.vectors["noise"]),
	}
	p := buildPipeline(t, emb, chunks, config.RetrievalConfig{
		TopK: 5, OverfetchFactor: 4, ScoreThreshold: 0.25, MaxContextTokens: 1000,
	})

	results, err := p.Run(context.Background(), "query")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "relevant", results[0].Chunk.ID)
}

func TestRunEmptyResultIsNotAnError(t *testing.T) {
	emb := &axisEmbedder{name: "test/axis-v1", vectors: map[string][]float32{
		"query": {1, 0, 0},
		"far":   {0, 1, 0},
	}}
	p := buildPipeline(t, emb, []*schema.Chunk{budgetChunk("far", 50, emb.vectors["far"])},
		config.RetrievalConfig{TopK: 5, OverfetchFactor: 4, ScoreThreshold: 0.25, MaxContextTokens: 1000})

	results, err := p.Run(context.Background(), "query")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRunRespectsTopK(t *testing.T) {
	emb := &axisEmbedder{name: "test/axis-v1", vectors: map[string][]float32{"query": {1, 0, 0}}}
	var chunks []*schema.Chunk
	for _, id := range []string{"c1", "c2", "c3", "c4", "c5"} {
		emb.vectors[id] = []float32{1, 0, 0}
		chunks = append(chunks, budgetChunk(id, 10, emb.vectors[id]))
	}
	p := buildPipeline(t, emb, chunks, config.RetrievalConfig{
		TopK: 2, OverfetchFactor: 4, ScoreThreshold: 0.25, MaxContextTokens: 1000,
	})

	results, err := p.Run(context.Background(), "query")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRunEmbedderMismatch(t *testing.T) {
	emb := &axisEmbedder{name: "test/axis-v1", vectors: map[string][]float32{"query": {1, 0, 0}}}
	chunks := []*schema.Chunk{budgetChunk("a", 10, []float32{1, 0, 0})}

	store, err := index.NewStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logger.New("retrieval-test", "")
	idx := index.New(store, emb, log)
	_, err = idx.Build(context.Background(), chunks)
	require.NoError(t, err)

	other := &axisEmbedder{name: "test/axis-v2", vectors: emb.vectors}
	p := NewRetrievalPipeline(other, idx, config.RetrievalConfig{
		TopK: 2, OverfetchFactor: 4, ScoreThreshold: 0.25, MaxContextTokens: 1000,
	}, log)

	_, err = p.Run(context.Background(), "query")
	assert.ErrorIs(t, err, ErrEmbedderMismatch)
}
