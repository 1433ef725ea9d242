package pipeline

import (
	"context"
	"errors"
	"fmt"

	"AgriPolicy/internal/config"
	"AgriPolicy/internal/rag/index"
	"AgriPolicy/internal/rag/interfaces"
	"AgriPolicy/pkg/logger"
)

// ErrEmbedderMismatch reports a query embedder that differs from the
// one recorded in the snapshot manifest. Scores across embedding spaces
// are meaningless; the index must be rebuilt with the current embedder.
var ErrEmbedderMismatch = errors.New("query embedder does not match index manifest")

// RetrievalPipeline turns a query into a budgeted set of relevant chunks.
type RetrievalPipeline struct {
	embedder interfaces.EmbeddingModel
	idx      *index.Index
	cfg      config.RetrievalConfig
	log      *logger.Logger
}

// NewRetrievalPipeline creates a new RetrievalPipeline.
func NewRetrievalPipeline(embedder interfaces.EmbeddingModel, idx *index.Index, cfg config.RetrievalConfig, log *logger.Logger) *RetrievalPipeline {
	return &RetrievalPipeline{embedder: embedder, idx: idx, cfg: cfg, log: log}
}

// Run retrieves the chunks most relevant to the query, at most topK of
// them and never more than the context token budget. An empty result
// means nothing in the corpus clears the relevance threshold; callers
// treat that as a signal, not an error.
func (p *RetrievalPipeline) Run(ctx context.Context, query string) ([]index.SearchResult, error) {
	snap, err := p.idx.Snapshot()
	if err != nil {
		return nil, err
	}

	// 1. Refuse to mix embedding spaces.
	if snap.Manifest.Embedder != p.embedder.Name() {
		return nil, fmt.Errorf("%w: index built with %q, query uses %q",
			ErrEmbedderMismatch, snap.Manifest.Embedder, p.embedder.Name())
	}

	// 2. Embed the query.
	vectors, err := p.embedder.Embed(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// 3. Over-fetch so that threshold and budget filtering still leave
	// enough candidates.
	candidates := snap.Search(vectors[0], p.cfg.TopK*p.cfg.OverfetchFactor)

	// 4. Threshold, then pack greedily by descending score into the
	// token budget. A chunk that does not fit is skipped, not truncated.
	results := make([]index.SearchResult, 0, p.cfg.TopK)
	budget := p.cfg.MaxContextTokens
	for _, cand := range candidates {
		if cand.Score < p.cfg.ScoreThreshold {
			break // Candidates are score-ordered; the rest are below too.
		}
		if len(results) == p.cfg.TopK {
			break
		}
		if cand.Chunk.TokenCount > budget {
			continue
		}
		budget -= cand.Chunk.TokenCount
		results = append(results, cand)
	}

	p.log.WithField("candidates", len(candidates)).
		WithField("selected", len(results)).
		WithField("budget_left", budget).
		Debug("retrieval finished")
	return results, nil
}
