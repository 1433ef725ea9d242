package index

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"AgriPolicy/internal/rag/interfaces"
	"AgriPolicy/internal/rag/schema"
	"AgriPolicy/pkg/logger"
)

// ErrNotReady reports that no snapshot has been built or loaded yet.
var ErrNotReady = errors.New("index has no active snapshot")

// embedBatchSize bounds the number of texts sent to the embedder per call.
const embedBatchSize = 64

// Index owns the active snapshot and its persistence. Queries read the
// snapshot through an atomic pointer, so a rebuild never blocks or
// tears an in-flight search.
type Index struct {
	store    *Store
	embedder interfaces.EmbeddingModel
	log      *logger.Logger

	active atomic.Pointer[Snapshot]
}

// New creates an Index backed by the given store and embedder.
func New(store *Store, embedder interfaces.EmbeddingModel, log *logger.Logger) *Index {
	return &Index{store: store, embedder: embedder, log: log}
}

// Build embeds the chunks, persists a new snapshot generation and
// publishes it. The previous snapshot keeps serving queries until the
// new one is durably stored.
func (idx *Index) Build(ctx context.Context, chunks []*schema.Chunk) (*Snapshot, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("cannot build index from zero chunks")
	}

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		vectors, err := idx.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding batch failed: %w", err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
		}
		for i, v := range vectors {
			chunks[start+i].Embedding = v
		}
	}

	dimension := len(chunks[0].Embedding)
	for _, c := range chunks {
		if len(c.Embedding) != dimension {
			return nil, fmt.Errorf("embedder returned mixed dimensions (%d and %d)", dimension, len(c.Embedding))
		}
	}

	snap := NewSnapshot(Manifest{
		Generation: uuid.New().String(),
		Embedder:   idx.embedder.Name(),
		Dimension:  dimension,
		ChunkCount: len(chunks),
		BuiltAt:    time.Now().UTC(),
	}, chunks)

	if err := idx.store.Save(ctx, snap); err != nil {
		return nil, fmt.Errorf("cannot persist snapshot: %w", err)
	}

	idx.active.Store(snap)
	idx.log.WithField("generation", snap.Manifest.Generation).
		WithField("chunks", snap.Manifest.ChunkCount).
		Info("index snapshot published")
	return snap, nil
}

// Load reads the persisted snapshot and publishes it. A corrupt
// snapshot is reported without touching the currently active one.
func (idx *Index) Load(ctx context.Context) (*Snapshot, error) {
	snap, err := idx.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	idx.active.Store(snap)
	idx.log.WithField("generation", snap.Manifest.Generation).
		WithField("chunks", snap.Manifest.ChunkCount).
		Info("index snapshot loaded")
	return snap, nil
}

// Snapshot returns the active snapshot, or ErrNotReady before the first
// successful Build or Load.
func (idx *Index) Snapshot() (*Snapshot, error) {
	snap := idx.active.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	return snap, nil
}
