package index

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgriPolicy/internal/rag/schema"
	"AgriPolicy/pkg/logger"
)

// hashEmbedder maps each text deterministically onto a small vector so
// tests never depend on a live embedding provider.
type hashEmbedder struct {
	name string
}

func (e *hashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		var a, b float32
		for j, r := range t {
			if j%2 == 0 {
				a += float32(r)
			} else {
				b += float32(r)
			}
		}
		out[i] = []float32{a, b, float32(len(t))}
	}
	return out, nil
}

func (e *hashEmbedder) Name() string { return e.name }

func testChunk(docID string, offset int, text string) *schema.Chunk {
	return &schema.Chunk{
		ID:          schema.ChunkID(docID, offset),
		DocumentID:  docID,
		Text:        text,
		TokenCount:  len(text) / 4,
		StartOffset: offset,
		EndOffset:   offset + len(text)/4,
		Metadata:    map[string]interface{}{schema.MetadataKeySourceName: docID},
	}
}

func newTestIndex(t *testing.T) (*Index, *Store) {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(store, &hashEmbedder{name: "test/hash-v1"}, logger.New("index-test", "")), store
}

func TestBuildLoadSearchRoundTrip(t *testing.T) {
	ctx := context.Background()
	idx, store := newTestIndex(t)

	chunks := []*schema.Chunk{
		testChunk("doc-a", 0, "Fertilizer subsidies were expanded in the 2021 budget."),
		testChunk("doc-a", 448, "Smallholder irrigation access remains below the regional average."),
		testChunk("doc-b", 0, "Forest cover declined steadily in the northern provinces."),
	}

	built, err := idx.Build(ctx, chunks)
	require.NoError(t, err)
	assert.Equal(t, "test/hash-v1", built.Manifest.Embedder)
	assert.Equal(t, 3, built.Manifest.ChunkCount)
	assert.Equal(t, 3, built.Manifest.Dimension)

	// A fresh index over the same store must reproduce the snapshot.
	reloaded := New(store, &hashEmbedder{name: "test/hash-v1"}, logger.New("index-test", ""))
	snap, err := reloaded.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, built.Manifest.Generation, snap.Manifest.Generation)

	query, err := (&hashEmbedder{}).Embed(ctx, []string{"Fertilizer subsidies were expanded in the 2021 budget."})
	require.NoError(t, err)

	fromBuilt := built.Search(query[0], 3)
	fromLoaded := snap.Search(query[0], 3)
	require.Equal(t, len(fromBuilt), len(fromLoaded))
	for i := range fromBuilt {
		assert.Equal(t, fromBuilt[i].Chunk.ID, fromLoaded[i].Chunk.ID)
		assert.InDelta(t, fromBuilt[i].Score, fromLoaded[i].Score, 1e-9)
	}

	// An exact text match is a perfect cosine score and must rank first.
	assert.Equal(t, schema.ChunkID("doc-a", 0), fromLoaded[0].Chunk.ID)
	assert.InDelta(t, 1.0, fromLoaded[0].Score, 1e-6)
}

func TestSearchTiesBrokenByChunkID(t *testing.T) {
	// Identical text means identical vectors and identical scores.
	chunks := []*schema.Chunk{
		testChunk("doc-z", 0, "Common agricultural policy reform."),
		testChunk("doc-a", 0, "Common agricultural policy reform."),
		testChunk("doc-m", 0, "Common agricultural policy reform."),
	}
	vecs, err := (&hashEmbedder{}).Embed(context.Background(), []string{chunks[0].Text, chunks[1].Text, chunks[2].Text})
	require.NoError(t, err)
	for i := range chunks {
		chunks[i].Embedding = vecs[i]
	}

	snap := NewSnapshot(Manifest{Generation: "g", Embedder: "test/hash-v1", Dimension: 3, ChunkCount: 3}, chunks)
	results := snap.Search(vecs[0], 3)
	require.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		assert.Less(t, results[i-1].Chunk.ID, results[i].Chunk.ID)
	}
}

func TestSearchReturnsAtMostK(t *testing.T) {
	ctx := context.Background()
	idx, _ := newTestIndex(t)

	var chunks []*schema.Chunk
	for i := 0; i < 10; i++ {
		chunks = append(chunks, testChunk("doc-k", i*448, fmt.Sprintf("Policy clause number %d on land tenure.", i)))
	}
	snap, err := idx.Build(ctx, chunks)
	require.NoError(t, err)

	q, err := (&hashEmbedder{}).Embed(ctx, []string{"land tenure"})
	require.NoError(t, err)
	assert.Len(t, snap.Search(q[0], 4), 4)
	assert.Empty(t, snap.Search(q[0], 0))
}

func TestLoadEmptyStore(t *testing.T) {
	idx, _ := newTestIndex(t)
	_, err := idx.Load(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestLoadCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	idx, store := newTestIndex(t)

	_, err := idx.Build(ctx, []*schema.Chunk{
		testChunk("doc-a", 0, "Grain reserve policy."),
		testChunk("doc-a", 448, "Storage capacity targets."),
	})
	require.NoError(t, err)

	// A chunk lost underneath the manifest must surface as corruption.
	_, err = store.db.Exec(`DELETE FROM chunks WHERE id = ?`, schema.ChunkID("doc-a", 448))
	require.NoError(t, err)

	_, err = idx.Load(ctx)
	assert.ErrorIs(t, err, ErrSnapshotCorrupt)
}

func TestLoadDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx, store := newTestIndex(t)

	_, err := idx.Build(ctx, []*schema.Chunk{testChunk("doc-a", 0, "Pesticide registration rules.")})
	require.NoError(t, err)

	_, err = store.db.Exec(`UPDATE manifest SET dimension = 7`)
	require.NoError(t, err)

	_, err = idx.Load(ctx)
	assert.ErrorIs(t, err, ErrSnapshotCorrupt)
}

func TestSnapshotBeforeBuild(t *testing.T) {
	idx, _ := newTestIndex(t)
	_, err := idx.Snapshot()
	assert.ErrorIs(t, err, ErrNotReady)
}
