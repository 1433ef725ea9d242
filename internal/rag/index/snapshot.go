package index

import (
	"math"
	"sort"
	"time"

	"AgriPolicy/internal/rag/schema"
)

// Manifest describes an index snapshot. A query may only be served
// against a snapshot whose embedder matches the query embedder.
type Manifest struct {
	Generation string    `db:"generation"`
	Embedder   string    `db:"embedder"`
	Dimension  int       `db:"dimension"`
	ChunkCount int       `db:"chunk_count"`
	BuiltAt    time.Time `db:"built_at"`
}

// SearchResult pairs a chunk with its similarity score for one query.
type SearchResult struct {
	Chunk *schema.Chunk
	Score float64
}

// Snapshot is an immutable, searchable index generation. All fields are
// set at construction; concurrent Search calls share it freely.
type Snapshot struct {
	Manifest Manifest

	chunks []*schema.Chunk
	norms  []float64 // Precomputed vector norms, parallel to chunks.
}

// NewSnapshot builds a searchable snapshot over the given chunks.
// Chunks are ordered by ID so that equal-score results always come back
// in the same order.
func NewSnapshot(manifest Manifest, chunks []*schema.Chunk) *Snapshot {
	ordered := make([]*schema.Chunk, len(chunks))
	copy(ordered, chunks)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	norms := make([]float64, len(ordered))
	for i, c := range ordered {
		norms[i] = vectorNorm(c.Embedding)
	}

	return &Snapshot{Manifest: manifest, chunks: ordered, norms: norms}
}

// Search returns up to k chunks by descending cosine similarity to the
// query vector. Ties are broken by chunk ID.
func (s *Snapshot) Search(vector []float32, k int) []SearchResult {
	if k <= 0 || len(s.chunks) == 0 {
		return nil
	}

	qNorm := vectorNorm(vector)
	if qNorm == 0 {
		return nil
	}

	results := make([]SearchResult, 0, len(s.chunks))
	for i, c := range s.chunks {
		if s.norms[i] == 0 || len(c.Embedding) != len(vector) {
			continue
		}
		score := dot(vector, c.Embedding) / (qNorm * s.norms[i])
		results = append(results, SearchResult{Chunk: c, Score: score})
	}

	// Stable sort preserves the snapshot's ID order among equal scores.
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if len(results) > k {
		results = results[:k]
	}
	return results
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func vectorNorm(v []float32) float64 {
	return math.Sqrt(dot(v, v))
}
