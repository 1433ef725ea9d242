package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgriPolicy/internal/rag/index"
	"AgriPolicy/internal/rag/schema"
	"AgriPolicy/pkg/logger"
)

// oneChunker turns every document into a single chunk, keeping the
// pipeline tests independent of the tokenizer.
type oneChunker struct{}

func (c *oneChunker) Split(ctx context.Context, doc *schema.Document) ([]*schema.Chunk, error) {
	return []*schema.Chunk{{
		ID:         schema.ChunkID(doc.ID, 0),
		DocumentID: doc.ID,
		Text:       doc.Text,
		TokenCount: 10,
		EndOffset:  10,
		Metadata:   doc.Metadata,
	}}, nil
}

func newIndexingPipeline(t *testing.T) (*IndexingPipeline, *index.Index) {
	t.Helper()
	store, err := index.NewStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	log := logger.New("indexing-test", "")
	idx := index.New(store, &axisEmbedder{name: "test/axis-v1", vectors: map[string][]float32{}}, log)
	return NewIndexingPipeline(&oneChunker{}, idx, nil, log), idx
}

func sourceFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunIsolatesFailedSources(t *testing.T) {
	dir := t.TempDir()
	good1 := sourceFile(t, dir, "tenure.txt", "Land tenure policy text.")
	good2 := sourceFile(t, dir, "water.txt", "Irrigation policy text.")
	empty := sourceFile(t, dir, "empty.txt", "   ")
	missing := filepath.Join(dir, "absent.txt")

	p, idx := newIndexingPipeline(t)
	report, err := p.Run(context.Background(), []string{good1, empty, good2, missing, "s3://reports/one.pdf"})
	require.NoError(t, err)

	assert.Equal(t, 2, report.DocumentsIngested)
	assert.Equal(t, 2, report.ChunksIndexed)
	assert.NotEmpty(t, report.Generation)

	// Each rejected source is reported once, under its own identity.
	require.Len(t, report.Failed, 3)
	failedBy := make(map[string]string)
	for _, f := range report.Failed {
		failedBy[f.DocumentID] = f.Reason
	}
	assert.Equal(t, "empty document", failedBy[empty])
	assert.Equal(t, "read failed", failedBy[missing])
	assert.Equal(t, "no object store configured", failedBy["s3://reports/one.pdf"])

	// The survivors alone form the published snapshot.
	snap, err := idx.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Manifest.ChunkCount)
}

func TestRunAllSourcesRejected(t *testing.T) {
	dir := t.TempDir()
	empty := sourceFile(t, dir, "empty.txt", "")
	missing := filepath.Join(dir, "absent.txt")

	p, idx := newIndexingPipeline(t)
	_, err := p.Run(context.Background(), []string{empty, missing})
	require.Error(t, err)

	// A run that ingests nothing must not publish a snapshot.
	_, err = idx.Snapshot()
	assert.ErrorIs(t, err, index.ErrNotReady)
}

func TestRunNoSources(t *testing.T) {
	p, _ := newIndexingPipeline(t)
	_, err := p.Run(context.Background(), nil)
	assert.Error(t, err)
}
