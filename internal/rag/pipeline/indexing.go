package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"AgriPolicy/internal/rag/index"
	"AgriPolicy/internal/rag/interfaces"
	"AgriPolicy/internal/rag/loaders"
	"AgriPolicy/internal/rag/schema"
	"AgriPolicy/pkg/logger"
)

// loadConcurrency bounds the number of documents loaded and split at once.
const loadConcurrency = 4

// IndexingPipeline orchestrates loading, splitting, embedding and
// snapshot publication for a set of document sources.
type IndexingPipeline struct {
	chunker     interfaces.Chunker
	idx         *index.Index
	objectStore interfaces.Loader // Optional; serves "s3://<key>" sources from the configured bucket.
	log         *logger.Logger
}

// NewIndexingPipeline creates a new IndexingPipeline. objectStore may
// be nil when no object store is configured.
func NewIndexingPipeline(chunker interfaces.Chunker, idx *index.Index, objectStore interfaces.Loader, log *logger.Logger) *IndexingPipeline {
	return &IndexingPipeline{chunker: chunker, idx: idx, objectStore: objectStore, log: log}
}

// IndexReport summarizes one pipeline run.
type IndexReport struct {
	DocumentsIngested int
	ChunksIndexed     int
	Generation        string
	// Failed lists the sources that were rejected; each rejected
	// source contributes nothing to the new snapshot.
	Failed []*schema.IngestionError
}

// Run loads every source, splits the successfully loaded documents and
// builds a new snapshot from their chunks. A source that fails to load
// or split is reported in the result and skipped whole; a run where no
// source survives is an error.
func (p *IndexingPipeline) Run(ctx context.Context, sources []string) (*IndexReport, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources to index")
	}

	p.log.WithField("sources", len(sources)).Info("starting indexing run")

	// 1. Load and split concurrently; each source succeeds or fails alone.
	chunksBySource := make([][]*schema.Chunk, len(sources))
	failures := make([]*schema.IngestionError, len(sources))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(loadConcurrency)
	for i, src := range sources {
		eg.Go(func() error {
			chunks, err := p.ingestOne(gCtx, src)
			if err != nil {
				var ing *schema.IngestionError
				if errors.As(err, &ing) {
					p.log.WithError(ing).Warn("source rejected")
					failures[i] = ing
					return nil
				}
				return err
			}
			chunksBySource[i] = chunks
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	report := &IndexReport{}
	var allChunks []*schema.Chunk
	for i := range sources {
		if failures[i] != nil {
			report.Failed = append(report.Failed, failures[i])
			continue
		}
		report.DocumentsIngested++
		allChunks = append(allChunks, chunksBySource[i]...)
	}

	if len(allChunks) == 0 {
		return nil, fmt.Errorf("indexing run produced no chunks (%d sources rejected)", len(report.Failed))
	}

	// 2. Embed, persist and publish in one step.
	snap, err := p.idx.Build(ctx, allChunks)
	if err != nil {
		return nil, fmt.Errorf("snapshot build failed: %w", err)
	}

	report.ChunksIndexed = snap.Manifest.ChunkCount
	report.Generation = snap.Manifest.Generation
	p.log.WithField("generation", report.Generation).
		WithField("documents", report.DocumentsIngested).
		WithField("chunks", report.ChunksIndexed).
		Info("indexing run finished")
	return report, nil
}

func (p *IndexingPipeline) ingestOne(ctx context.Context, src string) ([]*schema.Chunk, error) {
	var (
		doc *schema.Document
		err error
	)
	switch {
	case strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://"):
		doc, err = loaders.NewWebLoader().Load(ctx, src)
	case strings.HasPrefix(src, "s3://"):
		if p.objectStore == nil {
			return nil, &schema.IngestionError{DocumentID: src, Reason: "no object store configured"}
		}
		doc, err = p.objectStore.Load(ctx, strings.TrimPrefix(src, "s3://"))
	default:
		doc, err = loaders.LoadFile(ctx, src)
	}
	if err != nil {
		return nil, err
	}
	return p.chunker.Split(ctx, doc)
}
