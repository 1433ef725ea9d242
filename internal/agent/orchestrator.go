package agent

import (
	"context"
	"errors"
	"sync"

	"AgriPolicy/internal/indicator"
	"AgriPolicy/internal/rag/index"
	"AgriPolicy/internal/rag/interfaces"
	"AgriPolicy/internal/rag/pipeline"
	"AgriPolicy/internal/rag/schema"
	"AgriPolicy/pkg/logger"
)

// Retriever is the document-grounding capability the orchestrator
// consumes.
type Retriever interface {
	Run(ctx context.Context, query string) ([]index.SearchResult, error)
}

// SeriesFetcher is the statistical-grounding capability the
// orchestrator consumes.
type SeriesFetcher interface {
	Fetch(ctx context.Context, code, area string, r indicator.Range) (*indicator.Series, error)
}

// Orchestrator runs the query state machine: classify, gather the two
// context arms concurrently, compose the prompt, generate and cite.
type Orchestrator struct {
	retriever  Retriever
	indicators SeriesFetcher
	llm        interfaces.LLM
	classifier *classifier
	log        *logger.Logger
}

// NewOrchestrator creates an Orchestrator. areas is the known reference
// area list used for classification.
func NewOrchestrator(
	retriever Retriever,
	indicators SeriesFetcher,
	catalog *indicator.Catalog,
	areas []string,
	llm interfaces.LLM,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		retriever:  retriever,
		indicators: indicators,
		llm:        llm,
		classifier: &classifier{catalog: catalog, areas: areas, llm: llm, log: log},
		log:        log,
	}
}

// gatherResult carries one context arm's outcome across the join point.
type gatherResult struct {
	passages  []index.SearchResult
	summaries []string
	citations []Citation
	failed    bool
	err       error
}

// Answer resolves one query end to end. The error return is reserved
// for broken preconditions (no index snapshot, embedder mismatch);
// upstream data failures degrade the Response state instead.
func (o *Orchestrator) Answer(ctx context.Context, query string) (*Response, error) {
	// 1. Classify.
	plan := o.classifier.Classify(ctx, query)
	o.log.WithField("indicators", len(plan.Indicators)).
		WithField("areas", len(plan.Areas)).
		Debug("query classified")

	// 2. Gather both arms concurrently. A WaitGroup join rather than a
	// cancelling group: one arm failing must not cut the other short.
	var (
		wg   sync.WaitGroup
		docs gatherResult
		data gatherResult
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		docs = o.gatherDocuments(ctx, query)
	}()

	if plan.NeedsIndicators() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data = o.gatherIndicators(ctx, plan)
		}()
	}
	wg.Wait()

	if docs.failed && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	// Broken preconditions surface to the caller; transient retrieval
	// failures only degrade the state.
	if docs.err != nil &&
		(errors.Is(docs.err, index.ErrNotReady) || errors.Is(docs.err, pipeline.ErrEmbedderMismatch)) {
		return nil, docs.err
	}

	// 3. No usable context means no generation call at all.
	if len(docs.passages) == 0 && len(data.summaries) == 0 {
		return &Response{
			State: InsufficientContext,
			Notes: plan.Notes,
		}, nil
	}

	// 4. Compose and generate.
	prompt := composePrompt(query, plan, data.summaries, docs.passages)
	answer, err := o.llm.Generate(ctx, prompt)
	if err != nil {
		o.log.WithError(err).Error("generation failed")
		return &Response{State: Failed, Notes: plan.Notes}, err
	}

	// 5. Cite everything that actually entered the prompt.
	state := Answered
	if docs.failed || data.failed {
		state = PartiallyGrounded
	}

	return &Response{
		State:     state,
		Answer:    answer,
		Citations: append(docs.citations, data.citations...),
		Summaries: data.summaries,
		Notes:     plan.Notes,
	}, nil
}

func (o *Orchestrator) gatherDocuments(ctx context.Context, query string) gatherResult {
	passages, err := o.retriever.Run(ctx, query)
	if err != nil {
		o.log.WithError(err).Warn("document retrieval failed")
		return gatherResult{failed: true, err: err}
	}

	out := gatherResult{passages: passages}
	for _, p := range passages {
		source := p.Chunk.DocumentID
		if name, ok := p.Chunk.Metadata[schema.MetadataKeySourceName].(string); ok {
			source = name
		}
		out.citations = append(out.citations, Citation{
			Kind:   CiteChunk,
			Ref:    p.Chunk.ID,
			Source: source,
			Score:  p.Score,
		})
	}
	return out
}

func (o *Orchestrator) gatherIndicators(ctx context.Context, plan *Plan) gatherResult {
	var out gatherResult
	fetched := 0

	for _, entry := range plan.Indicators {
		for _, area := range plan.Areas {
			series, err := o.indicators.Fetch(ctx, entry.SeriesCode, area, plan.Years)
			if err != nil {
				o.log.WithError(err).
					WithField("series", entry.SeriesCode).
					WithField("area", area).
					Warn("indicator fetch failed")
				continue
			}
			fetched++

			out.summaries = append(out.summaries, series.Summarize(&entry, area))
			if len(series.Points) > 0 {
				out.citations = append(out.citations, Citation{
					Kind:   CiteSeries,
					Ref:    entry.SeriesCode,
					Source: area,
				})
			}
		}
	}

	// The arm failed only if every single fetch errored.
	out.failed = fetched == 0
	return out
}
