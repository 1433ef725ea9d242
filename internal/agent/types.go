package agent

import (
	"AgriPolicy/internal/indicator"
)

// State is the terminal state of one answered query.
type State string

const (
	// Answered means the answer is grounded in all the context the
	// query needed.
	Answered State = "answered"
	// PartiallyGrounded means one context arm failed and the answer
	// was produced from the surviving one.
	PartiallyGrounded State = "partially_grounded"
	// InsufficientContext means no usable grounding was found; no
	// generation was attempted.
	InsufficientContext State = "insufficient_context"
	// Failed means the generation backend itself errored.
	Failed State = "failed"
)

// CitationKind distinguishes document and data citations.
type CitationKind string

const (
	CiteChunk  CitationKind = "chunk"
	CiteSeries CitationKind = "series"
)

// Citation points at one piece of context actually included in the
// prompt: a document chunk or an indicator series.
type Citation struct {
	Kind   CitationKind `json:"kind"`
	Ref    string       `json:"ref"`    // Chunk ID or series code.
	Source string       `json:"source"` // Document source name or area name.
	Score  float64      `json:"score,omitempty"`
}

// Response is the final answer for one query.
type Response struct {
	State     State      `json:"state"`
	Answer    string     `json:"answer,omitempty"`
	Citations []Citation `json:"citations,omitempty"`
	// Summaries carries the indicator trend texts that grounded the
	// answer, for callers that want to render them alongside it.
	Summaries []string `json:"summaries,omitempty"`
	// Notes records assumptions made during planning (e.g. a default
	// chosen for a vague question).
	Notes string `json:"notes,omitempty"`
}

// Plan is the resolved intent of a query: which indicators and areas to
// fetch and over which years. An empty indicator or area list means the
// statistical arm is skipped.
type Plan struct {
	Indicators []indicator.Entry
	Areas      []string
	Years      indicator.Range
	Notes      string
}

// NeedsIndicators reports whether the statistical arm should run.
func (p *Plan) NeedsIndicators() bool {
	return len(p.Indicators) > 0 && len(p.Areas) > 0
}
