package interfaces

import (
	"context"

	"AgriPolicy/internal/rag/schema"
)

// Loader is the interface for loading data from a source (e.g. file, URL,
// object store) and converting it into a Document.
type Loader interface {
	Load(ctx context.Context, path string) (*schema.Document, error)
}

// Chunker is the interface for splitting a document into token-window chunks.
type Chunker interface {
	Split(ctx context.Context, doc *schema.Document) ([]*schema.Chunk, error)
}

// EmbeddingModel is the interface for a text embedding model.
type EmbeddingModel interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Name returns a stable identifier for the model (provider/model),
	// recorded in the index manifest so queries never mix embedding spaces.
	Name() string
}

// LLM is the interface for a large language model that can generate text.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
