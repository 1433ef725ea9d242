package splitters

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"AgriPolicy/internal/rag/interfaces"
	"AgriPolicy/internal/rag/schema"
)

// TokenSplitter implements the Chunker interface, cutting documents into
// overlapping token windows. Splitting the same document twice yields
// chunks with identical IDs, offsets and text.
type TokenSplitter struct {
	WindowTokens  int
	OverlapTokens int
	tokenizer     *tiktoken.Tiktoken
}

// NewTokenSplitter creates a new TokenSplitter.
// It initializes a tokenizer for the specified window and overlap sizes.
func NewTokenSplitter(windowTokens, overlapTokens int) (*TokenSplitter, error) {
	if overlapTokens >= windowTokens {
		return nil, fmt.Errorf("overlap (%d) must be smaller than window (%d)", overlapTokens, windowTokens)
	}

	// "cl100k_base" is the tokenizer for gpt-4, gpt-3.5-turbo, and text-embedding-ada-002
	tke, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}

	return &TokenSplitter{
		WindowTokens:  windowTokens,
		OverlapTokens: overlapTokens,
		tokenizer:     tke,
	}, nil
}

// Split cuts a document into overlapping token-window chunks. Chunk IDs
// derive from the document ID and the window's start offset.
func (s *TokenSplitter) Split(ctx context.Context, doc *schema.Document) ([]*schema.Chunk, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return nil, &schema.IngestionError{DocumentID: doc.ID, Reason: "empty document"}
	}

	tokens := s.tokenizer.Encode(doc.Text, nil, nil)
	if len(tokens) == 0 {
		return nil, &schema.IngestionError{DocumentID: doc.ID, Reason: "document produced no tokens"}
	}

	step := s.WindowTokens - s.OverlapTokens
	var chunks []*schema.Chunk

	for start := 0; start < len(tokens); start += step {
		end := start + s.WindowTokens
		if end > len(tokens) {
			end = len(tokens)
		}

		chunks = append(chunks, &schema.Chunk{
			ID:          schema.ChunkID(doc.ID, start),
			DocumentID:  doc.ID,
			Text:        s.tokenizer.Decode(tokens[start:end]),
			TokenCount:  end - start,
			StartOffset: start,
			EndOffset:   end,
			Metadata:    copyMetadata(doc.Metadata),
		})

		if end == len(tokens) {
			break
		}
	}

	return chunks, nil
}

// CountTokens reports the token count of text under the splitter's encoding.
// Retrieval uses it to pack the context budget with the same arithmetic
// that produced the chunk token counts.
func (s *TokenSplitter) CountTokens(text string) int {
	return len(s.tokenizer.Encode(text, nil, nil))
}

func copyMetadata(md map[string]interface{}) map[string]interface{} {
	if md == nil {
		return make(map[string]interface{})
	}
	newMd := make(map[string]interface{}, len(md))
	for k, v := range md {
		newMd[k] = v
	}
	return newMd
}

// compile-time check to ensure TokenSplitter implements the Chunker interface
var _ interfaces.Chunker = (*TokenSplitter)(nil)
