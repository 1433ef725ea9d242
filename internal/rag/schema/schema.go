package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

const (
	// MetadataKeySourceName is the key for the source file name or URL.
	MetadataKeySourceName = "source_name"
	// MetadataKeyPageLabel is the key for the page number or label from the source document.
	MetadataKeyPageLabel = "page_label"
	// MetadataKeyContentType is the key for the detected MIME type of the source.
	MetadataKeyContentType = "content_type"
)

// Document represents one raw policy document before chunking.
type Document struct {
	// ID is the stable identifier for the document, derived from its
	// source path or URL. Chunk IDs are derived from it.
	ID string

	// Text is the full extracted text content of the document.
	Text string

	// Metadata holds arbitrary data about the document, such as
	// source_name or content_type.
	Metadata map[string]interface{}
}

// Chunk is a contiguous token window of a document. It is the unit the
// index stores and retrieval returns.
type Chunk struct {
	// ID is derived from the document ID and the chunk's start offset,
	// so re-ingesting unchanged text reproduces the same IDs.
	ID string

	// DocumentID identifies the document this chunk was cut from.
	DocumentID string

	// Text is the string content of the chunk.
	Text string

	// TokenCount is the number of tokens in Text under the splitter's
	// encoding. The retrieval engine packs its context budget by it.
	TokenCount int

	// StartOffset and EndOffset are the token offsets of the chunk
	// within the document ([StartOffset, EndOffset)).
	StartOffset int
	EndOffset   int

	// Embedding is the vector representation of the text. It is empty
	// until the indexing pipeline embeds the chunk.
	Embedding []float32

	// Metadata is inherited from the parent document.
	Metadata map[string]interface{}
}

// ChunkID derives the stable chunk identifier from a document ID and
// the chunk's start token offset.
func ChunkID(documentID string, startOffset int) string {
	sum := sha256.Sum256([]byte(documentID + ":" + strconv.Itoa(startOffset)))
	return hex.EncodeToString(sum[:16])
}

// IngestionError reports a document that could not be ingested. The
// document it names contributes nothing to the index: ingestion is
// all-or-nothing per document.
type IngestionError struct {
	DocumentID string
	Reason     string
	Err        error
}

func (e *IngestionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ingest %s: %s: %v", e.DocumentID, e.Reason, e.Err)
	}
	return fmt.Sprintf("ingest %s: %s", e.DocumentID, e.Reason)
}

func (e *IngestionError) Unwrap() error { return e.Err }
