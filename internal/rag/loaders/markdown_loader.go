package loaders

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"AgriPolicy/internal/rag/interfaces"
	"AgriPolicy/internal/rag/schema"
)

// MarkdownLoader implements the Loader interface for reading Markdown (.md) files.
type MarkdownLoader struct{}

// NewMarkdownLoader creates a new MarkdownLoader.
func NewMarkdownLoader() *MarkdownLoader {
	return &MarkdownLoader{}
}

// imageRegex matches Markdown image syntax (e.g. ![alt text](path/to/image.jpg)).
var imageRegex = regexp.MustCompile(`!\[.*?\]\(.*?\)`)

// Load reads a Markdown file and returns its text as a Document.
// Image references carry no indexable text and are stripped.
func (l *MarkdownLoader) Load(ctx context.Context, path string) (*schema.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &schema.IngestionError{DocumentID: path, Reason: "read failed", Err: err}
	}

	text := imageRegex.ReplaceAllString(string(content), "")
	if strings.TrimSpace(text) == "" {
		return nil, &schema.IngestionError{DocumentID: path, Reason: "empty document"}
	}

	return &schema.Document{
		ID:   path,
		Text: text,
		Metadata: map[string]interface{}{
			schema.MetadataKeySourceName: filepath.Base(path),
		},
	}, nil
}

// compile-time check to ensure MarkdownLoader implements the Loader interface
var _ interfaces.Loader = (*MarkdownLoader)(nil)
