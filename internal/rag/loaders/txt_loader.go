package loaders

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"AgriPolicy/internal/rag/interfaces"
	"AgriPolicy/internal/rag/schema"
)

// TxtLoader implements the Loader interface for reading plain text files.
type TxtLoader struct{}

// NewTxtLoader creates a new TxtLoader.
func NewTxtLoader() *TxtLoader {
	return &TxtLoader{}
}

// Load reads a text file from the given path and returns it as a Document.
func (l *TxtLoader) Load(ctx context.Context, path string) (*schema.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &schema.IngestionError{DocumentID: path, Reason: "read failed", Err: err}
	}

	text := string(content)
	if strings.TrimSpace(text) == "" {
		return nil, &schema.IngestionError{DocumentID: path, Reason: "empty document"}
	}

	return &schema.Document{
		// The path itself is the ID: chunk IDs derive from it and must
		// survive rebuilds.
		ID:   path,
		Text: text,
		Metadata: map[string]interface{}{
			schema.MetadataKeySourceName: filepath.Base(path),
		},
	}, nil
}

// compile-time check to ensure TxtLoader implements the Loader interface
var _ interfaces.Loader = (*TxtLoader)(nil)
