package loaders

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"AgriPolicy/internal/rag/interfaces"
	"AgriPolicy/internal/rag/schema"
)

// PdfLoader implements the Loader interface for reading PDF files.
type PdfLoader struct{}

// NewPdfLoader creates a new PdfLoader.
func NewPdfLoader() *PdfLoader {
	return &PdfLoader{}
}

// Load reads a PDF file and extracts the text of every page into a
// single Document. Pages that fail extraction fail the whole document:
// a partially ingested policy paper would produce misleading citations.
func (l *PdfLoader) Load(ctx context.Context, path string) (*schema.Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, &schema.IngestionError{DocumentID: path, Reason: "open failed", Err: err}
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, &schema.IngestionError{DocumentID: path, Reason: "text extraction failed", Err: err}
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	text := sb.String()
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

// compile-time check to ensure PdfLoader implements the Loader interface
var _ interfaces.Loader = (*PdfLoader)(nil)
