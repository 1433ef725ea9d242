package loaders

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"AgriPolicy/internal/rag/schema"
)

// LoadFile picks a loader for the file at path by its extension, falling
// back to MIME sniffing when the extension is missing or unknown, and
// loads it.
func LoadFile(ctx context.Context, path string) (*schema.Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return NewTxtLoader().Load(ctx, path)
	case ".md", ".markdown":
		return NewMarkdownLoader().Load(ctx, path)
	case ".pdf":
		return NewPdfLoader().Load(ctx, path)
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, &schema.IngestionError{DocumentID: path, Reason: "type detection failed", Err: err}
	}

	switch {
	case mtype.Is("application/pdf"):
		return NewPdfLoader().Load(ctx, path)
	case mtype.Is("text/markdown"):
		return NewMarkdownLoader().Load(ctx, path)
	case strings.HasPrefix(mtype.String(), "text/"):
		return NewTxtLoader().Load(ctx, path)
	}

	return nil, &schema.IngestionError{DocumentID: path, Reason: "unsupported format " + mtype.String()}
}
