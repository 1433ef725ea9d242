package loaders

import (
	"context"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"AgriPolicy/internal/rag/interfaces"
	"AgriPolicy/internal/rag/schema"
)

// WebLoader implements the Loader interface for fetching and parsing web pages.
type WebLoader struct {
	client *http.Client
}

// NewWebLoader creates a new WebLoader.
func NewWebLoader() *WebLoader {
	return &WebLoader{client: http.DefaultClient}
}

// Load fetches content from a URL, extracts the text, and returns it as a Document.
func (l *WebLoader) Load(ctx context.Context, url string) (*schema.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &schema.IngestionError{DocumentID: url, Reason: "bad url", Err: err}
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &schema.IngestionError{DocumentID: url, Reason: "fetch failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &schema.IngestionError{DocumentID: url, Reason: "unexpected status " + resp.Status}
	}

	text, err := extractText(resp.Body)
	if err != nil {
		return nil, &schema.IngestionError{DocumentID: url, Reason: "html parse failed", Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &schema.IngestionError{DocumentID: url, Reason: "empty document"}
	}

	return &schema.Document{
		ID:   url,
		Text: text,
		Metadata: map[string]interface{}{
			schema.MetadataKeySourceName: url,
		},
	}, nil
}

// extractText parses an HTML document and extracts all human-readable text,
// stripping away tags, scripts and styles.
func extractText(body io.Reader) (string, error) {
	z := html.NewTokenizer(body)
	var sb strings.Builder
	var inScript, inStyle bool

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return sb.String(), nil
			}
			return "", z.Err()
		case html.StartTagToken, html.EndTagToken:
			tn, _ := z.TagName()
			tag := string(tn)
			if tag == "script" {
				inScript = (tt == html.StartTagToken)
			} else if tag == "style" {
				inStyle = (tt == html.StartTagToken)
			}
		case html.TextToken:
			if !inScript && !inStyle {
				// Append text content, ensuring spaces between words.
				text := strings.TrimSpace(string(z.Text()))
				if len(text) > 0 {
					sb.WriteString(text)
					sb.WriteString(" ")
				}
			}
		}
	}
}

// compile-time check to ensure WebLoader implements the Loader interface
var _ interfaces.Loader = (*WebLoader)(nil)
