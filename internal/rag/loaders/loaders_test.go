package loaders

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AgriPolicy/internal/rag/schema"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestTxtLoader(t *testing.T) {
	path := writeFile(t, "policy.txt", "Land tenure reform reduces local disputes.\n")

	doc, err := NewTxtLoader().Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, path, doc.ID)
	assert.Equal(t, "Land tenure reform reduces local disputes.\n", doc.Text)
	assert.Equal(t, "policy.txt", doc.Metadata[schema.MetadataKeySourceName])
}

func TestTxtLoaderEmptyFile(t *testing.T) {
	path := writeFile(t, "empty.txt", "  \n\t")

	_, err := NewTxtLoader().Load(context.Background(), path)
	var ingErr *schema.IngestionError
	require.ErrorAs(t, err, &ingErr)
	assert.Equal(t, path, ingErr.DocumentID)
	assert.Equal(t, "empty document", ingErr.Reason)
}

func TestTxtLoaderMissingFile(t *testing.T) {
	_, err := NewTxtLoader().Load(context.Background(), filepath.Join(t.TempDir(), "absent.txt"))
	var ingErr *schema.IngestionError
	require.ErrorAs(t, err, &ingErr)
	assert.Equal(t, "read failed", ingErr.Reason)
	assert.True(t, errors.Is(ingErr, os.ErrNotExist))
}

func TestMarkdownLoaderStripsImages(t *testing.T) {
	path := writeFile(t, "brief.md", "# Brief\n![chart](figures/chart.png)\nIrrigation access matters.\n")

	doc, err := NewMarkdownLoader().Load(context.Background(), path)
	require.NoError(t, err)

	assert.NotContains(t, doc.Text, "figures/chart.png")
	assert.Contains(t, doc.Text, "Irrigation access matters.")
}

func TestMarkdownLoaderImageOnlyFileIsEmpty(t *testing.T) {
	path := writeFile(t, "images.md", "![a](a.png)\n![b](b.png)\n")

	_, err := NewMarkdownLoader().Load(context.Background(), path)
	var ingErr *schema.IngestionError
	require.ErrorAs(t, err, &ingErr)
	assert.Equal(t, "empty document", ingErr.Reason)
}

func TestLoadFileByExtension(t *testing.T) {
	path := writeFile(t, "report.md", "Report body.")

	doc, err := LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Report body.", doc.Text)
}

func TestLoadFileSniffsMissingExtension(t *testing.T) {
	path := writeFile(t, "notes", "Plain text without an extension.")

	doc, err := LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Plain text without an extension.", doc.Text)
}

func TestLoadFileRejectsUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "blob", string([]byte{0x00, 0x01, 0x02, 0x03, 0xff, 0xfe}))

	_, err := LoadFile(context.Background(), path)
	var ingErr *schema.IngestionError
	require.ErrorAs(t, err, &ingErr)
	assert.Equal(t, path, ingErr.DocumentID)
}
