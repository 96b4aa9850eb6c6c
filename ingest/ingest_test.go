package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRejectsUnsupportedExtension(t *testing.T) {
	r := NewRegistry()
	_, err := r.Ingest(context.Background(), "source.xyz")
	require.Error(t, err, "unsupported extensions fail before any work is done (spec §4.4)")
}

func TestTextIngestorClassifiesHeadingsAndLists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.md")
	content := "# 1 Introduction\n\nThis is prose.\n\n- item one\n- item two\n\n```go\nfmt.Println(1)\n```\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ing := NewTextIngestor()
	elements, err := ing.Ingest(context.Background(), path)
	require.NoError(t, err)
	require.NotEmpty(t, elements)

	var sawHeading, sawList, sawCode bool
	for _, e := range elements {
		switch e.Kind {
		case SectionHeader:
			sawHeading = true
			assert.Equal(t, "1 Introduction", e.Text)
		case ListItem:
			sawList = true
		case CodeBlock:
			sawCode = true
		}
	}
	assert.True(t, sawHeading)
	assert.True(t, sawList)
	assert.True(t, sawCode)
}

func TestRegistryWrapsIngestionErrors(t *testing.T) {
	r := NewRegistry()
	_, err := r.Ingest(context.Background(), filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}
