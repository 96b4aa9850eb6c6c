// Package ingest implements the Ingestor contract of spec §4.4: parsing a
// source file into a finite, ordered stream of typed elements with page and
// hierarchy provenance, dispatched by file extension.
package ingest

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/brannigan-labs/kbretrieve/errs"
	"github.com/brannigan-labs/kbretrieve/internal/klog"
)

// ElementKind is the tagged variant of an ingested element (spec §4.4 table).
type ElementKind string

const (
	SectionHeader ElementKind = "section_header"
	Paragraph     ElementKind = "paragraph"
	ListItem      ElementKind = "list_item"
	Table         ElementKind = "table"
	CodeBlock     ElementKind = "code_block"
	FigureCaption ElementKind = "figure_caption"
)

// Element is a single parsed unit. Fields not relevant to Kind are left
// zero; documented per field which Kind populates them, the same
// nullable-field-on-one-record discipline spec §9 describes for Chunk.
type Element struct {
	Kind ElementKind
	Text string
	Page int

	// SectionHeader only.
	Level        int
	ClauseNumber string

	// ListItem only.
	ListLevel int

	// Table only.
	HeaderRow []string
	Rows      [][]string
	Caption   string
	PageEnd   int

	// CodeBlock only.
	Language string
}

// Ingestor parses a single source into an ordered element stream.
type Ingestor interface {
	Ingest(ctx context.Context, path string) ([]Element, error)
}

// Registry maps file extensions to an Ingestor implementation (spec §4.4
// "Dispatch"). Unsupported extensions fail before any work is done.
type Registry struct {
	mu        sync.RWMutex
	ingestors map[string]Ingestor
	logger    klog.Logger
}

// NewRegistry builds a Registry with the standard ingestors registered:
// .pdf, .docx, .txt/.md.
func NewRegistry() *Registry {
	r := &Registry{ingestors: make(map[string]Ingestor), logger: klog.Global}
	r.Register(".pdf", NewPDFIngestor())
	r.Register(".docx", NewDOCXIngestor())
	r.Register(".txt", NewTextIngestor())
	r.Register(".md", NewTextIngestor())
	return r
}

func (r *Registry) Register(ext string, ing Ingestor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ingestors[strings.ToLower(ext)] = ing
}

// Ingest dispatches path to the registered ingestor for its extension.
// A document-root parse failure is fatal for that document only (spec §4.4
// "Failure semantics"); callers driving a multi-document batch must catch
// the error per file, not abort the batch.
func (r *Registry) Ingest(ctx context.Context, path string) ([]Element, error) {
	ext := strings.ToLower(filepath.Ext(path))
	r.mu.RLock()
	ing, ok := r.ingestors[ext]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.InvalidInput, "unsupported file extension "+ext, "supported extensions: .pdf, .docx, .txt, .md")
	}

	elements, err := ing.Ingest(ctx, path)
	if err != nil {
		return nil, errs.Wrap(errs.IngestionError, "ingest."+ext, err, "check the source file is well-formed")
	}
	return elements, nil
}
