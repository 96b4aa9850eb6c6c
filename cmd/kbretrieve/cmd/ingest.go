package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/brannigan-labs/kbretrieve/chunk"
	"github.com/brannigan-labs/kbretrieve/chunker"
	"github.com/brannigan-labs/kbretrieve/embed"
	"github.com/brannigan-labs/kbretrieve/ingest"
	"github.com/brannigan-labs/kbretrieve/internal/klog"
	"github.com/brannigan-labs/kbretrieve/tokenizer"
)

var (
	ingestDocumentID      string
	ingestDocumentTitle   string
	ingestDocumentVersion string
	ingestDocumentType    string
)

func newIngestCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "ingest [path]",
		Short: "Ingest a source file into the configured vector store",
		Long: `Ingest runs the ingestion path named in spec §2:

  source file -> Ingestor -> Chunker -> Embedder (batched) -> Vector store (upsert)

Re-running ingest on an unchanged file is a no-op (chunk ids are content-hash
derived, spec I5); re-running on a changed file upserts the new chunks under
the same ids where a chunk's content and position in the document are
unchanged and under new ids otherwise, since the id also encodes the chunk's
ordinal.`,
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}
	c.Flags().StringVar(&ingestDocumentID, "document-id", "", "stable document identifier (default: file basename)")
	c.Flags().StringVar(&ingestDocumentTitle, "title", "", "human-readable document title (default: file basename)")
	c.Flags().StringVar(&ingestDocumentVersion, "version", "v1", "document version tag")
	c.Flags().StringVar(&ingestDocumentType, "type", "standard", "document type: standard, handbook, specification, other")
	return c
}

func runIngest(c *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := klog.Global

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	embedder, st, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}

	registry := ingest.NewRegistry()
	registry.Register(".pdf", ingest.NewPDFIngestor())
	registry.Register(".docx", ingest.NewDOCXIngestor())
	registry.Register(".txt", ingest.NewTextIngestor())
	registry.Register(".md", ingest.NewTextIngestor())

	elements, err := registry.Ingest(ctx, path)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", path, err)
	}

	docID := ingestDocumentID
	if docID == "" {
		docID = filepath.Base(path)
	}
	title := ingestDocumentTitle
	if title == "" {
		title = docID
	}

	ch := chunker.New(
		chunker.WithParams(chunker.Params{
			TargetTokens:     cfg.Chunking.TargetTokens,
			MaxTokens:        cfg.Chunking.MaxTokens,
			MinTokens:        cfg.Chunking.MinTokens,
			OverlapTokens:    cfg.Chunking.OverlapTokens,
			OverlapSeparator: chunker.DefaultParams().OverlapSeparator,
		}),
		chunker.WithTokenCounter(tokenizer.NewTikTokenCounter(cfg.Chunking.Tokenizer)),
	)

	chunks, err := ch.Chunk(ctx, chunker.DocumentMeta{
		DocumentID:      docID,
		DocumentTitle:   title,
		DocumentVersion: ingestDocumentVersion,
		DocumentType:    chunk.DocumentType(ingestDocumentType),
	}, elements)
	if err != nil {
		return fmt.Errorf("chunk %s: %w", path, err)
	}

	embedded, err := embedChunks(ctx, embedder, chunks)
	if err != nil {
		return fmt.Errorf("embed %s: %w", path, err)
	}

	n, err := st.Upsert(ctx, cfg.VectorStore.Collection, embedded)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", path, err)
	}

	logger.Info("ingest complete", "path", path, "document_id", docID, "chunks", n)
	fmt.Printf("ingested %s: %d chunks into collection %q\n", path, n, cfg.VectorStore.Collection)
	return nil
}

// embedChunks batches chunk content through the embedder and attaches the
// resulting vectors, preserving order (spec §4.2 "embed_batch preserves
// input order").
func embedChunks(ctx context.Context, embedder embed.Embedder, chunks []chunk.Chunk) ([]chunk.Chunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	out := make([]chunk.Chunk, len(chunks))
	for i, c := range chunks {
		out[i] = c.WithEmbedding(vectors[i], embedder.ModelIdentity())
	}
	return out, nil
}
