// Package chunker implements the element-stream-to-chunk-stream algorithm
// of spec §4.5: token-bounded, overlap-preserving, table-safe,
// hierarchy-tagged, normative-classified chunking.
//
// Grounded on rag/chunk.go's TextChunker.Chunk (teilomillet-raggo, teacher)
// for the sentence-accumulation-with-overlap shape; the section stack,
// table handling, clause/normative classification, and the I1-I5 invariant
// enforcement are new, since the donor chunker only ever produced flat
// Chunk{Text, TokenSize} values with no hierarchy or type at all.
package chunker

import (
	"context"
	"fmt"

	kchunk "github.com/brannigan-labs/kbretrieve/chunk"
	"github.com/brannigan-labs/kbretrieve/ingest"
	"github.com/brannigan-labs/kbretrieve/tokenizer"
)

// Params are the chunker's tunable knobs (spec §4.5 table).
type Params struct {
	TargetTokens     int
	MaxTokens        int
	MinTokens        int
	OverlapTokens    int
	OverlapSeparator string
}

// DefaultParams matches spec §4.5's defaults exactly.
func DefaultParams() Params {
	return Params{
		TargetTokens:     500,
		MaxTokens:        1000,
		MinTokens:        100,
		OverlapTokens:    100,
		OverlapSeparator: "---",
	}
}

// Chunker turns an element stream into a chunk stream. Deterministic:
// the same element stream and parameters always produce byte-identical
// chunks (spec §4.5 "Determinism"), since nothing here reads wall-clock
// time, randomness, or external state.
type Chunker struct {
	params  Params
	counter tokenizer.Counter
}

// Option configures a Chunker.
type Option func(*Chunker)

func WithParams(p Params) Option               { return func(c *Chunker) { c.params = p } }
func WithTokenCounter(tc tokenizer.Counter) Option { return func(c *Chunker) { c.counter = tc } }

// New builds a Chunker with DefaultParams and a tiktoken cl100k_base
// counter unless overridden.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		params:  DefaultParams(),
		counter: tokenizer.NewTikTokenCounter("cl100k_base"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DocumentMeta carries the source identity attached to every chunk.
type DocumentMeta struct {
	DocumentID      string
	DocumentTitle   string
	DocumentVersion string
	DocumentType    kchunk.DocumentType
}

// Chunk runs the full algorithm of spec §4.5 over elements, returning chunks
// satisfying I1-I5 (I1, the embedding invariant, is enforced later at the
// store boundary since no embedding exists yet at chunk time).
func (c *Chunker) Chunk(ctx context.Context, meta DocumentMeta, elements []ingest.Element) ([]kchunk.Chunk, error) {
	if meta.DocumentID == "" {
		return nil, fmt.Errorf("chunker: document_id is required")
	}

	draft := accumulate(c.params, c.counter, elements)
	draft = applyOverlap(c.params, c.counter, draft)
	draft = mergeSmallChunks(c.params, c.counter, draft)

	chunks := make([]kchunk.Chunk, 0, len(draft))
	for ordinal, d := range draft {
		select {
		case <-ctx.Done():
			return chunks, ctx.Err()
		default:
		}

		normative := classifyNormative(d.text, d.sectionNormativeMarker)
		clause := extractClause(d.text)
		if clause == "" {
			clause = inheritClause(d.sectionHierarchy, d.sectionClauses)
		}

		opts := []kchunk.Option{
			kchunk.WithDocumentTitle(meta.DocumentTitle),
			kchunk.WithDocumentVersion(meta.DocumentVersion),
			kchunk.WithDocumentType(meta.DocumentType),
			kchunk.WithSectionHierarchy(d.sectionHierarchy),
			kchunk.WithClauseNumber(clause),
			kchunk.WithPageNumbers(sortedPages(d.pages)),
			kchunk.WithChunkType(d.chunkType),
			kchunk.WithNormative(normative),
			kchunk.WithTokenCount(c.counter.Count(d.text)),
		}
		if d.chunkType == kchunk.Table {
			opts = append(opts, kchunk.WithHeaderRow(d.headerRow), kchunk.WithTableGroupID(d.tableGroupID))
		}

		ch, err := kchunk.New(meta.DocumentID, ordinal, d.text, opts...)
		if err != nil {
			// A single malformed chunk (e.g. content empty after trim, a
			// residual artifact of accumulation) is skipped rather than
			// failing the whole document, mirroring spec §4.4's
			// element-level failure semantics extended to chunk emission.
			continue
		}
		chunks = append(chunks, ch)
	}
	return chunks, nil
}

func sortedPages(pages map[int]bool) []int {
	out := make([]int, 0, len(pages))
	for p := range pages {
		out = append(out, p)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
