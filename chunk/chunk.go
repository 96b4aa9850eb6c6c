// Package chunk defines the immutable Chunk record: the unit that flows from
// the chunker through the embedder into the vector store, and back out of
// the searcher as a Result. See spec §3 and §4.1.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Type is the chunk's tagged variant. Not an inheritance hierarchy:
// table-specific fields (HeaderRow, TableGroupID) live on Chunk itself,
// documented here as only meaningful for Type == Table.
type Type string

const (
	Prose           Type = "prose"
	Table           Type = "table"
	List            Type = "list"
	Code            Type = "code"
	FigureCaption   Type = "figure_caption"
	Definition      Type = "definition"
)

// Normative is the RFC 2119 classification of a chunk's content (spec I4).
type Normative string

const (
	NormativeYes     Normative = "normative"
	NormativeNo      Normative = "informative"
	NormativeUnknown Normative = "unknown"
)

// DocumentType enumerates the kinds of source documents the corpus holds.
type DocumentType string

const (
	DocStandard      DocumentType = "standard"
	DocHandbook      DocumentType = "handbook"
	DocSpecification DocumentType = "specification"
	DocOther         DocumentType = "other"
)

// Chunk is immutable once constructed: every field is set by New or by
// WithEmbedding, never mutated afterward. Unexported fields would prevent
// the vector store's payload (de)serialization from being lossless, so all
// fields are exported and callers are trusted not to mutate in place (the
// same discipline spec §3's "Lifecycle" names: "Never mutated in place").
type Chunk struct {
	ID          string
	Content     string
	ContentHash string

	TokenCount int

	DocumentID      string
	DocumentTitle   string
	DocumentVersion string
	DocumentType    DocumentType

	SectionHierarchy []string
	ClauseNumber     string
	PageNumbers      []int

	ChunkType Type
	Normative Normative

	// Only meaningful when ChunkType == Table.
	HeaderRow    []string
	TableGroupID string

	Embedding      []float64
	EmbeddingModel string

	// Ordinal is the chunk's position within its document, used for id
	// derivation (spec §4.5.9) and for stable merge-neighbor lookup.
	Ordinal int
}

// New constructs a Chunk, computing ContentHash and ID, and validates the
// fields invariants I1-I5 place on construction (not on insertion, which the
// store boundary re-checks independently per I1).
func New(documentID string, ordinal int, content string, opts ...Option) (Chunk, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return Chunk{}, fmt.Errorf("chunk: content is empty after trim")
	}
	c := Chunk{
		DocumentID: documentID,
		Ordinal:    ordinal,
		Content:    content,
		ChunkType:  Prose,
		Normative:  NormativeUnknown,
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.ContentHash = HashContent(c.Content)
	c.ID = DeriveID(documentID, ordinal, c.ContentHash)

	if len(c.SectionHierarchy) > 6 {
		return Chunk{}, fmt.Errorf("chunk: section_hierarchy depth %d exceeds 6", len(c.SectionHierarchy))
	}
	if c.ClauseNumber != "" && !clauseNumberRe.MatchString(c.ClauseNumber) {
		return Chunk{}, fmt.Errorf("chunk: clause_number %q does not match expected pattern", c.ClauseNumber)
	}
	return c, nil
}

// Option mutates a Chunk during construction only; New is the sole entry
// point so the object is fully formed (and then immutable) once returned.
type Option func(*Chunk)

func WithDocumentTitle(title string) Option   { return func(c *Chunk) { c.DocumentTitle = title } }
func WithDocumentVersion(v string) Option     { return func(c *Chunk) { c.DocumentVersion = v } }
func WithDocumentType(t DocumentType) Option  { return func(c *Chunk) { c.DocumentType = t } }
func WithSectionHierarchy(h []string) Option  { return func(c *Chunk) { c.SectionHierarchy = append([]string(nil), h...) } }
func WithClauseNumber(n string) Option        { return func(c *Chunk) { c.ClauseNumber = n } }
func WithPageNumbers(p []int) Option          { return func(c *Chunk) { c.PageNumbers = append([]int(nil), p...) } }
func WithChunkType(t Type) Option             { return func(c *Chunk) { c.ChunkType = t } }
func WithNormative(n Normative) Option        { return func(c *Chunk) { c.Normative = n } }
func WithHeaderRow(row []string) Option       { return func(c *Chunk) { c.HeaderRow = append([]string(nil), row...) } }
func WithTableGroupID(id string) Option       { return func(c *Chunk) { c.TableGroupID = id } }
func WithTokenCount(n int) Option             { return func(c *Chunk) { c.TokenCount = n } }

// WithEmbedding returns a new Chunk carrying embedding and model, leaving the
// receiver untouched (spec §4.1's "copy-with-embedding operation").
func (c Chunk) WithEmbedding(vector []float64, model string) Chunk {
	cp := c
	cp.Embedding = append([]float64(nil), vector...)
	cp.EmbeddingModel = model
	return cp
}

// HashContent normalizes and hashes content for dedup and id derivation
// (spec I5). Normalization trims and collapses internal whitespace so
// re-ingesting a file that differs only in incidental whitespace still
// produces the same hash.
func HashContent(content string) string {
	normalized := strings.Join(strings.Fields(content), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// DeriveID implements spec §4.5.9: id = hash(document_id || ordinal || content_hash).
func DeriveID(documentID string, ordinal int, contentHash string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", documentID, ordinal, contentHash)))
	return hex.EncodeToString(sum[:16])
}
