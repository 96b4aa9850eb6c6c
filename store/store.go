// Package store implements the Vector Store contract of spec §4.3: durable
// storage of chunks plus their vectors, with primary/fallback backend
// selection, typed filters, and hybrid dense+sparse search.
package store

import (
	"context"
	"time"

	"github.com/brannigan-labs/kbretrieve/chunk"
)

// Collection describes the store's unit of isolation (spec §3 "Collection").
type Collection struct {
	Name           string
	Dimension      int
	EmbeddingModel string
	Distance       string // "cosine" (default)
	CreatedAt      time.Time
}

// Hit is one search result: id, relevance score in [0,1], and the chunk
// payload (every field but the embedding, per spec §6 "Persisted state
// layout").
type Hit struct {
	ID      string
	Score   float64
	Payload chunk.Chunk
}

// Filter is the small filter language of spec §4.3: equality and
// set-membership over document_id, document_type, chunk_type, normative,
// and a clause_number prefix match.
type Filter struct {
	DocumentIDs   []string
	DocumentTypes []chunk.DocumentType
	ChunkTypes    []chunk.Type
	Normative     []chunk.Normative
	ClausePrefix  string
}

// Empty reports whether the filter restricts nothing.
func (f Filter) Empty() bool {
	return len(f.DocumentIDs) == 0 && len(f.DocumentTypes) == 0 &&
		len(f.ChunkTypes) == 0 && len(f.Normative) == 0 && f.ClausePrefix == ""
}

// Matches applies the filter to a chunk in-process; backends that cannot
// translate a filter natively fall back to this (see bleve.go, chromem.go).
func (f Filter) Matches(c chunk.Chunk) bool {
	if len(f.DocumentIDs) > 0 && !containsStr(f.DocumentIDs, c.DocumentID) {
		return false
	}
	if len(f.DocumentTypes) > 0 && !containsDocType(f.DocumentTypes, c.DocumentType) {
		return false
	}
	if len(f.ChunkTypes) > 0 && !containsChunkType(f.ChunkTypes, c.ChunkType) {
		return false
	}
	if len(f.Normative) > 0 && !containsNormative(f.Normative, c.Normative) {
		return false
	}
	if f.ClausePrefix != "" && !hasClausePrefix(c.ClauseNumber, f.ClausePrefix) {
		return false
	}
	return true
}

func containsStr(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func containsDocType(xs []chunk.DocumentType, v chunk.DocumentType) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func containsChunkType(xs []chunk.Type, v chunk.Type) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func containsNormative(xs []chunk.Normative, v chunk.Normative) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func hasClausePrefix(clause, prefix string) bool {
	if clause == prefix {
		return true
	}
	return len(clause) > len(prefix) && clause[:len(prefix)] == prefix && clause[len(prefix)] == '.'
}

// HealthStatus is the shape of store §4.3's health() response.
type HealthStatus struct {
	Status    string `json:"status"` // "healthy", "degraded", "unhealthy"
	LatencyMs int64  `json:"latency_ms"`
	Backend   string `json:"backend"`
}

// Store is the abstract contract every backend implements. No caller
// introspects the concrete type (spec §9 "Polymorphism over backends").
type Store interface {
	EnsureCollection(ctx context.Context, name string, dimension int, embeddingModel string) (Collection, error)
	Upsert(ctx context.Context, collection string, chunks []chunk.Chunk) (int, error)
	Search(ctx context.Context, collection string, queryVector []float64, limit int, filter Filter) ([]Hit, error)
	KeywordSearch(ctx context.Context, collection string, text string, limit int, filter Filter) ([]Hit, error)
	HybridSearch(ctx context.Context, collection string, queryVector []float64, text string, limit int, filter Filter, weight float64) ([]Hit, error)
	Count(ctx context.Context, collection string, filter Filter) (int, error)
	Health(ctx context.Context) (HealthStatus, error)
	DeleteDocument(ctx context.Context, collection string, documentID string) (int, error)
}

// KeywordCapable is implemented by backends that report whether they support
// sparse search; search.Searcher.KeywordSearch rejects the call up front when
// the store reports false.
type KeywordCapable interface {
	SupportsKeywordSearch() bool
}
