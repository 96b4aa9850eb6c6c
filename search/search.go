// Package search implements the Searcher of spec §4.7: the query-time
// surface composing an Embedder, a Store, and an optional Reranker.
//
// Grounded on retriever.go's Retrieve (probe-search-then-real-search
// pattern, MinScore filtering, an OnResult callback) and rag.go's
// simpleSearch/hybridSearch/processResults (teilomillet-raggo, teacher),
// generalized from one "retrieve" method into the five named operations
// spec §4.7 requires.
package search

import (
	"context"

	"github.com/brannigan-labs/kbretrieve/chunk"
	"github.com/brannigan-labs/kbretrieve/embed"
	"github.com/brannigan-labs/kbretrieve/errs"
	"github.com/brannigan-labs/kbretrieve/internal/klog"
	"github.com/brannigan-labs/kbretrieve/rerank"
	"github.com/brannigan-labs/kbretrieve/store"
)

// DefaultRerankOverfetch is the multiplier spec §4.7 names: "retrieve 3k
// then rerank to k". Exposed as a Searcher option rather than hardwired,
// resolving spec §9's open question about that constant.
const DefaultRerankOverfetch = 3

// Citation identifies where a result came from within its source document
// (spec §6 "Result record"): document_title, section_hierarchy,
// clause_number, page_numbers.
type Citation struct {
	DocumentTitle    string   `json:"document_title"`
	SectionHierarchy []string `json:"section_hierarchy"`
	ClauseNumber     string   `json:"clause_number,omitempty"`
	PageNumbers      []int    `json:"page_numbers"`
}

// Result is the record every Searcher operation returns (spec §6 "Result
// record").
type Result struct {
	Content    string          `json:"content"`
	Score      float64         `json:"score"`
	ChunkType  chunk.Type      `json:"chunk_type"`
	Normative  chunk.Normative `json:"normative"`
	TokenCount int             `json:"token_count"`
	Citation   Citation        `json:"citation"`
}

// PerDocument is one row of a Stats response (spec §6 "Stats record").
type PerDocument struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	ChunkCount int    `json:"chunk_count"`
	IngestedAt string `json:"ingested_at"`
}

// Stats is the collection-inventory record spec §6 names.
type Stats struct {
	Collection struct {
		Name           string `json:"name"`
		Dimension      int    `json:"dimension"`
		EmbeddingModel string `json:"embedding_model"`
		Backend        string `json:"backend"`
	} `json:"collection"`
	TotalChunks    int                     `json:"total_chunks"`
	TotalDocuments int                     `json:"total_documents"`
	PerDocument    []PerDocument           `json:"per_document"`
	ByChunkType    map[chunk.Type]int      `json:"by_chunk_type"`
	ByNormative    map[chunk.Normative]int `json:"by_normative"`
}

// Searcher composes an embedder, a store, and an optional reranker. Holds
// no per-call state: concurrent callers share the same collaborators,
// themselves concurrency-safe (spec §4.7 "Concurrency").
type Searcher struct {
	embedder        embed.Embedder
	store           store.Store
	reranker        rerank.Reranker
	collection      string
	rerankOverfetch int
	logger          klog.Logger
}

type Option func(*Searcher)

func WithReranker(r rerank.Reranker) Option { return func(s *Searcher) { s.reranker = r } }
func WithRerankOverfetch(n int) Option      { return func(s *Searcher) { s.rerankOverfetch = n } }
func WithLogger(l klog.Logger) Option       { return func(s *Searcher) { s.logger = l } }

// New builds a Searcher over collection. A nil reranker is replaced with
// rerank.NoneReranker so every downstream call can assume one is present.
func New(embedder embed.Embedder, st store.Store, collection string, opts ...Option) *Searcher {
	s := &Searcher{
		embedder:        embedder,
		store:           st,
		reranker:        rerank.NoneReranker{},
		collection:      collection,
		rerankOverfetch: DefaultRerankOverfetch,
		logger:          klog.Global,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reranker == nil {
		s.reranker = rerank.NoneReranker{}
	}
	return s
}

// SemanticSearch returns k results by vector similarity. When rerankEnabled
// is true it overfetches rerankOverfetch*k candidates and reranks to k
// (spec §4.7, resolving the 3k open question as a configurable multiplier).
func (s *Searcher) SemanticSearch(ctx context.Context, query string, k int, filter store.Filter, rerankEnabled bool) ([]Result, error) {
	if err := validateQuery(query, k); err != nil {
		return nil, err
	}

	fetchK := k
	if rerankEnabled {
		fetchK = k * s.rerankOverfetch
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	hits, err := s.store.Search(ctx, s.collection, vector, fetchK, filter)
	if err != nil {
		return nil, classifyStoreErr(err)
	}

	if rerankEnabled && len(hits) > 0 {
		return s.rerankHits(ctx, query, hits, k)
	}
	s.logger.Debug("semantic_search", "k", k, "fetched", len(hits))
	return truncateResults(hitsToResults(hits), k), nil
}

// KeywordSearch returns k results by sparse match, delegating to the store;
// errors if the backend cannot support it (spec §4.7).
func (s *Searcher) KeywordSearch(ctx context.Context, query string, k int, filter store.Filter) ([]Result, error) {
	if err := validateQuery(query, k); err != nil {
		return nil, err
	}
	if kc, ok := s.store.(store.KeywordCapable); ok && !kc.SupportsKeywordSearch() {
		return nil, errs.New(errs.InvalidInput, "the configured store backend does not support keyword search", "use semantic_search or configure a backend with sparse support")
	}
	hits, err := s.store.KeywordSearch(ctx, s.collection, query, k, filter)
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	s.logger.Debug("keyword_search", "k", k, "fetched", len(hits))
	return truncateResults(hitsToResults(hits), k), nil
}

// HybridSearch combines dense and sparse with weight in [0,1]; the store is
// responsible for falling back to dense-only with a warning when sparse is
// unavailable (spec §4.3/§4.7).
func (s *Searcher) HybridSearch(ctx context.Context, query string, k int, filter store.Filter, weight float64) ([]Result, error) {
	if err := validateQuery(query, k); err != nil {
		return nil, err
	}
	if weight < 0 || weight > 1 {
		return nil, errs.New(errs.InvalidInput, "hybrid weight must be within [0,1]", "pass a weight between 0 and 1")
	}
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	hits, err := s.store.HybridSearch(ctx, s.collection, vector, query, k, filter, weight)
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	s.logger.Debug("hybrid_search", "k", k, "weight", weight, "fetched", len(hits))
	return truncateResults(hitsToResults(hits), k), nil
}

// Lookup is a definition-oriented semantic search with a fixed filter
// chunk_type=definition (spec §4.7).
func (s *Searcher) Lookup(ctx context.Context, term string, k int) ([]Result, error) {
	filter := store.Filter{ChunkTypes: []chunk.Type{chunk.Definition}}
	return s.SemanticSearch(ctx, term, k, filter, false)
}

// Stats returns the collection identity and the total, by-chunk-type and
// by-normative chunk counts, each answered by one Store.Count call.
// TotalDocuments and PerDocument are left empty: the store keeps no
// per-document catalogue to count sources or read titles and ingestion
// times from.
func (s *Searcher) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	stats.Collection.Name = s.collection
	stats.Collection.Dimension = s.embedder.Dimension()
	stats.Collection.EmbeddingModel = s.embedder.ModelIdentity()
	if health, herr := s.store.Health(ctx); herr == nil {
		stats.Collection.Backend = health.Backend
	}

	total, err := s.store.Count(ctx, s.collection, store.Filter{})
	if err != nil {
		return Stats{}, classifyStoreErr(err)
	}
	stats.TotalChunks = total
	stats.ByChunkType = make(map[chunk.Type]int)
	stats.ByNormative = make(map[chunk.Normative]int)

	for _, ct := range []chunk.Type{chunk.Prose, chunk.Table, chunk.List, chunk.Code, chunk.FigureCaption, chunk.Definition} {
		n, err := s.store.Count(ctx, s.collection, store.Filter{ChunkTypes: []chunk.Type{ct}})
		if err != nil {
			return Stats{}, classifyStoreErr(err)
		}
		stats.ByChunkType[ct] = n
	}
	for _, nv := range []chunk.Normative{chunk.NormativeYes, chunk.NormativeNo, chunk.NormativeUnknown} {
		n, err := s.store.Count(ctx, s.collection, store.Filter{Normative: []chunk.Normative{nv}})
		if err != nil {
			return Stats{}, classifyStoreErr(err)
		}
		stats.ByNormative[nv] = n
	}
	return stats, nil
}

// Health proxies the store's health check.
func (s *Searcher) Health(ctx context.Context) (store.HealthStatus, error) {
	status, err := s.store.Health(ctx)
	if err != nil {
		return store.HealthStatus{}, classifyStoreErr(err)
	}
	return status, nil
}

func (s *Searcher) rerankHits(ctx context.Context, query string, hits []store.Hit, k int) ([]Result, error) {
	candidates := make([]rerank.Candidate, len(hits))
	byID := make(map[string]store.Hit, len(hits))
	for i, h := range hits {
		candidates[i] = rerank.Candidate{ID: h.ID, Text: h.Payload.Content, Score: h.Score}
		byID[h.ID] = h
	}
	reranked, err := s.reranker.Rerank(ctx, query, candidates, k)
	if err != nil {
		s.logger.Warn("rerank failed", "reranker", s.reranker.Identity(), "error", err)
		return nil, errs.Wrap(errs.InternalError, "search.rerank", err, "retry without rerank enabled")
	}
	results := make([]Result, 0, len(reranked))
	for _, c := range reranked {
		hit := byID[c.ID]
		results = append(results, resultFromHit(store.Hit{ID: hit.ID, Score: c.Score, Payload: hit.Payload}))
	}
	return results, nil
}

func validateQuery(query string, k int) error {
	if query == "" {
		return errs.New(errs.InvalidInput, "query must not be empty", "provide a non-empty query string")
	}
	if k <= 0 {
		return errs.New(errs.InvalidInput, "k must be greater than zero", "pass a positive result count")
	}
	return nil
}

func classifyStoreErr(err error) error {
	if kerr, ok := errs.As(err); ok {
		return kerr
	}
	return errs.Wrap(errs.InternalError, "search", err, "")
}

func hitsToResults(hits []store.Hit) []Result {
	out := make([]Result, len(hits))
	for i, h := range hits {
		out[i] = resultFromHit(h)
	}
	return out
}

func resultFromHit(h store.Hit) Result {
	return Result{
		Content:    h.Payload.Content,
		Score:      h.Score,
		ChunkType:  h.Payload.ChunkType,
		Normative:  h.Payload.Normative,
		TokenCount: h.Payload.TokenCount,
		Citation: Citation{
			DocumentTitle:    h.Payload.DocumentTitle,
			SectionHierarchy: h.Payload.SectionHierarchy,
			ClauseNumber:     h.Payload.ClauseNumber,
			PageNumbers:      h.Payload.PageNumbers,
		},
	}
}

func truncateResults(results []Result, k int) []Result {
	if k > 0 && k < len(results) {
		return results[:k]
	}
	return results
}
