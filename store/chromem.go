package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/brannigan-labs/kbretrieve/chunk"
	"github.com/brannigan-labs/kbretrieve/errs"
)

// ChromemStore is the embedded/local backend, the natural secondary in the
// primary/fallback pair of spec §4.3. Grounded on rag/chromem.go, rewritten
// substantially: the donor hardcoded an OpenAI embedding function inside the
// store itself (chromem.NewEmbeddingFuncOpenAI), which conflates the
// Embedder and Store components the spec keeps separate — Search here takes
// a pre-computed query_vector, never raw text, so the embedding function
// passed to chromem is an identity stand-in that chromem requires but this
// store never calls (vectors always arrive already computed).
type ChromemStore struct {
	mu          sync.RWMutex
	db          *chromem.DB
	collections map[string]*chromem.Collection
	meta        map[string]Collection
}

// NewChromemStore builds an in-memory (path == "") or persistent chromem
// store.
func NewChromemStore(path string) (*ChromemStore, error) {
	var db *chromem.DB
	var err error
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, errs.Wrap(errs.ConnectionError, "chromem.open", err, "verify the local store path is writable")
		}
	}
	return &ChromemStore{
		db:          db,
		collections: make(map[string]*chromem.Collection),
		meta:        make(map[string]Collection),
	}, nil
}

// identityEmbeddingFunc satisfies chromem's embedding-function requirement
// without ever being invoked in this store's call paths: every document is
// always added with its vector already attached via AddDocument.
func identityEmbeddingFunc(_ context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("chromem: embedding function invoked unexpectedly for %q; vectors must be precomputed", text)
}

func (c *ChromemStore) EnsureCollection(ctx context.Context, name string, dimension int, embeddingModel string) (Collection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.meta[name]; ok {
		if existing.Dimension != dimension || existing.EmbeddingModel != embeddingModel {
			return Collection{}, errs.New(errs.ConfigError,
				fmt.Sprintf("collection %q already declared with dimension=%d model=%s", name, existing.Dimension, existing.EmbeddingModel),
				"choose a new collection name or match the existing model/dimension")
		}
		return existing, nil
	}

	col, err := c.db.CreateCollection(name, nil, identityEmbeddingFunc)
	if err != nil {
		return Collection{}, errs.Wrap(errs.InternalError, "chromem.create_collection", err, "")
	}
	c.collections[name] = col
	meta := Collection{Name: name, Dimension: dimension, EmbeddingModel: embeddingModel, Distance: "cosine", CreatedAt: time.Now()}
	c.meta[name] = meta
	return meta, nil
}

func (c *ChromemStore) Upsert(ctx context.Context, name string, chunks []chunk.Chunk) (int, error) {
	c.mu.RLock()
	col, ok := c.collections[name]
	meta := c.meta[name]
	c.mu.RUnlock()
	if !ok {
		return 0, errs.New(errs.NotFound, fmt.Sprintf("collection %q not found", name), "call EnsureCollection first")
	}

	count := 0
	for _, ch := range chunks {
		if err := chunk.Validate(ch, meta.EmbeddingModel, meta.Dimension); err != nil {
			return count, errs.Wrap(errs.InvalidInput, "chromem.upsert", err, "re-embed the chunk with the collection's declared model")
		}
		doc := chromem.Document{
			ID:        ch.ID,
			Content:   ch.Content,
			Metadata:  encodeMetadata(ch),
			Embedding: toFloat32(ch.Embedding),
		}
		if err := col.AddDocument(ctx, doc); err != nil {
			return count, errs.Wrap(errs.InternalError, "chromem.add_document", err, "")
		}
		count++
	}
	return count, nil
}

func (c *ChromemStore) Search(ctx context.Context, name string, queryVector []float64, limit int, filter Filter) ([]Hit, error) {
	c.mu.RLock()
	col, ok := c.collections[name]
	c.mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.NotFound, fmt.Sprintf("collection %q not found", name), "")
	}

	// Overfetch to allow in-process filtering (chromem has no native filter
	// translation for our richer filter language).
	n := limit * 4
	if n < limit+20 {
		n = limit + 20
	}
	if n > col.Count() {
		n = col.Count()
	}
	if n == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, toFloat32(queryVector), n, nil, nil)
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "chromem.query", err, "")
	}

	hits := make([]Hit, 0, limit)
	for _, r := range results {
		ch := decodeMetadata(r.ID, r.Content, r.Metadata)
		if !filter.Matches(ch) {
			continue
		}
		hits = append(hits, Hit{ID: r.ID, Score: float64(r.Similarity), Payload: ch})
		if len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

// SupportsKeywordSearch reports false: chromem has no native sparse index.
// The bleve-backed Store wraps this one to provide keyword/hybrid search;
// see store/hybrid.go.
func (c *ChromemStore) SupportsKeywordSearch() bool { return false }

func (c *ChromemStore) KeywordSearch(ctx context.Context, name string, text string, limit int, filter Filter) ([]Hit, error) {
	return nil, errs.New(errs.InvalidInput, "chromem backend has no native keyword search", "use the bleve-backed hybrid store")
}

func (c *ChromemStore) HybridSearch(ctx context.Context, name string, queryVector []float64, text string, limit int, filter Filter, weight float64) ([]Hit, error) {
	return nil, errs.New(errs.InvalidInput, "chromem backend has no native hybrid search", "use the bleve-backed hybrid store")
}

func (c *ChromemStore) Count(ctx context.Context, name string, filter Filter) (int, error) {
	c.mu.RLock()
	col, ok := c.collections[name]
	c.mu.RUnlock()
	if !ok {
		return 0, errs.New(errs.NotFound, fmt.Sprintf("collection %q not found", name), "")
	}
	if filter.Empty() {
		return col.Count(), nil
	}
	results, err := col.QueryEmbedding(ctx, make([]float32, 1), col.Count(), nil, nil)
	if err != nil {
		return 0, nil
	}
	n := 0
	for _, r := range results {
		if filter.Matches(decodeMetadata(r.ID, r.Content, r.Metadata)) {
			n++
		}
	}
	return n, nil
}

func (c *ChromemStore) Health(ctx context.Context) (HealthStatus, error) {
	start := time.Now()
	_ = c.db
	return HealthStatus{Status: "healthy", LatencyMs: time.Since(start).Milliseconds(), Backend: "chromem"}, nil
}

func (c *ChromemStore) DeleteDocument(ctx context.Context, name string, documentID string) (int, error) {
	return 0, errs.New(errs.InvalidInput, "chromem backend does not support deletion by document", "recreate the collection to remove data")
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
