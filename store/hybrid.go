package store

import (
	"context"
	"sync"

	"github.com/brannigan-labs/kbretrieve/chunk"
	"github.com/brannigan-labs/kbretrieve/internal/klog"
)

// HybridStore composes a dense backend (chromem, qdrant, or milvus) with a
// bleve-backed sparse index, giving any dense-only backend native
// keyword_search and hybrid_search without each backend having to implement
// its own BM25. This is the store every collection is actually opened
// through; the dense-only backends above remain independently usable for
// Search/Upsert/EnsureCollection.
type HybridStore struct {
	dense Store

	mu      sync.RWMutex
	indexes map[string]*keywordIndex // per collection
}

// NewHybridStore wraps dense with a per-collection bleve sparse index.
func NewHybridStore(dense Store) *HybridStore {
	return &HybridStore{dense: dense, indexes: make(map[string]*keywordIndex)}
}

func (h *HybridStore) indexFor(name string) *keywordIndex {
	h.mu.Lock()
	defer h.mu.Unlock()
	idx, ok := h.indexes[name]
	if !ok {
		idx = newKeywordIndex()
		h.indexes[name] = idx
	}
	return idx
}

func (h *HybridStore) EnsureCollection(ctx context.Context, name string, dimension int, embeddingModel string) (Collection, error) {
	h.indexFor(name)
	return h.dense.EnsureCollection(ctx, name, dimension, embeddingModel)
}

func (h *HybridStore) Upsert(ctx context.Context, collection string, chunks []chunk.Chunk) (int, error) {
	n, err := h.dense.Upsert(ctx, collection, chunks)
	if err != nil {
		return n, err
	}
	idx := h.indexFor(collection)
	for _, c := range chunks {
		_ = idx.add(c)
	}
	return n, nil
}

func (h *HybridStore) Search(ctx context.Context, collection string, queryVector []float64, limit int, filter Filter) ([]Hit, error) {
	return h.dense.Search(ctx, collection, queryVector, limit, filter)
}

func (h *HybridStore) SupportsKeywordSearch() bool { return true }

func (h *HybridStore) KeywordSearch(ctx context.Context, collection string, text string, limit int, filter Filter) ([]Hit, error) {
	return h.indexFor(collection).search(ctx, text, limit, filter)
}

// HybridSearch fuses dense and sparse candidate lists via reciprocal rank
// fusion (spec §4.7). weight=1.0 degenerates to dense-only ordering,
// weight=0.0 to sparse-only ordering (P7). If the sparse index is empty
// (nothing ingested yet, or the dense backend lacks native sparse support
// and this collection was never warmed), falls back to dense-only and logs a
// warning (spec §4.7: "falls back to dense-only with a warning when sparse
// is unavailable").
func (h *HybridStore) HybridSearch(ctx context.Context, collection string, queryVector []float64, text string, limit int, filter Filter, weight float64) ([]Hit, error) {
	overfetch := limit * 3
	if overfetch < limit {
		overfetch = limit
	}

	dense, err := h.dense.Search(ctx, collection, queryVector, overfetch, filter)
	if err != nil {
		return nil, err
	}

	idx := h.indexFor(collection)
	if idx.count() == 0 {
		klog.Global.Warn("hybrid_search: sparse index is empty, falling back to dense-only", "collection", collection)
		if len(dense) > limit {
			dense = dense[:limit]
		}
		return dense, nil
	}

	sparse, err := idx.search(ctx, text, overfetch, filter)
	if err != nil {
		return nil, err
	}

	return rrfFuse(dense, sparse, weight, 60, limit), nil
}

func (h *HybridStore) Count(ctx context.Context, collection string, filter Filter) (int, error) {
	return h.dense.Count(ctx, collection, filter)
}

func (h *HybridStore) Health(ctx context.Context) (HealthStatus, error) {
	return h.dense.Health(ctx)
}

func (h *HybridStore) DeleteDocument(ctx context.Context, collection string, documentID string) (int, error) {
	n, err := h.dense.DeleteDocument(ctx, collection, documentID)
	idx := h.indexFor(collection)
	idx.removeDocument(documentID)
	return n, err
}
