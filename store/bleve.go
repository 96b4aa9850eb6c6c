package store

import (
	"context"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/brannigan-labs/kbretrieve/chunk"
	"github.com/brannigan-labs/kbretrieve/errs"
)

// bleveDoc is what gets indexed per chunk: just the searchable text field,
// mirroring what a BM25-style sparse index needs (the full payload lives in
// the dense backend; bleve here is purely the keyword_search engine).
type bleveDoc struct {
	Content string `json:"content"`
}

// keywordIndex is a per-collection bleve index, grounded on
// Aman-CERP-amanmcp's use of blevesearch/bleve, replacing the donor's
// hand-rolled BM25 math in rag/sparse_index.go entirely per the
// never-stdlib-where-the-pack-shows-a-library rule.
type keywordIndex struct {
	mu    sync.RWMutex
	idx   bleve.Index
	byID  map[string]chunk.Chunk
}

func newKeywordIndex() *keywordIndex {
	mapping := bleve.NewIndexMapping()
	idx, _ := bleve.NewMemOnly(mapping)
	return &keywordIndex{idx: idx, byID: make(map[string]chunk.Chunk)}
}

func (k *keywordIndex) add(c chunk.Chunk) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := k.idx.Index(c.ID, bleveDoc{Content: c.Content}); err != nil {
		return err
	}
	k.byID[c.ID] = c
	return nil
}

func (k *keywordIndex) removeDocument(documentID string) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	removed := 0
	for id, c := range k.byID {
		if c.DocumentID == documentID {
			_ = k.idx.Delete(id)
			delete(k.byID, id)
			removed++
		}
	}
	return removed
}

func (k *keywordIndex) search(ctx context.Context, text string, limit int, filter Filter) ([]Hit, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}
	query := bleve.NewMatchQuery(text)
	req := bleve.NewSearchRequestOptions(query, limit*4, 0, false)
	result, err := k.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "bleve.search", err, "")
	}

	maxScore := 0.0
	for _, hit := range result.Hits {
		if hit.Score > maxScore {
			maxScore = hit.Score
		}
	}

	hits := make([]Hit, 0, limit)
	for _, hit := range result.Hits {
		c, ok := k.byID[hit.ID]
		if !ok || !filter.Matches(c) {
			continue
		}
		score := hit.Score
		if maxScore > 0 {
			score = score / maxScore
		}
		hits = append(hits, Hit{ID: hit.ID, Score: score, Payload: c})
		if len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

func (k *keywordIndex) count() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.byID)
}
