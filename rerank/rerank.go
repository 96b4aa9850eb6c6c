// Package rerank implements the cross-encoder rerank step of spec §4.6,
// applied to overfetched candidates after initial retrieval and before
// truncation to the caller's requested limit. Distinct from store/fusion.go's
// RRF, which merges dense and sparse candidate lists, not reorders by
// relevance to a query.
package rerank

import "context"

// Candidate is a search hit awaiting rerank scoring.
type Candidate struct {
	ID    string
	Text  string
	Score float64
}

// Reranker reorders candidates by relevance to query, returning at most topK
// entries with Score overwritten by the rerank model's own scale.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate, topK int) ([]Candidate, error)
	Identity() string
}

// NoneReranker passes candidates through unchanged beyond truncating to
// topK, satisfying the spec's requirement that every searcher accept "no
// reranker configured" without special-casing the call site.
type NoneReranker struct{}

func (NoneReranker) Rerank(_ context.Context, _ string, candidates []Candidate, topK int) ([]Candidate, error) {
	if topK > 0 && topK < len(candidates) {
		return candidates[:topK], nil
	}
	return candidates, nil
}

func (NoneReranker) Identity() string { return "none" }
