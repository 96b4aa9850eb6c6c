package store

import "sort"

// rrfFuse implements reciprocal rank fusion over dense and sparse result
// lists, grounded on rag/reranker.go's RRFReranker (the donor's hybrid-
// search fusion helper; kept nearly as-is since the formula is correct and
// general, adapted here to operate on Hit rather than SearchResult).
//
// The interior weight mapping (spec §9 Open Question) is linear
// interpolation between the dense-only and sparse-only RRF scores, so the
// two endpoints named by P7 hold exactly: weight=1.0 reduces to dense
// ordering, weight=0.0 reduces to sparse ordering.
func rrfFuse(dense, sparse []Hit, weight float64, k float64, limit int) []Hit {
	if k <= 0 {
		k = 60
	}
	type acc struct {
		denseRank, sparseRank int // 0 = not present
		hit                   Hit
	}
	merged := make(map[string]*acc)
	order := make([]string, 0, len(dense)+len(sparse))

	for i, h := range dense {
		a, ok := merged[h.ID]
		if !ok {
			a = &acc{hit: h}
			merged[h.ID] = a
			order = append(order, h.ID)
		}
		a.denseRank = i + 1
	}
	for i, h := range sparse {
		a, ok := merged[h.ID]
		if !ok {
			a = &acc{hit: h}
			merged[h.ID] = a
			order = append(order, h.ID)
		}
		a.sparseRank = i + 1
		if a.hit.Payload.ID == "" {
			a.hit = h
		}
	}

	results := make([]Hit, 0, len(order))
	for _, id := range order {
		a := merged[id]
		denseScore, sparseScore := 0.0, 0.0
		if a.denseRank > 0 {
			denseScore = 1.0 / (k + float64(a.denseRank))
		}
		if a.sparseRank > 0 {
			sparseScore = 1.0 / (k + float64(a.sparseRank))
		}
		fused := weight*denseScore + (1-weight)*sparseScore
		h := a.hit
		h.Score = fused
		results = append(results, h)
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return normalizeScores(results)
}

// normalizeScores rescales fused RRF scores into [0,1] so the store's score
// semantics promise (spec §4.3: "non-negative relevance... in [0, 1]") holds
// after fusion, not just for raw cosine similarity.
func normalizeScores(hits []Hit) []Hit {
	if len(hits) == 0 {
		return hits
	}
	max := hits[0].Score
	if max <= 0 {
		return hits
	}
	for i := range hits {
		hits[i].Score = hits[i].Score / max
	}
	return hits
}
