package rerank

import (
	"context"
	"runtime"
	"sort"
	"strings"
	"sync"
)

// LocalCrossEncoder scores candidates against query by lexical token
// overlap rather than true cross-encoder inference: no such model exists
// anywhere in the retrieved pack, so this is a documented approximation
// used when no RemoteCrossEncoder is configured, not a claim of parity.
// The scoring loop is offloaded across a GOMAXPROCS worker pool, the same
// cooperative-scheduling shape embed/local.go uses for batch embedding.
type LocalCrossEncoder struct{}

func NewLocalCrossEncoder() *LocalCrossEncoder { return &LocalCrossEncoder{} }

func (LocalCrossEncoder) Identity() string { return "lexical-overlap@local" }

func (LocalCrossEncoder) Rerank(ctx context.Context, query string, candidates []Candidate, topK int) ([]Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	queryTerms := termFrequencies(query)

	out := make([]Candidate, len(candidates))
	copy(out, candidates)

	workers := runtime.GOMAXPROCS(0)
	if workers > len(out) {
		workers = len(out)
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	jobs := make(chan int, len(out))
	for i := range out {
		jobs <- i
	}
	close(jobs)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				out[idx].Score = lexicalOverlapScore(queryTerms, out[idx].Text)
				runtime.Gosched()
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topK > 0 && topK < len(out) {
		out = out[:topK]
	}
	return out, nil
}

func termFrequencies(text string) map[string]int {
	freq := make(map[string]int)
	for _, term := range strings.Fields(strings.ToLower(text)) {
		freq[term]++
	}
	return freq
}

// lexicalOverlapScore is a normalized term-overlap score in [0,1]: the
// fraction of query terms (by frequency) also present in the candidate.
func lexicalOverlapScore(queryTerms map[string]int, text string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	docTerms := termFrequencies(text)
	var matched, total int
	for term, count := range queryTerms {
		total += count
		if docTerms[term] > 0 {
			matched += count
		}
	}
	if total == 0 {
		return 0
	}
	return float64(matched) / float64(total)
}
