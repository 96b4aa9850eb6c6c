package search

import (
	"context"
	"testing"

	kchunk "github.com/brannigan-labs/kbretrieve/chunk"
	"github.com/brannigan-labs/kbretrieve/rerank"
	"github.com/brannigan-labs/kbretrieve/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns a fixed vector regardless of input, enough to drive
// the searcher without a real provider.
type fakeEmbedder struct{ dim int }

func (f fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	v := make([]float64, f.dim)
	v[0] = 1
	return v, nil
}
func (f fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i], _ = f.Embed(ctx, texts[i])
	}
	return out, nil
}
func (f fakeEmbedder) Dimension() int        { return f.dim }
func (f fakeEmbedder) ModelIdentity() string { return "fake@test" }

// fakeStore returns a fixed, ordered hit list, recording the requested
// limit so tests can assert on overfetch behavior.
type fakeStore struct {
	hits        []store.Hit
	lastLimit   int
	lastFilter  store.Filter
	keywordable bool
}

func (s *fakeStore) EnsureCollection(ctx context.Context, name string, dim int, model string) (store.Collection, error) {
	return store.Collection{Name: name, Dimension: dim, EmbeddingModel: model}, nil
}
func (s *fakeStore) Upsert(ctx context.Context, collection string, chunks []kchunk.Chunk) (int, error) {
	return len(chunks), nil
}
func (s *fakeStore) Search(ctx context.Context, collection string, v []float64, limit int, filter store.Filter) ([]store.Hit, error) {
	s.lastLimit = limit
	s.lastFilter = filter
	if limit < len(s.hits) {
		return s.hits[:limit], nil
	}
	return s.hits, nil
}
func (s *fakeStore) KeywordSearch(ctx context.Context, collection, text string, limit int, filter store.Filter) ([]store.Hit, error) {
	return s.Search(ctx, collection, nil, limit, filter)
}
func (s *fakeStore) HybridSearch(ctx context.Context, collection string, v []float64, text string, limit int, filter store.Filter, weight float64) ([]store.Hit, error) {
	return s.Search(ctx, collection, v, limit, filter)
}
func (s *fakeStore) Count(ctx context.Context, collection string, filter store.Filter) (int, error) {
	return len(s.hits), nil
}
func (s *fakeStore) Health(ctx context.Context) (store.HealthStatus, error) {
	return store.HealthStatus{Status: "healthy"}, nil
}
func (s *fakeStore) DeleteDocument(ctx context.Context, collection, documentID string) (int, error) {
	return 0, nil
}
func (s *fakeStore) SupportsKeywordSearch() bool { return s.keywordable }

func sampleHits(n int) []store.Hit {
	hits := make([]store.Hit, n)
	for i := 0; i < n; i++ {
		hits[i] = store.Hit{
			ID:    string(rune('a' + i)),
			Score: 1.0 - float64(i)*0.1,
			Payload: kchunk.Chunk{
				Content:       "chunk content " + string(rune('a'+i)),
				DocumentTitle: "Handbook",
				ChunkType:     kchunk.Prose,
				Normative:     kchunk.NormativeNo,
			},
		}
	}
	return hits
}

func TestSemanticSearchRejectsEmptyQuery(t *testing.T) {
	s := New(fakeEmbedder{dim: 4}, &fakeStore{}, "col")
	_, err := s.SemanticSearch(context.Background(), "", 5, store.Filter{}, false)
	require.Error(t, err)
}

func TestSemanticSearchRejectsNonPositiveK(t *testing.T) {
	s := New(fakeEmbedder{dim: 4}, &fakeStore{}, "col")
	_, err := s.SemanticSearch(context.Background(), "query", 0, store.Filter{}, false)
	require.Error(t, err)
}

func TestSemanticSearchReturnsResultsInOrder(t *testing.T) {
	st := &fakeStore{hits: sampleHits(3)}
	s := New(fakeEmbedder{dim: 4}, st, "col")
	results, err := s.SemanticSearch(context.Background(), "query", 3, store.Filter{}, false)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Handbook", results[0].Citation.DocumentTitle)
	assert.True(t, results[0].Score >= results[1].Score)
}

func TestSemanticSearchOverfetchesWhenRerankEnabled(t *testing.T) {
	st := &fakeStore{hits: sampleHits(9)}
	s := New(fakeEmbedder{dim: 4}, st, "col", WithReranker(rerank.NoneReranker{}))
	results, err := s.SemanticSearch(context.Background(), "query", 3, store.Filter{}, true)
	require.NoError(t, err)
	assert.Equal(t, 9, st.lastLimit, "rerank-enabled search overfetches 3k before truncation")
	assert.Len(t, results, 3)
}

func TestKeywordSearchRejectsUnsupportedBackend(t *testing.T) {
	st := &fakeStore{hits: sampleHits(1), keywordable: false}
	s := New(fakeEmbedder{dim: 4}, st, "col")
	_, err := s.KeywordSearch(context.Background(), "query", 5, store.Filter{})
	require.Error(t, err)
}

func TestHybridSearchRejectsWeightOutOfRange(t *testing.T) {
	s := New(fakeEmbedder{dim: 4}, &fakeStore{}, "col")
	_, err := s.HybridSearch(context.Background(), "query", 5, store.Filter{}, 1.5)
	require.Error(t, err)
}

func TestLookupAppliesDefinitionFilter(t *testing.T) {
	st := &fakeStore{hits: sampleHits(2)}
	s := New(fakeEmbedder{dim: 4}, st, "col")
	results, err := s.Lookup(context.Background(), "widget", 5)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, []kchunk.Type{kchunk.Definition}, st.lastFilter.ChunkTypes)
}

func TestStatsAggregatesCounts(t *testing.T) {
	st := &fakeStore{hits: sampleHits(5)}
	s := New(fakeEmbedder{dim: 4}, st, "col")
	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalChunks)
}
