package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brannigan-labs/kbretrieve/chunk"
)

func mustChunk(t *testing.T, docID string, ordinal int, content string, vector []float64, opts ...chunk.Option) chunk.Chunk {
	t.Helper()
	c, err := chunk.New(docID, ordinal, content, opts...)
	require.NoError(t, err)
	return c.WithEmbedding(vector, "test-model@v1")
}

func TestChromemEnsureCollectionRejectsDimensionChange(t *testing.T) {
	cs, err := NewChromemStore("")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = cs.EnsureCollection(ctx, "docs", 4, "test-model@v1")
	require.NoError(t, err)

	_, err = cs.EnsureCollection(ctx, "docs", 8, "test-model@v1")
	require.Error(t, err, "dimension mismatch with an existing collection must be a configuration error (spec §4.3)")
}

func TestChromemUpsertRejectsModelMismatch(t *testing.T) {
	cs, err := NewChromemStore("")
	require.NoError(t, err)
	ctx := context.Background()
	_, err = cs.EnsureCollection(ctx, "docs", 4, "test-model@v1")
	require.NoError(t, err)

	bad, _ := chunk.New("doc1", 0, "text")
	bad = bad.WithEmbedding([]float64{1, 2, 3, 4}, "wrong-model@v1")

	_, err = cs.Upsert(ctx, "docs", []chunk.Chunk{bad})
	require.Error(t, err, "I1: embedding_model mismatch must be rejected at the store boundary")
}

func TestChromemSearchRetrievability(t *testing.T) {
	cs, err := NewChromemStore("")
	require.NoError(t, err)
	ctx := context.Background()
	_, err = cs.EnsureCollection(ctx, "docs", 4, "test-model@v1")
	require.NoError(t, err)

	target := mustChunk(t, "doc1", 0, "maximum operating temperature", []float64{1, 0, 0, 0})
	other := mustChunk(t, "doc1", 1, "unrelated filler text", []float64{0, 1, 0, 0})

	_, err = cs.Upsert(ctx, "docs", []chunk.Chunk{target, other})
	require.NoError(t, err)

	hits, err := cs.Search(ctx, "docs", []float64{1, 0, 0, 0}, 3, Filter{DocumentIDs: []string{"doc1"}})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, target.ID, hits[0].ID, "P4 retrievability smoke test")
}

func TestChromemSearchAppliesClausePrefixFilter(t *testing.T) {
	cs, err := NewChromemStore("")
	require.NoError(t, err)
	ctx := context.Background()
	_, err = cs.EnsureCollection(ctx, "docs", 4, "test-model@v1")
	require.NoError(t, err)

	inScope := mustChunk(t, "doc1", 0, "access control requirements", []float64{1, 0, 0, 0}, chunk.WithClauseNumber("4.2.3"))
	outOfScope := mustChunk(t, "doc1", 1, "access control requirements", []float64{1, 0, 0, 0}, chunk.WithClauseNumber("4.3.1"))
	_, err = cs.Upsert(ctx, "docs", []chunk.Chunk{inScope, outOfScope})
	require.NoError(t, err)

	hits, err := cs.Search(ctx, "docs", []float64{1, 0, 0, 0}, 5, Filter{ClausePrefix: "4.2"})
	require.NoError(t, err)
	require.Len(t, hits, 1, "a clause_prefix filter applied through a backend, not just Filter.Matches directly, must exclude siblings")
	assert.Equal(t, inScope.ID, hits[0].ID)
}

func TestFilterMatchesClausePrefix(t *testing.T) {
	f := Filter{ClausePrefix: "4.2"}
	c1, _ := chunk.New("d", 0, "x", chunk.WithClauseNumber("4.2.3"))
	c2, _ := chunk.New("d", 1, "x", chunk.WithClauseNumber("4.3.1"))
	c3, _ := chunk.New("d", 2, "x", chunk.WithClauseNumber("4.2"))

	assert.True(t, f.Matches(c1))
	assert.False(t, f.Matches(c2))
	assert.True(t, f.Matches(c3))
}

func TestRRFFuseWeightEndpoints(t *testing.T) {
	dense := []Hit{{ID: "a", Score: 0.9}, {ID: "b", Score: 0.5}}
	sparse := []Hit{{ID: "b", Score: 5}, {ID: "a", Score: 1}}

	denseOnly := rrfFuse(dense, sparse, 1.0, 60, 2)
	require.Len(t, denseOnly, 2)
	assert.Equal(t, "a", denseOnly[0].ID, "weight=1.0 must reduce to dense ordering (P7)")

	sparseOnly := rrfFuse(dense, sparse, 0.0, 60, 2)
	require.Len(t, sparseOnly, 2)
	assert.Equal(t, "b", sparseOnly[0].ID, "weight=0.0 must reduce to sparse ordering (P7)")
}

func TestHybridStoreFallsBackToDenseWhenSparseEmpty(t *testing.T) {
	cs, err := NewChromemStore("")
	require.NoError(t, err)
	hs := NewHybridStore(cs)
	ctx := context.Background()

	_, err = hs.EnsureCollection(ctx, "docs", 4, "test-model@v1")
	require.NoError(t, err)

	c := mustChunk(t, "doc1", 0, "alpha beta gamma", []float64{1, 0, 0, 0})
	// Written to the dense backend only, so the sparse index stays empty.
	_, err = cs.Upsert(ctx, "docs", []chunk.Chunk{c})
	require.NoError(t, err)

	hits, err := hs.HybridSearch(ctx, "docs", []float64{1, 0, 0, 0}, "alpha", 5, Filter{}, 0.5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
}

func TestHybridStoreKeywordSearch(t *testing.T) {
	cs, err := NewChromemStore("")
	require.NoError(t, err)
	hs := NewHybridStore(cs)
	ctx := context.Background()
	_, err = hs.EnsureCollection(ctx, "docs", 4, "test-model@v1")
	require.NoError(t, err)

	c := mustChunk(t, "doc1", 0, "the quick brown fox", []float64{1, 0, 0, 0})
	_, err = hs.Upsert(ctx, "docs", []chunk.Chunk{c})
	require.NoError(t, err)

	hits, err := hs.KeywordSearch(ctx, "docs", "quick fox", 5, Filter{})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, c.ID, hits[0].ID)
}
