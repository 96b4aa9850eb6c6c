package rerank

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoneRerankerTruncatesToTopK(t *testing.T) {
	candidates := []Candidate{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	out, err := NoneReranker{}.Rerank(context.Background(), "q", candidates, 2)
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
}

func TestNoneRerankerPassesThroughWhenTopKExceedsLength(t *testing.T) {
	candidates := []Candidate{{ID: "a"}}
	out, err := NoneReranker{}.Rerank(context.Background(), "q", candidates, 10)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestLocalCrossEncoderRanksHigherOverlapFirst(t *testing.T) {
	candidates := []Candidate{
		{ID: "low", Text: "completely unrelated content about gardening"},
		{ID: "high", Text: "vector store embedding search relevance ranking"},
	}
	out, err := NewLocalCrossEncoder().Rerank(context.Background(), "vector embedding search ranking", candidates, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "high", out[0].ID)
	assert.Greater(t, out[0].Score, out[1].Score)
}

func TestLocalCrossEncoderHandlesEmptyCandidates(t *testing.T) {
	out, err := NewLocalCrossEncoder().Rerank(context.Background(), "q", nil, 5)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestLocalCrossEncoderRespectsTopK(t *testing.T) {
	candidates := []Candidate{
		{ID: "a", Text: "alpha beta gamma"},
		{ID: "b", Text: "alpha beta"},
		{ID: "c", Text: "alpha"},
	}
	out, err := NewLocalCrossEncoder().Rerank(context.Background(), "alpha beta gamma", candidates, 1)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].ID)
}
