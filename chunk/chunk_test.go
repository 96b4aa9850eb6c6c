package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsEmptyContent(t *testing.T) {
	_, err := New("doc1", 0, "   \n\t  ")
	require.Error(t, err)
}

func TestNewDerivesStableID(t *testing.T) {
	c1, err := New("doc1", 0, "The maximum operating temperature SHALL be 85C")
	require.NoError(t, err)
	c2, err := New("doc1", 0, "The maximum operating temperature SHALL be 85C")
	require.NoError(t, err)
	assert.Equal(t, c1.ID, c2.ID, "re-ingesting unchanged content must yield the same id (I5)")
	assert.NotEmpty(t, c1.ContentHash)
}

func TestNewDifferentOrdinalDifferentID(t *testing.T) {
	c1, _ := New("doc1", 0, "same text")
	c2, _ := New("doc1", 1, "same text")
	assert.NotEqual(t, c1.ID, c2.ID)
}

func TestClauseNumberValidation(t *testing.T) {
	_, err := New("doc1", 0, "text", WithClauseNumber("4.2.3.1"))
	require.NoError(t, err)

	_, err = New("doc1", 0, "text", WithClauseNumber("not-a-clause"))
	require.Error(t, err)
}

func TestSectionHierarchyDepthLimit(t *testing.T) {
	deep := []string{"1", "2", "3", "4", "5", "6", "7"}
	_, err := New("doc1", 0, "text", WithSectionHierarchy(deep))
	require.Error(t, err)
}

func TestWithEmbeddingDoesNotMutateReceiver(t *testing.T) {
	base, err := New("doc1", 0, "text")
	require.NoError(t, err)

	withEmb := base.WithEmbedding([]float64{1, 2, 3}, "model@v1")

	assert.Nil(t, base.Embedding)
	assert.Equal(t, []float64{1, 2, 3}, withEmb.Embedding)
	assert.Equal(t, "model@v1", withEmb.EmbeddingModel)
	assert.Equal(t, base.ID, withEmb.ID, "embedding must not change identity")
}

func TestValidateRejectsModelMismatch(t *testing.T) {
	base, _ := New("doc1", 0, "text")
	c := base.WithEmbedding([]float64{1, 2}, "model@v1")

	err := Validate(c, "model@v2", 2)
	require.Error(t, err)

	err = Validate(c, "model@v1", 2)
	require.NoError(t, err)

	err = Validate(c, "model@v1", 3)
	require.Error(t, err)
}

func TestHashContentNormalizesWhitespace(t *testing.T) {
	h1 := HashContent("hello   world")
	h2 := HashContent("hello\nworld")
	assert.Equal(t, h1, h2)
}
