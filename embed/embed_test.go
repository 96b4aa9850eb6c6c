package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalEmbedderDimension(t *testing.T) {
	e := NewLocalEmbedder(128, "test-model")
	assert.Equal(t, 128, e.Dimension())
	assert.Equal(t, "test-model@local", e.ModelIdentity())
}

func TestLocalEmbedderDeterministic(t *testing.T) {
	e := NewLocalEmbedder(64, "test-model")
	v1, err := e.Embed(context.Background(), "maximum operating temperature")
	require.NoError(t, err)
	v2, err := e.Embed(context.Background(), "maximum operating temperature")
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Len(t, v1, 64)
}

func TestLocalEmbedderDifferentTextDifferentVector(t *testing.T) {
	e := NewLocalEmbedder(64, "test-model")
	v1, _ := e.Embed(context.Background(), "alpha")
	v2, _ := e.Embed(context.Background(), "zeta gamma delta")
	assert.NotEqual(t, v1, v2)
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	e := NewLocalEmbedder(32, "test-model")
	texts := []string{"first", "second", "third"}
	batch, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, batch, 3)

	for i, text := range texts {
		single, err := e.Embed(context.Background(), text)
		require.NoError(t, err)
		assert.Equal(t, single, batch[i])
	}
}

func TestNewFactoryRejectsUnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "nonexistent"})
	require.Error(t, err)
}

func TestNewFactoryRequiresAPIKeyForRemote(t *testing.T) {
	_, err := New(Config{Provider: "remote", Model: "text-embedding-3-small"})
	require.Error(t, err)
}

func TestNewFactoryBuildsLocal(t *testing.T) {
	e, err := New(Config{Provider: "local", Dimension: 16, Model: "local-hash"})
	require.NoError(t, err)
	assert.Equal(t, 16, e.Dimension())
}
