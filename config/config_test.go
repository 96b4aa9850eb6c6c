package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultValidates(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateRejectsBadTokenOrdering(t *testing.T) {
	cfg := Default()
	cfg.Chunking.MinTokens = 900
	cfg.Chunking.TargetTokens = 500
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangeHybridWeight(t *testing.T) {
	cfg := Default()
	cfg.Search.Hybrid.Weight = 1.5
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.VectorStore.Backend = "tertiary"
	assert.Error(t, cfg.Validate())
}

func TestLoadFromPathWritesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kbretrieve.yaml")

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Embedding.Model, cfg.Embedding.Model)
	assert.FileExists(t, path)
}

func TestLoadFromPathRoundTripsOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kbretrieve.yaml")

	cfg := Default()
	cfg.Chunking.TargetTokens = 321
	cfg.VectorStore.Backend = "primary"
	require.NoError(t, cfg.SaveToPath(path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, 321, loaded.Chunking.TargetTokens)
	assert.Equal(t, "primary", loaded.VectorStore.Backend)
}

func TestApplyAPIKeyEnvPrefersEnvOverFile(t *testing.T) {
	t.Setenv("QDRANT_URL", "https://qdrant.internal:6334")
	t.Setenv("QDRANT_API_KEY", "test-key")

	cfg := Default()
	applyAPIKeyEnv(cfg)
	assert.Equal(t, "https://qdrant.internal:6334", cfg.VectorStore.Primary.Host)
	assert.Equal(t, "test-key", cfg.VectorStore.Primary.APIKey)
}
