// Package config loads the configuration surface of spec §6: embedding
// provider/dimension, vector store backend selection, chunking parameters,
// ingestion options, search/rerank/hybrid defaults, and health thresholds.
//
// Grounded on RedClaus-cortex's core/internal/config/config.go
// (viper-backed, mapstructure tags, env-var override via SetEnvPrefix +
// AutomaticEnv, a Default()/Load()/LoadFromPath() trio, Validate()); the
// nested-struct-per-concern shape mirrors that donor's Config rather than
// teilomillet-raggo's flatter config/config.go, since spec §6's surface is
// itself nested (embedding.*, vector_store.primary.*, chunking.*, ...).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full configuration surface named by spec §6.
type Config struct {
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	VectorStore VectorStoreConfig `mapstructure:"vector_store"`
	Chunking    ChunkingConfig    `mapstructure:"chunking"`
	Ingestion   IngestionConfig   `mapstructure:"ingestion"`
	Search      SearchConfig      `mapstructure:"search"`
	Health      HealthConfig      `mapstructure:"health"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// EmbeddingConfig declares the embedder model identity and its dimension
// (spec §6: "embedding.model", "embedding.dimension").
type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider"` // "remote" or "local"
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	Dimension int    `mapstructure:"dimension"`
}

// VectorStoreConfig selects and configures the primary/fallback backends
// (spec §6: "vector_store.backend", "vector_store.primary.*",
// "vector_store.fallback.*").
type VectorStoreConfig struct {
	Backend    string                    `mapstructure:"backend"` // "primary", "fallback", or "" for auto
	Collection string                    `mapstructure:"collection"`
	Primary    VectorStorePrimaryConfig  `mapstructure:"primary"`
	Fallback   VectorStoreFallbackConfig `mapstructure:"fallback"`
}

type VectorStorePrimaryConfig struct {
	Kind   string `mapstructure:"kind"` // "qdrant"
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	APIKey string `mapstructure:"api_key"`
	UseTLS bool   `mapstructure:"use_tls"`
}

type VectorStoreFallbackConfig struct {
	Kind string `mapstructure:"kind"` // "chromem" or "milvus"
	Path string `mapstructure:"path"`
}

// ChunkingConfig carries the chunker's tunable knobs (spec §4.5 table,
// §6: "chunking.target_tokens", "max_tokens", "min_tokens",
// "overlap_tokens", "chunking.tokenizer").
type ChunkingConfig struct {
	TargetTokens  int    `mapstructure:"target_tokens"`
	MaxTokens     int    `mapstructure:"max_tokens"`
	MinTokens     int    `mapstructure:"min_tokens"`
	OverlapTokens int    `mapstructure:"overlap_tokens"`
	Tokenizer     string `mapstructure:"tokenizer"`
}

// IngestionConfig holds ingestor-wide options (spec §6: "ingestion.ocr_enabled").
type IngestionConfig struct {
	OCREnabled bool `mapstructure:"ocr_enabled"`
}

// SearchConfig holds rerank and hybrid defaults (spec §6:
// "search.rerank.enabled", "search.rerank.model", "search.hybrid.enabled",
// "search.hybrid.weight").
type SearchConfig struct {
	Rerank RerankConfig `mapstructure:"rerank"`
	Hybrid HybridConfig `mapstructure:"hybrid"`
}

type RerankConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Model   string `mapstructure:"model"` // "" = local lexical cross-encoder
	APIKey  string `mapstructure:"api_key"`
}

type HybridConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	Weight  float64 `mapstructure:"weight"`
}

// HealthConfig holds the degraded-status threshold (spec §6:
// "health.latency_threshold_ms").
type HealthConfig struct {
	LatencyThresholdMS int `mapstructure:"latency_threshold_ms"`
}

// LoggingConfig is ambient (not named by spec §6, carried regardless per
// the build process's "ambient stack" requirement).
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Default returns a Config with sensible development defaults: an embedded
// chromem fallback store and no remote dependencies, so the binary runs
// out of the box without credentials.
func Default() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:  "local",
			Model:     "local-minilm",
			Dimension: 384,
		},
		VectorStore: VectorStoreConfig{
			Backend:    "fallback",
			Collection: "kb_v1_local_minilm",
			Primary: VectorStorePrimaryConfig{
				Kind: "qdrant",
				Host: "",
				Port: 6334,
			},
			Fallback: VectorStoreFallbackConfig{
				Kind: "chromem",
				Path: defaultDataDir("chromem"),
			},
		},
		Chunking: ChunkingConfig{
			TargetTokens:  500,
			MaxTokens:     1000,
			MinTokens:     100,
			OverlapTokens: 100,
			Tokenizer:     "cl100k_base",
		},
		Ingestion: IngestionConfig{
			OCREnabled: false,
		},
		Search: SearchConfig{
			Rerank: RerankConfig{Enabled: false},
			Hybrid: HybridConfig{Enabled: false, Weight: 0.5},
		},
		Health: HealthConfig{LatencyThresholdMS: 500},
		Logging: LoggingConfig{Level: "info"},
	}
}

func defaultDataDir(sub string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".kbretrieve", sub)
	}
	return filepath.Join(home, ".kbretrieve", sub)
}

// Load reads configuration from the default location
// (~/.kbretrieve/config.yaml), creating it with defaults if absent, and
// applies KBRETRIEVE_*-prefixed environment variable overrides.
func Load() (*Config, error) {
	return LoadFromPath(defaultConfigPath())
}

func defaultConfigPath() string {
	if p := os.Getenv("KBRETRIEVE_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "kbretrieve.yaml"
	}
	return filepath.Join(home, ".kbretrieve", "config.yaml")
}

// LoadFromPath reads configuration from a specific file path, writing
// defaults to it first if it does not exist, then applies environment
// overrides and validates the result.
func LoadFromPath(path string) (*Config, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("config: create config directory: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := Default().SaveToPath(path); err != nil {
			return nil, fmt.Errorf("config: write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("KBRETRIEVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read config file: %w", err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal config: %w", err)
	}

	applyAPIKeyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyAPIKeyEnv fills credential fields from well-known environment
// variable names rather than the config file, so API keys never need to be
// written to disk (QDRANT_URL/QDRANT_API_KEY match the suggestion wording
// of the errors in store/qdrant.go).
func applyAPIKeyEnv(cfg *Config) {
	if v := os.Getenv("QDRANT_URL"); v != "" {
		cfg.VectorStore.Primary.Host = v
	}
	if v := os.Getenv("QDRANT_API_KEY"); v != "" {
		cfg.VectorStore.Primary.APIKey = v
	}
	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("RERANK_API_KEY"); v != "" {
		cfg.Search.Rerank.APIKey = v
	}
}

// Validate checks the configuration for internal consistency the way
// RedClaus-cortex's Config.Validate does: required-field and range checks,
// no I/O.
func (c *Config) Validate() error {
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("config: embedding.dimension must be positive")
	}
	if c.Chunking.MinTokens <= 0 || c.Chunking.TargetTokens <= 0 || c.Chunking.MaxTokens <= 0 {
		return fmt.Errorf("config: chunking token parameters must be positive")
	}
	if c.Chunking.MinTokens > c.Chunking.TargetTokens || c.Chunking.TargetTokens > c.Chunking.MaxTokens {
		return fmt.Errorf("config: chunking requires min_tokens <= target_tokens <= max_tokens")
	}
	if c.Chunking.OverlapTokens < 0 || c.Chunking.OverlapTokens >= c.Chunking.MaxTokens {
		return fmt.Errorf("config: chunking.overlap_tokens must be within [0, max_tokens)")
	}
	if c.Search.Hybrid.Weight < 0 || c.Search.Hybrid.Weight > 1 {
		return fmt.Errorf("config: search.hybrid.weight must be within [0,1]")
	}
	switch c.VectorStore.Backend {
	case "", "primary", "fallback":
	default:
		return fmt.Errorf("config: vector_store.backend must be \"primary\" or \"fallback\"")
	}
	return nil
}

// SaveToPath writes the configuration to a YAML file, creating parent
// directories as needed.
func (c *Config) SaveToPath(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: create config directory: %w", err)
	}
	v := viper.New()
	v.SetConfigType("yaml")
	for k, val := range toSettingsMap(c) {
		v.Set(k, val)
	}
	return v.WriteConfigAs(path)
}

// toSettingsMap flattens Config into viper dotted keys matching spec §6's
// option names, so a saved default file reads as documentation.
func toSettingsMap(c *Config) map[string]any {
	return map[string]any{
		"embedding.provider":           c.Embedding.Provider,
		"embedding.model":              c.Embedding.Model,
		"embedding.dimension":          c.Embedding.Dimension,
		"vector_store.backend":         c.VectorStore.Backend,
		"vector_store.collection":      c.VectorStore.Collection,
		"vector_store.primary.kind":    c.VectorStore.Primary.Kind,
		"vector_store.primary.host":    c.VectorStore.Primary.Host,
		"vector_store.primary.port":    c.VectorStore.Primary.Port,
		"vector_store.primary.use_tls": c.VectorStore.Primary.UseTLS,
		"vector_store.fallback.kind":   c.VectorStore.Fallback.Kind,
		"vector_store.fallback.path":   c.VectorStore.Fallback.Path,
		"chunking.target_tokens":       c.Chunking.TargetTokens,
		"chunking.max_tokens":          c.Chunking.MaxTokens,
		"chunking.min_tokens":          c.Chunking.MinTokens,
		"chunking.overlap_tokens":      c.Chunking.OverlapTokens,
		"chunking.tokenizer":           c.Chunking.Tokenizer,
		"ingestion.ocr_enabled":        c.Ingestion.OCREnabled,
		"search.rerank.enabled":        c.Search.Rerank.Enabled,
		"search.rerank.model":          c.Search.Rerank.Model,
		"search.hybrid.enabled":        c.Search.Hybrid.Enabled,
		"search.hybrid.weight":         c.Search.Hybrid.Weight,
		"health.latency_threshold_ms":  c.Health.LatencyThresholdMS,
		"logging.level":                c.Logging.Level,
	}
}
