package embed

import "fmt"

// Config selects and configures an Embedder at startup, mirroring the
// embedding.* configuration surface of spec §6.
type Config struct {
	Provider string // "remote" or "local"
	Model    string
	APIKey   string
	// Dimension sets the "local" vector size (384 when zero or negative);
	// "remote" derives it from Model and ignores this field.
	Dimension int
}

// New builds the configured Embedder. Unknown providers are a configuration
// error, not a runtime fallback target (embedder selection is not part of
// the store's primary/fallback policy).
func New(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "", "remote":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embed: remote provider requires an API key")
		}
		return NewRemoteEmbedder(cfg.Model, cfg.APIKey), nil
	case "local":
		return NewLocalEmbedder(cfg.Dimension, cfg.Model), nil
	default:
		return nil, fmt.Errorf("embed: unknown provider %q", cfg.Provider)
	}
}
