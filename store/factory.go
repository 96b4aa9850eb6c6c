package store

import (
	"context"

	"github.com/brannigan-labs/kbretrieve/errs"
	"github.com/brannigan-labs/kbretrieve/internal/klog"
)

// Config selects and configures the vector store backend(s) at startup,
// mirroring spec §6's vector_store.* configuration surface.
type Config struct {
	Backend string // "primary" or "fallback", explicit selection; "" = auto

	PrimaryKind    string // "qdrant" (the only remote primary wired)
	PrimaryHost    string
	PrimaryPort    int
	PrimaryAPIKey  string
	PrimaryUseTLS  bool

	FallbackKind string // "chromem" (embedded local) or "milvus"
	FallbackPath string // chromem local path, or milvus address

	Logger klog.Logger
}

// NewFactory builds the primary backend and applies spec §4.3's
// primary/fallback policy: a transient health-check failure at startup
// falls back to the secondary; a configuration error (bad credentials, bad
// URL, dimension mismatch with an existing collection) is fatal and never
// triggers fallback. An explicit Backend of "primary" never falls back. The
// chosen backend is logged and reported by the returned Store's Health().
func NewFactory(ctx context.Context, cfg Config) (Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = klog.Global
	}

	if cfg.Backend == "fallback" {
		fb, err := buildFallback(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("vector store: explicit fallback backend selected", "backend", cfg.FallbackKind)
		return NewHybridStore(fb), nil
	}

	primary, err := buildPrimary(ctx, cfg)
	if err != nil {
		kerr, ok := errs.As(err)
		if ok && !kerr.Recoverable() {
			// Configuration-class errors (auth, bad URL) are fatal: no
			// fallback (spec §4.3).
			logger.Error("vector store: primary backend failed with a configuration error, not falling back", "error", err.Error())
			return nil, err
		}
		if cfg.Backend == "primary" {
			logger.Error("vector store: explicitly selected primary backend unavailable, not falling back", "error", err.Error())
			return nil, err
		}
		logger.Warn("vector store: primary backend unavailable at startup, falling back", "error", err.Error())
		fb, ferr := buildFallback(ctx, cfg)
		if ferr != nil {
			return nil, ferr
		}
		return NewHybridStore(fb), nil
	}

	hs := NewHybridStore(primary)
	status, herr := hs.Health(ctx)
	if herr != nil || status.Status == "unhealthy" {
		kerr, ok := errs.As(herr)
		if ok && !kerr.Recoverable() {
			logger.Error("vector store: primary backend health check failed with a configuration error, not falling back", "error", herr.Error())
			return nil, herr
		}
		if cfg.Backend == "primary" {
			logger.Error("vector store: explicitly selected primary backend failed health check, not falling back", "error", herr)
			if herr == nil {
				herr = errs.New(errs.ConnectionError, "primary vector store reported unhealthy", "verify QDRANT_URL is reachable")
			}
			return nil, herr
		}
		logger.Warn("vector store: primary backend failed health check at startup, falling back", "error", herr)
		fb, ferr := buildFallback(ctx, cfg)
		if ferr != nil {
			return nil, ferr
		}
		return NewHybridStore(fb), nil
	}

	logger.Info("vector store: primary backend healthy", "backend", cfg.PrimaryKind)
	return hs, nil
}

func buildPrimary(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.PrimaryKind {
	case "", "qdrant":
		if cfg.PrimaryHost == "" {
			return nil, errs.New(errs.ConfigError, "vector_store.primary.host is required", "set QDRANT_URL")
		}
		return NewQdrantStore(ctx, QdrantConfig{
			Host:   cfg.PrimaryHost,
			Port:   cfg.PrimaryPort,
			APIKey: cfg.PrimaryAPIKey,
			UseTLS: cfg.PrimaryUseTLS,
		})
	default:
		return nil, errs.New(errs.ConfigError, "unknown vector_store.primary.kind", "use \"qdrant\"")
	}
}

func buildFallback(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.FallbackKind {
	case "", "chromem":
		return NewChromemStore(cfg.FallbackPath)
	case "milvus":
		return NewMilvusStore(ctx, cfg.FallbackPath)
	default:
		return nil, errs.New(errs.ConfigError, "unknown vector_store.fallback.kind", "use \"chromem\" or \"milvus\"")
	}
}
