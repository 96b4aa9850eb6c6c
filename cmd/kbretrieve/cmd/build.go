package cmd

import (
	"context"
	"fmt"

	"github.com/brannigan-labs/kbretrieve/config"
	"github.com/brannigan-labs/kbretrieve/embed"
	"github.com/brannigan-labs/kbretrieve/internal/klog"
	"github.com/brannigan-labs/kbretrieve/rerank"
	"github.com/brannigan-labs/kbretrieve/search"
	"github.com/brannigan-labs/kbretrieve/store"
)

// buildComponents wires the embedder and vector store shared by both the
// ingestion path and the query path (spec §2 "Control flow": both begin
// with the same Embedder, and both read/write the same collection).
// EnsureCollection is called once here so every caller sees the same
// collection identity snapshot (spec §5 "read once at request start").
func buildComponents(ctx context.Context, cfg *config.Config, logger klog.Logger) (embed.Embedder, store.Store, error) {
	embedder, err := embed.New(embed.Config{
		Provider:  cfg.Embedding.Provider,
		Model:     cfg.Embedding.Model,
		APIKey:    cfg.Embedding.APIKey,
		Dimension: cfg.Embedding.Dimension,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build embedder: %w", err)
	}

	st, err := store.NewFactory(ctx, store.Config{
		Backend:       cfg.VectorStore.Backend,
		PrimaryKind:   cfg.VectorStore.Primary.Kind,
		PrimaryHost:   cfg.VectorStore.Primary.Host,
		PrimaryPort:   cfg.VectorStore.Primary.Port,
		PrimaryAPIKey: cfg.VectorStore.Primary.APIKey,
		PrimaryUseTLS: cfg.VectorStore.Primary.UseTLS,
		FallbackKind:  cfg.VectorStore.Fallback.Kind,
		FallbackPath:  cfg.VectorStore.Fallback.Path,
		Logger:        logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build vector store: %w", err)
	}

	if _, err := st.EnsureCollection(ctx, cfg.VectorStore.Collection, embedder.Dimension(), embedder.ModelIdentity()); err != nil {
		return nil, nil, fmt.Errorf("ensure collection: %w", err)
	}
	return embedder, st, nil
}

// buildSearcher composes a search.Searcher over buildComponents' embedder
// and store, adding the optional reranker named by search.rerank.* (spec
// §4.6/§4.7).
func buildSearcher(ctx context.Context, cfg *config.Config, logger klog.Logger) (*search.Searcher, store.Store, error) {
	embedder, st, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	var reranker rerank.Reranker = rerank.NoneReranker{}
	if cfg.Search.Rerank.Enabled {
		if cfg.Search.Rerank.Model != "" && cfg.Search.Rerank.APIKey != "" {
			reranker = rerank.NewRemoteCrossEncoder(cfg.Search.Rerank.Model, cfg.Search.Rerank.APIKey)
		} else {
			reranker = rerank.NewLocalCrossEncoder()
		}
	}

	searcher := search.New(embedder, st, cfg.VectorStore.Collection,
		search.WithReranker(reranker),
		search.WithLogger(logger),
	)
	return searcher, st, nil
}
