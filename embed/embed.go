// Package embed implements the Embedder contract of spec §4.2: text to
// fixed-dimension vector, with batching, retry, and declared model identity.
//
// Grounded on rag/providers/openai.go (teilomillet-raggo) for the remote
// HTTP shape, and reconciles the donor's two parallel interfaces
// (rag/providers/register.go's single-text Embedder and separate batch
// Provider) into this one contract.
package embed

import (
	"context"
)

// Embedder is implemented by Remote and Local. No component introspects the
// concrete type; the search and ingestion layers hold only this interface.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	Dimension() int
	ModelIdentity() string
}

// dimensionTable maps known OpenAI-compatible model names to their output
// dimension, grounded on rag/providers/openai.go's GetDimension switch.
var dimensionTable = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

func dimensionFor(model string) int {
	if d, ok := dimensionTable[model]; ok {
		return d
	}
	return 1536
}
