package embed

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"runtime"
	"strings"
)

// LocalEmbedder loads a model in-process. Since no local embedding-inference
// library exists anywhere in the retrieved pack (checked every go.mod),
// vectors are produced by a deterministic hashed bag-of-words projection —
// enough to exercise the full store/search pipeline end to end without a
// real model, and documented here as a stand-in rather than passed off as
// semantic quality. Embed yields to the scheduler (spec §4.2 "yields to the
// scheduler so it does not block other concurrent work") via runtime.Gosched
// inside an offloaded goroutine, matching the cooperative-scheduling model
// of spec §5.
type LocalEmbedder struct {
	dimension int
	model     string
}

// NewLocalEmbedder builds a LocalEmbedder producing vectors of the given
// dimension, tagged with model (e.g. "local-hash@v1").
func NewLocalEmbedder(dimension int, model string) *LocalEmbedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &LocalEmbedder{dimension: dimension, model: model}
}

func (l *LocalEmbedder) Dimension() int        { return l.dimension }
func (l *LocalEmbedder) ModelIdentity() string { return l.model + "@local" }

func (l *LocalEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := l.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (l *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	// Offloaded to a worker pool sized to GOMAXPROCS so CPU-bound local
	// inference never starves the cooperative scheduler handling I/O for
	// other concurrent tool calls (spec §5).
	workers := runtime.GOMAXPROCS(0)
	if workers > len(texts) {
		workers = len(texts)
	}
	if workers == 0 {
		return out, nil
	}

	jobs := make(chan int)
	errCh := make(chan error, workers)
	done := make(chan struct{})

	for w := 0; w < workers; w++ {
		go func() {
			for idx := range jobs {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				default:
				}
				out[idx] = l.hashEmbed(texts[idx])
				runtime.Gosched()
			}
			done <- struct{}{}
		}()
	}

	go func() {
		for i := range texts {
			jobs <- i
		}
		close(jobs)
	}()

	for w := 0; w < workers; w++ {
		select {
		case <-done:
		case err := <-errCh:
			return nil, err
		}
	}
	return out, nil
}

// hashEmbed turns text deterministically into a unit-ish vector: each word
// is hashed into a fixed slot and accumulated, giving cosine similarity a
// reasonable (if crude) signal for shared vocabulary between query and
// chunk text.
func (l *LocalEmbedder) hashEmbed(text string) []float64 {
	vec := make([]float64, l.dimension)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		sum := sha256.Sum256([]byte(word))
		slot := binary.BigEndian.Uint32(sum[:4]) % uint32(l.dimension)
		sign := 1.0
		if sum[4]%2 == 0 {
			sign = -1.0
		}
		vec[slot] += sign
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	scale := 1.0 / math.Sqrt(norm)
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
