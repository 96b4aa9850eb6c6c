package chunk

import (
	"fmt"
	"regexp"
)

// clauseNumberRe matches dotted clause notation like "4.2.3.1" (spec §3:
// `\d+(\.\d+){0,4}`).
var clauseNumberRe = regexp.MustCompile(`^\d+(\.\d+){0,4}$`)

// Validate checks the store-boundary invariants (I1) against a collection's
// declared model and dimension. The store calls this on every Upsert;
// Chunker-time construction cannot know the collection's identity yet.
func Validate(c Chunk, collectionModel string, collectionDimension int) error {
	if c.EmbeddingModel != collectionModel {
		return &mismatchError{field: "embedding_model", got: c.EmbeddingModel, want: collectionModel}
	}
	if len(c.Embedding) != collectionDimension {
		return &dimensionError{got: len(c.Embedding), want: collectionDimension}
	}
	return nil
}

type mismatchError struct{ field, got, want string }

func (e *mismatchError) Error() string {
	return "chunk: " + e.field + " mismatch: got " + e.got + ", collection requires " + e.want
}

type dimensionError struct{ got, want int }

func (e *dimensionError) Error() string {
	return fmt.Sprintf("chunk: embedding dimension mismatch: got %d, collection requires %d", e.got, e.want)
}
