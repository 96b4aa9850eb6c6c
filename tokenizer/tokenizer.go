// Package tokenizer provides the token counting used by the chunker and the
// ingest command. Consolidated out of the donor's
// duplicated whitespace-counting in chunker.go and rag/chunk.go.
package tokenizer

import (
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens in a string using some declared scheme.
type Counter interface {
	Count(text string) int
	// Identity names the tokenizer (the chunking.tokenizer option's
	// encoding, or "whitespace").
	Identity() string
}

// WhitespaceCounter is a dependency-free fallback: tokens are whitespace-
// separated fields. Used only when no tiktoken encoding is available.
type WhitespaceCounter struct{}

func (WhitespaceCounter) Count(text string) int {
	return len(strings.Fields(text))
}

func (WhitespaceCounter) Identity() string { return "whitespace" }

// TikTokenCounter wraps github.com/pkoukk/tiktoken-go. Construction is
// memoized per encoding name since building a BPE encoder is not free and
// the chunker calls Count per element.
type TikTokenCounter struct {
	encoding string
	enc      *tiktoken.Tiktoken
}

var tiktokenCache sync.Map // encoding name -> *tiktoken.Tiktoken

// NewTikTokenCounter builds a counter for the named encoding (e.g.
// "cl100k_base"). Falls back to WhitespaceCounter semantics if the encoding
// cannot be loaded, so a Chunker never fails to construct over a tokenizer
// problem.
func NewTikTokenCounter(encoding string) Counter {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	if cached, ok := tiktokenCache.Load(encoding); ok {
		return &TikTokenCounter{encoding: encoding, enc: cached.(*tiktoken.Tiktoken)}
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return WhitespaceCounter{}
	}
	tiktokenCache.Store(encoding, enc)
	return &TikTokenCounter{encoding: encoding, enc: enc}
}

func (t *TikTokenCounter) Count(text string) int {
	if t.enc == nil {
		return len(strings.Fields(text))
	}
	return len(t.enc.Encode(text, nil, nil))
}

func (t *TikTokenCounter) Identity() string { return "tiktoken/" + t.encoding }
