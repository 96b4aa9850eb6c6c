package chunker

import (
	"strings"

	kchunk "github.com/brannigan-labs/kbretrieve/chunk"
	"github.com/brannigan-labs/kbretrieve/tokenizer"
)

// applyOverlap prepends each prose chunk with the tail of the previous
// chunk, joined by OverlapSeparator (spec §4.5 "Overlap"). Table chunks
// never receive or contribute overlap text: splicing prose into a table
// row group, or a row group into the next prose chunk, would corrupt both.
func applyOverlap(p Params, counter tokenizer.Counter, drafts []draftChunk) []draftChunk {
	if p.OverlapTokens <= 0 || len(drafts) < 2 {
		return drafts
	}
	out := make([]draftChunk, len(drafts))
	copy(out, drafts)

	for i := 1; i < len(out); i++ {
		if out[i].chunkType == kchunk.Table || out[i-1].chunkType == kchunk.Table {
			continue
		}
		tail := tailTokens(out[i-1].text, counter, p.OverlapTokens)
		if tail == "" {
			continue
		}
		out[i].text = tail + "\n" + p.OverlapSeparator + "\n" + out[i].text
	}
	return out
}

// tailTokens returns the trailing portion of text containing approximately
// n tokens, cut on a word boundary.
func tailTokens(text string, counter tokenizer.Counter, n int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	lo, hi := 0, len(words)
	for lo < hi {
		mid := (lo + hi) / 2
		candidate := strings.Join(words[mid:], " ")
		if counter.Count(candidate) > n {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return strings.Join(words[lo:], " ")
}
