package chunker

import (
	"strings"

	kchunk "github.com/brannigan-labs/kbretrieve/chunk"
	"github.com/brannigan-labs/kbretrieve/tokenizer"
)

// mergeSmallChunks folds undersized chunks into their forward neighbor
// within the same section, provided the merge stays under MaxTokens and
// neither side is a table (spec §4.5 "Small-chunk merging"). A chunk below
// MinTokens survives unmerged only when no eligible neighbor exists —
// typically the last chunk of a short section — which is the single
// per-section exception P1 allows.
func mergeSmallChunks(p Params, counter tokenizer.Counter, drafts []draftChunk) []draftChunk {
	if len(drafts) < 2 {
		return drafts
	}

	merged := make([]draftChunk, 0, len(drafts))
	i := 0
	for i < len(drafts) {
		d := drafts[i]
		tok := counter.Count(d.text)

		if tok < p.MinTokens && d.chunkType != kchunk.Table && i+1 < len(drafts) {
			next := drafts[i+1]
			if next.chunkType != kchunk.Table && sameSection(d.sectionHierarchy, next.sectionHierarchy) {
				combinedText := d.text + "\n\n" + next.text
				if counter.Count(combinedText) <= p.MaxTokens {
					d.text = combinedText
					i += 2
					merged = append(merged, d)
					continue
				}
			}
		}
		i++
		merged = append(merged, d)
	}
	return merged
}

func sameSection(a, b []string) bool {
	return strings.Join(a, "/") == strings.Join(b, "/")
}
