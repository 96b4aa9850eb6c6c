package chunker

import "strings"

// commonAbbreviations lists leading-word abbreviations whose trailing period
// must never be read as a sentence boundary, even when followed by a
// capitalized word.
var commonAbbreviations = map[string]bool{
	"dr": true, "mr": true, "mrs": true, "ms": true, "prof": true,
	"fig": true, "no": true, "vs": true, "etc": true, "e.g": true, "i.e": true,
	"st": true, "jr": true, "sr": true,
}

// splitSentences breaks text into sentences, quote-aware: a period inside
// a quoted span never ends a sentence early. Grounded on rag/chunk.go's
// SmartSentenceSplitter (teilomillet-raggo, teacher), kept nearly as-is
// since it already does exactly what spec §4.5's sentence-boundary
// fallback needs.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	inQuotes := false

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		switch r {
		case '"', '\'':
			inQuotes = !inQuotes
			// A closing quote right after terminal punctuation ends the
			// sentence, keeping the quote with it.
			if inQuotes || i == 0 || !strings.ContainsRune(".!?", runes[i-1]) {
				continue
			}
			if i+1 < len(runes) && !isSentenceBoundary(runes, i) {
				continue
			}
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		case '.', '!', '?':
			if inQuotes {
				continue
			}
			if i+1 < len(runes) && !isSentenceBoundary(runes, i) {
				continue
			}
			if r == '.' && endsWithAbbreviation(current.String()) {
				continue
			}
			s := strings.TrimSpace(current.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// isSentenceBoundary rejects "3.5", "e.g. the", and similar non-terminal
// periods by requiring the punctuation be followed by whitespace then an
// uppercase letter (or end of input). Abbreviations followed by a
// capitalized word ("Dr. Smith") pass this check; endsWithAbbreviation
// rejects those.
func isSentenceBoundary(runes []rune, i int) bool {
	j := i + 1
	for j < len(runes) && runes[j] == ' ' {
		j++
	}
	if j >= len(runes) {
		return true
	}
	next := runes[j]
	if j == i+1 {
		// No whitespace followed the punctuation: not a boundary (e.g. "3.5").
		return false
	}
	return next >= 'A' && next <= 'Z'
}

// endsWithAbbreviation checks whether the word immediately preceding the
// trailing period just written to current is a known abbreviation.
func endsWithAbbreviation(current string) bool {
	trimmed := strings.TrimSuffix(strings.TrimSpace(current), ".")
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return false
	}
	last := strings.ToLower(fields[len(fields)-1])
	return commonAbbreviations[last]
}
