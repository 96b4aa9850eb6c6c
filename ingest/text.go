package ingest

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// TextIngestor handles plain text and Markdown sources, grounded on
// rag/parse.go's TextParser (a single os.ReadFile), extended with the same
// line-classification heuristics PDFIngestor uses so both producers emit
// the same Element shapes into the chunker.
type TextIngestor struct{}

func NewTextIngestor() *TextIngestor { return &TextIngestor{} }

func (t *TextIngestor) Ingest(ctx context.Context, path string) ([]Element, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("text: read %s: %w", path, err)
	}

	var elements []Element
	inCodeFence := false
	var codeLines []string

	for _, line := range strings.Split(string(raw), "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			if inCodeFence {
				elements = append(elements, Element{Kind: CodeBlock, Text: strings.Join(codeLines, "\n")})
				codeLines = nil
			}
			inCodeFence = !inCodeFence
			continue
		}
		if inCodeFence {
			codeLines = append(codeLines, line)
			continue
		}
		if trimmed == "" {
			continue
		}

		if level, text, ok := markdownHeading(trimmed); ok {
			elements = append(elements, Element{Kind: SectionHeader, Text: text, Level: level})
			continue
		}
		elements = append(elements, classifyLine(trimmed, 1))
	}
	return elements, nil
}

func markdownHeading(line string) (level int, text string, ok bool) {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n == 0 || n > 6 || n >= len(line) || line[n] != ' ' {
		return 0, "", false
	}
	return n, strings.TrimSpace(line[n+1:]), true
}
