package chunker

import (
	"strconv"
	"strings"

	kchunk "github.com/brannigan-labs/kbretrieve/chunk"
	"github.com/brannigan-labs/kbretrieve/ingest"
	"github.com/brannigan-labs/kbretrieve/tokenizer"
)

// draftChunk is a chunk under construction: everything chunk.New needs,
// plus the section-stack context used for clause inheritance and normative
// classification after accumulation finishes.
type draftChunk struct {
	text      string
	chunkType kchunk.Type
	pages     map[int]bool

	sectionHierarchy       []string
	sectionClauses         []string
	sectionNormativeMarker kchunk.Normative
	clauseNumber           string

	// Table only.
	headerRow    []string
	tableGroupID string
}

// sectionFrame is one level of the section stack (spec §4.5 "Section
// tracking").
type sectionFrame struct {
	level     int
	title     string
	clause    string
	normative kchunk.Normative
}

// accumulate walks elements, maintaining a section stack, and emits one
// draftChunk per section/table-group boundary or whenever adding the next
// element would exceed MaxTokens. Boundary preference (spec §4.5 "Boundary
// preference": section > paragraph > sentence > token) is implemented by
// never splitting inside a paragraph unless a single paragraph alone
// exceeds MaxTokens, in which case sentence splitting takes over.
func accumulate(p Params, counter tokenizer.Counter, elements []ingest.Element) []draftChunk {
	var stack []sectionFrame
	var out []draftChunk

	buf := newBuffer()
	tableGroupSeq := 0

	flush := func() {
		if buf.empty() {
			return
		}
		out = append(out, buf.toDraft(stack))
		buf = newBuffer()
	}

	for _, el := range elements {
		switch el.Kind {
		case ingest.SectionHeader:
			flush()
			for len(stack) > 0 && stack[len(stack)-1].level >= el.Level {
				stack = stack[:len(stack)-1]
			}
			// A heading's own (normative)/(informative) marker overrides
			// token-level evidence for everything nested under it (spec I4);
			// absent a marker, the nearest enclosing section's override
			// still applies to its descendants.
			marker := extractSectionMarker(el.Text)
			if marker == kchunk.NormativeUnknown && len(stack) > 0 {
				marker = stack[len(stack)-1].normative
			}
			stack = append(stack, sectionFrame{level: el.Level, title: el.Text, clause: el.ClauseNumber, normative: marker})
			continue

		case ingest.Table:
			flush()
			tableGroupSeq++
			out = append(out, tableDrafts(p, counter, el, stack, tableGroupSeq)...)
			continue
		}

		text := el.Text
		if el.Kind == ingest.ListItem {
			text = "- " + text
		}
		if el.Kind == ingest.CodeBlock {
			text = "```\n" + text + "\n```"
		}

		segmentTokens := counter.Count(text)
		if segmentTokens > p.MaxTokens {
			// A single element larger than MaxTokens must itself be split
			// at sentence boundaries (spec §4.5 boundary preference falls
			// through section > paragraph to sentence here).
			flush()
			for _, sentence := range splitSentences(text) {
				addSentence(&buf, p, counter, sentence, el, stack, &out, &flush)
			}
			continue
		}

		if !buf.empty() && buf.tokens+segmentTokens > p.MaxTokens {
			flush()
		}
		buf.add(text, segmentTokens, el, classifyElementType(el))
	}
	flush()
	return out
}

func addSentence(buf **chunkBuffer, p Params, counter tokenizer.Counter, sentence string, el ingest.Element, stack []sectionFrame, out *[]draftChunk, flush *func()) {
	tok := counter.Count(sentence)
	if !(*buf).empty() && (*buf).tokens+tok > p.MaxTokens {
		(*flush)()
	}
	(*buf).add(sentence, tok, el, classifyElementType(el))
}

func classifyElementType(el ingest.Element) kchunk.Type {
	switch el.Kind {
	case ingest.ListItem:
		return kchunk.List
	case ingest.CodeBlock:
		return kchunk.Code
	case ingest.FigureCaption:
		return kchunk.FigureCaption
	default:
		return kchunk.Prose
	}
}

// chunkBuffer accumulates text segments belonging to a single draft chunk.
type chunkBuffer struct {
	parts     []string
	tokens    int
	pages     map[int]bool
	chunkType kchunk.Type
	typeSet   bool
}

func newBuffer() *chunkBuffer {
	return &chunkBuffer{pages: make(map[int]bool), chunkType: kchunk.Prose}
}

func (b *chunkBuffer) empty() bool { return len(b.parts) == 0 }

func (b *chunkBuffer) add(text string, tokens int, el ingest.Element, t kchunk.Type) {
	b.parts = append(b.parts, text)
	b.tokens += tokens
	if el.Page > 0 {
		b.pages[el.Page] = true
	}
	if !b.typeSet {
		b.chunkType = t
		b.typeSet = true
	} else if b.chunkType != t {
		b.chunkType = kchunk.Prose
	}
}

func (b *chunkBuffer) toDraft(stack []sectionFrame) draftChunk {
	hierarchy := make([]string, 0, len(stack))
	clauses := make([]string, 0, len(stack))
	for _, f := range stack {
		hierarchy = append(hierarchy, f.title)
		if f.clause != "" {
			clauses = append(clauses, f.clause)
		}
	}
	return draftChunk{
		text:                   strings.Join(b.parts, "\n\n"),
		chunkType:              b.chunkType,
		pages:                  b.pages,
		sectionHierarchy:       hierarchy,
		sectionClauses:         clauses,
		sectionNormativeMarker: sectionMarker(stack),
	}
}

// sectionMarker returns the nearest enclosing section's normative override,
// or kchunk.NormativeUnknown if no ancestor section carries one.
func sectionMarker(stack []sectionFrame) kchunk.Normative {
	if len(stack) == 0 {
		return kchunk.NormativeUnknown
	}
	return stack[len(stack)-1].normative
}

// tableDrafts splits a table element into row-group drafts per spec §4.5
// "Table handling": each group stays under MaxTokens, the header row is
// replicated into every group, and all groups from the same source table
// share TableGroupID so downstream consumers can reassemble the table.
func tableDrafts(p Params, counter tokenizer.Counter, el ingest.Element, stack []sectionFrame, groupSeq int) []draftChunk {
	hierarchy := make([]string, 0, len(stack))
	clauses := make([]string, 0, len(stack))
	for _, f := range stack {
		hierarchy = append(hierarchy, f.title)
		if f.clause != "" {
			clauses = append(clauses, f.clause)
		}
	}
	groupID := kchunk.HashContent(strconv.Itoa(groupSeq) + "|" + strings.Join(el.HeaderRow, "|"))[:12]

	headerLine := strings.Join(el.HeaderRow, " | ")
	var drafts []draftChunk
	var rows []string
	rowsTokens := counter.Count(headerLine)
	pages := map[int]bool{}
	if el.Page > 0 {
		pages[el.Page] = true
	}
	if el.PageEnd > 0 {
		pages[el.PageEnd] = true
	}

	marker := sectionMarker(stack)

	flushGroup := func() {
		if len(rows) == 0 {
			return
		}
		text := headerLine + "\n" + strings.Join(rows, "\n")
		drafts = append(drafts, draftChunk{
			text:                   text,
			chunkType:              kchunk.Table,
			pages:                  pages,
			sectionHierarchy:       hierarchy,
			sectionClauses:         clauses,
			sectionNormativeMarker: marker,
			headerRow:              el.HeaderRow,
			tableGroupID:           groupID,
		})
		rows = nil
		rowsTokens = counter.Count(headerLine)
	}

	for _, row := range el.Rows {
		line := strings.Join(row, " | ")
		lineTokens := counter.Count(line)
		if rowsTokens+lineTokens > p.MaxTokens && len(rows) > 0 {
			flushGroup()
		}
		rows = append(rows, line)
		rowsTokens += lineTokens
	}
	flushGroup()

	if len(drafts) == 0 {
		// An empty table still gets one chunk carrying just the header, so
		// its existence and hierarchy position aren't silently dropped.
		drafts = append(drafts, draftChunk{
			text:                   headerLine,
			chunkType:              kchunk.Table,
			pages:                  pages,
			sectionHierarchy:       hierarchy,
			sectionClauses:         clauses,
			sectionNormativeMarker: marker,
			headerRow:              el.HeaderRow,
			tableGroupID:           groupID,
		})
	}

	// I2: the table's caption, if any, travels with the first part (S2).
	if el.Caption != "" && len(drafts) > 0 {
		drafts[0].text = el.Caption + "\n\n" + drafts[0].text
	}
	return drafts
}
