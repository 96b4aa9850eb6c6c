package store

import (
	"strconv"
	"strings"

	"github.com/brannigan-labs/kbretrieve/chunk"
)

// encodeMetadata serializes every chunk field but the embedding into a
// string-keyed payload, satisfying spec §4.1's "Serialization to and from
// the vector store's payload format is lossless for all scalar and
// hierarchy fields" and spec §6's "payload carrying every chunk field
// except embedding". chromem stores the map as document metadata; qdrant
// stores each entry as a string payload value and milvus as a varchar column
// (see qdrant.go, milvus.go).
func encodeMetadata(c chunk.Chunk) map[string]string {
	m := map[string]string{
		"content_hash":     c.ContentHash,
		"token_count":      strconv.Itoa(c.TokenCount),
		"document_id":      c.DocumentID,
		"document_title":   c.DocumentTitle,
		"document_version": c.DocumentVersion,
		"document_type":    string(c.DocumentType),
		"section_hierarchy": strings.Join(c.SectionHierarchy, "\x1f"),
		"clause_number":    c.ClauseNumber,
		"page_numbers":     joinInts(c.PageNumbers),
		"chunk_type":       string(c.ChunkType),
		"normative":        string(c.Normative),
		"header_row":       strings.Join(c.HeaderRow, "\x1f"),
		"table_group_id":   c.TableGroupID,
		"embedding_model":  c.EmbeddingModel,
		"ordinal":          strconv.Itoa(c.Ordinal),
	}
	return m
}

func decodeMetadata(id, content string, m map[string]string) chunk.Chunk {
	tokenCount, _ := strconv.Atoi(m["token_count"])
	ordinal, _ := strconv.Atoi(m["ordinal"])
	var hierarchy []string
	if h := m["section_hierarchy"]; h != "" {
		hierarchy = strings.Split(h, "\x1f")
	}
	var headerRow []string
	if h := m["header_row"]; h != "" {
		headerRow = strings.Split(h, "\x1f")
	}
	return chunk.Chunk{
		ID:               id,
		Content:          content,
		ContentHash:      m["content_hash"],
		TokenCount:       tokenCount,
		DocumentID:       m["document_id"],
		DocumentTitle:    m["document_title"],
		DocumentVersion:  m["document_version"],
		DocumentType:     chunk.DocumentType(m["document_type"]),
		SectionHierarchy: hierarchy,
		ClauseNumber:     m["clause_number"],
		PageNumbers:      splitInts(m["page_numbers"]),
		ChunkType:        chunk.Type(m["chunk_type"]),
		Normative:        chunk.Normative(m["normative"]),
		HeaderRow:        headerRow,
		TableGroupID:     m["table_group_id"],
		EmbeddingModel:   m["embedding_model"],
		Ordinal:          ordinal,
	}
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}

func splitInts(s string) []int {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		if n, err := strconv.Atoi(p); err == nil {
			out = append(out, n)
		}
	}
	return out
}
