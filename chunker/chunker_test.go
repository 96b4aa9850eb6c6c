package chunker

import (
	"context"
	"strings"
	"testing"

	kchunk "github.com/brannigan-labs/kbretrieve/chunk"
	"github.com/brannigan-labs/kbretrieve/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func meta() DocumentMeta {
	return DocumentMeta{DocumentID: "doc-1", DocumentTitle: "Handbook", DocumentType: kchunk.DocStandard}
}

func TestChunkRejectsMissingDocumentID(t *testing.T) {
	c := New()
	_, err := c.Chunk(context.Background(), DocumentMeta{}, nil)
	require.Error(t, err)
}

func TestChunkAssignsSectionHierarchy(t *testing.T) {
	elements := []ingest.Element{
		{Kind: ingest.SectionHeader, Text: "Scope", Level: 1},
		{Kind: ingest.SectionHeader, Text: "Definitions", Level: 2},
		{Kind: ingest.Paragraph, Text: "A widget is any load-bearing component.", Page: 1},
	}
	c := New()
	chunks, err := c.Chunk(context.Background(), meta(), elements)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"Scope", "Definitions"}, chunks[0].SectionHierarchy)
}

func TestChunkPopsSectionStackOnSiblingHeader(t *testing.T) {
	elements := []ingest.Element{
		{Kind: ingest.SectionHeader, Text: "Part A", Level: 1},
		{Kind: ingest.SectionHeader, Text: "Sub A.1", Level: 2},
		{Kind: ingest.Paragraph, Text: "Content under A.1."},
		{Kind: ingest.SectionHeader, Text: "Part B", Level: 1},
		{Kind: ingest.Paragraph, Text: "Content under B."},
	}
	c := New()
	chunks, err := c.Chunk(context.Background(), meta(), elements)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, []string{"Part A", "Sub A.1"}, chunks[0].SectionHierarchy)
	assert.Equal(t, []string{"Part B"}, chunks[1].SectionHierarchy)
}

func TestChunkClassifiesNormativeContent(t *testing.T) {
	elements := []ingest.Element{
		{Kind: ingest.Paragraph, Text: "The operator MUST verify the seal before opening the vessel."},
	}
	c := New()
	chunks, err := c.Chunk(context.Background(), meta(), elements)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, kchunk.NormativeYes, chunks[0].Normative)
}

func TestChunkClassifiesInformativeContent(t *testing.T) {
	elements := []ingest.Element{
		{Kind: ingest.Paragraph, Text: "NOTE: this section is provided for background only."},
	}
	c := New()
	chunks, err := c.Chunk(context.Background(), meta(), elements)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, kchunk.NormativeNo, chunks[0].Normative)
}

func TestChunkClassifiesUnknownContentWithNoMarker(t *testing.T) {
	elements := []ingest.Element{
		{Kind: ingest.Paragraph, Text: "This document describes the general layout of the facility."},
	}
	c := New()
	chunks, err := c.Chunk(context.Background(), meta(), elements)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, kchunk.NormativeUnknown, chunks[0].Normative)
}

func TestChunkSectionMarkerOverridesTokenEvidence(t *testing.T) {
	elements := []ingest.Element{
		{Kind: ingest.SectionHeader, Text: "Appendix A (informative)", Level: 1},
		{Kind: ingest.Paragraph, Text: "The operator MUST verify the seal before opening the vessel."},
	}
	c := New()
	chunks, err := c.Chunk(context.Background(), meta(), elements)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, kchunk.NormativeNo, chunks[0].Normative, "a section-level marker overrides token-level evidence")
}

func TestChunkSplitsTableIntoRowGroupsSharingTableGroupID(t *testing.T) {
	header := []string{"Field", "Type", "Required"}
	var rows [][]string
	for i := 0; i < 200; i++ {
		rows = append(rows, []string{"field_name_that_is_reasonably_long", "string value describing the field in detail", "yes, mandatory for all requests"})
	}
	elements := []ingest.Element{
		{Kind: ingest.SectionHeader, Text: "Schema", Level: 1},
		{Kind: ingest.Table, HeaderRow: header, Rows: rows, Page: 3, Caption: "Table 1: Field definitions"},
	}
	p := DefaultParams()
	p.MaxTokens = 200
	c := New(WithParams(p))
	chunks, err := c.Chunk(context.Background(), meta(), elements)
	require.NoError(t, err)
	require.True(t, len(chunks) > 1, "a large table must split into multiple row groups")

	groupID := chunks[0].TableGroupID
	require.NotEmpty(t, groupID)
	for _, ch := range chunks {
		assert.Equal(t, kchunk.Table, ch.ChunkType)
		assert.Equal(t, groupID, ch.TableGroupID, "all row groups from one table share a table_group_id")
		assert.Equal(t, header, ch.HeaderRow, "header row is replicated into every group")
	}
	assert.Contains(t, chunks[0].Content, "Table 1: Field definitions", "the caption travels with the first part of a split table")
	assert.NotContains(t, chunks[1].Content, "Table 1: Field definitions", "the caption must not be duplicated into later parts")
}

func TestChunkOverlapPrependsTailOfPreviousChunk(t *testing.T) {
	long := strings.Repeat("alpha beta gamma delta epsilon zeta eta theta iota kappa. ", 40)
	elements := []ingest.Element{
		{Kind: ingest.Paragraph, Text: long},
		{Kind: ingest.Paragraph, Text: strings.Repeat("lambda mu nu xi omicron pi. ", 40)},
	}
	p := DefaultParams()
	p.MaxTokens = 60
	p.MinTokens = 5
	p.OverlapTokens = 10
	c := New(WithParams(p))
	chunks, err := c.Chunk(context.Background(), meta(), elements)
	require.NoError(t, err)
	require.True(t, len(chunks) >= 2)
	assert.Contains(t, chunks[1].Content, p.OverlapSeparator)
}

func TestChunkMergesUndersizedChunksWithinSameSection(t *testing.T) {
	elements := []ingest.Element{
		{Kind: ingest.SectionHeader, Text: "Notes", Level: 1},
		{Kind: ingest.Paragraph, Text: "Short."},
		{Kind: ingest.Paragraph, Text: "Also short."},
	}
	p := DefaultParams()
	p.MinTokens = 50
	c := New(WithParams(p))
	chunks, err := c.Chunk(context.Background(), meta(), elements)
	require.NoError(t, err)
	require.Len(t, chunks, 1, "both undersized paragraphs in the same section merge into one chunk")
	assert.Contains(t, chunks[0].Content, "Short.")
	assert.Contains(t, chunks[0].Content, "Also short.")
}

func TestChunkDeterministicIDs(t *testing.T) {
	elements := []ingest.Element{
		{Kind: ingest.Paragraph, Text: "Identical content produces identical ids."},
	}
	c := New()
	a, err := c.Chunk(context.Background(), meta(), elements)
	require.NoError(t, err)
	b, err := c.Chunk(context.Background(), meta(), elements)
	require.NoError(t, err)
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, a[0].ID, b[0].ID)
}

func TestSplitSentencesIgnoresPeriodsInsideQuotes(t *testing.T) {
	sentences := splitSentences(`She said "Do it now." Then left.`)
	require.Len(t, sentences, 2)
	assert.Equal(t, `She said "Do it now."`, sentences[0])
}

func TestSplitSentencesIgnoresAbbreviations(t *testing.T) {
	sentences := splitSentences("Dr. Smith arrived. The meeting began.")
	require.Len(t, sentences, 2, "the abbreviation's period must not itself split a sentence")
	assert.Equal(t, "Dr. Smith arrived.", sentences[0])
	assert.Equal(t, "The meeting began.", sentences[1])
}
