// Package cmd implements the kbretrieve CLI: a thin cobra binding over
// config, ingestion, and the MCP tool surface. The outer protocol transport
// itself (stdio framing, JSON-RPC envelope) is an explicit Non-goal of the
// spec (§1); this file does the minimal work of registering the six
// dispatch tools with github.com/modelcontextprotocol/go-sdk and handing
// control to its own Run loop.
//
// Grounded on Aman-CERP-amanmcp's internal/mcp/server.go: mcp.NewServer +
// mcp.AddTool registration, one generic (ctx, req, input) -> (result,
// output, error) handler per tool, Serve(ctx, transport) switching on
// "stdio".
package cmd

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brannigan-labs/kbretrieve/dispatch"
	"github.com/brannigan-labs/kbretrieve/search"
)

// mcpOutput is the JSON shape returned for every tool: the dispatcher's own
// Envelope, unpacked into whatever output schema the SDK expects. The MCP
// SDK wants a concrete output type per tool for its schema generation, but
// since every tool already funnels through the same Envelope, a single
// passthrough type is enough; the interesting schema lives in
// dispatch.Envelope/search.Result, not duplicated here.
type mcpOutput struct {
	Results  []search.Result `json:"results,omitempty"`
	Metadata map[string]any  `json:"metadata,omitempty"`
	IsError  bool            `json:"isError,omitempty"`
	Error    *dispatch.ErrorBody `json:"error,omitempty"`
}

func fromEnvelope(e dispatch.Envelope) mcpOutput {
	return mcpOutput{Results: e.Results, Metadata: e.Metadata, IsError: e.IsError, Error: e.Error}
}

// searchToolInput is the input schema shared by knowledge_search,
// knowledge_keyword_search, and knowledge_requirements (spec §4.8 table).
type searchToolInput struct {
	Query  string       `json:"query" jsonschema:"the natural-language query to search for"`
	K      int          `json:"k,omitempty" jsonschema:"number of results to return, default 10, 1..50"`
	Filter filterSchema `json:"filter,omitempty" jsonschema:"optional metadata filters"`
	Rerank bool         `json:"rerank,omitempty" jsonschema:"apply cross-encoder reranking to the overfetched candidates"`
}

type filterSchema struct {
	DocumentIDs   []string `json:"document_ids,omitempty" jsonschema:"restrict to these document ids"`
	DocumentTypes []string `json:"document_types,omitempty" jsonschema:"restrict to these document types"`
	ChunkTypes    []string `json:"chunk_types,omitempty" jsonschema:"restrict to these chunk types"`
	ClausePrefix  string   `json:"clause_prefix,omitempty" jsonschema:"restrict to clause numbers with this dotted prefix"`
}

type lookupToolInput struct {
	Term string `json:"term" jsonschema:"the term to look up a definition for"`
}

type emptyInput struct{}

// mcpBridge binds a dispatch.Registry and a search.Searcher into the
// MCP SDK's tool registration surface.
type mcpBridge struct {
	registry *dispatch.Registry
	searcher *search.Searcher
}

func newMCPBridge(registry *dispatch.Registry, searcher *search.Searcher) *mcpBridge {
	return &mcpBridge{registry: registry, searcher: searcher}
}

func (b *mcpBridge) register(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        dispatch.ToolKnowledgeSearch,
		Description: "Semantic search over the ingested knowledge base. Returns ranked chunks with document/section/clause/page citations.",
	}, b.handleSearch(dispatch.ToolKnowledgeSearch))

	mcp.AddTool(server, &mcp.Tool{
		Name:        dispatch.ToolKnowledgeKeywordSearch,
		Description: "Sparse/keyword search over the ingested knowledge base, for exact-term lookups the embedder would miss.",
	}, b.handleSearch(dispatch.ToolKnowledgeKeywordSearch))

	mcp.AddTool(server, &mcp.Tool{
		Name:        dispatch.ToolKnowledgeRequirements,
		Description: "Semantic search restricted to normative (SHALL/MUST/REQUIRED/SHOULD/RECOMMENDED) content.",
	}, b.handleSearch(dispatch.ToolKnowledgeRequirements))

	mcp.AddTool(server, &mcp.Tool{
		Name:        dispatch.ToolKnowledgeLookup,
		Description: "Definition-oriented search restricted to chunk_type=definition.",
	}, b.handleLookup())

	mcp.AddTool(server, &mcp.Tool{
		Name:        dispatch.ToolKnowledgeStats,
		Description: "Collection inventory: chunk/document counts by type and normative status.",
	}, b.handleNoArgs(dispatch.ToolKnowledgeStats))

	mcp.AddTool(server, &mcp.Tool{
		Name:        dispatch.ToolKnowledgeHealth,
		Description: "Vector store backend health: status, latency, and which backend (primary/fallback) is serving traffic.",
	}, b.handleNoArgs(dispatch.ToolKnowledgeHealth))
}

func (b *mcpBridge) handleSearch(tool string) func(context.Context, *mcp.CallToolRequest, searchToolInput) (*mcp.CallToolResult, mcpOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input searchToolInput) (*mcp.CallToolResult, mcpOutput, error) {
		raw, err := json.Marshal(input)
		if err != nil {
			return nil, mcpOutput{}, err
		}
		env := b.registry.Dispatch(ctx, b.searcher, tool, raw)
		return nil, fromEnvelope(env), nil
	}
}

func (b *mcpBridge) handleLookup() func(context.Context, *mcp.CallToolRequest, lookupToolInput) (*mcp.CallToolResult, mcpOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input lookupToolInput) (*mcp.CallToolResult, mcpOutput, error) {
		raw, err := json.Marshal(input)
		if err != nil {
			return nil, mcpOutput{}, err
		}
		env := b.registry.Dispatch(ctx, b.searcher, dispatch.ToolKnowledgeLookup, raw)
		return nil, fromEnvelope(env), nil
	}
}

func (b *mcpBridge) handleNoArgs(tool string) func(context.Context, *mcp.CallToolRequest, emptyInput) (*mcp.CallToolResult, mcpOutput, error) {
	return func(ctx context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, mcpOutput, error) {
		env := b.registry.Dispatch(ctx, b.searcher, tool, nil)
		return nil, fromEnvelope(env), nil
	}
}
