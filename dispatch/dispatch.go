// Package dispatch implements the Tool Dispatcher of spec §4.8: a small,
// fixed set of tools with strict input schemas, validated before the
// searcher is ever called, and a structured success/error envelope that
// never leaks credentials, URLs with keys, or stack traces.
//
// Grounded on other_examples/0deef59f_neoden-mykb__mcp-tools.go.go's
// InputSchema/handler-map pattern (the only place in the pack showing the
// exact tool-schema-plus-handler shape this spec describes): each tool is a
// map entry unmarshaling json.RawMessage into a params struct, validating
// required fields, and returning a plain map result.
package dispatch

import (
	"context"
	"encoding/json"

	"github.com/brannigan-labs/kbretrieve/chunk"
	"github.com/brannigan-labs/kbretrieve/errs"
	"github.com/brannigan-labs/kbretrieve/search"
	"github.com/brannigan-labs/kbretrieve/store"
)

// Tool names (spec §4.8 table). Names are contracts: callers match on
// these, never on Description text.
const (
	ToolKnowledgeSearch          = "knowledge_search"
	ToolKnowledgeKeywordSearch   = "knowledge_keyword_search"
	ToolKnowledgeLookup          = "knowledge_lookup"
	ToolKnowledgeRequirements    = "knowledge_requirements"
	ToolKnowledgeStats           = "knowledge_stats"
	ToolKnowledgeHealth          = "knowledge_health"
)

const (
	defaultK = 10
	minK     = 1
	maxK     = 50
)

// Envelope is the tool-call response shape of spec §6: on success Results
// (search tools) or Metadata (stats and health) is populated; on failure
// IsError and Error are; never both.
type Envelope struct {
	Results  []search.Result `json:"results,omitempty"`
	Metadata map[string]any  `json:"metadata,omitempty"`
	IsError  bool            `json:"isError,omitempty"`
	Error    *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody is the error branch of Envelope, preserving error_code,
// recoverable, and a sanitized suggestion (spec §4.8 "Dispatch algorithm").
type ErrorBody struct {
	Code       errs.Code `json:"code"`
	Message    string    `json:"message"`
	Recoverable bool     `json:"recoverable"`
	Suggestion string    `json:"suggestion,omitempty"`
}

// filterInput is the shared filter shape accepted by search/requirements
// tools, translated into store.Filter.
type filterInput struct {
	DocumentIDs   []string `json:"document_ids,omitempty"`
	DocumentTypes []string `json:"document_types,omitempty"`
	ChunkTypes    []string `json:"chunk_types,omitempty"`
	ClausePrefix  string   `json:"clause_prefix,omitempty"`
}

func (f filterInput) toStoreFilter() store.Filter {
	sf := store.Filter{DocumentIDs: f.DocumentIDs, ClausePrefix: f.ClausePrefix}
	for _, dt := range f.DocumentTypes {
		sf.DocumentTypes = append(sf.DocumentTypes, chunk.DocumentType(dt))
	}
	for _, ct := range f.ChunkTypes {
		sf.ChunkTypes = append(sf.ChunkTypes, chunk.Type(ct))
	}
	return sf
}

// Handler is a single tool's implementation: unmarshal args, validate,
// call the searcher, return a result payload (never an *errs.Error — those
// are surfaced through the returned error so Dispatch can map them once,
// centrally, per spec §4.8).
type Handler func(ctx context.Context, s *search.Searcher, args json.RawMessage) (any, error)

// Registry maps tool names to handlers, the same shape the grounding
// source uses for its tools map.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds a Registry with the six fixed tools registered.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	r.handlers[ToolKnowledgeSearch] = handleKnowledgeSearch
	r.handlers[ToolKnowledgeKeywordSearch] = handleKnowledgeKeywordSearch
	r.handlers[ToolKnowledgeLookup] = handleKnowledgeLookup
	r.handlers[ToolKnowledgeRequirements] = handleKnowledgeRequirements
	r.handlers[ToolKnowledgeStats] = handleKnowledgeStats
	r.handlers[ToolKnowledgeHealth] = handleKnowledgeHealth
	return r
}

// Names returns the registered tool names, for schema listing.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// Dispatch validates and routes a tool call, converting any thrown typed
// error into the Envelope's error branch (spec §4.8 "Dispatch algorithm").
// This is the sole place in the repo that performs that conversion.
func (r *Registry) Dispatch(ctx context.Context, s *search.Searcher, tool string, args json.RawMessage) Envelope {
	handler, ok := r.handlers[tool]
	if !ok {
		return errorEnvelope(errs.New(errs.InvalidInput, "unknown tool "+tool, "use one of the six knowledge_* tools"))
	}

	result, err := handler(ctx, s, args)
	if err != nil {
		return errorEnvelope(err)
	}

	switch v := result.(type) {
	case []search.Result:
		return Envelope{Results: v}
	default:
		meta := map[string]any{"data": v}
		return Envelope{Metadata: meta}
	}
}

func errorEnvelope(err error) Envelope {
	kerr, ok := errs.As(err)
	if !ok {
		kerr = errs.New(errs.InternalError, sanitize(err.Error()), "retry later; contact support if this persists")
	}
	return Envelope{
		IsError: true,
		Error: &ErrorBody{
			Code:        kerr.Code,
			Message:     sanitize(kerr.Message),
			Recoverable: kerr.Recoverable(),
			Suggestion:  sanitize(kerr.Suggestion),
		},
	}
}

// clampK applies the default (10) and bounds (1..50) spec §4.8 names for
// knowledge_search's k parameter, shared by every tool that accepts one.
func clampK(k int) int {
	if k == 0 {
		return defaultK
	}
	if k < minK {
		return minK
	}
	if k > maxK {
		return maxK
	}
	return k
}
