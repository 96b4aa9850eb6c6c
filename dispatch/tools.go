package dispatch

import (
	"context"
	"encoding/json"

	"github.com/brannigan-labs/kbretrieve/chunk"
	"github.com/brannigan-labs/kbretrieve/errs"
	"github.com/brannigan-labs/kbretrieve/search"
)

type searchArgs struct {
	Query  string      `json:"query"`
	K      int         `json:"k"`
	Filter filterInput `json:"filter"`
	Rerank bool        `json:"rerank"`
}

func handleKnowledgeSearch(ctx context.Context, s *search.Searcher, raw json.RawMessage) (any, error) {
	var args searchArgs
	if err := unmarshalArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Query == "" {
		return nil, errs.New(errs.InvalidInput, "query is required", "provide a non-empty query string")
	}
	return s.SemanticSearch(ctx, args.Query, clampK(args.K), args.Filter.toStoreFilter(), args.Rerank)
}

func handleKnowledgeKeywordSearch(ctx context.Context, s *search.Searcher, raw json.RawMessage) (any, error) {
	var args searchArgs
	if err := unmarshalArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Query == "" {
		return nil, errs.New(errs.InvalidInput, "query is required", "provide a non-empty query string")
	}
	return s.KeywordSearch(ctx, args.Query, clampK(args.K), args.Filter.toStoreFilter())
}

type lookupArgs struct {
	Term string `json:"term"`
}

func handleKnowledgeLookup(ctx context.Context, s *search.Searcher, raw json.RawMessage) (any, error) {
	var args lookupArgs
	if err := unmarshalArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Term == "" {
		return nil, errs.New(errs.InvalidInput, "term is required", "provide the term to look up")
	}
	return s.Lookup(ctx, args.Term, defaultK)
}

// handleKnowledgeRequirements is knowledge_search with an implicit
// normative=normative filter layered on top of the caller's own filter
// (spec §4.8 table).
func handleKnowledgeRequirements(ctx context.Context, s *search.Searcher, raw json.RawMessage) (any, error) {
	var args searchArgs
	if err := unmarshalArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Query == "" {
		return nil, errs.New(errs.InvalidInput, "query is required", "provide a non-empty query string")
	}
	filter := args.Filter.toStoreFilter()
	filter.Normative = []chunk.Normative{chunk.NormativeYes}
	return s.SemanticSearch(ctx, args.Query, clampK(args.K), filter, args.Rerank)
}

func handleKnowledgeStats(ctx context.Context, s *search.Searcher, raw json.RawMessage) (any, error) {
	return s.Stats(ctx)
}

func handleKnowledgeHealth(ctx context.Context, s *search.Searcher, raw json.RawMessage) (any, error) {
	return s.Health(ctx)
}

// unmarshalArgs decodes raw into dst, reporting malformed input as
// invalid_input rather than letting a json.SyntaxError escape raw (spec
// §4.8: "Validate against the schema; on failure emit a structured error
// with error_code=invalid_input").
func unmarshalArgs(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errs.Wrap(errs.InvalidInput, "dispatch.unmarshal", err, "check the tool call arguments match the input schema")
	}
	return nil
}
