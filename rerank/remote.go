package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/brannigan-labs/kbretrieve/errs"
	"github.com/brannigan-labs/kbretrieve/internal/klog"
)

// RemoteCrossEncoder calls an external rerank HTTP API. Grounded on
// rag/providers/openai.go's request/response/error-mapping shape
// (teilomillet-raggo, teacher), adapted from an embedding payload to a
// query+documents rerank payload.
type RemoteCrossEncoder struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     klog.Logger
}

type RemoteOption func(*RemoteCrossEncoder)

func WithHTTPClient(c *http.Client) RemoteOption { return func(r *RemoteCrossEncoder) { r.httpClient = c } }
func WithEndpoint(url string) RemoteOption       { return func(r *RemoteCrossEncoder) { r.endpoint = url } }
func WithLogger(l klog.Logger) RemoteOption      { return func(r *RemoteCrossEncoder) { r.logger = l } }

func NewRemoteCrossEncoder(model, apiKey string, opts ...RemoteOption) *RemoteCrossEncoder {
	r := &RemoteCrossEncoder{
		endpoint:   "https://api.cohere.ai/v1/rerank",
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     klog.Global,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RemoteCrossEncoder) Identity() string { return r.model + "@remote" }

type rerankRequest struct {
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	Model     string   `json:"model"`
	TopN      int      `json:"top_n"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

func (r *RemoteCrossEncoder) Rerank(ctx context.Context, query string, candidates []Candidate, topK int) ([]Candidate, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	docs := make([]string, len(candidates))
	for i, c := range candidates {
		docs[i] = c.Text
	}

	body, err := json.Marshal(rerankRequest{Query: query, Documents: docs, Model: r.model, TopN: topK})
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "rerank.marshal", err, "")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "rerank.build_request", err, "")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.ConnectionError, "rerank.request", err, "verify network connectivity to the rerank endpoint")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ConnectionError, "rerank.read_response", err, "")
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errs.New(errs.RateLimited, "rerank provider rate limited the request", "reduce request rate or raise the provider quota")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errs.New(errs.AuthError, "rerank provider rejected credentials", "verify the rerank API key")
	case resp.StatusCode >= 500:
		return nil, errs.New(errs.ConnectionError, fmt.Sprintf("rerank provider returned %d", resp.StatusCode), "retry later")
	case resp.StatusCode >= 400:
		return nil, errs.New(errs.InvalidInput, "rerank provider rejected the request", "check candidate text length")
	}

	var parsed rerankResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, errs.Wrap(errs.InternalError, "rerank.unmarshal", err, "")
	}

	out := make([]Candidate, 0, len(parsed.Results))
	for _, res := range parsed.Results {
		if res.Index < 0 || res.Index >= len(candidates) {
			continue
		}
		c := candidates[res.Index]
		c.Score = res.RelevanceScore
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topK > 0 && topK < len(out) {
		out = out[:topK]
	}
	return out, nil
}
