package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/brannigan-labs/kbretrieve/errs"
	"github.com/brannigan-labs/kbretrieve/internal/klog"
)

// maxBatchPerCall is the provider's own batch limit; RemoteEmbedder chunks
// oversized EmbedBatch calls and stitches results back together in order,
// per spec §4.2's "internally chunks oversized calls and stitches results".
const maxBatchPerCall = 256

// RemoteEmbedder calls an external embedding HTTP API. Concurrency-safe: it
// holds no mutable state beyond an *http.Client and a rate limiter, both
// themselves safe for concurrent use (spec §4.2 "no shared mutable state
// exposed").
type RemoteEmbedder struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	logger     klog.Logger
}

// RemoteOption configures a RemoteEmbedder.
type RemoteOption func(*RemoteEmbedder)

func WithHTTPClient(c *http.Client) RemoteOption { return func(r *RemoteEmbedder) { r.httpClient = c } }
func WithMaxRetries(n int) RemoteOption          { return func(r *RemoteEmbedder) { r.maxRetries = n } }
func WithEndpoint(url string) RemoteOption       { return func(r *RemoteEmbedder) { r.endpoint = url } }
func WithLogger(l klog.Logger) RemoteOption      { return func(r *RemoteEmbedder) { r.logger = l } }

// NewRemoteEmbedder constructs a RemoteEmbedder for model, authenticating
// with apiKey. Retry pacing uses a token-bucket limiter (golang.org/x/time,
// a teacher indirect dependency) rather than a bare sleep loop.
func NewRemoteEmbedder(model, apiKey string, opts ...RemoteOption) *RemoteEmbedder {
	r := &RemoteEmbedder{
		endpoint:   "https://api.openai.com/v1/embeddings",
		apiKey:     apiKey,
		model:      model,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		maxRetries: 5,
		logger:     klog.Global,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RemoteEmbedder) Dimension() int        { return dimensionFor(r.model) }
func (r *RemoteEmbedder) ModelIdentity() string { return r.model + "@remote" }

func (r *RemoteEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vectors, err := r.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch preserves input order (spec §4.2 guarantee) even when the input
// spans multiple provider-capped calls.
func (r *RemoteEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatchPerCall {
		end := start + maxBatchPerCall
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := r.embedWithRetry(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (r *RemoteEmbedder) embedWithRetry(ctx context.Context, texts []string) ([][]float64, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, errs.Wrap(errs.TimeoutError, "embed.retry_wait", err, "the query was cancelled while backing off")
			}
			backoff := time.Duration(math.Pow(2, float64(attempt))) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, errs.Wrap(errs.TimeoutError, "embed.backoff", ctx.Err(), "retry the request")
			case <-time.After(backoff):
			}
		}

		vectors, err := r.call(ctx, texts)
		if err == nil {
			return vectors, nil
		}

		kerr, _ := errs.As(err)
		if kerr == nil || !kerr.Recoverable() {
			return nil, err
		}
		lastErr = err
		r.logger.Warn("embed: transient failure, retrying", "attempt", attempt, "error", err.Error())
	}
	return nil, errs.Wrap(errs.InternalError, "embed.retries_exhausted", lastErr, "the embedding service is unavailable, try again later")
}

type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (r *RemoteEmbedder) call(ctx context.Context, texts []string) ([][]float64, error) {
	body, err := json.Marshal(embedRequest{Input: texts, Model: r.model})
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "embed.marshal", err, "")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "embed.build_request", err, "")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.ConnectionError, "embed.request", err, "verify network connectivity to the embedding endpoint")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ConnectionError, "embed.read_response", err, "")
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, errs.New(errs.RateLimited, "embedding provider rate limited the request", "reduce request rate or raise the provider quota")
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errs.New(errs.AuthError, "embedding provider rejected credentials", "verify the embedding API key")
	case resp.StatusCode >= 500:
		return nil, errs.New(errs.ConnectionError, fmt.Sprintf("embedding provider returned %d", resp.StatusCode), "retry later")
	case resp.StatusCode >= 400:
		return nil, errs.New(errs.InvalidInput, "embedding provider rejected the request", "check input text length and encoding")
	}

	var parsed embedResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, errs.Wrap(errs.InternalError, "embed.unmarshal", err, "")
	}
	if parsed.Error != nil {
		return nil, errs.New(errs.InternalError, parsed.Error.Message, "")
	}

	vectors := make([][]float64, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			continue
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}
