package store

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/brannigan-labs/kbretrieve/chunk"
	"github.com/brannigan-labs/kbretrieve/errs"
)

// QdrantStore is the primary backend (spec §4.3's primary/fallback pair),
// grounded on intelligencedev-manifold's use of github.com/qdrant/go-client
// (not present in the teacher repo; pulled in per "enrich from the rest of
// the pack" since the teacher only ever wired Milvus/chromem).
type QdrantStore struct {
	client *qdrant.Client
	meta   map[string]Collection
}

// QdrantConfig names the connection parameters. Sanitization of error
// messages (spec §7) must never surface URL or APIKey; QDRANT_URL and
// QDRANT_API_KEY are the exact names spec §7's sanitization example names.
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// NewQdrantStore connects to a Qdrant instance. A connection failure here is
// the signal the startup factory (factory.go) uses to decide transient vs
// configuration error class.
func NewQdrantStore(ctx context.Context, cfg QdrantConfig) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, classifyQdrantError(err)
	}
	return &QdrantStore{client: client, meta: make(map[string]Collection)}, nil
}

// classifyQdrantError maps a client-level connection error into the
// transient/configuration split the factory's primary/fallback policy needs
// (spec §4.3): auth failures are configuration errors (fatal, no fallback);
// everything else at startup is treated as transient.
func classifyQdrantError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if containsAny(msg, "unauthenticated", "permission denied", "invalid api key", "401", "403") {
		return errs.Wrap(errs.AuthError, "qdrant.connect", err, "verify QDRANT_URL and QDRANT_API_KEY")
	}
	return errs.Wrap(errs.ConnectionError, "qdrant.connect", err, "verify QDRANT_URL is reachable")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if len(s) >= len(sub) && indexOfFold(s, sub) >= 0 {
			return true
		}
	}
	return false
}

func indexOfFold(s, sub string) int {
	// Lightweight case-insensitive substring search; avoids pulling in
	// strings.ToLower allocations on the hot error path for a rare case.
	n, m := len(s), len(sub)
	for i := 0; i+m <= n; i++ {
		match := true
		for j := 0; j < m; j++ {
			a, b := s[i+j], sub[j]
			if a >= 'A' && a <= 'Z' {
				a += 'a' - 'A'
			}
			if b >= 'A' && b <= 'Z' {
				b += 'a' - 'A'
			}
			if a != b {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func (q *QdrantStore) EnsureCollection(ctx context.Context, name string, dimension int, embeddingModel string) (Collection, error) {
	if existing, ok := q.meta[name]; ok {
		if existing.Dimension != dimension || existing.EmbeddingModel != embeddingModel {
			return Collection{}, errs.New(errs.ConfigError,
				fmt.Sprintf("collection %q dimension/model mismatch", name), "use a distinct collection name per model")
		}
		return existing, nil
	}

	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return Collection{}, errs.Wrap(errs.ConnectionError, "qdrant.collection_exists", err, "verify QDRANT_URL is reachable")
	}
	if !exists {
		err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return Collection{}, errs.Wrap(errs.InternalError, "qdrant.create_collection", err, "")
		}
	}

	meta := Collection{Name: name, Dimension: dimension, EmbeddingModel: embeddingModel, Distance: "cosine", CreatedAt: time.Now()}
	q.meta[name] = meta
	return meta, nil
}

func (q *QdrantStore) Upsert(ctx context.Context, name string, chunks []chunk.Chunk) (int, error) {
	meta, ok := q.meta[name]
	if !ok {
		return 0, errs.New(errs.NotFound, fmt.Sprintf("collection %q not found", name), "call EnsureCollection first")
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, c := range chunks {
		if err := chunk.Validate(c, meta.EmbeddingModel, meta.Dimension); err != nil {
			return len(points), errs.Wrap(errs.InvalidInput, "qdrant.upsert", err, "re-embed the chunk with the collection's declared model")
		}
		payload := qdrantPayload(c)
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(c.ID),
			Vectors: qdrant.NewVectors(toFloat32(c.Embedding)...),
			Payload: payload,
		})
	}

	wait := true
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: name,
		Points:         points,
		Wait:           &wait,
	})
	if err != nil {
		return 0, errs.Wrap(errs.InternalError, "qdrant.upsert", err, "")
	}
	return len(points), nil
}

func (q *QdrantStore) Search(ctx context.Context, name string, queryVector []float64, limit int, filter Filter) ([]Hit, error) {
	qf := qdrantFilter(filter)

	// clause_number prefix matching has no native Qdrant condition; overfetch
	// past the native filter and post-filter in-process, the same way
	// chromem.go and bleve.go handle filters their backend can't translate.
	fetchLimit := limit
	if filter.ClausePrefix != "" {
		fetchLimit = limit * 4
		if fetchLimit < limit+20 {
			fetchLimit = limit + 20
		}
	}
	lim := uint64(fetchLimit)
	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(toFloat32(queryVector)...),
		Filter:         qf,
		Limit:          &lim,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "qdrant.query", err, "")
	}

	hits := make([]Hit, 0, limit)
	for _, r := range results {
		payload := payloadFromQdrant(pointIDString(r.Id), r.Payload)
		if filter.ClausePrefix != "" && !filter.Matches(payload) {
			continue
		}
		hits = append(hits, Hit{ID: pointIDString(r.Id), Score: float64(r.Score), Payload: payload})
		if len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

// SupportsKeywordSearch is false: qdrant's native payload index isn't a
// full-text/BM25 engine in the configuration this store uses. Keyword and
// hybrid search go through HybridStore's bleve sidecar (see hybrid.go).
func (q *QdrantStore) SupportsKeywordSearch() bool { return false }

func (q *QdrantStore) KeywordSearch(ctx context.Context, name string, text string, limit int, filter Filter) ([]Hit, error) {
	return nil, errs.New(errs.InvalidInput, "qdrant backend has no native keyword search", "use the bleve-backed hybrid store")
}

func (q *QdrantStore) HybridSearch(ctx context.Context, name string, queryVector []float64, text string, limit int, filter Filter, weight float64) ([]Hit, error) {
	return nil, errs.New(errs.InvalidInput, "qdrant backend has no native hybrid search", "use the bleve-backed hybrid store")
}

func (q *QdrantStore) Count(ctx context.Context, name string, filter Filter) (int, error) {
	if filter.ClausePrefix != "" {
		// Qdrant's Count has no payload readback to post-filter against, and
		// no native prefix-match condition for clause_number; fail with a
		// typed error rather than silently return an unfiltered count (spec
		// §4.3 "unsupported combinations fail with a typed error").
		return 0, errs.New(errs.InvalidInput, "qdrant backend cannot count by clause_number prefix", "filter by document_id/chunk_type/normative/document_type instead, or use semantic_search with the clause filter")
	}
	qf := qdrantFilter(filter)
	exact := true
	resp, err := q.client.Count(ctx, &qdrant.CountPoints{CollectionName: name, Filter: qf, Exact: &exact})
	if err != nil {
		return 0, errs.Wrap(errs.InternalError, "qdrant.count", err, "")
	}
	return int(resp), nil
}

func (q *QdrantStore) Health(ctx context.Context) (HealthStatus, error) {
	start := time.Now()
	_, err := q.client.HealthCheck(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return HealthStatus{Status: "unhealthy", LatencyMs: latency, Backend: "qdrant"}, classifyQdrantError(err)
	}
	return HealthStatus{Status: "healthy", LatencyMs: latency, Backend: "qdrant"}, nil
}

func (q *QdrantStore) DeleteDocument(ctx context.Context, name string, documentID string) (int, error) {
	before, _ := q.Count(ctx, name, Filter{DocumentIDs: []string{documentID}})
	qf := qdrantFilter(Filter{DocumentIDs: []string{documentID}})
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: name,
		Points:         qdrant.NewPointsSelectorFilter(qf),
	})
	if err != nil {
		return 0, errs.Wrap(errs.InternalError, "qdrant.delete", err, "")
	}
	return before, nil
}

func qdrantPayload(c chunk.Chunk) map[string]*qdrant.Value {
	m := encodeMetadata(c)
	out := make(map[string]*qdrant.Value, len(m)+1)
	out["content"] = qdrant.NewValueString(c.Content)
	for k, v := range m {
		out[k] = qdrant.NewValueString(v)
	}
	return out
}

func payloadFromQdrant(id string, payload map[string]*qdrant.Value) chunk.Chunk {
	m := make(map[string]string, len(payload))
	content := ""
	for k, v := range payload {
		if k == "content" {
			content = v.GetStringValue()
			continue
		}
		m[k] = v.GetStringValue()
	}
	return decodeMetadata(id, content, m)
}

// qdrantFilter translates the equality/set-membership part of Filter into
// native Qdrant Must conditions. ClausePrefix has no native prefix-match
// condition and is deliberately left untranslated here; Search applies it via
// Filter.Matches against the returned payload instead, and Count rejects a
// ClausePrefix filter with a typed error.
func qdrantFilter(f Filter) *qdrant.Filter {
	if f.Empty() {
		return nil
	}
	var must []*qdrant.Condition
	if len(f.DocumentIDs) > 0 {
		must = append(must, qdrant.NewMatchKeywords("document_id", f.DocumentIDs...))
	}
	if len(f.ChunkTypes) > 0 {
		vals := make([]string, len(f.ChunkTypes))
		for i, t := range f.ChunkTypes {
			vals[i] = string(t)
		}
		must = append(must, qdrant.NewMatchKeywords("chunk_type", vals...))
	}
	if len(f.Normative) > 0 {
		vals := make([]string, len(f.Normative))
		for i, n := range f.Normative {
			vals[i] = string(n)
		}
		must = append(must, qdrant.NewMatchKeywords("normative", vals...))
	}
	if len(f.DocumentTypes) > 0 {
		vals := make([]string, len(f.DocumentTypes))
		for i, t := range f.DocumentTypes {
			vals[i] = string(t)
		}
		must = append(must, qdrant.NewMatchKeywords("document_type", vals...))
	}
	return &qdrant.Filter{Must: must}
}

func pointIDString(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return fmt.Sprintf("%d", id.GetNum())
}
