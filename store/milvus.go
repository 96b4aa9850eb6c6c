package store

import (
	"context"
	"fmt"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/brannigan-labs/kbretrieve/chunk"
	"github.com/brannigan-labs/kbretrieve/errs"
)

// MilvusStore is the alternative fallback backend (vector_store.fallback.kind=
// milvus, with vector_store.fallback.path as its address), grounded on
// rag/milvus.go (teilomillet-raggo, teacher),
// adapted to the Store interface defined in store.go. The donor's
// vectordb.go wrapper had method signatures that did not match
// rag/vector_interface.go's VectorDB interface; this rewrite uses one single
// signature set throughout, fixing that inconsistency rather than copying
// it forward.
type MilvusStore struct {
	client client.Client
	meta   map[string]Collection
}

const (
	fieldID      = "id"
	fieldContent = "content"
	fieldVector  = "vector"
)

// NewMilvusStore connects to a Milvus instance at address.
func NewMilvusStore(ctx context.Context, address string) (*MilvusStore, error) {
	c, err := client.NewClient(ctx, client.Config{Address: address})
	if err != nil {
		return nil, errs.Wrap(errs.ConnectionError, "milvus.connect", err, "verify the Milvus address is reachable")
	}
	return &MilvusStore{client: c, meta: make(map[string]Collection)}, nil
}

func (m *MilvusStore) EnsureCollection(ctx context.Context, name string, dimension int, embeddingModel string) (Collection, error) {
	if existing, ok := m.meta[name]; ok {
		if existing.Dimension != dimension || existing.EmbeddingModel != embeddingModel {
			return Collection{}, errs.New(errs.ConfigError, fmt.Sprintf("collection %q dimension/model mismatch", name), "use a distinct collection name per model")
		}
		return existing, nil
	}

	has, err := m.client.HasCollection(ctx, name)
	if err != nil {
		return Collection{}, errs.Wrap(errs.ConnectionError, "milvus.has_collection", err, "")
	}
	if !has {
		schema := entity.NewSchema().WithName(name).WithDescription("kbretrieve chunk collection")
		schema.WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64).WithIsPrimaryKey(true))
		schema.WithField(entity.NewField().WithName(fieldContent).WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535))
		schema.WithField(entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dimension)))
		for _, f := range metadataFieldNames() {
			schema.WithField(entity.NewField().WithName(f).WithDataType(entity.FieldTypeVarChar).WithMaxLength(2048))
		}

		if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			return Collection{}, errs.Wrap(errs.InternalError, "milvus.create_collection", err, "")
		}
		idx, err := entity.NewIndexHNSW(entity.COSINE, 16, 64)
		if err != nil {
			return Collection{}, errs.Wrap(errs.InternalError, "milvus.build_index", err, "")
		}
		if err := m.client.CreateIndex(ctx, name, fieldVector, idx, false); err != nil {
			return Collection{}, errs.Wrap(errs.InternalError, "milvus.create_index", err, "")
		}
		if err := m.client.LoadCollection(ctx, name, false); err != nil {
			return Collection{}, errs.Wrap(errs.InternalError, "milvus.load_collection", err, "")
		}
	}

	meta := Collection{Name: name, Dimension: dimension, EmbeddingModel: embeddingModel, Distance: "cosine", CreatedAt: time.Now()}
	m.meta[name] = meta
	return meta, nil
}

// metadataFieldNames lists the chunk payload fields stored as varchar
// columns alongside id/content/vector, matching encodeMetadata's keys.
func metadataFieldNames() []string {
	return []string{
		"content_hash", "token_count", "document_id", "document_title", "document_version",
		"document_type", "section_hierarchy", "clause_number", "page_numbers", "chunk_type",
		"normative", "header_row", "table_group_id", "embedding_model", "ordinal",
	}
}

func (m *MilvusStore) Upsert(ctx context.Context, name string, chunks []chunk.Chunk) (int, error) {
	meta, ok := m.meta[name]
	if !ok {
		return 0, errs.New(errs.NotFound, fmt.Sprintf("collection %q not found", name), "call EnsureCollection first")
	}

	ids := make([]string, 0, len(chunks))
	contents := make([]string, 0, len(chunks))
	vectors := make([][]float32, 0, len(chunks))
	metaCols := make(map[string][]string)
	for _, f := range metadataFieldNames() {
		metaCols[f] = make([]string, 0, len(chunks))
	}

	for _, c := range chunks {
		if err := chunk.Validate(c, meta.EmbeddingModel, meta.Dimension); err != nil {
			return len(ids), errs.Wrap(errs.InvalidInput, "milvus.upsert", err, "re-embed the chunk with the collection's declared model")
		}
		ids = append(ids, c.ID)
		contents = append(contents, c.Content)
		vectors = append(vectors, toFloat32(c.Embedding))
		for k, v := range encodeMetadata(c) {
			metaCols[k] = append(metaCols[k], v)
		}
	}

	columns := []entity.Column{
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnVarChar(fieldContent, contents),
		entity.NewColumnFloatVector(fieldVector, meta.Dimension, vectors),
	}
	for _, f := range metadataFieldNames() {
		columns = append(columns, entity.NewColumnVarChar(f, metaCols[f]))
	}

	if _, err := m.client.Insert(ctx, name, "", columns...); err != nil {
		return 0, errs.Wrap(errs.InternalError, "milvus.insert", err, "")
	}
	if err := m.client.Flush(ctx, name, false); err != nil {
		return 0, errs.Wrap(errs.InternalError, "milvus.flush", err, "")
	}
	return len(ids), nil
}

func (m *MilvusStore) Search(ctx context.Context, name string, queryVector []float64, limit int, filter Filter) ([]Hit, error) {
	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "milvus.search_param", err, "")
	}

	// clause_number prefix matching has no native Milvus boolean-expression
	// form; overfetch past the native filter and post-filter in-process, the
	// same way chromem.go and bleve.go handle filters their backend can't
	// translate.
	fetchLimit := limit
	if filter.ClausePrefix != "" {
		fetchLimit = limit * 4
		if fetchLimit < limit+20 {
			fetchLimit = limit + 20
		}
	}

	outputFields := append([]string{fieldContent}, metadataFieldNames()...)
	results, err := m.client.Search(ctx, name, nil, milvusFilterExpr(filter), outputFields,
		[]entity.Vector{entity.FloatVector(toFloat32(queryVector))}, fieldVector, entity.COSINE, fetchLimit, sp)
	if err != nil {
		return nil, errs.Wrap(errs.InternalError, "milvus.search", err, "")
	}

	var hits []Hit
	for _, rs := range results {
		for i := 0; i < rs.ResultCount; i++ {
			id, _ := rs.IDs.GetAsString(i)
			content := columnString(rs.Fields, fieldContent, i)
			cols := make(map[string]string)
			for _, f := range metadataFieldNames() {
				cols[f] = columnString(rs.Fields, f, i)
			}
			payload := decodeMetadata(id, content, cols)
			if filter.ClausePrefix != "" && !filter.Matches(payload) {
				continue
			}
			hits = append(hits, Hit{ID: id, Score: float64(rs.Scores[i]), Payload: payload})
			if len(hits) >= limit {
				break
			}
		}
	}
	return hits, nil
}

// columnGetter matches the shape of client.SearchResult.Fields (a column
// set exposing GetColumn by name), without depending on its concrete type.
type columnGetter interface {
	GetColumn(name string) entity.Column
}

func columnString(fields columnGetter, name string, i int) string {
	col := fields.GetColumn(name)
	if col == nil {
		return ""
	}
	v, err := col.Get(i)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// SupportsKeywordSearch is false: this backend is used through HybridStore
// for sparse/hybrid (see hybrid.go); Milvus's own sparse-vector support is
// not wired here.
func (m *MilvusStore) SupportsKeywordSearch() bool { return false }

func (m *MilvusStore) KeywordSearch(ctx context.Context, name string, text string, limit int, filter Filter) ([]Hit, error) {
	return nil, errs.New(errs.InvalidInput, "milvus backend has no native keyword search wired", "use the bleve-backed hybrid store")
}

func (m *MilvusStore) HybridSearch(ctx context.Context, name string, queryVector []float64, text string, limit int, filter Filter, weight float64) ([]Hit, error) {
	return nil, errs.New(errs.InvalidInput, "milvus backend has no native hybrid search wired", "use the bleve-backed hybrid store")
}

func (m *MilvusStore) Count(ctx context.Context, name string, filter Filter) (int, error) {
	stats, err := m.client.GetCollectionStatistics(ctx, name)
	if err != nil {
		return 0, errs.Wrap(errs.InternalError, "milvus.stats", err, "")
	}
	n := 0
	fmt.Sscanf(stats["row_count"], "%d", &n)
	return n, nil
}

func (m *MilvusStore) Health(ctx context.Context) (HealthStatus, error) {
	start := time.Now()
	states, err := m.client.CheckHealth(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return HealthStatus{Status: "unhealthy", LatencyMs: latency, Backend: "milvus"}, errs.Wrap(errs.ConnectionError, "milvus.health", err, "verify the Milvus address is reachable")
	}
	if states != nil && !states.IsHealthy {
		return HealthStatus{Status: "degraded", LatencyMs: latency, Backend: "milvus"}, nil
	}
	return HealthStatus{Status: "healthy", LatencyMs: latency, Backend: "milvus"}, nil
}

func (m *MilvusStore) DeleteDocument(ctx context.Context, name string, documentID string) (int, error) {
	before, _ := m.Count(ctx, name, Filter{DocumentIDs: []string{documentID}})
	expr := fmt.Sprintf("%s == %q", "document_id", documentID)
	if err := m.client.Delete(ctx, name, "", expr); err != nil {
		return 0, errs.Wrap(errs.InternalError, "milvus.delete", err, "")
	}
	return before, nil
}

// milvusFilterExpr translates the equality/set-membership part of Filter into
// a Milvus boolean expression. ClausePrefix has no native prefix-match
// expression and is deliberately left untranslated here; callers apply it
// via Filter.Matches against the returned payload instead (see Search).
func milvusFilterExpr(f Filter) string {
	if f.Empty() {
		return ""
	}
	expr := ""
	add := func(clause string) {
		if expr == "" {
			expr = clause
		} else {
			expr += " && " + clause
		}
	}
	if len(f.DocumentIDs) > 0 {
		add(inExpr("document_id", f.DocumentIDs))
	}
	if len(f.ChunkTypes) > 0 {
		vals := make([]string, len(f.ChunkTypes))
		for i, t := range f.ChunkTypes {
			vals[i] = string(t)
		}
		add(inExpr("chunk_type", vals))
	}
	if len(f.Normative) > 0 {
		vals := make([]string, len(f.Normative))
		for i, n := range f.Normative {
			vals[i] = string(n)
		}
		add(inExpr("normative", vals))
	}
	if len(f.DocumentTypes) > 0 {
		vals := make([]string, len(f.DocumentTypes))
		for i, t := range f.DocumentTypes {
			vals[i] = string(t)
		}
		add(inExpr("document_type", vals))
	}
	return expr
}

func inExpr(field string, values []string) string {
	expr := field + " in ["
	for i, v := range values {
		if i > 0 {
			expr += ", "
		}
		expr += fmt.Sprintf("%q", v)
	}
	return expr + "]"
}
