package store

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

// Qdrant point ids must be UUIDs or positive integers, so a deterministic
// UUID is derived from the caller's id and the original id is carried in the
// payload under payloadIDField.
const payloadIDField = "_original_id"

type qdrantVector struct {
	client     *qdrant.Client
	collection string
	dimension  int
	metric     string
}

// NewQdrantVector constructs a VectorStore for a single collection (one per
// document kind, per §3.3) backed by Qdrant's gRPC API (default port 6334).
// An API key may be passed as a DSN query parameter:
// "http://localhost:6334?api_key=...".
func NewQdrantVector(dsn, collection string, dimensions int, metric string) (VectorStore, error) {
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse qdrant dsn: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	portStr := u.Port()
	if portStr == "" {
		portStr = "6334"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant dsn: %w", err)
	}
	cfg := &qdrant.Config{Host: host, Port: port}
	if u.Scheme == "https" {
		cfg.UseTLS = true
	}
	if apiKey := u.Query().Get("api_key"); apiKey != "" {
		cfg.APIKey = apiKey
	}
	client, err := qdrant.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	qv := &qdrantVector{client: client, collection: collection, dimension: dimensions, metric: strings.ToLower(strings.TrimSpace(metric))}
	if err := qv.ensureCollection(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure collection %q: %w", collection, err)
	}
	return qv, nil
}

func (q *qdrantVector) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("check collection exists: %w", err)
	}
	if exists {
		return nil
	}
	var distance qdrant.Distance
	switch q.metric {
	case "l2", "euclidean", "euclid":
		distance = qdrant.Distance_Euclid
	case "ip", "dot":
		distance = qdrant.Distance_Dot
	case "manhattan":
		distance = qdrant.Distance_Manhattan
	default:
		distance = qdrant.Distance_Cosine
	}
	if q.dimension <= 0 {
		return fmt.Errorf("qdrant requires dimensions > 0")
	}
	return q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimension),
			Distance: distance,
		}),
	})
}

func pointUUID(id string) string {
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

func (q *qdrantVector) Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error {
	uuidStr := pointUUID(id)
	payloadAny := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		payloadAny[k] = v
	}
	if uuidStr != id {
		payloadAny[payloadIDField] = id
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	points := []*qdrant.PointStruct{{
		Id:      qdrant.NewIDUUID(uuidStr),
		Vectors: qdrant.NewVectorsDense(vec),
		Payload: qdrant.NewValueMap(payloadAny),
	}}
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{CollectionName: q.collection, Points: points})
	return err
}

func (q *qdrantVector) Delete(ctx context.Context, id string) error {
	pointID := qdrant.NewIDUUID(pointUUID(id))
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelector(pointID),
	})
	return err
}

func (q *qdrantVector) SimilaritySearch(ctx context.Context, vector []float32, k int, filter map[string]string) ([]VectorResult, error) {
	if k <= 0 {
		k = 10
	}
	vec := make([]float32, len(vector))
	copy(vec, vector)
	var queryFilter *qdrant.Filter
	if len(filter) > 0 {
		must := make([]*qdrant.Condition, 0, len(filter))
		for fk, fv := range filter {
			must = append(must, qdrant.NewMatch(fk, fv))
		}
		queryFilter = &qdrant.Filter{Must: must}
	}
	limit := uint64(k)
	hits, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQueryDense(vec),
		Limit:          &limit,
		Filter:         queryFilter,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}
	return toResults(hits), nil
}

// Scroll lists every payload in the collection, required to (re)build the
// in-memory BM25 index (§4.6) without a separate full-text store.
func (q *qdrantVector) Scroll(ctx context.Context, limit int) ([]VectorResult, error) {
	req := &qdrant.ScrollPoints{
		CollectionName: q.collection,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if limit > 0 {
		l := uint32(limit)
		req.Limit = &l
	}
	points, err := q.client.Scroll(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("scroll collection %q: %w", q.collection, err)
	}
	out := make([]VectorResult, 0, len(points))
	for _, p := range points {
		out = append(out, scrolledResult(p))
	}
	return out, nil
}

func (q *qdrantVector) Dimension() int { return q.dimension }
func (q *qdrantVector) Close() error  { return q.client.Close() }

func toResults(hits []*qdrant.ScoredPoint) []VectorResult {
	out := make([]VectorResult, 0, len(hits))
	for _, hit := range hits {
		id, metadata := decodePayload(hit.Id, hit.Payload)
		out = append(out, VectorResult{ID: id, Score: float64(hit.Score), Metadata: metadata})
	}
	return out
}

func scrolledResult(p *qdrant.RetrievedPoint) VectorResult {
	id, metadata := decodePayload(p.Id, p.Payload)
	return VectorResult{ID: id, Metadata: metadata}
}

func decodePayload(pointID *qdrant.PointId, payload map[string]*qdrant.Value) (string, map[string]string) {
	uuidStr := pointID.GetUuid()
	if uuidStr == "" {
		uuidStr = pointID.String()
	}
	metadata := make(map[string]string, len(payload))
	var originalID string
	for k, v := range payload {
		if k == payloadIDField {
			originalID = v.GetStringValue()
			continue
		}
		metadata[k] = v.GetStringValue()
	}
	id := originalID
	if id == "" {
		id = uuidStr
	}
	return id, metadata
}
