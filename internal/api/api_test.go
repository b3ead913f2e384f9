package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketrag/internal/bm25"
	"ticketrag/internal/cache"
	"ticketrag/internal/embed"
	"ticketrag/internal/generate"
	"ticketrag/internal/govern"
	"ticketrag/internal/obs"
	"ticketrag/internal/ratelimit"
	"ticketrag/internal/rerank"
	"ticketrag/internal/retrieve"
	"ticketrag/internal/service"
	"ticketrag/internal/store"
)

type stubGenerator struct{ reply string }

func (g stubGenerator) Generate(context.Context, []generate.Message, generate.Params) (string, error) {
	return g.reply, nil
}

func buildServer(t *testing.T) *Server {
	t.Helper()
	ctx := context.Background()
	emb := embed.NewDeterministic(16)
	vec := store.NewMemoryVector(16)
	text := "laptop start niet op na bios update"
	v, err := emb.EmbedBatch(ctx, []string{text})
	require.NoError(t, err)
	require.NoError(t, vec.Upsert(ctx, "ticket_1", v[0], map[string]string{
		"text": text, "ticket_number": "T-1", "title": "Laptop start niet op", "entity_id": "1",
	}))
	mgr := bm25.NewManager(map[string]store.VectorStore{"ticket": vec}, 1.5, 0.75)
	require.NoError(t, mgr.RefreshIndex(ctx, "ticket"))

	hybrid := &retrieve.Hybrid{
		Dense:  &retrieve.Dense{Embedder: emb, Stores: map[string]store.VectorStore{"ticket": vec}},
		Sparse: &retrieve.Sparse{Manager: mgr, Payload: func(_, id string) map[string]string { return map[string]string{"text": text} }},
	}
	svc := service.New(hybrid, rerank.New(), nil, stubGenerator{reply: "Zie T-1 voor een vergelijkbaar probleem."}, cache.NewMemory(10), generate.DefaultParams("test-model"), 4000)
	svc.Metrics = obs.NewInMemoryMetrics()

	srv := NewServer(svc)
	srv.Limiter = ratelimit.New(100, time.Minute)
	srv.Gate = govern.NewGate(5)
	return srv
}

func postRagQuery(t *testing.T, srv *Server, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/rag_query", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestRagQueryHappyPath(t *testing.T) {
	srv := buildServer(t)
	rec := postRagQuery(t, srv, map[string]any{"query": "laptop start niet op", "top_k": 5})

	require.Equal(t, http.StatusOK, rec.Code)
	var out ragQueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.Success)
	assert.Contains(t, out.AIAnswer, "T-1")
}

func TestRagQueryRejectsEmptyQuery(t *testing.T) {
	srv := buildServer(t)
	rec := postRagQuery(t, srv, map[string]any{"query": "", "top_k": 5})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRagQueryRejectsTopKOutOfRange(t *testing.T) {
	srv := buildServer(t)
	rec := postRagQuery(t, srv, map[string]any{"query": "laptop", "top_k": 500})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRagQueryRateLimited(t *testing.T) {
	srv := buildServer(t)
	srv.Limiter = ratelimit.New(1, time.Minute)

	rec1 := postRagQuery(t, srv, map[string]any{"query": "laptop", "top_k": 5})
	require.Equal(t, http.StatusOK, rec1.Code)

	rec2 := postRagQuery(t, srv, map[string]any{"query": "laptop", "top_k": 5})
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)
}

func TestRagQueryGenerationFailureSurfacesAsSuccessFalse(t *testing.T) {
	srv := buildServer(t)
	srv.Service.Generator = erroringGen{}

	rec := postRagQuery(t, srv, map[string]any{"query": "laptop", "top_k": 5})
	require.Equal(t, http.StatusOK, rec.Code)

	var out ragQueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Uncertainties)
}

type erroringGen struct{}

func (erroringGen) Generate(context.Context, []generate.Message, generate.Params) (string, error) {
	return "", assertError("boom")
}

type assertError string

func (e assertError) Error() string { return string(e) }

type erroringEmbedder struct{}

func (erroringEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, assertError("embedding service unreachable")
}
func (erroringEmbedder) Name() string   { return "erroring" }
func (erroringEmbedder) Dimension() int { return 16 }

// TestRagQueryUpstreamRetrievalFailureIsSynchronousError checks that a
// vector-store/embedding outage, unlike a generation failure, is reported as
// a real HTTP error rather than folded into success=false (§7 policy).
func TestRagQueryUpstreamRetrievalFailureIsSynchronousError(t *testing.T) {
	srv := buildServer(t)
	srv.Service.Hybrid.Dense.Embedder = erroringEmbedder{}

	rec := postRagQuery(t, srv, map[string]any{"query": "laptop", "top_k": 5})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthReportsHealthyByDefault(t *testing.T) {
	srv := buildServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "healthy", out.Status)
}

func TestStatsReflectsQueryCount(t *testing.T) {
	srv := buildServer(t)
	postRagQuery(t, srv, map[string]any{"query": "laptop", "top_k": 5})

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, int64(1), out.TotalQueries)
	assert.Equal(t, int64(1), out.SuccessfulQueries)
}
