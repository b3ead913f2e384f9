package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketrag/internal/bm25"
	"ticketrag/internal/cache"
	"ticketrag/internal/embed"
	"ticketrag/internal/generate"
	"ticketrag/internal/obs"
	"ticketrag/internal/rerank"
	"ticketrag/internal/retrieve"
	"ticketrag/internal/store"
)

type fakeGenerator struct {
	calls int
	reply string
}

func (f *fakeGenerator) Generate(_ context.Context, _ []generate.Message, _ generate.Params) (string, error) {
	f.calls++
	return f.reply, nil
}

func buildService(t *testing.T, gen *fakeGenerator) *Service {
	t.Helper()
	ctx := context.Background()
	emb := embed.NewDeterministic(16)
	vec := store.NewMemoryVector(16)
	docs := map[string]string{"ticket_1": "laptop start niet op na bios update"}
	for id, text := range docs {
		v, err := emb.EmbedBatch(ctx, []string{text})
		require.NoError(t, err)
		require.NoError(t, vec.Upsert(ctx, id, v[0], map[string]string{
			"text": text, "ticket_number": "T-1", "title": "Laptop start niet op", "entity_id": "1",
		}))
	}
	mgr := bm25.NewManager(map[string]store.VectorStore{"ticket": vec}, 1.5, 0.75)
	require.NoError(t, mgr.RefreshIndex(ctx, "ticket"))

	hybrid := &retrieve.Hybrid{
		Dense:  &retrieve.Dense{Embedder: emb, Stores: map[string]store.VectorStore{"ticket": vec}},
		Sparse: &retrieve.Sparse{Manager: mgr, Payload: func(_, id string) map[string]string { return map[string]string{"text": docs[id]} }},
	}

	svc := New(hybrid, rerank.New(), nil, gen, cache.NewMemory(10), generate.DefaultParams("test-model"), 4000)
	svc.Metrics = obs.NewInMemoryMetrics()
	return svc
}

func TestQueryReturnsAnswerAndCitesSource(t *testing.T) {
	gen := &fakeGenerator{reply: "Dit lijkt op een BIOS probleem, zie T-1."}
	svc := buildService(t, gen)

	resp, err := svc.Query(context.Background(), Request{
		Query: "laptop start niet op", TopK: 3, Collections: []string{"ticket"},
		UseVector: true, UseBM25: true, IncludeSources: true,
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Answer, "T-1")
	assert.False(t, resp.Cached)
	assert.NotEmpty(t, resp.Sources)
	assert.Equal(t, 1, gen.calls)
}

func TestQuerySecondCallServedFromCache(t *testing.T) {
	gen := &fakeGenerator{reply: "Antwoord met T-1."}
	svc := buildService(t, gen)
	req := Request{Query: "laptop start niet op", TopK: 3, Collections: []string{"ticket"}, UseVector: true, UseBM25: true}

	_, err := svc.Query(context.Background(), req)
	require.NoError(t, err)
	resp2, err := svc.Query(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, resp2.Cached)
	assert.Equal(t, 1, gen.calls) // generator not called again
}

func TestStatsFromMetricsTracksCounters(t *testing.T) {
	gen := &fakeGenerator{reply: "Antwoord met T-1."}
	svc := buildService(t, gen)
	req := Request{Query: "laptop start niet op", TopK: 3, Collections: []string{"ticket"}, UseVector: true, UseBM25: true}

	_, err := svc.Query(context.Background(), req)
	require.NoError(t, err)
	_, err = svc.Query(context.Background(), req)
	require.NoError(t, err)

	stats := StatsFromMetrics(svc.Metrics)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(2), stats.Successes)
	assert.Equal(t, int64(1), stats.Cached)
	assert.GreaterOrEqual(t, stats.AverageResponseMillis, 0.0)
}

func TestQueryPropagatesGenerationFailure(t *testing.T) {
	svc := buildService(t, &fakeGenerator{})
	svc.Generator = erroringGenerator{}

	_, err := svc.Query(context.Background(), Request{Query: "laptop", TopK: 3, Collections: []string{"ticket"}, UseVector: true})
	assert.Error(t, err)

	stats := StatsFromMetrics(svc.Metrics)
	assert.Equal(t, int64(1), stats.Failures)
}

type erroringGenerator struct{}

func (erroringGenerator) Generate(context.Context, []generate.Message, generate.Params) (string, error) {
	return "", errUpstream{}
}

type errUpstream struct{}

func (errUpstream) Error() string { return "upstream unavailable" }

func TestSystemClockAdvances(t *testing.T) {
	c := SystemClock{}
	t1 := c.Now()
	time.Sleep(time.Millisecond)
	assert.True(t, c.Now().After(t1))
}
