package retrieve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketrag/internal/bm25"
	"ticketrag/internal/embed"
	"ticketrag/internal/store"
)

func buildHybridFixture(t *testing.T) *Hybrid {
	t.Helper()
	ctx := context.Background()
	emb := embed.NewDeterministic(16)
	vec := store.NewMemoryVector(16)

	docs := map[string]string{
		"ticket_1": "laptop start niet op na update",
		"ticket_2": "printer werkt niet meer",
		"ticket_3": "laptop scherm blijft zwart",
	}
	for id, text := range docs {
		v, err := emb.EmbedBatch(ctx, []string{text})
		require.NoError(t, err)
		require.NoError(t, vec.Upsert(ctx, id, v[0], map[string]string{"text": text}))
	}

	mgr := bm25.NewManager(map[string]store.VectorStore{"ticket": vec}, 1.5, 0.75)
	require.NoError(t, mgr.RefreshIndex(ctx, "ticket"))

	dense := &Dense{Embedder: emb, Stores: map[string]store.VectorStore{"ticket": vec}}
	sparse := &Sparse{Manager: mgr, Payload: func(_, id string) map[string]string { return docs2meta(docs, id) }}

	return &Hybrid{Dense: dense, Sparse: sparse}
}

func docs2meta(docs map[string]string, id string) map[string]string {
	return map[string]string{"text": docs[id]}
}

func TestHybridSearchCombinesVectorAndBM25(t *testing.T) {
	h := buildHybridFixture(t)
	results, err := h.Search(context.Background(), "laptop update probleem", "ticket", 5, Options{UseVector: true, UseBM25: true})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].CombinedScore(), results[i].CombinedScore())
	}
}

func TestMinMaxNormalizeFlatScores(t *testing.T) {
	out := minMaxNormalize(map[string]float64{"a": 0.5, "b": 0.5})
	assert.Equal(t, 1.0, out["a"])
	assert.Equal(t, 1.0, out["b"])
}

func TestMinMaxNormalizeZeroScore(t *testing.T) {
	out := minMaxNormalize(map[string]float64{"a": 0, "b": 0})
	assert.Equal(t, 0.0, out["a"])
}

func TestMinMaxNormalizeRange(t *testing.T) {
	out := minMaxNormalize(map[string]float64{"a": 1, "b": 2, "c": 3})
	assert.Equal(t, 0.0, out["a"])
	assert.Equal(t, 0.5, out["b"])
	assert.Equal(t, 1.0, out["c"])
}

func TestHybridEmptyWhenNoMethodEnabled(t *testing.T) {
	h := buildHybridFixture(t)
	results, err := h.Search(context.Background(), "laptop", "ticket", 5, Options{})
	require.NoError(t, err)
	assert.Empty(t, results)
}
