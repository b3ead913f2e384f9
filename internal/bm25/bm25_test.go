package bm25

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketrag/internal/store"
)

func TestSearchOnlyReturnsPositiveScores(t *testing.T) {
	idx := New([]Doc{
		{ID: "a", Text: "laptop start niet op na update"},
		{ID: "b", Text: "printer werkt niet meer"},
	}, 1.5, 0.75)
	hits := idx.Search("laptop update", 10)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.Greater(t, h.Score, 0.0)
	}
	assert.Equal(t, "a", hits[0].ID)
}

func TestSearchNoMatchReturnsEmpty(t *testing.T) {
	idx := New([]Doc{{ID: "a", Text: "laptop start niet op"}}, 1.5, 0.75)
	hits := idx.Search("volledig ongerelateerd", 10)
	assert.Empty(t, hits)
}

func TestManagerRefreshesOneCollectionOnly(t *testing.T) {
	ctx := context.Background()
	vsA := store.NewMemoryVector(4)
	vsB := store.NewMemoryVector(4)
	require.NoError(t, vsA.Upsert(ctx, "ticket_1", []float32{1, 0, 0, 0}, map[string]string{"text": "laptop probleem"}))
	require.NoError(t, vsB.Upsert(ctx, "kb_1", []float32{0, 1, 0, 0}, map[string]string{"text": "bios reset stappen"}))

	mgr := NewManager(map[string]store.VectorStore{"ticket": vsA, "kb_article": vsB}, 1.5, 0.75)
	require.NoError(t, mgr.RefreshIndex(ctx, "ticket"))

	assert.NotEmpty(t, mgr.Search("ticket", "laptop", 5))
	assert.Empty(t, mgr.Search("kb_article", "bios", 5)) // not yet refreshed

	require.NoError(t, mgr.RefreshIndex(ctx, "kb_article"))
	assert.NotEmpty(t, mgr.Search("kb_article", "bios", 5))
}

func TestManagerRefreshUnknownCollectionErrors(t *testing.T) {
	mgr := NewManager(map[string]store.VectorStore{}, 1.5, 0.75)
	err := mgr.RefreshIndex(context.Background(), "nope")
	assert.Error(t, err)
}
