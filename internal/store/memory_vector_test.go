package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryVectorSimilaritySearchRanksByCosine(t *testing.T) {
	ctx := context.Background()
	vs := NewMemoryVector(2)
	require.NoError(t, vs.Upsert(ctx, "a", []float32{1, 0}, map[string]string{"kind": "ticket"}))
	require.NoError(t, vs.Upsert(ctx, "b", []float32{0, 1}, map[string]string{"kind": "ticket"}))
	require.NoError(t, vs.Upsert(ctx, "c", []float32{0.9, 0.1}, map[string]string{"kind": "kb_article"}))

	out, err := vs.SimilaritySearch(ctx, []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "c", out[1].ID)
}

func TestMemoryVectorSimilaritySearchAppliesFilter(t *testing.T) {
	ctx := context.Background()
	vs := NewMemoryVector(2)
	require.NoError(t, vs.Upsert(ctx, "a", []float32{1, 0}, map[string]string{"kind": "ticket"}))
	require.NoError(t, vs.Upsert(ctx, "b", []float32{1, 0}, map[string]string{"kind": "kb_article"}))

	out, err := vs.SimilaritySearch(ctx, []float32{1, 0}, 10, map[string]string{"kind": "kb_article"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].ID)
}

func TestMemoryVectorSimilaritySearchSkipsZeroVectors(t *testing.T) {
	ctx := context.Background()
	vs := NewMemoryVector(2)
	require.NoError(t, vs.Upsert(ctx, "zero", []float32{0, 0}, nil))
	require.NoError(t, vs.Upsert(ctx, "real", []float32{1, 1}, nil))

	out, err := vs.SimilaritySearch(ctx, []float32{1, 1}, 10, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "real", out[0].ID)
}

func TestMemoryVectorDeleteRemovesEntry(t *testing.T) {
	ctx := context.Background()
	vs := NewMemoryVector(2)
	require.NoError(t, vs.Upsert(ctx, "a", []float32{1, 0}, nil))
	require.NoError(t, vs.Delete(ctx, "a"))

	out, err := vs.Scroll(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestMemoryVectorScrollRespectsLimitAndOrder(t *testing.T) {
	ctx := context.Background()
	vs := NewMemoryVector(2)
	require.NoError(t, vs.Upsert(ctx, "b", []float32{1, 0}, nil))
	require.NoError(t, vs.Upsert(ctx, "a", []float32{0, 1}, nil))
	require.NoError(t, vs.Upsert(ctx, "c", []float32{1, 1}, nil))

	out, err := vs.Scroll(ctx, 2)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	assert.Equal(t, "b", out[1].ID)
}

func TestMemoryVectorDimension(t *testing.T) {
	vs := NewMemoryVector(768)
	assert.Equal(t, 768, vs.Dimension())
}
