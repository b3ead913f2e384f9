package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicEmbedderStableAndNormalized(t *testing.T) {
	e := NewDeterministic(32)
	v1, err := e.EmbedBatch(context.Background(), []string{"laptop start niet op"})
	require.NoError(t, err)
	v2, err := e.EmbedBatch(context.Background(), []string{"laptop start niet op"})
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 32, e.Dimension())

	var sum float64
	for _, x := range v1[0] {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, sum, 1e-3)
}

func TestDeterministicEmbedderDistinguishesText(t *testing.T) {
	e := NewDeterministic(32)
	out, err := e.EmbedBatch(context.Background(), []string{"printer werkt niet", "wifi valt steeds weg"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.NotEqual(t, out[0], out[1])
}

func TestDeterministicEmbedderEmptyBatch(t *testing.T) {
	e := NewDeterministic(16)
	out, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}
