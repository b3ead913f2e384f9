package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketrag/internal/config"
)

func TestNewManagerDefaultsToMemoryBackends(t *testing.T) {
	cfg := &config.Config{Vector: config.VectorConfig{Dimensions: 16}}
	mgr, err := NewManager(context.Background(), cfg)
	require.NoError(t, err)
	defer mgr.Close()

	require.Len(t, mgr.Vector, len(AllKinds))
	for _, k := range AllKinds {
		assert.Equal(t, 16, mgr.Vector[k].Dimension())
	}
	assert.NotNil(t, mgr.Graph)
}

func TestNewManagerRejectsUnknownVectorBackend(t *testing.T) {
	cfg := &config.Config{Vector: config.VectorConfig{Backend: "bogus"}}
	_, err := NewManager(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewManagerRejectsUnknownGraphBackend(t *testing.T) {
	cfg := &config.Config{Graph: config.GraphConfig{Backend: "bogus"}}
	_, err := NewManager(context.Background(), cfg)
	assert.Error(t, err)
}
