package sourcedb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketrag/internal/domain"
)

func TestMemoryStoreFetchUpdatedTicketsFiltersBySince(t *testing.T) {
	now := time.Now()
	store := NewMemory([]domain.Ticket{
		{ID: 1, UpdatedAt: now.Add(-2 * time.Hour)},
		{ID: 2, UpdatedAt: now},
	}, nil, nil)

	out, err := store.FetchUpdatedTickets(context.Background(), now.Add(-time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(2), out[0].ID)
}

func TestMemoryStoreFetchUpdatedTicketsRespectsLimit(t *testing.T) {
	now := time.Now()
	store := NewMemory([]domain.Ticket{
		{ID: 1, UpdatedAt: now},
		{ID: 2, UpdatedAt: now},
		{ID: 3, UpdatedAt: now},
	}, nil, nil)

	out, err := store.FetchUpdatedTickets(context.Background(), now.Add(-time.Hour), 2)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestMemoryStoreFetchUpdatedKBArticlesAndCIItems(t *testing.T) {
	now := time.Now()
	store := NewMemory(nil,
		[]domain.KBArticle{{ID: 10, UpdatedAt: now}},
		[]domain.CIItem{{ID: 20, UpdatedAt: now}},
	)

	kb, err := store.FetchUpdatedKBArticles(context.Background(), now.Add(-time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, kb, 1)
	assert.Equal(t, int64(10), kb[0].ID)

	ci, err := store.FetchUpdatedCIItems(context.Background(), now.Add(-time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, ci, 1)
	assert.Equal(t, int64(20), ci[0].ID)
}

func TestMemoryStoreCloseIsNoop(t *testing.T) {
	store := NewMemory(nil, nil, nil)
	assert.NoError(t, store.Close())
}
