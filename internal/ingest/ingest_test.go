package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketrag/internal/domain"
	"ticketrag/internal/embed"
	"ticketrag/internal/extract"
	"ticketrag/internal/graph"
	"ticketrag/internal/sourcedb"
	"ticketrag/internal/store"
)

func buildPipeline(t *testing.T) (*Pipeline, domain.Ticket) {
	t.Helper()
	ticket := domain.Ticket{
		ID: 1, Number: "T-1", Title: "Laptop start niet op", Description: "Na update blijft scherm zwart.",
		Status: "closed", Category: "hardware", OwnerID: "u1", AssigneeID: "u2",
		Resolution: "Opgelost met een BIOS update.", UpdatedAt: time.Now(),
	}
	src := sourcedb.NewMemory([]domain.Ticket{ticket}, nil, nil)
	vec := map[string]store.VectorStore{string(domain.KindTicket): store.NewMemoryVector(16)}
	g := graph.New(store.NewMemoryGraphStore())
	p := &Pipeline{
		Source:    src,
		Vector:    vec,
		Graph:     g,
		Embedder:  embed.NewDeterministic(16),
		Extractor: extract.New(nil),
		Hashes:    map[string]string{},
	}
	return p, ticket
}

func TestSyncIngestsTicketChunksAndGraph(t *testing.T) {
	p, _ := buildPipeline(t)
	ctx := context.Background()
	stats, err := p.Sync(ctx, Options{SinceHours: 24 * 365})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TicketsProcessed)
	assert.Greater(t, stats.ChunksUpserted, 0)
	assert.Equal(t, 0, stats.Errors)

	results, err := p.Vector[string(domain.KindTicket)].Scroll(ctx, 0)
	require.NoError(t, err)
	assert.NotEmpty(t, results)

	assert.NotEmpty(t, p.Graph.GetNeighbors("ticket_1", "", graph.Both))
}

func TestSyncSkipsUnchangedUnderSkipPolicy(t *testing.T) {
	p, _ := buildPipeline(t)
	ctx := context.Background()
	_, err := p.Sync(ctx, Options{SinceHours: 24 * 365, Policy: PolicySkipIfUnchanged})
	require.NoError(t, err)
	stats, err := p.Sync(ctx, Options{SinceHours: 24 * 365, Policy: PolicySkipIfUnchanged})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TicketsProcessed)
}

func TestIncrementalSyncUsesOneHourWindow(t *testing.T) {
	p, _ := buildPipeline(t)
	stats, err := p.IncrementalSync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TicketsProcessed)
}

func TestSyncContinuesAfterEntityFailure(t *testing.T) {
	p, _ := buildPipeline(t)
	p.Vector = map[string]store.VectorStore{} // force upsertChunks to error
	stats, err := p.Sync(context.Background(), Options{SinceHours: 24 * 365})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 0, stats.TicketsProcessed)
}
