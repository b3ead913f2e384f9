package ctxbuild

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketrag/internal/graph"
	"ticketrag/internal/rerank"
	"ticketrag/internal/retrieve"
	"ticketrag/internal/store"
)

func scoredTicket(id, number, title, body string, score float64) rerank.Scored {
	return rerank.Scored{
		Result: retrieve.Result{
			ID:       id,
			Metadata: map[string]string{"entity_id": id, "ticket_number": number, "title": title, "text": body},
		},
		FinalScore: score,
	}
}

func TestBuildClipsBodyAndJoinsBlocks(t *testing.T) {
	body := strings.Repeat("a", 600)
	results := []rerank.Scored{scoredTicket("1", "T-1", "Laptop issue", body, 0.9)}
	text, sources, _ := Build(results, nil, 4000)
	require.Len(t, sources, 1)
	assert.Equal(t, "T-1", sources[0].TicketNumber)
	assert.Contains(t, text, "[Source 1] T-1: Laptop issue")
	assert.LessOrEqual(t, len(text)-len("[Source 1] T-1: Laptop issue\n"), maxBodyCharsPer)
}

func TestBuildLimitsToTopSources(t *testing.T) {
	var results []rerank.Scored
	for i := 0; i < 15; i++ {
		results = append(results, scoredTicket(string(rune('a'+i)), "T-"+string(rune('a'+i)), "title", "body", float64(15-i)))
	}
	_, sources, _ := Build(results, nil, 100000)
	assert.Len(t, sources, maxSources)
}

func TestBuildTotalLengthClipped(t *testing.T) {
	var results []rerank.Scored
	for i := 0; i < 5; i++ {
		results = append(results, scoredTicket(string(rune('a'+i)), "T-1", "t", strings.Repeat("x", 500), 1))
	}
	text, _, _ := Build(results, nil, 100)
	assert.LessOrEqual(t, len(text), 100+len("…")) // the ellipsis is 3 bytes in UTF-8
}

func TestBuildRelationshipChains(t *testing.T) {
	ctx := context.Background()
	g := graph.New(store.NewMemoryGraphStore())
	require.NoError(t, g.AddNode(ctx, "ticket_1", "ticket", nil))
	require.NoError(t, g.AddNode(ctx, "user_u1", "user", nil))
	require.NoError(t, g.AddEdge(ctx, "ticket_1", "user_u1", "CREATED_BY", 1.0, nil))

	results := []rerank.Scored{scoredTicket("1", "T-1", "t", "body", 1)}
	_, _, rels := Build(results, g, 4000)
	require.Len(t, rels, 1)
	assert.Equal(t, "CREATED_BY", rels[0].EdgeType)
}
