package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketrag/internal/domain"
)

func TestTicketEdgesBasicFKs(t *testing.T) {
	tk := domain.Ticket{ID: 1, OwnerID: "u1", AssigneeID: "u2", Category: "hardware", RelatedCIs: []string{"CI-42"}}
	edges := TicketEdges(tk, "ticket_1", nil, nil)
	var types []EdgeType
	for _, e := range edges {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, EdgeCreatedBy)
	assert.Contains(t, types, EdgeAssignedTo)
	assert.Contains(t, types, EdgeBelongsTo)
	assert.Contains(t, types, EdgeAffects)
}

func TestTicketEdgesMentionsFromEntities(t *testing.T) {
	tk := domain.Ticket{ID: 1}
	entities := map[EntityType][]Entity{
		EntityProduct: {{Text: "Dell Latitude", Confidence: 0.85, Source: "regex", Label: "BRAND_MODEL"}},
	}
	edges := TicketEdges(tk, "ticket_1", entities, nil)
	require.Len(t, edges, 1)
	assert.Equal(t, EdgeAffects, edges[0].Type)
	assert.Equal(t, 0.85, edges[0].Confidence)
}

func TestTicketEdgesResolvedByViaKeywordLookup(t *testing.T) {
	tk := domain.Ticket{ID: 1, Status: "closed", Resolution: "Opgelost met een BIOS update."}
	lookup := func(word string) (string, bool) {
		if word == "bios" {
			return "kb_article_7", true
		}
		return "", false
	}
	edges := TicketEdges(tk, "ticket_1", nil, lookup)
	require.Len(t, edges, 1)
	assert.Equal(t, EdgeResolvedBy, edges[0].Type)
	assert.Equal(t, "kb_article_7", edges[0].Target)
	assert.Equal(t, 0.70, edges[0].Confidence)
}

func TestEdgeValidationRejectsBadEdges(t *testing.T) {
	assert.False(t, Edge{Source: "a", Target: "a", Type: EdgeMentions, Confidence: 0.5}.Valid())
	assert.False(t, Edge{Source: "", Target: "b", Type: EdgeMentions, Confidence: 0.5}.Valid())
	assert.False(t, Edge{Source: "a", Target: "b", Type: "NOT_REAL", Confidence: 0.5}.Valid())
	assert.False(t, Edge{Source: "a", Target: "b", Type: EdgeMentions, Confidence: 1.5}.Valid())
	assert.True(t, Edge{Source: "a", Target: "b", Type: EdgeMentions, Confidence: 0.5}.Valid())
}

func TestSimilarEdgeThreshold(t *testing.T) {
	_, ok := SimilarEdge("ticket_1", "ticket_2", 0.74)
	assert.False(t, ok)
	e, ok := SimilarEdge("ticket_1", "ticket_2", 0.9)
	require.True(t, ok)
	assert.Equal(t, 0.9, e.Confidence)
}

func TestCIEdgesLocatedAt(t *testing.T) {
	c := domain.CIItem{ID: 99, Location: "Utrecht"}
	edges := CIEdges(c, "ci_item_99")
	require.Len(t, edges, 1)
	assert.Equal(t, EdgeLocatedAt, edges[0].Type)
}
