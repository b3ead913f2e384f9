// Package ctxbuild assembles the LLM prompt context and relationship chains
// from a reranked result set (§4.10).
package ctxbuild

import (
	"fmt"
	"strings"

	"ticketrag/internal/graph"
	"ticketrag/internal/rerank"
)

const (
	maxSources        = 10
	maxBodyCharsPer   = 500
	defaultMaxContext = 4000
	maxChainsFrom     = 5
	maxNeighborsEach  = 3
)

// Source is one numbered provenance entry surfaced to the caller alongside
// the assembled context text.
type Source struct {
	Index        int
	ID           string
	TicketNumber string
	Title        string
	Content      string
	Category     string
	Score        float64
	Collection   string
}

// Relationship is one graph edge surfaced as supporting evidence.
type Relationship struct {
	SourceNode string
	EdgeType   string
	TargetNode string
	Confidence float64
}

// Build implements §4.10: selects the top 10, clips to maxContextLength,
// and collects relationship chains for the top 5 ticket hits.
func Build(results []rerank.Scored, g *graph.Graph, maxContextLength int) (string, []Source, []Relationship) {
	if maxContextLength <= 0 {
		maxContextLength = defaultMaxContext
	}
	top := results
	if len(top) > maxSources {
		top = top[:maxSources]
	}

	var blocks []string
	sources := make([]Source, 0, len(top))
	for i, r := range top {
		ticketNumber := r.Metadata["ticket_number"]
		title := r.Metadata["title"]
		body := r.Metadata["text"]
		if len(body) > maxBodyCharsPer {
			body = body[:maxBodyCharsPer]
		}
		label := ticketNumber
		if label == "" {
			label = r.ID
		}
		block := fmt.Sprintf("[Source %d] %s: %s\n%s", i+1, label, title, body)
		blocks = append(blocks, block)
		sources = append(sources, Source{
			Index:        i + 1,
			ID:           r.ID,
			TicketNumber: ticketNumber,
			Title:        title,
			Content:      body,
			Category:     r.Metadata["category"],
			Score:        r.FinalScore,
			Collection:   r.Collection,
		})
	}

	contextText := strings.Join(blocks, "\n\n")
	if len(contextText) > maxContextLength {
		contextText = contextText[:maxContextLength] + "…"
	}

	var relationships []Relationship
	if g != nil {
		chained := 0
		for _, r := range top {
			if chained >= maxChainsFrom {
				break
			}
			nodeID := "ticket_" + r.Metadata["entity_id"]
			if r.Metadata["entity_id"] == "" || (r.Collection != "" && r.Collection != "ticket") {
				continue
			}
			chained++
			tr := g.Traverse(nodeID, 1, nil)
			count := 0
			for _, e := range tr.Edges {
				if count >= maxNeighborsEach {
					break
				}
				relationships = append(relationships, Relationship{
					SourceNode: e.Source,
					EdgeType:   e.Type,
					TargetNode: e.Target,
					Confidence: e.Confidence,
				})
				count++
			}
		}
	}

	return contextText, sources, relationships
}
