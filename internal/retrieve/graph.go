package retrieve

import (
	"sort"
	"strings"

	"ticketrag/internal/graph"
)

const graphSeedCap = 5

var graphTraverseEdgeTypes = []string{"SIMILAR_TO", "AFFECTS", "RESOLVED_BY", "MENTIONS"}

// GraphRetriever walks the knowledge graph for nodes whose properties match
// query tokens, then ranks reached ticket nodes by centrality (§4.7).
type GraphRetriever struct {
	Graph *graph.Graph
}

// Search implements §4.7's four-step algorithm.
func (r *GraphRetriever) Search(query string, topK int) []Result {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	var seeds []string
	for _, n := range r.Graph.Nodes() {
		if len(seeds) >= graphSeedCap {
			break
		}
		if nodeMatches(n, tokens) {
			seeds = append(seeds, n.ID)
		}
	}
	if len(seeds) == 0 {
		return nil
	}

	reached := map[string]bool{}
	for _, seed := range seeds {
		tr := r.Graph.Traverse(seed, 2, graphTraverseEdgeTypes)
		for _, n := range tr.Nodes {
			if n.Type == "ticket" {
				reached[n.ID] = true
			}
		}
	}

	results := make([]Result, 0, len(reached))
	for id := range reached {
		results = append(results, Result{
			ID:              id,
			CentralityScore: r.Graph.ComputeCentrality(id),
			Source:          "graph_search",
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].CentralityScore != results[j].CentralityScore {
			return results[i].CentralityScore > results[j].CentralityScore
		}
		return results[i].ID < results[j].ID
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

func nodeMatches(n graph.Node, tokens []string) bool {
	for _, v := range n.Properties {
		s, ok := v.(string)
		if !ok {
			continue
		}
		lower := strings.ToLower(s)
		for _, tok := range tokens {
			if strings.Contains(lower, tok) {
				return true
			}
		}
	}
	return false
}

func tokenize(s string) []string {
	lower := strings.ToLower(s)
	fields := strings.Fields(lower)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?()\"'")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
