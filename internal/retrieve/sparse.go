package retrieve

import (
	"ticketrag/internal/bm25"
)

// Sparse wraps a bm25.Manager as a retriever (§4.6).
type Sparse struct {
	Manager *bm25.Manager
	Payload func(collection, id string) map[string]string // resolves a hit's display payload
}

// Search runs BM25 over one collection's index.
func (s *Sparse) Search(collection, query string, topK int) []Result {
	hits := s.Manager.Search(collection, query, topK)
	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		var payload map[string]string
		if s.Payload != nil {
			payload = s.Payload(collection, h.ID)
		}
		out = append(out, Result{
			ID:         h.ID,
			Document:   payload,
			Metadata:   payload,
			BM25Score:  h.Score,
			Source:     "bm25_search",
			Collection: collection,
		})
	}
	return out
}
