// Package retrieve implements the dense, sparse, graph, and hybrid
// retrievers of §4.5-§4.8.
package retrieve

import (
	"context"
	"fmt"

	"ticketrag/internal/apperr"
	"ticketrag/internal/embed"
	"ticketrag/internal/store"
)

// Result is a single retrieval hit, shared across all retriever methods.
type Result struct {
	ID              string
	Document        map[string]string // the materialized payload
	Metadata        map[string]string
	SimilarityScore float64
	BM25Score       float64
	CentralityScore float64
	Source          string // "vector_search" | "bm25_search" | "graph_search"
	Collection      string

	combinedScore float64 // set by Hybrid.Search; exposed via CombinedScore
}

// CombinedScore exposes the hybrid fusion score computed by Hybrid.Search.
func (r Result) CombinedScore() float64 { return r.combinedScore }

// Dense wraps a store.VectorStore with an embedder (§4.5).
type Dense struct {
	Embedder   embed.Embedder
	Stores     map[string]store.VectorStore // keyed by collection name
}

// Search embeds the query, searches the named collection's vector store, and
// materializes each hit's display document from its payload.
func (d *Dense) Search(ctx context.Context, query, collection string, topK int, filter map[string]string) ([]Result, error) {
	vs, ok := d.Stores[collection]
	if !ok {
		return nil, fmt.Errorf("dense retriever: unknown collection %q", collection)
	}
	vectors, err := d.Embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "dense retriever: embed query", err)
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	hits, err := vs.SimilaritySearch(ctx, vectors[0], topK, filter)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstreamUnavailable, "dense retriever: similarity search", err)
	}
	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		out = append(out, Result{
			ID:              h.ID,
			Document:        h.Metadata,
			Metadata:        h.Metadata,
			SimilarityScore: h.Score,
			Source:          "vector_search",
			Collection:      collection,
		})
	}
	return out, nil
}
