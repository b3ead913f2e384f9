// Package store defines the pluggable persistence backends: the vector
// index (§3.3, §4.5), and the knowledge-graph's durable node/edge tables
// (§4.4, §6.2). Both a memory-backed implementation (used by tests and
// single-process deployments) and a network-backed implementation
// (Qdrant, Postgres) satisfy the same interfaces.
package store

import (
	"context"
	"time"
)

// VectorResult is a single nearest-neighbor hit, or a row surfaced by Scroll.
type VectorResult struct {
	ID       string
	Score    float64 // cosine similarity; higher is closer
	Metadata map[string]string
}

// VectorStore is a single collection (one per document kind, per §3.3).
// Metadata values are always strings: ingestion sanitizes every field before
// calling Upsert (§4.1), and this is a load-bearing contract with the JSON
// API (§4.1, §6.1).
type VectorStore interface {
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error
	Delete(ctx context.Context, id string) error
	SimilaritySearch(ctx context.Context, vector []float32, k int, filter map[string]string) ([]VectorResult, error)
	// Scroll returns every payload in the collection, for BM25 index
	// (re)building (§4.6). limit<=0 means unbounded.
	Scroll(ctx context.Context, limit int) ([]VectorResult, error)
	Dimension() int
	Close() error
}

// GraphNode is a persisted knowledge-graph node (§3.2, §6.2).
type GraphNode struct {
	ID         string
	Type       string
	Properties map[string]any
	CreatedAt  time.Time
}

// GraphEdge is a persisted knowledge-graph edge (§3.2, §6.2).
type GraphEdge struct {
	ID         string
	Source     string
	Target     string
	Type       string
	Confidence float64
	Properties map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// GraphStore is the durable node/edge table pair described in §6.2. It does
// no traversal or centrality math itself — that logic lives in package
// graph, which layers an in-memory arena over this store.
type GraphStore interface {
	UpsertNode(ctx context.Context, n GraphNode) error
	UpsertEdge(ctx context.Context, e GraphEdge) error
	GetNode(ctx context.Context, id string) (GraphNode, bool, error)
	AllNodes(ctx context.Context, nodeTypes []string) ([]GraphNode, error)
	AllEdges(ctx context.Context, minConfidence float64) ([]GraphEdge, error)
	Close() error
}
