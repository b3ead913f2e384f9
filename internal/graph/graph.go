// Package graph is the in-memory knowledge-graph domain layer: an arena of
// nodes and edges, kept consistent with internal/store.GraphStore on every
// mutating call (§3.2, §4.4).
package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ticketrag/internal/store"
)

// Direction constrains a neighbor walk.
type Direction string

const (
	Out  Direction = "out"
	In   Direction = "in"
	Both Direction = "both"
)

const defaultMaxDepth = 2

// Node is the in-memory view of a graph node.
type Node struct {
	ID         string
	Type       string
	Properties map[string]any
}

// Edge is the in-memory view of a graph edge.
type Edge struct {
	Source     string
	Target     string
	Type       string
	Confidence float64
	Properties map[string]any
}

// Stats summarizes the graph's shape, per §4.4's get_stats.
type Stats struct {
	NodeCountByType map[string]int
	EdgeCountByType map[string]int
	AverageDegree   float64
	Density         float64
}

// TraverseResult is the BFS output of §4.4's traverse.
type TraverseResult struct {
	Nodes []Node
	Edges []Edge
}

// Graph is the arena: nodes and their adjacency, backed by store.GraphStore
// for persistence.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]Node
	out   map[string][]Edge // outgoing edges by source id
	in    map[string][]Edge // incoming edges by target id

	backing store.GraphStore
}

// New constructs an empty Graph over the given persistent backend.
func New(backing store.GraphStore) *Graph {
	return &Graph{
		nodes:   map[string]Node{},
		out:     map[string][]Edge{},
		in:      map[string][]Edge{},
		backing: backing,
	}
}

// AddNode upserts a node in memory, then persists it synchronously. On
// persistence failure the in-memory mutation is rolled back (§4.4 contract).
func (g *Graph) AddNode(ctx context.Context, id, nodeType string, properties map[string]any) error {
	g.mu.Lock()
	prev, existed := g.nodes[id]
	g.nodes[id] = Node{ID: id, Type: nodeType, Properties: properties}
	g.mu.Unlock()

	if g.backing == nil {
		return nil
	}
	if err := g.backing.UpsertNode(ctx, store.GraphNode{ID: id, Type: nodeType, Properties: properties}); err != nil {
		g.mu.Lock()
		if existed {
			g.nodes[id] = prev
		} else {
			delete(g.nodes, id)
		}
		g.mu.Unlock()
		return fmt.Errorf("persist node %s: %w", id, err)
	}
	return nil
}

// AddEdge upserts an edge, rejecting it when either endpoint is absent from
// memory (§4.4), then persists synchronously with the same rollback contract
// as AddNode.
func (g *Graph) AddEdge(ctx context.Context, src, dst, edgeType string, confidence float64, properties map[string]any) error {
	g.mu.Lock()
	if _, ok := g.nodes[src]; !ok {
		g.mu.Unlock()
		return fmt.Errorf("add_edge: source node %s not present", src)
	}
	if _, ok := g.nodes[dst]; !ok {
		g.mu.Unlock()
		return fmt.Errorf("add_edge: target node %s not present", dst)
	}
	e := Edge{Source: src, Target: dst, Type: edgeType, Confidence: confidence, Properties: properties}
	prevOut := append([]Edge(nil), g.out[src]...)
	prevIn := append([]Edge(nil), g.in[dst]...)
	g.out[src] = upsertEdge(g.out[src], e)
	g.in[dst] = upsertEdge(g.in[dst], e)
	g.mu.Unlock()

	if g.backing == nil {
		return nil
	}
	if err := g.backing.UpsertEdge(ctx, store.GraphEdge{Source: src, Target: dst, Type: edgeType, Confidence: confidence, Properties: properties}); err != nil {
		g.mu.Lock()
		g.out[src] = prevOut
		g.in[dst] = prevIn
		g.mu.Unlock()
		return fmt.Errorf("persist edge %s-%s->%s: %w", src, edgeType, dst, err)
	}
	return nil
}

func upsertEdge(list []Edge, e Edge) []Edge {
	for i, existing := range list {
		if existing.Target == e.Target && existing.Source == e.Source && existing.Type == e.Type {
			list[i] = e
			return list
		}
	}
	return append(list, e)
}

// Nodes returns a snapshot of every node in the arena, used by the graph
// retriever's seed-selection pass (§4.7).
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// GetNeighbors returns neighbor ids only, per §4.4.
func (g *Graph) GetNeighbors(id string, edgeType string, direction Direction) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	consider := func(edges []Edge, other func(Edge) string) {
		for _, e := range edges {
			if edgeType != "" && e.Type != edgeType {
				continue
			}
			o := other(e)
			if !seen[o] {
				seen[o] = true
				out = append(out, o)
			}
		}
	}
	if direction == Out || direction == Both {
		consider(g.out[id], func(e Edge) string { return e.Target })
	}
	if direction == In || direction == Both {
		consider(g.in[id], func(e Edge) string { return e.Source })
	}
	sort.Strings(out)
	return out
}

// Traverse runs a breadth-first search from start, bounded by maxDepth
// (default 2 when <= 0) and optionally filtered to edgeTypes (§4.4).
func (g *Graph) Traverse(start string, maxDepth int, edgeTypes []string) TraverseResult {
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	allowed := toSet(edgeTypes)

	g.mu.RLock()
	defer g.mu.RUnlock()

	if _, ok := g.nodes[start]; !ok {
		return TraverseResult{}
	}

	visited := map[string]bool{start: true}
	var resultNodes []Node
	var resultEdges []Edge
	resultNodes = append(resultNodes, g.nodes[start])

	type frontierItem struct {
		id    string
		depth int
	}
	queue := []frontierItem{{start, 0}}
	edgeSeen := map[string]bool{}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		neighbors := append(append([]Edge{}, g.out[cur.id]...), g.in[cur.id]...)
		for _, e := range neighbors {
			if len(allowed) > 0 && !allowed[e.Type] {
				continue
			}
			ek := e.Source + "|" + e.Target + "|" + e.Type
			if !edgeSeen[ek] {
				edgeSeen[ek] = true
				resultEdges = append(resultEdges, e)
			}
			other := e.Target
			if other == cur.id {
				other = e.Source
			}
			if !visited[other] {
				visited[other] = true
				if n, ok := g.nodes[other]; ok {
					resultNodes = append(resultNodes, n)
				}
				queue = append(queue, frontierItem{other, cur.depth + 1})
			}
		}
	}
	return TraverseResult{Nodes: resultNodes, Edges: resultEdges}
}

// FindPaths enumerates all simple paths from src to dst up to maxLength
// edges (§4.4). Returns nil if either endpoint is missing.
func (g *Graph) FindPaths(src, dst string, maxLength int) [][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.nodes[src]; !ok {
		return nil
	}
	if _, ok := g.nodes[dst]; !ok {
		return nil
	}
	if maxLength <= 0 {
		maxLength = defaultMaxDepth
	}

	var paths [][]string
	visited := map[string]bool{src: true}
	path := []string{src}

	var dfs func(cur string)
	dfs = func(cur string) {
		if cur == dst && len(path) > 1 {
			paths = append(paths, append([]string(nil), path...))
			return
		}
		if len(path)-1 >= maxLength {
			return
		}
		neighbors := append(append([]Edge{}, g.out[cur]...), g.in[cur]...)
		for _, e := range neighbors {
			next := e.Target
			if next == cur {
				next = e.Source
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			path = append(path, next)
			dfs(next)
			path = path[:len(path)-1]
			visited[next] = false
		}
	}
	dfs(src)
	return paths
}

// ComputeCentrality returns normalized degree centrality deg/(|V|-1), zero on
// singletons or missing nodes (§4.4).
func (g *Graph) ComputeCentrality(id string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if _, ok := g.nodes[id]; !ok {
		return 0
	}
	n := len(g.nodes)
	if n <= 1 {
		return 0
	}
	deg := len(g.out[id]) + len(g.in[id])
	return float64(deg) / float64(n-1)
}

// SimilarNode is one result of GetSimilarNodes.
type SimilarNode struct {
	ID         string
	Confidence float64
}

// GetSimilarNodes returns SIMILAR_TO neighbors (both directions), descending
// by confidence, capped to topK (§4.4).
func (g *Graph) GetSimilarNodes(id string, topK int) []SimilarNode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := map[string]float64{}
	for _, e := range g.out[id] {
		if e.Type == "SIMILAR_TO" {
			if c, ok := seen[e.Target]; !ok || e.Confidence > c {
				seen[e.Target] = e.Confidence
			}
		}
	}
	for _, e := range g.in[id] {
		if e.Type == "SIMILAR_TO" {
			if c, ok := seen[e.Source]; !ok || e.Confidence > c {
				seen[e.Source] = e.Confidence
			}
		}
	}
	out := make([]SimilarNode, 0, len(seen))
	for nodeID, conf := range seen {
		out = append(out, SimilarNode{ID: nodeID, Confidence: conf})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ID < out[j].ID
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

// GetStats computes node/edge counts by type, average degree, and density
// (§4.4).
func (g *Graph) GetStats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	st := Stats{NodeCountByType: map[string]int{}, EdgeCountByType: map[string]int{}}
	for _, n := range g.nodes {
		st.NodeCountByType[n.Type]++
	}
	totalDegree := 0
	totalEdges := 0
	for _, edges := range g.out {
		totalEdges += len(edges)
		totalDegree += len(edges)
		for _, e := range edges {
			st.EdgeCountByType[e.Type]++
		}
	}
	n := len(g.nodes)
	if n > 0 {
		st.AverageDegree = float64(totalDegree) / float64(n)
	}
	if n > 1 {
		st.Density = float64(totalEdges) / float64(n*(n-1))
	}
	return st
}

// LoadFromDB repopulates the in-memory graph from the persistent store,
// filtering edges below minConfidence (§4.4).
func (g *Graph) LoadFromDB(ctx context.Context, nodeTypes []string, minConfidence float64) error {
	if g.backing == nil {
		return nil
	}
	nodes, err := g.backing.AllNodes(ctx, nodeTypes)
	if err != nil {
		return fmt.Errorf("load nodes: %w", err)
	}
	edges, err := g.backing.AllEdges(ctx, minConfidence)
	if err != nil {
		return fmt.Errorf("load edges: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = make(map[string]Node, len(nodes))
	for _, n := range nodes {
		g.nodes[n.ID] = Node{ID: n.ID, Type: n.Type, Properties: n.Properties}
	}
	g.out = map[string][]Edge{}
	g.in = map[string][]Edge{}
	for _, e := range edges {
		if _, ok := g.nodes[e.Source]; !ok {
			continue
		}
		if _, ok := g.nodes[e.Target]; !ok {
			continue
		}
		edge := Edge{Source: e.Source, Target: e.Target, Type: e.Type, Confidence: e.Confidence, Properties: e.Properties}
		g.out[e.Source] = append(g.out[e.Source], edge)
		g.in[e.Target] = append(g.in[e.Target], edge)
	}
	return nil
}

func toSet(vals []string) map[string]bool {
	if len(vals) == 0 {
		return nil
	}
	m := make(map[string]bool, len(vals))
	for _, v := range vals {
		m[v] = true
	}
	return m
}
