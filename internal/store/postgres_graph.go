package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresGraphStore struct{ pool *pgxpool.Pool }

// NewPostgresGraphStore opens the two-table schema from §6.2: graph_nodes and
// graph_edges, with a uniqueness constraint on (source_id, target_id,
// edge_type) so re-adding an edge is a true upsert (§3.2).
func NewPostgresGraphStore(ctx context.Context, pool *pgxpool.Pool) (GraphStore, error) {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS graph_nodes (
			node_id TEXT PRIMARY KEY,
			node_type TEXT NOT NULL,
			properties JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS graph_edges (
			edge_id BIGSERIAL PRIMARY KEY,
			source_id TEXT NOT NULL REFERENCES graph_nodes(node_id),
			target_id TEXT NOT NULL REFERENCES graph_nodes(node_id),
			edge_type TEXT NOT NULL,
			confidence DECIMAL(3,2) NOT NULL,
			properties JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE(source_id, target_id, edge_type)
		)`,
		`CREATE INDEX IF NOT EXISTS graph_edges_source_idx ON graph_edges(source_id)`,
		`CREATE INDEX IF NOT EXISTS graph_edges_target_idx ON graph_edges(target_id)`,
	}
	for _, stmt := range ddl {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return nil, err
		}
	}
	return &postgresGraphStore{pool: pool}, nil
}

func (s *postgresGraphStore) UpsertNode(ctx context.Context, n GraphNode) error {
	props, err := json.Marshal(orEmpty(n.Properties))
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO graph_nodes(node_id, node_type, properties, created_at, updated_at)
VALUES ($1, $2, $3, now(), now())
ON CONFLICT (node_id) DO UPDATE SET node_type = EXCLUDED.node_type, properties = EXCLUDED.properties, updated_at = now()
`, n.ID, n.Type, props)
	return err
}

func (s *postgresGraphStore) UpsertEdge(ctx context.Context, e GraphEdge) error {
	props, err := json.Marshal(orEmpty(e.Properties))
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
INSERT INTO graph_edges(source_id, target_id, edge_type, confidence, properties, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, now(), now())
ON CONFLICT (source_id, target_id, edge_type) DO UPDATE SET confidence = EXCLUDED.confidence, properties = EXCLUDED.properties, updated_at = now()
`, e.Source, e.Target, e.Type, e.Confidence, props)
	return err
}

func (s *postgresGraphStore) GetNode(ctx context.Context, id string) (GraphNode, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT node_id, node_type, properties, created_at FROM graph_nodes WHERE node_id=$1`, id)
	var n GraphNode
	var raw []byte
	var createdAt time.Time
	if err := row.Scan(&n.ID, &n.Type, &raw, &createdAt); err != nil {
		return GraphNode{}, false, nil
	}
	n.CreatedAt = createdAt
	n.Properties = map[string]any{}
	_ = json.Unmarshal(raw, &n.Properties)
	return n, true, nil
}

func (s *postgresGraphStore) AllNodes(ctx context.Context, nodeTypes []string) ([]GraphNode, error) {
	var rows pgxRows
	var err error
	if len(nodeTypes) == 0 {
		rows, err = s.pool.Query(ctx, `SELECT node_id, node_type, properties, created_at FROM graph_nodes`)
	} else {
		rows, err = s.pool.Query(ctx, `SELECT node_id, node_type, properties, created_at FROM graph_nodes WHERE node_type = ANY($1)`, nodeTypes)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GraphNode
	for rows.Next() {
		var n GraphNode
		var raw []byte
		var createdAt time.Time
		if err := rows.Scan(&n.ID, &n.Type, &raw, &createdAt); err != nil {
			return nil, err
		}
		n.CreatedAt = createdAt
		n.Properties = map[string]any{}
		_ = json.Unmarshal(raw, &n.Properties)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *postgresGraphStore) AllEdges(ctx context.Context, minConfidence float64) ([]GraphEdge, error) {
	rows, err := s.pool.Query(ctx, `
SELECT edge_id::text, source_id, target_id, edge_type, confidence, properties, created_at, updated_at
FROM graph_edges WHERE confidence >= $1`, minConfidence)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GraphEdge
	for rows.Next() {
		var e GraphEdge
		var raw []byte
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &e.Type, &e.Confidence, &raw, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.Properties = map[string]any{}
		_ = json.Unmarshal(raw, &e.Properties)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *postgresGraphStore) Close() error { s.pool.Close(); return nil }

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// pgxRows is the minimal subset of pgx.Rows used above, declared locally so
// this file doesn't need to import pgx directly for the type alone.
type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}
