package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"ticketrag/internal/config"
)

// Kind enumerates the three document kinds, each with its own vector
// collection (§3.1, §3.3).
type Kind string

const (
	KindTicket    Kind = "ticket"
	KindKBArticle Kind = "kb_article"
	KindCIItem    Kind = "ci_item"
)

var AllKinds = []Kind{KindTicket, KindKBArticle, KindCIItem}

// Manager holds the resolved vector collections (one per kind) and the
// knowledge-graph store, per configuration.
type Manager struct {
	Vector map[Kind]VectorStore
	Graph  GraphStore
}

// Close releases any network resources held by the backends.
func (m Manager) Close() {
	for _, v := range m.Vector {
		_ = v.Close()
	}
	if m.Graph != nil {
		_ = m.Graph.Close()
	}
}

// NewManager builds the vector collections and the graph store from cfg.
func NewManager(ctx context.Context, cfg *config.Config) (Manager, error) {
	m := Manager{Vector: map[Kind]VectorStore{}}
	for _, k := range AllKinds {
		vs, err := newVectorStore(ctx, cfg, string(k))
		if err != nil {
			return Manager{}, fmt.Errorf("vector store for %s: %w", k, err)
		}
		m.Vector[k] = vs
	}
	g, err := newGraphStore(ctx, cfg)
	if err != nil {
		return Manager{}, fmt.Errorf("graph store: %w", err)
	}
	m.Graph = g
	return m, nil
}

func newVectorStore(ctx context.Context, cfg *config.Config, collection string) (VectorStore, error) {
	switch cfg.Vector.Backend {
	case "", "memory":
		return NewMemoryVector(cfg.Vector.Dimensions), nil
	case "qdrant":
		return NewQdrantVector(cfg.Vector.DSN, collection, cfg.Vector.Dimensions, cfg.Vector.Metric)
	default:
		return nil, fmt.Errorf("unsupported vector backend %q", cfg.Vector.Backend)
	}
}

func newGraphStore(ctx context.Context, cfg *config.Config) (GraphStore, error) {
	switch cfg.Graph.Backend {
	case "", "memory":
		return NewMemoryGraphStore(), nil
	case "postgres", "pg":
		pool, err := newPgPool(ctx, cfg.Graph.DSN)
		if err != nil {
			return nil, err
		}
		return NewPostgresGraphStore(ctx, pool)
	default:
		return nil, fmt.Errorf("unsupported graph backend %q", cfg.Graph.Backend)
	}
}

func newPgPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pcfg.MaxConns = 8
	pcfg.MaxConnLifetime = time.Hour
	pcfg.MaxConnIdleTime = 5 * time.Minute
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
