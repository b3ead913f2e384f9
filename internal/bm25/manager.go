package bm25

import (
	"context"
	"fmt"
	"sync"

	"ticketrag/internal/store"
)

// Manager holds one Index per collection (document kind) and can rebuild a
// single collection's index independently of the others, per §4.6's
// refresh_index requirement (§9 open question (b)).
type Manager struct {
	mu       sync.RWMutex
	stores   map[string]store.VectorStore
	indexes  map[string]*Index
	payloads map[string]map[string]map[string]string // collection -> id -> metadata
	k1, b    float64
}

// NewManager constructs a Manager over one VectorStore per collection name.
func NewManager(stores map[string]store.VectorStore, k1, b float64) *Manager {
	return &Manager{stores: stores, indexes: map[string]*Index{}, payloads: map[string]map[string]map[string]string{}, k1: k1, b: b}
}

// RefreshAll rebuilds every collection's index by scrolling its vector store.
func (m *Manager) RefreshAll(ctx context.Context) error {
	for name := range m.stores {
		if err := m.RefreshIndex(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// RefreshIndex rescrolls one collection's payloads and rebuilds only that
// collection's index, without touching any other collection or restarting
// the process.
func (m *Manager) RefreshIndex(ctx context.Context, collection string) error {
	vs, ok := m.stores[collection]
	if !ok {
		return fmt.Errorf("bm25: unknown collection %q", collection)
	}
	results, err := vs.Scroll(ctx, 0)
	if err != nil {
		return fmt.Errorf("bm25: scroll collection %q: %w", collection, err)
	}
	docs := make([]Doc, 0, len(results))
	payloads := make(map[string]map[string]string, len(results))
	for _, r := range results {
		docs = append(docs, Doc{ID: r.ID, Text: r.Metadata["text"]})
		payloads[r.ID] = r.Metadata
	}
	idx := New(docs, m.k1, m.b)

	m.mu.Lock()
	m.indexes[collection] = idx
	m.payloads[collection] = payloads
	m.mu.Unlock()
	return nil
}

// Payload returns the cached metadata for id within collection, as captured
// by the most recent RefreshIndex call, or nil if unknown.
func (m *Manager) Payload(collection, id string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.payloads[collection][id]
}

// Search runs a query against one collection's index; returns nil if the
// collection has no built index yet.
func (m *Manager) Search(collection, query string, topK int) []Hit {
	m.mu.RLock()
	idx := m.indexes[collection]
	m.mu.RUnlock()
	if idx == nil {
		return nil
	}
	return idx.Search(query, topK)
}
