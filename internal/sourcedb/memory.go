package sourcedb

import (
	"context"
	"time"

	"ticketrag/internal/domain"
)

// memoryStore is a fixed in-memory Store, used by tests.
type memoryStore struct {
	tickets []domain.Ticket
	kb      []domain.KBArticle
	ci      []domain.CIItem
}

// NewMemory constructs a Store over fixed in-process rows. Fetches keep rows
// updated at or after since and stop after limit rows when limit > 0; rows
// come back in the order given, not sorted newest first.
func NewMemory(tickets []domain.Ticket, kb []domain.KBArticle, ci []domain.CIItem) Store {
	return &memoryStore{tickets: tickets, kb: kb, ci: ci}
}

func (m *memoryStore) FetchUpdatedTickets(_ context.Context, since time.Time, limit int) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, t := range m.tickets {
		if t.UpdatedAt.Before(since) {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memoryStore) FetchUpdatedKBArticles(_ context.Context, since time.Time, limit int) ([]domain.KBArticle, error) {
	var out []domain.KBArticle
	for _, a := range m.kb {
		if a.UpdatedAt.Before(since) {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memoryStore) FetchUpdatedCIItems(_ context.Context, since time.Time, limit int) ([]domain.CIItem, error) {
	var out []domain.CIItem
	for _, c := range m.ci {
		if c.UpdatedAt.Before(since) {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *memoryStore) Close() error { return nil }
