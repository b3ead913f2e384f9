// Package sourcedb adapts the relational source of record (§1, out of
// scope beyond its interface) into domain.Document values for ingestion.
package sourcedb

import (
	"context"
	"time"

	"ticketrag/internal/domain"
)

// Store is the minimal read surface the ingestion pipeline needs from the
// source database. The source database itself is an external collaborator;
// only this interface is specified (§1).
type Store interface {
	// FetchUpdatedTickets returns tickets (with comments, dynamic fields,
	// related CIs resolved) updated at or after since, newest first,
	// limited to limit rows (limit<=0 means unbounded).
	FetchUpdatedTickets(ctx context.Context, since time.Time, limit int) ([]domain.Ticket, error)
	FetchUpdatedKBArticles(ctx context.Context, since time.Time, limit int) ([]domain.KBArticle, error)
	FetchUpdatedCIItems(ctx context.Context, since time.Time, limit int) ([]domain.CIItem, error)
	Close() error
}
