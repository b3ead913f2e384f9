package sourcedb

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ticketrag/internal/domain"
)

type postgresStore struct{ pool *pgxpool.Pool }

// NewPostgres opens a Store backed by the help-desk portal's relational
// schema (tickets/comments/dynamic_fields/ci_items/ticket_ci_links/kb_articles).
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

func (s *postgresStore) FetchUpdatedTickets(ctx context.Context, since time.Time, limit int) ([]domain.Ticket, error) {
	query := `
SELECT id, ticket_number, title, description, status, priority, category,
       owner_id, assignee_id, created_at, updated_at, resolution
FROM tickets WHERE updated_at >= $1 ORDER BY updated_at DESC`
	args := []any{since}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(&t.ID, &t.Number, &t.Title, &t.Description, &t.Status, &t.Priority,
			&t.Category, &t.OwnerID, &t.AssigneeID, &t.CreatedAt, &t.UpdatedAt, &t.Resolution); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range tickets {
		comments, err := s.fetchComments(ctx, tickets[i].ID)
		if err != nil {
			return nil, err
		}
		tickets[i].Comments = comments

		fields, err := s.fetchDynamicFields(ctx, tickets[i].ID)
		if err != nil {
			return nil, err
		}
		tickets[i].DynamicFields = fields

		related, err := s.fetchRelatedCIs(ctx, tickets[i].ID)
		if err != nil {
			return nil, err
		}
		tickets[i].RelatedCIs = related
	}
	return tickets, nil
}

func (s *postgresStore) fetchComments(ctx context.Context, ticketID int64) ([]domain.Comment, error) {
	rows, err := s.pool.Query(ctx, `SELECT author, body, created_at FROM ticket_comments WHERE ticket_id=$1 ORDER BY created_at ASC`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.Author, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *postgresStore) fetchDynamicFields(ctx context.Context, ticketID int64) ([]domain.DynamicField, error) {
	rows, err := s.pool.Query(ctx, `SELECT field_name, field_value FROM ticket_dynamic_fields WHERE ticket_id=$1`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.DynamicField
	for rows.Next() {
		var f domain.DynamicField
		if err := rows.Scan(&f.Name, &f.Value); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// fetchRelatedCIs resolves the related-CI numbers for a ticket. When the join
// table doesn't exist in this deployment's schema, the intent is "no related
// CIs", not an error — the reference implementation's fallback here had a
// dangling else; this is the corrected behavior (§9 open question (a)).
func (s *postgresStore) fetchRelatedCIs(ctx context.Context, ticketID int64) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
SELECT ci.ci_number FROM ticket_ci_links l
JOIN ci_items ci ON ci.id = l.ci_id
WHERE l.ticket_id = $1`, ticketID)
	if err != nil {
		if isMissingTable(err) {
			return []string{}, nil
		}
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var ciNumber string
		if err := rows.Scan(&ciNumber); err != nil {
			return nil, err
		}
		out = append(out, ciNumber)
	}
	return out, rows.Err()
}

// undefinedTableCode is Postgres error code 42P01 (undefined_table).
const undefinedTableCode = "42P01"

func isMissingTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == undefinedTableCode
	}
	return false
}

func (s *postgresStore) FetchUpdatedKBArticles(ctx context.Context, since time.Time, limit int) ([]domain.KBArticle, error) {
	query := `
SELECT id, title, body, tags, category, published, author, created_at, updated_at
FROM kb_articles WHERE updated_at >= $1 ORDER BY updated_at DESC`
	args := []any{since}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.KBArticle
	for rows.Next() {
		var a domain.KBArticle
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.Tags, &a.Category, &a.Published, &a.Author, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *postgresStore) FetchUpdatedCIItems(ctx context.Context, since time.Time, limit int) ([]domain.CIItem, error) {
	query := `
SELECT id, ci_number, name, type, notes, brand, model, serial, status, location, created_at, updated_at
FROM ci_items WHERE updated_at >= $1 ORDER BY updated_at DESC`
	args := []any{since}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.CIItem
	for rows.Next() {
		var c domain.CIItem
		if err := rows.Scan(&c.ID, &c.Number, &c.Name, &c.Type, &c.Notes, &c.Brand, &c.Model, &c.Serial, &c.Status, &c.Location, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *postgresStore) Close() error { s.pool.Close(); return nil }
