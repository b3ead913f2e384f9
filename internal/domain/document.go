// Package domain defines the closed set of document kinds ingested from the
// relational source (§3.1, §9 "dynamic/untyped payloads → tagged variants").
package domain

import "time"

// Comment is one reply on a ticket, order-preserved.
type Comment struct {
	Author    string
	Text      string
	CreatedAt time.Time
}

// DynamicField is a structured key/value pair attached to a ticket (e.g. an
// intake form field), mapped directly into the entity extractor per §4.2.
type DynamicField struct {
	Name  string
	Value string
}

// Ticket is the primary document kind.
type Ticket struct {
	ID           int64
	Number        string // human ticket number, e.g. "T-1"
	Title         string
	Description   string
	Status        string
	Priority      string
	Category      string
	OwnerID       string
	AssigneeID    string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Comments      []Comment
	DynamicFields []DynamicField
	Resolution    string // non-empty only when Status is closed/resolved
	RelatedCIs    []string
}

// KBArticle is a knowledge-base article.
type KBArticle struct {
	ID        int64
	Title     string
	Body      string
	Tags      []string
	Category  string
	Published bool
	Author    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CIItem is a configuration item (an asset: laptop, router, etc).
type CIItem struct {
	ID        int64
	Number    string
	Name      string
	Type      string
	Notes     string
	Brand     string
	Model     string
	Serial    string
	Status    string
	Location  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Kind discriminates the tagged union below, carried in vector-store payload
// under the "type" key per §3.3.
type Kind string

const (
	KindTicket Kind = "ticket"
	KindKB     Kind = "kb_article"
	KindCI     Kind = "ci_item"
)

// Document is the closed sum type over the three document kinds. Exactly one
// of Ticket, KB, CI is non-nil, matching Kind. Only the text-extraction step
// (chunking) branches on Kind; everything downstream deals in chunks.
type Document struct {
	Kind Kind
	ID   string // globally unique within the source: "{kind}:{numeric id}"

	Ticket *Ticket
	KB     *KBArticle
	CI     *CIItem
}
