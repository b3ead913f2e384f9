// Package chunk splits a domain.Document into the semantic pieces required
// by §3.1: header/description/dynamic-field/comment/resolution/related-CI
// chunks for tickets, single chunks for KB articles and CI items.
package chunk

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ticketrag/internal/domain"
)

// Chunk is one semantic fragment of a document, the unit of embedding and
// retrieval (GLOSSARY).
type Chunk struct {
	ID       string
	EntityID string
	Kind     string // chunk kind: header|description|dynamic_field|comment|resolution|related_cis|body
	Index    int
	Text     string
	// Metadata always carries the parent entity's id and the chunk kind
	// (§3.1 invariant), plus document-kind-specific searchable fields.
	Metadata map[string]string
}

// chunkID builds the deterministic id required by §3.1: re-ingesting the
// same entity must yield the same chunk ids.
func chunkID(docKind domain.Kind, entityID string, chunkKind string, index int) string {
	return fmt.Sprintf("%s_%s_%s_%d", docKind, entityID, chunkKind, index)
}

// Ticket emits only non-empty chunks, preserving comment order, per §4.1.
func Ticket(t domain.Ticket) []Chunk {
	entityID := strconv.FormatInt(t.ID, 10)
	base := func(chunkKind string, index int, text string, extra map[string]string) Chunk {
		md := map[string]string{
			"entity_id":      entityID,
			"chunk_kind":     chunkKind,
			"type":           string(domain.KindTicket),
			"ticket_number":  t.Number,
			"title":          t.Title,
			"status":         t.Status,
			"priority":       t.Priority,
			"category":       t.Category,
			"created_at":     t.CreatedAt.Format(time.RFC3339),
			"updated_at":     t.UpdatedAt.Format(time.RFC3339),
			"owner_id":       t.OwnerID,
			"assignee_id":    t.AssigneeID,
			"text":           text,
		}
		for k, v := range extra {
			md[k] = v
		}
		return Chunk{ID: chunkID(domain.KindTicket, entityID, chunkKind, index), EntityID: entityID, Kind: chunkKind, Index: index, Text: text, Metadata: md}
	}

	var out []Chunk
	header := strings.TrimSpace(fmt.Sprintf("%s — %s", t.Number, t.Title))
	if header != "" {
		out = append(out, base("header", 0, header, nil))
	}
	if desc := strings.TrimSpace(t.Description); desc != "" {
		out = append(out, base("description", 0, desc, nil))
	}
	for i, f := range t.DynamicFields {
		text := strings.TrimSpace(fmt.Sprintf("%s: %s", f.Name, f.Value))
		if text == "" {
			continue
		}
		out = append(out, base("dynamic_field", i, text, map[string]string{"field_name": f.Name}))
	}
	for i, c := range t.Comments {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		text = fmt.Sprintf("%s (%s): %s", c.Author, c.CreatedAt.Format(time.RFC3339), text)
		out = append(out, base("comment", i, text, map[string]string{"author": c.Author}))
	}
	if isClosed(t.Status) {
		if res := strings.TrimSpace(t.Resolution); res != "" {
			out = append(out, base("resolution", 0, res, nil))
		}
	}
	if len(t.RelatedCIs) > 0 {
		text := "Related configuratie-items: " + strings.Join(t.RelatedCIs, ", ")
		out = append(out, base("related_cis", 0, text, nil))
	}
	return out
}

func isClosed(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	return s == "closed" || s == "resolved" || s == "gesloten" || s == "opgelost"
}

// KB emits a single chunk for a KB article, per §3.1.
func KB(a domain.KBArticle) []Chunk {
	entityID := strconv.FormatInt(a.ID, 10)
	text := strings.TrimSpace(a.Title + "\n" + a.Body)
	if text == "" {
		return nil
	}
	md := map[string]string{
		"entity_id":  entityID,
		"chunk_kind": "body",
		"type":       string(domain.KindKB),
		"title":      a.Title,
		"category":   a.Category,
		"tags":       strings.Join(a.Tags, ","),
		"author":     a.Author,
		"published":  strconv.FormatBool(a.Published),
		"updated_at": a.UpdatedAt.Format(time.RFC3339),
		"text":       text,
	}
	return []Chunk{{ID: chunkID(domain.KindKB, entityID, "body", 0), EntityID: entityID, Kind: "body", Index: 0, Text: text, Metadata: md}}
}

// CI emits a single chunk for a configuration item, per §3.1.
func CI(c domain.CIItem) []Chunk {
	entityID := strconv.FormatInt(c.ID, 10)
	text := strings.TrimSpace(fmt.Sprintf("%s — %s %s %s\n%s", c.Number, c.Name, c.Type, c.Model, c.Notes))
	if text == "" {
		return nil
	}
	md := map[string]string{
		"entity_id": entityID,
		"chunk_kind": "body",
		"type":       string(domain.KindCI),
		"ci_number":  c.Number,
		"brand":      c.Brand,
		"model":      c.Model,
		"serial":     c.Serial,
		"status":     c.Status,
		"location":   c.Location,
		"updated_at": c.UpdatedAt.Format(time.RFC3339),
		"text":       text,
	}
	return []Chunk{{ID: chunkID(domain.KindCI, entityID, "body", 0), EntityID: entityID, Kind: "body", Index: 0, Text: text, Metadata: md}}
}
