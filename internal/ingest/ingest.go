// Package ingest orchestrates sync/incremental_sync: fetch from the source
// store, chunk, embed, extract entities and edges, and write through to the
// vector store and knowledge graph (§4.1).
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"ticketrag/internal/apperr"
	"ticketrag/internal/chunk"
	"ticketrag/internal/domain"
	"ticketrag/internal/embed"
	"ticketrag/internal/extract"
	"ticketrag/internal/graph"
	"ticketrag/internal/sourcedb"
	"ticketrag/internal/store"
)

const (
	vectorBatchSize = 100
	defaultWindow   = time.Hour
)

// errUnchanged marks an entity skipped under PolicySkipIfUnchanged.
var errUnchanged = errors.New("ingest: entity unchanged")

// ReingestPolicy mirrors the teacher's idempotency vocabulary, generalized
// to the three document kinds of §3.1.
type ReingestPolicy string

const (
	PolicySkipIfUnchanged ReingestPolicy = "skip_if_unchanged"
	PolicyOverwrite       ReingestPolicy = "overwrite"
	PolicyNewVersion      ReingestPolicy = "new_version"
)

// Options configures one sync run.
type Options struct {
	SinceHours int
	Limit      int
	Policy     ReingestPolicy
}

// Stats reports what one sync run did.
type Stats struct {
	TicketsProcessed int
	KBProcessed      int
	CIProcessed      int
	ChunksUpserted   int
	Errors           int
}

// Pipeline ties the source store to the chunk/embed/extract/graph stages and
// the destination stores (§4.1).
type Pipeline struct {
	Source    sourcedb.Store
	Vector    map[string]store.VectorStore // keyed by domain.Kind
	Graph     *graph.Graph
	Embedder  embed.Embedder
	Extractor *extract.Extractor
	Hashes    map[string]string // entity node id -> last-seen content hash, for skip_if_unchanged
}

// Sync runs one ingestion pass over rows updated since the configured
// window (§4.1's sync(since_hours?, limit?)).
func (p *Pipeline) Sync(ctx context.Context, opts Options) (Stats, error) {
	since := time.Now().Add(-time.Duration(max(opts.SinceHours, 1)) * time.Hour)
	var stats Stats

	tickets, err := p.Source.FetchUpdatedTickets(ctx, since, opts.Limit)
	if err != nil {
		return stats, fmt.Errorf("ingest: fetch tickets: %w", err)
	}
	for _, t := range tickets {
		if err := p.ingestTicket(ctx, t, opts.Policy); err != nil {
			if err == errUnchanged {
				continue
			}
			stats.Errors++
			continue
		}
		stats.TicketsProcessed++
		stats.ChunksUpserted += len(chunk.Ticket(t))
	}

	kbArticles, err := p.Source.FetchUpdatedKBArticles(ctx, since, opts.Limit)
	if err != nil {
		return stats, fmt.Errorf("ingest: fetch kb articles: %w", err)
	}
	for _, a := range kbArticles {
		if err := p.ingestKB(ctx, a, opts.Policy); err != nil {
			if err == errUnchanged {
				continue
			}
			stats.Errors++
			continue
		}
		stats.KBProcessed++
		stats.ChunksUpserted += len(chunk.KB(a))
	}

	ciItems, err := p.Source.FetchUpdatedCIItems(ctx, since, opts.Limit)
	if err != nil {
		return stats, fmt.Errorf("ingest: fetch ci items: %w", err)
	}
	for _, c := range ciItems {
		if err := p.ingestCI(ctx, c, opts.Policy); err != nil {
			if err == errUnchanged {
				continue
			}
			stats.Errors++
			continue
		}
		stats.CIProcessed++
		stats.ChunksUpserted += len(chunk.CI(c))
	}

	return stats, nil
}

// IncrementalSync is equivalent to Sync(since_hours=1) (§4.1).
func (p *Pipeline) IncrementalSync(ctx context.Context) (Stats, error) {
	return p.Sync(ctx, Options{SinceHours: 1})
}

func (p *Pipeline) ingestTicket(ctx context.Context, t domain.Ticket, policy ReingestPolicy) error {
	nodeID := "ticket_" + strconv.FormatInt(t.ID, 10)
	hash := contentHash(t.Title, t.Description, t.Resolution, t.Status)
	if p.skip(nodeID, hash, policy) {
		return errUnchanged
	}

	chunks := chunk.Ticket(t)
	if err := p.upsertChunks(ctx, domain.KindTicket, chunks); err != nil {
		return err
	}

	if p.Graph == nil {
		p.remember(nodeID, hash)
		return nil
	}
	if err := p.Graph.AddNode(ctx, nodeID, "ticket", ticketProperties(t)); err != nil {
		return fmt.Errorf("ingest: add ticket node: %w", err)
	}

	fullText := t.Title + "\n" + t.Description + "\n" + t.Resolution
	structured := map[string]string{"category": t.Category}
	for _, f := range t.DynamicFields {
		structured[f.Name] = f.Value
	}
	entities := p.Extractor.Extract(fullText, structured)

	for entType, list := range entities {
		for _, e := range list {
			entID := string(entType) + "_" + slug(e.Text)
			if err := p.Graph.AddNode(ctx, entID, string(entType), map[string]any{"text": e.Text, "label": e.Label}); err != nil {
				logDroppedEntity(nodeID, entID, err)
				continue
			}
		}
	}

	for _, edge := range extract.TicketEdges(t, nodeID, entities, nil) {
		if err := p.ensureEndpoints(ctx, edge); err != nil {
			logDroppedEdge(edge, err)
			continue
		}
		if err := p.Graph.AddEdge(ctx, edge.Source, edge.Target, string(edge.Type), edge.Confidence, nil); err != nil {
			logDroppedEdge(edge, err)
		}
	}

	p.remember(nodeID, hash)
	return nil
}

func (p *Pipeline) ingestKB(ctx context.Context, a domain.KBArticle, policy ReingestPolicy) error {
	nodeID := "kb_article_" + strconv.FormatInt(a.ID, 10)
	hash := contentHash(a.Title, a.Body)
	if p.skip(nodeID, hash, policy) {
		return errUnchanged
	}
	if err := p.upsertChunks(ctx, domain.KindKB, chunk.KB(a)); err != nil {
		return err
	}
	if p.Graph != nil {
		if err := p.Graph.AddNode(ctx, nodeID, "kb_article", map[string]any{"title": a.Title, "tags": a.Tags}); err != nil {
			return fmt.Errorf("ingest: add kb node: %w", err)
		}
	}
	p.remember(nodeID, hash)
	return nil
}

func (p *Pipeline) ingestCI(ctx context.Context, c domain.CIItem, policy ReingestPolicy) error {
	nodeID := "ci_item_" + strconv.FormatInt(c.ID, 10)
	hash := contentHash(c.Name, c.Notes, c.Status, c.Location)
	if p.skip(nodeID, hash, policy) {
		return errUnchanged
	}
	if err := p.upsertChunks(ctx, domain.KindCI, chunk.CI(c)); err != nil {
		return err
	}
	if p.Graph != nil {
		if err := p.Graph.AddNode(ctx, nodeID, "ci", map[string]any{"name": c.Name, "brand": c.Brand, "model": c.Model}); err != nil {
			return fmt.Errorf("ingest: add ci node: %w", err)
		}
		for _, edge := range extract.CIEdges(c, nodeID) {
			if err := p.ensureEndpoints(ctx, edge); err != nil {
				logDroppedEdge(edge, err)
				continue
			}
			if err := p.Graph.AddEdge(ctx, edge.Source, edge.Target, string(edge.Type), edge.Confidence, nil); err != nil {
				logDroppedEdge(edge, err)
			}
		}
	}
	p.remember(nodeID, hash)
	return nil
}

// ensureEndpoints creates missing node placeholders for edge targets the
// main entity loop didn't already create (users, categories, locations),
// so AddEdge's existence check (§4.4) doesn't reject a legitimate edge.
func (p *Pipeline) ensureEndpoints(ctx context.Context, e extract.Edge) error {
	if p.Graph == nil {
		return nil
	}
	nodeType, ok := inferNodeType(e.Target)
	if !ok {
		return nil
	}
	return p.Graph.AddNode(ctx, e.Target, nodeType, nil)
}

// logDroppedEntity records a per-entity node-creation failure as non-fatal
// (§7's ExtractionError: logged and counted, never aborts the ticket).
func logDroppedEntity(ticketNodeID, entityNodeID string, cause error) {
	err := apperr.Wrap(apperr.KindExtraction, "drop entity "+entityNodeID, cause)
	log.Warn().Err(err).Str("ticket_node", ticketNodeID).Str("entity_node", entityNodeID).Msg("ingest: dropped entity")
}

// logDroppedEdge records an edge that failed its existence/confidence
// invariant as non-fatal (§7's GraphInvariant: logged and dropped).
func logDroppedEdge(e extract.Edge, cause error) {
	err := apperr.Wrap(apperr.KindGraphInvariant, fmt.Sprintf("drop edge %s->%s", e.Source, e.Target), cause)
	log.Warn().Err(err).Str("source", e.Source).Str("target", e.Target).Str("edge_type", string(e.Type)).Msg("ingest: dropped edge")
}

func inferNodeType(nodeID string) (string, bool) {
	for _, prefix := range []string{"user_", "category_", "ci_", "location_"} {
		if len(nodeID) > len(prefix) && nodeID[:len(prefix)] == prefix {
			return prefix[:len(prefix)-1], true
		}
	}
	return "", false
}

// upsertChunks embeds and upserts chunks in batches of at most
// vectorBatchSize, emitting zero-vectors on a batch failure so ids stay
// aligned (§4.1).
func (p *Pipeline) upsertChunks(ctx context.Context, kind domain.Kind, chunks []chunk.Chunk) error {
	vs, ok := p.Vector[string(kind)]
	if !ok {
		return fmt.Errorf("ingest: no vector store configured for kind %q", kind)
	}
	for start := 0; start < len(chunks); start += vectorBatchSize {
		end := min(start+vectorBatchSize, len(chunks))
		batch := chunks[start:end]
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vectors, err := p.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			vectors = make([][]float32, len(batch))
			for i := range vectors {
				vectors[i] = make([]float32, p.Embedder.Dimension())
			}
		}
		for i, c := range batch {
			md := sanitize(c.Metadata)
			if err := vs.Upsert(ctx, c.ID, vectors[i], md); err != nil {
				return fmt.Errorf("ingest: upsert chunk %s: %w", c.ID, err)
			}
		}
	}
	return nil
}

// sanitize ensures every metadata value is a plain string, per §4.1's
// vector-store contract (already true for chunk.Chunk.Metadata, but this is
// the documented enforcement point).
func sanitize(md map[string]string) map[string]string {
	out := make(map[string]string, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}

func (p *Pipeline) skip(nodeID, hash string, policy ReingestPolicy) bool {
	if policy != PolicySkipIfUnchanged || p.Hashes == nil {
		return false
	}
	return p.Hashes[nodeID] == hash
}

func (p *Pipeline) remember(nodeID, hash string) {
	if p.Hashes != nil {
		p.Hashes[nodeID] = hash
	}
}

func contentHash(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func ticketProperties(t domain.Ticket) map[string]any {
	return map[string]any{
		"ticket_number": t.Number,
		"title":         t.Title,
		"status":        t.Status,
		"priority":      t.Priority,
		"category":      t.Category,
		"updated_at":    t.UpdatedAt.Format(time.RFC3339),
	}
}

func slug(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == ' ':
			out = append(out, '_')
		}
	}
	return string(out)
}
