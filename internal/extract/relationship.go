package extract

import (
	"strings"

	"ticketrag/internal/domain"
)

// EdgeType is one member of the closed edge-type set (§3.2).
type EdgeType string

const (
	EdgeCreatedBy  EdgeType = "CREATED_BY"
	EdgeAssignedTo EdgeType = "ASSIGNED_TO"
	EdgeAffects    EdgeType = "AFFECTS"
	EdgeSimilarTo  EdgeType = "SIMILAR_TO"
	EdgeResolvedBy EdgeType = "RESOLVED_BY"
	EdgeBelongsTo  EdgeType = "BELONGS_TO"
	EdgeMentions   EdgeType = "MENTIONS"
	EdgeLocatedAt  EdgeType = "LOCATED_AT"
	EdgeDocumented EdgeType = "DOCUMENTED_IN"
	EdgeDuplicate  EdgeType = "DUPLICATE_OF"
)

var validEdgeTypes = map[EdgeType]bool{
	EdgeCreatedBy: true, EdgeAssignedTo: true, EdgeAffects: true, EdgeSimilarTo: true,
	EdgeResolvedBy: true, EdgeBelongsTo: true, EdgeMentions: true, EdgeLocatedAt: true,
	EdgeDocumented: true, EdgeDuplicate: true,
}

// Edge is a candidate graph edge, not yet validated against live node ids.
type Edge struct {
	Source     string
	Target     string
	Type       EdgeType
	Confidence float64
}

// Valid checks an edge against §4.3's validation rules: edge type must be in
// the closed set, confidence in [0,1], endpoints present and distinct.
func (e Edge) Valid() bool {
	if e.Source == "" || e.Target == "" || e.Source == e.Target {
		return false
	}
	if !validEdgeTypes[e.Type] {
		return false
	}
	return e.Confidence >= 0 && e.Confidence <= 1
}

// KBLookup resolves a KB article id whose title/tags match a keyword found in
// resolution text, per the RESOLVED_BY row of §4.3's table.
type KBLookup func(keyword string) (kbNodeID string, ok bool)

// TicketEdges derives edges from a ticket plus its pre-extracted entities,
// per the §4.3 table. Edges referencing entity/KB nodes use the caller-
// supplied node id format ({type}_{slug}); the caller is responsible for
// ensuring those nodes exist before calling graph.AddEdge.
func TicketEdges(t domain.Ticket, ticketNodeID string, entities map[EntityType][]Entity, lookupKB KBLookup) []Edge {
	var edges []Edge

	if t.OwnerID != "" {
		edges = append(edges, Edge{Source: ticketNodeID, Target: userNodeID(t.OwnerID), Type: EdgeCreatedBy, Confidence: 1.0})
	}
	if t.AssigneeID != "" {
		edges = append(edges, Edge{Source: ticketNodeID, Target: userNodeID(t.AssigneeID), Type: EdgeAssignedTo, Confidence: 1.0})
	}
	if t.Category != "" {
		edges = append(edges, Edge{Source: ticketNodeID, Target: categoryNodeID(t.Category), Type: EdgeBelongsTo, Confidence: 1.0})
	}
	for _, ci := range t.RelatedCIs {
		edges = append(edges, Edge{Source: ticketNodeID, Target: ciNodeID(ci), Type: EdgeAffects, Confidence: 1.0})
	}

	for entType, list := range entities {
		for _, e := range list {
			if entType == EntityProduct && e.Label == "BRAND_MODEL" && e.Source == "regex" {
				edges = append(edges, Edge{Source: ticketNodeID, Target: entityNodeID(string(entType), e.Text), Type: EdgeAffects, Confidence: 0.85})
				continue
			}
			edges = append(edges, Edge{Source: ticketNodeID, Target: entityNodeID(string(entType), e.Text), Type: EdgeMentions, Confidence: e.Confidence})
		}
	}

	if isClosed(t.Status) && strings.TrimSpace(t.Resolution) != "" && lookupKB != nil {
		for _, word := range strings.Fields(strings.ToLower(t.Resolution)) {
			word = strings.Trim(word, ".,;:()\"'")
			if len(word) < 4 {
				continue
			}
			if kbID, ok := lookupKB(word); ok {
				edges = append(edges, Edge{Source: ticketNodeID, Target: kbID, Type: EdgeResolvedBy, Confidence: 0.70})
				break
			}
		}
	}

	valid := edges[:0]
	for _, e := range edges {
		if e.Valid() {
			valid = append(valid, e)
		}
	}
	return valid
}

// CIEdges derives a LOCATED_AT edge from a CI item's location field (the
// final row of §4.3's table). No department edge is derived: domain.CIItem
// carries no department field.
func CIEdges(c domain.CIItem, ciNodeIDv string) []Edge {
	var edges []Edge
	if c.Location != "" {
		edges = append(edges, Edge{Source: ciNodeIDv, Target: locationNodeID(c.Location), Type: EdgeLocatedAt, Confidence: 1.0})
	}
	valid := edges[:0]
	for _, e := range edges {
		if e.Valid() {
			valid = append(valid, e)
		}
	}
	return valid
}

// SimilarEdge builds a SIMILAR_TO candidate edge when a cosine score clears
// the 0.75 threshold (§4.3); callers pass the already-computed cosine.
func SimilarEdge(srcTicketNodeID, dstTicketNodeID string, cosine float64) (Edge, bool) {
	if cosine < 0.75 {
		return Edge{}, false
	}
	e := Edge{Source: srcTicketNodeID, Target: dstTicketNodeID, Type: EdgeSimilarTo, Confidence: cosine}
	return e, e.Valid()
}

func isClosed(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	return s == "closed" || s == "resolved" || s == "gesloten" || s == "opgelost"
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "_")
}

func userNodeID(id string) string     { return "user_" + slug(id) }
func categoryNodeID(c string) string  { return "category_" + slug(c) }
func ciNodeID(number string) string   { return "ci_" + slug(number) }
func locationNodeID(l string) string  { return "location_" + slug(l) }
func entityNodeID(typ, text string) string {
	return typ + "_" + slug(text)
}
