// Package extract derives entities and graph edges from ticket text and
// structured fields (§4.2, §4.3).
package extract

import (
	"regexp"
	"sort"
	"strings"
)

// EntityType is one of the extracted-entity node types from §3.2.
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityOrganization EntityType = "organization"
	EntityProduct      EntityType = "product"
	EntityError        EntityType = "error"
	EntityLocation     EntityType = "location"
	EntityMisc         EntityType = "misc"
)

// Entity is one extracted mention, per §4.2.
type Entity struct {
	Text       string
	Label      string
	Confidence float64
	Start      int
	End        int
	Source     string // "ner" | "regex" | "dynamic_field"
}

// knownBrands reclassifies an ORG-labelled surface form as a product when it
// names a hardware/software vendor (§4.2, §12 supplemented feature), taken
// verbatim from the source extractor's brand table.
var knownBrands = map[string]bool{
	"dell": true, "hp": true, "lenovo": true, "asus": true, "acer": true,
	"microsoft": true, "apple": true, "cisco": true, "netgear": true,
	"tp-link": true, "canon": true, "epson": true, "brother": true,
	"samsung": true, "lg": true, "intel": true, "amd": true, "nvidia": true,
	"adobe": true, "oracle": true,
}

var (
	hexErrorRe    = regexp.MustCompile(`(?i)0x[0-9a-f]{4,8}`)
	bsodRe        = regexp.MustCompile(`(?i)\b(blue\s*screen|bsod|stop\s*code)\b`)
	fatalErrorRe  = regexp.MustCompile(`(?i)\b(fatal error|kritieke fout|exception|crash(ed|te)?)\b`)
	httpStatusRe  = regexp.MustCompile(`\b([4-5]\d{2})\b`)
	ipv4Re        = regexp.MustCompile(`\b(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})\b`)
	emailRe       = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	brandModelRe  = regexp.MustCompile(`(?i)\b(dell|hp|lenovo|asus|acer|microsoft|apple|cisco|netgear|tp-link|canon|epson|brother|samsung|lg|intel|amd|nvidia|adobe|oracle)\s+([a-z0-9\-]+)\b`)
	locationWords = []string{"kantoor", "verdieping", "locatie", "vestiging", "gebouw"}
)

// NERModel is the external NER collaborator, optional (§4.2 error condition:
// the extractor never fails to construct when this is unavailable).
type NERModel interface {
	Recognize(text string) ([]Entity, error)
}

// Extractor implements entity extraction with a graceful NER fallback.
type Extractor struct {
	ner NERModel
}

// New constructs an Extractor. ner may be nil, in which case extraction
// falls back to regex-only passes, per §4.2's error condition.
func New(ner NERModel) *Extractor {
	return &Extractor{ner: ner}
}

// Extract runs NER (if available) plus regex passes and structured-field
// mapping, then dedups per type by lowercased text keeping the highest
// confidence score (§4.2).
func (x *Extractor) Extract(text string, structured map[string]string) map[EntityType][]Entity {
	buckets := map[EntityType][]Entity{}
	add := func(t EntityType, e Entity) {
		buckets[t] = append(buckets[t], e)
	}

	if x.ner != nil {
		if mentions, err := x.ner.Recognize(text); err == nil {
			for _, m := range mentions {
				add(mapNERLabel(m.Label, m.Text), withSource(m, "ner"))
			}
		}
	}

	for _, m := range hexErrorRe.FindAllString(text, -1) {
		add(EntityError, Entity{Text: m, Label: "ERROR_CODE", Confidence: 0.85, Source: "regex"})
	}
	if bsodRe.MatchString(text) {
		add(EntityError, Entity{Text: bsodRe.FindString(text), Label: "BSOD", Confidence: 0.85, Source: "regex"})
	}
	if fatalErrorRe.MatchString(text) {
		add(EntityError, Entity{Text: fatalErrorRe.FindString(text), Label: "FATAL_ERROR", Confidence: 0.85, Source: "regex"})
	}
	for _, m := range httpStatusRe.FindAllString(text, -1) {
		add(EntityError, Entity{Text: m, Label: "HTTP_STATUS", Confidence: 0.85, Source: "regex"})
	}
	for _, m := range ipv4Re.FindAllString(text, -1) {
		if validIPv4(m) {
			add(EntityMisc, Entity{Text: m, Label: "IPV4", Confidence: 0.85, Source: "regex"})
		}
	}
	for _, m := range emailRe.FindAllString(text, -1) {
		add(EntityMisc, Entity{Text: m, Label: "EMAIL", Confidence: 0.85, Source: "regex"})
	}
	for _, m := range brandModelRe.FindAllString(text, -1) {
		add(EntityProduct, Entity{Text: m, Label: "BRAND_MODEL", Confidence: 0.85, Source: "regex"})
	}
	lower := strings.ToLower(text)
	for _, w := range locationWords {
		if strings.Contains(lower, w) {
			add(EntityLocation, Entity{Text: w, Label: "LOCATION_KEYWORD", Confidence: 0.85, Source: "regex"})
		}
	}

	for field, value := range structured {
		if value == "" {
			continue
		}
		if t, ok := structuredFieldType(field); ok {
			add(t, Entity{Text: value, Label: strings.ToUpper(field), Confidence: 1.0, Source: "dynamic_field"})
		}
	}

	return dedup(buckets)
}

func withSource(e Entity, source string) Entity {
	e.Source = source
	if e.Confidence == 0 {
		e.Confidence = 0.80
	}
	return e
}

// mapNERLabel maps a raw NER label to an internal entity type, applying the
// known-brand reclassification for ORG mentions (§4.2).
func mapNERLabel(label, surface string) EntityType {
	switch strings.ToUpper(label) {
	case "PER", "PERSON":
		return EntityPerson
	case "ORG":
		if knownBrands[strings.ToLower(strings.TrimSpace(surface))] {
			return EntityProduct
		}
		return EntityOrganization
	case "LOC", "GPE":
		return EntityLocation
	case "PRODUCT":
		return EntityProduct
	default:
		return EntityMisc
	}
}

func structuredFieldType(field string) (EntityType, bool) {
	switch strings.ToLower(field) {
	case "brand", "model", "product":
		return EntityProduct, true
	case "location", "office", "site":
		return EntityLocation, true
	case "owner", "assignee", "reporter":
		return EntityPerson, true
	case "department", "organization":
		return EntityOrganization, true
	default:
		return "", false
	}
}

func validIPv4(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if len(p) == 0 || len(p) > 3 {
			return false
		}
		n := 0
		for _, c := range p {
			if c < '0' || c > '9' {
				return false
			}
			n = n*10 + int(c-'0')
		}
		if n > 255 {
			return false
		}
	}
	return true
}

// dedup keeps, per type and lowercased text, only the highest-confidence
// mention, then sorts deterministically by text for stable output.
func dedup(buckets map[EntityType][]Entity) map[EntityType][]Entity {
	out := map[EntityType][]Entity{}
	for t, entities := range buckets {
		best := map[string]Entity{}
		for _, e := range entities {
			key := strings.ToLower(strings.TrimSpace(e.Text))
			if key == "" {
				continue
			}
			if cur, ok := best[key]; !ok || e.Confidence > cur.Confidence {
				best[key] = e
			}
		}
		keys := make([]string, 0, len(best))
		for k := range best {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		list := make([]Entity, 0, len(keys))
		for _, k := range keys {
			list = append(list, best[k])
		}
		if len(list) > 0 {
			out[t] = list
		}
	}
	return out
}
