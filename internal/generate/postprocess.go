package generate

import (
	"fmt"
	"strings"

	"ticketrag/internal/ctxbuild"
)

// uncertaintyPhrases is the enumerated Dutch uncertainty-phrase set scanned
// for in the lowercased answer (§4.11).
var uncertaintyPhrases = []string{
	"ik weet het niet zeker",
	"niet zeker",
	"mogelijk",
	"waarschijnlijk",
	"ik kan het niet met zekerheid zeggen",
	"onduidelijk",
	"geen informatie",
	"onvoldoende informatie",
}

const (
	baseConfidence      = 0.8
	uncertaintyPenalty  = 0.1
	shortAnswerPenalty  = 0.1
	shortAnswerMinChars = 100
	citationBonus       = 0.1
	topScoreWeight      = 0.1
	maxBronnen          = 5
)

// Answer is the post-processed generation result (§4.11).
type Answer struct {
	Text            string
	Uncertainties   []string
	ConfidenceScore float64
}

// PostProcess scans the raw answer for uncertainty phrases, computes the
// confidence score, and appends a Bronnen fallback list when no cited
// ticket number appears in the answer.
func PostProcess(raw string, sources []ctxbuild.Source) Answer {
	lower := strings.ToLower(raw)
	var uncertainties []string
	for _, phrase := range uncertaintyPhrases {
		if strings.Contains(lower, phrase) {
			uncertainties = append(uncertainties, phrase)
		}
	}

	score := baseConfidence
	score -= uncertaintyPenalty * float64(len(uncertainties))
	if len(raw) < shortAnswerMinChars {
		score -= shortAnswerPenalty
	}

	cited := false
	for _, s := range sources {
		if s.TicketNumber != "" && strings.Contains(raw, s.TicketNumber) {
			cited = true
			break
		}
	}
	if cited {
		score += citationBonus
	}
	score += topScoreWeight * meanTopScores(sources, 3)
	score = clamp01(score)

	text := raw
	if !cited {
		text = appendBronnen(raw, sources)
	}

	return Answer{Text: text, Uncertainties: uncertainties, ConfidenceScore: score}
}

func meanTopScores(sources []ctxbuild.Source, n int) float64 {
	if len(sources) == 0 {
		return 0
	}
	if len(sources) < n {
		n = len(sources)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += sources[i].Score
	}
	return sum / float64(n)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func appendBronnen(raw string, sources []ctxbuild.Source) string {
	if len(sources) == 0 {
		return raw
	}
	n := len(sources)
	if n > maxBronnen {
		n = maxBronnen
	}
	var b strings.Builder
	b.WriteString(raw)
	b.WriteString("\n\nBronnen:\n")
	for i := 0; i < n; i++ {
		s := sources[i]
		label := s.TicketNumber
		if label == "" {
			label = s.ID
		}
		b.WriteString(fmt.Sprintf("- %s: %s\n", label, s.Title))
	}
	return b.String()
}
