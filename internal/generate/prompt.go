// Package generate builds the Dutch prompt, calls the configured LLM, and
// post-processes the answer for uncertainty and confidence (§4.11).
package generate

import (
	"fmt"
	"strings"

	"ticketrag/internal/ctxbuild"
)

// Message is one chat turn in the generation request.
type Message struct {
	Role    string // "system" | "user"
	Content string
}

const systemRole = `Je bent een IT-helpdesk assistent. Beantwoord vragen uitsluitend op basis van
de aangeleverde context. Citeer bronnen met hun ticketnummer, geef expliciet aan
wanneer je onzeker bent, weiger te antwoorden als de informatie ontoereikend is,
antwoord in het Nederlands, en wees beknopt.`

// BuildMessages assembles the fixed template with the retrieved context and
// relationship bullets.
func BuildMessages(question, contextText string, relationships []ctxbuild.Relationship) []Message {
	var b strings.Builder
	b.WriteString("Vraag van de gebruiker:\n")
	b.WriteString(question)
	b.WriteString("\n\nOpgehaalde context:\n")
	b.WriteString(contextText)

	if len(relationships) > 0 {
		b.WriteString("\n\nRelaties:\n")
		for _, r := range relationships {
			b.WriteString(fmt.Sprintf("- %s --%s--> %s (confidence %.2f)\n", r.SourceNode, r.EdgeType, r.TargetNode, r.Confidence))
		}
	}

	b.WriteString("\nInstructies:\n")
	b.WriteString("- Citeer bronnen met hun ticketnummer.\n")
	b.WriteString("- Geef expliciet aan wanneer je onzeker bent.\n")
	b.WriteString("- Weiger te antwoorden als de informatie ontoereikend is.\n")
	b.WriteString("- Antwoord in het Nederlands.\n")
	b.WriteString("- Wees beknopt.\n")

	return []Message{
		{Role: "system", Content: systemRole},
		{Role: "user", Content: b.String()},
	}
}
