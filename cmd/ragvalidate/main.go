// Command ragvalidate runs the supplemental extraction-quality harness over a
// labelled holdout file and prints precision/recall/F1 plus a recommended
// confidence threshold. It is not part of the request path (§12).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/pterm/pterm"

	"ticketrag/internal/validation"
)

type holdoutFile struct {
	Entities      []validation.Sample `json:"entities"`
	Relationships []validation.Sample `json:"relationships"`
}

func main() {
	os.Exit(run())
}

func run() int {
	path := flag.String("samples", "", "path to a JSON file with {entities:[...], relationships:[...]} labelled samples")
	entityType := flag.String("entity-type", "", "restrict entity metrics to this type")
	edgeType := flag.String("edge-type", "", "restrict relationship metrics to this type")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "ragvalidate: -samples is required")
		return 1
	}

	raw, err := os.ReadFile(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ragvalidate: read samples: %v\n", err)
		return 1
	}
	var holdout holdoutFile
	if err := json.Unmarshal(raw, &holdout); err != nil {
		fmt.Fprintf(os.Stderr, "ragvalidate: parse samples: %v\n", err)
		return 1
	}

	entities := filterByType(holdout.Entities, *entityType)
	relationships := filterByType(holdout.Relationships, *edgeType)

	entityMetrics := validation.CalculateMetrics(entities)
	relMetrics := validation.CalculateMetrics(relationships)
	thresholds := validation.AnalyzeThresholds(entities, validation.DefaultThresholds)
	best, hasRecommendation := validation.Recommend(thresholds)

	pterm.DefaultSection.Println("Entity extraction")
	printMetrics(entityMetrics)

	pterm.DefaultSection.Println("Relationship extraction")
	printMetrics(relMetrics)

	if hasRecommendation {
		pterm.DefaultSection.Println("Confidence threshold")
		pterm.Info.Printfln("recommended=%.2f precision=%.2f%% coverage=%.2f%%",
			best.Threshold, best.Precision*100, best.Coverage*100)
	}
	return 0
}

func filterByType(samples []validation.Sample, t string) []validation.Sample {
	if t == "" {
		return samples
	}
	var out []validation.Sample
	for _, s := range samples {
		if s.Type == t {
			out = append(out, s)
		}
	}
	return out
}

func printMetrics(m validation.Metrics) {
	pterm.Printfln("validated=%d precision=%.2f%% recall=%.2f%% f1=%.2f%% accuracy=%.2f%%",
		m.TotalValidated, m.Precision*100, m.Recall*100, m.F1*100, m.Accuracy*100)
	for t, st := range m.ByType {
		pterm.Printfln("  %-12s total=%-4d correct=%-4d accuracy=%.2f%%", t, st.Total, st.Correct, st.Accuracy*100)
	}
}
