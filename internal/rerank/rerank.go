// Package rerank computes a final ranking score as a weighted sum of five
// factors over the hybrid retriever's output (§4.9).
package rerank

import (
	"sort"
	"strings"
	"time"

	"ticketrag/internal/retrieve"
)

// Weights are the five factor weights, defaulting to
// {0.40, 0.20, 0.15, 0.15, 0.10} (§4.9).
type Weights struct {
	Similarity float64
	BM25       float64
	Centrality float64
	Recency    float64
	Feedback   float64
}

// DefaultWeights returns the spec's default weight set.
func DefaultWeights() Weights {
	return Weights{Similarity: 0.40, BM25: 0.20, Centrality: 0.15, Recency: 0.15, Feedback: 0.10}
}

// Normalized renormalizes w so its five components sum to 1, per §4.9's
// weight setter contract. Returns the default weights if w sums to zero.
func (w Weights) Normalized() Weights {
	sum := w.Similarity + w.BM25 + w.Centrality + w.Recency + w.Feedback
	if sum <= 0 {
		return DefaultWeights()
	}
	return Weights{
		Similarity: w.Similarity / sum,
		BM25:       w.BM25 / sum,
		Centrality: w.Centrality / sum,
		Recency:    w.Recency / sum,
		Feedback:   w.Feedback / sum,
	}
}

// Scored is a reranked result with its factor breakdown retained for
// debugging/observability.
type Scored struct {
	retrieve.Result
	FinalScore float64
	Similarity float64
	BM25       float64
	Centrality float64
	Recency    float64
	Feedback   float64
}

// Reranker applies §4.9's weighted-sum formula.
type Reranker struct {
	Weights Weights
	Now     func() time.Time // overridable for tests; defaults to time.Now
}

// New constructs a Reranker with the default weights.
func New() *Reranker {
	return &Reranker{Weights: DefaultWeights()}
}

// Rerank scores every result and returns the top n, descending.
func (r *Reranker) Rerank(results []retrieve.Result, topN int) []Scored {
	w := r.Weights.Normalized()
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	scored := make([]Scored, 0, len(results))
	for _, res := range results {
		recency := recencyScore(res.Metadata, now())
		feedback := feedbackScore(res.Metadata)
		final := w.Similarity*res.SimilarityScore +
			w.BM25*res.BM25Score +
			w.Centrality*res.CentralityScore +
			w.Recency*recency +
			w.Feedback*feedback
		scored = append(scored, Scored{
			Result:     res,
			FinalScore: final,
			Similarity: res.SimilarityScore,
			BM25:       res.BM25Score,
			Centrality: res.CentralityScore,
			Recency:    recency,
			Feedback:   feedback,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].FinalScore > scored[j].FinalScore })
	if topN > 0 && len(scored) > topN {
		scored = scored[:topN]
	}
	return scored
}

const maxAgeDays = 365

// recencyScore is 1.0 at now, linearly decaying to 0.0 at 365 days old; 0.5
// when no date is available or parsing fails (§4.9).
func recencyScore(metadata map[string]string, now time.Time) float64 {
	raw := metadata["updated_at"]
	if raw == "" {
		raw = metadata["created_at"]
	}
	if raw == "" {
		return 0.5
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return 0.5
	}
	ageDays := now.Sub(t).Hours() / 24
	if ageDays <= 0 {
		return 1.0
	}
	if ageDays >= maxAgeDays {
		return 0.0
	}
	return 1.0 - ageDays/maxAgeDays
}

// feedbackScore derives a heuristic score from ticket status (§4.9).
func feedbackScore(metadata map[string]string) float64 {
	status := strings.ToLower(strings.TrimSpace(metadata["status"]))
	switch status {
	case "closed", "resolved", "gesloten", "opgelost":
		return 0.8
	case "in-progress", "in_progress", "in behandeling":
		return 0.5
	default:
		return 0.3
	}
}
