package retrieve

import (
	"context"
	"sort"
)

// Weights controls the per-method contribution to the combined score,
// defaulting to {vector 0.5, bm25 0.3, graph 0.2} (§4.8).
type Weights struct {
	Vector float64
	BM25   float64
	Graph  float64
}

// Hybrid fans out to the dense, sparse, and graph retrievers and fuses their
// scores by per-method min-max normalization and a weighted sum renormalized
// over contributing methods (§4.8) — deliberately not reciprocal-rank fusion.
type Hybrid struct {
	Dense   *Dense
	Sparse  *Sparse
	GraphR  *GraphRetriever
	Weights Weights
}

// Options toggles which methods run for a given query.
type Options struct {
	UseVector bool
	UseBM25   bool
	UseGraph  bool
	Filter    map[string]string
}

// Search implements §4.8.
func (h *Hybrid) Search(ctx context.Context, query, collection string, topK int, opts Options) ([]Result, error) {
	overFetch := topK * 2
	if overFetch <= 0 {
		overFetch = 20
	}

	byID := map[string]*Result{}
	order := []string{}
	rawVector := map[string]float64{}
	rawBM25 := map[string]float64{}
	rawGraph := map[string]float64{}

	record := func(id string, r Result, raw map[string]float64, score float64) {
		if _, ok := byID[id]; !ok {
			cp := r
			byID[id] = &cp
			order = append(order, id)
		}
		raw[id] = score
	}

	if opts.UseVector && h.Dense != nil {
		hits, err := h.Dense.Search(ctx, query, collection, overFetch, opts.Filter)
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			record(hit.ID, hit, rawVector, hit.SimilarityScore)
		}
	}
	if opts.UseBM25 && h.Sparse != nil {
		hits := h.Sparse.Search(collection, query, overFetch)
		for _, hit := range hits {
			record(hit.ID, hit, rawBM25, hit.BM25Score)
		}
	}
	if opts.UseGraph && h.GraphR != nil {
		hits := h.GraphR.Search(query, overFetch)
		for _, hit := range hits {
			record(hit.ID, hit, rawGraph, hit.CentralityScore)
		}
	}

	normVector := minMaxNormalize(rawVector)
	normBM25 := minMaxNormalize(rawBM25)
	normGraph := minMaxNormalize(rawGraph)

	weights := h.Weights
	if weights == (Weights{}) {
		weights = Weights{Vector: 0.5, BM25: 0.3, Graph: 0.2}
	}

	results := make([]Result, 0, len(order))
	for _, id := range order {
		r := *byID[id]
		var weightedSum, weightTotal float64
		if v, ok := normVector[id]; ok {
			weightedSum += weights.Vector * v
			weightTotal += weights.Vector
			r.SimilarityScore = v
		}
		if v, ok := normBM25[id]; ok {
			weightedSum += weights.BM25 * v
			weightTotal += weights.BM25
			r.BM25Score = v
		}
		if v, ok := normGraph[id]; ok {
			weightedSum += weights.Graph * v
			weightTotal += weights.Graph
			r.CentralityScore = v
		}
		if weightTotal > 0 {
			r.combinedScore = weightedSum / weightTotal
		}
		results = append(results, r)
	}

	// Stable sort: descending combined score, ties broken by original
	// insertion order (index into `order`).
	indexOf := make(map[string]int, len(order))
	for i, id := range order {
		indexOf[id] = i
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].combinedScore != results[j].combinedScore {
			return results[i].combinedScore > results[j].combinedScore
		}
		return indexOf[results[i].ID] < indexOf[results[j].ID]
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// minMaxNormalize maps each score in scores to [0,1]: (s-min)/(max-min) when
// max>min, else 1.0 for s>0, else 0.0 (§4.8).
func minMaxNormalize(scores map[string]float64) map[string]float64 {
	if len(scores) == 0 {
		return nil
	}
	min, max := minMax(scores)
	out := make(map[string]float64, len(scores))
	for id, s := range scores {
		if max > min {
			out[id] = (s - min) / (max - min)
		} else if s > 0 {
			out[id] = 1.0
		} else {
			out[id] = 0.0
		}
	}
	return out
}

func minMax(scores map[string]float64) (float64, float64) {
	first := true
	var min, max float64
	for _, s := range scores {
		if first {
			min, max = s, s
			first = false
			continue
		}
		if s < min {
			min = s
		}
		if s > max {
			max = s
		}
	}
	return min, max
}
