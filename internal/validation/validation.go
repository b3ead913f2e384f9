// Package validation estimates extraction quality from a labelled holdout of
// entity/relationship samples. It is a supplemental harness, not part of the
// request path: it exists to spot-check entity and relationship extraction
// confidence against human-reviewed samples and recommend a confidence
// threshold, the way a held-out eval set would for any classifier.
package validation

// Sample is one human-reviewed extraction: an entity or a relationship edge
// that was extracted with some confidence and then marked correct/incorrect.
// ShouldBeType records whether the reviewer also attached an expected type,
// which is the only signal available for approximating false negatives (see
// Metrics.FalseNegatives).
type Sample struct {
	Type         string
	Confidence   float64
	IsCorrect    bool
	ShouldBeType bool
}

// TypeStats tracks correctness counts for one entity or edge type.
type TypeStats struct {
	Correct   int
	Incorrect int
	Total     int
	Accuracy  float64
}

// Metrics summarizes precision/recall/F1 over a set of samples.
//
// FalseNegatives is an approximation, not ground truth: samples are marked
// incorrect with an explicit expected type, there is no way to recover an
// extraction that never fired at all from the validation data. This mirrors
// the approximation the holdout tooling has always used and is kept
// deliberately rather than treated as exact.
type Metrics struct {
	TotalValidated int
	TruePositives  int
	FalsePositives int
	FalseNegatives int
	Precision      float64
	Recall         float64
	F1             float64
	Accuracy       float64
	ByType         map[string]TypeStats
}

// CalculateMetrics computes precision/recall/F1/accuracy and a per-type
// confusion breakdown over samples. Returns a zero Metrics when samples is
// empty, matching "no validated data yet" rather than erroring.
func CalculateMetrics(samples []Sample) Metrics {
	if len(samples) == 0 {
		return Metrics{ByType: map[string]TypeStats{}}
	}

	var tp, fp, fn int
	byType := map[string]TypeStats{}
	for _, s := range samples {
		st := byType[s.Type]
		st.Total++
		if s.IsCorrect {
			tp++
			st.Correct++
		} else {
			fp++
			st.Incorrect++
			if s.ShouldBeType {
				fn++
			}
		}
		byType[s.Type] = st
	}
	for t, st := range byType {
		if st.Total > 0 {
			st.Accuracy = float64(st.Correct) / float64(st.Total)
		}
		byType[t] = st
	}

	precision := ratio(tp, tp+fp)
	recall := ratio(tp, tp+fn)
	f1 := f1Score(precision, recall)
	accuracy := ratio(tp, len(samples))

	return Metrics{
		TotalValidated: len(samples),
		TruePositives:  tp,
		FalsePositives: fp,
		FalseNegatives: fn,
		Precision:      precision,
		Recall:         recall,
		F1:             f1,
		Accuracy:       accuracy,
		ByType:         byType,
	}
}

// ThresholdPoint reports precision/coverage at one candidate confidence cutoff.
type ThresholdPoint struct {
	Threshold float64
	Precision float64
	Coverage  float64
	F1        float64
	Kept      int
	Filtered  int
}

// DefaultThresholds are the cutoffs swept by AnalyzeThresholds when the
// caller has no specific grid in mind.
var DefaultThresholds = []float64{0.5, 0.6, 0.7, 0.75, 0.8, 0.85, 0.9, 0.95}

// AnalyzeThresholds sweeps thresholds over samples, reporting precision among
// samples at or above each cutoff and what fraction of all samples that
// represents (coverage). A threshold with zero samples at or above it is
// omitted.
func AnalyzeThresholds(samples []Sample, thresholds []float64) []ThresholdPoint {
	var points []ThresholdPoint
	for _, threshold := range thresholds {
		var kept, tp, fp int
		for _, s := range samples {
			if s.Confidence < threshold {
				continue
			}
			kept++
			if s.IsCorrect {
				tp++
			} else {
				fp++
			}
		}
		if kept == 0 {
			continue
		}
		precision := ratio(tp, tp+fp)
		coverage := float64(kept) / float64(len(samples))
		points = append(points, ThresholdPoint{
			Threshold: threshold,
			Precision: precision,
			Coverage:  coverage,
			F1:        f1Score(precision, coverage),
			Kept:      kept,
			Filtered:  len(samples) - kept,
		})
	}
	return points
}

// Recommend picks the threshold point with the highest precision/coverage F1.
// Returns false if points is empty.
func Recommend(points []ThresholdPoint) (ThresholdPoint, bool) {
	var best ThresholdPoint
	var found bool
	for _, p := range points {
		if !found || p.F1 > best.F1 {
			best = p
			found = true
		}
	}
	return best, found
}

func ratio(numerator, denominator int) float64 {
	if denominator == 0 {
		return 0
	}
	return float64(numerator) / float64(denominator)
}

func f1Score(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * (precision * recall) / (precision + recall)
}
