package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateMetricsEmptyReturnsZeroValue(t *testing.T) {
	m := CalculateMetrics(nil)
	assert.Equal(t, 0, m.TotalValidated)
	assert.Zero(t, m.Precision)
	assert.Zero(t, m.Recall)
}

func TestCalculateMetricsPrecisionRecallF1(t *testing.T) {
	samples := []Sample{
		{Type: "BRAND", Confidence: 0.9, IsCorrect: true},
		{Type: "BRAND", Confidence: 0.8, IsCorrect: true},
		{Type: "BRAND", Confidence: 0.6, IsCorrect: false, ShouldBeType: true},
		{Type: "LOCATION", Confidence: 0.95, IsCorrect: false},
	}
	m := CalculateMetrics(samples)

	require.Equal(t, 4, m.TotalValidated)
	assert.Equal(t, 2, m.TruePositives)
	assert.Equal(t, 2, m.FalsePositives)
	assert.Equal(t, 1, m.FalseNegatives)
	assert.InDelta(t, 0.5, m.Precision, 1e-9)
	assert.InDelta(t, 2.0/3.0, m.Recall, 1e-9)
	assert.InDelta(t, 0.5, m.Accuracy, 1e-9)

	brand := m.ByType["BRAND"]
	assert.Equal(t, 3, brand.Total)
	assert.Equal(t, 2, brand.Correct)
	assert.InDelta(t, 2.0/3.0, brand.Accuracy, 1e-9)
}

func TestAnalyzeThresholdsOmitsEmptyBuckets(t *testing.T) {
	samples := []Sample{
		{Confidence: 0.95, IsCorrect: true},
		{Confidence: 0.55, IsCorrect: true},
		{Confidence: 0.55, IsCorrect: false},
	}
	points := AnalyzeThresholds(samples, []float64{0.5, 0.9, 0.99})

	require.Len(t, points, 2)
	assert.Equal(t, 0.5, points[0].Threshold)
	assert.Equal(t, 3, points[0].Kept)
	assert.Equal(t, 0.9, points[1].Threshold)
	assert.Equal(t, 1, points[1].Kept)
}

func TestRecommendPicksBestF1(t *testing.T) {
	points := []ThresholdPoint{
		{Threshold: 0.5, Precision: 0.5, Coverage: 1.0, F1: f1Score(0.5, 1.0)},
		{Threshold: 0.9, Precision: 1.0, Coverage: 0.3, F1: f1Score(1.0, 0.3)},
	}
	best, ok := Recommend(points)
	require.True(t, ok)
	assert.Equal(t, 0.5, best.Threshold)
}

func TestRecommendEmptyReturnsFalse(t *testing.T) {
	_, ok := Recommend(nil)
	assert.False(t, ok)
}
