package cohort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proanalytics/core/internal/domain"
)

func TestSummarize_MedianIQR(t *testing.T) {
	stat, ok := Summarize(domain.AggMedianIQR, []float64{1, 2, 3, 4}, 8)
	require.True(t, ok)
	assert.InDelta(t, 2.5, stat.Center, 1e-9)
	assert.InDelta(t, 1.75, stat.Low, 1e-9)
	assert.InDelta(t, 3.25, stat.High, 1e-9)
}

func TestSummarize_MedianSingleValue(t *testing.T) {
	stat, ok := Summarize(domain.AggMedianIQR, []float64{7}, 8)
	require.True(t, ok)
	assert.Equal(t, 7.0, stat.Center)
	assert.Equal(t, 7.0, stat.Low)
	assert.Equal(t, 7.0, stat.High)
}

func TestSummarize_Mean95CI_InsufficientSamples(t *testing.T) {
	stat, ok := Summarize(domain.AggMean95CI, []float64{1, 2, 3}, 8)
	require.True(t, ok)
	assert.True(t, stat.InsufficientSamples)
	assert.Equal(t, stat.Center, stat.Low)
	assert.Equal(t, stat.Center, stat.High)
}

func TestSummarize_Mean95CI_SufficientSamples(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	stat, ok := Summarize(domain.AggMean95CI, values, 8)
	require.True(t, ok)
	assert.False(t, stat.InsufficientSamples)
	assert.Less(t, stat.Low, stat.Center)
	assert.Greater(t, stat.High, stat.Center)
}

func TestSummarize_MeanPMSD(t *testing.T) {
	stat, ok := Summarize(domain.AggMeanPM1SD, []float64{2, 4, 6}, 8)
	require.True(t, ok)
	assert.InDelta(t, 4.0, stat.Center, 1e-9)
}

func TestSummarize_EmptyIsNull(t *testing.T) {
	_, ok := Summarize(domain.AggMedianIQR, nil, 8)
	assert.False(t, ok)
}
