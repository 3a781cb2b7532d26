package interpretation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/proanalytics/core/internal/domain"
)

func f(n float64) *float64 { return &n }

func TestClassifyCurrent_ThresholdMIDTakesPrecedence(t *testing.T) {
	c := Calibration{
		Direction:     domain.HigherBetter,
		Threshold:     f(3.0),
		MID:           f(0.5),
		NormativeMean: f(10),
		NormativeSD:   f(1),
	}
	// threshold - MID = 2.5; score 2.4 <= 2.5 -> significant
	result := ClassifyCurrent(2.4, c)
	assert.True(t, result.Significant)
	assert.Equal(t, domain.ReasonThresholdMID, result.ReasonUsed)
}

func TestClassifyCurrent_Scenario1NotSignificant(t *testing.T) {
	c := Calibration{Direction: domain.HigherBetter, Threshold: f(3.0), MID: f(0.5)}
	result := ClassifyCurrent(4.333, c)
	assert.False(t, result.Significant)
}

func TestClassifyCurrent_LowerBetterIsMirrorOfHigherBetter(t *testing.T) {
	higher := Calibration{Direction: domain.HigherBetter, Threshold: f(3.0), MID: f(0.5)}
	lower := Calibration{Direction: domain.LowerBetter, Threshold: f(-3.0), MID: f(0.5)}

	// Flipping direction and negating the score should invert nothing about
	// the classification outcome (mirrored input -> same verdict).
	highResult := ClassifyCurrent(2.4, higher)
	lowResult := ClassifyCurrent(-2.4, lower)
	assert.Equal(t, highResult.Significant, lowResult.Significant)
}

func TestClassifyCurrent_NotClassifiedWithoutCalibration(t *testing.T) {
	result := ClassifyCurrent(5.0, Calibration{Direction: domain.HigherBetter})
	assert.False(t, result.Significant)
	assert.Equal(t, domain.ReasonNotClassified, result.ReasonUsed)
}

func TestClassifyCurrent_MiddleBetterUnionOfTails(t *testing.T) {
	c := Calibration{Direction: domain.MiddleBetter, NormativeMean: f(0), NormativeSD: f(1)}
	low := ClassifyCurrent(-10, c)
	high := ClassifyCurrent(10, c)
	mid := ClassifyCurrent(0, c)
	assert.True(t, low.Significant)
	assert.True(t, high.Significant)
	assert.False(t, mid.Significant)
}

func TestClassifyChange_Scenario2MIDWorsening(t *testing.T) {
	c := Calibration{Direction: domain.HigherBetter, MID: f(0.5)}
	current, previous := f(3.4), f(4.0)
	result := ClassifyChange(current, previous, c, 0.10)
	assert.True(t, result.Significant)
	assert.Equal(t, domain.ChangeWorsening, result.Direction)
	assert.Equal(t, domain.ReasonMID, result.ReasonUsed)
}

func TestClassifyChange_MIDOnlyCountsWorseningDirection(t *testing.T) {
	c := Calibration{Direction: domain.HigherBetter, MID: f(0.5)}
	current, previous := f(4.6), f(4.0)
	result := ClassifyChange(current, previous, c, 0.10)
	assert.Equal(t, domain.ChangeImproving, result.Direction)
	assert.False(t, result.Significant)
}

func TestClassifyChange_RatioFallback(t *testing.T) {
	c := Calibration{Direction: domain.HigherBetter}
	current, previous := f(4.5), f(5.0)
	result := ClassifyChange(current, previous, c, 0.10)
	assert.True(t, result.Significant) // |Δ|/|prev| = 0.1 >= 0.10
	assert.Equal(t, domain.ReasonRatioFallback, result.ReasonUsed)
}

func TestClassifyChange_UnknownWhenEitherScoreMissing(t *testing.T) {
	c := Calibration{Direction: domain.HigherBetter, MID: f(0.5)}
	result := ClassifyChange(nil, f(4.0), c, 0.10)
	assert.Equal(t, domain.ChangeUnknown, result.Direction)
}

func TestOrderTopline_BothAxesFirstThenAlphabetical(t *testing.T) {
	in := []RankedConstruct{
		{Name: "Zeta", CurrentSignificant: false, ChangeSignificant: false},
		{Name: "Beta", CurrentSignificant: true, ChangeSignificant: true},
		{Name: "Alpha", CurrentSignificant: true, ChangeSignificant: true},
		{Name: "Gamma", CurrentSignificant: true, ChangeSignificant: false},
	}
	out := OrderTopline(in)
	assert.Equal(t, []string{"Alpha", "Beta", "Gamma", "Zeta"}, []string{out[0].Name, out[1].Name, out[2].Name, out[3].Name})
}
