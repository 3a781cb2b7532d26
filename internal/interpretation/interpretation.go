// Package interpretation implements the Clinical Interpreter (component F):
// a tiered decision table over a construct's calibration data (threshold,
// MID, normative mean/SD) that classifies a current score and a score
// change as clinically significant, grounded on the teacher's
// acmg_rule_engine.go priority-ordered rule-evaluation shape.
package interpretation

import (
	"math"

	"github.com/proanalytics/core/internal/domain"
)

// Calibration is the subset of a ConstructScale (or Item) the Clinical
// Interpreter reasons over.
type Calibration struct {
	Direction     domain.Direction
	Threshold     *float64
	MID           *float64
	NormativeMean *float64
	NormativeSD   *float64
}

// CurrentResult is the outcome of classifying a single score.
type CurrentResult struct {
	Significant bool
	ReasonUsed  domain.ReasonUsed
}

// ChangeResult is the outcome of classifying a score change.
type ChangeResult struct {
	Significant bool
	Direction   domain.ChangeDirection
	ReasonUsed  domain.ReasonUsed
}

// ClassifyCurrent implements spec.md §4.F's current-score significance
// table. Rule priority, high to low precision: threshold+MID, then
// normative mean+SD, then bare threshold, then bare normative mean.
// Middle-Better unions the Higher-Better and Lower-Better tails.
func ClassifyCurrent(score float64, c Calibration) CurrentResult {
	switch c.Direction {
	case domain.HigherBetter:
		return classifyTail(score, c, false)
	case domain.LowerBetter:
		return classifyTail(score, c, true)
	case domain.MiddleBetter:
		lo := classifyTail(score, c, false)
		hi := classifyTail(score, c, true)
		if lo.Significant {
			return lo
		}
		if hi.Significant {
			return hi
		}
		if lo.ReasonUsed != domain.ReasonNotClassified {
			return lo
		}
		return hi
	default:
		return CurrentResult{ReasonUsed: domain.ReasonNotClassified}
	}
}

// classifyTail evaluates one tail of the calibration table. invert=false is
// the Higher-Better sense (low scores are bad); invert=true is the
// Lower-Better sense (high scores are bad). Middle-Better calls this twice.
func classifyTail(score float64, c Calibration, invert bool) CurrentResult {
	sign := 1.0
	if invert {
		sign = -1.0
	}

	switch {
	case c.Threshold != nil && c.MID != nil:
		bound := *c.Threshold - sign*(*c.MID)
		sig := sign*score <= sign*bound
		return CurrentResult{Significant: sig, ReasonUsed: domain.ReasonThresholdMID}
	case c.NormativeMean != nil && c.NormativeSD != nil:
		bound := *c.NormativeMean - sign*0.5*(*c.NormativeSD)
		sig := sign*score <= sign*bound
		return CurrentResult{Significant: sig, ReasonUsed: domain.ReasonNormativeSD}
	case c.Threshold != nil:
		sig := sign*score < sign*(*c.Threshold)
		return CurrentResult{Significant: sig, ReasonUsed: domain.ReasonThreshold}
	case c.NormativeMean != nil:
		sig := sign*score < sign*(*c.NormativeMean)
		return CurrentResult{Significant: sig, ReasonUsed: domain.ReasonNormative}
	default:
		return CurrentResult{ReasonUsed: domain.ReasonNotClassified}
	}
}

// ClassifyChange implements spec.md §4.F's change-significance rule
// against the immediately prior score of the same construct.
func ClassifyChange(current, previous *float64, c Calibration, fallbackRatio float64) ChangeResult {
	if current == nil || previous == nil {
		return ChangeResult{Direction: domain.ChangeUnknown, ReasonUsed: domain.ReasonNotClassified}
	}

	if c.Direction == domain.MiddleBetter {
		if c.NormativeMean != nil && c.NormativeSD == nil && c.Threshold == nil && c.MID == nil {
			// Bare normative mean: any change is significant; moving away
			// from the mean is worsening, moving toward it improving.
			away := math.Abs(*current-*c.NormativeMean) - math.Abs(*previous-*c.NormativeMean)
			dir := domain.ChangeUnchanged
			if away > 0 {
				dir = domain.ChangeWorsening
			} else if away < 0 {
				dir = domain.ChangeImproving
			}
			return ChangeResult{Significant: *current != *previous, Direction: dir, ReasonUsed: domain.ReasonNormative}
		}
		return classifyMiddleBetterChange(*current, *previous, c)
	}

	delta := *current - *previous
	dir := changeDirection(delta, c.Direction)

	switch {
	case c.MID != nil:
		sig := dir == domain.ChangeWorsening && math.Abs(delta) >= *c.MID
		return ChangeResult{Significant: sig, Direction: dir, ReasonUsed: domain.ReasonMID}
	case c.NormativeSD != nil:
		sig := math.Abs(delta) >= *c.NormativeSD
		return ChangeResult{Significant: sig, Direction: dir, ReasonUsed: domain.ReasonNormativeSD}
	default:
		if *previous == 0 {
			return ChangeResult{Direction: dir, ReasonUsed: domain.ReasonRatioFallback}
		}
		sig := math.Abs(delta)/math.Abs(*previous) >= fallbackRatio
		return ChangeResult{Significant: sig, Direction: dir, ReasonUsed: domain.ReasonRatioFallback}
	}
}

// classifyMiddleBetterChange implements "any direction triggers on
// threshold crossing": significance is whether the current-score
// classification tier changed between the previous and current reading.
func classifyMiddleBetterChange(current, previous float64, c Calibration) ChangeResult {
	prevClass := ClassifyCurrent(previous, c)
	curClass := ClassifyCurrent(current, c)

	switch {
	case curClass.Significant && !prevClass.Significant:
		return ChangeResult{Significant: true, Direction: domain.ChangeWorsening, ReasonUsed: domain.ReasonThreshold}
	case !curClass.Significant && prevClass.Significant:
		return ChangeResult{Significant: true, Direction: domain.ChangeImproving, ReasonUsed: domain.ReasonThreshold}
	default:
		return ChangeResult{Significant: false, Direction: domain.ChangeUnchanged, ReasonUsed: domain.ReasonThreshold}
	}
}

func changeDirection(delta float64, dir domain.Direction) domain.ChangeDirection {
	if delta == 0 {
		return domain.ChangeUnchanged
	}
	improving := (dir == domain.HigherBetter && delta > 0) || (dir == domain.LowerBetter && delta < 0)
	if improving {
		return domain.ChangeImproving
	}
	return domain.ChangeWorsening
}
