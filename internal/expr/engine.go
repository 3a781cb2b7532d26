package expr

import (
	"github.com/proanalytics/core/internal/domain"
)

// Expression is a parsed and validated construct-scoring equation, ready
// to be evaluated repeatedly against different item-response sets.
type Expression struct {
	source    string
	prog      *Program
	itemCount int
}

// Compile parses and validates source against a construct declaring
// itemCount items ({q1}..{qN}), returning domain.KindInvalidExpression on
// any syntax or semantic error. This is meant to run once, at construct
// registration time.
func Compile(source string, itemCount int) (*Expression, error) {
	prog, err := Parse(source)
	if err != nil {
		return nil, domain.NewInvalidExpression("failed to parse construct equation", err)
	}
	if err := Validate(prog, itemCount); err != nil {
		return nil, domain.NewInvalidExpression("construct equation failed validation", err)
	}
	return &Expression{source: source, prog: prog, itemCount: itemCount}, nil
}

// Evaluate runs the compiled expression against itemValues (1-indexed,
// itemValues[0] unused, nil entries meaning "unanswered"/null). A runtime
// failure (division by zero, negative sqrt, out-of-range reference that
// slipped past Compile because the caller passed a different itemCount) is
// reported as domain.KindEvaluationError so the caller can degrade the
// affected score to null rather than abort the whole submission write.
func (e *Expression) Evaluate(itemValues []*float64) (*float64, error) {
	items := make([]Value, len(itemValues))
	for i, v := range itemValues {
		if i == 0 {
			continue
		}
		if v == nil {
			items[i] = NullValue()
		} else {
			items[i] = NumberValue(*v)
		}
	}
	env := NewEnv(items)
	result, err := Eval(e.prog, env)
	if err != nil {
		return nil, domain.NewEvaluationError("construct equation evaluation failed", err)
	}
	if result.IsNull {
		return nil, nil
	}
	n, _ := result.asNumber()
	return &n, nil
}

// Source returns the original equation text.
func (e *Expression) Source() string { return e.source }
