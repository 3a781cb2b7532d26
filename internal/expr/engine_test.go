package expr

import (
	"testing"

	"github.com/proanalytics/core/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(n float64) *float64 { return &n }

func TestCompileAndEvaluate_Arithmetic(t *testing.T) {
	e, err := Compile("({q1} + {q2}) * 2", 2)
	require.NoError(t, err)

	result, err := e.Evaluate([]*float64{nil, f(3), f(4)})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 14.0, *result)
}

func TestCompileAndEvaluate_RightAssociativePower(t *testing.T) {
	// 2^(3^2) == 2^9 == 512, not (2^3)^2 == 64.
	e, err := Compile("2 ^ 3 ^ 2", 0)
	require.NoError(t, err)

	result, err := e.Evaluate([]*float64{nil})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 512.0, *result)
}

func TestEvaluate_NullPropagatesThroughArithmetic(t *testing.T) {
	e, err := Compile("{q1} + {q2}", 2)
	require.NoError(t, err)

	result, err := e.Evaluate([]*float64{nil, nil, f(4)})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestEvaluate_AggregateFunctionsDropNulls(t *testing.T) {
	e, err := Compile("mean({q1}, {q2}, {q3})", 3)
	require.NoError(t, err)

	result, err := e.Evaluate([]*float64{nil, f(2), nil, f(6)})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 4.0, *result)
}

func TestEvaluate_CountAvailableNeverNull(t *testing.T) {
	e, err := Compile("count_available({q1}, {q2}, {q3})", 3)
	require.NoError(t, err)

	result, err := e.Evaluate([]*float64{nil, nil, nil, nil})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 0.0, *result)
}

func TestEvaluate_ConditionalExpression(t *testing.T) {
	e, err := Compile("if {q1} > 5 then 1 elif {q1} > 2 then 0 else -1", 1)
	require.NoError(t, err)

	hi, err := e.Evaluate([]*float64{nil, f(9)})
	require.NoError(t, err)
	assert.Equal(t, 1.0, *hi)

	mid, err := e.Evaluate([]*float64{nil, f(3)})
	require.NoError(t, err)
	assert.Equal(t, 0.0, *mid)

	lo, err := e.Evaluate([]*float64{nil, f(1)})
	require.NoError(t, err)
	assert.Equal(t, -1.0, *lo)
}

func TestEvaluate_Assignment(t *testing.T) {
	e, err := Compile("subscale = {q1} + {q2}\nsubscale / 2", 2)
	require.NoError(t, err)

	result, err := e.Evaluate([]*float64{nil, f(4), f(6)})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 5.0, *result)
}

func TestEvaluate_DivisionByZeroIsEvaluationError(t *testing.T) {
	e, err := Compile("{q1} / {q2}", 2)
	require.NoError(t, err)

	_, err = e.Evaluate([]*float64{nil, f(1), f(0)})
	require.Error(t, err)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, "EVALUATION_ERROR", string(kind))
}

func TestCompile_RejectsUnknownFunction(t *testing.T) {
	_, err := Compile("nonexistent({q1})", 1)
	require.Error(t, err)
	kind, ok := domain.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, "INVALID_EXPRESSION", string(kind))
}

func TestCompile_RejectsOutOfRangeItemReference(t *testing.T) {
	_, err := Compile("{q5}", 2)
	require.Error(t, err)
}

func TestCompile_RejectsUseBeforeAssign(t *testing.T) {
	_, err := Compile("total / 2\ntotal = {q1}", 1)
	require.Error(t, err)
}

func TestCompile_RejectsAssignToReservedWord(t *testing.T) {
	_, err := Compile("sum = {q1}", 1)
	require.Error(t, err)
}

func TestEvaluate_RoundIsHalfToEven(t *testing.T) {
	e, err := Compile("round({q1})", 1)
	require.NoError(t, err)

	result, err := e.Evaluate([]*float64{nil, f(2.5)})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 2.0, *result)

	result, err = e.Evaluate([]*float64{nil, f(3.5)})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 4.0, *result)
}

func TestEvaluate_AndShortCircuitsOnFalseLeft(t *testing.T) {
	// {q1} != 0 is false, so the right side's division by q1 must never be
	// evaluated; a non-short-circuiting implementation would instead hit a
	// division-by-zero RuntimeError and degrade to an EvaluationError.
	e, err := Compile("{q1} != 0 and {q2} / {q1} > 1", 2)
	require.NoError(t, err)

	result, err := e.Evaluate([]*float64{nil, f(0), f(4)})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 0.0, *result)
}

func TestCompile_RejectsExponentLiteral(t *testing.T) {
	// Numeric literals are [0-9]+(\.[0-9]+)? only; "1e3" lexes as the
	// number 1 followed by the identifier "e3", which is not valid syntax
	// immediately after a number literal.
	_, err := Compile("1e3", 0)
	require.Error(t, err)
}

func TestEvaluate_OrShortCircuitsOnTrueLeft(t *testing.T) {
	e, err := Compile("{q1} == 0 or {q2} / {q1} > 1", 2)
	require.NoError(t, err)

	result, err := e.Evaluate([]*float64{nil, f(0), f(4)})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1.0, *result)
}
