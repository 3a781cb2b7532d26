package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proanalytics/core/internal/domain"
)

func TestCombine_DropsNullsAndNullIfAllNull(t *testing.T) {
	a, b := 2.0, 6.0
	result := Combine(domain.CombineMean, []*float64{&a, nil, &b})
	require.NotNil(t, result)
	assert.Equal(t, 4.0, *result)

	assert.Nil(t, Combine(domain.CombineMean, []*float64{nil, nil}))
}

func TestCombine_Median(t *testing.T) {
	a, b, c := 1.0, 5.0, 3.0
	result := Combine(domain.CombineMedian, []*float64{&a, &b, &c})
	require.NotNil(t, result)
	assert.Equal(t, 3.0, *result)
}

func TestCombine_ProductAndMinMax(t *testing.T) {
	a, b := 2.0, 3.0
	product := Combine(domain.CombineProduct, []*float64{&a, &b})
	require.NotNil(t, product)
	assert.Equal(t, 6.0, *product)

	min := Combine(domain.CombineMin, []*float64{&a, &b})
	require.NotNil(t, min)
	assert.Equal(t, 2.0, *min)

	max := Combine(domain.CombineMax, []*float64{&a, &b})
	require.NotNil(t, max)
	assert.Equal(t, 3.0, *max)
}
