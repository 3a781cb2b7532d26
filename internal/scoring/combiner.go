package scoring

import (
	"sort"

	"github.com/proanalytics/core/internal/domain"
)

// Combine reduces a CompositeConstructScale's inputs per spec.md §4.C: the
// combiner runs over non-null inputs only; the composite is null if every
// input is null.
func Combine(combiner domain.Combiner, inputs []*float64) *float64 {
	nums := make([]float64, 0, len(inputs))
	for _, v := range inputs {
		if v != nil {
			nums = append(nums, *v)
		}
	}
	if len(nums) == 0 {
		return nil
	}

	var result float64
	switch combiner {
	case domain.CombineSum:
		for _, n := range nums {
			result += n
		}
	case domain.CombineProduct:
		result = 1
		for _, n := range nums {
			result *= n
		}
	case domain.CombineMean:
		for _, n := range nums {
			result += n
		}
		result /= float64(len(nums))
	case domain.CombineMedian:
		result = median(nums)
	case domain.CombineMode:
		result = mode(nums)
	case domain.CombineMin:
		result = nums[0]
		for _, n := range nums[1:] {
			if n < result {
				result = n
			}
		}
	case domain.CombineMax:
		result = nums[0]
		for _, n := range nums[1:] {
			if n > result {
				result = n
			}
		}
	default:
		return nil
	}
	return &result
}

func median(nums []float64) float64 {
	sorted := append([]float64(nil), nums...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// mode returns the most frequent value, breaking ties by the smallest
// value among those tied for the highest frequency.
func mode(nums []float64) float64 {
	counts := map[float64]int{}
	for _, n := range nums {
		counts[n]++
	}
	best := nums[0]
	bestCount := 0
	keys := append([]float64(nil), nums...)
	sort.Float64s(keys)
	seen := map[float64]bool{}
	for _, k := range keys {
		if seen[k] {
			continue
		}
		seen[k] = true
		if counts[k] > bestCount {
			bestCount = counts[k]
			best = k
		}
	}
	return best
}
