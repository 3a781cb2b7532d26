package cohort

import (
	"math"
	"sort"

	"github.com/proanalytics/core/internal/domain"
)

// BucketStat is one bucket's summary statistic, per spec.md §4.E's
// { bucket_index → (center, low, high, n) } output shape.
type BucketStat struct {
	Center              float64
	Low                 float64
	High                float64
	N                   int
	InsufficientSamples bool
}

// zScore95 is the normal-approximation critical value for a 95% CI.
const zScore95 = 1.96

// Summarize computes the requested aggregation over values (already
// null-filtered by the caller), per the tie-break and numeric policy in
// spec.md §4.E. An empty values slice yields a null statistic (ok=false).
func Summarize(aggType domain.AggregationType, values []float64, minSamples int) (BucketStat, bool) {
	if len(values) == 0 {
		return BucketStat{}, false
	}

	switch aggType {
	case domain.AggMedianIQR:
		return summarizeMedianIQR(values), true
	case domain.AggMean95CI:
		return summarizeMean95CI(values, minSamples), true
	case domain.AggMeanPM05SD:
		return summarizeMeanPMSD(values, 0.5), true
	case domain.AggMeanPM1SD:
		return summarizeMeanPMSD(values, 1.0), true
	case domain.AggMeanPM15SD:
		return summarizeMeanPMSD(values, 1.5), true
	case domain.AggMeanPM2SD:
		return summarizeMeanPMSD(values, 2.0), true
	case domain.AggMeanPM25SD:
		return summarizeMeanPMSD(values, 2.5), true
	default:
		return BucketStat{}, false
	}
}

func summarizeMedianIQR(values []float64) BucketStat {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	center := percentile(sorted, 0.5)
	if n == 1 {
		return BucketStat{Center: sorted[0], Low: sorted[0], High: sorted[0], N: 1}
	}
	return BucketStat{
		Center: center,
		Low:    percentile(sorted, 0.25),
		High:   percentile(sorted, 0.75),
		N:      n,
	}
}

// percentile uses linear interpolation between order statistics (the
// "R type 7" method), matching spec.md §4.E's requirement.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := p * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func stddev(values []float64, m float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

func summarizeMean95CI(values []float64, minSamples int) BucketStat {
	m := mean(values)
	n := len(values)
	if n < minSamples {
		return BucketStat{Center: m, Low: m, High: m, N: n, InsufficientSamples: true}
	}
	sd := stddev(values, m)
	margin := zScore95 * sd / math.Sqrt(float64(n))
	return BucketStat{Center: m, Low: m - margin, High: m + margin, N: n}
}

func summarizeMeanPMSD(values []float64, k float64) BucketStat {
	m := mean(values)
	sd := stddev(values, m)
	return BucketStat{Center: m, Low: m - k*sd, High: m + k*sd, N: len(values)}
}
