package cohort

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/proanalytics/core/internal/domain"
)

// Aggregator is the Cohort Aggregator (component E). Patient resolution
// fans out with bounded concurrency via golang.org/x/sync/errgroup,
// grounded on the teacher's transcript_resolver.go BatchResolve semaphore
// pattern but generalized to errgroup.Group.SetLimit, which spec.md §9's
// design notes call for directly.
type Aggregator struct {
	logger         *logrus.Logger
	maxConcurrency int
}

func NewAggregator(logger *logrus.Logger, maxConcurrency int) *Aggregator {
	if maxConcurrency <= 0 {
		maxConcurrency = 8
	}
	return &Aggregator{logger: logger, maxConcurrency: maxConcurrency}
}

// Aggregate implements spec.md §4.E's algorithm: resolve the cohort
// (excluding the index patient), resolve each cohort patient's series
// under fc, bucket by D, and summarize each bucket index present in
// indexBuckets. Returns domain.KindInsufficientCohort if the resolved
// cohort (after predicates, before per-bucket sample-size checks) is empty.
func (a *Aggregator) Aggregate(
	ctx context.Context,
	store domain.Store,
	target domain.AggregationTarget,
	fc domain.FilterContext,
	predicates domain.CohortPredicates,
	aggType domain.AggregationType,
	indexPatient domain.Patient,
	indexBuckets []int,
	minSamples int,
) (map[int]BucketStat, error) {
	log := a.logger.WithFields(logrus.Fields{
		"target_id":     targetID(target),
		"index_patient": indexPatient.ID,
		"aggregation":   aggType,
	})

	cohort, err := store.ListCohortPatients(ctx, indexPatient.InstitutionID, indexPatient.ID, predicates)
	if err != nil {
		return nil, domain.NewUnavailable("failed to resolve cohort patients", err)
	}
	if len(cohort) == 0 {
		return nil, domain.NewInsufficientCohort("cohort is empty after applying predicates")
	}

	valuesByBucket := make(map[int][]float64, len(indexBuckets))
	var mu sync.Mutex
	wanted := make(map[int]bool, len(indexBuckets))
	for _, b := range indexBuckets {
		wanted[b] = true
		valuesByBucket[b] = nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.maxConcurrency)

	for _, patient := range cohort {
		patient := patient
		if patient.ID == indexPatient.ID {
			// Invariant 6 / spec.md §4.E step 1: the index patient is never
			// part of its own cohort, even if the Store failed to exclude it.
			continue
		}
		g.Go(func() error {
			series, hasAnchor, err := patientSeries(gctx, store, patient, target, fc)
			if err != nil {
				return err
			}
			if !hasAnchor {
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			for bucket, value := range series {
				if wanted[bucket] {
					valuesByBucket[bucket] = append(valuesByBucket[bucket], value)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, domain.NewUnavailable("cohort fan-out failed", err)
	}

	result := make(map[int]BucketStat, len(indexBuckets))
	for _, bucket := range indexBuckets {
		stat, ok := Summarize(aggType, valuesByBucket[bucket], minSamples)
		if !ok {
			continue // bucket with zero cohort values yields a null statistic
		}
		result[bucket] = stat
	}

	log.WithField("cohort_size", len(cohort)).Debug("cohort aggregation complete")
	return result, nil
}

// IndexBucketsFor is a convenience used by internal/core: the index
// patient's own bucket indices are the set of points the cohort curve is
// computed at (spec.md §4.D).
func IndexBucketsFor(series map[int]float64) []int {
	buckets := make([]int, 0, len(series))
	for b := range series {
		buckets = append(buckets, b)
	}
	return buckets
}
