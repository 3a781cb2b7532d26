package core

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/proanalytics/core/internal/cache"
	"github.com/proanalytics/core/internal/cohort"
	"github.com/proanalytics/core/internal/domain"
)

// GetCohortAggregate implements spec.md §6's GetCohortAggregate: resolves
// the index patient's own bucket indices, then asks the Cohort Aggregator
// to summarize every other institution patient matching predicates at
// those same buckets. Always excludes indexPatientID (invariant 6,
// enforced again inside cohort.Aggregator even though the Store is also
// expected to honor it).
//
// Both InsufficientCohort and NoAnchor resolve to an empty result rather
// than an error, per spec.md §7: InsufficientCohort is explicitly "not an
// error to the caller", and an index patient lacking the requested anchor
// has nothing to aggregate at.
func (c *Core) GetCohortAggregate(ctx context.Context, target domain.AggregationTarget, fc domain.FilterContext, predicates domain.CohortPredicates, aggType domain.AggregationType, indexPatientID uuid.UUID) ([]BucketResult, error) {
	if aggType == "" {
		aggType = c.scoringCfg.AggregationDefault
	}
	log := c.logger.WithFields(logrus.Fields{"index_patient": indexPatientID, "aggregation": aggType, "op": "GetCohortAggregate"})

	key := cache.PopulationKey(target, fc, predicates, aggType)
	raw, _, err := c.cache.GetOrCompute(ctx, key, 0, func(ctx context.Context) ([]byte, error) {
		indexPatient, err := c.store.GetPatient(ctx, indexPatientID)
		if err != nil {
			return nil, err
		}

		series, hasAnchor, err := cohort.PatientSeries(ctx, c.store, *indexPatient, target, fc)
		if err != nil {
			return nil, err
		}
		if !hasAnchor {
			log.Debug("index patient has no resolvable anchor, returning empty aggregate")
			return json.Marshal([]BucketResult{})
		}

		buckets := cohort.IndexBucketsFor(series)
		minSamples := c.scoringCfg.CohortMinSamples
		if minSamples <= 0 {
			minSamples = 8
		}
		stats, err := c.aggregator.Aggregate(ctx, c.store, target, fc, predicates, aggType, *indexPatient, buckets, minSamples)
		if err != nil {
			if domain.IsKind(err, domain.KindInsufficientCohort) {
				log.Debug("cohort empty after predicates, returning empty aggregate")
				return json.Marshal([]BucketResult{})
			}
			return nil, err
		}

		results := make([]BucketResult, 0, len(stats))
		for bucket, stat := range stats {
			results = append(results, BucketResult{Bucket: bucket, Stat: stat})
		}
		sort.Slice(results, func(i, j int) bool { return results[i].Bucket < results[j].Bucket })
		return json.Marshal(results)
	})
	if err != nil {
		return nil, err
	}

	var out []BucketResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, domain.NewUnavailable("failed to decode cached cohort aggregate", err)
	}
	return out, nil
}
