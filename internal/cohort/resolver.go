package cohort

import (
	"context"

	"github.com/google/uuid"

	"github.com/proanalytics/core/internal/bucketing"
	"github.com/proanalytics/core/internal/domain"
	"github.com/proanalytics/core/internal/scoring"
)

// resolveAnchor builds an AnchorResolver for a patient by fetching whatever
// entity the FilterContext's Anchor references. Returns ok=false
// (domain.KindNoAnchor upstream) when the referenced entity or its date is
// unavailable.
func resolveAnchor(ctx context.Context, store domain.Store, patient domain.Patient, anchor domain.Anchor) (bucketing.AnchorResolver, bool) {
	r := bucketing.AnchorResolver{RegistrationDate: patient.RegisteredAt}
	switch anchor.Kind {
	case domain.AnchorRegistration:
		return r, !patient.RegisteredAt.IsZero()
	case domain.AnchorDiagnosis:
		if anchor.RefID == nil {
			return r, false
		}
		diag, err := store.GetDiagnosis(ctx, *anchor.RefID)
		if err != nil || diag == nil || diag.PatientID != patient.ID {
			return r, false
		}
		r.DiagnosisDate = &diag.Date
		return r, true
	case domain.AnchorTreatmentStart:
		if anchor.RefID == nil {
			return r, false
		}
		tx, err := store.GetTreatment(ctx, *anchor.RefID)
		if err != nil || tx == nil {
			return r, false
		}
		r.TreatmentDate = &tx.StartDate
		return r, true
	default:
		return r, false
	}
}

// PatientSeries resolves a single patient's bucket → value series under fc,
// exported for internal/core's use when computing the index patient's own
// curve (the same resolution Aggregate uses per cohort member). hasAnchor
// is false when the patient's FilterContext anchor can't be resolved
// (domain.KindNoAnchor at the caller).
func PatientSeries(ctx context.Context, store domain.Store, patient domain.Patient, target domain.AggregationTarget, fc domain.FilterContext) (map[int]float64, bool, error) {
	return patientSeries(ctx, store, patient, target, fc)
}

// patientSeries resolves one patient's bucket → value series for the given
// target, clipped to the FilterContext's window, using calendar-aware
// bucketing relative to the patient's own resolved anchor. Submissions
// before the anchor are dropped (negative-interval policy); when more than
// one submission lands in the same bucket, the newest one wins.
func patientSeries(ctx context.Context, store domain.Store, patient domain.Patient, target domain.AggregationTarget, fc domain.FilterContext) (map[int]float64, bool, error) {
	anchorResolver, ok := resolveAnchor(ctx, store, patient, fc.Anchor)
	if !ok {
		return nil, false, nil
	}
	anchorDate, ok := anchorResolver.Resolve(fc.Anchor)
	if !ok {
		return nil, false, nil
	}

	submissions, err := store.ListSubmissions(ctx, patient.ID, &fc.SubmissionWindow)
	if err != nil {
		return nil, true, err
	}

	upperBound := bucketing.Window(anchorDate, fc.Granularity, fc.SubmissionWindow.MaxIntervals)

	series := map[int]float64{}
	seenAtBucket := map[int]int64{} // bucket -> latest submitted-at unix seen, for tie-break

	for _, sub := range submissions {
		if sub.SubmittedAt.Before(anchorDate) {
			continue
		}
		if upperBound != nil && sub.SubmittedAt.After(*upperBound) {
			continue
		}
		idx := bucketing.BucketIndex(anchorDate, sub.SubmittedAt, fc.Granularity)
		if idx < 0 {
			continue
		}

		value, found, err := resolveTargetValue(ctx, store, sub, target)
		if err != nil {
			return nil, true, err
		}
		if !found {
			continue
		}

		ts := sub.SubmittedAt.Unix()
		if last, ok := seenAtBucket[idx]; ok && ts <= last {
			continue
		}
		seenAtBucket[idx] = ts
		series[idx] = value
	}

	return series, true, nil
}

func resolveTargetValue(ctx context.Context, store domain.Store, sub domain.QuestionnaireSubmission, target domain.AggregationTarget) (float64, bool, error) {
	if target.ConstructScaleID != nil {
		score, err := store.GetConstructScore(ctx, sub.ID, *target.ConstructScaleID)
		if err != nil {
			if domain.IsKind(err, domain.KindNotFound) {
				return 0, false, nil
			}
			return 0, false, err
		}
		if score.Score == nil {
			return 0, false, nil
		}
		return *score.Score, true, nil
	}

	if target.ItemID != nil {
		item, err := store.GetItem(ctx, *target.ItemID)
		if err != nil {
			return 0, false, err
		}
		responses, err := store.ListResponses(ctx, sub.ID)
		if err != nil {
			return 0, false, err
		}
		var resp *domain.QuestionnaireItemResponse
		for i := range responses {
			if responses[i].ItemID == *target.ItemID {
				resp = &responses[i]
				break
			}
		}
		v := scoring.TypedValue(*item, resp)
		if v == nil {
			return 0, false, nil
		}
		return *v, true, nil
	}

	return 0, false, nil
}

// targetID resolves whichever id a target carries, for logging.
func targetID(target domain.AggregationTarget) uuid.UUID {
	if target.ConstructScaleID != nil {
		return *target.ConstructScaleID
	}
	if target.ItemID != nil {
		return *target.ItemID
	}
	return uuid.Nil
}
