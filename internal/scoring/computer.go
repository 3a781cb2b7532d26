package scoring

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/proanalytics/core/internal/domain"
)

// Computer is the Score Computer (component C): on every new or modified
// Submission it recomputes that submission's ConstructScore rows, then the
// CompositeScore rows that depend on them.
type Computer struct {
	logger   *logrus.Logger
	compiler *Compiler
	observer EvaluationObserver
}

func NewComputer(logger *logrus.Logger, compiler *Compiler, observer EvaluationObserver) *Computer {
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Computer{logger: logger, compiler: compiler, observer: observer}
}

// ComputeForSubmission implements the three-step algorithm of spec.md §4.C:
// load typed responses, evaluate each applicable ConstructScale, then
// evaluate each CompositeConstructScale that depends on one of them. It is
// idempotent: PutConstructScore/PutCompositeScore overwrite by
// (submission_id, scale_id), so re-running against unchanged responses
// produces identical rows.
func (c *Computer) ComputeForSubmission(ctx context.Context, store domain.Store, submission domain.QuestionnaireSubmission) error {
	log := c.logger.WithFields(logrus.Fields{
		"submission_id": submission.ID,
		"patient_id":    submission.PatientID,
	})

	responses, err := store.ListResponses(ctx, submission.ID)
	if err != nil {
		return domain.NewUnavailable("failed to load submission responses", err)
	}
	responseByItem := make(map[uuid.UUID]*domain.QuestionnaireItemResponse, len(responses))
	for i := range responses {
		r := responses[i]
		responseByItem[r.ItemID] = &r
	}

	scales, err := store.ListScalesForQuestionnaire(ctx, submission.QuestionnaireID)
	if err != nil {
		return domain.NewUnavailable("failed to load construct scales", err)
	}

	scores := make(map[uuid.UUID]*float64, len(scales))
	affectedConstructs := make([]uuid.UUID, 0, len(scales))

	for _, scale := range scales {
		items, err := store.ListItemsForConstruct(ctx, scale.ID)
		if err != nil {
			return domain.NewUnavailable("failed to load construct items", err)
		}
		if len(items) == 0 {
			continue
		}
		sort.Slice(items, func(i, j int) bool { return items[i].ItemNumber < items[j].ItemNumber })

		maxN := 0
		for _, it := range items {
			if it.ItemNumber > maxN {
				maxN = it.ItemNumber
			}
		}
		itemValues := make([]*float64, maxN+1)
		answered := 0
		for _, it := range items {
			v := TypedValue(it, responseByItem[it.ID])
			itemValues[it.ItemNumber] = v
			if v != nil {
				answered++
			}
		}

		compiled, err := c.compiler.Compile(scale, maxN)
		if err != nil {
			// Compile failures are definition-time errors (InvalidExpression);
			// they should have been caught at registration, not here. Treat a
			// stale/invalid registration as a degraded evaluation.
			log.WithError(err).WithField("construct_scale_id", scale.ID).
				Warn("construct equation failed to compile during scoring, degrading to null")
			c.observer.RecordEvaluationError(ctx, submission.ID, scale.ID, err)
			scores[scale.ID] = nil
			affectedConstructs = append(affectedConstructs, scale.ID)
			continue
		}

		score, err := compiled.Evaluate(itemValues)
		if err != nil {
			log.WithError(err).WithField("construct_scale_id", scale.ID).
				Warn("construct equation evaluation failed, score recorded as null")
			c.observer.RecordEvaluationError(ctx, submission.ID, scale.ID, err)
			score = nil
		}

		if answered < scale.MinimumNumberOfItems {
			score = nil
		}

		if err := store.PutConstructScore(ctx, domain.ConstructScore{
			SubmissionID:     submission.ID,
			ConstructScaleID: scale.ID,
			Score:            score,
			ComputedAt:       time.Now().UTC(),
		}); err != nil {
			return domain.NewUnavailable("failed to persist construct score", err)
		}
		scores[scale.ID] = score
		affectedConstructs = append(affectedConstructs, scale.ID)
	}

	if err := c.computeComposites(ctx, store, submission, scores, affectedConstructs); err != nil {
		return err
	}

	log.WithField("constructs_computed", len(affectedConstructs)).Debug("submission scoring complete")
	return nil
}

func (c *Computer) computeComposites(ctx context.Context, store domain.Store, submission domain.QuestionnaireSubmission, scores map[uuid.UUID]*float64, affectedConstructs []uuid.UUID) error {
	seen := map[uuid.UUID]bool{}
	var composites []domain.CompositeConstructScale
	for _, constructID := range affectedConstructs {
		cs, err := store.ListCompositesForConstruct(ctx, constructID)
		if err != nil {
			return domain.NewUnavailable("failed to load composite scales", err)
		}
		for _, comp := range cs {
			if seen[comp.ID] {
				continue
			}
			seen[comp.ID] = true
			composites = append(composites, comp)
		}
	}

	for _, comp := range composites {
		inputs := make([]*float64, 0, len(comp.ConstructIDs))
		for _, constructID := range comp.ConstructIDs {
			if v, ok := scores[constructID]; ok {
				inputs = append(inputs, v)
				continue
			}
			existing, err := store.GetConstructScore(ctx, submission.ID, constructID)
			if err != nil {
				if domain.IsKind(err, domain.KindNotFound) {
					inputs = append(inputs, nil)
					continue
				}
				return domain.NewUnavailable("failed to load dependent construct score", err)
			}
			inputs = append(inputs, existing.Score)
		}

		combined := Combine(comp.Combiner, inputs)
		if err := store.PutCompositeScore(ctx, domain.CompositeScore{
			SubmissionID: submission.ID,
			CompositeID:  comp.ID,
			Score:        combined,
			ComputedAt:   time.Now().UTC(),
		}); err != nil {
			return domain.NewUnavailable("failed to persist composite score", err)
		}
	}
	return nil
}
