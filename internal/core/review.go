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
	"github.com/proanalytics/core/internal/interpretation"
	"github.com/proanalytics/core/internal/scoring"
)

// GetPatientReview implements spec.md §6's GetPatientReview. The literal
// external signature is (patient_id, FilterContext); requestingInstitutionID
// is a Go-level addition (see DESIGN.md's Open Question decisions) that
// lets the caller's institution be checked against the patient's own,
// since nothing else in the signature carries who is asking.
func (c *Core) GetPatientReview(ctx context.Context, patientID uuid.UUID, requestingInstitutionID uuid.UUID, fc domain.FilterContext) (*PatientReview, error) {
	log := c.logger.WithFields(logrus.Fields{"patient_id": patientID, "op": "GetPatientReview"})

	// Step 1: resolve and authorize the patient.
	patient, err := c.store.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if patient.InstitutionID != requestingInstitutionID {
		log.Warn("cross-institution patient review attempted")
		return nil, domain.NewUnauthorized("patient belongs to a different institution")
	}

	// Step 2: gather the questionnaires the patient has ever submitted, and
	// their applicable construct scales/items, honoring the optional
	// questionnaire/item filters.
	allSubmissions, err := c.store.ListSubmissions(ctx, patientID, nil)
	if err != nil {
		return nil, err
	}
	overview, questionnaireIDs := c.buildQuestionnaireOverview(allSubmissions, fc.QuestionnaireFilter)

	constructs := map[uuid.UUID]domain.ConstructScale{}
	itemsByConstruct := map[uuid.UUID][]domain.Item{}
	var allItems []domain.Item
	for _, qID := range questionnaireIDs {
		scales, err := c.store.ListScalesForQuestionnaire(ctx, qID)
		if err != nil {
			return nil, err
		}
		for _, cs := range scales {
			if _, ok := constructs[cs.ID]; ok {
				continue
			}
			constructs[cs.ID] = cs
			items, err := c.store.ListItemsForConstruct(ctx, cs.ID)
			if err != nil {
				return nil, err
			}
			itemsByConstruct[cs.ID] = items
		}
		q, err := c.store.GetQuestionnaire(ctx, qID)
		if err != nil {
			return nil, err
		}
		for _, itemID := range q.ItemIDs {
			if !itemIncluded(itemID, fc.ItemFilter) {
				continue
			}
			item, err := c.store.GetItem(ctx, itemID)
			if err != nil {
				return nil, err
			}
			allItems = append(allItems, *item)
		}
	}

	filterHash := cache.FilterHash(fc)

	// Step 3: resolve every construct's cached review fragment.
	constructResults := make([]ConstructResult, 0, len(constructs))
	for _, cs := range constructs {
		result, err := c.constructResult(ctx, *patient, cs, fc, filterHash)
		if err != nil {
			return nil, err
		}
		constructResults = append(constructResults, *result)
	}
	orderConstructResults(constructResults)

	// Step 4: resolve every composite that depends on a construct in scope.
	seenComposites := map[uuid.UUID]bool{}
	compositeResults := make([]CompositeResult, 0)
	for constructID := range constructs {
		composites, err := c.store.ListCompositesForConstruct(ctx, constructID)
		if err != nil {
			return nil, err
		}
		for _, comp := range composites {
			if seenComposites[comp.ID] {
				continue
			}
			seenComposites[comp.ID] = true
			result, err := c.compositeResult(ctx, *patient, comp, fc, filterHash)
			if err != nil {
				return nil, err
			}
			compositeResults = append(compositeResults, *result)
		}
	}
	sort.Slice(compositeResults, func(i, j int) bool { return compositeResults[i].Name < compositeResults[j].Name })

	// Step 5: resolve every item in scope.
	itemResults := make([]ItemResult, 0, len(allItems))
	for _, item := range allItems {
		result, err := c.itemResult(ctx, *patient, item, fc, filterHash)
		if err != nil {
			return nil, err
		}
		itemResults = append(itemResults, *result)
	}

	review := &PatientReview{
		PatientSummary: PatientSummary{
			PatientID:     patient.ID,
			InstitutionID: patient.InstitutionID,
			Age:           patient.AgeAt(patient.RegisteredAt),
			Gender:        patient.Gender,
		},
		QuestionnairesOverview: overview,
		ConstructScores:        constructResults,
		CompositeScores:        compositeResults,
		Items:                  itemResults,
	}

	log.WithFields(logrus.Fields{
		"constructs": len(constructResults),
		"composites": len(compositeResults),
		"items":      len(itemResults),
	}).Debug("patient review assembled")
	return review, nil
}

func (c *Core) buildQuestionnaireOverview(submissions []domain.QuestionnaireSubmission, questionnaireFilter []uuid.UUID) ([]QuestionnaireOverview, []uuid.UUID) {
	byQuestionnaire := map[uuid.UUID]*QuestionnaireOverview{}
	var order []uuid.UUID
	for _, sub := range submissions {
		if !itemIncluded(sub.QuestionnaireID, questionnaireFilter) {
			continue
		}
		ov, ok := byQuestionnaire[sub.QuestionnaireID]
		if !ok {
			ov = &QuestionnaireOverview{QuestionnaireID: sub.QuestionnaireID}
			byQuestionnaire[sub.QuestionnaireID] = ov
			order = append(order, sub.QuestionnaireID)
		}
		ov.SubmissionCount++
		if sub.SubmittedAt.After(ov.LastSubmittedAt) {
			ov.LastSubmittedAt = sub.SubmittedAt
		}
	}

	overview := make([]QuestionnaireOverview, 0, len(order))
	for _, qID := range order {
		ov := *byQuestionnaire[qID]
		if q, err := c.store.GetQuestionnaire(context.Background(), qID); err == nil {
			ov.DisplayName = q.DisplayName
		}
		overview = append(overview, ov)
	}
	sort.Slice(overview, func(i, j int) bool { return overview[i].DisplayName < overview[j].DisplayName })
	return overview, order
}

// itemIncluded reports whether id passes an optional allow-list filter; an
// empty filter means "no restriction".
func itemIncluded(id uuid.UUID, filter []uuid.UUID) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if f == id {
			return true
		}
	}
	return false
}

func (c *Core) constructResult(ctx context.Context, patient domain.Patient, cs domain.ConstructScale, fc domain.FilterContext, filterHash string) (*ConstructResult, error) {
	key := cache.PatientScoreKey(patient.ID, cs.ID, filterHash)
	raw, _, err := c.cache.GetOrCompute(ctx, key, 0, func(ctx context.Context) ([]byte, error) {
		target := domain.AggregationTarget{ConstructScaleID: &cs.ID}
		series, hasAnchor, err := cohort.PatientSeries(ctx, c.store, patient, target, fc)
		if err != nil {
			return nil, err
		}
		current, previous, err := c.recentConstructScores(ctx, patient.ID, cs.ID)
		if err != nil {
			return nil, err
		}
		calib := interpretation.Calibration{Direction: cs.Direction, Threshold: cs.Threshold, MID: cs.MID, NormativeMean: cs.NormativeMean, NormativeSD: cs.NormativeSD}
		result := ConstructResult{
			ConstructID:    cs.ID,
			Name:           cs.Name,
			Current:        current,
			Previous:       previous,
			Series:         seriesPoints(series),
			Interpretation: buildInterpretation(current, previous, calib, c.scoringCfg.ChangeFallbackRatio),
			NoAnchor:       !hasAnchor,
		}
		return json.Marshal(result)
	})
	if err != nil {
		return nil, err
	}
	var result ConstructResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, domain.NewUnavailable("failed to decode cached construct result", err)
	}
	return &result, nil
}

func (c *Core) compositeResult(ctx context.Context, patient domain.Patient, comp domain.CompositeConstructScale, fc domain.FilterContext, filterHash string) (*CompositeResult, error) {
	key := cache.PatientCompositeKey(patient.ID, comp.ID, filterHash)
	raw, _, err := c.cache.GetOrCompute(ctx, key, 0, func(ctx context.Context) ([]byte, error) {
		current, previous, err := c.recentCompositeScores(ctx, patient.ID, comp.ID)
		if err != nil {
			return nil, err
		}
		// Composites carry no calibration of their own in the data model;
		// direction NONE with no thresholds yields a
		// not-classified current state but still reports raw change via
		// the ratio fallback, matching how an uncalibrated construct behaves.
		calib := interpretation.Calibration{Direction: domain.NoDirection}
		result := CompositeResult{
			CompositeID:    comp.ID,
			Name:           comp.Name,
			Current:        current,
			Previous:       previous,
			Interpretation: buildInterpretation(current, previous, calib, c.scoringCfg.ChangeFallbackRatio),
		}
		return json.Marshal(result)
	})
	if err != nil {
		return nil, err
	}
	var result CompositeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, domain.NewUnavailable("failed to decode cached composite result", err)
	}
	return &result, nil
}

func (c *Core) itemResult(ctx context.Context, patient domain.Patient, item domain.Item, fc domain.FilterContext, filterHash string) (*ItemResult, error) {
	key := cache.PatientItemKey(patient.ID, item.ID, filterHash)
	raw, _, err := c.cache.GetOrCompute(ctx, key, 0, func(ctx context.Context) ([]byte, error) {
		target := domain.AggregationTarget{ItemID: &item.ID}
		series, hasAnchor, err := cohort.PatientSeries(ctx, c.store, patient, target, fc)
		if err != nil {
			return nil, err
		}
		current, previous, err := c.recentItemValues(ctx, patient.ID, item)
		if err != nil {
			return nil, err
		}
		calib := interpretation.Calibration{Direction: item.Direction, Threshold: item.Threshold, MID: item.MID, NormativeMean: item.NormativeMean, NormativeSD: item.NormativeSD}
		result := ItemResult{
			ItemID:         item.ID,
			Current:        current,
			Previous:       previous,
			Series:         seriesPoints(series),
			Interpretation: buildInterpretation(current, previous, calib, c.scoringCfg.ChangeFallbackRatio),
			NoAnchor:       !hasAnchor,
		}
		return json.Marshal(result)
	})
	if err != nil {
		return nil, err
	}
	var result ItemResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, domain.NewUnavailable("failed to decode cached item result", err)
	}
	return &result, nil
}

func (c *Core) recentConstructScores(ctx context.Context, patientID, constructID uuid.UUID) (current, previous *float64, err error) {
	scores, err := c.store.ListConstructScoresForPatient(ctx, patientID, constructID)
	if err != nil {
		return nil, nil, err
	}
	if len(scores) > 0 {
		current = scores[0].Score
	}
	if len(scores) > 1 {
		previous = scores[1].Score
	}
	return current, previous, nil
}

func (c *Core) recentCompositeScores(ctx context.Context, patientID, compositeID uuid.UUID) (current, previous *float64, err error) {
	scores, err := c.store.ListCompositeScoresForPatient(ctx, patientID, compositeID)
	if err != nil {
		return nil, nil, err
	}
	if len(scores) > 0 {
		current = scores[0].Score
	}
	if len(scores) > 1 {
		previous = scores[1].Score
	}
	return current, previous, nil
}

func (c *Core) recentItemValues(ctx context.Context, patientID uuid.UUID, item domain.Item) (current, previous *float64, err error) {
	submissions, err := c.store.ListSubmissions(ctx, patientID, nil)
	if err != nil {
		return nil, nil, err
	}
	var found []*float64
	for _, sub := range submissions {
		if sub.QuestionnaireID != item.QuestionnaireID {
			continue
		}
		responses, err := c.store.ListResponses(ctx, sub.ID)
		if err != nil {
			return nil, nil, err
		}
		var resp *domain.QuestionnaireItemResponse
		for i := range responses {
			if responses[i].ItemID == item.ID {
				resp = &responses[i]
				break
			}
		}
		found = append(found, scoring.TypedValue(item, resp))
		if len(found) >= 2 {
			break
		}
	}
	if len(found) > 0 {
		current = found[0]
	}
	if len(found) > 1 {
		previous = found[1]
	}
	return current, previous, nil
}

// orderConstructResults applies interpretation.OrderTopline's consumer
// ordering contract in place: constructs significant on both axes surface
// first, then alphabetical by name.
func orderConstructResults(results []ConstructResult) {
	ranked := make([]interpretation.RankedConstruct, len(results))
	indicesByName := map[string][]int{}
	for i, r := range results {
		ranked[i] = interpretation.RankedConstruct{
			Name:               r.Name,
			CurrentSignificant: r.Interpretation.CurrentSignificant,
			ChangeSignificant:  r.Interpretation.ChangeSignificant,
		}
		indicesByName[r.Name] = append(indicesByName[r.Name], i)
	}
	interpretation.OrderTopline(ranked)

	ordered := make([]ConstructResult, len(results))
	for i, rc := range ranked {
		queue := indicesByName[rc.Name]
		ordered[i] = results[queue[0]]
		indicesByName[rc.Name] = queue[1:]
	}
	copy(results, ordered)
}

func seriesPoints(series map[int]float64) []SeriesPoint {
	points := make([]SeriesPoint, 0, len(series))
	for bucket, value := range series {
		points = append(points, SeriesPoint{Bucket: bucket, Value: value})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Bucket < points[j].Bucket })
	return points
}
