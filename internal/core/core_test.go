package core

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proanalytics/core/internal/cache"
	"github.com/proanalytics/core/internal/cohort"
	"github.com/proanalytics/core/internal/domain"
	"github.com/proanalytics/core/internal/scoring"
	"github.com/proanalytics/core/internal/store"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// newTestCache builds a real *cache.TieredCache against Redis URLs nothing
// listens on: go-redis dials lazily and both tiers' circuit breakers treat
// connection failures as a recoverable miss, so GetOrCompute always falls
// through to direct computation. Exercises the same code path production
// does, without requiring a live Redis server in this package's tests.
func newTestCache(t *testing.T) *cache.TieredCache {
	t.Helper()
	c, err := cache.New(quietLogger(), cache.Config{
		PatientRedisURL:    "redis://127.0.0.1:1/0",
		PopulationRedisURL: "redis://127.0.0.1:1/0",
	})
	require.NoError(t, err)
	return c
}

func newTestCore(t *testing.T, st domain.Store) *Core {
	t.Helper()
	computer := scoring.NewComputer(quietLogger(), scoring.NewCompiler(), nil)
	aggregator := cohort.NewAggregator(quietLogger(), 4)
	cfg := domain.ScoringConfig{AggregationDefault: domain.AggMedianIQR, CohortMinSamples: 2, ChangeFallbackRatio: 0.1}
	return New(quietLogger(), st, newTestCache(t), computer, aggregator, nil, cfg)
}

// fixture seeds one institution, one patient, one questionnaire with a
// single construct scale backed by one Likert item, plus a second
// "previous" submission so current/previous and series resolution can be
// exercised together.
type fixture struct {
	store           *store.MemoryStore
	institutionID   uuid.UUID
	patientID       uuid.UUID
	questionnaireID uuid.UUID
	constructID     uuid.UUID
	itemID          uuid.UUID
	submissions     []uuid.UUID
}

func newFixture(regAt time.Time) fixture {
	s := store.NewMemoryStore()

	institutionID := uuid.New()
	patientID := uuid.New()
	questionnaireID := uuid.New()
	constructID := uuid.New()
	itemID := uuid.New()

	s.Institutions[institutionID] = domain.Institution{ID: institutionID, Name: "Test Hospital"}
	s.Patients[patientID] = domain.Patient{
		ID:            patientID,
		InstitutionID: institutionID,
		BirthDate:     regAt.AddDate(-40, 0, 0),
		Gender:        "F",
		RegisteredAt:  regAt,
	}

	s.Items[itemID] = domain.Item{
		ID:               itemID,
		QuestionnaireID:  questionnaireID,
		ItemNumber:       1,
		ResponseType:     domain.ResponseNumber,
		ConstructScaleID: &constructID,
		Direction:        domain.HigherBetter,
	}
	s.Questionnaires[questionnaireID] = domain.Questionnaire{
		ID:          questionnaireID,
		DisplayName: "PROMIS Fatigue",
		ItemIDs:     []uuid.UUID{itemID},
	}
	s.ConstructScales[constructID] = domain.ConstructScale{
		ID:                   constructID,
		Name:                 "Fatigue",
		Direction:            domain.HigherBetter,
		Threshold:            ptr(3.0),
		MinimumNumberOfItems: 1,
		Equation:             "{q1}",
	}

	f := fixture{
		store:           s,
		institutionID:   institutionID,
		patientID:       patientID,
		questionnaireID: questionnaireID,
		constructID:     constructID,
		itemID:          itemID,
	}

	// Two submissions a week apart, newest answered higher than oldest.
	sub1 := uuid.New()
	sub2 := uuid.New()
	s.Submissions[sub1] = domain.QuestionnaireSubmission{ID: sub1, PatientID: patientID, QuestionnaireID: questionnaireID, SubmittedAt: regAt.AddDate(0, 0, 7)}
	s.Submissions[sub2] = domain.QuestionnaireSubmission{ID: sub2, PatientID: patientID, QuestionnaireID: questionnaireID, SubmittedAt: regAt.AddDate(0, 0, 14)}
	s.Responses[sub1] = []domain.QuestionnaireItemResponse{{SubmissionID: sub1, ItemID: itemID, ResponseValue: "2"}}
	s.Responses[sub2] = []domain.QuestionnaireItemResponse{{SubmissionID: sub2, ItemID: itemID, ResponseValue: "4"}}
	f.submissions = []uuid.UUID{sub1, sub2}

	return f
}

func defaultFilterContext() domain.FilterContext {
	return domain.FilterContext{
		Anchor:      domain.Anchor{Kind: domain.AnchorRegistration},
		Granularity: domain.GranularityWeek,
	}
}

func TestGetPatientReview_HappyPath(t *testing.T) {
	regAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := newFixture(regAt)
	c := newTestCore(t, f.store)

	for _, subID := range f.submissions {
		require.NoError(t, c.OnSubmissionWritten(context.Background(), subID))
	}

	review, err := c.GetPatientReview(context.Background(), f.patientID, f.institutionID, defaultFilterContext())
	require.NoError(t, err)

	require.Len(t, review.ConstructScores, 1)
	cs := review.ConstructScores[0]
	require.NotNil(t, cs.Current)
	require.NotNil(t, cs.Previous)
	assert.Equal(t, 4.0, *cs.Current)
	assert.Equal(t, 2.0, *cs.Previous)
	assert.False(t, cs.NoAnchor)
	assert.NotEmpty(t, cs.Series)

	require.Len(t, review.Items, 1)
	assert.Equal(t, f.itemID, review.Items[0].ItemID)

	require.Len(t, review.QuestionnairesOverview, 1)
	assert.Equal(t, 2, review.QuestionnairesOverview[0].SubmissionCount)
}

func TestGetPatientReview_NoAnchorStillReturnsScores(t *testing.T) {
	regAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := newFixture(regAt)
	c := newTestCore(t, f.store)
	for _, subID := range f.submissions {
		require.NoError(t, c.OnSubmissionWritten(context.Background(), subID))
	}

	diagnosisAnchorID := uuid.New()
	fc := domain.FilterContext{
		Anchor:      domain.Anchor{Kind: domain.AnchorDiagnosis, RefID: &diagnosisAnchorID},
		Granularity: domain.GranularityWeek,
	}

	review, err := c.GetPatientReview(context.Background(), f.patientID, f.institutionID, fc)
	require.NoError(t, err)
	require.Len(t, review.ConstructScores, 1)
	assert.True(t, review.ConstructScores[0].NoAnchor)
	assert.Empty(t, review.ConstructScores[0].Series)
	// Current/previous come from stored scores, not the series, so they
	// still resolve even without a bucketing anchor.
	require.NotNil(t, review.ConstructScores[0].Current)
}

func TestGetPatientReview_CrossInstitutionIsUnauthorized(t *testing.T) {
	regAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := newFixture(regAt)
	c := newTestCore(t, f.store)

	_, err := c.GetPatientReview(context.Background(), f.patientID, uuid.New(), defaultFilterContext())
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized))
}

func TestGetPatientReview_UnknownPatientIsNotFound(t *testing.T) {
	f := newFixture(time.Now())
	c := newTestCore(t, f.store)

	_, err := c.GetPatientReview(context.Background(), uuid.New(), f.institutionID, defaultFilterContext())
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestOnSubmissionWritten_IdempotentScores(t *testing.T) {
	regAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := newFixture(regAt)
	c := newTestCore(t, f.store)

	subID := f.submissions[0]
	require.NoError(t, c.OnSubmissionWritten(context.Background(), subID))
	require.NoError(t, c.OnSubmissionWritten(context.Background(), subID))

	score, err := f.store.GetConstructScore(context.Background(), subID, f.constructID)
	require.NoError(t, err)
	require.NotNil(t, score.Score)
	assert.Equal(t, 2.0, *score.Score)
}

// TestGetCohortAggregate_InsufficientCohortIsEmptyNotError reproduces
// spec.md §7: a cohort with no members other than the index patient
// resolves to an empty aggregate, not an error.
func TestGetCohortAggregate_InsufficientCohortIsEmptyNotError(t *testing.T) {
	regAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := newFixture(regAt)
	c := newTestCore(t, f.store)
	require.NoError(t, c.OnSubmissionWritten(context.Background(), f.submissions[0]))

	target := domain.AggregationTarget{ConstructScaleID: &f.constructID}
	results, err := c.GetCohortAggregate(context.Background(), target, defaultFilterContext(), domain.CohortPredicates{}, domain.AggMedianIQR, f.patientID)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// TestGetCohortAggregate_NoAnchorIsEmptyNotError covers the index patient
// lacking a resolvable anchor: nothing to bucket the cohort against.
func TestGetCohortAggregate_NoAnchorIsEmptyNotError(t *testing.T) {
	f := newFixture(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := newTestCore(t, f.store)

	diagnosisAnchorID := uuid.New()
	fc := domain.FilterContext{Anchor: domain.Anchor{Kind: domain.AnchorDiagnosis, RefID: &diagnosisAnchorID}, Granularity: domain.GranularityWeek}
	target := domain.AggregationTarget{ConstructScaleID: &f.constructID}

	results, err := c.GetCohortAggregate(context.Background(), target, fc, domain.CohortPredicates{}, domain.AggMedianIQR, f.patientID)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func ptr(f float64) *float64 { return &f }
