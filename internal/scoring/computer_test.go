package scoring

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proanalytics/core/internal/domain"
)

// fakeStore is a minimal in-memory domain.Store stub scoped to what the
// Score Computer touches; it embeds domain.Store so unimplemented methods
// panic loudly if exercised by a future test rather than compiling away.
type fakeStore struct {
	domain.Store

	responses      map[uuid.UUID][]domain.QuestionnaireItemResponse
	scalesByQuest  map[uuid.UUID][]domain.ConstructScale
	itemsByScale   map[uuid.UUID][]domain.Item
	compositesByCS map[uuid.UUID][]domain.CompositeConstructScale
	constructScore map[[2]uuid.UUID]domain.ConstructScore

	putConstructScores []domain.ConstructScore
	putCompositeScores []domain.CompositeScore
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		responses:      map[uuid.UUID][]domain.QuestionnaireItemResponse{},
		scalesByQuest:  map[uuid.UUID][]domain.ConstructScale{},
		itemsByScale:   map[uuid.UUID][]domain.Item{},
		compositesByCS: map[uuid.UUID][]domain.CompositeConstructScale{},
		constructScore: map[[2]uuid.UUID]domain.ConstructScore{},
	}
}

func (f *fakeStore) ListResponses(ctx context.Context, submissionID uuid.UUID) ([]domain.QuestionnaireItemResponse, error) {
	return f.responses[submissionID], nil
}

func (f *fakeStore) ListScalesForQuestionnaire(ctx context.Context, questionnaireID uuid.UUID) ([]domain.ConstructScale, error) {
	return f.scalesByQuest[questionnaireID], nil
}

func (f *fakeStore) ListItemsForConstruct(ctx context.Context, constructScaleID uuid.UUID) ([]domain.Item, error) {
	return f.itemsByScale[constructScaleID], nil
}

func (f *fakeStore) ListCompositesForConstruct(ctx context.Context, constructScaleID uuid.UUID) ([]domain.CompositeConstructScale, error) {
	return f.compositesByCS[constructScaleID], nil
}

func (f *fakeStore) GetConstructScore(ctx context.Context, submissionID, constructScaleID uuid.UUID) (*domain.ConstructScore, error) {
	s, ok := f.constructScore[[2]uuid.UUID{submissionID, constructScaleID}]
	if !ok {
		return nil, domain.NewNotFound("construct score not found", nil)
	}
	return &s, nil
}

func (f *fakeStore) PutConstructScore(ctx context.Context, score domain.ConstructScore) error {
	f.putConstructScores = append(f.putConstructScores, score)
	f.constructScore[[2]uuid.UUID{score.SubmissionID, score.ConstructScaleID}] = score
	return nil
}

func (f *fakeStore) PutCompositeScore(ctx context.Context, score domain.CompositeScore) error {
	f.putCompositeScores = append(f.putCompositeScores, score)
	return nil
}

func newItem(n int, scaleID uuid.UUID) domain.Item {
	return domain.Item{
		ID:               uuid.New(),
		ItemNumber:       n,
		ResponseType:     domain.ResponseLikert,
		ConstructScaleID: &scaleID,
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// TestComputeForSubmission_Scenario1 reproduces the worked example: items
// q1..q4 answered 4,5,4,null, equation sum(...)/count_available(...),
// minimum_items=3 ⇒ 13/3.
func TestComputeForSubmission_Scenario1(t *testing.T) {
	store := newFakeStore()
	scaleID := uuid.New()
	questID := uuid.New()
	submissionID := uuid.New()

	items := []domain.Item{newItem(1, scaleID), newItem(2, scaleID), newItem(3, scaleID), newItem(4, scaleID)}
	store.itemsByScale[scaleID] = items

	scale := domain.ConstructScale{
		ID:                   scaleID,
		Name:                 "C1",
		Direction:            domain.HigherBetter,
		Threshold:            ptr(3.0),
		MID:                  ptr(0.5),
		MinimumNumberOfItems: 3,
		Equation:             "sum({q1},{q2},{q3},{q4}) / count_available({q1},{q2},{q3},{q4})",
	}
	store.scalesByQuest[questID] = []domain.ConstructScale{scale}

	store.responses[submissionID] = []domain.QuestionnaireItemResponse{
		{SubmissionID: submissionID, ItemID: items[0].ID, ResponseValue: "4"},
		{SubmissionID: submissionID, ItemID: items[1].ID, ResponseValue: "5"},
		{SubmissionID: submissionID, ItemID: items[2].ID, ResponseValue: "4"},
	}

	computer := NewComputer(quietLogger(), NewCompiler(), nil)
	submission := domain.QuestionnaireSubmission{ID: submissionID, QuestionnaireID: questID}
	err := computer.ComputeForSubmission(context.Background(), store, submission)
	require.NoError(t, err)

	require.Len(t, store.putConstructScores, 1)
	got := store.putConstructScores[0]
	require.NotNil(t, got.Score)
	assert.InDelta(t, 13.0/3.0, *got.Score, 1e-9)
}

// TestComputeForSubmission_BelowMinimumItemsIsNull verifies the
// minimum_number_of_items override independent of what the expression
// itself would have produced.
func TestComputeForSubmission_BelowMinimumItemsIsNull(t *testing.T) {
	store := newFakeStore()
	scaleID := uuid.New()
	questID := uuid.New()
	submissionID := uuid.New()

	items := []domain.Item{newItem(1, scaleID), newItem(2, scaleID), newItem(3, scaleID)}
	store.itemsByScale[scaleID] = items
	scale := domain.ConstructScale{
		ID:                   scaleID,
		MinimumNumberOfItems: 3,
		Equation:             "sum({q1},{q2},{q3})",
	}
	store.scalesByQuest[questID] = []domain.ConstructScale{scale}
	store.responses[submissionID] = []domain.QuestionnaireItemResponse{
		{SubmissionID: submissionID, ItemID: items[0].ID, ResponseValue: "4"},
	}

	computer := NewComputer(quietLogger(), NewCompiler(), nil)
	submission := domain.QuestionnaireSubmission{ID: submissionID, QuestionnaireID: questID}
	err := computer.ComputeForSubmission(context.Background(), store, submission)
	require.NoError(t, err)

	require.Len(t, store.putConstructScores, 1)
	assert.Nil(t, store.putConstructScores[0].Score)
}

// TestComputeForSubmission_CompositeMeanOverNonNull reproduces Scenario 4:
// composite X = mean(C1, C2), C1=4.0, C2=null ⇒ 4.0.
func TestComputeForSubmission_CompositeMeanOverNonNull(t *testing.T) {
	store := newFakeStore()
	c1ID, c2ID := uuid.New(), uuid.New()
	questID := uuid.New()
	submissionID := uuid.New()
	compositeID := uuid.New()

	c1Items := []domain.Item{newItem(1, c1ID)}
	c2Items := []domain.Item{newItem(1, c2ID)}
	store.itemsByScale[c1ID] = c1Items
	store.itemsByScale[c2ID] = c2Items

	c1 := domain.ConstructScale{ID: c1ID, MinimumNumberOfItems: 1, Equation: "{q1}"}
	c2 := domain.ConstructScale{ID: c2ID, MinimumNumberOfItems: 1, Equation: "{q1}"}
	store.scalesByQuest[questID] = []domain.ConstructScale{c1, c2}

	store.responses[submissionID] = []domain.QuestionnaireItemResponse{
		{SubmissionID: submissionID, ItemID: c1Items[0].ID, ResponseValue: "4"},
		// c2's item left unanswered ⇒ null
	}

	composite := domain.CompositeConstructScale{
		ID:           compositeID,
		ConstructIDs: []uuid.UUID{c1ID, c2ID},
		Combiner:     domain.CombineMean,
	}
	store.compositesByCS[c1ID] = []domain.CompositeConstructScale{composite}
	store.compositesByCS[c2ID] = []domain.CompositeConstructScale{composite}

	computer := NewComputer(quietLogger(), NewCompiler(), nil)
	submission := domain.QuestionnaireSubmission{ID: submissionID, QuestionnaireID: questID}
	err := computer.ComputeForSubmission(context.Background(), store, submission)
	require.NoError(t, err)

	require.Len(t, store.putCompositeScores, 1)
	require.NotNil(t, store.putCompositeScores[0].Score)
	assert.Equal(t, 4.0, *store.putCompositeScores[0].Score)
}

func TestComputeForSubmission_IdempotentUnderRetry(t *testing.T) {
	store := newFakeStore()
	scaleID := uuid.New()
	questID := uuid.New()
	submissionID := uuid.New()
	item := newItem(1, scaleID)
	store.itemsByScale[scaleID] = []domain.Item{item}
	store.scalesByQuest[questID] = []domain.ConstructScale{{ID: scaleID, MinimumNumberOfItems: 1, Equation: "{q1} * 2"}}
	store.responses[submissionID] = []domain.QuestionnaireItemResponse{
		{SubmissionID: submissionID, ItemID: item.ID, ResponseValue: "3"},
	}

	computer := NewComputer(quietLogger(), NewCompiler(), nil)
	submission := domain.QuestionnaireSubmission{ID: submissionID, QuestionnaireID: questID}

	require.NoError(t, computer.ComputeForSubmission(context.Background(), store, submission))
	require.NoError(t, computer.ComputeForSubmission(context.Background(), store, submission))

	require.Len(t, store.putConstructScores, 2)
	assert.Equal(t, *store.putConstructScores[0].Score, *store.putConstructScores[1].Score)
}

func ptr(f float64) *float64 { return &f }
