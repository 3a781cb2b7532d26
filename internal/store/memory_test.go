package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proanalytics/core/internal/domain"
)

func TestMemoryStore_PatientNotFound(t *testing.T) {
	m := NewMemoryStore()
	_, err := m.GetPatient(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}

func TestMemoryStore_ListCohortPatients_ExcludesIndexAndScopesInstitution(t *testing.T) {
	m := NewMemoryStore()
	institution := uuid.New()
	other := uuid.New()
	index := uuid.New()
	cohort := uuid.New()
	outside := uuid.New()

	m.Patients[index] = domain.Patient{ID: index, InstitutionID: institution, Gender: "F", BirthDate: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)}
	m.Patients[cohort] = domain.Patient{ID: cohort, InstitutionID: institution, Gender: "F", BirthDate: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)}
	m.Patients[outside] = domain.Patient{ID: outside, InstitutionID: other, Gender: "F", BirthDate: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)}

	patients, err := m.ListCohortPatients(context.Background(), institution, index, domain.CohortPredicates{})
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, cohort, patients[0].ID)
}

func TestMemoryStore_ListCohortPatients_FiltersByDiagnosisCategory(t *testing.T) {
	m := NewMemoryStore()
	institution := uuid.New()
	index := uuid.New()
	matching := uuid.New()
	nonMatching := uuid.New()

	m.Patients[index] = domain.Patient{ID: index, InstitutionID: institution}
	m.Patients[matching] = domain.Patient{ID: matching, InstitutionID: institution}
	m.Patients[nonMatching] = domain.Patient{ID: nonMatching, InstitutionID: institution}

	diagMatch := uuid.New()
	m.Diagnoses[diagMatch] = domain.Diagnosis{ID: diagMatch, PatientID: matching, Category: "ONCOLOGY"}
	diagOther := uuid.New()
	m.Diagnoses[diagOther] = domain.Diagnosis{ID: diagOther, PatientID: nonMatching, Category: "CARDIOLOGY"}

	category := "ONCOLOGY"
	patients, err := m.ListCohortPatients(context.Background(), institution, index, domain.CohortPredicates{DiagnosisCategory: &category})
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, matching, patients[0].ID)
}

func TestMemoryStore_PutAndGetConstructScore_Upserts(t *testing.T) {
	m := NewMemoryStore()
	submission := uuid.New()
	construct := uuid.New()
	first := 10.0
	require.NoError(t, m.PutConstructScore(context.Background(), domain.ConstructScore{SubmissionID: submission, ConstructScaleID: construct, Score: &first}))

	second := 20.0
	require.NoError(t, m.PutConstructScore(context.Background(), domain.ConstructScore{SubmissionID: submission, ConstructScaleID: construct, Score: &second}))

	got, err := m.GetConstructScore(context.Background(), submission, construct)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, *got.Score, 0.0001)
}

func TestMemoryStore_DeleteScoresForSubmission_DoesNotAffectOtherSubmissions(t *testing.T) {
	m := NewMemoryStore()
	submission1 := uuid.New()
	submission2 := uuid.New()
	construct := uuid.New()
	score := 5.0
	require.NoError(t, m.PutConstructScore(context.Background(), domain.ConstructScore{SubmissionID: submission1, ConstructScaleID: construct, Score: &score}))
	require.NoError(t, m.PutConstructScore(context.Background(), domain.ConstructScore{SubmissionID: submission2, ConstructScaleID: construct, Score: &score}))

	require.NoError(t, m.DeleteScoresForSubmission(context.Background(), submission1))

	_, err := m.GetConstructScore(context.Background(), submission1, construct)
	require.Error(t, err)
	_, err = m.GetConstructScore(context.Background(), submission2, construct)
	require.NoError(t, err)
}

func TestMemoryStore_ListSubmissions_RespectsMaxIntervals(t *testing.T) {
	m := NewMemoryStore()
	patient := uuid.New()
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		id := uuid.New()
		m.Submissions[id] = domain.QuestionnaireSubmission{ID: id, PatientID: patient, SubmittedAt: now.Add(time.Duration(i) * time.Hour)}
	}

	max := 2
	subs, err := m.ListSubmissions(context.Background(), patient, &domain.SubmissionWindow{MaxIntervals: &max})
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.True(t, subs[0].SubmittedAt.After(subs[1].SubmittedAt))
}
