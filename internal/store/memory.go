package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/proanalytics/core/internal/domain"
)

// MemoryStore is an in-memory domain.Store fixture: the demonstration
// binary seeds one directly rather than requiring a live database, and it
// doubles as a lightweight integration-test double for internal/core. Not
// grounded on a single teacher file (the teacher has no in-memory store —
// its tests build narrow per-method fakes instead, as internal/scoring and
// internal/cohort's own tests do); this is the one store where a from-
// scratch implementation is appropriate, since nothing in the pack models
// a full in-memory multi-entity fixture store.
type MemoryStore struct {
	mu sync.RWMutex

	Institutions  map[uuid.UUID]domain.Institution
	Patients      map[uuid.UUID]domain.Patient
	Diagnoses     map[uuid.UUID]domain.Diagnosis
	Treatments    map[uuid.UUID]domain.Treatment
	Questionnaires map[uuid.UUID]domain.Questionnaire
	Items         map[uuid.UUID]domain.Item
	ConstructScales map[uuid.UUID]domain.ConstructScale
	Composites    map[uuid.UUID]domain.CompositeConstructScale
	Submissions   map[uuid.UUID]domain.QuestionnaireSubmission
	Responses     map[uuid.UUID][]domain.QuestionnaireItemResponse // by submission id
	ConstructScores map[string]domain.ConstructScore               // key: submission:construct
	CompositeScores map[string]domain.CompositeScore               // key: submission:composite
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Institutions:    map[uuid.UUID]domain.Institution{},
		Patients:        map[uuid.UUID]domain.Patient{},
		Diagnoses:       map[uuid.UUID]domain.Diagnosis{},
		Treatments:      map[uuid.UUID]domain.Treatment{},
		Questionnaires:  map[uuid.UUID]domain.Questionnaire{},
		Items:           map[uuid.UUID]domain.Item{},
		ConstructScales: map[uuid.UUID]domain.ConstructScale{},
		Composites:      map[uuid.UUID]domain.CompositeConstructScale{},
		Submissions:     map[uuid.UUID]domain.QuestionnaireSubmission{},
		Responses:       map[uuid.UUID][]domain.QuestionnaireItemResponse{},
		ConstructScores: map[string]domain.ConstructScore{},
		CompositeScores: map[string]domain.CompositeScore{},
	}
}

func scoreKey(a, b uuid.UUID) string { return a.String() + ":" + b.String() }

func (m *MemoryStore) GetPatient(ctx context.Context, id uuid.UUID) (*domain.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.Patients[id]
	if !ok {
		return nil, domain.NewNotFound("patient not found", nil)
	}
	return &p, nil
}

func (m *MemoryStore) GetInstitution(ctx context.Context, id uuid.UUID) (*domain.Institution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.Institutions[id]
	if !ok {
		return nil, domain.NewNotFound("institution not found", nil)
	}
	return &inst, nil
}

func (m *MemoryStore) GetDiagnosis(ctx context.Context, id uuid.UUID) (*domain.Diagnosis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.Diagnoses[id]
	if !ok {
		return nil, domain.NewNotFound("diagnosis not found", nil)
	}
	return &d, nil
}

func (m *MemoryStore) GetTreatment(ctx context.Context, id uuid.UUID) (*domain.Treatment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.Treatments[id]
	if !ok {
		return nil, domain.NewNotFound("treatment not found", nil)
	}
	return &t, nil
}

func (m *MemoryStore) GetSubmission(ctx context.Context, id uuid.UUID) (*domain.QuestionnaireSubmission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.Submissions[id]
	if !ok {
		return nil, domain.NewNotFound("submission not found", nil)
	}
	return &sub, nil
}

func (m *MemoryStore) ListSubmissions(ctx context.Context, patientID uuid.UUID, window *domain.SubmissionWindow) ([]domain.QuestionnaireSubmission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.QuestionnaireSubmission
	for _, sub := range m.Submissions {
		if sub.PatientID != patientID {
			continue
		}
		if window != nil && window.UpperBoundDate != nil && sub.SubmittedAt.Unix() > *window.UpperBoundDate {
			continue
		}
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	if window != nil && window.MaxIntervals != nil && len(out) > *window.MaxIntervals {
		out = out[:*window.MaxIntervals]
	}
	return out, nil
}

func (m *MemoryStore) ListResponses(ctx context.Context, submissionID uuid.UUID) ([]domain.QuestionnaireItemResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.QuestionnaireItemResponse(nil), m.Responses[submissionID]...), nil
}

func (m *MemoryStore) GetItem(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.Items[id]
	if !ok {
		return nil, domain.NewNotFound("item not found", nil)
	}
	return &it, nil
}

func (m *MemoryStore) ListItemsForConstruct(ctx context.Context, constructScaleID uuid.UUID) ([]domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Item
	for _, it := range m.Items {
		if it.ConstructScaleID != nil && *it.ConstructScaleID == constructScaleID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemNumber < out[j].ItemNumber })
	return out, nil
}

func (m *MemoryStore) GetConstructScale(ctx context.Context, id uuid.UUID) (*domain.ConstructScale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cs, ok := m.ConstructScales[id]
	if !ok {
		return nil, domain.NewNotFound("construct scale not found", nil)
	}
	return &cs, nil
}

func (m *MemoryStore) ListScalesForQuestionnaire(ctx context.Context, questionnaireID uuid.UUID) ([]domain.ConstructScale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[uuid.UUID]bool{}
	var out []domain.ConstructScale
	for _, it := range m.Items {
		if it.QuestionnaireID != questionnaireID || it.ConstructScaleID == nil || seen[*it.ConstructScaleID] {
			continue
		}
		cs, ok := m.ConstructScales[*it.ConstructScaleID]
		if !ok {
			continue
		}
		seen[*it.ConstructScaleID] = true
		out = append(out, cs)
	}
	return out, nil
}

func (m *MemoryStore) GetCompositeScale(ctx context.Context, id uuid.UUID) (*domain.CompositeConstructScale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cc, ok := m.Composites[id]
	if !ok {
		return nil, domain.NewNotFound("composite construct scale not found", nil)
	}
	return &cc, nil
}

func (m *MemoryStore) ListCompositesForConstruct(ctx context.Context, constructScaleID uuid.UUID) ([]domain.CompositeConstructScale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.CompositeConstructScale
	for _, cc := range m.Composites {
		for _, id := range cc.ConstructIDs {
			if id == constructScaleID {
				out = append(out, cc)
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) GetQuestionnaire(ctx context.Context, id uuid.UUID) (*domain.Questionnaire, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.Questionnaires[id]
	if !ok {
		return nil, domain.NewNotFound("questionnaire not found", nil)
	}
	return &q, nil
}

func (m *MemoryStore) ListCohortPatients(ctx context.Context, institutionID, indexPatientID uuid.UUID, predicates domain.CohortPredicates) ([]domain.Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Patient
	for _, p := range m.Patients {
		if p.InstitutionID != institutionID || p.ID == indexPatientID {
			continue
		}
		if predicates.Gender != nil && p.Gender != *predicates.Gender {
			continue
		}
		if predicates.MinAge != nil && p.AgeAt(p.RegisteredAt) < *predicates.MinAge {
			continue
		}
		if predicates.MaxAge != nil && p.AgeAt(p.RegisteredAt) > *predicates.MaxAge {
			continue
		}
		if predicates.DiagnosisCategory != nil && !m.patientHasDiagnosisCategory(p.ID, *predicates.DiagnosisCategory) {
			continue
		}
		if predicates.TreatmentType != nil && !m.patientHasTreatmentType(p.ID, *predicates.TreatmentType) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// patientHasDiagnosisCategory and patientHasTreatmentType assume the caller
// already holds m.mu for reading.
func (m *MemoryStore) patientHasDiagnosisCategory(patientID uuid.UUID, category string) bool {
	for _, d := range m.Diagnoses {
		if d.PatientID == patientID && d.Category == category {
			return true
		}
	}
	return false
}

func (m *MemoryStore) patientHasTreatmentType(patientID uuid.UUID, treatmentType string) bool {
	for _, d := range m.Diagnoses {
		if d.PatientID != patientID {
			continue
		}
		for _, t := range m.Treatments {
			if t.DiagnosisID != d.ID {
				continue
			}
			for _, ty := range t.Types {
				if ty == treatmentType {
					return true
				}
			}
		}
	}
	return false
}

func (m *MemoryStore) PutConstructScore(ctx context.Context, score domain.ConstructScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConstructScores[scoreKey(score.SubmissionID, score.ConstructScaleID)] = score
	return nil
}

func (m *MemoryStore) PutCompositeScore(ctx context.Context, score domain.CompositeScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CompositeScores[scoreKey(score.SubmissionID, score.CompositeID)] = score
	return nil
}

func (m *MemoryStore) DeleteScoresForSubmission(ctx context.Context, submissionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := submissionID.String() + ":"
	for k := range m.ConstructScores {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(m.ConstructScores, k)
		}
	}
	for k := range m.CompositeScores {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(m.CompositeScores, k)
		}
	}
	return nil
}

func (m *MemoryStore) GetConstructScore(ctx context.Context, submissionID, constructScaleID uuid.UUID) (*domain.ConstructScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cs, ok := m.ConstructScores[scoreKey(submissionID, constructScaleID)]
	if !ok {
		return nil, domain.NewNotFound("construct score not found", nil)
	}
	return &cs, nil
}

func (m *MemoryStore) GetCompositeScore(ctx context.Context, submissionID, compositeID uuid.UUID) (*domain.CompositeScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cs, ok := m.CompositeScores[scoreKey(submissionID, compositeID)]
	if !ok {
		return nil, domain.NewNotFound("composite score not found", nil)
	}
	return &cs, nil
}

func (m *MemoryStore) ListCompositeScoresForPatient(ctx context.Context, patientID, compositeID uuid.UUID) ([]domain.CompositeScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.CompositeScore
	for _, sub := range m.Submissions {
		if sub.PatientID != patientID {
			continue
		}
		if cs, ok := m.CompositeScores[scoreKey(sub.ID, compositeID)]; ok {
			out = append(out, cs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ComputedAt.After(out[j].ComputedAt) })
	return out, nil
}

func (m *MemoryStore) ListConstructScoresForPatient(ctx context.Context, patientID, constructScaleID uuid.UUID) ([]domain.ConstructScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.ConstructScore
	for _, sub := range m.Submissions {
		if sub.PatientID != patientID {
			continue
		}
		if cs, ok := m.ConstructScores[scoreKey(sub.ID, constructScaleID)]; ok {
			out = append(out, cs)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ComputedAt.After(out[j].ComputedAt) })
	return out, nil
}
