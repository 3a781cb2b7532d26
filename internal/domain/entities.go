package domain

import (
	"time"

	"github.com/google/uuid"
)

// Institution is the tenant boundary; every Patient belongs to exactly one.
type Institution struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Patient carries identity, demographics and an institution reference.
// PII fields are expected to already be at rest encrypted by the store; the
// core only ever sees the decrypted snapshot handed to it.
type Patient struct {
	ID            uuid.UUID `json:"id"`
	InstitutionID uuid.UUID `json:"institution_id"`
	BirthDate     time.Time `json:"birth_date"`
	Gender        string    `json:"gender"`
	RegisteredAt  time.Time `json:"registered_at"`
}

// AgeAt returns the Patient's age in whole years at the given instant.
func (p Patient) AgeAt(t time.Time) int {
	age := t.Year() - p.BirthDate.Year()
	if t.Month() < p.BirthDate.Month() || (t.Month() == p.BirthDate.Month() && t.Day() < p.BirthDate.Day()) {
		age--
	}
	return age
}

// Diagnosis belongs to a Patient.
type Diagnosis struct {
	ID        uuid.UUID `json:"id"`
	PatientID uuid.UUID `json:"patient_id"`
	Category  string    `json:"category"`
	Date      time.Time `json:"date"`
}

// Treatment belongs to a Diagnosis.
type Treatment struct {
	ID          uuid.UUID `json:"id"`
	DiagnosisID uuid.UUID `json:"diagnosis_id"`
	Types       []string  `json:"types"`
	StartDate   time.Time `json:"start_date"`
}

// Questionnaire is an ordered collection of Items.
type Questionnaire struct {
	ID          uuid.UUID   `json:"id"`
	DisplayName string      `json:"display_name"`
	ItemIDs     []uuid.UUID `json:"item_ids"`
}

// LikertScale enumerates integer-valued option text pairs.
type LikertScale struct {
	ID      uuid.UUID      `json:"id"`
	Options []LikertOption `json:"options"`
}

type LikertOption struct {
	OptionValue int    `json:"option_value"`
	Text        string `json:"text"`
}

// RangeScale enumerates the bounds a Range response may take.
type RangeScale struct {
	ID  uuid.UUID `json:"id"`
	Min float64   `json:"min"`
	Max float64   `json:"max"`
}

// Item is a single questionnaire question.
type Item struct {
	ID               uuid.UUID    `json:"id"`
	QuestionnaireID  uuid.UUID    `json:"questionnaire_id"`
	ItemNumber       int          `json:"item_number"` // 1-based position within its ConstructScale, used as {qN}
	ResponseType     ResponseType `json:"response_type"`
	LikertScaleID    *uuid.UUID   `json:"likert_scale_id,omitempty"`
	RangeScaleID     *uuid.UUID   `json:"range_scale_id,omitempty"`
	ConstructScaleID *uuid.UUID   `json:"construct_scale_id,omitempty"`
	Direction        Direction    `json:"direction"`
	NormativeMean    *float64     `json:"normative_mean,omitempty"`
	NormativeSD      *float64     `json:"normative_sd,omitempty"`
	Threshold        *float64     `json:"threshold,omitempty"`
	MID              *float64     `json:"mid,omitempty"`
	// ItemMissingValue resolves Open Question 1: when set, a null/unanswered
	// response is substituted with this value instead of being dropped.
	ItemMissingValue *float64 `json:"item_missing_value,omitempty"`
}

// ConstructScale is a latent-trait scale computed from an equation over Items.
type ConstructScale struct {
	ID                   uuid.UUID `json:"id"`
	Name                 string    `json:"name"`
	Direction            Direction `json:"direction"`
	NormativeMean        *float64  `json:"normative_mean,omitempty"`
	NormativeSD          *float64  `json:"normative_sd,omitempty"`
	Threshold            *float64  `json:"threshold,omitempty"`
	MID                  *float64  `json:"mid,omitempty"`
	MinimumNumberOfItems int       `json:"minimum_number_of_items"`
	Equation             string    `json:"equation"`
}

// CompositeConstructScale combines two or more ConstructScales.
type CompositeConstructScale struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	ConstructIDs []uuid.UUID `json:"construct_ids"`
	Combiner     Combiner    `json:"combiner"`
}

// PatientQuestionnaire assigns a Questionnaire to a Patient.
type PatientQuestionnaire struct {
	ID              uuid.UUID `json:"id"`
	PatientID       uuid.UUID `json:"patient_id"`
	QuestionnaireID uuid.UUID `json:"questionnaire_id"`
}

// QuestionnaireSubmission is a single completion event.
type QuestionnaireSubmission struct {
	ID                     uuid.UUID `json:"id"`
	PatientID              uuid.UUID `json:"patient_id"`
	PatientQuestionnaireID uuid.UUID `json:"patient_questionnaire_id"`
	QuestionnaireID        uuid.UUID `json:"questionnaire_id"`
	SubmittedAt            time.Time `json:"submitted_at"`
}

// QuestionnaireItemResponse is a single answer within a Submission.
type QuestionnaireItemResponse struct {
	SubmissionID  uuid.UUID `json:"submission_id"`
	ItemID        uuid.UUID `json:"item_id"`
	ResponseValue string    `json:"response_value"`
}

// ConstructScore is a computed row: Submission x ConstructScale.
type ConstructScore struct {
	SubmissionID     uuid.UUID `json:"submission_id"`
	ConstructScaleID uuid.UUID `json:"construct_scale_id"`
	Score            *float64  `json:"score"` // nil iff below minimum_number_of_items
	ComputedAt       time.Time `json:"computed_at"`
}

// CompositeScore is a computed row: Submission x CompositeConstructScale.
type CompositeScore struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	CompositeID  uuid.UUID `json:"composite_id"`
	Score        *float64  `json:"score"`
	ComputedAt   time.Time `json:"computed_at"`
}
