package domain

import "github.com/google/uuid"

// Anchor selects the entity a FilterContext's bucket anchor date derives from.
type Anchor struct {
	Kind  AnchorKind `json:"kind"`
	RefID *uuid.UUID `json:"ref_id,omitempty"` // diagnosis or treatment id; nil for REGISTRATION
}

// SubmissionWindow clips the submission universe considered for a review.
type SubmissionWindow struct {
	UpperBoundDate *int64 `json:"upper_bound_date,omitempty"` // unix seconds, inclusive
	MaxIntervals   *int   `json:"max_intervals,omitempty"`
}

// FilterContext parameterizes every bucket-dependent computation.
type FilterContext struct {
	Anchor             Anchor           `json:"anchor"`
	Granularity        Granularity      `json:"granularity"`
	SubmissionWindow    SubmissionWindow `json:"submission_window"`
	ItemFilter         []uuid.UUID      `json:"item_filter,omitempty"`
	QuestionnaireFilter []uuid.UUID     `json:"questionnaire_filter,omitempty"`
}

// CohortPredicates narrow GetCohortAggregate's patient population.
type CohortPredicates struct {
	Gender           *string  `json:"gender,omitempty"`
	DiagnosisCategory *string `json:"diagnosis_category,omitempty"`
	TreatmentType    *string  `json:"treatment_type,omitempty"`
	MinAge           *int     `json:"min_age,omitempty"`
	MaxAge           *int     `json:"max_age,omitempty"`
}

// AggregationTarget is either a ConstructScale or an Item; exactly one is set.
type AggregationTarget struct {
	ConstructScaleID *uuid.UUID `json:"construct_scale_id,omitempty"`
	ItemID           *uuid.UUID `json:"item_id,omitempty"`
}
