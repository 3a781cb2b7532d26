// Package core wires the Domain Store Interface, the Score Computer, the
// Time-Interval Bucketer, the Cohort Aggregator, the Clinical Interpreter
// and the Cache & Invalidation layer into the three operations the rest of
// a deployment calls: GetPatientReview, GetCohortAggregate and
// OnSubmissionWritten. Grounded on the teacher's internal/service's
// top-level ClassifierService.ClassifyVariant shape: numbered steps,
// logrus.Fields at each boundary, with whichever tagged domain.CoreError a
// lower layer already produced returned unchanged.
package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/proanalytics/core/internal/cohort"
	"github.com/proanalytics/core/internal/domain"
	"github.com/proanalytics/core/internal/interpretation"
)

// SeriesPoint is one {t, v} sample of a construct, composite or item's
// historical curve, per spec.md §6's ConstructResult.series shape.
type SeriesPoint struct {
	Bucket int     `json:"t"`
	Value  float64 `json:"v"`
}

// Interpretation carries the Clinical Interpreter's verdict for a single
// construct, composite or item, flattened out of interpretation.CurrentResult
// and interpretation.ChangeResult.
type Interpretation struct {
	CurrentSignificant bool                   `json:"current_significant"`
	ChangeSignificant  bool                   `json:"change_significant"`
	ChangeDirection    domain.ChangeDirection `json:"change_direction"`
	ReasonUsed         domain.ReasonUsed      `json:"reason_used"`
}

func buildInterpretation(current, previous *float64, calib interpretation.Calibration, fallbackRatio float64) Interpretation {
	var out Interpretation
	if current != nil {
		cur := interpretation.ClassifyCurrent(*current, calib)
		out.CurrentSignificant = cur.Significant
		out.ReasonUsed = cur.ReasonUsed
	}
	change := interpretation.ClassifyChange(current, previous, calib, fallbackRatio)
	out.ChangeSignificant = change.Significant
	out.ChangeDirection = change.Direction
	if out.ReasonUsed == "" {
		out.ReasonUsed = change.ReasonUsed
	}
	return out
}

// ConstructResult is one construct scale's view within a PatientReview.
type ConstructResult struct {
	ConstructID    uuid.UUID      `json:"construct_id"`
	Name           string         `json:"name"`
	Current        *float64       `json:"current"`
	Previous       *float64       `json:"previous"`
	Series         []SeriesPoint  `json:"series"`
	Interpretation Interpretation `json:"interpretation"`
	// NoAnchor is set when the patient's FilterContext anchor could not be
	// resolved; Series is empty and Current/Previous still reflect the raw
	// stored scores (spec.md §7's NoAnchor edge case only withholds the
	// bucket-dependent series, not the scores themselves).
	NoAnchor bool `json:"no_anchor,omitempty"`
}

// CompositeResult is one composite construct scale's view within a PatientReview.
type CompositeResult struct {
	CompositeID    uuid.UUID      `json:"composite_id"`
	Name           string         `json:"name"`
	Current        *float64       `json:"current"`
	Previous       *float64       `json:"previous"`
	Interpretation Interpretation `json:"interpretation"`
}

// ItemResult is a single questionnaire item's view within a PatientReview,
// the per-item historical series supplemented feature.
type ItemResult struct {
	ItemID         uuid.UUID      `json:"item_id"`
	Current        *float64       `json:"current"`
	Previous       *float64       `json:"previous"`
	Series         []SeriesPoint  `json:"series"`
	Interpretation Interpretation `json:"interpretation"`
	NoAnchor       bool           `json:"no_anchor,omitempty"`
}

// QuestionnaireOverview summarizes one questionnaire a patient has
// submitted at least once.
type QuestionnaireOverview struct {
	QuestionnaireID uuid.UUID `json:"questionnaire_id"`
	DisplayName     string    `json:"display_name"`
	SubmissionCount int       `json:"submission_count"`
	LastSubmittedAt time.Time `json:"last_submitted_at"`
}

// PatientSummary is the demographic header of a PatientReview.
type PatientSummary struct {
	PatientID     uuid.UUID `json:"patient_id"`
	InstitutionID uuid.UUID `json:"institution_id"`
	Age           int       `json:"age"`
	Gender        string    `json:"gender"`
}

// PatientReview is GetPatientReview's return value, per spec.md §6.
type PatientReview struct {
	PatientSummary       PatientSummary          `json:"patient_summary"`
	QuestionnairesOverview []QuestionnaireOverview `json:"questionnaires_overview"`
	ConstructScores      []ConstructResult       `json:"construct_scores"`
	CompositeScores      []CompositeResult       `json:"composite_scores"`
	Items                []ItemResult            `json:"items"`
}

// BucketResult is one entry of GetCohortAggregate's [BucketStat] return
// value, naming the bucket index a cohort.BucketStat was computed at.
type BucketResult struct {
	Bucket int                `json:"bucket"`
	Stat   cohort.BucketStat `json:"stat"`
}
