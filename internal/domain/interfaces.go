package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the Domain Store Interface (component A): an abstract read-only
// capability set the core depends on. Implementations must provide
// repeatable-read semantics within a single computation and must enforce
// institution scoping (invariant 4: a patient may not be computed over or
// aggregated against any entity outside their institution).
type Store interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetInstitution(ctx context.Context, id uuid.UUID) (*Institution, error)
	GetDiagnosis(ctx context.Context, id uuid.UUID) (*Diagnosis, error)
	GetTreatment(ctx context.Context, id uuid.UUID) (*Treatment, error)

	// GetSubmission resolves a single submission by id, independent of its
	// patient; OnSubmissionWritten is handed only a submission id and uses
	// this to discover which patient and questionnaire it belongs to.
	GetSubmission(ctx context.Context, id uuid.UUID) (*QuestionnaireSubmission, error)

	// ListSubmissions returns a patient's submissions ordered newest first,
	// optionally clipped to a window.
	ListSubmissions(ctx context.Context, patientID uuid.UUID, window *SubmissionWindow) ([]QuestionnaireSubmission, error)
	ListResponses(ctx context.Context, submissionID uuid.UUID) ([]QuestionnaireItemResponse, error)
	GetItem(ctx context.Context, id uuid.UUID) (*Item, error)
	ListItemsForConstruct(ctx context.Context, constructScaleID uuid.UUID) ([]Item, error)

	GetConstructScale(ctx context.Context, id uuid.UUID) (*ConstructScale, error)
	ListScalesForQuestionnaire(ctx context.Context, questionnaireID uuid.UUID) ([]ConstructScale, error)
	GetCompositeScale(ctx context.Context, id uuid.UUID) (*CompositeConstructScale, error)
	ListCompositesForConstruct(ctx context.Context, constructScaleID uuid.UUID) ([]CompositeConstructScale, error)

	GetQuestionnaire(ctx context.Context, id uuid.UUID) (*Questionnaire, error)

	// ListCohortPatients resolves patients within the index patient's
	// institution matching the given predicates; the index patient is never
	// included (invariant 6).
	ListCohortPatients(ctx context.Context, institutionID, indexPatientID uuid.UUID, predicates CohortPredicates) ([]Patient, error)

	// Writers used by the Score Computer (component C); the Domain Store
	// Interface is read-only from the rest of the core's perspective, but
	// owns persistence of its own derived rows.
	PutConstructScore(ctx context.Context, score ConstructScore) error
	PutCompositeScore(ctx context.Context, score CompositeScore) error
	DeleteScoresForSubmission(ctx context.Context, submissionID uuid.UUID) error
	GetConstructScore(ctx context.Context, submissionID, constructScaleID uuid.UUID) (*ConstructScore, error)
	ListConstructScoresForPatient(ctx context.Context, patientID, constructScaleID uuid.UUID) ([]ConstructScore, error)

	// GetCompositeScore and ListCompositeScoresForPatient mirror the
	// construct-score readers above, for the composite rows
	// PutCompositeScore writes.
	GetCompositeScore(ctx context.Context, submissionID, compositeID uuid.UUID) (*CompositeScore, error)
	ListCompositeScoresForPatient(ctx context.Context, patientID, compositeID uuid.UUID) ([]CompositeScore, error)
}

// CacheTier is the tier that served a cache read, for observability.
type CacheTier string

const (
	TierMemory   CacheTier = "memory"
	TierBackend  CacheTier = "redis"
	TierComputed CacheTier = "computed"
)

// Cache is the component-G capability: memoizes B..F results under
// patient-scoped and population-scoped keys, single-flighting concurrent
// misses and degrading to pass-through on backend failure.
type Cache interface {
	// GetOrCompute resolves key, calling compute on a miss. Concurrent
	// misses for the same key coalesce to one compute call. ttl of zero
	// uses the cache's configured default for the key family.
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) ([]byte, error)) ([]byte, CacheTier, error)

	// InvalidatePatient flushes every key scoped to patientID.
	InvalidatePatient(ctx context.Context, patientID uuid.UUID) error

	// InvalidatePopulation flushes the entire population-aggregate family.
	InvalidatePopulation(ctx context.Context)
}
