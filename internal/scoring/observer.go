package scoring

import (
	"context"

	"github.com/google/uuid"
)

// EvaluationObserver receives evaluation-error events so the caller can
// route them to an observability sink (internal/observability) without
// internal/scoring importing that package directly.
type EvaluationObserver interface {
	RecordEvaluationError(ctx context.Context, submissionID, constructScaleID uuid.UUID, cause error)
}

// NoopObserver discards every event; used where no sink is configured.
type NoopObserver struct{}

func (NoopObserver) RecordEvaluationError(context.Context, uuid.UUID, uuid.UUID, error) {}
