// Package observability is the audit sink for scoring-evaluation failures
// and cache-degradation events: a narrow, write-only record of things an
// operator needs to see but that never change what GetPatientReview or
// GetCohortAggregate return.
//
// PostgresSink expects its two tables to already exist (migrations are out
// of this core's scope, same assumption the teacher's PostgresStore makes):
//
//	CREATE TABLE evaluation_error_events (
//		id BIGSERIAL PRIMARY KEY, submission_id UUID NOT NULL,
//		construct_scale_id UUID NOT NULL, error_kind TEXT NOT NULL,
//		message TEXT NOT NULL, occurred_at TIMESTAMPTZ NOT NULL);
//	CREATE TABLE cache_degradation_events (
//		id BIGSERIAL PRIMARY KEY, memory_hits BIGINT NOT NULL,
//		backend_hits BIGINT NOT NULL, computed_hits BIGINT NOT NULL,
//		occurred_at TIMESTAMPTZ NOT NULL);
package observability

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/proanalytics/core/internal/domain"
)

// PostgresSink implements scoring.EvaluationObserver (by structural typing,
// not import — internal/scoring never imports this package) plus a
// cache-degradation recorder, grounded on the teacher's
// internal/feedback/postgres.go: plain database/sql + lib/pq, no ORM,
// upsert-free append-only INSERTs. The schema is expected to pre-exist,
// same assumption NewPostgresStore makes.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) (*PostgresSink, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping observability database: %w", err)
	}
	return &PostgresSink{db: db}, nil
}

// NewPostgresSinkFromURL opens a dedicated connection pool for observability
// writes, separate from the Domain Store Interface's pool, so a burst of
// audit writes can never starve the read path's connections.
func NewPostgresSinkFromURL(databaseURL string) (*PostgresSink, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open observability database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	sink, err := NewPostgresSink(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return sink, nil
}

// RecordEvaluationError implements scoring.EvaluationObserver: an equation
// compile or evaluate failure during ComputeForSubmission, logged so an
// analyst can see which construct scale's equation needs attention without
// the submission's other, healthy scores being blocked.
func (s *PostgresSink) RecordEvaluationError(ctx context.Context, submissionID, constructScaleID uuid.UUID, cause error) {
	kind, _ := domain.KindOf(cause)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evaluation_error_events (submission_id, construct_scale_id, error_kind, message, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`, submissionID, constructScaleID, string(kind), cause.Error(), time.Now().UTC())
	if err != nil {
		// The audit trail is best-effort: a write failure here must never
		// propagate back into the scoring path that triggered it.
		return
	}
}

// RecordCacheDegradation logs a tier-serving snapshot from
// internal/cache.DegradationStats, letting an operator correlate a
// computed-tier spike with a Redis outage window.
func (s *PostgresSink) RecordCacheDegradation(ctx context.Context, memory, backend, computed uint64) {
	_, _ = s.db.ExecContext(ctx, `
		INSERT INTO cache_degradation_events (memory_hits, backend_hits, computed_hits, occurred_at)
		VALUES ($1, $2, $3, $4)
	`, memory, backend, computed, time.Now().UTC())
}

// ListRecentEvaluationErrors supports a diagnostics view: the N most recent
// evaluation failures across all patients.
func (s *PostgresSink) ListRecentEvaluationErrors(ctx context.Context, limit int) ([]EvaluationErrorEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT submission_id, construct_scale_id, error_kind, message, occurred_at
		FROM evaluation_error_events
		ORDER BY occurred_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluation error events: %w", err)
	}
	defer rows.Close()

	var events []EvaluationErrorEvent
	for rows.Next() {
		var e EvaluationErrorEvent
		if err := rows.Scan(&e.SubmissionID, &e.ConstructScaleID, &e.ErrorKind, &e.Message, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation error event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// EvaluationErrorEvent is one row of evaluation_error_events.
type EvaluationErrorEvent struct {
	SubmissionID     uuid.UUID
	ConstructScaleID uuid.UUID
	ErrorKind        string
	Message          string
	OccurredAt       time.Time
}

func (s *PostgresSink) Close() error {
	return s.db.Close()
}
