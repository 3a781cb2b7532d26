package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proanalytics/core/internal/domain"
)

func setupMockSink(t *testing.T) (*PostgresSink, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectPing()
	sink, err := NewPostgresSink(db)
	require.NoError(t, err)
	return sink, mock
}

func TestRecordEvaluationError_InsertsRow(t *testing.T) {
	sink, mock := setupMockSink(t)
	defer sink.Close()

	submissionID, constructID := uuid.New(), uuid.New()
	cause := domain.NewEvaluationError("division by zero", nil)

	mock.ExpectExec("INSERT INTO evaluation_error_events").
		WithArgs(submissionID, constructID, string(domain.KindEvaluationError), cause.Error(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sink.RecordEvaluationError(context.Background(), submissionID, constructID, cause)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordEvaluationError_WriteFailureDoesNotPanic(t *testing.T) {
	sink, mock := setupMockSink(t)
	defer sink.Close()

	submissionID, constructID := uuid.New(), uuid.New()
	mock.ExpectExec("INSERT INTO evaluation_error_events").
		WillReturnError(errors.New("connection reset"))

	assert.NotPanics(t, func() {
		sink.RecordEvaluationError(context.Background(), submissionID, constructID, errors.New("boom"))
	})
}

func TestListRecentEvaluationErrors(t *testing.T) {
	sink, mock := setupMockSink(t)
	defer sink.Close()

	submissionID, constructID := uuid.New(), uuid.New()
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"submission_id", "construct_scale_id", "error_kind", "message", "occurred_at"}).
		AddRow(submissionID.String(), constructID.String(), "EVALUATION_ERROR", "division by zero", now)

	mock.ExpectQuery("SELECT submission_id, construct_scale_id, error_kind, message, occurred_at").
		WithArgs(10).
		WillReturnRows(rows)

	events, err := sink.ListRecentEvaluationErrors(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, submissionID, events[0].SubmissionID)
	assert.Equal(t, "EVALUATION_ERROR", events[0].ErrorKind)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordCacheDegradation_InsertsRow(t *testing.T) {
	sink, mock := setupMockSink(t)
	defer sink.Close()

	mock.ExpectExec("INSERT INTO cache_degradation_events").
		WithArgs(uint64(5), uint64(2), uint64(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sink.RecordCacheDegradation(context.Background(), 5, 2, 1)

	require.NoError(t, mock.ExpectationsWereMet())
}
