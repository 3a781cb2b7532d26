package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/proanalytics/core/internal/domain"
)

// schemaPostgresTest provisions the subset of the Domain Store Interface's
// tables these tests exercise, using native array columns where
// PostgresStore expects them (see postgres.go's package doc). A real
// deployment provisions the full schema out of band; this is just enough
// for the container to answer the queries below.
const schemaPostgresTest = `
CREATE TABLE institutions (id UUID PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE patients (
	id UUID PRIMARY KEY, institution_id UUID NOT NULL, birth_date TIMESTAMPTZ NOT NULL,
	gender TEXT NOT NULL, registered_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE diagnoses (id UUID PRIMARY KEY, patient_id UUID NOT NULL, category TEXT NOT NULL, date TIMESTAMPTZ NOT NULL);
CREATE TABLE treatments (id UUID PRIMARY KEY, diagnosis_id UUID NOT NULL, types TEXT[] NOT NULL, start_date TIMESTAMPTZ NOT NULL);
CREATE TABLE questionnaires (id UUID PRIMARY KEY, display_name TEXT NOT NULL, item_ids UUID[] NOT NULL DEFAULT '{}');
CREATE TABLE construct_scales (
	id UUID PRIMARY KEY, name TEXT NOT NULL, direction TEXT NOT NULL, normative_mean DOUBLE PRECISION,
	normative_sd DOUBLE PRECISION, threshold DOUBLE PRECISION, mid DOUBLE PRECISION,
	minimum_number_of_items INTEGER NOT NULL, equation TEXT NOT NULL
);
CREATE TABLE composite_construct_scales (id UUID PRIMARY KEY, name TEXT NOT NULL, construct_ids UUID[] NOT NULL, combiner TEXT NOT NULL);
CREATE TABLE questionnaire_submissions (
	id UUID PRIMARY KEY, patient_id UUID NOT NULL, patient_questionnaire_id UUID NOT NULL,
	questionnaire_id UUID NOT NULL, submitted_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE construct_scores (
	submission_id UUID NOT NULL, construct_scale_id UUID NOT NULL, score DOUBLE PRECISION,
	computed_at TIMESTAMPTZ NOT NULL, PRIMARY KEY (submission_id, construct_scale_id)
);
CREATE TABLE composite_scores (
	submission_id UUID NOT NULL, composite_id UUID NOT NULL, score DOUBLE PRECISION,
	computed_at TIMESTAMPTZ NOT NULL, PRIMARY KEY (submission_id, composite_id)
);
`

// startPostgresStore brings up a disposable Postgres container via
// testcontainers-go, mirroring the teacher's preference for exercising the
// real driver rather than a mock at the repository layer. Skips when Docker
// isn't reachable from the test environment.
func startPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("analyticscore"),
		postgres.WithUsername("analyticscore"),
		postgres.WithPassword("analyticscore"),
	)
	if err != nil {
		t.Skipf("docker unavailable, skipping postgres integration test: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, schemaPostgresTest)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewPostgresStore(pool, logger)
}

func TestPostgresStore_PutAndGetConstructScore(t *testing.T) {
	s := startPostgresStore(t)
	ctx := context.Background()

	submission := uuid.New()
	construct := uuid.New()
	score := 42.5
	require.NoError(t, s.PutConstructScore(ctx, domain.ConstructScore{
		SubmissionID: submission, ConstructScaleID: construct, Score: &score, ComputedAt: time.Now().UTC(),
	}))

	got, err := s.GetConstructScore(ctx, submission, construct)
	require.NoError(t, err)
	assert.InDelta(t, 42.5, *got.Score, 0.0001)
}

func TestPostgresStore_ListCompositesForConstruct_UsesArrayContainment(t *testing.T) {
	s := startPostgresStore(t)
	ctx := context.Background()

	construct := uuid.New()
	composite := uuid.New()
	_, err := s.pool.Exec(ctx, `INSERT INTO composite_construct_scales (id, name, construct_ids, combiner) VALUES ($1, $2, $3, $4)`,
		composite, "Overall", []uuid.UUID{construct, uuid.New()}, "MEAN")
	require.NoError(t, err)

	composites, err := s.ListCompositesForConstruct(ctx, construct)
	require.NoError(t, err)
	require.Len(t, composites, 1)
	assert.Equal(t, composite, composites[0].ID)
}

func TestPostgresStore_GetTreatment_NativeArrayColumn(t *testing.T) {
	s := startPostgresStore(t)
	ctx := context.Background()

	diagnosis := uuid.New()
	treatment := uuid.New()
	_, err := s.pool.Exec(ctx, `INSERT INTO diagnoses (id, patient_id, category, date) VALUES ($1, $2, $3, $4)`,
		diagnosis, uuid.New(), "ONCOLOGY", time.Now().UTC())
	require.NoError(t, err)
	_, err = s.pool.Exec(ctx, `INSERT INTO treatments (id, diagnosis_id, types, start_date) VALUES ($1, $2, $3, $4)`,
		treatment, diagnosis, []string{"SURGERY", "CHEMO"}, time.Now().UTC())
	require.NoError(t, err)

	got, err := s.GetTreatment(ctx, treatment)
	require.NoError(t, err)
	assert.Equal(t, []string{"SURGERY", "CHEMO"}, got.Types)
}

func TestPostgresStore_GetConstructScore_NotFound(t *testing.T) {
	s := startPostgresStore(t)
	_, err := s.GetConstructScore(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindNotFound))
}
