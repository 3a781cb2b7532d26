package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/proanalytics/core/internal/domain"
)

// PostgresStore implements domain.Store using pgxpool, grounded on the
// teacher's internal/repository/variant.go (pgxpool.Pool, pgx.ErrNoRows ->
// domain-level not-found, fmt.Errorf %w wrapping, logrus.Fields on
// failures). It expects the same tables schema.go's schemaSQLite creates,
// provisioned out of band (migrations are out of scope) — except that
// treatments.types and composite_construct_scales.construct_ids are native
// TEXT[]/UUID[] columns rather than SQLite's comma-joined TEXT, and
// questionnaires carries a UUID[] item_ids column in place of SQLite's
// questionnaire_items table, since pgx scans Postgres arrays directly into
// Go slices.
type PostgresStore struct {
	pool *pgxpool.Pool
	log  *logrus.Logger
}

func NewPostgresStore(pool *pgxpool.Pool, logger *logrus.Logger) *PostgresStore {
	return &PostgresStore{pool: pool, log: logger}
}

func NewPostgresStoreFromURL(ctx context.Context, databaseURL string, logger *logrus.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return NewPostgresStore(pool, logger), nil
}

func (s *PostgresStore) Close() { s.pool.Close() }

func (s *PostgresStore) GetPatient(ctx context.Context, id uuid.UUID) (*domain.Patient, error) {
	var p domain.Patient
	err := s.pool.QueryRow(ctx, `SELECT id, institution_id, birth_date, gender, registered_at FROM patients WHERE id = $1`, id).
		Scan(&p.ID, &p.InstitutionID, &p.BirthDate, &p.Gender, &p.RegisteredAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFound("patient not found", err)
		}
		s.log.WithFields(logrus.Fields{"patient_id": id, "error": err}).Error("failed to get patient")
		return nil, fmt.Errorf("getting patient: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) GetInstitution(ctx context.Context, id uuid.UUID) (*domain.Institution, error) {
	var inst domain.Institution
	err := s.pool.QueryRow(ctx, `SELECT id, name FROM institutions WHERE id = $1`, id).Scan(&inst.ID, &inst.Name)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFound("institution not found", err)
		}
		return nil, fmt.Errorf("getting institution: %w", err)
	}
	return &inst, nil
}

func (s *PostgresStore) GetDiagnosis(ctx context.Context, id uuid.UUID) (*domain.Diagnosis, error) {
	var d domain.Diagnosis
	err := s.pool.QueryRow(ctx, `SELECT id, patient_id, category, date FROM diagnoses WHERE id = $1`, id).
		Scan(&d.ID, &d.PatientID, &d.Category, &d.Date)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFound("diagnosis not found", err)
		}
		return nil, fmt.Errorf("getting diagnosis: %w", err)
	}
	return &d, nil
}

func (s *PostgresStore) GetTreatment(ctx context.Context, id uuid.UUID) (*domain.Treatment, error) {
	var t domain.Treatment
	err := s.pool.QueryRow(ctx, `SELECT id, diagnosis_id, types, start_date FROM treatments WHERE id = $1`, id).
		Scan(&t.ID, &t.DiagnosisID, &t.Types, &t.StartDate)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFound("treatment not found", err)
		}
		return nil, fmt.Errorf("getting treatment: %w", err)
	}
	return &t, nil
}

func (s *PostgresStore) GetSubmission(ctx context.Context, id uuid.UUID) (*domain.QuestionnaireSubmission, error) {
	var sub domain.QuestionnaireSubmission
	err := s.pool.QueryRow(ctx, `SELECT id, patient_id, patient_questionnaire_id, questionnaire_id, submitted_at FROM questionnaire_submissions WHERE id = $1`, id).
		Scan(&sub.ID, &sub.PatientID, &sub.PatientQuestionnaireID, &sub.QuestionnaireID, &sub.SubmittedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFound("submission not found", err)
		}
		return nil, fmt.Errorf("getting submission: %w", err)
	}
	return &sub, nil
}

func (s *PostgresStore) ListSubmissions(ctx context.Context, patientID uuid.UUID, window *domain.SubmissionWindow) ([]domain.QuestionnaireSubmission, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, patient_id, patient_questionnaire_id, questionnaire_id, submitted_at FROM questionnaire_submissions WHERE patient_id = $1`)
	args := []interface{}{patientID}
	n := 2
	if window != nil && window.UpperBoundDate != nil {
		query.WriteString(fmt.Sprintf(" AND submitted_at <= $%d", n))
		args = append(args, time.Unix(*window.UpperBoundDate, 0).UTC())
		n++
	}
	query.WriteString(" ORDER BY submitted_at DESC")
	if window != nil && window.MaxIntervals != nil {
		query.WriteString(fmt.Sprintf(" LIMIT $%d", n))
		args = append(args, *window.MaxIntervals)
		n++
	}

	rows, err := s.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	defer rows.Close()

	var out []domain.QuestionnaireSubmission
	for rows.Next() {
		var sub domain.QuestionnaireSubmission
		if err := rows.Scan(&sub.ID, &sub.PatientID, &sub.PatientQuestionnaireID, &sub.QuestionnaireID, &sub.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scanning submission row: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListResponses(ctx context.Context, submissionID uuid.UUID) ([]domain.QuestionnaireItemResponse, error) {
	rows, err := s.pool.Query(ctx, `SELECT submission_id, item_id, response_value FROM questionnaire_item_responses WHERE submission_id = $1`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("listing responses: %w", err)
	}
	defer rows.Close()

	var out []domain.QuestionnaireItemResponse
	for rows.Next() {
		var r domain.QuestionnaireItemResponse
		if err := rows.Scan(&r.SubmissionID, &r.ItemID, &r.ResponseValue); err != nil {
			return nil, fmt.Errorf("scanning response row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetItem(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, questionnaire_id, item_number, response_type, likert_scale_id, range_scale_id,
			construct_scale_id, direction, normative_mean, normative_sd, threshold, mid, item_missing_value
		FROM items WHERE id = $1`, id)
	item, err := scanItemPgx(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFound("item not found", err)
		}
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

func scanItemPgx(row pgx.Row) (*domain.Item, error) {
	var it domain.Item
	var direction string
	if err := row.Scan(&it.ID, &it.QuestionnaireID, &it.ItemNumber, &it.ResponseType, &it.LikertScaleID, &it.RangeScaleID,
		&it.ConstructScaleID, &direction, &it.NormativeMean, &it.NormativeSD, &it.Threshold, &it.MID, &it.ItemMissingValue); err != nil {
		return nil, err
	}
	it.Direction = domain.Direction(direction)
	return &it, nil
}

func (s *PostgresStore) ListItemsForConstruct(ctx context.Context, constructScaleID uuid.UUID) ([]domain.Item, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, questionnaire_id, item_number, response_type, likert_scale_id, range_scale_id,
			construct_scale_id, direction, normative_mean, normative_sd, threshold, mid, item_missing_value
		FROM items WHERE construct_scale_id = $1 ORDER BY item_number`, constructScaleID)
	if err != nil {
		return nil, fmt.Errorf("listing items for construct: %w", err)
	}
	defer rows.Close()

	var out []domain.Item
	for rows.Next() {
		item, err := scanItemPgx(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item row: %w", err)
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetConstructScale(ctx context.Context, id uuid.UUID) (*domain.ConstructScale, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, direction, normative_mean, normative_sd, threshold, mid, minimum_number_of_items, equation
		FROM construct_scales WHERE id = $1`, id)
	cs, err := scanConstructScalePgx(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFound("construct scale not found", err)
		}
		return nil, fmt.Errorf("getting construct scale: %w", err)
	}
	return cs, nil
}

func scanConstructScalePgx(row pgx.Row) (*domain.ConstructScale, error) {
	var cs domain.ConstructScale
	var direction string
	if err := row.Scan(&cs.ID, &cs.Name, &direction, &cs.NormativeMean, &cs.NormativeSD, &cs.Threshold, &cs.MID,
		&cs.MinimumNumberOfItems, &cs.Equation); err != nil {
		return nil, err
	}
	cs.Direction = domain.Direction(direction)
	return &cs, nil
}

func (s *PostgresStore) ListScalesForQuestionnaire(ctx context.Context, questionnaireID uuid.UUID) ([]domain.ConstructScale, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT cs.id, cs.name, cs.direction, cs.normative_mean, cs.normative_sd, cs.threshold, cs.mid,
			cs.minimum_number_of_items, cs.equation
		FROM construct_scales cs
		JOIN items i ON i.construct_scale_id = cs.id
		WHERE i.questionnaire_id = $1`, questionnaireID)
	if err != nil {
		return nil, fmt.Errorf("listing scales for questionnaire: %w", err)
	}
	defer rows.Close()

	var out []domain.ConstructScale
	for rows.Next() {
		cs, err := scanConstructScalePgx(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning construct scale row: %w", err)
		}
		out = append(out, *cs)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetCompositeScale(ctx context.Context, id uuid.UUID) (*domain.CompositeConstructScale, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, name, construct_ids, combiner FROM composite_construct_scales WHERE id = $1`, id)
	cc, err := scanCompositePgx(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFound("composite construct scale not found", err)
		}
		return nil, fmt.Errorf("getting composite construct scale: %w", err)
	}
	return cc, nil
}

func scanCompositePgx(row pgx.Row) (*domain.CompositeConstructScale, error) {
	var cc domain.CompositeConstructScale
	var combiner string
	if err := row.Scan(&cc.ID, &cc.Name, &cc.ConstructIDs, &combiner); err != nil {
		return nil, err
	}
	cc.Combiner = domain.Combiner(combiner)
	return &cc, nil
}

func (s *PostgresStore) ListCompositesForConstruct(ctx context.Context, constructScaleID uuid.UUID) ([]domain.CompositeConstructScale, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, construct_ids, combiner FROM composite_construct_scales WHERE $1 = ANY(construct_ids)`, constructScaleID)
	if err != nil {
		return nil, fmt.Errorf("listing composites for construct: %w", err)
	}
	defer rows.Close()

	var out []domain.CompositeConstructScale
	for rows.Next() {
		cc, err := scanCompositePgx(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning composite row: %w", err)
		}
		out = append(out, *cc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetQuestionnaire(ctx context.Context, id uuid.UUID) (*domain.Questionnaire, error) {
	var q domain.Questionnaire
	err := s.pool.QueryRow(ctx, `SELECT id, display_name, item_ids FROM questionnaires WHERE id = $1`, id).
		Scan(&q.ID, &q.DisplayName, &q.ItemIDs)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFound("questionnaire not found", err)
		}
		return nil, fmt.Errorf("getting questionnaire: %w", err)
	}
	return &q, nil
}

func (s *PostgresStore) ListCohortPatients(ctx context.Context, institutionID, indexPatientID uuid.UUID, predicates domain.CohortPredicates) ([]domain.Patient, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT DISTINCT p.id, p.institution_id, p.birth_date, p.gender, p.registered_at FROM patients p`)
	var joins []string
	var conds []string
	args := []interface{}{institutionID, indexPatientID}
	conds = append(conds, `p.institution_id = $1`, `p.id != $2`)
	n := 3

	if predicates.Gender != nil {
		conds = append(conds, fmt.Sprintf("p.gender = $%d", n))
		args = append(args, *predicates.Gender)
		n++
	}
	if predicates.DiagnosisCategory != nil {
		joins = append(joins, `JOIN diagnoses d ON d.patient_id = p.id`)
		conds = append(conds, fmt.Sprintf("d.category = $%d", n))
		args = append(args, *predicates.DiagnosisCategory)
		n++
	}
	if predicates.TreatmentType != nil {
		joins = append(joins, `JOIN diagnoses d2 ON d2.patient_id = p.id`, `JOIN treatments t ON t.diagnosis_id = d2.id`)
		conds = append(conds, fmt.Sprintf("$%d = ANY(t.types)", n))
		args = append(args, *predicates.TreatmentType)
		n++
	}
	if predicates.MinAge != nil {
		conds = append(conds, fmt.Sprintf("p.birth_date <= $%d", n))
		args = append(args, time.Now().AddDate(-*predicates.MinAge, 0, 0))
		n++
	}
	if predicates.MaxAge != nil {
		conds = append(conds, fmt.Sprintf("p.birth_date >= $%d", n))
		args = append(args, time.Now().AddDate(-*predicates.MaxAge-1, 0, 0))
		n++
	}

	for _, j := range joins {
		query.WriteString(" " + j)
	}
	query.WriteString(" WHERE " + strings.Join(conds, " AND "))

	rows, err := s.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing cohort patients: %w", err)
	}
	defer rows.Close()

	var out []domain.Patient
	for rows.Next() {
		var p domain.Patient
		if err := rows.Scan(&p.ID, &p.InstitutionID, &p.BirthDate, &p.Gender, &p.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scanning cohort patient row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) PutConstructScore(ctx context.Context, score domain.ConstructScore) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO construct_scores (submission_id, construct_scale_id, score, computed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (submission_id, construct_scale_id) DO UPDATE SET score = EXCLUDED.score, computed_at = EXCLUDED.computed_at`,
		score.SubmissionID, score.ConstructScaleID, score.Score, score.ComputedAt)
	if err != nil {
		s.log.WithFields(logrus.Fields{"submission_id": score.SubmissionID, "construct_scale_id": score.ConstructScaleID, "error": err}).
			Error("failed to put construct score")
		return fmt.Errorf("putting construct score: %w", err)
	}
	return nil
}

func (s *PostgresStore) PutCompositeScore(ctx context.Context, score domain.CompositeScore) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO composite_scores (submission_id, composite_id, score, computed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (submission_id, composite_id) DO UPDATE SET score = EXCLUDED.score, computed_at = EXCLUDED.computed_at`,
		score.SubmissionID, score.CompositeID, score.Score, score.ComputedAt)
	if err != nil {
		return fmt.Errorf("putting composite score: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteScoresForSubmission(ctx context.Context, submissionID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM construct_scores WHERE submission_id = $1`, submissionID); err != nil {
		return fmt.Errorf("deleting construct scores: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM composite_scores WHERE submission_id = $1`, submissionID); err != nil {
		return fmt.Errorf("deleting composite scores: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCompositeScore(ctx context.Context, submissionID, compositeID uuid.UUID) (*domain.CompositeScore, error) {
	var cs domain.CompositeScore
	err := s.pool.QueryRow(ctx, `SELECT submission_id, composite_id, score, computed_at FROM composite_scores WHERE submission_id = $1 AND composite_id = $2`,
		submissionID, compositeID).Scan(&cs.SubmissionID, &cs.CompositeID, &cs.Score, &cs.ComputedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFound("composite score not found", err)
		}
		return nil, fmt.Errorf("getting composite score: %w", err)
	}
	return &cs, nil
}

func (s *PostgresStore) ListCompositeScoresForPatient(ctx context.Context, patientID, compositeID uuid.UUID) ([]domain.CompositeScore, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT cs.submission_id, cs.composite_id, cs.score, cs.computed_at
		FROM composite_scores cs
		JOIN questionnaire_submissions sub ON sub.id = cs.submission_id
		WHERE sub.patient_id = $1 AND cs.composite_id = $2
		ORDER BY sub.submitted_at DESC`, patientID, compositeID)
	if err != nil {
		return nil, fmt.Errorf("listing composite scores for patient: %w", err)
	}
	defer rows.Close()

	var out []domain.CompositeScore
	for rows.Next() {
		var cs domain.CompositeScore
		if err := rows.Scan(&cs.SubmissionID, &cs.CompositeID, &cs.Score, &cs.ComputedAt); err != nil {
			return nil, fmt.Errorf("scanning composite score row: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetConstructScore(ctx context.Context, submissionID, constructScaleID uuid.UUID) (*domain.ConstructScore, error) {
	var cs domain.ConstructScore
	err := s.pool.QueryRow(ctx, `SELECT submission_id, construct_scale_id, score, computed_at FROM construct_scores WHERE submission_id = $1 AND construct_scale_id = $2`,
		submissionID, constructScaleID).Scan(&cs.SubmissionID, &cs.ConstructScaleID, &cs.Score, &cs.ComputedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.NewNotFound("construct score not found", err)
		}
		return nil, fmt.Errorf("getting construct score: %w", err)
	}
	return &cs, nil
}

func (s *PostgresStore) ListConstructScoresForPatient(ctx context.Context, patientID, constructScaleID uuid.UUID) ([]domain.ConstructScore, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT cs.submission_id, cs.construct_scale_id, cs.score, cs.computed_at
		FROM construct_scores cs
		JOIN questionnaire_submissions sub ON sub.id = cs.submission_id
		WHERE sub.patient_id = $1 AND cs.construct_scale_id = $2
		ORDER BY sub.submitted_at DESC`, patientID, constructScaleID)
	if err != nil {
		return nil, fmt.Errorf("listing construct scores for patient: %w", err)
	}
	defer rows.Close()

	var out []domain.ConstructScore
	for rows.Next() {
		var cs domain.ConstructScore
		if err := rows.Scan(&cs.SubmissionID, &cs.ConstructScaleID, &cs.Score, &cs.ComputedAt); err != nil {
			return nil, fmt.Errorf("scanning construct score row: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}
