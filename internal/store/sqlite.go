package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/proanalytics/core/internal/domain"
)

// SQLiteStore implements domain.Store against a single-file SQLite
// database, grounded directly on the teacher's internal/feedback/sqlite.go
// (WAL mode, self-provisioned schema, no external migration tool). Used for
// local development and this package's own tests (the cmd/analyticscore
// demonstration binary seeds a MemoryStore instead); PostgresStore is the
// production backend.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schemaSQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) GetPatient(ctx context.Context, id uuid.UUID) (*domain.Patient, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, institution_id, birth_date, gender, registered_at FROM patients WHERE id = ?`, id.String())
	var p domain.Patient
	var idStr, instStr string
	if err := row.Scan(&idStr, &instStr, &p.BirthDate, &p.Gender, &p.RegisteredAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NewNotFound("patient not found", err)
		}
		return nil, fmt.Errorf("getting patient: %w", err)
	}
	p.ID, p.InstitutionID = uuid.MustParse(idStr), uuid.MustParse(instStr)
	return &p, nil
}

func (s *SQLiteStore) GetInstitution(ctx context.Context, id uuid.UUID) (*domain.Institution, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name FROM institutions WHERE id = ?`, id.String())
	var inst domain.Institution
	var idStr string
	if err := row.Scan(&idStr, &inst.Name); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NewNotFound("institution not found", err)
		}
		return nil, fmt.Errorf("getting institution: %w", err)
	}
	inst.ID = uuid.MustParse(idStr)
	return &inst, nil
}

func (s *SQLiteStore) GetDiagnosis(ctx context.Context, id uuid.UUID) (*domain.Diagnosis, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, patient_id, category, date FROM diagnoses WHERE id = ?`, id.String())
	var d domain.Diagnosis
	var idStr, patientStr string
	if err := row.Scan(&idStr, &patientStr, &d.Category, &d.Date); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NewNotFound("diagnosis not found", err)
		}
		return nil, fmt.Errorf("getting diagnosis: %w", err)
	}
	d.ID, d.PatientID = uuid.MustParse(idStr), uuid.MustParse(patientStr)
	return &d, nil
}

func (s *SQLiteStore) GetTreatment(ctx context.Context, id uuid.UUID) (*domain.Treatment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, diagnosis_id, types, start_date FROM treatments WHERE id = ?`, id.String())
	var t domain.Treatment
	var idStr, diagStr, typesStr string
	if err := row.Scan(&idStr, &diagStr, &typesStr, &t.StartDate); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NewNotFound("treatment not found", err)
		}
		return nil, fmt.Errorf("getting treatment: %w", err)
	}
	t.ID, t.DiagnosisID = uuid.MustParse(idStr), uuid.MustParse(diagStr)
	if typesStr != "" {
		t.Types = strings.Split(typesStr, ",")
	}
	return &t, nil
}

func (s *SQLiteStore) GetSubmission(ctx context.Context, id uuid.UUID) (*domain.QuestionnaireSubmission, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, patient_id, patient_questionnaire_id, questionnaire_id, submitted_at FROM questionnaire_submissions WHERE id = ?`, id.String())
	var sub domain.QuestionnaireSubmission
	var idStr, patientStr, pqStr, qStr string
	if err := row.Scan(&idStr, &patientStr, &pqStr, &qStr, &sub.SubmittedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NewNotFound("submission not found", err)
		}
		return nil, fmt.Errorf("getting submission: %w", err)
	}
	sub.ID, sub.PatientID = uuid.MustParse(idStr), uuid.MustParse(patientStr)
	sub.PatientQuestionnaireID, sub.QuestionnaireID = uuid.MustParse(pqStr), uuid.MustParse(qStr)
	return &sub, nil
}

func (s *SQLiteStore) ListSubmissions(ctx context.Context, patientID uuid.UUID, window *domain.SubmissionWindow) ([]domain.QuestionnaireSubmission, error) {
	query := `SELECT id, patient_id, patient_questionnaire_id, questionnaire_id, submitted_at FROM questionnaire_submissions WHERE patient_id = ?`
	args := []interface{}{patientID.String()}
	if window != nil && window.UpperBoundDate != nil {
		query += ` AND submitted_at <= ?`
		args = append(args, time.Unix(*window.UpperBoundDate, 0).UTC())
	}
	query += ` ORDER BY submitted_at DESC`
	if window != nil && window.MaxIntervals != nil {
		query += ` LIMIT ?`
		args = append(args, *window.MaxIntervals)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	defer rows.Close()

	var out []domain.QuestionnaireSubmission
	for rows.Next() {
		var sub domain.QuestionnaireSubmission
		var idStr, patientStr, pqStr, qStr string
		if err := rows.Scan(&idStr, &patientStr, &pqStr, &qStr, &sub.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scanning submission row: %w", err)
		}
		sub.ID, sub.PatientID = uuid.MustParse(idStr), uuid.MustParse(patientStr)
		sub.PatientQuestionnaireID, sub.QuestionnaireID = uuid.MustParse(pqStr), uuid.MustParse(qStr)
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListResponses(ctx context.Context, submissionID uuid.UUID) ([]domain.QuestionnaireItemResponse, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT submission_id, item_id, response_value FROM questionnaire_item_responses WHERE submission_id = ?`, submissionID.String())
	if err != nil {
		return nil, fmt.Errorf("listing responses: %w", err)
	}
	defer rows.Close()

	var out []domain.QuestionnaireItemResponse
	for rows.Next() {
		var r domain.QuestionnaireItemResponse
		var subStr, itemStr string
		if err := rows.Scan(&subStr, &itemStr, &r.ResponseValue); err != nil {
			return nil, fmt.Errorf("scanning response row: %w", err)
		}
		r.SubmissionID, r.ItemID = uuid.MustParse(subStr), uuid.MustParse(itemStr)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetItem(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, questionnaire_id, item_number, response_type, likert_scale_id, range_scale_id,
			construct_scale_id, direction, normative_mean, normative_sd, threshold, mid, item_missing_value
		FROM items WHERE id = ?`, id.String())
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("item not found", err)
	}
	return item, err
}

func scanItem(row interface{ Scan(...interface{}) error }) (*domain.Item, error) {
	var it domain.Item
	var idStr, qStr string
	var likertStr, rangeStr, constructStr sql.NullString
	var direction string
	var normMean, normSD, threshold, mid, missing sql.NullFloat64

	if err := row.Scan(&idStr, &qStr, &it.ItemNumber, &it.ResponseType, &likertStr, &rangeStr,
		&constructStr, &direction, &normMean, &normSD, &threshold, &mid, &missing); err != nil {
		return nil, err
	}
	it.ID, it.QuestionnaireID = uuid.MustParse(idStr), uuid.MustParse(qStr)
	it.Direction = domain.Direction(direction)
	if likertStr.Valid {
		id := uuid.MustParse(likertStr.String)
		it.LikertScaleID = &id
	}
	if rangeStr.Valid {
		id := uuid.MustParse(rangeStr.String)
		it.RangeScaleID = &id
	}
	if constructStr.Valid {
		id := uuid.MustParse(constructStr.String)
		it.ConstructScaleID = &id
	}
	if normMean.Valid {
		it.NormativeMean = &normMean.Float64
	}
	if normSD.Valid {
		it.NormativeSD = &normSD.Float64
	}
	if threshold.Valid {
		it.Threshold = &threshold.Float64
	}
	if mid.Valid {
		it.MID = &mid.Float64
	}
	if missing.Valid {
		it.ItemMissingValue = &missing.Float64
	}
	return &it, nil
}

func (s *SQLiteStore) ListItemsForConstruct(ctx context.Context, constructScaleID uuid.UUID) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, questionnaire_id, item_number, response_type, likert_scale_id, range_scale_id,
			construct_scale_id, direction, normative_mean, normative_sd, threshold, mid, item_missing_value
		FROM items WHERE construct_scale_id = ? ORDER BY item_number`, constructScaleID.String())
	if err != nil {
		return nil, fmt.Errorf("listing items for construct: %w", err)
	}
	defer rows.Close()

	var out []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item row: %w", err)
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetConstructScale(ctx context.Context, id uuid.UUID) (*domain.ConstructScale, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, direction, normative_mean, normative_sd, threshold, mid, minimum_number_of_items, equation
		FROM construct_scales WHERE id = ?`, id.String())
	cs, err := scanConstructScale(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("construct scale not found", err)
	}
	return cs, err
}

func scanConstructScale(row interface{ Scan(...interface{}) error }) (*domain.ConstructScale, error) {
	var cs domain.ConstructScale
	var idStr, direction string
	var normMean, normSD, threshold, mid sql.NullFloat64
	if err := row.Scan(&idStr, &cs.Name, &direction, &normMean, &normSD, &threshold, &mid, &cs.MinimumNumberOfItems, &cs.Equation); err != nil {
		return nil, err
	}
	cs.ID = uuid.MustParse(idStr)
	cs.Direction = domain.Direction(direction)
	if normMean.Valid {
		cs.NormativeMean = &normMean.Float64
	}
	if normSD.Valid {
		cs.NormativeSD = &normSD.Float64
	}
	if threshold.Valid {
		cs.Threshold = &threshold.Float64
	}
	if mid.Valid {
		cs.MID = &mid.Float64
	}
	return &cs, nil
}

func (s *SQLiteStore) ListScalesForQuestionnaire(ctx context.Context, questionnaireID uuid.UUID) ([]domain.ConstructScale, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT cs.id, cs.name, cs.direction, cs.normative_mean, cs.normative_sd, cs.threshold, cs.mid,
			cs.minimum_number_of_items, cs.equation
		FROM construct_scales cs
		JOIN items i ON i.construct_scale_id = cs.id
		WHERE i.questionnaire_id = ?`, questionnaireID.String())
	if err != nil {
		return nil, fmt.Errorf("listing scales for questionnaire: %w", err)
	}
	defer rows.Close()

	var out []domain.ConstructScale
	for rows.Next() {
		cs, err := scanConstructScale(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning construct scale row: %w", err)
		}
		out = append(out, *cs)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetCompositeScale(ctx context.Context, id uuid.UUID) (*domain.CompositeConstructScale, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, construct_ids, combiner FROM composite_construct_scales WHERE id = ?`, id.String())
	cc, err := scanComposite(row)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("composite construct scale not found", err)
	}
	return cc, err
}

func scanComposite(row interface{ Scan(...interface{}) error }) (*domain.CompositeConstructScale, error) {
	var cc domain.CompositeConstructScale
	var idStr, idsStr, combiner string
	if err := row.Scan(&idStr, &cc.Name, &idsStr, &combiner); err != nil {
		return nil, err
	}
	cc.ID = uuid.MustParse(idStr)
	cc.Combiner = domain.Combiner(combiner)
	for _, part := range strings.Split(idsStr, ",") {
		if part == "" {
			continue
		}
		cc.ConstructIDs = append(cc.ConstructIDs, uuid.MustParse(part))
	}
	return &cc, nil
}

func (s *SQLiteStore) ListCompositesForConstruct(ctx context.Context, constructScaleID uuid.UUID) ([]domain.CompositeConstructScale, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, construct_ids, combiner FROM composite_construct_scales WHERE ',' || construct_ids || ',' LIKE ?`,
		"%,"+constructScaleID.String()+",%")
	if err != nil {
		return nil, fmt.Errorf("listing composites for construct: %w", err)
	}
	defer rows.Close()

	var out []domain.CompositeConstructScale
	for rows.Next() {
		cc, err := scanComposite(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning composite row: %w", err)
		}
		out = append(out, *cc)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetQuestionnaire(ctx context.Context, id uuid.UUID) (*domain.Questionnaire, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, display_name FROM questionnaires WHERE id = ?`, id.String())
	var q domain.Questionnaire
	var idStr string
	if err := row.Scan(&idStr, &q.DisplayName); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NewNotFound("questionnaire not found", err)
		}
		return nil, fmt.Errorf("getting questionnaire: %w", err)
	}
	q.ID = uuid.MustParse(idStr)

	rows, err := s.db.QueryContext(ctx, `SELECT item_id FROM questionnaire_items WHERE questionnaire_id = ? ORDER BY position`, idStr)
	if err != nil {
		return nil, fmt.Errorf("listing questionnaire items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var itemStr string
		if err := rows.Scan(&itemStr); err != nil {
			return nil, fmt.Errorf("scanning questionnaire item id: %w", err)
		}
		q.ItemIDs = append(q.ItemIDs, uuid.MustParse(itemStr))
	}
	return &q, rows.Err()
}

// ListCohortPatients resolves every patient in institutionID other than
// indexPatientID, filtered by predicates. Predicate fields are applied in
// SQL directly against patients/diagnoses/treatments; age predicates are
// computed relative to now, since the Store has no single "as of" instant
// threaded through its interface.
func (s *SQLiteStore) ListCohortPatients(ctx context.Context, institutionID, indexPatientID uuid.UUID, predicates domain.CohortPredicates) ([]domain.Patient, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT DISTINCT p.id, p.institution_id, p.birth_date, p.gender, p.registered_at FROM patients p`)
	var joins []string
	var conds []string
	args := []interface{}{}

	conds = append(conds, `p.institution_id = ?`)
	args = append(args, institutionID.String())
	conds = append(conds, `p.id != ?`)
	args = append(args, indexPatientID.String())

	if predicates.Gender != nil {
		conds = append(conds, `p.gender = ?`)
		args = append(args, *predicates.Gender)
	}
	if predicates.DiagnosisCategory != nil {
		joins = append(joins, `JOIN diagnoses d ON d.patient_id = p.id`)
		conds = append(conds, `d.category = ?`)
		args = append(args, *predicates.DiagnosisCategory)
	}
	if predicates.TreatmentType != nil {
		joins = append(joins, `JOIN diagnoses d2 ON d2.patient_id = p.id`, `JOIN treatments t ON t.diagnosis_id = d2.id`)
		conds = append(conds, `',' || t.types || ',' LIKE ?`)
		args = append(args, "%,"+*predicates.TreatmentType+",%")
	}
	if predicates.MinAge != nil {
		conds = append(conds, `p.birth_date <= ?`)
		args = append(args, time.Now().AddDate(-*predicates.MinAge, 0, 0))
	}
	if predicates.MaxAge != nil {
		conds = append(conds, `p.birth_date >= ?`)
		args = append(args, time.Now().AddDate(-*predicates.MaxAge-1, 0, 0))
	}

	for _, j := range joins {
		query.WriteString(" " + j)
	}
	query.WriteString(" WHERE " + strings.Join(conds, " AND "))

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing cohort patients: %w", err)
	}
	defer rows.Close()

	var out []domain.Patient
	for rows.Next() {
		var p domain.Patient
		var idStr, instStr string
		if err := rows.Scan(&idStr, &instStr, &p.BirthDate, &p.Gender, &p.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scanning cohort patient row: %w", err)
		}
		p.ID, p.InstitutionID = uuid.MustParse(idStr), uuid.MustParse(instStr)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) PutConstructScore(ctx context.Context, score domain.ConstructScore) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO construct_scores (submission_id, construct_scale_id, score, computed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (submission_id, construct_scale_id) DO UPDATE SET score = excluded.score, computed_at = excluded.computed_at`,
		score.SubmissionID.String(), score.ConstructScaleID.String(), nullableFloat(score.Score), score.ComputedAt)
	if err != nil {
		return fmt.Errorf("putting construct score: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PutCompositeScore(ctx context.Context, score domain.CompositeScore) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO composite_scores (submission_id, composite_id, score, computed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (submission_id, composite_id) DO UPDATE SET score = excluded.score, computed_at = excluded.computed_at`,
		score.SubmissionID.String(), score.CompositeID.String(), nullableFloat(score.Score), score.ComputedAt)
	if err != nil {
		return fmt.Errorf("putting composite score: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteScoresForSubmission(ctx context.Context, submissionID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM construct_scores WHERE submission_id = ?`, submissionID.String()); err != nil {
		return fmt.Errorf("deleting construct scores: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM composite_scores WHERE submission_id = ?`, submissionID.String()); err != nil {
		return fmt.Errorf("deleting composite scores: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetConstructScore(ctx context.Context, submissionID, constructScaleID uuid.UUID) (*domain.ConstructScore, error) {
	row := s.db.QueryRowContext(ctx, `SELECT submission_id, construct_scale_id, score, computed_at FROM construct_scores WHERE submission_id = ? AND construct_scale_id = ?`,
		submissionID.String(), constructScaleID.String())
	var cs domain.ConstructScore
	var subStr, consStr string
	var score sql.NullFloat64
	if err := row.Scan(&subStr, &consStr, &score, &cs.ComputedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NewNotFound("construct score not found", err)
		}
		return nil, fmt.Errorf("getting construct score: %w", err)
	}
	cs.SubmissionID, cs.ConstructScaleID = uuid.MustParse(subStr), uuid.MustParse(consStr)
	if score.Valid {
		cs.Score = &score.Float64
	}
	return &cs, nil
}

func (s *SQLiteStore) ListConstructScoresForPatient(ctx context.Context, patientID, constructScaleID uuid.UUID) ([]domain.ConstructScore, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cs.submission_id, cs.construct_scale_id, cs.score, cs.computed_at
		FROM construct_scores cs
		JOIN questionnaire_submissions sub ON sub.id = cs.submission_id
		WHERE sub.patient_id = ? AND cs.construct_scale_id = ?
		ORDER BY sub.submitted_at DESC`, patientID.String(), constructScaleID.String())
	if err != nil {
		return nil, fmt.Errorf("listing construct scores for patient: %w", err)
	}
	defer rows.Close()

	var out []domain.ConstructScore
	for rows.Next() {
		var cs domain.ConstructScore
		var subStr, consStr string
		var score sql.NullFloat64
		if err := rows.Scan(&subStr, &consStr, &score, &cs.ComputedAt); err != nil {
			return nil, fmt.Errorf("scanning construct score row: %w", err)
		}
		cs.SubmissionID, cs.ConstructScaleID = uuid.MustParse(subStr), uuid.MustParse(consStr)
		if score.Valid {
			cs.Score = &score.Float64
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetCompositeScore(ctx context.Context, submissionID, compositeID uuid.UUID) (*domain.CompositeScore, error) {
	row := s.db.QueryRowContext(ctx, `SELECT submission_id, composite_id, score, computed_at FROM composite_scores WHERE submission_id = ? AND composite_id = ?`,
		submissionID.String(), compositeID.String())
	var cs domain.CompositeScore
	var subStr, compStr string
	var score sql.NullFloat64
	if err := row.Scan(&subStr, &compStr, &score, &cs.ComputedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NewNotFound("composite score not found", err)
		}
		return nil, fmt.Errorf("getting composite score: %w", err)
	}
	cs.SubmissionID, cs.CompositeID = uuid.MustParse(subStr), uuid.MustParse(compStr)
	if score.Valid {
		cs.Score = &score.Float64
	}
	return &cs, nil
}

func (s *SQLiteStore) ListCompositeScoresForPatient(ctx context.Context, patientID, compositeID uuid.UUID) ([]domain.CompositeScore, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cs.submission_id, cs.composite_id, cs.score, cs.computed_at
		FROM composite_scores cs
		JOIN questionnaire_submissions sub ON sub.id = cs.submission_id
		WHERE sub.patient_id = ? AND cs.composite_id = ?
		ORDER BY sub.submitted_at DESC`, patientID.String(), compositeID.String())
	if err != nil {
		return nil, fmt.Errorf("listing composite scores for patient: %w", err)
	}
	defer rows.Close()

	var out []domain.CompositeScore
	for rows.Next() {
		var cs domain.CompositeScore
		var subStr, compStr string
		var score sql.NullFloat64
		if err := rows.Scan(&subStr, &compStr, &score, &cs.ComputedAt); err != nil {
			return nil, fmt.Errorf("scanning composite score row: %w", err)
		}
		cs.SubmissionID, cs.CompositeID = uuid.MustParse(subStr), uuid.MustParse(compStr)
		if score.Valid {
			cs.Score = &score.Float64
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

func nullableFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
