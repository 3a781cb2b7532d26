package store

// schemaSQLite is executed by NewSQLiteStore against a fresh database file.
// PostgresStore assumes the same shape already exists, provisioned out of
// band (migrations are explicitly out of this core's scope) — this string
// is therefore also the canonical reference for what a Postgres deployment
// must provide, apart from the list columns PostgresStore's doc names as
// native arrays there.
const schemaSQLite = `
CREATE TABLE IF NOT EXISTS institutions (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS patients (
	id             TEXT PRIMARY KEY,
	institution_id TEXT NOT NULL REFERENCES institutions(id),
	birth_date     TIMESTAMP NOT NULL,
	gender         TEXT NOT NULL,
	registered_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS diagnoses (
	id         TEXT PRIMARY KEY,
	patient_id TEXT NOT NULL REFERENCES patients(id),
	category   TEXT NOT NULL,
	date       TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS treatments (
	id           TEXT PRIMARY KEY,
	diagnosis_id TEXT NOT NULL REFERENCES diagnoses(id),
	types        TEXT NOT NULL, -- comma-joined
	start_date   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS questionnaires (
	id           TEXT PRIMARY KEY,
	display_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS questionnaire_items (
	questionnaire_id TEXT NOT NULL REFERENCES questionnaires(id),
	item_id          TEXT NOT NULL,
	position         INTEGER NOT NULL,
	PRIMARY KEY (questionnaire_id, item_id)
);

CREATE TABLE IF NOT EXISTS items (
	id                 TEXT PRIMARY KEY,
	questionnaire_id   TEXT NOT NULL REFERENCES questionnaires(id),
	item_number        INTEGER NOT NULL,
	response_type      TEXT NOT NULL,
	likert_scale_id    TEXT,
	range_scale_id     TEXT,
	construct_scale_id TEXT,
	direction          TEXT NOT NULL,
	normative_mean     REAL,
	normative_sd       REAL,
	threshold          REAL,
	mid                REAL,
	item_missing_value REAL
);

CREATE TABLE IF NOT EXISTS likert_options (
	likert_scale_id TEXT NOT NULL,
	option_value    INTEGER NOT NULL,
	text            TEXT NOT NULL,
	PRIMARY KEY (likert_scale_id, option_value)
);

CREATE TABLE IF NOT EXISTS range_scales (
	id  TEXT PRIMARY KEY,
	min REAL NOT NULL,
	max REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS construct_scales (
	id                      TEXT PRIMARY KEY,
	name                    TEXT NOT NULL,
	direction               TEXT NOT NULL,
	normative_mean          REAL,
	normative_sd            REAL,
	threshold               REAL,
	mid                     REAL,
	minimum_number_of_items INTEGER NOT NULL,
	equation                TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS composite_construct_scales (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	construct_ids TEXT NOT NULL, -- comma-joined uuids
	combiner      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS patient_questionnaires (
	id               TEXT PRIMARY KEY,
	patient_id       TEXT NOT NULL REFERENCES patients(id),
	questionnaire_id TEXT NOT NULL REFERENCES questionnaires(id)
);

CREATE TABLE IF NOT EXISTS questionnaire_submissions (
	id                        TEXT PRIMARY KEY,
	patient_id                TEXT NOT NULL REFERENCES patients(id),
	patient_questionnaire_id  TEXT NOT NULL REFERENCES patient_questionnaires(id),
	questionnaire_id          TEXT NOT NULL REFERENCES questionnaires(id),
	submitted_at              TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS questionnaire_item_responses (
	submission_id  TEXT NOT NULL REFERENCES questionnaire_submissions(id),
	item_id        TEXT NOT NULL,
	response_value TEXT NOT NULL,
	PRIMARY KEY (submission_id, item_id)
);

CREATE TABLE IF NOT EXISTS construct_scores (
	submission_id      TEXT NOT NULL REFERENCES questionnaire_submissions(id),
	construct_scale_id TEXT NOT NULL,
	score              REAL,
	computed_at        TIMESTAMP NOT NULL,
	PRIMARY KEY (submission_id, construct_scale_id)
);

CREATE TABLE IF NOT EXISTS composite_scores (
	submission_id TEXT NOT NULL REFERENCES questionnaire_submissions(id),
	composite_id  TEXT NOT NULL,
	score         REAL,
	computed_at   TIMESTAMP NOT NULL,
	PRIMARY KEY (submission_id, composite_id)
);

CREATE INDEX IF NOT EXISTS idx_submissions_patient ON questionnaire_submissions(patient_id, submitted_at DESC);
CREATE INDEX IF NOT EXISTS idx_patients_institution ON patients(institution_id);
`
