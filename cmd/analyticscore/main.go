// Command analyticscore wires the Domain Store, Cache & Invalidation layer,
// Score Computer, Cohort Aggregator and Clinical Interpreter into one Core
// and runs a single demonstration pass: seed a small in-memory patient,
// process one submission, then print the resulting patient review. No HTTP
// server is started — HTTP framing is explicitly out of this core's scope —
// so this binary is a wiring demonstration, not a long-running service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/proanalytics/core/internal/cache"
	"github.com/proanalytics/core/internal/cohort"
	"github.com/proanalytics/core/internal/config"
	"github.com/proanalytics/core/internal/core"
	"github.com/proanalytics/core/internal/domain"
	"github.com/proanalytics/core/internal/observability"
	"github.com/proanalytics/core/internal/scoring"
	"github.com/proanalytics/core/internal/store"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := configManager.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration validation failed: %v\n", err)
		os.Exit(1)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging)
	logger.WithField("store_driver", cfg.Store.Driver).Info("starting analyticscore demonstration")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	domainStore := store.NewMemoryStore()
	patientID, submissionID, institutionID := seedDemoData(domainStore)

	tieredCache, err := cache.New(logger, cache.Config{
		PatientRedisURL:    cfg.Cache.PatientRedisURL,
		PopulationRedisURL: cfg.Cache.PopulationRedisURL,
		PatientL1Size:      cfg.Cache.PatientLRUSize,
		PopulationL1Size:   cfg.Cache.PopulationLRUSize,
		PatientDefaultTTL:  cfg.Cache.TTLPatient,
		PopulationDefaultTTL: cfg.Cache.TTLPopulation,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to construct cache")
	}

	var degradation core.DegradationRecorder
	var evalObserver scoring.EvaluationObserver
	if cfg.Observability.DSN != "" {
		sink, err := observability.NewPostgresSinkFromURL(cfg.Observability.DSN)
		if err != nil {
			logger.WithError(err).Warn("observability sink unavailable, continuing without audit logging")
		} else {
			degradation = sink
			evalObserver = sink
		}
	}

	computer := scoring.NewComputer(logger, scoring.NewCompiler(), evalObserver)
	aggregator := cohort.NewAggregator(logger, 8)

	engine := core.New(logger, domainStore, tieredCache, computer, aggregator, degradation, cfg.Scoring)

	if err := engine.OnSubmissionWritten(ctx, submissionID); err != nil {
		logger.WithError(err).Fatal("failed to process demonstration submission")
	}

	review, err := engine.GetPatientReview(ctx, patientID, institutionID, domain.FilterContext{
		Anchor:      domain.Anchor{Kind: domain.AnchorRegistration},
		Granularity: domain.GranularityWeek,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to build patient review")
	}

	engine.ReportCacheDegradation(ctx)

	out, _ := json.MarshalIndent(review, "", "  ")
	fmt.Println(string(out))
	logger.Info("analyticscore demonstration complete")
}

func newLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}
	return logger
}

// seedDemoData populates a MemoryStore with one institution, one patient,
// one questionnaire, one construct scale and one submission, so the binary
// has something to compute a review over without a live database.
func seedDemoData(s *store.MemoryStore) (patientID, submissionID, institutionID uuid.UUID) {
	institutionID = uuid.New()
	patientID = uuid.New()
	questionnaireID := uuid.New()
	constructID := uuid.New()
	itemID := uuid.New()
	submissionID = uuid.New()
	registeredAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Institutions[institutionID] = domain.Institution{ID: institutionID, Name: "Demonstration Clinic"}
	s.Patients[patientID] = domain.Patient{
		ID:            patientID,
		InstitutionID: institutionID,
		BirthDate:     registeredAt.AddDate(-52, 0, 0),
		Gender:        "M",
		RegisteredAt:  registeredAt,
	}
	s.Items[itemID] = domain.Item{
		ID:               itemID,
		QuestionnaireID:  questionnaireID,
		ItemNumber:       1,
		ResponseType:     domain.ResponseNumber,
		ConstructScaleID: &constructID,
		Direction:        domain.LowerBetter,
	}
	s.Questionnaires[questionnaireID] = domain.Questionnaire{
		ID:          questionnaireID,
		DisplayName: "PROMIS Pain Interference",
		ItemIDs:     []uuid.UUID{itemID},
	}
	threshold := 3.0
	s.ConstructScales[constructID] = domain.ConstructScale{
		ID:                   constructID,
		Name:                 "Pain Interference",
		Direction:            domain.LowerBetter,
		Threshold:            &threshold,
		MinimumNumberOfItems: 1,
		Equation:             "{q1}",
	}
	s.Submissions[submissionID] = domain.QuestionnaireSubmission{
		ID:              submissionID,
		PatientID:       patientID,
		QuestionnaireID: questionnaireID,
		SubmittedAt:     registeredAt.AddDate(0, 0, 7),
	}
	s.Responses[submissionID] = []domain.QuestionnaireItemResponse{
		{SubmissionID: submissionID, ItemID: itemID, ResponseValue: "2"},
	}

	return patientID, submissionID, institutionID
}
