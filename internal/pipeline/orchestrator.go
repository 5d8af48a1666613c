package pipeline

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"captioner/internal/config"
	"captioner/internal/language"
	"captioner/internal/logging"
	"captioner/internal/notifications"
)

// Dependencies bundles the collaborators an Orchestrator drives.
type Dependencies struct {
	Store       JobStore
	Subjects    SubjectCatalog
	Transcriber Transcriber
	Translator  Translator
	Storage     Storage
	Reporter    Reporter
	Scheduler   Scheduler
	Notifier    notifications.Service
}

type settings struct {
	batchSize          int
	wordsPerSubtitle   int
	translationWorkers int
	batchRetries       int
	batchRetryDelay    time.Duration
	sourceLanguage     string
	sourceCode         string
	defaultTenant      string
}

// Orchestrator validates, schedules, and executes subtitle jobs.
type Orchestrator struct {
	cfg    settings
	deps   Dependencies
	logger *slog.Logger
	now    func() time.Time
}

// New constructs an orchestrator from configuration and collaborators.
func New(cfg *config.Config, deps Dependencies, logger *slog.Logger) *Orchestrator {
	if deps.Notifier == nil {
		deps.Notifier = notifications.NewService(nil)
	}
	s := settings{
		batchSize:          cfg.Workflow.BatchSize,
		wordsPerSubtitle:   cfg.Workflow.WordsPerSubtitle,
		translationWorkers: cfg.Workflow.TranslationWorkers,
		batchRetries:       cfg.Workflow.BatchRetries,
		batchRetryDelay:    time.Duration(cfg.Workflow.BatchRetryDelaySeconds) * time.Second,
		sourceLanguage:     strings.TrimSpace(cfg.Workflow.SourceLanguage),
		defaultTenant:      strings.TrimSpace(cfg.Tenant.DefaultID),
	}
	if s.translationWorkers <= 0 {
		s.translationWorkers = 1
	}
	if s.sourceLanguage == "" {
		s.sourceLanguage = "English"
	}
	s.sourceCode = language.Resolve(s.sourceLanguage)
	return &Orchestrator{
		cfg:    s,
		deps:   deps,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SubtitleFileName is the storage path of a subject's SRT file for one
// language, relative to the tenant root.
func SubtitleFileName(subjectID, languageCode string) string {
	return fmt.Sprintf("subjects/%s/%s.%s.srt", subjectID, subjectID, languageCode)
}
