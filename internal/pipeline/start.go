package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"captioner/internal/jobs"
	"captioner/internal/language"
	"captioner/internal/logging"
	"captioner/internal/services"
)

const stageStart = "start"

// Request describes a subtitle job to start.
type Request struct {
	SubjectID   string
	TenantID    string
	VideoURL    string
	VideoSource string
	Languages   []string
}

// Start validates the request, persists a pending job, and schedules it.
// It returns immediately with the job ID. Errors carry services markers:
// ErrValidation for malformed requests, ErrNotFound for unknown subjects,
// and ErrConflict when the subject already has an active job.
func (o *Orchestrator) Start(ctx context.Context, req Request) (string, error) {
	subjectID := strings.TrimSpace(req.SubjectID)
	if subjectID == "" {
		return "", services.Wrap(services.ErrValidation, stageStart, "validate request", "subject id is required", nil)
	}
	videoURL := strings.TrimSpace(req.VideoURL)
	if videoURL == "" {
		return "", services.Wrap(services.ErrValidation, stageStart, "validate request", "video url is required", nil)
	}
	source, ok := jobs.ParseVideoSource(req.VideoSource)
	if !ok {
		return "", services.Wrap(services.ErrValidation, stageStart, "validate request",
			fmt.Sprintf("unknown video source %q", req.VideoSource), nil)
	}

	ctx = services.WithSubjectID(ctx, subjectID)
	logger := logging.WithContext(ctx, o.logger)

	exists, err := o.deps.Subjects.SubjectExists(ctx, subjectID)
	if err != nil {
		return "", fmt.Errorf("lookup subject: %w", err)
	}
	if !exists {
		return "", services.Wrap(services.ErrNotFound, stageStart, "lookup subject",
			fmt.Sprintf("subject %q does not exist", subjectID), nil)
	}

	active, err := o.deps.Store.FindActive(ctx, subjectID)
	if err != nil {
		return "", fmt.Errorf("find active job: %w", err)
	}
	if active != nil {
		return "", conflictError(subjectID, active.ID)
	}

	tenant := strings.TrimSpace(req.TenantID)
	if tenant == "" {
		tenant = o.cfg.defaultTenant
	}
	spec := jobs.NewJob{
		SubjectID:      subjectID,
		TenantID:       tenant,
		SourceVideoURL: videoURL,
		VideoSource:    source,
	}
	for _, target := range language.Targets(o.cfg.sourceLanguage, req.Languages) {
		spec.Translations = append(spec.Translations, jobs.NewTranslation{
			Language:     target.Name,
			LanguageCode: target.Code,
		})
	}

	job, err := o.deps.Store.Create(ctx, spec)
	if errors.Is(err, jobs.ErrActiveJob) {
		return "", conflictError(subjectID, "")
	}
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	ctx = services.WithJobID(ctx, job.ID)
	logger = logging.WithContext(ctx, o.logger)
	logger.Info("subtitle job created",
		logging.String(logging.FieldEventType, "job_created"),
		logging.String("video_source", string(job.VideoSource)),
		logging.Int("languages", len(job.Translations)),
		logging.String("tenant_id", tenant),
	)

	if err := o.deps.Scheduler.Enqueue(ctx, job.ID); err != nil {
		message := fmt.Sprintf("enqueue job: %v", err)
		if _, ferr := o.deps.Store.Mutate(ctx, job.ID, func(j *jobs.Job) error {
			o.markFailed(j, message)
			return nil
		}); ferr != nil {
			logger.Error("failed to persist enqueue failure", logging.Error(ferr))
		}
		logging.ErrorWithContext(logger, "failed to enqueue subtitle job", "enqueue_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check scheduler backend connectivity"),
		)
		return "", services.Wrap(services.ErrTransient, stageStart, "enqueue job", "", err)
	}

	o.report(ctx, job, nil, "Queued")
	return job.ID, nil
}

func conflictError(subjectID, jobID string) error {
	message := fmt.Sprintf("subject %q already has an active job", subjectID)
	if jobID != "" {
		message = fmt.Sprintf("%s (%s)", message, jobID)
	}
	return services.Wrap(services.ErrConflict, stageStart, "check active job", message, nil)
}
