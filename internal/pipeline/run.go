package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"captioner/internal/jobs"
	"captioner/internal/logging"
	"captioner/internal/notifications"
	"captioner/internal/services"
	"captioner/internal/srt"
)

const (
	stageTranscription = "transcription"
	stageSourceSRT     = "source_srt"
	stageTranslation   = "translation"
	stageFinalize      = "finalize"
)

// Run executes the pipeline for jobID. A missing job, or one another worker
// already claimed, is a no-op so repeated deliveries are harmless. Failures
// recorded on the job (transcription, per-language translation) do not
// produce an error; only persistence failures are returned.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	ctx = services.WithJobID(ctx, jobID)
	logger := logging.WithContext(ctx, o.logger)

	job, err := o.deps.Store.Get(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		logger.Debug("job not found; skipping run")
		return nil
	}

	ctx = services.WithSubjectID(ctx, job.SubjectID)
	logger = logging.WithContext(ctx, o.logger)

	job, err = o.deps.Store.Claim(ctx, jobID, jobs.StatusTranscribing)
	switch {
	case errors.Is(err, jobs.ErrNotClaimable):
		logger.Info("job already claimed; skipping run", logging.String(logging.FieldEventType, "run_skipped"))
		return nil
	case jobs.IsNotFound(err):
		logger.Debug("job removed before claim; skipping run")
		return nil
	case err != nil:
		return fmt.Errorf("claim job: %w", err)
	}

	r := &jobRun{o: o, logger: logger, job: job, started: time.Now()}
	err = r.execute(ctx)
	if jobs.IsNotFound(err) {
		logger.Info("job removed during run; stopping", logging.String(logging.FieldEventType, "run_abandoned"))
		return nil
	}
	return err
}

// jobRun holds transient state for one Run invocation. The store stays the
// source of truth; latest only mirrors the last persisted snapshot.
type jobRun struct {
	o       *Orchestrator
	logger  *slog.Logger
	started time.Time

	mu  sync.Mutex
	job *jobs.Job
}

func (r *jobRun) current() *jobs.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.job
}

func (r *jobRun) mutate(ctx context.Context, fn func(*jobs.Job)) (*jobs.Job, error) {
	job, err := r.o.deps.Store.Mutate(ctx, r.current().ID, func(j *jobs.Job) error {
		fn(j)
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.job = job
	r.mu.Unlock()
	return job, nil
}

func (r *jobRun) execute(ctx context.Context) error {
	job := r.current()
	r.logger.Info("subtitle job started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("video_source", string(job.VideoSource)),
		logging.Int("languages", len(job.Translations)),
	)
	r.o.report(ctx, job, nil, "Transcribing video")

	transcript, err := r.transcribe(ctx)
	if err != nil {
		return r.fail(ctx, err)
	}

	content := srt.Generate(transcript.Words, r.o.cfg.wordsPerSubtitle)
	blocks := srt.SplitBlocks(content)
	if len(blocks) == 0 {
		return r.fail(ctx, errors.New("transcript contains no subtitle words"))
	}

	if err := r.publishSource(ctx, transcript, content, len(blocks)); err != nil {
		return err
	}

	job, err = r.mutate(ctx, func(j *jobs.Job) { j.Status = jobs.StatusTranslating })
	if err != nil {
		return err
	}
	r.o.report(ctx, job, nil, "Translating subtitles")

	if err := r.translateAll(ctx, blocks); err != nil {
		return err
	}
	return r.finalize(ctx)
}

func (r *jobRun) transcribe(ctx context.Context) (*srt.Transcript, error) {
	job := r.current()
	stageCtx := services.WithStage(ctx, stageTranscription)
	start := time.Now()
	transcript, err := r.o.deps.Transcriber.Transcribe(stageCtx, job.SourceVideoURL, job.VideoSource)
	if err == nil && transcript == nil {
		err = errors.New("transcription returned no result")
	}
	if err != nil {
		return nil, err
	}
	logging.WithContext(stageCtx, r.o.logger).Info("transcription completed",
		logging.String(logging.FieldEventType, "transcription_complete"),
		logging.Int("words", len(transcript.Words)),
		logging.Duration("duration", time.Since(start)),
	)
	return transcript, nil
}

// publishSource uploads the source-language SRT and completes the matching
// translation. An upload failure only fails that translation.
func (r *jobRun) publishSource(ctx context.Context, transcript *srt.Transcript, content string, blockCount int) error {
	stageCtx := services.WithStage(ctx, stageSourceSRT)
	logger := logging.WithContext(stageCtx, r.o.logger).With(logging.String(logging.FieldLanguage, r.o.cfg.sourceCode))
	job := r.current()

	url, uploadErr := r.upload(stageCtx, job, r.o.cfg.sourceCode, content)
	if uploadErr != nil {
		logging.WarnWithContext(logger, "source subtitle upload failed", "source_upload_failed",
			logging.Error(uploadErr),
			logging.String(logging.FieldErrorHint, "check storage backend credentials and reachability"),
			logging.String(logging.FieldImpact, "source language subtitles unavailable; translations continue"),
		)
	}

	raw := transcript.Raw
	if strings.TrimSpace(raw) == "" {
		raw = transcript.Text
	}
	job, err := r.mutate(stageCtx, func(j *jobs.Job) {
		j.SourceTranscript = raw
		if uploadErr == nil {
			j.SourceSRTURL = url
		}
		tr := j.Translation(r.o.cfg.sourceCode)
		if tr == nil || tr.Status.IsTerminal() {
			return
		}
		tr.TotalSubtitles = blockCount
		if uploadErr != nil {
			tr.Status = jobs.TranslationFailed
			tr.ErrorMessage = uploadErr.Error()
			return
		}
		tr.SubtitlesProcessed = blockCount
		tr.SRTURL = url
		tr.Status = jobs.TranslationCompleted
	})
	if err != nil {
		return err
	}
	logger.Info("source subtitles generated",
		logging.String(logging.FieldEventType, "source_srt_ready"),
		logging.Int("subtitle_blocks", blockCount),
		logging.String("srt_url", job.SourceSRTURL),
	)
	r.o.report(ctx, job, job.Translation(r.o.cfg.sourceCode), "Source subtitles ready")
	return nil
}

func (r *jobRun) upload(ctx context.Context, job *jobs.Job, code, content string) (string, error) {
	url, err := r.o.deps.Storage.Upload(ctx, content, SubtitleFileName(job.SubjectID, code), job.TenantID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(url) == "" {
		return "", errors.New("storage returned an empty url")
	}
	return url, nil
}

// fail marks the whole job failed. Only fatal stages call it.
func (r *jobRun) fail(ctx context.Context, cause error) error {
	message := strings.TrimSpace(cause.Error())
	if message == "" {
		message = "transcription failed"
	}
	job, err := r.mutate(ctx, func(j *jobs.Job) { r.o.markFailed(j, message) })
	if err != nil {
		return err
	}
	logging.ErrorWithContext(r.logger, "subtitle job failed", "job_failed",
		logging.Error(cause),
		logging.String(logging.FieldErrorKind, services.Kind(cause)),
		logging.String(logging.FieldErrorHint, "verify the video url and transcription credentials, then start a new job"),
		logging.Duration("elapsed", time.Since(r.started)),
	)
	r.o.report(ctx, job, nil, message)
	r.o.notify(ctx, notifications.EventJobFailed, notifications.Payload{
		"subject": job.SubjectID,
		"error":   message,
	})
	return nil
}

// markFailed moves the job to failed and closes out unfinished translations.
func (o *Orchestrator) markFailed(j *jobs.Job, message string) {
	now := o.now()
	j.Status = jobs.StatusFailed
	j.ErrorMessage = message
	j.CompletedAt = &now
	for i := range j.Translations {
		tr := &j.Translations[i]
		if tr.Status.IsTerminal() {
			continue
		}
		tr.Status = jobs.TranslationFailed
		tr.ErrorMessage = "job failed: " + message
	}
}

func (r *jobRun) finalize(ctx context.Context) error {
	stageCtx := services.WithStage(ctx, stageFinalize)
	job, err := r.mutate(stageCtx, func(j *jobs.Job) {
		for i := range j.Translations {
			tr := &j.Translations[i]
			if !tr.Status.IsTerminal() {
				tr.Status = jobs.TranslationFailed
				tr.ErrorMessage = "translation was not attempted"
			}
		}
		now := r.o.now()
		j.Status = jobs.StatusCompleted
		j.CompletedAt = &now
	})
	if err != nil {
		return err
	}

	var completed, failed int
	var failedNames []string
	for _, tr := range job.Translations {
		if tr.Status == jobs.TranslationCompleted {
			completed++
		} else {
			failed++
			failedNames = append(failedNames, tr.Language)
		}
	}
	r.logger.Info("subtitle job completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Int("completed_languages", completed),
		logging.Int("failed_languages", failed),
		logging.Duration("elapsed", time.Since(r.started)),
	)
	r.o.report(ctx, job, nil, "Completed")
	r.o.notify(ctx, notifications.EventJobCompleted, notifications.Payload{
		"subject":         job.SubjectID,
		"completed":       completed,
		"failed":          failed,
		"failedLanguages": strings.Join(failedNames, ", "),
	})
	return nil
}
