package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"captioner/internal/jobs"
	"captioner/internal/logging"
	"captioner/internal/services"
	"captioner/internal/srt"
)

var errEmptyTranslation = errors.New("translator returned empty content")

// translateAll runs every pending translation, up to translationWorkers at a
// time. Per-language failures are recorded on the job; the returned error is
// limited to persistence failures.
func (r *jobRun) translateAll(ctx context.Context, blocks []string) error {
	var pending []jobs.Translation
	for _, tr := range r.current().Translations {
		if tr.Status == jobs.TranslationPending {
			pending = append(pending, tr)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	// A plain Group does not cancel siblings, so one language failing its
	// persistence never stops the others.
	var g errgroup.Group
	g.SetLimit(r.o.cfg.translationWorkers)
	for _, target := range pending {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			return r.translateOne(ctx, target, blocks)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (r *jobRun) translateOne(ctx context.Context, target jobs.Translation, blocks []string) error {
	code := target.LanguageCode
	ctx = services.WithStage(ctx, stageTranslation)
	logger := logging.WithContext(ctx, r.o.logger).With(logging.String(logging.FieldLanguage, code))
	batches := srt.Batches(blocks, r.o.cfg.batchSize)
	start := time.Now()

	job, err := r.mutate(ctx, func(j *jobs.Job) {
		tr := j.Translation(code)
		tr.Status = jobs.TranslationInProgress
		tr.TotalSubtitles = len(blocks)
	})
	if err != nil {
		return err
	}
	r.o.report(ctx, job, job.Translation(code), "Translating "+target.Language)
	logger.Debug("translation started",
		logging.Int("batches", len(batches)),
		logging.Int("subtitle_blocks", len(blocks)),
	)

	parts := make([]string, 0, len(batches))
	for _, batch := range batches {
		text, err := r.translateBatch(ctx, logger, batch, target.Language)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return r.failTranslation(ctx, logger, code,
				fmt.Errorf("batch %d of %d: %w", batch.Index+1, len(batches), err))
		}
		parts = append(parts, text)

		count := batch.Count()
		job, err = r.mutate(ctx, func(j *jobs.Job) {
			j.Translation(code).SubtitlesProcessed += count
		})
		if err != nil {
			return err
		}
		r.o.report(ctx, job, job.Translation(code), "")
	}

	url, err := r.upload(ctx, job, code, srt.Concat(parts))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return r.failTranslation(ctx, logger, code, fmt.Errorf("upload: %w", err))
	}

	job, err = r.mutate(ctx, func(j *jobs.Job) {
		tr := j.Translation(code)
		tr.SRTURL = url
		tr.TotalSubtitles = tr.SubtitlesProcessed
		tr.Status = jobs.TranslationCompleted
	})
	if err != nil {
		return err
	}
	logger.Info("translation completed",
		logging.String(logging.FieldEventType, "translation_complete"),
		logging.String("srt_url", url),
		logging.Duration("duration", time.Since(start)),
	)
	r.o.report(ctx, job, job.Translation(code), target.Language+" ready")
	return nil
}

// translateBatch calls the translator, retrying up to batchRetries times.
// Blank output counts as a failure.
func (r *jobRun) translateBatch(ctx context.Context, logger *slog.Logger, batch srt.Batch, language string) (string, error) {
	attempts := 1 + max(r.o.cfg.batchRetries, 0)
	for attempt := 1; ; attempt++ {
		text, err := r.o.deps.Translator.TranslateBatch(ctx, batch.Text(), language)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errEmptyTranslation
		}
		if err == nil {
			return text, nil
		}
		if attempt >= attempts || ctx.Err() != nil {
			return "", err
		}
		delay := r.o.cfg.batchRetryDelay * time.Duration(attempt)
		logger.Debug("translation batch failed; retrying",
			logging.Int("batch", batch.Index+1),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
		}
	}
}

func (r *jobRun) failTranslation(ctx context.Context, logger *slog.Logger, code string, cause error) error {
	job, err := r.mutate(ctx, func(j *jobs.Job) {
		tr := j.Translation(code)
		tr.Status = jobs.TranslationFailed
		tr.ErrorMessage = cause.Error()
	})
	if err != nil {
		return err
	}
	logging.WarnWithContext(logger, "translation failed", "translation_failed",
		logging.Error(cause),
		logging.String(logging.FieldErrorKind, services.Kind(cause)),
		logging.String(logging.FieldErrorHint, "check translation provider status; start a new job to retry"),
		logging.String(logging.FieldImpact, "subtitles for this language unavailable"),
	)
	tr := job.Translation(code)
	r.o.report(ctx, job, tr, tr.Language+" failed")
	return nil
}
