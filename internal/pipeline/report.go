package pipeline

import (
	"context"
	"errors"

	"captioner/internal/jobs"
	"captioner/internal/logging"
	"captioner/internal/notifications"
	"captioner/internal/progress"
)

// report pushes a progress snapshot. Reporter errors are logged only.
func (o *Orchestrator) report(ctx context.Context, job *jobs.Job, tr *jobs.Translation, message string) {
	if o.deps.Reporter == nil || job == nil {
		return
	}
	evt := progress.Event{
		JobID:             job.ID,
		SubjectID:         job.SubjectID,
		Status:            string(job.Status),
		OverallPercentage: OverallPercentage(job),
		Message:           message,
	}
	if tr != nil {
		evt.Language = tr.Language
		evt.LanguageCode = tr.LanguageCode
		evt.TranslationStatus = string(tr.Status)
		evt.Processed = tr.SubtitlesProcessed
		evt.Total = tr.TotalSubtitles
	}
	if err := o.deps.Reporter.Report(ctx, evt); err != nil {
		logging.WithContext(ctx, o.logger).Debug("progress report failed", logging.Error(err))
	}
}

// notify publishes a best-effort notification.
func (o *Orchestrator) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := o.deps.Notifier.Publish(ctx, event, payload); err != nil {
		logger := logging.WithContext(ctx, o.logger)
		if errors.Is(err, context.Canceled) {
			logger.Debug("daemon shutting down, could not send notification")
			return
		}
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.Error(err),
			logging.String("notification", string(event)),
			logging.String(logging.FieldErrorHint, "check ntfy topic url and network access"),
			logging.String(logging.FieldImpact, "operator will not be alerted for this job"),
		)
	}
}
