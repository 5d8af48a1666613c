package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"captioner/internal/jobs"
)

// StatusView is the user-facing progress of a subject's latest job.
type StatusView struct {
	JobID             string            `json:"job_id"`
	SubjectID         string            `json:"subject_id"`
	Status            jobs.Status       `json:"status"`
	CurrentStep       string            `json:"current_step"`
	OverallPercentage int               `json:"overall_percentage"`
	SourceSRTURL      string            `json:"source_srt_url,omitempty"`
	ErrorMessage      string            `json:"error_message,omitempty"`
	StartedAt         time.Time         `json:"started_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	Translations      []TranslationView `json:"translations"`
}

// TranslationView is one language entry within a StatusView.
type TranslationView struct {
	Language           string                 `json:"language"`
	LanguageCode       string                 `json:"language_code"`
	Status             jobs.TranslationStatus `json:"status"`
	Percentage         int                    `json:"percentage"`
	SubtitlesProcessed int                    `json:"subtitles_processed"`
	TotalSubtitles     int                    `json:"total_subtitles"`
	SRTURL             string                 `json:"srt_url,omitempty"`
	ErrorMessage       string                 `json:"error_message,omitempty"`
}

// Status returns the view of the most recently created job for subjectID.
// The boolean is false when the subject has no jobs.
func (o *Orchestrator) Status(ctx context.Context, subjectID string) (StatusView, bool, error) {
	job, err := o.deps.Store.FindLatest(ctx, strings.TrimSpace(subjectID))
	if err != nil {
		return StatusView{}, false, fmt.Errorf("find latest job: %w", err)
	}
	if job == nil {
		return StatusView{}, false, nil
	}
	return NewStatusView(job), true, nil
}

// NewStatusView derives the progress view for a job.
func NewStatusView(job *jobs.Job) StatusView {
	view := StatusView{
		JobID:             job.ID,
		SubjectID:         job.SubjectID,
		Status:            job.Status,
		CurrentStep:       CurrentStep(job.Status),
		OverallPercentage: OverallPercentage(job),
		SourceSRTURL:      job.SourceSRTURL,
		ErrorMessage:      job.ErrorMessage,
		StartedAt:         job.StartedAt,
		CompletedAt:       job.CompletedAt,
		Translations:      make([]TranslationView, 0, len(job.Translations)),
	}
	for _, tr := range job.Translations {
		view.Translations = append(view.Translations, TranslationView{
			Language:           tr.Language,
			LanguageCode:       tr.LanguageCode,
			Status:             tr.Status,
			Percentage:         TranslationPercentage(tr),
			SubtitlesProcessed: tr.SubtitlesProcessed,
			TotalSubtitles:     tr.TotalSubtitles,
			SRTURL:             tr.SRTURL,
			ErrorMessage:       tr.ErrorMessage,
		})
	}
	return view
}

// OverallPercentage maps job state onto the progress bar:
// pending 0, transcribing 15, translating 15 plus 80 times the terminal
// translation share (floored), completed and failed 100. The job status
// alone decides 100; finished translations on a translating job cap at 95.
func OverallPercentage(job *jobs.Job) int {
	if job == nil {
		return 0
	}
	switch job.Status {
	case jobs.StatusPending:
		return 0
	case jobs.StatusTranscribing:
		return 15
	case jobs.StatusTranslating:
		total := len(job.Translations)
		if total == 0 {
			return 15
		}
		return 15 + (80*job.TerminalTranslations())/total
	case jobs.StatusCompleted, jobs.StatusFailed:
		return 100
	}
	return 0
}

// TranslationPercentage reports one language's progress from its counters.
func TranslationPercentage(tr jobs.Translation) int {
	if tr.Status == jobs.TranslationCompleted {
		return 100
	}
	if tr.TotalSubtitles <= 0 {
		return 0
	}
	pct := (100 * tr.SubtitlesProcessed) / tr.TotalSubtitles
	return min(pct, 100)
}

// CurrentStep returns a short label for the job's stage.
func CurrentStep(status jobs.Status) string {
	switch status {
	case jobs.StatusPending:
		return "Queued"
	case jobs.StatusTranscribing:
		return "Transcribing video"
	case jobs.StatusTranslating:
		return "Translating subtitles"
	case jobs.StatusCompleted:
		return "Completed"
	case jobs.StatusFailed:
		return "Failed"
	}
	return string(status)
}
