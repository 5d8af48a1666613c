package httpapi

import (
	"time"

	"captioner/internal/jobs"
	"captioner/internal/pipeline"
	"captioner/internal/progress"
	"captioner/internal/scheduler"
)

// StartRequest is the body of POST /api/subjects/{subjectID}/subtitles.
type StartRequest struct {
	VideoURL    string   `json:"video_url"`
	VideoSource string   `json:"video_source,omitempty"`
	Languages   []string `json:"languages"`
	TenantID    string   `json:"tenant_id,omitempty"`
}

// StartResponse acknowledges an accepted job.
type StartResponse struct {
	JobID string `json:"job_id"`
}

// SubjectRequest is the body of PUT /api/subjects/{subjectID}.
type SubjectRequest struct {
	TenantID string `json:"tenant_id,omitempty"`
	Title    string `json:"title,omitempty"`
}

// SubjectResponse describes a stored subject.
type SubjectResponse struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TranslationResponse is one language of a job record.
type TranslationResponse struct {
	Language           string `json:"language"`
	LanguageCode       string `json:"language_code"`
	Status             string `json:"status"`
	Percentage         int    `json:"percentage"`
	SubtitlesProcessed int    `json:"subtitles_processed"`
	TotalSubtitles     int    `json:"total_subtitles"`
	SRTURL             string `json:"srt_url,omitempty"`
	ErrorMessage       string `json:"error_message,omitempty"`
}

// JobResponse is the full job record.
type JobResponse struct {
	ID                string                `json:"id"`
	SubjectID         string                `json:"subject_id"`
	TenantID          string                `json:"tenant_id"`
	SourceVideoURL    string                `json:"source_video_url"`
	VideoSource       string                `json:"video_source"`
	Status            string                `json:"status"`
	CurrentStep       string                `json:"current_step"`
	OverallPercentage int                   `json:"overall_percentage"`
	SourceSRTURL      string                `json:"source_srt_url,omitempty"`
	ErrorMessage      string                `json:"error_message,omitempty"`
	StartedAt         time.Time             `json:"started_at"`
	CompletedAt       *time.Time            `json:"completed_at,omitempty"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
	Translations      []TranslationResponse `json:"translations"`
	// SourceTranscript is omitted from list responses.
	SourceTranscript string `json:"source_transcript,omitempty"`
}

// JobListResponse wraps GET /api/jobs.
type JobListResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// EventsResponse wraps GET /api/jobs/{jobID}/events.
type EventsResponse struct {
	Events []progress.Event `json:"events"`
	Next   uint64           `json:"next"`
}

// DaemonStatus is the payload of GET /api/status.
type DaemonStatus struct {
	Running       bool            `json:"running"`
	PID           int             `json:"pid"`
	StartedAt     time.Time       `json:"started_at"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	DBPath        string          `json:"db_path,omitempty"`
	Jobs          map[string]int  `json:"jobs"`
	Scheduler     scheduler.Stats `json:"scheduler"`
}

// NewJobResponse converts a job record into its API shape.
func NewJobResponse(job *jobs.Job, withTranscript bool) JobResponse {
	resp := JobResponse{
		ID:                job.ID,
		SubjectID:         job.SubjectID,
		TenantID:          job.TenantID,
		SourceVideoURL:    job.SourceVideoURL,
		VideoSource:       string(job.VideoSource),
		Status:            string(job.Status),
		CurrentStep:       pipeline.CurrentStep(job.Status),
		OverallPercentage: pipeline.OverallPercentage(job),
		SourceSRTURL:      job.SourceSRTURL,
		ErrorMessage:      job.ErrorMessage,
		StartedAt:         job.StartedAt,
		CompletedAt:       job.CompletedAt,
		CreatedAt:         job.CreatedAt,
		UpdatedAt:         job.UpdatedAt,
		Translations:      make([]TranslationResponse, 0, len(job.Translations)),
	}
	if withTranscript {
		resp.SourceTranscript = job.SourceTranscript
	}
	for _, tr := range job.Translations {
		resp.Translations = append(resp.Translations, TranslationResponse{
			Language:           tr.Language,
			LanguageCode:       tr.LanguageCode,
			Status:             string(tr.Status),
			Percentage:         pipeline.TranslationPercentage(tr),
			SubtitlesProcessed: tr.SubtitlesProcessed,
			TotalSubtitles:     tr.TotalSubtitles,
			SRTURL:             tr.SRTURL,
			ErrorMessage:       tr.ErrorMessage,
		})
	}
	return resp
}

func newSubjectResponse(subject *jobs.Subject) SubjectResponse {
	return SubjectResponse{
		ID:        subject.ID,
		TenantID:  subject.TenantID,
		Title:     subject.Title,
		CreatedAt: subject.CreatedAt,
		UpdatedAt: subject.UpdatedAt,
	}
}
