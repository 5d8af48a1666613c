package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a processing job.
type Status string

const (
	StatusPending      Status = "pending"
	StatusTranscribing Status = "transcribing"
	StatusTranslating  Status = "translating"
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
)

// DaemonStopReason is the error message set when jobs are failed due to daemon shutdown.
const DaemonStopReason = "Daemon stopped"

var allStatuses = []Status{
	StatusPending,
	StatusTranscribing,
	StatusTranslating,
	StatusCompleted,
	StatusFailed,
}

var activeStatuses = []Status{StatusPending, StatusTranscribing, StatusTranslating}

// AllStatuses returns every known job status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a user supplied string into a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsActive reports whether the status blocks a new job for the same subject.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusTranscribing || s == StatusTranslating
}

// IsTerminal reports whether the job has finished.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

var jobTransitions = map[Status][]Status{
	StatusPending:      {StatusTranscribing, StatusFailed},
	StatusTranscribing: {StatusTranslating, StatusFailed},
	StatusTranslating:  {StatusCompleted, StatusFailed},
}

func canTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, next := range jobTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TranslationStatus tracks one language within a job.
type TranslationStatus string

const (
	TranslationPending    TranslationStatus = "pending"
	TranslationInProgress TranslationStatus = "in_progress"
	TranslationCompleted  TranslationStatus = "completed"
	TranslationFailed     TranslationStatus = "failed"
)

// IsTerminal reports whether the translation reached completed or failed.
func (s TranslationStatus) IsTerminal() bool {
	return s == TranslationCompleted || s == TranslationFailed
}

// VideoSource identifies how the source video is fetched.
type VideoSource string

const (
	SourceDirectURL  VideoSource = "direct_url"
	SourceCloudDrive VideoSource = "cloud_drive"
)

// ParseVideoSource accepts canonical names plus a few common spellings.
// An empty value defaults to SourceDirectURL.
func ParseVideoSource(value string) (VideoSource, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "direct_url", "directurl", "direct", "url":
		return SourceDirectURL, true
	case "cloud_drive", "clouddrive", "drive", "google_drive", "gdrive":
		return SourceCloudDrive, true
	}
	return "", false
}

// Translation is one target language within a job.
type Translation struct {
	Position           int
	Language           string
	LanguageCode       string
	Status             TranslationStatus
	TotalSubtitles     int
	SubtitlesProcessed int
	SRTURL             string
	ErrorMessage       string
	UpdatedAt          time.Time
}

// Job is one end-to-end attempt to subtitle a subject's video.
type Job struct {
	ID               string
	SubjectID        string
	TenantID         string
	SourceVideoURL   string
	VideoSource      VideoSource
	Status           Status
	SourceTranscript string
	SourceSRTURL     string
	ErrorMessage     string
	StartedAt        time.Time
	CompletedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Translations     []Translation
}

// Translation returns the translation for a language code, or nil.
func (j *Job) Translation(code string) *Translation {
	if j == nil {
		return nil
	}
	for i := range j.Translations {
		if j.Translations[i].LanguageCode == code {
			return &j.Translations[i]
		}
	}
	return nil
}

// TerminalTranslations counts translations that are completed or failed.
func (j *Job) TerminalTranslations() int {
	if j == nil {
		return 0
	}
	count := 0
	for _, tr := range j.Translations {
		if tr.Status.IsTerminal() {
			count++
		}
	}
	return count
}

// Clone returns a deep copy so callers can compare before and after a mutation.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	clone := *j
	if j.CompletedAt != nil {
		completed := *j.CompletedAt
		clone.CompletedAt = &completed
	}
	clone.Translations = append([]Translation(nil), j.Translations...)
	return &clone
}

// NewJob describes a job to create.
type NewJob struct {
	SubjectID      string
	TenantID       string
	SourceVideoURL string
	VideoSource    VideoSource
	Translations   []NewTranslation
}

// NewTranslation is a target language resolved at creation time.
type NewTranslation struct {
	Language     string
	LanguageCode string
}

// Subject is a training item that videos are subtitled for.
type Subject struct {
	ID        string
	TenantID  string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DatabaseHealth captures diagnostic information about the job database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    int
	TablesPresent    []string
	MissingTables    []string
	IntegrityCheck   bool
	TotalJobs        int
	Error            string
}
