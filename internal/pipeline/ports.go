package pipeline

import (
	"context"

	"captioner/internal/jobs"
	"captioner/internal/progress"
	"captioner/internal/srt"
)

// Transcriber produces timestamped words for a video. Download and provider
// failures both surface as the returned error.
type Transcriber interface {
	Transcribe(ctx context.Context, videoURL string, source jobs.VideoSource) (*srt.Transcript, error)
}

// Translator translates one batch of SRT blocks into the named language,
// preserving numbering and timing lines.
type Translator interface {
	TranslateBatch(ctx context.Context, srtText, language string) (string, error)
}

// Storage persists SRT artifacts. Upload overwrites an existing file at the
// same path and returns its public URL.
type Storage interface {
	Upload(ctx context.Context, content, fileName, tenantID string) (string, error)
	Content(ctx context.Context, fileName, tenantID string) (string, bool, error)
	Delete(ctx context.Context, fileName, tenantID string) (bool, error)
}

// Reporter receives progress snapshots. Errors are logged and never fail a job.
type Reporter interface {
	Report(ctx context.Context, evt progress.Event) error
}

// JobStore persists jobs and serializes writes to a single job.
type JobStore interface {
	Create(ctx context.Context, spec jobs.NewJob) (*jobs.Job, error)
	Get(ctx context.Context, id string) (*jobs.Job, error)
	FindActive(ctx context.Context, subjectID string) (*jobs.Job, error)
	FindLatest(ctx context.Context, subjectID string) (*jobs.Job, error)
	Mutate(ctx context.Context, id string, fn func(*jobs.Job) error) (*jobs.Job, error)
	Claim(ctx context.Context, id string, next jobs.Status) (*jobs.Job, error)
}

// SubjectCatalog answers whether a training subject exists.
type SubjectCatalog interface {
	SubjectExists(ctx context.Context, id string) (bool, error)
}

// Scheduler queues Run(jobID) for asynchronous execution. Delivery may repeat.
type Scheduler interface {
	Enqueue(ctx context.Context, jobID string) error
}

var (
	_ JobStore       = (*jobs.Store)(nil)
	_ SubjectCatalog = (*jobs.Store)(nil)
	_ Reporter       = (*progress.Hub)(nil)
)
