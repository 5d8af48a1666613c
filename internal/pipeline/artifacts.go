package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"captioner/internal/jobs"
	"captioner/internal/language"
	"captioner/internal/logging"
	"captioner/internal/services"
)

const stageArtifacts = "artifacts"

// ArtifactStore is the job store surface needed to remove jobs with their files.
type ArtifactStore interface {
	Get(ctx context.Context, id string) (*jobs.Job, error)
	List(ctx context.Context, statuses ...jobs.Status) ([]*jobs.Job, error)
	ListBySubject(ctx context.Context, subjectID string) ([]*jobs.Job, error)
	Remove(ctx context.Context, id string) (bool, error)
	ClearCompleted(ctx context.Context) (int64, error)
	ClearFailed(ctx context.Context) (int64, error)
}

var _ ArtifactStore = (*jobs.Store)(nil)

// Janitor removes jobs together with the subtitle files they published.
// File names are deterministic per subject and language, so a file is kept
// while any surviving job of the same subject and tenant still points at it.
type Janitor struct {
	store   ArtifactStore
	storage Storage
	logger  *slog.Logger
}

// RemoveResult summarizes one removal.
type RemoveResult struct {
	Removed      bool
	FilesDeleted int
	FilesKept    int
}

// NewJanitor builds a Janitor. A nil storage removes job rows only.
func NewJanitor(store ArtifactStore, storage Storage, logger *slog.Logger) *Janitor {
	return &Janitor{store: store, storage: storage, logger: logging.NewComponentLogger(logger, "janitor")}
}

// Remove deletes the job's stored files, then the job itself. A storage
// failure leaves the job in place so the removal can be retried.
func (j *Janitor) Remove(ctx context.Context, jobID string) (RemoveResult, error) {
	job, err := j.store.Get(ctx, jobID)
	if err != nil {
		return RemoveResult{}, err
	}
	if job == nil {
		return RemoveResult{}, nil
	}
	result, err := j.discard(ctx, []*jobs.Job{job})
	if err != nil {
		return result, err
	}
	removed, err := j.store.Remove(ctx, jobID)
	if err != nil {
		return result, err
	}
	result.Removed = removed
	return result, nil
}

// Clear removes every job in a terminal status along with its files and
// returns the number of jobs removed.
func (j *Janitor) Clear(ctx context.Context, status jobs.Status) (int64, RemoveResult, error) {
	var clearJobs func(context.Context) (int64, error)
	switch status {
	case jobs.StatusCompleted:
		clearJobs = j.store.ClearCompleted
	case jobs.StatusFailed:
		clearJobs = j.store.ClearFailed
	default:
		return 0, RemoveResult{}, services.Wrap(services.ErrValidation, stageArtifacts, "clear",
			fmt.Sprintf("only completed or failed jobs can be cleared, not %q", status), nil)
	}
	list, err := j.store.List(ctx, status)
	if err != nil {
		return 0, RemoveResult{}, err
	}
	result, err := j.discard(ctx, list)
	if err != nil {
		return 0, result, err
	}
	n, err := clearJobs(ctx)
	return n, result, err
}

// discard deletes the files published by doomed, skipping any that a job
// outside doomed still references.
func (j *Janitor) discard(ctx context.Context, doomed []*jobs.Job) (RemoveResult, error) {
	var result RemoveResult
	if j.storage == nil || len(doomed) == 0 {
		return result, nil
	}
	removing := make(map[string]struct{}, len(doomed))
	for _, job := range doomed {
		removing[job.ID] = struct{}{}
	}

	type artifact struct{ tenant, subject, code string }
	referenced := make(map[artifact]bool)
	loaded := make(map[string]bool)
	seen := make(map[artifact]bool)
	for _, job := range doomed {
		if !loaded[job.SubjectID] {
			loaded[job.SubjectID] = true
			siblings, err := j.store.ListBySubject(ctx, job.SubjectID)
			if err != nil {
				return result, err
			}
			for _, sibling := range siblings {
				if _, gone := removing[sibling.ID]; gone {
					continue
				}
				for _, tr := range sibling.Translations {
					if tr.SRTURL != "" {
						referenced[artifact{sibling.TenantID, sibling.SubjectID, tr.LanguageCode}] = true
					}
				}
			}
		}

		for _, tr := range job.Translations {
			if tr.SRTURL == "" {
				continue
			}
			key := artifact{job.TenantID, job.SubjectID, tr.LanguageCode}
			if seen[key] {
				continue
			}
			seen[key] = true
			if referenced[key] {
				result.FilesKept++
				continue
			}
			fileName := SubtitleFileName(job.SubjectID, tr.LanguageCode)
			deleted, err := j.storage.Delete(ctx, fileName, job.TenantID)
			if err != nil {
				return result, fmt.Errorf("delete %s: %w", fileName, err)
			}
			if deleted {
				result.FilesDeleted++
			}
			j.logger.Debug("subtitle file discarded",
				logging.String(logging.FieldJobID, job.ID),
				logging.String(logging.FieldLanguage, tr.LanguageCode),
				logging.Bool("existed", deleted),
			)
		}
	}
	return result, nil
}

// Subtitle returns the stored SRT for one language of the subject's latest
// job. Languages may be given by name or code.
func (o *Orchestrator) Subtitle(ctx context.Context, subjectID, lang string) (string, error) {
	job, err := o.deps.Store.FindLatest(ctx, subjectID)
	if err != nil {
		return "", err
	}
	if job == nil {
		return "", services.Wrap(services.ErrNotFound, stageArtifacts, "subtitle",
			fmt.Sprintf("no subtitle job for subject %q", subjectID), nil)
	}
	code := language.Resolve(lang)
	tr := job.Translation(code)
	if tr == nil {
		return "", services.Wrap(services.ErrNotFound, stageArtifacts, "subtitle",
			fmt.Sprintf("subject %q has no %s subtitles", subjectID, code), nil)
	}
	if tr.Status != jobs.TranslationCompleted {
		return "", services.Wrap(services.ErrNotFound, stageArtifacts, "subtitle",
			fmt.Sprintf("%s subtitles for %q are %s", code, subjectID, tr.Status), nil)
	}
	content, found, err := o.deps.Storage.Content(ctx, SubtitleFileName(subjectID, code), job.TenantID)
	if err != nil {
		return "", err
	}
	if !found {
		return "", services.Wrap(services.ErrNotFound, stageArtifacts, "subtitle",
			fmt.Sprintf("%s subtitles for %q are missing from storage", code, subjectID), nil)
	}
	return content, nil
}
