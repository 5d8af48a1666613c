package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Create inserts a pending job with all translations pending. It returns
// ErrActiveJob when the subject already has a job in an active status.
func (s *Store) Create(ctx context.Context, req NewJob) (*Job, error) {
	if strings.TrimSpace(req.SubjectID) == "" {
		return nil, errors.New("subject id is required")
	}
	if len(req.Translations) == 0 {
		return nil, errors.New("at least one translation is required")
	}
	now := s.now()
	job := &Job{
		ID:             uuid.NewString(),
		SubjectID:      req.SubjectID,
		TenantID:       req.TenantID,
		SourceVideoURL: req.SourceVideoURL,
		VideoSource:    req.VideoSource,
		Status:         StatusPending,
		StartedAt:      now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	seen := make(map[string]struct{}, len(req.Translations))
	for _, tr := range req.Translations {
		if _, ok := seen[tr.LanguageCode]; ok {
			return nil, fmt.Errorf("duplicate translation language code %q", tr.LanguageCode)
		}
		seen[tr.LanguageCode] = struct{}{}
		job.Translations = append(job.Translations, Translation{
			Position:     len(job.Translations),
			Language:     tr.Language,
			LanguageCode: tr.LanguageCode,
			Status:       TranslationPending,
			UpdatedAt:    now,
		})
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			job.ID,
			job.SubjectID,
			job.TenantID,
			job.SourceVideoURL,
			string(job.VideoSource),
			string(job.Status),
			nil,
			nil,
			nil,
			formatTime(job.StartedAt),
			nil,
			formatTime(job.CreatedAt),
			formatTime(job.UpdatedAt),
		); err != nil {
			return err
		}
		return insertTranslations(ctx, tx, job)
	})
	if isUniqueViolation(err) {
		return nil, ErrActiveJob
	}
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

func insertTranslations(ctx context.Context, tx *sql.Tx, job *Job) error {
	for _, tr := range job.Translations {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO translations (`+translationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			job.ID,
			tr.Position,
			tr.Language,
			tr.LanguageCode,
			string(tr.Status),
			tr.TotalSubtitles,
			tr.SubtitlesProcessed,
			nullableString(tr.SRTURL),
			nullableString(tr.ErrorMessage),
			formatTime(tr.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert translation %s: %w", tr.LanguageCode, err)
		}
	}
	return nil
}

// Get fetches a job by identifier. It returns nil, nil when the job is missing.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	return loadJob(ensureContext(ctx), s.db, `WHERE id = ?`, id)
}

// FindActive returns the subject's pending or running job, if any.
func (s *Store) FindActive(ctx context.Context, subjectID string) (*Job, error) {
	args := append([]any{subjectID}, statusArgs(activeStatuses)...)
	return loadJob(ensureContext(ctx), s.db,
		`WHERE subject_id = ? AND status IN (`+makePlaceholders(len(activeStatuses))+`) ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		args...,
	)
}

// FindLatest returns the most recently created job for the subject.
func (s *Store) FindLatest(ctx context.Context, subjectID string) (*Job, error) {
	return loadJob(ensureContext(ctx), s.db,
		`WHERE subject_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		subjectID,
	)
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), newest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	ctx = ensureContext(ctx)
	base := `SELECT ` + jobColumns + ` FROM jobs`
	order := ` ORDER BY created_at DESC, rowid DESC`
	if len(statuses) == 0 {
		return loadJobs(ctx, s.db, base+order)
	}
	return loadJobs(ctx, s.db,
		base+` WHERE status IN (`+makePlaceholders(len(statuses))+`)`+order,
		statusArgs(statuses)...,
	)
}

// ListBySubject returns every job for a subject, newest first.
func (s *Store) ListBySubject(ctx context.Context, subjectID string) ([]*Job, error) {
	return loadJobs(ensureContext(ctx), s.db,
		`SELECT `+jobColumns+` FROM jobs WHERE subject_id = ? ORDER BY created_at DESC, rowid DESC`,
		subjectID,
	)
}

// PendingIDs returns pending job IDs oldest first, for re-enqueueing on startup.
func (s *Store) PendingIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT id FROM jobs WHERE status = ? ORDER BY created_at, rowid`, string(StatusPending))
	if err != nil {
		return nil, fmt.Errorf("query pending jobs: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Remove deletes a job and its translations.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes only completed jobs.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, string(StatusCompleted))
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed jobs.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, string(StatusFailed))
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}
