package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Mutate loads the job, applies fn, validates the result, and persists the
// job and its translations in one transaction. Writes to the same job are
// serialized. It returns ErrJobNotFound when the job has been deleted and
// passes through any error returned by fn without writing.
func (s *Store) Mutate(ctx context.Context, id string, fn func(*Job) error) (*Job, error) {
	ctx = ensureContext(ctx)
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	var result *Job
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		current, err := loadJob(ctx, tx, `WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrJobNotFound
		}
		next := current.Clone()
		if err := fn(next); err != nil {
			return err
		}
		if err := validateMutation(current, next); err != nil {
			return err
		}
		now := s.now()
		next.UpdatedAt = now
		for i := range next.Translations {
			if !sameTranslation(current.Translations[i], next.Translations[i]) {
				next.Translations[i].UpdatedAt = now
			}
		}
		if err := writeJob(ctx, tx, next); err != nil {
			return err
		}
		result = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Claim moves a pending job to next. It returns ErrNotClaimable when another
// worker already picked the job up or it finished, so repeated deliveries of
// the same job ID do nothing.
func (s *Store) Claim(ctx context.Context, id string, next Status) (*Job, error) {
	return s.Mutate(ctx, id, func(job *Job) error {
		if job.Status != StatusPending {
			return ErrNotClaimable
		}
		job.Status = next
		return nil
	})
}

func validateMutation(before, after *Job) error {
	if after.ID != before.ID || after.SubjectID != before.SubjectID {
		return fmt.Errorf("%w: job identity changed", ErrInvalidTransition)
	}
	if !canTransition(before.Status, after.Status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, before.Status, after.Status)
	}
	if len(after.Translations) != len(before.Translations) {
		return fmt.Errorf("%w: translation set changed", ErrInvalidTransition)
	}
	for i := range before.Translations {
		prev, curr := before.Translations[i], after.Translations[i]
		if prev.LanguageCode != curr.LanguageCode {
			return fmt.Errorf("%w: translation set changed", ErrInvalidTransition)
		}
		if prev.Status.IsTerminal() && !sameTranslation(prev, curr) {
			return fmt.Errorf("%w: translation %s already %s", ErrInvalidTransition, prev.LanguageCode, prev.Status)
		}
		if curr.SubtitlesProcessed < prev.SubtitlesProcessed || curr.TotalSubtitles < prev.TotalSubtitles {
			return fmt.Errorf("%w: translation %s counters decreased", ErrInvalidTransition, prev.LanguageCode)
		}
	}
	return nil
}

func sameTranslation(a, b Translation) bool {
	return a.Status == b.Status &&
		a.TotalSubtitles == b.TotalSubtitles &&
		a.SubtitlesProcessed == b.SubtitlesProcessed &&
		a.SRTURL == b.SRTURL &&
		a.ErrorMessage == b.ErrorMessage &&
		a.Language == b.Language
}

func writeJob(ctx context.Context, tx *sql.Tx, job *Job) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE jobs
         SET status = ?, source_transcript = ?, source_srt_url = ?, error_message = ?,
             started_at = ?, completed_at = ?, updated_at = ?
         WHERE id = ?`,
		string(job.Status),
		nullableString(job.SourceTranscript),
		nullableString(job.SourceSRTURL),
		nullableString(job.ErrorMessage),
		formatTime(job.StartedAt),
		nullableTime(job.CompletedAt),
		formatTime(job.UpdatedAt),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrJobNotFound
	}
	for _, tr := range job.Translations {
		if _, err := tx.ExecContext(ctx,
			`UPDATE translations
             SET status = ?, total_subtitles = ?, subtitles_processed = ?, srt_url = ?,
                 error_message = ?, updated_at = ?
             WHERE job_id = ? AND language_code = ?`,
			string(tr.Status),
			tr.TotalSubtitles,
			tr.SubtitlesProcessed,
			nullableString(tr.SRTURL),
			nullableString(tr.ErrorMessage),
			formatTime(tr.UpdatedAt),
			job.ID,
			tr.LanguageCode,
		); err != nil {
			return fmt.Errorf("update translation %s: %w", tr.LanguageCode, err)
		}
	}
	return nil
}

// IsNotFound reports whether err means the job no longer exists.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrJobNotFound)
}
