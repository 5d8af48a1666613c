package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const jobColumns = "id, subject_id, tenant_id, source_video_url, video_source, status, source_transcript, source_srt_url, error_message, started_at, completed_at, created_at, updated_at"

const translationColumns = "job_id, position, language, language_code, status, total_subtitles, subtitles_processed, srt_url, error_message, updated_at"

// timeLayout is fixed width so text ordering in SQLite matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type rowScanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanJob(scanner rowScanner) (*Job, error) {
	var (
		job          Job
		videoSource  string
		status       string
		transcript   sql.NullString
		sourceSRTURL sql.NullString
		errorMessage sql.NullString
		startedRaw   sql.NullString
		completedRaw sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&job.ID,
		&job.SubjectID,
		&job.TenantID,
		&job.SourceVideoURL,
		&videoSource,
		&status,
		&transcript,
		&sourceSRTURL,
		&errorMessage,
		&startedRaw,
		&completedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	job.VideoSource = VideoSource(videoSource)
	job.Status = Status(status)
	job.SourceTranscript = transcript.String
	job.SourceSRTURL = sourceSRTURL.String
	job.ErrorMessage = errorMessage.String
	if t, err := parseTimeString(startedRaw.String); err == nil {
		job.StartedAt = t
	}
	if completedRaw.Valid {
		if t, err := parseTimeString(completedRaw.String); err == nil {
			job.CompletedAt = &t
		}
	}
	if t, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = t
	}
	return &job, nil
}

func scanTranslation(scanner rowScanner) (string, Translation, error) {
	var (
		jobID        string
		tr           Translation
		status       string
		srtURL       sql.NullString
		errorMessage sql.NullString
		updatedRaw   string
	)
	if err := scanner.Scan(
		&jobID,
		&tr.Position,
		&tr.Language,
		&tr.LanguageCode,
		&status,
		&tr.TotalSubtitles,
		&tr.SubtitlesProcessed,
		&srtURL,
		&errorMessage,
		&updatedRaw,
	); err != nil {
		return "", Translation{}, err
	}
	tr.Status = TranslationStatus(status)
	tr.SRTURL = srtURL.String
	tr.ErrorMessage = errorMessage.String
	if t, err := parseTimeString(updatedRaw); err == nil {
		tr.UpdatedAt = t
	}
	return jobID, tr, nil
}

// loadJob reads one job and its translations. It returns nil, nil when the
// row does not exist.
func loadJob(ctx context.Context, q queryer, where string, args ...any) (*Job, error) {
	row := q.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs `+where, args...)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if err := attachTranslations(ctx, q, []*Job{job}); err != nil {
		return nil, err
	}
	return job, nil
}

func loadJobs(ctx context.Context, q queryer, query string, args ...any) ([]*Job, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	if err := attachTranslations(ctx, q, jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func attachTranslations(ctx context.Context, q queryer, jobs []*Job) error {
	if len(jobs) == 0 {
		return nil
	}
	index := make(map[string]*Job, len(jobs))
	args := make([]any, 0, len(jobs))
	for _, job := range jobs {
		index[job.ID] = job
		args = append(args, job.ID)
	}
	rows, err := q.QueryContext(ctx,
		`SELECT `+translationColumns+` FROM translations WHERE job_id IN (`+makePlaceholders(len(args))+`) ORDER BY job_id, position`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("query translations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		jobID, tr, err := scanTranslation(rows)
		if err != nil {
			return fmt.Errorf("scan translation: %w", err)
		}
		if job, ok := index[jobID]; ok {
			job.Translations = append(job.Translations, tr)
		}
	}
	return rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func statusArgs(statuses []Status) []any {
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = string(status)
	}
	return args
}
