package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// UpsertSubject creates a subject or updates its tenant and title.
func (s *Store) UpsertSubject(ctx context.Context, subject Subject) (*Subject, error) {
	subject.ID = strings.TrimSpace(subject.ID)
	if subject.ID == "" {
		return nil, errors.New("subject id is required")
	}
	now := formatTime(s.now())
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO subjects (id, tenant_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (id) DO UPDATE SET tenant_id = excluded.tenant_id, title = excluded.title, updated_at = excluded.updated_at`,
		subject.ID,
		subject.TenantID,
		nullableString(subject.Title),
		now,
		now,
	); err != nil {
		return nil, fmt.Errorf("upsert subject: %w", err)
	}
	return s.GetSubject(ctx, subject.ID)
}

// GetSubject returns the subject or nil, nil when it does not exist.
func (s *Store) GetSubject(ctx context.Context, id string) (*Subject, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT id, tenant_id, title, created_at, updated_at FROM subjects WHERE id = ?`, id)
	subject, err := scanSubject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subject: %w", err)
	}
	return subject, nil
}

// SubjectExists reports whether a subject row exists.
func (s *Store) SubjectExists(ctx context.Context, id string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM subjects WHERE id = ?`, id).Scan(&count); err != nil {
		return false, fmt.Errorf("check subject: %w", err)
	}
	return count > 0, nil
}

// ListSubjects returns subjects ordered by id, optionally limited to a tenant.
func (s *Store) ListSubjects(ctx context.Context, tenantID string) ([]*Subject, error) {
	query := `SELECT id, tenant_id, title, created_at, updated_at FROM subjects`
	var args []any
	if tenantID != "" {
		query += ` WHERE tenant_id = ?`
		args = append(args, tenantID)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()
	var subjects []*Subject
	for rows.Next() {
		subject, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, subject)
	}
	return subjects, rows.Err()
}

func scanSubject(scanner rowScanner) (*Subject, error) {
	var (
		subject    Subject
		title      sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&subject.ID, &subject.TenantID, &title, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	subject.Title = title.String
	if t, err := parseTimeString(createdRaw); err == nil {
		subject.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		subject.UpdatedAt = t
	}
	return &subject, nil
}
