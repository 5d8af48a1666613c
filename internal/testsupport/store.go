package testsupport

import (
	"context"
	"testing"

	"captioner/internal/config"
	"captioner/internal/jobs"
)

// MustOpenStore opens the job store for cfg and closes it when the test ends.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// MustCreateSubject upserts a subject owned by the default tenant.
func MustCreateSubject(t testing.TB, store *jobs.Store, id string) *jobs.Subject {
	t.Helper()

	subject, err := store.UpsertSubject(context.Background(), jobs.Subject{ID: id, TenantID: "default", Title: id})
	if err != nil {
		t.Fatalf("UpsertSubject: %v", err)
	}
	return subject
}

// MustCreateJob inserts a pending job for subjectID with the given language codes.
// Display names mirror the codes.
func MustCreateJob(t testing.TB, store *jobs.Store, subjectID string, codes ...string) *jobs.Job {
	t.Helper()

	req := jobs.NewJob{
		SubjectID:      subjectID,
		TenantID:       "default",
		SourceVideoURL: "https://example.com/video.mp4",
		VideoSource:    jobs.SourceDirectURL,
	}
	for _, code := range codes {
		req.Translations = append(req.Translations, jobs.NewTranslation{Language: code, LanguageCode: code})
	}
	job, err := store.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return job
}
