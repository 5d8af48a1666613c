package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"captioner/internal/jobs"
	"captioner/internal/pipeline"
	"captioner/internal/services"
)

func (h *harness) startAndRun(t *testing.T, subjectID string, languages ...string) string {
	t.Helper()
	id := h.start(t, subjectID, languages...)
	if err := h.orch.Run(context.Background(), id); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return id
}

func TestSubtitleReadsLatestCompletedFile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.start(t, "course-1", "Spanish")

	if _, err := h.orch.Subtitle(ctx, "course-1", "es"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found while pending, got %v", err)
	}
	if err := h.orch.Run(ctx, id); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want, _, _ := h.storage.Content(ctx, pipeline.SubtitleFileName("course-1", "es"), "default")
	for _, lang := range []string{"Spanish", "es"} {
		got, err := h.orch.Subtitle(ctx, "course-1", lang)
		if err != nil {
			t.Fatalf("Subtitle(%s): %v", lang, err)
		}
		if got != want || got == "" {
			t.Fatalf("Subtitle(%s) = %q, want %q", lang, got, want)
		}
	}
	if _, err := h.orch.Subtitle(ctx, "course-1", "French"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for unrequested language, got %v", err)
	}
	if _, err := h.orch.Subtitle(ctx, "nope", "es"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for unknown subject, got %v", err)
	}

	if _, err := h.storage.Delete(ctx, pipeline.SubtitleFileName("course-1", "es"), "default"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := h.orch.Subtitle(ctx, "course-1", "es"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found once the file is gone, got %v", err)
	}
}

func TestJanitorRemoveKeepsFilesSharedWithNewerJob(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	older := h.startAndRun(t, "course-1", "Spanish")
	newer := h.startAndRun(t, "course-1", "Spanish")
	if got := h.storage.Count(); got != 2 {
		t.Fatalf("expected 2 stored files, got %d", got)
	}

	janitor := pipeline.NewJanitor(h.store, h.storage, nil)
	result, err := janitor.Remove(ctx, older)
	if err != nil {
		t.Fatalf("Remove older: %v", err)
	}
	if !result.Removed || result.FilesDeleted != 0 || result.FilesKept != 2 {
		t.Fatalf("unexpected result for older job: %+v", result)
	}
	if got := h.storage.Count(); got != 2 {
		t.Fatalf("files referenced by the newer job were deleted, %d left", got)
	}

	result, err = janitor.Remove(ctx, newer)
	if err != nil {
		t.Fatalf("Remove newer: %v", err)
	}
	if !result.Removed || result.FilesDeleted != 2 {
		t.Fatalf("unexpected result for newer job: %+v", result)
	}
	if got := h.storage.Count(); got != 0 {
		t.Fatalf("expected storage to be empty, %d files left", got)
	}

	result, err = janitor.Remove(ctx, "missing")
	if err != nil || result.Removed {
		t.Fatalf("Remove missing = %+v, %v", result, err)
	}
}

func TestJanitorStorageFailureKeepsJob(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := h.startAndRun(t, "course-1", "Spanish")
	h.storage.deleteErr = errors.New("storage offline")

	janitor := pipeline.NewJanitor(h.store, h.storage, nil)
	if _, err := janitor.Remove(ctx, id); err == nil {
		t.Fatal("expected storage error")
	}
	h.mustGet(t, id)
}

func TestJanitorClear(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.startAndRun(t, "course-1", "Spanish")
	h.startAndRun(t, "course-2", "French")
	pending := h.start(t, "course-3", "German")

	janitor := pipeline.NewJanitor(h.store, h.storage, nil)
	n, result, err := janitor.Clear(ctx, jobs.StatusCompleted)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 2 || result.FilesDeleted != 4 {
		t.Fatalf("expected 2 jobs and 4 files cleared, got %d jobs %+v", n, result)
	}
	if got := h.storage.Count(); got != 0 {
		t.Fatalf("expected no stored files, got %d", got)
	}
	h.mustGet(t, pending)

	if _, _, err := janitor.Clear(ctx, jobs.StatusPending); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for pending, got %v", err)
	}
}
