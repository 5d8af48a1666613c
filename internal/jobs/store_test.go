package jobs_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"captioner/internal/jobs"
	"captioner/internal/testsupport"
)

func TestCreateAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.MustCreateJob(t, store, "subject-1", "en", "es")
	if job.ID == "" {
		t.Fatal("expected job ID to be assigned")
	}
	if job.Status != jobs.StatusPending {
		t.Fatalf("expected pending, got %s", job.Status)
	}

	fetched, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched == nil || fetched.SubjectID != "subject-1" {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}
	if len(fetched.Translations) != 2 {
		t.Fatalf("expected 2 translations, got %d", len(fetched.Translations))
	}
	for i, tr := range fetched.Translations {
		if tr.Position != i || tr.Status != jobs.TranslationPending {
			t.Fatalf("unexpected translation %d: %#v", i, tr)
		}
	}
	if fetched.StartedAt.IsZero() || fetched.CompletedAt != nil {
		t.Fatalf("unexpected timestamps: started=%v completed=%v", fetched.StartedAt, fetched.CompletedAt)
	}
}

func TestGetMissingReturnsNil(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	job, err := store.Get(context.Background(), "missing")
	if err != nil || job != nil {
		t.Fatalf("expected nil, nil; got %v, %v", job, err)
	}
}

func TestCreateRejectsSecondActiveJob(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := testsupport.MustCreateJob(t, store, "subject-1", "en")
	_, err := store.Create(ctx, jobs.NewJob{
		SubjectID:    "subject-1",
		VideoSource:  jobs.SourceDirectURL,
		Translations: []jobs.NewTranslation{{Language: "English", LanguageCode: "en"}},
	})
	if !errors.Is(err, jobs.ErrActiveJob) {
		t.Fatalf("expected ErrActiveJob, got %v", err)
	}

	if _, err := store.Mutate(ctx, first.ID, func(job *jobs.Job) error {
		job.Status = jobs.StatusFailed
		return nil
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}

	testsupport.MustCreateJob(t, store, "subject-1", "en")
	testsupport.MustCreateJob(t, store, "subject-2", "en")
}

func TestCreateRejectsDuplicateCodes(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	_, err := store.Create(context.Background(), jobs.NewJob{
		SubjectID: "subject-1",
		Translations: []jobs.NewTranslation{
			{Language: "English", LanguageCode: "en"},
			{Language: "english", LanguageCode: "en"},
		},
	})
	if err == nil {
		t.Fatal("expected error for duplicate codes")
	}
}

func TestFindActiveAndLatest(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := testsupport.MustCreateJob(t, store, "subject-1", "en")
	if _, err := store.Mutate(ctx, first.ID, func(job *jobs.Job) error {
		job.Status = jobs.StatusFailed
		return nil
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	active, err := store.FindActive(ctx, "subject-1")
	if err != nil || active != nil {
		t.Fatalf("expected no active job, got %v, %v", active, err)
	}

	second := testsupport.MustCreateJob(t, store, "subject-1", "en")
	active, err = store.FindActive(ctx, "subject-1")
	if err != nil || active == nil || active.ID != second.ID {
		t.Fatalf("expected active job %s, got %v, %v", second.ID, active, err)
	}

	latest, err := store.FindLatest(ctx, "subject-1")
	if err != nil || latest == nil || latest.ID != second.ID {
		t.Fatalf("expected latest job %s, got %v, %v", second.ID, latest, err)
	}

	none, err := store.FindLatest(ctx, "subject-unknown")
	if err != nil || none != nil {
		t.Fatalf("expected nil for unknown subject, got %v, %v", none, err)
	}
}

func TestMutatePersistsTranslationProgress(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.MustCreateJob(t, store, "subject-1", "en", "es")

	updated, err := store.Mutate(ctx, job.ID, func(j *jobs.Job) error {
		j.Status = jobs.StatusTranscribing
		tr := j.Translation("es")
		tr.Status = jobs.TranslationInProgress
		tr.TotalSubtitles = 10
		tr.SubtitlesProcessed = 4
		return nil
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if updated.Translation("es").SubtitlesProcessed != 4 {
		t.Fatalf("unexpected returned job: %#v", updated.Translation("es"))
	}

	fetched, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	es := fetched.Translation("es")
	if fetched.Status != jobs.StatusTranscribing || es.Status != jobs.TranslationInProgress || es.SubtitlesProcessed != 4 || es.TotalSubtitles != 10 {
		t.Fatalf("unexpected persisted state: %s %#v", fetched.Status, es)
	}
}

func TestMutateRejectsInvalidChanges(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.MustCreateJob(t, store, "subject-1", "en", "es")

	if _, err := store.Mutate(ctx, job.ID, func(j *jobs.Job) error {
		j.Translation("es").SubtitlesProcessed = 5
		j.Translation("en").Status = jobs.TranslationCompleted
		return nil
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}

	cases := map[string]func(*jobs.Job){
		"counter decrease": func(j *jobs.Job) { j.Translation("es").SubtitlesProcessed = 2 },
		"reopen terminal":  func(j *jobs.Job) { j.Translation("en").Status = jobs.TranslationInProgress },
		"skip to complete": func(j *jobs.Job) { j.Status = jobs.StatusCompleted },
		"drop translation": func(j *jobs.Job) { j.Translations = j.Translations[:1] },
	}
	for name, mutate := range cases {
		_, err := store.Mutate(ctx, job.ID, func(j *jobs.Job) error {
			mutate(j)
			return nil
		})
		if !errors.Is(err, jobs.ErrInvalidTransition) {
			t.Fatalf("%s: expected ErrInvalidTransition, got %v", name, err)
		}
	}
}

func TestMutateMissingJob(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	called := false
	_, err := store.Mutate(context.Background(), "missing", func(*jobs.Job) error {
		called = true
		return nil
	})
	if !jobs.IsNotFound(err) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	if called {
		t.Fatal("mutation should not run for a missing job")
	}
}

func TestMutateCallbackErrorSkipsWrite(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.MustCreateJob(t, store, "subject-1", "en")
	boom := errors.New("boom")

	_, err := store.Mutate(ctx, job.ID, func(j *jobs.Job) error {
		j.Status = jobs.StatusTranscribing
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	fetched, _ := store.Get(ctx, job.ID)
	if fetched.Status != jobs.StatusPending {
		t.Fatalf("expected status unchanged, got %s", fetched.Status)
	}
}

func TestConcurrentMutationsAreSerialized(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.MustCreateJob(t, store, "subject-1", "en")

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Mutate(ctx, job.ID, func(j *jobs.Job) error {
				j.Translation("en").SubtitlesProcessed++
				return nil
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("Mutate: %v", err)
		}
	}
	fetched, _ := store.Get(ctx, job.ID)
	if got := fetched.Translation("en").SubtitlesProcessed; got != workers {
		t.Fatalf("expected %d increments, got %d", workers, got)
	}
}

func TestClaimOnlyOnce(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.MustCreateJob(t, store, "subject-1", "en")

	claimed, err := store.Claim(ctx, job.ID, jobs.StatusTranscribing)
	if err != nil || claimed.Status != jobs.StatusTranscribing {
		t.Fatalf("first claim: %v, %v", claimed, err)
	}
	if _, err := store.Claim(ctx, job.ID, jobs.StatusTranscribing); !errors.Is(err, jobs.ErrNotClaimable) {
		t.Fatalf("expected ErrNotClaimable, got %v", err)
	}
}

func TestListStatsAndClear(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	done := testsupport.MustCreateJob(t, store, "subject-1", "en")
	if _, err := store.Mutate(ctx, done.ID, func(j *jobs.Job) error {
		j.Status = jobs.StatusFailed
		return nil
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	testsupport.MustCreateJob(t, store, "subject-2", "en")

	all, err := store.List(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("List all: %d, %v", len(all), err)
	}
	pending, err := store.List(ctx, jobs.StatusPending)
	if err != nil || len(pending) != 1 || pending[0].SubjectID != "subject-2" {
		t.Fatalf("List pending: %v, %v", pending, err)
	}
	ids, err := store.PendingIDs(ctx)
	if err != nil || len(ids) != 1 {
		t.Fatalf("PendingIDs: %v, %v", ids, err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[jobs.StatusPending] != 1 || stats[jobs.StatusFailed] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}

	removed, err := store.ClearFailed(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("ClearFailed: %d, %v", removed, err)
	}
	if job, _ := store.Get(ctx, done.ID); job != nil {
		t.Fatal("expected failed job to be removed")
	}
	if n, err := store.ClearCompleted(ctx); err != nil || n != 0 {
		t.Fatalf("ClearCompleted: %d, %v", n, err)
	}
}

func TestRemoveDeletesTranslations(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.MustCreateJob(t, store, "subject-1", "en", "fr")

	ok, err := store.Remove(ctx, job.ID)
	if err != nil || !ok {
		t.Fatalf("Remove: %v, %v", ok, err)
	}
	ok, err = store.Remove(ctx, job.ID)
	if err != nil || ok {
		t.Fatalf("second Remove: %v, %v", ok, err)
	}
	if _, err := store.Mutate(ctx, job.ID, func(*jobs.Job) error { return nil }); !jobs.IsNotFound(err) {
		t.Fatalf("expected not found after removal, got %v", err)
	}
}

func TestFailInterrupted(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	running := testsupport.MustCreateJob(t, store, "subject-1", "en", "es")
	if _, err := store.Mutate(ctx, running.ID, func(j *jobs.Job) error {
		j.Status = jobs.StatusTranscribing
		return nil
	}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	pending := testsupport.MustCreateJob(t, store, "subject-2", "en")

	n, err := store.FailInterrupted(ctx, jobs.DaemonStopReason)
	if err != nil || n != 1 {
		t.Fatalf("FailInterrupted: %d, %v", n, err)
	}
	failed, _ := store.Get(ctx, running.ID)
	if failed.Status != jobs.StatusFailed || failed.ErrorMessage != jobs.DaemonStopReason || failed.CompletedAt == nil {
		t.Fatalf("unexpected failed job: %#v", failed)
	}
	for _, tr := range failed.Translations {
		if tr.Status != jobs.TranslationFailed {
			t.Fatalf("expected translation %s failed, got %s", tr.LanguageCode, tr.Status)
		}
	}
	untouched, _ := store.Get(ctx, pending.ID)
	if untouched.Status != jobs.StatusPending {
		t.Fatalf("pending job should be untouched, got %s", untouched.Status)
	}
}

func TestSubjects(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	exists, err := store.SubjectExists(ctx, "course-1")
	if err != nil || exists {
		t.Fatalf("expected subject absent, got %v, %v", exists, err)
	}
	if _, err := store.UpsertSubject(ctx, jobs.Subject{ID: "course-1", TenantID: "acme", Title: "Safety"}); err != nil {
		t.Fatalf("UpsertSubject: %v", err)
	}
	subject, err := store.UpsertSubject(ctx, jobs.Subject{ID: "course-1", TenantID: "acme", Title: "Safety 101"})
	if err != nil {
		t.Fatalf("UpsertSubject update: %v", err)
	}
	if subject.Title != "Safety 101" {
		t.Fatalf("expected updated title, got %q", subject.Title)
	}
	exists, err = store.SubjectExists(ctx, "course-1")
	if err != nil || !exists {
		t.Fatalf("expected subject present, got %v, %v", exists, err)
	}
	list, err := store.ListSubjects(ctx, "acme")
	if err != nil || len(list) != 1 {
		t.Fatalf("ListSubjects: %v, %v", list, err)
	}
	if list, _ := store.ListSubjects(ctx, "other"); len(list) != 0 {
		t.Fatalf("expected no subjects for other tenant, got %d", len(list))
	}
	if _, err := store.UpsertSubject(ctx, jobs.Subject{ID: "  "}); err == nil {
		t.Fatal("expected error for blank subject id")
	}
}

func TestCheckHealth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.MustCreateJob(t, store, "subject-1", "en")

	health, err := store.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth: %v", err)
	}
	if !health.DatabaseExists || !health.DatabaseReadable || !health.IntegrityCheck {
		t.Fatalf("unexpected health: %#v", health)
	}
	if len(health.MissingTables) != 0 || health.TotalJobs != 1 || health.SchemaVersion != 1 {
		t.Fatalf("unexpected health: %#v", health)
	}
	if health.DBPath != filepath.Join(cfg.Paths.DataDir, "captioner.db") {
		t.Fatalf("unexpected db path %q", health.DBPath)
	}
}

func TestReopenKeepsData(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	job := testsupport.MustCreateJob(t, store, "subject-1", "en")
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	fetched, err := reopened.Get(context.Background(), job.ID)
	if err != nil || fetched == nil {
		t.Fatalf("expected job after reopen, got %v, %v", fetched, err)
	}
	if time.Since(fetched.CreatedAt) > time.Minute {
		t.Fatalf("unexpected created_at %v", fetched.CreatedAt)
	}
}

func TestParseHelpers(t *testing.T) {
	if status, ok := jobs.ParseStatus(" Completed "); !ok || status != jobs.StatusCompleted {
		t.Fatalf("ParseStatus: %v %v", status, ok)
	}
	if _, ok := jobs.ParseStatus("bogus"); ok {
		t.Fatal("expected unknown status")
	}
	if src, ok := jobs.ParseVideoSource(""); !ok || src != jobs.SourceDirectURL {
		t.Fatalf("ParseVideoSource default: %v %v", src, ok)
	}
	if src, ok := jobs.ParseVideoSource("Google_Drive"); !ok || src != jobs.SourceCloudDrive {
		t.Fatalf("ParseVideoSource drive: %v %v", src, ok)
	}
	if _, ok := jobs.ParseVideoSource("ftp"); ok {
		t.Fatal("expected unknown source")
	}
}
