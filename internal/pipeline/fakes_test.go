package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"captioner/internal/config"
	"captioner/internal/jobs"
	"captioner/internal/notifications"
	"captioner/internal/pipeline"
	"captioner/internal/progress"
	"captioner/internal/srt"
	"captioner/internal/testsupport"
)

type fakeTranscriber struct {
	mu     sync.Mutex
	calls  int
	words  []srt.Word
	err    error
	source jobs.VideoSource
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string, source jobs.VideoSource) (*srt.Transcript, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.source = source
	if f.err != nil {
		return nil, f.err
	}
	texts := make([]string, len(f.words))
	for i, w := range f.words {
		texts[i] = w.Text
	}
	return &srt.Transcript{
		Text:  strings.Join(texts, " "),
		Words: f.words,
		Raw:   `{"text":"` + strings.Join(texts, " ") + `"}`,
	}, nil
}

func (f *fakeTranscriber) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type translateCall struct {
	Language string
	Text     string
}

type fakeTranslator struct {
	mu    sync.Mutex
	calls []translateCall
	fn    func(text, language string, attempt int) (string, error)
}

func (f *fakeTranslator) TranslateBatch(_ context.Context, text, language string) (string, error) {
	f.mu.Lock()
	attempt := 1
	for _, c := range f.calls {
		if c.Language == language && c.Text == text {
			attempt++
		}
	}
	f.calls = append(f.calls, translateCall{Language: language, Text: text})
	fn := f.fn
	f.mu.Unlock()
	if fn == nil {
		return text, nil
	}
	return fn(text, language, attempt)
}

func (f *fakeTranslator) CallsFor(language string) []translateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []translateCall
	for _, c := range f.calls {
		if c.Language == language {
			out = append(out, c)
		}
	}
	return out
}

type fakeStorage struct {
	mu        sync.Mutex
	files     map[string]string
	failFor   map[string]error
	deleteErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{files: make(map[string]string), failFor: make(map[string]error)}
}

func (f *fakeStorage) Upload(_ context.Context, content, fileName, tenantID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[fileName]; ok {
		return "", err
	}
	key := tenantID + "/" + fileName
	f.files[key] = content
	return "mem://" + key, nil
}

func (f *fakeStorage) Content(_ context.Context, fileName, tenantID string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.files[tenantID+"/"+fileName]
	return content, ok, nil
}

func (f *fakeStorage) Delete(_ context.Context, fileName, tenantID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	key := tenantID + "/" + fileName
	_, ok := f.files[key]
	delete(f.files, key)
	return ok, nil
}

func (f *fakeStorage) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.files)
}

type fakeScheduler struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (f *fakeScheduler) Enqueue(_ context.Context, jobID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.ids = append(f.ids, jobID)
	return nil
}

type failingReporter struct{}

func (failingReporter) Report(context.Context, progress.Event) error {
	return errors.New("reporter offline")
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (f *fakeNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeNotifier) Events() []notifications.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notifications.Event(nil), f.events...)
}

type harness struct {
	cfg         *config.Config
	store       *jobs.Store
	transcriber *fakeTranscriber
	translator  *fakeTranslator
	storage     *fakeStorage
	scheduler   *fakeScheduler
	hub         *progress.Hub
	notifier    *fakeNotifier
	orch        *pipeline.Orchestrator
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	h := &harness{
		cfg:         cfg,
		store:       testsupport.MustOpenStore(t, cfg),
		transcriber: &fakeTranscriber{words: contiguousWords("Hello", "World")},
		translator:  &fakeTranslator{},
		storage:     newFakeStorage(),
		scheduler:   &fakeScheduler{},
		hub:         progress.NewHub(256),
		notifier:    &fakeNotifier{},
	}
	h.rebuild()
	return h
}

// rebuild recreates the orchestrator after the test tweaks cfg.
func (h *harness) rebuild() {
	h.orch = pipeline.New(h.cfg, pipeline.Dependencies{
		Store:       h.store,
		Subjects:    h.store,
		Transcriber: h.transcriber,
		Translator:  h.translator,
		Storage:     h.storage,
		Reporter:    h.hub,
		Scheduler:   h.scheduler,
		Notifier:    h.notifier,
	}, nil)
}

func (h *harness) start(t *testing.T, subjectID string, languages ...string) string {
	t.Helper()
	testsupport.MustCreateSubject(t, h.store, subjectID)
	id, err := h.orch.Start(context.Background(), pipeline.Request{
		SubjectID: subjectID,
		VideoURL:  "https://cdn.example.com/" + subjectID + ".mp4",
		Languages: languages,
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return id
}

func (h *harness) mustGet(t *testing.T, id string) *jobs.Job {
	t.Helper()
	job, err := h.store.Get(context.Background(), id)
	if err != nil || job == nil {
		t.Fatalf("Get %s: %v, %v", id, job, err)
	}
	return job
}

func contiguousWords(texts ...string) []srt.Word {
	out := make([]srt.Word, len(texts))
	for i, text := range texts {
		out[i] = srt.Word{Text: text, Type: srt.TypeWord, Start: float64(i) * 0.5, End: float64(i+1) * 0.5}
	}
	return out
}

func sentences(n int) []srt.Word {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("Line%d.", i+1)
	}
	return contiguousWords(texts...)
}
