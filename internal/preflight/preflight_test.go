package preflight

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"captioner/internal/config"
	"captioner/internal/storage"
	"captioner/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func fakeLLM(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"content": content}}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckLLM(t *testing.T) {
	srv := fakeLLM(t, `{"ok":true}`, http.StatusOK)
	result := CheckLLM(context.Background(), "LLM", config.LLMConfig{APIKey: "key", BaseURL: srv.URL})
	if !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}

	result = CheckLLM(context.Background(), "LLM", config.LLMConfig{APIKey: "wrong", BaseURL: srv.URL})
	if result.Passed {
		t.Fatal("expected failure for rejected key")
	}

	result = CheckLLM(context.Background(), "LLM", config.LLMConfig{BaseURL: srv.URL})
	if result.Passed || result.Detail != "API key missing" {
		t.Fatalf("unexpected result for missing key: %+v", result)
	}
}

func TestCheckLLMSingleAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	result := CheckLLM(context.Background(), "LLM", config.LLMConfig{APIKey: "key", BaseURL: srv.URL})
	if result.Passed {
		t.Fatal("expected failure")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected a single attempt, got %d", got)
	}
}

func TestCheckStorage(t *testing.T) {
	ok := CheckStorage(context.Background(), storage.NewLocal(filepath.Join(t.TempDir(), "subs")))
	if !ok.Passed {
		t.Fatalf("expected local storage to pass: %s", ok.Detail)
	}
	if missing := CheckStorage(context.Background(), nil); missing.Passed {
		t.Fatal("expected nil backend to fail")
	}
}

func TestCheckTranscription(t *testing.T) {
	cfg := config.Default()
	if result := CheckTranscription(&cfg); result.Passed {
		t.Fatal("expected missing key to fail")
	}
	cfg.Transcription.APIKey = "stt"
	if result := CheckTranscription(&cfg); !result.Passed {
		t.Fatalf("expected pass: %s", result.Detail)
	}
}

func TestCheckAMQP_MissingURL(t *testing.T) {
	if result := CheckAMQP(" "); result.Passed || result.Detail != "missing url" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll(t *testing.T) {
	srv := fakeLLM(t, "```json\n{\"ok\":true}\n```", http.StatusOK)
	cfg := testsupport.NewConfig(t)
	cfg.LLM.APIKey = "key"
	cfg.LLM.BaseURL = srv.URL
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}

	results := RunAll(context.Background(), cfg)
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
	want := "Data directory,Log directory,Subtitle storage,Transcription,Translation LLM"
	if got := strings.Join(names, ","); got != want {
		t.Fatalf("checks = %s, want %s", got, want)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected no failures, got %+v", failed)
	}
}

func TestRunAll_ReportsFailures(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.LLM.APIKey = ""
	cfg.Scheduler.Backend = config.SchedulerAMQP
	cfg.Scheduler.AMQPURL = ""

	failed := Failed(RunAll(context.Background(), cfg))
	names := map[string]bool{}
	for _, r := range failed {
		names[r.Name] = true
	}
	for _, want := range []string{"Data directory", "Log directory", "Translation LLM", "AMQP broker"} {
		if !names[want] {
			t.Errorf("expected %q to fail, got %+v", want, failed)
		}
	}
	if names["Subtitle storage"] {
		t.Error("local storage creates its root and should pass")
	}
}

func TestNotificationsFromConfig(t *testing.T) {
	cfg := config.Default()
	if r := NotificationsFromConfig(&cfg); r.Detail != "Disabled" {
		t.Fatalf("unexpected detail %q", r.Detail)
	}
	cfg.Notifications.NtfyTopic = "https://ntfy.sh/captions"
	cfg.Notifications.JobCompleted = true
	cfg.Notifications.JobFailed = true
	if r := NotificationsFromConfig(&cfg); r.Detail != "ntfy (completed, failed)" {
		t.Fatalf("unexpected detail %q", r.Detail)
	}
}

func TestStorageFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Backend = config.StorageGitHub
	cfg.Storage.GitHubOwner = "acme"
	if r := StorageFromConfig(&cfg); r.Passed {
		t.Fatalf("expected incomplete repo to fail, got %+v", r)
	}
	cfg.Storage.GitHubRepo = "subs"
	if r := StorageFromConfig(&cfg); !r.Passed || r.Detail != "github:acme/subs" {
		t.Fatalf("unexpected result %+v", r)
	}
}
