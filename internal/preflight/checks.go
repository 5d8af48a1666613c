package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sys/unix"

	"captioner/internal/config"
	"captioner/internal/services/llm"
	"captioner/internal/storage"
)

const (
	storageCheckName = "Subtitle storage"
	llmCheckTimeout  = 30 * time.Second
	dialTimeout      = 5 * time.Second
)

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg config.LLMConfig, opts ...llm.Option) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, llmCheckTimeout)
	defer cancel()

	opts = append([]llm.Option{llm.WithRetryMaxAttempts(1)}, opts...)
	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, opts...)

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckStorage verifies the subtitle storage backend accepts requests.
func CheckStorage(ctx context.Context, backend storage.Backend) Result {
	if backend == nil {
		return Result{Name: storageCheckName, Detail: "not configured"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, llmCheckTimeout)
	defer cancel()
	if err := backend.Check(checkCtx); err != nil {
		return Result{Name: storageCheckName, Detail: err.Error()}
	}
	return Result{Name: storageCheckName, Passed: true, Detail: "reachable"}
}

// CheckTranscription reports whether the speech-to-text provider is configured.
// The provider bills per request, so no live call is made.
func CheckTranscription(cfg *config.Config) Result {
	const name = "Transcription"
	if strings.TrimSpace(cfg.Transcription.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing"}
	}
	if strings.TrimSpace(cfg.Transcription.BaseURL) == "" {
		return Result{Name: name, Detail: "base url missing"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("model %s", cfg.Transcription.Model)}
}

// CheckAMQP dials the broker and closes the connection immediately.
func CheckAMQP(url string) Result {
	const name = "AMQP broker"
	url = strings.TrimSpace(url)
	if url == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout)})
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("dial failed (%v)", err)}
	}
	_ = conn.Close()
	return Result{Name: name, Passed: true, Detail: "connected"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
