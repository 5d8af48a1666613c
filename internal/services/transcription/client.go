package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"captioner/internal/config"
	"captioner/internal/jobs"
	"captioner/internal/services"
	"captioner/internal/srt"
)

const (
	stage               = "transcription"
	headerAPIKey        = "xi-api-key"
	granularityWord     = "word"
	defaultTimeout      = 10 * time.Minute
	maxErrorBodyPreview = 512
)

// Config contains the settings required to call the speech-to-text API.
type Config struct {
	APIKey           string
	BaseURL          string
	Model            string
	Timeout          time.Duration
	DriveDownloadURL string
}

// Client calls the speech-to-text API.
type Client struct {
	cfg  Config
	http *http.Client
}

// Option customizes a client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// NewClient constructs a transcription client.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	client := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// NewFromConfig builds a client from the [transcription] section.
func NewFromConfig(cfg *config.Config) *Client {
	return NewClient(Config{
		APIKey:           cfg.Transcription.APIKey,
		BaseURL:          cfg.Transcription.BaseURL,
		Model:            cfg.Transcription.Model,
		Timeout:          time.Duration(cfg.Transcription.TimeoutSeconds) * time.Second,
		DriveDownloadURL: cfg.Transcription.DriveDownloadURL,
	})
}

type apiResponse struct {
	Text         string     `json:"text"`
	LanguageCode string     `json:"language_code"`
	Words        []srt.Word `json:"words"`
}

// Transcribe resolves the video source and returns word-level timestamps.
func (c *Client) Transcribe(ctx context.Context, videoURL string, source jobs.VideoSource) (*srt.Transcript, error) {
	if c == nil {
		return nil, services.Wrap(services.ErrConfiguration, stage, "transcribe", "nil client", nil)
	}
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, stage, "transcribe", "missing api key", nil)
	}
	if c.cfg.BaseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, stage, "transcribe", "missing base url", nil)
	}
	resolved, err := ResolveSource(videoURL, source, c.cfg.DriveDownloadURL)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, stage, "resolve source", "", err)
	}

	var media io.ReadCloser
	var mediaName string
	if resolved.Download {
		media, mediaName, err = c.download(ctx, resolved.URL)
		if err != nil {
			return nil, err
		}
		defer media.Close()
	}

	body, contentType := c.multipartBody(resolved.URL, media, mediaName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, body)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stage, "build request", "", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(headerAPIKey, c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransportError("http request", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, stage, "read response", "", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError("speech api", resp.StatusCode, payload)
	}

	var parsed apiResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, services.Wrap(services.ErrExternal, stage, "decode response", "", err)
	}
	if len(parsed.Words) == 0 && strings.TrimSpace(parsed.Text) == "" {
		return nil, services.Wrap(services.ErrExternal, stage, "decode response", "response contained no words", nil)
	}
	return &srt.Transcript{
		Text:         parsed.Text,
		LanguageCode: parsed.LanguageCode,
		Words:        parsed.Words,
		Raw:          string(payload),
	}, nil
}

// multipartBody streams the form so downloaded media is never buffered whole.
func (c *Client) multipartBody(sourceURL string, media io.Reader, mediaName string) (io.Reader, string) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		err := writeForm(writer, c.cfg.Model, sourceURL, media, mediaName)
		if err == nil {
			err = writer.Close()
		}
		_ = pw.CloseWithError(err)
	}()
	return pr, writer.FormDataContentType()
}

func writeForm(writer *multipart.Writer, model, sourceURL string, media io.Reader, mediaName string) error {
	if model = strings.TrimSpace(model); model != "" {
		if err := writer.WriteField("model_id", model); err != nil {
			return fmt.Errorf("write model field: %w", err)
		}
	}
	if err := writer.WriteField("timestamps_granularity", granularityWord); err != nil {
		return fmt.Errorf("write granularity field: %w", err)
	}
	if media == nil {
		if err := writer.WriteField("cloud_storage_url", sourceURL); err != nil {
			return fmt.Errorf("write source url field: %w", err)
		}
		return nil
	}
	field, err := writer.CreateFormFile("file", mediaName)
	if err != nil {
		return fmt.Errorf("create file field: %w", err)
	}
	if _, err := io.Copy(field, media); err != nil {
		return fmt.Errorf("copy media: %w", err)
	}
	return nil
}

func (c *Client) download(ctx context.Context, mediaURL string) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, "", services.Wrap(services.ErrValidation, stage, "download media", "", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", classifyTransportError("download media", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyPreview))
		resp.Body.Close()
		return nil, "", statusError("media download", resp.StatusCode, preview)
	}
	if ct := resp.Header.Get("Content-Type"); strings.HasPrefix(ct, "text/html") {
		resp.Body.Close()
		return nil, "", services.Wrap(services.ErrExternal, stage, "download media",
			"received an html page instead of media; check the file is shared publicly", nil)
	}
	return resp.Body, mediaFileName(resp), nil
}

func mediaFileName(resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := strings.TrimSpace(params["filename"]); name != "" {
				return path.Base(name)
			}
		}
	}
	if base := path.Base(resp.Request.URL.Path); base != "" && base != "/" && base != "." {
		return base
	}
	return "video.mp4"
}

func statusError(operation string, status int, body []byte) error {
	message := fmt.Sprintf("%s returned %d: %s", operation, status, preview(body))
	marker := services.ErrExternal
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		marker = services.ErrConfiguration
	case status == http.StatusNotFound:
		marker = services.ErrNotFound
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests || status >= 500:
		marker = services.ErrTransient
	}
	return services.Wrap(marker, stage, operation, message, nil)
}

func classifyTransportError(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, stage, operation, "", err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTimeout, stage, operation, "", err)
	}
	return services.Wrap(services.ErrTransient, stage, operation, "", err)
}

func preview(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBodyPreview {
		text = text[:maxErrorBodyPreview] + "..."
	}
	return text
}
