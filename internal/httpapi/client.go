package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"captioner/internal/pipeline"
	"captioner/internal/services"
)

// maxResponseBytes bounds client reads; subtitle files can outgrow request bodies.
const maxResponseBytes = 32 << 20

// ErrDaemonUnavailable reports that nothing answered at the daemon address.
var ErrDaemonUnavailable = errors.New("daemon unavailable")

// Client calls a running daemon's HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient targets the daemon listening on bind (host:port or a full URL).
func NewClient(bind, token string) *Client {
	base := strings.TrimRight(strings.TrimSpace(bind), "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: base,
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: 45 * time.Second},
	}
}

// Status retrieves daemon and queue statistics.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var resp DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpsertSubject registers or renames a subject.
func (c *Client) UpsertSubject(ctx context.Context, subjectID string, req SubjectRequest) (*SubjectResponse, error) {
	var resp SubjectResponse
	if err := c.do(ctx, http.MethodPut, "/api/subjects/"+url.PathEscape(subjectID), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartSubtitles submits a subtitle job and returns its id.
func (c *Client) StartSubtitles(ctx context.Context, subjectID string, req StartRequest) (string, error) {
	var resp StartResponse
	if err := c.do(ctx, http.MethodPost, "/api/subjects/"+url.PathEscape(subjectID)+"/subtitles", req, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// SubjectStatus returns the latest job view for a subject.
func (c *Client) SubjectStatus(ctx context.Context, subjectID string) (*pipeline.StatusView, error) {
	var resp pipeline.StatusView
	if err := c.do(ctx, http.MethodGet, "/api/subjects/"+url.PathEscape(subjectID)+"/subtitles/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Subtitle downloads the stored SRT for one language of a subject's latest job.
// lang may be a language name or code.
func (c *Client) Subtitle(ctx context.Context, subjectID, lang string) (string, error) {
	var content string
	path := "/api/subjects/" + url.PathEscape(subjectID) + "/subtitles/" + url.PathEscape(lang) + ".srt"
	if err := c.do(ctx, http.MethodGet, path, nil, &content); err != nil {
		return "", err
	}
	return content, nil
}

// Events long-polls progress for jobID, waiting up to wait for new events.
func (c *Client) Events(ctx context.Context, jobID string, since uint64, wait time.Duration) (*EventsResponse, error) {
	query := url.Values{}
	query.Set("since", strconv.FormatUint(since, 10))
	if seconds := int(wait / time.Second); seconds > 0 {
		query.Set("wait", strconv.Itoa(seconds))
	}
	var resp EventsResponse
	path := "/api/jobs/" + url.PathEscape(jobID) + "/events?" + query.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return fmt.Errorf("%w at %s: %v", ErrDaemonUnavailable, c.baseURL, err)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return responseError(resp.StatusCode, payload)
	}
	switch target := out.(type) {
	case nil:
		return nil
	case *string:
		*target = string(payload)
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// responseError maps an API error body back onto the services markers so
// callers can branch with errors.Is.
func responseError(status int, payload []byte) error {
	var body errorResponse
	_ = json.Unmarshal(payload, &body)
	message := strings.TrimSpace(body.Error)
	if message == "" {
		message = http.StatusText(status)
	}
	var marker error
	switch status {
	case http.StatusNotFound:
		marker = services.ErrNotFound
	case http.StatusConflict:
		marker = services.ErrConflict
	case http.StatusBadRequest:
		marker = services.ErrValidation
	case http.StatusUnauthorized:
		marker = services.ErrConfiguration
	case http.StatusBadGateway:
		marker = services.ErrExternal
	case http.StatusServiceUnavailable:
		marker = services.ErrTransient
	default:
		return fmt.Errorf("daemon returned %d: %s", status, message)
	}
	return fmt.Errorf("%w: %s", marker, message)
}
