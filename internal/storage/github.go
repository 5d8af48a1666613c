package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/go-github/v72/github"

	"captioner/internal/services"
)

const (
	defaultGitHubAPI = "https://api.github.com"
	githubTimeout    = 30 * time.Second
)

// GitHubConfig identifies the repository subtitles are committed to.
type GitHubConfig struct {
	Token    string
	Owner    string
	Repo     string
	Branch   string
	BasePath string
	APIURL   string
}

// GitHub stores subtitle files through the repository contents API.
type GitHub struct {
	cfg        GitHubConfig
	httpClient *http.Client
	client     *github.Client
	initErr    error
}

// GitHubOption customizes the GitHub backend.
type GitHubOption func(*GitHub)

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(client *http.Client) GitHubOption {
	return func(g *GitHub) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// NewGitHub constructs a GitHub backend. An unparsable API URL surfaces as a
// configuration error from every operation.
func NewGitHub(cfg GitHubConfig, opts ...GitHubOption) *GitHub {
	cfg.Token = strings.TrimSpace(cfg.Token)
	cfg.Owner = strings.TrimSpace(cfg.Owner)
	cfg.Repo = strings.TrimSpace(cfg.Repo)
	cfg.Branch = strings.TrimSpace(cfg.Branch)
	cfg.BasePath = strings.Trim(strings.TrimSpace(cfg.BasePath), "/")
	cfg.APIURL = strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/")
	if cfg.APIURL == "" {
		cfg.APIURL = defaultGitHubAPI
	}
	g := &GitHub{cfg: cfg, httpClient: &http.Client{Timeout: githubTimeout}}
	for _, opt := range opts {
		opt(g)
	}

	client := github.NewClient(g.httpClient)
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	// BaseURL is set directly so GitHub Enterprise hosts and test servers
	// keep the path they were configured with.
	base, err := url.Parse(cfg.APIURL + "/")
	if err != nil {
		g.initErr = services.Wrap(services.ErrConfiguration, stage, "init", "invalid github api url", err)
	} else {
		client.BaseURL = base
	}
	g.client = client
	return g
}

// Upload creates or updates the file and returns its public URL.
// A stale sha (409/422) triggers one re-read and retry.
func (g *GitHub) Upload(ctx context.Context, content, fileName, tenantID string) (string, error) {
	repoPath, err := g.repoPath(fileName, tenantID)
	if err != nil {
		return "", err
	}
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		existing, found, err := g.get(ctx, repoPath)
		if err != nil {
			return "", classify("upload", err)
		}
		opts := &github.RepositoryContentFileOptions{
			Content: []byte(content),
		}
		if g.cfg.Branch != "" {
			opts.Branch = github.Ptr(g.cfg.Branch)
		}
		var resp *github.RepositoryContentResponse
		if found {
			opts.Message = github.Ptr(fmt.Sprintf("Update subtitles %s", path.Base(repoPath)))
			opts.SHA = github.Ptr(existing.GetSHA())
			resp, _, err = g.client.Repositories.UpdateFile(ctx, g.cfg.Owner, g.cfg.Repo, repoPath, opts)
		} else {
			opts.Message = github.Ptr(fmt.Sprintf("Add subtitles %s", path.Base(repoPath)))
			resp, _, err = g.client.Repositories.CreateFile(ctx, g.cfg.Owner, g.cfg.Repo, repoPath, opts)
		}
		if err == nil {
			var publicURL string
			if resp != nil && resp.Content != nil {
				publicURL = firstNonEmpty(resp.Content.GetDownloadURL(), resp.Content.GetHTMLURL())
			}
			if publicURL == "" {
				return "", services.Wrap(services.ErrExternal, stage, "upload", "response did not include a file url", nil)
			}
			return publicURL, nil
		}
		lastErr = err
		if status := statusOf(err); status != http.StatusConflict && status != http.StatusUnprocessableEntity {
			break
		}
	}
	return "", classify("upload", lastErr)
}

// Content fetches and decodes a stored file.
func (g *GitHub) Content(ctx context.Context, fileName, tenantID string) (string, bool, error) {
	repoPath, err := g.repoPath(fileName, tenantID)
	if err != nil {
		return "", false, err
	}
	existing, found, err := g.get(ctx, repoPath)
	if err != nil {
		return "", false, classify("content", err)
	}
	if !found {
		return "", false, nil
	}
	decoded, err := existing.GetContent()
	if err != nil {
		return "", false, services.Wrap(services.ErrExternal, stage, "content", "decode file content", err)
	}
	return decoded, true, nil
}

// Delete removes a stored file and reports whether it existed.
func (g *GitHub) Delete(ctx context.Context, fileName, tenantID string) (bool, error) {
	repoPath, err := g.repoPath(fileName, tenantID)
	if err != nil {
		return false, err
	}
	existing, found, err := g.get(ctx, repoPath)
	if err != nil {
		return false, classify("delete", err)
	}
	if !found {
		return false, nil
	}
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(fmt.Sprintf("Remove subtitles %s", path.Base(repoPath))),
		SHA:     github.Ptr(existing.GetSHA()),
	}
	if g.cfg.Branch != "" {
		opts.Branch = github.Ptr(g.cfg.Branch)
	}
	if _, _, err := g.client.Repositories.DeleteFile(ctx, g.cfg.Owner, g.cfg.Repo, repoPath, opts); err != nil {
		if statusOf(err) == http.StatusNotFound {
			return false, nil
		}
		return false, classify("delete", err)
	}
	return true, nil
}

// Check confirms the repository is visible with the configured token.
func (g *GitHub) Check(ctx context.Context) error {
	if g.cfg.Owner == "" || g.cfg.Repo == "" {
		return services.Wrap(services.ErrConfiguration, stage, "check", "github owner and repo required", nil)
	}
	if g.cfg.Token == "" {
		return services.Wrap(services.ErrConfiguration, stage, "check", "github token required", nil)
	}
	if g.initErr != nil {
		return g.initErr
	}
	if _, _, err := g.client.Repositories.Get(ctx, g.cfg.Owner, g.cfg.Repo); err != nil {
		return classify("check", err)
	}
	return nil
}

func (g *GitHub) repoPath(fileName, tenantID string) (string, error) {
	if g.initErr != nil {
		return "", g.initErr
	}
	rel, err := objectPath(fileName, tenantID)
	if err != nil {
		return "", err
	}
	if g.cfg.BasePath == "" {
		return rel, nil
	}
	return path.Join(g.cfg.BasePath, rel), nil
}

// get returns the file at repoPath; a 404 reports found=false.
func (g *GitHub) get(ctx context.Context, repoPath string) (*github.RepositoryContent, bool, error) {
	var opts *github.RepositoryContentGetOptions
	if g.cfg.Branch != "" {
		opts = &github.RepositoryContentGetOptions{Ref: g.cfg.Branch}
	}
	file, dir, _, err := g.client.Repositories.GetContents(ctx, g.cfg.Owner, g.cfg.Repo, repoPath, opts)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	if file == nil {
		if dir != nil {
			return nil, false, fmt.Errorf("github get: %s is a directory", repoPath)
		}
		return nil, false, nil
	}
	return file, true, nil
}

// statusOf extracts the HTTP status from a go-github error, or 0.
func statusOf(err error) int {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return http.StatusTooManyRequests
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return http.StatusTooManyRequests
	}
	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		return respErr.Response.StatusCode
	}
	return 0
}

func classify(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, stage, operation, "", err)
	}
	if errors.Is(err, services.ErrConfiguration) {
		return err
	}
	status := statusOf(err)
	switch {
	case status == 0:
		return services.Wrap(services.ErrTransient, stage, operation, "", err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, stage, operation, "", err)
	case status == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, stage, operation, "", err)
	case status == http.StatusTooManyRequests || status >= 500:
		return services.Wrap(services.ErrTransient, stage, operation, "", err)
	}
	return services.Wrap(services.ErrExternal, stage, operation, "", err)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
