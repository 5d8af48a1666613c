package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"captioner/internal/config"
	"captioner/internal/services"
)

const stage = "storage"

// Backend stores and retrieves subtitle files for a tenant.
type Backend interface {
	Upload(ctx context.Context, content, fileName, tenantID string) (string, error)
	Content(ctx context.Context, fileName, tenantID string) (string, bool, error)
	Delete(ctx context.Context, fileName, tenantID string) (bool, error)
	// Check verifies the backend is reachable and writable enough to start.
	Check(ctx context.Context) error
}

// NewFromConfig returns the backend selected by storage.backend.
func NewFromConfig(cfg *config.Config) (Backend, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, stage, "init", "config is nil", nil)
	}
	switch cfg.Storage.Backend {
	case config.StorageGitHub:
		return NewGitHub(GitHubConfig{
			Token:    cfg.Storage.GitHubToken,
			Owner:    cfg.Storage.GitHubOwner,
			Repo:     cfg.Storage.GitHubRepo,
			Branch:   cfg.Storage.GitHubBranch,
			BasePath: cfg.Storage.GitHubBasePath,
			APIURL:   cfg.Storage.GitHubAPIURL,
		}), nil
	case config.StorageLocal, "":
		return NewLocal(cfg.Storage.LocalDir), nil
	}
	return nil, services.Wrap(services.ErrConfiguration, stage, "init",
		fmt.Sprintf("unsupported backend %q", cfg.Storage.Backend), nil)
}

// objectPath joins tenant and file name into a relative slash path and
// rejects anything that is absolute or climbs out of the tenant root.
func objectPath(fileName, tenantID string) (string, error) {
	tenantID = strings.TrimSpace(tenantID)
	fileName = strings.TrimSpace(fileName)
	if tenantID == "" {
		return "", services.Wrap(services.ErrValidation, stage, "path", "tenant id required", nil)
	}
	if fileName == "" {
		return "", services.Wrap(services.ErrValidation, stage, "path", "file name required", nil)
	}
	if strings.ContainsAny(tenantID, `/\`) || tenantID == "." || tenantID == ".." {
		return "", services.Wrap(services.ErrValidation, stage, "path", fmt.Sprintf("invalid tenant id %q", tenantID), nil)
	}
	if strings.HasPrefix(fileName, "/") || strings.Contains(fileName, `\`) {
		return "", services.Wrap(services.ErrValidation, stage, "path", fmt.Sprintf("invalid file name %q", fileName), nil)
	}
	for _, segment := range strings.Split(fileName, "/") {
		if segment == "" || segment == "." || segment == ".." {
			return "", services.Wrap(services.ErrValidation, stage, "path", fmt.Sprintf("invalid file name %q", fileName), nil)
		}
	}
	return path.Join(tenantID, fileName), nil
}
