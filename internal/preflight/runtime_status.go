package preflight

import (
	"strings"

	"captioner/internal/config"
)

// NotificationsFromConfig describes the ntfy configuration without sending anything.
func NotificationsFromConfig(cfg *config.Config) Result {
	const name = "Notifications"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
		return Result{Name: name, Passed: true, Detail: "Disabled"}
	}
	var events []string
	if cfg.Notifications.JobCompleted {
		events = append(events, "completed")
	}
	if cfg.Notifications.JobFailed {
		events = append(events, "failed")
	}
	if len(events) == 0 {
		return Result{Name: name, Passed: true, Detail: "Topic set, all events muted"}
	}
	return Result{Name: name, Passed: true, Detail: "ntfy (" + strings.Join(events, ", ") + ")"}
}

// StorageFromConfig describes where subtitle files are written.
func StorageFromConfig(cfg *config.Config) Result {
	if cfg == nil {
		return Result{Name: storageCheckName, Detail: "Unknown"}
	}
	switch cfg.Storage.Backend {
	case config.StorageGitHub:
		repo := strings.Trim(cfg.Storage.GitHubOwner+"/"+cfg.Storage.GitHubRepo, "/")
		if repo == "" || !strings.Contains(repo, "/") {
			return Result{Name: storageCheckName, Detail: "GitHub repository incomplete"}
		}
		return Result{Name: storageCheckName, Passed: true, Detail: "github:" + repo}
	default:
		if strings.TrimSpace(cfg.Storage.LocalDir) == "" {
			return Result{Name: storageCheckName, Detail: "Missing local_dir"}
		}
		return Result{Name: storageCheckName, Passed: true, Detail: cfg.Storage.LocalDir}
	}
}
