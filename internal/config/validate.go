package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	return nil
}

// ValidateProviders checks the credentials the daemon needs before it can run
// the pipeline. CLI commands that only read the job store skip this.
func (c *Config) ValidateProviders() error {
	if c.Transcription.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("transcription.api_key is required. Set ELEVENLABS_API_KEY env var or edit %s (create with 'captioner config init')", defaultPath)
	}
	if c.LLM.APIKey == "" {
		return errors.New("llm.api_key is required (or set OPENROUTER_API_KEY)")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.batch_size":          c.Workflow.BatchSize,
		"workflow.words_per_subtitle":  c.Workflow.WordsPerSubtitle,
		"workflow.translation_workers": c.Workflow.TranslationWorkers,
	}); err != nil {
		return err
	}
	if c.Workflow.BatchRetries > 10 {
		return errors.New("workflow.batch_retries must be 10 or fewer")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	switch c.Scheduler.Backend {
	case SchedulerLocal:
		if c.Scheduler.Workers <= 0 {
			return errors.New("scheduler.workers must be positive")
		}
	case SchedulerAMQP:
		if c.Scheduler.AMQPURL == "" {
			return errors.New("scheduler.amqp_url must be set when scheduler.backend is \"amqp\" (or set AMQP_URL)")
		}
	default:
		return fmt.Errorf("scheduler.backend: unsupported value %q (use %q or %q)", c.Scheduler.Backend, SchedulerLocal, SchedulerAMQP)
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageLocal:
		if strings.TrimSpace(c.Storage.LocalDir) == "" {
			return errors.New("storage.local_dir must be set when storage.backend is \"local\"")
		}
	case StorageGitHub:
		if c.Storage.GitHubOwner == "" || c.Storage.GitHubRepo == "" {
			return errors.New("storage.github_owner and storage.github_repo must be set when storage.backend is \"github\"")
		}
		if c.Storage.GitHubToken == "" {
			return errors.New("storage.github_token must be set when storage.backend is \"github\" (or set GITHUB_TOKEN)")
		}
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (use %q or %q)", c.Storage.Backend, StorageLocal, StorageGitHub)
	}
	return nil
}

func (c *Config) validateTimeouts() error {
	return ensurePositiveMap(map[string]int{
		"transcription.timeout_seconds": c.Transcription.TimeoutSeconds,
		"llm.timeout_seconds":           c.LLM.TimeoutSeconds,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
