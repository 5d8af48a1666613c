package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeScheduler()
	c.normalizeTranscription()
	c.normalizeLLM()
	if err := c.normalizeStorage(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	c.Tenant.DefaultID = strings.TrimSpace(c.Tenant.DefaultID)
	if c.Tenant.DefaultID == "" {
		c.Tenant.DefaultID = defaultTenantID
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	if c.Paths.APIToken == "" {
		c.Paths.APIToken = firstEnv("CAPTIONER_API_TOKEN")
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.BatchSize <= 0 {
		c.Workflow.BatchSize = defaultBatchSize
	}
	if c.Workflow.WordsPerSubtitle <= 0 {
		c.Workflow.WordsPerSubtitle = defaultWordsPerSubtitle
	}
	if c.Workflow.TranslationWorkers <= 0 {
		c.Workflow.TranslationWorkers = defaultTranslationWorkers
	}
	if c.Workflow.BatchRetries < 0 {
		c.Workflow.BatchRetries = 0
	}
	if c.Workflow.BatchRetryDelaySeconds < 0 {
		c.Workflow.BatchRetryDelaySeconds = 0
	}
	c.Workflow.SourceLanguage = strings.TrimSpace(c.Workflow.SourceLanguage)
	if c.Workflow.SourceLanguage == "" {
		c.Workflow.SourceLanguage = defaultSourceLanguage
	}
}

func (c *Config) normalizeScheduler() {
	c.Scheduler.Backend = strings.ToLower(strings.TrimSpace(c.Scheduler.Backend))
	if c.Scheduler.Backend == "" {
		c.Scheduler.Backend = SchedulerLocal
	}
	if c.Scheduler.Workers <= 0 {
		c.Scheduler.Workers = defaultSchedulerWorkers
	}
	if c.Scheduler.Buffer <= 0 {
		c.Scheduler.Buffer = defaultSchedulerBuffer
	}
	c.Scheduler.AMQPURL = strings.TrimSpace(c.Scheduler.AMQPURL)
	if c.Scheduler.AMQPURL == "" {
		c.Scheduler.AMQPURL = firstEnv("AMQP_URL")
	}
	c.Scheduler.AMQPQueue = strings.TrimSpace(c.Scheduler.AMQPQueue)
	if c.Scheduler.AMQPQueue == "" {
		c.Scheduler.AMQPQueue = defaultAMQPQueue
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.APIKey = strings.TrimSpace(c.Transcription.APIKey)
	if c.Transcription.APIKey == "" {
		c.Transcription.APIKey = firstEnv("CAPTIONER_TRANSCRIPTION_API_KEY", "ELEVENLABS_API_KEY")
	}
	c.Transcription.BaseURL = strings.TrimSpace(c.Transcription.BaseURL)
	if c.Transcription.BaseURL == "" {
		c.Transcription.BaseURL = defaultTranscriptionBaseURL
	}
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultTranscriptionModel
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		c.Transcription.TimeoutSeconds = defaultTranscriptionTimeout
	}
	c.Transcription.DriveDownloadURL = strings.TrimSpace(c.Transcription.DriveDownloadURL)
	if c.Transcription.DriveDownloadURL == "" {
		c.Transcription.DriveDownloadURL = defaultDriveDownloadURL
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = firstEnv("OPENROUTER_API_KEY")
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeStorage() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageLocal
	}
	if strings.TrimSpace(c.Storage.LocalDir) == "" {
		c.Storage.LocalDir = defaultLocalStorageDir
	}
	var err error
	if c.Storage.LocalDir, err = expandPath(c.Storage.LocalDir); err != nil {
		return fmt.Errorf("storage.local_dir: %w", err)
	}
	c.Storage.GitHubToken = strings.TrimSpace(c.Storage.GitHubToken)
	if c.Storage.GitHubToken == "" {
		c.Storage.GitHubToken = firstEnv("GITHUB_TOKEN")
	}
	c.Storage.GitHubOwner = strings.TrimSpace(c.Storage.GitHubOwner)
	c.Storage.GitHubRepo = strings.TrimSpace(c.Storage.GitHubRepo)
	c.Storage.GitHubBranch = strings.TrimSpace(c.Storage.GitHubBranch)
	if c.Storage.GitHubBranch == "" {
		c.Storage.GitHubBranch = defaultGitHubBranch
	}
	c.Storage.GitHubBasePath = strings.Trim(strings.TrimSpace(c.Storage.GitHubBasePath), "/")
	c.Storage.GitHubAPIURL = strings.TrimRight(strings.TrimSpace(c.Storage.GitHubAPIURL), "/")
	if c.Storage.GitHubAPIURL == "" {
		c.Storage.GitHubAPIURL = defaultGitHubAPIURL
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// firstEnv returns the first non-blank value among keys, checked in order.
func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}
