package config

// Storage and scheduler backend names accepted in configuration.
const (
	StorageGitHub  = "github"
	StorageLocal   = "local"
	SchedulerLocal = "local"
	SchedulerAMQP  = "amqp"
)

const (
	defaultConfigPath             = "~/.config/captioner/config.toml"
	defaultDataDir                = "~/.local/share/captioner"
	defaultLogDir                 = "~/.local/share/captioner/logs"
	defaultLocalStorageDir        = "~/.local/share/captioner/subtitles"
	defaultAPIBind                = "127.0.0.1:7488"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultBatchSize              = 30
	defaultWordsPerSubtitle       = 10
	defaultTranslationWorkers     = 1
	defaultBatchRetryDelaySeconds = 2
	defaultSourceLanguage         = "English"
	defaultSchedulerWorkers       = 2
	defaultSchedulerBuffer        = 64
	defaultAMQPQueue              = "captioner.jobs"
	defaultTranscriptionBaseURL   = "https://api.elevenlabs.io/v1/speech-to-text"
	defaultTranscriptionModel     = "scribe_v1"
	defaultTranscriptionTimeout   = 600
	defaultDriveDownloadURL       = "https://drive.google.com/uc?export=download"
	defaultLLMBaseURL             = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel               = "google/gemini-2.5-flash"
	defaultLLMReferer             = "https://github.com/captioner/captioner"
	defaultLLMTitle               = "Captioner Subtitle Translator"
	defaultLLMTimeoutSeconds      = 120
	defaultGitHubAPIURL           = "https://api.github.com"
	defaultGitHubBranch           = "main"
	defaultGitHubBasePath         = "subtitles"
	defaultNotifyRequestTimeout   = 10
	defaultTenantID               = "default"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Workflow: Workflow{
			BatchSize:              defaultBatchSize,
			WordsPerSubtitle:       defaultWordsPerSubtitle,
			TranslationWorkers:     defaultTranslationWorkers,
			BatchRetryDelaySeconds: defaultBatchRetryDelaySeconds,
			SourceLanguage:         defaultSourceLanguage,
		},
		Scheduler: Scheduler{
			Backend:   SchedulerLocal,
			Workers:   defaultSchedulerWorkers,
			Buffer:    defaultSchedulerBuffer,
			AMQPQueue: defaultAMQPQueue,
		},
		Transcription: Transcription{
			BaseURL:          defaultTranscriptionBaseURL,
			Model:            defaultTranscriptionModel,
			TimeoutSeconds:   defaultTranscriptionTimeout,
			DriveDownloadURL: defaultDriveDownloadURL,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Storage: Storage{
			Backend:        StorageLocal,
			LocalDir:       defaultLocalStorageDir,
			GitHubBranch:   defaultGitHubBranch,
			GitHubBasePath: defaultGitHubBasePath,
			GitHubAPIURL:   defaultGitHubAPIURL,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			JobCompleted:   true,
			JobFailed:      true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Tenant: Tenant{
			DefaultID: defaultTenantID,
		},
	}
}
