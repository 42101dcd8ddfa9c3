package config

const (
	defaultLibraryDir        = "~/.local/share/inkwell/library"
	defaultInboxDir          = "~/.local/share/inkwell/inbox"
	defaultLogDir            = "~/.local/share/inkwell/logs"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultOCRBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultOCRModel          = "google/gemini-3-flash-preview"
	defaultOCRChunkSize      = 3
	defaultOCRChunkDelayMS   = 500
	defaultOCRTimeoutSeconds = 60
	defaultTranslatorBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultTranslatorModel   = "google/gemini-3-pro-preview"
	defaultTranslatorTitle   = "Inkwell Translator"
	defaultTranslatorTimeout = 120
	defaultMaxRetries        = 3
	defaultRetryBaseMS       = 1000
	defaultNotifyTimeout     = 10
	defaultWatchPollInterval = 5
	defaultWatchSettleMS     = 2000
)

var defaultImageExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			InboxDir:   defaultInboxDir,
			LogDir:     defaultLogDir,
		},
		OCR: OCR{
			BaseURL:         defaultOCRBaseURL,
			Model:           defaultOCRModel,
			ChunkSize:       defaultOCRChunkSize,
			ChunkDelayMS:    defaultOCRChunkDelayMS,
			TimeoutSeconds:  defaultOCRTimeoutSeconds,
			ImageExtensions: append([]string{}, defaultImageExtensions...),
		},
		Translator: Translator{
			BaseURL:        defaultTranslatorBaseURL,
			Model:          defaultTranslatorModel,
			Title:          defaultTranslatorTitle,
			TimeoutSeconds: defaultTranslatorTimeout,
			MaxRetries:     defaultMaxRetries,
			RetryBaseMS:    defaultRetryBaseMS,
		},
		Notifications: Notifications{
			RequestTimeout:  defaultNotifyTimeout,
			GlossaryUpdates: true,
			Chapters:        true,
			Errors:          true,
		},
		Workflow: Workflow{
			WatchPollInterval: defaultWatchPollInterval,
			WatchSettleMS:     defaultWatchSettleMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
