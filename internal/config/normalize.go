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
	c.normalizeOCR()
	c.normalizeTranslator()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.InboxDir) == "" {
		c.Paths.InboxDir = defaultInboxDir
	}
	if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
		return fmt.Errorf("paths.inbox_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeOCR() {
	if len(c.OCR.APIKeys) == 0 && c.OCR.DefaultAPIKey == "" {
		if value, ok := os.LookupEnv("INKWELL_OCR_API_KEY"); ok {
			c.OCR.DefaultAPIKey = value
		}
	}
	c.OCR.BaseURL = strings.TrimSpace(c.OCR.BaseURL)
	if c.OCR.BaseURL == "" {
		c.OCR.BaseURL = defaultOCRBaseURL
	}
	c.OCR.Model = strings.TrimSpace(c.OCR.Model)
	if c.OCR.Model == "" {
		c.OCR.Model = defaultOCRModel
	}
	if c.OCR.ChunkSize <= 0 {
		c.OCR.ChunkSize = defaultOCRChunkSize
	}
	if c.OCR.ChunkDelayMS < 0 {
		c.OCR.ChunkDelayMS = defaultOCRChunkDelayMS
	}
	if c.OCR.TimeoutSeconds <= 0 {
		c.OCR.TimeoutSeconds = defaultOCRTimeoutSeconds
	}
	if len(c.OCR.ImageExtensions) == 0 {
		c.OCR.ImageExtensions = append([]string{}, defaultImageExtensions...)
	}
	for i, ext := range c.OCR.ImageExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.OCR.ImageExtensions[i] = ext
	}
}

func (c *Config) normalizeTranslator() {
	if c.Translator.APIKey == "" {
		if value, ok := os.LookupEnv("INKWELL_LLM_API_KEY"); ok {
			c.Translator.APIKey = value
		}
	}
	c.Translator.BaseURL = strings.TrimSpace(c.Translator.BaseURL)
	if c.Translator.BaseURL == "" {
		c.Translator.BaseURL = defaultTranslatorBaseURL
	}
	c.Translator.Model = strings.TrimSpace(c.Translator.Model)
	if c.Translator.Model == "" {
		c.Translator.Model = defaultTranslatorModel
	}
	if c.Translator.TimeoutSeconds <= 0 {
		c.Translator.TimeoutSeconds = defaultTranslatorTimeout
	}
	if c.Translator.MaxRetries <= 0 {
		c.Translator.MaxRetries = defaultMaxRetries
	}
	if c.Translator.RetryBaseMS <= 0 {
		c.Translator.RetryBaseMS = defaultRetryBaseMS
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.WatchPollInterval <= 0 {
		c.Workflow.WatchPollInterval = defaultWatchPollInterval
	}
	if c.Workflow.WatchSettleMS <= 0 {
		c.Workflow.WatchSettleMS = defaultWatchSettleMS
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
