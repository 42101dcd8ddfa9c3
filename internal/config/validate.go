package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateOCR(); err != nil {
		return err
	}
	if err := c.validateTranslator(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateOCR() error {
	if len(c.Credentials()) == 0 {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/inkwell/config.toml"
		}
		return fmt.Errorf("ocr.api_keys is required. Set INKWELL_OCR_API_KEY or edit %s (create with 'inkwell config init')", defaultPath)
	}
	if c.OCR.ChunkSize > 16 {
		return errors.New("ocr.chunk_size must be 16 or fewer images per request")
	}
	return nil
}

func (c *Config) validateTranslator() error {
	if strings.TrimSpace(c.Translator.APIKey) == "" {
		return errors.New("translator.api_key is required. Set INKWELL_LLM_API_KEY or edit the config file")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
		"workflow.watch_poll_interval":  c.Workflow.WatchPollInterval,
		"translator.timeout_seconds":    c.Translator.TimeoutSeconds,
		"ocr.timeout_seconds":           c.OCR.TimeoutSeconds,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
