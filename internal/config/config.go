package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	LibraryDir string `toml:"library_dir"`
	InboxDir   string `toml:"inbox_dir"`
	LogDir     string `toml:"log_dir"`
}

// OCR contains configuration for the text extraction provider.
type OCR struct {
	APIKeys         []string `toml:"api_keys"`
	DefaultAPIKey   string   `toml:"default_api_key"`
	BaseURL         string   `toml:"base_url"`
	Model           string   `toml:"model"`
	ChunkSize       int      `toml:"chunk_size"`
	ChunkDelayMS    int      `toml:"chunk_delay_ms"`
	TimeoutSeconds  int      `toml:"timeout_seconds"`
	ImageExtensions []string `toml:"image_extensions"`
}

// Translator contains LLM connection settings for translation and quality review.
type Translator struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
	RetryBaseMS    int    `toml:"retry_base_ms"`
}

// Summarizer contains LLM settings for chapter memory summarization.
// Connection fields fall back to [translator] when not set.
type Summarizer struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic       string `toml:"ntfy_topic"`
	RequestTimeout  int    `toml:"request_timeout"`
	GlossaryUpdates bool   `toml:"glossary_updates"`
	Chapters        bool   `toml:"chapters"`
	Errors          bool   `toml:"errors"`
}

// Workflow contains session timing and watcher settings.
type Workflow struct {
	WatchPollInterval int `toml:"watch_poll_interval"`
	WatchSettleMS     int `toml:"watch_settle_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for inkwell.
type Config struct {
	Paths         Paths         `toml:"paths"`
	OCR           OCR           `toml:"ocr"`
	Translator    Translator    `toml:"translator"`
	Summarizer    Summarizer    `toml:"summarizer"`
	Notifications Notifications `toml:"notifications"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/inkwell/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The boolean reports whether a
// config file was found on disk.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("inkwell.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for pipeline operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LibraryDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.InboxDir) != "" {
		// Best-effort: the inbox may live on storage that is offline.
		_ = os.MkdirAll(c.Paths.InboxDir, 0o755)
	}
	return nil
}

// Credentials returns the OCR API key pool, falling back to the default key
// when the pool is empty and a default is configured.
func (c *Config) Credentials() []string {
	keys := make([]string, 0, len(c.OCR.APIKeys))
	for _, key := range c.OCR.APIKeys {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			keys = append(keys, trimmed)
		}
	}
	if len(keys) == 0 {
		if fallback := strings.TrimSpace(c.OCR.DefaultAPIKey); fallback != "" {
			keys = append(keys, fallback)
		}
	}
	return keys
}

// SummarizerLLM returns the summarizer connection settings, falling back to
// [translator] for fields left unset.
func (c *Config) SummarizerLLM() Translator {
	out := c.Translator
	if key := strings.TrimSpace(c.Summarizer.APIKey); key != "" {
		out.APIKey = key
	}
	if base := strings.TrimSpace(c.Summarizer.BaseURL); base != "" {
		out.BaseURL = base
	}
	if model := strings.TrimSpace(c.Summarizer.Model); model != "" {
		out.Model = model
	}
	return out
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
