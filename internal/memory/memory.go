// Package memory maintains the rolling chapter memory: a short summary
// carried from chapter to chapter as translation context. Memory is
// best-effort context, so summarizer failures degrade to the prior value
// instead of failing the surrounding pipeline.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/logging"
	"inkwell/internal/services/llm"
)

// Entry is the richer memory-log record produced alongside the rolling
// summary.
type Entry struct {
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
	KeyEvents []string `json:"keyEvents"`
}

// Manager derives chapter memory via the summarizer model.
type Manager struct {
	llm    *llm.Client
	logger *slog.Logger
}

// NewManager builds a manager around the configured summarizer. cfg is the
// resolved summarizer connection, usually Config.SummarizerLLM().
func NewManager(cfg config.Translator, logger *slog.Logger, opts ...llm.Option) *Manager {
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		Referer:        cfg.Referer,
		Title:          cfg.Title,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, opts...)
	return &Manager{
		llm:    client,
		logger: logging.NewComponentLogger(logger, "memory"),
	}
}

const summarySystemPrompt = `You maintain a rolling story memory for a serialized translation project. Given the latest translated chapter and the existing memory, produce an updated 2-3 sentence memory covering character state, relationships, and unresolved plot threads.

Respond with a single JSON object:
{"summary": "...", "tags": ["..."], "keyEvents": ["..."]}

tags are short topic labels; keyEvents are one-line descriptions of the chapter's pivotal moments. Return JSON only.`

// DeriveSummary produces the next rolling summary. On any summarizer
// failure it returns priorSummary unchanged.
func (m *Manager) DeriveSummary(ctx context.Context, translatedText, priorSummary string) string {
	entry := m.DeriveEnhancedEntry(ctx, translatedText, priorSummary)
	if entry.Summary == "" {
		return priorSummary
	}
	return entry.Summary
}

// DeriveEnhancedEntry produces the full memory-log record. On failure it
// returns an entry holding only priorSummary, with empty tags and events.
func (m *Manager) DeriveEnhancedEntry(ctx context.Context, translatedText, priorSummary string) Entry {
	logger := logging.WithContext(ctx, m.logger)
	fallback := Entry{Summary: priorSummary}
	if strings.TrimSpace(translatedText) == "" {
		return fallback
	}

	raw, err := m.llm.CompleteJSON(ctx, summarySystemPrompt, summaryUserPrompt(translatedText, priorSummary))
	if err != nil {
		logger.Warn("summarizer request failed, keeping prior memory", logging.Error(err))
		return fallback
	}

	var entry Entry
	if err := llm.DecodeLLMJSON(raw, &entry); err != nil {
		logger.Warn("summarizer response unparseable, keeping prior memory", logging.Error(err))
		return fallback
	}
	if strings.TrimSpace(entry.Summary) == "" {
		return fallback
	}
	return entry
}

func summaryUserPrompt(translatedText, priorSummary string) string {
	var b strings.Builder
	if priorSummary != "" {
		fmt.Fprintf(&b, "Existing memory:\n%s\n\n", priorSummary)
	}
	fmt.Fprintf(&b, "Latest chapter:\n%s", translatedText)
	return b.String()
}
