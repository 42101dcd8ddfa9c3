// Package translator calls the translation+quality-review model: one request
// produces the translated chapter text plus a structured quality report.
package translator

import (
	"context"
	"fmt"
	"log/slog"

	"inkwell/internal/config"
	"inkwell/internal/glossary"
	"inkwell/internal/logging"
	"inkwell/internal/services"
	"inkwell/internal/services/llm"
)

// Metadata is the series-level context handed to the model with every
// chapter.
type Metadata struct {
	Title          string
	Genre          string
	ToneNotes      string
	SourceLanguage string
	TargetLanguage string
}

// Request carries everything one translation run needs. Improvements are
// reviewer-approved quality suggestions a regeneration must apply.
type Request struct {
	CombinedText string
	Glossary     map[string]glossary.Term
	Series       Metadata
	PriorMemory  string
	Improvements []string
}

// QualityReport is the review half of a translation response.
type QualityReport struct {
	Issues              []string        `json:"issues"`
	Suggestions         []string        `json:"suggestions"`
	CulturalNotes       []string        `json:"culturalNotes"`
	GlossarySuggestions []glossary.Term `json:"glossarySuggestions"`
	ChapterMemory       string          `json:"chapterMemory"`
	ChapterSummary      string          `json:"chapterSummary"`
}

// Result is one complete translation outcome. Regenerations produce a new
// Result; existing values are never mutated.
type Result struct {
	Text          string        `json:"translatedText"`
	QualityReport QualityReport `json:"qualityReport"`
}

// ChapterMemory returns the memory draft produced with this result.
func (r *Result) ChapterMemory() string {
	return r.QualityReport.ChapterMemory
}

// Client performs translate-and-review calls.
type Client struct {
	llm    *llm.Client
	logger *slog.Logger
}

// New builds a translator around the configured model. The transport never
// retries on its own; the orchestrator's retry loop is the only retry
// authority, so one TranslateAndReview call costs exactly one request.
func New(cfg config.Translator, logger *slog.Logger, opts ...llm.Option) *Client {
	clientOpts := append([]llm.Option{llm.WithRetryMaxAttempts(1)}, opts...)
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		Referer:        cfg.Referer,
		Title:          cfg.Title,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, clientOpts...)
	return &Client{
		llm:    client,
		logger: logging.NewComponentLogger(logger, "translator"),
	}
}

// TranslateAndReview performs one translation+quality-check call. The
// returned result keeps page delimiters intact so the text can be split back
// into pages.
func (c *Client) TranslateAndReview(ctx context.Context, req Request) (*Result, error) {
	if req.CombinedText == "" {
		return nil, services.Wrap(services.ErrValidation, "translator", "translate", "combined text is empty", nil)
	}

	logger := logging.WithContext(ctx, c.logger)
	logger.Info("translating chapter",
		logging.Int("glossary_terms", len(req.Glossary)),
		logging.Bool("has_prior_memory", req.PriorMemory != ""),
	)

	raw, err := c.llm.Complete(ctx, llm.Request{
		System: translationSystemPrompt(req.Series),
		User:   translationUserPrompt(req),
	})
	if err != nil {
		return nil, fmt.Errorf("translation request: %w", err)
	}

	var result Result
	if err := llm.DecodeLLMJSON(raw, &result); err != nil {
		return nil, services.Wrap(services.ErrParse, "translator", "translate", "no translation object in model response", err)
	}
	if result.Text == "" {
		return nil, services.Wrap(services.ErrParse, "translator", "translate", "model response has empty translatedText", nil)
	}

	for i := range result.QualityReport.GlossarySuggestions {
		term := &result.QualityReport.GlossarySuggestions[i]
		term.AutoSuggested = true
		term.Status = glossary.StatusPending
		if preserved, ok := glossary.LookupHonorific(term.SourceTerm); ok {
			term.TranslatedTerm = preserved.TranslatedTerm
			term.EntityType = preserved.EntityType
		}
	}

	logger.Info("translation complete",
		logging.Int("issues", len(result.QualityReport.Issues)),
		logging.Int("suggestions", len(result.QualityReport.Suggestions)),
		logging.Int("glossary_suggestions", len(result.QualityReport.GlossarySuggestions)),
	)
	return &result, nil
}
