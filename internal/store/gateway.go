package store

import (
	"context"
	"fmt"
	"log/slog"

	"inkwell/internal/glossary"
	"inkwell/internal/logging"
)

// Notifier publishes fire-and-forget change events. The gateway only ever
// publishes; nothing in the pipeline subscribes.
type Notifier interface {
	Publish(ctx context.Context, topic, payload string) error
}

// TopicGlossaryChanged is published after glossary writes so other open
// sessions can refresh their term cache.
const TopicGlossaryChanged = "glossary-changed"

// ChapterResult is the payload of one finalize call. HistoryReason defaults
// to the initial-translation reason when empty; ReviewNotes are the approved
// quality suggestions recorded with the history row.
type ChapterResult struct {
	ExtractedText  string
	TranslatedText string
	Memory         string
	HistoryReason  string
	ReviewNotes    []string
}

// SaveReport records which best-effort writes succeeded.
type SaveReport struct {
	TranslatedText bool
	ExtractedText  bool
	Memory         bool
	GlossaryTerms  bool
	History        bool
}

// Gateway is the thin persistence facade the orchestrator finalizes
// through. Each write is independently best-effort and reported as a
// boolean; only the translated-text write, the chapter's primary output, is
// allowed to fail the call.
type Gateway struct {
	store    *Store
	notifier Notifier
	logger   *slog.Logger
}

// NewGateway builds a gateway. notifier may be nil.
func NewGateway(store *Store, notifier Notifier, logger *slog.Logger) *Gateway {
	return &Gateway{
		store:    store,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "gateway"),
	}
}

// SaveChapterResult persists one finalized chapter. The translated-text
// write failing returns an error; every other failure is logged and
// reflected in the report only.
func (g *Gateway) SaveChapterResult(ctx context.Context, chapterID string, result ChapterResult) (SaveReport, error) {
	logger := logging.WithContext(ctx, g.logger)
	var report SaveReport

	if err := g.store.SaveTranslatedText(ctx, chapterID, result.TranslatedText); err != nil {
		return report, fmt.Errorf("save translated text: %w", err)
	}
	report.TranslatedText = true

	if err := g.store.SaveExtractedText(ctx, chapterID, result.ExtractedText); err != nil {
		logger.Error("extracted text save failed", logging.Error(err))
	} else {
		report.ExtractedText = true
	}

	if err := g.store.SaveChapterMemory(ctx, chapterID, result.Memory); err != nil {
		logger.Error("chapter memory save failed", logging.Error(err))
	} else {
		report.Memory = true
	}

	reason := result.HistoryReason
	if reason == "" {
		reason = HistoryInitial
	}
	if err := g.store.AppendHistory(ctx, chapterID, result.TranslatedText, reason, result.ReviewNotes); err != nil {
		logger.Error("history append failed", logging.Error(err))
	} else {
		report.History = true
	}
	return report, nil
}

// SaveGlossaryTerms upserts approved terms for a series. Duplicate source
// terms within the slice resolve by upsert order; per-series uniqueness is
// the store's constraint.
func (g *Gateway) SaveGlossaryTerms(ctx context.Context, seriesID string, terms []glossary.Term) bool {
	logger := logging.WithContext(ctx, g.logger)
	ok := true
	for _, term := range terms {
		if err := g.store.UpsertGlossaryTerm(ctx, seriesID, term); err != nil {
			logger.Error("glossary term save failed",
				logging.String("source_term", term.SourceTerm),
				logging.Error(err),
			)
			ok = false
		}
	}
	return ok
}

// BroadcastGlossaryChanged publishes the glossary-changed event.
// Fire-and-forget: delivery failures are logged, never surfaced.
func (g *Gateway) BroadcastGlossaryChanged(ctx context.Context, seriesID string) {
	if g.notifier == nil {
		return
	}
	if err := g.notifier.Publish(ctx, TopicGlossaryChanged, seriesID); err != nil {
		logging.WithContext(ctx, g.logger).Warn("glossary-changed broadcast failed", logging.Error(err))
	}
}
