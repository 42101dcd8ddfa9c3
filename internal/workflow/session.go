// Package workflow runs one chapter's translation session: extraction,
// translation with retry, the human review gate, glossary-edit-triggered
// regeneration, and final persistence.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"inkwell/internal/extractor"
	"inkwell/internal/glossary"
	"inkwell/internal/logging"
	"inkwell/internal/memory"
	"inkwell/internal/ocr"
	"inkwell/internal/pages"
	"inkwell/internal/review"
	"inkwell/internal/services"
	"inkwell/internal/store"
	"inkwell/internal/translator"
)

// State is the session's position in the chapter pipeline.
type State string

const (
	StateIdle           State = "idle"
	StateExtracting     State = "extracting"
	StateTranslating    State = "translating"
	StateAwaitingReview State = "awaiting-review"
	StateRegenerating   State = "regenerating"
	StateComplete       State = "complete"
	StateFailed         State = "failed"
)

const (
	defaultMaxRetries = 3
	defaultRetryBase  = time.Second
)

// Translator is the translate-and-review provider.
type Translator interface {
	TranslateAndReview(ctx context.Context, req translator.Request) (*translator.Result, error)
}

// Memorizer derives the rolling chapter memory. Best-effort by contract.
type Memorizer interface {
	DeriveEnhancedEntry(ctx context.Context, translatedText, priorSummary string) memory.Entry
}

// Gateway is the persistence facade finalize writes through.
type Gateway interface {
	SaveChapterResult(ctx context.Context, chapterID string, result store.ChapterResult) (store.SaveReport, error)
	SaveGlossaryTerms(ctx context.Context, seriesID string, terms []glossary.Term) bool
	BroadcastGlossaryChanged(ctx context.Context, seriesID string)
}

// Extractor turns page images into extraction reports.
type Extractor interface {
	Extract(ctx context.Context, images []ocr.PageImage, sourceLanguage string, opts extractor.Options) (*extractor.Report, error)
}

// Suggester proposes glossary terms for candidate tokens found in the
// source text. Lenient by contract: implementations fall back internally
// and never fail the pipeline.
type Suggester interface {
	Propose(ctx context.Context, candidates []string, existing map[string]glossary.Term, sourceContext string) []glossary.Term
}

// StatusRecorder persists chapter lifecycle transitions. Optional.
type StatusRecorder interface {
	UpdateChapterStatus(ctx context.Context, id string, status store.ChapterStatus, errorMessage string) error
}

// MemoryLog appends to the chapter memory log. Optional.
type MemoryLog interface {
	AppendMemoryEntry(ctx context.Context, chapterID, summary string, tags, keyEvents []string) error
}

// Deps are the session's collaborators. Translator and Gateway are
// required; the rest may be nil.
type Deps struct {
	Translator Translator
	Extractor  Extractor
	Suggester  Suggester
	Memory     Memorizer
	Gateway    Gateway
	Status     StatusRecorder
	MemoryLog  MemoryLog
	Logger     *slog.Logger
	// Sleep overrides the retry backoff sleep (injected in tests).
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry observes retry attempts as attempt/max so callers can render
	// progress.
	OnRetry func(attempt, max int, err error)
}

// Params identify the chapter and carry its translation context.
type Params struct {
	SeriesID      string
	ChapterID     string
	SeriesTitle   string
	ChapterNumber int
	Series        translator.Metadata
	Glossary      map[string]glossary.Term
	PriorMemory   string
	MaxRetries    int
	RetryBase     time.Duration
}

// Session drives one chapter through the pipeline. Not safe for concurrent
// use; a session belongs to a single review flow.
type Session struct {
	deps   Deps
	params Params
	logger *slog.Logger

	state       State
	combined    string
	result      *translator.Result
	reviewSet   *review.Set
	memoryDraft string
	failure     error
}

// NewSession builds an idle session for one chapter.
func NewSession(deps Deps, params Params) (*Session, error) {
	if deps.Translator == nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "new session", "translator is required", nil)
	}
	if strings.TrimSpace(params.SeriesID) == "" || strings.TrimSpace(params.ChapterID) == "" {
		return nil, services.Wrap(services.ErrValidation, "workflow", "new session", "series and chapter identifiers are required", nil)
	}
	if params.MaxRetries <= 0 {
		params.MaxRetries = defaultMaxRetries
	}
	if params.RetryBase <= 0 {
		params.RetryBase = defaultRetryBase
	}
	if deps.Sleep == nil {
		deps.Sleep = func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		}
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	logger := logging.NewComponentLogger(deps.Logger, "workflow").With(
		logging.String(logging.FieldSeriesID, params.SeriesID),
		logging.String(logging.FieldChapterID, params.ChapterID),
	)
	return &Session{deps: deps, params: params, logger: logger, state: StateIdle}, nil
}

// State returns the session's current pipeline state.
func (s *Session) State() State { return s.state }

// Err returns the failure that moved the session to Failed, if any.
func (s *Session) Err() error { return s.failure }

// Result returns the latest translation result. Regeneration replaces the
// whole result; callers always hold the newest one.
func (s *Session) Result() *translator.Result { return s.result }

// Review returns the review gate's item set.
func (s *Session) Review() *review.Set { return s.reviewSet }

// MemoryDraft returns the editable chapter-memory draft.
func (s *Session) MemoryDraft() string { return s.memoryDraft }

// EditMemoryDraft replaces the chapter-memory draft.
func (s *Session) EditMemoryDraft(text string) { s.memoryDraft = text }

// CombinedText returns the source document the session will translate.
func (s *Session) CombinedText() string { return s.combined }

// SetCombinedText supplies source text directly, the manual-entry path that
// bypasses OCR.
func (s *Session) SetCombinedText(text string) {
	s.combined = pages.NormalizeText(text)
}

// Extract runs OCR over the chapter's images and stores the combined
// document. The session stays idle on success so translation can start;
// zero successful pages is a failure.
func (s *Session) Extract(ctx context.Context, images []ocr.PageImage, opts extractor.Options) (*extractor.Report, error) {
	if s.state != StateIdle {
		return nil, s.sequenceError("extract")
	}
	if s.deps.Extractor == nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "extract", "no extractor configured", nil)
	}

	ctx = s.annotate(ctx, "extract")
	s.setState(ctx, StateExtracting)
	report, err := s.deps.Extractor.Extract(ctx, images, s.params.Series.SourceLanguage, opts)
	if err != nil {
		return report, s.fail(ctx, fmt.Errorf("extraction: %w", err))
	}
	if report.SuccessCount == 0 {
		return report, s.fail(ctx, services.Wrap(services.ErrValidation, "workflow", "extract", "no pages extracted", nil))
	}

	s.combined = pages.Combine(report.Pages())
	s.setState(ctx, StateIdle)
	s.logger.Info("extraction complete",
		logging.Int("pages", report.SuccessCount),
		logging.Int("failed", report.FailureCount),
	)
	return report, nil
}

// Start translates the combined document and opens the review gate.
func (s *Session) Start(ctx context.Context) error {
	if s.state != StateIdle {
		return s.sequenceError("start")
	}
	if strings.TrimSpace(s.combined) == "" {
		return services.Wrap(services.ErrValidation, "workflow", "start", "combined text is empty", nil)
	}

	ctx = s.annotate(ctx, "translate")
	s.setState(ctx, StateTranslating)
	result, err := s.translateWithRetry(ctx, s.buildRequest(s.params.Glossary, nil))
	if err != nil {
		return s.fail(ctx, err)
	}

	s.adoptResult(result)
	s.proposeGlossaryTerms(ctx)
	s.setState(ctx, StateAwaitingReview)
	return nil
}

// proposeGlossaryTerms runs candidate detection over the source document and
// adds the suggester's proposals to the review set. Terms the quality report
// already proposed keep precedence; the suggester only fills gaps.
func (s *Session) proposeGlossaryTerms(ctx context.Context) {
	if s.deps.Suggester == nil {
		return
	}
	candidates := glossary.DetectCandidates(s.combined, s.params.Glossary)
	if len(candidates) == 0 {
		return
	}

	seen := make(map[string]struct{})
	for _, item := range s.reviewSet.Items() {
		if item.Kind == review.KindGlossaryTerm {
			seen[strings.ToLower(item.Term.SourceTerm)] = struct{}{}
		}
	}

	proposed := s.deps.Suggester.Propose(ctx, candidates, s.params.Glossary, s.combined)
	added := 0
	for _, term := range proposed {
		if _, dup := seen[strings.ToLower(term.SourceTerm)]; dup {
			continue
		}
		s.reviewSet.AddGlossaryTerm(term)
		added++
	}
	if added > 0 {
		s.logger.Info("glossary candidates proposed",
			logging.Int("candidates", len(candidates)),
			logging.Int("added", added),
		)
	}
}

// Finalize closes the review gate. With unresolved items it fails with the
// pending-review marker and performs no side effects. An approved glossary
// edit triggers one regeneration with the edited glossary as authoritative
// and the approved quality suggestions applied; the regenerated result is
// auto-finalized. Without a regeneration the approved suggestions are
// recorded on the chapter's history row. Completion persists the chapter
// through the gateway.
func (s *Session) Finalize(ctx context.Context) error {
	if s.state != StateAwaitingReview {
		return s.sequenceError("finalize")
	}
	if s.reviewSet.HasPending() {
		return services.Wrap(services.ErrPendingReview, "workflow", "finalize", "unresolved review items remain", nil)
	}

	ctx = s.annotate(ctx, "finalize")
	approved := s.reviewSet.ApprovedTerms()
	improvements := s.reviewSet.ApprovedSuggestions()
	historyReason := store.HistoryInitial

	if s.reviewSet.HasModifiedApprovedTerms() {
		// Previously generated text may use glossary terms under their old
		// form, so the whole translation is regenerated with the edited
		// glossary baked in and the approved suggestions applied. The prior
		// result and memory draft are discarded.
		s.setState(ctx, StateRegenerating)
		s.logger.Info("glossary edited, regenerating translation", logging.Int("approved_terms", len(approved)))

		merged := mergeGlossary(s.params.Glossary, approved)
		result, err := s.translateWithRetry(ctx, s.buildRequest(merged, improvements))
		if err != nil {
			return s.fail(ctx, fmt.Errorf("regeneration: %w", err))
		}
		s.result = result
		s.memoryDraft = result.ChapterMemory()
		historyReason = store.HistoryRegeneration
	}

	return s.complete(ctx, approved, improvements, historyReason)
}

func (s *Session) complete(ctx context.Context, approved []glossary.Term, improvements []string, historyReason string) error {
	entry := memory.Entry{Summary: s.memoryDraft}
	if s.deps.Memory != nil {
		entry = s.deps.Memory.DeriveEnhancedEntry(ctx, s.result.Text, s.memoryDraft)
		if entry.Summary == "" {
			entry.Summary = s.memoryDraft
		}
	}

	if s.deps.Gateway != nil {
		if _, err := s.deps.Gateway.SaveChapterResult(ctx, s.params.ChapterID, store.ChapterResult{
			ExtractedText:  s.combined,
			TranslatedText: s.result.Text,
			Memory:         entry.Summary,
			HistoryReason:  historyReason,
			ReviewNotes:    improvements,
		}); err != nil {
			return s.fail(ctx, fmt.Errorf("persist chapter: %w", err))
		}
		if len(approved) > 0 {
			s.deps.Gateway.SaveGlossaryTerms(ctx, s.params.SeriesID, approved)
			s.deps.Gateway.BroadcastGlossaryChanged(ctx, s.params.SeriesID)
		}
	}
	if s.deps.MemoryLog != nil && entry.Summary != "" {
		if err := s.deps.MemoryLog.AppendMemoryEntry(ctx, s.params.ChapterID, entry.Summary, entry.Tags, entry.KeyEvents); err != nil {
			s.logger.Warn("memory log append failed", logging.Error(err))
		}
	}

	s.setState(ctx, StateComplete)
	s.logger.Info("chapter complete",
		logging.Int("chapter", s.params.ChapterNumber),
		logging.Int("approved_terms", len(approved)),
	)
	return nil
}

// annotate threads the chapter's identity and the current stage through the
// context so downstream log lines carry them.
func (s *Session) annotate(ctx context.Context, stage string) context.Context {
	ctx = services.WithSeriesID(ctx, s.params.SeriesID)
	ctx = services.WithChapterID(ctx, s.params.ChapterID)
	return services.WithStage(ctx, stage)
}

func (s *Session) buildRequest(terms map[string]glossary.Term, improvements []string) translator.Request {
	return translator.Request{
		CombinedText: s.combined,
		Glossary:     terms,
		Series:       s.params.Series,
		PriorMemory:  s.params.PriorMemory,
		Improvements: improvements,
	}
}

func (s *Session) adoptResult(result *translator.Result) {
	s.result = result
	s.memoryDraft = result.ChapterMemory()
	s.reviewSet = review.NewSet()
	for _, suggestion := range result.QualityReport.Suggestions {
		s.reviewSet.AddSuggestion(suggestion)
	}
	for _, term := range result.QualityReport.GlossarySuggestions {
		s.reviewSet.AddGlossaryTerm(term)
	}
}

// translateWithRetry retries transient failures with exponential backoff:
// base delay doubling per attempt, capped at MaxRetries attempts total.
func (s *Session) translateWithRetry(ctx context.Context, req translator.Request) (*translator.Result, error) {
	var lastErr error
	delay := s.params.RetryBase
	for attempt := 1; attempt <= s.params.MaxRetries; attempt++ {
		result, err := s.deps.Translator.TranslateAndReview(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !services.Retryable(err) {
			return nil, err
		}
		if s.deps.OnRetry != nil {
			s.deps.OnRetry(attempt, s.params.MaxRetries, err)
		}
		s.logger.Warn("translation attempt failed",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", s.params.MaxRetries),
			logging.Error(err),
		)
		if attempt == s.params.MaxRetries {
			break
		}
		if sleepErr := s.deps.Sleep(ctx, delay); sleepErr != nil {
			return nil, sleepErr
		}
		delay *= 2
	}
	return nil, fmt.Errorf("translation failed after %d attempts: %w", s.params.MaxRetries, lastErr)
}

func (s *Session) fail(ctx context.Context, err error) error {
	s.failure = err
	s.state = StateFailed
	if s.deps.Status != nil {
		if statusErr := s.deps.Status.UpdateChapterStatus(ctx, s.params.ChapterID, store.StatusFailed, err.Error()); statusErr != nil {
			s.logger.Warn("status update failed", logging.Error(statusErr))
		}
	}
	s.logger.Error("session failed", logging.Error(err))
	return err
}

func (s *Session) setState(ctx context.Context, state State) {
	s.state = state
	if s.deps.Status == nil {
		return
	}
	if status, ok := chapterStatus(state); ok {
		if err := s.deps.Status.UpdateChapterStatus(ctx, s.params.ChapterID, status, ""); err != nil {
			s.logger.Warn("status update failed", logging.Error(err))
		}
	}
}

func chapterStatus(state State) (store.ChapterStatus, bool) {
	switch state {
	case StateExtracting:
		return store.StatusExtracting, true
	case StateTranslating, StateRegenerating:
		return store.StatusTranslating, true
	case StateAwaitingReview:
		return store.StatusReviewing, true
	case StateComplete:
		return store.StatusCompleted, true
	case StateFailed:
		return store.StatusFailed, true
	}
	return "", false
}

func (s *Session) sequenceError(operation string) error {
	return services.Wrap(services.ErrValidation, "workflow", operation,
		fmt.Sprintf("not allowed in state %q", s.state), nil)
}

// mergeGlossary overlays approved terms onto the existing glossary, keyed
// by lowercased source term. The edited terms win.
func mergeGlossary(existing map[string]glossary.Term, approved []glossary.Term) map[string]glossary.Term {
	merged := make(map[string]glossary.Term, len(existing)+len(approved))
	for key, term := range existing {
		merged[strings.ToLower(key)] = term
	}
	for _, term := range approved {
		merged[strings.ToLower(term.SourceTerm)] = term
	}
	return merged
}

// IsPendingReview reports whether err is the review-gate violation.
func IsPendingReview(err error) bool {
	return errors.Is(err, services.ErrPendingReview)
}
