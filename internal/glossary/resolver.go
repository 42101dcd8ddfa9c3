package glossary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/logging"
	"inkwell/internal/services"
	"inkwell/internal/services/llm"
)

// Resolver proposes glossary terms for candidate tokens. Known honorifics
// are classified locally so the preservation policy never depends on model
// behavior; everything else goes through the suggestion model in one batch
// request to keep cross-term inference consistent.
type Resolver struct {
	llm    *llm.Client
	logger *slog.Logger
}

// NewResolver builds a resolver backed by the configured suggestion model.
func NewResolver(cfg config.Translator, logger *slog.Logger, opts ...llm.Option) *Resolver {
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		Referer:        cfg.Referer,
		Title:          cfg.Title,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, opts...)
	return &Resolver{
		llm:    client,
		logger: logging.NewComponentLogger(logger, "glossary"),
	}
}

type suggestionResponse struct {
	SuggestedTerms []Term `json:"suggestedTerms"`
}

// ProposeTerms suggests glossary entries for each candidate, all with
// status pending. Duplicate sourceTerm suggestions within one batch resolve
// last-wins. When the model response contains no usable JSON the error
// carries the parse marker; callers fall back to HeuristicTerms so review
// is never presented with zero suggestions.
func (r *Resolver) ProposeTerms(ctx context.Context, candidates []string, existing map[string]Term, sourceContext string) ([]Term, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	preserved := make(map[string]Term)
	var remaining []string
	for _, candidate := range candidates {
		if term, ok := LookupHonorific(candidate); ok {
			preserved[strings.ToLower(candidate)] = term
			continue
		}
		remaining = append(remaining, candidate)
	}

	terms := make([]Term, 0, len(candidates))
	if len(remaining) > 0 {
		suggested, err := r.suggest(ctx, remaining, existing, sourceContext)
		if err != nil {
			return nil, err
		}
		terms = append(terms, suggested...)
	}
	for _, term := range preserved {
		terms = append(terms, term)
	}
	return dedupe(terms), nil
}

// Propose is the lenient entry point: on a parse failure it logs and falls
// back to the deterministic classifier instead of surfacing the error.
func (r *Resolver) Propose(ctx context.Context, candidates []string, existing map[string]Term, sourceContext string) []Term {
	terms, err := r.ProposeTerms(ctx, candidates, existing, sourceContext)
	if err == nil {
		return terms
	}
	logger := logging.WithContext(ctx, r.logger)
	if errors.Is(err, services.ErrParse) {
		logger.Warn("suggestion response unparseable, using heuristic classifier", logging.Error(err))
	} else {
		logger.Warn("suggestion request failed, using heuristic classifier", logging.Error(err))
	}
	return HeuristicTerms(candidates)
}

func (r *Resolver) suggest(ctx context.Context, candidates []string, existing map[string]Term, sourceContext string) ([]Term, error) {
	raw, err := r.llm.CompleteJSON(ctx, suggestionSystemPrompt, suggestionUserPrompt(candidates, existing, sourceContext))
	if err != nil {
		return nil, fmt.Errorf("glossary suggestion request: %w", err)
	}

	var response suggestionResponse
	if err := llm.DecodeLLMJSON(raw, &response); err != nil {
		return nil, services.Wrap(services.ErrParse, "glossary", "suggest", "no suggestedTerms object in model response", err)
	}

	terms := make([]Term, 0, len(response.SuggestedTerms))
	for _, term := range response.SuggestedTerms {
		term.SourceTerm = strings.TrimSpace(term.SourceTerm)
		if term.SourceTerm == "" {
			continue
		}
		// The preservation policy overrides whatever the model proposed.
		if preserved, ok := LookupHonorific(term.SourceTerm); ok {
			term.TranslatedTerm = preserved.TranslatedTerm
			term.EntityType = preserved.EntityType
			if term.Notes == "" {
				term.Notes = preserved.Notes
			}
		}
		term.AutoSuggested = true
		term.Status = StatusPending
		if term.Gender == "" {
			term.Gender = GenderUnknown
		}
		if term.EntityType == "" {
			term.EntityType = EntityTerm
		}
		terms = append(terms, term)
	}
	return terms, nil
}

// dedupe collapses duplicate sourceTerm suggestions, keeping the last one.
func dedupe(terms []Term) []Term {
	index := make(map[string]int, len(terms))
	out := terms[:0]
	for _, term := range terms {
		key := strings.ToLower(term.SourceTerm)
		if at, ok := index[key]; ok {
			out[at] = term
			continue
		}
		index[key] = len(out)
		out = append(out, term)
	}
	return out
}
