package glossary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inkwell/internal/config"
	"inkwell/internal/logging"
	"inkwell/internal/services/llm"
)

func newTestResolver(t *testing.T, handler http.HandlerFunc) *Resolver {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := config.Translator{APIKey: "key", BaseURL: server.URL, Model: "demo", TimeoutSeconds: 5}
	return NewResolver(cfg, logging.NewNop(), llm.WithSleeper(func(time.Duration) {}))
}

func completion(content string) map[string]any {
	return map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"content": content}}},
	}
}

func TestDetectCandidates(t *testing.T) {
	existing := map[string]Term{
		"jinwoo": {SourceTerm: "Jinwoo", TranslatedTerm: "Jinwoo"},
	}
	text := "Jinwoo met Cha Hae-in near 서울역. the guild praised Sung JINWOO again. 오빠!"

	candidates := DetectCandidates(text, existing)

	want := map[string]bool{"Cha": true, "Hae": true, "서울역": true, "Sung": true, "오빠": true}
	if len(candidates) != len(want) {
		t.Fatalf("candidates = %v, want keys %v", candidates, want)
	}
	for _, candidate := range candidates {
		if !want[candidate] {
			t.Fatalf("unexpected candidate %q in %v", candidate, candidates)
		}
	}
}

func TestDetectCandidatesSkipsLowercaseLatin(t *testing.T) {
	candidates := DetectCandidates("the quick brown fox", nil)
	if len(candidates) != 0 {
		t.Fatalf("candidates = %v, want none", candidates)
	}
}

func TestProposeTermsPreservesHonorifics(t *testing.T) {
	resolver := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(completion(`{"suggestedTerms":[{"sourceTerm":"마왕성","translatedTerm":"Demon King's Castle","entityType":"Place"}]}`))
	})

	terms, err := resolver.ProposeTerms(context.Background(), []string{"오빠", "마왕성"}, nil, "")
	if err != nil {
		t.Fatalf("ProposeTerms: %v", err)
	}
	if len(terms) != 2 {
		t.Fatalf("got %d terms, want 2", len(terms))
	}

	var honorific *Term
	for i := range terms {
		if terms[i].SourceTerm == "오빠" {
			honorific = &terms[i]
		}
	}
	if honorific == nil {
		t.Fatalf("오빠 missing from %v", terms)
	}
	if honorific.TranslatedTerm != "오빠" {
		t.Fatalf("오빠 translated as %q, must stay untranslated", honorific.TranslatedTerm)
	}
	if honorific.EntityType != EntityHonorificKorean {
		t.Fatalf("오빠 entity type = %q", honorific.EntityType)
	}
	if honorific.Status != StatusPending {
		t.Fatalf("proposed term status = %q, want pending", honorific.Status)
	}
}

func TestProposeTermsOverridesModelHonorificTranslation(t *testing.T) {
	// Even if the model ignored the prompt rules and translated an
	// honorific literally, the local policy wins.
	resolver := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(completion(`{"suggestedTerms":[{"sourceTerm":"senpai","translatedTerm":"upperclassman","entityType":"Term"}]}`))
	})

	terms, err := resolver.ProposeTerms(context.Background(), []string{"Senado", "senpai"}, nil, "")
	if err != nil {
		t.Fatalf("ProposeTerms: %v", err)
	}
	for _, term := range terms {
		if term.SourceTerm == "senpai" {
			if term.TranslatedTerm != "senpai" {
				t.Fatalf("senpai translated as %q", term.TranslatedTerm)
			}
			if term.EntityType != EntityHonorificJapanese {
				t.Fatalf("senpai entity type = %q", term.EntityType)
			}
			return
		}
	}
	t.Fatalf("senpai missing from %v", terms)
}

func TestProposeTermsDuplicateSourceLastWins(t *testing.T) {
	resolver := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(completion(`{"suggestedTerms":[
			{"sourceTerm":"Ragnar","translatedTerm":"Ragnar","entityType":"Person"},
			{"sourceTerm":"ragnar","translatedTerm":"Ragnarr","entityType":"Person","notes":"norse spelling"}
		]}`))
	})

	terms, err := resolver.ProposeTerms(context.Background(), []string{"Ragnar"}, nil, "")
	if err != nil {
		t.Fatalf("ProposeTerms: %v", err)
	}
	if len(terms) != 1 {
		t.Fatalf("got %d terms, want 1 after dedupe", len(terms))
	}
	if terms[0].TranslatedTerm != "Ragnarr" {
		t.Fatalf("dedupe kept %q, want last suggestion", terms[0].TranslatedTerm)
	}
}

func TestProposeFallsBackToHeuristicOnUnparseableResponse(t *testing.T) {
	resolver := newTestResolver(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(completion("I could not produce structured output, sorry."))
	})

	terms := resolver.Propose(context.Background(), []string{"Arslan", "마나석"}, nil, "")
	if len(terms) != 2 {
		t.Fatalf("got %d terms, want 2 heuristic suggestions", len(terms))
	}
	for _, term := range terms {
		if term.Status != StatusPending || !term.AutoSuggested {
			t.Fatalf("heuristic term %+v not marked pending/auto-suggested", term)
		}
	}
}

func TestHeuristicTermsClassification(t *testing.T) {
	terms := HeuristicTerms([]string{"오빠", "Kaiden", "흑검"})
	byTerm := make(map[string]Term, len(terms))
	for _, term := range terms {
		byTerm[term.SourceTerm] = term
	}
	if byTerm["오빠"].EntityType != EntityHonorificKorean {
		t.Fatalf("오빠 classified as %q", byTerm["오빠"].EntityType)
	}
	if byTerm["Kaiden"].EntityType != EntityPerson {
		t.Fatalf("Kaiden classified as %q", byTerm["Kaiden"].EntityType)
	}
	if byTerm["흑검"].EntityType != EntityTerm {
		t.Fatalf("흑검 classified as %q", byTerm["흑검"].EntityType)
	}
}
