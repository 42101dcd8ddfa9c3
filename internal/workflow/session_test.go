package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"inkwell/internal/glossary"
	"inkwell/internal/memory"
	"inkwell/internal/review"
	"inkwell/internal/services"
	"inkwell/internal/store"
	"inkwell/internal/translator"
)

type scriptedTranslator struct {
	calls    int
	requests []translator.Request
	script   []func() (*translator.Result, error)
}

func (s *scriptedTranslator) TranslateAndReview(ctx context.Context, req translator.Request) (*translator.Result, error) {
	s.requests = append(s.requests, req)
	step := s.calls
	s.calls++
	if step >= len(s.script) {
		return nil, errors.New("unscripted call")
	}
	return s.script[step]()
}

func okResult(text string, suggestions []glossary.Term) func() (*translator.Result, error) {
	return func() (*translator.Result, error) {
		return &translator.Result{
			Text: text,
			QualityReport: translator.QualityReport{
				Suggestions:         []string{"smooth out page 1"},
				GlossarySuggestions: suggestions,
				ChapterMemory:       "memory draft for " + text,
			},
		}, nil
	}
}

func transientFailure() (*translator.Result, error) {
	return nil, services.Wrap(services.ErrTransient, "translator", "translate", "upstream 503", nil)
}

type captureGateway struct {
	saves      []store.ChapterResult
	terms      [][]glossary.Term
	broadcasts []string
	saveErr    error
}

func (g *captureGateway) SaveChapterResult(ctx context.Context, chapterID string, result store.ChapterResult) (store.SaveReport, error) {
	if g.saveErr != nil {
		return store.SaveReport{}, g.saveErr
	}
	g.saves = append(g.saves, result)
	return store.SaveReport{TranslatedText: true, ExtractedText: true, Memory: true, History: true}, nil
}

func (g *captureGateway) SaveGlossaryTerms(ctx context.Context, seriesID string, terms []glossary.Term) bool {
	g.terms = append(g.terms, terms)
	return true
}

func (g *captureGateway) BroadcastGlossaryChanged(ctx context.Context, seriesID string) {
	g.broadcasts = append(g.broadcasts, seriesID)
}

type stubSuggester struct {
	candidates []string
	existing   map[string]glossary.Term
	terms      []glossary.Term
}

func (s *stubSuggester) Propose(ctx context.Context, candidates []string, existing map[string]glossary.Term, sourceContext string) []glossary.Term {
	s.candidates = candidates
	s.existing = existing
	return s.terms
}

type stubMemorizer struct{}

func (stubMemorizer) DeriveEnhancedEntry(ctx context.Context, translatedText, priorSummary string) memory.Entry {
	return memory.Entry{Summary: priorSummary, Tags: []string{"test"}}
}

func newTestSession(t *testing.T, tr Translator, gw Gateway) *Session {
	t.Helper()
	session, err := NewSession(Deps{
		Translator: tr,
		Gateway:    gw,
		Memory:     stubMemorizer{},
		Sleep:      func(ctx context.Context, d time.Duration) error { return nil },
	}, Params{
		SeriesID:  "series-1",
		ChapterID: "chapter-1",
		Series:    translator.Metadata{SourceLanguage: "Korean"},
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	session.SetCombinedText("=== Page 1 ===\n안녕\n=== End Page 1 ===")
	return session
}

func approveAll(t *testing.T, set *review.Set) {
	t.Helper()
	for _, item := range set.Items() {
		if err := set.Approve(item.ID); err != nil {
			t.Fatalf("Approve: %v", err)
		}
	}
}

func TestFinalizeWithPendingItemsFailsWithoutSideEffects(t *testing.T) {
	tr := &scriptedTranslator{script: []func() (*translator.Result, error){
		okResult("first translation", []glossary.Term{{SourceTerm: "진우", TranslatedTerm: "Jinwoo"}}),
	}}
	gw := &captureGateway{}
	session := newTestSession(t, tr, gw)

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if session.State() != StateAwaitingReview {
		t.Fatalf("state = %q, want awaiting-review", session.State())
	}

	err := session.Finalize(context.Background())
	if !errors.Is(err, services.ErrPendingReview) {
		t.Fatalf("Finalize = %v, want ErrPendingReview", err)
	}
	if tr.calls != 1 {
		t.Fatalf("provider called %d times during gated finalize, want no extra calls", tr.calls)
	}
	if len(gw.saves) != 0 || len(gw.terms) != 0 || len(gw.broadcasts) != 0 {
		t.Fatal("gated finalize performed persistence side effects")
	}
	if session.State() != StateAwaitingReview {
		t.Fatalf("state = %q after gated finalize, want unchanged", session.State())
	}
}

func TestFinalizeWithoutEditsTranslatesOnce(t *testing.T) {
	tr := &scriptedTranslator{script: []func() (*translator.Result, error){
		okResult("first translation", []glossary.Term{{SourceTerm: "진우", TranslatedTerm: "Jinwoo"}}),
	}}
	gw := &captureGateway{}
	session := newTestSession(t, tr, gw)

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	approveAll(t, session.Review())

	if err := session.Finalize(context.Background()); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if session.State() != StateComplete {
		t.Fatalf("state = %q, want complete", session.State())
	}
	if tr.calls != 1 {
		t.Fatalf("translate called %d times, want exactly 1 with no edits", tr.calls)
	}
	if len(gw.saves) != 1 || gw.saves[0].TranslatedText != "first translation" {
		t.Fatalf("persisted saves = %+v", gw.saves)
	}
	if len(gw.broadcasts) != 1 {
		t.Fatalf("broadcasts = %v, want one glossary-changed", gw.broadcasts)
	}
}

func TestSuggesterProposalsJoinReviewSet(t *testing.T) {
	tr := &scriptedTranslator{script: []func() (*translator.Result, error){
		okResult("translation", []glossary.Term{{SourceTerm: "안녕", TranslatedTerm: "hello"}}),
	}}
	suggester := &stubSuggester{terms: []glossary.Term{
		{SourceTerm: "안녕", TranslatedTerm: "annyeong"},
		{SourceTerm: "서율", TranslatedTerm: "Seoyul", EntityType: glossary.EntityPerson},
	}}
	session, err := NewSession(Deps{
		Translator: tr,
		Gateway:    &captureGateway{},
		Suggester:  suggester,
		Sleep:      func(ctx context.Context, d time.Duration) error { return nil },
	}, Params{
		SeriesID:  "series-1",
		ChapterID: "chapter-1",
		Glossary:  map[string]glossary.Term{"진우": {SourceTerm: "진우", TranslatedTerm: "Jinwoo"}},
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	session.SetCombinedText("=== Page 1 ===\n진우: 안녕, 서율\n=== End Page 1 ===")

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Candidate detection skips terms the glossary already covers.
	for _, candidate := range suggester.candidates {
		if candidate == "진우" {
			t.Fatalf("known glossary term offered as candidate: %v", suggester.candidates)
		}
	}
	if len(suggester.candidates) != 2 {
		t.Fatalf("candidates = %v, want the two unknown tokens", suggester.candidates)
	}
	if _, ok := suggester.existing["진우"]; !ok {
		t.Fatal("suggester did not receive the existing glossary")
	}

	var glossaryItems []review.Item
	for _, item := range session.Review().Items() {
		if item.Kind == review.KindGlossaryTerm {
			glossaryItems = append(glossaryItems, item)
		}
	}
	// The quality report already proposed 안녕, so the suggester's duplicate
	// is dropped and only 서율 joins the review set.
	if len(glossaryItems) != 2 || glossaryItems[0].Term.SourceTerm != "안녕" || glossaryItems[1].Term.SourceTerm != "서율" {
		t.Fatalf("glossary review items = %+v, want report term then suggester term", glossaryItems)
	}
	if glossaryItems[0].Edited != "hello" {
		t.Fatalf("report proposal overwritten by suggester: %+v", glossaryItems[0])
	}
}

func TestApprovedSuggestionsRecordedWithoutRegeneration(t *testing.T) {
	tr := &scriptedTranslator{script: []func() (*translator.Result, error){
		func() (*translator.Result, error) {
			return &translator.Result{
				Text: "translation",
				QualityReport: translator.QualityReport{
					Suggestions: []string{"soften the narration", "drop the footnote"},
				},
			}, nil
		},
	}}
	gw := &captureGateway{}
	session := newTestSession(t, tr, gw)

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	items := session.Review().Items()
	if err := session.Review().Approve(items[0].ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if err := session.Review().Reject(items[1].ID); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	if err := session.Finalize(context.Background()); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if tr.calls != 1 {
		t.Fatalf("translate called %d times, want 1; suggestions alone never regenerate", tr.calls)
	}
	if len(gw.saves) != 1 {
		t.Fatalf("saves = %+v, want one", gw.saves)
	}
	notes := gw.saves[0].ReviewNotes
	if len(notes) != 1 || notes[0] != "soften the narration" {
		t.Fatalf("review notes = %v, want only the approved suggestion", notes)
	}
}

func TestGlossaryEditTriggersRegeneration(t *testing.T) {
	tr := &scriptedTranslator{script: []func() (*translator.Result, error){
		okResult("stale translation", []glossary.Term{{SourceTerm: "그림자 군주", TranslatedTerm: "Shadow Lord"}}),
		okResult("regenerated translation", nil),
	}}
	gw := &captureGateway{}
	session := newTestSession(t, tr, gw)

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var termID string
	for _, item := range session.Review().Items() {
		if item.Kind == review.KindGlossaryTerm {
			termID = item.ID
		}
		if err := session.Review().Approve(item.ID); err != nil {
			t.Fatalf("Approve: %v", err)
		}
	}
	if err := session.Review().Edit(termID, "Shadow Monarch"); err != nil {
		t.Fatalf("Edit: %v", err)
	}

	if err := session.Finalize(context.Background()); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if session.State() != StateComplete {
		t.Fatalf("state = %q, want complete (regeneration auto-finalizes)", session.State())
	}
	if tr.calls != 2 {
		t.Fatalf("translate called %d times, want 2 (initial + regeneration)", tr.calls)
	}

	// The regeneration request carries the edited glossary as authoritative.
	regen := tr.requests[1]
	term, ok := regen.Glossary["그림자 군주"]
	if !ok {
		t.Fatalf("edited term missing from regeneration glossary: %v", regen.Glossary)
	}
	if term.TranslatedTerm != "Shadow Monarch" {
		t.Fatalf("regeneration glossary has %q, want edited value", term.TranslatedTerm)
	}
	// Approved quality suggestions ride the regeneration request.
	if len(regen.Improvements) != 1 || regen.Improvements[0] != "smooth out page 1" {
		t.Fatalf("regeneration improvements = %v, want the approved suggestion", regen.Improvements)
	}
	if len(tr.requests[0].Improvements) != 0 {
		t.Fatalf("initial request carried improvements: %v", tr.requests[0].Improvements)
	}

	if len(gw.saves) != 1 || gw.saves[0].TranslatedText != "regenerated translation" {
		t.Fatalf("persisted %+v, want the regenerated text", gw.saves)
	}
	if gw.saves[0].HistoryReason != store.HistoryRegeneration {
		t.Fatalf("history reason = %q, want %q", gw.saves[0].HistoryReason, store.HistoryRegeneration)
	}
	if len(gw.saves[0].ReviewNotes) != 1 || gw.saves[0].ReviewNotes[0] != "smooth out page 1" {
		t.Fatalf("review notes = %v, want the approved suggestion", gw.saves[0].ReviewNotes)
	}
}

func TestRegenerationFailureIsTerminal(t *testing.T) {
	tr := &scriptedTranslator{script: []func() (*translator.Result, error){
		okResult("stale translation", []glossary.Term{{SourceTerm: "마왕", TranslatedTerm: "Demon King"}}),
		transientFailure, transientFailure, transientFailure,
	}}
	gw := &captureGateway{}
	session := newTestSession(t, tr, gw)

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	set := session.Review()
	items := set.Items()
	if err := set.Edit(items[len(items)-1].ID, "Demon Lord"); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	approveAll(t, set)

	err := session.Finalize(context.Background())
	if err == nil {
		t.Fatal("Finalize succeeded, want hard error after regeneration retries")
	}
	if session.State() != StateFailed {
		t.Fatalf("state = %q, want failed", session.State())
	}
	if len(gw.saves) != 0 {
		t.Fatal("failed regeneration must not persist the stale translation")
	}
}

func TestTranslateRetriesWithExponentialBackoff(t *testing.T) {
	tr := &scriptedTranslator{script: []func() (*translator.Result, error){
		transientFailure, transientFailure,
		okResult("third time lucky", nil),
	}}

	var delays []time.Duration
	var attempts [][2]int
	session, err := NewSession(Deps{
		Translator: tr,
		Gateway:    &captureGateway{},
		Sleep: func(ctx context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
		OnRetry: func(attempt, max int, err error) {
			attempts = append(attempts, [2]int{attempt, max})
		},
	}, Params{SeriesID: "series-1", ChapterID: "chapter-1"})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	session.SetCombinedText("=== Page 1 ===\nx\n=== End Page 1 ===")

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if tr.calls != 3 {
		t.Fatalf("translate called %d times, want 3", tr.calls)
	}
	wantDelays := []time.Duration{time.Second, 2 * time.Second}
	if len(delays) != len(wantDelays) {
		t.Fatalf("delays = %v, want %v", delays, wantDelays)
	}
	for i := range wantDelays {
		if delays[i] != wantDelays[i] {
			t.Fatalf("delays = %v, want %v", delays, wantDelays)
		}
	}
	want := [][2]int{{1, 3}, {2, 3}}
	for i := range want {
		if attempts[i] != want[i] {
			t.Fatalf("observed attempts = %v, want %v", attempts, want)
		}
	}
}

func TestTranslateExhaustedRetriesFails(t *testing.T) {
	tr := &scriptedTranslator{script: []func() (*translator.Result, error){
		transientFailure, transientFailure, transientFailure,
	}}
	session := newTestSession(t, tr, &captureGateway{})

	err := session.Start(context.Background())
	if err == nil {
		t.Fatal("Start succeeded, want exhaustion error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("error = %v, want transient marker preserved", err)
	}
	if session.State() != StateFailed {
		t.Fatalf("state = %q, want failed", session.State())
	}
	if tr.calls != 3 {
		t.Fatalf("translate called %d times, want maxRetries", tr.calls)
	}
}

func TestNonRetryableErrorSkipsBackoff(t *testing.T) {
	tr := &scriptedTranslator{script: []func() (*translator.Result, error){
		func() (*translator.Result, error) {
			return nil, services.Wrap(services.ErrParse, "translator", "translate", "bad json", nil)
		},
	}}
	session := newTestSession(t, tr, &captureGateway{})

	err := session.Start(context.Background())
	if !errors.Is(err, services.ErrParse) {
		t.Fatalf("error = %v, want ErrParse", err)
	}
	if tr.calls != 1 {
		t.Fatalf("translate called %d times, want 1 for non-retryable error", tr.calls)
	}
}

func TestStartRequiresCombinedText(t *testing.T) {
	tr := &scriptedTranslator{}
	session, err := NewSession(Deps{Translator: tr, Gateway: &captureGateway{}},
		Params{SeriesID: "s", ChapterID: "c"})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	err = session.Start(context.Background())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if tr.calls != 0 {
		t.Fatal("translate called despite empty input")
	}
}

func TestPrimaryPersistFailureIsTerminal(t *testing.T) {
	tr := &scriptedTranslator{script: []func() (*translator.Result, error){
		okResult("translation", nil),
	}}
	gw := &captureGateway{saveErr: fmt.Errorf("disk full")}
	session := newTestSession(t, tr, gw)

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	approveAll(t, session.Review())

	err := session.Finalize(context.Background())
	if err == nil {
		t.Fatal("Finalize succeeded despite primary write failure")
	}
	if session.State() != StateFailed {
		t.Fatalf("state = %q, want failed", session.State())
	}
}

func TestCompletedSessionRejectsReentry(t *testing.T) {
	tr := &scriptedTranslator{script: []func() (*translator.Result, error){
		okResult("translation", nil),
	}}
	session := newTestSession(t, tr, &captureGateway{})

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	approveAll(t, session.Review())
	if err := session.Finalize(context.Background()); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	if err := session.Start(context.Background()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("re-entering completed session = %v, want ErrValidation", err)
	}
	if err := session.Finalize(context.Background()); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("re-finalizing completed session = %v, want ErrValidation", err)
	}
}
