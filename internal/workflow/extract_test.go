package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"inkwell/internal/extractor"
	"inkwell/internal/glossary"
	"inkwell/internal/ocr"
	"inkwell/internal/pages"
	"inkwell/internal/services"
	"inkwell/internal/translator"
)

type stubExtractor struct {
	report *extractor.Report
	err    error
}

func (s *stubExtractor) Extract(ctx context.Context, images []ocr.PageImage, sourceLanguage string, opts extractor.Options) (*extractor.Report, error) {
	return s.report, s.err
}

func newExtractionSession(t *testing.T, ex Extractor) *Session {
	t.Helper()
	tr := &scriptedTranslator{script: []func() (*translator.Result, error){
		okResult("translated", []glossary.Term{}),
	}}
	session, err := NewSession(Deps{
		Translator: tr,
		Extractor:  ex,
		Gateway:    &captureGateway{},
		Sleep:      func(ctx context.Context, d time.Duration) error { return nil },
	}, Params{SeriesID: "series-1", ChapterID: "chapter-1"})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return session
}

func TestExtractCombinesPages(t *testing.T) {
	ex := &stubExtractor{report: &extractor.Report{
		Results: []extractor.PageResult{
			{PageNumber: 1, Page: pages.Page{PageNumber: 1, ExtractedText: "첫 페이지"}, Success: true},
			{PageNumber: 2, Page: pages.Page{PageNumber: 2, ExtractedText: "둘째 페이지"}, Success: true},
		},
		SuccessCount: 2,
	}}
	session := newExtractionSession(t, ex)

	report, err := session.Extract(context.Background(), make([]ocr.PageImage, 2), extractor.Options{})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if report.SuccessCount != 2 {
		t.Fatalf("SuccessCount = %d", report.SuccessCount)
	}
	if session.State() != StateIdle {
		t.Fatalf("state = %q, want idle and ready to translate", session.State())
	}

	combined := session.CombinedText()
	split := pages.Split(combined)
	if len(split) != 2 {
		t.Fatalf("combined document has %d pages: %q", len(split), combined)
	}

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start after extraction: %v", err)
	}
}

func TestExtractZeroSuccessesFails(t *testing.T) {
	ex := &stubExtractor{report: &extractor.Report{
		Results:      []extractor.PageResult{{PageNumber: 1, Err: errors.New("blurry")}},
		FailureCount: 1,
	}}
	session := newExtractionSession(t, ex)

	_, err := session.Extract(context.Background(), make([]ocr.PageImage, 1), extractor.Options{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if session.State() != StateFailed {
		t.Fatalf("state = %q, want failed", session.State())
	}
}

func TestExtractWithoutExtractorConfigured(t *testing.T) {
	session := newExtractionSession(t, nil)
	_, err := session.Extract(context.Background(), nil, extractor.Options{})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("error = %v, want ErrConfiguration", err)
	}
}
