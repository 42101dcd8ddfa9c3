package extractor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"inkwell/internal/logging"
	"inkwell/internal/ocr"
	"inkwell/internal/pages"
)

type fakeProvider struct {
	mu         sync.Mutex
	pageCalls  []int
	batchCalls [][]int
	pageErr    func(pageNumber int) error
	batchErr   func(chunk []int) error
}

func (f *fakeProvider) ExtractPage(ctx context.Context, img ocr.PageImage, sourceLanguage string) (pages.Page, error) {
	f.mu.Lock()
	f.pageCalls = append(f.pageCalls, img.PageNumber)
	f.mu.Unlock()
	if f.pageErr != nil {
		if err := f.pageErr(img.PageNumber); err != nil {
			return pages.Page{}, err
		}
	}
	return pages.Page{
		PageNumber:    img.PageNumber,
		ExtractedText: fmt.Sprintf("text %d", img.PageNumber),
	}, nil
}

func (f *fakeProvider) ExtractBatch(ctx context.Context, imgs []ocr.PageImage, sourceLanguage string) (map[int]pages.Page, error) {
	numbers := make([]int, len(imgs))
	for i, img := range imgs {
		numbers[i] = img.PageNumber
	}
	f.mu.Lock()
	f.batchCalls = append(f.batchCalls, numbers)
	f.mu.Unlock()
	if f.batchErr != nil {
		if err := f.batchErr(numbers); err != nil {
			return nil, err
		}
	}
	out := make(map[int]pages.Page, len(imgs))
	for _, img := range imgs {
		out[img.PageNumber] = pages.Page{
			PageNumber:    img.PageNumber,
			ExtractedText: fmt.Sprintf("text %d", img.PageNumber),
		}
	}
	return out, nil
}

func testImages(n int) []ocr.PageImage {
	imgs := make([]ocr.PageImage, n)
	for i := range imgs {
		imgs[i] = ocr.PageImage{
			PageNumber: i + 1,
			Name:       fmt.Sprintf("%03d.png", i+1),
			MIME:       "image/png",
			Data:       []byte{0x89, 0x50},
		}
	}
	return imgs
}

func noSleep(context.Context, time.Duration) error { return nil }

func TestExtractChunksSevenImages(t *testing.T) {
	provider := &fakeProvider{}
	ex := New(provider, logging.NewNop())

	var progress [][2]int
	report, err := ex.Extract(context.Background(), testImages(7), "Korean", Options{
		Mode:      ModeBatched,
		ChunkSize: 3,
		Sleep:     noSleep,
		OnProgress: func(processed, total int) {
			progress = append(progress, [2]int{processed, total})
		},
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if report.SuccessCount != 7 || report.FailureCount != 0 {
		t.Fatalf("counts = %d/%d, want 7/0", report.SuccessCount, report.FailureCount)
	}
	if len(report.Results) != 7 {
		t.Fatalf("got %d results, want 7", len(report.Results))
	}
	for i, result := range report.Results {
		if result.PageNumber != i+1 {
			t.Fatalf("result %d has page number %d", i, result.PageNumber)
		}
	}
	want := [][2]int{{3, 7}, {6, 7}, {7, 7}}
	if len(progress) != len(want) {
		t.Fatalf("progress = %v, want %v", progress, want)
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Fatalf("progress = %v, want %v", progress, want)
		}
	}
}

func TestExtractIsolatesPageFailures(t *testing.T) {
	provider := &fakeProvider{
		pageErr: func(pageNumber int) error {
			if pageNumber == 4 {
				return errors.New("blurry scan")
			}
			return nil
		},
	}
	ex := New(provider, logging.NewNop())

	report, err := ex.Extract(context.Background(), testImages(7), "Korean", Options{
		Mode:      ModeBatched,
		ChunkSize: 3,
		Sleep:     noSleep,
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(report.Results) != 7 {
		t.Fatalf("got %d results, want 7", len(report.Results))
	}
	if report.SuccessCount != 6 || report.FailureCount != 1 {
		t.Fatalf("counts = %d/%d, want 6/1", report.SuccessCount, report.FailureCount)
	}
	for _, result := range report.Results {
		if result.PageNumber == 4 {
			if result.Success || result.Err == nil {
				t.Fatal("page 4 should have failed")
			}
			continue
		}
		if !result.Success {
			t.Fatalf("page %d failed: %v", result.PageNumber, result.Err)
		}
	}
	if got := len(report.Pages()); got != 6 {
		t.Fatalf("Pages() returned %d pages, want 6", got)
	}
}

func TestExtractBatchCallFailureFansOut(t *testing.T) {
	provider := &fakeProvider{
		batchErr: func(chunk []int) error {
			if chunk[0] == 4 {
				return errors.New("malformed batch response")
			}
			return nil
		},
	}
	ex := New(provider, logging.NewNop())

	report, err := ex.Extract(context.Background(), testImages(7), "Korean", Options{
		Mode:          ModeBatched,
		ChunkSize:     3,
		BatchRequests: true,
		Sleep:         noSleep,
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(provider.batchCalls) != 3 {
		t.Fatalf("got %d batch calls, want 3", len(provider.batchCalls))
	}
	if report.SuccessCount != 4 || report.FailureCount != 3 {
		t.Fatalf("counts = %d/%d, want 4/3", report.SuccessCount, report.FailureCount)
	}
	for _, result := range report.Results {
		failed := result.PageNumber >= 4 && result.PageNumber <= 6
		if failed == result.Success {
			t.Fatalf("page %d success=%v, want %v", result.PageNumber, result.Success, !failed)
		}
	}
}

func TestExtractSingleModeSequential(t *testing.T) {
	provider := &fakeProvider{}
	ex := New(provider, logging.NewNop())

	report, err := ex.Extract(context.Background(), testImages(3), "Japanese", Options{
		Mode:       ModeSingle,
		ChunkDelay: 0,
		Sleep:      noSleep,
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if report.SuccessCount != 3 {
		t.Fatalf("SuccessCount = %d, want 3", report.SuccessCount)
	}
	wantCalls := []int{1, 2, 3}
	if len(provider.pageCalls) != len(wantCalls) {
		t.Fatalf("pageCalls = %v, want %v", provider.pageCalls, wantCalls)
	}
	for i, call := range wantCalls {
		if provider.pageCalls[i] != call {
			t.Fatalf("pageCalls = %v, want %v", provider.pageCalls, wantCalls)
		}
	}
}

func TestExtractCancellationBetweenChunks(t *testing.T) {
	provider := &fakeProvider{}
	ex := New(provider, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	report, err := ex.Extract(ctx, testImages(7), "Korean", Options{
		Mode:      ModeBatched,
		ChunkSize: 3,
		Sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Extract() error = %v, want context.Canceled", err)
	}
	if len(report.Results) != 7 {
		t.Fatalf("got %d results, want one per input", len(report.Results))
	}
	if report.SuccessCount != 3 || report.FailureCount != 4 {
		t.Fatalf("counts = %d/%d, want 3/4", report.SuccessCount, report.FailureCount)
	}
	for _, result := range report.Results[3:] {
		if !errors.Is(result.Err, context.Canceled) {
			t.Fatalf("page %d error = %v, want context.Canceled", result.PageNumber, result.Err)
		}
	}
}

func TestRetryPage(t *testing.T) {
	calls := 0
	provider := &fakeProvider{
		pageErr: func(pageNumber int) error {
			calls++
			if calls == 1 {
				return errors.New("timeout")
			}
			return nil
		},
	}
	ex := New(provider, logging.NewNop())

	img := testImages(1)[0]
	first := ex.RetryPage(context.Background(), img, "Korean")
	if first.Success {
		t.Fatal("first attempt should fail")
	}
	second := ex.RetryPage(context.Background(), img, "Korean")
	if !second.Success {
		t.Fatalf("retry failed: %v", second.Err)
	}
	if second.Page.ExtractedText == "" {
		t.Fatal("retry returned empty page text")
	}
}
