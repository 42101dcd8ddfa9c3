// Package extractor coordinates OCR over batches of page images. Chunks are
// processed sequentially; requests inside a chunk run concurrently, each
// writing only its own result slot.
package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"inkwell/internal/logging"
	"inkwell/internal/ocr"
	"inkwell/internal/pages"
)

const (
	defaultChunkSize  = 3
	defaultChunkDelay = 500 * time.Millisecond
)

// Mode selects between one-request-at-a-time and chunked concurrent extraction.
type Mode int

const (
	// ModeSingle issues one OCR request at a time.
	ModeSingle Mode = iota
	// ModeBatched partitions input into chunks and fans out inside each chunk.
	ModeBatched
)

// Provider is the OCR surface the extractor depends on.
type Provider interface {
	ExtractPage(ctx context.Context, img ocr.PageImage, sourceLanguage string) (pages.Page, error)
	ExtractBatch(ctx context.Context, imgs []ocr.PageImage, sourceLanguage string) (map[int]pages.Page, error)
}

// PageResult is the outcome for one input image. Err is nil iff Success.
type PageResult struct {
	PageNumber int
	Page       pages.Page
	Success    bool
	Err        error
}

// Report aggregates the per-image outcomes for one extraction run.
type Report struct {
	Results      []PageResult
	SuccessCount int
	FailureCount int
}

// Pages returns the successfully extracted pages in page-number order.
func (r *Report) Pages() []pages.Page {
	out := make([]pages.Page, 0, r.SuccessCount)
	for _, result := range r.Results {
		if result.Success {
			out = append(out, result.Page)
		}
	}
	return out
}

// Options configures an extraction run.
type Options struct {
	Mode      Mode
	ChunkSize int
	// ChunkDelay is the pause between chunks. Zero selects the default;
	// a negative value disables the delay.
	ChunkDelay time.Duration
	// BatchRequests sends each chunk as one provider batch call instead of
	// concurrent per-image calls. A failed batch call becomes a failure for
	// every image in the chunk.
	BatchRequests bool
	// OnProgress is invoked with processed/total after each chunk completes.
	OnProgress func(processed, total int)
	// Sleep overrides the inter-chunk delay mechanism (injected in tests).
	Sleep func(ctx context.Context, d time.Duration) error
}

func (o *Options) normalize() {
	if o.ChunkSize <= 0 {
		o.ChunkSize = defaultChunkSize
	}
	if o.ChunkDelay == 0 {
		o.ChunkDelay = defaultChunkDelay
	} else if o.ChunkDelay < 0 {
		o.ChunkDelay = 0
	}
	if o.Sleep == nil {
		o.Sleep = sleepWithContext
	}
}

// Extractor runs the chunked extraction pipeline.
type Extractor struct {
	provider Provider
	logger   *slog.Logger
}

// New constructs an extractor around the supplied OCR provider.
func New(provider Provider, logger *slog.Logger) *Extractor {
	return &Extractor{
		provider: provider,
		logger:   logging.NewComponentLogger(logger, "extractor"),
	}
}

// Extract processes all images and returns one result per input image.
//
// Per-image failures never abort siblings or later chunks. Cancellation is
// honored between chunks: the in-flight chunk runs to completion, remaining
// images are marked failed with the context error, and ctx.Err is returned
// alongside the partial report.
func (e *Extractor) Extract(ctx context.Context, images []ocr.PageImage, sourceLanguage string, opts Options) (*Report, error) {
	opts.normalize()
	logger := logging.WithContext(ctx, e.logger)

	report := &Report{Results: make([]PageResult, 0, len(images))}
	if len(images) == 0 {
		return report, nil
	}

	if opts.Mode == ModeSingle {
		opts.ChunkSize = 1
	}
	chunks := partition(images, opts.ChunkSize)
	total := len(images)
	processed := 0

	for index, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			for _, img := range images[processed:] {
				report.Results = append(report.Results, PageResult{PageNumber: img.PageNumber, Err: err})
			}
			finishReport(report)
			return report, err
		}
		if index > 0 && opts.ChunkDelay > 0 {
			if err := opts.Sleep(ctx, opts.ChunkDelay); err != nil {
				for _, img := range images[processed:] {
					report.Results = append(report.Results, PageResult{PageNumber: img.PageNumber, Err: err})
				}
				finishReport(report)
				return report, err
			}
		}

		var results []PageResult
		if opts.BatchRequests && opts.Mode == ModeBatched {
			results = e.extractChunkBatched(ctx, chunk, sourceLanguage)
		} else {
			results = e.extractChunkConcurrent(ctx, chunk, sourceLanguage)
		}
		report.Results = append(report.Results, results...)
		processed += len(chunk)

		logger.Debug("chunk complete",
			logging.Int("chunk", index+1),
			logging.Int("chunks", len(chunks)),
			logging.Int("processed", processed),
			logging.Int("total", total),
		)
		if opts.OnProgress != nil {
			opts.OnProgress(processed, total)
		}
	}

	finishReport(report)
	return report, nil
}

// RetryPage re-invokes the single-image path for one previously failed page.
func (e *Extractor) RetryPage(ctx context.Context, img ocr.PageImage, sourceLanguage string) PageResult {
	page, err := e.provider.ExtractPage(ctx, img, sourceLanguage)
	if err != nil {
		return PageResult{PageNumber: img.PageNumber, Err: err}
	}
	return PageResult{PageNumber: img.PageNumber, Page: page, Success: true}
}

// extractChunkConcurrent fans out one goroutine per image. Each goroutine
// writes only its own slot, so the join is the only synchronization needed.
func (e *Extractor) extractChunkConcurrent(ctx context.Context, chunk []ocr.PageImage, sourceLanguage string) []PageResult {
	results := make([]PageResult, len(chunk))
	var wg sync.WaitGroup
	wg.Add(len(chunk))
	for i, img := range chunk {
		go func(slot int, img ocr.PageImage) {
			defer wg.Done()
			page, err := e.provider.ExtractPage(ctx, img, sourceLanguage)
			if err != nil {
				results[slot] = PageResult{PageNumber: img.PageNumber, Err: err}
				return
			}
			results[slot] = PageResult{PageNumber: img.PageNumber, Page: page, Success: true}
		}(i, img)
	}
	wg.Wait()
	return results
}

// extractChunkBatched issues one provider call for the whole chunk. A call
// failure fans out into per-image failures so the one-result-per-image
// contract holds.
func (e *Extractor) extractChunkBatched(ctx context.Context, chunk []ocr.PageImage, sourceLanguage string) []PageResult {
	batch, err := e.provider.ExtractBatch(ctx, chunk, sourceLanguage)
	results := make([]PageResult, len(chunk))
	for i, img := range chunk {
		switch {
		case err != nil:
			results[i] = PageResult{PageNumber: img.PageNumber, Err: err}
		default:
			page, ok := batch[img.PageNumber]
			if !ok {
				results[i] = PageResult{
					PageNumber: img.PageNumber,
					Err:        fmt.Errorf("page %d missing from batch response", img.PageNumber),
				}
				continue
			}
			results[i] = PageResult{PageNumber: img.PageNumber, Page: page, Success: true}
		}
	}
	return results
}

func partition(images []ocr.PageImage, chunkSize int) [][]ocr.PageImage {
	var chunks [][]ocr.PageImage
	for start := 0; start < len(images); start += chunkSize {
		end := start + chunkSize
		if end > len(images) {
			end = len(images)
		}
		chunks = append(chunks, images[start:end])
	}
	return chunks
}

func finishReport(report *Report) {
	sort.SliceStable(report.Results, func(i, j int) bool {
		return report.Results[i].PageNumber < report.Results[j].PageNumber
	})
	report.SuccessCount = 0
	report.FailureCount = 0
	for _, result := range report.Results {
		if result.Success {
			report.SuccessCount++
		} else {
			report.FailureCount++
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
