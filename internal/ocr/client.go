// Package ocr extracts source text from page images through a vision-capable
// chat completion endpoint. Credentials are drawn per call from the key pool.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"inkwell/internal/config"
	"inkwell/internal/keypool"
	"inkwell/internal/logging"
	"inkwell/internal/pages"
	"inkwell/internal/services"
	"inkwell/internal/services/llm"
)

// PageImage is one source image queued for extraction.
type PageImage struct {
	PageNumber int
	Name       string
	MIME       string
	Data       []byte
}

// Client performs OCR requests against the configured provider.
type Client struct {
	llm    *llm.Client
	keys   *keypool.Pool
	logger *slog.Logger
}

// New constructs an OCR client. The pool must contain at least one credential.
// The transport never retries on its own: a failed page surfaces to the
// extractor immediately, and retry stays explicit through RetryPage.
func New(cfg config.OCR, pool *keypool.Pool, logger *slog.Logger, opts ...llm.Option) *Client {
	clientOpts := append([]llm.Option{llm.WithRetryMaxAttempts(1)}, opts...)
	client := llm.NewClient(llm.Config{
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, clientOpts...)
	return &Client{
		llm:    client,
		keys:   pool,
		logger: logging.NewComponentLogger(logger, "ocr"),
	}
}

type singlePayload struct {
	Text     string `json:"text"`
	Overview string `json:"overview"`
}

type batchPayload struct {
	Pages []struct {
		Page     int    `json:"page"`
		Text     string `json:"text"`
		Overview string `json:"overview"`
	} `json:"pages"`
}

// ExtractPage runs the single-image path for one page.
func (c *Client) ExtractPage(ctx context.Context, img PageImage, sourceLanguage string) (pages.Page, error) {
	if len(img.Data) == 0 {
		return pages.Page{}, services.Wrap(services.ErrValidation, "ocr", "extract page", "empty image payload", nil)
	}
	raw, err := c.llm.Complete(ctx, llm.Request{
		System: singlePagePrompt,
		User:   userPrompt(sourceLanguage, img.PageNumber),
		Images: []llm.ImagePart{{MIME: img.MIME, Data: img.Data}},
		APIKey: c.keys.Next(),
	})
	if err != nil {
		return pages.Page{}, err
	}
	var parsed singlePayload
	if err := llm.DecodeLLMJSON(raw, &parsed); err != nil {
		return pages.Page{}, err
	}
	return pages.Page{
		PageNumber:    img.PageNumber,
		ExtractedText: parsed.Text,
		Overview:      strings.TrimSpace(parsed.Overview),
	}, nil
}

// ExtractBatch runs one request covering several pages. The returned map is
// keyed by the caller-assigned page number; pages missing from the provider
// response are simply absent, so the caller can mark them individually.
func (c *Client) ExtractBatch(ctx context.Context, imgs []PageImage, sourceLanguage string) (map[int]pages.Page, error) {
	if len(imgs) == 0 {
		return map[int]pages.Page{}, nil
	}

	parts := make([]llm.ImagePart, 0, len(imgs))
	numbers := make([]string, 0, len(imgs))
	for _, img := range imgs {
		if len(img.Data) == 0 {
			return nil, services.Wrap(services.ErrValidation, "ocr", "extract batch",
				fmt.Sprintf("empty image payload for page %d", img.PageNumber), nil)
		}
		parts = append(parts, llm.ImagePart{MIME: img.MIME, Data: img.Data})
		numbers = append(numbers, fmt.Sprintf("%d", img.PageNumber))
	}

	user := fmt.Sprintf("%s\nAssigned page numbers, in image order: %s",
		userPrompt(sourceLanguage, 0), strings.Join(numbers, ", "))
	raw, err := c.llm.Complete(ctx, llm.Request{
		System: batchPrompt,
		User:   user,
		Images: parts,
		APIKey: c.keys.Next(),
	})
	if err != nil {
		return nil, err
	}

	var parsed batchPayload
	if err := llm.DecodeLLMJSON(raw, &parsed); err != nil {
		return nil, err
	}

	results := make(map[int]pages.Page, len(parsed.Pages))
	for _, entry := range parsed.Pages {
		results[entry.Page] = pages.Page{
			PageNumber:    entry.Page,
			ExtractedText: entry.Text,
			Overview:      strings.TrimSpace(entry.Overview),
		}
	}
	if len(results) < len(imgs) {
		c.logger.Warn("batch response missing pages",
			logging.Int("requested", len(imgs)),
			logging.Int("returned", len(results)),
		)
	}
	return results, nil
}

func userPrompt(sourceLanguage string, pageNumber int) string {
	lang := strings.TrimSpace(sourceLanguage)
	if lang == "" {
		lang = "the original language"
	}
	if pageNumber > 0 {
		return fmt.Sprintf("Source language: %s. This is page %d.", lang, pageNumber)
	}
	return fmt.Sprintf("Source language: %s.", lang)
}
