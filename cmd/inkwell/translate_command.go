package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"inkwell/internal/extractor"
	"inkwell/internal/glossary"
	"inkwell/internal/keypool"
	"inkwell/internal/memory"
	"inkwell/internal/notifications"
	"inkwell/internal/ocr"
	"inkwell/internal/review"
	"inkwell/internal/services"
	"inkwell/internal/store"
	"inkwell/internal/translator"
	"inkwell/internal/workflow"
)

func newTranslateCommand(ctx *commandContext) *cobra.Command {
	var imagesDir string
	var textFile string
	var autoApprove bool

	cmd := &cobra.Command{
		Use:   "translate <series-id> <chapter-number>",
		Short: "Run the full translation pipeline for one chapter",
		Long: `Extracts text from the chapter's page images, translates it with the
series glossary and rolling memory as context, walks through the review
gate, and persists the result. Source text can also be supplied directly
with --text for chapters that skip OCR.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			number, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("chapter number %q is not an integer", args[1])
			}
			if imagesDir == "" && textFile == "" {
				return fmt.Errorf("one of --images or --text is required")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// One pipeline run at a time; concurrent runs would interleave
			// review prompts and fight over the chapter row.
			lock := flock.New(filepath.Join(cfg.Paths.LogDir, "inkwell.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire pipeline lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another inkwell translation is already running")
			}
			defer func() { _ = lock.Unlock() }()

			return runTranslate(cmd, ctx, translateArgs{
				seriesID:    args[0],
				number:      number,
				imagesDir:   imagesDir,
				textFile:    textFile,
				autoApprove: autoApprove,
			})
		},
	}

	cmd.Flags().StringVar(&imagesDir, "images", "", "Directory of page images, processed in filename order")
	cmd.Flags().StringVar(&textFile, "text", "", "File with already-extracted source text (skips OCR)")
	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "Approve every suggestion without prompting")
	return cmd
}

type translateArgs struct {
	seriesID    string
	number      int
	imagesDir   string
	textFile    string
	autoApprove bool
}

func runTranslate(cmd *cobra.Command, cmdCtx *commandContext, args translateArgs) error {
	// One correlation ID per run so the log lines of a pipeline pass can be
	// grepped together.
	ctx := services.WithRequestID(cmd.Context(), uuid.NewString())
	out := cmd.OutOrStdout()
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	logger := cmdCtx.ensureLogger()

	s, err := cmdCtx.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	series, err := s.GetSeries(ctx, args.seriesID)
	if err != nil {
		return err
	}
	chapter, err := findOrCreateChapter(ctx, s, series.ID, args.number)
	if err != nil {
		return err
	}
	glossaryMap, err := s.GlossaryMap(ctx, series.ID)
	if err != nil {
		return err
	}
	priorMemory, err := s.LatestMemory(ctx, series.ID, args.number)
	if err != nil {
		return err
	}

	notify := notifications.NewService(cfg)
	gateway := store.NewGateway(s, notify, logger)

	pool, err := keypool.New(cfg.Credentials())
	if err != nil {
		return err
	}
	ocrClient := ocr.New(cfg.OCR, pool, logger)

	session, err := workflow.NewSession(workflow.Deps{
		Translator: translator.New(cfg.Translator, logger),
		Extractor:  extractor.New(ocrClient, logger),
		Suggester:  glossary.NewResolver(cfg.Translator, logger),
		Memory:     memory.NewManager(cfg.SummarizerLLM(), logger),
		Gateway:    gateway,
		Status:     s,
		MemoryLog:  s,
		Logger:     logger,
		OnRetry: func(attempt, max int, err error) {
			fmt.Fprintf(out, "translation attempt %d/%d failed: %v\n", attempt, max, err)
		},
	}, workflow.Params{
		SeriesID:      series.ID,
		ChapterID:     chapter.ID,
		SeriesTitle:   series.Title,
		ChapterNumber: args.number,
		Series: translator.Metadata{
			Title:          series.Title,
			Genre:          series.Genre,
			ToneNotes:      series.ToneNotes,
			SourceLanguage: series.SourceLanguage,
		},
		Glossary:    glossaryMap,
		PriorMemory: priorMemory,
		MaxRetries:  cfg.Translator.MaxRetries,
		RetryBase:   time.Duration(cfg.Translator.RetryBaseMS) * time.Millisecond,
	})
	if err != nil {
		return err
	}

	if args.textFile != "" {
		raw, err := os.ReadFile(args.textFile)
		if err != nil {
			return fmt.Errorf("read source text: %w", err)
		}
		session.SetCombinedText(string(raw))
	} else {
		images, err := loadPageImages(args.imagesDir, cfg.OCR.ImageExtensions)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Extracting %d pages...\n", len(images))
		report, err := session.Extract(ctx, images, extractor.Options{
			Mode:       extractor.ModeBatched,
			ChunkSize:  cfg.OCR.ChunkSize,
			ChunkDelay: time.Duration(cfg.OCR.ChunkDelayMS) * time.Millisecond,
			OnProgress: func(processed, total int) {
				fmt.Fprintf(out, "  %d/%d pages\n", processed, total)
			},
		})
		if err != nil {
			return err
		}
		for _, result := range report.Results {
			if !result.Success {
				fmt.Fprintf(out, "  page %d failed: %v\n", result.PageNumber, result.Err)
			}
		}
		if report.FailureCount > 0 {
			fmt.Fprintf(out, "%d pages failed; retry individually with fresh scans if needed\n", report.FailureCount)
		}
	}

	fmt.Fprintln(out, "Translating...")
	if err := session.Start(ctx); err != nil {
		_ = notify.NotifyChapterFailed(ctx, series.Title, args.number, err)
		return err
	}

	if err := runReviewSession(cmd, session, args.autoApprove); err != nil {
		return err
	}

	if err := session.Finalize(ctx); err != nil {
		if !workflow.IsPendingReview(err) {
			_ = notify.NotifyChapterFailed(ctx, series.Title, args.number, err)
		}
		return err
	}

	_ = notify.NotifyChapterCompleted(ctx, series.Title, args.number)
	fmt.Fprintf(out, "Chapter %d complete. Translated text saved to the library.\n", args.number)
	return nil
}

func findOrCreateChapter(ctx context.Context, s *store.Store, seriesID string, number int) (*store.Chapter, error) {
	chapters, err := s.ListChapters(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	for _, chapter := range chapters {
		if chapter.Number == number {
			return chapter, nil
		}
	}
	return s.CreateChapter(ctx, seriesID, number)
}

// loadPageImages reads a chapter folder in filename order; the position in
// that order becomes the page number.
func loadPageImages(dir string, extensions []string) ([]ocr.PageImage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read images directory: %w", err)
	}

	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := allowed[ext]; !ok {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no page images found in %s", dir)
	}
	sort.Strings(names)

	images := make([]ocr.PageImage, 0, len(names))
	for i, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		images = append(images, ocr.PageImage{
			PageNumber: i + 1,
			Name:       name,
			MIME:       mimeForExtension(filepath.Ext(name)),
			Data:       data,
		})
	}
	return images, nil
}

func mimeForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

// runReviewSession walks the operator through every pending item. All items
// must be resolved before finalize can proceed.
func runReviewSession(cmd *cobra.Command, session *workflow.Session, autoApprove bool) error {
	out := cmd.OutOrStdout()
	result := session.Result()

	if issues := result.QualityReport.Issues; len(issues) > 0 {
		fmt.Fprintln(out, "\nQuality issues:")
		for _, issue := range issues {
			fmt.Fprintf(out, "  - %s\n", issue)
		}
	}
	if notes := result.QualityReport.CulturalNotes; len(notes) > 0 {
		fmt.Fprintln(out, "\nCultural notes:")
		for _, note := range notes {
			fmt.Fprintf(out, "  - %s\n", note)
		}
	}

	set := session.Review()
	if autoApprove {
		for _, item := range set.Items() {
			if err := set.Approve(item.ID); err != nil {
				return err
			}
		}
		return nil
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	for _, item := range set.Pending() {
		if err := promptItem(out, reader, set, item); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "\nChapter memory draft:\n  %s\n", session.MemoryDraft())
	fmt.Fprint(out, "Edit memory? [y/N] ")
	if answerIsYes(reader) {
		fmt.Fprint(out, "New memory: ")
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		session.EditMemoryDraft(strings.TrimSpace(line))
	}
	return nil
}

func promptItem(out io.Writer, reader *bufio.Reader, set *review.Set, item review.Item) error {
	switch item.Kind {
	case review.KindGlossaryTerm:
		fmt.Fprintf(out, "\nGlossary: %s -> %s (%s)\n",
			item.Term.SourceTerm, item.Value(), item.Term.EntityType)
	default:
		fmt.Fprintf(out, "\nSuggestion: %s\n", item.Value())
	}

	for {
		fmt.Fprint(out, "[a]pprove / [r]eject / [e]dit: ")
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "a", "approve":
			return set.Approve(item.ID)
		case "r", "reject":
			return set.Reject(item.ID)
		case "e", "edit":
			fmt.Fprint(out, "New value: ")
			value, err := reader.ReadString('\n')
			if err != nil && err != io.EOF {
				return err
			}
			if err := set.Edit(item.ID, strings.TrimSpace(value)); err != nil {
				return err
			}
			// Editing leaves the item pending; loop for a resolution.
			refreshed, _ := set.Get(item.ID)
			item = refreshed
		default:
			fmt.Fprintln(out, "unrecognized choice")
		}
	}
}

func answerIsYes(reader *bufio.Reader) bool {
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
