package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"regexp"
	"strconv"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"inkwell/internal/store"
	"inkwell/internal/watcher"
)

// chapterNumberPattern pulls the first run of digits out of a folder name,
// so "chapter_042", "ch42" and "42" all resolve to chapter 42.
var chapterNumberPattern = regexp.MustCompile(`\d+`)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var seriesID string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the inbox for new chapter folders",
		Long: `Watches the configured inbox directory and registers each settled
chapter folder as a pending chapter. A folder is considered settled once no
file inside it has changed for the configured settle window, so slow copies
are not picked up half-finished.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if seriesID == "" {
				return fmt.Errorf("--series is required")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Paths.InboxDir == "" {
				return fmt.Errorf("inbox_dir is not configured")
			}
			logger := ctx.ensureLogger()

			// Shares the pipeline lock with translate so a watch loop and a
			// manual run never race on the same library.
			lock := flock.New(filepath.Join(cfg.Paths.LogDir, "inkwell.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire pipeline lock: %w", err)
			}
			if !locked {
				return fmt.Errorf("another inkwell instance is already running")
			}
			defer func() { _ = lock.Unlock() }()

			s, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if _, err := s.GetSeries(runCtx, seriesID); err != nil {
				return err
			}

			settle := time.Duration(cfg.Workflow.WatchSettleMS) * time.Millisecond
			poll := time.Duration(cfg.Workflow.WatchPollInterval) * time.Second
			w, err := watcher.New(settle, poll, logger)
			if err != nil {
				return err
			}
			events, err := w.Watch(runCtx, cfg.Paths.InboxDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %s (ctrl-c to stop)\n", cfg.Paths.InboxDir)
			for event := range events {
				number, ok := chapterNumberFromName(event.Name)
				if !ok {
					fmt.Fprintf(out, "Skipping %s: no chapter number in folder name\n", event.Name)
					continue
				}
				if err := registerChapter(runCtx, s, seriesID, number); err != nil {
					fmt.Fprintf(out, "Chapter %d: %v\n", number, err)
					continue
				}
				fmt.Fprintf(out, "Chapter %d queued from %s\n", number, event.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&seriesID, "series", "", "Series ID that incoming chapters belong to")
	return cmd
}

func chapterNumberFromName(name string) (int, bool) {
	match := chapterNumberPattern.FindString(name)
	if match == "" {
		return 0, false
	}
	number, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return number, true
}

func registerChapter(ctx context.Context, s *store.Store, seriesID string, number int) error {
	chapters, err := s.ListChapters(ctx, seriesID)
	if err != nil {
		return err
	}
	for _, chapter := range chapters {
		if chapter.Number == number {
			return fmt.Errorf("already registered (status %s)", chapter.Status)
		}
	}
	_, err = s.CreateChapter(ctx, seriesID, number)
	return err
}
