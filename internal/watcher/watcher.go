// Package watcher monitors the inbox directory for newly dropped chapter
// folders. A folder is announced only after its contents settle, so a
// half-copied chapter is never picked up mid-transfer.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"inkwell/internal/logging"
)

// Event announces one chapter folder ready for intake.
type Event struct {
	// Path is the absolute chapter folder path.
	Path string
	// Name is the folder's base name, conventionally the chapter label.
	Name string
}

// Watcher debounces inbox filesystem activity into chapter-folder events.
type Watcher struct {
	fs     *fsnotify.Watcher
	settle time.Duration
	poll   time.Duration
	logger *slog.Logger
}

// New builds a watcher. settle is how long a folder must stay quiet before
// it is announced; poll is how often pending folders are re-checked against
// that window (zero selects half the settle window).
func New(settle, poll time.Duration, logger *slog.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if settle <= 0 {
		settle = 2 * time.Second
	}
	if poll <= 0 {
		poll = settle / 2
	}
	return &Watcher{
		fs:     fs,
		settle: settle,
		poll:   poll,
		logger: logging.NewComponentLogger(logger, "watcher"),
	}, nil
}

// Close releases the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

// Watch monitors inboxDir until ctx is cancelled. Existing folders are
// announced immediately; new folders are announced once their contents stop
// changing for the settle window. The returned channel closes when
// watching stops.
func (w *Watcher) Watch(ctx context.Context, inboxDir string) (<-chan Event, error) {
	if err := w.fs.Add(inboxDir); err != nil {
		return nil, fmt.Errorf("watch %s: %w", inboxDir, err)
	}

	events := make(chan Event, 16)
	go w.run(ctx, inboxDir, events)
	return events, nil
}

func (w *Watcher) run(ctx context.Context, inboxDir string, events chan<- Event) {
	defer close(events)

	// Folders already present when watching starts.
	pending := make(map[string]time.Time)
	if entries, err := os.ReadDir(inboxDir); err == nil {
		now := time.Now()
		for _, entry := range entries {
			if entry.IsDir() && !strings.HasPrefix(entry.Name(), ".") {
				pending[filepath.Join(inboxDir, entry.Name())] = now
			}
		}
	}

	flush := time.NewTicker(w.poll)
	defer flush.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if folder := w.folderFor(inboxDir, event); folder != "" {
				if _, tracked := pending[folder]; !tracked {
					// Watch the folder itself so files copied into it keep
					// re-arming the settle timer.
					_ = w.fs.Add(folder)
				}
				pending[folder] = time.Now()
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", logging.Error(err))
		case now := <-flush.C:
			for folder, last := range pending {
				if now.Sub(last) < w.settle {
					continue
				}
				delete(pending, folder)
				if info, err := os.Stat(folder); err != nil || !info.IsDir() {
					continue
				}
				w.logger.Info("chapter folder settled", logging.String("path", folder))
				select {
				case events <- Event{Path: folder, Name: filepath.Base(folder)}:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// folderFor maps a filesystem event to the chapter folder it belongs to:
// either the created folder itself or the parent of a file dropped inside
// the inbox.
func (w *Watcher) folderFor(inboxDir string, event fsnotify.Event) string {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return ""
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return ""
	}

	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		return event.Name
	}
	parent := filepath.Dir(event.Name)
	if parent != filepath.Clean(inboxDir) {
		return parent
	}
	return ""
}
