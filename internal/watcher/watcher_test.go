package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"inkwell/internal/logging"
)

func collectEvent(t *testing.T, events <-chan Event, within time.Duration) Event {
	t.Helper()
	select {
	case event, ok := <-events:
		if !ok {
			t.Fatal("event channel closed early")
		}
		return event
	case <-time.After(within):
		t.Fatal("timed out waiting for chapter folder event")
	}
	return Event{}
}

func TestNewPollInterval(t *testing.T) {
	w, err := New(100*time.Millisecond, 30*time.Millisecond, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	if w.poll != 30*time.Millisecond {
		t.Fatalf("poll = %v, want the configured interval", w.poll)
	}

	fallback, err := New(100*time.Millisecond, 0, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = fallback.Close() })
	if fallback.poll != 50*time.Millisecond {
		t.Fatalf("poll = %v, want half the settle window", fallback.poll)
	}
}

func TestWatchAnnouncesExistingFolders(t *testing.T) {
	inbox := t.TempDir()
	if err := os.Mkdir(filepath.Join(inbox, "chapter-001"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	w, err := New(50*time.Millisecond, 0, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	events, err := w.Watch(ctx, inbox)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	event := collectEvent(t, events, 2*time.Second)
	if event.Name != "chapter-001" {
		t.Fatalf("event = %+v", event)
	}
}

func TestWatchAnnouncesNewFolderAfterSettle(t *testing.T) {
	inbox := t.TempDir()
	w, err := New(50*time.Millisecond, 0, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	events, err := w.Watch(ctx, inbox)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	folder := filepath.Join(inbox, "chapter-002")
	if err := os.Mkdir(folder, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(folder, "001.png"), []byte{0x89}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	event := collectEvent(t, events, 2*time.Second)
	if event.Path != folder {
		t.Fatalf("event path = %q, want %q", event.Path, folder)
	}
}

func TestWatchIgnoresHiddenEntries(t *testing.T) {
	inbox := t.TempDir()
	w, err := New(50*time.Millisecond, 0, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	events, err := w.Watch(ctx, inbox)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.Mkdir(filepath.Join(inbox, ".staging"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	select {
	case event := <-events:
		t.Fatalf("unexpected event for hidden folder: %+v", event)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	inbox := t.TempDir()
	w, err := New(50*time.Millisecond, 0, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	events, err := w.Watch(ctx, inbox)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
