package testsupport

import (
	"context"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

// NewChapter creates a series with one chapter for tests.
func NewChapter(t testing.TB, s *store.Store, title string, number int) (*store.Series, *store.Chapter) {
	t.Helper()

	series, err := s.CreateSeries(context.Background(), title, "", "", "Korean")
	if err != nil {
		t.Fatalf("store.CreateSeries: %v", err)
	}
	chapter, err := s.CreateChapter(context.Background(), series.ID, number)
	if err != nil {
		t.Fatalf("store.CreateChapter: %v", err)
	}
	return series, chapter
}
