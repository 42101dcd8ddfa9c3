// Package store persists series, chapters, glossary terms, chapter memory,
// and translation history in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"inkwell/internal/config"
	"inkwell/internal/services"
)

// Store manages pipeline persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the database and verifies the schema.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LibraryDir, "inkwell.db"))
}

// OpenPath opens the database at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CreateSeries inserts a new series and returns it.
func (s *Store) CreateSeries(ctx context.Context, title, genre, toneNotes, sourceLanguage string) (*Series, error) {
	now := timestamp()
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO series (id, title, genre, tone_notes, source_language, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, title, genre, toneNotes, sourceLanguage, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert series: %w", err)
	}
	return s.GetSeries(ctx, id)
}

// GetSeries fetches one series by ID.
func (s *Store) GetSeries(ctx context.Context, id string) (*Series, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, genre, tone_notes, source_language, created_at, updated_at
         FROM series WHERE id = ?`, id)
	var series Series
	var createdAt, updatedAt string
	err := row.Scan(&series.ID, &series.Title, &series.Genre, &series.ToneNotes,
		&series.SourceLanguage, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get series", id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get series: %w", err)
	}
	series.CreatedAt = parseTime(createdAt)
	series.UpdatedAt = parseTime(updatedAt)
	return &series, nil
}

// ListSeries returns every series ordered by title.
func (s *Store) ListSeries(ctx context.Context) ([]*Series, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, genre, tone_notes, source_language, created_at, updated_at
         FROM series ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var out []*Series
	for rows.Next() {
		var series Series
		var createdAt, updatedAt string
		if err := rows.Scan(&series.ID, &series.Title, &series.Genre, &series.ToneNotes,
			&series.SourceLanguage, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan series: %w", err)
		}
		series.CreatedAt = parseTime(createdAt)
		series.UpdatedAt = parseTime(updatedAt)
		out = append(out, &series)
	}
	return out, rows.Err()
}

// CreateChapter inserts a new pending chapter.
func (s *Store) CreateChapter(ctx context.Context, seriesID string, number int) (*Chapter, error) {
	now := timestamp()
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chapters (id, series_id, chapter_number, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		id, seriesID, number, StatusPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chapter: %w", err)
	}
	return s.GetChapter(ctx, id)
}

const chapterColumns = `id, series_id, chapter_number, status, extracted_text,
	translated_text, memory, error_message, created_at, updated_at`

func scanChapter(row interface{ Scan(...any) error }) (*Chapter, error) {
	var chapter Chapter
	var createdAt, updatedAt string
	err := row.Scan(&chapter.ID, &chapter.SeriesID, &chapter.Number, &chapter.Status,
		&chapter.ExtractedText, &chapter.TranslatedText, &chapter.Memory,
		&chapter.ErrorMessage, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	chapter.CreatedAt = parseTime(createdAt)
	chapter.UpdatedAt = parseTime(updatedAt)
	return &chapter, nil
}

// GetChapter fetches one chapter by ID.
func (s *Store) GetChapter(ctx context.Context, id string) (*Chapter, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE id = ?`, id)
	chapter, err := scanChapter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get chapter", id, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get chapter: %w", err)
	}
	return chapter, nil
}

// ListChapters returns a series' chapters ordered by chapter number.
func (s *Store) ListChapters(ctx context.Context, seriesID string) ([]*Chapter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chapterColumns+` FROM chapters WHERE series_id = ? ORDER BY chapter_number`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("list chapters: %w", err)
	}
	defer rows.Close()

	var out []*Chapter
	for rows.Next() {
		chapter, err := scanChapter(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chapter: %w", err)
		}
		out = append(out, chapter)
	}
	return out, rows.Err()
}

// UpdateChapterStatus records a lifecycle transition. The error message is
// cleared on non-failure statuses.
func (s *Store) UpdateChapterStatus(ctx context.Context, id string, status ChapterStatus, errorMessage string) error {
	if status != StatusFailed {
		errorMessage = ""
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE chapters SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status, errorMessage, timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("update chapter status: %w", err)
	}
	return requireRow(res, "chapter", id)
}

// SaveExtractedText stores the combined source document for a chapter.
func (s *Store) SaveExtractedText(ctx context.Context, id, extractedText string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chapters SET extracted_text = ?, updated_at = ? WHERE id = ?`,
		extractedText, timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("save extracted text: %w", err)
	}
	return requireRow(res, "chapter", id)
}

// SaveTranslatedText stores the final translated document for a chapter.
func (s *Store) SaveTranslatedText(ctx context.Context, id, translatedText string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chapters SET translated_text = ?, updated_at = ? WHERE id = ?`,
		translatedText, timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("save translated text: %w", err)
	}
	return requireRow(res, "chapter", id)
}

// SaveChapterMemory stores the rolling memory attached to a chapter.
func (s *Store) SaveChapterMemory(ctx context.Context, id, memory string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE chapters SET memory = ?, updated_at = ? WHERE id = ?`,
		memory, timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("save chapter memory: %w", err)
	}
	return requireRow(res, "chapter", id)
}

// LatestMemory returns the memory of the most recent completed chapter
// before the given chapter number, or "" when none exists.
func (s *Store) LatestMemory(ctx context.Context, seriesID string, beforeChapter int) (string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT memory FROM chapters
         WHERE series_id = ? AND chapter_number < ? AND status = ? AND memory != ''
         ORDER BY chapter_number DESC LIMIT 1`,
		seriesID, beforeChapter, StatusCompleted,
	)
	var memory string
	err := row.Scan(&memory)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest memory: %w", err)
	}
	return memory, nil
}

// AppendMemoryEntry records one memory-log row.
func (s *Store) AppendMemoryEntry(ctx context.Context, chapterID string, summary string, tags, keyEvents []string) error {
	tagsJSON, err := json.Marshal(orEmpty(tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	eventsJSON, err := json.Marshal(orEmpty(keyEvents))
	if err != nil {
		return fmt.Errorf("marshal key events: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memory_log (chapter_id, summary, tags_json, key_events_json, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		chapterID, summary, string(tagsJSON), string(eventsJSON), timestamp(),
	)
	if err != nil {
		return fmt.Errorf("append memory entry: %w", err)
	}
	return nil
}

// ListMemoryEntries returns a chapter's memory log, newest first.
func (s *Store) ListMemoryEntries(ctx context.Context, chapterID string) ([]*MemoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chapter_id, summary, tags_json, key_events_json, created_at
         FROM memory_log WHERE chapter_id = ? ORDER BY id DESC`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("list memory entries: %w", err)
	}
	defer rows.Close()

	var out []*MemoryEntry
	for rows.Next() {
		var entry MemoryEntry
		var tagsJSON, eventsJSON, createdAt string
		if err := rows.Scan(&entry.ID, &entry.ChapterID, &entry.Summary, &tagsJSON, &eventsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan memory entry: %w", err)
		}
		_ = json.Unmarshal([]byte(tagsJSON), &entry.Tags)
		_ = json.Unmarshal([]byte(eventsJSON), &entry.KeyEvents)
		entry.CreatedAt = parseTime(createdAt)
		out = append(out, &entry)
	}
	return out, rows.Err()
}

// AppendHistory records one produced translation. reviewNotes are the
// approved quality suggestions attached to that run.
func (s *Store) AppendHistory(ctx context.Context, chapterID, translatedText, reason string, reviewNotes []string) error {
	notesJSON, err := json.Marshal(orEmpty(reviewNotes))
	if err != nil {
		return fmt.Errorf("marshal review notes: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO translation_history (chapter_id, translated_text, reason, review_notes_json, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		chapterID, translatedText, reason, string(notesJSON), timestamp(),
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// ListHistory returns a chapter's translation history, newest first.
func (s *Store) ListHistory(ctx context.Context, chapterID string) ([]*HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chapter_id, translated_text, reason, review_notes_json, created_at
         FROM translation_history WHERE chapter_id = ? ORDER BY id DESC`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []*HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		var notesJSON, createdAt string
		if err := rows.Scan(&entry.ID, &entry.ChapterID, &entry.TranslatedText, &entry.Reason, &notesJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		_ = json.Unmarshal([]byte(notesJSON), &entry.ReviewNotes)
		entry.CreatedAt = parseTime(createdAt)
		out = append(out, &entry)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result, kind, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "store", "update "+kind, id, nil)
	}
	return nil
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
