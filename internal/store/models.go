package store

import "time"

// ChapterStatus is the chapter lifecycle state persisted with each row.
type ChapterStatus string

const (
	StatusPending     ChapterStatus = "pending"
	StatusExtracting  ChapterStatus = "extracting"
	StatusExtracted   ChapterStatus = "extracted"
	StatusTranslating ChapterStatus = "translating"
	StatusReviewing   ChapterStatus = "reviewing"
	StatusCompleted   ChapterStatus = "completed"
	StatusFailed      ChapterStatus = "failed"
)

// Series is one translated work. Glossary terms and chapters hang off it.
type Series struct {
	ID             string
	Title          string
	Genre          string
	ToneNotes      string
	SourceLanguage string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Chapter is one unit of translation work within a series.
type Chapter struct {
	ID             string
	SeriesID       string
	Number         int
	Status         ChapterStatus
	ExtractedText  string
	TranslatedText string
	Memory         string
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MemoryEntry is one row of the append-only memory log.
type MemoryEntry struct {
	ID        int64
	ChapterID string
	Summary   string
	Tags      []string
	KeyEvents []string
	CreatedAt time.Time
}

// HistoryEntry records one produced translation, including superseded
// pre-regeneration versions.
type HistoryEntry struct {
	ID             int64
	ChapterID      string
	TranslatedText string
	Reason         string
	ReviewNotes    []string
	CreatedAt      time.Time
}

// History reasons.
const (
	HistoryInitial      = "initial"
	HistoryRegeneration = "regeneration"
)
