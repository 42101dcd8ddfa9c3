// Package review models the human review gate: a keyed collection of
// suggestion and glossary items that must all be resolved before a chapter
// can be finalized. Items are addressed by stable IDs, never by position, so
// filtering or reordering in a UI cannot corrupt resolution state.
package review

import (
	"sync"

	"github.com/google/uuid"

	"inkwell/internal/glossary"
	"inkwell/internal/services"
)

// Status is the resolution state of one review item.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Kind distinguishes plain quality suggestions from glossary term proposals.
type Kind string

const (
	KindSuggestion   Kind = "suggestion"
	KindGlossaryTerm Kind = "glossary"
)

// Item is one reviewable unit. For glossary items the editable value is the
// proposed translation; Original is retained so an edit can be reset and so
// callers can detect modification after approval.
type Item struct {
	ID       string
	Kind     Kind
	Term     glossary.Term
	Original string
	Edited   string
	Status   Status
}

// IsModified reports whether the item's value differs from the original
// proposal.
func (i Item) IsModified() bool {
	return i.Edited != i.Original
}

// Value returns the current text, edits included.
func (i Item) Value() string {
	return i.Edited
}

// Set is a review session's item collection. Safe for concurrent use.
type Set struct {
	mu    sync.Mutex
	order []string
	items map[string]*Item
}

// NewSet returns an empty review set.
func NewSet() *Set {
	return &Set{items: make(map[string]*Item)}
}

// AddSuggestion registers a quality suggestion for review and returns its ID.
func (s *Set) AddSuggestion(text string) string {
	return s.add(&Item{
		Kind:     KindSuggestion,
		Original: text,
		Edited:   text,
		Status:   StatusPending,
	})
}

// AddGlossaryTerm registers a proposed glossary term for review and returns
// its ID. The editable value is the proposed translation.
func (s *Set) AddGlossaryTerm(term glossary.Term) string {
	return s.add(&Item{
		Kind:     KindGlossaryTerm,
		Term:     term,
		Original: term.TranslatedTerm,
		Edited:   term.TranslatedTerm,
		Status:   StatusPending,
	})
}

func (s *Set) add(item *Item) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = uuid.NewString()
	s.order = append(s.order, item.ID)
	s.items[item.ID] = item
	return item.ID
}

// Approve marks the item approved.
func (s *Set) Approve(id string) error {
	return s.setStatus(id, StatusApproved)
}

// Reject marks the item rejected; rejected items are discarded at commit.
func (s *Set) Reject(id string) error {
	return s.setStatus(id, StatusRejected)
}

func (s *Set) setStatus(id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return services.Wrap(services.ErrNotFound, "review", string(status), "unknown review item "+id, nil)
	}
	item.Status = status
	return nil
}

// Edit replaces the item's value. Editing does not change status.
func (s *Set) Edit(id, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return services.Wrap(services.ErrNotFound, "review", "edit", "unknown review item "+id, nil)
	}
	item.Edited = value
	return nil
}

// Reset restores the item's value to the original proposal.
func (s *Set) Reset(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return services.Wrap(services.ErrNotFound, "review", "reset", "unknown review item "+id, nil)
	}
	item.Edited = item.Original
	return nil
}

// Get returns a snapshot of one item.
func (s *Set) Get(id string) (Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return Item{}, false
	}
	return *item, true
}

// Items returns snapshots of every item in insertion order.
func (s *Set) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.items[id])
	}
	return out
}

// HasPending reports whether any item is still unresolved.
func (s *Set) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.Status == StatusPending {
			return true
		}
	}
	return false
}

// Pending returns the unresolved items in insertion order.
func (s *Set) Pending() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Item
	for _, id := range s.order {
		if item := s.items[id]; item.Status == StatusPending {
			out = append(out, *item)
		}
	}
	return out
}

// ApprovedTerms returns approved glossary terms with edits applied and
// status set to approved, ready for persistence.
func (s *Set) ApprovedTerms() []glossary.Term {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []glossary.Term
	for _, id := range s.order {
		item := s.items[id]
		if item.Kind != KindGlossaryTerm || item.Status != StatusApproved {
			continue
		}
		term := item.Term
		term.TranslatedTerm = item.Edited
		term.Status = glossary.StatusApproved
		out = append(out, term)
	}
	return out
}

// HasModifiedApprovedTerms reports whether any approved glossary term was
// edited relative to its original proposal. This is the regeneration
// trigger condition.
func (s *Set) HasModifiedApprovedTerms() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.Kind == KindGlossaryTerm && item.Status == StatusApproved && item.IsModified() {
			return true
		}
	}
	return false
}

// ApprovedSuggestions returns approved quality suggestions with edits
// applied, in insertion order.
func (s *Set) ApprovedSuggestions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, id := range s.order {
		item := s.items[id]
		if item.Kind == KindSuggestion && item.Status == StatusApproved {
			out = append(out, item.Edited)
		}
	}
	return out
}
