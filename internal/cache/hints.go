// Package cache holds the in-memory resume-hint cache.
//
// Hints are advisory: the UI reads them to restore the last position
// instantly, before the store round-trip completes. They are never
// persisted and never synced; losing them costs nothing but a slightly
// slower first resume.
package cache

import "sync"

// Hint is the last observed position for one book, kept hot for resume.
type Hint struct {
	Version int64
	Unit    int
	Percent float64
	Words   int
	Marker  string
}

// Hints is a type-safe concurrent map of book id to resume hint. An
// RWMutex fits the workload: reads on every open, writes only on position
// updates.
type Hints struct {
	m  map[string]Hint
	mu sync.RWMutex
}

// NewHints creates an empty hint cache.
func NewHints() *Hints {
	return &Hints{
		m: make(map[string]Hint),
	}
}

// Load returns the hint for a book, if one has been recorded.
func (h *Hints) Load(bookID string) (Hint, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	hint, ok := h.m[bookID]
	return hint, ok
}

// Store records the hint for a book, replacing any previous one.
func (h *Hints) Store(bookID string, hint Hint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.m[bookID] = hint
}

// Delete drops the hint for a book. Called when the book is removed.
func (h *Hints) Delete(bookID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.m, bookID)
}

// Len returns the number of cached hints.
func (h *Hints) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.m)
}

// Clear drops every hint. Called on sign-out so one identity's positions
// never leak into another session.
func (h *Hints) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.m)
}
