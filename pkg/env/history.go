package env

import "sync"

// DefaultHistoryCap is the history capacity used when no override is
// configured.
const DefaultHistoryCap = 50

// History is a bounded ring of command lines.
type History struct {
	mu      sync.Mutex
	cap     int
	entries []string
}

// NewHistory creates a history with the given capacity; zero or negative
// falls back to DefaultHistoryCap.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCap
	}
	return &History{cap: capacity}
}

// Add appends a command line, dropping the oldest entry when full.
// Consecutive duplicates are collapsed.
func (h *History) Add(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n := len(h.entries); n > 0 && h.entries[n-1] == line {
		return
	}
	h.entries = append(h.entries, line)
	if len(h.entries) > h.cap {
		h.entries = h.entries[len(h.entries)-h.cap:]
	}
}

// At returns the entry with the given 1-based index.
func (h *History) At(index int) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if index < 1 || index > len(h.entries) {
		return "", false
	}
	return h.entries[index-1], true
}

// Last returns up to n entries, most recent last.
func (h *History) Last(n int) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n > len(h.entries) {
		n = len(h.entries)
	}
	out := make([]string, n)
	copy(out, h.entries[len(h.entries)-n:])
	return out
}

// All returns every entry, oldest first.
func (h *History) All() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

// Clear empties the history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
