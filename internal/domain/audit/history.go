package audit

import "sync"

// History is a concurrent-safe fixed-size ring buffer of audit runs.
type History struct {
	mu      sync.RWMutex
	entries []Entry
	size    int
	head    int
	count   int
}

// NewHistory creates a history that holds up to size entries.
func NewHistory(size int) *History {
	if size <= 0 {
		size = 100
	}
	return &History{
		entries: make([]Entry, size),
		size:    size,
	}
}

// Add appends an entry, overwriting the oldest if full.
func (h *History) Add(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.head] = e
	h.head = (h.head + 1) % h.size
	if h.count < h.size {
		h.count++
	}
}

// Last returns the last n entries in chronological order.
func (h *History) Last(n int) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n > h.count {
		n = h.count
	}
	if n <= 0 {
		return nil
	}

	result := make([]Entry, n)
	start := (h.head - n + h.size) % h.size
	for i := range n {
		result[i] = h.entries[(start+i)%h.size]
	}
	return result
}

// ForCapture returns up to n of the most recent entries for one capture, in
// chronological order.
func (h *History) ForCapture(captureID string, n int) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var reversed []Entry
	for i := 0; i < h.count && len(reversed) < n; i++ {
		e := h.entries[(h.head-1-i+h.size)%h.size]
		if e.CaptureID == captureID {
			reversed = append(reversed, e)
		}
	}
	out := make([]Entry, len(reversed))
	for i, e := range reversed {
		out[len(reversed)-1-i] = e
	}
	return out
}

// Count returns the number of entries currently stored.
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}
