package services

import (
	"sort"

	"github.com/sophialabs/perfaudit/internal/domain/capture"
)

// CaptureIndex maps capture ids to loaded captures.
type CaptureIndex struct {
	entries map[string]*capture.Capture
	ids     []string
}

// NewCaptureIndex creates an empty index.
func NewCaptureIndex() *CaptureIndex {
	return &CaptureIndex{
		entries: make(map[string]*capture.Capture),
	}
}

// Add inserts a capture, replacing any capture with the same id.
func (idx *CaptureIndex) Add(c *capture.Capture) {
	idx.entries[c.ID] = c
}

// Build collects the sorted id list. Call it after the last Add.
func (idx *CaptureIndex) Build() {
	idx.ids = make([]string, 0, len(idx.entries))
	for id := range idx.entries {
		idx.ids = append(idx.ids, id)
	}
	sort.Strings(idx.ids)
}

// Lookup returns the capture with the given id.
func (idx *CaptureIndex) Lookup(id string) (*capture.Capture, bool) {
	c, ok := idx.entries[id]
	return c, ok
}

// IDs returns all capture ids, sorted.
func (idx *CaptureIndex) IDs() []string {
	return idx.ids
}

// All returns all captures ordered by id.
func (idx *CaptureIndex) All() []*capture.Capture {
	all := make([]*capture.Capture, 0, len(idx.ids))
	for _, id := range idx.ids {
		all = append(all, idx.entries[id])
	}
	return all
}

// Len returns the number of captures.
func (idx *CaptureIndex) Len() int {
	return len(idx.entries)
}
