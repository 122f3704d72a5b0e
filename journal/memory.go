package journal

import (
	"context"
	"sync"
)

// MemoryJournal keeps the most recent entries in a fixed-size ring.
type MemoryJournal struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
}

// NewMemoryJournal creates a journal holding up to capacity entries.
// A non-positive capacity selects DefaultCapacity.
func NewMemoryJournal(capacity int) *MemoryJournal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryJournal{entries: make([]Entry, capacity)}
}

// Record stores e, evicting the oldest entry when the ring is full.
func (m *MemoryJournal) Record(_ context.Context, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[m.next] = e
	m.next = (m.next + 1) % len(m.entries)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// List returns up to limit entries, newest first. A non-positive limit
// returns everything held.
func (m *MemoryJournal) List(_ context.Context, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := m.len()
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]Entry, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (m.next - 1 - i + len(m.entries)) % len(m.entries)
		out = append(out, m.entries[idx])
	}
	return out, nil
}

// Len returns the number of entries held.
func (m *MemoryJournal) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.len()
}

func (m *MemoryJournal) len() int {
	if m.full {
		return len(m.entries)
	}
	return m.next
}
