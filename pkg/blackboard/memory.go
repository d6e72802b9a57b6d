package blackboard

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-process Store. A single mutex serialises appends,
// which gives the same atomic check-and-append the Redis scripts provide.
type MemoryStore struct {
	mu        sync.RWMutex
	sessionID string
	sections  map[Section][]*Entry
	fences    map[Section]int
	highWater int
}

// NewMemoryStore creates an empty in-memory store for a session.
func NewMemoryStore(sessionID string) *MemoryStore {
	return &MemoryStore{
		sessionID: sessionID,
		sections:  make(map[Section][]*Entry),
		fences:    make(map[Section]int),
		highWater: -1,
	}
}

func (m *MemoryStore) SessionID() string {
	return m.sessionID
}

// counter returns the section counter, or -1 for an untouched section.
// Caller must hold m.mu.
func (m *MemoryStore) counter(section Section) int {
	current := -1
	if entries := m.sections[section]; len(entries) > 0 {
		current = entries[len(entries)-1].Iteration
	}
	if fence, ok := m.fences[section]; ok && fence > current {
		current = fence
	}
	return current
}

// checkStale must be called with m.mu held.
func (m *MemoryStore) checkStale(e *Entry) error {
	if current := m.counter(e.Section); e.Iteration < current {
		return &StaleWriteError{Section: e.Section, Iteration: e.Iteration, Current: current}
	}
	if e.Iteration < m.highWater {
		return &StaleWriteError{Section: e.Section, Iteration: e.Iteration, Current: m.highWater}
	}
	return nil
}

// appendLocked must be called with m.mu held.
func (m *MemoryStore) appendLocked(e *Entry) {
	stored := *e
	m.sections[e.Section] = append(m.sections[e.Section], &stored)
	if e.Iteration > m.highWater {
		m.highWater = e.Iteration
	}
}

func (m *MemoryStore) validate(e *Entry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid entry: %w", err)
	}
	if e.SessionID != m.sessionID {
		return fmt.Errorf("entry belongs to session %s, store is scoped to %s", e.SessionID, m.sessionID)
	}
	return nil
}

func (m *MemoryStore) Append(ctx context.Context, e *Entry) error {
	if err := m.validate(e); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkStale(e); err != nil {
		return err
	}
	m.appendLocked(e)
	return nil
}

func (m *MemoryStore) Seal(ctx context.Context, marker *Entry) (bool, error) {
	if err := m.validate(marker); err != nil {
		return false, err
	}
	if marker.Status != StatusUnavailable {
		return false, fmt.Errorf("seal marker must have status %q", StatusUnavailable)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkStale(marker); err != nil {
		return false, err
	}

	written := false
	entries := m.sections[marker.Section]
	if len(entries) == 0 || entries[len(entries)-1].Iteration != marker.Iteration {
		m.appendLocked(marker)
		written = true
	}
	m.fences[marker.Section] = marker.Iteration + 1
	return written, nil
}

func (m *MemoryStore) Latest(ctx context.Context, section Section) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.sections[section]
	if len(entries) == 0 {
		return nil, fmt.Errorf("section %s: %w", section, ErrNotFound)
	}
	latest := *entries[len(entries)-1]
	return &latest, nil
}

func (m *MemoryStore) History(ctx context.Context, section Section) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.sections[section]
	out := make([]*Entry, len(entries))
	for i, e := range entries {
		c := *e
		out[i] = &c
	}
	return out, nil
}

func (m *MemoryStore) Sections(ctx context.Context) ([]Section, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Section, 0, len(m.sections))
	for section, entries := range m.sections {
		if len(entries) > 0 {
			out = append(out, section)
		}
	}
	sortSections(out)
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func sortSections(sections []Section) {
	sort.Slice(sections, func(i, j int) bool {
		return sections[i].rank() < sections[j].rank()
	})
}
